package models

import "time"

// ReservationStatus tracks a registration attempt through the admission flow.
type ReservationStatus string

const (
	ReservationStatusReserved        ReservationStatus = "RESERVED"
	ReservationStatusAwaitingPayment ReservationStatus = "AWAITING_PAYMENT"
	ReservationStatusCompleted       ReservationStatus = "COMPLETED"
	ReservationStatusCancelled       ReservationStatus = "CANCELLED"
	ReservationStatusExpired         ReservationStatus = "EXPIRED"
)

// Live reports whether the reservation still holds a seat.
func (s ReservationStatus) Live() bool {
	return s == ReservationStatusReserved || s == ReservationStatusAwaitingPayment
}

// Reservation is a provisional hold on a class seat. A reservation is never
// left dangling: it ends Completed, Cancelled, or Expired, and while live it
// counts against the class capacity through reserved_count.
type Reservation struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	ClassID   string            `db:"class_id" json:"class_id"`
	Status    ReservationStatus `db:"status" json:"status"`
	ExpiresAt time.Time         `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// EligibilityCode classifies the outcome of the pre-payment condition checks.
type EligibilityCode string

const (
	EligibilityOK                 EligibilityCode = "OK"
	EligibilityAlreadyJoined      EligibilityCode = "ALREADY_JOINED"
	EligibilityMembershipRequired EligibilityCode = "MEMBERSHIP_REQUIRED"
	EligibilityMembershipExpiring EligibilityCode = "MEMBERSHIP_EXPIRING"
	EligibilityScheduleConflict   EligibilityCode = "SCHEDULE_CONFLICT"
)

// Eligibility carries the structured outcome of ValidateConditions so the
// caller can render a specific remediation action.
type Eligibility struct {
	Code          EligibilityCode  `json:"code"`
	MonthsNeeded  int              `json:"months_needed,omitempty"`
	MembershipEnd *time.Time       `json:"membership_end,omitempty"`
	ClassEnd      *time.Time       `json:"class_end,omitempty"`
	Conflicts     []ConflictDetail `json:"conflicts,omitempty"`
}

// Eligible reports whether registration may proceed to payment.
func (e Eligibility) Eligible() bool {
	return e.Code == EligibilityOK
}

// MembershipExpiringPayload is the rejection detail when the membership
// window ends before the class does, carrying the shortfall for display.
type MembershipExpiringPayload struct {
	MembershipEnd time.Time `json:"membership_end"`
	ClassEnd      time.Time `json:"class_end"`
	MonthsNeeded  int       `json:"months_needed"`
}

// RegistrationResult summarises a completed registration flow.
type RegistrationResult struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message,omitempty"`
	OrderURL  string  `json:"order_url,omitempty"`
	AmountDue float64 `json:"amount_due,omitempty"`
}
