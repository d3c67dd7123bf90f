package models

import "time"

// PaymentStatus is the lifecycle of a payment transaction.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Gateway status codes surfaced on the status-polling endpoint.
const (
	PaymentCodeSuccess   = 1
	PaymentCodePending   = 2
	PaymentCodeFailed    = 0
	PaymentCodeCancelled = -1
)

// PaymentKind distinguishes class fees from membership purchases.
type PaymentKind string

const (
	PaymentKindClass      PaymentKind = "CLASS"
	PaymentKindMembership PaymentKind = "MEMBERSHIP"
)

// Payment is a persisted payment transaction.
type Payment struct {
	ID        string        `db:"id" json:"id"`
	OrderID   string        `db:"order_id" json:"order_id"`
	UserID    string        `db:"user_id" json:"user_id"`
	ClassID   *string       `db:"class_id" json:"class_id,omitempty"`
	Kind      PaymentKind   `db:"kind" json:"kind"`
	Amount    float64       `db:"amount" json:"amount"`
	Months    int           `db:"months" json:"months,omitempty"`
	Status    PaymentStatus `db:"status" json:"status"`
	Method    string        `db:"method" json:"payment_method,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentOrder is the gateway order handed back to the client for redirect/QR.
type PaymentOrder struct {
	OrderID  string  `json:"order_id"`
	OrderURL string  `json:"order_url"`
	QRCode   string  `json:"qr_code,omitempty"`
	Amount   float64 `json:"amount"`
}

// PaymentStatusResult is the coded polling response the frontend consumes.
type PaymentStatusResult struct {
	Code        int      `json:"code"`
	IsPending   bool     `json:"isPending"`
	IsCancelled bool     `json:"isCancelled"`
	Message     string   `json:"message"`
	Transaction *Payment `json:"transaction,omitempty"`
}

// Reconciliation records a payment that was captured while the registration
// commit failed. These rows are for manual follow-up, never auto-retried.
type Reconciliation struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Reason    string    `db:"reason" json:"reason"`
	Resolved  bool      `db:"resolved" json:"resolved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
