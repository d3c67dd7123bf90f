package models

import "time"

// MembershipWindow is the validity window of a user's studio membership.
// Read-only from the booking flow's perspective; rows are produced by the
// membership payment flow.
type MembershipWindow struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Active    bool      `db:"active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MembershipDetails is the wire shape nested in the status response.
type MembershipDetails struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// MembershipStatus is the external membership-status payload.
type MembershipStatus struct {
	IsActive          bool               `json:"isActive"`
	MembershipDetails *MembershipDetails `json:"membershipDetails,omitempty"`
}
