package models

import "time"

// ClassStatus represents the publication state of a class.
type ClassStatus string

const (
	ClassStatusPending ClassStatus = "PENDING"
	ClassStatusActive  ClassStatus = "ACTIVE"
	ClassStatusLocked  ClassStatus = "LOCKED"
)

// Class represents a fitness class offered by a trainer.
// CurrentAttendees + ReservedCount never exceeds MaxAttendees; the pair is
// only mutated through the class repository's conditional updates.
type Class struct {
	ID               string      `db:"id" json:"id"`
	TrainerID        string      `db:"trainer_id" json:"trainer_id"`
	Name             string      `db:"name" json:"name"`
	Description      string      `db:"description" json:"description,omitempty"`
	Fee              float64     `db:"fee" json:"fee"`
	MaxAttendees     int         `db:"max_attendees" json:"maxAttender"`
	CurrentAttendees int         `db:"current_attendees" json:"currentAttender"`
	ReservedCount    int         `db:"reserved_count" json:"-"`
	Status           ClassStatus `db:"status" json:"status"`
	StartDate        time.Time   `db:"start_date" json:"start_date"`
	EndDate          time.Time   `db:"end_date" json:"end_date"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with trainer info and the published schedule.
type ClassDetail struct {
	Class
	TrainerName string       `db:"trainer_name" json:"trainer_name"`
	Schedule    []WeeklySlot `json:"schedule,omitempty"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	TrainerID string
	Status    ClassStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MemberStatus represents the lifecycle of a user's class membership.
type MemberStatus string

const (
	MemberStatusActive MemberStatus = "ACTIVE"
	MemberStatusLeft   MemberStatus = "LEFT"
)

// ClassMember links a user to a class they have completed registration for.
type ClassMember struct {
	ID       string       `db:"id" json:"id"`
	UserID   string       `db:"user_id" json:"user_id"`
	ClassID  string       `db:"class_id" json:"class_id"`
	JoinedAt time.Time    `db:"joined_at" json:"joined_at"`
	LeftAt   *time.Time   `db:"left_at" json:"left_at,omitempty"`
	Status   MemberStatus `db:"status" json:"status"`
}

// AttendeeDetail enriches a class member with user info for rosters.
type AttendeeDetail struct {
	ClassMember
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone,omitempty"`
}

// JoinStatus is the external wire shape for the joined check.
type JoinStatus struct {
	IsJoined bool `json:"isJoined"`
}
