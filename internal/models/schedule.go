package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeeklySlot is a recurring weekly time interval. Date is set only for
// one-off occurrences; recurring slots key on DayOfWeek alone. Start and
// End are minutes since midnight with Start < End, end-exclusive.
type WeeklySlot struct {
	DayOfWeek time.Weekday `db:"day_of_week" json:"day_of_week"`
	Date      *time.Time   `db:"occurs_on" json:"occurs_on,omitempty"`
	Start     int          `db:"start_min" json:"start_min"`
	End       int          `db:"end_min" json:"end_min"`
}

// Validate checks the slot invariants.
func (s WeeklySlot) Validate() error {
	if s.Start < 0 || s.End > 24*60 {
		return fmt.Errorf("slot outside day bounds: %d-%d", s.Start, s.End)
	}
	if s.Start >= s.End {
		return fmt.Errorf("slot start %s must be before end %s", FormatClock(s.Start), FormatClock(s.End))
	}
	if s.Date == nil && (s.DayOfWeek < time.Sunday || s.DayOfWeek > time.Saturday) {
		return fmt.Errorf("invalid day of week: %d", s.DayOfWeek)
	}
	return nil
}

// SameRecurrence reports whether two slots share a recurrence key:
// the same calendar date for one-off slots, the same weekday otherwise.
func (s WeeklySlot) SameRecurrence(other WeeklySlot) bool {
	if s.Date != nil || other.Date != nil {
		if s.Date == nil || other.Date == nil {
			return false
		}
		y1, m1, d1 := s.Date.Date()
		y2, m2, d2 := other.Date.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}
	return s.DayOfWeek == other.DayOfWeek
}

// Overlaps reports a half-open interval overlap on the same recurrence key.
// Slots that merely touch (one ends exactly when the other starts) do not overlap.
func (s WeeklySlot) Overlaps(other WeeklySlot) bool {
	if !s.SameRecurrence(other) {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}

func (s WeeklySlot) String() string {
	day := strings.ToUpper(s.DayOfWeek.String())
	if s.Date != nil {
		day = s.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s %s-%s", day, FormatClock(s.Start), FormatClock(s.End))
}

// FormatClock renders minutes-of-day as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock parses an HH:MM clock value into minutes-of-day.
func ParseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return h*60 + m, nil
}

// ParseDay resolves a weekday from a name ("MONDAY") or numeric string ("1").
func ParseDay(raw string) (time.Weekday, error) {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("day of week out of range: %d", n)
		}
		return time.Weekday(n), nil
	}
	upper := strings.ToUpper(trimmed)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToUpper(d.String()) == upper {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", raw)
}

// ScheduleEntry is a published weekly slot belonging to a class.
type ScheduleEntry struct {
	ID        string     `db:"id" json:"id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	Slot      WeeklySlot `json:"slot"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// UserCommitment is a schedule entry a user is bound to through an active
// class membership, carrying the owning class for display.
type UserCommitment struct {
	ClassID   string     `db:"class_id" json:"class_id"`
	ClassName string     `db:"class_name" json:"class_name"`
	Slot      WeeklySlot `json:"slot"`
}

// SlotConflictResult is the outcome of the pure interval check.
type SlotConflictResult struct {
	HasConflict bool         `json:"hasConflict"`
	Conflicts   []WeeklySlot `json:"conflicts"`
}

// ScheduleWire mirrors the external schedule payload shape.
type ScheduleWire struct {
	Days      string `json:"days"`
	StartHour string `json:"start_hour"`
	EndHour   string `json:"end_hour"`
}

// ExistingClassInfo describes a committed class involved in a conflict.
type ExistingClassInfo struct {
	ClassID   string       `json:"class_id"`
	ClassName string       `json:"class_name"`
	Schedule  ScheduleWire `json:"schedule"`
}

// ConflictDetail is one conflicting commitment enriched for display.
type ConflictDetail struct {
	ExistingClass ExistingClassInfo `json:"existing_class"`
}

// UserConflictResult is the outcome of checking a candidate class against a
// user's existing commitments.
type UserConflictResult struct {
	HasConflict bool             `json:"hasConflict"`
	Conflicts   []ConflictDetail `json:"conflicts"`
}

// AffectedUser is an enrolled attendee whose commitments clash with a
// proposed class slot.
type AffectedUser struct {
	UserID    string           `json:"user_id"`
	FullName  string           `json:"full_name"`
	Conflicts []ConflictDetail `json:"conflicts"`
}

// ClassConflictResult is the outcome of checking a proposed slot against all
// enrolled attendees of a class.
type ClassConflictResult struct {
	HasConflicts     bool           `json:"hasConflicts"`
	ConflictingUsers []AffectedUser `json:"conflictingUsers"`
}

// ScheduleConflictPayload is the rejection detail when a booking collides
// with committed slots.
type ScheduleConflictPayload struct {
	Conflicts []ConflictDetail `json:"conflicts"`
}
