package domain

import "time"

// Registration is an active seat held by a user in a course. It exists from a
// successful Register until the matching Unregister.
type Registration struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CourseSummary is one row of a user's registrations.
type CourseSummary struct {
	Course
	RegistrationID string    `json:"registration_id"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// LedgerEventKind names a committed ledger change.
type LedgerEventKind string

const (
	EventRegistered   LedgerEventKind = "registered"
	EventUnregistered LedgerEventKind = "unregistered"
	EventReconciled   LedgerEventKind = "reconciled"
)

// LedgerEvent is emitted after a ledger change has been committed.
type LedgerEvent struct {
	Kind           LedgerEventKind
	CourseID       string
	UserID         string // empty for EventReconciled
	RegistrationID string
	Registered     int // count after the change
	Capacity       int
	Version        int64 // per-course ledger version of the change
	At             time.Time
}
