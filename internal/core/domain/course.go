package domain

import (
	"strings"
	"time"
)

// CourseStatus is the position of "now" relative to a course's registration window.
type CourseStatus string

const (
	CourseUpcoming CourseStatus = "upcoming"
	CourseOngoing  CourseStatus = "ongoing"
	CourseEnded    CourseStatus = "ended"
)

// WindowPrecision is the resolution at which registration windows are stored.
// Every backend persists at least millisecond precision.
const WindowPrecision = time.Millisecond

// Course is a capacity-limited offering. Registered is owned by the ledger;
// every other field is owned by the catalog.
type Course struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Location          string    `json:"location"`
	Image             string    `json:"image,omitempty"`
	Capacity          int       `json:"capacity"`
	Registered        int       `json:"registered"`
	RegistrationStart time.Time `json:"registration_start"`
	RegistrationEnd   time.Time `json:"registration_end"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewCourse builds a course with an empty ledger from the catalog fields of c.
func NewCourse(id string, c Course, now time.Time) (*Course, error) {
	course := c
	course.ID = id
	course.Title = strings.TrimSpace(c.Title)
	course.RegistrationStart = NormalizeWindowTime(c.RegistrationStart)
	course.RegistrationEnd = NormalizeWindowTime(c.RegistrationEnd)
	course.Registered = 0
	course.CreatedAt = now
	course.UpdatedAt = now
	if err := course.Validate(); err != nil {
		return nil, err
	}
	return &course, nil
}

// Validate checks the catalog-owned fields and the counter bounds.
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return invalidCourse("title is required")
	}
	if c.Capacity <= 0 {
		return invalidCourse("capacity must be a positive integer")
	}
	if c.Registered < 0 || c.Registered > c.Capacity {
		return invalidCourse("registered must be between 0 and capacity")
	}
	if c.RegistrationStart.IsZero() || c.RegistrationEnd.IsZero() {
		return invalidCourse("registration window is required")
	}
	if c.RegistrationEnd.Before(c.RegistrationStart) {
		return invalidCourse("registration_end must not be before registration_start")
	}
	return nil
}

// NormalizeWindowTime converts t to UTC at WindowPrecision, so the window a
// caller sees is the window every store enforces.
func NormalizeWindowTime(t time.Time) time.Time {
	return t.UTC().Truncate(WindowPrecision)
}

// Remaining returns the number of free seats.
func (c *Course) Remaining() int {
	return c.Capacity - c.Registered
}

// IsFull reports whether no seats remain.
func (c *Course) IsFull() bool {
	return c.Registered >= c.Capacity
}

// CheckWindow returns a *WindowClosedError when now is outside the inclusive
// window [RegistrationStart, RegistrationEnd].
func (c *Course) CheckWindow(now time.Time) error {
	if now.Before(c.RegistrationStart) {
		return &WindowClosedError{State: WindowNotYetOpen, Start: c.RegistrationStart, End: c.RegistrationEnd}
	}
	if now.After(c.RegistrationEnd) {
		return &WindowClosedError{State: WindowAlreadyClosed, Start: c.RegistrationStart, End: c.RegistrationEnd}
	}
	return nil
}

// Admit decides a registration attempt against a locked snapshot of the course.
// A user who already holds a seat is told so even when the course is full,
// since that seat is part of the count.
func (c *Course) Admit(now time.Time, alreadyRegistered bool) error {
	if err := c.CheckWindow(now); err != nil {
		return err
	}
	if alreadyRegistered {
		return ErrAlreadyRegistered
	}
	if c.IsFull() {
		return ErrCourseFull
	}
	return nil
}

// Status classifies the course relative to now.
func (c *Course) Status(now time.Time) CourseStatus {
	switch {
	case now.Before(c.RegistrationStart):
		return CourseUpcoming
	case now.After(c.RegistrationEnd):
		return CourseEnded
	default:
		return CourseOngoing
	}
}

// EditableAt reports whether catalog fields may still change at now.
func (c *Course) EditableAt(now time.Time, grace time.Duration) bool {
	return !now.After(c.RegistrationEnd.Add(grace))
}

// DeletableAt reports whether the registration window (plus grace) has passed.
func (c *Course) DeletableAt(now time.Time, grace time.Duration) bool {
	return now.After(c.RegistrationEnd.Add(grace))
}
