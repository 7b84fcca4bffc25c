package ports

import (
	"context"
	"time"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// ListCoursesFilter carries the query parameters for listing courses.
type ListCoursesFilter struct {
	Search string              // optional: substring of title or description
	Status domain.CourseStatus // optional: relative to Now
	Now    time.Time
	Page   int // 1-based
	Limit  int
}

// CourseUpdate is the set of catalog fields an admin may change. The
// registered counter is never part of it.
type CourseUpdate struct {
	Title             string
	Description       string
	Date              string
	Time              string
	Location          string
	Image             string
	Capacity          int
	RegistrationStart time.Time
	RegistrationEnd   time.Time
}

// CourseRepository persists catalog fields.
type CourseRepository interface {
	Create(ctx context.Context, c *domain.Course) error
	FindByID(ctx context.Context, id string) (*domain.Course, error)
	// Update applies u under the course's ledger lock. It returns
	// domain.ErrCapacityBelowRegistered when u.Capacity is lower than the
	// current counter and domain.ErrCourseClosedForEdit when editable
	// rejects the locked course.
	Update(ctx context.Context, id string, u CourseUpdate, now time.Time, editable func(*domain.Course) bool) (*domain.Course, error)
	// Delete removes the course and its registrations in one atomic unit.
	// deletable is evaluated against the locked course; a false result
	// yields domain.ErrCourseStillOpen.
	Delete(ctx context.Context, id string, deletable func(*domain.Course) bool) error
	// List returns a page of courses ordered by date descending, and the total.
	List(ctx context.Context, filter ListCoursesFilter) ([]*domain.Course, int64, error)
}
