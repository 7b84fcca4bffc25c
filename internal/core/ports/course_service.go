package ports

import (
	"context"
	"time"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// CourseInput carries the catalog fields for create and update.
type CourseInput struct {
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

// ListCoursesInput carries the parameters of the public course list.
type ListCoursesInput struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// ListCoursesResult is one page of courses.
type ListCoursesResult struct {
	Items   []*domain.Course
	Total   int64
	Page    int
	Limit   int
	HasMore bool
}

// CourseService defines use-case operations for the course catalog.
type CourseService interface {
	CreateCourse(ctx context.Context, input CourseInput) (*domain.Course, error)
	UpdateCourse(ctx context.Context, id string, input CourseInput) (*domain.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	GetCourse(ctx context.Context, id string) (*domain.Course, error)
	ListCourses(ctx context.Context, input ListCoursesInput) (*ListCoursesResult, error)
}
