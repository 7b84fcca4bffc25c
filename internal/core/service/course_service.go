package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPage         = 1000000
)

// CourseOptions carries the catalog grace periods.
type CourseOptions struct {
	// EditGrace is how long after RegistrationEnd a course can still be edited.
	EditGrace time.Duration
	// DeleteGrace is how long after RegistrationEnd a course must wait before deletion.
	DeleteGrace time.Duration
	Now         func() time.Time
}

type CourseService struct {
	repo        ports.CourseRepository
	editGrace   time.Duration
	deleteGrace time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

var _ ports.CourseService = (*CourseService)(nil)

func NewCourseService(repo ports.CourseRepository, opts CourseOptions, logger zerolog.Logger) *CourseService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &CourseService{
		repo:        repo,
		editGrace:   opts.EditGrace,
		deleteGrace: opts.DeleteGrace,
		now:         opts.Now,
		logger:      logger,
	}
}

// CreateCourse adds a course with an empty ledger.
func (s *CourseService) CreateCourse(ctx context.Context, input ports.CourseInput) (*domain.Course, error) {
	course, err := domain.NewCourse(uuid.NewString(), courseFromInput(input), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, course); err != nil {
		s.logger.Error().Err(err).Msg("failed to create course")
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.logger.Info().Str("course_id", course.ID).Int("capacity", course.Capacity).Msg("course created")
	return course, nil
}

// UpdateCourse changes catalog fields. The registered counter is untouched and
// capacity may not drop below it.
func (s *CourseService) UpdateCourse(ctx context.Context, id string, input ports.CourseInput) (*domain.Course, error) {
	candidate := courseFromInput(input)
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	update := ports.CourseUpdate{
		Title:             candidate.Title,
		Description:       candidate.Description,
		Date:              candidate.Date,
		Time:              candidate.Time,
		Location:          candidate.Location,
		Image:             candidate.Image,
		Capacity:          candidate.Capacity,
		RegistrationStart: candidate.RegistrationStart,
		RegistrationEnd:   candidate.RegistrationEnd,
	}
	updated, err := s.repo.Update(ctx, id, update, now, func(c *domain.Course) bool {
		return c.EditableAt(now, s.editGrace)
	})
	if err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	s.logger.Info().Str("course_id", id).Msg("course updated")
	return updated, nil
}

// DeleteCourse removes a course whose registration window has passed,
// together with its registrations.
func (s *CourseService) DeleteCourse(ctx context.Context, id string) error {
	now := s.now()
	err := s.repo.Delete(ctx, id, func(c *domain.Course) bool {
		return c.DeletableAt(now, s.deleteGrace)
	})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.logger.Info().Str("course_id", id).Msg("course deleted")
	return nil
}

func (s *CourseService) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// ListCourses returns one page of the catalog, newest class date first.
func (s *CourseService) ListCourses(ctx context.Context, input ports.ListCoursesInput) (*ports.ListCoursesResult, error) {
	page, limit := normalizePage(input.Page, input.Limit)

	items, total, err := s.repo.List(ctx, ports.ListCoursesFilter{
		Search: strings.TrimSpace(input.Search),
		Status: domain.CourseStatus(input.Status),
		Now:    s.now(),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	return &ports.ListCoursesResult{
		Items:   items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: int64(page*limit) < total,
	}, nil
}

func courseFromInput(in ports.CourseInput) domain.Course {
	return domain.Course{
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Date:              in.Date,
		Time:              in.Time,
		Location:          in.Location,
		Image:             in.Image,
		Capacity:          in.Capacity,
		RegistrationStart: domain.NormalizeWindowTime(in.RegistrationStart),
		RegistrationEnd:   domain.NormalizeWindowTime(in.RegistrationEnd),
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
