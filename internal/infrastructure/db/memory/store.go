// Package memory provides an in-process course catalog, registration ledger
// and user store. Each course carries its own lock, so operations on
// different courses never wait for each other.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

type courseEntry struct {
	lock    chan struct{} // one slot; holding it owns course and regs
	course  domain.Course
	regs    map[string]domain.Registration // keyed by user id
	version int64
	deleted bool
}

func (e *courseEntry) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domain.Transient(fmt.Errorf("wait for course lock: %w", ctx.Err()))
	}
}

func (e *courseEntry) release() {
	<-e.lock
}

// Store is the in-memory implementation of ports.CourseStore.
type Store struct {
	mu      sync.RWMutex
	courses map[string]*courseEntry
}

var _ ports.CourseStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{courses: make(map[string]*courseEntry)}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) entry(id string) (*courseEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.courses[id]
	return e, ok
}

// locked runs fn while holding the course lock. A course deleted while the
// caller waited is reported as not found.
func (s *Store) locked(ctx context.Context, id string, fn func(e *courseEntry) error) error {
	e, ok := s.entry(id)
	if !ok {
		return domain.ErrCourseNotFound
	}
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	if e.deleted {
		return domain.ErrCourseNotFound
	}
	return fn(e)
}

func (s *Store) snapshot() []*courseEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*courseEntry, 0, len(s.courses))
	for _, e := range s.courses {
		entries = append(entries, e)
	}
	return entries
}

// ── Ledger ────────────────────────────────────────────────────────────────────

func (s *Store) Register(ctx context.Context, courseID, userID string, now time.Time) (*ports.Receipt, error) {
	var receipt *ports.Receipt
	err := s.locked(ctx, courseID, func(e *courseEntry) error {
		_, already := e.regs[userID]
		if err := e.course.Admit(now, already); err != nil {
			return err
		}
		reg := domain.Registration{
			ID:        uuid.NewString(),
			CourseID:  courseID,
			UserID:    userID,
			CreatedAt: now,
		}
		e.regs[userID] = reg
		e.course.Registered++
		e.version++
		receipt = &ports.Receipt{Registration: reg, Registered: e.course.Registered, Capacity: e.course.Capacity, Version: e.version}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Store) Unregister(ctx context.Context, courseID, userID string) (*ports.Receipt, error) {
	var receipt *ports.Receipt
	err := s.locked(ctx, courseID, func(e *courseEntry) error {
		reg, ok := e.regs[userID]
		if !ok {
			return domain.ErrNotRegistered
		}
		delete(e.regs, userID)
		if e.course.Registered > 0 {
			e.course.Registered--
		}
		e.version++
		receipt = &ports.Receipt{Registration: reg, Registered: e.course.Registered, Capacity: e.course.Capacity, Version: e.version}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return nil, domain.ErrNotRegistered
		}
		return nil, err
	}
	return receipt, nil
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]domain.CourseSummary, error) {
	var out []domain.CourseSummary
	for _, e := range s.snapshot() {
		if err := e.acquire(ctx); err != nil {
			return nil, err
		}
		if reg, ok := e.regs[userID]; ok && !e.deleted {
			out = append(out, domain.CourseSummary{
				Course:         e.course,
				RegistrationID: reg.ID,
				RegisteredAt:   reg.CreatedAt,
			})
		}
		e.release()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out, nil
}

func (s *Store) Reconcile(ctx context.Context, courseID string) (*ports.ReconcileResult, error) {
	var res *ports.ReconcileResult
	err := s.locked(ctx, courseID, func(e *courseEntry) error {
		res = &ports.ReconcileResult{CourseID: courseID, Before: e.course.Registered, After: len(e.regs)}
		if res.Drifted() {
			e.course.Registered = len(e.regs)
			e.version++
		}
		res.Version = e.version
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) CourseIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.courses))
	for id := range s.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *Store) Create(_ context.Context, c *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[c.ID]; exists {
		return fmt.Errorf("course %s already exists", c.ID)
	}
	s.courses[c.ID] = &courseEntry{
		lock:   make(chan struct{}, 1),
		course: *c,
		regs:   make(map[string]domain.Registration),
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Course, error) {
	var c domain.Course
	err := s.locked(ctx, id, func(e *courseEntry) error {
		c = e.course
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Update(ctx context.Context, id string, u ports.CourseUpdate, now time.Time, editable func(*domain.Course) bool) (*domain.Course, error) {
	var out domain.Course
	err := s.locked(ctx, id, func(e *courseEntry) error {
		if !editable(&e.course) {
			return domain.ErrCourseClosedForEdit
		}
		if u.Capacity < e.course.Registered {
			return domain.ErrCapacityBelowRegistered
		}
		applyUpdate(&e.course, u, now)
		out = e.course
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, id string, deletable func(*domain.Course) bool) error {
	err := s.locked(ctx, id, func(e *courseEntry) error {
		if !deletable(&e.course) {
			return domain.ErrCourseStillOpen
		}
		e.deleted = true
		e.regs = map[string]domain.Registration{}
		return nil
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.courses, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) List(ctx context.Context, f ports.ListCoursesFilter) ([]*domain.Course, int64, error) {
	search := strings.ToLower(f.Search)
	var matched []*domain.Course
	for _, e := range s.snapshot() {
		if err := e.acquire(ctx); err != nil {
			return nil, 0, err
		}
		c := e.course
		deleted := e.deleted
		e.release()

		if deleted {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		if f.Status != "" && c.Status(f.Now) != f.Status {
			continue
		}
		matched = append(matched, &c)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	// Compare page indexes before multiplying so huge pages cannot overflow.
	if len(matched) == 0 || f.Page < 1 || f.Limit < 1 || f.Page-1 > (len(matched)-1)/f.Limit {
		return []*domain.Course{}, total, nil
	}
	start := (f.Page - 1) * f.Limit
	end := len(matched)
	if f.Limit < end-start {
		end = start + f.Limit
	}
	return matched[start:end], total, nil
}

func applyUpdate(c *domain.Course, u ports.CourseUpdate, now time.Time) {
	c.Title = u.Title
	c.Description = u.Description
	c.Date = u.Date
	c.Time = u.Time
	c.Location = u.Location
	c.Image = u.Image
	c.Capacity = u.Capacity
	c.RegistrationStart = u.RegistrationStart
	c.RegistrationEnd = u.RegistrationEnd
	c.UpdatedAt = now
}
