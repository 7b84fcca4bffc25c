package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

var (
	start = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	open  = start.Add(48 * time.Hour)
)

func seedCourse(t *testing.T, s *Store, id string, capacity int) {
	t.Helper()
	c, err := domain.NewCourse(id, domain.Course{
		Title:             "course " + id,
		Date:              "2026-06-01",
		Capacity:          capacity,
		RegistrationStart: start,
		RegistrationEnd:   end,
	}, start.Add(-time.Hour))
	if err != nil {
		t.Fatalf("new course: %v", err)
	}
	if err := s.Create(context.Background(), c); err != nil {
		t.Fatalf("create course: %v", err)
	}
}

func TestRegister_ConcurrentNeverOversells(t *testing.T) {
	const (
		capacity = 7
		users    = 50
	)
	s := NewStore()
	seedCourse(t, s, "c1", capacity)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		full      int
	)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Register(context.Background(), "c1", fmt.Sprintf("u%d", i), open)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrCourseFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != capacity {
		t.Errorf("successes = %d, want %d", successes, capacity)
	}
	if full != users-capacity {
		t.Errorf("full = %d, want %d", full, users-capacity)
	}
	c, err := s.FindByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Registered != capacity {
		t.Errorf("registered = %d, want %d", c.Registered, capacity)
	}
}

func TestRegister_SameUserConcurrentlyOnlyOnce(t *testing.T) {
	s := NewStore()
	seedCourse(t, s, "c1", 10)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Register(context.Background(), "c1", "same-user", open)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
			} else if errors.Is(err, domain.ErrAlreadyRegistered) {
				dups++
			}
		}()
	}
	wg.Wait()

	if oks != 1 || dups != 19 {
		t.Errorf("oks=%d dups=%d, want 1 and 19", oks, dups)
	}
}

func TestRegister_Errors(t *testing.T) {
	s := NewStore()
	seedCourse(t, s, "c1", 1)
	ctx := context.Background()

	if _, err := s.Register(ctx, "missing", "u1", open); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Errorf("missing course: got %v", err)
	}
	if _, err := s.Register(ctx, "c1", "u1", start.Add(-time.Second)); !errors.Is(err, domain.ErrWindowClosed) {
		t.Errorf("before window: got %v", err)
	}
	if _, err := s.Register(ctx, "c1", "u1", end.Add(time.Second)); !errors.Is(err, domain.ErrWindowClosed) {
		t.Errorf("after window: got %v", err)
	}
	if _, err := s.Register(ctx, "c1", "u1", start); err != nil {
		t.Fatalf("at window start: %v", err)
	}
	if _, err := s.Register(ctx, "c1", "u1", end); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Errorf("second register: got %v", err)
	}
	if _, err := s.Register(ctx, "c1", "u2", end); !errors.Is(err, domain.ErrCourseFull) {
		t.Errorf("full course: got %v", err)
	}
}

func TestRegisterUnregister_RoundTrip(t *testing.T) {
	s := NewStore()
	seedCourse(t, s, "c1", 3)
	ctx := context.Background()

	r, err := s.Register(ctx, "c1", "u1", open)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if r.Registered != 1 || r.Registration.UserID != "u1" || r.Version != 1 {
		t.Errorf("unexpected receipt: %+v", r)
	}

	list, err := s.ListForUser(ctx, "u1")
	if err != nil || len(list) != 1 || list[0].ID != "c1" {
		t.Fatalf("list after register: %v %+v", err, list)
	}

	u, err := s.Unregister(ctx, "c1", "u1")
	if err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if u.Registered != 0 || u.Version != 2 {
		t.Errorf("unexpected unregister receipt: %+v", u)
	}
	if _, err := s.Unregister(ctx, "c1", "u1"); !errors.Is(err, domain.ErrNotRegistered) {
		t.Errorf("second unregister: got %v", err)
	}
	if _, err := s.Unregister(ctx, "missing", "u1"); !errors.Is(err, domain.ErrNotRegistered) {
		t.Errorf("unregister on missing course: got %v", err)
	}

	list, err = s.ListForUser(ctx, "u1")
	if err != nil || len(list) != 0 {
		t.Fatalf("list after unregister: %v %+v", err, list)
	}
}

func TestReconcile_FixesDrift(t *testing.T) {
	s := NewStore()
	seedCourse(t, s, "c1", 5)
	ctx := context.Background()

	for _, u := range []string{"a", "b"} {
		if _, err := s.Register(ctx, "c1", u, open); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}
	e, _ := s.entry("c1")
	e.course.Registered = 4

	res, err := s.Reconcile(ctx, "c1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !res.Drifted() || res.Before != 4 || res.After != 2 || res.Version != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	again, err := s.Reconcile(ctx, "c1")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if again.Drifted() || again.Version != 3 {
		t.Errorf("clean reconcile changed the version: %+v", again)
	}
	c, _ := s.FindByID(ctx, "c1")
	if c.Registered != 2 {
		t.Errorf("registered = %d, want 2", c.Registered)
	}
}

func TestRegister_LockWaitTimesOutAsTransient(t *testing.T) {
	s := NewStore()
	seedCourse(t, s, "c1", 5)
	e, _ := s.entry("c1")
	if err := e.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer e.release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Register(ctx, "c1", "u1", open); !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("got %v, want transient", err)
	}

	c := e.course
	if c.Registered != 0 || len(e.regs) != 0 {
		t.Error("failed attempt left side effects")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := NewStore()
	seedCourse(t, s, "c1", 2)
	ctx := context.Background()
	always := func(*domain.Course) bool { return true }
	never := func(*domain.Course) bool { return false }

	if _, err := s.Register(ctx, "c1", "u1", open); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.Register(ctx, "c1", "u2", open); err != nil {
		t.Fatalf("register: %v", err)
	}

	upd := ports.CourseUpdate{Title: "renamed", Capacity: 1, RegistrationStart: start, RegistrationEnd: end}
	if _, err := s.Update(ctx, "c1", upd, open, always); !errors.Is(err, domain.ErrCapacityBelowRegistered) {
		t.Errorf("shrink below registered: got %v", err)
	}
	upd.Capacity = 4
	if _, err := s.Update(ctx, "c1", upd, open, never); !errors.Is(err, domain.ErrCourseClosedForEdit) {
		t.Errorf("closed for edit: got %v", err)
	}
	c, err := s.Update(ctx, "c1", upd, open, always)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Title != "renamed" || c.Capacity != 4 || c.Registered != 2 {
		t.Errorf("unexpected course after update: %+v", c)
	}

	if err := s.Delete(ctx, "c1", never); !errors.Is(err, domain.ErrCourseStillOpen) {
		t.Errorf("delete while open: got %v", err)
	}
	if err := s.Delete(ctx, "c1", always); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindByID(ctx, "c1"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Errorf("find after delete: got %v", err)
	}
	list, _ := s.ListForUser(ctx, "u1")
	if len(list) != 0 {
		t.Errorf("registrations survived delete: %+v", list)
	}
}

func TestList_FilterAndPaginate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c, _ := domain.NewCourse(fmt.Sprintf("c%d", i), domain.Course{
			Title:             fmt.Sprintf("Go %d", i),
			Date:              fmt.Sprintf("2026-06-0%d", i+1),
			Capacity:          1,
			RegistrationStart: start,
			RegistrationEnd:   end,
		}, start)
		_ = s.Create(ctx, c)
	}
	late, _ := domain.NewCourse("late", domain.Course{
		Title:             "Rust",
		Date:              "2026-09-01",
		Capacity:          1,
		RegistrationStart: end.Add(time.Hour),
		RegistrationEnd:   end.Add(48 * time.Hour),
	}, start)
	_ = s.Create(ctx, late)

	items, total, err := s.List(ctx, ports.ListCoursesFilter{Search: "go", Now: open, Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(items) != 2 || items[0].ID != "c4" {
		t.Errorf("unexpected page: total=%d items=%d first=%v", total, len(items), items)
	}

	items, total, _ = s.List(ctx, ports.ListCoursesFilter{Status: domain.CourseUpcoming, Now: open, Page: 1, Limit: 10})
	if total != 1 || items[0].ID != "late" {
		t.Errorf("status filter: total=%d", total)
	}

	items, _, _ = s.List(ctx, ports.ListCoursesFilter{Now: open, Page: 9, Limit: 10})
	if len(items) != 0 {
		t.Errorf("page past end returned %d items", len(items))
	}

	for _, page := range []int{922337203685477582, 922337203685477581, 0, -3} {
		items, total, err = s.List(ctx, ports.ListCoursesFilter{Now: open, Page: page, Limit: 10})
		if err != nil || len(items) != 0 || total != 6 {
			t.Errorf("page %d: items=%d total=%d err=%v", page, len(items), total, err)
		}
	}
}

func TestRegisterUnregister_ConcurrentKeepsCounterExact(t *testing.T) {
	const (
		capacity = 3
		users    = 10
		rounds   = 25
	)
	s := NewStore()
	seedCourse(t, s, "c1", capacity)
	ctx := context.Background()

	held := make([]bool, users)
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			for r := 0; r < rounds; r++ {
				if r%2 == 0 {
					_, err := s.Register(ctx, "c1", user, open)
					switch {
					case err == nil:
						held[i] = true
					case !errors.Is(err, domain.ErrCourseFull):
						t.Errorf("register %s: %v", user, err)
					}
					continue
				}
				_, err := s.Unregister(ctx, "c1", user)
				switch {
				case err == nil:
					held[i] = false
				case !errors.Is(err, domain.ErrNotRegistered):
					t.Errorf("unregister %s: %v", user, err)
				}
			}
		}(i)
	}
	wg.Wait()

	want := 0
	for _, h := range held {
		if h {
			want++
		}
	}
	c, err := s.FindByID(ctx, "c1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Registered != want || c.Registered > capacity {
		t.Errorf("registered = %d, seats held = %d, capacity = %d", c.Registered, want, capacity)
	}
	res, err := s.Reconcile(ctx, "c1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Drifted() {
		t.Errorf("counter drifted: %+v", res)
	}
}
