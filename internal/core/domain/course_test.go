package domain

import (
	"errors"
	"testing"
	"time"
)

var (
	windowStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
)

func newTestCourse(capacity, registered int) *Course {
	return &Course{
		ID:                "c1",
		Title:             "Go in practice",
		Capacity:          capacity,
		Registered:        registered,
		RegistrationStart: windowStart,
		RegistrationEnd:   windowEnd,
	}
}

func TestCheckWindow_Boundaries(t *testing.T) {
	c := newTestCourse(10, 0)

	tests := []struct {
		name  string
		now   time.Time
		state WindowState
		open  bool
	}{
		{"one second before start", windowStart.Add(-time.Second), WindowNotYetOpen, false},
		{"exactly start", windowStart, "", true},
		{"inside", windowStart.Add(time.Hour), "", true},
		{"exactly end", windowEnd, "", true},
		{"one second after end", windowEnd.Add(time.Second), WindowAlreadyClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CheckWindow(tt.now)
			if tt.open {
				if err != nil {
					t.Fatalf("expected open window, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrWindowClosed) {
				t.Fatalf("expected ErrWindowClosed, got %v", err)
			}
			var wc *WindowClosedError
			if !errors.As(err, &wc) {
				t.Fatalf("expected *WindowClosedError, got %T", err)
			}
			if wc.State != tt.state {
				t.Errorf("state = %q, want %q", wc.State, tt.state)
			}
		})
	}
}

func TestAdmit(t *testing.T) {
	inside := windowStart.Add(time.Hour)

	tests := []struct {
		name    string
		course  *Course
		now     time.Time
		already bool
		want    error
	}{
		{"free seat", newTestCourse(2, 1), inside, false, nil},
		{"full", newTestCourse(2, 2), inside, false, ErrCourseFull},
		{"already registered", newTestCourse(2, 1), inside, true, ErrAlreadyRegistered},
		{"already registered in full course", newTestCourse(1, 1), inside, true, ErrAlreadyRegistered},
		{"window before full", newTestCourse(1, 1), windowEnd.Add(time.Minute), false, ErrWindowClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.course.Admit(tt.now, tt.already)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewCourse_Validation(t *testing.T) {
	now := windowStart.Add(-24 * time.Hour)

	if _, err := NewCourse("x", Course{Title: " ", Capacity: 1, RegistrationStart: windowStart, RegistrationEnd: windowEnd}, now); !errors.Is(err, ErrInvalidCourse) {
		t.Errorf("blank title: got %v", err)
	}
	if _, err := NewCourse("x", Course{Title: "t", Capacity: 0, RegistrationStart: windowStart, RegistrationEnd: windowEnd}, now); !errors.Is(err, ErrInvalidCourse) {
		t.Errorf("zero capacity: got %v", err)
	}
	if _, err := NewCourse("x", Course{Title: "t", Capacity: 1, RegistrationStart: windowEnd, RegistrationEnd: windowStart}, now); !errors.Is(err, ErrInvalidCourse) {
		t.Errorf("inverted window: got %v", err)
	}

	c, err := NewCourse("x", Course{Title: "t", Capacity: 3, Registered: 2, RegistrationStart: windowStart, RegistrationEnd: windowEnd}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Registered != 0 || c.ID != "x" || !c.CreatedAt.Equal(now) {
		t.Errorf("unexpected course: %+v", c)
	}
}

func TestStatusAndGrace(t *testing.T) {
	c := newTestCourse(1, 0)

	if got := c.Status(windowStart.Add(-time.Minute)); got != CourseUpcoming {
		t.Errorf("status = %s, want upcoming", got)
	}
	if got := c.Status(windowEnd); got != CourseOngoing {
		t.Errorf("status = %s, want ongoing", got)
	}
	if got := c.Status(windowEnd.Add(time.Nanosecond)); got != CourseEnded {
		t.Errorf("status = %s, want ended", got)
	}

	grace := 24 * time.Hour
	if !c.EditableAt(windowEnd.Add(grace), grace) {
		t.Error("expected editable exactly at end+grace")
	}
	if c.EditableAt(windowEnd.Add(grace+time.Second), grace) {
		t.Error("expected not editable after end+grace")
	}
	if c.DeletableAt(windowEnd, 0) {
		t.Error("expected not deletable at end")
	}
	if !c.DeletableAt(windowEnd.Add(time.Second), 0) {
		t.Error("expected deletable after end")
	}
}

func TestNewCourse_NormalizesWindowPrecision(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	start := time.Date(2026, 5, 1, 8, 0, 0, 999_999, loc)
	end := time.Date(2026, 5, 31, 8, 0, 0, 500_000, loc)

	c, err := NewCourse("c1", Course{Title: "t", Capacity: 1, RegistrationStart: start, RegistrationEnd: end}, start)
	if err != nil {
		t.Fatalf("NewCourse: %v", err)
	}
	wantStart := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	if !c.RegistrationStart.Equal(wantStart) || c.RegistrationStart.Location() != time.UTC {
		t.Errorf("start = %v, want %v", c.RegistrationStart, wantStart)
	}
	if !c.RegistrationEnd.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", c.RegistrationEnd, wantEnd)
	}
	if err := c.CheckWindow(wantEnd); err != nil {
		t.Errorf("at normalized end: %v", err)
	}
}
