package ports

import (
	"context"
	"time"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// Receipt describes a committed ledger change.
type Receipt struct {
	Registration domain.Registration
	Registered   int // counter after the change
	Capacity     int
	// Version is the course's ledger version after the change. It grows by
	// one with every committed change, so it orders a course's events.
	Version int64
}

// ReconcileResult reports the counter before and after a reconciliation.
type ReconcileResult struct {
	CourseID string
	Before   int
	After    int
	Version  int64 // bumped only when drift was corrected
}

// Drifted reports whether the stored counter disagreed with the registration rows.
func (r ReconcileResult) Drifted() bool {
	return r.Before != r.After
}

// LedgerStore is the atomic per-course registration ledger. Each method is a
// single atomic unit: it either applies all of its effects or none of them.
// Implementations serialize operations that touch the same course and return
// errors wrapping domain.ErrTransient for lock timeouts, serialization
// failures and unavailable backends.
type LedgerStore interface {
	// Register checks existence, window, duplicate and capacity against a
	// locked view of the course, then inserts the registration and bumps the
	// counter.
	Register(ctx context.Context, courseID, userID string, now time.Time) (*Receipt, error)
	// Unregister removes the registration and decrements the counter.
	Unregister(ctx context.Context, courseID, userID string) (*Receipt, error)
	// ListForUser returns the user's active registrations, newest first.
	ListForUser(ctx context.Context, userID string) ([]domain.CourseSummary, error)
	// Reconcile recomputes the counter from the registration rows.
	Reconcile(ctx context.Context, courseID string) (*ReconcileResult, error)
	// CourseIDs lists every course id, for periodic reconciliation.
	CourseIDs(ctx context.Context) ([]string, error)
}

// CourseStore is a backend that owns both the catalog and the ledger, so
// catalog writes and ledger writes share one locking discipline.
type CourseStore interface {
	LedgerStore
	CourseRepository
	Ping(ctx context.Context) error
	Close() error
}
