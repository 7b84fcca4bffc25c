package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coursehub/registration-api/internal/api/metrics"
	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

// CacheInvalidator drops a user's cached my-courses snapshot.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

type auditService struct {
	audit ports.AuditRepository
	cache CacheInvalidator
	log   zerolog.Logger

	mu       sync.Mutex
	versions map[string]int64 // last ledger version applied to the gauge, per course
}

// NewAuditService returns the consumer of committed ledger events. audit and
// cache may be nil when the backing store is not configured.
func NewAuditService(audit ports.AuditRepository, cache CacheInvalidator, log zerolog.Logger) ports.LedgerEventHandler {
	return &auditService{audit: audit, cache: cache, log: log, versions: make(map[string]int64)}
}

// Process records one ledger event. Events of one course may arrive out of
// order; the ledger version decides which counter is newest.
func (s *auditService) Process(ctx context.Context, event domain.LedgerEvent) error {
	// 1. Seats gauge only moves forward in ledger version.
	if s.advance(event.CourseID, event.Version) {
		metrics.CourseSeatsRegistered.WithLabelValues(event.CourseID).Set(float64(event.Registered))
	}

	// 2. A snapshot filled between commit and the synchronous invalidation
	// may be stale; drop it again.
	if s.cache != nil && event.UserID != "" {
		if err := s.cache.Invalidate(ctx, event.UserID); err != nil {
			metrics.EventsErrorsTotal.WithLabelValues("cache_invalidate").Inc()
			s.log.Warn().Err(err).Str("user_id", event.UserID).Msg("failed to invalidate my-courses cache")
		}
	}

	// 3. Append to the audit trail.
	if s.audit != nil {
		if err := s.audit.InsertEvent(ctx, event); err != nil {
			metrics.EventsErrorsTotal.WithLabelValues("audit_insert").Inc()
			return fmt.Errorf("process ledger event: %w", err)
		}
	}

	s.log.Debug().
		Str("course_id", event.CourseID).
		Str("kind", string(event.Kind)).
		Int("registered", event.Registered).
		Int64("version", event.Version).
		Msg("ledger event processed")
	return nil
}

// advance records version for courseID and reports whether it is newer than
// anything seen so far.
func (s *auditService) advance(courseID string, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.versions[courseID]; ok && version <= last {
		return false
	}
	s.versions[courseID] = version
	return true
}
