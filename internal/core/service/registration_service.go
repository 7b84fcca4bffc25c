package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/coursehub/registration-api/internal/api/metrics"
	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

const (
	defaultLedgerTimeout = 3 * time.Second
	tracerName           = "github.com/coursehub/registration-api/internal/core/service"
)

// RegistrationCache abstracts the my-courses snapshot cache (Redis).
type RegistrationCache interface {
	Get(ctx context.Context, userID string) ([]domain.CourseSummary, bool, error)
	Set(ctx context.Context, userID string, items []domain.CourseSummary) error
	Invalidate(ctx context.Context, userID string) error
}

// EventPublisher hands committed ledger events to asynchronous consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// RegistrationOptions tunes the ledger service. Zero values select defaults.
type RegistrationOptions struct {
	// Timeout bounds a single ledger attempt, including lock waits.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries uint
	// Now is the clock used for window checks.
	Now func() time.Time
	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration
}

// RegistrationService runs ledger operations with bounded time, retries of
// transient failures, caching of per-user lists and post-commit events.
type RegistrationService struct {
	store      ports.LedgerStore
	cache      RegistrationCache
	events     EventPublisher
	timeout    time.Duration
	maxRetries uint
	initial    time.Duration
	now        func() time.Time
	log        zerolog.Logger
	tracer     trace.Tracer
	fills      singleflight.Group
}

var _ ports.RegistrationService = (*RegistrationService)(nil)

// NewRegistrationService wires the ledger service. cache and events may be nil.
func NewRegistrationService(
	store ports.LedgerStore,
	cache RegistrationCache,
	events EventPublisher,
	opts RegistrationOptions,
	log zerolog.Logger,
) *RegistrationService {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultLedgerTimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 25 * time.Millisecond
	}
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &RegistrationService{
		store:      store,
		cache:      cache,
		events:     events,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		initial:    opts.InitialBackoff,
		now:        opts.Now,
		log:        log,
		tracer:     otel.Tracer(tracerName),
	}
}

// Register takes a seat for userID in courseID.
func (s *RegistrationService) Register(ctx context.Context, courseID, userID string) (*ports.Receipt, error) {
	ctx, span := s.startSpan(ctx, "ledger.register", courseID, userID)
	defer span.End()

	start := time.Now()
	receipt, err := retryTransient(ctx, s, "register", func(ctx context.Context) (*ports.Receipt, error) {
		return s.store.Register(ctx, courseID, userID, s.now())
	})
	s.observe(span, "register", start, err)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.afterCommit(ctx, domain.EventRegistered, receipt)
	s.log.Info().
		Str("course_id", courseID).
		Str("user_id", userID).
		Int("registered", receipt.Registered).
		Int("capacity", receipt.Capacity).
		Msg("registration committed")
	return receipt, nil
}

// Unregister releases userID's seat in courseID.
func (s *RegistrationService) Unregister(ctx context.Context, courseID, userID string) (*ports.Receipt, error) {
	ctx, span := s.startSpan(ctx, "ledger.unregister", courseID, userID)
	defer span.End()

	start := time.Now()
	receipt, err := retryTransient(ctx, s, "unregister", func(ctx context.Context) (*ports.Receipt, error) {
		return s.store.Unregister(ctx, courseID, userID)
	})
	s.observe(span, "unregister", start, err)
	if err != nil {
		return nil, fmt.Errorf("unregister: %w", err)
	}

	s.afterCommit(ctx, domain.EventUnregistered, receipt)
	s.log.Info().
		Str("course_id", courseID).
		Str("user_id", userID).
		Int("registered", receipt.Registered).
		Msg("unregistration committed")
	return receipt, nil
}

// ListRegistrationsForUser returns the user's courses, from the cache when a
// snapshot is present. Concurrent misses for one user share a single fill.
func (s *RegistrationService) ListRegistrationsForUser(ctx context.Context, userID string) ([]domain.CourseSummary, error) {
	items, ok, err := s.cache.Get(ctx, userID)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("user_id", userID).Msg("my-courses cache read failed, falling back to store")
	case ok:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return items, nil
	default:
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	// The fill is shared, so it must not die with whichever caller started it.
	// Each attempt is still bounded by the ledger timeout.
	fillCtx := context.WithoutCancel(ctx)
	ch := s.fills.DoChan(userID, func() (any, error) {
		items, err := retryTransient(fillCtx, s, "list", func(ctx context.Context) ([]domain.CourseSummary, error) {
			return s.store.ListForUser(ctx, userID)
		})
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fillCtx, userID, items); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("my-courses cache write failed")
		}
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list registrations: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("list registrations: %w", res.Err)
		}
		return res.Val.([]domain.CourseSummary), nil
	}
}

// Reconcile recomputes a course's counter from its registration rows.
func (s *RegistrationService) Reconcile(ctx context.Context, courseID string) (*ports.ReconcileResult, error) {
	ctx, span := s.startSpan(ctx, "ledger.reconcile", courseID, "")
	defer span.End()

	start := time.Now()
	res, err := retryTransient(ctx, s, "reconcile", func(ctx context.Context) (*ports.ReconcileResult, error) {
		return s.store.Reconcile(ctx, courseID)
	})
	s.observe(span, "reconcile", start, err)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	if res.Drifted() {
		metrics.LedgerDriftTotal.Inc()
		s.log.Warn().
			Str("course_id", courseID).
			Int("before", res.Before).
			Int("after", res.After).
			Msg("registered counter drift corrected")
		s.publish(ctx, domain.LedgerEvent{
			Kind:       domain.EventReconciled,
			CourseID:   courseID,
			Registered: res.After,
			Version:    res.Version,
			At:         s.now(),
		})
	}
	return res, nil
}

// ReconcileAll reconciles every course and returns how many had drifted.
// A failure on one course is logged and does not stop the sweep.
func (s *RegistrationService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.store.CourseIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile all: %w", err)
	}
	drifted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		res, err := s.Reconcile(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrCourseNotFound) {
				continue
			}
			s.log.Error().Err(err).Str("course_id", id).Msg("reconcile failed")
			continue
		}
		if res.Drifted() {
			drifted++
		}
	}
	return drifted, nil
}

// afterCommit drops the user's cached snapshot and publishes the event.
func (s *RegistrationService) afterCommit(ctx context.Context, kind domain.LedgerEventKind, r *ports.Receipt) {
	if err := s.cache.Invalidate(ctx, r.Registration.UserID); err != nil {
		s.log.Warn().Err(err).Str("user_id", r.Registration.UserID).Msg("my-courses cache invalidation failed")
	}
	s.publish(ctx, domain.LedgerEvent{
		Kind:           kind,
		CourseID:       r.Registration.CourseID,
		UserID:         r.Registration.UserID,
		RegistrationID: r.Registration.ID,
		Registered:     r.Registered,
		Capacity:       r.Capacity,
		Version:        r.Version,
		At:             s.now(),
	})
}

func (s *RegistrationService) publish(ctx context.Context, event domain.LedgerEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).
			Str("course_id", event.CourseID).
			Str("kind", string(event.Kind)).
			Msg("ledger event not published")
	}
}

func (s *RegistrationService) startSpan(ctx context.Context, name, courseID, userID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("course.id", courseID)}
	if userID != "" {
		attrs = append(attrs, attribute.String("user.id", userID))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *RegistrationService) observe(span trace.Span, op string, start time.Time, err error) {
	metrics.LedgerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = domain.ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	metrics.LedgerOperationsTotal.WithLabelValues(op, result).Inc()
}

// retryTransient runs fn with a per-attempt timeout and retries failures that
// wrap domain.ErrTransient with exponential backoff. Every other error is
// returned as is after the first attempt.
func retryTransient[T any](ctx context.Context, s *RegistrationService, op string, fn func(context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		v, err := fn(attemptCtx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = domain.Transient(err)
		}
		if !errors.Is(err, domain.ErrTransient) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initial
	b.MaxInterval = 20 * s.initial

	v, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.maxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.LedgerRetriesTotal.WithLabelValues(op).Inc()
			s.log.Debug().Err(err).Str("op", op).Dur("backoff", next).Msg("retrying transient ledger failure")
		}),
	)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = domain.Transient(err)
	}
	return v, err
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]domain.CourseSummary, bool, error) {
	return nil, false, nil
}
func (noopCache) Set(context.Context, string, []domain.CourseSummary) error { return nil }
func (noopCache) Invalidate(context.Context, string) error                  { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }
