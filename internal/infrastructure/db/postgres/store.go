package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

const (
	defaultLockTimeout = 2 * time.Second

	courseColumns = `id, title, description, date, time, location, image, capacity, registered,
	registration_start, registration_end, created_at, updated_at`
)

// SQLSTATEs that mean "try again": lock_not_available, serialization_failure,
// deadlock_detected, query_canceled.
var transientCodes = map[string]bool{
	"55P03": true,
	"40001": true,
	"40P01": true,
	"57014": true,
}

// Store persists courses and registrations in PostgreSQL.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

var _ ports.CourseStore = (*Store)(nil)

// NewStore wraps pool. lockTimeout bounds every row-lock wait; zero selects
// a default.
func NewStore(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Store{pool: pool, lockTimeout: lockTimeout}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// inTx runs fn inside a transaction whose lock waits are capped by the store
// lock timeout. Lock, serialization and connection failures are returned
// wrapped in domain.ErrTransient.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
		return fn(tx)
	})
	return classify(err)
}

// ── Ledger ────────────────────────────────────────────────────────────────────

func (s *Store) Register(ctx context.Context, courseID, userID string, now time.Time) (*ports.Receipt, error) {
	var receipt *ports.Receipt
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		course, err := lockCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}

		var already bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM registrations WHERE course_id = $1 AND user_id = $2)`,
			courseID, userID,
		).Scan(&already); err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if err := course.Admit(now, already); err != nil {
			return err
		}

		reg := domain.Registration{ID: uuid.NewString(), CourseID: courseID, UserID: userID, CreatedAt: now}
		if _, err := tx.Exec(ctx,
			`INSERT INTO registrations (id, course_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
			reg.ID, reg.CourseID, reg.UserID, reg.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}

		var (
			registered int
			version    int64
		)
		if err := tx.QueryRow(ctx,
			`UPDATE courses SET registered = registered + 1, ledger_version = ledger_version + 1
			 WHERE id = $1 RETURNING registered, ledger_version`,
			courseID,
		).Scan(&registered, &version); err != nil {
			return fmt.Errorf("increment registered: %w", err)
		}

		receipt = &ports.Receipt{Registration: reg, Registered: registered, Capacity: course.Capacity, Version: version}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Store) Unregister(ctx context.Context, courseID, userID string) (*ports.Receipt, error) {
	var receipt *ports.Receipt
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		course, err := lockCourse(ctx, tx, courseID)
		if errors.Is(err, domain.ErrCourseNotFound) {
			return domain.ErrNotRegistered
		}
		if err != nil {
			return err
		}

		var reg domain.Registration
		err = tx.QueryRow(ctx,
			`DELETE FROM registrations WHERE course_id = $1 AND user_id = $2
			 RETURNING id, course_id, user_id, created_at`,
			courseID, userID,
		).Scan(&reg.ID, &reg.CourseID, &reg.UserID, &reg.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotRegistered
		}
		if err != nil {
			return fmt.Errorf("delete registration: %w", err)
		}

		var (
			registered int
			version    int64
		)
		if err := tx.QueryRow(ctx,
			`UPDATE courses SET registered = GREATEST(registered - 1, 0), ledger_version = ledger_version + 1
			 WHERE id = $1 RETURNING registered, ledger_version`,
			courseID,
		).Scan(&registered, &version); err != nil {
			return fmt.Errorf("decrement registered: %w", err)
		}

		receipt = &ports.Receipt{Registration: reg, Registered: registered, Capacity: course.Capacity, Version: version}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]domain.CourseSummary, error) {
	rows, err := s.pool.Query(ctx, `
SELECT c.id, c.title, c.description, c.date, c.time, c.location, c.image, c.capacity, c.registered,
       c.registration_start, c.registration_end, c.created_at, c.updated_at, r.id, r.created_at
FROM registrations r
JOIN courses c ON c.id = r.course_id
WHERE r.user_id = $1
ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, classify(fmt.Errorf("list registrations: %w", err))
	}
	defer rows.Close()

	var out []domain.CourseSummary
	for rows.Next() {
		var sum domain.CourseSummary
		c, err := scanCourse(rows, &sum.RegistrationID, &sum.RegisteredAt)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		sum.Course = *c
		out = append(out, sum)
	}
	return out, classify(rows.Err())
}

func (s *Store) Reconcile(ctx context.Context, courseID string) (*ports.ReconcileResult, error) {
	var res *ports.ReconcileResult
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		course, err := lockCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM registrations WHERE course_id = $1`, courseID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		res = &ports.ReconcileResult{CourseID: courseID, Before: course.Registered, After: count}
		if !res.Drifted() {
			return tx.QueryRow(ctx,
				`SELECT ledger_version FROM courses WHERE id = $1`, courseID,
			).Scan(&res.Version)
		}
		if err := tx.QueryRow(ctx,
			`UPDATE courses SET registered = $2, ledger_version = ledger_version + 1
			 WHERE id = $1 RETURNING ledger_version`,
			courseID, count,
		).Scan(&res.Version); err != nil {
			return fmt.Errorf("reset registered: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) CourseIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM courses ORDER BY id`)
	if err != nil {
		return nil, classify(fmt.Errorf("list course ids: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(fmt.Errorf("collect course ids: %w", err))
	}
	return ids, nil
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *Store) Create(ctx context.Context, c *domain.Course) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO courses (`+courseColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.Title, c.Description, c.Date, c.Time, c.Location, c.Image, c.Capacity, c.Registered,
		c.RegistrationStart, c.RegistrationEnd, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("insert course: %w", err))
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Course, error) {
	c, err := scanCourse(s.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("find course: %w", err))
	}
	return c, nil
}

func (s *Store) Update(ctx context.Context, id string, u ports.CourseUpdate, now time.Time, editable func(*domain.Course) bool) (*domain.Course, error) {
	var out *domain.Course
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		course, err := lockCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		if !editable(course) {
			return domain.ErrCourseClosedForEdit
		}
		if u.Capacity < course.Registered {
			return domain.ErrCapacityBelowRegistered
		}
		out, err = scanCourse(tx.QueryRow(ctx, `
UPDATE courses SET title = $2, description = $3, date = $4, time = $5, location = $6, image = $7,
       capacity = $8, registration_start = $9, registration_end = $10, updated_at = $11
WHERE id = $1
RETURNING `+courseColumns,
			id, u.Title, u.Description, u.Date, u.Time, u.Location, u.Image,
			u.Capacity, u.RegistrationStart, u.RegistrationEnd, now,
		))
		if err != nil {
			return fmt.Errorf("update course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string, deletable func(*domain.Course) bool) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		course, err := lockCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deletable(course) {
			return domain.ErrCourseStillOpen
		}
		if _, err := tx.Exec(ctx, `DELETE FROM registrations WHERE course_id = $1`, id); err != nil {
			return fmt.Errorf("delete registrations: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context, f ports.ListCoursesFilter) ([]*domain.Course, int64, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	// Window bounds are whole milliseconds; compare against now rounded down
	// for starts and up for ends so sub-millisecond clocks classify like Status.
	floor := f.Now.Truncate(domain.WindowPrecision)
	ceil := floor
	if ceil.Before(f.Now) {
		ceil = ceil.Add(domain.WindowPrecision)
	}
	switch f.Status {
	case domain.CourseUpcoming:
		where = append(where, "registration_start > "+arg(floor))
	case domain.CourseOngoing:
		where = append(where, fmt.Sprintf("registration_start <= %s AND registration_end >= %s", arg(floor), arg(ceil)))
	case domain.CourseEnded:
		where = append(where, "registration_end < "+arg(ceil))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`+clause, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("count courses: %w", err))
	}

	query := `SELECT ` + courseColumns + ` FROM courses` + clause +
		` ORDER BY date DESC, created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg((f.Page-1)*f.Limit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("list courses: %w", err))
	}
	defer rows.Close()

	items := []*domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan course: %w", err)
		}
		items = append(items, c)
	}
	return items, total, classify(rows.Err())
}

// ── helpers ───────────────────────────────────────────────────────────────────

func lockCourse(ctx context.Context, tx pgx.Tx, id string) (*domain.Course, error) {
	c, err := scanCourse(tx.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock course row: %w", err)
	}
	return c, nil
}

func scanCourse(row pgx.Row, extra ...any) (*domain.Course, error) {
	var c domain.Course
	dest := []any{
		&c.ID, &c.Title, &c.Description, &c.Date, &c.Time, &c.Location, &c.Image, &c.Capacity, &c.Registered,
		&c.RegistrationStart, &c.RegistrationEnd, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.RegistrationStart = c.RegistrationStart.UTC()
	c.RegistrationEnd = c.RegistrationEnd.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classify wraps retryable failures in domain.ErrTransient and leaves
// domain errors untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientCodes[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08") {
			return domain.Transient(err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return domain.Transient(err)
	}
	return err
}
