// Package sqlite provides a single-node SQLite course catalog and registration
// ledger. All writes go through one connection, so every transaction is
// serialized process-wide.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
	"github.com/coursehub/registration-api/internal/infrastructure/db/sqlite/migrations"
)

const courseColumns = `id, title, description, date, time, location, image, capacity, registered,
	registration_start, registration_end, created_at, updated_at`

// Store persists courses and registrations in SQLite.
type Store struct {
	db *sql.DB
}

var _ ports.CourseStore = (*Store)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// ceilMillis rounds t up to the next whole millisecond, for comparisons where
// a stored bound must not fall inside t's sub-millisecond remainder.
func ceilMillis(t time.Time) int64 {
	ms := toMillis(t)
	if time.UnixMilli(ms).Before(t) {
		ms++
	}
	return ms
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// inTx runs fn in a transaction and commits when it returns nil. Busy,
// locked and deadline errors come back wrapped as domain.ErrTransient.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ── Ledger ────────────────────────────────────────────────────────────────────

func (s *Store) Register(ctx context.Context, courseID, userID string, now time.Time) (*ports.Receipt, error) {
	var receipt *ports.Receipt
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		course, err := findCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		already, err := hasRegistration(ctx, tx, courseID, userID)
		if err != nil {
			return err
		}
		if err := course.Admit(now, already); err != nil {
			return err
		}

		reg := domain.Registration{ID: uuid.NewString(), CourseID: courseID, UserID: userID, CreatedAt: now}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO registrations (id, course_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
			reg.ID, reg.CourseID, reg.UserID, toMillis(reg.CreatedAt),
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
		err = tx.QueryRowContext(ctx, `
UPDATE courses SET registered = registered + 1, ledger_version = ledger_version + 1
WHERE id = ? AND registered < capacity
RETURNING registered, ledger_version`, courseID).Scan(&registered, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCourseFull
		}
		if err != nil {
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
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			reg       domain.Registration
			createdAt int64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, course_id, user_id, created_at FROM registrations WHERE course_id = ? AND user_id = ?`,
			courseID, userID,
		).Scan(&reg.ID, &reg.CourseID, &reg.UserID, &createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotRegistered
		}
		if err != nil {
			return fmt.Errorf("find registration: %w", err)
		}
		reg.CreatedAt = fromMillis(createdAt)

		if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, reg.ID); err != nil {
			return fmt.Errorf("delete registration: %w", err)
		}

		var (
			registered, capacity int
			version              int64
		)
		err = tx.QueryRowContext(ctx, `
UPDATE courses SET registered = MAX(registered - 1, 0), ledger_version = ledger_version + 1
WHERE id = ?
RETURNING registered, capacity, ledger_version`,
			courseID,
		).Scan(&registered, &capacity, &version)
		if err != nil {
			return fmt.Errorf("decrement registered: %w", err)
		}

		receipt = &ports.Receipt{Registration: reg, Registered: registered, Capacity: capacity, Version: version}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]domain.CourseSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.title, c.description, c.date, c.time, c.location, c.image, c.capacity, c.registered,
       c.registration_start, c.registration_end, c.created_at, c.updated_at, r.id, r.created_at
FROM registrations r
JOIN courses c ON c.id = r.course_id
WHERE r.user_id = ?
ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, classify(fmt.Errorf("list registrations: %w", err))
	}
	defer rows.Close()

	var out []domain.CourseSummary
	for rows.Next() {
		var (
			sum       domain.CourseSummary
			createdAt int64
		)
		c, err := scanCourse(rows, &sum.RegistrationID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		sum.Course = *c
		sum.RegisteredAt = fromMillis(createdAt)
		out = append(out, sum)
	}
	return out, classify(rows.Err())
}

func (s *Store) Reconcile(ctx context.Context, courseID string) (*ports.ReconcileResult, error) {
	var res *ports.ReconcileResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		course, err := findCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM registrations WHERE course_id = ?`, courseID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		res = &ports.ReconcileResult{CourseID: courseID, Before: course.Registered, After: count}
		if !res.Drifted() {
			return tx.QueryRowContext(ctx,
				`SELECT ledger_version FROM courses WHERE id = ?`, courseID,
			).Scan(&res.Version)
		}
		if err := tx.QueryRowContext(ctx, `
UPDATE courses SET registered = ?, ledger_version = ledger_version + 1
WHERE id = ?
RETURNING ledger_version`, count, courseID).Scan(&res.Version); err != nil {
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
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM courses ORDER BY id`)
	if err != nil {
		return nil, classify(fmt.Errorf("list course ids: %w", err))
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ── Catalog ───────────────────────────────────────────────────────────────────

// Create stores c. Its timestamps are rounded to what the table keeps, so the
// caller holds the same course a later FindByID returns.
func (s *Store) Create(ctx context.Context, c *domain.Course) error {
	c.RegistrationStart = domain.NormalizeWindowTime(c.RegistrationStart)
	c.RegistrationEnd = domain.NormalizeWindowTime(c.RegistrationEnd)
	c.CreatedAt = fromMillis(toMillis(c.CreatedAt))
	c.UpdatedAt = fromMillis(toMillis(c.UpdatedAt))
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses (`+courseColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, c.Date, c.Time, c.Location, c.Image, c.Capacity, c.Registered,
		toMillis(c.RegistrationStart), toMillis(c.RegistrationEnd), toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return classify(fmt.Errorf("insert course: %w", err))
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("find course: %w", err))
	}
	return c, nil
}

func (s *Store) Update(ctx context.Context, id string, u ports.CourseUpdate, now time.Time, editable func(*domain.Course) bool) (*domain.Course, error) {
	var out *domain.Course
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		course, err := findCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		if !editable(course) {
			return domain.ErrCourseClosedForEdit
		}
		res, err := tx.ExecContext(ctx, `
UPDATE courses SET title = ?, description = ?, date = ?, time = ?, location = ?, image = ?, capacity = ?,
       registration_start = ?, registration_end = ?, updated_at = ?
WHERE id = ? AND registered <= ?`,
			u.Title, u.Description, u.Date, u.Time, u.Location, u.Image, u.Capacity,
			toMillis(u.RegistrationStart), toMillis(u.RegistrationEnd), toMillis(now),
			id, u.Capacity,
		)
		if err != nil {
			return fmt.Errorf("update course: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return domain.ErrCapacityBelowRegistered
		}
		out, err = findCourse(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string, deletable func(*domain.Course) bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		course, err := findCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deletable(course) {
			return domain.ErrCourseStillOpen
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE course_id = ?`, id); err != nil {
			return fmt.Errorf("delete registrations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id); err != nil {
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
	if f.Search != "" {
		pattern := likePattern(f.Search)
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	floor, ceil := toMillis(f.Now), ceilMillis(f.Now)
	switch f.Status {
	case domain.CourseUpcoming:
		where = append(where, `registration_start > ?`)
		args = append(args, floor)
	case domain.CourseOngoing:
		where = append(where, `registration_start <= ? AND registration_end >= ?`)
		args = append(args, floor, ceil)
	case domain.CourseEnded:
		where = append(where, `registration_end < ?`)
		args = append(args, ceil)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`+clause, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("count courses: %w", err))
	}

	pageArgs := append(append([]any{}, args...), f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses`+clause+` ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?`,
		pageArgs...)
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
	return items, total, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCourse reads the courseColumns followed by any extra destinations.
func scanCourse(row rowScanner, extra ...any) (*domain.Course, error) {
	var (
		c                  domain.Course
		start, end         int64
		createdAt, updated int64
	)
	dest := []any{
		&c.ID, &c.Title, &c.Description, &c.Date, &c.Time, &c.Location, &c.Image, &c.Capacity, &c.Registered,
		&start, &end, &createdAt, &updated,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.RegistrationStart = fromMillis(start)
	c.RegistrationEnd = fromMillis(end)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

func findCourse(ctx context.Context, tx *sql.Tx, id string) (*domain.Course, error) {
	c, err := scanCourse(tx.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	return c, nil
}

func hasRegistration(ctx context.Context, tx *sql.Tx, courseID, userID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM registrations WHERE course_id = ? AND user_id = ?`, courseID, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return true, nil
}

func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || isBusy(err) {
		return domain.Transient(err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
		return true
	}
	return false
}
