package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"jobmate/tracker-service/internal/auth"
	"jobmate/tracker-service/internal/kanban"
)

// SQLite is the single-file store for local use and tests.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite wraps an opened and migrated database.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

const sqliteColumns = `id, user_id, company, role, location, current_status, source,
	applied_date, last_contact_date, next_action_date, follow_up_date,
	follow_up_sent, reminder_enabled, notes, history_log, created_at, updated_at, version`

func (s *SQLite) List(ctx context.Context, userID string, status kanban.Status) ([]kanban.Application, error) {
	query := `SELECT ` + sqliteColumns + ` FROM applications WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND current_status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC, created_at DESC, id`
	return s.query(ctx, query, args...)
}

func (s *SQLite) ListReminderEnabled(ctx context.Context) ([]kanban.Application, error) {
	return s.query(ctx,
		`SELECT `+sqliteColumns+` FROM applications WHERE reminder_enabled = 1
		 ORDER BY user_id, updated_at DESC, id`)
}

func (s *SQLite) Get(ctx context.Context, userID, id string) (*kanban.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM applications WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanSQLiteApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kanban.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLite) Insert(ctx context.Context, a *kanban.Application) error {
	history, err := marshalHistory(a.History)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.UserID, a.Company, a.Role, a.Location, string(a.Status), a.Source,
		dateText(a.AppliedDate), dateText(a.LastContactDate), dateText(a.NextActionDate), dateText(a.FollowUpDate),
		a.FollowUpSent, a.ReminderEnabled, a.Notes, string(history),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt), a.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert application: %w", err)
	}
	a.ID = id
	return nil
}

func (s *SQLite) Update(ctx context.Context, a *kanban.Application) error {
	history, err := marshalHistory(a.History)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET company = ?, role = ?, location = ?, current_status = ?, source = ?,
		    applied_date = ?, last_contact_date = ?, next_action_date = ?, follow_up_date = ?,
		    follow_up_sent = ?, reminder_enabled = ?, notes = ?, history_log = ?, updated_at = ?,
		    version = version + 1
		WHERE id = ? AND user_id = ? AND version = ?`,
		a.Company, a.Role, a.Location, string(a.Status), a.Source,
		dateText(a.AppliedDate), dateText(a.LastContactDate), dateText(a.NextActionDate), dateText(a.FollowUpDate),
		a.FollowUpSent, a.ReminderEnabled, a.Notes, string(history), formatTime(a.UpdatedAt),
		a.ID, a.UserID, a.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite update application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return s.missingOrStale(ctx, a.UserID, a.ID)
	}
	a.Version++
	return nil
}

// missingOrStale explains a guarded UPDATE that matched no row.
func (s *SQLite) missingOrStale(ctx context.Context, userID, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE id = ? AND user_id = ?)`, id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite check application: %w", err)
	}
	if exists {
		return kanban.ErrConflict
	}
	return kanban.ErrNotFound
}

func (s *SQLite) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite delete application: %w", err)
	}
	return affectedOne(res)
}

func (s *SQLite) CreateUser(ctx context.Context, email, passwordHash string) (*auth.User, error) {
	u := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, auth.ErrEmailTaken
		}
		return nil, fmt.Errorf("sqlite insert user: %w", err)
	}
	return u, nil
}

func (s *SQLite) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var (
		u       auth.User
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite find user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]kanban.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query applications: %w", err)
	}
	defer rows.Close()

	apps := make([]kanban.Application, 0)
	for rows.Next() {
		a, err := scanSQLiteApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite iterate applications: %w", err)
	}
	return apps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteApplication(row scanner) (*kanban.Application, error) {
	var (
		a                                  kanban.Application
		status                             string
		applied, contact, action, followUp sql.NullString
		history, created, updated          string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.Company, &a.Role, &a.Location, &status, &a.Source,
		&applied, &contact, &action, &followUp,
		&a.FollowUpSent, &a.ReminderEnabled, &a.Notes, &history, &created, &updated, &a.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite scan application: %w", err)
	}

	a.Status = kanban.Status(status)
	for _, d := range []struct {
		src sql.NullString
		dst **civil.Date
	}{
		{applied, &a.AppliedDate},
		{contact, &a.LastContactDate},
		{action, &a.NextActionDate},
		{followUp, &a.FollowUpDate},
	} {
		if *d.dst, err = parseDateText(d.src); err != nil {
			return nil, err
		}
	}
	if a.History, err = unmarshalHistory([]byte(history)); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &a, nil
}

func dateText(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDateText(s sql.NullString) (*civil.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s.String)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s.String, err)
	}
	return &d, nil
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return kanban.ErrNotFound
	}
	return nil
}
