package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/tracker-service/internal/auth"
	"jobmate/tracker-service/internal/kanban"
)

const pgUniqueViolation = "23505"

// Postgres is the production store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connected pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const pgColumns = `id::text, user_id::text, company, role, location, current_status::text, source,
	applied_date, last_contact_date, next_action_date, follow_up_date,
	follow_up_sent, reminder_enabled, notes, history_log, created_at, updated_at, version`

func (p *Postgres) List(ctx context.Context, userID string, status kanban.Status) ([]kanban.Application, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return []kanban.Application{}, nil
	}

	query := `SELECT ` + pgColumns + ` FROM applications WHERE user_id = $1`
	args := []any{uid}
	if status != "" {
		query += ` AND current_status = $2::application_status`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC, created_at DESC, id`
	return p.query(ctx, query, args...)
}

func (p *Postgres) ListReminderEnabled(ctx context.Context) ([]kanban.Application, error) {
	return p.query(ctx,
		`SELECT `+pgColumns+` FROM applications WHERE reminder_enabled
		 ORDER BY user_id, updated_at DESC, id`)
}

func (p *Postgres) Get(ctx context.Context, userID, id string) (*kanban.Application, error) {
	uid, aid, ok := parseIDs(userID, id)
	if !ok {
		return nil, kanban.ErrNotFound
	}
	row := p.pool.QueryRow(ctx,
		`SELECT `+pgColumns+` FROM applications WHERE id = $1 AND user_id = $2`, aid, uid)
	a, err := scanPgApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kanban.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (p *Postgres) Insert(ctx context.Context, a *kanban.Application) error {
	uid, err := uuid.Parse(a.UserID)
	if err != nil {
		return fmt.Errorf("postgres insert application: invalid user id %q", a.UserID)
	}
	history, err := marshalHistory(a.History)
	if err != nil {
		return err
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO applications (
			user_id, company, role, location, current_status, source,
			applied_date, last_contact_date, next_action_date, follow_up_date,
			follow_up_sent, reminder_enabled, notes, history_log, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::application_status, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, $15, $16)
		RETURNING id::text`,
		uid, a.Company, a.Role, a.Location, string(a.Status), a.Source,
		pgDate(a.AppliedDate), pgDate(a.LastContactDate), pgDate(a.NextActionDate), pgDate(a.FollowUpDate),
		a.FollowUpSent, a.ReminderEnabled, a.Notes, string(history), a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("postgres insert application: %w", err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, a *kanban.Application) error {
	uid, aid, ok := parseIDs(a.UserID, a.ID)
	if !ok {
		return kanban.ErrNotFound
	}
	history, err := marshalHistory(a.History)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE applications
		SET company           = $1,
		    role              = $2,
		    location          = $3,
		    current_status    = $4::application_status,
		    source            = $5,
		    applied_date      = $6,
		    last_contact_date = $7,
		    next_action_date  = $8,
		    follow_up_date    = $9,
		    follow_up_sent    = $10,
		    reminder_enabled  = $11,
		    notes             = $12,
		    history_log       = $13::jsonb,
		    updated_at        = $14,
		    version           = version + 1
		WHERE id = $15 AND user_id = $16 AND version = $17`,
		a.Company, a.Role, a.Location, string(a.Status), a.Source,
		pgDate(a.AppliedDate), pgDate(a.LastContactDate), pgDate(a.NextActionDate), pgDate(a.FollowUpDate),
		a.FollowUpSent, a.ReminderEnabled, a.Notes, string(history), a.UpdatedAt,
		aid, uid, a.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return p.missingOrStale(ctx, uid, aid)
	}
	a.Version++
	return nil
}

// missingOrStale explains a guarded UPDATE that matched no row.
func (p *Postgres) missingOrStale(ctx context.Context, uid, aid uuid.UUID) error {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1 AND user_id = $2)`, aid, uid,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres check application: %w", err)
	}
	if exists {
		return kanban.ErrConflict
	}
	return kanban.ErrNotFound
}

func (p *Postgres) Delete(ctx context.Context, userID, id string) error {
	uid, aid, ok := parseIDs(userID, id)
	if !ok {
		return kanban.ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1 AND user_id = $2`, aid, uid)
	if err != nil {
		return fmt.Errorf("postgres delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return kanban.ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, email, passwordHash string) (*auth.User, error) {
	u := &auth.User{Email: email, PasswordHash: passwordHash}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2)
		 RETURNING id::text, created_at`,
		email, passwordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, auth.ErrEmailTaken
		}
		return nil, fmt.Errorf("postgres insert user: %w", err)
	}
	return u, nil
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var u auth.User
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, email, password_hash, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres find user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) query(ctx context.Context, query string, args ...any) ([]kanban.Application, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query applications: %w", err)
	}
	defer rows.Close()

	apps := make([]kanban.Application, 0)
	for rows.Next() {
		a, err := scanPgApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres iterate applications: %w", err)
	}
	return apps, nil
}

func scanPgApplication(row pgx.Row) (*kanban.Application, error) {
	var (
		a                                  kanban.Application
		status                             string
		applied, contact, action, followUp pgtype.Date
		history                            []byte
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.Company, &a.Role, &a.Location, &status, &a.Source,
		&applied, &contact, &action, &followUp,
		&a.FollowUpSent, &a.ReminderEnabled, &a.Notes, &history, &a.CreatedAt, &a.UpdatedAt, &a.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres scan application: %w", err)
	}

	a.Status = kanban.Status(status)
	a.AppliedDate = civilDate(applied)
	a.LastContactDate = civilDate(contact)
	a.NextActionDate = civilDate(action)
	a.FollowUpDate = civilDate(followUp)
	if a.History, err = unmarshalHistory(history); err != nil {
		return nil, err
	}
	return &a, nil
}

func parseIDs(userID, id string) (uuid.UUID, uuid.UUID, bool) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	aid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return uid, aid, true
}

func pgDate(d *civil.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func civilDate(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	c := civil.DateOf(d.Time)
	return &c
}
