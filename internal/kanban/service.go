// Package kanban contains the lifecycle logic for the tracker.
// It is transport-agnostic: the HTTP handler, the reminder service and the
// e-mail ingester all go through Service.
package kanban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"
)

// Event channel names published on the event bus.
const (
	EventApplicationCreated = "EVENT_APPLICATION_CREATED"
	EventCardMoved          = "EVENT_CARD_MOVED"
)

// Repository is the storage contract for applications. Every method is
// scoped to the owning user except ListReminderEnabled, which the reminder
// sweep uses across all users.
//
// Update only writes when the stored version still equals a.Version, then
// increments a.Version. A stale version yields ErrConflict.
type Repository interface {
	List(ctx context.Context, userID string, status Status) ([]Application, error)
	Get(ctx context.Context, userID, id string) (*Application, error)
	Insert(ctx context.Context, a *Application) error
	Update(ctx context.Context, a *Application) error
	Delete(ctx context.Context, userID, id string) error
	ListReminderEnabled(ctx context.Context) ([]Application, error)
}

// Publisher broadcasts lifecycle events (Redis pub/sub in production).
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Mirror copies newly created applications to an external tracker.
type Mirror interface {
	MirrorApplication(ctx context.Context, a *Application) error
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates all lifecycle business logic.
// It has no dependency on net/http; it can be used by any transport layer.
type Service struct {
	repo   Repository
	pub    Publisher
	mirror Mirror
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the wall clock; the returned time's location decides
// what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMirror enables mirroring of created applications.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// NewService returns a configured Service.
func NewService(repo Repository, pub Publisher, opts ...Option) *Service {
	s := &Service{repo: repo, pub: pub, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day in the service's clock location.
func (s *Service) Today() civil.Date { return civil.DateOf(s.now()) }

// ─── Business logic ───────────────────────────────────────────────────────────

// List returns all applications for the given user, most recently updated
// first. If statusFilter is non-empty, only applications with that status are
// returned.
func (s *Service) List(ctx context.Context, userID, statusFilter string) ([]Application, error) {
	var status Status
	if statusFilter != "" {
		st, err := ParseStatus(statusFilter)
		if err != nil {
			return nil, &ValidationError{Field: "status", Msg: err.Error()}
		}
		status = st
	}
	apps, err := s.repo.List(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// Get returns a single application by ID, validating ownership.
func (s *Service) Get(ctx context.Context, userID, id string) (*Application, error) {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, wrapStoreErr("get application", err)
	}
	return a, nil
}

// Create validates in and inserts a new application (APPLIED unless another
// status was supplied). It then publishes EVENT_APPLICATION_CREATED.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*Application, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	a := newApplication(userID, in)
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.publish(ctx, EventApplicationCreated, map[string]string{
		"type":          EventApplicationCreated,
		"applicationId": a.ID,
		"userId":        userID,
		"status":        string(a.Status),
	})

	if s.mirror != nil {
		if err := s.mirror.MirrorApplication(ctx, a); err != nil {
			log.Warn().Err(err).Str("applicationId", a.ID).Msg("mirror application failed")
		}
	}

	return a, nil
}

// Update applies a partial update. A status change is recorded in the
// history log and published as EVENT_CARD_MOVED. Writes that race with
// another change to the same application fail with ErrConflict.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*Application, error) {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, wrapStoreErr("update application", err)
	}

	moved, from, err := p.apply(a)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, a, moved, from)
}

// Move transitions an application to a new status. Any status may follow any
// other; moving onto the current status is refused.
func (s *Service) Move(ctx context.Context, userID, id, newStatusStr string) (*Application, error) {
	newStatus, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, &ValidationError{Field: "status", Msg: err.Error()}
	}

	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, wrapStoreErr("move application", err)
	}

	if !IsTransitionAllowed(a.Status, newStatus) {
		return nil, &ValidationError{
			Field: "status",
			Msg:   fmt.Sprintf("application is already %s", a.Status),
		}
	}

	from := a.Status
	a.Status = newStatus
	return s.save(ctx, a, true, from)
}

// RecordFollowUp notes that a follow-up was sent today: the counter goes up,
// last contact becomes today and the pending follow-up date is cleared.
func (s *Service) RecordFollowUp(ctx context.Context, userID, id string) (*Application, error) {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, wrapStoreErr("record follow-up", err)
	}

	today := s.Today()
	a.FollowUpSent++
	a.LastContactDate = &today
	a.FollowUpDate = nil
	return s.save(ctx, a, false, "")
}

// Delete removes an application.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return wrapStoreErr("delete application", err)
	}
	return nil
}

// ListReminderEnabled returns every application with reminders switched on,
// across all users.
func (s *Service) ListReminderEnabled(ctx context.Context) ([]Application, error) {
	apps, err := s.repo.ListReminderEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminder-enabled applications: %w", err)
	}
	return apps, nil
}

func (s *Service) save(ctx context.Context, a *Application, moved bool, from Status) (*Application, error) {
	now := s.now().UTC()
	if moved {
		a.History = append(a.History, HistoryItem{From: from, To: a.Status, At: now})
	}
	a.UpdatedAt = now

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, wrapStoreErr("save application", err)
	}

	if moved {
		s.publish(ctx, EventCardMoved, map[string]string{
			"type":          EventCardMoved,
			"applicationId": a.ID,
			"userId":        a.UserID,
			"from":          string(from),
			"to":            string(a.Status),
		})
	}
	return a, nil
}

// publish is non-fatal: a lost event never fails the request.
func (s *Service) publish(ctx context.Context, channel string, payload any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, channel, payload); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("publish event failed")
	}
}

func wrapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict):
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
