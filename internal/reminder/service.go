package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"jobmate/tracker-service/internal/kanban"
)

// ApplicationLister is the slice of kanban.Service the reminder service needs.
type ApplicationLister interface {
	List(ctx context.Context, userID, statusFilter string) ([]kanban.Application, error)
}

// Service binds the pure engine to a user's applications and dismissals.
type Service struct {
	apps       ApplicationLister
	dismissals DismissalStore
	now        func() time.Time
}

// NewService returns a Service; now's location decides what "today" is.
func NewService(apps ApplicationLister, dismissals DismissalStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{apps: apps, dismissals: dismissals, now: now}
}

// Today returns the current calendar day.
func (s *Service) Today() civil.Date { return civil.DateOf(s.now()) }

// Due returns the user's current reminders.
func (s *Service) Due(ctx context.Context, userID string) ([]Reminder, error) {
	apps, err := s.apps.List(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("reminders: %w", err)
	}
	return s.DueFor(ctx, userID, apps)
}

// DueFor computes reminders over an already loaded application list. Dismissed
// ids whose rule no longer fires are pruned, so the reminder comes back if the
// condition returns later.
func (s *Service) DueFor(ctx context.Context, userID string, apps []kanban.Application) ([]Reminder, error) {
	all := ComputeReminders(apps, s.Today(), nil)

	if err := s.dismissals.Retain(ctx, userID, IDs(all)); err != nil {
		return nil, fmt.Errorf("prune dismissals: %w", err)
	}
	dismissed, err := s.dismissals.Dismissed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load dismissals: %w", err)
	}
	return Filter(all, dismissed), nil
}

// Dismiss hides a reminder until its rule stops firing.
func (s *Service) Dismiss(ctx context.Context, userID, reminderID string) error {
	reminderID = strings.TrimSpace(reminderID)
	if reminderID == "" {
		return &kanban.ValidationError{Field: "id", Msg: "reminder id is required"}
	}
	if err := s.dismissals.Dismiss(ctx, userID, reminderID); err != nil {
		return fmt.Errorf("dismiss reminder: %w", err)
	}
	return nil
}

// ResetDismissals brings every dismissed reminder back.
func (s *Service) ResetDismissals(ctx context.Context, userID string) error {
	if err := s.dismissals.Reset(ctx, userID); err != nil {
		return fmt.Errorf("reset dismissals: %w", err)
	}
	return nil
}
