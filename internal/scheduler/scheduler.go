// Package scheduler wires up the cron job that periodically recomputes every
// user's reminders and publishes the non-empty lists.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"jobmate/tracker-service/internal/events"
	"jobmate/tracker-service/internal/kanban"
	"jobmate/tracker-service/internal/reminder"
)

// Source lists reminder-enabled applications across users.
type Source interface {
	ListReminderEnabled(ctx context.Context) ([]kanban.Application, error)
}

// Calculator computes one user's visible reminders.
type Calculator interface {
	DueFor(ctx context.Context, userID string, apps []kanban.Application) ([]reminder.Reminder, error)
}

// Publisher broadcasts the reminder lists.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Scheduler wraps robfig/cron and manages the reminder sweep.
type Scheduler struct {
	cron   *cron.Cron
	apps   Source
	calc   Calculator
	pub    Publisher
	spec   string // cron spec, e.g. "@every 1h"
	logger zerolog.Logger

	mu sync.Mutex     // one sweep at a time
	wg sync.WaitGroup // the startup sweep
}

// Result summarises one sweep.
type Result struct {
	Users     int
	Reminders int
	Published int
}

// New creates a Scheduler firing on spec in the given cron options' location.
func New(apps Source, calc Calculator, pub Publisher, spec string, opts ...cron.Option) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	opts = append([]cron.Option{cron.WithLogger(cronLogger{logger})}, opts...)
	return &Scheduler{
		cron:   cron.New(opts...),
		apps:   apps,
		calc:   calc,
		pub:    pub,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the job and starts the scheduler. It also runs one sweep
// immediately so reminders go out without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Msg("cron started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sweep(ctx)
	}()

	return nil
}

// Stop shuts down the scheduler and waits for running sweeps to finish,
// including the one started by Start.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Msg("cron stopped")
}

func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep failed")
	}
}

// RunOnce performs a single sweep: load, group by user, compute, publish.
// A failure for one user is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug().Msg("reminder sweep started")

	apps, err := s.apps.ListReminderEnabled(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list reminder-enabled applications: %w", err)
	}

	var res Result
	order, byUser := groupByUser(apps)
	res.Users = len(order)
	for _, userID := range order {
		due, err := s.calc.DueFor(ctx, userID, byUser[userID])
		if err != nil {
			s.logger.Error().Err(err).Str("userId", userID).Msg("compute reminders failed")
			continue
		}
		if len(due) == 0 {
			continue
		}
		res.Reminders += len(due)

		payload := map[string]any{
			"type":      events.RemindersDue,
			"userId":    userID,
			"reminders": due,
		}
		if err := s.pub.Publish(ctx, events.RemindersDue, payload); err != nil {
			s.logger.Warn().Err(err).Str("userId", userID).Msg("publish reminders failed")
			continue
		}
		res.Published++
	}

	s.logger.Info().
		Int("users", res.Users).
		Int("reminders", res.Reminders).
		Int("published", res.Published).
		Msg("reminder sweep complete")
	return res, nil
}

// groupByUser keeps the first-seen user order so sweeps are deterministic.
func groupByUser(apps []kanban.Application) ([]string, map[string][]kanban.Application) {
	var order []string
	byUser := make(map[string][]kanban.Application)
	for _, a := range apps {
		if _, ok := byUser[a.UserID]; !ok {
			order = append(order, a.UserID)
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}
	return order, byUser
}

// cronLogger routes robfig/cron's logging through zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
