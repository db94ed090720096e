package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/tracker-service/internal/events"
	"jobmate/tracker-service/internal/events/eventstest"
	"jobmate/tracker-service/internal/kanban"
	"jobmate/tracker-service/internal/reminder"
	"jobmate/tracker-service/internal/scheduler"
	"jobmate/tracker-service/internal/store/storetest"
)

var now = time.Date(2024, time.March, 13, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func daysAgo(n int) *civil.Date {
	d := civil.DateOf(now).AddDays(-n)
	return &d
}

func TestRunOnce_PublishesPerUser(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewSQLite(t)
	apps := kanban.NewService(s, events.NopPublisher{}, kanban.WithClock(clock))
	dismissals := reminder.NewMemoryDismissals()
	reminders := reminder.NewService(apps, dismissals, clock)
	rec := &eventstest.Recorder{}

	ada := storetest.NewUser(t, s, "ada@example.com")
	bob := storetest.NewUser(t, s, "bob@example.com")
	cy := storetest.NewUser(t, s, "cy@example.com")

	_, err := apps.Create(ctx, ada, kanban.Input{Company: "Globex", Role: "SRE", Location: "Remote", FollowUpDate: daysAgo(3)})
	require.NoError(t, err)
	_, err = apps.Create(ctx, ada, kanban.Input{Company: "Initech", Role: "QA", Location: "Remote", AppliedDate: daysAgo(20)})
	require.NoError(t, err)
	_, err = apps.Create(ctx, bob, kanban.Input{Company: "Umbrella", Role: "Lab", Location: "Remote", NextActionDate: daysAgo(0)})
	require.NoError(t, err)
	// cy has an application with nothing due.
	_, err = apps.Create(ctx, cy, kanban.Input{Company: "Hooli", Role: "PM", Location: "Remote", AppliedDate: daysAgo(1)})
	require.NoError(t, err)

	// bob dismissed his only reminder.
	require.NoError(t, reminders.Dismiss(ctx, bob, "next-action-due-today-"+mustOnlyID(t, apps, bob)))

	sch := scheduler.New(apps, reminders, rec, "@every 1h")
	res, err := sch.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Users)
	assert.Equal(t, 2, res.Reminders)
	assert.Equal(t, 1, res.Published)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.RemindersDue, evs[0].Channel)
	payload := evs[0].Payload.(map[string]any)
	assert.Equal(t, ada, payload["userId"])
	due := payload["reminders"].([]reminder.Reminder)
	require.Len(t, due, 2)
	assert.Equal(t, reminder.TypeOverdue, due[0].Type)
	assert.Equal(t, reminder.TypeStale, due[1].Type)
}

func mustOnlyID(t *testing.T, apps *kanban.Service, userID string) string {
	t.Helper()
	list, err := apps.List(context.Background(), userID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0].ID
}

type brokenSource struct{}

func (brokenSource) ListReminderEnabled(context.Context) ([]kanban.Application, error) {
	return nil, errors.New("db down")
}

func TestRunOnce_SourceError(t *testing.T) {
	sch := scheduler.New(brokenSource{}, nil, &eventstest.Recorder{}, "@every 1h")
	_, err := sch.RunOnce(context.Background())
	assert.Error(t, err)
}

type flakyCalc struct{}

func (flakyCalc) DueFor(_ context.Context, userID string, apps []kanban.Application) ([]reminder.Reminder, error) {
	if userID == "u1" {
		return nil, errors.New("redis down")
	}
	return []reminder.Reminder{{ID: "stale-" + apps[0].ID}}, nil
}

type staticSource []kanban.Application

func (s staticSource) ListReminderEnabled(context.Context) ([]kanban.Application, error) { return s, nil }

func TestRunOnce_OneUserFailingDoesNotStopOthers(t *testing.T) {
	src := staticSource{{ID: "a1", UserID: "u1"}, {ID: "a2", UserID: "u2"}}
	rec := &eventstest.Recorder{}
	sch := scheduler.New(src, flakyCalc{}, rec, "@every 1h")

	res, err := sch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.Result{Users: 2, Reminders: 1, Published: 1}, res)
	assert.Equal(t, []string{events.RemindersDue}, rec.Channels())
}

func TestStart_RejectsBadSpec(t *testing.T) {
	sch := scheduler.New(staticSource{}, flakyCalc{}, &eventstest.Recorder{}, "whenever")
	assert.Error(t, sch.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	sch := scheduler.New(staticSource{}, flakyCalc{}, &eventstest.Recorder{}, "@every 1h")
	require.NoError(t, sch.Start(context.Background()))
	sch.Stop()
}

type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingSource) ListReminderEnabled(context.Context) ([]kanban.Application, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func TestStop_WaitsForStartupSweep(t *testing.T) {
	src := blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	sch := scheduler.New(src, flakyCalc{}, &eventstest.Recorder{}, "@every 1h")
	require.NoError(t, sch.Start(context.Background()))
	<-src.started

	stopped := make(chan struct{})
	go func() {
		sch.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the startup sweep was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(src.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
}
