package kanban_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/tracker-service/internal/events"
	"jobmate/tracker-service/internal/events/eventstest"
	"jobmate/tracker-service/internal/kanban"
	"jobmate/tracker-service/internal/store/storetest"
)

var fixedNow = time.Date(2024, time.March, 13, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *kanban.Service
	events *eventstest.Recorder
	userID string
}

func newFixture(t *testing.T, opts ...kanban.Option) fixture {
	t.Helper()
	s := storetest.NewSQLite(t)
	rec := &eventstest.Recorder{}
	opts = append([]kanban.Option{kanban.WithClock(func() time.Time { return fixedNow })}, opts...)
	return fixture{
		svc:    kanban.NewService(s, rec, opts...),
		events: rec,
		userID: storetest.NewUser(t, s, "ada@example.com"),
	}
}

func validInput() kanban.Input {
	return kanban.Input{Company: "Ac", Role: "QA", Location: "NY"}
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	var ve *kanban.ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Field
}

func TestCreate_MinimumLengthsAccepted(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(context.Background(), f.userID, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, kanban.StatusApplied, a.Status)
	assert.True(t, a.ReminderEnabled)
	assert.Equal(t, 0, a.FollowUpSent)
	assert.Equal(t, fixedNow, a.CreatedAt)
	assert.Equal(t, []string{kanban.EventApplicationCreated}, f.events.Channels())
}

func TestCreate_RejectsShortOrMissingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.Company = "A"
	_, err := f.svc.Create(ctx, f.userID, in)
	assert.Equal(t, "company", validationField(t, err))
	assert.Contains(t, err.Error(), "at least 2 characters")

	in = validInput()
	in.Role = "   "
	_, err = f.svc.Create(ctx, f.userID, in)
	assert.Equal(t, "role", validationField(t, err))
	assert.Equal(t, "role is required", err.Error())

	in = validInput()
	in.Location = " N "
	_, err = f.svc.Create(ctx, f.userID, in)
	assert.Equal(t, "location", validationField(t, err))

	in = validInput()
	in.Status = "HIRED"
	_, err = f.svc.Create(ctx, f.userID, in)
	assert.Equal(t, "status", validationField(t, err))

	neg := -1
	in = validInput()
	in.FollowUpSent = &neg
	_, err = f.svc.Create(ctx, f.userID, in)
	assert.Equal(t, "follow_up_sent", validationField(t, err))

	apps, err := f.svc.List(ctx, f.userID, "")
	require.NoError(t, err)
	assert.Empty(t, apps, "nothing reaches storage on validation failure")
	assert.Empty(t, f.events.Channels())
}

func TestCreate_TrimsAndHonoursExplicitValues(t *testing.T) {
	f := newFixture(t)
	off := false
	sent := 2
	follow := civil.Date{Year: 2024, Month: time.March, Day: 20}

	a, err := f.svc.Create(context.Background(), f.userID, kanban.Input{
		Company:         "  Globex  ",
		Role:            " SRE ",
		Location:        " Remote ",
		Status:          "INTERVIEWING",
		FollowUpSent:    &sent,
		ReminderEnabled: &off,
		FollowUpDate:    &follow,
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", a.Company)
	assert.Equal(t, "SRE", a.Role)
	assert.Equal(t, "Remote", a.Location)
	assert.Equal(t, kanban.StatusInterviewing, a.Status)
	assert.Equal(t, 2, a.FollowUpSent)
	assert.False(t, a.ReminderEnabled)
	assert.Equal(t, &follow, a.FollowUpDate)
}

func TestMove_AnyToAnyButSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, f.userID, validInput())
	require.NoError(t, err)

	path := []kanban.Status{
		kanban.StatusRejected, kanban.StatusApplied, kanban.StatusOffer,
		kanban.StatusOnHold, kanban.StatusAccepted, kanban.StatusInterviewing,
	}
	for _, to := range path {
		moved, err := f.svc.Move(ctx, f.userID, a.ID, string(to))
		require.NoError(t, err, "move to %s", to)
		assert.Equal(t, to, moved.Status)
	}

	got, err := f.svc.Get(ctx, f.userID, a.ID)
	require.NoError(t, err)
	require.Len(t, got.History, len(path))
	assert.Equal(t, kanban.StatusApplied, got.History[0].From)
	assert.Equal(t, kanban.StatusRejected, got.History[0].To)
	assert.Equal(t, kanban.StatusInterviewing, got.History[len(path)-1].To)

	_, err = f.svc.Move(ctx, f.userID, a.ID, string(kanban.StatusInterviewing))
	assert.Equal(t, "status", validationField(t, err))
	assert.Contains(t, err.Error(), "already INTERVIEWING")
}

func TestMove_PublishesCardMoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, f.userID, validInput())
	require.NoError(t, err)

	_, err = f.svc.Move(ctx, f.userID, a.ID, "OFFER")
	require.NoError(t, err)

	evs := f.events.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, kanban.EventCardMoved, evs[1].Channel)
	payload, err := json.Marshal(evs[1].Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "EVENT_CARD_MOVED",
		"applicationId": "`+a.ID+`",
		"userId": "`+f.userID+`",
		"from": "APPLIED",
		"to": "OFFER"
	}`, string(payload))
}

func TestMove_InvalidStatusAndUnknownID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Move(ctx, f.userID, "nope", "OFFER")
	assert.ErrorIs(t, err, kanban.ErrNotFound)

	_, err = f.svc.Move(ctx, f.userID, "nope", "offer")
	assert.Equal(t, "status", validationField(t, err))
}

func TestUpdate_PartialFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	applied := civil.Date{Year: 2024, Month: time.March, Day: 1}
	in := validInput()
	in.AppliedDate = &applied
	in.Notes = "first"
	a, err := f.svc.Create(ctx, f.userID, in)
	require.NoError(t, err)

	notes := "second"
	next := civil.Date{Year: 2024, Month: time.March, Day: 15}
	got, err := f.svc.Update(ctx, f.userID, a.ID, kanban.Patch{
		Notes:          &notes,
		NextActionDate: kanban.SetDate(next),
		AppliedDate:    kanban.ClearDate(),
	})
	require.NoError(t, err)
	assert.Equal(t, "second", got.Notes)
	assert.Equal(t, &next, got.NextActionDate)
	assert.Nil(t, got.AppliedDate)
	assert.Equal(t, "Ac", got.Company, "untouched fields stay")
	assert.Empty(t, got.History)
	assert.Equal(t, []string{kanban.EventApplicationCreated}, f.events.Channels())
}

func TestUpdate_StatusChangeRecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, f.userID, validInput())
	require.NoError(t, err)

	same := "APPLIED"
	got, err := f.svc.Update(ctx, f.userID, a.ID, kanban.Patch{Status: &same})
	require.NoError(t, err)
	assert.Empty(t, got.History, "same status through PATCH is a no-op move")

	onHold := "ON_HOLD"
	got, err = f.svc.Update(ctx, f.userID, a.ID, kanban.Patch{Status: &onHold})
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, kanban.HistoryItem{From: kanban.StatusApplied, To: kanban.StatusOnHold, At: fixedNow}, got.History[0])
	assert.Equal(t, []string{kanban.EventApplicationCreated, kanban.EventCardMoved}, f.events.Channels())
}

func TestUpdate_FollowUpSentNeverDecreases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	three := 3
	in := validInput()
	in.FollowUpSent = &three
	a, err := f.svc.Create(ctx, f.userID, in)
	require.NoError(t, err)

	two := 2
	_, err = f.svc.Update(ctx, f.userID, a.ID, kanban.Patch{FollowUpSent: &two})
	assert.Equal(t, "follow_up_sent", validationField(t, err))

	four := 4
	got, err := f.svc.Update(ctx, f.userID, a.ID, kanban.Patch{FollowUpSent: &four})
	require.NoError(t, err)
	assert.Equal(t, 4, got.FollowUpSent)
}

func TestUpdate_ValidationLeavesRecordUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, f.userID, validInput())
	require.NoError(t, err)

	notes := "should not stick"
	short := "X"
	_, err = f.svc.Update(ctx, f.userID, a.ID, kanban.Patch{Notes: &notes, Company: &short})
	assert.Equal(t, "company", validationField(t, err))

	got, err := f.svc.Get(ctx, f.userID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
	assert.Equal(t, "Ac", got.Company)
}

func TestRecordFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := civil.Date{Year: 2024, Month: time.March, Day: 10}
	in := validInput()
	in.FollowUpDate = &due
	a, err := f.svc.Create(ctx, f.userID, in)
	require.NoError(t, err)

	got, err := f.svc.RecordFollowUp(ctx, f.userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FollowUpSent)
	assert.Nil(t, got.FollowUpDate)
	require.NotNil(t, got.LastContactDate)
	assert.Equal(t, civil.DateOf(fixedNow), *got.LastContactDate)

	got, err = f.svc.RecordFollowUp(ctx, f.userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FollowUpSent)
}

func TestListFilterAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, f.userID, validInput())
	require.NoError(t, err)
	in := validInput()
	in.Status = "OFFER"
	b, err := f.svc.Create(ctx, f.userID, in)
	require.NoError(t, err)

	offers, err := f.svc.List(ctx, f.userID, "OFFER")
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, b.ID, offers[0].ID)

	_, err = f.svc.List(ctx, f.userID, "BOGUS")
	assert.Equal(t, "status", validationField(t, err))

	require.NoError(t, f.svc.Delete(ctx, f.userID, a.ID))
	_, err = f.svc.Get(ctx, f.userID, a.ID)
	assert.ErrorIs(t, err, kanban.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.userID, a.ID), kanban.ErrNotFound)
}

type failingMirror struct{ calls int }

func (m *failingMirror) MirrorApplication(context.Context, *kanban.Application) error {
	m.calls++
	return errors.New("notion unavailable")
}

func TestCreate_MirrorFailureIsNotFatal(t *testing.T) {
	m := &failingMirror{}
	f := newFixture(t, kanban.WithMirror(m))

	a, err := f.svc.Create(context.Background(), f.userID, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 1, m.calls)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) error { return errors.New("redis down") }

func TestCreate_PublishFailureIsNotFatal(t *testing.T) {
	s := storetest.NewSQLite(t)
	svc := kanban.NewService(s, failingPublisher{})
	uid := storetest.NewUser(t, s, "ada@example.com")

	_, err := svc.Create(context.Background(), uid, validInput())
	assert.NoError(t, err)
}

func TestToday_UsesClockLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	s := storetest.NewSQLite(t)
	svc := kanban.NewService(s, events.NopPublisher{}, kanban.WithClock(func() time.Time {
		return time.Date(2024, time.March, 13, 3, 0, 0, 0, time.UTC).In(loc)
	}))
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 12}, svc.Today())
}
