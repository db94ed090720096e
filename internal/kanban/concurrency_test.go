package kanban_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/tracker-service/internal/events"
	"jobmate/tracker-service/internal/kanban"
	"jobmate/tracker-service/internal/store/storetest"
)

// interleavedRepo runs interleave once, after the service has read the
// application and before its write reaches the store.
type interleavedRepo struct {
	kanban.Repository
	once       sync.Once
	interleave func()
}

func (r *interleavedRepo) Update(ctx context.Context, a *kanban.Application) error {
	r.once.Do(r.interleave)
	return r.Repository.Update(ctx, a)
}

func TestRecordFollowUp_LosesRaceWithConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewSQLite(t)
	clock := kanban.WithClock(func() time.Time { return fixedNow })
	direct := kanban.NewService(s, events.NopPublisher{}, clock)
	userID := storetest.NewUser(t, s, "ada@example.com")

	a, err := direct.Create(ctx, userID, validInput())
	require.NoError(t, err)

	five := 5
	repo := &interleavedRepo{Repository: s, interleave: func() {
		_, err := direct.Update(ctx, userID, a.ID, kanban.Patch{FollowUpSent: &five})
		require.NoError(t, err)
	}}
	racing := kanban.NewService(repo, events.NopPublisher{}, clock)

	_, err = racing.RecordFollowUp(ctx, userID, a.ID)
	assert.ErrorIs(t, err, kanban.ErrConflict)

	got, err := direct.Get(ctx, userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.FollowUpSent, "the stale increment must not overwrite the newer count")

	// A fresh attempt sees the committed value and counts on from it.
	got, err = racing.RecordFollowUp(ctx, userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.FollowUpSent)
}

func TestMove_LosesRaceKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewSQLite(t)
	clock := kanban.WithClock(func() time.Time { return fixedNow })
	direct := kanban.NewService(s, events.NopPublisher{}, clock)
	userID := storetest.NewUser(t, s, "ada@example.com")

	a, err := direct.Create(ctx, userID, validInput())
	require.NoError(t, err)

	repo := &interleavedRepo{Repository: s, interleave: func() {
		_, err := direct.Move(ctx, userID, a.ID, string(kanban.StatusInterviewing))
		require.NoError(t, err)
	}}
	racing := kanban.NewService(repo, events.NopPublisher{}, clock)

	_, err = racing.Move(ctx, userID, a.ID, string(kanban.StatusRejected))
	assert.ErrorIs(t, err, kanban.ErrConflict)

	got, err := direct.Get(ctx, userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, kanban.StatusInterviewing, got.Status)
	require.Len(t, got.History, 1)
	assert.Equal(t, kanban.StatusInterviewing, got.History[0].To)
}
