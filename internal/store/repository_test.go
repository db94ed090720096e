package store_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/tracker-service/internal/auth"
	"jobmate/tracker-service/internal/kanban"
	"jobmate/tracker-service/internal/store"
)

// repositoryCases run against every store implementation. open must return
// an empty, migrated store.
func repositoryCases(t *testing.T, open func(t *testing.T) store.Store) {
	cases := []struct {
		name string
		run  func(t *testing.T, s store.Store)
	}{
		{"InsertGetRoundTrip", testInsertGetRoundTrip},
		{"GetForeignUserIsNotFound", testGetForeignUserIsNotFound},
		{"ListOrderAndFilter", testListOrderAndFilter},
		{"UpdateAndClearDates", testUpdateAndClearDates},
		{"UpdateMissingIsNotFound", testUpdateMissingIsNotFound},
		{"UpdateStaleVersionConflicts", testUpdateStaleVersionConflicts},
		{"Delete", testDelete},
		{"ListReminderEnabledAcrossUsers", testListReminderEnabledAcrossUsers},
		{"Users", testUsers},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) { c.run(t, open(t)) })
	}
}

func newUser(t *testing.T, s store.Store, email string) string {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "not-a-real-hash")
	require.NoError(t, err)
	return u.ID
}

func newApp(userID string, status kanban.Status, updated time.Time) *kanban.Application {
	applied := civil.Date{Year: 2024, Month: time.March, Day: 1}
	return &kanban.Application{
		UserID:          userID,
		Company:         "Acme",
		Role:            "Backend Engineer",
		Location:        "Berlin",
		Status:          status,
		Source:          "Referral",
		AppliedDate:     &applied,
		ReminderEnabled: true,
		History:         []kanban.HistoryItem{},
		CreatedAt:       updated,
		UpdatedAt:       updated,
	}
}

func testInsertGetRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := newUser(t, s, "ada@example.com")

	// Microseconds: the finest precision every backend keeps.
	at := time.Date(2024, time.March, 2, 10, 0, 0, 123456000, time.UTC)
	a := newApp(uid, kanban.StatusApplied, at)
	a.History = []kanban.HistoryItem{{From: kanban.StatusOnHold, To: kanban.StatusApplied, At: at}}
	a.Notes = "met at meetup"
	require.NoError(t, s.Insert(ctx, a))
	require.NotEmpty(t, a.ID)

	got, err := s.Get(ctx, uid, a.ID)
	require.NoError(t, err)
	got.CreatedAt, got.UpdatedAt = got.CreatedAt.UTC(), got.UpdatedAt.UTC()
	assert.Equal(t, a, got)
	assert.Nil(t, got.FollowUpDate)
	assert.Equal(t, 0, got.Version)
}

func testGetForeignUserIsNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := newUser(t, s, "owner@example.com")
	other := newUser(t, s, "other@example.com")

	a := newApp(owner, kanban.StatusApplied, time.Now().UTC())
	require.NoError(t, s.Insert(ctx, a))

	_, err := s.Get(ctx, other, a.ID)
	assert.ErrorIs(t, err, kanban.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, other, a.ID), kanban.ErrNotFound)
}

func testListOrderAndFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := newUser(t, s, "ada@example.com")
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	older := newApp(uid, kanban.StatusApplied, base)
	newer := newApp(uid, kanban.StatusInterviewing, base.Add(time.Hour))
	require.NoError(t, s.Insert(ctx, older))
	require.NoError(t, s.Insert(ctx, newer))

	all, err := s.List(ctx, uid, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	interviewing, err := s.List(ctx, uid, kanban.StatusInterviewing)
	require.NoError(t, err)
	require.Len(t, interviewing, 1)
	assert.Equal(t, newer.ID, interviewing[0].ID)

	none, err := s.List(ctx, "someone-else", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testUpdateAndClearDates(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := newUser(t, s, "ada@example.com")

	a := newApp(uid, kanban.StatusApplied, time.Now().UTC())
	require.NoError(t, s.Insert(ctx, a))

	follow := civil.Date{Year: 2024, Month: time.April, Day: 2}
	a.FollowUpDate = &follow
	a.AppliedDate = nil
	a.ReminderEnabled = false
	a.FollowUpSent = 2
	require.NoError(t, s.Update(ctx, a))
	assert.Equal(t, 1, a.Version)

	got, err := s.Get(ctx, uid, a.ID)
	require.NoError(t, err)
	assert.Equal(t, &follow, got.FollowUpDate)
	assert.Nil(t, got.AppliedDate)
	assert.False(t, got.ReminderEnabled)
	assert.Equal(t, 2, got.FollowUpSent)
	assert.Equal(t, 1, got.Version)
}

func testUpdateMissingIsNotFound(t *testing.T, s store.Store) {
	uid := newUser(t, s, "ada@example.com")
	a := newApp(uid, kanban.StatusApplied, time.Now().UTC())
	a.ID = "missing"

	assert.ErrorIs(t, s.Update(context.Background(), a), kanban.ErrNotFound)
}

func testUpdateStaleVersionConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := newUser(t, s, "ada@example.com")
	a := newApp(uid, kanban.StatusApplied, time.Now().UTC())
	require.NoError(t, s.Insert(ctx, a))

	first, err := s.Get(ctx, uid, a.ID)
	require.NoError(t, err)
	second, err := s.Get(ctx, uid, a.ID)
	require.NoError(t, err)

	first.FollowUpSent = 5
	require.NoError(t, s.Update(ctx, first))

	second.FollowUpSent = 1
	assert.ErrorIs(t, s.Update(ctx, second), kanban.ErrConflict)
	assert.Equal(t, 0, second.Version, "a refused write leaves the version alone")

	got, err := s.Get(ctx, uid, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.FollowUpSent)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := newUser(t, s, "ada@example.com")
	a := newApp(uid, kanban.StatusApplied, time.Now().UTC())
	require.NoError(t, s.Insert(ctx, a))

	require.NoError(t, s.Delete(ctx, uid, a.ID))
	_, err := s.Get(ctx, uid, a.ID)
	assert.ErrorIs(t, err, kanban.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, uid, a.ID), kanban.ErrNotFound)
}

func testListReminderEnabledAcrossUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u1 := newUser(t, s, "one@example.com")
	u2 := newUser(t, s, "two@example.com")
	now := time.Now().UTC()

	on1 := newApp(u1, kanban.StatusApplied, now)
	on2 := newApp(u2, kanban.StatusOffer, now)
	off := newApp(u2, kanban.StatusApplied, now)
	off.ReminderEnabled = false
	for _, a := range []*kanban.Application{on1, on2, off} {
		require.NoError(t, s.Insert(ctx, a))
	}

	got, err := s.ListReminderEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{on1.ID, on2.ID}, ids)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "ada@example.com", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = s.CreateUser(ctx, "ada@example.com", "hash2")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	found, err := s.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
