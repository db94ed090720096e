// Package storetest opens throwaway SQLite stores for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"jobmate/tracker-service/internal/db"
	"jobmate/tracker-service/internal/store"
)

// NewSQLite returns a migrated store in t's temp dir, closed at cleanup.
func NewSQLite(t testing.TB) *store.SQLite {
	t.Helper()
	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "tracker.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.MigrateSQLite(context.Background(), sqlDB))
	return store.NewSQLite(sqlDB)
}

// NewUser inserts a user and returns its id.
func NewUser(t testing.TB, s *store.SQLite, email string) string {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "not-a-real-hash")
	require.NoError(t, err)
	return u.ID
}
