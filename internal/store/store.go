// Package store implements the application and user repositories on
// PostgreSQL (pgx) and SQLite (modernc.org/sqlite).
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"jobmate/tracker-service/internal/auth"
	"jobmate/tracker-service/internal/kanban"
)

// Both stores serve the lifecycle and the account logic.
var (
	_ kanban.Repository   = (*Postgres)(nil)
	_ auth.UserRepository = (*Postgres)(nil)
	_ kanban.Repository   = (*SQLite)(nil)
	_ auth.UserRepository = (*SQLite)(nil)
)

// Store is what cmd wires into the services.
type Store interface {
	kanban.Repository
	auth.UserRepository
}

func marshalHistory(h []kanban.HistoryItem) ([]byte, error) {
	if h == nil {
		h = []kanban.HistoryItem{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	return b, nil
}

func unmarshalHistory(b []byte) ([]kanban.HistoryItem, error) {
	h := []kanban.HistoryItem{}
	if len(b) == 0 {
		return h, nil
	}
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return h, nil
}

// sortable UTC timestamp for TEXT columns.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
