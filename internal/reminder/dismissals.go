package reminder

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DismissalStore keeps each user's dismissed reminder ids.
type DismissalStore interface {
	Dismissed(ctx context.Context, userID string) (Dismissed, error)
	Dismiss(ctx context.Context, userID, reminderID string) error
	// Retain drops every dismissed id not in active.
	Retain(ctx context.Context, userID string, active []string) error
	Reset(ctx context.Context, userID string) error
}

func dismissedKey(userID string) string { return "dismissed-reminders:" + userID }

// RedisDismissals stores one Redis set per user.
type RedisDismissals struct {
	rdb *redis.Client
}

// NewRedisDismissals returns a Redis-backed DismissalStore.
func NewRedisDismissals(rdb *redis.Client) *RedisDismissals {
	return &RedisDismissals{rdb: rdb}
}

func (s *RedisDismissals) Dismissed(ctx context.Context, userID string) (Dismissed, error) {
	ids, err := s.rdb.SMembers(ctx, dismissedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return NewDismissed(ids...), nil
}

func (s *RedisDismissals) Dismiss(ctx context.Context, userID, reminderID string) error {
	if err := s.rdb.SAdd(ctx, dismissedKey(userID), reminderID).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (s *RedisDismissals) Retain(ctx context.Context, userID string, active []string) error {
	current, err := s.Dismissed(ctx, userID)
	if err != nil {
		return err
	}
	stale := staleIDs(current, active)
	if len(stale) == 0 {
		return nil
	}
	if err := s.rdb.SRem(ctx, dismissedKey(userID), stale...).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}

func (s *RedisDismissals) Reset(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, dismissedKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// MemoryDismissals is the in-process DismissalStore used without Redis.
type MemoryDismissals struct {
	mu    sync.Mutex
	users map[string]Dismissed
}

// NewMemoryDismissals returns an empty store.
func NewMemoryDismissals() *MemoryDismissals {
	return &MemoryDismissals{users: make(map[string]Dismissed)}
}

func (s *MemoryDismissals) Dismissed(_ context.Context, userID string) (Dismissed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Dismissed, len(s.users[userID]))
	for id := range s.users[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *MemoryDismissals) Dismiss(_ context.Context, userID, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.users[userID]
	if !ok {
		set = make(Dismissed)
		s.users[userID] = set
	}
	set[reminderID] = struct{}{}
	return nil
}

func (s *MemoryDismissals) Retain(_ context.Context, userID string, active []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.users[userID]
	for _, id := range staleIDs(set, active) {
		delete(set, id.(string))
	}
	return nil
}

func (s *MemoryDismissals) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

// staleIDs lists dismissed ids absent from active, typed for SRem.
func staleIDs(dismissed Dismissed, active []string) []any {
	live := NewDismissed(active...)
	var stale []any
	for id := range dismissed {
		if !live.Has(id) {
			stale = append(stale, id)
		}
	}
	return stale
}
