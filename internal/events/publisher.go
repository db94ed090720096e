// Package events publishes tracker events on Redis pub/sub channels so other
// services (the gateway's SSE stream, notification workers) can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobmate/tracker-service/internal/kanban"
)

// Channel names. The channel doubles as the payload's "type" field.
const (
	ApplicationCreated = kanban.EventApplicationCreated
	CardMoved          = kanban.EventCardMoved
	RemindersDue       = "EVENT_REMINDERS_DUE"
)

// RedisPublisher marshals payloads to JSON and publishes them with PUBLISH.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher returns a publisher on rdb.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish sends payload on channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", channel, err)
	}
	if err := p.rdb.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// NopPublisher drops every event. Used when REDIS_URL is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
