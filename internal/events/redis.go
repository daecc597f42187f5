package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisForwarder publishes events as JSON on a Redis channel for the
// external delivery service.
type RedisForwarder struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisForwarder constructs a forwarder. An empty channel defaults to
// "tms.events".
func NewRedisForwarder(client redis.UniversalClient, channel string) *RedisForwarder {
	if channel == "" {
		channel = "tms.events"
	}
	return &RedisForwarder{client: client, channel: channel}
}

// Handle implements Subscriber.
func (f *RedisForwarder) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", event.Type, err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	return nil
}
