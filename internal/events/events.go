// Package events fans notification events out to subscribers. Delivery to
// people happens elsewhere; this package only hands events over.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Type names an event.
type Type string

const (
	RequestApproved Type = "request.approved"
	RequestRejected Type = "request.rejected"
	SessionStarted  Type = "session.started"
)

// Event is a notification about a state change.
type Event struct {
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	RequestID  string            `json:"request_id,omitempty"`
	TrainingID string            `json:"training_id,omitempty"`
	HallID     string            `json:"hall_id,omitempty"`
	Recipient  string            `json:"recipient,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// Subscriber receives published events.
type Subscriber interface {
	Handle(ctx context.Context, event Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f SubscriberFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus delivers every event to every subscriber in registration order.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	logger      *slog.Logger
}

// NewBus constructs a bus with the given subscribers.
func NewBus(logger *slog.Logger, subscribers ...Subscriber) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subscribers: subscribers, logger: logger}
}

// Subscribe adds a subscriber.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, s)
	b.mu.Unlock()
}

// Publish hands the event to all subscribers. Subscriber failures are logged
// and never reach the publisher: the state change has already committed.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subscribers := append([]Subscriber(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, s := range subscribers {
		if err := s.Handle(ctx, event); err != nil {
			b.logger.WarnContext(ctx, "event subscriber failed",
				"event_type", string(event.Type),
				"training_id", event.TrainingID,
				"error", err,
			)
		}
	}
}

// LogSubscriber writes each event to a structured logger.
func LogSubscriber(logger *slog.Logger) Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return SubscriberFunc(func(ctx context.Context, event Event) error {
		logger.InfoContext(ctx, "event published",
			"event_type", string(event.Type),
			"request_id", event.RequestID,
			"training_id", event.TrainingID,
			"hall_id", event.HallID,
			"recipient", event.Recipient,
		)
		return nil
	})
}
