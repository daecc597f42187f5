package application

import (
	"context"
	"fmt"

	"github.com/abeldaneesh/TMS-sub000/internal/events"
)

// Locker serializes work on a key such as "hall:<id>" or "training:<id>".
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// EventPublisher receives notification events after a state change commits.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Metrics records service level observations.
type Metrics interface {
	BookingDecision(decision, outcome string)
	ConflictCheck(result string)
	SessionAction(action string)
	AttendanceScan(outcome string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Event) {}

type noopMetrics struct{}

func (noopMetrics) BookingDecision(string, string) {}
func (noopMetrics) ConflictCheck(string)           {}
func (noopMetrics) SessionAction(string)           {}
func (noopMetrics) AttendanceScan(string)          {}

func hallLockKey(hallID string) string {
	return "hall:" + hallID
}

func trainingLockKey(trainingID string) string {
	return "training:" + trainingID
}

func participantLockKey(participantID string) string {
	return "participant:" + participantID
}

// withLock runs fn while holding key. A failure to acquire the lock is
// reported as a lock conflict so callers fail closed.
func withLock(ctx context.Context, locker Locker, key string, fn func() error) error {
	if locker == nil {
		return fmt.Errorf("locker not configured")
	}
	release, err := locker.Acquire(ctx, key)
	if err != nil {
		return &ConflictError{Kind: ConflictLock, EntityID: key, Reason: "resource is busy, try again"}
	}
	defer release()
	return fn()
}
