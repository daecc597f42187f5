package testfixtures

import (
	"sync"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// Clock is a settable time source shared by services under test. Session
// window and token expiry tests move it across training boundaries.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection into service deps. A nil clock yields the
// wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SetAt moves the clock to the time of day hhmm on date (YYYY-MM-DD), in UTC.
// It panics on malformed input.
func (c *Clock) SetAt(date, hhmm string) time.Time {
	day, err := scheduler.ParseDate(date)
	if err != nil {
		panic(err)
	}
	t := scheduler.At(day, scheduler.MustTimeOfDay(hhmm), time.UTC)
	c.Set(t)
	return t
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Today returns the current calendar day at midnight.
func (c *Clock) Today() time.Time {
	return scheduler.Day(c.Now())
}
