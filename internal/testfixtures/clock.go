package testfixtures

import (
	"sort"
	"sync"
	"time"
)

// Clock provides a controllable time source for tests. Timers created with
// AfterFunc fire synchronously from Advance and Set once their deadline is
// reached.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*FakeTimer
}

// NewClock returns a clock initialised to the supplied time. When start is the
// zero value, the shared ReferenceTime is used.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t and fires any timers now due.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	due := c.dueLocked()
	c.mu.Unlock()
	fire(due)
}

// Advance moves the clock forward by d, fires any timers now due and
// returns the updated time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	due := c.dueLocked()
	c.mu.Unlock()
	fire(due)
	return updated
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *Clock) AfterFunc(d time.Duration, f func()) *FakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &FakeTimer{clock: c, deadline: c.current.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// PendingTimers reports how many timers have neither fired nor been stopped.
func (c *Clock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Clock) dueLocked() []*FakeTimer {
	var due, remaining []*FakeTimer
	for _, t := range c.timers {
		if !t.deadline.After(c.current) {
			due = append(due, t)
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	return due
}

func (c *Clock) stop(target *FakeTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.timers {
		if t == target {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

func fire(timers []*FakeTimer) {
	for _, t := range timers {
		t.fn()
	}
}

// FakeTimer is a timer driven by Clock.
type FakeTimer struct {
	clock    *Clock
	deadline time.Time
	fn       func()
}

// Stop prevents the timer from firing. It reports whether the timer was pending.
func (t *FakeTimer) Stop() bool {
	return t.clock.stop(t)
}
