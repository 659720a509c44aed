// Package schedule provides the render tick sources that drive prediction.
package schedule

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Source delivers tick instants until stopped. Cancellation of the consumer
// is the caller's context; Stop releases the source itself.
type Source interface {
	C() <-chan time.Time
	Stop()
}

// Ticker is a Source backed by time.Ticker.
type Ticker struct {
	ticker *time.Ticker
}

// NewTicker returns a source firing fps times per second. Non-positive rates
// fall back to 60.
func NewTicker(fps int) *Ticker {
	if fps <= 0 {
		fps = 60
	}
	return &Ticker{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

func (t *Ticker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *Ticker) Stop() {
	t.ticker.Stop()
}

// Manual is a Source fired explicitly, for deterministic tests.
type Manual struct {
	ch       chan time.Time
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewManual() *Manual {
	return &Manual{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *Manual) C() <-chan time.Time {
	return m.ch
}

// Fire delivers at to the consumer and blocks until it is received. It
// reports false once the source is stopped.
func (m *Manual) Fire(at time.Time) bool {
	select {
	case <-m.stopped:
		return false
	case m.ch <- at:
		return true
	}
}

func (m *Manual) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

// ManualClock is a settable Clock for tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
