package scheduler

import (
	"sync/atomic"
	"time"
)

// ManualTicker is a Ticker fired explicitly by tests.
type ManualTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

// NewManualTicker creates a ManualTicker. Fire blocks until the scheduler's
// timer goroutine has received the fire.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{c: make(chan time.Time)}
}

// Factory returns a TickerFactory that always yields m.
func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) (Ticker, error) { return m, nil }
}

// Fire delivers one timer fire at t.
func (m *ManualTicker) Fire(t time.Time) {
	m.c <- t
}

// C returns the fire channel.
func (m *ManualTicker) C() <-chan time.Time { return m.c }

// Stop marks the ticker as stopped.
func (m *ManualTicker) Stop() { m.stopped.Store(true) }

// Stopped reports whether Stop was called.
func (m *ManualTicker) Stopped() bool { return m.stopped.Load() }
