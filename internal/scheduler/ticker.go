package scheduler

import (
	"fmt"
	"time"
)

// Ticker is the periodic timer facility.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every period.
type TickerFactory func(period time.Duration) (Ticker, error)

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker returns a Ticker backed by time.Ticker.
func NewTimeTicker(period time.Duration) (Ticker, error) {
	if period <= 0 {
		return nil, fmt.Errorf("non-positive period %v", period)
	}
	return timeTicker{t: time.NewTicker(period)}, nil
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }
