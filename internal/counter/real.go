//go:build linux

package counter

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// LineUnit counts edges on a GPIO line using the Linux GPIO character device.
// Edge events are delivered by gpiocdev on its own goroutine; the count and
// pause flag are atomics so Pause/Value/Clear/Resume need no lock.
//
// Value moves the live count into held with a single swap, and Clear only
// zeroes held. An event that passed the pause check just before Pause lands
// in count after the swap and is reported by the next Value, never lost.
type LineUnit struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	count  atomic.Int32
	held   atomic.Int32
	paused atomic.Bool
	missed atomic.Uint64
}

// NewLineUnit requests offset on chip as an edge-detecting input.
// edge is one of EdgeRising, EdgeFalling or EdgeBoth; debounce is the
// kernel glitch filter period (0 disables it).
func NewLineUnit(chip string, offset int, edge string, debounce time.Duration) (*LineUnit, error) {
	edgeOpt, err := edgeOption(edge)
	if err != nil {
		return nil, err
	}

	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	u := &LineUnit{chip: c}

	// Reed switches pull the line low when closed, so bias it high.
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		edgeOpt,
		gpiocdev.WithEventHandler(u.handleEvent),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	line, err := c.RequestLine(offset, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request counter line %d: %w", offset, err)
	}
	u.line = line
	return u, nil
}

func edgeOption(edge string) (gpiocdev.LineReqOption, error) {
	switch edge {
	case EdgeRising:
		return gpiocdev.WithRisingEdge, nil
	case EdgeFalling:
		return gpiocdev.WithFallingEdge, nil
	case EdgeBoth:
		return gpiocdev.WithBothEdges, nil
	default:
		return nil, fmt.Errorf("unknown edge policy %q", edge)
	}
}

func (u *LineUnit) handleEvent(gpiocdev.LineEvent) {
	if u.paused.Load() {
		u.missed.Add(1)
		return
	}
	u.count.Add(1)
}

// Missed returns the number of edges dropped while paused.
func (u *LineUnit) Missed() uint64 {
	return u.missed.Load()
}

// Pause stops accumulation.
func (u *LineUnit) Pause() error {
	u.paused.Store(true)
	return nil
}

// Clear discards the value latched by Value.
func (u *LineUnit) Clear() error {
	u.held.Store(0)
	return nil
}

// Resume restarts accumulation.
func (u *LineUnit) Resume() error {
	u.paused.Store(false)
	return nil
}

// Value latches the live count and returns every edge not yet cleared.
func (u *LineUnit) Value() (int32, error) {
	if u.line == nil {
		return 0, ErrClosed
	}
	return u.held.Add(u.count.Swap(0)), nil
}

// Close releases the line and chip. The line is reconfigured as a plain
// input with pull-down first, matching the Pi boot defaults.
func (u *LineUnit) Close() error {
	var errs []error

	if u.line != nil {
		if err := u.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure counter line: %w", err))
		}
		if err := u.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close counter line: %w", err))
		}
		u.line = nil
	}
	if u.chip != nil {
		if err := u.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		u.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
