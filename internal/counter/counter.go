// Package counter provides read-and-reset access to an accumulating edge counter.
// The real implementation counts GPIO edges from the Linux character device.
// SimUnit allows testing without hardware.
package counter

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnsupported is returned by NewLineUnit on platforms without GPIO character devices.
var ErrUnsupported = errors.New("counter: not supported on this platform (requires Linux)")

// ErrClosed is returned by Value after the unit has been closed.
var ErrClosed = errors.New("counter: line closed")

// Status is the outcome of a read-and-reset. When more than one problem occurs
// the most severe wins: ReadError, then ControlError, then Overflow.
type Status int

const (
	StatusOK Status = iota
	// StatusReadError means the counter value could not be read; the count is 0.
	StatusReadError
	// StatusControlError means pause, clear or resume failed; the count may be stale.
	StatusControlError
	// StatusOverflow means the raw value was outside [0, H] and was clamped.
	StatusOverflow
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusReadError:
		return "READ_ERROR"
	case StatusControlError:
		return "CONTROL_ERROR"
	case StatusOverflow:
		return "OVERFLOW"
	default:
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
}

// Unit is an edge-counting peripheral.
type Unit interface {
	// Pause stops accumulation. Edges while paused are dropped.
	Pause() error
	// Clear zeroes the count last returned by Value. Edges that arrive
	// between Value and Clear must survive into the next window.
	Clear() error
	// Resume restarts accumulation.
	Resume() error
	// Value returns the current accumulated count.
	Value() (int32, error)
	// Close releases the peripheral.
	Close() error
}

// Edge policy names accepted in configuration.
const (
	EdgeRising  = "rising"
	EdgeFalling = "falling"
	EdgeBoth    = "both"
)

// DefaultHighWatermark is the pulse-counter high limit; one tick never reports more.
const DefaultHighWatermark int32 = 10000

// Accessor owns a Unit and exposes read-and-reset. It is not safe for
// concurrent use; a single scheduler calls it at most once per tick.
type Accessor struct {
	unit   Unit
	high   int32
	logger *slog.Logger
}

// NewAccessor wraps unit. Counts are reported in [0, high].
func NewAccessor(unit Unit, high int32, logger *slog.Logger) *Accessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessor{unit: unit, high: high, logger: logger}
}

// HighWatermark returns the upper bound of reported counts.
func (a *Accessor) HighWatermark() int32 {
	return a.high
}

// ReadAndReset returns the edges accumulated since the previous call and
// zeroes the counter. The sequence is pause, read, clear, resume; every step
// is attempted even if an earlier one failed, so counting always resumes.
func (a *Accessor) ReadAndReset() (int32, Status) {
	status := StatusOK

	if err := a.unit.Pause(); err != nil {
		a.logger.Warn("counter pause failed", "error", err)
		status = StatusControlError
	}

	value, readErr := a.unit.Value()
	if readErr != nil {
		a.logger.Warn("counter read failed", "error", readErr)
	}

	if err := a.unit.Clear(); err != nil {
		a.logger.Warn("counter clear failed", "error", err)
		status = StatusControlError
	}
	if err := a.unit.Resume(); err != nil {
		a.logger.Error("counter resume failed", "error", err)
		status = StatusControlError
	}

	if readErr != nil {
		return 0, StatusReadError
	}

	clamped := value
	switch {
	case value < 0:
		a.logger.Warn("counter below low watermark, clamping", "value", value)
		clamped = 0
	case value > a.high:
		a.logger.Warn("counter above high watermark, clamping", "value", value, "high", a.high)
		clamped = a.high
	}
	if clamped != value && status == StatusOK {
		status = StatusOverflow
	}
	return clamped, status
}

// Close releases the underlying unit.
func (a *Accessor) Close() error {
	return a.unit.Close()
}
