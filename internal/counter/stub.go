//go:build !linux

package counter

import "time"

// LineUnit is not available on non-Linux platforms.
type LineUnit struct{}

// NewLineUnit returns ErrUnsupported on non-Linux platforms.
func NewLineUnit(chip string, offset int, edge string, debounce time.Duration) (*LineUnit, error) {
	return nil, ErrUnsupported
}

// Missed always returns 0.
func (u *LineUnit) Missed() uint64 { return 0 }

// Pause is not implemented on non-Linux platforms.
func (u *LineUnit) Pause() error { return ErrUnsupported }

// Clear is not implemented on non-Linux platforms.
func (u *LineUnit) Clear() error { return ErrUnsupported }

// Resume is not implemented on non-Linux platforms.
func (u *LineUnit) Resume() error { return ErrUnsupported }

// Value is not implemented on non-Linux platforms.
func (u *LineUnit) Value() (int32, error) { return 0, ErrUnsupported }

// Close is a no-op on non-Linux platforms.
func (u *LineUnit) Close() error { return nil }
