// Package adc samples instantaneous analog levels.
// The real implementation reads an ADS1115 over I2C using periph.io.
// FakeSampler allows testing without hardware.
package adc

import (
	"errors"
	"fmt"
)

// ErrUnknownChannel is returned when sampling a channel that was not configured.
var ErrUnknownChannel = errors.New("adc: channel not configured")

// Channel identifies a single-ended analog input.
type Channel int

// Station wiring.
const (
	ChannelVane        Channel = 0
	ChannelTemperature Channel = 1
)

// MaxChannel is the highest single-ended input on the ADS1115.
const MaxChannel Channel = 3

func (c Channel) String() string {
	return fmt.Sprintf("AIN%d", int(c))
}

// Sampler reads raw analog codes. Sample has no side effects and no reset
// semantics; two calls in a row may legitimately differ.
type Sampler interface {
	// Sample returns the raw code for ch, scaled to the configured resolution.
	Sample(ch Channel) (uint32, error)

	// Close releases the peripheral.
	Close() error
}

// Scale converts a signed converter result with nativeBits of positive range
// into an unsigned code of resolution bits. Negative inputs clamp to 0.
func Scale(raw int32, nativeBits, resolution uint) uint32 {
	if raw <= 0 {
		return 0
	}
	limit := int32(1)<<nativeBits - 1
	if raw > limit {
		raw = limit
	}
	if resolution >= nativeBits {
		return uint32(raw) << (resolution - nativeBits)
	}
	return uint32(raw) >> (nativeBits - resolution)
}
