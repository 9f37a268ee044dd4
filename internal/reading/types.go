// Package reading composes one tick's sensor values into an immutable record
// and renders it as the wire payload.
// This package has NO hardware or network dependencies; time is passed in.
package reading

import (
	"time"

	"github.com/sweeney/weather-station/internal/counter"
)

// Fault flags analog channels whose sample failed this tick.
type Fault uint8

const (
	FaultVane Fault = 1 << iota
	FaultTemperature
)

// Level is one analog sample and the error, if any, from reading it.
type Level struct {
	Raw uint32
	Err error
}

// Reading is the composite value produced once per tick.
type Reading struct {
	Timestamp        time.Time
	VaneLevel        uint32
	TemperatureLevel uint32
	PulseCount       int32
	CounterStatus    counter.Status
	Faults           Fault
}

// Degraded reports whether any field came from a failed or out-of-range read.
func (r Reading) Degraded() bool {
	return r.Faults != 0 || r.CounterStatus != counter.StatusOK
}

// Payload is the decoded form of the wire payload. All values are decimal text.
type Payload struct {
	VaneADC   string `json:"vane_adc"`
	TempADC   string `json:"temp_adc"`
	AnemPulse string `json:"anem_pulse"`
}
