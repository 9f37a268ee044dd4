package reading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sweeney/weather-station/internal/counter"
)

// Compose merges the samples taken during one tick. A failed analog read is
// recorded as a fault with a zero level; nothing is rejected.
func Compose(at time.Time, vane, temp Level, pulses int32, status counter.Status) Reading {
	r := Reading{
		Timestamp:        at,
		VaneLevel:        vane.Raw,
		TemperatureLevel: temp.Raw,
		PulseCount:       pulses,
		CounterStatus:    status,
	}
	if vane.Err != nil {
		r.Faults |= FaultVane
		r.VaneLevel = 0
	}
	if temp.Err != nil {
		r.Faults |= FaultTemperature
		r.TemperatureLevel = 0
	}
	return r
}

// Serialize renders r in the fixed wire format:
//
//	{ "vane_adc": "512", "temp_adc": "300", "anem_pulse": "37" }
//
// Key order and spacing are part of the contract with subscribers.
func Serialize(r Reading) []byte {
	buf := make([]byte, 0, 72)
	buf = append(buf, `{ "vane_adc": "`...)
	buf = strconv.AppendUint(buf, uint64(r.VaneLevel), 10)
	buf = append(buf, `", "temp_adc": "`...)
	buf = strconv.AppendUint(buf, uint64(r.TemperatureLevel), 10)
	buf = append(buf, `", "anem_pulse": "`...)
	buf = strconv.AppendInt(buf, int64(r.PulseCount), 10)
	buf = append(buf, `" }`...)
	return buf
}

// ParsePayload decodes a wire payload produced by Serialize.
func ParsePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
