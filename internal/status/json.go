package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/weather-station/internal/reading"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Ready         bool          `json:"ready"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"tick_counts"`
	LastReading   *ReadingJSON  `json:"last_reading,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
	Recent        []ReadingJSON `json:"recent,omitempty"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of tick and delivery counts.
type CountsJSON struct {
	Ticks           uint64 `json:"ticks"`
	Published       uint64 `json:"published"`
	PublishFailures uint64 `json:"publish_failures"`
	Degraded        uint64 `json:"degraded"`
	Acknowledged    uint64 `json:"acknowledged"`
	DeliveryErrors  uint64 `json:"delivery_errors"`
	Overruns        uint64 `json:"overruns"`
}

// ReadingJSON is the JSON representation of a single reading.
type ReadingJSON struct {
	Timestamp     string `json:"timestamp"`
	VaneADC       uint32 `json:"vane_adc"`
	TempADC       uint32 `json:"temp_adc"`
	AnemPulse     int32  `json:"anem_pulse"`
	CounterStatus string `json:"counter_status"`
	Degraded      bool   `json:"degraded"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PeriodMs      int64  `json:"period_ms"`
	Topic         string `json:"topic"`
	HighWatermark int32  `json:"high_watermark"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
}

func readingJSON(r reading.Reading) ReadingJSON {
	return ReadingJSON{
		Timestamp:     r.Timestamp.UTC().Format(time.RFC3339),
		VaneADC:       r.VaneLevel,
		TempADC:       r.TemperatureLevel,
		AnemPulse:     r.PulseCount,
		CounterStatus: r.CounterStatus.String(),
		Degraded:      r.Degraded(),
	}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Ticks:           snap.Counts.Ticks,
			Published:       snap.Counts.Published,
			PublishFailures: snap.Counts.PublishFailures,
			Degraded:        snap.Counts.Degraded,
			Acknowledged:    snap.Counts.Acknowledged,
			DeliveryErrors:  snap.Counts.DeliveryErrors,
			Overruns:        snap.Counts.Overruns,
		},
		LastError: snap.LastError,
		Config: ConfigJSON{
			PeriodMs:      snap.Config.PeriodMs,
			Topic:         snap.Config.Topic,
			HighWatermark: snap.Config.HighWatermark,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}
	if snap.Last != nil {
		last := readingJSON(*snap.Last)
		inner.LastReading = &last
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason),
// including the recent reading history.
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	for _, r := range snap.Recent {
		inner.Recent = append(inner.Recent, readingJSON(r))
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// History is omitted to keep the retained message small.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
