// Package status provides a thread-safe status tracker for the weather-station daemon.
// It is written by the scheduler and the MQTT client and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/weather-station/internal/mqtt"
	"github.com/sweeney/weather-station/internal/reading"
)

// HistorySize is the number of recent readings kept for display.
const HistorySize = 30

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PeriodMs      int64
	Topic         string
	HighWatermark int32
	Broker        string
	HTTPAddr      string
}

// Counts are cumulative tick and delivery counters since startup.
type Counts struct {
	Ticks           uint64
	Published       uint64 // payloads accepted by the outbound queue
	PublishFailures uint64 // enqueue failures (reading dropped)
	Degraded        uint64
	Acknowledged    uint64 // deliveries confirmed by the client
	DeliveryErrors  uint64
	Overruns        uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	StartTime     time.Time
	Now           time.Time
	Counts        Counts
	Last          *reading.Reading
	LastPayload   string
	LastError     string
	MQTTConnected bool
	Recent        []reading.Reading // oldest first
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one tick has completed.
func (s Snapshot) Ready() bool {
	return s.Counts.Ticks > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	history *history
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		history: newHistory(HistorySize),
	}
}

// Record stores the outcome of one tick. Called from the scheduler worker.
func (t *Tracker) Record(r reading.Reading, payload []byte, publishErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Counts.Ticks++
	if r.Degraded() {
		t.snap.Counts.Degraded++
	}
	if publishErr != nil {
		t.snap.Counts.PublishFailures++
		t.snap.LastError = publishErr.Error()
	} else {
		t.snap.Counts.Published++
	}
	last := r
	t.snap.Last = &last
	t.snap.LastPayload = string(payload)
	t.history.push(r)
}

// RecordOverrun counts a timer fire dropped because a tick was still running.
func (t *Tracker) RecordOverrun() {
	t.mu.Lock()
	t.snap.Counts.Overruns++
	t.mu.Unlock()
}

// HandleEvent tracks connectivity and delivery from MQTT client events.
func (t *Tracker) HandleEvent(e mqtt.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case mqtt.EventConnected:
		t.snap.MQTTConnected = true
	case mqtt.EventDisconnected:
		t.snap.MQTTConnected = false
	case mqtt.EventPublished:
		t.snap.Counts.Acknowledged++
	case mqtt.EventError:
		t.snap.Counts.DeliveryErrors++
		if e.Err != nil {
			t.snap.LastError = e.Err.Error()
		}
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Recent = t.history.all()
	if t.snap.Last != nil {
		last := *t.snap.Last
		s.Last = &last
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
