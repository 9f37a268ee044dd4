package internal

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sweeney/weather-station/internal/adc"
	"github.com/sweeney/weather-station/internal/counter"
	"github.com/sweeney/weather-station/internal/mqtt"
	"github.com/sweeney/weather-station/internal/reading"
	"github.com/sweeney/weather-station/internal/scheduler"
	"github.com/sweeney/weather-station/internal/status"
)

type station struct {
	unit      *counter.SimUnit
	sampler   *adc.FakeSampler
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	sched     *scheduler.Scheduler
}

// newStation wires the whole pipeline to fakes. Ticks are driven by calling
// sched.Tick directly so the flow is deterministic.
func newStation(t *testing.T) *station {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := &station{
		unit:    counter.NewSimUnit(),
		sampler: adc.NewFakeSampler(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), status.Config{PeriodMs: 10000, Topic: mqtt.Topic}),
	}
	s.publisher = mqtt.NewFakePublisher(mqtt.Observers{mqtt.LogObserver{Logger: logger}, s.tracker})
	acc := counter.NewAccessor(s.unit, counter.DefaultHighWatermark, logger)
	s.sched = scheduler.New(scheduler.Config{
		Period:             10 * time.Second,
		Topic:              mqtt.Topic,
		VaneChannel:        adc.ChannelVane,
		TemperatureChannel: adc.ChannelTemperature,
	}, s.sampler, acc, s.publisher, logger, scheduler.WithRecorder(s.tracker))
	return s
}

func decode(t *testing.T, msg mqtt.Message) reading.Payload {
	t.Helper()
	p, err := reading.ParsePayload(msg.Payload)
	if err != nil {
		t.Fatalf("payload %q: %v", msg.Payload, err)
	}
	return p
}

// TestIntegrationFullFlow tests the complete flow from counter and ADC to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	s := newStation(t)
	s.sampler.Script(adc.ChannelVane, 512).Script(adc.ChannelTemperature, 300)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// 37 anemometer edges during the first 10 s window.
	s.unit.Edge(37)
	s.sched.Tick(start.Add(10 * time.Second))

	// No wind during the second window.
	s.sched.Tick(start.Add(20 * time.Second))

	msgs := s.publisher.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Topic != "weather" {
			t.Errorf("topic: got %q, want weather", m.Topic)
		}
	}

	want := `{ "vane_adc": "512", "temp_adc": "300", "anem_pulse": "37" }`
	if string(msgs[0].Payload) != want {
		t.Errorf("first payload: got %q, want %q", msgs[0].Payload, want)
	}
	if p := decode(t, msgs[1]); p.AnemPulse != "0" {
		t.Errorf("second anem_pulse: got %q, want 0", p.AnemPulse)
	}

	snap := s.tracker.Snapshot()
	if snap.Counts.Ticks != 2 || snap.Counts.Published != 2 || snap.Counts.Acknowledged != 2 {
		t.Errorf("tracker counts: got %+v", snap.Counts)
	}
	if len(snap.Recent) != 2 {
		t.Errorf("recent: got %d, want 2", len(snap.Recent))
	}
}

// TestIntegrationDisconnected verifies ticks continue while the broker is
// unreachable and that no reading is replayed after reconnect.
func TestIntegrationDisconnected(t *testing.T) {
	s := newStation(t)
	s.sampler.Script(adc.ChannelVane, 100).Script(adc.ChannelTemperature, 200)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s.publisher.SetConnected(false)
	for i := 1; i <= 3; i++ {
		s.unit.Edge(10)
		res := s.sched.Tick(start.Add(time.Duration(i) * 10 * time.Second))
		if !errors.Is(res.PublishErr, mqtt.ErrNotConnected) {
			t.Errorf("tick %d: got %v, want ErrNotConnected", i, res.PublishErr)
		}
	}

	s.publisher.SetConnected(true)
	s.unit.Edge(4)
	s.sched.Tick(start.Add(40 * time.Second))

	msgs := s.publisher.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly 1 message after reconnect, got %d", len(msgs))
	}
	if p := decode(t, msgs[0]); p.AnemPulse != "4" {
		t.Errorf("anem_pulse: got %q, want 4 (no carry-over)", p.AnemPulse)
	}

	snap := s.tracker.Snapshot()
	if snap.Counts.Ticks != 4 || snap.Counts.PublishFailures != 3 {
		t.Errorf("tracker counts: got %+v", snap.Counts)
	}
	if !snap.MQTTConnected {
		t.Error("expected tracker to see reconnect")
	}
}

// TestIntegrationFaultsStillPublish verifies fail-open behaviour for every
// sensor fault at once.
func TestIntegrationFaultsStillPublish(t *testing.T) {
	s := newStation(t)
	s.sampler.Fail(adc.ChannelVane, errors.New("i2c nack"))
	s.sampler.Script(adc.ChannelTemperature, 300)
	s.unit.ValueError = errors.New("line gone")

	res := s.sched.Tick(time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC))

	if res.PublishErr != nil {
		t.Fatalf("publish: %v", res.PublishErr)
	}
	if !res.Reading.Degraded() {
		t.Error("expected degraded reading")
	}
	if res.Reading.CounterStatus != counter.StatusReadError {
		t.Errorf("counter status: got %v, want READ_ERROR", res.Reading.CounterStatus)
	}
	p := decode(t, s.publisher.Messages()[0])
	if p.VaneADC != "0" || p.TempADC != "300" || p.AnemPulse != "0" {
		t.Errorf("payload: got %+v", p)
	}
	if got := s.tracker.Snapshot().Counts.Degraded; got != 1 {
		t.Errorf("degraded count: got %d, want 1", got)
	}
}

// TestIntegrationOverflowClamped verifies a runaway count is clamped to the
// high watermark and flagged.
func TestIntegrationOverflowClamped(t *testing.T) {
	s := newStation(t)
	s.sampler.Script(adc.ChannelVane, 1).Script(adc.ChannelTemperature, 2)
	s.unit.Set(counter.DefaultHighWatermark + 500)

	res := s.sched.Tick(time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC))

	if res.Reading.PulseCount != counter.DefaultHighWatermark {
		t.Errorf("pulse count: got %d, want %d", res.Reading.PulseCount, counter.DefaultHighWatermark)
	}
	if res.Reading.CounterStatus != counter.StatusOverflow {
		t.Errorf("counter status: got %v, want OVERFLOW", res.Reading.CounterStatus)
	}
	if p := decode(t, s.publisher.Messages()[0]); p.AnemPulse != "10000" {
		t.Errorf("anem_pulse: got %q, want 10000", p.AnemPulse)
	}
}

// TestIntegrationStatusSnapshot verifies the system-event payload reflects the ticks taken.
func TestIntegrationStatusSnapshot(t *testing.T) {
	s := newStation(t)
	s.sampler.Script(adc.ChannelVane, 512).Script(adc.ChannelTemperature, 300)
	s.unit.Edge(37)
	s.sched.Tick(time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC))

	snap := s.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	}
	if err := s.publisher.PublishSystem(event); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	payload, err := mqtt.FormatSystemPayload(s.publisher.SystemEvents()[0])
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	var parsed status.StatusJSON
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if !parsed.Status.Ready || parsed.Status.Counts.Ticks != 1 {
		t.Errorf("status: ready=%v ticks=%d", parsed.Status.Ready, parsed.Status.Counts.Ticks)
	}
	if parsed.Status.LastReading == nil || parsed.Status.LastReading.AnemPulse != 37 {
		t.Errorf("last reading: got %+v", parsed.Status.LastReading)
	}
}
