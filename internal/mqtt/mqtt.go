// Package mqtt provides the outbound telemetry channel with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"time"
)

// Topic is the default MQTT topic for weather readings.
const Topic = "weather"

// TopicSystem is the default MQTT topic for system lifecycle events.
const TopicSystem = "weather/system"

// ErrNotConnected is returned by Publish when the broker connection is down.
// The payload is dropped; callers must not retry.
var ErrNotConnected = errors.New("mqtt: not connected")

// Sink hands payloads to an asynchronous outbound channel.
type Sink interface {
	// Publish enqueues payload on topic and returns without waiting for
	// delivery. It fails locally if the channel is not connected.
	Publish(topic string, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// SystemPublisher publishes lifecycle events.
type SystemPublisher interface {
	// PublishSystem sends a system lifecycle event and waits briefly for the
	// broker to accept it, so it can be used right before shutdown.
	PublishSystem(event SystemEvent) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// SystemPayload is the MQTT payload for system events without a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// offlinePayload is registered as the last will.
var offlinePayload = []byte(`{"system":{"event":"OFFLINE"}}`)
