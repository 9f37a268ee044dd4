package mqtt

import (
	"sync"
	"time"
)

// Message is a payload recorded by FakePublisher.
type Message struct {
	Topic   string
	Payload []byte
}

// FakePublisher records published messages for test assertions.
// It starts connected; use SetConnected to simulate an outage.
type FakePublisher struct {
	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	mu           sync.Mutex
	observer     Observer
	connected    bool
	closed       bool
	nextID       uint16
	messages     []Message
	failures     int
	systemEvents []SystemEvent
}

// NewFakePublisher creates a connected FakePublisher. observer may be nil.
func NewFakePublisher(observer Observer) *FakePublisher {
	return &FakePublisher{observer: observer, connected: true}
}

// Publish records the payload, or fails like the real client when disconnected.
func (f *FakePublisher) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	if f.PublishError != nil {
		f.failures++
		f.mu.Unlock()
		return f.PublishError
	}
	if !f.connected {
		f.failures++
		f.mu.Unlock()
		return ErrNotConnected
	}
	f.nextID++
	id := f.nextID
	f.messages = append(f.messages, Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	f.mu.Unlock()

	f.emit(Event{Kind: EventPublished, Topic: topic, MessageID: id})
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	if _, err := FormatSystemPayload(event); err != nil {
		return err
	}
	f.mu.Lock()
	f.systemEvents = append(f.systemEvents, event)
	f.mu.Unlock()
	return nil
}

// SetConnected changes the simulated connection state and notifies the observer.
func (f *FakePublisher) SetConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()

	if connected {
		f.emit(Event{Kind: EventConnected})
	} else {
		f.emit(Event{Kind: EventDisconnected})
	}
}

// IsConnected reports the simulated connection state.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Messages returns a copy of the recorded messages.
func (f *FakePublisher) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

// Failures returns how many Publish calls failed.
func (f *FakePublisher) Failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

// SystemEvents returns a copy of the recorded system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded messages and restores the connected state.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
	f.systemEvents = nil
	f.failures = 0
	f.closed = false
	f.connected = true
	f.PublishError = nil
	f.PublishSystemError = nil
}

func (f *FakePublisher) emit(e Event) {
	if f.observer == nil {
		return
	}
	e.Time = time.Now()
	f.observer.HandleEvent(e)
}
