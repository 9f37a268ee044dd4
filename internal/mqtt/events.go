package mqtt

import (
	"fmt"
	"log/slog"
	"time"
)

// EventKind tags an Event.
type EventKind int

const (
	EventConnecting EventKind = iota
	EventConnected
	EventDisconnected
	EventSubscribed
	EventUnsubscribed
	EventPublished
	EventDataReceived
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnecting:
		return "CONNECTING"
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventSubscribed:
		return "SUBSCRIBED"
	case EventUnsubscribed:
		return "UNSUBSCRIBED"
	case EventPublished:
		return "PUBLISHED"
	case EventDataReceived:
		return "DATA"
	case EventError:
		return "ERROR"
	default:
		return fmt.Sprintf("EVENT(%d)", int(k))
	}
}

// Event is an asynchronous client lifecycle notification. Which fields are
// set depends on Kind:
//
//	Published               MessageID, Topic
//	Subscribed/Unsubscribed Topic
//	DataReceived            Topic, Payload, MessageID
//	Disconnected, Error     Err
type Event struct {
	Kind      EventKind
	Time      time.Time
	MessageID uint16
	Topic     string
	Payload   []byte
	Err       error
}

// Observer receives client events. HandleEvent is called from the client's
// own goroutines and must not block.
type Observer interface {
	HandleEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// HandleEvent calls f(e).
func (f ObserverFunc) HandleEvent(e Event) { f(e) }

// Observers fans an event out to each observer in order.
type Observers []Observer

// HandleEvent delivers e to every non-nil observer.
func (o Observers) HandleEvent(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.HandleEvent(e)
		}
	}
}

// LogObserver logs every event for diagnostics.
type LogObserver struct {
	Logger *slog.Logger
}

// HandleEvent logs e at a level matching its kind.
func (l LogObserver) HandleEvent(e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch e.Kind {
	case EventDisconnected:
		logger.Warn("mqtt disconnected", "error", e.Err)
	case EventError:
		logger.Error("mqtt error", "topic", e.Topic, "error", e.Err)
	case EventPublished:
		logger.Debug("mqtt published", "msg_id", e.MessageID, "topic", e.Topic)
	case EventSubscribed, EventUnsubscribed:
		logger.Info("mqtt "+e.Kind.String(), "topic", e.Topic)
	case EventDataReceived:
		logger.Info("mqtt data", "topic", e.Topic, "data", string(e.Payload))
	default:
		logger.Info("mqtt " + e.Kind.String())
	}
}
