package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures the broker connection.
type Options struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	Retain         bool
	SystemTopic    string
	SubscribeTopic string // empty disables inbound messages
}

// RealPublisher publishes to an actual MQTT broker. Connection management,
// retries and reconnection are owned by the paho client; RealPublisher only
// enqueues and reports lifecycle events to its observer.
type RealPublisher struct {
	client   paho.Client
	opts     Options
	observer Observer

	mu         sync.Mutex
	subscribed bool
}

// NewRealPublisher creates a publisher for the given broker. It does not
// connect; call Start.
func NewRealPublisher(opts Options, observer Observer) *RealPublisher {
	if opts.SystemTopic == "" {
		opts.SystemTopic = TopicSystem
	}
	if observer == nil {
		observer = Observers(nil)
	}
	p := &RealPublisher{opts: opts, observer: observer}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetMaxReconnectInterval(60*time.Second).
		SetKeepAlive(30*time.Second).
		SetPingTimeout(10*time.Second).
		SetOrderMatters(false).
		SetWill(opts.SystemTopic, string(offlinePayload), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost).
		SetReconnectingHandler(p.onReconnecting).
		SetDefaultPublishHandler(p.onMessage)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	p.client = paho.NewClient(co)
	return p
}

// Start begins connecting in the background. It never blocks; the initial
// connection is retried by the client until it succeeds or Close is called.
func (p *RealPublisher) Start() {
	p.emit(Event{Kind: EventConnecting})
	token := p.client.Connect()
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			p.emit(Event{Kind: EventError, Err: fmt.Errorf("connect to broker: %w", err)})
		}
	}()
}

// IsConnected reports whether the connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish enqueues payload and returns immediately. Delivery is reported
// later through EventPublished or EventError.
func (p *RealPublisher) Publish(topic string, payload []byte) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	token := p.client.Publish(topic, p.opts.QoS, p.opts.Retain, payload)
	go p.awaitPublish(token, topic)
	return nil
}

func (p *RealPublisher) awaitPublish(token paho.Token, topic string) {
	<-token.Done()
	if err := token.Error(); err != nil {
		p.emit(Event{Kind: EventError, Topic: topic, Err: fmt.Errorf("publish: %w", err)})
		return
	}
	var id uint16
	if pt, ok := token.(*paho.PublishToken); ok {
		id = pt.MessageID()
	}
	p.emit(Event{Kind: EventPublished, Topic: topic, MessageID: id})
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	if !p.IsConnected() {
		return ErrNotConnected
	}

	// QoS 1 (at-least-once) for lifecycle events
	token := p.client.Publish(p.opts.SystemTopic, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Close unsubscribes and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	subscribed := p.subscribed
	p.subscribed = false
	p.mu.Unlock()

	if subscribed && p.IsConnected() {
		token := p.client.Unsubscribe(p.opts.SubscribeTopic)
		if token.WaitTimeout(time.Second) && token.Error() == nil {
			p.emit(Event{Kind: EventUnsubscribed, Topic: p.opts.SubscribeTopic})
		}
	}

	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.emit(Event{Kind: EventConnected})

	topic := p.opts.SubscribeTopic
	if topic == "" {
		return
	}
	token := c.Subscribe(topic, p.opts.QoS, p.onMessage)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			p.emit(Event{Kind: EventError, Topic: topic, Err: fmt.Errorf("subscribe: %w", err)})
			return
		}
		p.mu.Lock()
		p.subscribed = true
		p.mu.Unlock()
		p.emit(Event{Kind: EventSubscribed, Topic: topic})
	}()
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.emit(Event{Kind: EventDisconnected, Err: err})
}

func (p *RealPublisher) onReconnecting(paho.Client, *paho.ClientOptions) {
	p.emit(Event{Kind: EventConnecting})
}

func (p *RealPublisher) onMessage(_ paho.Client, msg paho.Message) {
	p.emit(Event{
		Kind:      EventDataReceived,
		Topic:     msg.Topic(),
		Payload:   msg.Payload(),
		MessageID: msg.MessageID(),
	})
}

func (p *RealPublisher) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	p.observer.HandleEvent(e)
}
