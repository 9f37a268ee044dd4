// Package scheduler runs the periodic sample-compose-publish tick.
//
// A timer goroutine receives fires from a Ticker and hands each one to a
// single worker goroutine through a one-slot queue. The worker runs the tick
// to completion; a fire that arrives while the slot is still full is dropped
// and counted as an overrun, so ticks never overlap and the cadence stays
// tied to the timer rather than to how long a tick takes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sweeney/weather-station/internal/adc"
	"github.com/sweeney/weather-station/internal/counter"
	"github.com/sweeney/weather-station/internal/mqtt"
	"github.com/sweeney/weather-station/internal/reading"
)

var (
	// ErrAlreadyArmed is returned by Arm when the timer is already registered.
	ErrAlreadyArmed = errors.New("scheduler: already armed")
	// ErrNotArmed is returned by Run before Arm succeeded.
	ErrNotArmed = errors.New("scheduler: not armed")
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateArmed
	StateSampling
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateArmed:
		return "ARMED"
	case StateSampling:
		return "SAMPLING"
	case StatePublishing:
		return "PUBLISHING"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Counter is the edge-counter accessor used once per tick.
type Counter interface {
	ReadAndReset() (int32, counter.Status)
}

// Recorder observes tick outcomes, e.g. for a status page.
type Recorder interface {
	Record(r reading.Reading, payload []byte, publishErr error)
	RecordOverrun()
}

// Config holds the fixed tick parameters.
type Config struct {
	Period             time.Duration
	Topic              string
	VaneChannel        adc.Channel
	TemperatureChannel adc.Channel
}

// Result is the outcome of one tick.
type Result struct {
	Reading    reading.Reading
	Payload    []byte
	PublishErr error
}

// Scheduler owns the sampler, the counter accessor and the sink for the
// lifetime of the process.
type Scheduler struct {
	cfg       Config
	sampler   adc.Sampler
	counter   Counter
	sink      mqtt.Sink
	logger    *slog.Logger
	newTicker TickerFactory
	recorder  Recorder

	ticker   Ticker
	state    atomic.Int32
	ticks    atomic.Uint64
	overruns atomic.Uint64
	busy     atomic.Bool // set by dispatch on hand-off, cleared by the worker after the tick
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTicker replaces the timer facility. Used by tests.
func WithTicker(f TickerFactory) Option {
	return func(s *Scheduler) { s.newTicker = f }
}

// WithRecorder registers a Recorder for tick outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// New creates an uninitialized Scheduler.
func New(cfg Config, sampler adc.Sampler, ctr Counter, sink mqtt.Sink, logger *slog.Logger, opts ...Option) *Scheduler {
	if cfg.Topic == "" {
		cfg.Topic = mqtt.Topic
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cfg:       cfg,
		sampler:   sampler,
		counter:   ctr,
		sink:      sink,
		logger:    logger,
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Overruns returns the number of timer fires dropped because a tick was
// still running.
func (s *Scheduler) Overruns() uint64 {
	return s.overruns.Load()
}

// Busy reports whether Run's worker is holding a tick. Timer fires that
// arrive while busy are dropped as overruns.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Arm registers the recurring timer. A failure here is fatal to startup.
func (s *Scheduler) Arm() error {
	if s.State() != StateUninitialized {
		return ErrAlreadyArmed
	}
	if s.cfg.Period <= 0 {
		return fmt.Errorf("create timer: period must be positive, got %v", s.cfg.Period)
	}
	t, err := s.newTicker(s.cfg.Period)
	if err != nil {
		return fmt.Errorf("create timer: %w", err)
	}
	s.ticker = t
	s.state.Store(int32(StateArmed))
	s.logger.Info("scheduler armed", "period", s.cfg.Period, "topic", s.cfg.Topic)
	return nil
}

// Run executes ticks until ctx is cancelled. It must be called once, after Arm.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.State() == StateUninitialized {
		return ErrNotArmed
	}
	defer s.ticker.Stop()

	work := make(chan time.Time)
	go s.dispatch(ctx, work)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case at := <-work:
			s.Tick(at)
			s.busy.Store(false)
		}
	}
}

// dispatch is the timer context: it never does I/O, only hands fires to the
// worker. A fire that arrives while the worker holds a tick is dropped, never
// queued, so every reading closes its pulse window at its own fire time.
func (s *Scheduler) dispatch(ctx context.Context, work chan<- time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-s.ticker.C():
			if !s.busy.CompareAndSwap(false, true) {
				s.overruns.Add(1)
				s.logger.Warn("tick overrun, timer fire dropped", "at", at)
				if s.recorder != nil {
					s.recorder.RecordOverrun()
				}
				continue
			}
			select {
			case work <- at:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Sample reads the counter and both analog channels and composes a reading.
func (s *Scheduler) Sample(at time.Time) reading.Reading {
	// Counter first so the pulse interval closes as near the fire time as possible.
	pulses, status := s.counter.ReadAndReset()
	vane := s.level(s.cfg.VaneChannel)
	temp := s.level(s.cfg.TemperatureChannel)
	return reading.Compose(at, vane, temp, pulses, status)
}

func (s *Scheduler) level(ch adc.Channel) reading.Level {
	raw, err := s.sampler.Sample(ch)
	if err != nil {
		s.logger.Warn("analog read failed", "channel", ch.String(), "error", err)
	}
	return reading.Level{Raw: raw, Err: err}
}

// Tick runs one sample-compose-publish sequence. It always completes and
// always attempts exactly one publish; failures are logged, never returned
// as an aborted tick.
func (s *Scheduler) Tick(at time.Time) Result {
	prev := s.State()
	s.state.Store(int32(StateSampling))

	r := s.Sample(at)
	payload := reading.Serialize(r)

	s.logger.Info("tick",
		"vane_adc", r.VaneLevel,
		"temp_adc", r.TemperatureLevel,
		"pulse", r.PulseCount,
		"status", r.CounterStatus.String(),
	)
	if r.Degraded() {
		s.logger.Warn("degraded reading", "counter_status", r.CounterStatus.String(), "faults", r.Faults)
	}

	s.state.Store(int32(StatePublishing))
	err := s.sink.Publish(s.cfg.Topic, payload)
	if err != nil {
		// At-most-once: the reading is dropped, the next tick is unaffected.
		s.logger.Warn("publish failed, reading dropped", "topic", s.cfg.Topic, "error", err)
	}

	if s.recorder != nil {
		s.recorder.Record(r, payload, err)
	}
	s.ticks.Add(1)

	if prev == StateUninitialized {
		s.state.Store(int32(StateUninitialized))
	} else {
		s.state.Store(int32(StateArmed))
	}
	return Result{Reading: r, Payload: payload, PublishErr: err}
}
