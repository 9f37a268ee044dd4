// Command weather-station samples the wind vane, temperature probe and
// anemometer on a fixed period and publishes each reading to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/weather-station/internal/adc"
	"github.com/sweeney/weather-station/internal/config"
	"github.com/sweeney/weather-station/internal/counter"
	"github.com/sweeney/weather-station/internal/logging"
	"github.com/sweeney/weather-station/internal/mqtt"
	"github.com/sweeney/weather-station/internal/reading"
	"github.com/sweeney/weather-station/internal/scheduler"
	"github.com/sweeney/weather-station/internal/status"
	"github.com/sweeney/weather-station/internal/web"
)

const appName = "weather-station"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults and WEATHER_* env apply without one)")
	printReading := flag.Bool("print-reading", false, "Sample for one period, print the payload and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	logger, err := logging.New(cfg.Log, version, appName)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, logger, *printReading); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, printReading bool) error {
	// Initialize the anemometer counter
	unit, err := counter.NewLineUnit(cfg.Counter.Chip, cfg.Counter.Line, cfg.Counter.Edge, cfg.Counter.Debounce)
	if err != nil {
		return fmt.Errorf("init counter: %w", err)
	}
	acc := counter.NewAccessor(unit, cfg.Counter.HighWatermark, logger)
	defer acc.Close()

	// Initialize the analog front end
	sampler, err := adc.NewADS1115Sampler(adc.Config{
		Bus:        cfg.ADC.Bus,
		Address:    cfg.ADC.Address,
		Resolution: cfg.ADC.Resolution,
		FullScale:  physic.ElectricPotential(cfg.ADC.FullScaleMV) * physic.MilliVolt,
		Channels:   []adc.Channel{adc.Channel(cfg.ADC.VaneChannel), adc.Channel(cfg.ADC.TempChannel)},
	})
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer sampler.Close()

	schedCfg := scheduler.Config{
		Period:             cfg.Period,
		Topic:              cfg.Topic,
		VaneChannel:        adc.Channel(cfg.ADC.VaneChannel),
		TemperatureChannel: adc.Channel(cfg.ADC.TempChannel),
	}

	// Print reading mode
	if printReading {
		return printOneReading(schedCfg, sampler, acc, logger)
	}

	// Initialize status tracker (before MQTT so it sees the first events)
	tracker := status.NewTracker(time.Now(), status.Config{
		PeriodMs:      cfg.Period.Milliseconds(),
		Topic:         cfg.Topic,
		HighWatermark: cfg.Counter.HighWatermark,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTPAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:         cfg.MQTT.Broker,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		QoS:            byte(cfg.MQTT.QoS),
		Retain:         cfg.MQTT.Retain,
		SystemTopic:    cfg.SystemTopic,
		SubscribeTopic: cfg.MQTT.SubscribeTopic,
	}, mqtt.Observers{mqtt.LogObserver{Logger: logger}, tracker})
	publisher.Start()
	defer publisher.Close()

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	sched := scheduler.New(schedCfg, sampler, acc, publisher, logger, scheduler.WithRecorder(tracker))
	if err := sched.Arm(); err != nil {
		return fmt.Errorf("arm scheduler: %w", err)
	}

	logger.Info("started",
		"period", cfg.Period,
		"broker", cfg.MQTT.Broker,
		"topic", cfg.Topic,
		"heartbeat", cfg.Heartbeat,
	)

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Give the first connection a moment so STARTUP is not dropped. Ticks
	// do not wait for it.
	if !waitConnected(publisher, startupConnectTimeout) {
		logger.Warn("broker not connected yet, startup event may be dropped", "broker", cfg.MQTT.Broker)
	}

	return runLoop(sched, publisher, tracker, logger, heartbeat, sigCh)
}

// systemSink publishes lifecycle events and reports connectivity.
type systemSink interface {
	mqtt.SystemPublisher
	mqtt.ConnectionStatus
}

// runLoop publishes STARTUP, runs the scheduler until a signal arrives, then
// publishes SHUTDOWN. Heartbeats are published between.
func runLoop(sched *scheduler.Scheduler, publisher systemSink, tracker *status.Tracker, logger *slog.Logger, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	publishStatus(publisher, tracker, logger, "STARTUP", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	for {
		select {
		case s := <-sig:
			logger.Info("shutting down", "signal", s)
			cancel()
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduler stopped with error", "error", err)
			}
			publishStatus(publisher, tracker, logger, "SHUTDOWN", signalName(s))
			return nil

		case <-heartbeat:
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			publishStatus(publisher, tracker, logger, "HEARTBEAT", "")

		case err := <-done:
			return fmt.Errorf("scheduler stopped: %w", err)
		}
	}
}

func publishStatus(publisher systemSink, tracker *status.Tracker, logger *slog.Logger, event, reason string) {
	tracker.SetMQTTConnected(publisher.IsConnected())
	snap := tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := publisher.PublishSystem(se); err != nil {
		logger.Warn("failed to publish system event", "event", event, "error", err)
		return
	}
	logger.Info("published system event", "event", event)
}

const startupConnectTimeout = 5 * time.Second

// waitConnected polls c until it reports connected or timeout elapses.
func waitConnected(c mqtt.ConnectionStatus, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for !c.IsConnected() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	return true
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// printOneReading lets edges accumulate for one period, then prints the payload.
func printOneReading(cfg scheduler.Config, sampler adc.Sampler, ctr scheduler.Counter, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Discard anything counted while the line was being configured.
	ctr.ReadAndReset()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(cfg.Period):
	}

	sched := scheduler.New(cfg, sampler, ctr, nil, logger)
	r := sched.Sample(time.Now())
	fmt.Printf("%s\n", reading.Serialize(r))
	if r.Degraded() {
		return fmt.Errorf("reading degraded: counter=%s faults=%d", r.CounterStatus, r.Faults)
	}
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
