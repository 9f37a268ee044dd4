// Package config loads daemon configuration from defaults, an optional YAML
// file and WEATHER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sweeney/weather-station/internal/adc"
	"github.com/sweeney/weather-station/internal/counter"
	"github.com/sweeney/weather-station/internal/mqtt"
)

// EnvPrefix prefixes every environment override, e.g. WEATHER_MQTT_BROKER.
const EnvPrefix = "WEATHER"

// Config holds the application configuration.
type Config struct {
	Period      time.Duration `mapstructure:"period"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	Topic       string        `mapstructure:"topic"`
	SystemTopic string        `mapstructure:"system_topic"`
	HTTPAddr    string        `mapstructure:"http_addr"`

	Log     LogConfig     `mapstructure:"log"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Counter CounterConfig `mapstructure:"counter"`
	ADC     ADCConfig     `mapstructure:"adc"`
}

// LogConfig selects the log handler and level.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// MQTTConfig is the broker endpoint and session settings.
type MQTTConfig struct {
	Broker         string `mapstructure:"broker"`
	ClientID       string `mapstructure:"client_id"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	QoS            int    `mapstructure:"qos"`
	Retain         bool   `mapstructure:"retain"`
	SubscribeTopic string `mapstructure:"subscribe_topic"`
}

// CounterConfig describes the anemometer input line.
type CounterConfig struct {
	Chip          string        `mapstructure:"chip"`
	Line          int           `mapstructure:"line"`
	Edge          string        `mapstructure:"edge"`
	Debounce      time.Duration `mapstructure:"debounce"`
	HighWatermark int32         `mapstructure:"high_watermark"`
}

// ADCConfig describes the analog front end.
type ADCConfig struct {
	Bus         string `mapstructure:"bus"`
	Address     uint16 `mapstructure:"address"`
	Resolution  uint   `mapstructure:"resolution"`
	FullScaleMV int    `mapstructure:"full_scale_mv"`
	VaneChannel int    `mapstructure:"vane_channel"`
	TempChannel int    `mapstructure:"temp_channel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("period", "10s")
	v.SetDefault("heartbeat", "15m")
	v.SetDefault("topic", mqtt.Topic)
	v.SetDefault("system_topic", mqtt.TopicSystem)
	v.SetDefault("http_addr", ":80")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("mqtt.broker", "tcp://192.168.1.200:1883")
	v.SetDefault("mqtt.client_id", "weather-station")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)
	v.SetDefault("mqtt.subscribe_topic", "")

	v.SetDefault("counter.chip", "gpiochip0")
	v.SetDefault("counter.line", 4)
	v.SetDefault("counter.edge", counter.EdgeRising)
	v.SetDefault("counter.debounce", "1ms")
	v.SetDefault("counter.high_watermark", counter.DefaultHighWatermark)

	v.SetDefault("adc.bus", "")
	v.SetDefault("adc.address", 0x48)
	v.SetDefault("adc.resolution", 13)
	v.SetDefault("adc.full_scale_mv", 4096)
	v.SetDefault("adc.vane_channel", int(adc.ChannelVane))
	v.SetDefault("adc.temp_channel", int(adc.ChannelTemperature))
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Period <= 0 {
		errs = append(errs, fmt.Errorf("period must be positive, got %v", c.Period))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat))
	}
	if c.Topic == "" {
		errs = append(errs, errors.New("topic is required"))
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	switch c.Counter.Edge {
	case counter.EdgeRising, counter.EdgeFalling, counter.EdgeBoth:
	default:
		errs = append(errs, fmt.Errorf("counter.edge must be %q, %q or %q, got %q",
			counter.EdgeRising, counter.EdgeFalling, counter.EdgeBoth, c.Counter.Edge))
	}
	if c.Counter.Line < 0 {
		errs = append(errs, fmt.Errorf("counter.line must not be negative, got %d", c.Counter.Line))
	}
	if c.Counter.Debounce < 0 {
		errs = append(errs, fmt.Errorf("counter.debounce must not be negative, got %v", c.Counter.Debounce))
	}
	if c.Counter.HighWatermark <= 0 {
		errs = append(errs, fmt.Errorf("counter.high_watermark must be positive, got %d", c.Counter.HighWatermark))
	}
	if c.ADC.Resolution < 1 || c.ADC.Resolution > 15 {
		errs = append(errs, fmt.Errorf("adc.resolution must be 1..15 bits, got %d", c.ADC.Resolution))
	}
	if c.ADC.FullScaleMV <= 0 {
		errs = append(errs, fmt.Errorf("adc.full_scale_mv must be positive, got %d", c.ADC.FullScaleMV))
	}
	for name, ch := range map[string]int{"adc.vane_channel": c.ADC.VaneChannel, "adc.temp_channel": c.ADC.TempChannel} {
		if ch < 0 || ch > int(adc.MaxChannel) {
			errs = append(errs, fmt.Errorf("%s must be 0..%d, got %d", name, adc.MaxChannel, ch))
		}
	}
	if c.ADC.VaneChannel == c.ADC.TempChannel {
		errs = append(errs, fmt.Errorf("adc.vane_channel and adc.temp_channel must differ, both are %d", c.ADC.VaneChannel))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses Level into a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
