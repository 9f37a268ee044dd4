package adc

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// ads1115Bits is the positive range of a single-ended ADS1115 conversion.
const ads1115Bits = 15

// Config describes the analog front end.
type Config struct {
	Bus        string // I2C bus name, "" for the default bus
	Address    uint16 // I2C address of the converter
	Resolution uint   // bits in the reported raw code
	// FullScale is the input range mapped onto the raw code; it plays the
	// role of attenuation on converters with a programmable gain stage.
	FullScale physic.ElectricPotential
	Channels  []Channel
}

// ADS1115Sampler reads single-ended channels of an ADS1115.
type ADS1115Sampler struct {
	bus        i2c.BusCloser
	dev        *ads1x15.Dev
	pins       map[Channel]ads1x15.PinADC
	resolution uint
}

// NewADS1115Sampler opens the I2C bus and prepares one pin per configured channel.
func NewADS1115Sampler(cfg Config) (*ADS1115Sampler, error) {
	if cfg.Resolution == 0 || cfg.Resolution > 16 {
		return nil, fmt.Errorf("invalid adc resolution %d", cfg.Resolution)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.Bus, err)
	}

	opts := ads1x15.DefaultOpts
	if cfg.Address != 0 {
		opts.I2cAddress = cfg.Address
	}
	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init ads1115 at 0x%02x: %w", opts.I2cAddress, err)
	}

	s := &ADS1115Sampler{
		bus:        bus,
		dev:        dev,
		pins:       make(map[Channel]ads1x15.PinADC, len(cfg.Channels)),
		resolution: cfg.Resolution,
	}
	for _, ch := range cfg.Channels {
		hwCh, err := hardwareChannel(ch)
		if err != nil {
			s.Close()
			return nil, err
		}
		pin, err := dev.PinForChannel(hwCh, cfg.FullScale, 128*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("configure channel %s: %w", ch, err)
		}
		s.pins[ch] = pin
	}
	return s, nil
}

func hardwareChannel(ch Channel) (ads1x15.Channel, error) {
	switch ch {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	default:
		return 0, fmt.Errorf("channel %d out of range 0-%d", int(ch), int(MaxChannel))
	}
}

// Sample performs a one-shot conversion on ch.
func (s *ADS1115Sampler) Sample(ch Channel) (uint32, error) {
	pin, ok := s.pins[ch]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	sample, err := pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", ch, err)
	}
	return Scale(sample.Raw, ads1115Bits, s.resolution), nil
}

// Close halts every pin and releases the bus.
func (s *ADS1115Sampler) Close() error {
	var errs []error
	for ch, pin := range s.pins {
		if err := pin.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", ch, err))
		}
	}
	s.pins = nil
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
		}
		s.bus = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
