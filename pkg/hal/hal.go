package hal

import (
	"fmt"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// Host owns the periph drivers and the I²C bus shared by the ADC and the
// environment sensor.
type Host struct {
	busName string
	bus     i2c.BusCloser
}

// Open initializes periph host drivers. The I²C bus is opened lazily on
// first use so GPIO-only setups work without one.
func Open(i2cBus string) (*Host, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrapf(errors.ErrInitHardware, err, "host init")
	}
	return &Host{busName: i2cBus}, nil
}

func (h *Host) i2c() (i2c.Bus, error) {
	if h.bus != nil {
		return h.bus, nil
	}
	bus, err := i2creg.Open(h.busName)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInitHardware, err, "open i2c %q", h.busName)
	}
	h.bus = bus
	return bus, nil
}

// Pin looks up a GPIO line by name, e.g. "GPIO17".
func (h *Host) Pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Newf(errors.ErrInitHardware, "gpio %q not found", name)
	}
	return p, nil
}

// ADS1115 returns one single-ended channel of an ADS1115 at addr.
func (h *Host) ADS1115(addr uint16, channel, sampleRate int) (*ADS1115Channel, error) {
	bus, err := h.i2c()
	if err != nil {
		return nil, err
	}
	if _, _, err := configForChannel(channel, sampleRate); err != nil {
		return nil, errors.Wrap(errors.ErrInitHardware, err)
	}
	dev := &i2c.Dev{Addr: addr, Bus: bus}
	return NewADS1115Channel(dev, channel, sampleRate), nil
}

// BME280 opens a Bosch BMx280 environment sensor at addr.
func (h *Host) BME280(addr uint16) (EnvSensor, error) {
	bus, err := h.i2c()
	if err != nil {
		return nil, err
	}
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInitHardware, err, "bme280 at 0x%02x", addr)
	}
	return dev, nil
}

func (h *Host) Close() error {
	if h.bus != nil {
		if err := h.bus.Close(); err != nil {
			return fmt.Errorf("close i2c: %w", err)
		}
	}
	return nil
}
