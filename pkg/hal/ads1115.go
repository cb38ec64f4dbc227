package hal

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01

	// ±4.096V full scale
	ads1115FullScale = 4.096
)

// Tx is the register transport of an I²C device; *i2c.Dev satisfies it.
type Tx interface {
	Tx(w, r []byte) error
}

// ADS1115Channel reads one single-ended input of an ADS1115 in single-shot
// mode. Channels sharing a chip share its Tx and must not be read
// concurrently, so reads are serialized per channel.
type ADS1115Channel struct {
	dev        Tx
	channel    int
	sampleRate int
	sleep      func(time.Duration)
	mu         sync.Mutex
}

func NewADS1115Channel(dev Tx, channel, sampleRate int) *ADS1115Channel {
	if sampleRate <= 0 {
		sampleRate = 128
	}
	return &ADS1115Channel{dev: dev, channel: channel, sampleRate: sampleRate, sleep: time.Sleep}
}

func (c *ADS1115Channel) String() string {
	return fmt.Sprintf("ads1115/A%d", c.channel)
}

// Read triggers one conversion and returns the raw count and voltage.
func (c *ADS1115Channel) Read() (analog.Sample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msb, lsb, err := configForChannel(c.channel, c.sampleRate)
	if err != nil {
		return analog.Sample{}, err
	}
	if err := c.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return analog.Sample{}, fmt.Errorf("write config: %w", err)
	}
	// wait for conversion
	delayMs := int(1000.0/float64(c.sampleRate)) + 2
	c.sleep(time.Duration(delayMs) * time.Millisecond)

	readBuf := make([]byte, 2)
	if err := c.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return analog.Sample{}, fmt.Errorf("read conv: %w", err)
	}
	raw := int16(readBuf[0])<<8 | int16(readBuf[1])
	volts := float64(raw) * ads1115FullScale / 32768.0
	return analog.Sample{
		V:   physic.ElectricPotential(volts * float64(physic.Volt)),
		Raw: int32(raw),
	}, nil
}

// data rate codes by samples per second
var dataRates = map[int]uint16{8: 0, 16: 1, 32: 2, 64: 3, 128: 4, 250: 5, 475: 6, 860: 7}

const (
	cfgStartSingle = 1 << 15
	cfgMuxSingle   = 0x4 << 12 // AINx vs GND, channel added to the low bits
	cfgPGA4096     = 0x1 << 9
	cfgModeSingle  = 1 << 8
	cfgCompDisable = 0x3
)

// configForChannel encodes the config register for one single-shot
// conversion of channel. Unknown rates fall back to 128 SPS.
func configForChannel(channel, sampleRate int) (byte, byte, error) {
	if channel < 0 || channel > 3 {
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	dr, ok := dataRates[sampleRate]
	if !ok {
		dr = dataRates[128]
	}
	reg := uint16(cfgStartSingle|cfgMuxSingle|cfgPGA4096|cfgModeSingle|cfgCompDisable) |
		uint16(channel)<<12 | dr<<5
	return byte(reg >> 8), byte(reg), nil
}
