package main

import (
	"sync"
	"time"

	"github.com/ericogr/field-datalogger/pkg/clock"
	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/hal"
)

// pinSource hands out the lines and devices sensors are built from, backed
// either by periph.io hardware or by simulated pins.
type pinSource interface {
	output(name string) (hal.OutputPin, error)
	echo(name string, trigger hal.OutputPin) (hal.InputPin, error)
	edge(name string) (hal.EdgePin, error)
	// analog returns an ADC channel. roomRaw is the count the simulated
	// channel reports, the circuit's reading near 25 °C.
	analog(channel int, roomRaw int32) (hal.AnalogPin, error)
	env(addr int) (hal.EnvSensor, error)
	adcMax() float32
	Close() error
}

// ADS1115 counts at 5 V when full scale is ±4.096 V.
const ads1115Counts5V = 32767 * 5 / 4.096

type hardwarePins struct {
	host       *hal.Host
	adcAddr    uint16
	sampleRate int
}

func newHardwarePins(bus string, adcAddr, sampleRate int) (*hardwarePins, error) {
	h, err := hal.Open(bus)
	if err != nil {
		return nil, err
	}
	return &hardwarePins{host: h, adcAddr: uint16(adcAddr), sampleRate: sampleRate}, nil
}

func (p *hardwarePins) output(name string) (hal.OutputPin, error) { return p.host.Pin(name) }

func (p *hardwarePins) echo(name string, _ hal.OutputPin) (hal.InputPin, error) {
	return p.host.Pin(name)
}

func (p *hardwarePins) edge(name string) (hal.EdgePin, error) { return p.host.Pin(name) }

func (p *hardwarePins) analog(channel int, _ int32) (hal.AnalogPin, error) {
	return p.host.ADS1115(p.adcAddr, channel, p.sampleRate)
}

func (p *hardwarePins) env(addr int) (hal.EnvSensor, error) { return p.host.BME280(uint16(addr)) }

func (p *hardwarePins) adcMax() float32 { return ads1115Counts5V }

func (p *hardwarePins) Close() error { return p.host.Close() }

// simPins fakes every line in memory: echoes return about one meter away,
// analog channels sit near room temperature and buckets tip every few
// seconds.
type simPins struct {
	clock clock.Clock
	mu    sync.Mutex
	outs  map[string]*hal.SimPin
}

func newSimPins(c clock.Clock) *simPins {
	return &simPins{clock: c, outs: map[string]*hal.SimPin{}}
}

func (p *simPins) output(name string) (hal.OutputPin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pin, ok := p.outs[name]
	if !ok {
		pin = hal.NewSimPin(p.clock)
		p.outs[name] = pin
	}
	return pin, nil
}

func (p *simPins) echo(name string, trigger hal.OutputPin) (hal.InputPin, error) {
	sp, ok := trigger.(*hal.SimPin)
	if !ok {
		return nil, errors.Newf(errors.ErrInitHardware, "echo %q needs a simulated trigger", name)
	}
	return &hal.SimEcho{Trigger: sp, Clock: p.clock, Delay: 5800 * time.Microsecond}, nil
}

func (p *simPins) edge(string) (hal.EdgePin, error) {
	return &hal.SimEdge{MaxGap: 10 * time.Second}, nil
}

func (p *simPins) analog(_ int, roomRaw int32) (hal.AnalogPin, error) {
	return &hal.SimAnalog{Raw: roomRaw, Jitter: 2, VRef: 5, Max: 1023}, nil
}

func (p *simPins) env(int) (hal.EnvSensor, error) {
	return &hal.SimEnv{TempC: 22, Humidity: 55}, nil
}

func (p *simPins) adcMax() float32 { return 1023 }

func (p *simPins) Close() error { return nil }
