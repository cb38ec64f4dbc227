package sensor

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

type pinEvent struct {
	pin   string
	level gpio.Level
}

type recorder struct {
	events []pinEvent
}

type recordPin struct {
	name string
	rec  *recorder
	last gpio.Level
}

func (p *recordPin) Out(l gpio.Level) error {
	p.last = l
	p.rec.events = append(p.rec.events, pinEvent{p.name, l})
	return nil
}

type levelPin gpio.Level

func (p levelPin) Read() gpio.Level { return gpio.Level(p) }

type rawPin struct {
	raw int32
	err error
}

func (p rawPin) Read() (analog.Sample, error) {
	return analog.Sample{Raw: p.raw}, p.err
}

// seqPin answers from errs in turn, failing where the entry is non-nil.
type seqPin struct {
	raw  int32
	errs []error
	i    int
}

func (p *seqPin) Read() (analog.Sample, error) {
	var err error
	if p.i < len(p.errs) {
		err = p.errs[p.i]
	}
	p.i++
	return analog.Sample{Raw: p.raw}, err
}

type envStub struct {
	tempC, rh float64
	err       error
	calls     int
}

func (s *envStub) Sense(e *physic.Env) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	e.Temperature = physic.ZeroCelsius + physic.Temperature(s.tempC*float64(physic.Kelvin))
	e.Humidity = physic.RelativeHumidity(s.rh * float64(physic.PercentRH))
	return nil
}

type chanEdge struct {
	edges chan struct{}
	halt  chan struct{}
}

func newChanEdge() *chanEdge {
	return &chanEdge{edges: make(chan struct{}), halt: make(chan struct{})}
}

func (c *chanEdge) In(gpio.Pull, gpio.Edge) error { return nil }

func (c *chanEdge) WaitForEdge(time.Duration) bool {
	select {
	case <-c.edges:
		return true
	case <-c.halt:
		return false
	}
}

func (c *chanEdge) Halt() error {
	close(c.halt)
	return nil
}

var errBus = errors.New("bus error")

type countSensor struct {
	prefix string
	n      int
	reads  *int
}

func (s countSensor) ValueCount() int { return s.n }

func (s countSensor) Name(i int) string { return s.prefix + string(rune('a'+i)) }

func (s countSensor) Value(i int) float64 {
	if s.reads != nil {
		*s.reads++
	}
	return float64(len(s.prefix)*10 + i)
}
