package hal

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ericogr/field-datalogger/pkg/clock"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// SimPin is an in-memory digital line. It records when its level last
// changed so a SimEcho can answer relative to the trigger.
type SimPin struct {
	mu    sync.Mutex
	clock clock.Clock
	level gpio.Level
	since uint64
}

func NewSimPin(c clock.Clock) *SimPin {
	return &SimPin{clock: c}
}

func (p *SimPin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l != p.level {
		p.level = l
		p.since = p.clock.Micros()
	}
	return nil
}

func (p *SimPin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *SimPin) state() (gpio.Level, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, p.since
}

// SimEcho rises once Trigger has been high for Delay.
type SimEcho struct {
	Trigger *SimPin
	Clock   clock.Clock
	Delay   time.Duration
}

func (e *SimEcho) Read() gpio.Level {
	l, since := e.Trigger.state()
	if l == gpio.Low {
		return gpio.Low
	}
	if e.Clock.Micros()-since >= uint64(e.Delay.Microseconds()) {
		return gpio.High
	}
	return gpio.Low
}

// SimAnalog returns Raw plus up to Jitter counts of noise.
type SimAnalog struct {
	Raw    int32
	Jitter int32
	VRef   float64
	Max    int32
}

func (a *SimAnalog) Read() (analog.Sample, error) {
	raw := a.Raw
	if a.Jitter > 0 {
		raw += rand.Int31n(2*a.Jitter+1) - a.Jitter
	}
	s := analog.Sample{Raw: raw}
	if a.Max > 0 {
		s.V = physic.ElectricPotential(float64(raw) / float64(a.Max) * a.VRef * float64(physic.Volt))
	}
	return s, nil
}

// SimEnv reports a slowly varying temperature and humidity.
type SimEnv struct {
	TempC    float64
	Humidity float64
}

func (s *SimEnv) Sense(e *physic.Env) error {
	t := s.TempC + rand.Float64() - 0.5
	h := s.Humidity + 2*rand.Float64() - 1
	e.Temperature = physic.ZeroCelsius + physic.Temperature(t*float64(physic.Kelvin))
	e.Humidity = physic.RelativeHumidity(h * float64(physic.PercentRH))
	return nil
}

// SimEdge emits a rising edge at random intervals up to MaxGap.
type SimEdge struct {
	MaxGap time.Duration
	once   sync.Once
	halt   chan struct{}
}

func (s *SimEdge) init() {
	s.once.Do(func() { s.halt = make(chan struct{}) })
}

func (s *SimEdge) In(gpio.Pull, gpio.Edge) error {
	s.init()
	return nil
}

func (s *SimEdge) WaitForEdge(timeout time.Duration) bool {
	s.init()
	gap := time.Duration(rand.Int63n(int64(s.MaxGap) + 1))
	edge := true
	if timeout >= 0 && gap > timeout {
		gap, edge = timeout, false
	}
	select {
	case <-time.After(gap):
		return edge
	case <-s.halt:
		return false
	}
}

func (s *SimEdge) Halt() error {
	s.init()
	select {
	case <-s.halt:
	default:
		close(s.halt)
	}
	return nil
}
