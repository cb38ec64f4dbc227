// Package clock provides the monotonic time source used by sensor drivers
// and the transport, with a fake for tests.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic microsecond counter plus a blocking delay.
type Clock interface {
	Micros() uint64
	Sleep(d time.Duration)
}

// System is the process clock. Micros counts from the first call to New.
type System struct {
	epoch time.Time
}

func New() *System {
	return &System{epoch: time.Now()}
}

func (s *System) Micros() uint64 {
	return uint64(time.Since(s.epoch).Microseconds())
}

func (s *System) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Fake is a manually driven clock. Sleep advances time instead of blocking.
// Step, when non-zero, is added after every Micros call so busy-wait loops
// make progress.
type Fake struct {
	mu     sync.Mutex
	now    uint64
	Step   uint64
	slept  []time.Duration
	script []uint64
}

func NewFake(start uint64) *Fake {
	return &Fake{now: start}
}

// Script makes the next Micros calls return values in order, after which
// the clock resumes from the last scripted value.
func (f *Fake) Script(values ...uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, values...)
}

func (f *Fake) Micros() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.script) > 0 {
		f.now = f.script[0]
		f.script = f.script[1:]
		return f.now
	}
	v := f.now
	f.now += f.Step
	return v
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += uint64(d.Microseconds())
}

func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept = append(f.slept, d)
	f.now += uint64(d.Microseconds())
}

// Slept returns every duration passed to Sleep so far.
func (f *Fake) Slept() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.slept...)
}
