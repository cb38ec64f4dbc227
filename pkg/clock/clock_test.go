package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeStepAndSleep(t *testing.T) {
	f := NewFake(100)
	f.Step = 10
	assert.Equal(t, uint64(100), f.Micros())
	assert.Equal(t, uint64(110), f.Micros())

	f.Sleep(5 * time.Millisecond)
	assert.Equal(t, uint64(5120), f.Micros())
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, f.Slept())
}

func TestFakeScript(t *testing.T) {
	f := NewFake(0)
	f.Script(50, 20)
	assert.Equal(t, uint64(50), f.Micros())
	assert.Equal(t, uint64(20), f.Micros())
	assert.Equal(t, uint64(20), f.Micros())
}

func TestSystemIsMonotonic(t *testing.T) {
	c := New()
	a := c.Micros()
	c.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, c.Micros(), a+1000)
}
