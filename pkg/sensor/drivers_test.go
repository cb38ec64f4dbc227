package sensor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThermistor(t *testing.T) {
	th := NewThermistor("A1", rawPin{raw: 512})
	assert.Equal(t, 1, th.ValueCount())
	assert.Equal(t, "thermistor_A1_temperature", th.Name(0))
	assert.InDelta(t, 24.6056, th.Value(0), 1e-3)

	failing := NewThermistor("A2", rawPin{err: errBus})
	assert.True(t, math.IsNaN(failing.Value(0)))
}

func TestHygrometer(t *testing.T) {
	dev := &envStub{tempC: 21.5, rh: 40}
	h := NewHygrometer("bme280", dev)

	require.Equal(t, 2, h.ValueCount())
	assert.Equal(t, "bme280_temperature", h.Name(0))
	assert.Equal(t, "bme280_humidity", h.Name(1))
	assert.InDelta(t, 21.5, h.Value(0), 1e-6)
	assert.InDelta(t, 40.0, h.Value(1), 1e-4)
	assert.Equal(t, 2, dev.calls)

	dev.err = errBus
	assert.True(t, math.IsNaN(h.Value(0)))
	assert.True(t, math.IsNaN(h.Value(1)))
}

func TestPulseCounterTakeResets(t *testing.T) {
	var c PulseCounter
	c.Pulse()
	c.Pulse()
	assert.Equal(t, int64(2), c.Take())
	assert.Equal(t, int64(0), c.Take())
}

func TestTippingBucketWithoutEdge(t *testing.T) {
	tb, err := NewTippingBucket("GPIO17", nil)
	require.NoError(t, err)
	assert.Equal(t, "tipping_bucket_GPIO17_pulses", tb.Name(0))

	for i := 0; i < 3; i++ {
		tb.Counter().Pulse()
	}
	assert.Equal(t, 3.0, tb.Value(0))
	assert.Equal(t, 0.0, tb.Value(0))
	assert.NoError(t, tb.Close())
}

func TestTippingBucketCountsEdges(t *testing.T) {
	edge := newChanEdge()
	tb, err := NewTippingBucket("GPIO27", edge)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		edge.edges <- struct{}{}
	}
	assert.Eventually(t, func() bool {
		return tb.counter.n.Load() == 5
	}, time.Second, time.Millisecond)

	assert.Equal(t, 5.0, tb.Value(0))
	require.NoError(t, tb.Close())
	assert.Equal(t, 0.0, tb.Value(0))
}

func TestTippingBucketCloseTwice(t *testing.T) {
	tb, err := NewTippingBucket("GPIO27", newChanEdge())
	require.NoError(t, err)

	require.NoError(t, tb.Close())
	assert.NotPanics(t, func() { require.NoError(t, tb.Close()) })
}
