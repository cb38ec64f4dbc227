package sensor

import (
	"sync"
	"sync/atomic"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/hal"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"periph.io/x/conn/v3/gpio"
)

// PulseCounter is written by one edge source and drained once per tick.
type PulseCounter struct {
	n atomic.Int64
}

func (c *PulseCounter) Pulse() { c.n.Add(1) }

// Take returns the pulses seen since the previous Take and resets to zero.
func (c *PulseCounter) Take() int64 { return c.n.Swap(0) }

// TippingBucket counts rain-gauge bucket tips between ticks.
type TippingBucket struct {
	label     string
	counter   PulseCounter
	edge      hal.EdgePin
	stop      chan struct{}
	done      sync.WaitGroup
	closeOnce sync.Once
}

// NewTippingBucket starts watching rising edges on edge. A nil edge leaves
// the counter to be fed through Counter.
func NewTippingBucket(label string, edge hal.EdgePin) (*TippingBucket, error) {
	t := &TippingBucket{label: label, edge: edge, stop: make(chan struct{})}
	if edge == nil {
		return t, nil
	}
	if err := edge.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, errors.Wrapf(errors.ErrInitSensor, err, "tipping bucket %s", label)
	}
	t.done.Add(1)
	go t.watch()
	return t, nil
}

func (t *TippingBucket) watch() {
	defer t.done.Done()
	for {
		if t.edge.WaitForEdge(-1) {
			t.counter.Pulse()
			continue
		}
		select {
		case <-t.stop:
			return
		default:
		}
	}
}

func (t *TippingBucket) Counter() *PulseCounter { return &t.counter }

func (t *TippingBucket) ValueCount() int { return 1 }

func (t *TippingBucket) Name(int) string { return "tipping_bucket_" + t.label + "_pulses" }

func (t *TippingBucket) Value(int) float64 { return float64(t.counter.Take()) }

// Close stops the edge watcher. Later calls are no-ops.
func (t *TippingBucket) Close() error {
	if t.edge == nil {
		return nil
	}
	t.closeOnce.Do(func() {
		close(t.stop)
		if err := t.edge.Halt(); err != nil {
			logger.Warn().Err(err).Str("sensor", t.label).Msg("halt edge watcher")
		}
		t.done.Wait()
	})
	return nil
}
