package sensor

import (
	"io"

	"github.com/ericogr/field-datalogger/pkg/errors"
)

// Reading is one named scalar produced during a tick.
type Reading struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Sensor is implemented by every driver. Value performs the physical
// acquisition synchronously and reports faults as a sentinel (0 or NaN,
// documented per driver). Callers keep 0 <= i < ValueCount().
type Sensor interface {
	ValueCount() int
	Value(i int) float64
	Name(i int) string
}

// Array samples its sensors in registration order.
type Array struct {
	sensors []Sensor
}

func NewArray(sensors ...Sensor) *Array {
	return &Array{sensors: sensors}
}

func (a *Array) Add(s Sensor) {
	a.sensors = append(a.sensors, s)
}

// Len returns the number of values one Sample produces.
func (a *Array) Len() int {
	n := 0
	for _, s := range a.sensors {
		n += s.ValueCount()
	}
	return n
}

// Sample reads every value of every sensor, flattened in registration then
// index order. Nothing is cached or deduplicated.
func (a *Array) Sample() []Reading {
	out := make([]Reading, 0, a.Len())
	for _, s := range a.sensors {
		for i := 0; i < s.ValueCount(); i++ {
			out = append(out, Reading{Name: s.Name(i), Value: s.Value(i)})
		}
	}
	return out
}

// Close closes every sensor that holds a resource.
func (a *Array) Close() error {
	var errs []error
	for _, s := range a.sensors {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Wrap(errors.ErrClose, errors.Join(errs...))
}

// Split separates readings into parallel name and value slices.
func Split(readings []Reading) ([]string, []float64) {
	names := make([]string, len(readings))
	values := make([]float64, len(readings))
	for i, r := range readings {
		names[i] = r.Name
		values[i] = r.Value
	}
	return names, values
}
