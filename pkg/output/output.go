package output

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ericogr/field-datalogger/pkg/errors"
)

// Output receives one complete tick report. names and values are parallel
// and equal in length. Sinks absorb their own faults.
type Output interface {
	OutputData(names []string, values []float64)
	Close() error
}

// PositionalOutput receives only the ordered values; it labels them by
// position itself.
type PositionalOutput interface {
	OutputValues(values []float64)
	Close() error
}

type entry struct {
	general    Output
	positional PositionalOutput
}

// Fanout delivers each tick to every registered sink in registration order.
// A panicking sink is not isolated from the ones after it.
type Fanout struct {
	sinks []entry
}

func NewFanout() *Fanout {
	return &Fanout{}
}

func (f *Fanout) Add(o Output) {
	f.sinks = append(f.sinks, entry{general: o})
}

func (f *Fanout) AddPositional(o PositionalOutput) {
	f.sinks = append(f.sinks, entry{positional: o})
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Dispatch hands the same names and values to every sink exactly once.
func (f *Fanout) Dispatch(names []string, values []float64) {
	for _, s := range f.sinks {
		if s.general != nil {
			s.general.OutputData(names, values)
		} else {
			s.positional.OutputValues(values)
		}
	}
}

// Close closes every sink and returns the joined errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		var err error
		if s.general != nil {
			err = s.general.Close()
		} else {
			err = s.positional.Close()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Wrap(errors.ErrClose, errors.Join(errs...))
}

// FormatValue renders a reading with two decimals, the text convention
// shared by every sink.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// EncodeForm builds a name=value&name=value body with names query-escaped.
func EncodeForm(names []string, values []float64) string {
	var b strings.Builder
	for i := range values {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(names[i]))
		b.WriteByte('=')
		b.WriteString(FormatValue(values[i]))
	}
	return b.String()
}

// EncodePositional builds a field1=v&field2=v body.
func EncodePositional(values []float64) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString("field")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('=')
		b.WriteString(FormatValue(v))
	}
	return b.String()
}

// ReadingMap keys values by name for JSON payloads. NaN has no JSON
// encoding and becomes null.
func ReadingMap(names []string, values []float64) map[string]any {
	m := make(map[string]any, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			m[names[i]] = nil
			continue
		}
		m[names[i]] = v
	}
	return m
}

// Sender delivers one HTTP request; *transport.Client satisfies it.
type Sender interface {
	Send(endpoint string, port int, requestLine string, headers []string, body string) bool
}
