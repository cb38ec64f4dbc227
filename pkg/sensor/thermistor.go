package sensor

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/ericogr/field-datalogger/pkg/hal"
	"github.com/ericogr/field-datalogger/pkg/logger"
)

// Four-coefficient Steinhart–Hart fit of the probe thermistor.
const (
	thermA = 0.003354015
	thermB = 0.000256277
	thermC = 0.000002082921
	thermD = 0.000000073003206

	probeResistor = 10000
	probeOffsetK  = 273.5
)

// Thermistor reads a probe thermistor wired as the low side of a divider
// with a 10 kΩ resistor. A failed ADC read yields NaN.
type Thermistor struct {
	label string
	pin   hal.AnalogPin

	// ADCMax and ARef scale raw counts to volts.
	ADCMax float32
	ARef   float32
}

func NewThermistor(label string, pin hal.AnalogPin) *Thermistor {
	return &Thermistor{label: label, pin: pin, ADCMax: defaultADCMax, ARef: 5}
}

func (t *Thermistor) ValueCount() int { return 1 }

func (t *Thermistor) Name(int) string { return "thermistor_" + t.label + "_temperature" }

func (t *Thermistor) Value(int) float64 {
	s, err := t.pin.Read()
	if err != nil {
		logger.Debug().Err(err).Str("sensor", t.label).Msg("thermistor read failed")
		return math.NaN()
	}
	vout := float32(s.Raw) * t.ARef / t.ADCMax
	return float64(t.celsius(vout))
}

func (t *Thermistor) celsius(vout float32) float32 {
	ratio := vout / t.ARef
	rt := (probeResistor * ratio) / (1 - ratio)
	ln := math32.Log(rt / probeResistor)
	tempK := 1 / (thermA + thermB*ln + thermC*ln*ln + thermD*ln*ln*ln)
	return tempK - probeOffsetK
}
