package sensor

import (
	"math"
	"time"

	"github.com/chewxy/math32"
	"github.com/ericogr/field-datalogger/pkg/clock"
	"github.com/ericogr/field-datalogger/pkg/hal"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"github.com/ericogr/field-datalogger/pkg/metrics"
	"periph.io/x/conn/v3/gpio"
)

const (
	// EchoTimeout bounds the echo wait, in clock microseconds.
	EchoTimeout = 1000000

	thermSamples     = 3
	thermSampleDelay = 10 * time.Millisecond
	powerSettleLow   = 5 * time.Millisecond
	powerSettleHigh  = 20 * time.Millisecond

	// Beta-form Steinhart–Hart parameters of the enclosure thermistor.
	thermNominal     = 10000
	thermNominalTemp = 25
	thermBeta        = 3950
	thermSeries      = 1586
	defaultADCMax    = 1023
)

// SoundSpeed returns the speed of sound in m/s at tempC.
func SoundSpeed(tempC float64) float64 {
	return 331.4 + 0.607*tempC
}

// Ultrasonic ranges with a transducer that raises Echo once its ping
// returns, correcting for air temperature read from a companion thermistor.
//
// A failed attempt (no echo within EchoTimeout, clock irregularity, an
// implausible duration or no usable thermistor read) reads exactly 0. LastValid tells the two apart for
// callers that care.
type Ultrasonic struct {
	power hal.OutputPin
	init  hal.OutputPin
	echo  hal.InputPin
	therm hal.AnalogPin
	clock clock.Clock

	// ADCMax is the full-scale raw count of the thermistor channel.
	ADCMax float32

	lastValid bool
}

func NewUltrasonic(power, init hal.OutputPin, echo hal.InputPin, therm hal.AnalogPin, c clock.Clock) *Ultrasonic {
	return &Ultrasonic{power: power, init: init, echo: echo, therm: therm, clock: c, ADCMax: defaultADCMax}
}

func (u *Ultrasonic) ValueCount() int { return 1 }

func (u *Ultrasonic) Name(int) string { return "ultrasonic_distance" }

func (u *Ultrasonic) Value(int) float64 { return u.Distance() }

// LastValid reports whether the most recent Distance call produced a
// measurement rather than the 0 sentinel.
func (u *Ultrasonic) LastValid() bool { return u.lastValid }

// Temperature averages the successful reads out of thermSamples raw
// thermistor samples and converts them to °C. It returns NaN when every
// read fails or the average is outside the divider's range.
func (u *Ultrasonic) Temperature() float64 {
	var sum float32
	var n int
	for i := 0; i < thermSamples; i++ {
		s, err := u.therm.Read()
		if err != nil {
			logger.Debug().Err(err).Msg("thermistor read failed")
		} else {
			sum += float32(s.Raw)
			n++
		}
		u.clock.Sleep(thermSampleDelay)
	}
	if n == 0 {
		return math.NaN()
	}
	avg := sum / float32(n)
	if avg <= 0 || avg >= u.ADCMax {
		logger.Debug().Float32("avg", avg).Msg("thermistor average out of range")
		return math.NaN()
	}

	r := u.ADCMax/avg - 1
	r = thermSeries / r

	st := r / thermNominal
	st = math32.Log(st)
	st /= thermBeta
	st += 1.0 / (thermNominalTemp + 273.15)
	st = 1.0 / st
	st -= 273.15
	return float64(st)
}

// Distance performs one ranging cycle and returns meters, or 0 on failure.
// Power and Init are low when it returns.
func (u *Ultrasonic) Distance() float64 {
	u.lastValid = false
	temp := u.Temperature()
	if math.IsNaN(temp) {
		// no trustworthy speed of sound, so no ping
		logger.Warn().Msg("ultrasonic enclosure temperature unavailable")
		metrics.RangingFailures.Inc()
		return 0
	}

	u.out(u.init, gpio.Low)
	u.out(u.power, gpio.Low)
	u.clock.Sleep(powerSettleLow)
	u.out(u.power, gpio.High)
	u.clock.Sleep(powerSettleHigh)
	u.out(u.init, gpio.High)

	start := u.clock.Micros()
	echoed := true
	for u.echo.Read() == gpio.Low {
		now := u.clock.Micros()
		if now < start || now-start >= EchoTimeout {
			echoed = false
			break
		}
	}
	stop := u.clock.Micros()
	u.out(u.init, gpio.Low)
	u.out(u.power, gpio.Low)

	if !echoed || stop < start {
		logger.Debug().Uint64("start", start).Uint64("stop", stop).Msg("ultrasonic echo timed out")
		metrics.RangingFailures.Inc()
		return 0
	}
	// the transducer's high pulse spans the round trip
	duration := float64(stop-start) / 2.0
	if duration >= EchoTimeout || duration <= 0 {
		logger.Debug().Float64("duration_us", duration).Msg("ultrasonic duration out of range")
		metrics.RangingFailures.Inc()
		return 0
	}

	speed := float32(SoundSpeed(temp))
	u.lastValid = true
	return float64(speed * float32(duration) / 1000000.0)
}

func (u *Ultrasonic) out(p hal.OutputPin, l gpio.Level) {
	if err := p.Out(l); err != nil {
		logger.Debug().Err(err).Str("level", l.String()).Msg("ultrasonic pin write failed")
	}
}
