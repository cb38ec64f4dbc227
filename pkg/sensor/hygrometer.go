package sensor

import (
	"math"

	"github.com/ericogr/field-datalogger/pkg/hal"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"periph.io/x/conn/v3/physic"
)

// Hygrometer reports air temperature (°C) and relative humidity (%).
// Each value is a fresh Sense call; a failed one yields NaN.
type Hygrometer struct {
	label string
	dev   hal.EnvSensor
}

func NewHygrometer(label string, dev hal.EnvSensor) *Hygrometer {
	return &Hygrometer{label: label, dev: dev}
}

func (h *Hygrometer) ValueCount() int { return 2 }

func (h *Hygrometer) Name(i int) string {
	switch i {
	case 0:
		return h.label + "_temperature"
	case 1:
		return h.label + "_humidity"
	default:
		return ""
	}
}

func (h *Hygrometer) Value(i int) float64 {
	var e physic.Env
	if err := h.dev.Sense(&e); err != nil {
		logger.Debug().Err(err).Str("sensor", h.label).Msg("hygrometer read failed")
		return math.NaN()
	}
	switch i {
	case 0:
		return float64(e.Temperature-physic.ZeroCelsius) / float64(physic.Kelvin)
	case 1:
		return float64(e.Humidity) / float64(physic.PercentRH)
	default:
		return 0
	}
}
