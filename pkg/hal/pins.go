// Package hal adapts periph.io pins and devices to the narrow interfaces
// the sensor drivers consume, and provides simulated pins for runs without
// hardware.
package hal

import (
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// OutputPin is a digital line the driver drives. gpio.PinIO satisfies it.
type OutputPin interface {
	Out(l gpio.Level) error
}

// InputPin is a digital line the driver polls. gpio.PinIO satisfies it.
type InputPin interface {
	Read() gpio.Level
}

// EdgePin delivers edges to a watcher goroutine. gpio.PinIO satisfies it.
type EdgePin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Halt() error
}

// AnalogPin is one ADC channel. analog.PinADC and ADS1115Channel satisfy it.
type AnalogPin interface {
	Read() (analog.Sample, error)
}

// EnvSensor is a temperature/humidity device. *bmxx80.Dev satisfies it.
type EnvSensor interface {
	Sense(e *physic.Env) error
}
