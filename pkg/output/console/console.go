package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/output"
	"go.bug.st/serial"
)

// ConsoleOutput prints one "name: value, name: value" line per tick to
// stdout or to a serial port.
type ConsoleOutput struct {
	w      io.Writer
	closer io.Closer
}

func NewConsole() *ConsoleOutput { return &ConsoleOutput{} }

// NewSerialConsole writes to the serial port at portName, e.g. /dev/ttyUSB0.
func NewSerialConsole(portName string, baud int) (*ConsoleOutput, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInitOutput, err, "open serial %s", portName)
	}
	return &ConsoleOutput{w: port, closer: port}, nil
}

func (c *ConsoleOutput) OutputData(names []string, values []float64) {
	parts := make([]string, len(values))
	for i := range values {
		parts[i] = names[i] + ": " + output.FormatValue(values[i])
	}
	w := c.w
	if w == nil {
		w = os.Stdout
	}
	// nothing useful to do if the console itself is gone
	_, _ = fmt.Fprintln(w, strings.Join(parts, ", "))
}

func (c *ConsoleOutput) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
