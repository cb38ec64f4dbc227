// Package collector posts readings to the custom data server.
package collector

import (
	"net/url"

	"github.com/ericogr/field-datalogger/pkg/output"
)

const DefaultPort = 80

type Config struct {
	Host     string
	Port     int
	Device   string
	Password string
}

// CollectorOutput registers the device once and then posts one form body
// per tick. Delivery failures stay inside the transport.
type CollectorOutput struct {
	sender output.Sender
	cfg    Config
	base   string
}

// New announces the device with GET /arduinos/<device>/init.
func New(cfg Config, sender output.Sender) *CollectorOutput {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	c := &CollectorOutput{sender: sender, cfg: cfg, base: "/arduinos/" + url.PathEscape(cfg.Device)}
	sender.Send(cfg.Host, cfg.Port, "GET "+c.base+"/init", c.headers(), "")
	return c
}

func (c *CollectorOutput) headers() []string {
	return []string{"X-Password: " + c.cfg.Password}
}

func (c *CollectorOutput) OutputData(names []string, values []float64) {
	c.sender.Send(c.cfg.Host, c.cfg.Port, "POST "+c.base+"/addData", c.headers(), output.EncodeForm(names, values))
}

func (c *CollectorOutput) Close() error { return nil }
