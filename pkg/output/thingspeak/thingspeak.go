// Package thingspeak posts positional fields to a ThingSpeak channel.
package thingspeak

import (
	"github.com/ericogr/field-datalogger/pkg/output"
)

const (
	DefaultHost = "api.thingspeak.com"
	DefaultPort = 80
)

type Config struct {
	Host   string
	Port   int
	APIKey string
}

// ThingSpeakOutput labels values field1, field2, … by position; reading
// names never reach the channel.
type ThingSpeakOutput struct {
	sender output.Sender
	cfg    Config
}

func New(cfg Config, sender output.Sender) *ThingSpeakOutput {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return &ThingSpeakOutput{sender: sender, cfg: cfg}
}

func (t *ThingSpeakOutput) OutputValues(values []float64) {
	t.sender.Send(t.cfg.Host, t.cfg.Port, "POST /update",
		[]string{"X-THINGSPEAKAPIKEY: " + t.cfg.APIKey}, output.EncodePositional(values))
}

func (t *ThingSpeakOutput) Close() error { return nil }
