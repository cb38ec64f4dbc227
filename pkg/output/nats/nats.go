// Package nats publishes each tick as one JSON message on a NATS subject.
package nats

import (
	"encoding/json"
	"time"

	"github.com/ericogr/field-datalogger/pkg/config"
	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"github.com/ericogr/field-datalogger/pkg/output"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const DefaultSubject = "datalogger.readings"

type publisher interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// Message is the JSON document published per tick.
type Message struct {
	Device    string         `json:"device"`
	Timestamp int64          `json:"timestamp"`
	Readings  map[string]any `json:"readings"`
}

type NATSOutput struct {
	conn    publisher
	subject string
	device  string
	now     func() time.Time
}

func New(cfg config.NATSConfig, device string) (*NATSOutput, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name(device+"-"+uuid.NewString()[:8]),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInitOutput, err, "nats connect %s", url)
	}
	return newWithConn(nc, cfg.Subject, device, time.Now), nil
}

func newWithConn(conn publisher, subject, device string, now func() time.Time) *NATSOutput {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSOutput{conn: conn, subject: subject, device: device, now: now}
}

func (n *NATSOutput) OutputData(names []string, values []float64) {
	b, err := json.Marshal(Message{
		Device:    n.device,
		Timestamp: n.now().Unix(),
		Readings:  output.ReadingMap(names, values),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("nats encode failed")
		return
	}
	if err := n.conn.Publish(n.subject, b); err != nil {
		logger.Warn().Err(err).Str("subject", n.subject).Msg("nats publish failed")
	}
}

// Close drains pending messages before closing the connection.
func (n *NATSOutput) Close() error {
	return errors.Wrap(errors.ErrClose, n.conn.Drain())
}
