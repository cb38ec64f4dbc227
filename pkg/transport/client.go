// Package transport delivers HTTP requests to collectors over raw TCP and
// re-establishes the network link after repeated delivery failures.
package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ericogr/field-datalogger/pkg/clock"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"github.com/ericogr/field-datalogger/pkg/metrics"
)

const (
	DefaultReconnectThreshold = 20
	DefaultConnectAttempts    = 4
)

// Dialer opens TCP connections; *net.Dialer satisfies it.
type Dialer interface {
	Dial(network, address string) (net.Conn, error)
}

type Config struct {
	// ReconnectThreshold is the failure count that triggers Reconnect.
	ReconnectThreshold int
	// ConnectAttempts bounds one Reconnect run.
	ConnectAttempts int
	// Settle is the fixed delay before and between association attempts.
	Settle time.Duration
	// WriteTimeout bounds the request write.
	WriteTimeout time.Duration
	// ProbeTimeout bounds the connected check after the write.
	ProbeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ReconnectThreshold: DefaultReconnectThreshold,
		ConnectAttempts:    DefaultConnectAttempts,
		Settle:             time.Second,
		WriteTimeout:       10 * time.Second,
		ProbeTimeout:       100 * time.Millisecond,
	}
}

type Option func(*Client)

func WithFraming(f Framing) Option {
	return func(c *Client) { c.framing = f }
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// Client sends requests one at a time and counts consecutive failures.
// It is not safe for concurrent use.
type Client struct {
	cfg      Config
	dialer   Dialer
	link     Link
	framing  Framing
	clock    clock.Clock
	failures int
}

func New(cfg Config, dialer Dialer, link Link, opts ...Option) *Client {
	if cfg.ReconnectThreshold <= 0 {
		cfg.ReconnectThreshold = DefaultReconnectThreshold
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = DefaultConnectAttempts
	}
	if link == nil {
		link = NopLink{}
	}
	c := &Client{
		cfg:     cfg,
		dialer:  dialer,
		link:    link,
		framing: DefaultFraming(),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Failures is the number of failed sends since the last success or
// reconnect.
func (c *Client) Failures() int { return c.failures }

// Send writes one request to endpoint:port and reports whether the
// connection was still up afterwards. Once failures reach the threshold the
// link is re-established, the count is cleared and Send reports failure.
func (c *Client) Send(endpoint string, port int, requestLine string, headers []string, body string) bool {
	logger.Debug().Str("endpoint", endpoint).Str("request", requestLine).Msg("Sending HTTP message")

	ok := false
	err := c.deliver(endpoint, port, requestLine, headers, body)
	if err == nil {
		c.failures = 0
		ok = true
		metrics.Sends.WithLabelValues("ok").Inc()
		logger.Info().Str("endpoint", endpoint).Msg("Successfully sent message")
	} else {
		c.failures++
		metrics.Sends.WithLabelValues("failed").Inc()
		logger.Warn().Err(err).
			Str("endpoint", endpoint).
			Int("failures", c.failures).
			Msg("Connection to host failed")
	}

	if c.failures >= c.cfg.ReconnectThreshold {
		c.Reconnect()
		c.failures = 0
		ok = false
	}
	metrics.Failures.Set(float64(c.failures))
	return ok
}

var errDropped = errors.New("connection dropped before completion")

func (c *Client) deliver(endpoint string, port int, requestLine string, headers []string, body string) error {
	conn, err := c.dialer.Dial("tcp", net.JoinHostPort(endpoint, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	defer conn.Close()

	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := io.WriteString(conn, c.framing.Frame(endpoint, requestLine, headers, body)); err != nil {
		return err
	}

	if d := c.framing.Settle(); d > 0 {
		c.clock.Sleep(d)
	}
	if !c.connected(conn) {
		return errDropped
	}
	return nil
}

// connected treats a connection with pending data, or one that is merely
// quiet, as up. Only EOF or a socket error counts as dropped.
func (c *Client) connected(conn net.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ProbeTimeout))
	var buf [1]byte
	n, err := conn.Read(buf[:])
	if n > 0 {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Reconnect re-associates with the network, trying up to ConnectAttempts
// times with the settle delay in between. Giving up is only logged.
func (c *Client) Reconnect() {
	metrics.Reconnects.Inc()
	logger.Info().Str("network", c.link.String()).Msg("Connecting")
	c.clock.Sleep(c.cfg.Settle)

	for i := 1; i <= c.cfg.ConnectAttempts; i++ {
		err := c.link.Associate()
		if err == nil {
			logger.Info().Str("network", c.link.String()).Int("attempt", i).Msg("Connected")
			return
		}
		if i < c.cfg.ConnectAttempts {
			logger.Warn().Err(err).
				Str("network", c.link.String()).
				Int("attempt", i).
				Msg("Failed to connect, trying again")
			c.clock.Sleep(c.cfg.Settle)
			continue
		}
		logger.Error().Err(err).
			Str("network", c.link.String()).
			Int("attempts", c.cfg.ConnectAttempts).
			Msg("Failed to connect, will not try again until the network is used again")
	}
}
