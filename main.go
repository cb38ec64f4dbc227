package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ericogr/field-datalogger/pkg/clock"
	"github.com/ericogr/field-datalogger/pkg/config"
	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"github.com/ericogr/field-datalogger/pkg/metrics"
	"github.com/ericogr/field-datalogger/pkg/output"
	"github.com/ericogr/field-datalogger/pkg/output/collector"
	"github.com/ericogr/field-datalogger/pkg/output/console"
	"github.com/ericogr/field-datalogger/pkg/output/csvfile"
	mqttout "github.com/ericogr/field-datalogger/pkg/output/mqtt"
	natsout "github.com/ericogr/field-datalogger/pkg/output/nats"
	"github.com/ericogr/field-datalogger/pkg/output/sqlite"
	"github.com/ericogr/field-datalogger/pkg/output/thingspeak"
	"github.com/ericogr/field-datalogger/pkg/sensor"
	"github.com/ericogr/field-datalogger/pkg/transport"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.FatalWithCode(err).Msg("datalogger stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	var pins pinSource
	if cfg.SensorType == "simulation" {
		logger.Info().Msg("Using simulated hardware")
		pins = newSimPins(clock.New())
	} else {
		hw, err := newHardwarePins(cfg.I2C.Bus, cfg.ADCAddress, cfg.ADCSampleRate)
		if err != nil {
			return err
		}
		pins = hw
	}
	defer pins.Close()

	array, err := initSensors(cfg, pins, clock.New())
	if err != nil {
		return err
	}
	defer array.Close()

	client := newTransport(cfg)
	fanout, err := initOutputs(cfg, client)
	if err != nil {
		return err
	}
	defer fanout.Close()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	logger.Info().
		Str("device", cfg.DeviceName).
		Int("sensors", array.Len()).
		Int("outputs", fanout.Len()).
		Int("interval_ms", cfg.IntervalMs).
		Msg("Datalogger started")

	loop(ctx, time.Duration(cfg.IntervalMs)*time.Millisecond, array, fanout)
	logger.Info().Msg("Shutting down")
	return nil
}

// loop samples and dispatches once per interval until ctx is done. A tick
// in progress always completes.
func loop(ctx context.Context, interval time.Duration, array *sensor.Array, fanout *output.Fanout) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tick(array, fanout)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func tick(array *sensor.Array, fanout *output.Fanout) {
	names, values := sensor.Split(array.Sample())
	fanout.Dispatch(names, values)
	metrics.Ticks.Inc()
}

// 10-bit counts near 25 °C for the two thermistor circuits, used by the
// simulated hardware.
const (
	thermistorRoomRaw = 512
	ultrasonicRoomRaw = 883
)

func initSensors(cfg config.Config, pins pinSource, clk clock.Clock) (*sensor.Array, error) {
	array := sensor.NewArray()
	for i, sc := range cfg.Sensors {
		s, err := newSensor(sc, cfg.I2C.Address, pins, clk)
		if err != nil {
			array.Close()
			return nil, errors.Wrapf(errors.ErrInitSensor, err, "sensors[%d] %s", i, sc.Type)
		}
		array.Add(s)
	}
	if array.Len() == 0 {
		logger.Warn().Msg("No sensors configured")
	}
	return array, nil
}

func newSensor(sc config.SensorConfig, envAddr int, pins pinSource, clk clock.Clock) (sensor.Sensor, error) {
	adcMax := float32(sc.ADCMax)
	if adcMax <= 0 {
		adcMax = pins.adcMax()
	}

	switch strings.ToLower(sc.Type) {
	case "hygrometer":
		if sc.Address != 0 {
			envAddr = sc.Address
		}
		dev, err := pins.env(envAddr)
		if err != nil {
			return nil, err
		}
		return sensor.NewHygrometer(labelOr(sc.Label, "hygrometer"), dev), nil

	case "thermistor":
		pin, err := pins.analog(sc.Channel, thermistorRoomRaw)
		if err != nil {
			return nil, err
		}
		t := sensor.NewThermistor(labelOr(sc.Label, fmt.Sprintf("a%d", sc.Channel)), pin)
		t.ADCMax = adcMax
		return t, nil

	case "tipping_bucket":
		pin, err := pins.edge(sc.Pin)
		if err != nil {
			return nil, err
		}
		return sensor.NewTippingBucket(labelOr(sc.Label, sc.Pin), pin)

	case "ultrasonic":
		power, err := pins.output(sc.PowerPin)
		if err != nil {
			return nil, err
		}
		trigger, err := pins.output(sc.InitPin)
		if err != nil {
			return nil, err
		}
		echo, err := pins.echo(sc.EchoPin, trigger)
		if err != nil {
			return nil, err
		}
		therm, err := pins.analog(sc.ThermChannel, ultrasonicRoomRaw)
		if err != nil {
			return nil, err
		}
		u := sensor.NewUltrasonic(power, trigger, echo, therm, clk)
		u.ADCMax = adcMax
		return u, nil

	case "fake":
		names := sc.Names
		if len(names) == 0 {
			names = []string{labelOr(sc.Label, "fake") + "_value"}
		}
		return sensor.NewFakeSensor(names, sc.Scales, sc.Offsets), nil
	}
	return nil, errors.Newf(errors.ErrInvalidConfig, "unknown sensor type %q", sc.Type)
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

// newTransport builds the client shared by the HTTP sinks. A configured
// SSID gets a WLAN link that is associated before the first tick.
func newTransport(cfg config.Config) *transport.Client {
	tc := transport.DefaultConfig()
	tc.ReconnectThreshold = cfg.Network.ReconnectThreshold
	tc.ConnectAttempts = cfg.Network.ConnectAttempts
	if cfg.Network.SettleMs > 0 {
		tc.Settle = time.Duration(cfg.Network.SettleMs) * time.Millisecond
	}

	var link transport.Link = transport.NopLink{}
	if cfg.Network.SSID != "" {
		link = &transport.WifiLink{
			SSID:      cfg.Network.SSID,
			Password:  cfg.Network.Password,
			Interface: cfg.Network.Interface,
		}
	}

	client := transport.New(tc, &net.Dialer{Timeout: 10 * time.Second}, link)
	if cfg.Network.SSID != "" && needsTransport(cfg.Outputs) {
		client.Reconnect()
	}
	return client
}

func needsTransport(outs []config.OutputConfig) bool {
	for _, o := range outs {
		switch strings.ToLower(o.Type) {
		case "collector", "thingspeak":
			return true
		}
	}
	return false
}

func initOutputs(cfg config.Config, sender output.Sender) (*output.Fanout, error) {
	fanout := output.NewFanout()
	for i, oc := range cfg.Outputs {
		t := strings.ToLower(oc.Type)
		switch t {
		case "console":
			if oc.SerialPort == "" {
				fanout.Add(console.NewConsole())
				break
			}
			baud := oc.Baud
			if baud == 0 {
				baud = 9600
			}
			c, err := console.NewSerialConsole(oc.SerialPort, baud)
			if err != nil {
				logger.ErrorWithCode(err).Str("port", oc.SerialPort).Msg("Serial console unavailable")
				continue
			}
			fanout.Add(c)

		case "csv":
			dir := oc.Dir
			if dir == "" {
				dir = "."
			}
			fanout.Add(csvfile.New(afero.NewOsFs(), dir, time.Now))

		case "sqlite":
			path := oc.Path
			if path == "" {
				path = "datalogger.db"
			}
			s, err := sqlite.New(path, time.Now)
			if err != nil {
				logger.ErrorWithCode(err).Str("path", path).Msg("SQLite storage unavailable")
				continue
			}
			fanout.Add(s)

		case "collector":
			fanout.Add(collector.New(collector.Config{
				Host:     cfg.Collector.Host,
				Port:     cfg.Collector.Port,
				Device:   cfg.DeviceName,
				Password: cfg.Collector.Password,
			}, sender))

		case "thingspeak":
			fanout.AddPositional(thingspeak.New(thingspeak.Config{
				Host:   cfg.ThingSpeak.Host,
				Port:   cfg.ThingSpeak.Port,
				APIKey: cfg.ThingSpeak.APIKey,
			}, sender))

		case "mqtt":
			mc := config.MQTTConfig{}
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			m, err := mqttout.NewMQTT(mc)
			if err != nil {
				fanout.Close()
				return nil, err
			}
			fanout.Add(m)

		case "nats":
			nc := config.NATSConfig{}
			if oc.NATS != nil {
				nc = *oc.NATS
			}
			n, err := natsout.New(nc, cfg.DeviceName)
			if err != nil {
				fanout.Close()
				return nil, err
			}
			fanout.Add(n)

		default:
			fanout.Close()
			return nil, errors.Newf(errors.ErrInvalidConfig, "outputs[%d]: unknown type %q", i, oc.Type)
		}
		logger.Debug().Str("type", t).Msg("Output registered")
	}
	return fanout, nil
}
