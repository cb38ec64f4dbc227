package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DATALOGGER"

type I2CConfig struct {
	Bus     string `mapstructure:"bus"`
	Address int    `mapstructure:"address"`
}

// SensorConfig describes one driver. Which fields apply depends on Type.
type SensorConfig struct {
	Type  string `mapstructure:"type"`
	Label string `mapstructure:"label"`
	// Pin is the edge input of a tipping bucket.
	Pin string `mapstructure:"pin"`
	// Channel is the ADS1115 input of a thermistor.
	Channel int `mapstructure:"channel"`
	// Address overrides the I²C address of a hygrometer.
	Address int `mapstructure:"address"`
	// Ultrasonic lines and its enclosure thermistor channel.
	PowerPin     string `mapstructure:"power_pin"`
	InitPin      string `mapstructure:"init_pin"`
	EchoPin      string `mapstructure:"echo_pin"`
	ThermChannel int    `mapstructure:"therm_channel"`
	// ADCMax is the full-scale raw count of the analog channel.
	ADCMax float64 `mapstructure:"adc_max"`
	// Names are the values produced by a fake sensor, each optionally
	// scaled and offset.
	Names   []string           `mapstructure:"names"`
	Scales  map[string]float64 `mapstructure:"scales"`
	Offsets map[string]float64 `mapstructure:"offsets"`
}

type MQTTConfig struct {
	Server            string `mapstructure:"server"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	ClientID          string `mapstructure:"client_id"`
	StateTopic        string `mapstructure:"state_topic"`
	DiscoveryTopic    string `mapstructure:"discovery_topic"`
	DiscoveryName     string `mapstructure:"discovery_name"`
	DiscoveryUniqueID string `mapstructure:"discovery_unique_id"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type OutputConfig struct {
	Type string `mapstructure:"type"`
	// console
	SerialPort string `mapstructure:"serial_port"`
	Baud       int    `mapstructure:"baud"`
	// csv
	Dir string `mapstructure:"dir"`
	// sqlite
	Path string      `mapstructure:"path"`
	MQTT *MQTTConfig `mapstructure:"mqtt"`
	NATS *NATSConfig `mapstructure:"nats"`
}

type CollectorConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

type ThingSpeakConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

type NetworkConfig struct {
	SSID      string `mapstructure:"ssid"`
	Password  string `mapstructure:"password"`
	Interface string `mapstructure:"interface"`
	// ReconnectThreshold is the consecutive send failures that trigger
	// link re-establishment.
	ReconnectThreshold int `mapstructure:"reconnect_threshold"`
	ConnectAttempts    int `mapstructure:"connect_attempts"`
	SettleMs           int `mapstructure:"settle_ms"`
}

type Config struct {
	DeviceName    string           `mapstructure:"device_name"`
	SensorType    string           `mapstructure:"sensor_type"`
	IntervalMs    int              `mapstructure:"interval_ms"`
	Debug         bool             `mapstructure:"debug"`
	Verbose       bool             `mapstructure:"verbose"`
	MetricsAddr   string           `mapstructure:"metrics_addr"`
	I2C           I2CConfig        `mapstructure:"i2c"`
	ADCAddress    int              `mapstructure:"adc_address"`
	ADCSampleRate int              `mapstructure:"adc_sample_rate"`
	Sensors       []SensorConfig   `mapstructure:"sensors"`
	Outputs       []OutputConfig   `mapstructure:"outputs"`
	Collector     CollectorConfig  `mapstructure:"collector"`
	ThingSpeak    ThingSpeakConfig `mapstructure:"thingspeak"`
	Network       NetworkConfig    `mapstructure:"network"`
}

func DefaultConfig() Config {
	return Config{
		DeviceName:    "datalogger",
		SensorType:    "real",
		IntervalMs:    60000,
		I2C:           I2CConfig{Bus: "1", Address: 0x76},
		ADCAddress:    0x48,
		ADCSampleRate: 128,
		Collector:     CollectorConfig{Port: 80},
		ThingSpeak:    ThingSpeakConfig{Host: "api.thingspeak.com", Port: 80},
		Network: NetworkConfig{
			ReconnectThreshold: 20,
			ConnectAttempts:    4,
			SettleMs:           1000,
		},
	}
}

// DefaultOutputs is used when no output is configured.
func DefaultOutputs() []OutputConfig {
	return []OutputConfig{{Type: "console"}}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("device_name", d.DeviceName)
	v.SetDefault("sensor_type", d.SensorType)
	v.SetDefault("interval_ms", d.IntervalMs)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("i2c.bus", d.I2C.Bus)
	v.SetDefault("i2c.address", d.I2C.Address)
	v.SetDefault("adc_address", d.ADCAddress)
	v.SetDefault("adc_sample_rate", d.ADCSampleRate)
	v.SetDefault("collector.host", d.Collector.Host)
	v.SetDefault("collector.port", d.Collector.Port)
	v.SetDefault("collector.password", d.Collector.Password)
	v.SetDefault("thingspeak.host", d.ThingSpeak.Host)
	v.SetDefault("thingspeak.port", d.ThingSpeak.Port)
	v.SetDefault("thingspeak.api_key", d.ThingSpeak.APIKey)
	v.SetDefault("network.ssid", d.Network.SSID)
	v.SetDefault("network.password", d.Network.Password)
	v.SetDefault("network.interface", d.Network.Interface)
	v.SetDefault("network.reconnect_threshold", d.Network.ReconnectThreshold)
	v.SetDefault("network.connect_attempts", d.Network.ConnectAttempts)
	v.SetDefault("network.settle_ms", d.Network.SettleMs)
}

// Load reads configuration from an optional file (JSON, TOML or YAML),
// DATALOGGER_* environment variables and command line flags, in increasing
// order of precedence.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("datalogger", pflag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to config file")
	fs.String("device-name", "", "Device name reported to the collector")
	fs.String("sensor-type", "", "sensor type: real|simulation")
	fs.Int("interval-ms", 0, "Sampling interval in ms")
	fs.Bool("debug", false, "Enable debug logging")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("metrics-addr", "", "Listen address for /metrics, e.g. :9102")
	fs.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1)")
	i2cAddr := fs.String("i2c-address", "", "Hygrometer I2C address (decimal or 0x hex)")
	outputs := fs.String("outputs", "", "Comma-separated outputs (console,csv,sqlite,collector,thingspeak,mqtt,nats)")
	fs.String("collector-host", "", "Custom collector host")
	fs.String("collector-password", "", "Custom collector shared secret")
	fs.String("thingspeak-key", "", "ThingSpeak write API key")
	fs.String("ssid", "", "WLAN to associate with")

	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(errors.ErrInvalidConfig, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *cfgPath != "" {
		v.SetConfigFile(*cfgPath)
	} else {
		v.SetConfigName("datalogger")
		v.AddConfigPath("/etc/datalogger")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(errors.ErrReadConfig, err)
		}
	}

	bindings := map[string]string{
		"device_name":        "device-name",
		"sensor_type":        "sensor-type",
		"interval_ms":        "interval-ms",
		"debug":              "debug",
		"verbose":            "verbose",
		"metrics_addr":       "metrics-addr",
		"i2c.bus":            "i2c-bus",
		"collector.host":     "collector-host",
		"collector.password": "collector-password",
		"thingspeak.api_key": "thingspeak-key",
		"network.ssid":       "ssid",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return Config{}, errors.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrapf(errors.ErrInvalidConfig, err, "unmarshal config")
	}

	if *i2cAddr != "" {
		a, err := parseIntOrHex(*i2cAddr)
		if err != nil {
			return cfg, errors.Wrapf(errors.ErrInvalidConfig, err, "i2c-address")
		}
		cfg.I2C.Address = a
	}
	if *outputs != "" {
		parts := parseCSV(*outputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p})
		}
		cfg.Outputs = outs
	}
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = DefaultOutputs()
	}

	return cfg, cfg.Validate()
}

var (
	sensorTypes = map[string]bool{"hygrometer": true, "thermistor": true, "tipping_bucket": true, "ultrasonic": true, "fake": true}
	outputTypes = map[string]bool{"console": true, "csv": true, "sqlite": true, "collector": true, "thingspeak": true, "mqtt": true, "nats": true}
)

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if c.IntervalMs <= 0 {
		return errors.Newf(errors.ErrInvalidConfig, "interval_ms must be > 0")
	}
	if c.SensorType != "real" && c.SensorType != "simulation" {
		return errors.Newf(errors.ErrInvalidConfig, "sensor_type must be real or simulation, got %q", c.SensorType)
	}
	for i, s := range c.Sensors {
		if !sensorTypes[strings.ToLower(s.Type)] {
			return errors.Newf(errors.ErrInvalidConfig, "sensors[%d]: unknown type %q", i, s.Type)
		}
	}
	for i, o := range c.Outputs {
		t := strings.ToLower(o.Type)
		if !outputTypes[t] {
			return errors.Newf(errors.ErrInvalidConfig, "outputs[%d]: unknown type %q", i, o.Type)
		}
		switch {
		case t == "collector" && c.Collector.Host == "":
			return errors.Newf(errors.ErrInvalidConfig, "outputs[%d]: collector.host is required", i)
		case t == "thingspeak" && c.ThingSpeak.APIKey == "":
			return errors.Newf(errors.ErrInvalidConfig, "outputs[%d]: thingspeak.api_key is required", i)
		}
	}
	return nil
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
