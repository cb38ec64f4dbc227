package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntOrHex(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"118", 118, true},
		{"0x76", 0x76, true},
		{"0X48", 0x48, true},
		{"bad", 0, false},
		{"0xzz", 0, false},
	}
	for _, tt := range tests {
		got, err := parseIntOrHex(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCSV(t *testing.T) {
	assert.Equal(t, []string{"console", "csv"}, parseCSV(" console, ,csv "))
	assert.Empty(t, parseCSV(""))
}

// isolate keeps Load from picking up a datalogger.* file in the package dir.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil)
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.DeviceName, cfg.DeviceName)
	assert.Equal(t, d.IntervalMs, cfg.IntervalMs)
	assert.Equal(t, 20, cfg.Network.ReconnectThreshold)
	assert.Equal(t, 4, cfg.Network.ConnectAttempts)
	assert.Equal(t, DefaultOutputs(), cfg.Outputs)
}

func TestLoadJSONFile(t *testing.T) {
	isolate(t)
	raw := `{
  "device_name": "river-01",
  "interval_ms": 5000,
  "sensor_type": "simulation",
  "sensors": [
    {"type": "hygrometer", "label": "air", "address": 119},
    {"type": "fake", "names": ["Level"], "scales": {"level": 0.5}, "offsets": {"level": 1}},
    {"type": "ultrasonic", "power_pin": "GPIO17", "init_pin": "GPIO27", "echo_pin": "GPIO22", "therm_channel": 1}
  ],
  "outputs": [
    {"type": "csv", "dir": "/var/lib/datalogger"},
    {"type": "mqtt", "mqtt": {"server": "tcp://broker:1883", "state_topic": "river/%s"}},
    {"type": "collector"}
  ],
  "collector": {"host": "collector.local", "password": "s3cret"},
  "network": {"ssid": "field", "connect_attempts": 2}
}`
	path := filepath.Join(t.TempDir(), "datalogger.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "river-01", cfg.DeviceName)
	assert.Equal(t, 5000, cfg.IntervalMs)
	assert.Equal(t, "simulation", cfg.SensorType)
	require.Len(t, cfg.Sensors, 3)
	assert.Equal(t, 119, cfg.Sensors[0].Address)
	assert.Equal(t, []string{"Level"}, cfg.Sensors[1].Names)
	assert.Equal(t, 0.5, cfg.Sensors[1].Scales["level"])
	assert.Equal(t, 1.0, cfg.Sensors[1].Offsets["level"])
	assert.Equal(t, "GPIO22", cfg.Sensors[2].EchoPin)
	assert.Equal(t, 1, cfg.Sensors[2].ThermChannel)
	require.Len(t, cfg.Outputs, 3)
	require.NotNil(t, cfg.Outputs[1].MQTT)
	assert.Equal(t, "tcp://broker:1883", cfg.Outputs[1].MQTT.Server)
	assert.Equal(t, "collector.local", cfg.Collector.Host)
	assert.Equal(t, 80, cfg.Collector.Port)
	assert.Equal(t, "field", cfg.Network.SSID)
	assert.Equal(t, 2, cfg.Network.ConnectAttempts)
	assert.Equal(t, 20, cfg.Network.ReconnectThreshold)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "datalogger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_name":"from-file","interval_ms":5000}`), 0o600))

	cfg, err := Load([]string{
		"--config", path,
		"--device-name", "from-flag",
		"--outputs", "console, sqlite",
		"--i2c-address", "0x77",
	})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.DeviceName)
	assert.Equal(t, 5000, cfg.IntervalMs)
	assert.Equal(t, 0x77, cfg.I2C.Address)
	assert.Equal(t, []OutputConfig{{Type: "console"}, {Type: "sqlite"}}, cfg.Outputs)
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DATALOGGER_DEVICE_NAME", "from-env")
	t.Setenv("DATALOGGER_NETWORK_SSID", "env-net")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.DeviceName)
	assert.Equal(t, "env-net", cfg.Network.SSID)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.New(errors.ErrReadConfig)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero interval", func(c *Config) { c.IntervalMs = 0 }, false},
		{"bad sensor type", func(c *Config) { c.SensorType = "mock" }, false},
		{"unknown sensor", func(c *Config) { c.Sensors = []SensorConfig{{Type: "lidar"}} }, false},
		{"unknown output", func(c *Config) { c.Outputs = []OutputConfig{{Type: "kafka"}} }, false},
		{"collector without host", func(c *Config) { c.Outputs = []OutputConfig{{Type: "collector"}} }, false},
		{"thingspeak without key", func(c *Config) { c.Outputs = []OutputConfig{{Type: "thingspeak"}} }, false},
		{"thingspeak with key", func(c *Config) {
			c.Outputs = []OutputConfig{{Type: "thingspeak"}}
			c.ThingSpeak.APIKey = "KEY"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			code, _ := errors.CodeOf(err)
			assert.Equal(t, errors.ErrInvalidConfig, code)
		})
	}
}
