package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/field-datalogger/pkg/config"
	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"github.com/ericogr/field-datalogger/pkg/output"
	"github.com/google/uuid"
)

const (
	DefaultServer     = "tcp://localhost:1883"
	DefaultStateTopic = "datalogger/%s"
	publishTimeout    = 5 * time.Second
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyDeviceClass         = "device_class"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	stateClassMeasurement  = "measurement"
	valueTemplateValue     = "{{ value_json.value }}"
)

// unit and device class by reading name suffix
var readingClasses = []struct {
	suffix, unit, class string
}{
	{"_temperature", "°C", "temperature"},
	{"_humidity", "%", "humidity"},
	{"_distance", "m", "distance"},
	{"_pulses", "", ""},
}

// publisher is the part of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOutput publishes each reading as {"value": v} on its own topic when the
// state topic holds a %s formatter, or the whole tick as one JSON object
// otherwise.
type MQTTOutput struct {
	client         publisher
	cfg            config.MQTTConfig
	stateTopic     string
	discoveryTopic string
	announced      bool
}

func NewMQTT(cfg config.MQTTConfig) (*MQTTOutput, error) {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "datalogger-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(errors.ErrInitOutput, token.Error(), "mqtt connect %s", cfg.Server)
	}
	return newWithClient(client, cfg), nil
}

func newWithClient(client publisher, cfg config.MQTTConfig) *MQTTOutput {
	st := cfg.StateTopic
	if st == "" {
		st = DefaultStateTopic
	}
	return &MQTTOutput{client: client, cfg: cfg, stateTopic: st, discoveryTopic: cfg.DiscoveryTopic}
}

// OutputData publishes one tick. Discovery payloads go out on the first tick,
// when the reading names are first known.
func (m *MQTTOutput) OutputData(names []string, values []float64) {
	if !m.announced {
		m.announce(names)
		m.announced = true
	}

	if !strings.Contains(m.stateTopic, "%s") {
		if err := m.publishJSON(m.stateTopic, false, output.ReadingMap(names, values)); err != nil {
			logger.Warn().Err(err).Str("topic", m.stateTopic).Msg("mqtt publish failed")
		}
		return
	}
	readings := output.ReadingMap(names, values)
	for _, name := range names {
		topic := formatStateTopic(m.stateTopic, name)
		payload := map[string]interface{}{"value": readings[name]}
		if err := m.publishJSON(topic, false, payload); err != nil {
			logger.Warn().Err(err).Str("topic", topic).Msg("mqtt publish failed")
		}
	}
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

// announce publishes retained Home Assistant discovery entries, one per
// reading when the discovery topic holds a %s formatter.
func (m *MQTTOutput) announce(names []string) {
	if m.discoveryTopic == "" {
		return
	}
	if !strings.Contains(m.discoveryTopic, "%s") {
		payload := baseDiscoveryPayload(discoveryName(m.cfg, ""), m.stateTopic, discoveryUniqueID(m.cfg, ""), "")
		delete(payload, keyValueTemplate)
		if err := m.publishJSON(m.discoveryTopic, true, payload); err != nil {
			logger.Warn().Err(err).Msg("mqtt discovery publish failed")
		}
		return
	}
	for _, name := range names {
		dTopic := fmt.Sprintf(m.discoveryTopic, name)
		payload := baseDiscoveryPayload(
			discoveryName(m.cfg, name),
			formatStateTopic(m.stateTopic, name),
			discoveryUniqueID(m.cfg, name),
			name,
		)
		if err := m.publishJSON(dTopic, true, payload); err != nil {
			logger.Warn().Err(err).Str("reading", name).Msg("mqtt discovery publish failed")
		}
	}
}

func (m *MQTTOutput) publishJSON(topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := m.client.Publish(topic, 0, retained, b)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

func formatStateTopic(base, name string) string {
	if strings.Contains(base, "%s") {
		return fmt.Sprintf(base, name)
	}
	return base
}

func discoveryName(cfg config.MQTTConfig, reading string) string {
	name := cfg.DiscoveryName
	if name == "" {
		name = cfg.ClientID
	}
	if reading != "" {
		name = fmt.Sprintf("%s %s", name, reading)
	}
	return name
}

func discoveryUniqueID(cfg config.MQTTConfig, reading string) string {
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = cfg.ClientID
	}
	if uid != "" && reading != "" {
		uid = fmt.Sprintf("%s_%s", uid, reading)
	}
	return uid
}

func baseDiscoveryPayload(name, stateTopic, uniqueID, reading string) map[string]interface{} {
	payload := map[string]interface{}{
		keyName:                name,
		keyStateTopic:          stateTopic,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       valueTemplateValue,
		keyJSONAttributesTopic: stateTopic,
	}
	for _, c := range readingClasses {
		if !strings.HasSuffix(reading, c.suffix) {
			continue
		}
		if c.unit != "" {
			payload[keyUnitOfMeasurement] = c.unit
		}
		if c.class != "" {
			payload[keyDeviceClass] = c.class
		}
		break
	}
	if uniqueID != "" {
		payload[keyUniqueID] = uniqueID
	}
	return payload
}
