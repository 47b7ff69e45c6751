package cloud

import (
	"encoding/json"
	"fmt"

	"github.com/smazurov/blinkynode/internal/settings"
)

// Subject and topic prefixes.
const (
	SubjectDevicesPrefix = "blinkynode.devices"
	TopicDevicesPrefix   = "blinkynode"
)

// SubjectHello returns the NATS subject a device publishes heartbeats on.
func SubjectHello(deviceID string) string {
	return fmt.Sprintf("%s.%s.hello", SubjectDevicesPrefix, deviceID)
}

// SubjectSettings returns the NATS request subject for device settings.
func SubjectSettings(deviceID string) string {
	return fmt.Sprintf("%s.%s.settings", SubjectDevicesPrefix, deviceID)
}

// SubjectAllHello matches heartbeats from every device.
const SubjectAllHello = SubjectDevicesPrefix + ".*.hello"

// TopicHello returns the MQTT topic a device publishes heartbeats on.
func TopicHello(deviceID string) string {
	return fmt.Sprintf("%s/%s/hello", TopicDevicesPrefix, deviceID)
}

// TopicSettings returns the MQTT topic a device receives settings on.
func TopicSettings(deviceID string) string {
	return fmt.Sprintf("%s/%s/settings", TopicDevicesPrefix, deviceID)
}

// TopicSettingsStatus returns the MQTT topic settings results go to.
func TopicSettingsStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/settings/status", TopicDevicesPrefix, deviceID)
}

// HelloMessage is the heartbeat payload.
type HelloMessage struct {
	DeviceID  string `json:"device_id"`
	Counter   uint32 `json:"counter"`
	Timestamp string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m HelloMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// SettingMessage carries one remote setting. Value is kept raw so integer
// and float numbers stay distinguishable.
type SettingMessage struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Marshal serializes the message to JSON.
func (m SettingMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// SettingResultMessage reports how a device handled a SettingMessage.
type SettingResultMessage struct {
	DeviceID string `json:"device_id"`
	Key      string `json:"key"`
	Status   string `json:"status"`
	Code     int    `json:"code"`
}

// Marshal serializes the message to JSON.
func (m SettingResultMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalHello deserializes a HelloMessage from JSON.
func UnmarshalHello(data []byte) (HelloMessage, error) {
	var m HelloMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalSetting deserializes a SettingMessage from JSON.
func UnmarshalSetting(data []byte) (SettingMessage, error) {
	var m SettingMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalSettingResult deserializes a SettingResultMessage from JSON.
func UnmarshalSettingResult(data []byte) (SettingResultMessage, error) {
	var m SettingResultMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// handleSetting decodes a settings payload and runs cb on it. Payloads that
// do not decode are answered with VALUE_FORMAT_NOT_VALID.
func handleSetting(deviceID string, data []byte, cb settings.Callback) SettingResultMessage {
	result := SettingResultMessage{DeviceID: deviceID}

	status := settings.StatusFormatInvalid
	if msg, err := UnmarshalSetting(data); err == nil {
		result.Key = msg.Key
		if value, err := settings.DecodeValue(msg.Value); err == nil {
			status = cb(msg.Key, value)
		}
	}

	result.Status = status.String()
	result.Code = int(status)
	return result
}
