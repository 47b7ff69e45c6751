// Package cloud connects the agent to its message broker.
//
// Two transports implement Client:
//
//   - NATSClient: core NATS, heartbeats flushed to the server, settings as
//     request/reply
//   - MQTTClient: paho MQTT, heartbeats at QoS 1, settings on a topic with
//     results on a status topic
//
// Both connect in the background and reconnect forever. OnConnect handlers
// run on every (re)connect; the agent wires its connection gate there.
//
// Server is an embedded NATS server used by `blinkynode broker` and by
// tests. Console sends settings for `blinkynode set`; Monitor prints every
// heartbeat.
//
// # NATS subjects
//
//	blinkynode.devices.{device_id}.hello      # heartbeat (device → server)
//	blinkynode.devices.{device_id}.settings   # setting request, answered by the device
//
// # MQTT topics
//
//	blinkynode/{device_id}/hello
//	blinkynode/{device_id}/settings
//	blinkynode/{device_id}/settings/status
//
// # Message formats
//
// HelloMessage:
//
//	{"device_id": "dev-1", "counter": 42, "timestamp": "2024-01-01T12:00:00Z"}
//
// SettingMessage:
//
//	{"key": "LOOP_DELAY_MS", "value": 250}
//
// SettingResultMessage:
//
//	{"device_id": "dev-1", "key": "LOOP_DELAY_MS", "status": "SUCCESS", "code": 0}
//
// # Debugging with nats CLI
//
// Watch heartbeats from all devices:
//
//	nats sub "blinkynode.devices.*.hello" -s nats://localhost:4222
//
// Change a device's loop delay:
//
//	nats req "blinkynode.devices.dev-1.settings" '{"key":"LOOP_DELAY_MS","value":250}'
//
// The same over MQTT with mosquitto clients:
//
//	mosquitto_sub -t 'blinkynode/+/settings/status'
//	mosquitto_pub -t blinkynode/dev-1/settings -m '{"key":"LOOP_DELAY_MS","value":250}'
package cloud
