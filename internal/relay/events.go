package relay

import "time"

// Event types sent to dashboard sessions.
const (
	// EventDeviceUpdate carries a full device record after any state change.
	EventDeviceUpdate = "device_update"

	// EventSummaryUpdate carries campus totals after any state change.
	EventSummaryUpdate = "summary_update"

	// EventMQTTLog carries every inbound telemetry message, applied or not.
	EventMQTTLog = "mqtt_log"
)

// MQTTLogEvent describes one inbound telemetry message.
type MQTTLogEvent struct {
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	DeviceID   int       `json:"device_id,omitempty"`
	Accepted   bool      `json:"accepted"`
	Reason     string    `json:"reason,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
