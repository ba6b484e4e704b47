package mqtt

import (
	"strings"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/config"
)

// Default topic namespaces used when the configuration leaves them empty.
const (
	// DefaultMonitoringPrefix is where hardware publishes telemetry.
	// Topic: iot/monitoring/{anything}/{deviceId}
	DefaultMonitoringPrefix = "iot/monitoring"

	// DefaultControlPrefix is where control intents are sent to hardware.
	// Topic: iot/control/{deviceId}
	DefaultControlPrefix = "iot/control"

	// DefaultStatusTopic carries the core's retained online/offline status.
	DefaultStatusTopic = "iot/system/core"
)

// Topics builds Campus Power MQTT topics from the configured namespaces.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	topics.Control("12")          // "iot/control/12"
//	topics.MonitoringWildcard()   // "iot/monitoring/#"
type Topics struct {
	monitoring string
	control    string
	status     string
}

// NewTopics creates a topic builder, falling back to the default prefixes
// for empty values. Trailing slashes are trimmed.
func NewTopics(cfg config.MQTTTopicsConfig) Topics {
	return Topics{
		monitoring: prefixOrDefault(cfg.Monitoring, DefaultMonitoringPrefix),
		control:    prefixOrDefault(cfg.Control, DefaultControlPrefix),
		status:     prefixOrDefault(cfg.Status, DefaultStatusTopic),
	}
}

func prefixOrDefault(prefix, fallback string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return fallback
	}
	return prefix
}

// MonitoringWildcard returns the subscription pattern for all telemetry.
//
// Pattern: iot/monitoring/#
func (t Topics) MonitoringWildcard() string {
	return t.monitoring + "/#"
}

// Control returns the per-device control topic.
//
// Example: iot/control/12
func (t Topics) Control(deviceID string) string {
	return t.control + "/" + deviceID
}

// SystemStatus returns the core status topic (used for LWT).
//
// Example: iot/system/core
func (t Topics) SystemStatus() string {
	return t.status
}

// IsMonitoring reports whether topic lies under the monitoring namespace.
func (t Topics) IsMonitoring(topic string) bool {
	return strings.HasPrefix(topic, t.monitoring+"/")
}

// LastSegment returns the trailing level of a topic.
//
// Example: "iot/monitoring/rack7/12" -> "12"
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
