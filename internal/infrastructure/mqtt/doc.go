// Package mqtt provides MQTT client connectivity for Campus Power Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Topic layout
//
//	iot/monitoring/{anything}/{deviceId}   hardware -> core (telemetry)
//	iot/control/{deviceId}                 core -> hardware (control intents)
//	iot/system/core                        retained core status / LWT
//
// The prefixes are configurable under mqtt.topics.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().MonitoringWildcard(), client.QoS(), handler)
package mqtt
