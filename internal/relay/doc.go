// Package relay keeps device state in sync between hardware, the device
// store and dashboard sessions.
//
// Two paths feed it:
//
//   - Telemetry: messages on the monitoring namespace (iot/monitoring/#)
//     whose last topic segment is a device id. Each applied message is
//     written to the store, logged as mqtt_sync and broadcast.
//   - Control: intents from a dashboard WebSocket or HTTP. Each intent is
//     written through to the store, published on iot/control/<id>, logged
//     as web_override and broadcast to every session including the sender.
//
// The relay is stateless. Concurrent writers to the same device are
// resolved by the store's upsert, so the last write wins.
//
// Every state change is followed by a device_update and a summary_update
// event; every inbound telemetry message also produces an mqtt_log event
// saying whether it was applied.
package relay
