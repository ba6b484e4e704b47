// Package api implements the HTTP REST API and WebSocket server for
// Campus Power Core.
//
// This package provides:
//   - REST endpoints for devices, control, action logs, rooms, schedules
//     and settings
//   - A WebSocket hub that pushes every device change to every dashboard
//   - JWT bearer authentication for configuration writes, recorded in
//     the operator audit trail
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Prometheus exposition on /metrics
//
// # Real-time channel
//
// Dashboards connect to the WebSocket path and receive event messages:
//
//	{"type":"event","event_type":"device_update","timestamp":"...","payload":{...}}
//
// They send control intents the same way:
//
//	{"type":"control_device","id":"c1","payload":{"deviceId":4,"status":true,"value":0}}
//
// The resulting device_update is broadcast to every session, the sender
// included. There is no per-client filtering and no replay on reconnect.
package api
