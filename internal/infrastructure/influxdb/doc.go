// Package influxdb records device state history for Campus Power Core.
//
// Every state the relay applies (from telemetry or a dashboard override) can
// be written as a device_state point tagged with device_id, category, room
// and source. History is optional; when influxdb.enabled is false Connect
// returns ErrDisabled and the relay runs without it.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history off
//	}
//	client.WriteDeviceState(influxdb.DeviceState{DeviceID: 12, Category: "light", Status: true, Value: 40})
package influxdb
