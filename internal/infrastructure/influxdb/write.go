package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementDeviceState = "device_state"
	measurementSummary     = "campus_summary"
)

// DeviceState is one applied device state, as recorded in history.
type DeviceState struct {
	DeviceID int
	Category string
	Room     string
	Status   bool
	Value    float64
	Source   string // mqtt_sync or web_override
	At       time.Time
}

// WriteDeviceState records an applied device state as a device_state point.
// Status is stored as 0/1 so it can be aggregated alongside value.
func (c *Client) WriteDeviceState(s DeviceState) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(deviceStatePoint(s))
}

func deviceStatePoint(s DeviceState) *write.Point {
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	status := 0
	if s.Status {
		status = 1
	}

	tags := map[string]string{
		"device_id": strconv.Itoa(s.DeviceID),
		"category":  s.Category,
	}
	if s.Room != "" {
		tags["room"] = s.Room
	}
	if s.Source != "" {
		tags["source"] = s.Source
	}

	return write.NewPoint(
		measurementDeviceState,
		tags,
		map[string]any{
			"status": status,
			"value":  s.Value,
		},
		at,
	)
}

// WriteSummary records campus-wide totals.
func (c *Client) WriteSummary(totalWatts float64, devicesOn, devicesTotal int) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		measurementSummary,
		nil,
		map[string]any{
			"total_watts":   totalWatts,
			"devices_on":    devicesOn,
			"devices_total": devicesTotal,
		},
		time.Now(),
	))
}
