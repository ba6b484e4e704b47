package relay

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/nerrad567/campus-power-core/internal/device"
)

// Intent is a request to switch a device, from a dashboard or HTTP.
type Intent struct {
	DeviceID int     `json:"deviceId"`
	Status   bool    `json:"status"`
	Value    float64 `json:"value"`
}

// controlPayload is the message published on the per-device control topic.
type controlPayload struct {
	Status bool    `json:"status"`
	Value  float64 `json:"value"`
}

// Control applies an intent in four independent steps: write-through to
// the store, publish to the device's control topic, append a web_override
// log entry and broadcast the resulting record to every session.
//
// Publishing happens whether or not the store write succeeded. A publish
// failure is logged and not retried. An error is returned only when no
// device record could be obtained at all; nothing is broadcast then.
func (r *Relay) Control(ctx context.Context, in Intent) (*device.Device, error) {
	if err := device.ValidateDeviceID(in.DeviceID); err != nil {
		return nil, err
	}

	d, storeErr := r.apply(ctx, in.DeviceID, device.SetState(in.Status, in.Value))

	payload := controlPayload{Status: in.Status, Value: in.Value}
	r.publish(in.DeviceID, payload)
	r.appendLog(ctx, in.DeviceID, device.ActionWebOverride, payload)

	if storeErr != nil {
		r.metrics.control(resultStoreError)
		r.logger.Error("control intent not applied", "device_id", in.DeviceID, "error", storeErr)
		return nil, storeErr
	}

	r.metrics.control(resultOK)
	r.logger.Debug("control intent applied", "device_id", d.ID, "status", d.Status, "value", d.Value)
	r.announce(ctx, d, string(device.ActionWebOverride))
	return d, nil
}

func (r *Relay) publish(id int, payload controlPayload) {
	if r.publisher == nil {
		r.logger.Warn("no broker publisher, control not sent to hardware", "device_id", id)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("encoding control payload", "device_id", id, "error", err)
		return
	}

	topic := r.topics.Control(strconv.Itoa(id))
	if err := r.publisher.Publish(topic, data, r.qos, false); err != nil {
		r.metrics.publishFailed()
		r.logger.Error("publishing control", "device_id", id, "topic", topic, "error", err)
	}
}
