package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/mqtt"
)

// StartIngest subscribes to the monitoring namespace. Messages are applied
// on the broker client's callback goroutine using ctx for store calls.
func (r *Relay) StartIngest(ctx context.Context, sub Subscriber) error {
	topic := r.topics.MonitoringWildcard()
	if err := sub.Subscribe(topic, r.qos, func(t string, payload []byte) error {
		r.HandleTelemetry(ctx, t, payload)
		return nil
	}); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	r.logger.Info("telemetry ingest started", "topic", topic)
	return nil
}

// StopIngest removes the monitoring subscription so no telemetry reaches
// the store while it shuts down.
func (r *Relay) StopIngest(sub Subscriber) error {
	topic := r.topics.MonitoringWildcard()
	if err := sub.Unsubscribe(topic); err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", topic, err)
	}
	r.logger.Info("telemetry ingest stopped", "topic", topic)
	return nil
}

// HandleTelemetry applies one monitoring message. It never fails: bad
// topics, malformed payloads and store errors are logged and dropped.
func (r *Relay) HandleTelemetry(ctx context.Context, topic string, payload []byte) {
	event := MQTTLogEvent{
		Topic:      topic,
		Payload:    string(payload),
		ReceivedAt: time.Now().UTC(),
	}
	defer func() {
		if event.Accepted {
			r.metrics.telemetry(resultAccepted)
		} else {
			r.metrics.telemetry(resultDropped)
		}
		r.broadcast(EventMQTTLog, event)
	}()

	if !r.topics.IsMonitoring(topic) {
		event.Reason = "topic outside monitoring namespace"
		r.logger.Debug("telemetry dropped", "topic", topic, "reason", event.Reason)
		return
	}

	id, err := device.ParseDeviceID(mqtt.LastSegment(topic))
	if err != nil {
		event.Reason = "topic does not end in a device id"
		r.logger.Debug("telemetry dropped", "topic", topic, "reason", event.Reason)
		return
	}
	event.DeviceID = id

	update, err := ParseTelemetry(payload)
	if err != nil {
		event.Reason = err.Error()
		r.logger.Warn("telemetry dropped", "topic", topic, "error", err)
		return
	}
	update.SeenAt = event.ReceivedAt

	d, err := r.apply(ctx, id, update)
	if err != nil {
		event.Reason = "store unavailable"
		r.logger.Error("telemetry not applied", "device_id", id, "error", err)
		return
	}
	event.Accepted = true

	r.appendLog(ctx, id, device.ActionMQTTSync, json.RawMessage(payload))
	r.announce(ctx, d, string(device.ActionMQTTSync))
}

// telemetryMessage is the monitoring payload. Fields stay raw so that
// firmware variants ("on", 1, true) all decode.
type telemetryMessage struct {
	Status json.RawMessage `json:"status"`
	Value  json.RawMessage `json:"value"`
}

// ParseTelemetry decodes a monitoring payload into a state update.
// The payload must be a JSON object carrying status, value or both.
func ParseTelemetry(payload []byte) (device.StateUpdate, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return device.StateUpdate{}, fmt.Errorf("%w: not a JSON object", ErrMalformedTelemetry)
	}

	var msg telemetryMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return device.StateUpdate{}, fmt.Errorf("%w: %v", ErrMalformedTelemetry, err)
	}

	var u device.StateUpdate
	if isPresent(msg.Status) {
		status, err := parseStatus(msg.Status)
		if err != nil {
			return device.StateUpdate{}, err
		}
		u.Status = &status
	}
	if isPresent(msg.Value) {
		value, err := parseValue(msg.Value)
		if err != nil {
			return device.StateUpdate{}, err
		}
		u.Value = &value
	}

	if u.Status == nil && u.Value == nil {
		return device.StateUpdate{}, fmt.Errorf("%w: no status or value", ErrMalformedTelemetry)
	}
	return u, nil
}

func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func parseStatus(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true", "1":
			return true, nil
		case "off", "false", "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: unrecognised status %s", ErrMalformedTelemetry, raw)
}

func parseValue(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: unrecognised value %s", ErrMalformedTelemetry, raw)
}
