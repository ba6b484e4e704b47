package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/logging"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/mqtt"
)

// Store is the subset of the device store the relay needs.
type Store interface {
	Get(ctx context.Context, id int) (*device.Device, error)
	List(ctx context.Context) ([]device.Device, error)
	Update(ctx context.Context, id int, u device.StateUpdate) (*device.Device, device.UpsertResult, error)
	AppendLog(ctx context.Context, entry device.LogEntry) (*device.LogEntry, error)
}

// Publisher sends control messages toward hardware.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber registers and removes handlers for broker topics.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Broadcaster multicasts an event to every connected dashboard session.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// History records device state over time. Writes are fire-and-forget.
type History interface {
	WriteDeviceState(s influxdb.DeviceState)
	WriteSummary(totalWatts float64, devicesOn, devicesTotal int)
}

// Options configures a Relay. Store is required; the rest may be nil.
type Options struct {
	Store       Store
	Publisher   Publisher
	Broadcaster Broadcaster
	History     History
	Metrics     *Metrics
	Logger      *logging.Logger
	Topics      mqtt.Topics
	QoS         byte
}

// Relay synchronises device state between the broker, the store and
// dashboard sessions. It holds no device state of its own; every method
// is safe for concurrent use.
type Relay struct {
	store       Store
	publisher   Publisher
	broadcaster Broadcaster
	history     History
	metrics     *Metrics
	logger      *logging.Logger
	topics      mqtt.Topics
	qos         byte
}

// New creates a relay.
func New(opts Options) (*Relay, error) {
	if opts.Store == nil {
		return nil, errors.New("relay: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Relay{
		store:       opts.Store,
		publisher:   opts.Publisher,
		broadcaster: opts.Broadcaster,
		history:     opts.History,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		topics:      opts.Topics,
		qos:         opts.QoS,
	}, nil
}

// apply writes u to the store. If the write fails the last known record is
// read back instead; only when that also fails is an error returned.
func (r *Relay) apply(ctx context.Context, id int, u device.StateUpdate) (*device.Device, error) {
	d, result, err := r.store.Update(ctx, id, u)
	if err == nil {
		if result == device.Created {
			r.metrics.deviceCreated()
			r.logger.Info("device created", "device_id", id, "name", d.Name, "category", d.Category)
		}
		return d, nil
	}

	r.logger.Warn("device update failed, reading last known state", "device_id", id, "error", err)
	d, getErr := r.store.Get(ctx, id)
	if getErr != nil {
		return nil, fmt.Errorf("%w: update: %v, lookup: %v", ErrStoreUnavailable, err, getErr)
	}
	return d, nil
}

// appendLog records an action log entry. Failures are logged only.
func (r *Relay) appendLog(ctx context.Context, id int, action device.ActionKind, value any) {
	entry, err := device.NewLogEntry(id, action, value)
	if err != nil {
		r.logger.Error("encoding action log", "device_id", id, "error", err)
		return
	}
	if _, err := r.store.AppendLog(ctx, entry); err != nil {
		r.logger.Error("appending action log", "device_id", id, "action", action, "error", err)
	}
}

// announce pushes d and the new campus summary to every session and to
// the history store.
func (r *Relay) announce(ctx context.Context, d *device.Device, source string) {
	if r.history != nil {
		r.history.WriteDeviceState(influxdb.DeviceState{
			DeviceID: d.ID,
			Category: string(d.Category),
			Room:     d.Room,
			Status:   d.Status,
			Value:    d.Value,
			Source:   source,
			At:       d.UpdatedAt,
		})
	}

	if r.broadcaster == nil && r.history == nil {
		return
	}
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(EventDeviceUpdate, d)
	}

	devices, err := r.store.List(ctx)
	if err != nil {
		r.logger.Warn("listing devices for summary", "error", err)
		return
	}
	summary := device.Summarize(devices)
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(EventSummaryUpdate, summary)
	}
	if r.history != nil {
		r.history.WriteSummary(summary.TotalWatts, summary.On, summary.Total)
	}
}

func (r *Relay) broadcast(eventType string, payload any) {
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(eventType, payload)
	}
}
