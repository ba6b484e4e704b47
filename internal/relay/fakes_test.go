package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/mqtt"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	devices   map[int]device.Device
	logs      []device.LogEntry
	failWrite bool
	failRead  bool
}

func newMemStore() *memStore {
	return &memStore{devices: make(map[int]device.Device)}
}

func (s *memStore) Get(_ context.Context, id int) (*device.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead {
		return nil, errStoreDown
	}
	d, ok := s.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return &d, nil
}

func (s *memStore) List(_ context.Context) ([]device.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead {
		return nil, errStoreDown
	}
	out := make([]device.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, id int, u device.StateUpdate) (*device.Device, device.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite {
		return nil, device.Updated, errStoreDown
	}

	result := device.Updated
	d, ok := s.devices[id]
	if !ok {
		name, category, room := device.DefaultNaming.Defaults(id)
		d = device.Device{ID: id, Name: name, Category: category, Room: room, CreatedAt: time.Now()}
		result = device.Created
	}
	if u.Status != nil {
		d.Status = *u.Status
	}
	if u.Value != nil {
		d.Value = *u.Value
	}
	seen := u.SeenAt
	if seen.IsZero() {
		seen = time.Now()
	}
	d.LastSeen = &seen
	d.UpdatedAt = time.Now()
	s.devices[id] = d
	return &d, result, nil
}

func (s *memStore) AppendLog(_ context.Context, e device.LogEntry) (*device.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite {
		return nil, errStoreDown
	}
	e.ID = int64(len(s.logs) + 1)
	s.logs = append(s.logs, e)
	return &e, nil
}

func (s *memStore) logCount(action device.ActionKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.logs {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (s *memStore) deviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{topic, payload, qos, retained})
	return p.err
}

func (p *fakePublisher) sent() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

type event struct {
	eventType string
	payload   any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (b *fakeBroadcaster) Broadcast(eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{eventType, payload})
}

func (b *fakeBroadcaster) ofType(eventType string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, e := range b.events {
		if e.eventType == eventType {
			out = append(out, e.payload)
		}
	}
	return out
}

type fakeHistory struct {
	mu        sync.Mutex
	states    []influxdb.DeviceState
	summaries int
}

func (h *fakeHistory) WriteDeviceState(s influxdb.DeviceState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, s)
}

func (h *fakeHistory) WriteSummary(float64, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries++
}

type fakeSubscriber struct {
	topic        string
	qos          byte
	handler      mqtt.MessageHandler
	unsubscribed []string
	err          error
}

func (s *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if s.err != nil {
		return s.err
	}
	s.topic, s.qos, s.handler = topic, qos, handler
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topic string) error {
	if s.err != nil {
		return s.err
	}
	s.unsubscribed = append(s.unsubscribed, topic)
	return nil
}

type harness struct {
	relay *Relay
	store *memStore
	pub   *fakePublisher
	hub   *fakeBroadcaster
}

func newHarness(t interface{ Fatalf(string, ...any) }) *harness {
	h := &harness{
		store: newMemStore(),
		pub:   &fakePublisher{},
		hub:   &fakeBroadcaster{},
	}
	r, err := New(Options{
		Store:       h.store,
		Publisher:   h.pub,
		Broadcaster: h.hub,
		Topics:      mqtt.NewTopics(testTopics),
		QoS:         1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.relay = r
	return h
}
