package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/relay"
)

func TestListDevices_Empty(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/devices", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestTelemetryThenListDevices(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	env.relay.HandleTelemetry(ctx, "iot/monitoring/rack7/12", []byte(`{"status":true,"value":55}`))
	env.relay.HandleTelemetry(ctx, "iot/monitoring/rack7/status", []byte(`{"status":false}`))

	w := env.do(t, http.MethodGet, "/api/devices", nil, "")
	devices := decode[[]device.Device](t, w)
	if len(devices) != 1 {
		t.Fatalf("devices = %d, want 1", len(devices))
	}
	d := devices[0]
	if d.ID != 12 || !d.Status || d.Value != 55 || d.LastSeen == nil {
		t.Errorf("device = %+v", d)
	}
}

func TestControlDevice(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/devices/4/control", map[string]any{"status": true}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	d := decode[device.Device](t, w)
	if d.ID != 4 || !d.Status || d.Value != 0 {
		t.Errorf("device = %+v, want 4/true/0", d)
	}

	if n := env.pub.count(); n != 1 {
		t.Fatalf("published %d, want 1", n)
	}
	if env.pub.topics[0] != "iot/control/4" {
		t.Errorf("topic = %q", env.pub.topics[0])
	}
	var payload map[string]any
	if err := json.Unmarshal(env.pub.bodies[0], &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["status"] != true || payload["value"] != float64(0) {
		t.Errorf("payload = %v", payload)
	}

	w = env.do(t, http.MethodGet, "/api/devices/4", nil, "")
	got := decode[device.Device](t, w)
	if !got.Status {
		t.Error("GET after control should reflect status=true")
	}

	logs := decode[[]device.LogEntry](t, env.do(t, http.MethodGet, "/api/devices/4/logs", nil, ""))
	if len(logs) != 1 || logs[0].Action != device.ActionWebOverride {
		t.Errorf("logs = %+v", logs)
	}
}

func TestControlDevice_Validation(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"non-numeric id", "/api/devices/lamp/control", map[string]any{"status": true}, http.StatusBadRequest},
		{"zero id", "/api/devices/0/control", map[string]any{"status": true}, http.StatusBadRequest},
		{"leading zero id", "/api/devices/012/control", map[string]any{"status": true}, http.StatusBadRequest},
		{"id beyond store range", "/api/devices/3000000000/control", map[string]any{"status": true}, http.StatusBadRequest},
		{"missing status", "/api/devices/3/control", map[string]any{"value": 10}, http.StatusBadRequest},
		{"bad json", "/api/devices/3/control", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPost, tt.path, tt.body, ""); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
	if n := env.pub.count(); n != 0 {
		t.Errorf("published %d, want 0", n)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	env := testServer(t)

	if w := env.do(t, http.MethodGet, "/api/devices/99", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPatchDevice(t *testing.T) {
	env := testServer(t)
	if _, err := env.relay.Control(context.Background(), relay.Intent{DeviceID: 2, Status: false}); err != nil {
		t.Fatalf("Control: %v", err)
	}

	patch := map[string]string{"name": "Podium lamp", "room": "Hall B"}

	if w := env.do(t, http.MethodPatch, "/api/devices/2", patch, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated PATCH status = %d, want 401", w.Code)
	}

	w := env.do(t, http.MethodPatch, "/api/devices/2", patch, operatorToken(t))
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d: %s", w.Code, w.Body)
	}
	d := decode[device.Device](t, w)
	if d.Name != "Podium lamp" || d.Room != "Hall B" {
		t.Errorf("device = %+v", d)
	}

	if w := env.do(t, http.MethodPatch, "/api/devices/77", patch, operatorToken(t)); w.Code != http.StatusNotFound {
		t.Errorf("PATCH unknown device status = %d, want 404", w.Code)
	}
}

func TestListLogs_Filters(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	env.relay.HandleTelemetry(ctx, "iot/monitoring/1", []byte(`{"status":true,"value":10}`))
	env.relay.HandleTelemetry(ctx, "iot/monitoring/2", []byte(`{"status":true,"value":20}`))
	if _, err := env.relay.Control(ctx, relay.Intent{DeviceID: 1, Status: false}); err != nil {
		t.Fatalf("Control: %v", err)
	}

	all := decode[[]device.LogEntry](t, env.do(t, http.MethodGet, "/api/logs", nil, ""))
	if len(all) != 3 {
		t.Fatalf("logs = %d, want 3", len(all))
	}
	if all[0].Action != device.ActionWebOverride {
		t.Errorf("newest log action = %q, want web_override", all[0].Action)
	}

	synced := decode[[]device.LogEntry](t, env.do(t, http.MethodGet, "/api/logs?action=mqtt_sync&device_id=2", nil, ""))
	if len(synced) != 1 || synced[0].DeviceID != 2 {
		t.Errorf("filtered logs = %+v", synced)
	}

	limited := decode[[]device.LogEntry](t, env.do(t, http.MethodGet, "/api/logs?limit=2", nil, ""))
	if len(limited) != 2 {
		t.Errorf("limited logs = %d, want 2", len(limited))
	}

	for _, q := range []string{"?action=reboot", "?limit=0", "?device_id=x"} {
		if w := env.do(t, http.MethodGet, "/api/logs"+q, nil, ""); w.Code != http.StatusBadRequest {
			t.Errorf("GET /api/logs%s status = %d, want 400", q, w.Code)
		}
	}
}

func TestRoomsAndSummary(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	env.relay.HandleTelemetry(ctx, "iot/monitoring/1", []byte(`{"status":true,"value":10}`))
	env.relay.HandleTelemetry(ctx, "iot/monitoring/5", []byte(`{"status":true,"value":24}`))
	env.relay.HandleTelemetry(ctx, "iot/monitoring/3", []byte(`{"status":false,"value":0}`))

	rooms := decode[[]device.RoomSummary](t, env.do(t, http.MethodGet, "/api/rooms", nil, ""))
	if len(rooms) != 1 || rooms[0].Total != 3 || rooms[0].On != 2 {
		t.Errorf("rooms = %+v", rooms)
	}

	summary := decode[device.Summary](t, env.do(t, http.MethodGet, "/api/summary", nil, ""))
	if summary.LightsOn != 1 || summary.ACOn != 1 || summary.TotalWatts != 10 {
		t.Errorf("summary = %+v", summary)
	}
}
