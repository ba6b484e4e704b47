package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/campus-power-core/internal/device"
)

// httpMetrics holds the API's Prometheus collectors.
type httpMetrics struct {
	requests *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer, hub *Hub) (*httpMetrics, error) {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campuspower",
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by method and status class.",
			},
			[]string{"method", "status"},
		),
	}
	clients := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "campuspower",
			Subsystem: "websocket",
			Name:      "connected_clients",
			Help:      "Dashboard sessions currently connected.",
		},
		func() float64 { return float64(hub.ClientCount()) },
	)

	for _, c := range []prometheus.Collector{m.requests, clients} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *httpMetrics) observe(method string, status int) {
	if m != nil {
		m.requests.WithLabelValues(method, statusClass(status)).Inc()
	}
}

// SystemMetrics is the JSON snapshot served on /api/system/metrics.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Devices       device.Summary  `json:"devices"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected     bool `json:"connected"`
	Subscriptions int  `json:"subscriptions"`
}

// subscriptionCounter is implemented by broker clients that track their
// active subscriptions.
type subscriptionCounter interface {
	SubscriptionCount() int
}

// DatabaseMetrics contains connection pool statistics.
type DatabaseMetrics struct {
	Driver          string `json:"driver,omitempty"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`

	SchemaVersion     string `json:"schema_version,omitempty"`
	PendingMigrations int    `json:"pending_migrations"`
}

func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT.Connected = s.mqtt.IsConnected()
		if sc, ok := s.mqtt.(subscriptionCounter); ok {
			metrics.MQTT.Subscriptions = sc.SubscriptionCount()
		}
	}

	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Warn("listing devices for metrics", "error", err)
	} else {
		metrics.Devices = device.Summarize(devices)
	}

	if s.db != nil {
		stats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			Driver:          s.db.Dialect().Name(),
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
		applied, pending, err := s.db.GetMigrationStatus(r.Context())
		if err != nil {
			s.logger.Warn("reading migration status", "error", err)
		} else {
			if len(applied) > 0 {
				metrics.Database.SchemaVersion = applied[len(applied)-1].Version
			}
			metrics.Database.PendingMigrations = len(pending)
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
