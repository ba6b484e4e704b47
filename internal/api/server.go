package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/campus-power-core/internal/audit"
	"github.com/nerrad567/campus-power-core/internal/auth"
	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/config"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/logging"
	"github.com/nerrad567/campus-power-core/internal/relay"
	"github.com/nerrad567/campus-power-core/internal/schedule"
	"github.com/nerrad567/campus-power-core/internal/setting"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceStore is the device store surface the API reads and edits.
type DeviceStore interface {
	Get(ctx context.Context, id int) (*device.Device, error)
	List(ctx context.Context) ([]device.Device, error)
	UpdateMetadata(ctx context.Context, id int, patch device.MetadataPatch) (*device.Device, error)
	ListLogs(ctx context.Context, filter device.LogFilter) ([]device.LogEntry, error)
}

// Controller applies control intents. Implemented by *relay.Relay.
type Controller interface {
	Control(ctx context.Context, in relay.Intent) (*device.Device, error)
}

// HealthChecker is implemented by infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionStatus reports broker connectivity.
type ConnectionStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Devices   DeviceStore
	Relay     Controller
	Schedules schedule.Repository
	Settings  setting.Repository
	Audit     audit.Repository // optional: operator audit trail
	Users     *auth.Directory
	DB        *database.DB     // optional: pool stats
	MQTT      ConnectionStatus // optional: broker status
	Health    map[string]HealthChecker
	Registry  *prometheus.Registry // optional: created when nil
	Hub       *Hub                 // optional: created when nil
	Version   string
}

// Server is the HTTP API server for Campus Power Core.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	devices   DeviceStore
	relay     Controller
	schedules schedule.Repository
	settings  setting.Repository
	audit     audit.Repository
	users     *auth.Directory
	db        *database.DB
	mqtt      ConnectionStatus
	health    map[string]HealthChecker
	registry  *prometheus.Registry
	metrics   *httpMetrics
	version   string
	startTime time.Time

	hub         *Hub
	externalHub bool

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Devices == nil {
		return nil, errors.New("device store is required")
	}
	if deps.Relay == nil {
		return nil, errors.New("relay is required")
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger.With("component", "api"),
		devices:   deps.Devices,
		relay:     deps.Relay,
		schedules: deps.Schedules,
		settings:  deps.Settings,
		audit:     deps.Audit,
		users:     deps.Users,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		health:    deps.Health,
		registry:  reg,
		version:   deps.Version,
		startTime: time.Now(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	if s.hub.getController() == nil {
		s.hub.SetController(deps.Relay)
	}

	m, err := newHTTPMetrics(reg, s.hub)
	if err != nil {
		return nil, fmt.Errorf("registering api metrics: %w", err)
	}
	s.metrics = m

	return s, nil
}

// Hub returns the WebSocket hub the server broadcasts through.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// It returns an error if the listen address cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("api server already started")
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		s.cancel()
		return fmt.Errorf("binding API listener: %w", err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", ln.Addr().String(), "cert", s.cfg.TLS.CertFile)
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
