// Campus Power Core relays device telemetry and control intents between
// campus hardware on MQTT, the device store and dashboard sessions.
//
// Hardware publishes state under the monitoring topic prefix; the core
// records it, logs it and pushes it to every connected dashboard.
// Dashboards and HTTP clients issue control intents that the core applies,
// logs and forwards to the hardware control topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	_ "github.com/nerrad567/campus-power-core/migrations"

	"github.com/nerrad567/campus-power-core/internal/api"
	"github.com/nerrad567/campus-power-core/internal/audit"
	"github.com/nerrad567/campus-power-core/internal/auth"
	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/config"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/logging"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/campus-power-core/internal/relay"
	"github.com/nerrad567/campus-power-core/internal/schedule"
	"github.com/nerrad567/campus-power-core/internal/setting"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
)

// options holds the parsed command line.
type options struct {
	configPath  string
	envFile     string
	showVersion bool
	migrateDown bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("campuspower %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses args. CAMPUSPOWER_CONFIG supplies the config path when
// --config is not given.
func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("campuspower", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")
	fs.StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before configuration")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&opts.migrateDown, "migrate-down", false, "roll back the most recent database migration and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.configPath == "" {
		opts.configPath = os.Getenv("CAMPUSPOWER_CONFIG")
	}
	if opts.configPath == "" {
		opts.configPath = defaultConfigPath
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
// Deferred closes run in reverse order of startup.
func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting Campus Power Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)

	if opts.migrateDown {
		return rollbackMigration(ctx, cfg.Database, log)
	}

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	devices := device.NewSQLRepository(db, device.Naming{
		ACDeviceID:  cfg.Devices.ACDeviceID,
		DefaultRoom: cfg.Devices.DefaultRoom,
	})
	schedules := schedule.NewSQLRepository(db)
	settings := setting.NewSQLRepository(db)
	auditTrail := audit.NewSQLRepository(db)

	mqttClient, err := mqtt.Connect(cfg.MQTT, log.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	health := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB history disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := api.NewHub(cfg.WebSocket, log)

	relayOpts := relay.Options{
		Store:       devices,
		Publisher:   mqttClient,
		Broadcaster: hub,
		Metrics:     relay.NewMetrics(registry),
		Logger:      log,
		Topics:      mqttClient.Topics(),
		QoS:         mqttClient.QoS(),
	}
	if influxClient != nil {
		relayOpts.History = influxClient
	}
	rel, err := relay.New(relayOpts)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	hub.SetController(rel)

	if err := rel.StartIngest(ctx, mqttClient); err != nil {
		return fmt.Errorf("starting telemetry ingest: %w", err)
	}
	defer func() {
		if err := rel.StopIngest(mqttClient); err != nil {
			log.Warn("stopping telemetry ingest", "error", err)
		}
	}()

	users, err := auth.NewDirectory(cfg.Security.Users, log)
	if err != nil {
		return fmt.Errorf("loading operator accounts: %w", err)
	}

	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Devices:   devices,
		Relay:     rel,
		Schedules: schedules,
		Settings:  settings,
		Audit:     auditTrail,
		Users:     users,
		DB:        db,
		MQTT:      mqttClient,
		Health:    health,
		Registry:  registry,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("Campus Power Core started", "addr", srv.Addr(), "websocket", cfg.WebSocket.Path)

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// openDatabase connects to the configured store and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(databaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Already returning the migration error
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Info("database ready", "driver", db.Dialect().Name())
	return db, nil
}

// rollbackMigration reverts the newest applied migration.
func rollbackMigration(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) error {
	db, err := database.Open(databaseConfig(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Process exits after rollback

	if err := db.MigrateDown(ctx); err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	log.Info("rolled back latest migration", "driver", db.Dialect().Name())
	return nil
}

func databaseConfig(cfg config.DatabaseConfig) database.Config {
	return database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		WALMode:         cfg.WALMode,
		BusyTimeout:     cfg.BusyTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSecs) * time.Second,
	}
}
