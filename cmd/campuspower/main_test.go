package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/config"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/logging"
)

const testSecret = "test-secret-for-development-only-0123456789"

// writeTestConfig writes a config whose database lives in a temp dir and
// whose broker is at brokerPort.
func writeTestConfig(t *testing.T, dbPath string, brokerPort int) string {
	t.Helper()
	content := `
site:
  id: test-site

database:
  driver: sqlite
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: ` + strconv.Itoa(brokerPort) + `
    client_id: "campuspower-test"
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stderr

api:
  host: "127.0.0.1"
  port: 18089

security:
  jwt:
    secret: "` + testSecret + `"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("CAMPUSPOWER_CONFIG", "")

	opts, err := parseFlags(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != defaultConfigPath {
		t.Errorf("configPath = %q, want %q", opts.configPath, defaultConfigPath)
	}
	if opts.envFile != defaultEnvFile {
		t.Errorf("envFile = %q, want %q", opts.envFile, defaultEnvFile)
	}
	if opts.showVersion {
		t.Error("showVersion should default to false")
	}
}

func TestParseFlags_EnvOverride(t *testing.T) {
	t.Setenv("CAMPUSPOWER_CONFIG", "/etc/campuspower/config.yaml")

	opts, err := parseFlags(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "/etc/campuspower/config.yaml" {
		t.Errorf("configPath = %q", opts.configPath)
	}

	opts, err = parseFlags([]string{"-c", "local.yaml", "--env-file", "", "--version"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "local.yaml" || opts.envFile != "" || !opts.showVersion {
		t.Errorf("opts = %+v", opts)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	var out bytes.Buffer
	if _, err := parseFlags([]string{"--bogus"}, &out); err == nil {
		t.Error("parseFlags() should reject unknown flags")
	}
	if _, err := parseFlags([]string{"--help"}, &out); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("--help error = %v, want pflag.ErrHelp", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, options{configPath: "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want config load failure", err)
	}
}

func TestRun_BrokerUnreachable(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, filepath.Join(dir, "power.db"), 19999)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx, options{configPath: path})
	if err == nil {
		t.Fatal("run() should fail without a broker")
	}
	if !strings.Contains(err.Error(), "MQTT") {
		t.Errorf("error = %v, want MQTT connection failure", err)
	}

	// The database is opened and migrated before the broker is dialled.
	if _, statErr := os.Stat(filepath.Join(dir, "power.db")); statErr != nil {
		t.Errorf("database file not created: %v", statErr)
	}
}

// Requires an MQTT broker at 127.0.0.1:1883.
func TestRun_StartupAndShutdown(t *testing.T) {
	path := writeTestConfig(t, filepath.Join(t.TempDir(), "power.db"), 1883)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx, options{configPath: path}); err != nil {
		if strings.Contains(err.Error(), "MQTT") {
			t.Skipf("MQTT broker not available: %v", err)
		}
		t.Fatalf("run() error = %v", err)
	}
}

func TestOpenDatabase_Migrates(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "power.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}

	db, err := openDatabase(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("openDatabase() error = %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM devices`).Scan(&n); err != nil {
		t.Fatalf("devices table missing: %v", err)
	}
}

func TestRun_MigrateDown(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "power.db")
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: dbPath, WALMode: true, BusyTimeout: 5}

	db, err := openDatabase(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("openDatabase() error = %v", err)
	}
	db.Close() //nolint:errcheck // Reopened by run

	path := writeTestConfig(t, dbPath, 19999)
	if err := run(context.Background(), options{configPath: path, migrateDown: true}); err != nil {
		t.Fatalf("run(--migrate-down) error = %v", err)
	}

	raw, err := database.Open(databaseConfig(cfg))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer raw.Close()
	_, pending, err := raw.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending after rollback = %d, want 1", len(pending))
	}
}

func TestOpenDatabase_PostgresWithoutDSN(t *testing.T) {
	_, err := openDatabase(context.Background(), config.DatabaseConfig{Driver: config.DriverPostgres}, logging.Discard())
	if err == nil {
		t.Error("openDatabase() should fail for postgres without a DSN")
	}
}
