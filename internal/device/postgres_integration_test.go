//go:build integration

package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
)

// Integration tests for the PostgreSQL backend.
//
// Run with:
//   go test -tags=integration -v ./internal/device/...

// skipIfNoDocker skips the test if Docker is not available.
func skipIfNoDocker(t *testing.T) {
	t.Helper()

	defer func() {
		if r := recover(); r != nil {
			t.Skipf("Docker not available (panic recovered): %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		t.Skipf("Docker not available, skipping integration test: %v", err)
	}
	defer provider.Close()

	if _, err := provider.Client().Ping(ctx); err != nil {
		t.Skipf("Docker not responding, skipping integration test: %v", err)
	}
}

// openPostgresRepo starts a Postgres container and returns a migrated repository.
func openPostgresRepo(t *testing.T) *SQLRepository {
	t.Helper()
	skipIfNoDocker(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("campuspower_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := database.Open(database.Config{Driver: "postgres", DSN: dsn, MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLRepository(db, DefaultNaming)
}

func TestPostgres_UpdateAndLog(t *testing.T) {
	repo := openPostgresRepo(t)
	ctx := context.Background()

	d, result, err := repo.Update(ctx, 4, SetState(true, 0))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if result != Created || !d.Status || d.Category != CategoryLight {
		t.Errorf("Update() = %+v, %v", d, result)
	}

	d, result, err = repo.Update(ctx, 4, SetState(false, 0))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if result != Updated || d.Status {
		t.Errorf("second Update() = %+v, %v", d, result)
	}

	entry, err := NewLogEntry(4, ActionWebOverride, SetState(false, 0))
	if err != nil {
		t.Fatalf("NewLogEntry() error = %v", err)
	}
	if _, err := repo.AppendLog(ctx, entry); err != nil {
		t.Fatalf("AppendLog() error = %v", err)
	}

	logs, err := repo.ListLogs(ctx, LogFilter{DeviceID: 4})
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Action != ActionWebOverride {
		t.Errorf("ListLogs() = %+v", logs)
	}
}

func TestPostgres_ConcurrentCreate(t *testing.T) {
	repo := openPostgresRepo(t)
	ctx := context.Background()

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			_, result, err := repo.Update(ctx, 42, SetState(on, 0))
			if err != nil {
				t.Errorf("Update() error = %v", err)
				return
			}
			if result == Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created count = %d, want 1", created)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("List() returned %d rows, want 1", len(devices))
	}
}
