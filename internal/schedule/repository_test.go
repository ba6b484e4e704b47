package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
	_ "github.com/nerrad567/campus-power-core/migrations"
)

func openTestRepo(t *testing.T) *SQLRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "schedules.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewSQLRepository(db)
}

func TestCreateAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	s := validSchedule()
	s.Weekdays = []string{"friday", "monday"}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == 0 {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Target != "Hall A" || got.Action != ActionTurnOff || got.TimeOfDay != "22:30" || !got.Active {
		t.Errorf("Get() = %+v", got)
	}
	if !reflect.DeepEqual(got.Weekdays, []string{"mon", "fri"}) {
		t.Errorf("Weekdays = %v, want [mon fri]", got.Weekdays)
	}
}

func TestCreate_RejectsInvalid(t *testing.T) {
	repo := openTestRepo(t)

	s := validSchedule()
	s.TimeOfDay = "7pm"
	if err := repo.Create(context.Background(), s); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("Create() error = %v, want ErrInvalidSchedule", err)
	}
}

func TestUpdate(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	s := validSchedule()
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	s.Action = ActionTurnOn
	s.Active = false
	s.TimeOfDay = "07:15"
	if err := repo.Update(ctx, s); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Action != ActionTurnOn || got.Active || got.TimeOfDay != "07:15" {
		t.Errorf("Get() after update = %+v", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	s := validSchedule()
	s.ID = 999
	if err := repo.Update(context.Background(), s); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("Update() error = %v, want ErrScheduleNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	s := validSchedule()
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, s.ID); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrScheduleNotFound", err)
	}
	if err := repo.Delete(ctx, s.ID); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("second Delete() error = %v, want ErrScheduleNotFound", err)
	}
}

func TestList_Filters(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	morning := validSchedule()
	morning.TimeOfDay = "07:00"
	morning.Action = ActionTurnOn

	lamp := validSchedule()
	lamp.TargetType = TargetDevice
	lamp.Target = "3"
	lamp.Active = false

	for _, s := range []*Schedule{validSchedule(), morning, lamp} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d, want 3", len(all))
	}
	if all[0].TimeOfDay != "07:00" {
		t.Errorf("first schedule time = %q, want 07:00", all[0].TimeOfDay)
	}

	active, err := repo.List(ctx, ListFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("List(active) error = %v", err)
	}
	if len(active) != 2 {
		t.Errorf("List(active) returned %d, want 2", len(active))
	}

	devices, err := repo.List(ctx, ListFilter{TargetType: TargetDevice, Target: "3"})
	if err != nil {
		t.Fatalf("List(device) error = %v", err)
	}
	if len(devices) != 1 || devices[0].ID != lamp.ID {
		t.Errorf("List(device) = %+v", devices)
	}
}
