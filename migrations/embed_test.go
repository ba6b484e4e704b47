package migrations

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"testing"
)

var dialects = []string{"sqlite", "postgres"}

// scripts returns the migration file names for a dialect, sorted.
func scripts(t *testing.T, dialect string) []string {
	t.Helper()
	entries, err := fs.ReadDir(migrationsFS, dialect)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dialect, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func TestDialectsShareMigrationSet(t *testing.T) {
	want := scripts(t, "sqlite")
	if len(want) == 0 {
		t.Fatal("no sqlite migrations embedded")
	}

	got := scripts(t, "postgres")
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("postgres migrations = %v, want %v", got, want)
	}
}

func TestEveryUpHasDown(t *testing.T) {
	for _, dialect := range dialects {
		names := scripts(t, dialect)
		have := make(map[string]bool, len(names))
		for _, n := range names {
			have[n] = true
		}
		for _, n := range names {
			if base, ok := strings.CutSuffix(n, ".up.sql"); ok && !have[base+".down.sql"] {
				t.Errorf("%s/%s has no down migration", dialect, n)
			}
		}
	}
}

func TestPostgresScripts(t *testing.T) {
	// SQLite spellings that Postgres rejects.
	forbidden := []string{"AUTOINCREMENT", "DATETIME", "PRAGMA", "INSERT OR "}

	for _, name := range scripts(t, "postgres") {
		t.Run(name, func(t *testing.T) {
			data, err := fs.ReadFile(migrationsFS, path.Join("postgres", name))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			script := strings.ToUpper(string(data))
			for _, word := range forbidden {
				if strings.Contains(script, word) {
					t.Errorf("uses SQLite-only %q", word)
				}
			}

			var body []string
			for _, line := range strings.Split(string(data), "\n") {
				if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
					body = append(body, trimmed)
				}
			}
			if len(body) == 0 {
				t.Fatal("script has no statements")
			}
			if last := body[len(body)-1]; !strings.HasSuffix(last, ";") {
				t.Errorf("last statement %q is not terminated with ';'", last)
			}
		})
	}
}

func TestPostgresDeviceIDIsInteger(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "postgres/20260301_090000_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// device.MaxDeviceID is bounded to this column type.
	if !strings.Contains(string(data), "id          INTEGER PRIMARY KEY") {
		t.Error("devices.id is no longer INTEGER; revisit device.MaxDeviceID")
	}
}
