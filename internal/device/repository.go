package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
)

// Repository defines device persistence operations.
// This abstraction allows unit testing the relay without a database.
type Repository interface {
	// Get retrieves a device by identifier.
	// Returns ErrDeviceNotFound if the device has never been seen.
	Get(ctx context.Context, id int) (*Device, error)

	// List retrieves all devices ordered by room then id.
	List(ctx context.Context) ([]Device, error)

	// Update applies a state change, creating the device with naming
	// defaults when it does not exist yet. Concurrent creates of the same
	// id never fail with a duplicate key; the last writer's state wins.
	Update(ctx context.Context, id int, u StateUpdate) (*Device, UpsertResult, error)

	// UpdateMetadata renames a device or moves it to another room.
	// Returns ErrDeviceNotFound if the device does not exist.
	UpdateMetadata(ctx context.Context, id int, patch MetadataPatch) (*Device, error)

	// AppendLog inserts an action log entry.
	AppendLog(ctx context.Context, entry LogEntry) (*LogEntry, error)

	// ListLogs returns action log entries, newest first.
	ListLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}

// SQLRepository implements Repository on SQLite or PostgreSQL.
type SQLRepository struct {
	db     *database.DB
	naming Naming
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository creates a repository on an open, migrated database.
func NewSQLRepository(db *database.DB, naming Naming) *SQLRepository {
	return &SQLRepository{db: db, naming: naming}
}

const deviceColumns = `id, name, category, status, value, room, last_seen, created_at, updated_at`

// Get retrieves a device by identifier.
func (r *SQLRepository) Get(ctx context.Context, id int) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device %d: %w", id, err)
	}
	return d, nil
}

// List retrieves all devices.
func (r *SQLRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY room, id`)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	devices := make([]Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Update applies a state change with create-if-missing semantics.
//
// The sequence is update, then insert-or-ignore, then update again if the
// insert lost a race. It runs the same on SQLite and PostgreSQL and tells
// the caller whether this call created the row.
func (r *SQLRepository) Update(ctx context.Context, id int, u StateUpdate) (*Device, UpsertResult, error) {
	if err := ValidateDeviceID(id); err != nil {
		return nil, Updated, err
	}

	now := time.Now().UTC()
	seen := u.SeenAt.UTC()
	if u.SeenAt.IsZero() {
		seen = now
	}

	updated, err := r.updateState(ctx, id, u, seen, now)
	if err != nil {
		return nil, Updated, err
	}

	result := Updated
	if !updated {
		created, err := r.insertDefault(ctx, id, u, seen, now)
		if err != nil {
			return nil, Updated, err
		}
		if created {
			result = Created
		} else if _, err := r.updateState(ctx, id, u, seen, now); err != nil {
			// A concurrent writer created the row between our update and insert.
			return nil, Updated, err
		}
	}

	d, err := r.Get(ctx, id)
	if err != nil {
		return nil, result, err
	}
	return d, result, nil
}

func (r *SQLRepository) updateState(ctx context.Context, id int, u StateUpdate, seen, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET status = COALESCE(?, status),
		    value = COALESCE(?, value),
		    last_seen = ?,
		    updated_at = ?
		WHERE id = ?`,
		nullableBool(u.Status), nullableFloat(u.Value), seen, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("updating device %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) insertDefault(ctx context.Context, id int, u StateUpdate, seen, now time.Time) (bool, error) {
	name, category, room := r.naming.Defaults(id)

	var (
		status bool
		value  float64
	)
	if u.Status != nil {
		status = *u.Status
	}
	if u.Value != nil {
		value = *u.Value
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, category, status, value, room, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		id, name, string(category), status, value, room, seen, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("creating device %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

// UpdateMetadata changes name, room or category.
func (r *SQLRepository) UpdateMetadata(ctx context.Context, id int, patch MetadataPatch) (*Device, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*patch.Name))
	}
	if patch.Room != nil {
		sets = append(sets, "room = ?")
		args = append(args, strings.TrimSpace(*patch.Room))
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*patch.Category))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating device %d metadata: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrDeviceNotFound
	}

	return r.Get(ctx, id)
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d        Device
		category string
		lastSeen sql.NullTime
	)
	if err := row.Scan(
		&d.ID, &d.Name, &category, &d.Status, &d.Value, &d.Room,
		&lastSeen, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d.Category = Category(category)
	if lastSeen.Valid {
		t := lastSeen.Time.UTC()
		d.LastSeen = &t
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
