package device

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ActionKind tags the origin of a state-changing event in the audit trail.
type ActionKind string

// Action kinds.
const (
	// ActionMQTTSync is a state reported by hardware telemetry.
	ActionMQTTSync ActionKind = "mqtt_sync"

	// ActionWebOverride is a control intent issued from a dashboard or HTTP.
	ActionWebOverride ActionKind = "web_override"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	return k == ActionMQTTSync || k == ActionWebOverride
}

// LogEntry is one row of the append-only action log.
// Value is an opaque serialised payload (telemetry or intent).
type LogEntry struct {
	ID        int64      `json:"id"`
	DeviceID  int        `json:"device_id"`
	Action    ActionKind `json:"action"`
	Value     string     `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewLogEntry builds an entry whose value is v encoded as JSON.
// A []byte or json.RawMessage value is stored verbatim.
func NewLogEntry(deviceID int, action ActionKind, v any) (LogEntry, error) {
	var value string
	switch raw := v.(type) {
	case []byte:
		value = string(raw)
	case json.RawMessage:
		value = string(raw)
	case string:
		value = raw
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return LogEntry{}, fmt.Errorf("encoding log value: %w", err)
		}
		value = string(b)
	}
	return LogEntry{DeviceID: deviceID, Action: action, Value: value}, nil
}

// Log listing bounds.
const (
	DefaultLogLimit = 100
	MaxLogLimit     = 1000
)

// LogFilter narrows ListLogs. Zero values mean "any".
type LogFilter struct {
	DeviceID int
	Action   ActionKind
	Limit    int
}

func (f LogFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLogLimit
	case f.Limit > MaxLogLimit:
		return MaxLogLimit
	default:
		return f.Limit
	}
}

// AppendLog inserts an action log entry. CreatedAt defaults to now.
func (r *SQLRepository) AppendLog(ctx context.Context, entry LogEntry) (*LogEntry, error) {
	if !entry.Action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, entry.Action)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	// RETURNING works on both SQLite 3.35+ and PostgreSQL, unlike LastInsertId.
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO action_logs (device_id, action, value, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		entry.DeviceID, string(entry.Action), entry.Value, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("appending action log for device %d: %w", entry.DeviceID, err)
	}
	return &entry, nil
}

// ListLogs returns action log entries, newest first.
func (r *SQLRepository) ListLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.DeviceID > 0 {
		where = append(where, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Action != "" {
		if !filter.Action.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAction, filter.Action)
		}
		where = append(where, "action = ?")
		args = append(args, string(filter.Action))
	}

	query := `SELECT id, device_id, action, value, created_at FROM action_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT %d", filter.limit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing action logs: %w", err)
	}
	defer rows.Close()

	entries := make([]LogEntry, 0)
	for rows.Next() {
		var (
			e      LogEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &action, &e.Value, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning action log: %w", err)
		}
		e.Action = ActionKind(action)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating action logs: %w", err)
	}
	return entries, nil
}
