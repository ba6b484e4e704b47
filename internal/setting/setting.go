package setting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
)

// ErrSettingNotFound is returned when a key has never been set.
var ErrSettingNotFound = errors.New("setting: not found")

// ErrInvalidKey is returned for empty or oversized keys.
var ErrInvalidKey = errors.New("setting: invalid key")

// maxKeyLength bounds setting keys.
const maxKeyLength = 128

// Setting is a single key/value pair. Keys are unique; writes replace.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository stores settings.
type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]Setting, error)
	Set(ctx context.Context, key, value string) (*Setting, error)
}

// SQLRepository implements Repository on database.DB.
type SQLRepository struct {
	db *database.DB
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository creates a settings repository.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// ValidateKey checks a setting key.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > maxKeyLength {
		return fmt.Errorf("%w: key must be 1-%d characters", ErrInvalidKey, maxKeyLength)
	}
	return nil
}

// Get returns a single setting.
func (r *SQLRepository) Get(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ?`, key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("querying setting %q: %w", key, err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// List returns all settings ordered by key.
func (r *SQLRepository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	settings := make([]Setting, 0)
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return settings, nil
}

// Set inserts or replaces a setting.
func (r *SQLRepository) Set(ctx context.Context, key, value string) (*Setting, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return nil, fmt.Errorf("saving setting %q: %w", key, err)
	}
	return &Setting{Key: key, Value: value, UpdatedAt: now}, nil
}
