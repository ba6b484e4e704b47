package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
)

// Repository defines schedule persistence operations.
type Repository interface {
	Get(ctx context.Context, id int64) (*Schedule, error)
	List(ctx context.Context, filter ListFilter) ([]Schedule, error)
	Create(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id int64) error
}

const scheduleColumns = `id, name, target_type, target, action, time_of_day, weekdays, active, created_at, updated_at`

// SQLRepository implements Repository on SQLite or PostgreSQL.
type SQLRepository struct {
	db *database.DB
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository creates a schedule repository.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Get retrieves a schedule by ID.
func (r *SQLRepository) Get(ctx context.Context, id int64) (*Schedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule %d: %w", id, err)
	}
	return s, nil
}

// List returns schedules ordered by time of day then ID.
func (r *SQLRepository) List(ctx context.Context, filter ListFilter) ([]Schedule, error) {
	var (
		where []string
		args  []any
	)
	if filter.TargetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, string(filter.TargetType))
	}
	if filter.Target != "" {
		where = append(where, "target = ?")
		args = append(args, filter.Target)
	}
	if filter.ActiveOnly {
		where = append(where, "active = ?")
		args = append(args, true)
	}

	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY time_of_day, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return schedules, nil
}

// Create validates and inserts s, filling in ID and timestamps.
func (r *SQLRepository) Create(ctx context.Context, s *Schedule) error {
	if err := Validate(s); err != nil {
		return err
	}

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO schedules (name, target_type, target, action, time_of_day, weekdays, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		s.Name, string(s.TargetType), s.Target, string(s.Action), s.TimeOfDay,
		strings.Join(s.Weekdays, ","), s.Active, now, now,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}

	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// Update validates and replaces every mutable field of s.
func (r *SQLRepository) Update(ctx context.Context, s *Schedule) error {
	if err := Validate(s); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET name = ?, target_type = ?, target = ?, action = ?, time_of_day = ?,
		    weekdays = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, string(s.TargetType), s.Target, string(s.Action), s.TimeOfDay,
		strings.Join(s.Weekdays, ","), s.Active, now, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule %d: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}

	s.UpdatedAt = now
	return nil
}

// Delete removes a schedule.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting schedule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var (
		s          Schedule
		targetType string
		action     string
		weekdays   string
	)
	if err := row.Scan(
		&s.ID, &s.Name, &targetType, &s.Target, &action, &s.TimeOfDay,
		&weekdays, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.TargetType = TargetType(targetType)
	s.Action = Action(action)
	s.Weekdays = splitWeekdays(weekdays)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func splitWeekdays(csv string) []string {
	if csv == "" {
		return []string{}
	}
	return strings.Split(csv, ",")
}
