package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using SQLite.
type AvailabilityRepository struct {
	pool *ConnectionPool
}

// CreateWindow inserts an availability window.
func (r *AvailabilityRepository) CreateWindow(ctx context.Context, window persistence.AvailabilityWindow) error {
	var (
		day  sql.NullInt64
		date sql.NullString
	)
	if window.DayOfWeek != nil {
		day = sql.NullInt64{Int64: int64(*window.DayOfWeek), Valid: true}
	}
	if window.Date != nil {
		date = sql.NullString{String: formatDate(*window.Date), Valid: true}
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO hall_availability (id, hall_id, kind, day_of_week, date, start_time, end_time, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		window.ID, window.HallID, window.Kind, day, date, window.StartTime, window.EndTime,
		window.CreatedBy, formatTimestamp(window.CreatedAt),
	)
	return mapError(err)
}

// DeleteWindow removes a window belonging to the hall.
func (r *AvailabilityRepository) DeleteWindow(ctx context.Context, hallID, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM hall_availability WHERE id = ? AND hall_id = ?`, id, hallID)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result, persistence.ErrNotFound)
}

// ListWindows returns the windows of a hall, recurring first.
func (r *AvailabilityRepository) ListWindows(ctx context.Context, hallID string) ([]persistence.AvailabilityWindow, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, hall_id, kind, day_of_week, date, start_time, end_time, created_by, created_at
		FROM hall_availability
		WHERE hall_id = ?
		ORDER BY kind ASC, day_of_week ASC, date ASC, start_time ASC, id ASC`, hallID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var windows []persistence.AvailabilityWindow
	for rows.Next() {
		var (
			w         persistence.AvailabilityWindow
			day       sql.NullInt64
			date      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&w.ID, &w.HallID, &w.Kind, &day, &date, &w.StartTime, &w.EndTime, &w.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan availability window: %w", err)
		}
		if day.Valid {
			d := int(day.Int64)
			w.DayOfWeek = &d
		}
		if date.Valid {
			parsed, err := parseDate(date.String)
			if err != nil {
				return nil, err
			}
			w.Date = &parsed
		}
		if w.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate availability windows: %w", err)
	}
	return windows, nil
}
