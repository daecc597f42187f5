package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

// HallRepository implements persistence.HallRepository using SQLite.
type HallRepository struct {
	pool *ConnectionPool
}

// CreateHall inserts a new hall.
func (r *HallRepository) CreateHall(ctx context.Context, hall persistence.Hall) error {
	if hall.ID == "" || hall.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	facilities, err := encodeList(hall.Facilities)
	if err != nil {
		return err
	}

	_, err = r.pool.DB().ExecContext(ctx, `
		INSERT INTO halls (id, name, location, capacity, facilities, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		hall.ID, hall.Name, hall.Location, hall.Capacity, facilities,
		formatTimestamp(hall.CreatedAt), formatTimestamp(hall.UpdatedAt),
	)
	return mapError(err)
}

// UpdateHall updates the mutable fields of a hall.
func (r *HallRepository) UpdateHall(ctx context.Context, hall persistence.Hall) error {
	if hall.ID == "" || hall.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	facilities, err := encodeList(hall.Facilities)
	if err != nil {
		return err
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE halls
		SET name = ?, location = ?, capacity = ?, facilities = ?, updated_at = ?
		WHERE id = ?`,
		hall.Name, hall.Location, hall.Capacity, facilities, formatTimestamp(hall.UpdatedAt), hall.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result, persistence.ErrNotFound)
}

// GetHall retrieves a hall by ID.
func (r *HallRepository) GetHall(ctx context.Context, id string) (persistence.Hall, error) {
	if id == "" {
		return persistence.Hall{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, location, capacity, facilities, created_at, updated_at
		FROM halls
		WHERE id = ?`, id)
	hall, err := scanHall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Hall{}, persistence.ErrNotFound
	}
	return hall, err
}

// ListHalls returns all halls ordered by name.
func (r *HallRepository) ListHalls(ctx context.Context) ([]persistence.Hall, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, location, capacity, facilities, created_at, updated_at
		FROM halls
		ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var halls []persistence.Hall
	for rows.Next() {
		hall, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		halls = append(halls, hall)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate halls: %w", err)
	}
	return halls, nil
}

// DeleteHall removes a hall. Trainings referencing the hall prevent deletion.
func (r *HallRepository) DeleteHall(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM halls WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result, persistence.ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHall(row rowScanner) (persistence.Hall, error) {
	var (
		hall                 persistence.Hall
		facilities           string
		createdAt, updatedAt string
	)
	if err := row.Scan(&hall.ID, &hall.Name, &hall.Location, &hall.Capacity, &facilities, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Hall{}, err
		}
		return persistence.Hall{}, fmt.Errorf("failed to scan hall: %w", err)
	}

	var err error
	if hall.Facilities, err = decodeList(facilities); err != nil {
		return persistence.Hall{}, err
	}
	if hall.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Hall{}, err
	}
	if hall.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Hall{}, err
	}
	return hall, nil
}
