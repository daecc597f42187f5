package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

const trainingColumns = `id, title, description, program, hall_id, date, start_time, end_time, capacity,
	trainer_id, created_by, required_institutions, status,
	session_active, session_start, session_end, session_token, session_started_by,
	created_at, updated_at`

// TrainingRepository implements persistence.TrainingRepository using SQLite.
type TrainingRepository struct {
	pool *ConnectionPool
}

// CreateTraining inserts a training.
func (r *TrainingRepository) CreateTraining(ctx context.Context, training persistence.Training) error {
	institutions, err := encodeList(training.RequiredInstitutions)
	if err != nil {
		return err
	}

	_, err = r.pool.DB().ExecContext(ctx, `
		INSERT INTO trainings (`+trainingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		training.ID, training.Title, nullableString(training.Description), nullableString(training.Program),
		training.HallID, formatDate(training.Date), training.StartTime, training.EndTime, training.Capacity,
		training.TrainerID, training.CreatedBy, institutions, training.Status,
		training.Session.Active, nullableTimestamp(training.Session.StartTime), nullableTimestamp(training.Session.EndTime),
		nullableString(training.Session.Token), nullableString(training.Session.StartedBy),
		formatTimestamp(training.CreatedAt), formatTimestamp(training.UpdatedAt),
	)
	return mapError(err)
}

// UpdateTraining rewrites the descriptive and scheduling fields of a training.
// training.Status is the status the caller read; the write only lands while the
// stored status still matches it and fails with persistence.ErrStaleState
// otherwise. Status and session state have dedicated writers.
func (r *TrainingRepository) UpdateTraining(ctx context.Context, training persistence.Training) error {
	institutions, err := encodeList(training.RequiredInstitutions)
	if err != nil {
		return err
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE trainings
			SET title = ?, description = ?, program = ?, hall_id = ?, date = ?, start_time = ?, end_time = ?,
				capacity = ?, trainer_id = ?, required_institutions = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			training.Title, nullableString(training.Description), nullableString(training.Program),
			training.HallID, formatDate(training.Date), training.StartTime, training.EndTime,
			training.Capacity, training.TrainerID, institutions, formatTimestamp(training.UpdatedAt),
			training.ID, training.Status,
		)
		if err != nil {
			return mapError(err)
		}
		if err := expectOneRow(result, persistence.ErrStaleState); err == nil {
			return nil
		}
		if _, err := getTraining(ctx, tx, training.ID); err != nil {
			return err
		}
		return persistence.ErrStaleState
	})
}

// GetTraining retrieves a training by ID.
func (r *TrainingRepository) GetTraining(ctx context.Context, id string) (persistence.Training, error) {
	return getTraining(ctx, r.pool.DB(), id)
}

func getTraining(ctx context.Context, q execer, id string) (persistence.Training, error) {
	row := q.QueryRowContext(ctx, `SELECT `+trainingColumns+` FROM trainings WHERE id = ?`, id)
	training, err := scanTraining(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Training{}, persistence.ErrNotFound
	}
	return training, err
}

// ListTrainings returns trainings matching the filter ordered by date and start.
func (r *TrainingRepository) ListTrainings(ctx context.Context, filter persistence.TrainingFilter) ([]persistence.Training, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.HallID != "" {
		conditions = append(conditions, "hall_id = ?")
		args = append(args, filter.HallID)
	}
	if filter.TrainerID != "" {
		conditions = append(conditions, "trainer_id = ?")
		args = append(args, filter.TrainerID)
	}
	if filter.Date != nil {
		conditions = append(conditions, "date = ?")
		args = append(args, formatDate(*filter.Date))
	}
	if len(filter.Statuses) > 0 {
		placeholders, statusArgs := inClause(filter.Statuses)
		conditions = append(conditions, "status IN ("+placeholders+")")
		args = append(args, statusArgs...)
	}

	query := `SELECT ` + trainingColumns + ` FROM trainings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC, id ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var trainings []persistence.Training
	for rows.Next() {
		training, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		trainings = append(trainings, training)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trainings: %w", err)
	}
	return trainings, nil
}

// DeleteTraining removes the training and everything hanging off it.
func (r *TrainingRepository) DeleteTraining(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM booking_requests WHERE training_id = ?`,
			`DELETE FROM nominations WHERE training_id = ?`,
			`DELETE FROM attendance WHERE training_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return mapError(err)
			}
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM trainings WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return expectOneRow(result, persistence.ErrNotFound)
	})
}

// SaveSession overwrites the embedded attendance session.
func (r *TrainingRepository) SaveSession(ctx context.Context, trainingID string, session persistence.AttendanceSession, updatedAt time.Time) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE trainings
		SET session_active = ?, session_start = ?, session_end = ?, session_token = ?, session_started_by = ?, updated_at = ?
		WHERE id = ?`,
		session.Active, nullableTimestamp(session.StartTime), nullableTimestamp(session.EndTime),
		nullableString(session.Token), nullableString(session.StartedBy), formatTimestamp(updatedAt),
		trainingID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result, persistence.ErrNotFound)
}

// UpdateTrainingStatus performs a guarded status transition.
func (r *TrainingRepository) UpdateTrainingStatus(ctx context.Context, id, from, to string, updatedAt time.Time) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE trainings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, formatTimestamp(updatedAt), id, from)
		if err != nil {
			return mapError(err)
		}
		if err := expectOneRow(result, persistence.ErrStaleState); err == nil {
			return nil
		}
		if _, err := getTraining(ctx, tx, id); err != nil {
			return err
		}
		return persistence.ErrStaleState
	})
}

func scanTraining(row rowScanner) (persistence.Training, error) {
	var (
		t                        persistence.Training
		description, program     sql.NullString
		date, institutions       string
		sessionStart, sessionEnd sql.NullString
		sessionToken, startedBy  sql.NullString
		createdAt, updatedAt     string
	)
	if err := row.Scan(
		&t.ID, &t.Title, &description, &program, &t.HallID, &date, &t.StartTime, &t.EndTime, &t.Capacity,
		&t.TrainerID, &t.CreatedBy, &institutions, &t.Status,
		&t.Session.Active, &sessionStart, &sessionEnd, &sessionToken, &startedBy,
		&createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Training{}, err
		}
		return persistence.Training{}, fmt.Errorf("failed to scan training: %w", err)
	}

	t.Description = stringPtr(description)
	t.Program = stringPtr(program)
	t.Session.Token = stringPtr(sessionToken)
	t.Session.StartedBy = stringPtr(startedBy)

	var err error
	if t.Date, err = parseDate(date); err != nil {
		return persistence.Training{}, err
	}
	if t.RequiredInstitutions, err = decodeList(institutions); err != nil {
		return persistence.Training{}, err
	}
	if t.Session.StartTime, err = timestampPtr(sessionStart); err != nil {
		return persistence.Training{}, err
	}
	if t.Session.EndTime, err = timestampPtr(sessionEnd); err != nil {
		return persistence.Training{}, err
	}
	if t.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Training{}, err
	}
	if t.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Training{}, err
	}
	return t, nil
}
