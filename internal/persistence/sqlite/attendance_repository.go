package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

// AttendanceRepository implements persistence.AttendanceRepository using SQLite.
type AttendanceRepository struct {
	pool *ConnectionPool
}

// RecordAttendance stores the record once per training and participant and
// marks the participant's live nomination as attended.
func (r *AttendanceRepository) RecordAttendance(ctx context.Context, attendance persistence.Attendance) (stored persistence.Attendance, created bool, err error) {
	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (id, training_id, participant_id, method, marked_by, marked_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (training_id, participant_id) DO NOTHING`,
			attendance.ID, attendance.TrainingID, attendance.ParticipantID, attendance.Method,
			attendance.MarkedBy, formatTimestamp(attendance.MarkedAt),
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if affected == 0 {
			row := tx.QueryRowContext(ctx, `
				SELECT id, training_id, participant_id, method, marked_by, marked_at
				FROM attendance
				WHERE training_id = ? AND participant_id = ?`,
				attendance.TrainingID, attendance.ParticipantID)
			stored, err = scanAttendance(row)
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE nominations SET status = 'attended', updated_at = ?
			WHERE training_id = ? AND participant_id = ? AND status IN ('nominated', 'approved')`,
			formatTimestamp(attendance.MarkedAt), attendance.TrainingID, attendance.ParticipantID,
		); err != nil {
			return mapError(err)
		}

		stored, created = attendance, true
		return nil
	})
	if err != nil {
		return persistence.Attendance{}, false, err
	}
	return stored, created, nil
}

// ListAttendance returns the attendance records of a training in marking order.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, trainingID string) ([]persistence.Attendance, error) {
	return r.list(ctx, "training_id", trainingID)
}

// ListAttendanceByParticipant returns a participant's records across trainings,
// newest first.
func (r *AttendanceRepository) ListAttendanceByParticipant(ctx context.Context, participantID string) ([]persistence.Attendance, error) {
	return r.list(ctx, "participant_id", participantID)
}

func (r *AttendanceRepository) list(ctx context.Context, column, value string) ([]persistence.Attendance, error) {
	order := "marked_at ASC, id ASC"
	if column == "participant_id" {
		order = "marked_at DESC, id ASC"
	}
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, training_id, participant_id, method, marked_by, marked_at
		FROM attendance
		WHERE `+column+` = ?
		ORDER BY `+order, value)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var records []persistence.Attendance
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance: %w", err)
	}
	return records, nil
}

func scanAttendance(row rowScanner) (persistence.Attendance, error) {
	var (
		a        persistence.Attendance
		markedAt string
	)
	if err := row.Scan(&a.ID, &a.TrainingID, &a.ParticipantID, &a.Method, &a.MarkedBy, &markedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Attendance{}, persistence.ErrNotFound
		}
		return persistence.Attendance{}, fmt.Errorf("failed to scan attendance: %w", err)
	}
	var err error
	if a.MarkedAt, err = parseTimestamp(markedAt); err != nil {
		return persistence.Attendance{}, err
	}
	return a, nil
}
