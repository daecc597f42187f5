package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

const requestColumns = `id, training_id, hall_id, requested_by, priority, remarks, status,
	decided_by, decided_at, rejection_reason, created_at, updated_at`

// BookingRequestRepository implements persistence.BookingRequestRepository using SQLite.
type BookingRequestRepository struct {
	pool *ConnectionPool
}

// CreateRequest inserts a booking request. A second pending request for the
// same training is rejected by the partial unique index with ErrDuplicate.
func (r *BookingRequestRepository) CreateRequest(ctx context.Context, request persistence.BookingRequest) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO booking_requests (`+requestColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			request.ID, request.TrainingID, request.HallID, request.RequestedBy, request.Priority,
			nullableString(request.Remarks), request.Status, nullableString(request.DecidedBy),
			nullableTimestamp(request.DecidedAt), nullableString(request.RejectionReason),
			formatTimestamp(request.CreatedAt), formatTimestamp(request.UpdatedAt),
		); err != nil {
			return mapError(err)
		}

		// The request names the hall the training should land in.
		_, err := tx.ExecContext(ctx, `
			UPDATE trainings SET hall_id = ?, updated_at = ?
			WHERE id = ? AND status = 'draft' AND hall_id <> ?`,
			request.HallID, formatTimestamp(request.UpdatedAt), request.TrainingID, request.HallID)
		return mapError(err)
	})
}

// GetRequest retrieves a booking request by ID.
func (r *BookingRequestRepository) GetRequest(ctx context.Context, id string) (persistence.BookingRequest, error) {
	return getRequest(ctx, r.pool.DB(), id)
}

func getRequest(ctx context.Context, q execer, id string) (persistence.BookingRequest, error) {
	row := q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM booking_requests WHERE id = ?`, id)
	request, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.BookingRequest{}, persistence.ErrNotFound
	}
	return request, err
}

// ListRequests returns requests matching the filter, urgent ones first and
// then oldest first.
func (r *BookingRequestRepository) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]persistence.BookingRequest, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.HallID != "" {
		conditions = append(conditions, "hall_id = ?")
		args = append(args, filter.HallID)
	}
	if filter.TrainingID != "" {
		conditions = append(conditions, "training_id = ?")
		args = append(args, filter.TrainingID)
	}

	query := `SELECT ` + requestColumns + ` FROM booking_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY CASE priority WHEN 'urgent' THEN 0 ELSE 1 END, created_at ASC, id ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var requests []persistence.BookingRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking requests: %w", err)
	}
	return requests, nil
}

// CommitApproval approves the request and schedules its training in a single
// transaction. The overlap check is repeated against committed rows so that a
// stale caller can never double-book the hall.
func (r *BookingRequestRepository) CommitApproval(ctx context.Context, commit persistence.ApprovalCommit) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		decidedAt := formatTimestamp(commit.DecidedAt)

		result, err := tx.ExecContext(ctx, `
			UPDATE booking_requests
			SET status = 'approved', decided_by = ?, decided_at = ?, rejection_reason = NULL, updated_at = ?
			WHERE id = ? AND status = 'pending'`,
			commit.DecidedBy, decidedAt, decidedAt, commit.RequestID)
		if err != nil {
			return mapError(err)
		}
		if err := expectOneRow(result, persistence.ErrStaleState); err != nil {
			if _, getErr := getRequest(ctx, tx, commit.RequestID); getErr != nil {
				return getErr
			}
			return err
		}

		training, err := getTraining(ctx, tx, commit.TrainingID)
		if err != nil {
			return err
		}
		if training.Status != "draft" {
			return persistence.ErrStaleState
		}

		if err := checkOverlap(ctx, tx, commit.HallID, training); err != nil {
			return err
		}

		result, err = tx.ExecContext(ctx, `
			UPDATE trainings SET status = 'scheduled', hall_id = ?, updated_at = ?
			WHERE id = ? AND status = 'draft'`,
			commit.HallID, decidedAt, commit.TrainingID)
		if err != nil {
			return mapError(err)
		}
		return expectOneRow(result, persistence.ErrStaleState)
	})
}

// checkOverlap reports the first block or confirmed training on hallID that
// overlaps training. Times are zero-padded HH:mm strings and compare in order.
func checkOverlap(ctx context.Context, q execer, hallID string, training persistence.Training) error {
	date := formatDate(training.Date)

	var id string
	err := q.QueryRowContext(ctx, `
		SELECT id FROM hall_blocks
		WHERE hall_id = ? AND date = ? AND start_time < ? AND ? < end_time
		ORDER BY start_time ASC, id ASC
		LIMIT 1`,
		hallID, date, training.EndTime, training.StartTime).Scan(&id)
	switch {
	case err == nil:
		return &persistence.OverlapError{Kind: "block", ID: id}
	case !errors.Is(err, sql.ErrNoRows):
		return mapError(err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT id FROM trainings
		WHERE hall_id = ? AND date = ? AND status IN ('scheduled', 'ongoing') AND id <> ?
			AND start_time < ? AND ? < end_time
		ORDER BY start_time ASC, id ASC
		LIMIT 1`,
		hallID, date, training.ID, training.EndTime, training.StartTime).Scan(&id)
	switch {
	case err == nil:
		return &persistence.OverlapError{Kind: "training", ID: id}
	case !errors.Is(err, sql.ErrNoRows):
		return mapError(err)
	}
	return nil
}

// CommitRejection rejects a pending request.
func (r *BookingRequestRepository) CommitRejection(ctx context.Context, commit persistence.RejectionCommit) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		decidedAt := formatTimestamp(commit.DecidedAt)
		result, err := tx.ExecContext(ctx, `
			UPDATE booking_requests
			SET status = 'rejected', decided_by = ?, decided_at = ?, rejection_reason = ?, updated_at = ?
			WHERE id = ? AND status = 'pending'`,
			commit.DecidedBy, decidedAt, nullableString(commit.Reason), decidedAt, commit.RequestID)
		if err != nil {
			return mapError(err)
		}
		if err := expectOneRow(result, persistence.ErrStaleState); err != nil {
			if _, getErr := getRequest(ctx, tx, commit.RequestID); getErr != nil {
				return getErr
			}
			return err
		}
		return nil
	})
}

func scanRequest(row rowScanner) (persistence.BookingRequest, error) {
	var (
		req                  persistence.BookingRequest
		remarks, decidedBy   sql.NullString
		decidedAt, reason    sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&req.ID, &req.TrainingID, &req.HallID, &req.RequestedBy, &req.Priority, &remarks, &req.Status,
		&decidedBy, &decidedAt, &reason, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.BookingRequest{}, err
		}
		return persistence.BookingRequest{}, fmt.Errorf("failed to scan booking request: %w", err)
	}

	req.Remarks = stringPtr(remarks)
	req.DecidedBy = stringPtr(decidedBy)
	req.RejectionReason = stringPtr(reason)

	var err error
	if req.DecidedAt, err = timestampPtr(decidedAt); err != nil {
		return persistence.BookingRequest{}, err
	}
	if req.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.BookingRequest{}, err
	}
	if req.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.BookingRequest{}, err
	}
	return req, nil
}
