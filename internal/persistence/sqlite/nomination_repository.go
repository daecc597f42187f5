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

const nominationColumns = `id, training_id, participant_id, institution_id, nominated_by, status,
	rejection_reason, created_at, updated_at`

// NominationRepository implements persistence.NominationRepository using SQLite.
type NominationRepository struct {
	pool *ConnectionPool
}

// CreateNomination inserts a nomination.
func (r *NominationRepository) CreateNomination(ctx context.Context, n persistence.Nomination) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO nominations (`+nominationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TrainingID, n.ParticipantID, n.InstitutionID, n.NominatedBy, n.Status,
		nullableString(n.RejectionReason), formatTimestamp(n.CreatedAt), formatTimestamp(n.UpdatedAt),
	)
	return mapError(err)
}

// GetNomination retrieves a nomination by ID.
func (r *NominationRepository) GetNomination(ctx context.Context, id string) (persistence.Nomination, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+nominationColumns+` FROM nominations WHERE id = ?`, id)
	n, err := scanNomination(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Nomination{}, persistence.ErrNotFound
	}
	return n, err
}

// ListNominations returns nominations matching the filter.
func (r *NominationRepository) ListNominations(ctx context.Context, filter persistence.NominationFilter) ([]persistence.Nomination, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.TrainingID != "" {
		conditions = append(conditions, "training_id = ?")
		args = append(args, filter.TrainingID)
	}
	if filter.TrainingIDs != nil {
		if len(filter.TrainingIDs) == 0 {
			return nil, nil
		}
		placeholders, idArgs := inClause(filter.TrainingIDs)
		conditions = append(conditions, "training_id IN ("+placeholders+")")
		args = append(args, idArgs...)
	}
	if filter.ParticipantID != "" {
		conditions = append(conditions, "participant_id = ?")
		args = append(args, filter.ParticipantID)
	}
	if len(filter.Statuses) > 0 {
		placeholders, statusArgs := inClause(filter.Statuses)
		conditions = append(conditions, "status IN ("+placeholders+")")
		args = append(args, statusArgs...)
	}

	query := `SELECT ` + nominationColumns + ` FROM nominations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var nominations []persistence.Nomination
	for rows.Next() {
		n, err := scanNomination(rows)
		if err != nil {
			return nil, err
		}
		nominations = append(nominations, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nominations: %w", err)
	}
	return nominations, nil
}

// UpdateNominationStatus performs a guarded status transition.
func (r *NominationRepository) UpdateNominationStatus(ctx context.Context, id, from, to string, reason *string, updatedAt time.Time) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE nominations SET status = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, nullableString(reason), formatTimestamp(updatedAt), id, from)
	if err != nil {
		return mapError(err)
	}
	if err := expectOneRow(result, persistence.ErrStaleState); err != nil {
		if _, getErr := r.GetNomination(ctx, id); getErr != nil {
			return getErr
		}
		return err
	}
	return nil
}

func scanNomination(row rowScanner) (persistence.Nomination, error) {
	var (
		n                    persistence.Nomination
		reason               sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&n.ID, &n.TrainingID, &n.ParticipantID, &n.InstitutionID, &n.NominatedBy, &n.Status,
		&reason, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Nomination{}, err
		}
		return persistence.Nomination{}, fmt.Errorf("failed to scan nomination: %w", err)
	}
	n.RejectionReason = stringPtr(reason)

	var err error
	if n.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Nomination{}, err
	}
	if n.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Nomination{}, err
	}
	return n, nil
}
