package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

// BlockRepository implements persistence.BlockRepository using SQLite.
type BlockRepository struct {
	pool *ConnectionPool
}

// CreateBlock inserts a block.
func (r *BlockRepository) CreateBlock(ctx context.Context, block persistence.Block) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO hall_blocks (id, hall_id, date, start_time, end_time, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		block.ID, block.HallID, formatDate(block.Date), block.StartTime, block.EndTime,
		block.Reason, block.CreatedBy, formatTimestamp(block.CreatedAt),
	)
	return mapError(err)
}

// GetBlock retrieves a block by ID.
func (r *BlockRepository) GetBlock(ctx context.Context, id string) (persistence.Block, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, hall_id, date, start_time, end_time, reason, created_by, created_at
		FROM hall_blocks
		WHERE id = ?`, id)
	block, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Block{}, persistence.ErrNotFound
	}
	return block, err
}

// DeleteBlock removes a block outright.
func (r *BlockRepository) DeleteBlock(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM hall_blocks WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result, persistence.ErrNotFound)
}

// ListBlocks returns blocks matching the filter ordered by date and start.
func (r *BlockRepository) ListBlocks(ctx context.Context, filter persistence.BlockFilter) ([]persistence.Block, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.HallID != "" {
		conditions = append(conditions, "hall_id = ?")
		args = append(args, filter.HallID)
	}
	if filter.Date != nil {
		conditions = append(conditions, "date = ?")
		args = append(args, formatDate(*filter.Date))
	}

	query := `SELECT id, hall_id, date, start_time, end_time, reason, created_by, created_at FROM hall_blocks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC, id ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var blocks []persistence.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocks: %w", err)
	}
	return blocks, nil
}

func scanBlock(row rowScanner) (persistence.Block, error) {
	var (
		block           persistence.Block
		date, createdAt string
	)
	if err := row.Scan(&block.ID, &block.HallID, &date, &block.StartTime, &block.EndTime, &block.Reason, &block.CreatedBy, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Block{}, err
		}
		return persistence.Block{}, fmt.Errorf("failed to scan block: %w", err)
	}
	var err error
	if block.Date, err = parseDate(date); err != nil {
		return persistence.Block{}, err
	}
	if block.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Block{}, err
	}
	return block, nil
}
