package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// BlockRepository stores hall blocks.
type BlockRepository interface {
	CreateBlock(ctx context.Context, block Block) error
	GetBlock(ctx context.Context, id string) (Block, error)
	DeleteBlock(ctx context.Context, id string) error
	// ListBlocks returns the hall's blocks, limited to one day when date is set.
	ListBlocks(ctx context.Context, hallID string, date *time.Time) ([]Block, error)
}

// BlockServiceDeps captures dependencies for the block service.
type BlockServiceDeps struct {
	Halls       HallRepository
	Blocks      BlockRepository
	Trainings   TrainingRepository
	Locker      Locker
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// BlockService manages hard exclusions on halls.
type BlockService struct {
	halls       HallRepository
	blocks      BlockRepository
	trainings   TrainingRepository
	locker      Locker
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBlockService constructs the service.
func NewBlockService(deps BlockServiceDeps) *BlockService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &BlockService{
		halls:       deps.Halls,
		blocks:      deps.Blocks,
		trainings:   deps.Trainings,
		locker:      deps.Locker,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *BlockService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BlockService", operation, attrs...)
}

// CreateBlock blocks part of a hall's day. The block may not overlap another
// block or a confirmed training; drafts are ignored.
func (s *BlockService) CreateBlock(ctx context.Context, params CreateBlockParams) (block Block, err error) {
	if s == nil {
		err = fmt.Errorf("BlockService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateBlock",
		"principal_id", params.Principal.UserID,
		"hall_id", params.Input.HallID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create block", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("block_id", block.ID).InfoContext(ctx, "block created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	input := params.Input
	input.Reason = strings.TrimSpace(input.Reason)
	vErr := validateStruct(input)
	day, interval, _ := parseSlot(input.Date, input.Start, input.End, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.halls == nil || s.blocks == nil || s.trainings == nil {
		err = fmt.Errorf("block repositories not configured")
		return
	}
	if _, err = s.halls.GetHall(ctx, input.HallID); err != nil {
		err = mapBlockRepoError(err)
		return
	}

	block = Block{
		ID:        s.idGenerator(),
		HallID:    input.HallID,
		Date:      day,
		Start:     interval.Start,
		End:       interval.End,
		Reason:    input.Reason,
		CreatedBy: params.Principal.UserID,
		CreatedAt: s.now(),
	}

	err = withLock(ctx, s.locker, hallLockKey(input.HallID), func() error {
		if err := s.ensureNoOverlap(ctx, block, interval); err != nil {
			return err
		}
		return mapBlockRepoError(s.blocks.CreateBlock(ctx, block))
	})
	if err != nil {
		block = Block{}
	}
	return
}

func (s *BlockService) ensureNoOverlap(ctx context.Context, block Block, interval scheduler.Interval) error {
	existing, err := s.blocks.ListBlocks(ctx, block.HallID, &block.Date)
	if err != nil {
		return mapBlockRepoError(err)
	}
	for _, b := range existing {
		if scheduler.Overlaps(scheduler.Interval{Start: b.Start, End: b.End}, interval) {
			return &ConflictError{Kind: ConflictBlock, EntityID: b.ID, Reason: "overlaps an existing block: " + b.Reason}
		}
	}

	trainings, err := s.trainings.ListTrainings(ctx, TrainingFilter{
		HallID:   block.HallID,
		Date:     &block.Date,
		Statuses: []TrainingStatus{TrainingScheduled, TrainingOngoing},
	})
	if err != nil {
		return mapBlockRepoError(err)
	}
	for _, t := range trainings {
		if scheduler.Overlaps(t.Interval(), interval) {
			return &ConflictError{Kind: ConflictTraining, EntityID: t.ID, Reason: "overlaps a confirmed training"}
		}
	}
	return nil
}

// DeleteBlock removes a block.
func (s *BlockService) DeleteBlock(ctx context.Context, principal Principal, blockID string) error {
	if s == nil {
		return fmt.Errorf("BlockService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.blocks == nil {
		return fmt.Errorf("block repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBlock",
		"principal_id", principal.UserID,
		"block_id", blockID,
	)
	if err := s.blocks.DeleteBlock(ctx, blockID); err != nil {
		err = mapBlockRepoError(err)
		logger.ErrorContext(ctx, "failed to delete block", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "block deleted")
	return nil
}

// ListBlocks returns the blocks of a hall. An empty date lists every day.
func (s *BlockService) ListBlocks(ctx context.Context, principal Principal, hallID, date string) ([]Block, error) {
	if s == nil {
		return nil, fmt.Errorf("BlockService is nil")
	}
	if s.halls == nil || s.blocks == nil {
		return nil, fmt.Errorf("block repositories not configured")
	}

	var day *time.Time
	if strings.TrimSpace(date) != "" {
		parsed, err := scheduler.ParseDate(date)
		if err != nil {
			vErr := &ValidationError{}
			vErr.add("date", "date must be a date formatted as YYYY-MM-DD")
			return nil, vErr
		}
		day = &parsed
	}
	if _, err := s.halls.GetHall(ctx, hallID); err != nil {
		return nil, mapBlockRepoError(err)
	}

	blocks, err := s.blocks.ListBlocks(ctx, hallID, day)
	if err != nil {
		return nil, mapBlockRepoError(err)
	}
	return blocks, nil
}

func mapBlockRepoError(err error) error {
	if err == nil {
		return nil
	}
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("end", "end must be after start")
		return vErr
	}
	return err
}
