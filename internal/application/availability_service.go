package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// AvailabilityServiceDeps captures dependencies for the availability service.
type AvailabilityServiceDeps struct {
	Halls       HallRepository
	Windows     AvailabilityRepository
	Blocks      BlockRepository
	Trainings   TrainingRepository
	Nominations NominationRepository
	// OpenWhenUnset decides whether a hall without any window is open.
	OpenWhenUnset bool
	Metrics       Metrics
	Logger        *slog.Logger
}

// AvailabilityService answers whether halls are free and which participants
// are already committed on a day. Its answers are advisory except when used
// under a hall lock by the booking workflow.
type AvailabilityService struct {
	halls         HallRepository
	windows       AvailabilityRepository
	blocks        BlockRepository
	trainings     TrainingRepository
	nominations   NominationRepository
	openWhenUnset bool
	metrics       Metrics
	logger        *slog.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(deps AvailabilityServiceDeps) *AvailabilityService {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &AvailabilityService{
		halls:         deps.Halls,
		windows:       deps.Windows,
		blocks:        deps.Blocks,
		trainings:     deps.Trainings,
		nominations:   deps.Nominations,
		openWhenUnset: deps.OpenWhenUnset,
		metrics:       metrics,
		logger:        defaultLogger(deps.Logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// CheckConflictParams describes a candidate slot in wire form.
type CheckConflictParams struct {
	HallID            string
	Date              string `validate:"required,yyyymmdd"`
	Start             string `validate:"required,hhmm"`
	End               string `validate:"required,hhmm"`
	ExcludeTrainingID string
}

// CheckHallConflict reports whether the hall is free for the slot.
func (s *AvailabilityService) CheckHallConflict(ctx context.Context, params CheckConflictParams) (ConflictResult, error) {
	if s == nil {
		return ConflictResult{}, fmt.Errorf("AvailabilityService is nil")
	}
	vErr := validateStruct(params)
	day, interval, _ := parseSlot(params.Date, params.Start, params.End, vErr)
	if vErr.HasErrors() {
		return ConflictResult{}, vErr
	}
	return s.check(ctx, params.HallID, day, interval, params.ExcludeTrainingID)
}

// check loads the hall's windows, the day's blocks and trainings, and runs the
// conflict checker.
func (s *AvailabilityService) check(ctx context.Context, hallID string, day time.Time, candidate scheduler.Interval, excludeTrainingID string) (result ConflictResult, err error) {
	logger := s.loggerWith(ctx, "CheckHallConflict",
		"hall_id", hallID,
		"date", scheduler.FormatDate(day),
		"slot", candidate.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "conflict check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		outcome := "free"
		if !result.Free {
			outcome = string(result.Kind)
		}
		s.metrics.ConflictCheck(outcome)
		logger.DebugContext(ctx, "conflict checked", "result", outcome, "conflicting_entity_id", result.ConflictingEntity)
	}()

	if s.halls == nil || s.windows == nil || s.blocks == nil || s.trainings == nil {
		err = fmt.Errorf("availability repositories not configured")
		return
	}
	if _, err = s.halls.GetHall(ctx, hallID); err != nil {
		err = mapAvailabilityRepoError(err)
		return
	}

	var input scheduler.CheckInput
	input, err = s.loadCheckInput(ctx, hallID, day)
	if err != nil {
		return
	}
	input.Candidate = candidate
	input.ExcludeTrainingID = excludeTrainingID

	res := scheduler.Check(input)
	result = ConflictResult{
		Free:              res.Free,
		Kind:              ConflictKind(res.Kind),
		Reason:            res.Reason,
		ConflictingEntity: res.EntityID,
	}
	return
}

func (s *AvailabilityService) loadCheckInput(ctx context.Context, hallID string, day time.Time) (scheduler.CheckInput, error) {
	windows, err := s.windows.ListWindows(ctx, hallID)
	if err != nil {
		return scheduler.CheckInput{}, mapAvailabilityRepoError(err)
	}
	blocks, err := s.blocks.ListBlocks(ctx, hallID, &day)
	if err != nil {
		return scheduler.CheckInput{}, mapAvailabilityRepoError(err)
	}
	trainings, err := s.trainings.ListTrainings(ctx, TrainingFilter{
		HallID:   hallID,
		Date:     &day,
		Statuses: []TrainingStatus{TrainingScheduled, TrainingOngoing},
	})
	if err != nil {
		return scheduler.CheckInput{}, mapAvailabilityRepoError(err)
	}

	input := scheduler.CheckInput{
		Date:          day,
		OpenWhenUnset: s.openWhenUnset,
		Windows:       make([]scheduler.Window, 0, len(windows)),
		Blocks:        make([]scheduler.Block, 0, len(blocks)),
		Bookings:      make([]scheduler.Booking, 0, len(trainings)),
	}
	for _, w := range windows {
		input.Windows = append(input.Windows, w.Window())
	}
	for _, b := range blocks {
		input.Blocks = append(input.Blocks, scheduler.Block{
			ID:       b.ID,
			Date:     b.Date,
			Interval: scheduler.Interval{Start: b.Start, End: b.End},
			Reason:   b.Reason,
		})
	}
	for _, t := range trainings {
		input.Bookings = append(input.Bookings, scheduler.Booking{
			ID:        t.ID,
			Date:      t.Date,
			Interval:  t.Interval(),
			Confirmed: t.Status.IsConfirmed(),
		})
	}
	return input, nil
}

// AvailableHallsParams describes the slot to search for.
type AvailableHallsParams struct {
	Date  string `validate:"required,yyyymmdd"`
	Start string `validate:"required,hhmm"`
	End   string `validate:"required,hhmm"`
}

// ListAvailableHalls returns every hall that is free for the slot.
func (s *AvailabilityService) ListAvailableHalls(ctx context.Context, params AvailableHallsParams) ([]Hall, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	vErr := validateStruct(params)
	day, interval, _ := parseSlot(params.Date, params.Start, params.End, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}
	if s.halls == nil {
		return nil, fmt.Errorf("hall repository not configured")
	}

	halls, err := s.halls.ListHalls(ctx)
	if err != nil {
		return nil, mapAvailabilityRepoError(err)
	}

	free := make([]Hall, 0, len(halls))
	for _, hall := range halls {
		result, err := s.check(ctx, hall.ID, day, interval, "")
		if err != nil {
			return nil, err
		}
		if result.Free {
			free = append(free, hall)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i].Name < free[j].Name })
	return free, nil
}

// BusyParticipantsParams selects the day to inspect.
type BusyParticipantsParams struct {
	Date              string `validate:"required,yyyymmdd"`
	ExcludeTrainingID string
}

// FindBusyParticipants lists participants already nominated to another
// training on the date.
func (s *AvailabilityService) FindBusyParticipants(ctx context.Context, params BusyParticipantsParams) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		return nil, vErr
	}
	day, _ := scheduler.ParseDate(params.Date)
	return s.busyParticipants(ctx, day, params.ExcludeTrainingID)
}

func (s *AvailabilityService) busyParticipants(ctx context.Context, day time.Time, excludeTrainingID string) ([]string, error) {
	if s.trainings == nil || s.nominations == nil {
		return nil, fmt.Errorf("availability repositories not configured")
	}

	trainings, err := s.trainings.ListTrainings(ctx, TrainingFilter{
		Date:     &day,
		Statuses: []TrainingStatus{TrainingDraft, TrainingScheduled, TrainingOngoing, TrainingCompleted},
	})
	if err != nil {
		return nil, mapAvailabilityRepoError(err)
	}

	ids := make([]string, 0, len(trainings))
	dates := make(map[string]time.Time, len(trainings))
	for _, t := range trainings {
		if t.ID == excludeTrainingID {
			continue
		}
		ids = append(ids, t.ID)
		dates[t.ID] = t.Date
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	nominations, err := s.nominations.ListNominations(ctx, NominationFilter{
		TrainingIDs: ids,
		Statuses:    []NominationStatus{NominationNominated, NominationApproved, NominationAttended},
	})
	if err != nil {
		return nil, mapAvailabilityRepoError(err)
	}

	commitments := make([]scheduler.Commitment, 0, len(nominations))
	for _, n := range nominations {
		commitments = append(commitments, scheduler.Commitment{
			TrainingID:    n.TrainingID,
			ParticipantID: n.ParticipantID,
			Date:          dates[n.TrainingID],
			Active:        n.Status.Occupies(),
		})
	}
	return scheduler.BusyParticipants(commitments, day, excludeTrainingID), nil
}

// HallDaySchedule lists the windows, blocks, and confirmed trainings of a
// hall on one day.
func (s *AvailabilityService) HallDaySchedule(ctx context.Context, hallID, date string) (HallDaySchedule, error) {
	if s == nil {
		return HallDaySchedule{}, fmt.Errorf("AvailabilityService is nil")
	}
	day, err := scheduler.ParseDate(date)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("date", "date must be a date formatted as YYYY-MM-DD")
		return HallDaySchedule{}, vErr
	}
	if s.halls == nil || s.windows == nil || s.blocks == nil || s.trainings == nil {
		return HallDaySchedule{}, fmt.Errorf("availability repositories not configured")
	}
	if _, err := s.halls.GetHall(ctx, hallID); err != nil {
		return HallDaySchedule{}, mapAvailabilityRepoError(err)
	}

	windows, err := s.windows.ListWindows(ctx, hallID)
	if err != nil {
		return HallDaySchedule{}, mapAvailabilityRepoError(err)
	}

	schedule := HallDaySchedule{HallID: hallID, Date: day}
	for _, w := range windows {
		if w.Window().Matches(day) {
			schedule.Windows = append(schedule.Windows, w)
		}
	}
	schedule.Closed = len(windows) > 0 && len(schedule.Windows) == 0
	if len(windows) == 0 && !s.openWhenUnset {
		schedule.Closed = true
	}

	blocks, err := s.blocks.ListBlocks(ctx, hallID, &day)
	if err != nil {
		return HallDaySchedule{}, mapAvailabilityRepoError(err)
	}
	for _, b := range blocks {
		schedule.Entries = append(schedule.Entries, ScheduleEntry{
			Kind:   EntryBlock,
			ID:     b.ID,
			Start:  b.Start,
			End:    b.End,
			Reason: b.Reason,
		})
	}
	trainings, err := s.trainings.ListTrainings(ctx, TrainingFilter{
		HallID:   hallID,
		Date:     &day,
		Statuses: []TrainingStatus{TrainingScheduled, TrainingOngoing},
	})
	if err != nil {
		return HallDaySchedule{}, mapAvailabilityRepoError(err)
	}
	for _, t := range trainings {
		schedule.Entries = append(schedule.Entries, ScheduleEntry{
			Kind:   EntryTraining,
			ID:     t.ID,
			Start:  t.Start,
			End:    t.End,
			Reason: scheduler.ReasonBookedByOther,
			Title:  t.Title,
			Status: t.Status,
		})
	}
	sort.SliceStable(schedule.Entries, func(i, j int) bool {
		if schedule.Entries[i].Start == schedule.Entries[j].Start {
			return schedule.Entries[i].ID < schedule.Entries[j].ID
		}
		return schedule.Entries[i].Start < schedule.Entries[j].Start
	})
	return schedule, nil
}

func mapAvailabilityRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
