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

// TrainingRepository stores trainings and their embedded attendance session.
type TrainingRepository interface {
	CreateTraining(ctx context.Context, training Training) error
	UpdateTraining(ctx context.Context, training Training) error
	GetTraining(ctx context.Context, id string) (Training, error)
	ListTrainings(ctx context.Context, filter TrainingFilter) ([]Training, error)
	DeleteTraining(ctx context.Context, id string) error
	SaveSession(ctx context.Context, trainingID string, session AttendanceSession, updatedAt time.Time) error
	UpdateTrainingStatus(ctx context.Context, id string, from, to TrainingStatus, updatedAt time.Time) error
}

// TrainingServiceDeps captures dependencies for the training service.
type TrainingServiceDeps struct {
	Trainings    TrainingRepository
	Halls        HallRepository
	Availability *AvailabilityService
	Locker       Locker
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// TrainingService manages the training lifecycle outside of hall approval.
type TrainingService struct {
	trainings    TrainingRepository
	halls        HallRepository
	availability *AvailabilityService
	locker       Locker
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewTrainingService constructs the service.
func NewTrainingService(deps TrainingServiceDeps) *TrainingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &TrainingService{
		trainings:    deps.Trainings,
		halls:        deps.Halls,
		availability: deps.Availability,
		locker:       deps.Locker,
		idGenerator:  deps.IDGenerator,
		now:          deps.Now,
		logger:       defaultLogger(deps.Logger),
	}
}

func (s *TrainingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TrainingService", operation, attrs...)
}

// CreateTraining persists a draft training. Drafts reserve nothing, so no
// conflict check is made.
func (s *TrainingService) CreateTraining(ctx context.Context, params CreateTrainingParams) (training Training, err error) {
	if s == nil {
		err = fmt.Errorf("TrainingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateTraining",
		"principal_id", params.Principal.UserID,
		"hall_id", params.Input.HallID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create training", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("training_id", training.ID).InfoContext(ctx, "draft training created")
	}()

	if !params.Principal.CanManageTrainings() {
		err = ErrUnauthorized
		return
	}

	input := normalizeTrainingInput(params.Input)
	vErr := validateStruct(input)
	day, interval, _ := parseSlot(input.Date, input.Start, input.End, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.trainings == nil || s.halls == nil {
		err = fmt.Errorf("training repositories not configured")
		return
	}
	if _, err = s.halls.GetHall(ctx, input.HallID); err != nil {
		err = mapTrainingRepoError(err)
		return
	}

	training = Training{
		ID:                   s.idGenerator(),
		Title:                input.Title,
		Description:          input.Description,
		Program:              input.Program,
		HallID:               input.HallID,
		Date:                 day,
		Start:                interval.Start,
		End:                  interval.End,
		Capacity:             input.Capacity,
		TrainerID:            input.TrainerID,
		CreatedBy:            params.Principal.UserID,
		RequiredInstitutions: input.RequiredInstitutions,
		Status:               TrainingDraft,
		CreatedAt:            s.now(),
	}
	training.UpdatedAt = training.CreatedAt

	if err = s.trainings.CreateTraining(ctx, training); err != nil {
		err = mapTrainingRepoError(err)
		training = Training{}
	}
	return
}

// UpdateTraining edits a training. Confirmed trainings are re-checked against
// their hall under the hall lock; drafts are not.
func (s *TrainingService) UpdateTraining(ctx context.Context, params UpdateTrainingParams) (training Training, err error) {
	if s == nil {
		err = fmt.Errorf("TrainingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTraining",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update training", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "training updated")
	}()

	if !params.Principal.CanManageTrainings() {
		err = ErrUnauthorized
		return
	}
	if s.trainings == nil || s.halls == nil {
		err = fmt.Errorf("training repositories not configured")
		return
	}

	var existing Training
	existing, err = s.trainings.GetTraining(ctx, params.TrainingID)
	if err != nil {
		err = mapTrainingRepoError(err)
		return
	}
	if existing.Status.IsFinal() {
		err = &StateError{Entity: "training", ID: existing.ID, Current: string(existing.Status), Operation: "update"}
		return
	}

	input := normalizeTrainingInput(params.Input)
	vErr := validateStruct(input)
	day, interval, _ := parseSlot(input.Date, input.Start, input.End, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if input.HallID != existing.HallID {
		if _, err = s.halls.GetHall(ctx, input.HallID); err != nil {
			err = mapTrainingRepoError(err)
			return
		}
	}

	training = existing
	training.Title = input.Title
	training.Description = input.Description
	training.Program = input.Program
	training.HallID = input.HallID
	training.Date = day
	training.Start = interval.Start
	training.End = interval.End
	training.Capacity = input.Capacity
	training.TrainerID = input.TrainerID
	training.RequiredInstitutions = input.RequiredInstitutions
	training.UpdatedAt = s.now()

	slotChanged := training.HallID != existing.HallID ||
		!scheduler.SameDay(training.Date, existing.Date) ||
		training.Interval() != existing.Interval()

	if !existing.Status.IsConfirmed() || !slotChanged {
		err = s.saveEdit(ctx, training)
		return
	}

	err = withLock(ctx, s.locker, hallLockKey(training.HallID), func() error {
		if s.availability == nil {
			return fmt.Errorf("availability service not configured")
		}
		result, err := s.availability.check(ctx, training.HallID, training.Date, training.Interval(), training.ID)
		if err != nil {
			return err
		}
		if !result.Free {
			return &ConflictError{Kind: result.Kind, EntityID: result.ConflictingEntity, Reason: result.Reason}
		}
		return s.saveEdit(ctx, training)
	})
	return
}

// saveEdit writes training guarded by the status it was read with. A status
// change in between (an approval landing on a draft) rejects the edit, since
// the new slot was never checked against the hall.
func (s *TrainingService) saveEdit(ctx context.Context, training Training) error {
	err := s.trainings.UpdateTraining(ctx, training)
	if errors.Is(err, persistence.ErrStaleState) {
		return &StateError{Entity: "training", ID: training.ID, Current: "changed concurrently", Operation: "update"}
	}
	return mapTrainingRepoError(err)
}

// DeleteTraining removes a training with its requests, nominations, and attendance.
func (s *TrainingService) DeleteTraining(ctx context.Context, principal Principal, trainingID string) error {
	if s == nil {
		return fmt.Errorf("TrainingService is nil")
	}
	if !principal.CanManageTrainings() {
		return ErrUnauthorized
	}
	if s.trainings == nil {
		return fmt.Errorf("training repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteTraining",
		"principal_id", principal.UserID,
		"training_id", trainingID,
	)
	if err := s.trainings.DeleteTraining(ctx, trainingID); err != nil {
		err = mapTrainingRepoError(err)
		logger.ErrorContext(ctx, "failed to delete training", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "training deleted")
	return nil
}

// allowedTransitions lists the lifecycle moves TransitionStatus accepts.
// draft to scheduled happens only through approval.
var allowedTransitions = map[TrainingStatus][]TrainingStatus{
	TrainingDraft:     {TrainingCancelled},
	TrainingScheduled: {TrainingOngoing, TrainingCancelled},
	TrainingOngoing:   {TrainingCompleted, TrainingCancelled},
}

func canTransition(from, to TrainingStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionStatus moves a training along its lifecycle.
func (s *TrainingService) TransitionStatus(ctx context.Context, params TransitionStatusParams) (training Training, err error) {
	if s == nil {
		err = fmt.Errorf("TrainingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "TransitionStatus",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
		"target_status", string(params.Status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change training status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "training status changed")
	}()

	if s.trainings == nil {
		err = fmt.Errorf("training repository not configured")
		return
	}
	if !params.Status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be one of: draft scheduled ongoing completed cancelled")
		err = vErr
		return
	}

	training, err = s.trainings.GetTraining(ctx, params.TrainingID)
	if err != nil {
		err = mapTrainingRepoError(err)
		return
	}

	trainerMove := params.Principal.UserID != "" && params.Principal.UserID == training.TrainerID &&
		(params.Status == TrainingOngoing || params.Status == TrainingCompleted)
	if !params.Principal.CanManageTrainings() && !trainerMove {
		err = ErrUnauthorized
		return
	}
	if !canTransition(training.Status, params.Status) {
		err = &StateError{Entity: "training", ID: training.ID, Current: string(training.Status), Operation: "move to " + string(params.Status)}
		return
	}

	updatedAt := s.now()
	if err = s.trainings.UpdateTrainingStatus(ctx, training.ID, training.Status, params.Status, updatedAt); err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			err = &StateError{Entity: "training", ID: training.ID, Current: "changed concurrently", Operation: "move to " + string(params.Status)}
		} else {
			err = mapTrainingRepoError(err)
		}
		return
	}
	training.Status = params.Status
	training.UpdatedAt = updatedAt
	return
}

// GetTraining returns a training by ID.
func (s *TrainingService) GetTraining(ctx context.Context, principal Principal, trainingID string) (Training, error) {
	if s == nil {
		return Training{}, fmt.Errorf("TrainingService is nil")
	}
	if s.trainings == nil {
		return Training{}, fmt.Errorf("training repository not configured")
	}
	training, err := s.trainings.GetTraining(ctx, trainingID)
	if err != nil {
		return Training{}, mapTrainingRepoError(err)
	}
	return training, nil
}

// ListTrainingsParams filters training listings in wire form.
type ListTrainingsParams struct {
	HallID    string
	TrainerID string
	Date      string `validate:"omitempty,yyyymmdd"`
	Status    string `validate:"omitempty,oneof=draft scheduled ongoing completed cancelled"`
}

// ListTrainings returns trainings ordered by date and start time.
func (s *TrainingService) ListTrainings(ctx context.Context, principal Principal, params ListTrainingsParams) ([]Training, error) {
	if s == nil {
		return nil, fmt.Errorf("TrainingService is nil")
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		return nil, vErr
	}
	if s.trainings == nil {
		return nil, nil
	}

	filter := TrainingFilter{HallID: params.HallID, TrainerID: params.TrainerID}
	if params.Date != "" {
		day, _ := scheduler.ParseDate(params.Date)
		filter.Date = &day
	}
	if params.Status != "" {
		filter.Statuses = []TrainingStatus{TrainingStatus(params.Status)}
	}

	trainings, err := s.trainings.ListTrainings(ctx, filter)
	if err != nil {
		return nil, mapTrainingRepoError(err)
	}
	return trainings, nil
}

func normalizeTrainingInput(input TrainingInput) TrainingInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Program = strings.TrimSpace(input.Program)
	input.HallID = strings.TrimSpace(input.HallID)
	input.TrainerID = strings.TrimSpace(input.TrainerID)
	input.RequiredInstitutions = uniqueStrings(input.RequiredInstitutions)
	return input
}

func uniqueStrings(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func mapTrainingRepoError(err error) error {
	if err == nil {
		return nil
	}
	var (
		cErr *ConflictError
		sErr *StateError
		vErr *ValidationError
	)
	if errors.As(err, &cErr) || errors.As(err, &sErr) || errors.As(err, &vErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		v := &ValidationError{}
		v.add("input", "input violates a storage constraint")
		return v
	}
	return err
}
