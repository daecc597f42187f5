package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

// NominationRepository stores participant nominations.
type NominationRepository interface {
	CreateNomination(ctx context.Context, nomination Nomination) error
	GetNomination(ctx context.Context, id string) (Nomination, error)
	ListNominations(ctx context.Context, filter NominationFilter) ([]Nomination, error)
	UpdateNominationStatus(ctx context.Context, id string, from, to NominationStatus, reason string, updatedAt time.Time) error
}

// NominationServiceDeps captures dependencies for the nomination service.
type NominationServiceDeps struct {
	Nominations  NominationRepository
	Trainings    TrainingRepository
	Availability *AvailabilityService
	Locker       Locker
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NominationService assigns participants to trainings.
type NominationService struct {
	nominations  NominationRepository
	trainings    TrainingRepository
	availability *AvailabilityService
	locker       Locker
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewNominationService constructs the service.
func NewNominationService(deps NominationServiceDeps) *NominationService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &NominationService{
		nominations:  deps.Nominations,
		trainings:    deps.Trainings,
		availability: deps.Availability,
		locker:       deps.Locker,
		idGenerator:  deps.IDGenerator,
		now:          deps.Now,
		logger:       defaultLogger(deps.Logger),
	}
}

func (s *NominationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NominationService", operation, attrs...)
}

// Nominate adds a participant to a training unless they already hold a
// nomination for it or are committed to another training that day.
func (s *NominationService) Nominate(ctx context.Context, params NominateParams) (nomination Nomination, err error) {
	if s == nil {
		err = fmt.Errorf("NominationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Nominate",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
		"participant_id", params.ParticipantID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to nominate participant", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("nomination_id", nomination.ID).InfoContext(ctx, "participant nominated")
	}()

	if !params.Principal.CanManageTrainings() {
		err = ErrUnauthorized
		return
	}

	params.TrainingID = strings.TrimSpace(params.TrainingID)
	params.ParticipantID = strings.TrimSpace(params.ParticipantID)
	params.InstitutionID = strings.TrimSpace(params.InstitutionID)
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.nominations == nil || s.trainings == nil || s.availability == nil || s.locker == nil {
		err = fmt.Errorf("nomination dependencies not configured")
		return
	}

	var training Training
	training, err = s.trainings.GetTraining(ctx, params.TrainingID)
	if err != nil {
		err = mapNominationRepoError(err)
		return
	}
	if training.Status.IsFinal() {
		err = &StateError{Entity: "training", ID: training.ID, Current: string(training.Status), Operation: "nominate to"}
		return
	}

	err = withLock(ctx, s.locker, participantLockKey(params.ParticipantID), func() error {
		var err error
		nomination, err = s.createNomination(ctx, params, training)
		return err
	})
	if err != nil {
		nomination = Nomination{}
	}
	return
}

// createNomination runs the duplicate and busy checks and inserts the
// nomination. Callers hold the participant lock so two nominations of one
// participant on the same day cannot both pass the busy check.
func (s *NominationService) createNomination(ctx context.Context, params NominateParams, training Training) (Nomination, error) {
	existing, err := s.nominations.ListNominations(ctx, NominationFilter{
		TrainingID:    training.ID,
		ParticipantID: params.ParticipantID,
		Statuses:      []NominationStatus{NominationNominated, NominationApproved, NominationAttended},
	})
	if err != nil {
		return Nomination{}, mapNominationRepoError(err)
	}
	if len(existing) > 0 {
		return Nomination{}, &ConflictError{Kind: ConflictNomination, EntityID: existing[0].ID, Reason: "participant is already nominated to this training"}
	}

	busy, err := s.availability.busyParticipants(ctx, training.Date, training.ID)
	if err != nil {
		return Nomination{}, err
	}
	for _, id := range busy {
		if id == params.ParticipantID {
			return Nomination{}, &ConflictError{Kind: ConflictParticipant, EntityID: id, Reason: "participant is already committed to another training on this date"}
		}
	}

	now := s.now()
	nomination := Nomination{
		ID:            s.idGenerator(),
		TrainingID:    training.ID,
		ParticipantID: params.ParticipantID,
		InstitutionID: params.InstitutionID,
		NominatedBy:   params.Principal.UserID,
		Status:        NominationNominated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.nominations.CreateNomination(ctx, nomination); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return Nomination{}, &ConflictError{Kind: ConflictNomination, Reason: "participant is already nominated to this training"}
		}
		return Nomination{}, mapNominationRepoError(err)
	}
	return nomination, nil
}

// DecideNomination approves or rejects a nominated participant.
func (s *NominationService) DecideNomination(ctx context.Context, params DecideNominationParams) (nomination Nomination, err error) {
	if s == nil {
		err = fmt.Errorf("NominationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DecideNomination",
		"principal_id", params.Principal.UserID,
		"nomination_id", params.NominationID,
		"decision", string(params.Status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to decide nomination", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "nomination decided")
	}()

	if !params.Principal.CanManageTrainings() {
		err = ErrUnauthorized
		return
	}

	reason := strings.TrimSpace(params.Reason)
	vErr := &ValidationError{}
	switch params.Status {
	case NominationApproved:
		reason = ""
	case NominationRejected:
		if reason == "" {
			vErr.add("reason", "reason is required when rejecting")
		}
	default:
		vErr.add("status", "status must be one of: approved rejected")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.nominations == nil {
		err = fmt.Errorf("nomination repository not configured")
		return
	}

	nomination, err = s.nominations.GetNomination(ctx, params.NominationID)
	if err != nil {
		err = mapNominationRepoError(err)
		return
	}
	if nomination.Status != NominationNominated {
		err = &StateError{Entity: "nomination", ID: nomination.ID, Current: string(nomination.Status), Operation: "decide"}
		nomination = Nomination{}
		return
	}

	updatedAt := s.now()
	if err = s.nominations.UpdateNominationStatus(ctx, nomination.ID, NominationNominated, params.Status, reason, updatedAt); err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			err = &StateError{Entity: "nomination", ID: nomination.ID, Current: "decided concurrently", Operation: "decide"}
		} else {
			err = mapNominationRepoError(err)
		}
		nomination = Nomination{}
		return
	}
	nomination.Status = params.Status
	nomination.RejectionReason = reason
	nomination.UpdatedAt = updatedAt
	return
}

// ListNominationsParams filters nomination listings in wire form.
type ListNominationsParams struct {
	TrainingID    string
	ParticipantID string
	Status        string `validate:"omitempty,oneof=nominated approved rejected attended"`
}

// ListNominations returns nominations. Participants only see their own.
func (s *NominationService) ListNominations(ctx context.Context, principal Principal, params ListNominationsParams) ([]Nomination, error) {
	if s == nil {
		return nil, fmt.Errorf("NominationService is nil")
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		return nil, vErr
	}
	if s.nominations == nil {
		return nil, nil
	}

	filter := NominationFilter{TrainingID: params.TrainingID, ParticipantID: params.ParticipantID}
	if principal.Role == RoleParticipant {
		filter.ParticipantID = principal.UserID
	}
	if params.Status != "" {
		filter.Statuses = []NominationStatus{NominationStatus(params.Status)}
	}

	nominations, err := s.nominations.ListNominations(ctx, filter)
	if err != nil {
		return nil, mapNominationRepoError(err)
	}
	return nominations, nil
}

func mapNominationRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	return err
}
