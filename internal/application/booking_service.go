package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/events"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

// BookingRequestRepository stores hall booking requests and commits decisions.
type BookingRequestRepository interface {
	CreateRequest(ctx context.Context, request BookingRequest) error
	GetRequest(ctx context.Context, id string) (BookingRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]BookingRequest, error)
	// CommitApproval approves the request and schedules its training in one
	// transaction. It fails with persistence.ErrStaleState when either row
	// moved, and with a *persistence.OverlapError when the hall is taken.
	CommitApproval(ctx context.Context, commit ApprovalCommit) error
	CommitRejection(ctx context.Context, commit RejectionCommit) error
}

// BookingServiceDeps captures dependencies for the booking workflow.
type BookingServiceDeps struct {
	Requests     BookingRequestRepository
	Trainings    TrainingRepository
	Halls        HallRepository
	Availability *AvailabilityService
	Locker       Locker
	Publisher    EventPublisher
	Metrics      Metrics
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// BookingService moves trainings from draft to scheduled through reviewed requests.
type BookingService struct {
	requests     BookingRequestRepository
	trainings    TrainingRepository
	halls        HallRepository
	availability *AvailabilityService
	locker       Locker
	publisher    EventPublisher
	metrics      Metrics
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingServiceDeps) *BookingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	return &BookingService{
		requests:     deps.Requests,
		trainings:    deps.Trainings,
		halls:        deps.Halls,
		availability: deps.Availability,
		locker:       deps.Locker,
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		idGenerator:  deps.IDGenerator,
		now:          deps.Now,
		logger:       defaultLogger(deps.Logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

func (s *BookingService) configured() error {
	if s.requests == nil || s.trainings == nil || s.halls == nil {
		return fmt.Errorf("booking repositories not configured")
	}
	return nil
}

// SubmitRequest raises a pending request for a draft training. No conflict
// check is made until approval.
func (s *BookingService) SubmitRequest(ctx context.Context, params SubmitRequestParams) (request BookingRequest, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SubmitRequest",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit booking request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", request.ID, "hall_id", request.HallID, "priority", string(request.Priority)).
			InfoContext(ctx, "booking request submitted")
	}()

	if !params.Principal.CanManageTrainings() {
		err = ErrUnauthorized
		return
	}

	params.TrainingID = strings.TrimSpace(params.TrainingID)
	params.HallID = strings.TrimSpace(params.HallID)
	params.Remarks = strings.TrimSpace(params.Remarks)
	if params.Priority == "" {
		params.Priority = PriorityNormal
	}
	vErr := validateStruct(params)
	if !params.Priority.Valid() {
		vErr.add("priority", "priority must be one of: normal urgent")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.configured(); err != nil {
		return
	}

	var training Training
	training, err = s.trainings.GetTraining(ctx, params.TrainingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if training.Status != TrainingDraft {
		err = &StateError{Entity: "training", ID: training.ID, Current: string(training.Status), Operation: "request a hall for"}
		return
	}

	hallID := params.HallID
	if hallID == "" {
		hallID = training.HallID
	}
	if _, err = s.halls.GetHall(ctx, hallID); err != nil {
		err = mapBookingRepoError(err)
		return
	}

	var pending []BookingRequest
	pending, err = s.requests.ListRequests(ctx, RequestFilter{Status: RequestPending, TrainingID: training.ID})
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if len(pending) > 0 {
		err = &StateError{Entity: "training", ID: training.ID, Current: "pending request " + pending[0].ID, Operation: "request a hall for"}
		return
	}

	now := s.now()
	request = BookingRequest{
		ID:          s.idGenerator(),
		TrainingID:  training.ID,
		HallID:      hallID,
		RequestedBy: params.Principal.UserID,
		Priority:    params.Priority,
		Remarks:     params.Remarks,
		Status:      RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.requests.CreateRequest(ctx, request); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = &StateError{Entity: "training", ID: training.ID, Current: "pending request", Operation: "request a hall for"}
		} else {
			err = mapBookingRepoError(err)
		}
		request = BookingRequest{}
	}
	return
}

// Approve confirms a pending request. The hall is re-checked and the decision
// committed while holding the hall lock; a lock that cannot be acquired fails
// the approval.
func (s *BookingService) Approve(ctx context.Context, params DecisionParams) (request BookingRequest, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Approve",
		"principal_id", params.Principal.UserID,
		"request_id", params.RequestID,
	)
	defer func() {
		outcome := "approved"
		if err != nil {
			outcome = ErrorKind(err)
			logger.ErrorContext(ctx, "failed to approve booking request", "error", err, "error_kind", outcome)
		} else {
			logger.With("training_id", request.TrainingID, "hall_id", request.HallID).InfoContext(ctx, "booking request approved")
		}
		s.metrics.BookingDecision("approve", outcome)
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if err = s.configured(); err != nil {
		return
	}
	if s.availability == nil {
		err = fmt.Errorf("availability service not configured")
		return
	}

	request, err = s.pendingRequest(ctx, params.RequestID, "approve")
	if err != nil {
		return
	}

	var training Training
	err = withLock(ctx, s.locker, hallLockKey(request.HallID), func() error {
		current, err := s.pendingRequest(ctx, request.ID, "approve")
		if err != nil {
			return err
		}
		training, err = s.trainings.GetTraining(ctx, current.TrainingID)
		if err != nil {
			return mapBookingRepoError(err)
		}
		if training.Status != TrainingDraft {
			return &StateError{Entity: "training", ID: training.ID, Current: string(training.Status), Operation: "approve a request for"}
		}

		result, err := s.availability.check(ctx, current.HallID, training.Date, training.Interval(), training.ID)
		if err != nil {
			return err
		}
		if !result.Free {
			return &ConflictError{Kind: result.Kind, EntityID: result.ConflictingEntity, Reason: result.Reason}
		}

		decidedAt := s.now()
		commit := ApprovalCommit{
			RequestID:  current.ID,
			TrainingID: training.ID,
			HallID:     current.HallID,
			DecidedBy:  params.Principal.UserID,
			DecidedAt:  decidedAt,
		}
		if err := s.requests.CommitApproval(ctx, commit); err != nil {
			return mapCommitError(current, err)
		}

		request = current
		request.Status = RequestApproved
		request.DecidedBy = commit.DecidedBy
		request.DecidedAt = &decidedAt
		request.UpdatedAt = decidedAt
		return nil
	})
	if err != nil {
		request = BookingRequest{}
		return
	}

	s.publisher.Publish(ctx, events.Event{
		Type:       events.RequestApproved,
		OccurredAt: *request.DecidedAt,
		RequestID:  request.ID,
		TrainingID: training.ID,
		HallID:     request.HallID,
		Recipient:  request.RequestedBy,
		Payload: map[string]string{
			"title": training.Title,
			"date":  training.Date.Format("2006-01-02"),
			"start": training.Start.String(),
			"end":   training.End.String(),
		},
	})
	return
}

// Reject declines a pending request. The training stays draft and may be
// requested again.
func (s *BookingService) Reject(ctx context.Context, params DecisionParams) (request BookingRequest, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Reject",
		"principal_id", params.Principal.UserID,
		"request_id", params.RequestID,
	)
	defer func() {
		outcome := "rejected"
		if err != nil {
			outcome = ErrorKind(err)
			logger.ErrorContext(ctx, "failed to reject booking request", "error", err, "error_kind", outcome)
		} else {
			logger.InfoContext(ctx, "booking request rejected")
		}
		s.metrics.BookingDecision("reject", outcome)
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if err = s.configured(); err != nil {
		return
	}

	reason := strings.TrimSpace(params.Reason)
	if len(reason) > 1000 {
		vErr := &ValidationError{}
		vErr.add("reason", "reason must be at most 1000 characters")
		err = vErr
		return
	}

	request, err = s.pendingRequest(ctx, params.RequestID, "reject")
	if err != nil {
		return
	}

	decidedAt := s.now()
	commit := RejectionCommit{
		RequestID: request.ID,
		DecidedBy: params.Principal.UserID,
		Reason:    reason,
		DecidedAt: decidedAt,
	}
	if err = s.requests.CommitRejection(ctx, commit); err != nil {
		err = mapCommitError(request, err)
		request = BookingRequest{}
		return
	}

	request.Status = RequestRejected
	request.DecidedBy = commit.DecidedBy
	request.DecidedAt = &decidedAt
	request.RejectionReason = reason
	request.UpdatedAt = decidedAt

	payload := map[string]string{}
	if reason != "" {
		payload["reason"] = reason
	}
	s.publisher.Publish(ctx, events.Event{
		Type:       events.RequestRejected,
		OccurredAt: decidedAt,
		RequestID:  request.ID,
		TrainingID: request.TrainingID,
		HallID:     request.HallID,
		Recipient:  request.RequestedBy,
		Payload:    payload,
	})
	return
}

func (s *BookingService) pendingRequest(ctx context.Context, id, operation string) (BookingRequest, error) {
	request, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return BookingRequest{}, mapBookingRepoError(err)
	}
	if request.Status != RequestPending {
		return BookingRequest{}, &StateError{Entity: "request", ID: request.ID, Current: string(request.Status), Operation: operation}
	}
	return request, nil
}

// GetRequest returns a booking request by ID.
func (s *BookingService) GetRequest(ctx context.Context, principal Principal, requestID string) (BookingRequest, error) {
	if s == nil {
		return BookingRequest{}, fmt.Errorf("BookingService is nil")
	}
	if !principal.CanManageTrainings() {
		return BookingRequest{}, ErrUnauthorized
	}
	if s.requests == nil {
		return BookingRequest{}, fmt.Errorf("booking request repository not configured")
	}
	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return BookingRequest{}, mapBookingRepoError(err)
	}
	return request, nil
}

// ListRequests returns requests with urgent ones first, then oldest first.
func (s *BookingService) ListRequests(ctx context.Context, principal Principal, filter RequestFilter) ([]BookingRequest, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if !principal.CanManageTrainings() {
		return nil, ErrUnauthorized
	}
	if filter.Status != "" && !filter.Status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be one of: pending approved rejected")
		return nil, vErr
	}
	if s.requests == nil {
		return nil, nil
	}
	requests, err := s.requests.ListRequests(ctx, filter)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return requests, nil
}

func mapCommitError(request BookingRequest, err error) error {
	var overlap *persistence.OverlapError
	switch {
	case errors.As(err, &overlap):
		return &ConflictError{
			Kind:     ConflictKind(overlap.Kind),
			EntityID: overlap.ID,
			Reason:   "hall is already taken for this slot",
		}
	case errors.Is(err, persistence.ErrStaleState):
		return &StateError{Entity: "request", ID: request.ID, Current: "decided concurrently", Operation: "decide"}
	}
	return mapBookingRepoError(err)
}

func mapBookingRepoError(err error) error {
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
	}
	return err
}
