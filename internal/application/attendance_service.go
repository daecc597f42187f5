package application

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abeldaneesh/TMS-sub000/internal/events"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// Session defaults used when AttendanceServiceDeps leaves them unset.
const (
	DefaultLeadTime        = 30 * time.Minute
	DefaultSessionMinutes  = 15
	MaxSessionMinutesLimit = 240
)

// AttendanceRepository records attendance.
type AttendanceRepository interface {
	// RecordAttendance stores the record and moves the participant's
	// nomination to attended. When a record already exists it is returned
	// with created=false.
	RecordAttendance(ctx context.Context, attendance Attendance) (stored Attendance, created bool, err error)
	ListAttendance(ctx context.Context, trainingID string) ([]Attendance, error)
	ListAttendanceByParticipant(ctx context.Context, participantID string) ([]Attendance, error)
}

// AttendanceServiceDeps captures dependencies for the attendance service.
type AttendanceServiceDeps struct {
	Trainings  TrainingRepository
	Attendance AttendanceRepository
	// Nominations supplies the approved participants told about a new session.
	Nominations NominationRepository
	Locker      Locker
	Publisher   EventPublisher
	Metrics     Metrics
	// LeadTime is how long before the scheduled start a session may open.
	LeadTime               time.Duration
	DefaultDurationMinutes int
	MaxDurationMinutes     int
	// Location interprets training dates and times of day.
	Location       *time.Location
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	Logger         *slog.Logger
}

// AttendanceService runs QR attendance sessions and records attendance.
type AttendanceService struct {
	trainings       TrainingRepository
	attendance      AttendanceRepository
	nominations     NominationRepository
	locker          Locker
	publisher       EventPublisher
	metrics         Metrics
	leadTime        time.Duration
	defaultDuration int
	maxDuration     int
	location        *time.Location
	idGenerator     func() string
	tokenGenerator  func() string
	now             func() time.Time
	logger          *slog.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(deps AttendanceServiceDeps) *AttendanceService {
	if deps.LeadTime <= 0 {
		deps.LeadTime = DefaultLeadTime
	}
	if deps.MaxDurationMinutes <= 0 {
		deps.MaxDurationMinutes = MaxSessionMinutesLimit
	}
	if deps.DefaultDurationMinutes <= 0 {
		deps.DefaultDurationMinutes = DefaultSessionMinutes
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuid.NewString
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = uuid.NewString
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
	return &AttendanceService{
		trainings:       deps.Trainings,
		attendance:      deps.Attendance,
		nominations:     deps.Nominations,
		locker:          deps.Locker,
		publisher:       deps.Publisher,
		metrics:         deps.Metrics,
		leadTime:        deps.LeadTime,
		defaultDuration: deps.DefaultDurationMinutes,
		maxDuration:     deps.MaxDurationMinutes,
		location:        deps.Location,
		idGenerator:     deps.IDGenerator,
		tokenGenerator:  deps.TokenGenerator,
		now:             deps.Now,
		logger:          defaultLogger(deps.Logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

func (s *AttendanceService) instant(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// sessionWindow returns the earliest and latest instants a session may be started.
func (s *AttendanceService) sessionWindow(training Training) (opens, closes time.Time) {
	start := scheduler.At(training.Date, training.Start, s.location)
	closes = scheduler.At(training.Date, training.End, s.location)
	return start.Add(-s.leadTime), closes
}

// CanStart reports whether now lies in [start - lead time, end], both ends inclusive.
func (s *AttendanceService) CanStart(training Training, now time.Time) bool {
	opens, closes := s.sessionWindow(training)
	return !now.Before(opens) && !now.After(closes)
}

func (s *AttendanceService) loadTraining(ctx context.Context, id string) (Training, error) {
	if s.trainings == nil {
		return Training{}, fmt.Errorf("training repository not configured")
	}
	training, err := s.trainings.GetTraining(ctx, id)
	if err != nil {
		return Training{}, mapAttendanceRepoError(err)
	}
	return training, nil
}

// Start opens an attendance session with a fresh token.
func (s *AttendanceService) Start(ctx context.Context, params StartSessionParams) (status SessionStatus, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	now := s.instant(params.Now)
	logger := s.loggerWith(ctx, "Start",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to start attendance session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.SessionAction("start")
		logger.InfoContext(ctx, "attendance session started", "end_time", status.EndTime)
	}()

	duration := params.DurationMinutes
	if duration == 0 {
		duration = s.defaultDuration
	}
	if duration < 1 || duration > s.maxDuration {
		vErr := &ValidationError{}
		vErr.add("duration_minutes", fmt.Sprintf("duration_minutes must be between 1 and %d", s.maxDuration))
		err = vErr
		return
	}

	var training Training
	err = withLock(ctx, s.locker, trainingLockKey(params.TrainingID), func() error {
		var err error
		training, err = s.loadTraining(ctx, params.TrainingID)
		if err != nil {
			return err
		}
		if !training.canRunSession(params.Principal) {
			return ErrUnauthorized
		}
		if !training.Status.IsConfirmed() {
			return &StateError{Entity: "training", ID: training.ID, Current: string(training.Status), Operation: "start a session for"}
		}
		if !s.CanStart(training, now) {
			opens, closes := s.sessionWindow(training)
			return &WindowError{Opens: opens, Closes: closes, Now: now}
		}

		end := now.Add(time.Duration(duration) * time.Minute)
		start := now
		training.Session = AttendanceSession{
			Active:    true,
			StartTime: &start,
			EndTime:   &end,
			Token:     s.tokenGenerator(),
			StartedBy: params.Principal.UserID,
		}
		if err := s.trainings.SaveSession(ctx, training.ID, training.Session, now); err != nil {
			return mapAttendanceRepoError(err)
		}
		return nil
	})
	if err != nil {
		return
	}

	status = sessionStatus(training, now, true)
	s.notifySessionStarted(ctx, logger, training, now)
	return
}

// notifySessionStarted publishes one session.started event per participant
// holding an approved nomination. A lookup failure is logged; the session
// stays open.
func (s *AttendanceService) notifySessionStarted(ctx context.Context, logger *slog.Logger, training Training, now time.Time) {
	if s.nominations == nil {
		return
	}
	nominations, err := s.nominations.ListNominations(ctx, NominationFilter{
		TrainingID: training.ID,
		Statuses:   []NominationStatus{NominationApproved},
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to load session recipients", "error", err)
		return
	}
	for _, n := range nominations {
		s.publisher.Publish(ctx, events.Event{
			Type:       events.SessionStarted,
			OccurredAt: now,
			TrainingID: training.ID,
			HallID:     training.HallID,
			Recipient:  n.ParticipantID,
			Payload: map[string]string{
				"title":    training.Title,
				"end_time": training.Session.EndTime.Format(time.RFC3339),
			},
		})
	}
}

// Stop deactivates the session. The token is kept but no longer validates.
// Stopping an idle session is a no-op.
func (s *AttendanceService) Stop(ctx context.Context, params StopSessionParams) (status SessionStatus, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	now := s.instant(params.Now)
	logger := s.loggerWith(ctx, "Stop",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to stop attendance session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.SessionAction("stop")
		logger.InfoContext(ctx, "attendance session stopped")
	}()

	var training Training
	err = withLock(ctx, s.locker, trainingLockKey(params.TrainingID), func() error {
		var err error
		training, err = s.loadTraining(ctx, params.TrainingID)
		if err != nil {
			return err
		}
		if !training.canRunSession(params.Principal) {
			return ErrUnauthorized
		}
		if !training.Session.Active {
			return nil
		}
		training.Session.Active = false
		if err := s.trainings.SaveSession(ctx, training.ID, training.Session, now); err != nil {
			return mapAttendanceRepoError(err)
		}
		return nil
	})
	if err != nil {
		return
	}
	status = sessionStatus(training, now, true)
	return
}

// Validate reports whether token opens the training's current session at now.
func (s *AttendanceService) Validate(ctx context.Context, params ValidateTokenParams) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("AttendanceService is nil")
	}
	training, err := s.loadTraining(ctx, params.TrainingID)
	if err != nil {
		return false, err
	}
	return tokenValid(training.Session, params.Token, s.instant(params.Now)), nil
}

func tokenValid(session AttendanceSession, token string, now time.Time) bool {
	if session.State(now) != SessionActive || session.EndTime == nil {
		return false
	}
	if token == "" || session.Token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(session.Token), []byte(token)) == 1
}

// MarkAttendance records a participant through a session token. Any token
// failure is reported as ErrInvalidSession.
func (s *AttendanceService) MarkAttendance(ctx context.Context, params MarkAttendanceParams) (result AttendanceResult, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	participantID := strings.TrimSpace(params.ParticipantID)
	if participantID == "" {
		participantID = params.Principal.UserID
	}
	now := s.instant(params.Now)
	logger := s.loggerWith(ctx, "MarkAttendance",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
		"participant_id", participantID,
	)
	defer func() {
		outcome := "recorded"
		switch {
		case errors.Is(err, ErrInvalidSession):
			outcome = "invalid"
		case err != nil:
			outcome = "error"
		case !result.Created:
			outcome = "duplicate"
		}
		s.metrics.AttendanceScan(outcome)
		if err != nil {
			logger.WarnContext(ctx, "attendance not recorded", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance marked", "created", result.Created)
	}()

	if participantID == "" {
		vErr := &ValidationError{}
		vErr.add("participant_id", "participant_id is required")
		err = vErr
		return
	}
	if params.Principal.Role == RoleParticipant && participantID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}
	if s.attendance == nil {
		err = fmt.Errorf("attendance repository not configured")
		return
	}

	err = withLock(ctx, s.locker, trainingLockKey(params.TrainingID), func() error {
		training, err := s.loadTraining(ctx, params.TrainingID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvalidSession
			}
			return err
		}
		if !tokenValid(training.Session, params.Token, now) {
			return ErrInvalidSession
		}
		result, err = s.record(ctx, training.ID, participantID, MethodQR, params.Principal.UserID, now)
		return err
	})
	return
}

func (s *AttendanceService) record(ctx context.Context, trainingID, participantID string, method AttendanceMethod, markedBy string, now time.Time) (AttendanceResult, error) {
	stored, created, err := s.attendance.RecordAttendance(ctx, Attendance{
		ID:            s.idGenerator(),
		TrainingID:    trainingID,
		ParticipantID: participantID,
		Method:        method,
		MarkedBy:      markedBy,
		MarkedAt:      now,
	})
	if err != nil {
		return AttendanceResult{}, mapAttendanceRepoError(err)
	}
	return AttendanceResult{Attendance: stored, Created: created}, nil
}

type qrPayload struct {
	TrainingID string `json:"trainingId"`
	Token      string `json:"token"`
}

// Scan decodes a QR payload and marks the scanning principal present. The
// payload is either a JSON object carrying trainingId and token, or a bare
// token for the training named in params.
func (s *AttendanceService) Scan(ctx context.Context, params ScanParams) (AttendanceResult, error) {
	if s == nil {
		return AttendanceResult{}, fmt.Errorf("AttendanceService is nil")
	}

	raw := strings.TrimSpace(params.QRData)
	vErr := &ValidationError{}
	if raw == "" {
		vErr.add("qr_data", "qr_data is required")
		return AttendanceResult{}, vErr
	}

	payload := qrPayload{TrainingID: strings.TrimSpace(params.TrainingID), Token: raw}
	if strings.HasPrefix(raw, "{") {
		var decoded qrPayload
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			vErr.add("qr_data", "qr_data is not a valid attendance code")
			return AttendanceResult{}, vErr
		}
		if payload.TrainingID != "" && decoded.TrainingID != "" && payload.TrainingID != decoded.TrainingID {
			return AttendanceResult{}, ErrInvalidSession
		}
		if decoded.TrainingID != "" {
			payload.TrainingID = decoded.TrainingID
		}
		payload.Token = decoded.Token
	}
	if payload.TrainingID == "" {
		vErr.add("training_id", "training_id is required for a bare token")
		return AttendanceResult{}, vErr
	}

	return s.MarkAttendance(ctx, MarkAttendanceParams{
		Principal:     params.Principal,
		TrainingID:    payload.TrainingID,
		ParticipantID: params.Principal.UserID,
		Token:         payload.Token,
		Now:           params.Now,
	})
}

// SessionStatus describes the training's session at now. The token is only
// shown to those who may run the session.
func (s *AttendanceService) SessionStatus(ctx context.Context, principal Principal, trainingID string, now time.Time) (SessionStatus, error) {
	if s == nil {
		return SessionStatus{}, fmt.Errorf("AttendanceService is nil")
	}
	training, err := s.loadTraining(ctx, trainingID)
	if err != nil {
		return SessionStatus{}, err
	}
	return sessionStatus(training, s.instant(now), training.canRunSession(principal)), nil
}

func sessionStatus(training Training, now time.Time, withToken bool) SessionStatus {
	status := SessionStatus{
		TrainingID: training.ID,
		State:      training.Session.State(now),
		StartTime:  training.Session.StartTime,
		EndTime:    training.Session.EndTime,
	}
	if withToken && status.State == SessionActive {
		status.Token = training.Session.Token
	}
	return status
}

// ManualAttendance marks a participant present without a token.
func (s *AttendanceService) ManualAttendance(ctx context.Context, params ManualAttendanceParams) (result AttendanceResult, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	now := s.instant(params.Now)
	participantID := strings.TrimSpace(params.ParticipantID)
	logger := s.loggerWith(ctx, "ManualAttendance",
		"principal_id", params.Principal.UserID,
		"training_id", params.TrainingID,
		"participant_id", participantID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark attendance manually", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance marked manually", "created", result.Created)
	}()

	if participantID == "" {
		vErr := &ValidationError{}
		vErr.add("participant_id", "participant_id is required")
		err = vErr
		return
	}
	if s.attendance == nil {
		err = fmt.Errorf("attendance repository not configured")
		return
	}

	err = withLock(ctx, s.locker, trainingLockKey(params.TrainingID), func() error {
		training, err := s.loadTraining(ctx, params.TrainingID)
		if err != nil {
			return err
		}
		if !training.canRunSession(params.Principal) {
			return ErrUnauthorized
		}
		switch training.Status {
		case TrainingScheduled, TrainingOngoing, TrainingCompleted:
		default:
			return &StateError{Entity: "training", ID: training.ID, Current: string(training.Status), Operation: "mark attendance for"}
		}
		result, err = s.record(ctx, training.ID, participantID, MethodManual, params.Principal.UserID, now)
		return err
	})
	return
}

// ListAttendance returns the attendance records of a training.
func (s *AttendanceService) ListAttendance(ctx context.Context, principal Principal, trainingID string) ([]Attendance, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendanceService is nil")
	}
	training, err := s.loadTraining(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	if !training.canRunSession(principal) && !principal.CanManageTrainings() {
		return nil, ErrUnauthorized
	}
	if s.attendance == nil {
		return nil, nil
	}
	records, err := s.attendance.ListAttendance(ctx, training.ID)
	if err != nil {
		return nil, mapAttendanceRepoError(err)
	}
	return records, nil
}

func mapAttendanceRepoError(err error) error {
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

// ListAttendanceByParticipant returns a participant's attendance history. A
// participant sees their own; training managers see anyone's.
func (s *AttendanceService) ListAttendanceByParticipant(ctx context.Context, principal Principal, participantID string) ([]Attendance, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendanceService is nil")
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		vErr := &ValidationError{}
		vErr.add("participant_id", "participant_id is required")
		return nil, vErr
	}
	if principal.UserID != participantID && !principal.CanManageTrainings() {
		return nil, ErrUnauthorized
	}
	if s.attendance == nil {
		return nil, nil
	}
	records, err := s.attendance.ListAttendanceByParticipant(ctx, participantID)
	if err != nil {
		return nil, mapAttendanceRepoError(err)
	}
	return records, nil
}
