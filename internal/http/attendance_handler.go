package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

type attendanceService interface {
	Start(ctx context.Context, params application.StartSessionParams) (application.SessionStatus, error)
	Stop(ctx context.Context, params application.StopSessionParams) (application.SessionStatus, error)
	Validate(ctx context.Context, params application.ValidateTokenParams) (bool, error)
	Scan(ctx context.Context, params application.ScanParams) (application.AttendanceResult, error)
	SessionStatus(ctx context.Context, principal application.Principal, trainingID string, now time.Time) (application.SessionStatus, error)
	ManualAttendance(ctx context.Context, params application.ManualAttendanceParams) (application.AttendanceResult, error)
	ListAttendance(ctx context.Context, principal application.Principal, trainingID string) ([]application.Attendance, error)
	ListAttendanceByParticipant(ctx context.Context, principal application.Principal, participantID string) ([]application.Attendance, error)
}

// AttendanceHandler serves QR attendance sessions and attendance records.
// Instants are left zero so the service clock decides.
type AttendanceHandler struct {
	service   attendanceService
	responder responder
	logger    *slog.Logger
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	base := defaultLogger(logger)
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

func (h *AttendanceHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *AttendanceHandler) SessionStatus(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	status, err := h.service.SessionStatus(r.Context(), principal, trainingID, time.Time{})
	if err != nil {
		h.log(r.Context(), "SessionStatus", "training_id", trainingID).ErrorContext(r.Context(), "session status failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(status))
}

// StartSession opens a session and returns its token and end time.
func (h *AttendanceHandler) StartSession(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req startSessionRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "StartSession", "training_id", trainingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode session start", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "StartSession", "training_id", trainingID)
	status, err := h.service.Start(r.Context(), application.StartSessionParams{
		Principal:       principal,
		TrainingID:      trainingID,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session start failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session started")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(status))
}

func (h *AttendanceHandler) StopSession(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "StopSession", "training_id", trainingID)
	status, err := h.service.Stop(r.Context(), application.StopSessionParams{Principal: principal, TrainingID: trainingID})
	if err != nil {
		logger.ErrorContext(r.Context(), "session stop failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "session stopped")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(status))
}

func (h *AttendanceHandler) ValidateToken(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}

	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "ValidateToken", "training_id", trainingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode token", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	valid, err := h.service.Validate(r.Context(), application.ValidateTokenParams{
		TrainingID: trainingID,
		Token:      strings.TrimSpace(req.Token),
	})
	if err != nil {
		h.log(r.Context(), "ValidateToken", "training_id", trainingID).ErrorContext(r.Context(), "token validation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, validResponse{Valid: valid})
}

// Scan marks the calling participant present from a scanned QR payload.
func (h *AttendanceHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req scanRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Scan", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode scan", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Scan", "training_id", req.TrainingID)
	result, err := h.service.Scan(r.Context(), application.ScanParams{
		Principal:  principal,
		QRData:     req.QRData,
		TrainingID: strings.TrimSpace(req.TrainingID),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "scan rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	logger.InfoContext(r.Context(), "attendance scanned", "created", result.Created)
	h.responder.writeJSON(r.Context(), w, status, attendanceResultResponse{Attendance: toAttendanceDTO(result.Attendance), Created: result.Created})
}

func (h *AttendanceHandler) Manual(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req manualAttendanceRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Manual", "training_id", trainingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode manual attendance", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Manual", "training_id", trainingID, "participant_id", req.ParticipantID)
	result, err := h.service.ManualAttendance(r.Context(), application.ManualAttendanceParams{
		Principal:     principal,
		TrainingID:    trainingID,
		ParticipantID: strings.TrimSpace(req.ParticipantID),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "manual attendance failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	logger.InfoContext(r.Context(), "manual attendance recorded", "created", result.Created)
	h.responder.writeJSON(r.Context(), w, status, attendanceResultResponse{Attendance: toAttendanceDTO(result.Attendance), Created: result.Created})
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	records, err := h.service.ListAttendance(r.Context(), principal, trainingID)
	if err != nil {
		h.log(r.Context(), "List", "training_id", trainingID).ErrorContext(r.Context(), "attendance list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAttendanceResponse{Attendance: toAttendanceDTOs(records)})
}

// History lists a participant's attendance across trainings. An empty
// participantID means the caller's own history.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request, participantID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	if participantID == "" {
		participantID = principal.UserID
	}
	records, err := h.service.ListAttendanceByParticipant(r.Context(), principal, participantID)
	if err != nil {
		h.log(r.Context(), "History", "participant_id", participantID).ErrorContext(r.Context(), "attendance history failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAttendanceResponse{Attendance: toAttendanceDTOs(records)})
}

type startSessionRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type scanRequest struct {
	QRData     string `json:"qr_data"`
	TrainingID string `json:"training_id"`
}

type manualAttendanceRequest struct {
	ParticipantID string `json:"participant_id"`
}

type validResponse struct {
	Valid bool `json:"valid"`
}

type attendanceResultResponse struct {
	Attendance attendanceDTO `json:"attendance"`
	Created    bool          `json:"created"`
}

type listAttendanceResponse struct {
	Attendance []attendanceDTO `json:"attendance"`
}
