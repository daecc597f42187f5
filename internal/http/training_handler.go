package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

type trainingService interface {
	CreateTraining(ctx context.Context, params application.CreateTrainingParams) (application.Training, error)
	UpdateTraining(ctx context.Context, params application.UpdateTrainingParams) (application.Training, error)
	DeleteTraining(ctx context.Context, principal application.Principal, trainingID string) error
	TransitionStatus(ctx context.Context, params application.TransitionStatusParams) (application.Training, error)
	GetTraining(ctx context.Context, principal application.Principal, trainingID string) (application.Training, error)
	ListTrainings(ctx context.Context, principal application.Principal, params application.ListTrainingsParams) ([]application.Training, error)
}

type TrainingHandler struct {
	service   trainingService
	responder responder
	logger    *slog.Logger
}

func NewTrainingHandler(service trainingService, logger *slog.Logger) *TrainingHandler {
	base := defaultLogger(logger)
	return &TrainingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TrainingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TrainingHandler", operation, attrs...)
}

func (h *TrainingHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// Create stores a new draft training.
func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req trainingRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode training request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "hall_id", req.HallID)
	training, err := h.service.CreateTraining(r.Context(), application.CreateTrainingParams{Principal: principal, Input: req.toInput()})
	if err != nil {
		logger.ErrorContext(r.Context(), "training creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("training_id", training.ID).InfoContext(r.Context(), "training created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, trainingResponse{Training: toTrainingDTO(training)})
}

func (h *TrainingHandler) Update(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req trainingRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Update", "training_id", trainingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode training update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "training_id", trainingID)
	training, err := h.service.UpdateTraining(r.Context(), application.UpdateTrainingParams{
		Principal:  principal,
		TrainingID: trainingID,
		Input:      req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "training update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "training updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, trainingResponse{Training: toTrainingDTO(training)})
}

func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "training_id", trainingID)
	if err := h.service.DeleteTraining(r.Context(), principal, trainingID); err != nil {
		logger.ErrorContext(r.Context(), "training delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "training deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TrainingHandler) Get(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	training, err := h.service.GetTraining(r.Context(), principal, trainingID)
	if err != nil {
		h.log(r.Context(), "Get", "training_id", trainingID).ErrorContext(r.Context(), "training lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, trainingResponse{Training: toTrainingDTO(training)})
}

// List maps the hall_id, trainer_id, date and status query parameters to a filter.
func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	trainings, err := h.service.ListTrainings(r.Context(), principal, application.ListTrainingsParams{
		HallID:    strings.TrimSpace(query.Get("hall_id")),
		TrainerID: strings.TrimSpace(query.Get("trainer_id")),
		Date:      strings.TrimSpace(query.Get("date")),
		Status:    strings.TrimSpace(query.Get("status")),
	})
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "training list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTrainingsResponse{Trainings: toTrainingDTOs(trainings)})
}

func (h *TrainingHandler) Transition(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Transition", "training_id", trainingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode status change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Transition", "training_id", trainingID, "status", req.Status)
	training, err := h.service.TransitionStatus(r.Context(), application.TransitionStatusParams{
		Principal:  principal,
		TrainingID: trainingID,
		Status:     application.TrainingStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "training status change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "training status changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, trainingResponse{Training: toTrainingDTO(training)})
}

type trainingRequest struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Program              string   `json:"program"`
	HallID               string   `json:"hall_id"`
	Date                 string   `json:"date"`
	Start                string   `json:"start"`
	End                  string   `json:"end"`
	Capacity             int      `json:"capacity"`
	TrainerID            string   `json:"trainer_id"`
	RequiredInstitutions []string `json:"required_institutions"`
}

func (r trainingRequest) toInput() application.TrainingInput {
	return application.TrainingInput{
		Title:                strings.TrimSpace(r.Title),
		Description:          strings.TrimSpace(r.Description),
		Program:              strings.TrimSpace(r.Program),
		HallID:               strings.TrimSpace(r.HallID),
		Date:                 strings.TrimSpace(r.Date),
		Start:                strings.TrimSpace(r.Start),
		End:                  strings.TrimSpace(r.End),
		Capacity:             r.Capacity,
		TrainerID:            strings.TrimSpace(r.TrainerID),
		RequiredInstitutions: trimAll(r.RequiredInstitutions),
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type trainingResponse struct {
	Training trainingDTO `json:"training"`
}

type listTrainingsResponse struct {
	Trainings []trainingDTO `json:"trainings"`
}
