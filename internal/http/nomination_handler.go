package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

type nominationService interface {
	Nominate(ctx context.Context, params application.NominateParams) (application.Nomination, error)
	DecideNomination(ctx context.Context, params application.DecideNominationParams) (application.Nomination, error)
	ListNominations(ctx context.Context, principal application.Principal, params application.ListNominationsParams) ([]application.Nomination, error)
}

type busyParticipantFinder interface {
	FindBusyParticipants(ctx context.Context, params application.BusyParticipantsParams) ([]string, error)
}

type NominationHandler struct {
	service   nominationService
	busy      busyParticipantFinder
	responder responder
	logger    *slog.Logger
}

func NewNominationHandler(service nominationService, busy busyParticipantFinder, logger *slog.Logger) *NominationHandler {
	base := defaultLogger(logger)
	return &NominationHandler{service: service, busy: busy, responder: newResponder(base), logger: base}
}

func (h *NominationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NominationHandler", operation, attrs...)
}

func (h *NominationHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil || h.busy == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *NominationHandler) Nominate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req nominateRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Nominate", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode nomination", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Nominate", "training_id", req.TrainingID, "participant_id", req.ParticipantID)
	nomination, err := h.service.Nominate(r.Context(), application.NominateParams{
		Principal:     principal,
		TrainingID:    strings.TrimSpace(req.TrainingID),
		ParticipantID: strings.TrimSpace(req.ParticipantID),
		InstitutionID: strings.TrimSpace(req.InstitutionID),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "nomination failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("nomination_id", nomination.ID).InfoContext(r.Context(), "participant nominated")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, nominationResponse{Nomination: toNominationDTO(nomination)})
}

func (h *NominationHandler) Decide(w http.ResponseWriter, r *http.Request, nominationID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req nominationDecisionRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Decide", "nomination_id", nominationID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode nomination decision", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Decide", "nomination_id", nominationID, "status", req.Status)
	nomination, err := h.service.DecideNomination(r.Context(), application.DecideNominationParams{
		Principal:    principal,
		NominationID: nominationID,
		Status:       application.NominationStatus(strings.TrimSpace(req.Status)),
		Reason:       strings.TrimSpace(req.Reason),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "nomination decision failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "nomination decided")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, nominationResponse{Nomination: toNominationDTO(nomination)})
}

// ListForTraining lists a training's nominations, optionally narrowed by status.
func (h *NominationHandler) ListForTraining(w http.ResponseWriter, r *http.Request, trainingID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	nominations, err := h.service.ListNominations(r.Context(), principal, application.ListNominationsParams{
		TrainingID:    trainingID,
		ParticipantID: strings.TrimSpace(query.Get("participant_id")),
		Status:        strings.TrimSpace(query.Get("status")),
	})
	if err != nil {
		h.log(r.Context(), "ListForTraining", "training_id", trainingID).ErrorContext(r.Context(), "nomination list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNominationsResponse{Nominations: toNominationDTOs(nominations)})
}

// Busy lists participants already committed to a training on the date.
func (h *NominationHandler) Busy(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	if !principal.CanManageTrainings() {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}
	query := r.URL.Query()
	participants, err := h.busy.FindBusyParticipants(r.Context(), application.BusyParticipantsParams{
		Date:              strings.TrimSpace(query.Get("date")),
		ExcludeTrainingID: strings.TrimSpace(query.Get("exclude")),
	})
	if err != nil {
		h.log(r.Context(), "Busy").ErrorContext(r.Context(), "busy participant lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, busyResponse{ParticipantIDs: orEmpty(participants)})
}

type nominateRequest struct {
	TrainingID    string `json:"training_id"`
	ParticipantID string `json:"participant_id"`
	InstitutionID string `json:"institution_id"`
}

type nominationDecisionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type nominationResponse struct {
	Nomination nominationDTO `json:"nomination"`
}

type listNominationsResponse struct {
	Nominations []nominationDTO `json:"nominations"`
}

type busyResponse struct {
	ParticipantIDs []string `json:"participant_ids"`
}
