package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

type bookingService interface {
	SubmitRequest(ctx context.Context, params application.SubmitRequestParams) (application.BookingRequest, error)
	Approve(ctx context.Context, params application.DecisionParams) (application.BookingRequest, error)
	Reject(ctx context.Context, params application.DecisionParams) (application.BookingRequest, error)
	GetRequest(ctx context.Context, principal application.Principal, requestID string) (application.BookingRequest, error)
	ListRequests(ctx context.Context, principal application.Principal, filter application.RequestFilter) ([]application.BookingRequest, error)
}

// BookingHandler serves hall booking requests and their decisions.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Submit", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Submit", "training_id", req.TrainingID)
	request, err := h.service.SubmitRequest(r.Context(), application.SubmitRequestParams{
		Principal:  principal,
		TrainingID: strings.TrimSpace(req.TrainingID),
		HallID:     strings.TrimSpace(req.HallID),
		Priority:   application.Priority(strings.TrimSpace(req.Priority)),
		Remarks:    strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", request.ID).InfoContext(r.Context(), "booking request submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Request: toRequestDTO(request)})
}

// Approve confirms the request. A slot taken in the meantime surfaces as 409.
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request, requestID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Approve", "booking_request_id", requestID)

	request, err := h.service.Approve(r.Context(), application.DecisionParams{Principal: principal, RequestID: requestID})
	if err != nil {
		logger.ErrorContext(r.Context(), "approval failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking request approved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, decisionResponse{Status: string(request.Status), Request: toRequestDTO(request)})
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request, requestID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Reject", "booking_request_id", requestID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode rejection", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Reject", "booking_request_id", requestID)
	request, err := h.service.Reject(r.Context(), application.DecisionParams{
		Principal: principal,
		RequestID: requestID,
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "rejection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking request rejected")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, decisionResponse{Status: string(request.Status), Request: toRequestDTO(request)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, requestID string) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	request, err := h.service.GetRequest(r.Context(), principal, requestID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_request_id", requestID).ErrorContext(r.Context(), "booking request lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Request: toRequestDTO(request)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	requests, err := h.service.ListRequests(r.Context(), principal, application.RequestFilter{
		Status:     application.RequestStatus(strings.TrimSpace(query.Get("status"))),
		HallID:     strings.TrimSpace(query.Get("hall_id")),
		TrainingID: strings.TrimSpace(query.Get("training_id")),
	})
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "booking request list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Requests: toRequestDTOs(requests)})
}

type submitRequest struct {
	TrainingID string `json:"training_id"`
	HallID     string `json:"hall_id"`
	Priority   string `json:"priority"`
	Remarks    string `json:"remarks"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type bookingResponse struct {
	Request requestDTO `json:"request"`
}

type decisionResponse struct {
	Status  string     `json:"status"`
	Request requestDTO `json:"request"`
}

type listBookingsResponse struct {
	Requests []requestDTO `json:"requests"`
}
