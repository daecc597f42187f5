package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

type hallService interface {
	CreateHall(ctx context.Context, params application.CreateHallParams) (application.Hall, error)
	UpdateHall(ctx context.Context, params application.UpdateHallParams) (application.Hall, error)
	DeleteHall(ctx context.Context, principal application.Principal, hallID string) error
	GetHall(ctx context.Context, principal application.Principal, hallID string) (application.Hall, error)
	ListHalls(ctx context.Context, principal application.Principal) ([]application.Hall, error)
	AddAvailability(ctx context.Context, params application.AddAvailabilityParams) (application.AvailabilityWindow, error)
	RemoveAvailability(ctx context.Context, principal application.Principal, hallID, windowID string) error
	ListAvailability(ctx context.Context, principal application.Principal, hallID string) ([]application.AvailabilityWindow, error)
}

type availabilityService interface {
	CheckHallConflict(ctx context.Context, params application.CheckConflictParams) (application.ConflictResult, error)
	ListAvailableHalls(ctx context.Context, params application.AvailableHallsParams) ([]application.Hall, error)
	HallDaySchedule(ctx context.Context, hallID, date string) (application.HallDaySchedule, error)
	FindBusyParticipants(ctx context.Context, params application.BusyParticipantsParams) ([]string, error)
}

type blockService interface {
	CreateBlock(ctx context.Context, params application.CreateBlockParams) (application.Block, error)
	DeleteBlock(ctx context.Context, principal application.Principal, blockID string) error
	ListBlocks(ctx context.Context, principal application.Principal, hallID, date string) ([]application.Block, error)
}

// HallHandler serves the hall catalog and the hall scoped availability views.
type HallHandler struct {
	halls        hallService
	availability availabilityService
	blocks       blockService
	responder    responder
	logger       *slog.Logger
}

func NewHallHandler(halls hallService, availability availabilityService, blocks blockService, logger *slog.Logger) *HallHandler {
	base := defaultLogger(logger)
	return &HallHandler{halls: halls, availability: availability, blocks: blocks, responder: newResponder(base), logger: base}
}

func (h *HallHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "HallHandler", operation, attrs...)
}

// ready answers 500 unless the dependency the route needs is configured.
func (h *HallHandler) ready(w http.ResponseWriter, configured bool) bool {
	if !configured {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *HallHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req hallRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode hall request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	hall, err := h.halls.CreateHall(r.Context(), application.CreateHallParams{Principal: principal, Input: req.toInput()})
	if err != nil {
		logger.ErrorContext(r.Context(), "hall creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("hall_id", hall.ID).InfoContext(r.Context(), "hall created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, hallResponse{Hall: toHallDTO(hall)})
}

func (h *HallHandler) Update(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req hallRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Update", "hall_id", hallID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode hall update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "hall_id", hallID)
	hall, err := h.halls.UpdateHall(r.Context(), application.UpdateHallParams{Principal: principal, HallID: hallID, Input: req.toInput()})
	if err != nil {
		logger.ErrorContext(r.Context(), "hall update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, hallResponse{Hall: toHallDTO(hall)})
}

func (h *HallHandler) Delete(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "hall_id", hallID)
	if err := h.halls.DeleteHall(r.Context(), principal, hallID); err != nil {
		logger.ErrorContext(r.Context(), "hall delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *HallHandler) Get(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	hall, err := h.halls.GetHall(r.Context(), principal, hallID)
	if err != nil {
		h.log(r.Context(), "Get", "hall_id", hallID).ErrorContext(r.Context(), "hall lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, hallResponse{Hall: toHallDTO(hall)})
}

func (h *HallHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List")
	halls, err := h.halls.ListHalls(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "hall list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(halls)).DebugContext(r.Context(), "halls listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listHallsResponse{Halls: toHallDTOs(halls)})
}

// Available lists halls free for the slot in the date, start and end query parameters.
func (h *HallHandler) Available(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, h != nil && h.availability != nil) {
		return
	}
	query := r.URL.Query()
	halls, err := h.availability.ListAvailableHalls(r.Context(), application.AvailableHallsParams{
		Date:  strings.TrimSpace(query.Get("date")),
		Start: strings.TrimSpace(query.Get("start")),
		End:   strings.TrimSpace(query.Get("end")),
	})
	if err != nil {
		h.log(r.Context(), "Available").ErrorContext(r.Context(), "available hall search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listHallsResponse{Halls: toHallDTOs(halls)})
}

func (h *HallHandler) AddAvailability(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "AddAvailability", "hall_id", hallID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode availability window", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddAvailability", "hall_id", hallID)
	window, err := h.halls.AddAvailability(r.Context(), application.AddAvailabilityParams{
		Principal: principal,
		HallID:    hallID,
		Input: application.AvailabilityInput{
			Kind:      strings.TrimSpace(req.Kind),
			DayOfWeek: req.DayOfWeek,
			Date:      strings.TrimSpace(req.Date),
			Start:     strings.TrimSpace(req.Start),
			End:       strings.TrimSpace(req.End),
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability window creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("window_id", window.ID).InfoContext(r.Context(), "availability window added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, windowResponse{Window: toWindowDTO(window)})
}

func (h *HallHandler) RemoveAvailability(w http.ResponseWriter, r *http.Request, hallID, windowID string) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "RemoveAvailability", "hall_id", hallID, "window_id", windowID)
	if err := h.halls.RemoveAvailability(r.Context(), principal, hallID, windowID); err != nil {
		logger.ErrorContext(r.Context(), "availability window removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "availability window removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *HallHandler) ListAvailability(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.halls != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	windows, err := h.halls.ListAvailability(r.Context(), principal, hallID)
	if err != nil {
		h.log(r.Context(), "ListAvailability", "hall_id", hallID).ErrorContext(r.Context(), "availability list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listWindowsResponse{Windows: toWindowDTOs(windows)})
}

// Check answers whether the hall is free for the queried slot.
func (h *HallHandler) Check(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.availability != nil) {
		return
	}
	query := r.URL.Query()
	result, err := h.availability.CheckHallConflict(r.Context(), application.CheckConflictParams{
		HallID:            hallID,
		Date:              strings.TrimSpace(query.Get("date")),
		Start:             strings.TrimSpace(query.Get("start")),
		End:               strings.TrimSpace(query.Get("end")),
		ExcludeTrainingID: strings.TrimSpace(query.Get("exclude")),
	})
	if err != nil {
		h.log(r.Context(), "Check", "hall_id", hallID).ErrorContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, checkResponse{
		Free:                result.Free,
		Reason:              result.Reason,
		ConflictKind:        string(result.Kind),
		ConflictingEntityID: result.ConflictingEntity,
	})
}

func (h *HallHandler) Schedule(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.availability != nil) {
		return
	}
	schedule, err := h.availability.HallDaySchedule(r.Context(), hallID, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		h.log(r.Context(), "Schedule", "hall_id", hallID).ErrorContext(r.Context(), "hall schedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entries := make([]scheduleEntryDTO, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		entries = append(entries, scheduleEntryDTO{
			Kind:   string(entry.Kind),
			ID:     entry.ID,
			Start:  entry.Start.String(),
			End:    entry.End.String(),
			Reason: entry.Reason,
			Title:  entry.Title,
			Status: string(entry.Status),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{
		HallID:  schedule.HallID,
		Date:    formatDate(schedule.Date),
		Closed:  schedule.Closed,
		Windows: toWindowDTOs(schedule.Windows),
		Entries: entries,
	})
}

func (h *HallHandler) Blocks(w http.ResponseWriter, r *http.Request, hallID string) {
	if !h.ready(w, h != nil && h.blocks != nil) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	blocks, err := h.blocks.ListBlocks(r.Context(), principal, hallID, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		h.log(r.Context(), "Blocks", "hall_id", hallID).ErrorContext(r.Context(), "block list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlocksResponse{Blocks: toBlockDTOs(blocks)})
}

type hallRequest struct {
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Capacity   int      `json:"capacity"`
	Facilities []string `json:"facilities"`
}

func (r hallRequest) toInput() application.HallInput {
	return application.HallInput{
		Name:       strings.TrimSpace(r.Name),
		Location:   strings.TrimSpace(r.Location),
		Capacity:   r.Capacity,
		Facilities: trimAll(r.Facilities),
	}
}

type availabilityRequest struct {
	Kind      string `json:"kind"`
	DayOfWeek *int   `json:"day_of_week"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type hallResponse struct {
	Hall hallDTO `json:"hall"`
}

type listHallsResponse struct {
	Halls []hallDTO `json:"halls"`
}

type windowResponse struct {
	Window windowDTO `json:"window"`
}

type listWindowsResponse struct {
	Windows []windowDTO `json:"windows"`
}

type listBlocksResponse struct {
	Blocks []blockDTO `json:"blocks"`
}

type checkResponse struct {
	Free                bool   `json:"free"`
	Reason              string `json:"reason,omitempty"`
	ConflictKind        string `json:"conflict_kind,omitempty"`
	ConflictingEntityID string `json:"conflicting_entity_id,omitempty"`
}

type scheduleEntryDTO struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

type scheduleResponse struct {
	HallID  string             `json:"hall_id"`
	Date    string             `json:"date"`
	Closed  bool               `json:"closed"`
	Windows []windowDTO        `json:"windows"`
	Entries []scheduleEntryDTO `json:"entries"`
}
