package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

type BlockHandler struct {
	service   blockService
	responder responder
	logger    *slog.Logger
}

func NewBlockHandler(service blockService, logger *slog.Logger) *BlockHandler {
	base := defaultLogger(logger)
	return &BlockHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BlockHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BlockHandler", operation, attrs...)
}

func (h *BlockHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req blockRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode block request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "hall_id", req.HallID)
	block, err := h.service.CreateBlock(r.Context(), application.CreateBlockParams{
		Principal: principal,
		Input: application.BlockInput{
			HallID: strings.TrimSpace(req.HallID),
			Date:   strings.TrimSpace(req.Date),
			Start:  strings.TrimSpace(req.Start),
			End:    strings.TrimSpace(req.End),
			Reason: strings.TrimSpace(req.Reason),
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "block creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("block_id", block.ID).InfoContext(r.Context(), "block created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, blockResponse{Block: toBlockDTO(block)})
}

func (h *BlockHandler) Delete(w http.ResponseWriter, r *http.Request, blockID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "block_id", blockID)
	if err := h.service.DeleteBlock(r.Context(), principal, blockID); err != nil {
		logger.ErrorContext(r.Context(), "block delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "block deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type blockRequest struct {
	HallID string `json:"hall_id"`
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

type blockResponse struct {
	Block blockDTO `json:"block"`
}
