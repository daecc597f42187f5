package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

var (
	errBadRequestBody    = errors.New("request body is not valid JSON")
	errMissingIdentity   = errors.New("caller identity is required")
	errInvalidGatewayKey = errors.New("gateway key is missing or invalid")
	errRateLimited       = errors.New("too many attendance scans, slow down")
)

const (
	codeValidation     = "VALIDATION_FAILED"
	codeUnauthorized   = "UNAUTHENTICATED"
	codeForbidden      = "FORBIDDEN"
	codeNotFound       = "NOT_FOUND"
	codeConflict       = "CONFLICT"
	codeInvalidState   = "INVALID_STATE"
	codeWindowClosed   = "SESSION_WINDOW_CLOSED"
	codeInvalidSession = "INVALID_SESSION"
	codeRateLimited    = "RATE_LIMITED"
	codeBadRequest     = "BAD_REQUEST"
	codeInternal       = "INTERNAL"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError responds with the code's status and the error text as message.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, errors.New("unknown error"))
		return
	}

	var (
		vErr *application.ValidationError
		cErr *application.ConflictError
		sErr *application.StateError
		wErr *application.WindowError
	)
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: codeValidation,
			Message:   "request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: codeForbidden,
			Message:   "you are not allowed to perform this operation",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: codeNotFound, Message: "resource not found"})
	case errors.As(err, &cErr):
		r.writeJSON(ctx, w, http.StatusConflict, conflictResponse{
			ErrorCode:           codeConflict,
			Message:             cErr.Error(),
			ConflictKind:        string(cErr.Kind),
			ConflictingEntityID: cErr.EntityID,
			Reason:              cErr.Reason,
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: codeConflict, Message: "resource already exists"})
	case errors.As(err, &sErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: codeInvalidState, Message: sErr.Error()})
	case errors.As(err, &wErr):
		r.writeJSON(ctx, w, http.StatusBadRequest, sessionWindowResponse{
			ErrorCode: codeWindowClosed,
			Message:   wErr.Error(),
			Opens:     formatInstant(wErr.Opens),
			Closes:    formatInstant(wErr.Closes),
		})
	case errors.Is(err, application.ErrInvalidSession):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{ErrorCode: codeInvalidSession, Message: application.ErrInvalidSession.Error()})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: codeInternal, Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type conflictResponse struct {
	ErrorCode           string `json:"error_code"`
	Message             string `json:"message"`
	ConflictKind        string `json:"conflict_kind"`
	ConflictingEntityID string `json:"conflicting_entity_id,omitempty"`
	Reason              string `json:"reason"`
}

type sessionWindowResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Opens     string `json:"opens_at"`
	Closes    string `json:"closes_at"`
}
