package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/abeldaneesh/TMS-sub000/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidSession):
		return "invalid_session"
	}

	var (
		vErr *ValidationError
		cErr *ConflictError
		sErr *StateError
		wErr *WindowError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &cErr):
		return "conflict"
	case errors.As(err, &sErr):
		return "invalid_state"
	case errors.As(err, &wErr):
		return "window_closed"
	}

	return "unexpected"
}
