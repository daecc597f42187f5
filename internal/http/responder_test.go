package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleServiceErrorStatusMapping(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation errors are bad requests",
			err:        &application.ValidationError{FieldErrors: map[string]string{"date": "date is required"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeValidation,
		},
		{
			name:       "missing capability is forbidden",
			err:        fmt.Errorf("approve: %w", application.ErrUnauthorized),
			wantStatus: http.StatusForbidden,
			wantCode:   codeForbidden,
		},
		{
			name:       "unknown entity is not found",
			err:        application.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   codeNotFound,
		},
		{
			name:       "commit contention is a conflict",
			err:        &application.ConflictError{Kind: application.ConflictTraining, EntityID: "training-9", Reason: "hall is already taken"},
			wantStatus: http.StatusConflict,
			wantCode:   codeConflict,
		},
		{
			name:       "wrong state is an invalid state conflict",
			err:        &application.StateError{Entity: "request", ID: "req-1", Current: "approved", Operation: "approve"},
			wantStatus: http.StatusConflict,
			wantCode:   codeInvalidState,
		},
		{
			name:       "session start outside its window",
			err:        &application.WindowError{Opens: now, Closes: now.Add(time.Hour), Now: now.Add(-time.Hour)},
			wantStatus: http.StatusBadRequest,
			wantCode:   codeWindowClosed,
		},
		{
			name:       "token failures stay generic",
			err:        application.ErrInvalidSession,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidSession,
		},
		{
			name:       "anything else is internal",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeInternal,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			newResponder(discardLogger()).handleServiceError(context.Background(), rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error_code"] != tc.wantCode {
				t.Fatalf("error_code = %v, want %s", body["error_code"], tc.wantCode)
			}
		})
	}
}

func TestConflictResponseNamesConflictingEntity(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newResponder(discardLogger()).handleServiceError(context.Background(), rec, &application.ConflictError{
		Kind:     application.ConflictBlock,
		EntityID: "block-1",
		Reason:   "hall is blocked",
	})

	var body conflictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ConflictingEntityID != "block-1" || body.ConflictKind != "block" || body.Reason != "hall is blocked" {
		t.Fatalf("unexpected conflict body: %+v", body)
	}
}

func TestValidationResponseCarriesFieldErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newResponder(discardLogger()).handleServiceError(context.Background(), rec, &application.ValidationError{
		FieldErrors: map[string]string{"start": "start must be before end"},
	})

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Errors["start"] != "start must be before end" {
		t.Fatalf("field errors = %v", body.Errors)
	}
}
