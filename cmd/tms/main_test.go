package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abeldaneesh/TMS-sub000/internal/config"
	"github.com/abeldaneesh/TMS-sub000/internal/testfixtures"
)

type caller struct {
	id   string
	role string
}

var (
	admin       = caller{id: "admin-1", role: "admin"}
	officer     = caller{id: "officer-1", role: "program_officer"}
	trainer     = caller{id: "trainer-1", role: "trainer"}
	participant = caller{id: "participant-1", role: "participant"}
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	var cfg config.Config
	cfg.HTTPPort = 0
	cfg.Location = time.UTC
	cfg.SQLite.DSN = filepath.Join(t.TempDir(), "tms.db")
	cfg.SQLite.BusyTimeout = 5 * time.Second
	cfg.Availability.OpenWhenUnset = true
	cfg.Attendance.LeadTime = 30 * time.Minute
	cfg.Attendance.DefaultDurationMinutes = 15
	cfg.Attendance.MaxDurationMinutes = 240
	cfg.Attendance.ScanRatePerSecond = 1
	cfg.Attendance.ScanBurst = 3
	cfg.Lock.TTL = 10 * time.Second
	cfg.Lock.Wait = time.Second
	cfg.Events.Channel = "tms.events"
	return cfg
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func (c apiClient) call(who caller, method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-ID", who.id)
	req.Header.Set("X-User-Role", who.role)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func field(t *testing.T, body map[string]any, object, key string) string {
	t.Helper()
	inner, ok := body[object].(map[string]any)
	require.Truef(t, ok, "response has no %q object: %v", object, body)
	value, _ := inner[key].(string)
	return value
}

func newTestApp(t *testing.T, clock *testfixtures.Clock) (*App, apiClient) {
	t.Helper()
	app, err := newApp(context.Background(), testConfig(t), appOptions{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         clock.NowFunc(),
		IDGenerator: testfixtures.NewIDGenerator("id").NextFunc(),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, apiClient{t: t, handler: app.Handler}
}

func TestBlockedApprovalSucceedsOnceBlockIsRemoved(t *testing.T) {
	clock := testfixtures.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	_, api := newTestApp(t, clock)

	status, body := api.call(admin, http.MethodPost, "/halls", map[string]any{
		"name": "Main Hall", "location": "Block A", "capacity": 40, "facilities": []string{"projector"},
	})
	require.Equal(t, http.StatusCreated, status, body)
	hallID := field(t, body, "hall", "id")

	status, body = api.call(admin, http.MethodPost, "/blocks", map[string]any{
		"hall_id": hallID, "date": "2025-03-03", "start": "10:00", "end": "12:00", "reason": "maintenance",
	})
	require.Equal(t, http.StatusCreated, status, body)
	blockID := field(t, body, "block", "id")

	status, body = api.call(officer, http.MethodPost, "/trainings", map[string]any{
		"title": "First aid", "hall_id": hallID, "date": "2025-03-03", "start": "11:00", "end": "13:00",
		"capacity": 20, "trainer_id": trainer.id,
	})
	require.Equal(t, http.StatusCreated, status, body)
	trainingID := field(t, body, "training", "id")
	assert.Equal(t, "draft", field(t, body, "training", "status"))

	status, body = api.call(officer, http.MethodPost, "/requests", map[string]any{"training_id": trainingID})
	require.Equal(t, http.StatusCreated, status, body)
	requestID := field(t, body, "request", "id")

	status, body = api.call(officer, http.MethodGet, "/halls/"+hallID+"/check?date=2025-03-03&start=11:00&end=13:00", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["free"])
	assert.Equal(t, blockID, body["conflicting_entity_id"])

	status, body = api.call(admin, http.MethodPost, "/requests/"+requestID+"/approve", nil)
	require.Equal(t, http.StatusConflict, status, body)
	assert.Equal(t, "CONFLICT", body["error_code"])
	assert.Equal(t, blockID, body["conflicting_entity_id"])

	status, _ = api.call(admin, http.MethodDelete, "/blocks/"+blockID, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = api.call(admin, http.MethodPost, "/requests/"+requestID+"/approve", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "approved", body["status"])

	status, body = api.call(officer, http.MethodGet, "/trainings/"+trainingID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "scheduled", field(t, body, "training", "status"))

	status, body = api.call(admin, http.MethodPost, "/requests/"+requestID+"/approve", nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", body["error_code"])
}

func TestAttendanceSessionEndToEnd(t *testing.T) {
	clock := testfixtures.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	_, api := newTestApp(t, clock)

	_, body := api.call(admin, http.MethodPost, "/halls", map[string]any{"name": "Annex", "location": "Block B", "capacity": 25})
	hallID := field(t, body, "hall", "id")
	_, body = api.call(officer, http.MethodPost, "/trainings", map[string]any{
		"title": "Hygiene", "hall_id": hallID, "date": "2025-03-03", "start": "11:00", "end": "12:00",
		"capacity": 20, "trainer_id": trainer.id,
	})
	trainingID := field(t, body, "training", "id")
	_, body = api.call(officer, http.MethodPost, "/requests", map[string]any{"training_id": trainingID, "priority": "urgent"})
	requestID := field(t, body, "request", "id")
	status, _ := api.call(admin, http.MethodPost, "/requests/"+requestID+"/approve", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = api.call(officer, http.MethodPost, "/nominations", map[string]any{
		"training_id": trainingID, "participant_id": participant.id, "institution_id": "inst-1",
	})
	require.Equal(t, http.StatusCreated, status, body)

	clock.SetAt("2025-03-03", "10:29")
	status, body = api.call(trainer, http.MethodPost, "/trainings/"+trainingID+"/session/start", nil)
	require.Equal(t, http.StatusBadRequest, status, body)
	assert.Equal(t, "SESSION_WINDOW_CLOSED", body["error_code"])

	clock.SetAt("2025-03-03", "10:30")
	status, body = api.call(trainer, http.MethodPost, "/trainings/"+trainingID+"/session/start", map[string]any{"duration_minutes": 15})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "2025-03-03T10:45:00Z", body["end_time"])

	status, body = api.call(participant, http.MethodGet, "/trainings/"+trainingID+"/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", body["state"])
	assert.Nil(t, body["token"], "participants never see the token")

	scan := map[string]any{"qr_data": `{"trainingId":"` + trainingID + `","token":"` + token + `"}`}
	status, body = api.call(participant, http.MethodPost, "/attendance/scan", scan)
	require.Equal(t, http.StatusCreated, status, body)
	status, _ = api.call(participant, http.MethodPost, "/attendance/scan", scan)
	require.Equal(t, http.StatusOK, status, "second scan is idempotent")

	status, body = api.call(officer, http.MethodGet, "/trainings/"+trainingID+"/attendance", nil)
	require.Equal(t, http.StatusOK, status)
	records, _ := body["attendance"].([]any)
	assert.Len(t, records, 1)

	status, body = api.call(trainer, http.MethodPost, "/trainings/"+trainingID+"/session/validate", map[string]any{"token": token})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	clock.Advance(16 * time.Minute)
	status, body = api.call(trainer, http.MethodPost, "/trainings/"+trainingID+"/session/validate", map[string]any{"token": token})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"], "token expires with the session")
}

func TestHealthAndMetricsNeedNoIdentity(t *testing.T) {
	clock := testfixtures.NewClock(time.Time{})
	app, _ := newTestApp(t, clock)

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/halls", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
