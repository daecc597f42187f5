// Package http provides HTTP handlers and middleware for the training hall API.
//
// Every API route requires the gateway identity headers X-User-ID and
// X-User-Role, plus an `Authorization: Bearer` gateway key when one is
// configured. The router exposes:
//   - GET/POST /halls, GET/PUT/DELETE /halls/{id}: the hall catalog.
//   - GET/POST /halls/{id}/availability, DELETE /halls/{id}/availability/{windowID}:
//     availability windows.
//   - GET /halls/{id}/check?date&start&end&exclude: answers
//     {"free","reason","conflict_kind","conflicting_entity_id"}.
//   - GET /halls/{id}/schedule?date, GET /halls/{id}/blocks?date and
//     GET /halls/available?date&start&end.
//   - POST /blocks, DELETE /blocks/{id}: hall blocks.
//   - GET/POST /trainings, GET/PUT/DELETE /trainings/{id},
//     POST /trainings/{id}/status: trainings and their lifecycle.
//   - GET /trainings/{id}/session and POST /trainings/{id}/session/{start,stop,validate}:
//     QR attendance sessions. A start outside the session window answers 400
//     SESSION_WINDOW_CLOSED.
//   - GET/POST /trainings/{id}/attendance, POST /attendance/scan: attendance
//     records. Scans are rate limited per participant and answer 429 RATE_LIMITED.
//   - GET /attendance/my and GET /attendance/participants/{id}: a participant's
//     attendance history.
//   - GET/POST /requests, GET /requests/{id}, POST /requests/{id}/approve,
//     POST /requests/{id}/reject: hall booking requests. A lost approval race
//     answers 409 CONFLICT with the conflicting entity.
//   - POST /nominations, POST /nominations/{id}/decision,
//     GET /trainings/{id}/nominations, GET /participants/busy?date&exclude.
//   - GET /healthz and GET /metrics, which need no identity.
//
// Errors share the body {"error_code","message","errors"}. Dates are
// YYYY-MM-DD and times of day HH:MM. Request/response DTOs live alongside
// their handlers.
package http
