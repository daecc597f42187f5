package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// decodeBody decodes a JSON request body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatInstantPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.Format(time.RFC3339)
	return &value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return scheduler.FormatDate(t)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

type hallDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Capacity   int      `json:"capacity"`
	Facilities []string `json:"facilities"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func toHallDTO(hall application.Hall) hallDTO {
	return hallDTO{
		ID:         hall.ID,
		Name:       hall.Name,
		Location:   hall.Location,
		Capacity:   hall.Capacity,
		Facilities: orEmpty(hall.Facilities),
		CreatedAt:  formatInstant(hall.CreatedAt),
		UpdatedAt:  formatInstant(hall.UpdatedAt),
	}
}

func toHallDTOs(halls []application.Hall) []hallDTO {
	out := make([]hallDTO, 0, len(halls))
	for _, hall := range halls {
		out = append(out, toHallDTO(hall))
	}
	return out
}

type windowDTO struct {
	ID        string `json:"id"`
	HallID    string `json:"hall_id"`
	Kind      string `json:"kind"`
	DayOfWeek *int   `json:"day_of_week,omitempty"`
	Date      string `json:"date,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	CreatedBy string `json:"created_by"`
}

func toWindowDTO(window application.AvailabilityWindow) windowDTO {
	dto := windowDTO{
		ID:        window.ID,
		HallID:    window.HallID,
		Kind:      string(window.Kind),
		Start:     window.Start.String(),
		End:       window.End.String(),
		CreatedBy: window.CreatedBy,
	}
	if window.DayOfWeek != nil {
		day := int(*window.DayOfWeek)
		dto.DayOfWeek = &day
	}
	if window.Date != nil {
		dto.Date = formatDate(*window.Date)
	}
	return dto
}

func toWindowDTOs(windows []application.AvailabilityWindow) []windowDTO {
	out := make([]windowDTO, 0, len(windows))
	for _, window := range windows {
		out = append(out, toWindowDTO(window))
	}
	return out
}

type blockDTO struct {
	ID        string `json:"id"`
	HallID    string `json:"hall_id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Reason    string `json:"reason"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

func toBlockDTO(block application.Block) blockDTO {
	return blockDTO{
		ID:        block.ID,
		HallID:    block.HallID,
		Date:      formatDate(block.Date),
		Start:     block.Start.String(),
		End:       block.End.String(),
		Reason:    block.Reason,
		CreatedBy: block.CreatedBy,
		CreatedAt: formatInstant(block.CreatedAt),
	}
}

func toBlockDTOs(blocks []application.Block) []blockDTO {
	out := make([]blockDTO, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, toBlockDTO(block))
	}
	return out
}

type sessionDTO struct {
	TrainingID string  `json:"training_id"`
	State      string  `json:"state"`
	StartTime  *string `json:"start_time,omitempty"`
	EndTime    *string `json:"end_time,omitempty"`
	Token      string  `json:"token,omitempty"`
}

func toSessionDTO(status application.SessionStatus) sessionDTO {
	return sessionDTO{
		TrainingID: status.TrainingID,
		State:      string(status.State),
		StartTime:  formatInstantPtr(status.StartTime),
		EndTime:    formatInstantPtr(status.EndTime),
		Token:      status.Token,
	}
}

type trainingDTO struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description,omitempty"`
	Program              string   `json:"program,omitempty"`
	HallID               string   `json:"hall_id"`
	Date                 string   `json:"date"`
	Start                string   `json:"start"`
	End                  string   `json:"end"`
	Capacity             int      `json:"capacity"`
	TrainerID            string   `json:"trainer_id"`
	CreatedBy            string   `json:"created_by"`
	RequiredInstitutions []string `json:"required_institutions"`
	Status               string   `json:"status"`
	SessionActive        bool     `json:"session_active"`
	CreatedAt            string   `json:"created_at"`
	UpdatedAt            string   `json:"updated_at"`
}

func toTrainingDTO(training application.Training) trainingDTO {
	return trainingDTO{
		ID:                   training.ID,
		Title:                training.Title,
		Description:          training.Description,
		Program:              training.Program,
		HallID:               training.HallID,
		Date:                 formatDate(training.Date),
		Start:                training.Start.String(),
		End:                  training.End.String(),
		Capacity:             training.Capacity,
		TrainerID:            training.TrainerID,
		CreatedBy:            training.CreatedBy,
		RequiredInstitutions: orEmpty(training.RequiredInstitutions),
		Status:               string(training.Status),
		SessionActive:        training.Session.Active,
		CreatedAt:            formatInstant(training.CreatedAt),
		UpdatedAt:            formatInstant(training.UpdatedAt),
	}
}

func toTrainingDTOs(trainings []application.Training) []trainingDTO {
	out := make([]trainingDTO, 0, len(trainings))
	for _, training := range trainings {
		out = append(out, toTrainingDTO(training))
	}
	return out
}

type requestDTO struct {
	ID              string  `json:"id"`
	TrainingID      string  `json:"training_id"`
	HallID          string  `json:"hall_id"`
	RequestedBy     string  `json:"requested_by"`
	Priority        string  `json:"priority"`
	Remarks         string  `json:"remarks,omitempty"`
	Status          string  `json:"status"`
	DecidedBy       string  `json:"decided_by,omitempty"`
	DecidedAt       *string `json:"decided_at,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toRequestDTO(request application.BookingRequest) requestDTO {
	return requestDTO{
		ID:              request.ID,
		TrainingID:      request.TrainingID,
		HallID:          request.HallID,
		RequestedBy:     request.RequestedBy,
		Priority:        string(request.Priority),
		Remarks:         request.Remarks,
		Status:          string(request.Status),
		DecidedBy:       request.DecidedBy,
		DecidedAt:       formatInstantPtr(request.DecidedAt),
		RejectionReason: request.RejectionReason,
		CreatedAt:       formatInstant(request.CreatedAt),
		UpdatedAt:       formatInstant(request.UpdatedAt),
	}
}

func toRequestDTOs(requests []application.BookingRequest) []requestDTO {
	out := make([]requestDTO, 0, len(requests))
	for _, request := range requests {
		out = append(out, toRequestDTO(request))
	}
	return out
}

type attendanceDTO struct {
	ID            string `json:"id"`
	TrainingID    string `json:"training_id"`
	ParticipantID string `json:"participant_id"`
	Method        string `json:"method"`
	MarkedBy      string `json:"marked_by"`
	MarkedAt      string `json:"marked_at"`
}

func toAttendanceDTO(record application.Attendance) attendanceDTO {
	return attendanceDTO{
		ID:            record.ID,
		TrainingID:    record.TrainingID,
		ParticipantID: record.ParticipantID,
		Method:        string(record.Method),
		MarkedBy:      record.MarkedBy,
		MarkedAt:      formatInstant(record.MarkedAt),
	}
}

func toAttendanceDTOs(records []application.Attendance) []attendanceDTO {
	out := make([]attendanceDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toAttendanceDTO(record))
	}
	return out
}

type nominationDTO struct {
	ID              string `json:"id"`
	TrainingID      string `json:"training_id"`
	ParticipantID   string `json:"participant_id"`
	InstitutionID   string `json:"institution_id"`
	NominatedBy     string `json:"nominated_by"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toNominationDTO(nomination application.Nomination) nominationDTO {
	return nominationDTO{
		ID:              nomination.ID,
		TrainingID:      nomination.TrainingID,
		ParticipantID:   nomination.ParticipantID,
		InstitutionID:   nomination.InstitutionID,
		NominatedBy:     nomination.NominatedBy,
		Status:          string(nomination.Status),
		RejectionReason: nomination.RejectionReason,
		CreatedAt:       formatInstant(nomination.CreatedAt),
		UpdatedAt:       formatInstant(nomination.UpdatedAt),
	}
}

func toNominationDTOs(nominations []application.Nomination) []nominationDTO {
	out := make([]nominationDTO, 0, len(nominations))
	for _, nomination := range nominations {
		out = append(out, toNominationDTO(nomination))
	}
	return out
}
