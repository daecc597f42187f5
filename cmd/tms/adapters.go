package main

import (
	"context"
	"fmt"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// The adapters translate between the application model and the persistence
// records. Persistence errors pass through untouched so the services can map
// sentinels such as persistence.ErrStaleState.

type hallRepositoryAdapter struct {
	repo persistence.HallRepository
}

func (a hallRepositoryAdapter) CreateHall(ctx context.Context, hall application.Hall) error {
	return a.repo.CreateHall(ctx, toPersistenceHall(hall))
}

func (a hallRepositoryAdapter) UpdateHall(ctx context.Context, hall application.Hall) error {
	return a.repo.UpdateHall(ctx, toPersistenceHall(hall))
}

func (a hallRepositoryAdapter) GetHall(ctx context.Context, id string) (application.Hall, error) {
	stored, err := a.repo.GetHall(ctx, id)
	if err != nil {
		return application.Hall{}, err
	}
	return toApplicationHall(stored), nil
}

func (a hallRepositoryAdapter) ListHalls(ctx context.Context) ([]application.Hall, error) {
	stored, err := a.repo.ListHalls(ctx)
	if err != nil {
		return nil, err
	}
	halls := make([]application.Hall, 0, len(stored))
	for _, hall := range stored {
		halls = append(halls, toApplicationHall(hall))
	}
	return halls, nil
}

func (a hallRepositoryAdapter) DeleteHall(ctx context.Context, id string) error {
	return a.repo.DeleteHall(ctx, id)
}

func toPersistenceHall(hall application.Hall) persistence.Hall {
	return persistence.Hall{
		ID:         hall.ID,
		Name:       hall.Name,
		Location:   hall.Location,
		Capacity:   hall.Capacity,
		Facilities: hall.Facilities,
		CreatedAt:  hall.CreatedAt,
		UpdatedAt:  hall.UpdatedAt,
	}
}

func toApplicationHall(hall persistence.Hall) application.Hall {
	return application.Hall{
		ID:         hall.ID,
		Name:       hall.Name,
		Location:   hall.Location,
		Capacity:   hall.Capacity,
		Facilities: hall.Facilities,
		CreatedAt:  hall.CreatedAt,
		UpdatedAt:  hall.UpdatedAt,
	}
}

type availabilityRepositoryAdapter struct {
	repo persistence.AvailabilityRepository
}

func (a availabilityRepositoryAdapter) CreateWindow(ctx context.Context, window application.AvailabilityWindow) error {
	record := persistence.AvailabilityWindow{
		ID:        window.ID,
		HallID:    window.HallID,
		Kind:      string(window.Kind),
		Date:      window.Date,
		StartTime: window.Start.String(),
		EndTime:   window.End.String(),
		CreatedBy: window.CreatedBy,
		CreatedAt: window.CreatedAt,
	}
	if window.DayOfWeek != nil {
		day := int(*window.DayOfWeek)
		record.DayOfWeek = &day
	}
	return a.repo.CreateWindow(ctx, record)
}

func (a availabilityRepositoryAdapter) DeleteWindow(ctx context.Context, hallID, id string) error {
	return a.repo.DeleteWindow(ctx, hallID, id)
}

func (a availabilityRepositoryAdapter) ListWindows(ctx context.Context, hallID string) ([]application.AvailabilityWindow, error) {
	stored, err := a.repo.ListWindows(ctx, hallID)
	if err != nil {
		return nil, err
	}
	windows := make([]application.AvailabilityWindow, 0, len(stored))
	for _, record := range stored {
		start, end, err := parseSlot(record.StartTime, record.EndTime)
		if err != nil {
			return nil, fmt.Errorf("availability window %s: %w", record.ID, err)
		}
		window := application.AvailabilityWindow{
			ID:        record.ID,
			HallID:    record.HallID,
			Kind:      scheduler.WindowKind(record.Kind),
			Date:      record.Date,
			Start:     start,
			End:       end,
			CreatedBy: record.CreatedBy,
			CreatedAt: record.CreatedAt,
		}
		if record.DayOfWeek != nil {
			day := time.Weekday(*record.DayOfWeek)
			window.DayOfWeek = &day
		}
		windows = append(windows, window)
	}
	return windows, nil
}

type blockRepositoryAdapter struct {
	repo persistence.BlockRepository
}

func (a blockRepositoryAdapter) CreateBlock(ctx context.Context, block application.Block) error {
	return a.repo.CreateBlock(ctx, persistence.Block{
		ID:        block.ID,
		HallID:    block.HallID,
		Date:      block.Date,
		StartTime: block.Start.String(),
		EndTime:   block.End.String(),
		Reason:    block.Reason,
		CreatedBy: block.CreatedBy,
		CreatedAt: block.CreatedAt,
	})
}

func (a blockRepositoryAdapter) GetBlock(ctx context.Context, id string) (application.Block, error) {
	stored, err := a.repo.GetBlock(ctx, id)
	if err != nil {
		return application.Block{}, err
	}
	return toApplicationBlock(stored)
}

func (a blockRepositoryAdapter) DeleteBlock(ctx context.Context, id string) error {
	return a.repo.DeleteBlock(ctx, id)
}

func (a blockRepositoryAdapter) ListBlocks(ctx context.Context, hallID string, date *time.Time) ([]application.Block, error) {
	stored, err := a.repo.ListBlocks(ctx, persistence.BlockFilter{HallID: hallID, Date: date})
	if err != nil {
		return nil, err
	}
	blocks := make([]application.Block, 0, len(stored))
	for _, record := range stored {
		block, err := toApplicationBlock(record)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func toApplicationBlock(record persistence.Block) (application.Block, error) {
	start, end, err := parseSlot(record.StartTime, record.EndTime)
	if err != nil {
		return application.Block{}, fmt.Errorf("block %s: %w", record.ID, err)
	}
	return application.Block{
		ID:        record.ID,
		HallID:    record.HallID,
		Date:      record.Date,
		Start:     start,
		End:       end,
		Reason:    record.Reason,
		CreatedBy: record.CreatedBy,
		CreatedAt: record.CreatedAt,
	}, nil
}

type trainingRepositoryAdapter struct {
	repo persistence.TrainingRepository
}

func (a trainingRepositoryAdapter) CreateTraining(ctx context.Context, training application.Training) error {
	return a.repo.CreateTraining(ctx, toPersistenceTraining(training))
}

func (a trainingRepositoryAdapter) UpdateTraining(ctx context.Context, training application.Training) error {
	return a.repo.UpdateTraining(ctx, toPersistenceTraining(training))
}

func (a trainingRepositoryAdapter) GetTraining(ctx context.Context, id string) (application.Training, error) {
	stored, err := a.repo.GetTraining(ctx, id)
	if err != nil {
		return application.Training{}, err
	}
	return toApplicationTraining(stored)
}

func (a trainingRepositoryAdapter) ListTrainings(ctx context.Context, filter application.TrainingFilter) ([]application.Training, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	stored, err := a.repo.ListTrainings(ctx, persistence.TrainingFilter{
		HallID:    filter.HallID,
		TrainerID: filter.TrainerID,
		Date:      filter.Date,
		Statuses:  statuses,
	})
	if err != nil {
		return nil, err
	}
	trainings := make([]application.Training, 0, len(stored))
	for _, record := range stored {
		training, err := toApplicationTraining(record)
		if err != nil {
			return nil, err
		}
		trainings = append(trainings, training)
	}
	return trainings, nil
}

func (a trainingRepositoryAdapter) DeleteTraining(ctx context.Context, id string) error {
	return a.repo.DeleteTraining(ctx, id)
}

func (a trainingRepositoryAdapter) SaveSession(ctx context.Context, trainingID string, session application.AttendanceSession, updatedAt time.Time) error {
	return a.repo.SaveSession(ctx, trainingID, toPersistenceSession(session), updatedAt)
}

func (a trainingRepositoryAdapter) UpdateTrainingStatus(ctx context.Context, id string, from, to application.TrainingStatus, updatedAt time.Time) error {
	return a.repo.UpdateTrainingStatus(ctx, id, string(from), string(to), updatedAt)
}

func toPersistenceSession(session application.AttendanceSession) persistence.AttendanceSession {
	return persistence.AttendanceSession{
		Active:    session.Active,
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
		Token:     optional(session.Token),
		StartedBy: optional(session.StartedBy),
	}
}

func toPersistenceTraining(training application.Training) persistence.Training {
	return persistence.Training{
		ID:                   training.ID,
		Title:                training.Title,
		Description:          optional(training.Description),
		Program:              optional(training.Program),
		HallID:               training.HallID,
		Date:                 training.Date,
		StartTime:            training.Start.String(),
		EndTime:              training.End.String(),
		Capacity:             training.Capacity,
		TrainerID:            training.TrainerID,
		CreatedBy:            training.CreatedBy,
		RequiredInstitutions: training.RequiredInstitutions,
		Status:               string(training.Status),
		Session:              toPersistenceSession(training.Session),
		CreatedAt:            training.CreatedAt,
		UpdatedAt:            training.UpdatedAt,
	}
}

func toApplicationTraining(record persistence.Training) (application.Training, error) {
	start, end, err := parseSlot(record.StartTime, record.EndTime)
	if err != nil {
		return application.Training{}, fmt.Errorf("training %s: %w", record.ID, err)
	}
	return application.Training{
		ID:                   record.ID,
		Title:                record.Title,
		Description:          deref(record.Description),
		Program:              deref(record.Program),
		HallID:               record.HallID,
		Date:                 record.Date,
		Start:                start,
		End:                  end,
		Capacity:             record.Capacity,
		TrainerID:            record.TrainerID,
		CreatedBy:            record.CreatedBy,
		RequiredInstitutions: record.RequiredInstitutions,
		Status:               application.TrainingStatus(record.Status),
		Session: application.AttendanceSession{
			Active:    record.Session.Active,
			StartTime: record.Session.StartTime,
			EndTime:   record.Session.EndTime,
			Token:     deref(record.Session.Token),
			StartedBy: deref(record.Session.StartedBy),
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRequestRepository
}

func (a bookingRepositoryAdapter) CreateRequest(ctx context.Context, request application.BookingRequest) error {
	return a.repo.CreateRequest(ctx, persistence.BookingRequest{
		ID:              request.ID,
		TrainingID:      request.TrainingID,
		HallID:          request.HallID,
		RequestedBy:     request.RequestedBy,
		Priority:        string(request.Priority),
		Remarks:         optional(request.Remarks),
		Status:          string(request.Status),
		DecidedBy:       optional(request.DecidedBy),
		DecidedAt:       request.DecidedAt,
		RejectionReason: optional(request.RejectionReason),
		CreatedAt:       request.CreatedAt,
		UpdatedAt:       request.UpdatedAt,
	})
}

func (a bookingRepositoryAdapter) GetRequest(ctx context.Context, id string) (application.BookingRequest, error) {
	stored, err := a.repo.GetRequest(ctx, id)
	if err != nil {
		return application.BookingRequest{}, err
	}
	return toApplicationRequest(stored), nil
}

func (a bookingRepositoryAdapter) ListRequests(ctx context.Context, filter application.RequestFilter) ([]application.BookingRequest, error) {
	stored, err := a.repo.ListRequests(ctx, persistence.RequestFilter{
		Status:     string(filter.Status),
		HallID:     filter.HallID,
		TrainingID: filter.TrainingID,
	})
	if err != nil {
		return nil, err
	}
	requests := make([]application.BookingRequest, 0, len(stored))
	for _, record := range stored {
		requests = append(requests, toApplicationRequest(record))
	}
	return requests, nil
}

func (a bookingRepositoryAdapter) CommitApproval(ctx context.Context, commit application.ApprovalCommit) error {
	return a.repo.CommitApproval(ctx, persistence.ApprovalCommit{
		RequestID:  commit.RequestID,
		TrainingID: commit.TrainingID,
		HallID:     commit.HallID,
		DecidedBy:  commit.DecidedBy,
		DecidedAt:  commit.DecidedAt,
	})
}

func (a bookingRepositoryAdapter) CommitRejection(ctx context.Context, commit application.RejectionCommit) error {
	return a.repo.CommitRejection(ctx, persistence.RejectionCommit{
		RequestID: commit.RequestID,
		DecidedBy: commit.DecidedBy,
		Reason:    optional(commit.Reason),
		DecidedAt: commit.DecidedAt,
	})
}

func toApplicationRequest(record persistence.BookingRequest) application.BookingRequest {
	return application.BookingRequest{
		ID:              record.ID,
		TrainingID:      record.TrainingID,
		HallID:          record.HallID,
		RequestedBy:     record.RequestedBy,
		Priority:        application.Priority(record.Priority),
		Remarks:         deref(record.Remarks),
		Status:          application.RequestStatus(record.Status),
		DecidedBy:       deref(record.DecidedBy),
		DecidedAt:       record.DecidedAt,
		RejectionReason: deref(record.RejectionReason),
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

type attendanceRepositoryAdapter struct {
	repo persistence.AttendanceRepository
}

func (a attendanceRepositoryAdapter) RecordAttendance(ctx context.Context, record application.Attendance) (application.Attendance, bool, error) {
	stored, created, err := a.repo.RecordAttendance(ctx, persistence.Attendance{
		ID:            record.ID,
		TrainingID:    record.TrainingID,
		ParticipantID: record.ParticipantID,
		Method:        string(record.Method),
		MarkedBy:      record.MarkedBy,
		MarkedAt:      record.MarkedAt,
	})
	if err != nil {
		return application.Attendance{}, false, err
	}
	return toApplicationAttendance(stored), created, nil
}

func (a attendanceRepositoryAdapter) ListAttendance(ctx context.Context, trainingID string) ([]application.Attendance, error) {
	return toApplicationAttendanceList(a.repo.ListAttendance(ctx, trainingID))
}

func (a attendanceRepositoryAdapter) ListAttendanceByParticipant(ctx context.Context, participantID string) ([]application.Attendance, error) {
	return toApplicationAttendanceList(a.repo.ListAttendanceByParticipant(ctx, participantID))
}

func toApplicationAttendanceList(stored []persistence.Attendance, err error) ([]application.Attendance, error) {
	if err != nil {
		return nil, err
	}
	records := make([]application.Attendance, 0, len(stored))
	for _, record := range stored {
		records = append(records, toApplicationAttendance(record))
	}
	return records, nil
}

func toApplicationAttendance(record persistence.Attendance) application.Attendance {
	return application.Attendance{
		ID:            record.ID,
		TrainingID:    record.TrainingID,
		ParticipantID: record.ParticipantID,
		Method:        application.AttendanceMethod(record.Method),
		MarkedBy:      record.MarkedBy,
		MarkedAt:      record.MarkedAt,
	}
}

type nominationRepositoryAdapter struct {
	repo persistence.NominationRepository
}

func (a nominationRepositoryAdapter) CreateNomination(ctx context.Context, nomination application.Nomination) error {
	return a.repo.CreateNomination(ctx, persistence.Nomination{
		ID:              nomination.ID,
		TrainingID:      nomination.TrainingID,
		ParticipantID:   nomination.ParticipantID,
		InstitutionID:   nomination.InstitutionID,
		NominatedBy:     nomination.NominatedBy,
		Status:          string(nomination.Status),
		RejectionReason: optional(nomination.RejectionReason),
		CreatedAt:       nomination.CreatedAt,
		UpdatedAt:       nomination.UpdatedAt,
	})
}

func (a nominationRepositoryAdapter) GetNomination(ctx context.Context, id string) (application.Nomination, error) {
	stored, err := a.repo.GetNomination(ctx, id)
	if err != nil {
		return application.Nomination{}, err
	}
	return toApplicationNomination(stored), nil
}

func (a nominationRepositoryAdapter) ListNominations(ctx context.Context, filter application.NominationFilter) ([]application.Nomination, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	stored, err := a.repo.ListNominations(ctx, persistence.NominationFilter{
		TrainingID:    filter.TrainingID,
		TrainingIDs:   filter.TrainingIDs,
		ParticipantID: filter.ParticipantID,
		Statuses:      statuses,
	})
	if err != nil {
		return nil, err
	}
	nominations := make([]application.Nomination, 0, len(stored))
	for _, record := range stored {
		nominations = append(nominations, toApplicationNomination(record))
	}
	return nominations, nil
}

func (a nominationRepositoryAdapter) UpdateNominationStatus(ctx context.Context, id string, from, to application.NominationStatus, reason string, updatedAt time.Time) error {
	return a.repo.UpdateNominationStatus(ctx, id, string(from), string(to), optional(reason), updatedAt)
}

func toApplicationNomination(record persistence.Nomination) application.Nomination {
	return application.Nomination{
		ID:              record.ID,
		TrainingID:      record.TrainingID,
		ParticipantID:   record.ParticipantID,
		InstitutionID:   record.InstitutionID,
		NominatedBy:     record.NominatedBy,
		Status:          application.NominationStatus(record.Status),
		RejectionReason: deref(record.RejectionReason),
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func parseSlot(start, end string) (scheduler.TimeOfDay, scheduler.TimeOfDay, error) {
	from, err := scheduler.ParseTimeOfDay(start)
	if err != nil {
		return 0, 0, err
	}
	to, err := scheduler.ParseTimeOfDay(end)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
