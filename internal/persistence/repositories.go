package persistence

import (
	"context"
	"time"
)

// HallRepository exposes CRUD operations for halls.
type HallRepository interface {
	CreateHall(ctx context.Context, hall Hall) error
	UpdateHall(ctx context.Context, hall Hall) error
	GetHall(ctx context.Context, id string) (Hall, error)
	ListHalls(ctx context.Context) ([]Hall, error)
	DeleteHall(ctx context.Context, id string) error
}

// AvailabilityRepository stores hall availability windows.
type AvailabilityRepository interface {
	CreateWindow(ctx context.Context, window AvailabilityWindow) error
	DeleteWindow(ctx context.Context, hallID, id string) error
	ListWindows(ctx context.Context, hallID string) ([]AvailabilityWindow, error)
}

// BlockFilter narrows block queries. A nil Date lists every day.
type BlockFilter struct {
	HallID string
	Date   *time.Time
}

// BlockRepository stores hall blocks.
type BlockRepository interface {
	CreateBlock(ctx context.Context, block Block) error
	GetBlock(ctx context.Context, id string) (Block, error)
	DeleteBlock(ctx context.Context, id string) error
	ListBlocks(ctx context.Context, filter BlockFilter) ([]Block, error)
}

// TrainingFilter narrows training queries. Empty fields are ignored.
type TrainingFilter struct {
	HallID    string
	TrainerID string
	Date      *time.Time
	Statuses  []string
}

// TrainingRepository stores trainings and their embedded attendance session.
type TrainingRepository interface {
	CreateTraining(ctx context.Context, training Training) error
	UpdateTraining(ctx context.Context, training Training) error
	GetTraining(ctx context.Context, id string) (Training, error)
	ListTrainings(ctx context.Context, filter TrainingFilter) ([]Training, error)
	// DeleteTraining removes the training together with its requests,
	// nominations, and attendance records.
	DeleteTraining(ctx context.Context, id string) error
	SaveSession(ctx context.Context, trainingID string, session AttendanceSession, updatedAt time.Time) error
	// UpdateTrainingStatus moves a training from one status to another and
	// returns ErrStaleState when it is no longer in the expected status.
	UpdateTrainingStatus(ctx context.Context, id, from, to string, updatedAt time.Time) error
}

// RequestFilter narrows booking request queries.
type RequestFilter struct {
	Status     string
	HallID     string
	TrainingID string
}

// ApprovalCommit describes the writes performed when a request is approved.
type ApprovalCommit struct {
	RequestID  string
	TrainingID string
	HallID     string
	DecidedBy  string
	DecidedAt  time.Time
}

// RejectionCommit describes the writes performed when a request is rejected.
type RejectionCommit struct {
	RequestID string
	DecidedBy string
	Reason    *string
	DecidedAt time.Time
}

// BookingRequestRepository stores hall booking requests.
type BookingRequestRepository interface {
	CreateRequest(ctx context.Context, request BookingRequest) error
	GetRequest(ctx context.Context, id string) (BookingRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]BookingRequest, error)
	// CommitApproval marks the request approved and its training scheduled in
	// one transaction. Both rows must still be pending and draft.
	CommitApproval(ctx context.Context, commit ApprovalCommit) error
	CommitRejection(ctx context.Context, commit RejectionCommit) error
}

// AttendanceRepository records attendance.
type AttendanceRepository interface {
	// RecordAttendance inserts the record unless one already exists for the
	// training and participant, in which case the stored record is returned
	// with created=false.
	RecordAttendance(ctx context.Context, attendance Attendance) (stored Attendance, created bool, err error)
	ListAttendance(ctx context.Context, trainingID string) ([]Attendance, error)
	ListAttendanceByParticipant(ctx context.Context, participantID string) ([]Attendance, error)
}

// NominationFilter narrows nomination queries.
type NominationFilter struct {
	TrainingID    string
	TrainingIDs   []string
	ParticipantID string
	Statuses      []string
}

// NominationRepository stores nominations.
type NominationRepository interface {
	CreateNomination(ctx context.Context, nomination Nomination) error
	GetNomination(ctx context.Context, id string) (Nomination, error)
	ListNominations(ctx context.Context, filter NominationFilter) ([]Nomination, error)
	UpdateNominationStatus(ctx context.Context, id, from, to string, reason *string, updatedAt time.Time) error
}
