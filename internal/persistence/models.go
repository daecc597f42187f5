package persistence

import "time"

// Hall represents a bookable training hall.
type Hall struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AvailabilityWindow is a permitted usage period for a hall. Recurring windows
// carry DayOfWeek, specific windows carry Date.
type AvailabilityWindow struct {
	ID        string
	HallID    string
	Kind      string
	DayOfWeek *int
	Date      *time.Time
	StartTime string
	EndTime   string
	CreatedBy string
	CreatedAt time.Time
}

// Block is a hard exclusion of a hall for part of a day.
type Block struct {
	ID        string
	HallID    string
	Date      time.Time
	StartTime string
	EndTime   string
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}

// AttendanceSession is the session state stored alongside its training.
type AttendanceSession struct {
	Active    bool
	StartTime *time.Time
	EndTime   *time.Time
	Token     *string
	StartedBy *string
}

// Training is a training occurrence stored in persistence.
type Training struct {
	ID                   string
	Title                string
	Description          *string
	Program              *string
	HallID               string
	Date                 time.Time
	StartTime            string
	EndTime              string
	Capacity             int
	TrainerID            string
	CreatedBy            string
	RequiredInstitutions []string
	Status               string
	Session              AttendanceSession
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// BookingRequest links a training to an approval decision for a hall.
type BookingRequest struct {
	ID              string
	TrainingID      string
	HallID          string
	RequestedBy     string
	Priority        string
	Remarks         *string
	Status          string
	DecidedBy       *string
	DecidedAt       *time.Time
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Attendance records that a participant was present at a training.
type Attendance struct {
	ID            string
	TrainingID    string
	ParticipantID string
	Method        string
	MarkedBy      string
	MarkedAt      time.Time
}

// Nomination assigns a participant from an institution to a training.
type Nomination struct {
	ID              string
	TrainingID      string
	ParticipantID   string
	InstitutionID   string
	NominatedBy     string
	Status          string
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
