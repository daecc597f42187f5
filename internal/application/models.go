package application

import (
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// Role is the coarse capability group of a principal.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProgramOfficer Role = "program_officer"
	RoleTrainer        Role = "trainer"
	RoleParticipant    Role = "participant"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProgramOfficer, RoleTrainer, RoleParticipant:
		return true
	default:
		return false
	}
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal administers halls and approvals.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManageTrainings reports whether the principal may create trainings and
// nominate participants.
func (p Principal) CanManageTrainings() bool {
	return p.Role == RoleAdmin || p.Role == RoleProgramOfficer
}

// Hall is a physical training venue.
type Hall struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HallInput captures caller provided hall fields.
type HallInput struct {
	Name       string   `validate:"required,max=120"`
	Location   string   `validate:"required,max=200"`
	Capacity   int      `validate:"gt=0"`
	Facilities []string `validate:"dive,required"`
}

// CreateHallParams wraps the data required to create a hall.
type CreateHallParams struct {
	Principal Principal
	Input     HallInput
}

// UpdateHallParams wraps the data required to update a hall.
type UpdateHallParams struct {
	Principal Principal
	HallID    string
	Input     HallInput
}

// AvailabilityWindow permits use of a hall during part of a day.
type AvailabilityWindow struct {
	ID        string
	HallID    string
	Kind      scheduler.WindowKind
	DayOfWeek *time.Weekday
	Date      *time.Time
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	CreatedBy string
	CreatedAt time.Time
}

// Window converts the record for the availability resolver.
func (w AvailabilityWindow) Window() scheduler.Window {
	out := scheduler.Window{
		ID:       w.ID,
		Kind:     w.Kind,
		Interval: scheduler.Interval{Start: w.Start, End: w.End},
	}
	if w.DayOfWeek != nil {
		out.DayOfWeek = *w.DayOfWeek
	}
	if w.Date != nil {
		out.Date = *w.Date
	}
	return out
}

// AvailabilityInput captures a new availability window. DayOfWeek is used by
// recurring windows and Date by specific ones.
type AvailabilityInput struct {
	Kind      string `validate:"required,oneof=recurring specific"`
	DayOfWeek *int   `validate:"omitempty,min=0,max=6"`
	Date      string `validate:"omitempty,yyyymmdd"`
	Start     string `validate:"required,hhmm"`
	End       string `validate:"required,hhmm"`
}

// AddAvailabilityParams wraps the data required to add an availability window.
type AddAvailabilityParams struct {
	Principal Principal
	HallID    string
	Input     AvailabilityInput
}

// Block is a hard exclusion on a hall.
type Block struct {
	ID        string
	HallID    string
	Date      time.Time
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}

// BlockInput captures a new block.
type BlockInput struct {
	HallID string `validate:"required"`
	Date   string `validate:"required,yyyymmdd"`
	Start  string `validate:"required,hhmm"`
	End    string `validate:"required,hhmm"`
	Reason string `validate:"required,max=500"`
}

// CreateBlockParams wraps the data required to create a block.
type CreateBlockParams struct {
	Principal Principal
	Input     BlockInput
}

// TrainingStatus is the lifecycle state of a training.
type TrainingStatus string

const (
	TrainingDraft     TrainingStatus = "draft"
	TrainingScheduled TrainingStatus = "scheduled"
	TrainingOngoing   TrainingStatus = "ongoing"
	TrainingCompleted TrainingStatus = "completed"
	TrainingCancelled TrainingStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s TrainingStatus) Valid() bool {
	switch s {
	case TrainingDraft, TrainingScheduled, TrainingOngoing, TrainingCompleted, TrainingCancelled:
		return true
	default:
		return false
	}
}

// IsConfirmed reports whether a training in this status occupies its hall.
func (s TrainingStatus) IsConfirmed() bool {
	switch s {
	case TrainingScheduled, TrainingOngoing:
		return true
	case TrainingDraft, TrainingCompleted, TrainingCancelled:
		return false
	default:
		return false
	}
}

// IsFinal reports whether a training in this status can no longer change.
func (s TrainingStatus) IsFinal() bool {
	return s == TrainingCompleted || s == TrainingCancelled
}

// SessionState is the derived state of an attendance session.
type SessionState string

const (
	SessionIdle    SessionState = "idle"
	SessionActive  SessionState = "active"
	SessionExpired SessionState = "expired"
)

// AttendanceSession is the time-boxed QR attendance window of a training.
type AttendanceSession struct {
	Active    bool
	StartTime *time.Time
	EndTime   *time.Time
	Token     string
	StartedBy string
}

// State derives the session state at now.
func (s AttendanceSession) State(now time.Time) SessionState {
	switch {
	case !s.Active:
		return SessionIdle
	case s.EndTime != nil && !now.Before(*s.EndTime):
		return SessionExpired
	default:
		return SessionActive
	}
}

// Training is a scheduled learning event.
type Training struct {
	ID                   string
	Title                string
	Description          string
	Program              string
	HallID               string
	Date                 time.Time
	Start                scheduler.TimeOfDay
	End                  scheduler.TimeOfDay
	Capacity             int
	TrainerID            string
	CreatedBy            string
	RequiredInstitutions []string
	Status               TrainingStatus
	Session              AttendanceSession
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Interval returns the training's time of day range.
func (t Training) Interval() scheduler.Interval {
	return scheduler.Interval{Start: t.Start, End: t.End}
}

// canRunSession reports whether the principal may start or stop attendance.
func (t Training) canRunSession(p Principal) bool {
	return p.IsAdmin() || (p.UserID != "" && (p.UserID == t.TrainerID || p.UserID == t.CreatedBy))
}

// TrainingInput captures caller provided training fields.
type TrainingInput struct {
	Title                string   `validate:"required,max=200"`
	Description          string   `validate:"max=2000"`
	Program              string   `validate:"max=200"`
	HallID               string   `validate:"required"`
	Date                 string   `validate:"required,yyyymmdd"`
	Start                string   `validate:"required,hhmm"`
	End                  string   `validate:"required,hhmm"`
	Capacity             int      `validate:"gt=0"`
	TrainerID            string   `validate:"required"`
	RequiredInstitutions []string `validate:"dive,required"`
}

// CreateTrainingParams wraps the data required to create a draft training.
type CreateTrainingParams struct {
	Principal Principal
	Input     TrainingInput
}

// UpdateTrainingParams wraps the data required to edit a training.
type UpdateTrainingParams struct {
	Principal  Principal
	TrainingID string
	Input      TrainingInput
}

// TransitionStatusParams wraps a lifecycle move.
type TransitionStatusParams struct {
	Principal  Principal
	TrainingID string
	Status     TrainingStatus
}

// TrainingFilter narrows training listings.
type TrainingFilter struct {
	HallID    string
	TrainerID string
	Date      *time.Time
	Statuses  []TrainingStatus
}

// Priority orders pending requests.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is known.
func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityUrgent
}

// RequestStatus is the state of a booking request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Valid reports whether the status is known.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	default:
		return false
	}
}

// BookingRequest asks an admin to confirm a training in a hall.
type BookingRequest struct {
	ID              string
	TrainingID      string
	HallID          string
	RequestedBy     string
	Priority        Priority
	Remarks         string
	Status          RequestStatus
	DecidedBy       string
	DecidedAt       *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SubmitRequestParams wraps the data required to request a hall.
type SubmitRequestParams struct {
	Principal  Principal
	TrainingID string `validate:"required"`
	HallID     string
	Priority   Priority
	Remarks    string `validate:"max=1000"`
}

// DecisionParams wraps an approve or reject decision.
type DecisionParams struct {
	Principal Principal
	RequestID string
	Reason    string
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status     RequestStatus
	HallID     string
	TrainingID string
}

// ApprovalCommit describes the writes of an approval.
type ApprovalCommit struct {
	RequestID  string
	TrainingID string
	HallID     string
	DecidedBy  string
	DecidedAt  time.Time
}

// RejectionCommit describes the writes of a rejection.
type RejectionCommit struct {
	RequestID string
	DecidedBy string
	Reason    string
	DecidedAt time.Time
}

// AttendanceMethod records how attendance was taken.
type AttendanceMethod string

const (
	MethodQR     AttendanceMethod = "qr"
	MethodManual AttendanceMethod = "manual"
)

// Attendance is a participant's presence at a training.
type Attendance struct {
	ID            string
	TrainingID    string
	ParticipantID string
	Method        AttendanceMethod
	MarkedBy      string
	MarkedAt      time.Time
}

// AttendanceResult reports a mark and whether it created the record.
type AttendanceResult struct {
	Attendance Attendance
	Created    bool
}

// StartSessionParams wraps a session start.
type StartSessionParams struct {
	Principal       Principal
	TrainingID      string
	DurationMinutes int
	Now             time.Time
}

// StopSessionParams wraps a session stop.
type StopSessionParams struct {
	Principal  Principal
	TrainingID string
	Now        time.Time
}

// ValidateTokenParams wraps a token check.
type ValidateTokenParams struct {
	TrainingID string
	Token      string
	Now        time.Time
}

// MarkAttendanceParams wraps a QR attendance mark.
type MarkAttendanceParams struct {
	Principal     Principal
	TrainingID    string
	ParticipantID string
	Token         string
	Now           time.Time
}

// ScanParams wraps a raw QR scan. TrainingID is required when QRData holds a
// bare token.
type ScanParams struct {
	Principal  Principal
	QRData     string
	TrainingID string
	Now        time.Time
}

// ManualAttendanceParams wraps a manual attendance mark.
type ManualAttendanceParams struct {
	Principal     Principal
	TrainingID    string
	ParticipantID string
	Now           time.Time
}

// SessionStatus is the externally visible view of a session.
type SessionStatus struct {
	TrainingID string
	State      SessionState
	StartTime  *time.Time
	EndTime    *time.Time
	Token      string
}

// NominationStatus is the state of a nomination.
type NominationStatus string

const (
	NominationNominated NominationStatus = "nominated"
	NominationApproved  NominationStatus = "approved"
	NominationRejected  NominationStatus = "rejected"
	NominationAttended  NominationStatus = "attended"
)

// Valid reports whether the status is known.
func (s NominationStatus) Valid() bool {
	switch s {
	case NominationNominated, NominationApproved, NominationRejected, NominationAttended:
		return true
	default:
		return false
	}
}

// Occupies reports whether a nomination in this status keeps the participant busy.
func (s NominationStatus) Occupies() bool {
	switch s {
	case NominationNominated, NominationApproved, NominationAttended:
		return true
	case NominationRejected:
		return false
	default:
		return false
	}
}

// Nomination assigns a participant to a training.
type Nomination struct {
	ID              string
	TrainingID      string
	ParticipantID   string
	InstitutionID   string
	NominatedBy     string
	Status          NominationStatus
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NominateParams wraps a new nomination.
type NominateParams struct {
	Principal     Principal
	TrainingID    string `validate:"required"`
	ParticipantID string `validate:"required"`
	InstitutionID string `validate:"required"`
}

// DecideNominationParams wraps a nomination decision. Status is approved or rejected.
type DecideNominationParams struct {
	Principal    Principal
	NominationID string
	Status       NominationStatus
	Reason       string
}

// NominationFilter narrows nomination listings.
type NominationFilter struct {
	TrainingID    string
	TrainingIDs   []string
	ParticipantID string
	Statuses      []NominationStatus
}

// ConflictResult is the answer to "is this hall free".
type ConflictResult struct {
	Free              bool
	Kind              ConflictKind
	Reason            string
	ConflictingEntity string
}

// ScheduleEntryKind distinguishes entries of a hall day schedule.
type ScheduleEntryKind string

const (
	EntryBlock    ScheduleEntryKind = "block"
	EntryTraining ScheduleEntryKind = "training"
)

// ScheduleEntry is one occupied slot of a hall day.
type ScheduleEntry struct {
	Kind   ScheduleEntryKind
	ID     string
	Start  scheduler.TimeOfDay
	End    scheduler.TimeOfDay
	Reason string
	Title  string
	Status TrainingStatus
}

// HallDaySchedule describes a hall on one day.
type HallDaySchedule struct {
	HallID  string
	Date    time.Time
	Closed  bool
	Windows []AvailabilityWindow
	Entries []ScheduleEntry
}
