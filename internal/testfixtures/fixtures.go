package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

var (
	hallCounter     uint64
	trainingCounter uint64
)

var referenceTime = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures. It
// falls on a Monday morning.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDay returns ReferenceTime truncated to midnight.
func ReferenceDay() time.Time {
	return scheduler.Day(referenceTime)
}

// ----------------------------- Hall fixtures -----------------------------

// HallFixture represents a deterministic hall record that can be materialised
// for application or persistence tests.
type HallFixture struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HallOption configures the generated hall fixture.
type HallOption func(*HallFixture)

// NewHallFixture returns a deterministic hall fixture with optional overrides.
func NewHallFixture(opts ...HallOption) HallFixture {
	idx := atomic.AddUint64(&hallCounter, 1)
	id := fmt.Sprintf("hall-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := HallFixture{
		ID:         id,
		Name:       fmt.Sprintf("Hall %03d", idx),
		Location:   "Training Centre",
		Capacity:   int(20 + idx%10),
		Facilities: []string{"projector"},
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithHallID overrides the generated hall ID.
func WithHallID(id string) HallOption {
	return func(f *HallFixture) {
		f.ID = id
	}
}

func WithHallName(name string) HallOption {
	return func(f *HallFixture) {
		f.Name = name
	}
}

func WithHallCapacity(capacity int) HallOption {
	return func(f *HallFixture) {
		f.Capacity = capacity
	}
}

// Application returns the fixture as an application.Hall value.
func (f HallFixture) Application() application.Hall {
	return application.Hall{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: append([]string(nil), f.Facilities...),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Hall value.
func (f HallFixture) Persistence() persistence.Hall {
	return persistence.Hall{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: append([]string(nil), f.Facilities...),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Input returns the fixture as an application.HallInput.
func (f HallFixture) Input() application.HallInput {
	return application.HallInput{
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: append([]string(nil), f.Facilities...),
	}
}

// --------------------------- Training fixtures ---------------------------

// TrainingFixture represents a deterministic training. Start and End are
// "HH:mm" values on Date.
type TrainingFixture struct {
	ID        string
	Title     string
	HallID    string
	Date      time.Time
	Start     string
	End       string
	Capacity  int
	TrainerID string
	CreatedBy string
	Status    application.TrainingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrainingOption configures the generated training fixture.
type TrainingOption func(*TrainingFixture)

// NewTrainingFixture returns a draft training from 09:00 to 10:00 on the
// reference day. A hall must be supplied with WithTrainingHall unless the
// test never persists it.
func NewTrainingFixture(opts ...TrainingOption) TrainingFixture {
	idx := atomic.AddUint64(&trainingCounter, 1)
	fixture := TrainingFixture{
		ID:        fmt.Sprintf("training-%03d", idx),
		Title:     fmt.Sprintf("Training %03d", idx),
		Date:      ReferenceDay(),
		Start:     "09:00",
		End:       "10:00",
		Capacity:  20,
		TrainerID: "trainer-1",
		CreatedBy: "officer-1",
		Status:    application.TrainingDraft,
		CreatedAt: referenceTime.Add(-24 * time.Hour),
		UpdatedAt: referenceTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithTrainingID(id string) TrainingOption {
	return func(f *TrainingFixture) {
		f.ID = id
	}
}

func WithTrainingHall(hallID string) TrainingOption {
	return func(f *TrainingFixture) {
		f.HallID = hallID
	}
}

// WithTrainingSlot places the training on date between start and end.
func WithTrainingSlot(date time.Time, start, end string) TrainingOption {
	return func(f *TrainingFixture) {
		f.Date = scheduler.Day(date)
		f.Start = start
		f.End = end
	}
}

func WithTrainingStatus(status application.TrainingStatus) TrainingOption {
	return func(f *TrainingFixture) {
		f.Status = status
	}
}

func WithTrainer(trainerID string) TrainingOption {
	return func(f *TrainingFixture) {
		f.TrainerID = trainerID
	}
}

// Application returns the fixture as an application.Training value. It
// panics on malformed times of day.
func (f TrainingFixture) Application() application.Training {
	return application.Training{
		ID:        f.ID,
		Title:     f.Title,
		HallID:    f.HallID,
		Date:      f.Date,
		Start:     scheduler.MustTimeOfDay(f.Start),
		End:       scheduler.MustTimeOfDay(f.End),
		Capacity:  f.Capacity,
		TrainerID: f.TrainerID,
		CreatedBy: f.CreatedBy,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Training value.
func (f TrainingFixture) Persistence() persistence.Training {
	return persistence.Training{
		ID:        f.ID,
		Title:     f.Title,
		HallID:    f.HallID,
		Date:      f.Date,
		StartTime: f.Start,
		EndTime:   f.End,
		Capacity:  f.Capacity,
		TrainerID: f.TrainerID,
		CreatedBy: f.CreatedBy,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.TrainingInput.
func (f TrainingFixture) Input() application.TrainingInput {
	return application.TrainingInput{
		Title:     f.Title,
		HallID:    f.HallID,
		Date:      scheduler.FormatDate(f.Date),
		Start:     f.Start,
		End:       f.End,
		Capacity:  f.Capacity,
		TrainerID: f.TrainerID,
	}
}
