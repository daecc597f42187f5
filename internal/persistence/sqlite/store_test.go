package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence/sqlite/migration"
)

var testNow = time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "tms.db")
	store, err := Open(context.Background(), migration.DefaultSQLiteConfig(dsn), nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func seedHall(t *testing.T, store *Store, id string) persistence.Hall {
	t.Helper()
	hall := persistence.Hall{
		ID:         id,
		Name:       "Hall " + id,
		Location:   "Block A",
		Capacity:   40,
		Facilities: []string{"projector"},
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
	if err := store.Halls.CreateHall(context.Background(), hall); err != nil {
		t.Fatalf("CreateHall failed: %v", err)
	}
	return hall
}

func seedTraining(t *testing.T, store *Store, id, hallID, start, end string) persistence.Training {
	t.Helper()
	training := persistence.Training{
		ID:                   id,
		Title:                "Training " + id,
		HallID:               hallID,
		Date:                 time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		StartTime:            start,
		EndTime:              end,
		Capacity:             20,
		TrainerID:            "trainer-1",
		CreatedBy:            "officer-1",
		RequiredInstitutions: []string{"inst-1"},
		Status:               "draft",
		CreatedAt:            testNow,
		UpdatedAt:            testNow,
	}
	if err := store.Trainings.CreateTraining(context.Background(), training); err != nil {
		t.Fatalf("CreateTraining failed: %v", err)
	}
	return training
}

func seedRequest(t *testing.T, store *Store, id, trainingID, hallID string) persistence.BookingRequest {
	t.Helper()
	request := persistence.BookingRequest{
		ID:          id,
		TrainingID:  trainingID,
		HallID:      hallID,
		RequestedBy: "officer-1",
		Priority:    "normal",
		Status:      "pending",
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	if err := store.Requests.CreateRequest(context.Background(), request); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	return request
}

func approve(store *Store, requestID, trainingID, hallID string) error {
	return store.Requests.CommitApproval(context.Background(), persistence.ApprovalCommit{
		RequestID:  requestID,
		TrainingID: trainingID,
		HallID:     hallID,
		DecidedBy:  "admin-1",
		DecidedAt:  testNow.Add(time.Hour),
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestHallRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	hall := seedHall(t, store, "hall-1")

	fetched, err := store.Halls.GetHall(ctx, hall.ID)
	if err != nil {
		t.Fatalf("GetHall failed: %v", err)
	}
	if fetched.Name != hall.Name || len(fetched.Facilities) != 1 || fetched.Facilities[0] != "projector" {
		t.Fatalf("unexpected hall: %#v", fetched)
	}

	duplicate := hall
	duplicate.ID = "hall-2"
	if err := store.Halls.CreateHall(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for duplicate name, got %v", err)
	}

	hall.Capacity = 60
	hall.UpdatedAt = testNow.Add(time.Minute)
	if err := store.Halls.UpdateHall(ctx, hall); err != nil {
		t.Fatalf("UpdateHall failed: %v", err)
	}

	seedTraining(t, store, "training-1", hall.ID, "09:00", "10:00")
	if err := store.Halls.DeleteHall(ctx, hall.ID); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation while trainings reference the hall, got %v", err)
	}

	if _, err := store.Halls.GetHall(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAvailabilityAndBlocks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")

	monday := 1
	window := persistence.AvailabilityWindow{
		ID:        "window-1",
		HallID:    "hall-1",
		Kind:      "recurring",
		DayOfWeek: &monday,
		StartTime: "09:00",
		EndTime:   "17:00",
		CreatedBy: "admin-1",
		CreatedAt: testNow,
	}
	if err := store.Availability.CreateWindow(ctx, window); err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}
	broken := window
	broken.ID = "window-2"
	broken.DayOfWeek = nil
	if err := store.Availability.CreateWindow(ctx, broken); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for recurring window without day, got %v", err)
	}

	windows, err := store.Availability.ListWindows(ctx, "hall-1")
	if err != nil {
		t.Fatalf("ListWindows failed: %v", err)
	}
	if len(windows) != 1 || windows[0].DayOfWeek == nil || *windows[0].DayOfWeek != 1 {
		t.Fatalf("unexpected windows: %#v", windows)
	}
	if err := store.Availability.DeleteWindow(ctx, "hall-1", "window-1"); err != nil {
		t.Fatalf("DeleteWindow failed: %v", err)
	}

	day := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	block := persistence.Block{
		ID:        "block-1",
		HallID:    "hall-1",
		Date:      day,
		StartTime: "10:00",
		EndTime:   "12:00",
		Reason:    "maintenance",
		CreatedBy: "admin-1",
		CreatedAt: testNow,
	}
	if err := store.Blocks.CreateBlock(ctx, block); err != nil {
		t.Fatalf("CreateBlock failed: %v", err)
	}

	blocks, err := store.Blocks.ListBlocks(ctx, persistence.BlockFilter{HallID: "hall-1", Date: &day})
	if err != nil {
		t.Fatalf("ListBlocks failed: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Reason != "maintenance" {
		t.Fatalf("unexpected blocks: %#v", blocks)
	}

	next := day.AddDate(0, 0, 1)
	blocks, err = store.Blocks.ListBlocks(ctx, persistence.BlockFilter{HallID: "hall-1", Date: &next})
	if err != nil {
		t.Fatalf("ListBlocks failed: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks on the next day, got %d", len(blocks))
	}
}

func TestBookingRequestRepository_OnePendingRequestPerTraining(t *testing.T) {
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")

	second := persistence.BookingRequest{
		ID:          "request-2",
		TrainingID:  "training-1",
		HallID:      "hall-1",
		RequestedBy: "officer-1",
		Priority:    "urgent",
		Status:      "pending",
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	if err := store.Requests.CreateRequest(context.Background(), second); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second pending request, got %v", err)
	}
}

func TestBookingRequestRepository_ListOrdersUrgentFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")
	seedTraining(t, store, "training-2", "hall-1", "11:00", "12:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")

	urgent := persistence.BookingRequest{
		ID:          "request-2",
		TrainingID:  "training-2",
		HallID:      "hall-1",
		RequestedBy: "officer-1",
		Priority:    "urgent",
		Status:      "pending",
		CreatedAt:   testNow.Add(time.Minute),
		UpdatedAt:   testNow.Add(time.Minute),
	}
	if err := store.Requests.CreateRequest(ctx, urgent); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	requests, err := store.Requests.ListRequests(ctx, persistence.RequestFilter{Status: "pending"})
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if len(requests) != 2 || requests[0].ID != "request-2" {
		t.Fatalf("expected urgent request first, got %#v", requests)
	}
}

func TestBookingRequestRepository_CommitApproval(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "11:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")

	if err := approve(store, "request-1", "training-1", "hall-1"); err != nil {
		t.Fatalf("CommitApproval failed: %v", err)
	}

	training, err := store.Trainings.GetTraining(ctx, "training-1")
	if err != nil {
		t.Fatalf("GetTraining failed: %v", err)
	}
	if training.Status != "scheduled" {
		t.Fatalf("expected scheduled training, got %s", training.Status)
	}
	request, err := store.Requests.GetRequest(ctx, "request-1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if request.Status != "approved" || request.DecidedBy == nil || *request.DecidedBy != "admin-1" {
		t.Fatalf("unexpected request after approval: %#v", request)
	}

	if err := approve(store, "request-1", "training-1", "hall-1"); !errors.Is(err, persistence.ErrStaleState) {
		t.Fatalf("expected ErrStaleState on repeated approval, got %v", err)
	}
	if err := approve(store, "missing", "training-1", "hall-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown request, got %v", err)
	}
}

func TestBookingRequestRepository_CommitApprovalRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "11:00")
	seedTraining(t, store, "training-2", "hall-1", "10:00", "12:00")
	seedTraining(t, store, "training-3", "hall-1", "11:00", "12:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")
	seedRequest(t, store, "request-2", "training-2", "hall-1")
	seedRequest(t, store, "request-3", "training-3", "hall-1")

	if err := approve(store, "request-1", "training-1", "hall-1"); err != nil {
		t.Fatalf("CommitApproval failed: %v", err)
	}

	err := approve(store, "request-2", "training-2", "hall-1")
	var overlap *persistence.OverlapError
	if !errors.As(err, &overlap) || overlap.Kind != "training" || overlap.ID != "training-1" {
		t.Fatalf("expected overlap with training-1, got %v", err)
	}

	request, err := store.Requests.GetRequest(ctx, "request-2")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if request.Status != "pending" {
		t.Fatalf("expected request to stay pending after rolled back approval, got %s", request.Status)
	}

	// Touching the end of training-1 is allowed.
	if err := approve(store, "request-3", "training-3", "hall-1"); err != nil {
		t.Fatalf("expected adjacent approval to succeed, got %v", err)
	}
}

func TestBookingRequestRepository_CommitApprovalRejectsBlock(t *testing.T) {
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	training := seedTraining(t, store, "training-1", "hall-1", "11:00", "13:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")

	block := persistence.Block{
		ID: "block-1", HallID: "hall-1", Date: training.Date, StartTime: "10:00", EndTime: "12:00",
		Reason: "maintenance", CreatedBy: "admin-1", CreatedAt: testNow,
	}
	if err := store.Blocks.CreateBlock(context.Background(), block); err != nil {
		t.Fatalf("CreateBlock failed: %v", err)
	}

	err := approve(store, "request-1", "training-1", "hall-1")
	if !errors.Is(err, persistence.ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}

	if err := store.Blocks.DeleteBlock(context.Background(), "block-1"); err != nil {
		t.Fatalf("DeleteBlock failed: %v", err)
	}
	if err := approve(store, "request-1", "training-1", "hall-1"); err != nil {
		t.Fatalf("expected approval after block removal, got %v", err)
	}
}

func TestBookingRequestRepository_ConcurrentApprovals(t *testing.T) {
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "11:00")
	seedTraining(t, store, "training-2", "hall-1", "10:00", "12:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")
	seedRequest(t, store, "request-2", "training-2", "hall-1")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, pair := range [][2]string{{"request-1", "training-1"}, {"request-2", "training-2"}} {
		wg.Add(1)
		go func(i int, requestID, trainingID string) {
			defer wg.Done()
			errs[i] = approve(store, requestID, trainingID, "hall-1")
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, persistence.ErrOverlap):
		default:
			t.Fatalf("unexpected approval error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one approval, got %d (%v)", succeeded, errs)
	}
}

func TestBookingRequestRepository_CommitRejection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")

	reason := "hall reserved for exams"
	commit := persistence.RejectionCommit{RequestID: "request-1", DecidedBy: "admin-1", Reason: &reason, DecidedAt: testNow}
	if err := store.Requests.CommitRejection(ctx, commit); err != nil {
		t.Fatalf("CommitRejection failed: %v", err)
	}
	if err := store.Requests.CommitRejection(ctx, commit); !errors.Is(err, persistence.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}

	request, err := store.Requests.GetRequest(ctx, "request-1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if request.RejectionReason == nil || *request.RejectionReason != reason {
		t.Fatalf("expected rejection reason to be stored, got %#v", request.RejectionReason)
	}

	// A rejected request frees the training for a new one.
	seedRequest(t, store, "request-2", "training-1", "hall-1")
}

func TestTrainingRepository_SessionAndStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")

	if err := store.Trainings.UpdateTrainingStatus(ctx, "training-1", "scheduled", "ongoing", testNow); !errors.Is(err, persistence.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
	if err := store.Trainings.UpdateTrainingStatus(ctx, "missing", "draft", "cancelled", testNow); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	start := testNow
	end := testNow.Add(15 * time.Minute)
	token := "token-1"
	startedBy := "trainer-1"
	session := persistence.AttendanceSession{Active: true, StartTime: &start, EndTime: &end, Token: &token, StartedBy: &startedBy}
	if err := store.Trainings.SaveSession(ctx, "training-1", session, testNow); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	training, err := store.Trainings.GetTraining(ctx, "training-1")
	if err != nil {
		t.Fatalf("GetTraining failed: %v", err)
	}
	if !training.Session.Active || training.Session.Token == nil || *training.Session.Token != token {
		t.Fatalf("unexpected session: %#v", training.Session)
	}
	if training.Session.EndTime == nil || !training.Session.EndTime.Equal(end) {
		t.Fatalf("unexpected session end: %v", training.Session.EndTime)
	}

	day := training.Date
	trainings, err := store.Trainings.ListTrainings(ctx, persistence.TrainingFilter{HallID: "hall-1", Date: &day, Statuses: []string{"draft"}})
	if err != nil {
		t.Fatalf("ListTrainings failed: %v", err)
	}
	if len(trainings) != 1 {
		t.Fatalf("expected one draft training, got %d", len(trainings))
	}
}

func TestAttendanceRepository_RecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")

	nomination := persistence.Nomination{
		ID: "nomination-1", TrainingID: "training-1", ParticipantID: "participant-1", InstitutionID: "inst-1",
		NominatedBy: "officer-1", Status: "approved", CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := store.Nominations.CreateNomination(ctx, nomination); err != nil {
		t.Fatalf("CreateNomination failed: %v", err)
	}

	record := persistence.Attendance{
		ID: "attendance-1", TrainingID: "training-1", ParticipantID: "participant-1",
		Method: "qr", MarkedBy: "participant-1", MarkedAt: testNow,
	}
	stored, created, err := store.Attendance.RecordAttendance(ctx, record)
	if err != nil || !created || stored.ID != "attendance-1" {
		t.Fatalf("first RecordAttendance = %#v, %v, %v", stored, created, err)
	}

	record.ID = "attendance-2"
	record.MarkedAt = testNow.Add(time.Minute)
	stored, created, err = store.Attendance.RecordAttendance(ctx, record)
	if err != nil || created || stored.ID != "attendance-1" {
		t.Fatalf("second RecordAttendance = %#v, %v, %v", stored, created, err)
	}

	records, err := store.Attendance.ListAttendance(ctx, "training-1")
	if err != nil {
		t.Fatalf("ListAttendance failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one attendance record, got %d", len(records))
	}

	updated, err := store.Nominations.GetNomination(ctx, "nomination-1")
	if err != nil {
		t.Fatalf("GetNomination failed: %v", err)
	}
	if updated.Status != "attended" {
		t.Fatalf("expected nomination to be attended, got %s", updated.Status)
	}
}

func TestAttendanceRepository_ListByParticipant(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")
	seedTraining(t, store, "training-2", "hall-1", "11:00", "12:00")

	records := []persistence.Attendance{
		{ID: "attendance-1", TrainingID: "training-1", ParticipantID: "participant-1", Method: "qr", MarkedBy: "participant-1", MarkedAt: testNow},
		{ID: "attendance-2", TrainingID: "training-2", ParticipantID: "participant-1", Method: "manual", MarkedBy: "trainer-1", MarkedAt: testNow.Add(2 * time.Hour)},
		{ID: "attendance-3", TrainingID: "training-1", ParticipantID: "participant-2", Method: "qr", MarkedBy: "participant-2", MarkedAt: testNow},
	}
	for _, record := range records {
		if _, _, err := store.Attendance.RecordAttendance(ctx, record); err != nil {
			t.Fatalf("RecordAttendance(%s) failed: %v", record.ID, err)
		}
	}

	history, err := store.Attendance.ListAttendanceByParticipant(ctx, "participant-1")
	if err != nil {
		t.Fatalf("ListAttendanceByParticipant failed: %v", err)
	}
	if len(history) != 2 || history[0].ID != "attendance-2" || history[1].ID != "attendance-1" {
		t.Fatalf("expected newest first for participant-1, got %#v", history)
	}

	history, err = store.Attendance.ListAttendanceByParticipant(ctx, "nobody")
	if err != nil || len(history) != 0 {
		t.Fatalf("expected no records, got %#v, %v", history, err)
	}
}

func TestNominationRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")

	nomination := persistence.Nomination{
		ID: "nomination-1", TrainingID: "training-1", ParticipantID: "participant-1", InstitutionID: "inst-1",
		NominatedBy: "officer-1", Status: "nominated", CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := store.Nominations.CreateNomination(ctx, nomination); err != nil {
		t.Fatalf("CreateNomination failed: %v", err)
	}
	duplicate := nomination
	duplicate.ID = "nomination-2"
	if err := store.Nominations.CreateNomination(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	reason := "not eligible"
	if err := store.Nominations.UpdateNominationStatus(ctx, "nomination-1", "nominated", "rejected", &reason, testNow); err != nil {
		t.Fatalf("UpdateNominationStatus failed: %v", err)
	}
	if err := store.Nominations.UpdateNominationStatus(ctx, "nomination-1", "nominated", "approved", nil, testNow); !errors.Is(err, persistence.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}

	// Rejected nominations do not block a new one.
	if err := store.Nominations.CreateNomination(ctx, duplicate); err != nil {
		t.Fatalf("expected renomination after rejection, got %v", err)
	}

	nominations, err := store.Nominations.ListNominations(ctx, persistence.NominationFilter{
		TrainingIDs: []string{"training-1"},
		Statuses:    []string{"nominated", "approved", "attended"},
	})
	if err != nil {
		t.Fatalf("ListNominations failed: %v", err)
	}
	if len(nominations) != 1 || nominations[0].ID != "nomination-2" {
		t.Fatalf("unexpected nominations: %#v", nominations)
	}
}

func TestTrainingRepository_UpdateGuardsStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedHall(t, store, "hall-1")
	training := seedTraining(t, store, "training-1", "hall-1", "11:00", "12:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")

	if err := approve(store, "request-1", "training-1", "hall-1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	training.StartTime = "09:30"
	training.EndTime = "10:30"
	if err := store.Trainings.UpdateTraining(ctx, training); !errors.Is(err, persistence.ErrStaleState) {
		t.Fatalf("expected ErrStaleState for an edit read as draft, got %v", err)
	}

	stored, err := store.Trainings.GetTraining(ctx, "training-1")
	if err != nil {
		t.Fatalf("GetTraining failed: %v", err)
	}
	if stored.StartTime != "11:00" || stored.Status != "scheduled" {
		t.Fatalf("expected the approved slot to be kept, got %s %s", stored.StartTime, stored.Status)
	}

	stored.Title = "Renamed"
	if err := store.Trainings.UpdateTraining(ctx, stored); err != nil {
		t.Fatalf("UpdateTraining with current status failed: %v", err)
	}

	missing := training
	missing.ID = "missing"
	if err := store.Trainings.UpdateTraining(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrainingRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedHall(t, store, "hall-1")
	seedTraining(t, store, "training-1", "hall-1", "09:00", "10:00")
	seedRequest(t, store, "request-1", "training-1", "hall-1")

	record := persistence.Attendance{
		ID: "attendance-1", TrainingID: "training-1", ParticipantID: "participant-1",
		Method: "manual", MarkedBy: "trainer-1", MarkedAt: testNow,
	}
	if _, _, err := store.Attendance.RecordAttendance(ctx, record); err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}

	if err := store.Trainings.DeleteTraining(ctx, "training-1"); err != nil {
		t.Fatalf("DeleteTraining failed: %v", err)
	}
	if _, err := store.Requests.GetRequest(ctx, "request-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected request to be deleted, got %v", err)
	}
	records, err := store.Attendance.ListAttendance(ctx, "training-1")
	if err != nil {
		t.Fatalf("ListAttendance failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected attendance to be deleted, got %d", len(records))
	}
	if err := store.Trainings.DeleteTraining(ctx, "training-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// With no trainings left the hall can be removed, taking its blocks along.
	if err := store.Halls.DeleteHall(ctx, "hall-1"); err != nil {
		t.Fatalf("DeleteHall failed: %v", err)
	}
}
