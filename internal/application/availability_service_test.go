package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

func TestAvailabilityService_CheckHallConflict(t *testing.T) {
	ctx := context.Background()
	monday := time.Monday

	cases := []struct {
		name       string
		seed       func(s *storeStub)
		open       bool
		start, end string
		exclude    string
		wantFree   bool
		wantKind   ConflictKind
		wantEntity string
	}{
		{name: "free hall without windows", open: true, start: "09:00", end: "10:00", wantFree: true},
		{name: "closed hall without windows", open: false, start: "09:00", end: "10:00", wantKind: ConflictAvailability},
		{
			name: "outside a recurring window",
			open: true,
			seed: func(s *storeStub) {
				s.windows["w"] = AvailabilityWindow{ID: "w", HallID: "hall-1", Kind: scheduler.WindowRecurring, DayOfWeek: &monday,
					Start: scheduler.MustTimeOfDay("08:00"), End: scheduler.MustTimeOfDay("12:00")}
			},
			start: "11:00", end: "13:00", wantKind: ConflictAvailability,
		},
		{
			name: "block wins over a training",
			open: true,
			seed: func(s *storeStub) {
				s.seedBlock("b", "hall-1", "10:00", "12:00")
				s.seedTraining("t", "hall-1", "10:00", "12:00", TrainingScheduled)
			},
			start: "11:00", end: "13:00", wantKind: ConflictBlock, wantEntity: "b",
		},
		{
			name:  "confirmed training",
			open:  true,
			seed:  func(s *storeStub) { s.seedTraining("t", "hall-1", "10:00", "12:00", TrainingOngoing) },
			start: "11:00", end: "13:00", wantKind: ConflictTraining, wantEntity: "t",
		},
		{
			name:  "touching intervals are free",
			open:  true,
			seed:  func(s *storeStub) { s.seedTraining("t", "hall-1", "10:00", "12:00", TrainingScheduled) },
			start: "12:00", end: "13:00", wantFree: true,
		},
		{
			name: "drafts never conflict",
			open: true,
			seed: func(s *storeStub) {
				s.seedTraining("d1", "hall-1", "10:00", "12:00", TrainingDraft)
				s.seedTraining("d2", "hall-1", "10:00", "12:00", TrainingDraft)
			},
			start: "10:00", end: "12:00", wantFree: true,
		},
		{
			name:  "excluded training is ignored",
			open:  true,
			seed:  func(s *storeStub) { s.seedTraining("t", "hall-1", "10:00", "12:00", TrainingScheduled) },
			start: "10:00", end: "12:00", exclude: "t", wantFree: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStoreStub()
			store.seedHall("hall-1")
			if tc.seed != nil {
				tc.seed(store)
			}
			metrics := newMetricsRecorder()
			svc := newAvailabilityForStub(store, metrics)
			svc.openWhenUnset = tc.open

			result, err := svc.CheckHallConflict(ctx, CheckConflictParams{
				HallID: "hall-1", Date: "2025-03-03", Start: tc.start, End: tc.end, ExcludeTrainingID: tc.exclude,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantFree, result.Free)
			if !tc.wantFree {
				assert.Equal(t, tc.wantKind, result.Kind)
				assert.NotEmpty(t, result.Reason)
			}
			if tc.wantEntity != "" {
				assert.Equal(t, tc.wantEntity, result.ConflictingEntity)
			}
		})
	}
}

func TestAvailabilityService_CheckHallConflictValidation(t *testing.T) {
	svc := newAvailabilityForStub(newStoreStub(), nil)
	_, err := svc.CheckHallConflict(context.Background(), CheckConflictParams{HallID: "hall-1", Date: "03/03/2025", Start: "10:00", End: "09:00"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "date")

	_, err = svc.CheckHallConflict(context.Background(), CheckConflictParams{HallID: "missing", Date: "2025-03-03", Start: "09:00", End: "10:00"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAvailabilityService_ListAvailableHalls(t *testing.T) {
	store := newStoreStub()
	store.seedHall("hall-1")
	store.seedHall("hall-2")
	store.seedTraining("t", "hall-1", "09:00", "11:00", TrainingScheduled)
	svc := newAvailabilityForStub(store, nil)

	halls, err := svc.ListAvailableHalls(context.Background(), AvailableHallsParams{Date: "2025-03-03", Start: "10:00", End: "11:00"})
	require.NoError(t, err)
	require.Len(t, halls, 1)
	assert.Equal(t, "hall-2", halls[0].ID)
}

func TestAvailabilityService_FindBusyParticipants(t *testing.T) {
	store := newStoreStub()
	store.seedHall("hall-1")
	store.seedTraining("t1", "hall-1", "09:00", "10:00", TrainingScheduled)
	store.seedTraining("t2", "hall-1", "11:00", "12:00", TrainingDraft)
	store.nominations["n1"] = Nomination{ID: "n1", TrainingID: "t1", ParticipantID: "p1", Status: NominationApproved}
	store.nominations["n2"] = Nomination{ID: "n2", TrainingID: "t2", ParticipantID: "p2", Status: NominationNominated}
	store.nominations["n3"] = Nomination{ID: "n3", TrainingID: "t2", ParticipantID: "p3", Status: NominationRejected}
	svc := newAvailabilityForStub(store, nil)

	busy, err := svc.FindBusyParticipants(context.Background(), BusyParticipantsParams{Date: "2025-03-03"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, busy)

	busy, err = svc.FindBusyParticipants(context.Background(), BusyParticipantsParams{Date: "2025-03-03", ExcludeTrainingID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, busy)

	busy, err = svc.FindBusyParticipants(context.Background(), BusyParticipantsParams{Date: "2025-03-04"})
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestAvailabilityService_HallDaySchedule(t *testing.T) {
	store := newStoreStub()
	store.seedHall("hall-1")
	store.seedBlock("b", "hall-1", "12:00", "13:00")
	store.seedTraining("t", "hall-1", "09:00", "10:00", TrainingScheduled)
	store.seedTraining("d", "hall-1", "09:00", "10:00", TrainingDraft)
	svc := newAvailabilityForStub(store, nil)

	schedule, err := svc.HallDaySchedule(context.Background(), "hall-1", "2025-03-03")
	require.NoError(t, err)
	assert.False(t, schedule.Closed)
	require.Len(t, schedule.Entries, 2)
	assert.Equal(t, EntryTraining, schedule.Entries[0].Kind)
	assert.Equal(t, "t", schedule.Entries[0].ID)
	assert.Equal(t, EntryBlock, schedule.Entries[1].Kind)
	assert.Equal(t, "maintenance", schedule.Entries[1].Reason)
}
