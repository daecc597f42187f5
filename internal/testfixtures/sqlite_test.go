package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
)

func TestSQLiteHarnessSeedsHallAndTraining(t *testing.T) {
	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	hall := harness.SeedHall(t, WithHallName("Auditorium"), WithHallCapacity(80))
	training := harness.SeedTraining(t, hall.ID, WithTrainingSlot(ReferenceDay(), "13:00", "15:30"))

	storedHall, err := harness.Store.Halls.GetHall(ctx, hall.ID)
	if err != nil {
		t.Fatalf("GetHall returned error: %v", err)
	}
	if storedHall.Name != "Auditorium" || storedHall.Capacity != 80 {
		t.Fatalf("unexpected hall %+v", storedHall)
	}

	storedTraining, err := harness.Store.Trainings.GetTraining(ctx, training.ID)
	if err != nil {
		t.Fatalf("GetTraining returned error: %v", err)
	}
	if storedTraining.HallID != hall.ID {
		t.Fatalf("expected hall %s, got %s", hall.ID, storedTraining.HallID)
	}
	if storedTraining.StartTime != "13:00" || storedTraining.EndTime != "15:30" {
		t.Fatalf("unexpected slot %s-%s", storedTraining.StartTime, storedTraining.EndTime)
	}
	if storedTraining.Status != string(application.TrainingDraft) {
		t.Fatalf("expected draft status, got %s", storedTraining.Status)
	}
}

func TestSQLiteHarnessCloseIsIdempotent(t *testing.T) {
	harness := NewSQLiteHarness(t)
	harness.Close()
	harness.Close()

	_, err := harness.Store.Halls.GetHall(context.Background(), "missing")
	if err == nil || errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected a closed-store error, got %v", err)
	}
}
