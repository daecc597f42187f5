package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newHallServiceForStub(store *storeStub) *HallService {
	return NewHallService(store, store, sequentialIDs("hall"), fixedNow(testDay))
}

func TestHallService_CreateHall(t *testing.T) {
	ctx := context.Background()

	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := newHallServiceForStub(newStoreStub())
		_, err := svc.CreateHall(ctx, CreateHallParams{
			Principal: officerPrincipal,
			Input:     HallInput{Name: "Main Hall", Location: "Block A", Capacity: 50},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := newHallServiceForStub(newStoreStub())
		_, err := svc.CreateHall(ctx, CreateHallParams{
			Principal: adminPrincipal,
			Input:     HallInput{Name: "  ", Capacity: 0},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "location", "capacity"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("normalizes and persists the hall", func(t *testing.T) {
		store := newStoreStub()
		svc := newHallServiceForStub(store)
		hall, err := svc.CreateHall(ctx, CreateHallParams{
			Principal: adminPrincipal,
			Input: HallInput{
				Name:       " Main Hall ",
				Location:   "Block A",
				Capacity:   50,
				Facilities: []string{"projector", " projector", "", "whiteboard"},
			},
		})
		if err != nil {
			t.Fatalf("CreateHall returned error: %v", err)
		}
		if hall.Name != "Main Hall" {
			t.Fatalf("expected trimmed name, got %q", hall.Name)
		}
		if len(hall.Facilities) != 2 {
			t.Fatalf("expected deduplicated facilities, got %v", hall.Facilities)
		}
		if _, ok := store.halls[hall.ID]; !ok {
			t.Fatalf("expected hall to be stored")
		}
	})

	t.Run("maps duplicate names", func(t *testing.T) {
		store := newStoreStub()
		svc := newHallServiceForStub(store)
		input := HallInput{Name: "Main Hall", Location: "Block A", Capacity: 50}
		if _, err := svc.CreateHall(ctx, CreateHallParams{Principal: adminPrincipal, Input: input}); err != nil {
			t.Fatalf("first CreateHall returned error: %v", err)
		}
		_, err := svc.CreateHall(ctx, CreateHallParams{Principal: adminPrincipal, Input: input})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestHallService_DeleteHallInUse(t *testing.T) {
	ctx := context.Background()
	store := newStoreStub()
	store.seedHall("hall-1")
	store.seedTraining("training-1", "hall-1", "09:00", "10:00", TrainingDraft)
	svc := newHallServiceForStub(store)

	err := svc.DeleteHall(ctx, adminPrincipal, "hall-1")
	var sErr *StateError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected StateError for referenced hall, got %v", err)
	}

	delete(store.trainings, "training-1")
	if err := svc.DeleteHall(ctx, adminPrincipal, "hall-1"); err != nil {
		t.Fatalf("DeleteHall returned error: %v", err)
	}
	if _, err := svc.GetHall(ctx, adminPrincipal, "hall-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestHallService_ListHallsSortsByName(t *testing.T) {
	store := newStoreStub()
	store.halls["1"] = Hall{ID: "1", Name: "zeta"}
	store.halls["2"] = Hall{ID: "2", Name: "Alpha"}
	store.halls["3"] = Hall{ID: "3", Name: "beta"}
	svc := newHallServiceForStub(store)

	halls, err := svc.ListHalls(context.Background(), trainerPrincipal)
	if err != nil {
		t.Fatalf("ListHalls returned error: %v", err)
	}
	got := []string{halls[0].ID, halls[1].ID, halls[2].ID}
	if got[0] != "2" || got[1] != "3" || got[2] != "1" {
		t.Fatalf("expected case-insensitive order, got %v", got)
	}
}

func TestHallService_AddAvailability(t *testing.T) {
	ctx := context.Background()
	day := func(d int) *int { return &d }

	cases := []struct {
		name      string
		input     AvailabilityInput
		wantField string
	}{
		{name: "recurring window", input: AvailabilityInput{Kind: "recurring", DayOfWeek: day(1), Start: "08:00", End: "17:00"}},
		{name: "specific window", input: AvailabilityInput{Kind: "specific", Date: "2025-03-03", Start: "08:00", End: "12:00"}},
		{name: "unknown kind", input: AvailabilityInput{Kind: "weekly", Start: "08:00", End: "17:00"}, wantField: "kind"},
		{name: "recurring without a day", input: AvailabilityInput{Kind: "recurring", Start: "08:00", End: "17:00"}, wantField: "day_of_week"},
		{name: "day out of range", input: AvailabilityInput{Kind: "recurring", DayOfWeek: day(7), Start: "08:00", End: "17:00"}, wantField: "day_of_week"},
		{name: "specific without a date", input: AvailabilityInput{Kind: "specific", Start: "08:00", End: "17:00"}, wantField: "date"},
		{name: "inverted times", input: AvailabilityInput{Kind: "recurring", DayOfWeek: day(1), Start: "17:00", End: "08:00"}, wantField: "end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStoreStub()
			store.seedHall("hall-1")
			svc := newHallServiceForStub(store)

			window, err := svc.AddAvailability(ctx, AddAvailabilityParams{Principal: adminPrincipal, HallID: "hall-1", Input: tc.input})
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("AddAvailability returned error: %v", err)
				}
				if window.HallID != "hall-1" || window.ID == "" {
					t.Fatalf("expected stored window, got %+v", window)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.wantField]; !ok {
				t.Fatalf("expected %s error, got %v", tc.wantField, vErr.FieldErrors)
			}
		})
	}
}

func TestHallService_RemoveAvailability(t *testing.T) {
	ctx := context.Background()
	store := newStoreStub()
	store.seedHall("hall-1")
	store.windows["w1"] = AvailabilityWindow{ID: "w1", HallID: "hall-1", CreatedAt: testDay.Add(time.Hour)}
	svc := newHallServiceForStub(store)

	if err := svc.RemoveAvailability(ctx, officerPrincipal, "hall-1", "w1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.RemoveAvailability(ctx, adminPrincipal, "hall-2", "w1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another hall's window, got %v", err)
	}
	if err := svc.RemoveAvailability(ctx, adminPrincipal, "hall-1", "w1"); err != nil {
		t.Fatalf("RemoveAvailability returned error: %v", err)
	}
	windows, err := svc.ListAvailability(ctx, adminPrincipal, "hall-1")
	if err != nil || len(windows) != 0 {
		t.Fatalf("expected no windows, got %v (%v)", windows, err)
	}
}
