package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence/sqlite"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// store for integration-style persistence tests.
type SQLiteHarness struct {
	Store *sqlite.Store

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "tms.db")
	store, err := sqlite.Open(context.Background(), migration.DefaultSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store: store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedHall stores a hall fixture.
func (h *SQLiteHarness) SeedHall(tb testing.TB, opts ...HallOption) HallFixture {
	tb.Helper()
	hall := NewHallFixture(opts...)
	if err := h.Store.Halls.CreateHall(context.Background(), hall.Persistence()); err != nil {
		tb.Fatalf("failed to seed hall %s: %v", hall.ID, err)
	}
	return hall
}

// SeedTraining stores a training fixture in the given hall.
func (h *SQLiteHarness) SeedTraining(tb testing.TB, hallID string, opts ...TrainingOption) TrainingFixture {
	tb.Helper()
	training := NewTrainingFixture(append([]TrainingOption{WithTrainingHall(hallID)}, opts...)...)
	if err := h.Store.Trainings.CreateTraining(context.Background(), training.Persistence()); err != nil {
		tb.Fatalf("failed to seed training %s: %v", training.ID, err)
	}
	return training
}
