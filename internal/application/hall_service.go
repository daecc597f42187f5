package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/persistence"
	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

// HallRepository captures the persistence operations needed for halls.
type HallRepository interface {
	CreateHall(ctx context.Context, hall Hall) error
	UpdateHall(ctx context.Context, hall Hall) error
	GetHall(ctx context.Context, id string) (Hall, error)
	ListHalls(ctx context.Context) ([]Hall, error)
	DeleteHall(ctx context.Context, id string) error
}

// AvailabilityRepository stores availability windows.
type AvailabilityRepository interface {
	CreateWindow(ctx context.Context, window AvailabilityWindow) error
	DeleteWindow(ctx context.Context, hallID, id string) error
	ListWindows(ctx context.Context, hallID string) ([]AvailabilityWindow, error)
}

// HallService orchestrates validation, authorization, and persistence for
// halls and their availability windows.
type HallService struct {
	halls       HallRepository
	windows     AvailabilityRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewHallService constructs a hall service with the provided dependencies.
func NewHallService(halls HallRepository, windows AvailabilityRepository, idGenerator func() string, now func() time.Time) *HallService {
	return NewHallServiceWithLogger(halls, windows, idGenerator, now, nil)
}

// NewHallServiceWithLogger constructs a hall service with a specified logger.
func NewHallServiceWithLogger(halls HallRepository, windows AvailabilityRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *HallService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &HallService{halls: halls, windows: windows, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *HallService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "HallService", operation, attrs...)
}

// CreateHall validates input and persists a new hall for administrators.
func (s *HallService) CreateHall(ctx context.Context, params CreateHallParams) (hall Hall, err error) {
	if s == nil {
		err = fmt.Errorf("HallService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateHall",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("hall_id", hall.ID).InfoContext(ctx, "hall created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	input := normalizeHallInput(params.Input)
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	hall = Hall{
		ID:         s.idGenerator(),
		Name:       input.Name,
		Location:   input.Location,
		Capacity:   input.Capacity,
		Facilities: input.Facilities,
		CreatedAt:  s.now(),
	}
	hall.UpdatedAt = hall.CreatedAt

	if s.halls == nil {
		err = fmt.Errorf("hall repository not configured")
		return
	}
	if err = s.halls.CreateHall(ctx, hall); err != nil {
		err = mapHallRepoError(err)
		return
	}
	return
}

// UpdateHall validates input and updates an existing hall for administrators.
func (s *HallService) UpdateHall(ctx context.Context, params UpdateHallParams) (hall Hall, err error) {
	if s == nil {
		err = fmt.Errorf("HallService is nil")
		return
	}
	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.halls == nil {
		err = fmt.Errorf("hall repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateHall",
		"principal_id", params.Principal.UserID,
		"hall_id", params.HallID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "hall updated")
	}()

	var existing Hall
	existing, err = s.halls.GetHall(ctx, params.HallID)
	if err != nil {
		err = mapHallRepoError(err)
		return
	}

	input := normalizeHallInput(params.Input)
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	hall = existing
	hall.Name = input.Name
	hall.Location = input.Location
	hall.Capacity = input.Capacity
	hall.Facilities = input.Facilities
	hall.UpdatedAt = s.now()

	if err = s.halls.UpdateHall(ctx, hall); err != nil {
		err = mapHallRepoError(err)
		return
	}
	return
}

// DeleteHall removes a hall. Halls still referenced by trainings cannot be removed.
func (s *HallService) DeleteHall(ctx context.Context, principal Principal, hallID string) error {
	if s == nil {
		return fmt.Errorf("HallService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.halls == nil {
		return fmt.Errorf("hall repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteHall",
		"principal_id", principal.UserID,
		"hall_id", hallID,
	)

	if err := s.halls.DeleteHall(ctx, hallID); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			err = &StateError{Entity: "hall", ID: hallID, Current: "in use", Operation: "delete"}
		} else {
			err = mapHallRepoError(err)
		}
		logger.ErrorContext(ctx, "failed to delete hall", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "hall deleted")
	return nil
}

// GetHall returns a single hall.
func (s *HallService) GetHall(ctx context.Context, principal Principal, hallID string) (Hall, error) {
	if s == nil {
		return Hall{}, fmt.Errorf("HallService is nil")
	}
	if s.halls == nil {
		return Hall{}, fmt.Errorf("hall repository not configured")
	}
	hall, err := s.halls.GetHall(ctx, hallID)
	if err != nil {
		return Hall{}, mapHallRepoError(err)
	}
	return hall, nil
}

// ListHalls returns the hall catalog ordered by name.
func (s *HallService) ListHalls(ctx context.Context, principal Principal) (halls []Hall, err error) {
	if s == nil {
		err = fmt.Errorf("HallService is nil")
		return
	}
	if s.halls == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListHalls",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list halls", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(halls)).DebugContext(ctx, "halls listed")
	}()

	var raw []Hall
	raw, err = s.halls.ListHalls(ctx)
	if err != nil {
		return
	}

	halls = make([]Hall, len(raw))
	copy(halls, raw)
	sort.Slice(halls, func(i, j int) bool {
		if strings.EqualFold(halls[i].Name, halls[j].Name) {
			return halls[i].ID < halls[j].ID
		}
		return strings.ToLower(halls[i].Name) < strings.ToLower(halls[j].Name)
	})
	return
}

// AddAvailability adds a recurring or date-specific window to a hall.
func (s *HallService) AddAvailability(ctx context.Context, params AddAvailabilityParams) (window AvailabilityWindow, err error) {
	if s == nil {
		err = fmt.Errorf("HallService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddAvailability",
		"principal_id", params.Principal.UserID,
		"hall_id", params.HallID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("window_id", window.ID).InfoContext(ctx, "availability added")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.halls == nil || s.windows == nil {
		err = fmt.Errorf("hall repositories not configured")
		return
	}
	if _, err = s.halls.GetHall(ctx, params.HallID); err != nil {
		err = mapHallRepoError(err)
		return
	}

	window, vErr := buildWindow(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	window.ID = s.idGenerator()
	window.HallID = params.HallID
	window.CreatedBy = params.Principal.UserID
	window.CreatedAt = s.now()

	if err = s.windows.CreateWindow(ctx, window); err != nil {
		err = mapHallRepoError(err)
		return
	}
	return
}

// RemoveAvailability deletes a window from a hall.
func (s *HallService) RemoveAvailability(ctx context.Context, principal Principal, hallID, windowID string) error {
	if s == nil {
		return fmt.Errorf("HallService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.windows == nil {
		return fmt.Errorf("availability repository not configured")
	}

	logger := s.loggerWith(ctx, "RemoveAvailability",
		"principal_id", principal.UserID,
		"hall_id", hallID,
		"window_id", windowID,
	)
	if err := s.windows.DeleteWindow(ctx, hallID, windowID); err != nil {
		err = mapHallRepoError(err)
		logger.ErrorContext(ctx, "failed to remove availability", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "availability removed")
	return nil
}

// ListAvailability returns the windows of a hall.
func (s *HallService) ListAvailability(ctx context.Context, principal Principal, hallID string) ([]AvailabilityWindow, error) {
	if s == nil {
		return nil, fmt.Errorf("HallService is nil")
	}
	if s.halls == nil || s.windows == nil {
		return nil, fmt.Errorf("hall repositories not configured")
	}
	if _, err := s.halls.GetHall(ctx, hallID); err != nil {
		return nil, mapHallRepoError(err)
	}
	windows, err := s.windows.ListWindows(ctx, hallID)
	if err != nil {
		return nil, mapHallRepoError(err)
	}
	return windows, nil
}

func normalizeHallInput(input HallInput) HallInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Location = strings.TrimSpace(input.Location)

	var facilities []string
	seen := make(map[string]struct{}, len(input.Facilities))
	for _, f := range input.Facilities {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		facilities = append(facilities, f)
	}
	input.Facilities = facilities
	return input
}

func buildWindow(input AvailabilityInput) (AvailabilityWindow, *ValidationError) {
	vErr := validateStruct(input)

	window := AvailabilityWindow{Kind: scheduler.WindowKind(input.Kind)}
	switch window.Kind {
	case scheduler.WindowRecurring:
		if input.DayOfWeek == nil {
			vErr.add("day_of_week", "day_of_week is required for recurring windows")
		} else if *input.DayOfWeek >= 0 && *input.DayOfWeek <= 6 {
			day := time.Weekday(*input.DayOfWeek)
			window.DayOfWeek = &day
		}
	case scheduler.WindowSpecific:
		if strings.TrimSpace(input.Date) == "" {
			vErr.add("date", "date is required for specific windows")
		} else if date, err := scheduler.ParseDate(input.Date); err == nil {
			window.Date = &date
		}
	}

	if vErr.HasErrors() {
		return AvailabilityWindow{}, vErr
	}
	start, _ := scheduler.ParseTimeOfDay(input.Start)
	end, _ := scheduler.ParseTimeOfDay(input.End)
	if start >= end {
		vErr.add("end", "end must be after start")
		return AvailabilityWindow{}, vErr
	}
	window.Start = start
	window.End = end
	return window, vErr
}

func mapHallRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("input", "input violates a storage constraint")
		return vErr
	}
	return err
}
