package testfixtures

import (
	"log/slog"
	"time"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
	"github.com/abeldaneesh/TMS-sub000/internal/lock"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Locker      application.Locker
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Locker:      lock.NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Locker == nil {
		factory.Locker = lock.NewKeyedMutex()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocker overrides the locker handed to services that serialize on
// hall, training or participant keys.
func WithLocker(locker application.Locker) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Locker = locker
	}
}

func (f *ServiceFactory) ids(custom func() string) func() string {
	if custom != nil {
		return custom
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) now(custom func() time.Time) func() time.Time {
	if custom != nil {
		return custom
	}
	return f.Clock.NowFunc()
}

func (f *ServiceFactory) locker(custom application.Locker) application.Locker {
	if custom != nil {
		return custom
	}
	return f.Locker
}

// NewHallService builds a hall service backed by the factory clock and IDs.
func (f *ServiceFactory) NewHallService(halls application.HallRepository, windows application.AvailabilityRepository, logger *slog.Logger) *application.HallService {
	return application.NewHallServiceWithLogger(halls, windows, f.ids(nil), f.now(nil), logger)
}

// NewAvailabilityService has no clock or identifier needs; it exists so tests
// build every service through one place.
func (f *ServiceFactory) NewAvailabilityService(deps application.AvailabilityServiceDeps) *application.AvailabilityService {
	return application.NewAvailabilityService(deps)
}

func (f *ServiceFactory) NewBlockService(deps application.BlockServiceDeps) *application.BlockService {
	deps.IDGenerator = f.ids(deps.IDGenerator)
	deps.Now = f.now(deps.Now)
	deps.Locker = f.locker(deps.Locker)
	return application.NewBlockService(deps)
}

func (f *ServiceFactory) NewTrainingService(deps application.TrainingServiceDeps) *application.TrainingService {
	deps.IDGenerator = f.ids(deps.IDGenerator)
	deps.Now = f.now(deps.Now)
	deps.Locker = f.locker(deps.Locker)
	return application.NewTrainingService(deps)
}

func (f *ServiceFactory) NewBookingService(deps application.BookingServiceDeps) *application.BookingService {
	deps.IDGenerator = f.ids(deps.IDGenerator)
	deps.Now = f.now(deps.Now)
	deps.Locker = f.locker(deps.Locker)
	return application.NewBookingService(deps)
}

func (f *ServiceFactory) NewNominationService(deps application.NominationServiceDeps) *application.NominationService {
	deps.IDGenerator = f.ids(deps.IDGenerator)
	deps.Now = f.now(deps.Now)
	deps.Locker = f.locker(deps.Locker)
	return application.NewNominationService(deps)
}

// NewAttendanceService fills identifiers and the clock. Session tokens come
// from the generator's "token" sequence so they never collide with record IDs.
func (f *ServiceFactory) NewAttendanceService(deps application.AttendanceServiceDeps) *application.AttendanceService {
	deps.IDGenerator = f.ids(deps.IDGenerator)
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = f.IDGenerator.Sequence("token")
	}
	deps.Now = f.now(deps.Now)
	deps.Locker = f.locker(deps.Locker)
	return application.NewAttendanceService(deps)
}
