package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
	"github.com/abeldaneesh/TMS-sub000/internal/config"
	"github.com/abeldaneesh/TMS-sub000/internal/events"
	httptransport "github.com/abeldaneesh/TMS-sub000/internal/http"
	"github.com/abeldaneesh/TMS-sub000/internal/lock"
	"github.com/abeldaneesh/TMS-sub000/internal/logging"
	"github.com/abeldaneesh/TMS-sub000/internal/metrics"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence/sqlite"
	"github.com/abeldaneesh/TMS-sub000/internal/persistence/sqlite/migration"
)

func main() {
	bootstrap := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	app, err := newApp(ctx, cfg, appOptions{Logger: logger})
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("training hall API listening", "addr", server.Addr, "redis", cfg.RedisEnabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type appOptions struct {
	Logger *slog.Logger
	// Now and IDGenerator default to the wall clock and random UUIDs.
	Now         func() time.Time
	IDGenerator func() string
}

// App holds the wired HTTP handler and the resources it owns.
type App struct {
	Handler http.Handler
	Store   *sqlite.Store

	redis  *redis.Client
	logger *slog.Logger
}

// Close releases the database and the Redis client.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

func newApp(ctx context.Context, cfg config.Config, opts appOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	idGenerator := opts.IDGenerator
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}

	sqliteCfg := migration.DefaultSQLiteConfig(cfg.SQLite.DSN)
	sqliteCfg.BusyTimeout = cfg.SQLite.BusyTimeout
	store, err := sqlite.Open(ctx, sqliteCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	app := &App{Store: store, logger: logger}
	healthChecks := map[string]httptransport.HealthCheck{"sqlite": store.Ping}

	var locker application.Locker = lock.NewKeyedMutex()
	bus := events.NewBus(logger, events.LogSubscriber(logger))
	if cfg.RedisEnabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.redis = client
		locker = lock.NewRedisLocker(client, lock.RedisOptions{
			Prefix: "tms:lock:",
			TTL:    cfg.Lock.TTL,
			Wait:   cfg.Lock.Wait,
			Logger: logger,
		})
		bus.Subscribe(events.NewRedisForwarder(client, cfg.Events.Channel))
		healthChecks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}

	metrics.Register()
	recorder := metrics.Recorder{}

	halls := hallRepositoryAdapter{repo: store.Halls}
	windows := availabilityRepositoryAdapter{repo: store.Availability}
	blocks := blockRepositoryAdapter{repo: store.Blocks}
	trainings := trainingRepositoryAdapter{repo: store.Trainings}
	requests := bookingRepositoryAdapter{repo: store.Requests}
	attendance := attendanceRepositoryAdapter{repo: store.Attendance}
	nominations := nominationRepositoryAdapter{repo: store.Nominations}

	availabilityService := application.NewAvailabilityService(application.AvailabilityServiceDeps{
		Halls:         halls,
		Windows:       windows,
		Blocks:        blocks,
		Trainings:     trainings,
		Nominations:   nominations,
		OpenWhenUnset: cfg.Availability.OpenWhenUnset,
		Metrics:       recorder,
		Logger:        logger,
	})
	hallService := application.NewHallServiceWithLogger(halls, windows, idGenerator, now, logger)
	blockService := application.NewBlockService(application.BlockServiceDeps{
		Halls:       halls,
		Blocks:      blocks,
		Trainings:   trainings,
		Locker:      locker,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	})
	trainingService := application.NewTrainingService(application.TrainingServiceDeps{
		Trainings:    trainings,
		Halls:        halls,
		Availability: availabilityService,
		Locker:       locker,
		IDGenerator:  idGenerator,
		Now:          now,
		Logger:       logger,
	})
	bookingService := application.NewBookingService(application.BookingServiceDeps{
		Requests:     requests,
		Trainings:    trainings,
		Halls:        halls,
		Availability: availabilityService,
		Locker:       locker,
		Publisher:    bus,
		Metrics:      recorder,
		IDGenerator:  idGenerator,
		Now:          now,
		Logger:       logger,
	})
	nominationService := application.NewNominationService(application.NominationServiceDeps{
		Nominations:  nominations,
		Trainings:    trainings,
		Availability: availabilityService,
		Locker:       locker,
		IDGenerator:  idGenerator,
		Now:          now,
		Logger:       logger,
	})
	attendanceService := application.NewAttendanceService(application.AttendanceServiceDeps{
		Trainings:              trainings,
		Attendance:             attendance,
		Nominations:            nominations,
		Locker:                 locker,
		Publisher:              bus,
		Metrics:                recorder,
		LeadTime:               cfg.Attendance.LeadTime,
		DefaultDurationMinutes: cfg.Attendance.DefaultDurationMinutes,
		MaxDurationMinutes:     cfg.Attendance.MaxDurationMinutes,
		Location:               cfg.Location,
		IDGenerator:            idGenerator,
		Now:                    now,
		Logger:                 logger,
	})

	app.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Halls:       httptransport.NewHallHandler(hallService, availabilityService, blockService, logger),
		Blocks:      httptransport.NewBlockHandler(blockService, logger),
		Trainings:   httptransport.NewTrainingHandler(trainingService, logger),
		Bookings:    httptransport.NewBookingHandler(bookingService, logger),
		Attendance:  httptransport.NewAttendanceHandler(attendanceService, logger),
		Nominations: httptransport.NewNominationHandler(nominationService, availabilityService, logger),
		Health:      httptransport.NewHealthHandler(healthChecks, logger),
		Metrics:     promhttp.Handler(),
		Identity:    httptransport.RequireIdentity(httptransport.IdentityConfig{GatewayKeyHash: cfg.Auth.GatewayKeyHash}, logger),
		ScanLimiter: httptransport.NewScanLimiter(cfg.Attendance.ScanRatePerSecond, cfg.Attendance.ScanBurst),
		Middleware:  []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return app, nil
}
