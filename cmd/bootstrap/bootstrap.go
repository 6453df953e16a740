package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medqueue-portal/config"
	deliveryHttp "medqueue-portal/internal/delivery/http"
	"medqueue-portal/internal/delivery/http/handler"
	"medqueue-portal/internal/delivery/http/middleware"
	"medqueue-portal/internal/infrastructure/cache"
	"medqueue-portal/internal/infrastructure/database"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/repository"
	"medqueue-portal/internal/service"
	"medqueue-portal/internal/usecase"
	"medqueue-portal/pkg/jwt"
	"medqueue-portal/pkg/metrics"
	"medqueue-portal/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	metricsNamespace  = "medqueue_portal"
	actionLockTTL     = 30 * time.Second
	scopeIdleTimeout  = 2 * time.Hour
	scopeSweepSpec    = "@every 10m"
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	watchHub    *service.WatchHub
	actionLocks *service.ActionLockService
	rateLimiter *middleware.RateLimiter
	scheduler   *cron.Cron
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	setupLogger(cfg.App.LogLevel)
	logrus.Info("Configuration loaded successfully")

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if err := setupTimezone(cfg.App.Timezone); err != nil {
		return nil, err
	}

	// Initialize database (audit trail only)
	if cfg.DB.Enabled {
		db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Timezone, cfg.App.Env)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = db
		logrus.Info("Database connected successfully")
	} else {
		logrus.Info("Audit database disabled, audit entries go to the application log")
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initializeServer(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// setupTimezone makes "today" follow the clinic's timezone.
func setupTimezone(name string) error {
	if name == "" || name == "Local" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", name, err)
	}
	time.Local = loc
	logrus.Infof("Timezone set to %s", name)
	return nil
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer() error {
	cfg := app.Config

	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize shared services
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(metricsNamespace)
	}
	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()
	clock := &usecase.RealTimeProvider{}

	hospitalClient := hospitalapi.NewClient(cfg.Hospital.BaseURL, cfg.Hospital.Timeout, log, m)

	app.watchHub = service.NewWatchHub(service.WatchHubConfig{
		PollInterval: cfg.Watch.PollInterval,
		IdleTimeout:  cfg.Watch.IdleTimeout,
	}, log, m)
	app.actionLocks = service.NewActionLockService(app.RedisClient, log, actionLockTTL)

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(app.RedisClient)

	var auditService service.AuditService
	if app.DB != nil {
		auditService = service.NewAuditService(app.DB, log, repository.NewAuditLogRepository())
	} else {
		auditService = service.NewLogAuditService(log)
	}

	registry := usecase.NewSessionRegistry(usecase.SessionRegistryDeps{
		SessionRepo: sessionRepo,
		APIFactory:  usecase.NewHospitalAPIFactory(hospitalClient),
		Audit:       auditService,
		Validator:   customValidator,
		Clock:       clock,
		Log:         log,
		SlotPolicy: usecase.SlotPolicy{
			FallbackTime:   cfg.Booking.FallbackTime,
			FutureFallback: cfg.Booking.FutureFallback,
		},
		IdleTimeout: scopeIdleTimeout,
	})

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(log, hospitalClient, sessionRepo, registry, app.watchHub, auditService, jwtService)
	liveQueueUsecase := usecase.NewLiveQueueUsecase(log, registry, sessionRepo, app.watchHub, clock)
	dashboardUsecase := usecase.NewDoctorDashboardUsecase(log, registry, sessionRepo, app.watchHub, app.actionLocks, auditService, clock)
	cabinUsecase := usecase.NewCabinDisplayUsecase(log, registry, sessionRepo, app.watchHub, clock)
	queueUsecase := usecase.NewQueueManagementUsecase(log, registry, sessionRepo, app.actionLocks, auditService, clock)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, auditService)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	bookingWizardHandler := handler.NewBookingWizardHandler(registry, customValidator)
	liveQueueHandler := handler.NewLiveQueueHandler(liveQueueUsecase)
	dashboardHandler := handler.NewDoctorDashboardHandler(dashboardUsecase, customValidator)
	cabinHandler := handler.NewCabinDisplayHandler(cabinUsecase, customValidator)
	queueHandler := handler.NewQueueManagementHandler(queueUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authUsecase)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)
	if cfg.Limits.RPS > 0 {
		app.rateLimiter = middleware.NewRateLimiter(cfg.Limits.RPS, cfg.Limits.Burst)
	}

	// Drop in-process session scopes that have gone idle
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if err := scheduleScopeSweep(scheduler, scopeSweepSpec, registry, log); err != nil {
		return err
	}
	app.scheduler = scheduler
	app.scheduler.Start()

	// Initialize router
	router := deliveryHttp.NewRouter(
		authHandler,
		bookingWizardHandler,
		liveQueueHandler,
		dashboardHandler,
		cabinHandler,
		queueHandler,
		auditLogHandler,
		authMiddleware,
		corsMiddleware,
		app.rateLimiter,
		m,
		cfg.Metrics.Path,
	)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	app.Server = &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

// scheduleScopeSweep registers the periodic drop of idle session scopes.
func scheduleScopeSweep(scheduler *cron.Cron, spec string, registry usecase.SessionRegistry, log *logrus.Logger) error {
	_, err := scheduler.AddFunc(spec, func() {
		if dropped := registry.Sweep(time.Now()); dropped > 0 {
			log.Infof("Dropped %d idle session scopes", dropped)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session scope sweep: %w", err)
	}
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		logrus.Infof("Hospital API: %s", app.Config.Hospital.BaseURL)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close stops background workers, then closes database and Redis.
func (app *App) Close() {
	if app.watchHub != nil {
		app.watchHub.Close()
	}
	if app.actionLocks != nil {
		app.actionLocks.Stop()
	}
	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}
	if app.scheduler != nil {
		<-app.scheduler.Stop().Done()
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
