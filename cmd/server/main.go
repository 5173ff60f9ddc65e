package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/infrastructure/cache"
	"github.com/hms/backend/internal/infrastructure/config"
	"github.com/hms/backend/internal/infrastructure/event"
	"github.com/hms/backend/internal/infrastructure/logger"
	"github.com/hms/backend/internal/infrastructure/persistence"
	"github.com/hms/backend/internal/infrastructure/telemetry"
	"github.com/hms/backend/internal/interfaces/http/handler"
	"github.com/hms/backend/internal/interfaces/http/middleware"
	"github.com/hms/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Boarding House Billing API
//	@version		1.0
//	@description	Booking billing, payment allocation and deposit ledger for boarding houses.

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	billingLocation, err := cfg.Billing.Location()
	if err != nil {
		log.Fatal("Invalid billing configuration", zap.Error(err))
	}

	telemetry.ServiceVersion = version
	ctx := context.Background()

	// OTLP logs first, so everything after is exported too
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	defer shutdownWithTimeout(log, "logger provider", loggerProvider.Shutdown)
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Telemetry.LogsMinLevel))

	log.Info("Starting boarding house billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("billing_timezone", cfg.Billing.Timezone),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownWithTimeout(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer shutdownWithTimeout(log, "meter provider", meterProvider.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileTypes:    cfg.Telemetry.ProfilingTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Telemetry.SpanProfilesEnabled && profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles unavailable", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	dbObserver, err := telemetry.NewDBObserver(telemetry.DBObserverConfig{
		Tracing:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		Metrics:         cfg.Telemetry.DBMetricsEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, meterProvider.Meter("hms/db"), log)
	if err != nil {
		log.Fatal("Failed to initialize database observer", zap.Error(err))
	}

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog, dbObserver)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBMetricsEnabled {
		if sqlDB, err := db.SQLDB(); err == nil {
			dbObserver.StartPoolStats(ctx, sqlDB)
		}
		defer dbObserver.Stop()
	}

	billingMetrics, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:           meterProvider.Meter("hms/billing"),
		Logger:          log,
		CollectInterval: cfg.Telemetry.BillingCollectInterval,
		Provider:        persistence.NewGormBillingSnapshotProvider(db.DB),
		Now:             func() time.Time { return time.Now().In(billingLocation) },
	})
	if err != nil {
		log.Fatal("Failed to initialize billing metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		billingMetrics.StartPeriodicCollection(ctx)
	}
	defer billingMetrics.Stop()

	// Event bus: metrics and the activity journal run after each commit
	eventSerializer := event.NewEventSerializer()
	event.RegisterBillingEvents(eventSerializer)

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewBillingMetricsHandler(billingMetrics))
	eventBus.Subscribe(event.NewActivityJournalHandler(eventSerializer, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Per-booking locks
	locker, err := cache.NewLockerFactory(cfg.Redis, cfg.Lock,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateLocker(ctx)
	if err != nil {
		log.Fatal("Failed to initialize booking locks", zap.Error(err))
	}
	defer func() {
		if err := locker.Close(); err != nil {
			log.Error("Error closing booking locks", zap.Error(err))
		}
	}()

	// Initialize application services
	scope := persistence.NewGormTransactionScope(db.DB)

	bookingService := appbooking.NewBookingService(scope, locker)
	paymentService := appbooking.NewPaymentService(scope, locker)
	ledgerService := appbooking.NewLedgerService(scope, locker)

	bookingService.SetClock(time.Now, billingLocation)
	bookingService.SetEventPublisher(eventBus)
	bookingService.SetLogger(log)
	paymentService.SetClock(time.Now, billingLocation)
	paymentService.SetEventPublisher(eventBus)
	paymentService.SetLogger(log)
	ledgerService.SetClock(time.Now, billingLocation)
	ledgerService.SetEventPublisher(eventBus)
	ledgerService.SetLogger(log)

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService, paymentService, ledgerService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)

	healthHandler := handler.NewHealthHandler(version, cfg.Billing.Timezone)
	healthHandler.AddCheck("database", db.Ping)
	if redisLocker, ok := locker.(*cache.RedisBookingLocker); ok {
		healthHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisLocker.Client().Ping(ctx).Err()
		})
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom validators with Gin's binding
	middleware.SetupValidator()

	// Initialize Gin engine
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies configuration", zap.Error(err))
	}

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Tracing, metrics and profiling labels
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	if tracerProvider.IsEnabled() {
		engine.Use(middleware.SpanEnricher())
	}
	engine.Use(middleware.HTTPMetrics(meterProvider, log))
	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = profiler.IsEnabled()
	engine.Use(middleware.ProfilingWithConfig(profilingConfig))

	// Health checks (outside API versioning)
	router.RegisterHealth(engine, healthHandler)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	billingRoutes := router.BillingRoutes(router.BillingHandlers{
		Bookings: bookingHandler,
		Payments: paymentHandler,
		Ledger:   ledgerHandler,
	})
	for _, group := range billingRoutes {
		r.Register(group)
	}
	r.Setup()

	// Create HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// shutdownWithTimeout runs a provider's Shutdown with its own deadline
func shutdownWithTimeout(log *zap.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
