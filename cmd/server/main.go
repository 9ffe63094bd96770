package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/application/ingestion"
	"github.com/restocost/backend/internal/infrastructure/config"
	"github.com/restocost/backend/internal/infrastructure/lock"
	"github.com/restocost/backend/internal/infrastructure/logger"
	"github.com/restocost/backend/internal/infrastructure/notify"
	"github.com/restocost/backend/internal/infrastructure/persistence"
	"github.com/restocost/backend/internal/infrastructure/storage"
	"github.com/restocost/backend/internal/infrastructure/telemetry"
	"github.com/restocost/backend/internal/interfaces/http/handler"
	"github.com/restocost/backend/internal/interfaces/http/middleware"
	"github.com/restocost/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			RestoCost Backend API
//	@version		1.0
//	@description	Restaurant cost-control backend: invoice ingestion, recipe cost propagation and margin tracking.

//	@contact.name	API Support
//	@contact.url	https://github.com/restocost/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	EstablishmentAuth
//	@in							header
//	@name						X-Establishment-ID

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

	log.Info("Starting RestoCost Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Root context for background tasks (import worker, metric collection)
	rootCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// Telemetry: tracing, metrics, continuous profiling
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	logsProvider, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if logsProvider.IsEnabled() {
		// Tee application logs to the collector alongside stdout
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: logsProvider,
			Level:          cfg.Log.Level,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.ProfilerEnabled,
		ServerAddress:       cfg.Telemetry.ProfilerAddress,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database span instrumentation
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Transaction scope shared by the coordinator and the read-side handlers
	scope := persistence.NewGormTransactionScope(db.DB)

	// Per-establishment lock serializing cost events
	lockerFactory := lock.NewLockerFactory(cfg.Redis, cfg.Lock.TTL,
		lock.WithLogger(log),
		lock.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	locker, err := lockerFactory.CreateLocker()
	if err != nil {
		log.Fatal("Failed to create establishment locker", zap.Error(err))
	}

	// Outcome notifications
	var notifier costing.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, log)
		log.Info("Webhook notifier enabled", zap.String("url", cfg.Notify.WebhookURL))
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	// Rejected document archive
	var archiver costing.Archiver
	if cfg.Storage.Enabled {
		s3Archiver, err := storage.NewS3Archiver(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create S3 archiver", zap.Error(err))
		}
		ensureCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := s3Archiver.EnsureBucket(ensureCtx); err != nil {
			cancel()
			log.Fatal("Failed to ensure archive bucket", zap.Error(err))
		}
		cancel()
		archiver = s3Archiver
		log.Info("S3 archiver enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		archiver = storage.NewStubArchiver()
	}

	// Cost event coordinator and import pipeline
	coordinator := costing.NewCoordinator(scope, locker, notifier, archiver, log)
	importService := ingestion.NewImportService(scope, coordinator, log)

	if cfg.Import.WorkerEnabled {
		worker := ingestion.NewWorker(scope, importService, cfg.Import.PollInterval, cfg.Import.BatchSize, log)
		go worker.Run(rootCtx)
	} else {
		log.Info("Import worker disabled, jobs stay pending until another instance picks them up")
	}

	// Periodic cost engine metrics
	if cfg.Telemetry.Enabled {
		metricsSource := persistence.NewMetricsSource(db.DB)
		costMetrics, err := telemetry.NewCostMetrics(telemetry.CostMetricsConfig{
			Meter:           meterProvider.Meter(cfg.Telemetry.ServiceName),
			Logger:          log,
			BacklogProvider: metricsSource,
		})
		if err != nil {
			log.Fatal("Failed to initialize cost metrics", zap.Error(err))
		}
		costMetrics.StartPeriodicCollection(rootCtx, metricsSource, 5*time.Minute)
	}

	// Initialize HTTP handlers
	importHandler := handler.NewImportHandler(importService, scope)
	invoiceHandler := handler.NewInvoiceHandler(coordinator, scope)
	recipeHandler := handler.NewRecipeHandler(coordinator, scope)
	marginHandler := handler.NewMarginHandler(scope)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Tracing/Metrics/Profiling - Observability
	// 8. Establishment - Resolve establishment scope
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Observability middleware; each is a no-op when its concern is disabled
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Profiling())

	// Establishment scoping; system and health endpoints stay public
	establishmentConfig := middleware.DefaultEstablishmentConfig()
	establishmentConfig.SkipPaths = append(establishmentConfig.SkipPaths,
		"/api/v1/system",
		"/api/v1/ping",
	)
	establishmentConfig.Logger = log
	engine.Use(middleware.EstablishmentMiddlewareWithConfig(establishmentConfig))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Import pipeline (job submission, job status, rejected documents)
	importRoutes := router.NewDomainGroup("imports", "/imports")
	importRoutes.POST("", importHandler.Submit)
	importRoutes.GET("/rejected", importHandler.ListRejected)
	importRoutes.GET("/:id", importHandler.GetJob)

	// Invoices and their line articles
	invoiceRoutes := router.NewDomainGroup("invoices", "/invoices")
	invoiceRoutes.GET("/:id", invoiceHandler.GetByID)
	invoiceRoutes.DELETE("/:id", invoiceHandler.Delete)

	articleRoutes := router.NewDomainGroup("articles", "/articles")
	articleRoutes.PUT("/:id", invoiceHandler.UpdateArticle)
	articleRoutes.DELETE("/:id", invoiceHandler.DeleteArticle)

	// Recipes, their ingredients and version history
	recipeRoutes := router.NewDomainGroup("recipes", "/recipes")
	recipeRoutes.GET("", recipeHandler.List)
	recipeRoutes.GET("/:id", recipeHandler.GetByID)
	recipeRoutes.PUT("/:id", recipeHandler.Update)
	recipeRoutes.DELETE("/:id", recipeHandler.Delete)
	recipeRoutes.POST("/:id/duplicate", recipeHandler.Duplicate)
	recipeRoutes.GET("/:id/history", recipeHandler.History)

	ingredientRoutes := router.NewDomainGroup("ingredients", "/ingredients")
	ingredientRoutes.PUT("/:id", recipeHandler.UpdateIngredient)

	// Margin aggregates
	marginRoutes := router.NewDomainGroup("margins", "/margins")
	marginRoutes.GET("/daily", marginHandler.GetDaily)
	marginRoutes.GET("/live-score", marginHandler.GetLiveScore)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(importRoutes).
		Register(invoiceRoutes).
		Register(articleRoutes).
		Register(recipeRoutes).
		Register(ingredientRoutes).
		Register(marginRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
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
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	cancelBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := logsProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
