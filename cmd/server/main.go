package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appaudit "github.com/taxfiling/backend/internal/application/audit"
	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/infrastructure/config"
	"github.com/taxfiling/backend/internal/infrastructure/export"
	"github.com/taxfiling/backend/internal/infrastructure/logger"
	"github.com/taxfiling/backend/internal/infrastructure/persistence"
	"github.com/taxfiling/backend/internal/infrastructure/scheduler"
	"github.com/taxfiling/backend/internal/interfaces/http/handler"
	"github.com/taxfiling/backend/internal/interfaces/http/middleware"
	"github.com/taxfiling/backend/internal/interfaces/http/router"
)

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

	log.Info("Starting Tax Audit Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

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

	// Initialize repositories
	recordRepo := persistence.NewGormCalculationRecordRepository(db.DB)
	amendmentRepo := persistence.NewGormAmendmentRepository(db.DB)
	reportRepo := persistence.NewGormSummaryReportRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Export artifact storage
	storage, err := buildArtifactStorage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize export storage", zap.Error(err))
	}

	// Initialize application services
	versions := audit.NewVersionGenerator()
	calculationService := appaudit.NewCalculationService(recordRepo, versions)
	amendmentService := appaudit.NewAmendmentService(recordRepo, amendmentRepo, txScope, versions)
	reportingService := appaudit.NewReportingService(recordRepo, amendmentRepo, reportRepo)
	exportService := appaudit.NewExportService(reportRepo, recordRepo, export.NewRegistry(), storage, log)

	// Monthly summary scheduler
	summaryScheduler := scheduler.NewSummaryCronScheduler(
		cfg.Scheduler,
		reportingService,
		scheduler.NewGormCompanySource(db.DB),
		scheduler.NewGormJobRepository(db.DB),
		log,
	)
	if cfg.Scheduler.Enabled {
		if err := summaryScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start summary scheduler", zap.Error(err))
		}
		defer func() {
			if err := summaryScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping summary scheduler", zap.Error(err))
			}
		}()
		log.Info("Summary scheduler started",
			zap.Duration("check_interval", cfg.Scheduler.CheckInterval),
			zap.Int("run_hour_utc", cfg.Scheduler.RunHourUTC),
		)
	}

	// Initialize HTTP handlers
	calculationHandler := handler.NewCalculationHandler(calculationService)
	amendmentHandler := handler.NewAmendmentHandler(amendmentService)
	reportHandler := handler.NewReportHandler(reportingService, exportService)
	systemHandler := handler.NewSystemHandler(db, summaryScheduler)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so every later log line carries it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/healthz", systemHandler.Health)

	// Company scoping applies to every audit endpoint
	companyContext := middleware.CompanyContext(log)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.CalculationRoutes(calculationHandler, companyContext)).
		Register(handler.AmendmentRoutes(amendmentHandler, companyContext)).
		Register(handler.ReportRoutes(reportHandler, companyContext)).
		Register(handler.SystemRoutes(systemHandler))
	r.Setup()

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildArtifactStorage selects the export backend from configuration
func buildArtifactStorage(cfg *config.Config, log *zap.Logger) (export.ArtifactStorage, error) {
	switch cfg.Export.Backend {
	case "s3":
		storage, err := export.NewS3ArtifactStorage(&cfg.Export, export.WithLogger(log))
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := storage.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("Export storage ready",
			zap.String("backend", "s3"),
			zap.String("bucket", cfg.Export.S3Bucket))
		return storage, nil
	default:
		storage, err := export.NewFilesystemStorage(&export.FilesystemStorageConfig{
			BasePath: cfg.Export.BasePath,
			BaseURL:  cfg.Export.BaseURL,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Export storage ready",
			zap.String("backend", "filesystem"),
			zap.String("base_path", cfg.Export.BasePath))
		return storage, nil
	}
}
