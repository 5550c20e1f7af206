package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/catalog"
	"github.com/lumostories/telemetry-api/internal/config"
	"github.com/lumostories/telemetry-api/internal/database"
	"github.com/lumostories/telemetry-api/internal/handler"
	"github.com/lumostories/telemetry-api/internal/middleware"
	"github.com/lumostories/telemetry-api/internal/models"
	"github.com/lumostories/telemetry-api/internal/repository"
	"github.com/lumostories/telemetry-api/internal/router"
	"github.com/lumostories/telemetry-api/internal/service"
	"github.com/lumostories/telemetry-api/pkg/sheets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	location, err := time.LoadLocation(cfg.LogTimezone)
	if err != nil {
		log.Fatalf("failed to load log timezone %q: %v", cfg.LogTimezone, err)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.LogEntry{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("failed to load action catalog: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	logRepo := repository.NewLogEntryRepository(db)
	claimsStore := repository.NewClaimsStore(redisClient)

	normalizer := service.NewNormalizer(location)
	sink := service.NewLogSink(logRepo, cfg.ActivityLogEnabled, cfg.SinkFailureThreshold, logger)
	if err := sink.Warmup(context.Background()); err != nil {
		// A cold store at boot leaves the sink inactive; the process still
		// serves reads and can be re-enabled later.
		logger.Warn().Err(err).Msg("activity log sink starting inactive")
	}

	logService := service.NewLogService(normalizer, sink, cat, natsConn, logger)
	queryService := service.NewActivityQueryService(logRepo, cfg.DefaultPageSize, cfg.MaxPageSize, logger)
	dashboardService := service.NewDashboardService(queryService, redisClient, cfg.SummaryCacheTTL, cfg.MaxAggregationDays, cfg.MaxExportRows, logger)
	sanctionService := service.NewSanctionService(claimsStore, logService, validate, logger)

	var sheetWriter service.SheetWriter
	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
		sheetService, err := sheets.New(context.Background(), sheets.Config{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			CredentialsJSON: cfg.SheetsCredentialsJSON,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create sheets client: %v", err)
		}
		sheetWriter = sheetService
	}

	exportService := service.NewExportService(queryService, sheetWriter, logService, cfg.MaxExportRows, logger)

	eventHandler := handler.NewEventHandler(logService, logger)
	activityHandler := handler.NewAdminActivityHandler(queryService, logService, logger)
	dashboardHandler := handler.NewAdminDashboardHandler(dashboardService, logger)
	exportHandler := handler.NewAdminExportHandler(exportService, logger)
	sanctionHandler := handler.NewAdminSanctionHandler(sanctionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		EventHandler:          eventHandler,
		AdminActivityHandler:  activityHandler,
		AdminDashboardHandler: dashboardHandler,
		AdminExportHandler:    exportHandler,
		AdminSanctionHandler:  sanctionHandler,
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
