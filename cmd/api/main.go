package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/scheduler-ai/cmd/mainconfig"
	"github.com/clinicdesk/scheduler-ai/internal/agent"
	"github.com/clinicdesk/scheduler-ai/internal/api/router"
	"github.com/clinicdesk/scheduler-ai/internal/availability"
	"github.com/clinicdesk/scheduler-ai/internal/booking"
	appconfig "github.com/clinicdesk/scheduler-ai/internal/config"
	"github.com/clinicdesk/scheduler-ai/internal/directory"
	"github.com/clinicdesk/scheduler-ai/internal/export"
	"github.com/clinicdesk/scheduler-ai/internal/http/handlers"
	"github.com/clinicdesk/scheduler-ai/internal/notify"
	"github.com/clinicdesk/scheduler-ai/internal/observability/metrics"
	"github.com/clinicdesk/scheduler-ai/internal/reports"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduler-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	schedMetrics := metrics.NewSchedulerMetrics(nil)

	// Language model behind the dialogue. Keyword fallback covers the case
	// where no provider is configured.
	var oracle agent.Oracle
	switch {
	case cfg.OracleProvider == "bedrock" && cfg.BedrockModelID != "":
		oracle = agent.NewBedrockOracle(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		logger.Info("using Bedrock oracle", "model", cfg.BedrockModelID)
	case cfg.GeminiAPIKey != "":
		gemini, err := agent.NewGeminiOracle(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		oracle = gemini
		logger.Info("using Gemini oracle", "model", cfg.GeminiModel)
	default:
		logger.Warn("no language model configured, using keyword extraction only")
	}

	roster := directory.NewPostgresRepository(pool)
	slots := availability.NewStore(pool)

	// Notification fan-out
	var email notify.EmailSender
	switch {
	case cfg.EmailProvider == "ses" && cfg.SESFromEmail != "":
		email = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case cfg.SendGridAPIKey != "":
		email = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	default:
		email = notify.NewStubEmailSender(logger)
	}
	whatsapp := notify.NewWhatsAppSender(notify.WhatsAppConfig{
		Token:         cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneID,
		TemplateName:  cfg.WhatsAppTemplate,
	}, logger)
	calendar := notify.NewStubCalendarSender(logger)

	var queue *notify.SQSQueue
	var memQueue *notify.MemoryQueue
	dispatcher := func() *notify.Dispatcher {
		switch {
		case cfg.UseMemoryQueue:
			memQueue = notify.NewMemoryQueue(64)
			return notify.NewDispatcher(roster, email, calendar, whatsapp, memQueue, logger)
		case cfg.NotifyQueueURL != "":
			queue = notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
			return notify.NewDispatcher(roster, email, calendar, whatsapp, queue, logger)
		default:
			return notify.NewDispatcher(roster, email, calendar, whatsapp, nil, logger)
		}
	}()
	dispatcher.OnResult = schedMetrics.ObserveNotification

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if memQueue != nil {
		go notify.NewWorker(memQueue, dispatcher, logger).Run(workerCtx)
	} else if queue != nil {
		go notify.NewWorker(queue, dispatcher, logger).Run(workerCtx)
	}

	engine := booking.NewEngine(pool, dispatcher, logger)
	engine.OnBooking = schedMetrics.ObserveBooking

	controller := agent.NewController(roster, slots, engine, oracle, logger)
	controller.OnTurn = schedMetrics.ObserveTurn
	controller.OnOracle = schedMetrics.ObserveOracle
	controller.OnLatency = schedMetrics.ObserveTurnLatency

	var sessions agent.SessionStore
	switch cfg.SessionBackend {
	case "dynamo":
		sessions = agent.NewDynamoSessionStore(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.SessionTTL)
	case "memory":
		sessions = agent.NewMemorySessionStore()
	default:
		sessions = agent.NewRedisSessionStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), cfg.SessionTTL)
	}
	chatHandler := agent.NewHandler(controller, sessions, logger)

	// Staff reports. Prompt history lives in its own database when
	// configured, mirroring how the analytics stack reads it.
	var history *reports.HistoryStore
	if cfg.HistoryDatabaseURL != "" {
		historyDB, err := sql.Open("postgres", cfg.HistoryDatabaseURL)
		if err != nil {
			logger.Error("failed to open history database", "error", err)
			os.Exit(1)
		}
		defer historyDB.Close()
		history = reports.NewHistoryStore(historyDB)
	}
	var historyLogger reports.HistoryLogger
	if history != nil {
		historyLogger = history
	}
	stats := reports.NewStatsStore(pool)
	reportService := reports.NewService(stats, oracle, whatsapp, historyLogger, logger)

	var exporter *export.Exporter
	if cfg.ExportBucket != "" {
		exporter = export.NewExporter(pool, s3.NewFromConfig(awsCfg), cfg.ExportBucket, logger)
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		ChatHandler:         chatHandler,
		DirectoryHandler:    handlers.NewDirectoryHandler(roster, logger),
		AvailabilityHandler: handlers.NewAvailabilityHandler(slots, logger),
		BookingHandler:      handlers.NewBookingHandler(engine, logger),
		ReportsHandler:      handlers.NewReportsHandler(reportService, stats, history, exporter, logger),
		MetricsHandler:      promhttp.Handler(),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopWorker()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
