package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	recordsserver "github.com/Apurer/go-gin-records-api/go"

	recordsmemory "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/memory"
	recordsobs "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/observability"
	recordspostgres "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/persistence/postgres"
	recordsworkflows "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/workflows"
	recordsapp "github.com/Apurer/go-gin-records-api/internal/domains/records/application"
	recordsports "github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
	"github.com/Apurer/go-gin-records-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-gin-records-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-records-api/internal/platform/postgres"
)

const serviceName = "records-api"

// Run boots the records HTTP API with observability, repositories, and workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()

	recordRepo, idempotencyStore, cleanupRepo := buildRecordRepository(ctx, cfg, instruments)
	defer cleanupRepo()
	logger := instruments.Logger

	coreService := recordsapp.NewService(
		recordRepo,
		recordsapp.WithLogger(logger),
		recordsapp.WithMoveTimeout(cfg.MoveTimeout),
		recordsapp.WithIdempotencyStore(idempotencyStore),
	)
	recordService := recordsobs.New(
		coreService,
		recordsobs.WithLogger(logger),
		recordsobs.WithTracer(instruments.Tracer("internal.records.application")),
		recordsobs.WithMeter(instruments.Meter("internal.records.application")),
	)
	var recordWorkflows recordsports.WorkflowOrchestrator = recordsworkflows.NewInlineRecordWorkflows(recordService)
	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, running moves inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		recordWorkflows = recordsworkflows.NewTemporalRecordWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	handlers := recordsserver.ApiHandleFunctions{
		RecordAPI: recordsserver.NewRecordAPI(recordService, recordWorkflows),
	}
	router := recordsserver.NewRouter(handlers)
	router.Use(otelgin.Middleware(serviceName))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("records API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("records API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
		logger.Info("shutting down records API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// buildRecordRepository prefers postgres and falls back to memory. With postgres the
// query log sink is attached to the process logger unless disabled.
func buildRecordRepository(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (recordsports.Repository, recordsports.IdempotencyStore, func()) {
	logger := instruments.Logger
	db, cleanup := platformpostgres.ConnectDSN(ctx, cfg.PostgresDSN, logger)
	if db == nil {
		repo := recordsmemory.NewRepository()
		if cfg.MemorySeedRecords > 0 {
			repo.Seed(recordsmemory.SequentialRecords(cfg.MemorySeedRecords)...)
			logger.Info("seeded in-memory record repository", slog.Int("records", cfg.MemorySeedRecords))
		}
		return repo, recordsmemory.NewIdempotencyStore(), cleanup
	}
	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Warn("failed to migrate records schema", slog.String("error", err.Error()))
		}
	}
	if !cfg.QueryLogDisabled {
		instruments.EnableQueryLog(platformpostgres.NewQueryLogStore(db), 0)
		db.Logger = platformpostgres.NewGormLogger(instruments.Logger)
		instruments.Logger.Info("query log enabled")
	}
	instruments.Logger.Info("record repository configured with postgres")
	return recordspostgres.NewRepository(db), recordspostgres.NewIdempotencyStore(db), cleanup
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
