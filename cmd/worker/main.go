package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	recordsmemory "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/memory"
	recordsobs "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/observability"
	recordspostgres "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/persistence/postgres"
	recordsapp "github.com/Apurer/go-gin-records-api/internal/domains/records/application"
	recordsports "github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
	platformobservability "github.com/Apurer/go-gin-records-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-records-api/internal/platform/postgres"
	recordactivities "github.com/Apurer/go-gin-records-api/internal/platform/temporal/activities/records"
	recordworkflows "github.com/Apurer/go-gin-records-api/internal/platform/temporal/workflows/records"
)

func main() {
	ctx := context.Background()
	const serviceName = "records-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	recordRepo, idempotencyStore, cleanupRepo := buildRecordRepository(ctx, logger)
	defer cleanupRepo()
	recordService := recordsobs.New(
		recordsapp.NewService(recordRepo, recordsapp.WithLogger(logger), recordsapp.WithIdempotencyStore(idempotencyStore)),
		recordsobs.WithLogger(logger),
		recordsobs.WithTracer(instruments.Tracer("internal.records.application")),
		recordsobs.WithMeter(instruments.Meter("internal.records.application")),
	)
	recordActivities := recordactivities.NewActivities(recordService)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, recordworkflows.MoveTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(recordworkflows.MoveWorkflow, workflow.RegisterOptions{Name: recordworkflows.MoveWorkflowName})
	w.RegisterActivityWithOptions(recordActivities.MoveRecord, activity.RegisterOptions{Name: recordactivities.MoveRecordActivityName})

	logger.Info("worker listening", slog.String("taskQueue", recordworkflows.MoveTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

func buildRecordRepository(ctx context.Context, logger *slog.Logger) (recordsports.Repository, recordsports.IdempotencyStore, func()) {
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	if db == nil {
		return recordsmemory.NewRepository(), recordsmemory.NewIdempotencyStore(), cleanup
	}
	logger.Info("worker record repository configured with postgres")
	return recordspostgres.NewRepository(db), recordspostgres.NewIdempotencyStore(db), cleanup
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
