package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/application"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
	recordactivities "github.com/Apurer/go-gin-records-api/internal/platform/temporal/activities/records"
	recordworkflows "github.com/Apurer/go-gin-records-api/internal/platform/temporal/workflows/records"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalRecordWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineRecordWorkflows)(nil)
)

// TemporalRecordWorkflows runs record moves as Temporal workflows.
type TemporalRecordWorkflows struct {
	client    client.Client
	taskQueue string
}

// NewTemporalRecordWorkflows wires a Temporal client into the orchestrator.
func NewTemporalRecordWorkflows(c client.Client) *TemporalRecordWorkflows {
	return &TemporalRecordWorkflows{client: c, taskQueue: recordworkflows.MoveTaskQueue}
}

// MoveRecord starts the move workflow and waits for its result.
func (o *TemporalRecordWorkflows) MoveRecord(ctx context.Context, req domain.MoveRequest) (*ports.MoveResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal record workflows not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildMoveWorkflowID(req, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		recordworkflows.MoveWorkflowName,
		recordworkflows.MoveWorkflowInput{Request: req, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) && strings.TrimSpace(req.IdempotencyKey) != "" {
			existingRun := o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
			var result ports.MoveResult
			if err := existingRun.Get(ctx, &result); err != nil {
				return nil, fromWorkflowError(err)
			}
			result.Replayed = true
			return &result, nil
		}
		return nil, fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
	var result ports.MoveResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fromWorkflowError(err)
	}
	return &result, nil
}

// fromWorkflowError restores the sentinel carried by an activity application error so
// callers can classify Temporal failures the same way as inline ones.
func fromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case recordactivities.ErrTypeNotFound:
		return fmt.Errorf("%w: %s", ports.ErrNotFound, appErr.Message())
	case recordactivities.ErrTypeInvalidInput:
		return fmt.Errorf("%w: %s", application.ErrInvalidInput, appErr.Message())
	case recordactivities.ErrTypeKeySpaceExhausted:
		return fmt.Errorf("%w: %s", domain.ErrKeySpaceExhausted, appErr.Message())
	case recordactivities.ErrTypeInvariant:
		return fmt.Errorf("%w: %s", domain.ErrInvariantViolation, appErr.Message())
	case recordactivities.ErrTypeIdempotencyConflict:
		return fmt.Errorf("%w: %s", ports.ErrIdempotencyConflict, appErr.Message())
	case recordactivities.ErrTypeStoreUnavailable:
		return fmt.Errorf("%w: %s", ports.ErrStoreUnavailable, appErr.Message())
	default:
		return err
	}
}

// InlineRecordWorkflows executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineRecordWorkflows struct {
	service ports.Service
}

// NewInlineRecordWorkflows wraps the records service for synchronous execution.
func NewInlineRecordWorkflows(service ports.Service) *InlineRecordWorkflows {
	return &InlineRecordWorkflows{service: service}
}

// MoveRecord delegates to the application service without durable orchestration.
func (o *InlineRecordWorkflows) MoveRecord(ctx context.Context, req domain.MoveRequest) (*ports.MoveResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline record workflows not configured")
	}
	return o.service.MoveRecord(ctx, req)
}

func buildMoveWorkflowID(req domain.MoveRequest, traceComponent string) string {
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		return fmt.Sprintf("record-move-idem-%s", hashIdempotencyKey(key))
	}
	return fmt.Sprintf("record-move-%d-%s", req.RecordID, traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	traceComponent := workflowTraceID(ctx)
	if traceComponent != "" {
		return traceComponent
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	traceID := spanCtx.TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
