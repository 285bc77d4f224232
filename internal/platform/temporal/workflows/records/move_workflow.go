package records

import (
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	recordsports "github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
	"github.com/Apurer/go-gin-records-api/internal/platform/temporal/sequences"
)

const (
	// MoveWorkflowName is the public identifier for registering the workflow.
	MoveWorkflowName = "records.workflows.Move"
	// MoveTaskQueue is the queue consumed by the worker processing record moves.
	MoveTaskQueue = "RECORD_MOVES"
)

// MoveWorkflowInput captures the move request plus the caller's trace id.
type MoveWorkflowInput struct {
	Request domain.MoveRequest
	TraceID string
}

// MoveWorkflow orchestrates a single record move.
func MoveWorkflow(ctx workflow.Context, input MoveWorkflowInput) (*recordsports.MoveResult, error) {
	logger := workflow.GetLogger(ctx)
	recordID := input.Request.RecordID
	logger.Info("MoveWorkflow started", withTraceID(input.TraceID, "recordId", recordID)...)
	result, err := sequences.RunRecordMoveSequence(ctx, input.Request)
	if err != nil {
		logger.Error("MoveWorkflow failed", withTraceID(input.TraceID, "recordId", recordID, "error", err)...)
		return nil, err
	}
	logger.Info("MoveWorkflow completed", withTraceID(input.TraceID, "recordId", recordID, "sortOrder", result.Record.SortOrder)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
