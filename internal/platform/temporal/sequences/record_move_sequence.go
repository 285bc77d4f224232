package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	recordsports "github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
	recordactivities "github.com/Apurer/go-gin-records-api/internal/platform/temporal/activities/records"
)

// RunRecordMoveSequence executes the activity that repositions a record.
func RunRecordMoveSequence(ctx workflow.Context, req domain.MoveRequest) (*recordsports.MoveResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("record move sequence started", "recordId", req.RecordID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var result recordsports.MoveResult
	if err := workflow.ExecuteActivity(ctx, recordactivities.MoveRecordActivityName, req).Get(ctx, &result); err != nil {
		logger.Error("record move sequence failed", "recordId", req.RecordID, "error", err)
		return nil, err
	}
	logger.Info("record move sequence completed", "recordId", req.RecordID, "sortOrder", result.Record.SortOrder)
	return &result, nil
}
