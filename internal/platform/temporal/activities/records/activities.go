package records

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	recordsapp "github.com/Apurer/go-gin-records-api/internal/domains/records/application"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	recordsports "github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

const (
	// MoveRecordActivityName repositions a record inside one store transaction.
	MoveRecordActivityName = "records.activities.MoveRecord"
)

// Application error types carried across the Temporal boundary. Each maps back onto a
// sentinel in the workflows adapter.
const (
	ErrTypeNotFound          = "RecordNotFound"
	ErrTypeInvalidInput      = "InvalidMoveInput"
	ErrTypeKeySpaceExhausted = "KeySpaceExhausted"
	ErrTypeInvariant         = "OrderingInvariantViolation"
	ErrTypeStoreUnavailable  = "StoreUnavailable"

	ErrTypeIdempotencyConflict = "IdempotencyConflict"
)

// Activities groups activities that operate on the records bounded context.
type Activities struct {
	service recordsports.Service
}

// NewActivities wires the records service into the Temporal activities bundle.
func NewActivities(service recordsports.Service) *Activities {
	return &Activities{service: service}
}

// MoveRecord runs the move orchestration. Deterministic rejections are returned as
// non-retryable application errors; store outages and exhausted key space stay retryable.
func (a *Activities) MoveRecord(ctx context.Context, req domain.MoveRequest) (*recordsports.MoveResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("record move activity not initialized", "recordId", req.RecordID)
		return nil, errors.New("record move activity not initialized")
	}
	logger.Info("MoveRecord activity started", "recordId", req.RecordID)
	result, err := a.service.MoveRecord(ctx, req)
	if err != nil {
		logger.Error("MoveRecord activity failed", "recordId", req.RecordID, "error", err)
		return nil, toApplicationError(err)
	}
	logger.Info("MoveRecord activity completed", "recordId", req.RecordID, "sortOrder", result.Record.SortOrder)
	return result, nil
}

func toApplicationError(err error) error {
	switch {
	case errors.Is(err, recordsports.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	case errors.Is(err, recordsapp.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, domain.ErrKeySpaceExhausted):
		// A retry runs in a fresh transaction and widens the neighbors again.
		return temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeKeySpaceExhausted, err)
	case errors.Is(err, domain.ErrInvariantViolation):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvariant, err)
	case errors.Is(err, recordsports.ErrIdempotencyConflict):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeIdempotencyConflict, err)
	case errors.Is(err, recordsports.ErrStoreUnavailable):
		return temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeStoreUnavailable, err)
	default:
		return err
	}
}
