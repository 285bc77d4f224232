package ports

import (
	"context"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
)

// WorkflowOrchestrator runs moves, optionally through a durable workflow engine.
type WorkflowOrchestrator interface {
	MoveRecord(ctx context.Context, req domain.MoveRequest) (*MoveResult, error)
}
