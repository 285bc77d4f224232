package ports

import (
	"context"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
)

// MoveResult is the outcome of a completed move.
type MoveResult struct {
	Record     *domain.Record
	Allocation domain.Allocation
	// Reindex is set when the move had to compact neighbor keys first.
	Reindex *domain.ReindexReport
	// Replayed marks a result served from a stored idempotency key; Record then
	// reflects the current state and Allocation is left empty.
	Replayed bool
}

// Service exposes record ordering use cases to adapters.
type Service interface {
	// ListRecords never fails; store errors degrade to an empty page.
	ListRecords(ctx context.Context, limit, offset int) []*domain.Record
	GetRecord(ctx context.Context, id int64) (*domain.Record, error)
	MoveRecord(ctx context.Context, req domain.MoveRequest) (*MoveResult, error)
}
