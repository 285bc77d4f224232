package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable marks connectivity, timeout and conflict failures that are safe to retry.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// Repository exposes the paginated read path and the transaction boundary used by moves.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*domain.Record, error)
	GetByID(ctx context.Context, id int64) (*domain.Record, error)
	// WithinTx runs fn in one transaction. It commits when fn returns nil and rolls
	// back on any error, panic or context cancellation. Implementations must
	// serialize concurrent transactions that mutate overlapping key ranges.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of store operations available inside a move transaction.
type Tx interface {
	GetByID(ctx context.Context, id int64) (*domain.Record, error)
	SortOrderOf(ctx context.Context, id int64) (int64, error)
	MinSortOrder(ctx context.Context) (*int64, error)
	MaxSortOrder(ctx context.Context) (*int64, error)
	// IDsInRange returns ids with sort_order in [low, high], ordered by sort_order then id.
	IDsInRange(ctx context.Context, low, high int64, limit int) ([]int64, error)
	UpdateSortOrder(ctx context.Context, id, sortOrder int64) error
	// CountSortOrderCollisions counts records holding any of keys, ignoring excludeIDs.
	CountSortOrderCollisions(ctx context.Context, keys []int64, excludeIDs []int64) (int64, error)
	// CountInSortOrderRange counts records with sort_order in [low, high], ignoring excludeIDs.
	CountInSortOrderRange(ctx context.Context, low, high int64, excludeIDs []int64) (int64, error)
}
