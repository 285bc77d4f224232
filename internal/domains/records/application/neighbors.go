package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

// neighborKeys holds the current keys of the requested neighbors; nil when not requested.
type neighborKeys struct {
	Before *int64
	After  *int64
}

func resolveNeighbors(ctx context.Context, tx ports.Tx, req domain.MoveRequest) (neighborKeys, error) {
	before, err := resolveNeighbor(ctx, tx, req.BeforeID)
	if err != nil {
		return neighborKeys{}, err
	}
	after, err := resolveNeighbor(ctx, tx, req.AfterID)
	if err != nil {
		return neighborKeys{}, err
	}
	return neighborKeys{Before: before, After: after}, nil
}

func resolveNeighbor(ctx context.Context, tx ports.Tx, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	key, err := tx.SortOrderOf(ctx, *id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrNeighborNotFound, *id)
		}
		return nil, err
	}
	return &key, nil
}
