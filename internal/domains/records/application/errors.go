package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid move input")
	// ErrNeighborNotFound signals that a named neighbor does not exist.
	ErrNeighborNotFound = errors.New("neighbor record not found")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidRecordID) ||
		errors.Is(err, domain.ErrInvalidNeighborID) ||
		errors.Is(err, domain.ErrSelfReference) ||
		errors.Is(err, domain.ErrSameNeighbors) ||
		errors.Is(err, domain.ErrIdempotencyKey) ||
		errors.Is(err, ErrNeighborNotFound) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ports.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
	return err
}
