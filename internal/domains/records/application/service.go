package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

const (
	// DefaultListLimit applies when the caller passes a non-positive limit.
	DefaultListLimit = 100
	// MaxListLimit bounds a single page.
	MaxListLimit = 1000
	// DefaultMoveTimeout bounds one move transaction.
	DefaultMoveTimeout = 5 * time.Second
)

// Service orchestrates record ordering use cases.
type Service struct {
	repo        ports.Repository
	reindexer   *Reindexer
	logger      *slog.Logger
	moveTimeout time.Duration
	idempotency ports.IdempotencyStore
}

// Option customizes the Service.
type Option func(*Service)

// WithLogger sets the sink for degraded reads and reindex events. Logging never
// affects the outcome of an operation.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMoveTimeout bounds each move transaction; zero or negative disables the bound.
func WithMoveTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.moveTimeout = d
	}
}

// WithIdempotencyStore enables replay of moves carrying an idempotency key.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// WithReindexBatchSize overrides the reindex batch cap.
func WithReindexBatchSize(n int) Option {
	return func(s *Service) {
		s.reindexer = NewReindexer(n)
	}
}

// NewService wires the records service with its repository.
func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		reindexer:   NewReindexer(domain.ReindexBatchSize),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		moveTimeout: DefaultMoveTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ListRecords returns one page ordered by sort order. Store failures are logged and
// yield an empty page.
func (s *Service) ListRecords(ctx context.Context, limit, offset int) []*domain.Record {
	limit, offset = normalizePage(limit, offset)
	records, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "listing records failed, returning empty page",
			slog.Int("limit", limit), slog.Int("offset", offset), slog.String("error", err.Error()))
		return []*domain.Record{}
	}
	if records == nil {
		records = []*domain.Record{}
	}
	return records
}

// GetRecord loads a single record.
func (s *Service) GetRecord(ctx context.Context, id int64) (*domain.Record, error) {
	if id <= 0 {
		return nil, mapError(domain.ErrInvalidRecordID)
	}
	return s.repo.GetByID(ctx, id)
}

// MoveRecord repositions a record inside a single transaction. A missing target
// returns ports.ErrNotFound without writing anything.
func (s *Service) MoveRecord(ctx context.Context, req domain.MoveRequest) (*ports.MoveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, mapError(err)
	}
	if s.moveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.moveTimeout)
		defer cancel()
	}
	key := idempotencyKey(req)
	var fingerprint string
	if key != "" && s.idempotency != nil {
		hash, err := FingerprintMove(req)
		if err != nil {
			return nil, err
		}
		fingerprint = hash
		replayed, err := s.replay(ctx, key, fingerprint)
		if err != nil {
			return nil, mapError(err)
		}
		if replayed != nil {
			return replayed, nil
		}
	}
	var result *ports.MoveResult
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		moved, err := s.move(ctx, tx, req)
		if err != nil {
			return err
		}
		result = moved
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	if fingerprint != "" {
		if err := s.remember(ctx, key, fingerprint, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Service) move(ctx context.Context, tx ports.Tx, req domain.MoveRequest) (*ports.MoveResult, error) {
	if _, err := tx.GetByID(ctx, req.RecordID); err != nil {
		return nil, err
	}
	neighbors, err := resolveNeighbors(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	result := &ports.MoveResult{}
	alloc, err := s.allocate(ctx, tx, neighbors)
	if err != nil {
		return nil, err
	}
	if alloc.Exhausted() {
		report, err := s.reindexer.Reindex(ctx, tx, alloc.Low, alloc.High, req.RecordID)
		if err != nil {
			return nil, err
		}
		result.Reindex = &report
		s.logger.LogAttrs(ctx, slog.LevelInfo, "reindexed records",
			slog.Int64("range.low", report.Low), slog.Int64("range.high", report.High),
			slog.Int("rewritten", report.Rewritten), slog.Bool("capped", report.Capped))

		if neighbors, err = resolveNeighbors(ctx, tx, req); err != nil {
			return nil, err
		}
		if alloc, err = s.allocate(ctx, tx, neighbors); err != nil {
			return nil, err
		}
		if alloc.Exhausted() {
			return nil, fmt.Errorf("%w: [%d, %d] still exhausted after reindex", domain.ErrKeySpaceExhausted, alloc.Low, alloc.High)
		}
	}

	collisions, err := tx.CountSortOrderCollisions(ctx, []int64{alloc.Key}, []int64{req.RecordID})
	if err != nil {
		return nil, err
	}
	if collisions > 0 {
		return nil, fmt.Errorf("%w: key %d is already in use", domain.ErrInvariantViolation, alloc.Key)
	}
	if err := tx.UpdateSortOrder(ctx, req.RecordID, alloc.Key); err != nil {
		return nil, err
	}
	record, err := tx.GetByID(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}
	result.Record = record
	result.Allocation = alloc
	return result, nil
}

// allocate fetches only the list extent the boundary case needs.
func (s *Service) allocate(ctx context.Context, tx ports.Tx, neighbors neighborKeys) (domain.Allocation, error) {
	var extent domain.Extent
	switch {
	case neighbors.Before == nil:
		minKey, err := tx.MinSortOrder(ctx)
		if err != nil {
			return domain.Allocation{}, err
		}
		extent.Min = minKey
	case neighbors.After == nil:
		maxKey, err := tx.MaxSortOrder(ctx)
		if err != nil {
			return domain.Allocation{}, err
		}
		extent.Max = maxKey
	}
	return domain.Allocate(neighbors.Before, neighbors.After, extent)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ ports.Service = (*Service)(nil)
