package application

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	recordsmemory "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/memory"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

func id(v int64) *int64 { return &v }

// spyRepo counts writes and can fail a chosen update inside the transaction.
type spyRepo struct {
	*recordsmemory.Repository
	updates  int
	failOnID int64
	listErr  error
}

func (s *spyRepo) List(ctx context.Context, limit, offset int) ([]*domain.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Repository.List(ctx, limit, offset)
}

func (s *spyRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return s.Repository.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return fn(ctx, &spyTx{Tx: tx, repo: s})
	})
}

type spyTx struct {
	ports.Tx
	repo *spyRepo
}

func (t *spyTx) UpdateSortOrder(ctx context.Context, id, sortOrder int64) error {
	if t.repo.failOnID != 0 && id == t.repo.failOnID {
		return errors.New("connection reset")
	}
	t.repo.updates++
	return t.Tx.UpdateSortOrder(ctx, id, sortOrder)
}

func newSpy(records ...domain.Record) *spyRepo {
	repo := recordsmemory.NewRepository()
	repo.Seed(records...)
	return &spyRepo{Repository: repo}
}

func threeRecords() []domain.Record {
	return []domain.Record{
		{ID: 1, SortOrder: 1000, Name: "Record 1"},
		{ID: 2, SortOrder: 2000, Name: "Record 2"},
		{ID: 3, SortOrder: 3000, Name: "Record 3"},
	}
}

func keysOf(t *testing.T, repo ports.Repository) map[int64]int64 {
	t.Helper()
	page, err := repo.List(context.Background(), 10000, 0)
	require.NoError(t, err)
	keys := make(map[int64]int64, len(page))
	for _, rec := range page {
		keys[rec.ID] = rec.SortOrder
	}
	return keys
}

func TestMoveRecord_ToFront(t *testing.T) {
	repo := newSpy(threeRecords()...)
	svc := NewService(repo)

	result, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 3, AfterID: id(1)})
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Record.SortOrder)
	require.Equal(t, "Record 3", result.Record.Name)
	require.Equal(t, domain.AllocationBoundary, result.Allocation.Kind)
	require.Nil(t, result.Reindex)
	require.Equal(t, 1, repo.updates)
}

func TestMoveRecord_ToEnd(t *testing.T) {
	repo := newSpy(threeRecords()...)
	svc := NewService(repo)

	result, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 1, BeforeID: id(3)})
	require.NoError(t, err)
	require.Equal(t, int64(4000), result.Record.SortOrder)
}

func TestMoveRecord_EndOfListUsesMaxKey(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 5000},
	)
	svc := NewService(repo)

	result, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 1, BeforeID: id(2)})
	require.NoError(t, err)
	require.Equal(t, int64(6000), result.Record.SortOrder)
}

func TestMoveRecord_WithoutNeighborsMovesToFront(t *testing.T) {
	repo := newSpy(threeRecords()...)
	svc := NewService(repo)

	result, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Record.SortOrder)
}

func TestMoveRecord_Between(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 2000},
		domain.Record{ID: 3, SortOrder: 3000},
		domain.Record{ID: 4, SortOrder: 4000},
		domain.Record{ID: 5, SortOrder: 5000},
	)
	svc := NewService(repo)

	result, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 4, BeforeID: id(2), AfterID: id(1)})
	require.NoError(t, err)
	require.Equal(t, int64(1500), result.Record.SortOrder)
	require.Equal(t, domain.AllocationMidpoint, result.Allocation.Kind)
	require.Equal(t, 1, repo.updates)
}

func TestMoveRecord_ExhaustedNeighborsReindexFirst(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 1001},
		domain.Record{ID: 3, SortOrder: 9000},
	)
	svc := NewService(repo)

	result, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 3, BeforeID: id(1), AfterID: id(2)})
	require.NoError(t, err)
	require.NotNil(t, result.Reindex)
	require.Equal(t, 2, result.Reindex.Rewritten)
	require.False(t, result.Reindex.Capped)

	keys := keysOf(t, repo)
	require.Equal(t, int64(1001), keys[1])
	require.Equal(t, int64(2001), keys[2])
	require.Equal(t, int64(1501), keys[3])
	require.Less(t, keys[1], keys[3])
	require.Less(t, keys[3], keys[2])
	require.Equal(t, 3, repo.updates)
}

func TestMoveRecord_TargetHoldingPlannedKeyStillMoves(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 1001},
		domain.Record{ID: 3, SortOrder: 2001},
	)
	svc := NewService(repo)

	result, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 3, BeforeID: id(1), AfterID: id(2)})
	require.NoError(t, err)
	require.Equal(t, int64(1501), result.Record.SortOrder)
	require.Equal(t, map[int64]int64{1: 1001, 2: 2001, 3: 1501}, keysOf(t, repo))
}

func TestMoveRecord_ReindexThatWouldReorderOthersIsRejected(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 1001},
		domain.Record{ID: 4, SortOrder: 1500},
		domain.Record{ID: 3, SortOrder: 5000},
	)
	svc := NewService(repo)

	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 3, BeforeID: id(1), AfterID: id(2)})
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
	require.Zero(t, repo.updates)
	require.Equal(t, map[int64]int64{1: 1000, 2: 1001, 4: 1500, 3: 5000}, keysOf(t, repo))
}

func TestMoveRecord_StillExhaustedAfterReindex(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1001},
		domain.Record{ID: 2, SortOrder: 1002},
		domain.Record{ID: 3, SortOrder: 9000},
	)
	// A one-row batch leaves the lower neighbor on 1001, so the gap never opens.
	svc := NewService(repo, WithReindexBatchSize(1))

	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 3, BeforeID: id(1), AfterID: id(2)})
	require.ErrorIs(t, err, domain.ErrKeySpaceExhausted)
	require.Equal(t, map[int64]int64{1: 1001, 2: 1002, 3: 9000}, keysOf(t, repo))
}

func TestMoveRecord_ReindexOntoNeighborKeyIsRejected(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 1001},
		domain.Record{ID: 3, SortOrder: 9000},
	)
	// A one-row batch would move the lower neighbor onto the upper neighbor's key.
	svc := NewService(repo, WithReindexBatchSize(1))

	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 3, BeforeID: id(1), AfterID: id(2)})
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
	require.Equal(t, map[int64]int64{1: 1000, 2: 1001, 3: 9000}, keysOf(t, repo))
}

func TestMoveRecord_NotFoundPerformsNoWrites(t *testing.T) {
	repo := newSpy(threeRecords()...)
	svc := NewService(repo)

	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 999})
	require.ErrorIs(t, err, ports.ErrNotFound)
	require.Zero(t, repo.updates)
}

func TestMoveRecord_MissingNeighborIsInvalidInput(t *testing.T) {
	repo := newSpy(threeRecords()...)
	svc := NewService(repo)

	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 1, BeforeID: id(2), AfterID: id(42)})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, ErrNeighborNotFound)
	require.False(t, errors.Is(err, ports.ErrNotFound))
	require.Zero(t, repo.updates)
}

func TestMoveRecord_ValidatesRequest(t *testing.T) {
	svc := NewService(newSpy(threeRecords()...))

	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 1, AfterID: id(1)})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrSelfReference)
}

func TestMoveRecord_MidpointCollisionIsInvariantViolation(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 1500},
		domain.Record{ID: 3, SortOrder: 2000},
		domain.Record{ID: 4, SortOrder: 3000},
	)
	svc := NewService(repo)

	// 1 and 3 are not adjacent; their midpoint is held by record 2.
	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 4, BeforeID: id(1), AfterID: id(3)})
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
	require.Zero(t, repo.updates)
}

func TestMoveRecord_FailedFinalWriteRollsBackReindex(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 1001},
		domain.Record{ID: 3, SortOrder: 9000},
	)
	repo.failOnID = 3
	svc := NewService(repo)

	_, err := svc.MoveRecord(context.Background(), domain.MoveRequest{RecordID: 3, BeforeID: id(1), AfterID: id(2)})
	require.Error(t, err)
	require.Equal(t, map[int64]int64{1: 1000, 2: 1001, 3: 9000}, keysOf(t, repo))
}

func TestMoveRecord_ExpiredContextRollsBack(t *testing.T) {
	repo := newSpy(threeRecords()...)
	svc := NewService(repo)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.MoveRecord(ctx, domain.MoveRequest{RecordID: 3, AfterID: id(1)})
	require.ErrorIs(t, err, ports.ErrStoreUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, map[int64]int64{1: 1000, 2: 2000, 3: 3000}, keysOf(t, repo))
}

func TestMoveRecord_RandomSequenceKeepsKeysUnique(t *testing.T) {
	const n = 20
	records := make([]domain.Record, 0, n)
	for i := int64(1); i <= n; i++ {
		records = append(records, domain.Record{ID: i, SortOrder: i * 3})
	}
	repo := newSpy(records...)
	svc := NewService(repo)
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()

	for step := 0; step < 300; step++ {
		page := svc.ListRecords(ctx, n, 0)
		require.Len(t, page, n)
		target := page[rng.Intn(n)].ID

		var others []*domain.Record
		for _, rec := range page {
			if rec.ID != target {
				others = append(others, rec)
			}
		}
		pos := rng.Intn(len(others) + 1)
		req := domain.MoveRequest{RecordID: target}
		switch {
		case pos == 0:
			req.AfterID = &others[0].ID
		case pos == len(others):
			req.BeforeID = &others[len(others)-1].ID
		default:
			req.BeforeID = &others[pos-1].ID
			req.AfterID = &others[pos].ID
		}

		_, err := svc.MoveRecord(ctx, req)
		if errors.Is(err, domain.ErrInvariantViolation) || errors.Is(err, domain.ErrKeySpaceExhausted) {
			continue
		}
		require.NoError(t, err)

		seen := map[int64]int64{}
		for recID, key := range keysOf(t, repo) {
			other, dup := seen[key]
			require.False(t, dup, "records %d and %d share key %d", recID, other, key)
			seen[key] = recID
		}
	}
}

func TestListRecords_Paginates(t *testing.T) {
	repo := newSpy(
		domain.Record{ID: 1, SortOrder: 1000},
		domain.Record{ID: 2, SortOrder: 2000},
		domain.Record{ID: 3, SortOrder: 3000},
		domain.Record{ID: 4, SortOrder: 4000},
		domain.Record{ID: 5, SortOrder: 5000},
	)
	svc := NewService(repo)

	page := svc.ListRecords(context.Background(), 3, 1)
	require.Len(t, page, 3)
	require.Equal(t, []int64{2, 3, 4}, []int64{page[0].ID, page[1].ID, page[2].ID})

	require.Len(t, svc.ListRecords(context.Background(), 3, 4), 1)
	require.Len(t, svc.ListRecords(context.Background(), 0, -1), 5)
}

func TestListRecords_StoreFailureReturnsEmptyPage(t *testing.T) {
	repo := newSpy(threeRecords()...)
	repo.listErr = errors.New("database error")
	svc := NewService(repo)

	page := svc.ListRecords(context.Background(), 10, 0)
	require.NotNil(t, page)
	require.Empty(t, page)
}

func TestGetRecord(t *testing.T) {
	svc := NewService(newSpy(threeRecords()...))

	rec, err := svc.GetRecord(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, int64(2000), rec.SortOrder)

	_, err = svc.GetRecord(context.Background(), 77)
	require.ErrorIs(t, err, ports.ErrNotFound)

	_, err = svc.GetRecord(context.Background(), 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}
