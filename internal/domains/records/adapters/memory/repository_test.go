package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

func seeded() *Repository {
	repo := NewRepository()
	repo.Seed(
		domain.Record{ID: 1, SortOrder: 3000, Name: "c"},
		domain.Record{ID: 2, SortOrder: 1000, Name: "a"},
		domain.Record{ID: 3, SortOrder: 2000, Name: "b"},
		domain.Record{ID: 4, SortOrder: 2000, Name: "b-tie"},
	)
	return repo
}

func TestList_OrdersBySortOrderThenID(t *testing.T) {
	repo := seeded()

	page, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	ids := make([]int64, 0, len(page))
	for _, rec := range page {
		ids = append(ids, rec.ID)
	}
	require.Equal(t, []int64{2, 3, 4, 1}, ids)

	page, err = repo.List(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, int64(3), page[0].ID)

	page, err = repo.List(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	repo := seeded()
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.UpdateSortOrder(ctx, 1, 0)
	})
	require.NoError(t, err)

	rec, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), rec.SortOrder)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	repo := seeded()
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		require.NoError(t, tx.UpdateSortOrder(ctx, 1, 0))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3000), rec.SortOrder)
}

func TestWithinTx_RejectsCancelledContext(t *testing.T) {
	repo := seeded()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.WithinTx(ctx, func(context.Context, ports.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestTx_Queries(t *testing.T) {
	repo := seeded()
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		minKey, err := tx.MinSortOrder(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1000), *minKey)

		maxKey, err := tx.MaxSortOrder(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(3000), *maxKey)

		ids, err := tx.IDsInRange(ctx, 1500, 3000, 2)
		require.NoError(t, err)
		require.Equal(t, []int64{3, 4}, ids)

		n, err := tx.CountSortOrderCollisions(ctx, []int64{2000, 3000}, []int64{3})
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		inRange, err := tx.CountInSortOrderRange(ctx, 1500, 3000, []int64{3})
		require.NoError(t, err)
		require.Equal(t, int64(2), inRange)

		_, err = tx.SortOrderOf(ctx, 99)
		require.ErrorIs(t, err, ports.ErrNotFound)
		require.ErrorIs(t, tx.UpdateSortOrder(ctx, 99, 1), ports.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestTx_ExtentOfEmptyStore(t *testing.T) {
	repo := NewRepository()
	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		minKey, err := tx.MinSortOrder(ctx)
		require.NoError(t, err)
		require.Nil(t, minKey)
		maxKey, err := tx.MaxSortOrder(ctx)
		require.NoError(t, err)
		require.Nil(t, maxKey)
		return nil
	})
	require.NoError(t, err)
}
