package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

var (
	_ ports.Repository = (*Repository)(nil)
	_ ports.Tx         = (*tx)(nil)
)

// Repository is an in-memory record store. Transactions hold the write lock for their
// whole duration and operate on a staged copy that replaces the live set on commit.
type Repository struct {
	mu      sync.RWMutex
	records map[int64]domain.Record
	nextID  int64
}

func NewRepository() *Repository {
	return &Repository{records: map[int64]domain.Record{}}
}

// Seed inserts records as given. A zero ID is replaced by the next free identifier.
func (r *Repository) Seed(records ...domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if rec.ID == 0 {
			r.nextID++
			rec.ID = r.nextID
		} else if rec.ID > r.nextID {
			r.nextID = rec.ID
		}
		r.records[rec.ID] = rec
	}
}

// Reset removes every record.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = map[int64]domain.Record{}
	r.nextID = 0
}

func (r *Repository) List(_ context.Context, limit, offset int) ([]*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordered := sortedRecords(r.records)
	if offset >= len(ordered) {
		return []*domain.Record{}, nil
	}
	end := len(ordered)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]*domain.Record, 0, end-offset)
	for i := offset; i < end; i++ {
		rec := ordered[i]
		page = append(page, &rec)
	}
	return page, nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &rec, nil
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if fn == nil {
		return errors.New("transaction function is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := &tx{records: make(map[int64]domain.Record, len(r.records))}
	for id, rec := range r.records {
		staged.records[id] = rec
	}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.records = staged.records
	return nil
}

type tx struct {
	records map[int64]domain.Record
}

func (t *tx) GetByID(_ context.Context, id int64) (*domain.Record, error) {
	rec, ok := t.records[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &rec, nil
}

func (t *tx) SortOrderOf(_ context.Context, id int64) (int64, error) {
	rec, ok := t.records[id]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return rec.SortOrder, nil
}

func (t *tx) MinSortOrder(context.Context) (*int64, error) {
	var result *int64
	for _, rec := range t.records {
		if result == nil || rec.SortOrder < *result {
			v := rec.SortOrder
			result = &v
		}
	}
	return result, nil
}

func (t *tx) MaxSortOrder(context.Context) (*int64, error) {
	var result *int64
	for _, rec := range t.records {
		if result == nil || rec.SortOrder > *result {
			v := rec.SortOrder
			result = &v
		}
	}
	return result, nil
}

func (t *tx) IDsInRange(_ context.Context, low, high int64, limit int) ([]int64, error) {
	ids := []int64{}
	for _, rec := range sortedRecords(t.records) {
		if rec.SortOrder < low || rec.SortOrder > high {
			continue
		}
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func (t *tx) UpdateSortOrder(_ context.Context, id, sortOrder int64) error {
	rec, ok := t.records[id]
	if !ok {
		return ports.ErrNotFound
	}
	rec.SortOrder = sortOrder
	t.records[id] = rec
	return nil
}

func (t *tx) CountSortOrderCollisions(_ context.Context, keys []int64, excludeIDs []int64) (int64, error) {
	wanted := make(map[int64]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	excluded := make(map[int64]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	var count int64
	for id, rec := range t.records {
		if _, skip := excluded[id]; skip {
			continue
		}
		if _, hit := wanted[rec.SortOrder]; hit {
			count++
		}
	}
	return count, nil
}

func (t *tx) CountInSortOrderRange(_ context.Context, low, high int64, excludeIDs []int64) (int64, error) {
	excluded := make(map[int64]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	var count int64
	for id, rec := range t.records {
		if _, skip := excluded[id]; skip {
			continue
		}
		if rec.SortOrder >= low && rec.SortOrder <= high {
			count++
		}
	}
	return count, nil
}

func sortedRecords(records map[int64]domain.Record) []domain.Record {
	ordered := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		ordered = append(ordered, rec)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}
