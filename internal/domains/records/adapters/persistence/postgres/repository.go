package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

// orderingLockName keys the transaction-scoped advisory lock that serializes moves.
const orderingLockName = "records.ordering"

var (
	_ ports.Repository = (*Repository)(nil)
	_ ports.Tx         = (*txStore)(nil)
)

// Repository persists records in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and
// schema (see internal/platform/migrations).
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// recordRow maps a record to the records table.
type recordRow struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	SortOrder int64     `gorm:"column:sort_order;not null;index:idx_records_sort_order"`
	Name      string    `gorm:"column:record_name;index:idx_record_name"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (recordRow) TableName() string { return "records" }

// List returns a page ordered by sort_order, ties broken by id.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*domain.Record, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var rows []recordRow
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC").Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	records := make([]*domain.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toDomain())
	}
	return records, nil
}

// GetByID fetches a record without locking it.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Record, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return getByID(r.db.WithContext(ctx), id, false)
}

// WithinTx runs fn in a transaction holding the ordering advisory lock. GORM rolls
// back when fn returns an error or panics.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		if err := gtx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", orderingLockName).Error; err != nil {
			return err
		}
		return fn(ctx, &txStore{db: gtx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	return classify(err)
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres record repository not configured")
	}
	return nil
}

// txStore implements ports.Tx on top of an open GORM transaction.
type txStore struct {
	db *gorm.DB
}

func (t *txStore) GetByID(ctx context.Context, id int64) (*domain.Record, error) {
	return getByID(t.db.WithContext(ctx), id, true)
}

func (t *txStore) SortOrderOf(ctx context.Context, id int64) (int64, error) {
	rec, err := getByID(t.db.WithContext(ctx), id, true)
	if err != nil {
		return 0, err
	}
	return rec.SortOrder, nil
}

func (t *txStore) MinSortOrder(ctx context.Context) (*int64, error) {
	return t.aggregate(ctx, "MIN(sort_order)")
}

func (t *txStore) MaxSortOrder(ctx context.Context) (*int64, error) {
	return t.aggregate(ctx, "MAX(sort_order)")
}

func (t *txStore) aggregate(ctx context.Context, expr string) (*int64, error) {
	var value sql.NullInt64
	if err := t.db.WithContext(ctx).Model(&recordRow{}).Select(expr).Row().Scan(&value); err != nil {
		return nil, classify(err)
	}
	if !value.Valid {
		return nil, nil
	}
	return &value.Int64, nil
}

func (t *txStore) IDsInRange(ctx context.Context, low, high int64, limit int) ([]int64, error) {
	ids := []int64{}
	query := t.db.WithContext(ctx).Model(&recordRow{}).
		Where("sort_order BETWEEN ? AND ?", low, high).
		Order("sort_order ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

func (t *txStore) UpdateSortOrder(ctx context.Context, id, sortOrder int64) error {
	result := t.db.WithContext(ctx).Model(&recordRow{}).Where("id = ?", id).Update("sort_order", sortOrder)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (t *txStore) CountSortOrderCollisions(ctx context.Context, keys []int64, excludeIDs []int64) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var count int64
	query := t.db.WithContext(ctx).Model(&recordRow{}).Where("sort_order = ANY(?)", pq.Int64Array(keys))
	if len(excludeIDs) > 0 {
		query = query.Where("NOT (id = ANY(?))", pq.Int64Array(excludeIDs))
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, classify(err)
	}
	return count, nil
}

func (t *txStore) CountInSortOrderRange(ctx context.Context, low, high int64, excludeIDs []int64) (int64, error) {
	var count int64
	query := t.db.WithContext(ctx).Model(&recordRow{}).Where("sort_order BETWEEN ? AND ?", low, high)
	if len(excludeIDs) > 0 {
		query = query.Where("NOT (id = ANY(?))", pq.Int64Array(excludeIDs))
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, classify(err)
	}
	return count, nil
}

func getByID(db *gorm.DB, id int64, forUpdate bool) (*domain.Record, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row recordRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return row.toDomain(), nil
}

func (r recordRow) toDomain() *domain.Record {
	return &domain.Record{
		ID:        r.ID,
		SortOrder: r.SortOrder,
		Name:      r.Name,
	}
}
