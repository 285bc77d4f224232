package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore persists move idempotency keys in PostgreSQL. It requires a
// connection opened with TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres idempotency store not configured")
	}
	var row idempotencyKeyRow
	if err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return row.toPort(), nil
}

func (s *IdempotencyStore) Save(ctx context.Context, entry ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres idempotency store not configured")
	}
	row := idempotencyKeyRow{
		Key:         entry.Key,
		RequestHash: entry.RequestHash,
		RecordID:    entry.RecordID,
		SortOrder:   entry.SortOrder,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return row.toPort(), nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, classify(err)
	}
	existing, getErr := s.Get(ctx, entry.Key)
	if getErr != nil {
		return nil, getErr
	}
	if existing == nil {
		return nil, classify(err)
	}
	if existing.RequestHash != entry.RequestHash {
		return existing, ports.ErrIdempotencyConflict
	}
	return existing, nil
}

// idempotencyKeyRow is the schema of record_move_idempotency_keys.
type idempotencyKeyRow struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128;not null"`
	RecordID    int64     `gorm:"column:record_id;not null"`
	SortOrder   int64     `gorm:"column:sort_order;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (idempotencyKeyRow) TableName() string { return "record_move_idempotency_keys" }

func (r idempotencyKeyRow) toPort() *ports.IdempotencyRecord {
	return &ports.IdempotencyRecord{
		Key:         r.Key,
		RequestHash: r.RequestHash,
		RecordID:    r.RecordID,
		SortOrder:   r.SortOrder,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
