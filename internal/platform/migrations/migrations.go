package migrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedVersion identifies the seed step in schema_migrations.
const SeedVersion = "populate data in table records"

// Seed defaults mirror the bulk loader used to populate demo databases.
const (
	DefaultSeedCount     = 1_000_000
	DefaultSeedBatchSize = 100_000
	seedStep             = 1000
)

// Run applies the schema. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&recordRow{},
		&moveIdempotencyRow{},
		&queryLogRow{},
		&schemaMigration{},
	)
}

// Record schema mirrors the records Postgres adapter.
type recordRow struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	SortOrder int64     `gorm:"column:sort_order;not null;index:idx_records_sort_order"`
	Name      string    `gorm:"column:record_name;index:idx_record_name"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (recordRow) TableName() string { return "records" }

// Idempotency schema mirrors the records Postgres idempotency store.
type moveIdempotencyRow struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128;not null"`
	RecordID    int64     `gorm:"column:record_id;not null"`
	SortOrder   int64     `gorm:"column:sort_order;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (moveIdempotencyRow) TableName() string { return "record_move_idempotency_keys" }

// Query log schema mirrors the platform postgres query log store.
type queryLogRow struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Level     string    `gorm:"column:level;type:varchar(16);index"`
	Message   string    `gorm:"column:message;type:text"`
	Query     *string   `gorm:"column:query;type:text"`
	Params    *string   `gorm:"column:params;type:jsonb"`
	Error     *string   `gorm:"column:error;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (queryLogRow) TableName() string { return "query_logs" }

type schemaMigration struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Version   string    `gorm:"column:version;size:255;uniqueIndex"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (schemaMigration) TableName() string { return "schema_migrations" }

// SeedOptions controls the bulk record loader.
type SeedOptions struct {
	Count     int
	BatchSize int
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Inserted int
	Skipped  bool
}

// Seed fills an empty records table with Count rows keyed n*1000 with pseudo-random
// names, inserting in batches. The step is recorded in schema_migrations and runs once.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions) (SeedResult, error) {
	if db == nil {
		return SeedResult{}, errors.New("seed requires a database connection")
	}
	if opts.Count <= 0 {
		opts.Count = DefaultSeedCount
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultSeedBatchSize
	}

	var result SeedResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applied int64
		if err := tx.Model(&schemaMigration{}).Where("version = ?", SeedVersion).Count(&applied).Error; err != nil {
			return err
		}
		if applied > 0 {
			result.Skipped = true
			return nil
		}
		var existing int64
		if err := tx.Model(&recordRow{}).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			result.Skipped = true
			return nil
		}
		for start := 1; start <= opts.Count; start += opts.BatchSize {
			end := start + opts.BatchSize - 1
			if end > opts.Count {
				end = opts.Count
			}
			insert := tx.Exec(`INSERT INTO records (id, sort_order, record_name, created_at, updated_at)
SELECT n, n * ?, left(md5(n::text), 12), now(), now()
FROM generate_series(?::bigint, ?::bigint) AS n`, seedStep, start, end)
			if insert.Error != nil {
				return fmt.Errorf("seed batch %d-%d: %w", start, end, insert.Error)
			}
			result.Inserted += int(insert.RowsAffected)
		}
		if err := tx.Exec(`SELECT setval(pg_get_serial_sequence('records', 'id'), (SELECT COALESCE(MAX(id), 1) FROM records))`).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&schemaMigration{Version: SeedVersion, AppliedAt: time.Now().UTC()}).Error
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}
