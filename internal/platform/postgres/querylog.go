package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Apurer/go-gin-records-api/internal/platform/observability"
)

// QueryLogStore writes query log entries to the query_logs table.
type QueryLogStore struct {
	db *gorm.DB
}

// NewQueryLogStore uses a silent GORM session so writing logs never produces more logs.
func NewQueryLogStore(db *gorm.DB) *QueryLogStore {
	if db == nil {
		return &QueryLogStore{}
	}
	return &QueryLogStore{db: db.Session(&gorm.Session{Logger: gormlogger.Discard})}
}

type queryLogRow struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Level     string    `gorm:"column:level"`
	Message   string    `gorm:"column:message"`
	Query     *string   `gorm:"column:query"`
	Params    *string   `gorm:"column:params"`
	Error     *string   `gorm:"column:error"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (queryLogRow) TableName() string { return "query_logs" }

// WriteQueryLogs inserts the batch in one statement.
func (s *QueryLogStore) WriteQueryLogs(ctx context.Context, entries []observability.QueryLogEntry) error {
	if s == nil || s.db == nil {
		return errors.New("query log store not configured")
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([]queryLogRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, queryLogRow{
			Level:     entry.Level,
			Message:   entry.Message,
			Query:     entry.Query,
			Params:    entry.Params,
			Error:     entry.Error,
			CreatedAt: entry.Time.UTC(),
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

var _ observability.QueryLogWriter = (*QueryLogStore)(nil)
