package memory

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
)

// SequentialRecords builds n records keyed n*Step, named like the postgres seeder:
// the first 12 hex digits of md5 of the id.
func SequentialRecords(n int) []domain.Record {
	if n <= 0 {
		return nil
	}
	records := make([]domain.Record, 0, n)
	for i := 1; i <= n; i++ {
		sum := md5.Sum([]byte(strconv.Itoa(i)))
		records = append(records, domain.Record{
			ID:        int64(i),
			SortOrder: int64(i) * domain.Step,
			Name:      hex.EncodeToString(sum[:])[:12],
		})
	}
	return records
}
