package application

import (
	"context"
	"fmt"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

// Reindexer rewrites the keys of a contiguous key range with evenly spaced values.
// It must run inside the caller's transaction and is not safe against concurrent
// writers on the same range; the store's transaction locking provides that.
type Reindexer struct {
	batchSize int
}

// NewReindexer returns a Reindexer capped at batchSize rows; non-positive values use
// domain.ReindexBatchSize.
func NewReindexer(batchSize int) *Reindexer {
	if batchSize <= 0 {
		batchSize = domain.ReindexBatchSize
	}
	return &Reindexer{batchSize: batchSize}
}

// Reindex rewrites at most one batch of records with keys in [low, high]. ignore lists
// records the caller rewrites afterwards; they do not block the plan.
//
// The plan is refused with domain.ErrInvariantViolation when any other record holds a
// key between the batch's old and new keys, since rewriting would then change its
// position relative to the batch.
func (r *Reindexer) Reindex(ctx context.Context, tx ports.Tx, low, high int64, ignore ...int64) (domain.ReindexReport, error) {
	if low > high {
		low, high = high, low
	}
	report := domain.ReindexReport{Low: low, High: high}
	ids, err := tx.IDsInRange(ctx, low, high, r.batchSize)
	if err != nil {
		return report, err
	}
	report.Capped = len(ids) >= r.batchSize
	plan := domain.PlanReindex(ids)
	if len(plan) == 0 {
		return report, nil
	}
	spanLow, spanHigh, err := planSpan(ctx, tx, plan)
	if err != nil {
		return report, err
	}
	excluded := append(domain.RecordIDs(plan), ignore...)
	overlapping, err := tx.CountInSortOrderRange(ctx, spanLow, spanHigh, excluded)
	if err != nil {
		return report, err
	}
	if overlapping > 0 {
		return report, fmt.Errorf("%w: reindex of [%d, %d] would reorder %d record(s) in [%d, %d]",
			domain.ErrInvariantViolation, low, high, overlapping, spanLow, spanHigh)
	}
	for _, assignment := range plan {
		if err := tx.UpdateSortOrder(ctx, assignment.RecordID, assignment.SortOrder); err != nil {
			return report, err
		}
		report.Rewritten++
	}
	return report, nil
}

// planSpan covers both the current keys of the batch and the planned ones.
func planSpan(ctx context.Context, tx ports.Tx, plan []domain.ReindexAssignment) (int64, int64, error) {
	first, last := plan[0], plan[len(plan)-1]
	oldFirst, err := tx.SortOrderOf(ctx, first.RecordID)
	if err != nil {
		return 0, 0, err
	}
	oldLast, err := tx.SortOrderOf(ctx, last.RecordID)
	if err != nil {
		return 0, 0, err
	}
	return min(oldFirst, first.SortOrder), max(oldLast, last.SortOrder), nil
}
