package domain

// ReindexAssignment is one planned key rewrite.
type ReindexAssignment struct {
	RecordID  int64
	SortOrder int64
}

// ReindexReport summarizes a reindex of the inclusive range [Low, High].
// Capped is set when the batch limit was reached, so rows may remain unvisited.
type ReindexReport struct {
	Low       int64
	High      int64
	Rewritten int
	Capped    bool
}

// PlanReindex assigns evenly spaced keys to ids, which must already be ordered by
// their current key. Reapplying the plan to the same ids yields the same keys.
func PlanReindex(ids []int64) []ReindexAssignment {
	plan := make([]ReindexAssignment, 0, len(ids))
	for i, id := range ids {
		plan = append(plan, ReindexAssignment{RecordID: id, SortOrder: ReindexKey(i)})
	}
	return plan
}

// Keys returns the planned keys in order.
func Keys(plan []ReindexAssignment) []int64 {
	keys := make([]int64, len(plan))
	for i, a := range plan {
		keys[i] = a.SortOrder
	}
	return keys
}

// RecordIDs returns the planned record ids in order.
func RecordIDs(plan []ReindexAssignment) []int64 {
	ids := make([]int64, len(plan))
	for i, a := range plan {
		ids[i] = a.RecordID
	}
	return ids
}
