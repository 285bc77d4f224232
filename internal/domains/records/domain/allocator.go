package domain

import "fmt"

// AllocationKind distinguishes how a key was produced.
type AllocationKind int

const (
	AllocationBoundary AllocationKind = iota + 1
	AllocationMidpoint
	AllocationExhausted
)

func (k AllocationKind) String() string {
	switch k {
	case AllocationBoundary:
		return "boundary"
	case AllocationMidpoint:
		return "midpoint"
	case AllocationExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("AllocationKind(%d)", int(k))
	}
}

// Allocation is the outcome of Allocate. For AllocationExhausted, Key is unset and
// Low/High bound the range that must be reindexed before retrying.
type Allocation struct {
	Kind AllocationKind
	Key  int64
	Low  int64
	High int64
}

// Exhausted reports whether the allocation needs a reindex first.
func (a Allocation) Exhausted() bool {
	return a.Kind == AllocationExhausted
}

// Extent carries the current smallest and largest keys of the list. Nil means empty.
// Only the side a boundary move needs has to be populated.
type Extent struct {
	Min *int64
	Max *int64
}

// Allocate computes the key for a record placed after before and ahead of after.
// A nil before key means the front of the list and takes precedence over after.
func Allocate(before, after *int64, extent Extent) (Allocation, error) {
	switch {
	case before == nil:
		key, err := FrontKey(extent.Min)
		if err != nil {
			return Allocation{}, err
		}
		return Allocation{Kind: AllocationBoundary, Key: key}, nil
	case after == nil:
		key, err := EndKey(extent.Max)
		if err != nil {
			return Allocation{}, err
		}
		return Allocation{Kind: AllocationBoundary, Key: key}, nil
	default:
		return AllocateBetween(*before, *after), nil
	}
}

// AllocateBetween returns the midpoint of two neighbor keys, or an exhaustion signal
// when they leave no room. The order of the arguments does not matter.
func AllocateBetween(a, b int64) Allocation {
	if Adjacent(a, b) {
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		return Allocation{Kind: AllocationExhausted, Low: lo, High: hi}
	}
	return Allocation{Kind: AllocationMidpoint, Key: Midpoint(a, b)}
}
