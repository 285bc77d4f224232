package domain

import (
	"errors"
	"math"
)

const (
	// Step is the spacing between keys produced by boundary moves and reindexing.
	Step int64 = 1000
	// EmptyListFrontKey is assigned by a front move when the list has no keys.
	EmptyListFrontKey int64 = 1000
	// EmptyListEndKey is assigned by an end move when the list has no keys.
	EmptyListEndKey int64 = 100
	// ReindexBatchSize caps the rows rewritten by a single reindex.
	ReindexBatchSize = 1000
)

var (
	ErrKeySpaceExhausted  = errors.New("no sort order key available between neighbors")
	ErrInvariantViolation = errors.New("sort order would be shared by two records")
)

// FrontKey returns the key placing a record before minKey.
func FrontKey(minKey *int64) (int64, error) {
	if minKey == nil {
		return EmptyListFrontKey, nil
	}
	if *minKey < math.MinInt64+Step {
		return 0, ErrKeySpaceExhausted
	}
	return *minKey - Step, nil
}

// EndKey returns the key placing a record after maxKey.
func EndKey(maxKey *int64) (int64, error) {
	if maxKey == nil {
		return EmptyListEndKey, nil
	}
	if *maxKey > math.MaxInt64-Step {
		return 0, ErrKeySpaceExhausted
	}
	return *maxKey + Step, nil
}

// ReindexKey returns the key for the zero-based position inside a reindex batch.
func ReindexKey(position int) int64 {
	return (int64(position)+1)*Step + 1
}

// Midpoint is floor((a+b)/2) without overflowing int64.
func Midpoint(a, b int64) int64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < 0 && hi >= 0 {
		return floorHalf(lo + hi)
	}
	return lo + (hi-lo)/2
}

// Adjacent reports whether no integer lies strictly between a and b.
func Adjacent(a, b int64) bool {
	if a > b {
		a, b = b, a
	}
	if a < 0 && b >= 0 {
		return a == -1 && b == 0
	}
	return b-a <= 1
}

func floorHalf(v int64) int64 {
	if v < 0 && v%2 != 0 {
		return v/2 - 1
	}
	return v / 2
}
