package domain

import (
	"errors"
	"strings"
)

// MaxIdempotencyKeyLength bounds client-supplied idempotency keys.
const MaxIdempotencyKeyLength = 255

var (
	ErrInvalidRecordID   = errors.New("record id must be greater than zero")
	ErrInvalidNeighborID = errors.New("neighbor id must be greater than zero")
	ErrSelfReference     = errors.New("record cannot be positioned relative to itself")
	ErrSameNeighbors     = errors.New("before and after neighbors must differ")
	ErrIdempotencyKey    = errors.New("idempotency key is too long")
)

// Record is a single entry of the user-ordered list. Name is opaque to ordering.
type Record struct {
	ID        int64
	SortOrder int64
	Name      string
}

// MoveRequest asks to reposition RecordID. A nil BeforeID moves the record to the
// front, a nil AfterID moves it to the end. A non-empty IdempotencyKey makes retries of
// the same request replay the first outcome.
type MoveRequest struct {
	RecordID       int64
	BeforeID       *int64
	AfterID        *int64
	IdempotencyKey string
}

// Validate checks identifiers only; adjacency of the neighbors is not verified.
func (r MoveRequest) Validate() error {
	if r.RecordID <= 0 {
		return ErrInvalidRecordID
	}
	for _, id := range []*int64{r.BeforeID, r.AfterID} {
		if id == nil {
			continue
		}
		if *id <= 0 {
			return ErrInvalidNeighborID
		}
		if *id == r.RecordID {
			return ErrSelfReference
		}
	}
	if r.BeforeID != nil && r.AfterID != nil && *r.BeforeID == *r.AfterID {
		return ErrSameNeighbors
	}
	if len(strings.TrimSpace(r.IdempotencyKey)) > MaxIdempotencyKeyLength {
		return ErrIdempotencyKey
	}
	return nil
}

// Clone returns a detached copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
