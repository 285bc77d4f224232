package mapper

import (
	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

// Record is the HTTP representation of a record.
type Record struct {
	ID         int64  `json:"id"`
	SortOrder  int64  `json:"sort_order"`
	RecordName string `json:"record_name"`
}

// MoveRecordRequest is the inbound payload for POST /records/move. BeforeID names the
// record that should precede the moved one (nil: move to the front), AfterID the one
// that should follow it (nil: move to the end).
type MoveRecordRequest struct {
	RecordID int64  `json:"record_id" binding:"required"`
	BeforeID *int64 `json:"before_id"`
	AfterID  *int64 `json:"after_id"`
}

// ToMoveRequest converts the payload into a domain move request.
func ToMoveRequest(payload MoveRecordRequest) domain.MoveRequest {
	return domain.MoveRequest{
		RecordID: payload.RecordID,
		BeforeID: payload.BeforeID,
		AfterID:  payload.AfterID,
	}
}

// FromDomain maps a record to its HTTP shape.
func FromDomain(record *domain.Record) Record {
	if record == nil {
		return Record{}
	}
	return Record{
		ID:         record.ID,
		SortOrder:  record.SortOrder,
		RecordName: record.Name,
	}
}

// FromDomainList maps a page of records; the result is never nil.
func FromDomainList(records []*domain.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		out = append(out, FromDomain(record))
	}
	return out
}

// FromMoveResult returns the moved record.
func FromMoveResult(result *ports.MoveResult) Record {
	if result == nil {
		return Record{}
	}
	return FromDomain(result.Record)
}
