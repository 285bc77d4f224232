package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

type normalizedMoveRequest struct {
	RecordID int64  `json:"record_id"`
	BeforeID *int64 `json:"before_id"`
	AfterID  *int64 `json:"after_id"`
}

// FingerprintMove builds a deterministic hash of the move request, excluding the idempotency key.
func FingerprintMove(req domain.MoveRequest) (string, error) {
	payload, err := json.Marshal(normalizedMoveRequest{
		RecordID: req.RecordID,
		BeforeID: req.BeforeID,
		AfterID:  req.AfterID,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// replay returns the stored outcome for key, or nil when the key is unknown.
func (s *Service) replay(ctx context.Context, key, hash string) (*ports.MoveResult, error) {
	existing, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if existing.RequestHash != hash {
		return nil, fmt.Errorf("%w: key %q was used for a different move", ports.ErrIdempotencyConflict, key)
	}
	record, err := s.repo.GetByID(ctx, existing.RecordID)
	if err != nil {
		return nil, err
	}
	return &ports.MoveResult{Record: record, Replayed: true}, nil
}

// remember stores the outcome. A conflicting concurrent save is reported; other store
// failures are logged because the move itself has already committed.
func (s *Service) remember(ctx context.Context, key, hash string, result *ports.MoveResult) error {
	_, err := s.idempotency.Save(ctx, ports.IdempotencyRecord{
		Key:         key,
		RequestHash: hash,
		RecordID:    result.Record.ID,
		SortOrder:   result.Record.SortOrder,
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ports.ErrIdempotencyConflict) {
		return fmt.Errorf("%w: key %q was used for a different move", ports.ErrIdempotencyConflict, key)
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to store idempotency key",
		slog.Int64("record.id", result.Record.ID), slog.String("error", err.Error()))
	return nil
}

func idempotencyKey(req domain.MoveRequest) string {
	return strings.TrimSpace(req.IdempotencyKey)
}
