package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/application"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

const tracerName = "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/observability/service"

// Service decorates the records application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// ListRecords returns a page of records. Empty first pages are counted as degraded
// listings.
func (s *Service) ListRecords(ctx context.Context, limit, offset int) []*domain.Record {
	ctx, span := s.startSpan(ctx, "Service.ListRecords",
		attribute.Int("records.page.limit", limit),
		attribute.Int("records.page.offset", offset),
	)
	defer span.End()

	result := s.inner.ListRecords(ctx, limit, offset)
	span.SetAttributes(attribute.Int("records.result.count", len(result)))
	if len(result) == 0 && offset <= 0 {
		s.metrics.recordListEmpty(ctx)
	}
	s.logDebug(ctx, "listed records", slog.Int("count", len(result)), slog.Int("limit", limit), slog.Int("offset", offset))
	return result
}

// GetRecord loads a single record.
func (s *Service) GetRecord(ctx context.Context, id int64) (*domain.Record, error) {
	ctx, span := s.startSpan(ctx, "Service.GetRecord", attribute.Int64("record.id", id))
	defer span.End()

	result, err := s.inner.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			span.SetAttributes(attribute.Bool("record.found", false))
			return nil, err
		}
		return nil, s.handleError(ctx, span, err, "failed to load record", slog.Int64("record.id", id))
	}
	return result, nil
}

// MoveRecord repositions a record and reports the allocation outcome.
func (s *Service) MoveRecord(ctx context.Context, req domain.MoveRequest) (*ports.MoveResult, error) {
	attrs := moveAttributes(req)
	ctx, span := s.startSpan(ctx, "Service.MoveRecord", attrs...)
	defer span.End()

	s.logInfo(ctx, "moving record", moveLogAttrs(req)...)
	result, err := s.inner.MoveRecord(ctx, req)
	if err != nil {
		s.metrics.recordMoveFailure(ctx, failureReason(err))
		return nil, s.handleError(ctx, span, err, "failed to move record", moveLogAttrs(req)...)
	}
	if result.Replayed {
		span.SetAttributes(attribute.Bool("record.move.replayed", true))
		s.logInfo(ctx, "record move replayed", slog.Int64("record.id", req.RecordID), slog.Int64("sort_order", result.Record.SortOrder))
		return result, nil
	}
	kind := result.Allocation.Kind.String()
	span.SetAttributes(
		attribute.String("record.allocation", kind),
		attribute.Int64("record.sort_order", result.Allocation.Key),
	)
	reindexed := false
	if result.Reindex != nil {
		reindexed = true
		span.SetAttributes(
			attribute.Int("records.reindex.rewritten", result.Reindex.Rewritten),
			attribute.Bool("records.reindex.capped", result.Reindex.Capped),
		)
		s.metrics.recordReindexed(ctx, result.Reindex.Rewritten)
	}
	s.metrics.recordMove(ctx, kind, reindexed)
	s.logInfo(ctx, "record moved",
		slog.Int64("record.id", req.RecordID),
		slog.String("allocation", kind),
		slog.Int64("sort_order", result.Allocation.Key),
		slog.Bool("reindexed", reindexed),
	)
	return result, nil
}

func moveAttributes(req domain.MoveRequest) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int64("record.id", req.RecordID)}
	if req.BeforeID != nil {
		attrs = append(attrs, attribute.Int64("record.before_id", *req.BeforeID))
	}
	if req.AfterID != nil {
		attrs = append(attrs, attribute.Int64("record.after_id", *req.AfterID))
	}
	if req.IdempotencyKey != "" {
		attrs = append(attrs, attribute.Bool("record.move.idempotent", true))
	}
	return attrs
}

func moveLogAttrs(req domain.MoveRequest) []slog.Attr {
	attrs := []slog.Attr{slog.Int64("record.id", req.RecordID)}
	if req.BeforeID != nil {
		attrs = append(attrs, slog.Int64("record.before_id", *req.BeforeID))
	}
	if req.AfterID != nil {
		attrs = append(attrs, slog.Int64("record.after_id", *req.AfterID))
	}
	return attrs
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, application.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ports.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, domain.ErrKeySpaceExhausted):
		return "key_space_exhausted"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "internal"
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logDebug(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	moves         metric.Int64Counter
	moveFailures  metric.Int64Counter
	reindexedRows metric.Int64Counter
	listEmpty     metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	moves, _ := m.Int64Counter("records.service.moves", metric.WithDescription("Number of successful record moves"))
	moveFailures, _ := m.Int64Counter("records.service.move_failures", metric.WithDescription("Number of rejected or failed record moves"))
	reindexedRows, _ := m.Int64Counter("records.service.reindexed_rows", metric.WithDescription("Number of rows rewritten by reindexing"))
	listEmpty, _ := m.Int64Counter("records.service.list_degraded", metric.WithDescription("Number of first-page listings that returned no records"))
	return serviceMetrics{
		moves:         moves,
		moveFailures:  moveFailures,
		reindexedRows: reindexedRows,
		listEmpty:     listEmpty,
	}
}

func (m serviceMetrics) recordMove(ctx context.Context, allocation string, reindexed bool) {
	addCounter(ctx, m.moves, 1,
		attribute.String("record.allocation", allocation),
		attribute.Bool("records.reindexed", reindexed),
	)
}

func (m serviceMetrics) recordMoveFailure(ctx context.Context, reason string) {
	addCounter(ctx, m.moveFailures, 1, attribute.String("reason", reason))
}

func (m serviceMetrics) recordReindexed(ctx context.Context, rows int) {
	addCounter(ctx, m.reindexedRows, int64(rows))
}

func (m serviceMetrics) recordListEmpty(ctx context.Context) {
	addCounter(ctx, m.listEmpty, 1)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
