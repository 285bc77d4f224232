package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Attribute keys lifted out of log records into dedicated query log columns.
const (
	QueryAttr  = "query"
	ParamsAttr = "params"
	ErrorAttr  = "error"
)

const defaultQueryLogBuffer = 1024

// QueryLogEntry is one persisted log line.
type QueryLogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Query   *string
	Params  *string
	Error   *string
}

// QueryLogWriter persists batches of entries.
type QueryLogWriter interface {
	WriteQueryLogs(ctx context.Context, entries []QueryLogEntry) error
}

// QueryLogSink buffers entries and writes them from a single goroutine. Enqueue never
// blocks: entries are dropped when the buffer is full or the sink is closed.
type QueryLogSink struct {
	writer    QueryLogWriter
	entries   chan QueryLogEntry
	done      chan struct{}
	errOut    io.Writer
	dropped   atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	mu        sync.RWMutex
}

// NewQueryLogSink starts the background writer. bufferSize <= 0 selects the default.
func NewQueryLogSink(writer QueryLogWriter, bufferSize int) *QueryLogSink {
	if bufferSize <= 0 {
		bufferSize = defaultQueryLogBuffer
	}
	s := &QueryLogSink{
		writer:  writer,
		entries: make(chan QueryLogEntry, bufferSize),
		done:    make(chan struct{}),
		errOut:  os.Stderr,
	}
	go s.run()
	return s
}

// Enqueue hands an entry to the writer goroutine and reports whether it was accepted.
func (s *QueryLogSink) Enqueue(entry QueryLogEntry) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.entries <- entry:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped returns how many entries were discarded.
func (s *QueryLogSink) Dropped() int64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// Close stops accepting entries and waits for buffered ones to be written.
func (s *QueryLogSink) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.entries)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *QueryLogSink) run() {
	defer close(s.done)
	const maxBatch = 64
	batch := make([]QueryLogEntry, 0, maxBatch)
	for entry := range s.entries {
		batch = append(batch[:0], entry)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-s.entries:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		s.flush(batch)
	}
}

func (s *QueryLogSink) flush(batch []QueryLogEntry) {
	if s.writer == nil || len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.WriteQueryLogs(ctx, batch); err != nil && s.errOut != nil {
		fmt.Fprintf(s.errOut, "query log: failed to write %d entries: %v\n", len(batch), err)
	}
}

// QueryLogHandler forwards records to the wrapped handler and copies them into a sink.
type QueryLogHandler struct {
	next  slog.Handler
	sink  *QueryLogSink
	attrs []slog.Attr
}

// NewQueryLogHandler wraps next so every handled record is also enqueued on sink.
func NewQueryLogHandler(next slog.Handler, sink *QueryLogSink) *QueryLogHandler {
	return &QueryLogHandler{next: next, sink: sink}
}

func (h *QueryLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *QueryLogHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.next.Handle(ctx, record)
	entry := QueryLogEntry{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: record.Message,
	}
	for _, attr := range h.attrs {
		applyAttr(&entry, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		applyAttr(&entry, attr)
		return true
	})
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	h.sink.Enqueue(entry)
	return err
}

func (h *QueryLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &QueryLogHandler{next: h.next.WithAttrs(attrs), sink: h.sink, attrs: merged}
}

// WithGroup nests output attributes; lifted keys are still matched by name.
func (h *QueryLogHandler) WithGroup(name string) slog.Handler {
	return &QueryLogHandler{next: h.next.WithGroup(name), sink: h.sink, attrs: h.attrs}
}

func applyAttr(entry *QueryLogEntry, attr slog.Attr) {
	value := attr.Value.Resolve()
	switch attr.Key {
	case QueryAttr:
		entry.Query = stringPtr(value.String())
	case ErrorAttr:
		entry.Error = stringPtr(value.String())
	case ParamsAttr:
		encoded, err := json.Marshal(value.Any())
		if err != nil {
			entry.Params = stringPtr(fmt.Sprintf("%q", value.String()))
			return
		}
		entry.Params = stringPtr(string(encoded))
	}
}

func stringPtr(v string) *string {
	return &v
}
