// Package diaglog records per-attempt diagnostics for provider calls. Every
// logical action gets a correlation id carried in the context; each attempt
// produces an immutable log entry appended to the capped durable log.
package diaglog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitford/domaincred/internal/storage"
)

// correlationKey identifies the correlation id in a context.
type correlationKey struct{}

// WithCorrelation mints a new correlation id and attaches it to the context.
// All entries created under the returned context share the id.
func WithCorrelation(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return context.WithValue(ctx, correlationKey{}, id), id
}

// WithCorrelationID attaches an existing correlation id to the context, for
// callers (such as HTTP middleware) that already minted one.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id attached to the context, or an
// empty string.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// Entry is one diagnostic record. Transitions return new values; an Entry is
// never mutated after creation.
type Entry = storage.LogEntry

// EntryOptions carries optional tags for a new entry.
type EntryOptions struct {
	Domain       string
	LocationCode int
	ClientCode   string
}

// Logger builds, transitions, stores, and queries diagnostic entries.
type Logger struct {
	store storage.LogStore
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Logger writing to store and emitting structured console
// lines through log.
func New(store storage.LogStore, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{store: store, log: log, now: time.Now}
}

// NewEntry builds a PENDING entry stamped with the context's correlation id.
func (l *Logger) NewEntry(ctx context.Context, endpoint, method string, opts EntryOptions) Entry {
	return Entry{
		ID:            uuid.New().String(),
		Timestamp:     l.now(),
		Status:        storage.LogStatusPending,
		Endpoint:      endpoint,
		Method:        method,
		Domain:        opts.Domain,
		LocationCode:  opts.LocationCode,
		ClientCode:    opts.ClientCode,
		CorrelationID: CorrelationID(ctx),
	}
}

// SuccessDetails carries the fields recorded on a successful attempt.
type SuccessDetails struct {
	Duration      time.Duration
	HTTPStatus    int
	APIStatusCode int
	Cost          float64
	RetryCount    int
}

// MarkSuccess returns a copy of entry in the SUCCESS state.
func MarkSuccess(entry Entry, d SuccessDetails) Entry {
	entry.Status = storage.LogStatusSuccess
	entry.DurationMs = d.Duration.Milliseconds()
	entry.HTTPStatus = d.HTTPStatus
	entry.APIStatusCode = d.APIStatusCode
	entry.Cost = d.Cost
	entry.RetryCount = d.RetryCount
	return entry
}

// ErrorDetails carries the fields recorded on a failed or retrying attempt.
type ErrorDetails struct {
	Duration      time.Duration
	HTTPStatus    int
	APIStatusCode int
	ErrorType     string
	ErrorMessage  string
	RetryCount    int
}

// MarkError returns a copy of entry in the FAILED state.
func MarkError(entry Entry, d ErrorDetails) Entry {
	entry.Status = storage.LogStatusFailed
	return applyErrorDetails(entry, d)
}

// MarkRetrying returns a copy of entry in the RETRYING state.
func MarkRetrying(entry Entry, d ErrorDetails) Entry {
	entry.Status = storage.LogStatusRetrying
	return applyErrorDetails(entry, d)
}

func applyErrorDetails(entry Entry, d ErrorDetails) Entry {
	entry.DurationMs = d.Duration.Milliseconds()
	entry.HTTPStatus = d.HTTPStatus
	entry.APIStatusCode = d.APIStatusCode
	entry.ErrorType = d.ErrorType
	entry.ErrorMessage = d.ErrorMessage
	entry.RetryCount = d.RetryCount
	return entry
}

// Save appends the entry to the durable log and emits a structured line.
// Storage failures are logged but never propagate; diagnostics must not break
// the request path.
func (l *Logger) Save(ctx context.Context, entry Entry) {
	attrs := []slog.Attr{
		slog.String("entry_id", entry.ID),
		slog.String("status", string(entry.Status)),
		slog.String("endpoint", entry.Endpoint),
		slog.String("correlation_id", entry.CorrelationID),
		slog.Int64("duration_ms", entry.DurationMs),
		slog.Int("retry_count", entry.RetryCount),
	}
	if entry.Domain != "" {
		attrs = append(attrs, slog.String("domain", entry.Domain))
	}
	if entry.HTTPStatus != 0 {
		attrs = append(attrs, slog.Int("http_status", entry.HTTPStatus))
	}
	if entry.APIStatusCode != 0 {
		attrs = append(attrs, slog.Int("api_status_code", entry.APIStatusCode))
	}
	if entry.ErrorType != "" {
		attrs = append(attrs, slog.String("error_type", entry.ErrorType))
		attrs = append(attrs, slog.String("error", entry.ErrorMessage))
	}

	level := slog.LevelInfo
	if entry.Status == storage.LogStatusFailed {
		level = slog.LevelError
	} else if entry.Status == storage.LogStatusRetrying {
		level = slog.LevelWarn
	}
	l.log.LogAttrs(ctx, level, "provider call", attrs...)

	if l.store == nil {
		return
	}
	if err := l.store.AppendLogEntry(ctx, entry); err != nil {
		l.log.Error("failed to persist log entry",
			slog.String("entry_id", entry.ID), slog.String("error", err.Error()))
	}
}

// Entries returns stored entries matching the filter, newest first.
func (l *Logger) Entries(ctx context.Context, filter storage.LogFilter) ([]Entry, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.ListLogEntries(ctx, filter)
}
