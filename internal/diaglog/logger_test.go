package diaglog

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/mwhitford/domaincred/internal/storage"
	"github.com/mwhitford/domaincred/internal/storage/memory"
)

func newTestLogger(store storage.LogStore) *Logger {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWithCorrelation(t *testing.T) {
	ctx, id := WithCorrelation(context.Background())
	if id == "" {
		t.Fatal("WithCorrelation() returned empty id")
	}
	if got := CorrelationID(ctx); got != id {
		t.Errorf("CorrelationID() = %q, want %q", got, id)
	}

	ctx2, id2 := WithCorrelation(ctx)
	if id2 == id {
		t.Error("WithCorrelation() should mint a fresh id each call")
	}
	if got := CorrelationID(ctx2); got != id2 {
		t.Errorf("CorrelationID() = %q, want inner id %q", got, id2)
	}
}

func TestCorrelationID_Unset(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID() = %q, want empty for bare context", got)
	}
}

func TestNewEntry(t *testing.T) {
	l := newTestLogger(nil)
	ctx := WithCorrelationID(context.Background(), "corr-1")

	entry := l.NewEntry(ctx, "backlinks/summary/live", "POST", EntryOptions{
		Domain:     "example.com",
		ClientCode: "acme",
	})

	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.Status != storage.LogStatusPending {
		t.Errorf("Status = %q, want PENDING", entry.Status)
	}
	if entry.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %q, want corr-1", entry.CorrelationID)
	}
	if entry.Domain != "example.com" || entry.ClientCode != "acme" {
		t.Errorf("tags not applied: %+v", entry)
	}

	second := l.NewEntry(ctx, "backlinks/summary/live", "POST", EntryOptions{})
	if second.ID == entry.ID {
		t.Error("each entry must get its own id")
	}
	if second.CorrelationID != entry.CorrelationID {
		t.Error("entries under one context must share the correlation id")
	}
}

func TestMarkTransitionsDoNotMutate(t *testing.T) {
	l := newTestLogger(nil)
	entry := l.NewEntry(context.Background(), "whois", "POST", EntryOptions{})

	success := MarkSuccess(entry, SuccessDetails{
		Duration:   250 * time.Millisecond,
		HTTPStatus: 200,
		Cost:       0.1,
		RetryCount: 1,
	})
	failed := MarkError(entry, ErrorDetails{
		HTTPStatus:   429,
		ErrorType:    "RATE_LIMITED",
		ErrorMessage: "too many requests",
	})
	retrying := MarkRetrying(entry, ErrorDetails{ErrorType: "TIMEOUT", RetryCount: 2})

	if entry.Status != storage.LogStatusPending {
		t.Fatalf("original entry mutated: status = %q", entry.Status)
	}
	if success.Status != storage.LogStatusSuccess || success.DurationMs != 250 || success.Cost != 0.1 {
		t.Errorf("MarkSuccess() = %+v", success)
	}
	if failed.Status != storage.LogStatusFailed || failed.ErrorType != "RATE_LIMITED" {
		t.Errorf("MarkError() = %+v", failed)
	}
	if retrying.Status != storage.LogStatusRetrying || retrying.RetryCount != 2 {
		t.Errorf("MarkRetrying() = %+v", retrying)
	}
	if success.ID != entry.ID || failed.ID != entry.ID {
		t.Error("transitions must preserve the entry id")
	}
}

func TestSaveAndEntries(t *testing.T) {
	store := memory.New(100)
	l := newTestLogger(store)
	ctx := WithCorrelationID(context.Background(), "corr-save")

	e1 := MarkSuccess(l.NewEntry(ctx, "whois", "POST", EntryOptions{Domain: "a.com"}),
		SuccessDetails{HTTPStatus: 200, Cost: 0.1})
	e2 := MarkError(l.NewEntry(ctx, "labs", "POST", EntryOptions{Domain: "b.com"}),
		ErrorDetails{HTTPStatus: 500, ErrorType: "SERVER_ERROR", ErrorMessage: "boom"})

	l.Save(ctx, e1)
	l.Save(ctx, e2)

	all, err := l.Entries(ctx, storage.LogFilter{})
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Entries() returned %d entries, want 2", len(all))
	}

	failed, err := l.Entries(ctx, storage.LogFilter{Status: storage.LogStatusFailed})
	if err != nil {
		t.Fatalf("Entries(FAILED) error = %v", err)
	}
	if len(failed) != 1 || failed[0].Endpoint != "labs" {
		t.Errorf("Entries(FAILED) = %+v, want the labs failure", failed)
	}

	byCorr, err := l.Entries(ctx, storage.LogFilter{CorrelationID: "corr-save"})
	if err != nil {
		t.Fatalf("Entries(correlation) error = %v", err)
	}
	if len(byCorr) != 2 {
		t.Errorf("Entries(correlation) returned %d entries, want 2", len(byCorr))
	}
}

func TestSave_NilStore(t *testing.T) {
	l := newTestLogger(nil)
	entry := l.NewEntry(context.Background(), "whois", "POST", EntryOptions{})

	// Must not panic; diagnostics never break the request path.
	l.Save(context.Background(), MarkSuccess(entry, SuccessDetails{}))

	got, err := l.Entries(context.Background(), storage.LogFilter{})
	if err != nil || got != nil {
		t.Errorf("Entries() = %v, %v; want nil, nil", got, err)
	}
}

func TestSummarize(t *testing.T) {
	store := memory.New(100)
	l := newTestLogger(store)
	ctx := context.Background()

	l.Save(ctx, MarkSuccess(l.NewEntry(ctx, "whois", "POST", EntryOptions{}),
		SuccessDetails{Duration: 100 * time.Millisecond, Cost: 0.1}))
	l.Save(ctx, MarkSuccess(l.NewEntry(ctx, "labs", "POST", EntryOptions{}),
		SuccessDetails{Duration: 300 * time.Millisecond, Cost: 0.01, RetryCount: 1}))
	l.Save(ctx, MarkError(l.NewEntry(ctx, "labs", "POST", EntryOptions{}),
		ErrorDetails{Duration: 200 * time.Millisecond, ErrorType: "TIMEOUT", RetryCount: 2}))
	l.Save(ctx, MarkRetrying(l.NewEntry(ctx, "whois", "POST", EntryOptions{}),
		ErrorDetails{ErrorType: "RATE_LIMITED", RetryCount: 1}))

	s, err := l.Summarize(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	if s.ByStatus[string(storage.LogStatusSuccess)] != 2 {
		t.Errorf("ByStatus[SUCCESS] = %d, want 2", s.ByStatus[string(storage.LogStatusSuccess)])
	}
	if s.ByEndpoint["labs"] != 2 {
		t.Errorf("ByEndpoint[labs] = %d, want 2", s.ByEndpoint["labs"])
	}
	if s.ByErrorType["TIMEOUT"] != 1 || s.ByErrorType["RATE_LIMITED"] != 1 {
		t.Errorf("ByErrorType = %v", s.ByErrorType)
	}
	if math.Abs(s.TotalCost-0.11) > 1e-9 {
		t.Errorf("TotalCost = %v, want 0.11", s.TotalCost)
	}
	if s.TotalRetries != 4 {
		t.Errorf("TotalRetries = %d, want 4", s.TotalRetries)
	}
	// Terminal entries only: (100 + 300 + 200) / 3.
	if s.AvgDurationMs != 200 {
		t.Errorf("AvgDurationMs = %v, want 200", s.AvgDurationMs)
	}
	if s.WindowStart != nil {
		t.Error("WindowStart should be nil for a full-log summary")
	}
}

func TestSummarize_Window(t *testing.T) {
	store := memory.New(100)
	l := newTestLogger(store)
	ctx := context.Background()

	old := MarkSuccess(l.NewEntry(ctx, "whois", "POST", EntryOptions{}), SuccessDetails{Cost: 0.1})
	old.Timestamp = time.Now().Add(-2 * time.Hour)
	l.Save(ctx, old)
	l.Save(ctx, MarkSuccess(l.NewEntry(ctx, "labs", "POST", EntryOptions{}), SuccessDetails{Cost: 0.01}))

	since := time.Now().Add(-time.Hour)
	s, err := l.Summarize(ctx, since)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.Total != 1 {
		t.Errorf("Total = %d, want 1 entry inside the window", s.Total)
	}
	if s.WindowStart == nil || !s.WindowStart.Equal(since) {
		t.Errorf("WindowStart = %v, want %v", s.WindowStart, since)
	}
}
