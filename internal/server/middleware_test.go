package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mwhitford/domaincred/internal/diaglog"
)

func TestCorrelationMiddleware_MintsID(t *testing.T) {
	var gotCtxID string
	handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCtxID = diaglog.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotCtxID == "" {
		t.Fatal("handler context has no correlation id")
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != gotCtxID {
		t.Errorf("X-Correlation-ID header = %q, want context id %q", got, gotCtxID)
	}
}

func TestCorrelationMiddleware_HonorsInboundID(t *testing.T) {
	var gotCtxID string
	handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCtxID = diaglog.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "upstream-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotCtxID != "upstream-id" {
		t.Errorf("context id = %q, want inbound upstream-id", gotCtxID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != "upstream-id" {
		t.Errorf("X-Correlation-ID header = %q, want upstream-id", got)
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want the wrapped writer to pass 418 through", rec.Code)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	handler := TimeoutMiddleware(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Error("request context has no deadline")
		}
		if remaining := time.Until(deadline); remaining > time.Minute {
			t.Errorf("deadline too far out: %v", remaining)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
}
