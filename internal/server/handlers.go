package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitford/domaincred/internal/credential"
	"github.com/mwhitford/domaincred/internal/credibility"
	"github.com/mwhitford/domaincred/internal/dataforseo"
	"github.com/mwhitford/domaincred/internal/diaglog"
	"github.com/mwhitford/domaincred/internal/storage"
)

// Handler exposes the credibility service and the diagnostic log over REST.
type Handler struct {
	svc    *credibility.Service
	diag   *diaglog.Logger
	logger *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(svc *credibility.Service, diag *diaglog.Logger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, diag: diag, logger: logger}
}

// Routes mounts all API endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/credibility/{domain}", h.handleFetch)
	r.Post("/v1/credibility/{domain}/smart", h.handleSmartFetch)
	r.Post("/v1/fetch-plan", h.handleFetchPlan)
	r.Get("/v1/diagnostics", h.handleDiagnostics)
	r.Get("/v1/diagnostics/summary", h.handleDiagnosticsSummary)
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	opts := fetchOptionsFromQuery(r)

	rec, err := h.svc.FetchDomain(r.Context(), chi.URLParam(r, "domain"), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSmartFetch(w http.ResponseWriter, r *http.Request) {
	opts := fetchOptionsFromQuery(r)

	result, err := h.svc.SmartFetchDomain(r.Context(), chi.URLParam(r, "domain"), nil, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type fetchPlanRequest struct {
	Domains []string `json:"domains"`
}

func (h *Handler) handleFetchPlan(w http.ResponseWriter, r *http.Request) {
	var req fetchPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return
	}
	if len(req.Domains) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("domains list is required"))
		return
	}

	plan, err := h.svc.CreateFetchPlan(r.Context(), req.Domains)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.LogFilter{
		Status:        storage.LogStatus(q.Get("status")),
		Endpoint:      q.Get("endpoint"),
		CorrelationID: q.Get("correlation_id"),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid since timestamp, want RFC3339"))
			return
		}
		filter.Since = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid limit"))
			return
		}
		filter.Limit = n
	}

	entries, err := h.diag.Entries(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleDiagnosticsSummary(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid since timestamp, want RFC3339"))
			return
		}
		since = t
	}

	summary, err := h.diag.Summarize(r.Context(), since)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func fetchOptionsFromQuery(r *http.Request) credibility.FetchOptions {
	opts := credibility.FetchOptions{
		ClientCode: r.URL.Query().Get("client_code"),
	}
	if loc := r.URL.Query().Get("location_code"); loc != "" {
		if n, err := strconv.Atoi(loc); err == nil {
			opts.LocationCode = n
		}
	}
	return opts
}

// writeError maps service failures to HTTP responses. Missing credentials are
// a blocking configuration error, not something a client should retry.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		slog.String("correlation_id", diaglog.CorrelationID(r.Context())),
		slog.String("error", err.Error()))

	switch {
	case errors.Is(err, credential.ErrNoCredentials),
		errors.Is(err, credential.ErrInvalidCredentials):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}

	var apiErr *dataforseo.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, statusForKind(apiErr.Kind), map[string]any{
			"error":     apiErr.Message,
			"kind":      apiErr.Kind,
			"retryable": apiErr.Retryable,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
}

func statusForKind(kind dataforseo.ErrorKind) int {
	switch kind {
	case dataforseo.ErrorKindUnauthorized, dataforseo.ErrorKindInvalidCredentials:
		return http.StatusBadGateway
	case dataforseo.ErrorKindRateLimited:
		return http.StatusTooManyRequests
	case dataforseo.ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case dataforseo.ErrorKindNotFound:
		return http.StatusNotFound
	case dataforseo.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
