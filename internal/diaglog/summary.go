package diaglog

import (
	"context"
	"time"

	"github.com/mwhitford/domaincred/internal/storage"
)

// Summary aggregates the diagnostic log over a time window.
type Summary struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByEndpoint     map[string]int `json:"by_endpoint"`
	ByErrorType    map[string]int `json:"by_error_type"`
	TotalCost      float64        `json:"total_cost"`
	AvgDurationMs  float64        `json:"avg_duration_ms"`
	TotalRetries   int            `json:"total_retries"`
	WindowStart    *time.Time     `json:"window_start,omitempty"`
}

// Summarize aggregates entries since the given time. A zero since covers the
// whole retained log. Average duration only counts terminal entries, since
// PENDING entries carry no duration.
func (l *Logger) Summarize(ctx context.Context, since time.Time) (*Summary, error) {
	entries, err := l.Entries(ctx, storage.LogFilter{Since: since})
	if err != nil {
		return nil, err
	}

	s := &Summary{
		ByStatus:    make(map[string]int),
		ByEndpoint:  make(map[string]int),
		ByErrorType: make(map[string]int),
	}
	if !since.IsZero() {
		s.WindowStart = &since
	}

	var (
		durationSum int64
		durationN   int
	)
	for _, e := range entries {
		s.Total++
		s.ByStatus[string(e.Status)]++
		s.ByEndpoint[e.Endpoint]++
		if e.ErrorType != "" {
			s.ByErrorType[e.ErrorType]++
		}
		s.TotalCost += e.Cost
		s.TotalRetries += e.RetryCount
		if e.Status == storage.LogStatusSuccess || e.Status == storage.LogStatusFailed {
			durationSum += e.DurationMs
			durationN++
		}
	}
	if durationN > 0 {
		s.AvgDurationMs = float64(durationSum) / float64(durationN)
	}

	return s, nil
}
