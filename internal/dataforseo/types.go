package dataforseo

import "encoding/json"

// Response is the provider's standard envelope. The same status/cost shape
// appears at the response level and per task; a status code at or above
// apiErrorThreshold marks a logical failure even on HTTP 200.
type Response struct {
	Version       string  `json:"version"`
	StatusCode    int     `json:"status_code"`
	StatusMessage string  `json:"status_message"`
	Time          string  `json:"time"`
	Cost          float64 `json:"cost"`
	TasksCount    int     `json:"tasks_count"`
	TasksError    int     `json:"tasks_error"`
	Tasks         []Task  `json:"tasks"`
}

// Task is one billed unit of work inside a response.
type Task struct {
	ID            string            `json:"id"`
	StatusCode    int               `json:"status_code"`
	StatusMessage string            `json:"status_message"`
	Time          string            `json:"time"`
	Cost          float64           `json:"cost"`
	ResultCount   int               `json:"result_count"`
	Path          []string          `json:"path"`
	Data          json.RawMessage   `json:"data"`
	Result        []json.RawMessage `json:"result"`
}

// FirstResult returns the first result item of the first task, or nil when
// the provider returned no data. A nil here is a successful empty response,
// not an error.
func (r *Response) FirstResult() json.RawMessage {
	if len(r.Tasks) == 0 || len(r.Tasks[0].Result) == 0 {
		return nil
	}
	return r.Tasks[0].Result[0]
}

// TaskStatus returns the first task's status code and message, falling back
// to the response-level values when no task is present.
func (r *Response) TaskStatus() (int, string) {
	if len(r.Tasks) > 0 {
		return r.Tasks[0].StatusCode, r.Tasks[0].StatusMessage
	}
	return r.StatusCode, r.StatusMessage
}
