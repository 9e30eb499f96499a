package domain

// EventItem is one raw line of the input file. ID and Timestamp are pointers
// so a missing or null field can be told apart from a zero value.
type EventItem struct {
	ID        *string `json:"id"`
	State     string  `json:"state,omitempty"`
	Timestamp *int64  `json:"timestamp"`
	Type      string  `json:"type,omitempty"`
	Host      string  `json:"host,omitempty"`
}

// Event is the correlated result of two items sharing an id.
type Event struct {
	ID       string `json:"id"`
	Duration int64  `json:"duration"`
	Type     string `json:"type,omitempty"`
	Host     string `json:"host,omitempty"`
	Alert    bool   `json:"alert"`
}

// EventStats holds aggregated statistics over persisted events.
type EventStats struct {
	TotalEvents   int     `json:"total_events"`
	AlertCount    int     `json:"alert_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	MaxDurationMs int64   `json:"max_duration_ms"`
}
