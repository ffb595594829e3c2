package advisor

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// JobMatch is a posting retrieved for a résumé.
type JobMatch struct {
	JobID    string  `json:"jobId,omitempty"`
	Title    string  `json:"title,omitempty"`
	Company  string  `json:"company,omitempty"`
	Location string  `json:"location,omitempty"`
	URL      string  `json:"url,omitempty"`
	Score    float64 `json:"score"`
}

// Recommendation is the advisor's narrative plus the postings it drew on.
type Recommendation struct {
	Content string     `json:"content"`
	Matches []JobMatch `json:"matches"`
	Model   string     `json:"model"`
}

// Report is an asynchronous recommendation for an uploaded résumé.
type Report struct {
	ID             string
	UserID         string
	DocumentID     string
	Status         string
	Content        string
	Matches        []JobMatch
	Model          string
	ErrorCode      string
	ErrorMessage   string
	ErrorRetryable bool
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}
