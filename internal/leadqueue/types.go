package leadqueue

import "time"

const (
	jobKeyPrefix  = "leadflow:job:"
	queueKey      = "leadflow:acquisition_queue"
	processingKey = "leadflow:acquisition_processing"

	defaultMaxRetries = 3
	jobTTL            = 24 * time.Hour
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is one lead-acquisition request. Delivery is at-least-once: a job
// picked up but not completed is requeued by the stuck sweeper, so the
// scraper endpoint must tolerate duplicate order ids.
type Job struct {
	ID          string     `json:"id"`
	OrderID     int64      `json:"order_id"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}
