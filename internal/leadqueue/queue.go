package leadqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/realtyleadsai/leadflow/internal/observability/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Queue is the Redis-backed hand-off between the webhook path and the
// scraping workers. Enqueue is the only operation the webhook path uses,
// which keeps the acknowledge path fast.
type Queue struct {
	client     *redis.Client
	log        *zap.Logger
	maxRetries int
	metrics    *metrics.Metrics
}

func NewQueue(client *redis.Client, log *zap.Logger, maxRetries int, m *metrics.Metrics) *Queue {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Queue{
		client:     client,
		log:        log.Named("leadqueue"),
		maxRetries: maxRetries,
		metrics:    m,
	}
}

// EnqueueLeadAcquisition records a job and pushes it onto the work list.
func (q *Queue) EnqueueLeadAcquisition(ctx context.Context, orderID snowflake.ID) error {
	now := time.Now().UTC()
	job := Job{
		ID:         uuid.NewString(),
		OrderID:    int64(orderID),
		Status:     JobStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: q.maxRetries,
	}

	if err := q.saveJob(ctx, &job); err != nil {
		return err
	}
	if err := q.client.LPush(ctx, queueKey, job.ID).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}

	if q.metrics != nil {
		q.metrics.RecordQueueJob("enqueued")
	}
	q.log.Info("lead acquisition enqueued",
		zap.String("job_id", job.ID),
		zap.Int64("order_id", job.OrderID),
	)
	return nil
}

// dequeue blocks up to timeout for the next job, moving it onto the
// processing list so a crashed worker leaves a recoverable trace.
func (q *Queue) dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	id, err := q.client.BLMove(ctx, queueKey, processingKey, "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	job, err := q.loadJob(ctx, id)
	if err != nil {
		_ = q.client.LRem(ctx, processingKey, 1, id).Err()
		return nil, err
	}
	if job == nil {
		// Job data expired; drop the stray list entry.
		_ = q.client.LRem(ctx, processingKey, 1, id).Err()
		return nil, nil
	}

	now := time.Now().UTC()
	job.Status = JobStatusProcessing
	job.ProcessedAt = &now
	job.UpdatedAt = now
	if err := q.saveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (q *Queue) complete(ctx context.Context, job *Job) error {
	now := time.Now().UTC()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := q.saveJob(ctx, job); err != nil {
		return err
	}
	if q.metrics != nil {
		q.metrics.RecordQueueJob("completed")
	}
	return q.client.LRem(ctx, processingKey, 1, job.ID).Err()
}

// fail either requeues the job for another attempt or parks it as failed
// once retries are exhausted.
func (q *Queue) fail(ctx context.Context, job *Job, cause error) error {
	now := time.Now().UTC()
	job.UpdatedAt = now
	job.ErrorMsg = cause.Error()

	if err := q.client.LRem(ctx, processingKey, 1, job.ID).Err(); err != nil {
		return err
	}

	if job.RetryCount < job.MaxRetries {
		job.RetryCount++
		job.Status = JobStatusRetrying
		if err := q.saveJob(ctx, job); err != nil {
			return err
		}
		if q.metrics != nil {
			q.metrics.RecordQueueJob("retried")
		}
		return q.client.LPush(ctx, queueKey, job.ID).Err()
	}

	job.Status = JobStatusFailed
	if q.metrics != nil {
		q.metrics.RecordQueueJob("failed")
	}
	return q.saveJob(ctx, job)
}

// requeueStuck returns jobs stuck on the processing list for longer than
// maxAge to the work list.
func (q *Queue) requeueStuck(ctx context.Context, maxAge time.Duration) {
	ids, err := q.client.LRange(ctx, processingKey, 0, -1).Result()
	if err != nil {
		q.log.Error("stuck sweep lrange failed", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	for _, id := range ids {
		job, err := q.loadJob(ctx, id)
		if err != nil {
			q.log.Error("stuck sweep load failed", zap.String("job_id", id), zap.Error(err))
			continue
		}
		if job == nil || job.Status != JobStatusProcessing {
			_ = q.client.LRem(ctx, processingKey, 1, id).Err()
			continue
		}
		started := job.ProcessedAt
		if started == nil {
			started = &job.UpdatedAt
		}
		if now.Sub(*started) < maxAge {
			continue
		}

		job.Status = JobStatusPending
		job.UpdatedAt = now
		if err := q.saveJob(ctx, job); err != nil {
			continue
		}
		_ = q.client.LRem(ctx, processingKey, 1, id).Err()
		_ = q.client.LPush(ctx, queueKey, id).Err()
		q.log.Warn("requeued stuck job",
			zap.String("job_id", id),
			zap.Int64("order_id", job.OrderID),
		)
	}
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err()
}

func (q *Queue) loadJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
