package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/realtyleadsai/leadflow/internal/clock"
	"github.com/realtyleadsai/leadflow/internal/fulfillment"
	"github.com/realtyleadsai/leadflow/internal/observability/metrics"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Finalizer fulfillment.Service
	Metrics   *metrics.Metrics `optional:"true"`
	Config    Config           `optional:"true"`
}

// Scheduler periodically sweeps processing orders: those with leads get
// finalized, those stuck with none past the threshold get failed. The
// finalizer's delivered_at guard keeps double claims harmless, the SKIP
// LOCKED fetch keeps two scheduler instances off the same rows.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	finalizer fulfillment.Service
	metrics   *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Finalizer == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler"),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		finalizer: p.Finalizer,
		metrics:   p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return err
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"finalize_ready", s.FinalizeReadyJob},
		{"fail_stuck", s.FailStuckJob},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// FinalizeReadyJob claims processing orders that have accumulated leads and
// runs the delivery finalizer on each.
func (s *Scheduler) FinalizeReadyJob(ctx context.Context) error {
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		orders, err := s.fetchReadyOrders(ctx, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(orders) == 0 {
			break
		}

		progressed := 0
		for _, work := range orders {
			result, err := s.finalizer.Finalize(ctx, work.ID)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.log.Warn("finalization failed",
					zap.String("order_id", work.ID.String()),
					zap.Error(err),
				)
				continue
			}
			if result.Outcome == fulfillment.OutcomeDelivered {
				progressed++
				s.log.Info("order finalized by sweep",
					zap.String("order_id", work.ID.String()),
					zap.Int("lead_count", result.LeadCount),
				)
			}
		}
		if progressed == 0 {
			break
		}
	}

	return jobErr
}

// FailStuckJob transitions processing orders that have sat past the stuck
// threshold with zero leads into failed, so operators see abandoned scrapes
// instead of orders waiting forever.
func (s *Scheduler) FailStuckJob(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.StuckThreshold)
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		orders, err := s.fetchStuckOrders(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(orders) == 0 {
			break
		}

		progressed := 0
		for _, work := range orders {
			updated, err := s.markOrderFailed(ctx, work.ID, cutoff, now)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.log.Warn("stuck order transition failed",
					zap.String("order_id", work.ID.String()),
					zap.Error(err),
				)
				continue
			}
			if updated {
				progressed++
				s.metrics.RecordFinalization("stuck_failed")
				s.log.Warn("stuck order marked failed",
					zap.String("order_id", work.ID.String()),
					zap.Time("created_at", work.CreatedAt),
					zap.Duration("threshold", s.cfg.StuckThreshold),
				)
			}
		}
		if progressed == 0 {
			break
		}
	}

	return jobErr
}

type workOrder struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

func (s *Scheduler) fetchReadyOrders(ctx context.Context, limit int) ([]workOrder, error) {
	var orders []workOrder
	err := s.db.WithContext(ctx).Raw(
		`SELECT o.id, o.created_at
		 FROM orders o
		 WHERE o.status = ?
		   AND o.delivered_at IS NULL
		   AND EXISTS (
			   SELECT 1 FROM leads l
			   WHERE l.order_id = o.id
		   )
		 ORDER BY o.id
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED`,
		domain.OrderStatusProcessing,
		limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Scheduler) fetchStuckOrders(ctx context.Context, cutoff time.Time, limit int) ([]workOrder, error) {
	var orders []workOrder
	err := s.db.WithContext(ctx).Raw(
		`SELECT o.id, o.created_at
		 FROM orders o
		 WHERE o.status = ?
		   AND o.delivered_at IS NULL
		   AND o.created_at <= ?
		   AND NOT EXISTS (
			   SELECT 1 FROM leads l
			   WHERE l.order_id = o.id
		   )
		 ORDER BY o.id
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED`,
		domain.OrderStatusProcessing,
		cutoff,
		limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Scheduler) markOrderFailed(ctx context.Context, orderID snowflake.ID, cutoff, now time.Time) (bool, error) {
	// Re-check the guard conditions in the UPDATE itself; a lead may have
	// landed between the fetch and this statement.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND delivered_at IS NULL
		   AND created_at <= ?
		   AND NOT EXISTS (
			   SELECT 1 FROM leads l
			   WHERE l.order_id = orders.id
		   )`,
		domain.OrderStatusFailed,
		now,
		orderID,
		domain.OrderStatusProcessing,
		cutoff,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
