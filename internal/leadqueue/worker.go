package leadqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	dequeueTimeout = 5 * time.Second
	stuckJobAge    = 10 * time.Minute
	sweepInterval  = time.Minute
)

// WorkerPool drains the acquisition queue and dispatches each order to the
// scraper endpoint.
type WorkerPool struct {
	queue      *Queue
	dispatcher ScrapeDispatcher
	log        *zap.Logger
	workers    int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWorkerPool(queue *Queue, dispatcher ScrapeDispatcher, log *zap.Logger, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 3
	}
	return &WorkerPool{
		queue:      queue,
		dispatcher: dispatcher,
		log:        log.Named("leadqueue.worker"),
		workers:    workers,
	}
}

func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.log.Info("starting workers", zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.wg.Add(1)
	go p.stuckSweeper(ctx)
}

func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cancel()
	p.wg.Wait()
	p.log.Info("all workers stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.queue.dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.dispatcher.Dispatch(ctx, job.OrderID); err != nil {
			log.Warn("scrape dispatch failed",
				zap.String("job_id", job.ID),
				zap.Int64("order_id", job.OrderID),
				zap.Int("retry_count", job.RetryCount),
				zap.Error(err),
			)
			if failErr := p.queue.fail(ctx, job, err); failErr != nil {
				log.Error("job fail bookkeeping failed", zap.String("job_id", job.ID), zap.Error(failErr))
			}
			continue
		}

		if err := p.queue.complete(ctx, job); err != nil {
			log.Error("job complete bookkeeping failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		log.Info("lead acquisition dispatched",
			zap.String("job_id", job.ID),
			zap.Int64("order_id", job.OrderID),
		)
	}
}

func (p *WorkerPool) stuckSweeper(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.queue.requeueStuck(ctx, stuckJobAge)
		}
	}
}
