package leadqueue

import (
	"context"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/observability/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the queue; only the worker binary adds WorkerModule.
var Module = fx.Module("leadqueue",
	fx.Provide(NewRedisClient),
	fx.Provide(provideQueue),
)

var WorkerModule = fx.Module("leadqueue.worker",
	fx.Provide(provideDispatcher),
	fx.Provide(provideWorkerPool),
	fx.Invoke(runWorkers),
)

func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideQueue(client *redis.Client, log *zap.Logger, cfg config.Config, m *metrics.Metrics) *Queue {
	return NewQueue(client, log, cfg.Queue.MaxRetries, m)
}

func provideDispatcher(cfg config.Config) ScrapeDispatcher {
	return NewHTTPDispatcher(cfg.Scraper)
}

func provideWorkerPool(queue *Queue, dispatcher ScrapeDispatcher, log *zap.Logger, cfg config.Config) *WorkerPool {
	return NewWorkerPool(queue, dispatcher, log, cfg.Queue.Workers)
}

func runWorkers(lc fx.Lifecycle, pool *WorkerPool) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pool.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Stop()
			return nil
		},
	})
}
