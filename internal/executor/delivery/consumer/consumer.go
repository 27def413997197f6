package consumer

import (
	"context"
	"sync"
	"time"

	"golang-signal-engine/internal/executor/config"
	"golang-signal-engine/internal/executor/service"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"
	"golang-signal-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
)

var jobStreams = []string{
	common.RedisStreamJobsUS,
	common.RedisStreamJobsVN,
	common.RedisStreamJobsPriority,
	common.RedisStreamJobsBackfill,
}

// RedisConsumer manages the consumption of jobs from the Redis job streams.
type RedisConsumer struct {
	cfg           *config.Config
	redisClient   *redis.Client
	workerService service.WorkerService
	logger        *logger.Logger
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	workerService service.WorkerService,
	log *logger.Logger,
) *RedisConsumer {
	return &RedisConsumer{
		cfg:           cfg,
		redisClient:   redisClient,
		workerService: workerService,
		logger:        log,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the consumer's job processing loops, one reader and one retry
// reclaimer per stream, plus the signal expiry sweep.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	for _, stream := range jobStreams {
		c.RegisterStreamHandler(ctx, c.workerService.ProcessStream(stream), stream, c.cfg.Executor.JobTimeout)
		c.RegisterTickerHandler(ctx, c.workerService.ProcessRetries(stream),
			c.cfg.Executor.RetryInterval, c.cfg.Executor.JobTimeout, stream+"-retry")
	}
	c.RegisterTickerHandler(ctx, c.workerService.ExpireSignals,
		c.cfg.Executor.SignalExpiryInterval, c.cfg.Executor.JobTimeout, "signal-expiry")
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Stream handler stopping due to context cancellation", logger.Field("stream", streamName))
				return
			case <-c.stopChan:
				c.logger.Info("Stream handler stopping", logger.Field("stream", streamName))
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
