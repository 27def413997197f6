package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-signal-engine/internal/engine"
	"golang-signal-engine/internal/entity"
	"golang-signal-engine/internal/executor/config"
	"golang-signal-engine/internal/executor/repository"
	"golang-signal-engine/internal/marketdata"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"
	"golang-signal-engine/pkg/telegram"
	"golang-signal-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// WorkerService consumes job payloads from the Redis job streams, guards
// them with leases and runs the signal engine over the requested symbols.
type WorkerService interface {
	ProcessStream(streamName string) func(ctx context.Context)
	ProcessRetries(streamName string) func(ctx context.Context)
	RunJob(ctx context.Context, payload *entity.JobPayload) error
	ExpireSignals(ctx context.Context)
}

// marketStateReader reads the scheduler-mirrored market state keys.
// *redis.Client satisfies it.
type marketStateReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type workerService struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *redis.Client
	state       marketStateReader
	engine      *engine.SignalEngine
	jobRepo     repository.JobRepository
	symbolRepo  repository.SymbolRepository
	candleRepo  repository.CandleRepository
	indicators  repository.IndicatorRepository
	signalRepo  repository.SignalRepository
	leaseRepo   repository.LeaseRepository
	mdClient    *marketdata.Client
	notifier    telegram.Notifier
}

func NewWorkerService(
	cfg *config.Config,
	log *logger.Logger,
	redisClient *redis.Client,
	signalEngine *engine.SignalEngine,
	jobRepo repository.JobRepository,
	symbolRepo repository.SymbolRepository,
	candleRepo repository.CandleRepository,
	indicators repository.IndicatorRepository,
	signalRepo repository.SignalRepository,
	leaseRepo repository.LeaseRepository,
	mdClient *marketdata.Client,
	notifier telegram.Notifier,
) WorkerService {
	return &workerService{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		state:       redisClient,
		engine:      signalEngine,
		jobRepo:     jobRepo,
		symbolRepo:  symbolRepo,
		candleRepo:  candleRepo,
		indicators:  indicators,
		signalRepo:  signalRepo,
		leaseRepo:   leaseRepo,
		mdClient:    mdClient,
		notifier:    notifier,
	}
}

// ProcessStream returns the consume loop body for one job stream.
func (s *workerService) ProcessStream(streamName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    common.RedisStreamGroup,
			Consumer: s.cfg.Executor.ConsumerName,
			Streams:  []string{streamName, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			// Cancellation and empty blocks are expected during shutdown
			// and idle periods.
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
				return
			}
			s.log.Error("Failed to read from job stream",
				logger.StringField("stream", streamName),
				logger.ErrorField(err))
			return
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			return
		}
		s.handleMessage(ctx, streamName, streams[0].Messages[0])
	}
}

func (s *workerService) handleMessage(ctx context.Context, streamName string, message redis.XMessage) {
	raw, ok := message.Values["payload"].(string)
	if !ok {
		s.log.Error("Field 'payload' not found or not a string in stream message",
			logger.Field("message_id", message.ID))
		s.ackNDel(ctx, streamName, message.ID)
		return
	}

	var payload entity.JobPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.log.Error("Failed to unmarshal job payload",
			logger.ErrorField(err),
			logger.Field("message_id", message.ID))
		s.ackNDel(ctx, streamName, message.ID)
		return
	}

	err := s.RunJob(ctx, &payload)
	switch {
	case errors.Is(err, repository.ErrLeaseConflict):
		// Another worker owns the pipeline; requeue so the job runs once
		// the lease clears.
		s.requeue(ctx, streamName, &payload)
		s.ackNDel(ctx, streamName, message.ID)
	case err != nil:
		s.log.Error("Job failed",
			logger.Field("job_id", payload.JobID),
			logger.StringField("market", string(payload.Market)),
			logger.ErrorField(err))
		// Left pending; the retry loop reclaims it after MaxIdleDuration.
	default:
		s.ackNDel(ctx, streamName, message.ID)
	}
}

// ProcessRetries returns the reclaim loop body for one job stream. Messages
// a worker died holding are claimed back and retried; past MaxRetry they are
// dropped and the job is marked failed.
func (s *workerService) ProcessRetries(streamName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   streamName,
			Group:    common.RedisStreamGroup,
			Consumer: s.cfg.Executor.ConsumerName + "-retry",
			MinIdle:  s.cfg.Executor.MaxIdleDuration,
			Start:    "0",
			Count:    1,
		}).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
				return
			}
			s.log.Error("Failed to claim pending job",
				logger.StringField("stream", streamName),
				logger.ErrorField(err))
			return
		}
		if len(msgs) == 0 {
			return
		}

		message := msgs[0]
		pending, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: streamName,
			Group:  common.RedisStreamGroup,
			Start:  message.ID,
			End:    message.ID,
			Count:  1,
		}).Result()
		if err != nil {
			s.log.Error("Failed to inspect pending job", logger.ErrorField(err))
			return
		}
		if len(pending) > 0 && int(pending[0].RetryCount) > s.cfg.Executor.MaxRetry {
			s.log.Warn("Dropping job past retry budget",
				logger.StringField("stream", streamName),
				logger.Field("message_id", message.ID),
				logger.Field("retries", pending[0].RetryCount))
			s.failFromMessage(ctx, message, "retry budget exhausted")
			s.ackNDel(ctx, streamName, message.ID)
			return
		}

		s.handleMessage(ctx, streamName, message)
	}
}

func (s *workerService) failFromMessage(ctx context.Context, message redis.XMessage, reason string) {
	raw, ok := message.Values["payload"].(string)
	if !ok {
		return
	}
	var payload entity.JobPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.JobID == 0 {
		return
	}
	if err := s.jobRepo.MarkFailed(ctx, payload.JobID, reason); err != nil {
		s.log.Error("Failed to mark job failed", logger.ErrorField(err))
	}
}

func (s *workerService) ackNDel(ctx context.Context, streamName, messageID string) {
	if err := s.redisClient.XAck(ctx, streamName, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge job", logger.ErrorField(err), logger.Field("message_id", messageID))
		return
	}
	if err := s.redisClient.XDel(ctx, streamName, messageID).Err(); err != nil {
		s.log.Error("Failed to delete job message", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}

func (s *workerService) requeue(ctx context.Context, streamName string, payload *entity.JobPayload) {
	payload.Attempt++
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("Failed to marshal requeued payload", logger.ErrorField(err))
		return
	}
	if err := s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		MaxLen: s.cfg.Redis.StreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": string(body)},
	}).Err(); err != nil {
		s.log.Error("Failed to requeue job", logger.ErrorField(err))
	}
}

// RunJob executes one job payload end to end.
func (s *workerService) RunJob(ctx context.Context, payload *entity.JobPayload) error {
	if payload.Mode == entity.JobModeRealtime && !s.marketOpen(ctx, payload.Market) {
		// The scheduler stops realtime cadences at close, but a message can
		// still be in flight across the boundary.
		s.log.Info("Skipping realtime job, market closed",
			logger.StringField("market", string(payload.Market)))
		if payload.JobID != 0 {
			return s.jobRepo.MarkCompleted(ctx, payload.JobID)
		}
		return nil
	}

	kind := payload.PipelineKind
	if kind == "" {
		kind = common.PipelineKindGeneric
	}
	holder := s.cfg.Executor.ConsumerName
	if err := s.leaseRepo.AcquirePipelineLease(ctx, string(payload.Market), kind, holder, s.cfg.Executor.PipelineLeaseTTL); err != nil {
		return err
	}
	defer func() {
		if err := s.leaseRepo.ReleasePipelineLease(context.WithoutCancel(ctx), string(payload.Market), kind, holder); err != nil {
			s.log.Error("Failed to release pipeline lease", logger.ErrorField(err))
		}
	}()

	if payload.JobID != 0 {
		if err := s.jobRepo.MarkRunning(ctx, payload.JobID); err != nil {
			return fmt.Errorf("mark job running: %w", err)
		}
	}

	if payload.Mode == entity.JobModeBackfill {
		if err := s.backfill(ctx, payload); err != nil {
			s.failJob(ctx, payload, err)
			return err
		}
	}

	result, err := s.engine.RunPipeline(ctx, engine.PipelineConfig{
		Market:  payload.Market,
		Symbols: payload.SymbolCodes,
		Kind:    kind,
	}, payload.Mode)
	if err != nil {
		s.failJob(ctx, payload, err)
		return err
	}

	if payload.JobID != 0 {
		if err := s.jobRepo.MarkCompleted(ctx, payload.JobID); err != nil {
			return fmt.Errorf("mark job completed: %w", err)
		}
	}

	s.log.Info("Job completed",
		logger.Field("job_id", payload.JobID),
		logger.StringField("market", string(payload.Market)),
		logger.StringField("mode", string(payload.Mode)),
		logger.IntField("symbols", result.SymbolsProcessed),
		logger.IntField("signals", result.SignalsGenerated))

	if result.SignalsGenerated > 0 {
		msg := telegram.FormatPipelineSummary(string(payload.Market), string(payload.Mode),
			result.SymbolsProcessed, result.SignalsGenerated, string(result.Status))
		if err := s.notifier.SendMessage(msg); err != nil {
			s.log.Error("Failed to send pipeline notification", logger.ErrorField(err))
		}
	}
	return nil
}

func (s *workerService) failJob(ctx context.Context, payload *entity.JobPayload, cause error) {
	if payload.JobID == 0 {
		return
	}
	if err := s.jobRepo.MarkFailed(context.WithoutCancel(ctx), payload.JobID, cause.Error()); err != nil {
		s.log.Error("Failed to mark job failed", logger.ErrorField(err))
	}
}

func (s *workerService) marketOpen(ctx context.Context, market entity.MarketType) bool {
	state, err := s.state.Get(ctx, common.RedisKeyMarketState+string(market)).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		s.log.Error("Failed to read market state", logger.ErrorField(err))
		return false
	}
	return state == common.MarketStateOpen
}

// backfill fetches missing candles and recomputes indicator snapshots for
// every symbol and timeframe of the job. Each symbol is guarded by its own
// lease so two backfill workers never touch the same ticker.
func (s *workerService) backfill(ctx context.Context, payload *entity.JobPayload) error {
	symbols, err := s.symbolRepo.ListActiveSymbols(ctx, payload.Market)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	if len(payload.SymbolCodes) > 0 {
		wanted := make(map[string]struct{}, len(payload.SymbolCodes))
		for _, code := range payload.SymbolCodes {
			wanted[code] = struct{}{}
		}
		filtered := symbols[:0]
		for _, sym := range symbols {
			if _, ok := wanted[sym.Ticker]; ok {
				filtered = append(filtered, sym)
			}
		}
		symbols = filtered
	}

	holder := s.cfg.Executor.ConsumerName
	var lastErr error
	for i := range symbols {
		symbol := &symbols[i]
		if err := s.leaseRepo.AcquireSymbolLease(ctx, string(payload.Market), symbol.Ticker, holder, s.cfg.Executor.SymbolLeaseTTL); err != nil {
			if errors.Is(err, repository.ErrLeaseConflict) {
				s.log.Debug("Symbol held by another worker, skipping",
					logger.StringField("ticker", symbol.Ticker))
				continue
			}
			return err
		}

		if err := s.backfillSymbol(ctx, symbol); err != nil {
			lastErr = err
			s.log.Error("Backfill failed for symbol",
				logger.StringField("ticker", symbol.Ticker),
				logger.ErrorField(err))
		}

		if err := s.leaseRepo.ReleaseSymbolLease(ctx, string(payload.Market), symbol.Ticker, holder); err != nil {
			s.log.Error("Failed to release symbol lease", logger.ErrorField(err))
		}
	}
	return lastErr
}

func (s *workerService) backfillSymbol(ctx context.Context, symbol *entity.Symbol) error {
	now := time.Now().UTC()
	for _, timeframe := range s.cfg.Engine.Timeframes {
		latest, err := s.candleRepo.GetLatestTimestamp(ctx, symbol.ID, timeframe)
		if err != nil {
			return err
		}
		from := latest
		if from.IsZero() {
			from = now.Add(-lookback(timeframe, s.cfg.Executor.BackfillLookbackBars))
		}
		// Align to the bar boundary so the provider window starts on a
		// full candle.
		from = utils.TruncateToTimeframe(from, barDuration(timeframe))

		candles, err := s.mdClient.GetCandles(ctx, symbol, timeframe, from, now)
		if errors.Is(err, marketdata.ErrDataUnavailable) {
			continue
		}
		if err != nil {
			return err
		}
		if err := s.candleRepo.BulkUpsert(ctx, candles); err != nil {
			return err
		}

		window, err := s.candleRepo.GetRecent(ctx, symbol.ID, timeframe, s.cfg.Executor.BackfillCandleBatch)
		if err != nil {
			return err
		}
		snapshot, err := engine.ComputeSnapshot(window, s.cfg.Engine.MACD)
		if errors.Is(err, engine.ErrInsufficientData) {
			continue
		}
		if err != nil {
			return err
		}
		if err := s.indicators.SaveSnapshot(ctx, snapshot); err != nil {
			return err
		}
	}
	return nil
}

// lookback converts a bar budget into a wall-clock window.
func lookback(timeframe string, bars int) time.Duration {
	if bars <= 0 {
		bars = 300
	}
	return time.Duration(bars) * barDuration(timeframe)
}

func barDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "2m":
		return 2 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// ExpireSignals is run on a ticker; it flips active signals past their
// expiry to expired.
func (s *workerService) ExpireSignals(ctx context.Context) {
	expired, err := s.signalRepo.ExpireSignals(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("Failed to expire signals", logger.ErrorField(err))
		return
	}
	if expired > 0 {
		s.log.Info("Expired stale signals", logger.Field("count", expired))
	}
}
