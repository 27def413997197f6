package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang-signal-engine/internal/executor/config"
	"golang-signal-engine/internal/executor/repository"
	"golang-signal-engine/internal/marketdata"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"
	"golang-signal-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// TickService keeps a live last-price feed while markets are open. It
// subscribes the provider WebSocket to every active ticker and mirrors each
// trade into Redis so pipeline runs and the API can read fresh prices
// without hitting the provider.
type TickService interface {
	Start(ctx context.Context)
	Stop()
}

// NewTickService creates a new tick service. A nil stream disables it.
func NewTickService(
	cfg *config.Config,
	log *logger.Logger,
	redisClient *redis.Client,
	symbolRepo repository.SymbolRepository,
	stream *marketdata.Stream,
) TickService {
	return &tickService{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		symbolRepo:  symbolRepo,
		stream:      stream,
		stopChan:    make(chan struct{}),
	}
}

type tickService struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *redis.Client
	symbolRepo  repository.SymbolRepository
	stream      *marketdata.Stream
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func (s *tickService) Start(ctx context.Context) {
	if s.stream == nil {
		s.log.Info("Tick stream not configured, skipping")
		return
	}
	s.wg.Add(1)
	utils.GoSafe(func() {
		defer s.wg.Done()
		s.run(ctx)
	})
}

func (s *tickService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// run keeps one connected session alive, reconnecting after the provider
// drops us. Each session re-resolves the active symbol set so newly added
// tickers join on the next reconnect.
func (s *tickService) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		default:
		}

		if !s.anyMarketOpen(ctx) {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-time.After(s.cfg.Executor.MarketStateCheckInterval):
			}
			continue
		}

		if err := s.session(ctx); err != nil {
			s.log.Warn("Tick stream session ended", logger.ErrorField(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-time.After(s.stream.ReconnectDelay()):
		}
	}
}

func (s *tickService) session(ctx context.Context) error {
	symbols, err := s.symbolRepo.ListActiveSymbols(ctx, "")
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no active symbols to subscribe")
	}
	tickers := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		tickers = append(tickers, sym.Ticker)
	}

	if err := s.stream.Connect(ctx, tickers); err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer s.stream.Close()
	s.log.Info("Tick stream connected", logger.IntField("tickers", len(tickers)))

	ticks, errs := s.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return nil
		case err := <-errs:
			return err
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			s.recordTick(ctx, tick)
		}
	}
}

// anyMarketOpen reports whether the scheduler has marked at least one market
// tradable. The stream stays disconnected outside trading hours.
func (s *tickService) anyMarketOpen(ctx context.Context) bool {
	var cursor uint64
	for {
		keys, next, err := s.redisClient.Scan(ctx, cursor, common.RedisKeyMarketState+"*", 20).Result()
		if err != nil {
			s.log.Error("Failed to scan market state", logger.ErrorField(err))
			return false
		}
		for _, key := range keys {
			state, err := s.redisClient.Get(ctx, key).Result()
			if err == nil && state == common.MarketStateOpen {
				return true
			}
		}
		cursor = next
		if cursor == 0 {
			return false
		}
	}
}

func (s *tickService) recordTick(ctx context.Context, tick marketdata.Tick) {
	key := common.RedisKeyLastPrice + tick.Ticker
	value := strconv.FormatFloat(tick.Price, 'f', -1, 64)
	if err := s.redisClient.Set(ctx, key, value, s.cfg.Executor.LastPriceTTL).Err(); err != nil {
		s.log.Error("Failed to record tick", logger.ErrorField(err), logger.Field("ticker", tick.Ticker))
	}
}
