package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/internal/scheduler/config"
	"golang-signal-engine/internal/scheduler/repository"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"
	"golang-signal-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// SchedulerService drives the job lifecycle: it reacts to market transitions
// by starting and stopping per-market realtime cadences, enqueues nightly
// backfills, and sweeps pending jobs whose stream publish was lost.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
	EnqueueJob(ctx context.Context, market entity.MarketType, mode entity.JobMode, symbols []string, pipelineKind string) (*entity.Job, error)
	ProcessPending(ctx context.Context)
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(cfg *config.Config, log *logger.Logger, jobRepo repository.JobRepository, redisClient *redis.Client, marketHours MarketHoursService) SchedulerService {
	return &schedulerService{
		cfg:             cfg,
		log:             log,
		jobRepo:         jobRepo,
		redisClient:     redisClient,
		marketHours:     marketHours,
		cron:            cron.New(),
		realtimeEntries: make(map[entity.MarketType]cron.EntryID),
		stopChan:        make(chan struct{}),
	}
}

type schedulerService struct {
	cfg         *config.Config
	log         *logger.Logger
	jobRepo     repository.JobRepository
	redisClient *redis.Client
	marketHours MarketHoursService

	cron            *cron.Cron
	mu              sync.Mutex
	realtimeEntries map[entity.MarketType]cron.EntryID
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// Start registers the per-market backfill crons, begins tracking market
// hours and launches the event and sweep loops.
func (s *schedulerService) Start(ctx context.Context) error {
	for code, cal := range s.cfg.Scheduler.Markets {
		market := entity.MarketType(code)
		spec := fmt.Sprintf("CRON_TZ=%s %s", cal.Timezone, s.cfg.Scheduler.BackfillCron)
		_, err := s.cron.AddFunc(spec, func() { s.enqueueScheduled(ctx, market, entity.JobModeBackfill) })
		if err != nil {
			return fmt.Errorf("register backfill cron for %s: %w", market, err)
		}
	}
	s.cron.Start()
	s.marketHours.Start(ctx)

	s.wg.Add(1)
	utils.GoSafe(func() {
		defer s.wg.Done()
		s.eventLoop(ctx)
	})

	s.wg.Add(1)
	utils.GoSafe(func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Scheduler.PollingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.ProcessPending(ctx)
			}
		}
	})

	s.log.Info("Scheduler service started", logger.IntField("markets", len(s.cfg.Scheduler.Markets)))
	return nil
}

func (s *schedulerService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.marketHours.Stop()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *schedulerService) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case ev, ok := <-s.marketHours.Events():
			if !ok {
				return
			}
			s.handleMarketEvent(ctx, ev)
		}
	}
}

// handleMarketEvent maps session transitions onto scheduling actions. The
// pre-open window triggers a catch-up backfill so indicators are fresh at
// the bell; the open starts the realtime cadence; the close stops it and
// sweeps any leases the workers left behind.
func (s *schedulerService) handleMarketEvent(ctx context.Context, ev MarketStateEvent) {
	switch ev.To {
	case MarketStateOpening:
		s.enqueueScheduled(ctx, ev.Market, entity.JobModeBackfill)
	case MarketStateOpen:
		s.startRealtime(ctx, ev.Market)
	case MarketStateClosed:
		s.stopRealtime(ev.Market)
		s.releaseMarketLeases(ctx, ev.Market)
	}
}

func (s *schedulerService) startRealtime(ctx context.Context, market entity.MarketType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.realtimeEntries[market]; ok {
		return
	}
	spec := fmt.Sprintf("@every %s", s.cfg.Scheduler.RealtimeInterval)
	id, err := s.cron.AddFunc(spec, func() { s.enqueueScheduled(ctx, market, entity.JobModeRealtime) })
	if err != nil {
		s.log.Error("Failed to start realtime cadence", logger.ErrorField(err), logger.Field("market", string(market)))
		return
	}
	s.realtimeEntries[market] = id
	s.log.Info("Realtime cadence started", logger.Field("market", string(market)), logger.Field("interval", s.cfg.Scheduler.RealtimeInterval.String()))

	// Kick off the first cycle immediately rather than waiting one interval.
	s.enqueueScheduled(ctx, market, entity.JobModeRealtime)
}

func (s *schedulerService) stopRealtime(market entity.MarketType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.realtimeEntries[market]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.realtimeEntries, market)
	s.log.Info("Realtime cadence stopped", logger.Field("market", string(market)))
}

func (s *schedulerService) enqueueScheduled(ctx context.Context, market entity.MarketType, mode entity.JobMode) {
	if _, err := s.EnqueueJob(ctx, market, mode, nil, common.PipelineKindGeneric); err != nil {
		s.log.Error("Failed to enqueue scheduled job",
			logger.ErrorField(err),
			logger.Field("market", string(market)),
			logger.Field("mode", string(mode)),
		)
		return
	}
	s.log.Debug("Scheduled job enqueued",
		logger.Field("market", string(market)),
		logger.Field("mode", string(mode)),
		logger.Field("market_time", utils.TimeNowIn(s.cfg.Scheduler.Markets[string(market)].Timezone).Format(time.RFC3339)),
	)
}

// EnqueueJob records a job row and publishes its payload onto the market's
// stream. The row is the durable source of truth; if the publish fails the
// pending sweep retries it.
func (s *schedulerService) EnqueueJob(ctx context.Context, market entity.MarketType, mode entity.JobMode, symbols []string, pipelineKind string) (*entity.Job, error) {
	if _, ok := s.cfg.Scheduler.Markets[string(market)]; !ok {
		return nil, fmt.Errorf("unknown market %q", market)
	}
	switch mode {
	case entity.JobModeRealtime, entity.JobModeBackfill:
	default:
		return nil, fmt.Errorf("unknown job mode %q", mode)
	}
	if pipelineKind == "" {
		pipelineKind = common.PipelineKindGeneric
	}

	job := &entity.Job{
		Market:       market,
		Mode:         mode,
		PipelineKind: pipelineKind,
		Status:       entity.JobStatusPending,
		RequestedAt:  time.Now(),
	}
	if len(symbols) > 0 {
		codes, err := json.Marshal(symbols)
		if err != nil {
			return nil, fmt.Errorf("marshal symbol codes: %w", err)
		}
		job.SymbolCodes = codes
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.publishJob(ctx, job); err != nil {
		// Leave the row pending; ProcessPending republishes it.
		s.log.Error("Failed to publish job, leaving for sweep", logger.ErrorField(err), logger.Field("job_id", job.ID))
	}
	return job, nil
}

func (s *schedulerService) publishJob(ctx context.Context, job *entity.Job) error {
	payload := entity.JobPayload{
		JobID:        job.ID,
		Market:       job.Market,
		Mode:         job.Mode,
		PipelineKind: job.PipelineKind,
		Attempt:      job.Attempts,
	}
	if len(job.SymbolCodes) > 0 {
		if err := json.Unmarshal(job.SymbolCodes, &payload.SymbolCodes); err != nil {
			return fmt.Errorf("decode symbol codes: %w", err)
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	stream := common.JobStreamForMarket(string(job.Market))
	if job.Mode == entity.JobModeBackfill {
		stream = common.RedisStreamJobsBackfill
	}
	err = s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"payload": body},
		MaxLen: s.cfg.Redis.StreamMaxLen,
		Approx: true,
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue job %d: %w", job.ID, err)
	}
	s.log.Debug("Job published", logger.Field("job_id", job.ID), logger.Field("stream", stream))
	return nil
}

// ProcessPending republishes pending jobs that never reached a worker.
// Only rows older than one sweep interval are retried so a job is not
// duplicated while its first publish is still in flight; the pipelines are
// idempotent and lease-guarded, so an occasional duplicate is harmless.
func (s *schedulerService) ProcessPending(ctx context.Context) {
	jobs, err := s.jobRepo.FindPending(ctx, 100)
	if err != nil {
		s.log.Error("Failed to list pending jobs", logger.ErrorField(err))
		return
	}
	cutoff := time.Now().Add(-s.cfg.Scheduler.PollingInterval)
	for i := range jobs {
		job := &jobs[i]
		if job.RequestedAt.After(cutoff) {
			continue
		}
		// Drop stale realtime work once its market has closed; a fresh
		// cycle is worth more than a late one.
		if job.Mode == entity.JobModeRealtime && !s.marketHours.StateOf(job.Market).Trading() {
			job.Status = entity.JobStatusCompleted
			job.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
			job.ErrorMessage = sql.NullString{String: "market closed before dispatch", Valid: true}
			if err := s.jobRepo.Update(ctx, job); err != nil {
				s.log.Error("Failed to retire stale job", logger.ErrorField(err), logger.Field("job_id", job.ID))
			}
			continue
		}
		if err := s.publishJob(ctx, job); err != nil {
			s.log.Error("Failed to republish job", logger.ErrorField(err), logger.Field("job_id", job.ID))
		}
	}
}

// releaseMarketLeases clears symbol and pipeline leases left over when a
// market closes mid-job so the next session starts clean.
func (s *schedulerService) releaseMarketLeases(ctx context.Context, market entity.MarketType) {
	patterns := []string{
		common.RedisKeyLeaseSymbol + string(market) + ".*",
		common.RedisKeyLeasePipeline + string(market),
	}
	released := 0
	for _, pattern := range patterns {
		iter := s.redisClient.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := s.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
				s.log.Error("Failed to release lease", logger.ErrorField(err), logger.Field("key", iter.Val()))
				continue
			}
			released++
		}
		if err := iter.Err(); err != nil {
			s.log.Error("Failed to scan leases", logger.ErrorField(err), logger.Field("pattern", pattern))
		}
	}
	if released > 0 {
		s.log.Info("Released market leases", logger.Field("market", string(market)), logger.IntField("count", released))
	}
}
