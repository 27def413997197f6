package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/internal/executor/config"
	"golang-signal-engine/internal/executor/repository"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStateReader struct {
	states map[string]string
}

func (s *stubStateReader) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := s.states[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

type stubJobRepo struct {
	running   []int64
	completed []int64
	failed    []int64
}

func (s *stubJobRepo) GetJob(context.Context, int64) (*entity.Job, error) { return nil, nil }
func (s *stubJobRepo) MarkRunning(_ context.Context, id int64) error {
	s.running = append(s.running, id)
	return nil
}
func (s *stubJobRepo) MarkCompleted(_ context.Context, id int64) error {
	s.completed = append(s.completed, id)
	return nil
}
func (s *stubJobRepo) MarkFailed(_ context.Context, id int64, _ string) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubLeaseRepo struct {
	acquireErr error
	acquired   []string
}

func (s *stubLeaseRepo) AcquireSymbolLease(_ context.Context, market, ticker, _ string, _ time.Duration) error {
	s.acquired = append(s.acquired, market+"/"+ticker)
	return s.acquireErr
}
func (s *stubLeaseRepo) AcquirePipelineLease(_ context.Context, market, kind, _ string, _ time.Duration) error {
	s.acquired = append(s.acquired, market+"/"+kind)
	return s.acquireErr
}
func (s *stubLeaseRepo) ExtendLease(context.Context, string, string, time.Duration) error {
	return nil
}
func (s *stubLeaseRepo) ReleaseSymbolLease(context.Context, string, string, string) error {
	return nil
}
func (s *stubLeaseRepo) ReleasePipelineLease(context.Context, string, string, string) error {
	return nil
}
func (s *stubLeaseRepo) ReleaseMarketLeases(context.Context, string) (int64, error) {
	return 0, nil
}

func testWorker(t *testing.T, state *stubStateReader, jobs *stubJobRepo, leases *stubLeaseRepo) *workerService {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.Executor.ConsumerName = "worker-test"
	return &workerService{
		cfg:       cfg,
		log:       log,
		state:     state,
		jobRepo:   jobs,
		leaseRepo: leases,
	}
}

func TestRunJobSkipsRealtimeWhenMarketClosed(t *testing.T) {
	jobs := &stubJobRepo{}
	leases := &stubLeaseRepo{}
	state := &stubStateReader{states: map[string]string{
		common.RedisKeyMarketState + "us": common.MarketStateClosed,
	}}
	w := testWorker(t, state, jobs, leases)

	err := w.RunJob(context.Background(), &entity.JobPayload{
		JobID:  7,
		Market: entity.MarketUS,
		Mode:   entity.JobModeRealtime,
	})
	require.NoError(t, err)

	// The job retires without touching leases or the engine.
	assert.Equal(t, []int64{7}, jobs.completed)
	assert.Empty(t, jobs.running)
	assert.Empty(t, leases.acquired)
}

func TestRunJobTreatsMissingStateAsClosed(t *testing.T) {
	jobs := &stubJobRepo{}
	w := testWorker(t, &stubStateReader{}, jobs, &stubLeaseRepo{})

	err := w.RunJob(context.Background(), &entity.JobPayload{
		JobID:  8,
		Market: entity.MarketVN,
		Mode:   entity.JobModeRealtime,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, jobs.completed)
}

func TestRunJobPipelineLeaseGuardsExecution(t *testing.T) {
	jobs := &stubJobRepo{}
	leases := &stubLeaseRepo{acquireErr: repository.ErrLeaseConflict}
	state := &stubStateReader{states: map[string]string{
		common.RedisKeyMarketState + "us": common.MarketStateOpen,
	}}
	w := testWorker(t, state, jobs, leases)

	err := w.RunJob(context.Background(), &entity.JobPayload{
		JobID:        9,
		Market:       entity.MarketUS,
		Mode:         entity.JobModeRealtime,
		PipelineKind: common.PipelineKindMACDMulti,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrLeaseConflict))

	// The market pipeline lease is contended before any state changes.
	assert.Equal(t, []string{"us/macd-multi"}, leases.acquired)
	assert.Empty(t, jobs.running)
	assert.Empty(t, jobs.failed)
}
