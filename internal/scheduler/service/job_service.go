package service

import (
	"context"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/internal/scheduler/dto"
	"golang-signal-engine/internal/scheduler/repository"
	"golang-signal-engine/pkg/logger"
)

// JobService exposes job enqueueing and inspection to the API layer.
type JobService interface {
	CreateJob(ctx context.Context, req *dto.CreateJobRequest) (*dto.JobResponse, error)
	GetJobByID(ctx context.Context, id int64) (*dto.JobResponse, error)
	GetAllJobs(ctx context.Context, market, status string, limit int) ([]*dto.JobResponse, error)
}

// NewJobService creates a new job service.
func NewJobService(log *logger.Logger, jobRepo repository.JobRepository, scheduler SchedulerService) JobService {
	return &jobService{log: log, jobRepo: jobRepo, scheduler: scheduler}
}

type jobService struct {
	log       *logger.Logger
	jobRepo   repository.JobRepository
	scheduler SchedulerService
}

func (s *jobService) CreateJob(ctx context.Context, req *dto.CreateJobRequest) (*dto.JobResponse, error) {
	job, err := s.scheduler.EnqueueJob(ctx, entity.MarketType(req.Market), entity.JobMode(req.Mode), req.SymbolCodes, req.PipelineKind)
	if err != nil {
		return nil, err
	}
	s.log.Info("Job enqueued via API",
		logger.Field("job_id", job.ID),
		logger.Field("market", req.Market),
		logger.Field("mode", req.Mode),
	)
	return dto.NewJobResponse(job), nil
}

func (s *jobService) GetJobByID(ctx context.Context, id int64) (*dto.JobResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewJobResponse(job), nil
}

func (s *jobService) GetAllJobs(ctx context.Context, market, status string, limit int) ([]*dto.JobResponse, error) {
	jobs, err := s.jobRepo.FindAll(ctx, market, status, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, dto.NewJobResponse(&jobs[i]))
	}
	return out, nil
}
