package repository

import (
	"context"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
)

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id int64) (*entity.Job, error)
	FindAll(ctx context.Context, market string, status string, limit int) ([]entity.Job, error)
	FindPending(ctx context.Context, limit int) ([]entity.Job, error)
	Update(ctx context.Context, job *entity.Job) error
	CountActive(ctx context.Context, market entity.MarketType) (int64, error)
}

// NewJobRepository creates a new GORM-based job repository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

type jobRepository struct {
	db *gorm.DB
}

func (r *jobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) FindByID(ctx context.Context, id int64) (*entity.Job, error) {
	var job entity.Job
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindAll lists jobs newest first, optionally filtered by market and status.
func (r *jobRepository) FindAll(ctx context.Context, market string, status string, limit int) ([]entity.Job, error) {
	q := r.db.WithContext(ctx).Model(&entity.Job{})
	if market != "" {
		q = q.Where("market = ?", market)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 100
	}
	var jobs []entity.Job
	if err := q.Order("requested_at desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindPending returns pending jobs oldest first so the sweep preserves
// request order.
func (r *jobRepository) FindPending(ctx context.Context, limit int) ([]entity.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.JobStatusPending).
		Order("requested_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) Update(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// CountActive counts jobs that are pending or running for a market.
func (r *jobRepository) CountActive(ctx context.Context, market entity.MarketType) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("market = ? AND status IN ?", market, []entity.JobStatus{entity.JobStatusPending, entity.JobStatusRunning}).
		Count(&n).Error
	return n, err
}
