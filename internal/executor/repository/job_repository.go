package repository

import (
	"context"
	"database/sql"
	"time"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
)

// JobRepository is the executor-side view of jobs: claiming, completing and
// failing units of work the scheduler enqueued.
type JobRepository interface {
	GetJob(ctx context.Context, id int64) (*entity.Job, error)
	MarkRunning(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) GetJob(ctx context.Context, id int64) (*entity.Job, error) {
	var job entity.Job
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) MarkRunning(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&entity.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     entity.JobStatusRunning,
			"started_at": sql.NullTime{Time: time.Now().UTC(), Valid: true},
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
}

func (r *jobRepository) MarkCompleted(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&entity.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       entity.JobStatusCompleted,
			"completed_at": sql.NullTime{Time: time.Now().UTC(), Valid: true},
		}).Error
}

func (r *jobRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.db.WithContext(ctx).Model(&entity.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        entity.JobStatusFailed,
			"completed_at":  sql.NullTime{Time: time.Now().UTC(), Valid: true},
			"error_message": sql.NullString{String: reason, Valid: reason != ""},
		}).Error
}
