package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rozysk-service/internal/model"
)

const defaultJobsLimit = 50

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *model.ProcessingJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

type JobListFilter struct {
	// OwnerID nil - задания всех пользователей
	OwnerID *uuid.UUID
	Limit   int
}

func (r *JobRepository) List(ctx context.Context, filter JobListFilter) ([]model.ProcessingJob, error) {
	var jobs []model.ProcessingJob
	query := r.db.WithContext(ctx).Model(&model.ProcessingJob{})

	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultJobsLimit
	}

	if err := query.Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}

	return jobs, nil
}
