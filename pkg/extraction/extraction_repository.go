package extraction

import (
	"SpendSnap-Backend/entities"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	JobRepository interface {
		Create(ctx context.Context, job *entities.ExtractionJob) error
		GetByID(ctx context.Context, id uuid.UUID) (*entities.ExtractionJob, error)
		FetchPending(ctx context.Context, limit int) ([]*entities.ExtractionJob, error)

		// Claim flips pending->processing with a conditional update; exactly
		// one concurrent caller wins, the rest get false.
		Claim(ctx context.Context, id uuid.UUID) (bool, error)

		// MarkProcessed writes fields and raw output only while the job is
		// still processing; returns false when a terminal state won the race.
		MarkProcessed(ctx context.Context, id uuid.UUID, raw, fields json.RawMessage) (bool, error)

		// MarkError force-fails a processing job with a reason.
		MarkError(ctx context.Context, id uuid.UUID, reason string) (bool, error)

		// Requeue re-queues an errored job, bumping the retry counter, only
		// while the counter is below limit.
		Requeue(ctx context.Context, id uuid.UUID, limit int) (bool, error)

		// MarkReviewed finalizes a processed job as accepted or rejected.
		// A non-nil fields payload replaces the stored one, so accept
		// overrides survive on the job itself.
		MarkReviewed(ctx context.Context, id uuid.UUID, status entities.JobStatus, fields json.RawMessage) (bool, error)

		// ReapStale force-errors jobs stuck in processing since before cutoff.
		ReapStale(ctx context.Context, cutoff time.Time) (int64, error)
	}

	jobRepository struct {
		db *gorm.DB
	}
)

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *entities.ExtractionJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ExtractionJob, error) {
	var job entities.ExtractionJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) FetchPending(ctx context.Context, limit int) ([]*entities.ExtractionJob, error) {
	var jobs []*entities.ExtractionJob
	err := r.db.WithContext(ctx).
		Where("status = ?", entities.JobStatusPending).
		Order("updated_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.ExtractionJob{}).
		Where("id = ? AND status = ?", id, entities.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     entities.JobStatusProcessing,
			"updated_at": time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *jobRepository) MarkProcessed(ctx context.Context, id uuid.UUID, raw, fields json.RawMessage) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.ExtractionJob{}).
		Where("id = ? AND status = ?", id, entities.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":              entities.JobStatusProcessed,
			"raw_provider_output": []byte(raw),
			"fields":              []byte(fields),
			"error_reason":        "",
			"updated_at":          time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *jobRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.ExtractionJob{}).
		Where("id = ? AND status = ?", id, entities.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":       entities.JobStatusError,
			"error_reason": reason,
			"updated_at":   time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *jobRepository) Requeue(ctx context.Context, id uuid.UUID, limit int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.ExtractionJob{}).
		Where("id = ? AND status = ? AND retry_count < ?", id, entities.JobStatusError, limit).
		Updates(map[string]interface{}{
			"status":      entities.JobStatusPending,
			"retry_count": gorm.Expr("retry_count + 1"),
			"updated_at":  time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *jobRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status entities.JobStatus, fields json.RawMessage) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if len(fields) > 0 {
		updates["fields"] = []byte(fields)
	}
	res := r.db.WithContext(ctx).
		Model(&entities.ExtractionJob{}).
		Where("id = ? AND status = ?", id, entities.JobStatusProcessed).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *jobRepository) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.ExtractionJob{}).
		Where("status = ? AND updated_at < ?", entities.JobStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":       entities.JobStatusError,
			"error_reason": "timeout",
			"updated_at":   time.Now(),
		})
	return res.RowsAffected, res.Error
}
