package feedback

import (
	"SpendSnap-Backend/entities"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	// FeedbackRepository is append-only: corrections are training data and
	// are never updated or deleted, even when the job they reference goes.
	FeedbackRepository interface {
		Append(ctx context.Context, corrections []*entities.FieldCorrection) error
		ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entities.FieldCorrection, error)
	}

	feedbackRepository struct {
		db *gorm.DB
	}
)

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Append(ctx context.Context, corrections []*entities.FieldCorrection) error {
	if len(corrections) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(corrections).Error
}

func (r *feedbackRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entities.FieldCorrection, error) {
	var corrections []*entities.FieldCorrection
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("submitted_at asc").
		Find(&corrections).Error
	if err != nil {
		return nil, err
	}
	return corrections, nil
}
