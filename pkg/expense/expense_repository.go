package expense

import (
	"SpendSnap-Backend/entities"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	ExpenseRepository interface {
		Create(ctx context.Context, record *entities.ExpenseRecord) error
		GetByID(ctx context.Context, id uuid.UUID) (*entities.ExpenseRecord, error)
		GetBySourceJobID(ctx context.Context, jobID uuid.UUID) (*entities.ExpenseRecord, error)
		List(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.ExpenseRecord, error)

		// SumForPeriod aggregates committed records only; categoryID nil sums
		// everything (the overall budget), a value sums that category alone.
		SumForPeriod(ctx context.Context, userID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	}

	expenseRepository struct {
		db *gorm.DB
	}
)

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, record *entities.ExpenseRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ExpenseRecord, error) {
	var record entities.ExpenseRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *expenseRepository) GetBySourceJobID(ctx context.Context, jobID uuid.UUID) (*entities.ExpenseRecord, error) {
	var record entities.ExpenseRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("source_job_id = ?", jobID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *expenseRepository) List(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.ExpenseRecord, error) {
	var records []*entities.ExpenseRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND transaction_date BETWEEN ? AND ?", userID, from, to).
		Order("transaction_date desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *expenseRepository) SumForPeriod(ctx context.Context, userID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal

	query := r.db.WithContext(ctx).
		Model(&entities.ExpenseRecord{}).
		Select("SUM(total_amount)").
		Where("user_id = ? AND transaction_date BETWEEN ? AND ?", userID, from, to)
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}

	if err := query.Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
