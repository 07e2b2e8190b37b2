package budget

import (
	"SpendSnap-Backend/entities"
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	BudgetRepository interface {
		Create(ctx context.Context, budget *entities.Budget) error
		GetByID(ctx context.Context, id uuid.UUID) (*entities.Budget, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Budget, error)
		Update(ctx context.Context, budget *entities.Budget) error
		Delete(ctx context.Context, id uuid.UUID) error

		// GetAlert returns the notification high-water mark for one budget
		// period; nil when nothing has been notified yet.
		GetAlert(ctx context.Context, budgetID uuid.UUID, periodKey string) (*entities.BudgetAlert, error)
		SaveAlert(ctx context.Context, alert *entities.BudgetAlert) error
	}

	budgetRepository struct {
		db *gorm.DB
	}
)

func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) Create(ctx context.Context, budget *entities.Budget) error {
	return r.db.WithContext(ctx).Create(budget).Error
}

func (r *budgetRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Budget, error) {
	var budget entities.Budget
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&budget).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *budgetRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Budget, error) {
	var budgets []*entities.Budget
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *budgetRepository) Update(ctx context.Context, budget *entities.Budget) error {
	return r.db.WithContext(ctx).Save(budget).Error
}

func (r *budgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Budget{}).Error
}

func (r *budgetRepository) GetAlert(ctx context.Context, budgetID uuid.UUID, periodKey string) (*entities.BudgetAlert, error) {
	var alert entities.BudgetAlert
	err := r.db.WithContext(ctx).
		Where("budget_id = ? AND period_key = ?", budgetID, periodKey).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (r *budgetRepository) SaveAlert(ctx context.Context, alert *entities.BudgetAlert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "budget_id"}, {Name: "period_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_threshold", "updated_at"}),
		}).
		Create(alert).Error
}
