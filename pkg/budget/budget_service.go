package budget

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"SpendSnap-Backend/pkg/notification"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	// SpendingReader is the slice of the ledger the aggregator reads; the
	// expense repository satisfies it. Only committed records are visible,
	// so an in-flight write is never double-counted.
	SpendingReader interface {
		SumForPeriod(ctx context.Context, userID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	}

	BudgetService interface {
		CreateBudget(ctx context.Context, req domain.CreateBudgetRequest, userID string) (domain.BudgetResponse, error)
		GetBudgets(ctx context.Context, userID string, ref time.Time) (domain.BudgetListResponse, error)
		UpdateBudget(ctx context.Context, id string, req domain.UpdateBudgetRequest, userID string) (domain.BudgetResponse, error)
		DeleteBudget(ctx context.Context, id string, userID string) error

		// EvaluateThresholds recomputes rollups after a ledger write and
		// fires each newly crossed threshold notification exactly once per
		// budget period.
		EvaluateThresholds(ctx context.Context, userID uuid.UUID, txDate time.Time)
	}

	budgetService struct {
		budgetRepository BudgetRepository
		spending         SpendingReader
		notifier         notification.Notifier
	}
)

func NewBudgetService(budgetRepository BudgetRepository, spending SpendingReader, notifier notification.Notifier) BudgetService {
	return &budgetService{
		budgetRepository: budgetRepository,
		spending:         spending,
		notifier:         notifier,
	}
}

func (s *budgetService) CreateBudget(ctx context.Context, req domain.CreateBudgetRequest, userID string) (domain.BudgetResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.BudgetResponse{}, domain.ErrParseUUID
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return domain.BudgetResponse{}, domain.ErrAmountRequired
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return domain.BudgetResponse{}, domain.ErrValidation
	}
	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return domain.BudgetResponse{}, domain.ErrValidation
		}
		endDate = &parsed
	}

	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return domain.BudgetResponse{}, domain.ErrParseUUID
		}
		categoryID = &parsed
	}

	budget := &entities.Budget{
		ID:         uuid.New(),
		UserID:     userUUID,
		CategoryID: categoryID,
		Name:       req.Name,
		Amount:     amount,
		Period:     req.Period,
		StartDate:  startDate,
		EndDate:    endDate,
	}

	if err := s.budgetRepository.Create(ctx, budget); err != nil {
		return domain.BudgetResponse{}, err
	}
	return toBudgetResponse(budget), nil
}

func (s *budgetService) GetBudgets(ctx context.Context, userID string, ref time.Time) (domain.BudgetListResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.BudgetListResponse{}, domain.ErrParseUUID
	}

	budgets, err := s.budgetRepository.ListByUser(ctx, userUUID)
	if err != nil {
		return domain.BudgetListResponse{}, err
	}

	resp := domain.BudgetListResponse{Budgets: make([]domain.BudgetRollup, 0, len(budgets))}
	for _, budget := range budgets {
		from, to, _ := PeriodWindow(budget, ref)
		if ref.Before(from) || ref.After(to) {
			continue
		}

		spending, err := s.spending.SumForPeriod(ctx, userUUID, budget.CategoryID, from, to)
		if err != nil {
			return domain.BudgetListResponse{}, err
		}

		rollup := buildRollup(budget, spending, from, to)
		if budget.CategoryID == nil {
			overall := rollup
			resp.OverallBudget = &overall
		}
		resp.Budgets = append(resp.Budgets, rollup)
	}
	return resp, nil
}

func (s *budgetService) UpdateBudget(ctx context.Context, id string, req domain.UpdateBudgetRequest, userID string) (domain.BudgetResponse, error) {
	budget, err := s.ownedBudget(ctx, id, userID)
	if err != nil {
		return domain.BudgetResponse{}, err
	}

	if req.Name != "" {
		budget.Name = req.Name
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() {
			return domain.BudgetResponse{}, domain.ErrAmountRequired
		}
		budget.Amount = amount
	}
	if req.Period != "" {
		budget.Period = req.Period
	}
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return domain.BudgetResponse{}, domain.ErrParseUUID
		}
		budget.CategoryID = &parsed
	}

	if err := s.budgetRepository.Update(ctx, budget); err != nil {
		return domain.BudgetResponse{}, err
	}
	return toBudgetResponse(budget), nil
}

func (s *budgetService) DeleteBudget(ctx context.Context, id string, userID string) error {
	budget, err := s.ownedBudget(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.budgetRepository.Delete(ctx, budget.ID)
}

func (s *budgetService) EvaluateThresholds(ctx context.Context, userID uuid.UUID, txDate time.Time) {
	budgets, err := s.budgetRepository.ListByUser(ctx, userID)
	if err != nil {
		return
	}

	for _, budget := range budgets {
		from, to, periodKey := PeriodWindow(budget, txDate)
		if txDate.Before(from) || txDate.After(to) {
			continue
		}

		spending, err := s.spending.SumForPeriod(ctx, userID, budget.CategoryID, from, to)
		if err != nil {
			continue
		}

		percentage := PercentageUsed(budget.Amount, spending)
		if percentage.Equal(domain.PercentageUndefined) {
			continue
		}

		alert, err := s.budgetRepository.GetAlert(ctx, budget.ID, periodKey)
		if err != nil {
			continue
		}
		lastNotified := 0
		if alert != nil {
			lastNotified = alert.LastThreshold
		}

		highest := lastNotified
		for _, threshold := range domain.BudgetThresholds {
			if threshold <= lastNotified {
				continue
			}
			if percentage.LessThan(decimal.NewFromInt(int64(threshold))) {
				break
			}
			s.notifier.Notify(userID, notification.EventBudgetThreshold, map[string]string{
				"budget_name": budget.Name,
				"threshold":   fmt.Sprintf("%d", threshold),
				"spending":    spending.StringFixed(2),
				"amount":      budget.Amount.StringFixed(2),
			})
			highest = threshold
		}

		if highest > lastNotified {
			if alert == nil {
				alert = &entities.BudgetAlert{ID: uuid.New(), BudgetID: budget.ID, PeriodKey: periodKey}
			}
			alert.LastThreshold = highest
			_ = s.budgetRepository.SaveAlert(ctx, alert)
		}
	}
}

func (s *budgetService) ownedBudget(ctx context.Context, id string, userID string) (*entities.Budget, error) {
	budgetID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	budget, err := s.budgetRepository.GetByID(ctx, budgetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	if budget.UserID.String() != userID {
		return nil, domain.ErrUnauthorizedAccess
	}
	return budget, nil
}

// PercentageUsed returns spending/amount as a percentage, or the undefined
// sentinel when amount is zero.
func PercentageUsed(amount, spending decimal.Decimal) decimal.Decimal {
	if amount.IsZero() {
		return domain.PercentageUndefined
	}
	return spending.Div(amount).Mul(decimal.NewFromInt(100)).Round(2)
}

// ClassifyUsage maps a percentage onto its status band; bands are inclusive
// on the lower bound.
func ClassifyUsage(percentage decimal.Decimal) string {
	switch {
	case percentage.Equal(domain.PercentageUndefined):
		return domain.BudgetStatusUnder
	case percentage.GreaterThanOrEqual(decimal.NewFromInt(100)):
		return domain.BudgetStatusOver
	case percentage.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return domain.BudgetStatusApproaching
	default:
		return domain.BudgetStatusUnder
	}
}

// PeriodWindow resolves the aggregation window containing ref. Bounded
// budgets use their own start/end; recurring ones snap to the calendar
// month, quarter or year.
func PeriodWindow(budget *entities.Budget, ref time.Time) (time.Time, time.Time, string) {
	if budget.EndDate != nil {
		return budget.StartDate, *budget.EndDate, "fixed"
	}

	year, month, _ := ref.Date()
	switch budget.Period {
	case "quarterly":
		quarter := (int(month) - 1) / 3
		from := time.Date(year, time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 3, 0).Add(-time.Nanosecond)
		return from, to, fmt.Sprintf("%d-Q%d", year, quarter+1)
	case "yearly":
		from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0).Add(-time.Nanosecond)
		return from, to, fmt.Sprintf("%d", year)
	default: // monthly
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return from, to, from.Format("2006-01")
	}
}

func buildRollup(budget *entities.Budget, spending decimal.Decimal, from, to time.Time) domain.BudgetRollup {
	percentage := PercentageUsed(budget.Amount, spending)
	rollup := domain.BudgetRollup{
		BudgetID:        budget.ID.String(),
		Name:            budget.Name,
		Amount:          budget.Amount,
		CurrentSpending: spending,
		Remaining:       budget.Amount.Sub(spending),
		PercentageUsed:  percentage,
		Status:          ClassifyUsage(percentage),
		PeriodStart:     from,
		PeriodEnd:       to,
	}
	if budget.CategoryID != nil {
		rollup.CategoryID = budget.CategoryID.String()
	}
	return rollup
}

func toBudgetResponse(budget *entities.Budget) domain.BudgetResponse {
	resp := domain.BudgetResponse{
		ID:        budget.ID.String(),
		Name:      budget.Name,
		Amount:    budget.Amount,
		Period:    budget.Period,
		StartDate: budget.StartDate,
		EndDate:   budget.EndDate,
		CreatedAt: budget.CreatedAt,
	}
	if budget.CategoryID != nil {
		resp.CategoryID = budget.CategoryID.String()
	}
	return resp
}
