package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Spend-vs-budget classification bands, inclusive on the lower bound.
const (
	BudgetStatusUnder       = "under_budget"      // < 50%
	BudgetStatusApproaching = "approaching_limit" // 50-99%
	BudgetStatusOver        = "over_budget"       // >= 100%
)

// PercentageUndefined is the sentinel returned when a budget amount is zero
// and percentage used has no meaning.
var PercentageUndefined = decimal.NewFromInt(-1)

// Notification thresholds, percent of budget, ascending.
var BudgetThresholds = []int{50, 75, 90, 100}

var (
	MessageSuccessCreateBudget = "budget created"
	MessageSuccessGetBudgets   = "budgets retrieved"
	MessageSuccessUpdateBudget = "budget updated"
	MessageSuccessDeleteBudget = "budget deleted"
	MessageFailedCreateBudget  = "failed to create budget"
	MessageFailedGetBudgets    = "failed to get budgets"
	MessageFailedUpdateBudget  = "failed to update budget"
	MessageFailedDeleteBudget  = "failed to delete budget"

	ErrBudgetNotFound = errors.New("budget not found")
	ErrInvalidPeriod  = errors.New("period must be monthly, quarterly or yearly")
)

type CreateBudgetRequest struct {
	Name       string `json:"name" validate:"required"`
	CategoryID string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Amount     string `json:"amount" validate:"required"`
	Period     string `json:"period" validate:"required,oneof=monthly quarterly yearly"`
	StartDate  string `json:"start_date" validate:"required"`
	EndDate    string `json:"end_date,omitempty"`
}

type UpdateBudgetRequest struct {
	Name       string `json:"name,omitempty"`
	CategoryID string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Amount     string `json:"amount,omitempty"`
	Period     string `json:"period,omitempty" validate:"omitempty,oneof=monthly quarterly yearly"`
}

// BudgetRollup is the computed spend-vs-budget state of one budget for one
// period. Remaining goes negative when over budget; PercentageUsed carries
// the undefined sentinel when Amount is zero.
type BudgetRollup struct {
	BudgetID        string          `json:"budget_id"`
	Name            string          `json:"name"`
	CategoryID      string          `json:"category_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	CurrentSpending decimal.Decimal `json:"current_spending"`
	Remaining       decimal.Decimal `json:"remaining"`
	PercentageUsed  decimal.Decimal `json:"percentage_used"`
	Status          string          `json:"status"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
}

type BudgetListResponse struct {
	Budgets       []BudgetRollup `json:"budgets"`
	OverallBudget *BudgetRollup  `json:"overall_budget,omitempty"`
}

type BudgetResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"category_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    *time.Time      `json:"end_date,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
