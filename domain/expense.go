package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	MessageSuccessAddExpense  = "expense recorded"
	MessageSuccessGetExpenses = "expenses retrieved"
	MessageFailedAddExpense   = "failed to record expense"
	MessageFailedGetExpenses  = "failed to get expenses"

	ErrExpenseNotFound  = errors.New("expense not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrAmountRequired   = errors.New("total amount must be positive")
)

type ExpenseItemRequest struct {
	Name       string `json:"name" validate:"required"`
	Quantity   string `json:"quantity,omitempty"`
	UnitPrice  string `json:"unit_price,omitempty"`
	TotalPrice string `json:"total_price" validate:"required"`
	CategoryID string `json:"category_id,omitempty" validate:"omitempty,uuid"`
}

type AddExpenseRequest struct {
	MerchantName    string               `json:"merchant_name" validate:"required"`
	TotalAmount     string               `json:"total_amount" validate:"required"`
	TransactionDate string               `json:"transaction_date" validate:"required"`
	CategoryID      string               `json:"category_id,omitempty" validate:"omitempty,uuid"`
	PaymentMethod   string               `json:"payment_method,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	Items           []ExpenseItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
}

type ExpenseItemResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CategoryID string          `json:"category_id,omitempty"`
}

type ExpenseResponse struct {
	ID              string                `json:"id"`
	SourceJobID     string                `json:"source_job_id,omitempty"`
	MerchantName    string                `json:"merchant_name"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	TransactionDate time.Time             `json:"transaction_date"`
	CategoryID      string                `json:"category_id,omitempty"`
	PaymentMethod   string                `json:"payment_method,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	AmountMismatch  bool                  `json:"amount_mismatch"`
	IsManualEntry   bool                  `json:"is_manual_entry"`
	Items           []ExpenseItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}
