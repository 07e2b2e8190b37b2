package handlers

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/internal/api/presenters"
	"SpendSnap-Backend/pkg/budget"
	"SpendSnap-Backend/pkg/category"
	"SpendSnap-Backend/pkg/expense"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type (
	ExpenseHandler interface {
		AddExpense(c *fiber.Ctx) error
		GetExpenses(c *fiber.Ctx) error
		GetCategories(c *fiber.Ctx) error
	}

	expenseHandler struct {
		expenseService  expense.ExpenseService
		budgetService   budget.BudgetService
		categoryService category.CategoryService
		validator       *validator.Validate
	}
)

func NewExpenseHandler(
	expenseService expense.ExpenseService,
	budgetService budget.BudgetService,
	categoryService category.CategoryService,
	validator *validator.Validate,
) ExpenseHandler {
	return &expenseHandler{
		expenseService:  expenseService,
		budgetService:   budgetService,
		categoryService: categoryService,
		validator:       validator,
	}
}

func (h *expenseHandler) AddExpense(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.AddExpenseRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAddExpense, domain.ErrValidation)
	}

	res, err := h.expenseService.AddManualExpense(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAddExpense, err)
	}

	if userUUID, err := uuid.Parse(userID); err == nil {
		h.budgetService.EvaluateThresholds(c.Context(), userUUID, res.TransactionDate)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddExpense)
}

func (h *expenseHandler) GetExpenses(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// default window is the current calendar month
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	if q := c.Query("from"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetExpenses, domain.ErrValidation)
		}
		from = parsed
	}
	if q := c.Query("to"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetExpenses, domain.ErrValidation)
		}
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	res, err := h.expenseService.GetExpenses(c.Context(), userID, from, to)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetExpenses, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetExpenses)
}

func (h *expenseHandler) GetCategories(c *fiber.Ctx) error {
	res, err := h.categoryService.GetCategories(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetCategories, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetCategories)
}
