package handlers

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/internal/api/presenters"
	"SpendSnap-Backend/pkg/budget"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	BudgetHandler interface {
		CreateBudget(c *fiber.Ctx) error
		GetBudgets(c *fiber.Ctx) error
		UpdateBudget(c *fiber.Ctx) error
		DeleteBudget(c *fiber.Ctx) error
	}

	budgetHandler struct {
		budgetService budget.BudgetService
		validator     *validator.Validate
	}
)

func NewBudgetHandler(budgetService budget.BudgetService, validator *validator.Validate) BudgetHandler {
	return &budgetHandler{
		budgetService: budgetService,
		validator:     validator,
	}
}

func (h *budgetHandler) CreateBudget(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.CreateBudgetRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateBudget, domain.ErrValidation)
	}

	res, err := h.budgetService.CreateBudget(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateBudget, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateBudget)
}

func (h *budgetHandler) GetBudgets(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// month/year select the reporting period; default is now
	ref := time.Now()
	if y := c.Query("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetBudgets, domain.ErrValidation)
		}
		month := int(ref.Month())
		if m := c.Query("month"); m != "" {
			if month, err = strconv.Atoi(m); err != nil || month < 1 || month > 12 {
				return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetBudgets, domain.ErrValidation)
			}
		}
		ref = time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC)
	}

	res, err := h.budgetService.GetBudgets(c.Context(), userID, ref)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetBudgets, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetBudgets)
}

func (h *budgetHandler) UpdateBudget(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	budgetID := c.Params("id")
	req := new(domain.UpdateBudgetRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateBudget, domain.ErrValidation)
	}

	res, err := h.budgetService.UpdateBudget(c.Context(), budgetID, *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateBudget, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateBudget)
}

func (h *budgetHandler) DeleteBudget(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	budgetID := c.Params("id")

	if err := h.budgetService.DeleteBudget(c.Context(), budgetID, userID); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedDeleteBudget, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDeleteBudget)
}
