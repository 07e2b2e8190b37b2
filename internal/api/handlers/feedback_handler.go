package handlers

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/internal/api/presenters"
	"SpendSnap-Backend/pkg/feedback"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	FeedbackHandler interface {
		SubmitFeedback(c *fiber.Ctx) error
		GetFeedbackHistory(c *fiber.Ctx) error
	}

	feedbackHandler struct {
		feedbackService feedback.FeedbackService
		validator       *validator.Validate
	}
)

func NewFeedbackHandler(feedbackService feedback.FeedbackService, validator *validator.Validate) FeedbackHandler {
	return &feedbackHandler{
		feedbackService: feedbackService,
		validator:       validator,
	}
}

func (h *feedbackHandler) SubmitFeedback(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")
	req := new(domain.SubmitFeedbackRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSubmitFeedback, domain.ErrValidation)
	}

	res, err := h.feedbackService.SubmitCorrections(c.Context(), jobID, userID, *req)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSubmitFeedback, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessSubmitFeedback)
}

func (h *feedbackHandler) GetFeedbackHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	res, err := h.feedbackService.GetHistory(c.Context(), jobID, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetFeedback, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetFeedback)
}
