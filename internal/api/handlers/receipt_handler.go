package handlers

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/internal/api/presenters"
	"SpendSnap-Backend/pkg/extraction"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ReceiptHandler interface {
		UploadReceipt(c *fiber.Ctx) error
		GetJobStatus(c *fiber.Ctx) error
		GetJobResult(c *fiber.Ctx) error
		AcceptJob(c *fiber.Ctx) error
		RejectJob(c *fiber.Ctx) error
		RetryJob(c *fiber.Ctx) error
	}

	receiptHandler struct {
		extractionService extraction.ExtractionService
		validator         *validator.Validate
	}
)

func NewReceiptHandler(extractionService extraction.ExtractionService, validator *validator.Validate) ReceiptHandler {
	return &receiptHandler{
		extractionService: extractionService,
		validator:         validator,
	}
}

func (h *receiptHandler) UploadReceipt(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	file, err := c.FormFile("receipt_image")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	res, err := h.extractionService.UploadReceipt(c.Context(), file, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUploadReceipt, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusAccepted, domain.MessageSuccessUploadReceipt)
}

func (h *receiptHandler) GetJobStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	res, err := h.extractionService.GetJobStatus(c.Context(), jobID, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedJobStatus, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessJobStatus)
}

func (h *receiptHandler) GetJobResult(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	res, err := h.extractionService.GetJobResult(c.Context(), jobID, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedJobResult, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessJobResult)
}

func (h *receiptHandler) AcceptJob(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")
	req := new(domain.AcceptJobRequest)

	// body is optional; accepting without overrides is the common path
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
		}
		if err := h.validator.Struct(req); err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAcceptJob, domain.ErrValidation)
		}
	}

	res, err := h.extractionService.Accept(c.Context(), jobID, userID, *req)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAcceptJob, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessAcceptJob)
}

func (h *receiptHandler) RejectJob(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	res, err := h.extractionService.Reject(c.Context(), jobID, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRejectJob, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessRejectJob)
}

func (h *receiptHandler) RetryJob(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	jobID := c.Params("id")

	res, err := h.extractionService.Retry(c.Context(), jobID, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRetryJob, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusAccepted, domain.MessageSuccessRetryJob)
}
