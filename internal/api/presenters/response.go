package presenters

import (
	"SpendSnap-Backend/domain"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, data interface{}, status int, message string) error {
	return c.Status(status).JSON(Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// ErrorResponse renders a failure with its stable error code. The passed
// status is a floor; a more specific status derived from the error wins.
// Unrecognized errors are driver or SDK internals; their detail stays in the
// server log, the client only sees the generic code.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	code := domain.ErrorCodeFor(err)
	if mapped := statusForCode(code); mapped != 0 {
		status = mapped
	}
	detail := err.Error()
	if code == domain.CodeServerError {
		slog.Error("request failed", "path", c.Path(), "err", err)
		detail = "internal error"
	}
	return c.Status(status).JSON(Response{
		Status:    "error",
		Message:   message,
		Error:     detail,
		ErrorCode: code,
	})
}

func statusForCode(code string) int {
	switch code {
	case domain.CodeValidationError:
		return fiber.StatusBadRequest
	case domain.CodeAuthenticationFailed:
		return fiber.StatusUnauthorized
	case domain.CodeAuthorizationFailed:
		return fiber.StatusForbidden
	case domain.CodeResourceNotFound:
		return fiber.StatusNotFound
	case domain.CodeInvalidState:
		return fiber.StatusConflict
	case domain.CodeProviderError:
		return fiber.StatusBadGateway
	case domain.CodeStorageUnavailable:
		return fiber.StatusServiceUnavailable
	case domain.CodeTimeout:
		return fiber.StatusGatewayTimeout
	case domain.CodeServerError:
		return fiber.StatusInternalServerError
	}
	return 0
}
