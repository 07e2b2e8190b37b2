package domain

import (
	"errors"
)

const (
	RoleUser = "user"
)

// Stable error codes surfaced to clients. Handlers pass these through the
// presenter; internal error detail never reaches the message field.
const (
	CodeValidationError      = "validation_error"
	CodeAuthenticationFailed = "authentication_failed"
	CodeAuthorizationFailed  = "authorization_failed"
	CodeResourceNotFound     = "resource_not_found"
	CodeInvalidState         = "invalid_state"
	CodeProviderError        = "provider_error"
	CodeStorageUnavailable   = "storage_unavailable"
	CodeTimeout              = "timeout"
	CodeServerError          = "server_error"
)

var (
	MessageFailedBodyRequest    = "failed to parse request body"
	MessageFailedProcessRequest = "failed to process request"
	MessageFailedGetToken       = "failed to get token"
	MessageFailedTokenInvalid   = "token is invalid"

	ErrParseUUID          = errors.New("failed to parse UUID")
	ErrUserNotAllowed     = errors.New("user not allowed")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrUnauthorizedAccess = errors.New("unauthorized access to resource")
)

// ErrorCodeFor maps a service error onto its stable client-facing code.
func ErrorCodeFor(err error) string {
	switch {
	case errors.Is(err, ErrParseUUID),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrAmountRequired),
		errors.Is(err, ErrUnknownFieldName):
		return CodeValidationError
	case errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrInvalidCredentials):
		return CodeAuthenticationFailed
	case errors.Is(err, ErrUnauthorizedAccess), errors.Is(err, ErrUserNotAllowed):
		return CodeAuthorizationFailed
	case errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrExpenseNotFound),
		errors.Is(err, ErrBudgetNotFound),
		errors.Is(err, ErrCategoryNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrImageNotFound):
		return CodeResourceNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrRetryLimitReached):
		return CodeInvalidState
	case errors.Is(err, ErrProvider), errors.Is(err, ErrProviderQuota), errors.Is(err, ErrUnsupportedImage):
		return CodeProviderError
	case errors.Is(err, ErrStorageUnavailable):
		return CodeStorageUnavailable
	case errors.Is(err, ErrExtractionTimeout):
		return CodeTimeout
	default:
		return CodeServerError
	}
}
