package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeGateway       ErrorCode = "GATEWAY_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

// Not-found and authorization sentinels.
var (
	ErrJobNotFound          = New(ErrCodeNotFound, "job not found")
	ErrQuoteNotFound        = New(ErrCodeNotFound, "quote not found")
	ErrPaymentNotFound      = New(ErrCodeNotFound, "payment not found")
	ErrConversationNotFound = New(ErrCodeNotFound, "conversation not found")
	ErrUserNotFound         = New(ErrCodeNotFound, "user not found")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "authentication required")
	ErrForbidden            = New(ErrCodeForbidden, "insufficient permissions")
	ErrInvalidCredentials   = New(ErrCodeUnauthorized, "invalid credentials")
)

// State-conflict sentinels. A rejected transition leaves every entity
// untouched; the caller must re-fetch current state before retrying.
var (
	ErrAlreadyQuoted        = New(ErrCodeConflict, "a live quote from this provider already exists for this job")
	ErrJobClosed            = New(ErrCodeConflict, "job is not open for quotes")
	ErrInvalidTransition    = New(ErrCodeConflict, "status transition not permitted")
	ErrQuoteExpired         = New(ErrCodeConflict, "quote has expired")
	ErrAlreadyApproved      = New(ErrCodeConflict, "release already approved by this user")
	ErrPaymentAlreadyExists = New(ErrCodeConflict, "an active payment already exists for this quote and phase")
	ErrCannotRefund         = New(ErrCodeConflict, "payment is not refundable in its current state")
	ErrEscrowNotHeld        = New(ErrCodeConflict, "escrow is not holding funds")
)
