package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies failures raised by the subscription and storage layers
type ErrorCode string

const (
	CodeSubscriptionConfigFailed ErrorCode = "SUBSCRIPTION_CONFIG_FAILED"
	CodePurchaseFailed           ErrorCode = "PURCHASE_FAILED"
	CodePurchaseCancelled        ErrorCode = "PURCHASE_CANCELLED"
	CodeRestoreFailed            ErrorCode = "RESTORE_FAILED"
	CodeNetworkError             ErrorCode = "NETWORK_ERROR"
	CodeStorageError             ErrorCode = "STORAGE_ERROR"
)

// AppError is a classified error with a recoverable flag and an optional cause
type AppError struct {
	Code        ErrorCode
	Message     string
	Recoverable bool
	Err         error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError carrying the same code, so callers can write
// errors.Is(err, &AppError{Code: CodePurchaseFailed}).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a classified error
func New(code ErrorCode, message string, recoverable bool, cause error) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
		Err:         cause,
	}
}

// NewSubscriptionError creates a billing-related error. Everything except a
// configuration failure can be retried by the user.
func NewSubscriptionError(code ErrorCode, message string, cause error) *AppError {
	return New(code, message, code != CodeSubscriptionConfigFailed, cause)
}

// NewStorageError creates a recoverable storage error
func NewStorageError(message string, cause error) *AppError {
	return New(CodeStorageError, message, true, cause)
}

// CodeOf returns the code of the first *AppError in the chain, or "" if none
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsRecoverable reports whether err is a classified error marked recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// IsCancelled reports whether err represents a user-initiated purchase cancellation
func IsCancelled(err error) bool {
	return CodeOf(err) == CodePurchaseCancelled
}

// UserMessage returns the message shown to the user for a classified error,
// or "" for unclassified errors.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case CodeSubscriptionConfigFailed:
		return "Subscriptions are not available right now. Please try again later."
	case CodePurchaseFailed:
		return "We couldn't complete your purchase. Please try again."
	case CodePurchaseCancelled:
		return "Purchase cancelled."
	case CodeRestoreFailed:
		return "We couldn't restore your purchases. Please try again."
	case CodeNetworkError:
		return "Please check your internet connection and try again."
	case CodeStorageError:
		return "Your changes could not be saved. Please try again."
	default:
		return ""
	}
}
