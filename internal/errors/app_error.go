package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCategoryNotFound    = "CATEGORY_NOT_FOUND"
	ErrCodeSerialExhausted     = "SERIAL_EXHAUSTED"
	ErrCodeUnknownSize         = "UNKNOWN_SIZE"
	ErrCodeTransactionConflict = "TRANSACTION_CONFLICT"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

func CategoryNotFoundError(code string) *AppError {
	return NewAppError(ErrCodeCategoryNotFound, fmt.Sprintf("Category '%s' not found", code), http.StatusNotFound)
}

// SerialExhaustedError reports that the 3-digit serial space for one
// year/season/category prefix is used up. The 999 ceiling is a hard limit.
func SerialExhaustedError(prefix string) *AppError {
	return NewAppError(ErrCodeSerialExhausted, fmt.Sprintf("Style code serials exhausted for prefix '%s'", prefix), http.StatusConflict)
}

func UnknownSizeError(size string) *AppError {
	return NewAppError(ErrCodeUnknownSize, fmt.Sprintf("Unknown size code '%s'", size), http.StatusBadRequest)
}

// TransactionConflictError reports a lost race on style-code allocation.
// Callers are expected to retry a bounded number of times.
func TransactionConflictError(message string) *AppError {
	return NewAppError(ErrCodeTransactionConflict, message, http.StatusConflict)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)

	return ok && appErr.Code == code
}
