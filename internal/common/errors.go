package common

import (
	"errors"
	"fmt"
)

// AppError represents setup-level application errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy shared by every stage. Handlers classify capability
// errors by wrapping one of these sentinels; the runner and the failure
// ledgers branch on errors.Is.
var (
	ErrTransport     = errors.New("transport failure")      // network/browser layer, retryable
	ErrRateLimited   = errors.New("rate limited")           // retryable with escalated backoff
	ErrNotFound      = errors.New("not found")              // permanent for that item
	ErrTokenExpired  = errors.New("token expired")          // retryable, re-search on the next run
	ErrUnavailable   = errors.New("capability unavailable") // OCR missing; rename degrades, never fails
	ErrLowConfidence = errors.New("low confidence")         // OCR output below the plausibility bar
	ErrPersistence   = errors.New("persistence failure")    // fatal to the run
	ErrInvalidInput  = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
