package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Services wrap these sentinels with context via fmt.Errorf
// and %w; the HTTP layer and the verification pipeline branch on errors.Is.
var (
	// ErrValidation - missing or malformed required input (caller's fault).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound - referenced account, deposit or position does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientFunds - buy exceeds available funds.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares - sell exceeds held shares.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrExternalService - extraction or AI verification transport/schema
	// failure. Distinct from a legitimate negative verdict.
	ErrExternalService = errors.New("external service failure")
	// ErrUnsupportedFormat - document format the text extractor cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrInternal - unexpected failure (store errors, bugs).
	ErrInternal = errors.New("internal error")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ExternalServicef wraps ErrExternalService with a formatted message.
func ExternalServicef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrExternalService, fmt.Sprintf(format, args...))
}

// Internalf wraps ErrInternal with a formatted message.
func Internalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
