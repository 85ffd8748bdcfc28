package domain

import "fmt"

// DomainError represents a domain-specific error raised while validating or
// applying a turn. It carries a stable code so callers (HTTP handlers,
// tests) can branch on failure kind without string matching.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeInvariantViolated = "INVARIANT_VIOLATED"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeInvalidType       = "INVALID_TYPE"
	ErrCodeRefused           = "REFUSED"
	ErrCodeSessionEnded      = "SESSION_ENDED"
)

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}
