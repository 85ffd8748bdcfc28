// Package errors carries the turn-scoped error types used by the
// orchestrator: a turn/phase-scoped execution error, an effect-scoped
// execution error, and a validation error for malformed authored content.
// They are grounded on
// the teacher's ExecutionError/NodeExecutionError shape (workflow id,
// execution id, node id, cause, retryable).
package errors

import "fmt"

// TurnExecutionError represents a failure scoped to one turn, optionally to
// one phase and one effect within it. Retryable marks failures worth
// retrying (malformed Checker JSON) as distinct from ones that are not (a
// timeout that has already exhausted its deadline); the orchestrator's
// Checker retry does not read it.
type TurnExecutionError struct {
	SessionID string
	Turn      int
	Phase     string
	EffectKind string
	Message   string
	Cause     error
	Retryable bool
}

func (e *TurnExecutionError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("turn execution error in session %s turn %d phase %s: %s",
			e.SessionID, e.Turn, e.Phase, e.Message)
	}
	return fmt.Sprintf("turn execution error in session %s turn %d: %s", e.SessionID, e.Turn, e.Message)
}

func (e *TurnExecutionError) Unwrap() error {
	return e.Cause
}

// NewTurnExecutionError creates a new TurnExecutionError.
func NewTurnExecutionError(sessionID string, turn int, phase, message string, cause error, retryable bool) *TurnExecutionError {
	return &TurnExecutionError{
		SessionID: sessionID,
		Turn:      turn,
		Phase:     phase,
		Message:   message,
		Cause:     cause,
		Retryable: retryable,
	}
}

// EffectExecutionError represents a single effect within a batch that
// failed or was refused; the batch continues past it (§4.3 atomicity).
type EffectExecutionError struct {
	EffectKind string
	Message    string
	Cause      error
}

func (e *EffectExecutionError) Error() string {
	return fmt.Sprintf("effect error [%s]: %s", e.EffectKind, e.Message)
}

func (e *EffectExecutionError) Unwrap() error {
	return e.Cause
}

// NewEffectExecutionError creates a new EffectExecutionError.
func NewEffectExecutionError(effectKind, message string, cause error) *EffectExecutionError {
	return &EffectExecutionError{EffectKind: effectKind, Message: message, Cause: cause}
}

// ValidationError represents a validation failure for one piece of authored
// or client-submitted content (unknown id, malformed action, invalid choice).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
