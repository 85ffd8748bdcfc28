// Package dsl implements the expression language that gates effects,
// transitions, gates and events (§4.1): a capped, side-effect-free
// evaluator built on expr-lang, with a typed condition-context builder over
// GameState (§4.1-4.2).
package dsl

import (
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/letser/plotplay-sub001/internal/domain"
)

// Evaluator provides centralized, cached condition evaluation. One
// Evaluator is shared by a Runtime across its whole lifetime (compiled
// programs are immutable and condition text rarely changes at runtime).
type Evaluator struct {
	mu            sync.RWMutex
	compiledCache map[string]*vm.Program

	// warned dedupes "unknown path" / "type error" log lines per
	// expression per turn; ResetWarnings clears it at turn start so a
	// condition re-checked on turn 2 warns again if still broken.
	warned map[string]bool
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		compiledCache: make(map[string]*vm.Program),
		warned:        make(map[string]bool),
	}
}

// ResetWarnings clears the per-turn warn-once dedupe set; call once at the
// start of every turn (phase 1).
func (e *Evaluator) ResetWarnings() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warned = make(map[string]bool)
}

func (e *Evaluator) warnOnce(source, reason string) {
	e.mu.Lock()
	key := source + "|" + reason
	if e.warned[key] {
		e.mu.Unlock()
		return
	}
	e.warned[key] = true
	e.mu.Unlock()
	log.Warn().Str("expression", source).Str("reason", reason).Msg("dsl: expression evaluation warning")
}

func (e *Evaluator) getCompiled(source string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.compiledCache[source]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	if err := checkCaps(source); err != nil {
		return nil, err
	}

	// Compile without a fixed Env type so arbitrary nested maps (the
	// condition context) type-check; mirrors the teacher's
	// compile-with-Env-then-fall-back-without-it pattern.
	program, err := expr.Compile(source, expr.Env(map[string]any{}))
	if err != nil {
		program, err = expr.Compile(source)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidInput,
				"failed to compile expression", err)
		}
	}

	e.mu.Lock()
	e.compiledCache[source] = program
	e.mu.Unlock()
	return program, nil
}

// EvalBool evaluates source as a boolean condition. Unknown paths, type
// errors and division-by-zero all resolve to false with a logged warning
// rather than propagating an error (§4.1 "never throws").
func (e *Evaluator) EvalBool(source string, env map[string]any) bool {
	if strings.TrimSpace(source) == "" {
		return false
	}
	program, err := e.getCompiled(source)
	if err != nil {
		e.warnOnce(source, err.Error())
		return false
	}
	result, err := expr.Run(program, env)
	if err != nil {
		if isMissingPathError(err) {
			e.warnOnce(source, "unknown path resolves to null sentinel")
			return false
		}
		if isDivideByZeroError(err) {
			e.warnOnce(source, "division by zero")
			return false
		}
		e.warnOnce(source, err.Error())
		return false
	}
	b, ok := result.(bool)
	if !ok {
		return truthy(result)
	}
	return b
}

// Eval evaluates source for its raw value, a scalar rather than just a
// boolean. Falls back to the null sentinel (nil) on any error.
func (e *Evaluator) Eval(source string, env map[string]any) any {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	program, err := e.getCompiled(source)
	if err != nil {
		e.warnOnce(source, err.Error())
		return nil
	}
	result, err := expr.Run(program, env)
	if err != nil {
		if isMissingPathError(err) || isDivideByZeroError(err) {
			return nil
		}
		e.warnOnce(source, err.Error())
		return nil
	}
	return result
}

func isMissingPathError(err error) bool {
	msg := strings.ToLower(err.Error())
	patterns := []string{"cannot fetch", "undefined", "unknown name", "nil pointer", "not found", "index out of range"}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isDivideByZeroError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "divide by zero") ||
		strings.Contains(strings.ToLower(err.Error()), "division by zero")
}

// truthy applies the DSL's falsey rule to a non-bool result (§4.1):
// false, 0, "", [] and nil are falsey; anything else is truthy.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int:
		return val != 0
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	default:
		return true
	}
}
