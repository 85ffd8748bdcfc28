// Package monitoring observes orchestrator turns: logging, metrics, and
// tracing hang off the same fan-out used by the teacher's workflow
// execution observers, retargeted at PlotPlay's session/turn lifecycle.
package monitoring

import (
	"sync"
	"time"
)

// TurnObserver is notified of turn-level and phase-level events as the
// orchestrator runs (§4.18). Implementations log, collect metrics, or
// otherwise react; they must not block the turn on slow I/O.
type TurnObserver interface {
	// OnTurnStarted is called when a turn begins.
	OnTurnStarted(sessionID string, turn int)

	// OnTurnCompleted is called when a turn finishes successfully.
	OnTurnCompleted(sessionID string, turn int, duration time.Duration)

	// OnTurnFailed is called when a turn aborts (invariant violation,
	// ended-session refusal, unrecoverable AI failure).
	OnTurnFailed(sessionID string, turn int, err error, duration time.Duration)

	// OnPhaseEvent is called for a named checkpoint within a turn (e.g.
	// "gates_evaluated", "event_fired:first_meeting", "node_transition").
	OnPhaseEvent(sessionID string, turn int, phase, detail string)

	// OnAIRequest is called after a Writer or Checker call completes.
	OnAIRequest(sessionID, role string, duration time.Duration, promptTokens, completionTokens int, err error)
}

// ObserverManager fans out notifications to any number of registered
// TurnObservers.
type ObserverManager struct {
	observers []TurnObserver
	mu        sync.RWMutex
}

// NewObserverManager creates an empty ObserverManager.
func NewObserverManager() *ObserverManager {
	return &ObserverManager{observers: make([]TurnObserver, 0)}
}

// AddObserver registers an observer.
func (om *ObserverManager) AddObserver(observer TurnObserver) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver unregisters an observer.
func (om *ObserverManager) RemoveObserver(observer TurnObserver) {
	om.mu.Lock()
	defer om.mu.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			return
		}
	}
}

func (om *ObserverManager) snapshot() []TurnObserver {
	om.mu.RLock()
	defer om.mu.RUnlock()
	out := make([]TurnObserver, len(om.observers))
	copy(out, om.observers)
	return out
}

// NotifyTurnStarted notifies all observers a turn has started.
func (om *ObserverManager) NotifyTurnStarted(sessionID string, turn int) {
	for _, o := range om.snapshot() {
		o.OnTurnStarted(sessionID, turn)
	}
}

// NotifyTurnCompleted notifies all observers a turn has completed.
func (om *ObserverManager) NotifyTurnCompleted(sessionID string, turn int, duration time.Duration) {
	for _, o := range om.snapshot() {
		o.OnTurnCompleted(sessionID, turn, duration)
	}
}

// NotifyTurnFailed notifies all observers a turn has failed.
func (om *ObserverManager) NotifyTurnFailed(sessionID string, turn int, err error, duration time.Duration) {
	for _, o := range om.snapshot() {
		o.OnTurnFailed(sessionID, turn, err, duration)
	}
}

// NotifyPhaseEvent notifies all observers of a named phase checkpoint.
func (om *ObserverManager) NotifyPhaseEvent(sessionID string, turn int, phase, detail string) {
	for _, o := range om.snapshot() {
		o.OnPhaseEvent(sessionID, turn, phase, detail)
	}
}

// NotifyAIRequest notifies all observers an AI call has completed.
func (om *ObserverManager) NotifyAIRequest(sessionID, role string, duration time.Duration, promptTokens, completionTokens int, err error) {
	for _, o := range om.snapshot() {
		o.OnAIRequest(sessionID, role, duration, promptTokens, completionTokens, err)
	}
}
