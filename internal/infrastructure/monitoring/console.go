package monitoring

import (
	"log/slog"
	"time"
)

// ConsoleObserver logs turn lifecycle and AI usage events through slog.
// Verbose controls whether OnPhaseEvent checkpoints are logged; they're
// noisy in production but useful while developing a new game package.
type ConsoleObserver struct {
	logger  *slog.Logger
	verbose bool
}

var _ TurnObserver = (*ConsoleObserver)(nil)

// NewConsoleObserver creates a ConsoleObserver writing through logger.
func NewConsoleObserver(logger *slog.Logger, verbose bool) *ConsoleObserver {
	return &ConsoleObserver{logger: logger, verbose: verbose}
}

func (c *ConsoleObserver) OnTurnStarted(sessionID string, turn int) {
	c.logger.Debug("turn started", "session_id", sessionID, "turn", turn)
}

func (c *ConsoleObserver) OnTurnCompleted(sessionID string, turn int, duration time.Duration) {
	c.logger.Info("turn completed", "session_id", sessionID, "turn", turn, "duration_ms", duration.Milliseconds())
}

func (c *ConsoleObserver) OnTurnFailed(sessionID string, turn int, err error, duration time.Duration) {
	c.logger.Error("turn failed", "session_id", sessionID, "turn", turn, "duration_ms", duration.Milliseconds(), "error", err)
}

func (c *ConsoleObserver) OnPhaseEvent(sessionID string, turn int, phase, detail string) {
	if !c.verbose {
		return
	}
	c.logger.Debug("turn phase", "session_id", sessionID, "turn", turn, "phase", phase, "detail", detail)
}

func (c *ConsoleObserver) OnAIRequest(sessionID, role string, duration time.Duration, promptTokens, completionTokens int, err error) {
	if err != nil {
		c.logger.Warn("ai request failed", "session_id", sessionID, "role", role, "duration_ms", duration.Milliseconds(), "error", err)
		return
	}
	c.logger.Info("ai request completed",
		"session_id", sessionID, "role", role, "duration_ms", duration.Milliseconds(),
		"prompt_tokens", promptTokens, "completion_tokens", completionTokens)
}
