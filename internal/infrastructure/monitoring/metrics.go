package monitoring

import (
	"sync"
	"time"
)

// MetricsCollector tracks turn throughput and AI usage. Implements
// TurnObserver so it can be registered directly with an ObserverManager.
type MetricsCollector struct {
	sessionMetrics map[string]*SessionMetrics
	aiMetrics      *AIMetrics
	mu             sync.RWMutex
}

var _ TurnObserver = (*MetricsCollector)(nil)

// SessionMetrics aggregates turn counters for one play session.
type SessionMetrics struct {
	SessionID       string        `json:"session_id"`
	TurnCount       int           `json:"turn_count"`
	SuccessCount    int           `json:"success_count"`
	FailureCount    int           `json:"failure_count"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
	MinDuration     time.Duration `json:"min_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	LastTurnAt      time.Time     `json:"last_turn_at"`
}

// AIMetrics aggregates Writer/Checker call usage across all sessions.
type AIMetrics struct {
	TotalRequests    int           `json:"total_requests"`
	FailedRequests   int           `json:"failed_requests"`
	TotalTokens      int           `json:"total_tokens"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalLatency     time.Duration `json:"total_latency"`
	AverageLatency   time.Duration `json:"average_latency"`
}

// NewMetricsCollector creates an empty MetricsCollector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		sessionMetrics: make(map[string]*SessionMetrics),
		aiMetrics:      &AIMetrics{},
	}
}

// OnTurnStarted is a no-op; metrics are recorded on completion/failure,
// where duration is known.
func (mc *MetricsCollector) OnTurnStarted(sessionID string, turn int) {}

// OnTurnCompleted records a successful turn.
func (mc *MetricsCollector) OnTurnCompleted(sessionID string, turn int, duration time.Duration) {
	mc.record(sessionID, duration, true)
}

// OnTurnFailed records a failed turn.
func (mc *MetricsCollector) OnTurnFailed(sessionID string, turn int, err error, duration time.Duration) {
	mc.record(sessionID, duration, false)
}

// OnPhaseEvent is a no-op for metrics; phase checkpoints are log/trace
// concerns, not aggregated counters.
func (mc *MetricsCollector) OnPhaseEvent(sessionID string, turn int, phase, detail string) {}

func (mc *MetricsCollector) record(sessionID string, duration time.Duration, success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.sessionMetrics[sessionID]
	if !ok {
		m = &SessionMetrics{SessionID: sessionID, MinDuration: duration, MaxDuration: duration}
		mc.sessionMetrics[sessionID] = m
	}

	m.TurnCount++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	m.TotalDuration += duration
	m.AverageDuration = m.TotalDuration / time.Duration(m.TurnCount)
	m.LastTurnAt = time.Now()
	if duration < m.MinDuration {
		m.MinDuration = duration
	}
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
}

// OnAIRequest records Writer/Checker usage.
func (mc *MetricsCollector) OnAIRequest(sessionID, role string, duration time.Duration, promptTokens, completionTokens int, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.aiMetrics.TotalRequests++
	if err != nil {
		mc.aiMetrics.FailedRequests++
	}
	mc.aiMetrics.PromptTokens += promptTokens
	mc.aiMetrics.CompletionTokens += completionTokens
	mc.aiMetrics.TotalTokens += promptTokens + completionTokens
	mc.aiMetrics.TotalLatency += duration
	mc.aiMetrics.AverageLatency = mc.aiMetrics.TotalLatency / time.Duration(mc.aiMetrics.TotalRequests)
}

// Session returns a copy of the metrics for sessionID, ok=false if unseen.
func (mc *MetricsCollector) Session(sessionID string) (SessionMetrics, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	m, ok := mc.sessionMetrics[sessionID]
	if !ok {
		return SessionMetrics{}, false
	}
	return *m, true
}

// AI returns a copy of the aggregate AI usage metrics.
func (mc *MetricsCollector) AI() AIMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return *mc.aiMetrics
}
