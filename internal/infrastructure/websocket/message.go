package websocket

import (
	"time"

	"github.com/letser/plotplay-sub001/internal/choices"
	"github.com/letser/plotplay-sub001/internal/orchestrator"
	"github.com/letser/plotplay-sub001/internal/summary"
)

// Event types (server -> client).
const (
	EventActionSummary  = "action.summary"
	EventNarrativeChunk = "narrative.chunk"
	EventCheckerStatus  = "checker.status"
	EventTurnComplete   = "turn.complete"
	EventError          = "error"
)

// Command types (client -> server).
const (
	CmdAction = "action"
	CmdPing   = "ping"
)

// WSEvent is one server-to-client message: either a streaming fragment of an
// in-progress turn (action summary, narrative chunk, checker status) or the
// final turn.complete snapshot.
type WSEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`

	// Streaming fragments (optional).
	Text string `json:"text,omitempty"`

	// turn.complete payload (optional).
	Turn        int              `json:"turn,omitempty"`
	Narrative   string           `json:"narrative,omitempty"`
	State       *summary.State   `json:"state,omitempty"`
	Choices     []choices.Choice `json:"choices,omitempty"`
	EventsFired []string         `json:"events_fired,omitempty"`
	Milestones  []string         `json:"milestones,omitempty"`
	Ended       bool             `json:"ended,omitempty"`

	// error payload (optional).
	Error string `json:"error,omitempty"`
}

// WSCommand is one client-to-server message. For CmdAction, Kind mirrors
// domain.ActionKind ("say", "do", "choice", "use", "give", "move", "goto",
// "travel", "purchase", "sell").
type WSCommand struct {
	Action string `json:"action"`

	Kind           string   `json:"kind,omitempty"`
	Text           string   `json:"text,omitempty"`
	ChoiceID       string   `json:"choice_id,omitempty"`
	ItemID         string   `json:"item_id,omitempty"`
	Target         string   `json:"target,omitempty"`
	Direction      string   `json:"direction,omitempty"`
	Location       string   `json:"location,omitempty"`
	WithCharacters []string `json:"with_characters,omitempty"`
	Price          float64  `json:"price,omitempty"`
	SkipAI         bool     `json:"skip_ai,omitempty"`
}

// WSResponse answers a client command without running a turn: pings,
// malformed or unknown commands, and action commands refused before the
// turn starts.
type WSResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewWSEvent creates an empty WSEvent stamped with the current time.
func NewWSEvent(eventType, sessionID string) *WSEvent {
	return &WSEvent{Type: eventType, Timestamp: time.Now(), SessionID: sessionID}
}

// NewSuccessResponse creates a success response.
func NewSuccessResponse(responseType, message string) *WSResponse {
	return &WSResponse{Type: responseType, Success: true, Message: message}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(responseType, errorMsg string) *WSResponse {
	return &WSResponse{Type: responseType, Success: false, Error: errorMsg}
}

// fromStreamEvent translates an orchestrator.StreamEvent into the wire
// WSEvent for the given session.
func fromStreamEvent(sessionID string, se orchestrator.StreamEvent) *WSEvent {
	evt := NewWSEvent(streamEventType(se.Kind), sessionID)
	evt.Text = se.Text

	if se.Err != nil {
		evt.Type = EventError
		evt.Error = se.Err.Error()
		return evt
	}

	if se.Kind == orchestrator.EventComplete && se.Result != nil {
		evt.Turn = se.Result.Turn
		evt.Narrative = se.Result.Narrative
		evt.State = &se.Result.State
		evt.Choices = se.Result.Choices
		evt.EventsFired = se.Result.EventsFired
		evt.Milestones = se.Result.Milestones
		evt.Ended = se.Result.Ended
		if se.Result.AIFailed {
			evt.Error = se.Result.AIFailureReason
		}
	}

	return evt
}

func streamEventType(kind orchestrator.StreamEventKind) string {
	switch kind {
	case orchestrator.EventActionSummary:
		return EventActionSummary
	case orchestrator.EventNarrativeChunk:
		return EventNarrativeChunk
	case orchestrator.EventCheckerStatus:
		return EventCheckerStatus
	case orchestrator.EventComplete:
		return EventTurnComplete
	default:
		return EventError
	}
}
