package httpapi

import (
	"github.com/letser/plotplay-sub001/internal/choices"
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/summary"
)

// StartSessionRequest is the body of POST /session/start (§6).
type StartSessionRequest struct {
	GameID string `json:"game_id"`
}

// StartSessionResponse answers POST /session/start.
type StartSessionResponse struct {
	SessionID string           `json:"session_id"`
	Token     string           `json:"token,omitempty"`
	State     summary.State    `json:"state_summary"`
	Choices   []choices.Choice `json:"choices"`
}

// ActionRequest is the body of POST /session/{id}/action and its streaming
// counterpart; the field set mirrors domain.Action (§4.12).
type ActionRequest struct {
	Kind           string   `json:"action_type"`
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

// TurnResponse answers POST /session/{id}/action.
type TurnResponse struct {
	Narrative     string           `json:"narrative"`
	State         summary.State    `json:"state_summary"`
	Choices       []choices.Choice `json:"choices"`
	ActionSummary string           `json:"action_summary"`
	EventsFired   []string         `json:"events_fired"`
	Milestones    []string         `json:"milestones_reached"`
	Ended         bool             `json:"ended,omitempty"`
	AIFailed      bool             `json:"ai_failed,omitempty"`
}

// streamEnvelope is one newline-delimited-JSON event of
// POST /session/{id}/action/stream. Type is one of the four values §6
// names literally: action_summary | narrative_chunk | checker_status |
// complete (orchestrator.StreamEventKind's own string values), or "error"
// when the turn fails.
type streamEnvelope struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	Narrative string           `json:"narrative,omitempty"`
	State     *summary.State   `json:"state_summary,omitempty"`
	Choices   []choices.Choice `json:"choices,omitempty"`
	Events    []string         `json:"events_fired,omitempty"`
	Milestone []string         `json:"milestones_reached,omitempty"`
	Ended     bool             `json:"ended,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// PlayerView is the player's entry in GET /session/{id}/characters.
type PlayerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CharacterListEntry is one NPC's entry in GET /session/{id}/characters.
type CharacterListEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Present  bool   `json:"present"`
	Location string `json:"location,omitempty"`
}

// CharactersResponse answers GET /session/{id}/characters.
type CharactersResponse struct {
	Player     PlayerView           `json:"player"`
	Characters []CharacterListEntry `json:"characters"`
}

// GateView is one gate entry of CharacterView.Gates.
type GateView struct {
	ID         string `json:"id"`
	Allow      bool   `json:"allow"`
	Condition  string `json:"condition,omitempty"`
	Acceptance string `json:"acceptance,omitempty"`
	Refusal    string `json:"refusal,omitempty"`
}

// MemoryView is one entry of CharacterView.Memories.
type MemoryView struct {
	Turn int    `json:"turn"`
	Text string `json:"text"`
}

// CharacterView answers GET /session/{id}/character/{char_id} (§6).
// Memories are filtered by viewer: the player sees everything, an NPC
// view only sees memories the Checker tagged visible. Gates are listed in
// full for every viewer.
type CharacterView struct {
	ID            string                          `json:"id"`
	Name          string                          `json:"name"`
	Age           int                             `json:"age,omitempty"`
	Gender        string                          `json:"gender,omitempty"`
	Pronouns      string                          `json:"pronouns,omitempty"`
	Personality   string                          `json:"personality,omitempty"`
	Appearance    string                          `json:"appearance,omitempty"`
	DialogueStyle string                          `json:"dialogue_style,omitempty"`
	Gates         []GateView                      `json:"gates"`
	Memories      []MemoryView                    `json:"memories"`
	Meters        map[string]float64              `json:"meters"`
	Modifiers     map[string]domain.ModifierState `json:"modifiers"`
	Clothing      string                          `json:"clothing"`
	Present       bool                            `json:"present"`
	Location      string                          `json:"location,omitempty"`
}

// StoryEventView is one entry of GET /session/{id}/story-events.
type StoryEventView struct {
	Text       string   `json:"text"`
	Characters []string `json:"characters"`
	Day        int      `json:"day"`
}

// StoryEventsResponse answers GET /session/{id}/story-events.
type StoryEventsResponse struct {
	Memories []StoryEventView `json:"memories"`
}

// errorResponse is the JSON body written by respondError.
type errorResponse struct {
	Error string `json:"error"`
}
