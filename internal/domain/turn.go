package domain

import "math/rand/v2"

// ActionKind is the player-submitted action type (§4.12, GLOSSARY).
type ActionKind string

const (
	ActionSay      ActionKind = "say"
	ActionDo       ActionKind = "do"
	ActionChoice   ActionKind = "choice"
	ActionUse      ActionKind = "use"
	ActionGive     ActionKind = "give"
	ActionMove     ActionKind = "move"
	ActionGoto     ActionKind = "goto"
	ActionTravel   ActionKind = "travel"
	ActionPurchase ActionKind = "purchase"
	ActionSell     ActionKind = "sell"
)

// Action is one player submission for a single turn.
type Action struct {
	Kind            ActionKind
	Text            string
	ChoiceID        string
	ItemID          string
	Target          string
	Direction       string
	Location        string
	WithCharacters  []string
	Price           float64
	SkipAI          bool
	SkipNodeEffects bool
}

// TurnContext is the transient, per-turn scratch space threaded through the
// 22 phases (§3). It is discarded at the end of the turn; nothing in it
// outlives `runTurn`/`runTurnStream`.
type TurnContext struct {
	Turn    int
	RngSeed int64
	Rng     *rand.Rand

	// Snapshot is the pre-turn clone of GameState, used to roll back on a
	// fatal internal-invariant error (§7).
	Snapshot *GameState

	CurrentNode string

	// ActiveGates is recomputed every turn in phase 4; nothing reads a
	// stale value from a prior turn (invariant 9, §3).
	ActiveGates map[string]map[string]bool

	// Present holds the character ids resolved into the current location
	// for this turn (§4.9); the effect resolver consults it for companion
	// checks rather than recomputing presence mid-batch.
	Present []string

	// ConditionContext is the DSL binding set built for this turn (§4.1).
	ConditionContext map[string]any

	ResolvedTimeCategory string
	TimeAdvanceMinutes   int

	EventsFired       []string
	MilestonesReached []string

	NarrativeParts []string
	Choices        []Choice

	ActionSummary string

	// PendingGoto is set by a `goto` effect or event forced_transition;
	// phase 15 resolves it before falling through to authored transitions.
	PendingGoto string

	// PendingLocation is set by a Checker `location` delta (§4.15 apply
	// rules); honored with no time cost if the implied move is legal.
	PendingLocation *Location

	AIFailed        bool
	AIFailureReason string

	Action Action
}

// NewTurnContext seeds a TurnContext for the given turn number from the
// session's fixed base seed, so turn N always uses seed baseSeed+N (§5).
func NewTurnContext(turn int, baseSeed int64, snapshot *GameState, action Action) *TurnContext {
	seed := baseSeed + int64(turn)
	return &TurnContext{
		Turn:             turn,
		RngSeed:          seed,
		Rng:              rand.New(rand.NewPCG(uint64(seed), uint64(seed>>32)+1)),
		Snapshot:         snapshot,
		ActiveGates:      map[string]map[string]bool{},
		ConditionContext: map[string]any{},
		Action:           action,
	}
}

// Choice is one entry of the turn's resulting choice list (§4.16).
type Choice struct {
	ID             string
	Label          string
	Source         string // node|dynamic|unlocked|movement|event
	Disabled       bool
	DisabledReason string
}
