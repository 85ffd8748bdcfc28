// Package orchestrator implements the 22-phase turn controller (§4.18),
// wiring every domain sub-service into one deterministic pipeline the way
// the teacher's WorkflowEngine drives a plan through executeNode: a fixed
// Plan/Execute/Finalize shape, one phase at a time, with observer-style
// logging at each step and the same context-cancellation handling around
// the one suspension point that talks to an external model.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/letser/plotplay-sub001/internal/ai"
	"github.com/letser/plotplay-sub001/internal/arcs"
	"github.com/letser/plotplay-sub001/internal/checker"
	"github.com/letser/plotplay-sub001/internal/choices"
	"github.com/letser/plotplay-sub001/internal/clothing"
	"github.com/letser/plotplay-sub001/internal/domain"
	domainerrors "github.com/letser/plotplay-sub001/internal/domain/errors"
	"github.com/letser/plotplay-sub001/internal/dsl"
	"github.com/letser/plotplay-sub001/internal/effects"
	"github.com/letser/plotplay-sub001/internal/events"
	"github.com/letser/plotplay-sub001/internal/gates"
	"github.com/letser/plotplay-sub001/internal/infrastructure/monitoring"
	"github.com/letser/plotplay-sub001/internal/inventory"
	"github.com/letser/plotplay-sub001/internal/modifiers"
	"github.com/letser/plotplay-sub001/internal/movement"
	"github.com/letser/plotplay-sub001/internal/nodes"
	"github.com/letser/plotplay-sub001/internal/presence"
	"github.com/letser/plotplay-sub001/internal/summary"
	"github.com/letser/plotplay-sub001/internal/timeservice"
)

// MemorySummaryInterval is the number of AI turns between narrative_summary
// requests (§4.15 Summarization cadence).
const MemorySummaryInterval = 8

// Result is the outcome of one turn, ready for the HTTP/websocket surface.
type Result struct {
	TurnID          string
	Turn            int
	Narrative       string
	State           summary.State
	Choices         []choices.Choice
	EventsFired     []string
	Milestones      []string
	Ended           bool
	AIFailed        bool
	AIFailureReason string
}

// StreamEventKind classifies one event emitted by RunTurnStream.
type StreamEventKind string

const (
	EventActionSummary  StreamEventKind = "action_summary"
	EventNarrativeChunk StreamEventKind = "narrative_chunk"
	EventCheckerStatus  StreamEventKind = "checker_status"
	EventComplete       StreamEventKind = "complete"
)

// StreamEvent is one item on a RunTurnStream channel.
type StreamEvent struct {
	Kind   StreamEventKind
	Text   string
	Result *Result
	Err    error
}

// Runtime owns every per-game service, constructed once and shared across
// every session's turns (§4.18); all of it operates on the *GameState
// passed into RunTurn/RunTurnStream, never on state of its own.
type Runtime struct {
	game *domain.Game
	eval *dsl.Evaluator

	clothingSvc  *clothing.Service
	inventorySvc *inventory.Service
	movementSvc  *movement.Service
	timeSvc      *timeservice.Service
	modifiersSvc *modifiers.Service
	eventsSvc    *events.Service
	arcsSvc      *arcs.Service
	presenceSvc  *presence.Service
	gatesSvc     *gates.Service
	nodesSvc     *nodes.Service
	choicesSvc   *choices.Service
	summarySvc   *summary.Service
	checkerSvc   *checker.Service

	transport ai.Transport

	// Observer receives turn/phase/AI-usage notifications (nil disables
	// monitoring entirely; the turn pipeline itself never depends on it).
	Observer *monitoring.ObserverManager
}

// NewRuntime builds a Runtime from a loaded game package and an AI
// transport (nil disables Writer/Checker calls, falling back to the
// deterministic-only phases per §5 "full AI outage").
func NewRuntime(game *domain.Game, transport ai.Transport) *Runtime {
	eval := dsl.NewEvaluator()
	clothingSvc := clothing.NewService(game, eval)
	return &Runtime{
		game:         game,
		eval:         eval,
		clothingSvc:  clothingSvc,
		inventorySvc: inventory.NewService(game, clothingSvc),
		movementSvc:  movement.NewService(game, eval),
		timeSvc:      timeservice.NewService(game),
		modifiersSvc: modifiers.NewService(game, eval),
		eventsSvc:    events.NewService(game, eval),
		arcsSvc:      arcs.NewService(game, eval),
		presenceSvc:  presence.NewService(game, eval),
		gatesSvc:     gates.NewService(game, eval),
		nodesSvc:     nodes.NewService(game, eval),
		choicesSvc:   choices.NewService(game, eval),
		summarySvc:   summary.NewService(game, clothingSvc),
		checkerSvc:   checker.NewService(game, movement.NewService(game, eval)),
		transport:    transport,
	}
}

// Game returns the loaded game package this Runtime serves, so callers
// outside the turn pipeline (the HTTP API's character and session-start
// handlers) can read authored definitions without duplicating the loader.
func (rt *Runtime) Game() *domain.Game { return rt.game }

// Present resolves which characters are in state's current location right
// now, without running a full turn (§4.9). Used by read-only views like
// GET /session/{id}/characters, which need the present set between turns.
func (rt *Runtime) Present(state *domain.GameState) []string {
	tctx := domain.NewTurnContext(state.TurnCount, state.BaseRngSeed, state, domain.Action{})
	envForAny := func(string) map[string]any {
		return dsl.BuildEnv(rt.game, state, tctx, tctx.Present)
	}
	return rt.presenceSvc.Resolve(state, envForAny)
}

// GateStatus evaluates charID's gate table against state as it stands right
// now, outside of a turn (§4.10). Used by the character-view read endpoint,
// which needs gate allow/acceptance/refusal text between turns.
func (rt *Runtime) GateStatus(state *domain.GameState, charID string) map[string]bool {
	tctx := domain.NewTurnContext(state.TurnCount, state.BaseRngSeed, state, domain.Action{})
	tctx.Present = rt.Present(state)
	envFor := func(c string) map[string]any {
		return dsl.BuildEnv(rt.game, state, tctx, tctx.Present)
	}
	rt.gatesSvc.Evaluate(tctx, envFor, func(id string) map[string]bool {
		return rt.modifiersSvc.GateClamps(state.Character(id))
	})
	return tctx.ActiveGates[charID]
}

// Summary builds the state envelope for state as it stands right now,
// without running a turn (§4.17). Used by POST /session/start, which needs
// a state_summary before any action has been submitted.
func (rt *Runtime) Summary(state *domain.GameState, present []string) summary.State {
	tctx := domain.NewTurnContext(state.TurnCount, state.BaseRngSeed, state, domain.Action{})
	tctx.Present = present
	return rt.summarySvc.Build(state, tctx, present)
}

// Choices builds the choice list for state as it stands right now, without
// running a turn (§4.16). Used by POST /session/start for the same reason
// as Summary.
func (rt *Runtime) Choices(state *domain.GameState, present []string) []choices.Choice {
	tctx := domain.NewTurnContext(state.TurnCount, state.BaseRngSeed, state, domain.Action{})
	tctx.Present = present
	env := dsl.BuildEnv(rt.game, state, tctx, present)
	return rt.choicesSvc.Build(state, env, nil)
}

// Clothing renders charID's current clothing state as display text (§4.13).
// Used by the character-view read endpoint alongside Present and GateStatus.
func (rt *Runtime) Clothing(state *domain.GameState, charID string) string {
	return rt.clothingSvc.Appearance(state.Character(charID))
}

// RunTurn executes one full turn synchronously (§4.18).
func (rt *Runtime) RunTurn(ctx context.Context, state *domain.GameState, action domain.Action) (*Result, error) {
	var result *Result
	err := rt.run(ctx, state, action, func(StreamEvent) {}, func(r *Result) { result = r })
	return result, err
}

// RunTurnStream executes one turn, emitting incremental events as they
// become available: action_summary after phase 5, narrative_chunk per
// Writer delta during phase 10, checker_status during phase 11, and a
// final complete event carrying the full Result (§4.18 streaming variant).
func (rt *Runtime) RunTurnStream(ctx context.Context, state *domain.GameState, action domain.Action) <-chan StreamEvent {
	out := make(chan StreamEvent, 8)
	go func() {
		defer close(out)
		sink := func(e StreamEvent) {
			select {
			case out <- e:
			case <-ctx.Done():
			}
		}
		err := rt.run(ctx, state, action, sink, func(r *Result) {
			sink(StreamEvent{Kind: EventComplete, Result: r})
		})
		if err != nil {
			sink(StreamEvent{Kind: EventComplete, Err: err})
		}
	}()
	return out
}

// run is the shared 22-phase body behind both RunTurn and RunTurnStream.
// sink receives incremental stream events (a no-op for the non-streaming
// caller); finish receives the completed Result.
func (rt *Runtime) run(ctx context.Context, state *domain.GameState, action domain.Action, sink func(StreamEvent), finish func(*Result)) error {
	turnID := uuid.NewString()
	started := time.Now()
	log.Debug().Str("turn_id", turnID).Int("turn", state.TurnCount+1).Msg("orchestrator: turn start")
	if rt.Observer != nil {
		rt.Observer.NotifyTurnStarted(turnID, state.TurnCount+1)
	}

	// Phase 1: initialize turn.
	snapshot := state.Clone()
	turn := state.TurnCount + 1
	tctx := domain.NewTurnContext(turn, state.BaseRngSeed, snapshot, action)
	tctx.CurrentNode = state.CurrentNode
	state.TurnCount = turn
	rt.eval.ResetWarnings()

	buildEnv := func(c *domain.TurnContext) map[string]any {
		return dsl.BuildEnv(rt.game, state, c, tctx.Present)
	}
	envForAny := func(string) map[string]any { return buildEnv(tctx) }

	resolver := effects.NewResolver(rt.game, rt.eval, rt.clothingSvc, rt.inventorySvc, rt.movementSvc, rt.timeSvc, rt.modifiersSvc, buildEnv)

	// Phase 2: refuse if the current node is already an ending.
	if node, ok := rt.game.Node(state.CurrentNode); ok && node.Type == "ending" {
		err := domainerrors.NewTurnExecutionError(turnID, turn, "validate_node", "session has already ended", nil, false)
		if rt.Observer != nil {
			rt.Observer.NotifyTurnFailed(turnID, turn, err, time.Since(started))
		}
		return err
	}

	// Phase 3: presence refresh.
	tctx.Present = rt.presenceSvc.Resolve(state, envForAny)

	// Phase 4: gate evaluation.
	rt.gatesSvc.Evaluate(tctx, envForAny, func(charID string) map[string]bool {
		return rt.modifiersSvc.GateClamps(state.Character(charID))
	})

	// Phase 5: format action summary.
	tctx.ActionSummary = formatActionSummary(action)
	sink(StreamEvent{Kind: EventActionSummary, Text: tctx.ActionSummary})

	// Phase 6: first-turn node entry effects.
	if turn == 1 && !action.SkipNodeEffects {
		if node, ok := rt.game.Node(state.CurrentNode); ok {
			resolver.Apply(state, tctx, domain.PlayerID, node.EntryEffects)
		}
	}

	// Phase 7: action dispatch + time category resolution.
	resolver.Apply(state, tctx, domain.PlayerID, dispatchAction(action))
	switch action.Kind {
	case domain.ActionChoice:
		if node, ok := rt.game.Node(state.CurrentNode); ok {
			if cd, ok := findChoice(node, action.ChoiceID); ok {
				resolver.Apply(state, tctx, domain.PlayerID, cd.OnSelect)
			}
		}
	case domain.ActionUse:
		if def, ok := rt.game.Item(action.ItemID); ok && state.Character(domain.PlayerID).Inventory[action.ItemID] > 0 {
			resolver.Apply(state, tctx, domain.PlayerID, def.OnUse)
		}
	}
	rt.resolveTimeCategory(state, tctx, action)

	// Phase 8: event pipeline (always runs).
	fired := rt.eventsSvc.Evaluate(state, tctx, buildEnv(tctx))
	for _, f := range fired {
		resolver.Apply(state, tctx, domain.PlayerID, f.Effects)
		tctx.NarrativeParts = append(tctx.NarrativeParts, f.Beats...)
	}
	forcedTransition := tctx.PendingGoto != ""

	var narrative string
	if !action.SkipAI && !forcedTransition && rt.transport != nil {
		narrative = rt.runAIPhases(ctx, turnID, state, tctx, resolver, sink)
	} else if !action.SkipAI && rt.transport == nil {
		tctx.AIFailed = true
		tctx.AIFailureReason = "no AI transport configured"
	}

	// Phase 15: resolve node transitions.
	transitionRes := rt.nodesSvc.Resolve(state, tctx, buildEnv(tctx))
	if transitionRes.Changed {
		resolver.Apply(state, tctx, domain.PlayerID, transitionRes.Effects)
	}
	ended := transitionRes.Ended

	// Phase 16: modifier auto-activation.
	resolver.Apply(state, tctx, domain.PlayerID, rt.modifiersSvc.AutoActivation(state, envForAny))

	// Phase 17: discovery updates.
	rt.refreshDiscovery(state, buildEnv(tctx))

	// Phase 18: advance time, tick durations/cooldowns, apply decay.
	adv := rt.timeSvc.Advance(state, tctx.TimeAdvanceMinutes)
	resolver.Apply(state, tctx, domain.PlayerID, rt.modifiersSvc.TickDurations(state, adv.MinutesPassed))
	timeservice.TickEventCooldowns(state, adv.MinutesPassed)
	timeservice.ApplyDecay(rt.game, state, adv.DayAdvanced, adv.SlotAdvanced)

	// Phase 19: arc processing.
	for _, a := range rt.arcsSvc.Evaluate(state, tctx, buildEnv(tctx)) {
		resolver.Apply(state, tctx, domain.PlayerID, a.Effects)
	}

	// Phase 20: build choices.
	choiceList := rt.choicesSvc.Build(state, buildEnv(tctx), nil)

	// Phase 21: build state summary.
	stateSummary := rt.summarySvc.Build(state, tctx, tctx.Present)
	stateSummary.ActionSummary = tctx.ActionSummary

	// Phase 22: invariant check, persist, return.
	if err := domain.CheckInvariants(rt.game, state); err != nil {
		*state = *tctx.Snapshot
		wrapped := domainerrors.NewTurnExecutionError(turnID, turn, "persist", "invariant violation, rolled back", err, false)
		if rt.Observer != nil {
			rt.Observer.NotifyTurnFailed(turnID, turn, wrapped, time.Since(started))
		}
		return wrapped
	}

	result := &Result{
		TurnID:          turnID,
		Turn:            turn,
		Narrative:       narrative,
		State:           stateSummary,
		Choices:         choiceList,
		EventsFired:     tctx.EventsFired,
		Milestones:      tctx.MilestonesReached,
		Ended:           ended,
		AIFailed:        tctx.AIFailed,
		AIFailureReason: tctx.AIFailureReason,
	}
	finish(result)
	log.Debug().Str("turn_id", turnID).Int("turn", turn).Bool("ended", ended).Msg("orchestrator: turn complete")
	if rt.Observer != nil {
		rt.Observer.NotifyTurnCompleted(turnID, turn, time.Since(started))
	}
	return nil
}

// runAIPhases drives phases 9-14: envelope assembly, Writer (streamed when
// sink is wired to a live channel), Checker with one retry, narrative
// reconciliation, and the Checker's effect batch.
func (rt *Runtime) runAIPhases(ctx context.Context, turnID string, state *domain.GameState, tctx *domain.TurnContext, resolver *effects.Resolver, sink func(StreamEvent)) string {
	requestSummary := state.AITurnsSinceSummary >= MemorySummaryInterval
	env := rt.buildEnvelope(state, tctx, requestSummary)

	writerStart := time.Now()
	var writerText string
	var writerFinal *ai.WriterResult
	stream, err := rt.transport.WriterStream(ctx, env)
	if err != nil {
		log.Warn().Err(err).Msg("orchestrator: writer stream failed, falling back to deterministic-only turn")
		tctx.AIFailed = true
		tctx.AIFailureReason = "writer unavailable"
		rt.notifyAIRequest(turnID, "writer", writerStart, 0, 0, err)
		return ""
	}
	for chunk := range stream {
		if chunk.Err != nil {
			tctx.AIFailed = true
			tctx.AIFailureReason = "writer stream error: " + chunk.Err.Error()
			rt.notifyAIRequest(turnID, "writer", writerStart, 0, 0, chunk.Err)
			return writerText
		}
		if chunk.Delta != "" {
			writerText += chunk.Delta
			sink(StreamEvent{Kind: EventNarrativeChunk, Text: chunk.Delta})
		}
		if chunk.Done {
			writerFinal = chunk.Final
			break
		}
	}
	writerText = ai.ReconcileNarrative(writerText)
	if writerFinal != nil {
		rt.notifyAIRequest(turnID, "writer", writerStart, writerFinal.PromptTokens, writerFinal.CompletionTokens, nil)
	} else {
		rt.notifyAIRequest(turnID, "writer", writerStart, 0, 0, nil)
	}

	checkerStart := time.Now()
	checkerRes, err := rt.transport.Checker(ctx, env, writerText)
	sink(StreamEvent{Kind: EventCheckerStatus, Text: "checking"})
	var out checker.Output
	if err == nil {
		out, err = checker.Decode(checkerRes.Raw)
	}
	if err != nil {
		retryRes, retryErr := rt.transport.Checker(ctx, env, writerText)
		if retryErr == nil {
			out, retryErr = checker.Decode(retryRes.Raw)
			checkerRes = retryRes
		}
		if retryErr != nil {
			log.Warn().Err(retryErr).Msg("orchestrator: checker output dropped after retry")
			tctx.AIFailed = true
			tctx.AIFailureReason = "checker output malformed"
			state.AITurnsSinceSummary++
			rt.notifyAIRequest(turnID, "checker", checkerStart, 0, 0, retryErr)
			return writerText
		}
	}
	rt.notifyAIRequest(turnID, "checker", checkerStart, checkerRes.PromptTokens, checkerRes.CompletionTokens, nil)
	sink(StreamEvent{Kind: EventCheckerStatus, Text: "applied"})

	batch := rt.checkerSvc.Apply(state, tctx, rt.evalEnv(state, tctx), out)
	resolver.Apply(state, tctx, domain.PlayerID, batch)

	if out.NarrativeSummary == "" {
		state.AITurnsSinceSummary++
	}

	state.PushNarrative(writerText)
	return writerText
}

func (rt *Runtime) evalEnv(state *domain.GameState, tctx *domain.TurnContext) map[string]any {
	return dsl.BuildEnv(rt.game, state, tctx, tctx.Present)
}

// resolveTimeCategory resolves this turn's time cost via the four-step
// lookup order (§4.7) and adds it to whatever movement already accrued in
// phase 7.
func (rt *Runtime) resolveTimeCategory(state *domain.GameState, tctx *domain.TurnContext, action domain.Action) {
	node, _ := rt.game.Node(state.CurrentNode)
	in := timeservice.CostInput{NodeKind: string(action.Kind)}
	if action.Kind == domain.ActionChoice {
		if cd, ok := findChoice(node, action.ChoiceID); ok {
			in.ExplicitMinutes = cd.TimeCost
			in.TimeCategory = cd.TimeCategory
		}
	}
	minutes := rt.timeSvc.ResolveCost(node, in)
	cap := rt.timeSvc.CapForVisit(node, string(action.Kind))
	minutes = timeservice.ClampToVisitCap(state, minutes, cap, in.ExplicitMinutes != nil)
	tctx.ResolvedTimeCategory = in.TimeCategory
	tctx.TimeAdvanceMinutes += minutes
}

func findChoice(node domain.NodeDef, id string) (domain.ChoiceDef, bool) {
	for _, c := range node.Choices {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range node.DynamicChoices {
		if c.ID == id {
			return c, true
		}
	}
	return domain.ChoiceDef{}, false
}

// refreshDiscovery proactively marks any location whose discovery
// conditions now hold as discovered, rather than waiting for a move
// attempt to trigger movement.Service's lazy check (§4.6 Access).
func (rt *Runtime) refreshDiscovery(state *domain.GameState, env map[string]any) {
	for id, loc := range rt.game.Locations() {
		if state.DiscoveredLocations[id] {
			continue
		}
		if loc.DiscoveryConditions != "" && rt.eval.EvalBool(loc.DiscoveryConditions, env) {
			state.DiscoveredLocations[id] = true
		}
	}
}

// dispatchAction translates a submitted player action into the effect
// batch phase 7 applies (§4.12): movement actions map onto the matching
// move/goto/travel effect kinds the resolver already knows how to run;
// give/purchase/sell build the single effect their definition implies;
// choice and use return nothing here, since run() applies the choice's
// OnSelect and, when the player holds the item, its OnUse (a consumable's
// count is not decremented); say/do carry no deterministic effect of their
// own, only the free text handed to the Writer.
func dispatchAction(action domain.Action) []domain.Effect {
	switch action.Kind {
	case domain.ActionChoice:
		// Resolved against the node's authored OnSelect in the caller
		// (phase 7 applies the choice's own effects, found via the node
		// definition, not reconstructed here).
		return nil
	case domain.ActionMove:
		return []domain.Effect{domain.NewEffect(domain.EffectMove, "", map[string]any{
			"direction": action.Direction, "with": toAny(action.WithCharacters),
		})}
	case domain.ActionGoto:
		return []domain.Effect{domain.NewEffect(domain.EffectMoveTo, "", map[string]any{
			"location": action.Target, "with": toAny(action.WithCharacters),
		})}
	case domain.ActionTravel:
		return []domain.Effect{domain.NewEffect(domain.EffectTravelTo, "", map[string]any{
			"location": action.Location, "with": toAny(action.WithCharacters), "distance": 1.0,
		})}
	case domain.ActionGive:
		return []domain.Effect{domain.NewEffect(domain.EffectInventoryGive, "", map[string]any{
			"from": domain.PlayerID, "to": action.Target, "item": action.ItemID, "count": 1.0,
		})}
	case domain.ActionPurchase:
		return []domain.Effect{domain.NewEffect(domain.EffectInventoryPurchase, "", map[string]any{
			"buyer": domain.PlayerID, "seller": action.Target, "item": action.ItemID, "price": action.Price, "count": 1.0,
		})}
	case domain.ActionSell:
		return []domain.Effect{domain.NewEffect(domain.EffectInventorySell, "", map[string]any{
			"buyer": action.Target, "seller": domain.PlayerID, "item": action.ItemID, "price": action.Price, "count": 1.0,
		})}
	default:
		return nil
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// formatActionSummary renders the short, present-tense line shown in the
// summary envelope and given to the Writer as "Player action:" (phase 5).
func formatActionSummary(action domain.Action) string {
	switch action.Kind {
	case domain.ActionSay:
		return fmt.Sprintf("You say: %q", action.Text)
	case domain.ActionDo:
		return fmt.Sprintf("You %s", action.Text)
	case domain.ActionChoice:
		return "You make your choice."
	case domain.ActionUse:
		return fmt.Sprintf("You use %s", action.ItemID)
	case domain.ActionGive:
		return fmt.Sprintf("You give %s to %s", action.ItemID, action.Target)
	case domain.ActionMove:
		return fmt.Sprintf("You head %s", action.Direction)
	case domain.ActionGoto:
		return fmt.Sprintf("You head to %s", action.Target)
	case domain.ActionTravel:
		return fmt.Sprintf("You travel to %s", action.Location)
	case domain.ActionPurchase:
		return fmt.Sprintf("You buy %s", action.ItemID)
	case domain.ActionSell:
		return fmt.Sprintf("You sell %s", action.ItemID)
	default:
		return action.Text
	}
}

// buildEnvelope assembles the Writer/Checker turn envelope from the
// resolved state (§4.15).
func (rt *Runtime) buildEnvelope(state *domain.GameState, tctx *domain.TurnContext, requestSummary bool) ai.Envelope {
	meta := rt.game.Meta()
	narration := rt.game.Narration()
	node, _ := rt.game.Node(state.CurrentNode)
	player := state.Character(domain.PlayerID)

	env := ai.Envelope{
		GameID:             meta.ID,
		GameTitle:          meta.Title,
		POV:                narration.POV,
		Tense:              narration.Tense,
		Style:              narration.Style,
		ParagraphBudgetMin: narration.ParagraphBudgetMin,
		ParagraphBudgetMax: narration.ParagraphBudgetMax,
		Time: ai.EnvelopeTime{
			Day: state.Time.Day, Slot: state.Time.Slot,
			HHMM: formatHHMM(state.Time.MinutesOfDay), Weekday: state.Time.Weekday,
		},
		NodeID:    node.ID,
		NodeType:  node.Type,
		NodeTitle: node.Title,
		Beats:     node.Beats,
		Player: ai.PlayerCard{
			Meters: player.Meters, Inventory: player.Inventory,
			Clothing: rt.clothingSvc.Appearance(player),
		},
		NarrativeSummary: state.NarrativeSummary,
		RecentNarrative:  lastN(state.NarrativeHistory, 5),
		Action:           tctx.Action.Text,
		RequestSummary:   requestSummary,
	}
	if loc, ok := rt.game.Location(state.Location.ID); ok {
		env.Location = ai.EnvelopeLocation{Zone: state.Location.Zone, ID: state.Location.ID, Privacy: loc.Privacy}
	}
	for _, charID := range tctx.Present {
		if charID == domain.PlayerID {
			continue
		}
		def, ok := rt.game.Character(charID)
		if !ok {
			continue
		}
		cs := state.Character(charID)
		var gateStates []ai.GateState
		for _, g := range def.Gates {
			active := tctx.ActiveGates[charID][g.ID]
			gateStates = append(gateStates, ai.GateState{
				ID: g.ID, Active: active, Acceptance: g.Acceptance, Refusal: g.Refusal,
			})
		}
		env.Characters = append(env.Characters, ai.CharacterCard{
			ID: charID, Name: def.Name, Personality: def.Personality, DialogueStyle: def.DialogueStyle,
			Meters: cs.Meters, Gates: gateStates, Outfit: cs.ActiveOutfit, Clothing: rt.clothingSvc.Appearance(cs),
		})
	}
	return env
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func formatHHMM(minutesOfDay int) string {
	return fmt.Sprintf("%02d:%02d", (minutesOfDay/60)%24, minutesOfDay%60)
}

func (rt *Runtime) notifyAIRequest(turnID, role string, start time.Time, promptTokens, completionTokens int, err error) {
	if rt.Observer == nil {
		return
	}
	rt.Observer.NotifyAIRequest(turnID, role, time.Since(start), promptTokens, completionTokens, err)
}
