// Package events selects eligible world events each turn and reports the
// effect batches to apply, leaving actual effect application to the
// caller's resolver (§4.13, phase 8).
package events

import (
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Fired is one event that triggered this turn.
type Fired struct {
	EventID string
	Effects []domain.Effect
	Beats   []string
}

// Service selects and tracks events.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new event Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

func (s *Service) eligible(state *domain.GameState, def domain.EventDef, env map[string]any, roll func() float64) bool {
	if def.OncePerGame && state.EventsOncePerGame[def.ID] {
		return false
	}
	if state.EventCooldowns[def.ID] > 0 {
		return false
	}
	switch def.Trigger.Kind {
	case "location":
		if def.Trigger.Location != "" && def.Trigger.Location != state.Location.ID {
			return false
		}
		return def.Trigger.When == "" || s.eval.EvalBool(def.Trigger.When, env)
	case "random":
		if def.Trigger.When != "" && !s.eval.EvalBool(def.Trigger.When, env) {
			return false
		}
		p := def.Trigger.Weight / 100
		if p > 1 {
			p = 1
		}
		if p <= 0 {
			return false
		}
		return roll() < p
	default: // "scheduled" | "conditional"
		return def.Trigger.When == "" || s.eval.EvalBool(def.Trigger.When, env)
	}
}

// Evaluate walks every declared event in declaration order, collects the
// batch that fires this turn, and updates cooldown/once-per-game
// bookkeeping for whatever fires. Non-random eligible events all fire;
// among random events that pass their independent Bernoulli roll, exactly
// one is chosen by weight (§4.13).
func (s *Service) Evaluate(state *domain.GameState, ctx *domain.TurnContext, env map[string]any) []Fired {
	var fired []Fired
	var randomCandidates []domain.EventDef

	for _, id := range s.game.EventOrder() {
		def, ok := s.game.Event(id)
		if !ok {
			continue
		}
		if def.Trigger.Kind == "random" {
			if s.eligible(state, def, env, ctx.Rng.Float64) {
				randomCandidates = append(randomCandidates, def)
			}
			continue
		}
		if s.eligible(state, def, env, nil) {
			fired = append(fired, s.fire(state, ctx, def))
		}
	}

	if chosen, ok := s.weightedPick(randomCandidates, ctx); ok {
		fired = append(fired, s.fire(state, ctx, chosen))
	}

	return fired
}

func (s *Service) weightedPick(candidates []domain.EventDef, ctx *domain.TurnContext) (domain.EventDef, bool) {
	if len(candidates) == 0 {
		return domain.EventDef{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}
	total := 0.0
	for _, c := range candidates {
		total += c.Trigger.Weight
	}
	if total <= 0 {
		return candidates[0], true
	}
	roll := ctx.Rng.Float64() * total
	acc := 0.0
	for _, c := range candidates {
		acc += c.Trigger.Weight
		if roll <= acc {
			return c, true
		}
	}
	return candidates[len(candidates)-1], true
}

func (s *Service) fire(state *domain.GameState, ctx *domain.TurnContext, def domain.EventDef) Fired {
	state.EventCooldowns[def.ID] = def.CooldownMin
	if def.OncePerGame {
		state.EventsOncePerGame[def.ID] = true
	}
	ctx.EventsFired = append(ctx.EventsFired, def.ID)
	return Fired{EventID: def.ID, Effects: def.Effects, Beats: def.Beats}
}
