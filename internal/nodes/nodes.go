// Package nodes resolves which story node is current after effects have
// applied, running exit/entry effects across the boundary (§4.11, phase 15).
package nodes

import (
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Result reports the outcome of a transition resolution.
type Result struct {
	Changed bool
	From    string
	To      string
	// Effects is the exit_effects of the old node followed by the
	// entry_effects of the new node, in order, for the caller's resolver
	// to apply. Empty when the node didn't change or skip_node_effects
	// was requested.
	Effects []domain.Effect
	Ended   bool // true once the new node is of type "ending"
}

// Service resolves node transitions.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new node Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

// Resolve picks the next node for this turn and, if it differs from the
// current one, returns the exit/entry effect batch to apply.
//
// A goto queued by a choice, an effect, or an event (ctx.PendingGoto) wins
// over the node's own authored transitions; otherwise the first transition
// whose `when` holds is taken; otherwise the node doesn't change.
func (s *Service) Resolve(state *domain.GameState, ctx *domain.TurnContext, env map[string]any) Result {
	from := state.CurrentNode
	target := from

	if ctx.PendingGoto != "" {
		target = ctx.PendingGoto
	} else if def, ok := s.game.Node(from); ok {
		for _, t := range def.Transitions {
			if t.When == "" || s.eval.EvalBool(t.When, env) {
				target = t.Target
				break
			}
		}
	}

	if target == from || target == "" {
		return Result{Changed: false, From: from, To: from}
	}

	res := Result{Changed: true, From: from, To: target}

	if !ctx.Action.SkipNodeEffects {
		if oldDef, ok := s.game.Node(from); ok {
			res.Effects = append(res.Effects, oldDef.ExitEffects...)
		}
		if newDef, ok := s.game.Node(target); ok {
			res.Effects = append(res.Effects, newDef.EntryEffects...)
		}
	}

	state.CurrentNode = target
	state.NodesVisited[target] = true
	state.TimeInCurrentNode = 0
	if newDef, ok := s.game.Node(target); ok && newDef.Type == "ending" {
		state.GameOver = true
		res.Ended = true
	}

	return res
}
