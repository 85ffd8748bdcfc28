// Package arcs advances multi-stage character/story progressions once per
// turn, capped at a bounded number of hops per arc (§4.14, phase 19).
package arcs

import (
	"fmt"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// MaxHopsPerTurn bounds how many stages a single arc may advance in one
// turn, preventing a runaway chain of satisfied advance_when conditions.
const MaxHopsPerTurn = 4

// Advanced is one arc's outcome for this turn.
type Advanced struct {
	ArcID      string
	Effects    []domain.Effect
	Milestones []string
}

// Service advances arcs.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new arc Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

// Evaluate walks every declared arc in declaration order, advancing each as
// far as its satisfied advance_when chain allows (up to MaxHopsPerTurn
// hops), and returns the effects/milestones produced.
func (s *Service) Evaluate(state *domain.GameState, ctx *domain.TurnContext, env map[string]any) []Advanced {
	var out []Advanced
	for _, id := range s.game.ArcOrder() {
		def, ok := s.game.Arc(id)
		if !ok || len(def.Stages) == 0 {
			continue
		}
		if adv := s.advanceOne(state, def, env); len(adv.Effects) > 0 || len(adv.Milestones) > 0 {
			out = append(out, adv)
			ctx.MilestonesReached = append(ctx.MilestonesReached, adv.Milestones...)
		}
	}
	return out
}

func (s *Service) advanceOne(state *domain.GameState, def domain.ArcDef, env map[string]any) Advanced {
	adv := Advanced{ArcID: def.ID}
	idx := state.ArcProgress[def.ID]

	for hop := 0; hop < MaxHopsPerTurn; hop++ {
		nextIdx := idx + 1
		if nextIdx >= len(def.Stages) {
			break
		}
		next := def.Stages[nextIdx]
		if next.AdvanceWhen == "" || !s.eval.EvalBool(next.AdvanceWhen, env) {
			break
		}
		current := def.Stages[idx]
		adv.Effects = append(adv.Effects, current.OnAdvance...)
		adv.Effects = append(adv.Effects, next.OnEnter...)
		state.ArcHistory[def.ID] = append(state.ArcHistory[def.ID], next.ID)
		adv.Milestones = append(adv.Milestones, fmt.Sprintf("%s:%s", def.ID, next.ID))
		idx = nextIdx
	}

	state.ArcProgress[def.ID] = idx
	return adv
}
