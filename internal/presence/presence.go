// Package presence resolves which characters are in the current location
// (§4.9): the player, pinned characters, and whichever schedule rule
// matches first for everyone else.
package presence

import (
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Service computes present characters.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new presence Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

// Resolve returns the ids of every character present in state.Location,
// including the player. scheduleEnv builds the DSL context used to
// evaluate each character's schedule `when` conditions (it is supplied by
// the caller because it may itself depend on the present set being
// resolved — the orchestrator passes a context without `present` bound yet
// for this one evaluation).
func (s *Service) Resolve(state *domain.GameState, scheduleEnv func(charID string) map[string]any) []string {
	present := map[string]bool{domain.PlayerID: true}

	for id, cs := range state.Characters {
		if id == domain.PlayerID {
			continue
		}
		if cs.LocationPin != "" {
			if cs.LocationPin == state.Location.ID {
				present[id] = true
			}
			continue
		}
		def, ok := s.game.Character(id)
		if !ok {
			continue
		}
		env := scheduleEnv(id)
		for _, rule := range def.Schedule {
			if s.eval.EvalBool(rule.When, env) {
				if rule.Location == state.Location.ID {
					present[id] = true
				}
				break
			}
		}
	}

	out := make([]string, 0, len(present))
	for _, id := range s.game.CharacterOrder() {
		if present[id] {
			out = append(out, id)
		}
	}
	if present[domain.PlayerID] {
		out = append([]string{domain.PlayerID}, out...)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
