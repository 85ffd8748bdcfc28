// Package gates evaluates the per-character gate truth table each turn
// (§4.10). Results feed ctx.ActiveGates, which the DSL's gates.<char>.<gate>
// binding and the Checker apply step both read for the remainder of the
// turn (invariant 9, §3: no stale gate value survives into the same turn).
package gates

import (
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Service evaluates gates.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new gate Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

// gateTrue applies the three-way OR described in §4.10: when, when_any (any
// true), when_all (all true). An empty clause is treated as absent, not
// vacuously true/false; a gate with none of the three clauses set is true.
func (s *Service) gateTrue(def domain.GateDef, env map[string]any) bool {
	if def.When != "" && s.eval.EvalBool(def.When, env) {
		return true
	}
	if len(def.WhenAny) > 0 {
		for _, expr := range def.WhenAny {
			if s.eval.EvalBool(expr, env) {
				return true
			}
		}
	}
	if len(def.WhenAll) > 0 {
		all := true
		for _, expr := range def.WhenAll {
			if !s.eval.EvalBool(expr, env) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return def.When == "" && len(def.WhenAny) == 0 && len(def.WhenAll) == 0
}

// Evaluate computes every character's gate table, applying modifier gate
// clamps (forced-false) after the raw evaluation, and writes the result
// into ctx.ActiveGates. clampsFor returns the set of gates a character's
// active modifiers force false (§4.8).
func (s *Service) Evaluate(ctx *domain.TurnContext, envFor func(charID string) map[string]any, clampsFor func(charID string) map[string]bool) {
	for _, charID := range s.game.CharacterOrder() {
		def, ok := s.game.Character(charID)
		if !ok || len(def.Gates) == 0 {
			continue
		}
		env := envFor(charID)
		clamps := clampsFor(charID)
		row := make(map[string]bool, len(def.Gates))
		for _, gate := range def.Gates {
			v := s.gateTrue(gate, env)
			if clamps[gate.ID] {
				v = false
			}
			row[gate.ID] = v
		}
		ctx.ActiveGates[charID] = row
	}
}

// GateDef returns the gate definition for charID/gateID, used to fetch
// acceptance/refusal text.
func (s *Service) GateDef(charID, gateID string) (domain.GateDef, bool) {
	def, ok := s.game.Character(charID)
	if !ok {
		return domain.GateDef{}, false
	}
	for _, g := range def.Gates {
		if g.ID == gateID {
			return g, true
		}
	}
	return domain.GateDef{}, false
}
