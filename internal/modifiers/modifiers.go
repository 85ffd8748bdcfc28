// Package modifiers implements auto-activation, stacking/exclusion, and
// duration ticking of temporary character overlays (§4.8).
package modifiers

import (
	"sort"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Service evaluates and ticks modifiers.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new modifier Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

// sameGroupActive returns the ids of other active modifiers in the same
// group as def, excluding def.ID itself.
func (s *Service) sameGroupActive(cs *domain.CharacterState, def domain.ModifierDef) []string {
	if def.Group == "" {
		return nil
	}
	var out []string
	for id := range cs.Modifiers {
		if id == def.ID {
			continue
		}
		other, ok := s.game.Modifier(id)
		if ok && other.Group == def.Group {
			out = append(out, id)
		}
	}
	return out
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// Apply activates modifierID on the character, respecting exclusions and
// the group's stacking policy. Returns the EntryEffects to be applied by
// the caller (effects are resolved through the batch resolver, not here,
// to keep this package free of an import on the effect resolver).
func (s *Service) Apply(cs *domain.CharacterState, modifierID string, durationOverride *int, autoApplied bool) ([]domain.Effect, bool) {
	def, ok := s.game.Modifier(modifierID)
	if !ok {
		return nil, false
	}
	for other := range cs.Modifiers {
		if contains(def.Exclusions, other) {
			return nil, false
		}
	}
	switch def.Stacking {
	case "replace", "":
		for _, other := range s.sameGroupActive(cs, def) {
			delete(cs.Modifiers, other)
		}
	case "highest":
		// "highest" is evaluated by the behavior layer at read time, not
		// here; both modifiers stay active simultaneously.
	}

	duration := def.DurationDefaultMin
	if durationOverride != nil {
		duration = *durationOverride
	}
	if _, already := cs.Modifiers[modifierID]; already && !autoApplied {
		// Explicit re-apply refreshes duration.
	}
	cs.Modifiers[modifierID] = domain.ModifierState{RemainingMinutes: duration, AutoApplied: autoApplied}
	return def.EntryEffects, true
}

// Remove deactivates modifierID, returning its ExitEffects for the caller
// to apply.
func (s *Service) Remove(cs *domain.CharacterState, modifierID string) []domain.Effect {
	def, ok := s.game.Modifier(modifierID)
	if !ok {
		delete(cs.Modifiers, modifierID)
		return nil
	}
	if _, active := cs.Modifiers[modifierID]; !active {
		return nil
	}
	delete(cs.Modifiers, modifierID)
	return def.ExitEffects
}

// AutoActivation evaluates every modifier with a `when` guard (phase 16):
// activates newly-true ones, deactivates auto-applied ones that turned
// false. Returns the combined entry/exit effects to apply, in evaluation
// order.
func (s *Service) AutoActivation(state *domain.GameState, envFor func(owner string) map[string]any) []domain.Effect {
	var out []domain.Effect
	for _, def := range s.game.Modifiers() {
		if def.When == "" {
			continue
		}
		for owner, cs := range state.Characters {
			env := envFor(owner)
			truthy := s.eval.EvalBool(def.When, env)
			_, active := cs.Modifiers[def.ID]
			if truthy && !active {
				effects, applied := s.Apply(cs, def.ID, nil, true)
				if applied {
					out = append(out, effects...)
				}
			} else if !truthy && active {
				if st, ok := cs.Modifiers[def.ID]; ok && st.AutoApplied {
					out = append(out, s.Remove(cs, def.ID)...)
				}
			}
		}
	}
	return out
}

// Modifiers exposes the game's modifier catalogue for the caller's env-loop
// (kept as a method on Game already, this is a thin convenience wrapper).
func (s *Service) Modifiers() map[string]domain.ModifierDef {
	return s.game.Modifiers()
}

// TickDurations subtracts minutesPassed from every active modifier's
// remaining time, running ExitEffects and removing any that reach zero
// (phase 18). Returns the exit effects to apply, in a stable order.
func (s *Service) TickDurations(state *domain.GameState, minutesPassed int) []domain.Effect {
	var out []domain.Effect
	owners := make([]string, 0, len(state.Characters))
	for owner := range state.Characters {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		cs := state.Characters[owner]
		ids := make([]string, 0, len(cs.Modifiers))
		for id := range cs.Modifiers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			st := cs.Modifiers[id]
			st.RemainingMinutes -= minutesPassed
			if st.RemainingMinutes <= 0 {
				out = append(out, s.Remove(cs, id)...)
				continue
			}
			cs.Modifiers[id] = st
		}
	}
	return out
}

// GateClamps returns the set of gates forced false by active modifiers on
// owner (§4.8 Gate clamps / §4.10).
func (s *Service) GateClamps(cs *domain.CharacterState) map[string]bool {
	clamped := map[string]bool{}
	for id := range cs.Modifiers {
		def, ok := s.game.Modifier(id)
		if !ok {
			continue
		}
		for _, gate := range def.Safety.DisallowGates {
			clamped[gate] = true
		}
	}
	return clamped
}

// ClampMeter narrows [min,max] for meterID if any active modifier on cs
// defines a tighter clamp_meters entry.
func (s *Service) ClampMeter(cs *domain.CharacterState, meterID string, min, max float64) (float64, float64) {
	for id := range cs.Modifiers {
		def, ok := s.game.Modifier(id)
		if !ok {
			continue
		}
		clamp, ok := def.ClampMeters[meterID]
		if !ok {
			continue
		}
		if clamp.Min != nil && *clamp.Min > min {
			min = *clamp.Min
		}
		if clamp.Max != nil && *clamp.Max < max {
			max = *clamp.Max
		}
	}
	return min, max
}
