// Package timeservice implements minute-accurate time advance, slot/day
// rollover, and the time-cost resolution order (§4.7).
package timeservice

import (
	"github.com/letser/plotplay-sub001/internal/domain"
)

// Advance describes what happened to the clock during one advance call.
type Advance struct {
	DayAdvanced   bool
	SlotAdvanced  bool
	MinutesPassed int
}

// Service advances the game clock and resolves time costs.
type Service struct {
	game *domain.Game
}

// NewService creates a new time Service.
func NewService(game *domain.Game) *Service {
	return &Service{game: game}
}

// Advance adds minutes to the clock, wrapping minutesOfDay modulo 1440 and
// incrementing day on each wrap, then re-deriving slot/weekday.
func (s *Service) Advance(state *domain.GameState, minutes int) Advance {
	if minutes <= 0 {
		return Advance{}
	}
	cfg := s.game.Time()
	prevSlot := state.Time.Slot

	total := state.Time.MinutesOfDay + minutes
	daysAdvanced := total / 1440
	state.Time.MinutesOfDay = total % 1440
	state.Time.Day += daysAdvanced
	state.Time.Slot = domain.DeriveSlot(cfg.SlotWindows, state.Time.MinutesOfDay)
	state.Time.Weekday = domain.DeriveWeekday(cfg.WeekDays, cfg.StartDay, state.Time.Day)

	state.TimeInCurrentNode += minutes

	return Advance{
		DayAdvanced:   daysAdvanced > 0,
		SlotAdvanced:  prevSlot != state.Time.Slot,
		MinutesPassed: minutes,
	}
}

// ResetNodeTimer zeroes the per-visit time accumulator; called on node change.
func (s *Service) ResetNodeTimer(state *domain.GameState) {
	state.TimeInCurrentNode = 0
}

// CostInput bundles the optional per-action overrides consulted by
// ResolveCost, in the priority order given by §4.7.
type CostInput struct {
	ExplicitMinutes *int
	TimeCategory    string
	NodeKind        string // the action kind, keyed into node.TimeBehavior
}

// ResolveCost implements the four-step lookup order (§4.7):
// explicit minutes > time_category > node.time_behavior[kind] > time.defaults.
func (s *Service) ResolveCost(node domain.NodeDef, in CostInput) int {
	if in.ExplicitMinutes != nil {
		return *in.ExplicitMinutes
	}
	cfg := s.game.Time()
	if in.TimeCategory != "" {
		if cat, ok := cfg.Categories[in.TimeCategory]; ok {
			return cat.Minutes
		}
	}
	if in.NodeKind != "" {
		if behavior, ok := node.TimeBehavior[in.NodeKind]; ok {
			return behavior.Minutes
		}
	}
	if def, ok := cfg.Defaults[in.NodeKind]; ok {
		return def.Minutes
	}
	if def, ok := cfg.Defaults["default"]; ok {
		return def.Minutes
	}
	return 0
}

// CapForVisit returns the cap_per_visit for kind, if any is configured on
// the node or falls back to the game-wide default.
func (s *Service) CapForVisit(node domain.NodeDef, kind string) *int {
	if behavior, ok := node.TimeBehavior[kind]; ok && behavior.CapPerVisit != nil {
		return behavior.CapPerVisit
	}
	if def, ok := s.game.Time().Defaults[kind]; ok {
		return def.CapPerVisit
	}
	if def, ok := s.game.Time().Defaults["default"]; ok {
		return def.CapPerVisit
	}
	return nil
}

// ClampToVisitCap reduces minutes so TimeInCurrentNode+minutes never
// exceeds cap, unless bypass is set (explicit choice minutes bypass the cap
// by design, §4.7/§9).
func ClampToVisitCap(state *domain.GameState, minutes int, cap *int, bypass bool) int {
	if bypass || cap == nil {
		return minutes
	}
	remaining := *cap - state.TimeInCurrentNode
	if remaining < 0 {
		remaining = 0
	}
	if minutes > remaining {
		return remaining
	}
	return minutes
}

// ApplyDecay applies decay_per_day or decay_per_slot to every character
// meter, clamped to its [min,max].
func ApplyDecay(game *domain.Game, state *domain.GameState, perDay, perSlot bool) {
	for _, cs := range state.Characters {
		for meterID, def := range game.Meters() {
			delta := 0.0
			if perDay {
				delta += def.DecayPerDay
			}
			if perSlot {
				delta += def.DecayPerSlot
			}
			if delta == 0 {
				continue
			}
			v := cs.Meters[meterID] + delta
			if v < def.Min {
				v = def.Min
			}
			if v > def.Max {
				v = def.Max
			}
			cs.Meters[meterID] = v
		}
	}
}

// TickEventCooldowns decrements every event's cooldown by minutesPassed,
// floored at 0 (§4.7, invariant 8 monotonicity).
func TickEventCooldowns(state *domain.GameState, minutesPassed int) {
	for id, remaining := range state.EventCooldowns {
		next := remaining - minutesPassed
		if next < 0 {
			next = 0
		}
		state.EventCooldowns[id] = next
	}
}
