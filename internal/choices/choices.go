// Package choices composes the next turn's choice list from node choices,
// dynamic choices, unlocked actions, movement buttons, and event-injected
// options, in a fixed deterministic order (§4.16, phase 20).
package choices

import (
	"fmt"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Source classifies where a choice came from, used only to keep the
// deterministic ordering and for callers that want to style buttons
// differently by kind.
type Source string

const (
	SourceNode      Source = "node"
	SourceDynamic   Source = "dynamic"
	SourceUnlocked  Source = "unlocked"
	SourceMovement  Source = "movement"
	SourceEvent     Source = "event"
)

// Choice is one option offered to the player this turn.
type Choice struct {
	ID             string
	Label          string
	Source         Source
	Disabled       bool
	DisabledReason string
	TimeCost       *int
	TimeCategory   string
}

// EventChoice is an event-injected choice carried alongside its beats.
type EventChoice struct {
	ID    string
	Label string
}

// Service composes choice lists.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new choice Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

// Build composes the deterministic choice list for the current node and
// state: node choices, then dynamic choices, then unlocked actions, then
// movement buttons, then event-injected choices, deduplicated by id with
// the first occurrence (in that priority order) winning.
func (s *Service) Build(state *domain.GameState, env map[string]any, eventChoices []EventChoice) []Choice {
	var out []Choice
	seen := map[string]bool{}

	add := func(c Choice) {
		if seen[c.ID] {
			return
		}
		seen[c.ID] = true
		out = append(out, c)
	}

	if def, ok := s.game.Node(state.CurrentNode); ok {
		for _, c := range def.Choices {
			add(s.fromChoiceDef(c, env, SourceNode))
		}
		for _, c := range def.DynamicChoices {
			add(s.fromChoiceDef(c, env, SourceDynamic))
		}
	}

	for _, id := range s.game.ActionOrder() {
		if !state.UnlockedActions[id] {
			continue
		}
		def, ok := s.game.Action(id)
		if !ok {
			continue
		}
		ok2, reason := s.eligible(def.Conditions, def.ID, state, env)
		add(Choice{
			ID: def.ID, Label: def.Label, Source: SourceUnlocked,
			Disabled: !ok2, DisabledReason: reason,
			TimeCost: def.TimeCost, TimeCategory: def.TimeCategory,
		})
	}

	for _, c := range s.movementChoices(state) {
		add(c)
	}

	for _, ec := range eventChoices {
		add(Choice{ID: ec.ID, Label: ec.Label, Source: SourceEvent})
	}

	return out
}

func (s *Service) fromChoiceDef(c domain.ChoiceDef, env map[string]any, src Source) Choice {
	ok, reason := s.eligible(c.Conditions, c.ID, nil, env)
	return Choice{
		ID: c.ID, Label: c.Label, Source: src,
		Disabled: !ok, DisabledReason: reason,
		TimeCost: c.TimeCost, TimeCategory: c.TimeCategory,
	}
}

// eligible reports whether conditions pass, plus a disabled-reason when
// they don't (locked actions get a more specific reason than a bare "no").
func (s *Service) eligible(conditions, actionID string, state *domain.GameState, env map[string]any) (bool, string) {
	if state != nil && state.LockedActions[actionID] {
		return false, "locked"
	}
	if conditions == "" {
		return true, ""
	}
	if s.eval.EvalBool(conditions, env) {
		return true, ""
	}
	return false, "conditions not met"
}

// movementChoices derives deterministic movement buttons from the current
// location's connections plus any active zone travel methods.
func (s *Service) movementChoices(state *domain.GameState) []Choice {
	var out []Choice
	loc, ok := s.game.Location(state.Location.ID)
	if !ok {
		return nil
	}
	for _, conn := range loc.Connections {
		out = append(out, Choice{
			ID:     fmt.Sprintf("move:%s", conn.Direction),
			Label:  fmt.Sprintf("Go %s", conn.Direction),
			Source: SourceMovement,
		})
	}
	zone, ok := s.game.Zone(state.Location.Zone)
	if !ok {
		return out
	}
	for _, zc := range zone.Connections {
		for _, method := range zc.Methods {
			if !method.Active {
				continue
			}
			out = append(out, Choice{
				ID:     fmt.Sprintf("travel:%s:%s", zc.ToZone, method.Name),
				Label:  fmt.Sprintf("Travel to %s via %s", zc.ToZone, method.Name),
				Source: SourceMovement,
			})
		}
	}
	return out
}
