// Package summary builds the compact, stable state envelope the UI reads
// after every turn (§4.17, phase 21).
package summary

import (
	"github.com/letser/plotplay-sub001/internal/clothing"
	"github.com/letser/plotplay-sub001/internal/domain"
)

// FlagValue pairs a flag's current value with its authored visibility, so
// an invisible flag is still present in the envelope (for tests that need
// to assert on backend-as-source-of-truth state) but marked hidden.
type FlagValue struct {
	Value   any
	Visible bool
}

// PlayerSummary is the player's slice of the envelope.
type PlayerSummary struct {
	Meters    map[string]float64
	Inventory map[string]int
	Clothing  string
	Money     float64
}

// CharacterSummary is one present NPC's slice of the envelope.
type CharacterSummary struct {
	ID        string
	Name      string
	Meters    map[string]float64
	Modifiers []string
	Clothing  string
}

// EconomySummary reports the currency name and the player's balance.
type EconomySummary struct {
	Currency string
	Balance  float64
}

// State is the full envelope emitted to the UI.
type State struct {
	Time          domain.Time
	Location      domain.Location
	Player        PlayerSummary
	Characters    []CharacterSummary
	Exits         []string
	Flags         map[string]FlagValue
	Economy       EconomySummary
	CurrentNode   string
	ActionSummary string
}

// Service builds state summaries.
type Service struct {
	game     *domain.Game
	clothing *clothing.Service
}

// NewService creates a new summary Service.
func NewService(game *domain.Game, clothingSvc *clothing.Service) *Service {
	return &Service{game: game, clothing: clothingSvc}
}

// Build composes the envelope for the current turn. present lists the
// character ids physically in the location this turn (§4.9); only those
// get a CharacterSummary entry.
func (s *Service) Build(state *domain.GameState, ctx *domain.TurnContext, present []string) State {
	player := state.Character(domain.PlayerID)
	economy := s.game.Economy()

	money := 0.0
	if economy.MoneyMeter != "" {
		money = player.Meters[economy.MoneyMeter]
	}

	out := State{
		Time:          state.Time,
		Location:      state.Location,
		CurrentNode:   state.CurrentNode,
		ActionSummary: ctx.ActionSummary,
		Player: PlayerSummary{
			Meters:    cloneMeters(player.Meters),
			Inventory: cloneCounts(player.Inventory),
			Clothing:  s.clothing.Appearance(player),
			Money:     money,
		},
		Economy: EconomySummary{Currency: economy.Currency, Balance: money},
		Exits:   s.exits(state),
		Flags:   s.flags(state),
	}

	for _, id := range present {
		if id == domain.PlayerID {
			continue
		}
		cs, ok := state.Characters[id]
		if !ok {
			continue
		}
		def, _ := s.game.Character(id)
		out.Characters = append(out.Characters, CharacterSummary{
			ID:        id,
			Name:      def.Name,
			Meters:    cloneMeters(cs.Meters),
			Modifiers: activeModifierIDs(cs),
			Clothing:  s.clothing.Appearance(cs),
		})
	}

	return out
}

func (s *Service) exits(state *domain.GameState) []string {
	loc, ok := s.game.Location(state.Location.ID)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(loc.Connections))
	for _, c := range loc.Connections {
		out = append(out, c.Direction)
	}
	return out
}

func (s *Service) flags(state *domain.GameState) map[string]FlagValue {
	out := make(map[string]FlagValue, len(state.Flags))
	for id, v := range state.Flags {
		visible := true
		if def, ok := s.game.Flag(id); ok {
			visible = def.Visible
		}
		out[id] = FlagValue{Value: v, Visible: visible}
	}
	return out
}

func cloneMeters(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func activeModifierIDs(cs *domain.CharacterState) []string {
	out := make([]string, 0, len(cs.Modifiers))
	for id := range cs.Modifiers {
		out = append(out, id)
	}
	return out
}
