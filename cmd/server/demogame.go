package main

import "github.com/letser/plotplay-sub001/internal/domain"

// buildDemoGame returns a small, self-contained game package so the server
// has something to run against out of the box. The authored game-package
// loader/validator (root game.yaml + includes, §6 "Game package format")
// is an external collaborator outside this repo's scope; in its absence
// this hand-built Game stands in as the "validated in-memory Game" the
// runtime expects to be handed.
func buildDemoGame() *domain.Game {
	maxMoney := 500.0

	return domain.NewGame(
		domain.GameMeta{ID: "demo", Title: "The Cafe on Elm Street", Version: "0.1.0"},
		domain.NarrationConfig{POV: "second", Tense: "present", ParagraphBudgetMin: 1, ParagraphBudgetMax: 4},
		domain.StartConfig{Node: "cafe_hub", Zone: "town", Location: "patio", Day: 1, Minute: 8 * 60},
		[]domain.MeterDef{
			{ID: "trust", Label: "Trust", Min: 0, Max: 100, Default: 10},
			{ID: "cash", Label: "Cash", Min: 0, Max: 10000, Default: 40},
		},
		[]domain.FlagDef{{ID: "met_emma", Label: "Met Emma", Default: false}},
		domain.TimeConfig{
			StartDay: 1,
			WeekDays: []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
			Defaults: map[string]domain.TimeDefaultDef{
				"say": {Minutes: 1},
				"do":  {Minutes: 5},
			},
		},
		domain.EconomyConfig{Currency: "dollars", MoneyMeter: "cash", MaxMoney: &maxMoney},
		domain.WardrobeConfig{SlotOrder: []string{"top", "bottom"}},
		domain.MovementConfig{Local: domain.MovementLocalConfig{
			BaseTime:          5,
			DistanceModifiers: map[string]float64{"short": 1, "medium": 2, "long": 4},
		}},
		[]domain.CharacterDef{
			{
				ID: "emma", Name: "Emma", Age: 27, Gender: "female", Pronouns: "she/her",
				Personality:     "warm, a little guarded until she trusts you",
				Appearance:      "auburn hair tied back, flour on one sleeve",
				DialogueStyle:   "short sentences, dry humor",
				DefaultLocation: "patio",
				Gates: []domain.GateDef{
					{ID: "flirt_ok", When: "meters.emma.trust >= 20",
						Acceptance: "she leans in, smiling", Refusal: "she keeps stacking cups, not meeting your eyes"},
				},
			},
		},
		[]domain.ZoneDef{{ID: "town", Name: "Elm Street"}},
		[]domain.LocationDef{
			{ID: "patio", Zone: "town", Name: "Cafe Patio", Privacy: "low", Connections: []domain.LocationConnection{
				{Direction: "north", To: "kitchen", Distance: "short"},
			}},
			{ID: "kitchen", Zone: "town", Name: "Cafe Kitchen", Privacy: "medium"},
		},
		[]domain.ItemDef{{ID: "coffee", Name: "Coffee", Consumable: true, Value: 3}},
		nil, nil,
		[]domain.ModifierDef{
			{ID: "giddy", Label: "Giddy", When: "gates.emma.flirt_ok"},
		},
		[]domain.NodeDef{
			{
				ID: "cafe_hub", Type: "hub", Title: "Morning Shift",
				Choices: []domain.ChoiceDef{
					{ID: "order_coffee", Label: "Order a coffee", TimeCost: intPtr(2), TimeCategory: "do"},
				},
				Transitions: []domain.TransitionDef{
					{When: "flags.met_emma", Target: "closing_time"},
				},
			},
			{ID: "closing_time", Type: "ending", Title: "Closing Time"},
		},
		[]domain.EventDef{{ID: "first_meeting", Trigger: domain.EventTrigger{Kind: "conditional", When: "!flags.met_emma"}}},
		nil, nil,
	)
}

func intPtr(i int) *int { return &i }
