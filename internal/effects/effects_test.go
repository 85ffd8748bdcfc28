package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letser/plotplay-sub001/internal/clothing"
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
	"github.com/letser/plotplay-sub001/internal/inventory"
	"github.com/letser/plotplay-sub001/internal/modifiers"
	"github.com/letser/plotplay-sub001/internal/movement"
	"github.com/letser/plotplay-sub001/internal/timeservice"
)

func fixtureGame() *domain.Game {
	return domain.NewGame(
		domain.GameMeta{ID: "fixture"},
		domain.NarrationConfig{},
		domain.StartConfig{Node: "start", Location: "patio", Zone: "town", Day: 1, Minute: 480},
		[]domain.MeterDef{{ID: "trust", Min: 0, Max: 100}, {ID: "money", Min: 0, Max: 1000}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{MoneyMeter: "money"},
		domain.WardrobeConfig{},
		domain.MovementConfig{Local: domain.MovementLocalConfig{BaseTime: 5, DistanceModifiers: map[string]float64{"short": 1}}},
		[]domain.CharacterDef{{ID: "emma", Name: "Emma"}},
		nil,
		[]domain.LocationDef{
			{ID: "patio", Zone: "town", Connections: []domain.LocationConnection{{Direction: "north", To: "kitchen", Distance: "short"}}},
			{ID: "kitchen", Zone: "town"},
		},
		[]domain.ItemDef{{ID: "flower", CanGive: true}},
		nil, nil, nil, nil, nil, nil, nil,
	)
}

func newResolver(g *domain.Game) *Resolver {
	eval := dsl.NewEvaluator()
	clothingSvc := clothing.NewService(g, eval)
	inventorySvc := inventory.NewService(g, clothingSvc)
	movementSvc := movement.NewService(g, eval)
	timeSvc := timeservice.NewService(g)
	modifiersSvc := modifiers.NewService(g, eval)
	buildEnv := func(ctx *domain.TurnContext) map[string]any { return map[string]any{} }
	return NewResolver(g, eval, clothingSvc, inventorySvc, movementSvc, timeSvc, modifiersSvc, buildEnv)
}

func TestApplyMeterChangeClampsToBounds(t *testing.T) {
	g := fixtureGame()
	r := newResolver(g)
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	r.Apply(state, ctx, "emma", []domain.Effect{
		domain.NewEffect(domain.EffectMeterChange, "", map[string]any{"meter": "trust", "delta": 1000.0}),
	})
	assert.Equal(t, 100.0, state.Character("emma").Meters["trust"])
}

func TestApplyInventoryAddAndGive(t *testing.T) {
	g := fixtureGame()
	r := newResolver(g)
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	r.Apply(state, ctx, "player", []domain.Effect{
		domain.NewEffect(domain.EffectInventoryAdd, "", map[string]any{"item": "flower", "count": 1.0}),
	})
	assert.Equal(t, 1, state.Character("player").Inventory["flower"])

	ctx2 := domain.NewTurnContext(2, 1, nil, domain.Action{})
	r.Apply(state, ctx2, "player", []domain.Effect{
		domain.NewEffect(domain.EffectInventoryGive, "", map[string]any{"from": "player", "to": "emma", "item": "flower", "count": 1.0}),
	})
	assert.Equal(t, 0, state.Character("player").Inventory["flower"])
	assert.Equal(t, 1, state.Character("emma").Inventory["flower"])
}

func TestApplyMoveAdvancesTime(t *testing.T) {
	g := fixtureGame()
	r := newResolver(g)
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})
	ctx.Present = []string{"player"}

	r.Apply(state, ctx, "player", []domain.Effect{
		domain.NewEffect(domain.EffectMove, "", map[string]any{"direction": "north"}),
	})
	assert.Equal(t, "kitchen", state.Location.ID)
	assert.Equal(t, 5, ctx.TimeAdvanceMinutes)
}

func TestApplyConditionalBranches(t *testing.T) {
	g := fixtureGame()
	r := newResolver(g)
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	thenEffects := []domain.Effect{domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"flag": "met_emma", "value": true})}
	elseEffects := []domain.Effect{domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"flag": "met_emma", "value": false})}
	cond := domain.NewEffect(domain.EffectConditional, "1 == 1", map[string]any{"then": thenEffects, "else": elseEffects})

	r.Apply(state, ctx, "player", []domain.Effect{cond})
	assert.Equal(t, true, state.Flags["met_emma"])
}

func TestApplyRandomPicksWeightedBranch(t *testing.T) {
	g := fixtureGame()
	r := newResolver(g)
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	onlyBranch := []domain.Effect{domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"flag": "roll_happened", "value": true})}
	randomEffect := domain.NewEffect(domain.EffectRandom, "", map[string]any{
		"choices": []domain.RandomChoice{{Weight: 1, Effects: onlyBranch}},
	})

	r.Apply(state, ctx, "player", []domain.Effect{randomEffect})
	assert.Equal(t, true, state.Flags["roll_happened"])
}

func TestApplyModifierEntryEffects(t *testing.T) {
	entry := []domain.Effect{domain.NewEffect(domain.EffectMeterChange, "", map[string]any{"meter": "trust", "delta": 2.0})}
	g := domain.NewGame(
		domain.GameMeta{ID: "fixture"},
		domain.NarrationConfig{},
		domain.StartConfig{Node: "start", Location: "patio", Zone: "town"},
		[]domain.MeterDef{{ID: "trust", Min: 0, Max: 100}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{},
		[]domain.CharacterDef{{ID: "emma", Name: "Emma"}},
		nil,
		[]domain.LocationDef{{ID: "patio", Zone: "town"}},
		nil, nil, nil,
		[]domain.ModifierDef{{ID: "warmed_up", DurationDefaultMin: 10, EntryEffects: entry}},
		nil, nil, nil, nil,
	)
	r := newResolver(g)
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	r.Apply(state, ctx, "emma", []domain.Effect{
		domain.NewEffect(domain.EffectApplyModifier, "", map[string]any{"modifier": "warmed_up"}),
	})
	require.Contains(t, state.Character("emma").Modifiers, "warmed_up")
	assert.Equal(t, 2.0, state.Character("emma").Meters["trust"])
}
