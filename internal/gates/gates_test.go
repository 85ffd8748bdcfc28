package gates

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

func fixtureGame() *domain.Game {
	return domain.NewGame(
		domain.GameMeta{ID: "fixture"},
		domain.NarrationConfig{},
		domain.StartConfig{Node: "start", Location: "room", Zone: "town"},
		[]domain.MeterDef{{ID: "trust", Min: 0, Max: 100}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{},
		[]domain.CharacterDef{
			{ID: "emma", Name: "Emma", Gates: []domain.GateDef{
				{ID: "flirt_ok", When: "meters.emma.trust >= 50"},
				{ID: "any_gate", WhenAny: []string{"false", "meters.emma.trust >= 10"}},
				{ID: "all_gate", WhenAll: []string{"true", "meters.emma.trust >= 10"}},
			}},
		},
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
	)
}

func TestEvaluateWhenBinding(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})
	env := map[string]any{"meters": map[string]any{"emma": map[string]any{"trust": 60.0}}}

	svc.Evaluate(ctx, func(string) map[string]any { return env }, func(string) map[string]bool { return nil })
	assert.True(t, ctx.ActiveGates["emma"]["flirt_ok"])
	assert.True(t, ctx.ActiveGates["emma"]["any_gate"])
	assert.True(t, ctx.ActiveGates["emma"]["all_gate"])
}

func TestEvaluateWhenFalse(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})
	env := map[string]any{"meters": map[string]any{"emma": map[string]any{"trust": 5.0}}}

	svc.Evaluate(ctx, func(string) map[string]any { return env }, func(string) map[string]bool { return nil })
	assert.False(t, ctx.ActiveGates["emma"]["flirt_ok"])
	assert.False(t, ctx.ActiveGates["emma"]["any_gate"])
	assert.False(t, ctx.ActiveGates["emma"]["all_gate"])
}

func TestModifierClampForcesFalse(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})
	env := map[string]any{"meters": map[string]any{"emma": map[string]any{"trust": 60.0}}}
	clamps := map[string]bool{"flirt_ok": true}

	svc.Evaluate(ctx, func(string) map[string]any { return env }, func(string) map[string]bool { return clamps })
	assert.False(t, ctx.ActiveGates["emma"]["flirt_ok"], "a modifier clamp forces the gate false regardless of its raw evaluation")
}
