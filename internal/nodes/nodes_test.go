package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

func fixtureGame() *domain.Game {
	return domain.NewGame(
		domain.GameMeta{ID: "fixture"},
		domain.NarrationConfig{},
		domain.StartConfig{Node: "cafe_intro", Location: "patio", Zone: "town"},
		[]domain.MeterDef{{ID: "trust", Label: "Trust", Min: 0, Max: 100, Default: 0}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{},
		nil, nil, nil, nil, nil, nil, nil,
		[]domain.NodeDef{
			{
				ID:   "cafe_intro",
				Type: "scene",
				ExitEffects: []domain.Effect{
					domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"flag": "left_intro", "value": true}),
				},
				Transitions: []domain.TransitionDef{
					{When: "meters.emma.trust >= 20", Target: "cafe_hub"},
					{When: "", Target: "cafe_intro"},
				},
			},
			{
				ID:   "cafe_hub",
				Type: "hub",
				EntryEffects: []domain.Effect{
					domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"flag": "entered_hub", "value": true}),
				},
				Transitions: []domain.TransitionDef{
					{When: "meters.emma.trust >= 90", Target: "good_ending"},
				},
			},
			{
				ID:   "good_ending",
				Type: "ending",
				EntryEffects: []domain.Effect{
					domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"flag": "won", "value": true}),
				},
			},
		},
		nil, nil, nil,
	)
}

func envWithTrust(trust int) map[string]any {
	return map[string]any{"meters": map[string]any{"emma": map[string]any{"trust": trust}}}
}

func TestResolveStaysWhenNoTransitionMatches(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	res := svc.Resolve(state, ctx, envWithTrust(0))

	assert.False(t, res.Changed)
	assert.Equal(t, "cafe_intro", state.CurrentNode)
}

func TestResolveAdvancesViaAuthoredTransitionRunningExitThenEntry(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	res := svc.Resolve(state, ctx, envWithTrust(25))

	require.True(t, res.Changed)
	assert.Equal(t, "cafe_hub", res.To)
	assert.Equal(t, "cafe_hub", state.CurrentNode)
	require.Len(t, res.Effects, 2, "old node's exit_effects then new node's entry_effects")
	assert.False(t, res.Ended)
	assert.True(t, state.NodesVisited["cafe_hub"])
}

func TestResolvePendingGotoOverridesAuthoredTransitions(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})
	ctx.PendingGoto = "good_ending"

	res := svc.Resolve(state, ctx, envWithTrust(0))

	require.True(t, res.Changed)
	assert.Equal(t, "good_ending", state.CurrentNode)
	assert.True(t, res.Ended)
	assert.True(t, state.GameOver)
}

func TestResolveSkipNodeEffectsSuppressesEffectBatch(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})
	ctx.Action.SkipNodeEffects = true
	ctx.PendingGoto = "cafe_hub"

	res := svc.Resolve(state, ctx, envWithTrust(0))

	require.True(t, res.Changed)
	assert.Empty(t, res.Effects)
	assert.Equal(t, "cafe_hub", state.CurrentNode)
}
