package arcs

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
		domain.StartConfig{Node: "start", Location: "patio", Zone: "town"},
		[]domain.MeterDef{{ID: "trust", Label: "Trust", Min: 0, Max: 100, Default: 0}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{},
		nil, nil, nil, nil, nil, nil, nil, nil, nil,
		[]domain.ArcDef{
			{
				ID: "emma_romance",
				Stages: []domain.ArcStageDef{
					{ID: "strangers"},
					{
						ID:          "acquainted",
						AdvanceWhen: "meters.emma.trust >= 20",
						OnAdvance: []domain.Effect{
							domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"key": "left_strangers", "value": true}),
						},
						OnEnter: []domain.Effect{
							domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"key": "entered_acquainted", "value": true}),
						},
					},
					{
						ID:          "close",
						AdvanceWhen: "meters.emma.trust >= 50",
						OnEnter: []domain.Effect{
							domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"key": "entered_close", "value": true}),
						},
					},
					{
						ID:          "devoted",
						AdvanceWhen: "meters.emma.trust >= 90",
						OnEnter: []domain.Effect{
							domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"key": "entered_devoted", "value": true}),
						},
					},
				},
			},
		},
		nil,
	)
}

func envWithTrust(trust int) map[string]any {
	return map[string]any{
		"meters": map[string]any{
			"emma": map[string]any{"trust": trust},
		},
	}
}

func TestEvaluateNoAdvanceWhenConditionNotMet(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	out := svc.Evaluate(state, ctx, envWithTrust(5))

	assert.Empty(t, out)
	assert.Equal(t, 0, state.ArcProgress["emma_romance"])
	assert.Empty(t, ctx.MilestonesReached)
}

func TestEvaluateAdvancesOneStage(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	out := svc.Evaluate(state, ctx, envWithTrust(25))

	require.Len(t, out, 1)
	assert.Equal(t, "emma_romance", out[0].ArcID)
	assert.Equal(t, 1, state.ArcProgress["emma_romance"])
	assert.Equal(t, []string{"acquainted"}, state.ArcHistory["emma_romance"])
	assert.Equal(t, []string{"emma_romance:acquainted"}, ctx.MilestonesReached)
	// current stage's on_advance and the new stage's on_enter both fire, in order.
	require.Len(t, out[0].Effects, 2)
}

func TestEvaluateMultiHopStopsWhenNextConditionFails(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	// trust 60 satisfies "acquainted" (>=20) and "close" (>=50) but not "devoted" (>=90).
	out := svc.Evaluate(state, ctx, envWithTrust(60))

	require.Len(t, out, 1)
	assert.Equal(t, 2, state.ArcProgress["emma_romance"])
	assert.Equal(t, []string{"acquainted", "close"}, state.ArcHistory["emma_romance"])
	assert.Equal(t, []string{"emma_romance:acquainted", "emma_romance:close"}, ctx.MilestonesReached)
}

func TestEvaluateSingleHopPerCallWhenAlreadyInProgress(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx1 := domain.NewTurnContext(1, 1, nil, domain.Action{})
	svc.Evaluate(state, ctx1, envWithTrust(25))
	require.Equal(t, 1, state.ArcProgress["emma_romance"])

	ctx2 := domain.NewTurnContext(2, 1, nil, domain.Action{})
	out := svc.Evaluate(state, ctx2, envWithTrust(55))

	require.Len(t, out, 1)
	assert.Equal(t, 2, state.ArcProgress["emma_romance"])
	assert.Equal(t, []string{"acquainted", "close"}, state.ArcHistory["emma_romance"])
}

func TestEvaluateReachesFinalStageAndThenStaysPut(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	ctx := domain.NewTurnContext(1, 1, nil, domain.Action{})

	svc.Evaluate(state, ctx, envWithTrust(95))
	require.Equal(t, 3, state.ArcProgress["emma_romance"])

	ctx2 := domain.NewTurnContext(2, 1, nil, domain.Action{})
	out := svc.Evaluate(state, ctx2, envWithTrust(95))
	assert.Empty(t, out, "no further stage exists past the last one")
	assert.Equal(t, 3, state.ArcProgress["emma_romance"])
}
