package modifiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

func fixtureGame() *domain.Game {
	entry := []domain.Effect{domain.NewEffect(domain.EffectMeterChange, "", map[string]any{"meter": "arousal", "delta": 5.0})}
	return domain.NewGame(
		domain.GameMeta{ID: "fixture"},
		domain.NarrationConfig{},
		domain.StartConfig{Node: "start", Location: "room", Zone: "town"},
		[]domain.MeterDef{{ID: "arousal", Min: 0, Max: 100}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{},
		[]domain.CharacterDef{{ID: "emma", Name: "Emma"}},
		nil, nil, nil, nil, nil,
		[]domain.ModifierDef{
			{ID: "tipsy", Group: "intoxication", DurationDefaultMin: 60, Stacking: "replace", EntryEffects: entry},
			{ID: "drunk", Group: "intoxication", DurationDefaultMin: 90, Stacking: "replace", Exclusions: []string{"sober_focus"}},
			{ID: "sober_focus", Group: "focus", DurationDefaultMin: 30},
			{ID: "aroused", When: "meters.emma.arousal >= 50", Safety: domain.SafetyConfig{DisallowGates: []string{"risky_gate"}}},
		},
		nil, nil, nil, nil,
	)
}

func TestApplyReplacesSameGroup(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()

	_, applied := svc.Apply(cs, "tipsy", nil, false)
	require.True(t, applied)
	_, applied2 := svc.Apply(cs, "drunk", nil, false)
	require.True(t, applied2)

	_, stillTipsy := cs.Modifiers["tipsy"]
	assert.False(t, stillTipsy, "replace stacking clears the prior same-group modifier")
	_, stillDrunk := cs.Modifiers["drunk"]
	assert.True(t, stillDrunk)
}

func TestApplyRefusesExcludedModifier(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()

	_, applied := svc.Apply(cs, "sober_focus", nil, false)
	require.True(t, applied)

	_, applied2 := svc.Apply(cs, "drunk", nil, false)
	assert.False(t, applied2, "drunk excludes sober_focus while it is active")
}

func TestAutoActivationTurnsOnAndOff(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	state.Character("emma").Meters["arousal"] = 60

	envFor := func(owner string) map[string]any {
		return map[string]any{"meters": map[string]any{"emma": map[string]any{"arousal": state.Character("emma").Meters["arousal"]}}}
	}

	svc.AutoActivation(state, envFor)
	_, active := state.Character("emma").Modifiers["aroused"]
	assert.True(t, active)

	state.Character("emma").Meters["arousal"] = 10
	svc.AutoActivation(state, envFor)
	_, stillActive := state.Character("emma").Modifiers["aroused"]
	assert.False(t, stillActive)
}

func TestTickDurationsRemovesExpired(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()
	svc.Apply(cs, "sober_focus", nil, false)

	effects := svc.TickDurations(&domain.GameState{Characters: map[string]*domain.CharacterState{"emma": cs}}, 31)
	assert.Empty(t, effects)
	_, active := cs.Modifiers["sober_focus"]
	assert.False(t, active)
}

func TestGateClampsFromActiveModifier(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()
	cs.Modifiers["aroused"] = domain.ModifierState{RemainingMinutes: 10}

	clamps := svc.GateClamps(cs)
	assert.True(t, clamps["risky_gate"])
}
