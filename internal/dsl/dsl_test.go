package dsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letser/plotplay-sub001/internal/domain"
)

func TestEvalBoolBasic(t *testing.T) {
	ev := NewEvaluator()
	env := map[string]any{"meters": map[string]any{"emma": map[string]any{"trust": 60.0}}}

	assert.True(t, ev.EvalBool(`meters.emma.trust >= 50`, env))
	assert.False(t, ev.EvalBool(`meters.emma.trust >= 70`, env))
}

func TestEvalBoolUnknownPathIsFalsey(t *testing.T) {
	ev := NewEvaluator()
	env := map[string]any{"meters": map[string]any{}}

	assert.False(t, ev.EvalBool(`meters.unknown.trust >= 50`, env))
}

func TestEvalBoolEmptyIsFalse(t *testing.T) {
	ev := NewEvaluator()
	assert.False(t, ev.EvalBool("", nil))
}

func TestCapsRejectOverlongSource(t *testing.T) {
	ev := NewEvaluator()
	long := strings.Repeat("a", MaxSourceLen+1)
	result := ev.EvalBool(long+" == 1", nil)
	assert.False(t, result)
}

func TestCapsRejectExcessiveArgs(t *testing.T) {
	err := checkCaps(`clamp(1, 2, 3, 4, 5)`)
	require.Error(t, err)
}

func TestCapsAcceptsWithinBounds(t *testing.T) {
	err := checkCaps(`has("flowers") and meters.emma.trust >= 50`)
	require.NoError(t, err)
}

func TestBuildEnvFunctions(t *testing.T) {
	g := domain.NewGame(
		domain.GameMeta{ID: "fixture"},
		domain.NarrationConfig{},
		domain.StartConfig{Node: "start", Location: "cafe_patio", Zone: "town", Day: 1, Minute: 480},
		[]domain.MeterDef{{ID: "trust", Min: 0, Max: 100, Default: 0}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{SlotOrder: []string{"top", "bottom"}},
		domain.MovementConfig{},
		[]domain.CharacterDef{{ID: "emma", Name: "Emma"}},
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
	)
	s := domain.NewGameState(g, 42)
	s.Character("emma").Meters["trust"] = 60
	ctx := domain.NewTurnContext(1, 42, nil, domain.Action{Kind: domain.ActionSay})

	env := BuildEnv(g, s, ctx, []string{"emma"})
	ev := NewEvaluator()

	assert.True(t, ev.EvalBool(`meters.emma.trust >= 50`, env))
	assert.True(t, ev.EvalBool(`npc_present("emma")`, env))
	assert.False(t, ev.EvalBool(`npc_present("zoe")`, env))
}
