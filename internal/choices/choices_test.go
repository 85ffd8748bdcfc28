package choices

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
		domain.StartConfig{Node: "cafe_hub", Location: "patio", Zone: "town"},
		[]domain.MeterDef{{ID: "trust", Min: 0, Max: 100}},
		nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{},
		nil,
		[]domain.ZoneDef{
			{ID: "town", Connections: []domain.ZoneConnectionDef{
				{ToZone: "harbor", Methods: []domain.TravelMethodDef{
					{Name: "ferry", Active: true},
					{Name: "bridge", Active: false},
				}},
			}},
		},
		[]domain.LocationDef{
			{ID: "patio", Zone: "town", Connections: []domain.LocationConnection{
				{Direction: "north", To: "kitchen", Distance: "short"},
			}},
		},
		nil, nil, nil, nil,
		[]domain.NodeDef{
			{
				ID: "cafe_hub",
				Choices: []domain.ChoiceDef{
					{ID: "chat", Label: "Chat with Emma"},
					{ID: "flirt", Label: "Flirt", Conditions: "meters.emma.trust >= 50"},
				},
				DynamicChoices: []domain.ChoiceDef{
					{ID: "gift_flower", Label: "Give flower"},
				},
			},
		},
		nil, nil,
		[]domain.ActionDef{
			{ID: "busk", Label: "Busk for coins"},
			{ID: "climb_wall", Label: "Climb the wall", Conditions: "false"},
		},
	)
}

func TestBuildIncludesEligibleNodeAndDynamicChoices(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	env := map[string]any{"meters": map[string]any{"emma": map[string]any{"trust": 10}}}

	out := svc.Build(state, env, nil)

	byID := map[string]Choice{}
	for _, c := range out {
		byID[c.ID] = c
	}
	require.Contains(t, byID, "chat")
	assert.False(t, byID["chat"].Disabled)
	require.Contains(t, byID, "flirt")
	assert.True(t, byID["flirt"].Disabled, "trust 10 fails the >= 50 condition")
	require.Contains(t, byID, "gift_flower")
	assert.Equal(t, SourceDynamic, byID["gift_flower"].Source)
}

func TestBuildSkipsActionsNotUnlocked(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)

	out := svc.Build(state, map[string]any{}, nil)
	for _, c := range out {
		assert.NotEqual(t, "busk", c.ID, "action not in UnlockedActions should not appear")
	}
}

func TestBuildIncludesUnlockedActionWithDisabledReason(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	state.UnlockedActions["busk"] = true
	state.UnlockedActions["climb_wall"] = true

	out := svc.Build(state, map[string]any{}, nil)
	byID := map[string]Choice{}
	for _, c := range out {
		byID[c.ID] = c
	}
	require.Contains(t, byID, "busk")
	assert.False(t, byID["busk"].Disabled)
	require.Contains(t, byID, "climb_wall")
	assert.True(t, byID["climb_wall"].Disabled)
	assert.Equal(t, "conditions not met", byID["climb_wall"].DisabledReason)
}

func TestBuildLockedActionReasonIsLocked(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	state.UnlockedActions["busk"] = true
	state.LockedActions["busk"] = true

	out := svc.Build(state, map[string]any{}, nil)
	for _, c := range out {
		if c.ID == "busk" {
			assert.Equal(t, "locked", c.DisabledReason)
			return
		}
	}
	t.Fatal("busk choice not found")
}

func TestBuildDerivesMovementFromConnectionsAndActiveZoneMethods(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)

	out := svc.Build(state, map[string]any{}, nil)
	ids := map[string]bool{}
	for _, c := range out {
		ids[c.ID] = true
	}
	assert.True(t, ids["move:north"])
	assert.True(t, ids["travel:harbor:ferry"])
	assert.False(t, ids["travel:harbor:bridge"], "inactive travel method should not surface a button")
}

func TestBuildDedupesByIDPreservingPriorityOrder(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)

	out := svc.Build(state, map[string]any{}, []EventChoice{{ID: "chat", Label: "duplicate of a node choice"}})
	count := 0
	var found Choice
	for _, c := range out {
		if c.ID == "chat" {
			count++
			found = c
		}
	}
	require.Equal(t, 1, count)
	assert.Equal(t, SourceNode, found.Source, "first occurrence (node priority) wins over the later event choice")
}

func TestBuildEventChoicesAppendLast(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)

	out := svc.Build(state, map[string]any{}, []EventChoice{{ID: "investigate_noise", Label: "Investigate the noise"}})
	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.Equal(t, "investigate_noise", last.ID)
	assert.Equal(t, SourceEvent, last.Source)
}
