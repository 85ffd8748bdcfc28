package movement

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
		domain.StartConfig{Node: "start", Location: "patio", Zone: "town", Day: 1, Minute: 480},
		nil, nil,
		domain.TimeConfig{Categories: map[string]domain.TimeCategoryDef{"ferry": {Minutes: 30}}},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{Local: domain.MovementLocalConfig{BaseTime: 5, DistanceModifiers: map[string]float64{"short": 1, "long": 3}}},
		[]domain.CharacterDef{
			{ID: "emma", Name: "Emma", Gates: []domain.GateDef{{ID: "follow_player", When: "true"}}},
		},
		[]domain.ZoneDef{
			{ID: "town", Connections: []domain.ZoneConnectionDef{
				{ToZone: "harbor", Methods: []domain.TravelMethodDef{{Name: "ferry", Category: "ferry"}}},
			}},
			{ID: "harbor"},
		},
		[]domain.LocationDef{
			{ID: "patio", Zone: "town", Connections: []domain.LocationConnection{{Direction: "north", To: "kitchen", Distance: "short"}, {Direction: "east", To: "locked_room", Distance: "short"}}},
			{ID: "kitchen", Zone: "town"},
			{ID: "locked_room", Zone: "town", Locked: true, UnlockWhen: "false"},
			{ID: "dock", Zone: "harbor"},
		},
		nil, nil, nil, nil, nil, nil, nil, nil,
	)
}

func TestDirectionMove(t *testing.T) {
	g := fixtureGame()
	eval := dsl.NewEvaluator()
	svc := NewService(g, eval)
	state := domain.NewGameState(g, 1)

	res := svc.Direction(state, map[string]bool{"player": true}, "north", nil, func(string) map[string]any { return map[string]any{} })
	require.True(t, res.OK)
	assert.Equal(t, "kitchen", res.Location.ID)
	assert.Equal(t, 5, res.Minutes)
}

func TestDirectionMoveUnknown(t *testing.T) {
	g := fixtureGame()
	eval := dsl.NewEvaluator()
	svc := NewService(g, eval)
	state := domain.NewGameState(g, 1)

	res := svc.Direction(state, map[string]bool{"player": true}, "south", nil, func(string) map[string]any { return map[string]any{} })
	assert.False(t, res.OK)
}

func TestGotoLockedLocationRefused(t *testing.T) {
	g := fixtureGame()
	eval := dsl.NewEvaluator()
	svc := NewService(g, eval)
	state := domain.NewGameState(g, 1)
	state.DiscoveredLocations["locked_room"] = true

	res := svc.Goto(state, map[string]bool{"player": true}, "locked_room", nil, func(string) map[string]any { return map[string]any{} })
	assert.False(t, res.OK)
	assert.Contains(t, res.Refusal, "is locked")
}

func TestTravelAcrossZone(t *testing.T) {
	g := fixtureGame()
	eval := dsl.NewEvaluator()
	svc := NewService(g, eval)
	state := domain.NewGameState(g, 1)
	state.DiscoveredLocations["dock"] = true

	res := svc.Travel(state, map[string]bool{"player": true}, "dock", "ferry", 1, nil, func(string) map[string]any { return map[string]any{} })
	require.True(t, res.OK)
	assert.Equal(t, "harbor", res.Location.Zone)
	assert.Equal(t, 30, res.Minutes)
}

func TestTravelRequiresCompanionWillingness(t *testing.T) {
	g := fixtureGame()
	eval := dsl.NewEvaluator()
	svc := NewService(g, eval)
	state := domain.NewGameState(g, 1)
	state.DiscoveredLocations["dock"] = true

	willingEnv := func(string) map[string]any {
		return map[string]any{"gates": map[string]any{"emma": map[string]any{"follow_player": true}}}
	}
	res := svc.Travel(state, map[string]bool{"player": true, "emma": true}, "dock", "ferry", 1, []string{"emma"}, willingEnv)
	require.True(t, res.OK)

	res2 := svc.Travel(state, map[string]bool{"player": true}, "dock", "ferry", 1, []string{"emma"}, willingEnv)
	assert.False(t, res2.OK)
}
