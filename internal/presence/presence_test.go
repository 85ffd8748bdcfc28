package presence

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
		domain.StartConfig{Node: "start", Location: "cafe", Zone: "town"},
		nil, nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{},
		domain.MovementConfig{},
		[]domain.CharacterDef{
			{ID: "emma", Name: "Emma", Schedule: []domain.ScheduleRule{
				{When: "time.slot == \"morning\"", Location: "cafe"},
				{When: "true", Location: "apartment"},
			}},
			{ID: "zoe", Name: "Zoe", Schedule: []domain.ScheduleRule{
				{When: "true", Location: "library"},
			}},
		},
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
	)
}

func TestResolvePlayerAlwaysPresent(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	state.Location.ID = "library"

	present := svc.Resolve(state, func(string) map[string]any { return map[string]any{"time": map[string]any{"slot": "night"}} })
	assert.Contains(t, present, domain.PlayerID)
	assert.Equal(t, domain.PlayerID, present[0])
}

func TestResolveScheduleFirstMatchWins(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	state.Location.ID = "cafe"

	present := svc.Resolve(state, func(string) map[string]any { return map[string]any{"time": map[string]any{"slot": "morning"}} })
	assert.Contains(t, present, "emma")
	assert.NotContains(t, present, "zoe")
}

func TestResolveLocationPinOverridesSchedule(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	state := domain.NewGameState(g, 1)
	state.Location.ID = "library"
	state.Character("zoe").LocationPin = "library"

	present := svc.Resolve(state, func(string) map[string]any { return map[string]any{"time": map[string]any{"slot": "night"}} })
	assert.Contains(t, present, "zoe")
	assert.NotContains(t, present, "emma")
}
