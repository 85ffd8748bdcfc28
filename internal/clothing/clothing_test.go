package clothing

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
		domain.StartConfig{Node: "start", Location: "room", Zone: "town"},
		nil, nil,
		domain.TimeConfig{},
		domain.EconomyConfig{},
		domain.WardrobeConfig{SlotOrder: []string{"outer", "top", "bottom"}},
		domain.MovementConfig{},
		[]domain.CharacterDef{{ID: "emma", Name: "Emma"}},
		nil, nil, nil,
		[]domain.OutfitDef{
			{ID: "sundress_outfit", GrantItems: true, Members: []domain.OutfitMemberDef{{Item: "sundress"}, {Item: "sandals"}}},
		},
		[]domain.ClothingItemDef{
			{ID: "jacket", Occupies: []string{"outer"}, Conceals: []string{"top"}, CanOpen: true},
			{ID: "sundress", Occupies: []string{"top"}},
			{ID: "sandals", Occupies: []string{"bottom"}, StateDescriptions: map[string]string{"intact": "neat sandals"}},
			{ID: "locked_collar", Occupies: []string{"top"}, Locked: true, UnlockWhen: "false"},
		},
		nil, nil, nil, nil, nil,
	)
}

func TestPutOnRequiresOwnership(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()

	res := svc.PutOn(cs, "emma", "jacket", nil)
	assert.False(t, res.OK)
}

func TestPutOnAndConcealment(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()
	cs.ClothingInventory["jacket"] = 1
	cs.ClothingInventory["sundress"] = 1

	require.True(t, svc.PutOn(cs, "emma", "sundress", nil).OK)
	require.True(t, svc.PutOn(cs, "emma", "jacket", nil).OK)

	res := svc.TakeOff(cs, "emma", "sundress")
	assert.False(t, res.OK, "sundress is concealed by the jacket's outer slot")
}

func TestSetItemStateTransitions(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()
	cs.ClothingInventory["jacket"] = 1
	require.True(t, svc.PutOn(cs, "emma", "jacket", nil).OK)

	res := svc.SetItemState(cs, "emma", "jacket", domain.ClothingOpened, nil)
	require.True(t, res.OK)
	assert.Equal(t, domain.ClothingOpened, cs.ClothingWorn["outer"].State)

	res = svc.SetItemState(cs, "emma", "jacket", domain.ClothingDisplaced, nil)
	assert.False(t, res.OK, "opened cannot transition directly to displaced")
}

func TestLockedItemRefusesPutOn(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()
	cs.ClothingInventory["locked_collar"] = 1

	res := svc.PutOn(cs, "emma", "locked_collar", nil)
	assert.False(t, res.OK)
}

func TestOutfitGrantAndRevoke(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()

	svc.GrantOutfitItems(cs, "sundress_outfit")
	assert.Equal(t, 1, cs.ClothingInventory["sundress"])
	assert.Equal(t, 1, cs.ClothingInventory["sandals"])

	svc.RevokeOutfitItems(cs, "sundress_outfit")
	assert.Equal(t, 0, cs.ClothingInventory["sundress"])
	assert.Equal(t, 0, cs.ClothingInventory["sandals"])
}

func TestOutfitGrantDoesNotStealIndependentOwnership(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()
	cs.ClothingInventory["sandals"] = 1 // already owned independently

	svc.GrantOutfitItems(cs, "sundress_outfit")
	assert.Equal(t, 1, cs.ClothingInventory["sandals"], "already-owned item is not double-granted")

	svc.RevokeOutfitItems(cs, "sundress_outfit")
	assert.Equal(t, 1, cs.ClothingInventory["sandals"], "revoke only removes what was granted")
}

func TestAppearanceListsSlotsInOrder(t *testing.T) {
	g := fixtureGame()
	svc := NewService(g, dsl.NewEvaluator())
	cs := domain.NewCharacterState()
	cs.ClothingInventory["sandals"] = 1
	require.True(t, svc.PutOn(cs, "emma", "sandals", nil).OK)

	appearance := svc.Appearance(cs)
	assert.Contains(t, appearance, "neat sandals")
	assert.Contains(t, appearance, "outer: uncovered")
}
