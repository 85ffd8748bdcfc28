// Package clothing implements the worn-clothing state machine, outfit
// composition, concealment and lock rules (§4.4). It is a focused
// sub-service constructed once per Runtime and called from the effect
// resolver, the way the teacher's per-type NodeExecutors are called from
// WorkflowEngine.executeNode.
package clothing

import (
	"fmt"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Result carries the outcome of a clothing operation: either it applied
// cleanly, or it was refused with a narrative-visible reason (§4.4 Failure
// modes — refusals are narrative parts, never exceptions the Writer has to
// work around).
type Result struct {
	OK      bool
	Refusal string
}

func ok() Result               { return Result{OK: true} }
func refuse(msg string) Result { return Result{OK: false, Refusal: msg} }

// Service applies clothing operations against a Game definition and a
// character's mutable state.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new clothing Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

func (s *Service) slotPriority(slot string) int {
	for i, sl := range s.game.Wardrobe().SlotOrder {
		if sl == slot {
			return i
		}
	}
	return len(s.game.Wardrobe().SlotOrder)
}

// isLocked reports whether item is currently locked for owner, consulting
// both the static `locked` flag and a dynamic `unlock_when` guard.
func (s *Service) isLocked(owner string, item domain.ClothingItemDef, env map[string]any) bool {
	if item.Locked {
		if item.UnlockWhen == "" {
			return true
		}
		return !s.eval.EvalBool(item.UnlockWhen, env)
	}
	return false
}

// concealed reports whether slot is currently concealed by a higher-priority
// (earlier in slot_order) intact item's conceals list (§4.4 Concealment).
func (s *Service) concealed(cs *domain.CharacterState, slot string) (string, bool) {
	targetPriority := s.slotPriority(slot)
	for wornSlot, worn := range cs.ClothingWorn {
		if worn.State != domain.ClothingIntact {
			continue
		}
		if s.slotPriority(wornSlot) >= targetPriority {
			continue
		}
		item, ok := s.game.ClothingItem(worn.ItemID)
		if !ok {
			continue
		}
		for _, concealedSlot := range item.Conceals {
			if concealedSlot == slot {
				return worn.ItemID, true
			}
		}
	}
	return "", false
}

// PutOn puts item into all of its occupied slots for owner, overwriting
// whatever was there. Requires ownership (§4.3 clothing_put_on).
func (s *Service) PutOn(cs *domain.CharacterState, owner, itemID string, env map[string]any) Result {
	if cs.ClothingInventory[itemID] <= 0 {
		return refuse(fmt.Sprintf("%s does not own %s", owner, itemID))
	}
	item, ok := s.game.ClothingItem(itemID)
	if !ok {
		return refuse(fmt.Sprintf("unknown clothing item %s", itemID))
	}
	if s.isLocked(owner, item, env) {
		return refuse(fmt.Sprintf("%s is locked", itemID))
	}
	for _, slot := range item.Occupies {
		cs.ClothingWorn[slot] = domain.WornItem{ItemID: itemID, State: domain.ClothingIntact}
	}
	return ok()
}

// TakeOff removes item from every slot it currently occupies. The item
// stays owned (§4.3 clothing_take_off).
func (s *Service) TakeOff(cs *domain.CharacterState, owner, itemID string) Result {
	found := false
	for slot, worn := range cs.ClothingWorn {
		if worn.ItemID == itemID {
			if _, concealedBy := s.concealed(cs, slot); concealedBy {
				return refuse(fmt.Sprintf("%s is concealed and cannot be removed yet", itemID))
			}
			delete(cs.ClothingWorn, slot)
			found = true
		}
	}
	if !found {
		return refuse(fmt.Sprintf("%s is not worn", itemID))
	}
	return ok()
}

// allowedTransition implements the state machine in §4.4.
func allowedTransition(from, to domain.ClothingState, canOpen bool) bool {
	if from == to {
		return true
	}
	switch {
	case from == domain.ClothingIntact && to == domain.ClothingOpened:
		return canOpen
	case from == domain.ClothingIntact && to == domain.ClothingDisplaced:
		return true
	case from == domain.ClothingOpened && to == domain.ClothingIntact:
		return true
	case from == domain.ClothingDisplaced && to == domain.ClothingIntact:
		return true
	case to == domain.ClothingRemoved:
		return true
	default:
		return false
	}
}

// SetItemState transitions item in each of its slots that it currently
// occupies to state, gated by can_open, concealment and locks (§4.3
// clothing_state). Slots held by a different item are left alone.
func (s *Service) SetItemState(cs *domain.CharacterState, owner, itemID string, state domain.ClothingState, env map[string]any) Result {
	item, ok := s.game.ClothingItem(itemID)
	if !ok {
		return refuse(fmt.Sprintf("unknown clothing item %s", itemID))
	}
	if s.isLocked(owner, item, env) && state != domain.ClothingIntact {
		return refuse(fmt.Sprintf("%s is locked", itemID))
	}
	applied := false
	for _, slot := range item.Occupies {
		worn, present := cs.ClothingWorn[slot]
		if !present || worn.ItemID != itemID {
			continue
		}
		if fromSlot, concealedBy := s.concealed(cs, slot); concealedBy {
			return refuse(fmt.Sprintf("%s is concealed by %s", itemID, fromSlot))
		}
		if !allowedTransition(worn.State, state, item.CanOpen) {
			return refuse(fmt.Sprintf("cannot change %s from %s to %s", itemID, worn.State, state))
		}
		if state == domain.ClothingRemoved {
			delete(cs.ClothingWorn, slot)
		} else {
			cs.ClothingWorn[slot] = domain.WornItem{ItemID: itemID, State: state}
		}
		applied = true
	}
	if !applied {
		return refuse(fmt.Sprintf("%s is not worn", itemID))
	}
	return ok()
}

// SetSlotState is SetItemState addressed by slot instead of item id
// (§4.3 clothing_slot_state).
func (s *Service) SetSlotState(cs *domain.CharacterState, owner, slot string, state domain.ClothingState, env map[string]any) Result {
	worn, present := cs.ClothingWorn[slot]
	if !present {
		return refuse(fmt.Sprintf("slot %s is empty", slot))
	}
	return s.SetItemState(cs, owner, worn.ItemID, state, env)
}

// PutOnOutfit composes an outfit's member items into the worn map in
// declaration order, later members overwriting earlier ones in a shared
// slot (§4.4 Outfit composition).
func (s *Service) PutOnOutfit(cs *domain.CharacterState, owner, outfitID string) Result {
	if !cs.OwnedOutfits[outfitID] {
		return refuse(fmt.Sprintf("%s does not own outfit %s", owner, outfitID))
	}
	def, ok := s.game.Outfit(outfitID)
	if !ok {
		return refuse(fmt.Sprintf("unknown outfit %s", outfitID))
	}
	for _, member := range def.Members {
		if cs.ClothingInventory[member.Item] <= 0 {
			return refuse(fmt.Sprintf("%s does not own %s required by outfit %s", owner, member.Item, outfitID))
		}
	}
	for _, member := range def.Members {
		item, ok := s.game.ClothingItem(member.Item)
		if !ok {
			continue
		}
		for _, slot := range item.Occupies {
			cs.ClothingWorn[slot] = domain.WornItem{ItemID: member.Item, State: domain.ClothingIntact}
		}
	}
	cs.ActiveOutfit = outfitID
	return ok()
}

// TakeOffOutfit clears the whole worn map; outfit ownership is unaffected.
func (s *Service) TakeOffOutfit(cs *domain.CharacterState) Result {
	cs.ClothingWorn = map[string]domain.WornItem{}
	cs.ActiveOutfit = ""
	return ok()
}

// GrantOutfitItems grants any member items of outfitID not already owned,
// recording exactly what was granted so RevokeOutfitItems can undo only
// that (§4.4 Outfit membership / §9 re-architecture note).
func (s *Service) GrantOutfitItems(cs *domain.CharacterState, outfitID string) {
	def, ok := s.game.Outfit(outfitID)
	if !ok {
		return
	}
	granted := map[string]bool{}
	for _, member := range def.Members {
		if cs.ClothingInventory[member.Item] == 0 {
			cs.ClothingInventory[member.Item] = 1
			granted[member.Item] = true
		}
	}
	if len(granted) > 0 {
		cs.GrantedOutfitItems[outfitID] = granted
	}
}

// RevokeOutfitItems removes exactly the items granted when outfitID was
// acquired, leaving independently-owned copies alone.
func (s *Service) RevokeOutfitItems(cs *domain.CharacterState, outfitID string) {
	granted, ok := cs.GrantedOutfitItems[outfitID]
	if !ok {
		return
	}
	for itemID := range granted {
		if cs.ClothingInventory[itemID] > 0 {
			cs.ClothingInventory[itemID]--
			if cs.ClothingInventory[itemID] <= 0 {
				delete(cs.ClothingInventory, itemID)
			}
		}
	}
	delete(cs.GrantedOutfitItems, outfitID)
}

// Appearance composes a textual summary of a character's worn clothing in
// slot order, for the Writer's character card (§4.4 Appearance generation).
func (s *Service) Appearance(cs *domain.CharacterState) string {
	out := ""
	for _, slot := range s.game.Wardrobe().SlotOrder {
		worn, present := cs.ClothingWorn[slot]
		if !present {
			out += slot + ": uncovered. "
			continue
		}
		item, ok := s.game.ClothingItem(worn.ItemID)
		if !ok {
			continue
		}
		desc, ok := item.StateDescriptions[string(worn.State)]
		if !ok {
			desc = fmt.Sprintf("%s (%s)", item.Name, worn.State)
		}
		out += slot + ": " + desc + ". "
	}
	return out
}
