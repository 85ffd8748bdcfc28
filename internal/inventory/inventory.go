// Package inventory implements item/outfit transitions, location inventory,
// and give/purchase/sell logic (§4.3 inventory_* kinds, §4.5).
package inventory

import (
	"fmt"

	"github.com/letser/plotplay-sub001/internal/clothing"
	"github.com/letser/plotplay-sub001/internal/domain"
)

// Result mirrors clothing.Result: either the operation applied, or it was
// refused with a narrative-visible reason.
type Result struct {
	OK      bool
	Refusal string
}

func ok() Result               { return Result{OK: true} }
func refuse(msg string) Result { return Result{OK: false, Refusal: msg} }

// HookEffects is returned alongside a successful transition so the caller
// (the effect resolver) can apply on_get/on_lost/on_give as a follow-on
// batch, exactly once per unit transition (§4.5).
type HookEffects struct {
	OnGet  []domain.Effect
	OnLost []domain.Effect
	OnGive []domain.Effect
}

// Service applies inventory operations.
type Service struct {
	game     *domain.Game
	clothing *clothing.Service
}

// NewService creates a new inventory Service.
func NewService(game *domain.Game, clothingSvc *clothing.Service) *Service {
	return &Service{game: game, clothing: clothingSvc}
}

// Add increases owner's count of item by count, firing on_get once if the
// count transitions from 0. A newly owned outfit with GrantItems set
// grants its missing member items.
func (s *Service) Add(cs *domain.CharacterState, owner, itemID string, count int) (Result, HookEffects) {
	if count <= 0 {
		count = 1
	}
	var hooks HookEffects
	if def, isOutfit := s.game.Outfit(itemID); isOutfit {
		wasOwned := cs.OwnedOutfits[itemID]
		cs.OwnedOutfits[itemID] = true
		if !wasOwned && def.GrantItems {
			s.clothing.GrantOutfitItems(cs, itemID)
		}
		return ok(), hooks
	}
	before := cs.Inventory[itemID]
	cs.Inventory[itemID] = before + count
	if before == 0 {
		if def, ok := s.game.Item(itemID); ok {
			hooks.OnGet = def.OnGet
		}
	}
	return ok(), hooks
}

// Remove decreases owner's count of item by count, floored at 0, firing
// on_lost once the count reaches 0.
func (s *Service) Remove(cs *domain.CharacterState, owner, itemID string, count int) (Result, HookEffects) {
	if count <= 0 {
		count = 1
	}
	var hooks HookEffects
	if _, isOutfit := s.game.Outfit(itemID); isOutfit {
		if cs.OwnedOutfits[itemID] {
			s.clothing.RevokeOutfitItems(cs, itemID)
			delete(cs.OwnedOutfits, itemID)
		}
		return ok(), hooks
	}
	before := cs.Inventory[itemID]
	after := before - count
	if after < 0 {
		after = 0
	}
	cs.Inventory[itemID] = after
	if before > 0 && after == 0 {
		if def, ok := s.game.Item(itemID); ok {
			hooks.OnLost = def.OnLost
		}
		delete(cs.Inventory, itemID)
	}
	return ok(), hooks
}

// Take moves count units of item from locationInventory into player's
// inventory; fails if the location lacks stock.
func (s *Service) Take(loc *map[string]int, player *domain.CharacterState, itemID string, count int) (Result, HookEffects) {
	if count <= 0 {
		count = 1
	}
	stock := (*loc)[itemID]
	if stock < count {
		return refuse(fmt.Sprintf("location does not have %d of %s", count, itemID)), HookEffects{}
	}
	(*loc)[itemID] = stock - count
	if (*loc)[itemID] <= 0 {
		delete(*loc, itemID)
	}
	return s.Add(player, domain.PlayerID, itemID, count)
}

// Drop moves count units of item from player's inventory into
// locationInventory.
func (s *Service) Drop(loc *map[string]int, player *domain.CharacterState, itemID string, count int) (Result, HookEffects) {
	if count <= 0 {
		count = 1
	}
	if player.Inventory[itemID] < count {
		return refuse(fmt.Sprintf("player does not have %d of %s to drop", count, itemID)), HookEffects{}
	}
	res, hooks := s.Remove(player, domain.PlayerID, itemID, count)
	if !res.OK {
		return res, hooks
	}
	(*loc)[itemID] += count
	return ok(), hooks
}

// Give transfers count units of item from giver to receiver. Requires
// can_give on the item definition; co-location is the caller's
// responsibility to check (it has the location context).
func (s *Service) Give(giver, receiver *domain.CharacterState, itemID string, count int) (Result, HookEffects) {
	if count <= 0 {
		count = 1
	}
	def, ok := s.game.Item(itemID)
	if ok && !def.CanGive {
		return refuse(fmt.Sprintf("%s cannot be given", itemID)), HookEffects{}
	}
	if giver.Inventory[itemID] < count {
		return refuse(fmt.Sprintf("giver does not have %d of %s", count, itemID)), HookEffects{}
	}
	_, lostHooks := s.Remove(giver, "", itemID, count)
	_, gotHooks := s.Add(receiver, "", itemID, count)
	hooks := HookEffects{OnLost: lostHooks.OnLost, OnGet: gotHooks.OnGet, OnGive: def.OnGive}
	return Result{OK: true}, hooks
}

// Purchase validates funds and stock then moves item and money between
// seller and buyer (§4.3 inventory_purchase).
func (s *Service) Purchase(buyer, seller *domain.CharacterState, moneyMeter, itemID string, count int, price float64, maxMoney *float64) (Result, HookEffects) {
	if count <= 0 {
		count = 1
	}
	total := price * float64(count)
	if buyer.Meters[moneyMeter] < total {
		return refuse("insufficient funds"), HookEffects{}
	}
	if seller != nil && seller.Inventory[itemID] < count {
		return refuse(fmt.Sprintf("seller out of stock for %s", itemID)), HookEffects{}
	}
	buyer.Meters[moneyMeter] -= total
	if seller != nil {
		seller.Meters[moneyMeter] += total
		if maxMoney != nil && seller.Meters[moneyMeter] > *maxMoney {
			seller.Meters[moneyMeter] = *maxMoney
		}
		s.Remove(seller, "", itemID, count)
	}
	return s.Add(buyer, "", itemID, count)
}

// Sell is the inverse of Purchase: seller gives up itemID, buyer pays.
func (s *Service) Sell(seller, buyer *domain.CharacterState, moneyMeter, itemID string, count int, price float64, maxMoney *float64) (Result, HookEffects) {
	return s.Purchase(buyer, seller, moneyMeter, itemID, count, price, maxMoney)
}
