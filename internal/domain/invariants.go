package domain

import "fmt"

// CheckInvariants verifies the turn-boundary invariants it covers: meter
// bounds, time/slot consistency, the current node, clothing slots and
// ownership, granted outfit items, and non-negative modifier durations.
// It is called by the orchestrator at the end of phase 22 on every turn
// and by tests; a violation is an internal-invariant failure
// (§7) that should trigger rollback to ctx.Snapshot, not a refusal.
func CheckInvariants(g *Game, s *GameState) error {
	if err := checkMeterBounds(g, s); err != nil {
		return err
	}
	if err := checkTime(g, s); err != nil {
		return err
	}
	if err := checkCurrentNode(g, s); err != nil {
		return err
	}
	if err := checkClothingOwnership(g, s); err != nil {
		return err
	}
	if err := checkGrantedOutfitItems(s); err != nil {
		return err
	}
	if err := checkModifierDurations(s); err != nil {
		return err
	}
	return nil
}

func checkMeterBounds(g *Game, s *GameState) error {
	for charID, cs := range s.Characters {
		for meterID, value := range cs.Meters {
			def, ok := g.Meter(meterID)
			if !ok {
				continue
			}
			if value < def.Min || value > def.Max {
				return NewDomainError(ErrCodeInvariantViolated,
					fmt.Sprintf("meter %s.%s=%v out of bounds [%v,%v]", charID, meterID, value, def.Min, def.Max), nil)
			}
		}
	}
	return nil
}

func checkTime(g *Game, s *GameState) error {
	if s.Time.MinutesOfDay < 0 || s.Time.MinutesOfDay > 1439 {
		return NewDomainError(ErrCodeInvariantViolated,
			fmt.Sprintf("minutesOfDay %d out of range", s.Time.MinutesOfDay), nil)
	}
	expected := DeriveSlot(g.Time().SlotWindows, s.Time.MinutesOfDay)
	if expected != "" && s.Time.Slot != expected {
		return NewDomainError(ErrCodeInvariantViolated,
			fmt.Sprintf("slot %q does not match derived slot %q", s.Time.Slot, expected), nil)
	}
	return nil
}

func checkCurrentNode(g *Game, s *GameState) error {
	if _, ok := g.Node(s.CurrentNode); !ok {
		return NewDomainError(ErrCodeInvariantViolated,
			fmt.Sprintf("currentNode %q is not a known node", s.CurrentNode), nil)
	}
	return nil
}

func checkClothingOwnership(g *Game, s *GameState) error {
	slotSet := map[string]bool{}
	for _, slot := range g.Wardrobe().SlotOrder {
		slotSet[slot] = true
	}
	for charID, cs := range s.Characters {
		for slot, worn := range cs.ClothingWorn {
			if len(slotSet) > 0 && !slotSet[slot] {
				return NewDomainError(ErrCodeInvariantViolated,
					fmt.Sprintf("character %s has unknown slot %q worn", charID, slot), nil)
			}
			if cs.ClothingInventory[worn.ItemID] <= 0 {
				return NewDomainError(ErrCodeInvariantViolated,
					fmt.Sprintf("character %s wears %q in slot %q but does not own it", charID, worn.ItemID, slot), nil)
			}
		}
	}
	return nil
}

func checkGrantedOutfitItems(s *GameState) error {
	for charID, cs := range s.Characters {
		for outfitID, items := range cs.GrantedOutfitItems {
			for itemID := range items {
				if cs.ClothingInventory[itemID] <= 0 {
					return NewDomainError(ErrCodeInvariantViolated,
						fmt.Sprintf("character %s granted item %q from outfit %q no longer owned", charID, itemID, outfitID), nil)
				}
			}
		}
	}
	return nil
}

func checkModifierDurations(s *GameState) error {
	for charID, cs := range s.Characters {
		for modID, st := range cs.Modifiers {
			if st.RemainingMinutes < 0 {
				return NewDomainError(ErrCodeInvariantViolated,
					fmt.Sprintf("character %s modifier %q has negative remaining minutes %d", charID, modID, st.RemainingMinutes), nil)
			}
		}
	}
	return nil
}

// DeriveSlot returns the slot window name containing minutesOfDay, handling
// a window that wraps across midnight (e.g. "night": 22:00-06:00). Empty
// string if no window list is configured (slot is unused, per §4.2).
func DeriveSlot(windows []SlotWindow, minutesOfDay int) string {
	for _, w := range windows {
		if w.Start <= w.End {
			if minutesOfDay >= w.Start && minutesOfDay < w.End {
				return w.Name
			}
		} else {
			// Wraps midnight: [Start,1440) U [0,End)
			if minutesOfDay >= w.Start || minutesOfDay < w.End {
				return w.Name
			}
		}
	}
	return ""
}

// DeriveWeekday returns the weekday name for the given day number, using
// the configured week cycle (1-indexed days, week wraps modulo len(weekDays)).
func DeriveWeekday(weekDays []string, startDay, day int) string {
	if len(weekDays) == 0 {
		return ""
	}
	offset := (day - startDay) % len(weekDays)
	if offset < 0 {
		offset += len(weekDays)
	}
	return weekDays[offset]
}
