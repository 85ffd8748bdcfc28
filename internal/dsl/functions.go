package dsl

import (
	"strings"

	"github.com/letser/plotplay-sub001/internal/domain"
)

// BuildEnv assembles the read-only condition context for one turn (§4.1):
// the typed bindings (time, location, present, meters, flags, modifiers,
// inventory, clothing, gates, arcs) plus the fixed function set. present is
// the already-resolved list of characters in the current location (the
// presence service runs before this is built, in phase 3).
func BuildEnv(g *domain.Game, s *domain.GameState, ctx *domain.TurnContext, present []string) map[string]any {
	env := map[string]any{}

	env["time"] = map[string]any{
		"day":       s.Time.Day,
		"slot":      s.Time.Slot,
		"time_hhmm": formatHHMM(s.Time.MinutesOfDay),
		"weekday":   s.Time.Weekday,
	}
	env["location"] = map[string]any{
		"zone": s.Location.Zone,
		"id":   s.Location.ID,
		"privacy": func() string {
			if loc, ok := g.Location(s.Location.ID); ok {
				return loc.Privacy
			}
			return "none"
		}(),
	}

	presentAny := make([]any, len(present))
	for i, p := range present {
		presentAny[i] = p
	}
	env["present"] = presentAny

	meters := map[string]any{}
	inventory := map[string]any{}
	clothing := map[string]any{}
	modifiers := map[string]any{}
	for charID, cs := range s.Characters {
		meterRow := map[string]any{}
		for meterID, v := range cs.Meters {
			meterRow[meterID] = v
		}
		meters[charID] = meterRow

		invRow := map[string]any{}
		for itemID, count := range cs.Inventory {
			invRow[itemID] = count
		}
		inventory[charID] = invRow

		layers := map[string]any{}
		for slot, worn := range cs.ClothingWorn {
			layers[slot] = string(worn.State)
		}
		clothing[charID] = map[string]any{
			"layers": layers,
			"outfit": cs.ActiveOutfit,
		}

		var modList []any
		for modID := range cs.Modifiers {
			modList = append(modList, modID)
		}
		modifiers[charID] = modList
	}
	env["meters"] = meters
	env["inventory"] = inventory
	env["clothing"] = clothing
	env["modifiers"] = modifiers

	flags := map[string]any{}
	for k, v := range s.Flags {
		flags[k] = v
	}
	env["flags"] = flags

	gates := map[string]any{}
	for char, gs := range ctx.ActiveGates {
		row := map[string]any{}
		for gate, v := range gs {
			row[gate] = v
		}
		gates[char] = row
	}
	env["gates"] = gates

	arcs := map[string]any{}
	for arcID, stageIdx := range s.ArcProgress {
		stage := ""
		if def, ok := g.Arc(arcID); ok && stageIdx >= 0 && stageIdx < len(def.Stages) {
			stage = def.Stages[stageIdx].ID
		}
		history := make([]any, 0, len(s.ArcHistory[arcID]))
		for _, h := range s.ArcHistory[arcID] {
			history = append(history, h)
		}
		arcs[arcID] = map[string]any{
			"stage":   stage,
			"history": history,
		}
	}
	env["arcs"] = arcs

	addFunctions(env, g, s, ctx, present)
	return env
}

func addFunctions(env map[string]any, g *domain.Game, s *domain.GameState, ctx *domain.TurnContext, present []string) {
	presentSet := map[string]bool{}
	for _, p := range present {
		presentSet[p] = true
	}

	env["has"] = func(item string) bool {
		player := s.Character(domain.PlayerID)
		if player.Inventory[item] > 0 {
			return true
		}
		return player.ClothingInventory[item] > 0
	}

	env["npc_present"] = func(id string) bool {
		return presentSet[id]
	}

	env["rand"] = func(p float64) bool {
		return ctx.Rng.Float64() < p
	}

	env["min"] = func(a, b float64) float64 {
		if a < b {
			return a
		}
		return b
	}

	env["max"] = func(a, b float64) float64 {
		if a > b {
			return a
		}
		return b
	}

	env["abs"] = func(x float64) float64 {
		if x < 0 {
			return -x
		}
		return x
	}

	env["clamp"] = func(x, lo, hi float64) float64 {
		if x < lo {
			return lo
		}
		if x > hi {
			return hi
		}
		return x
	}

	env["get"] = func(path string, def any) any {
		v, ok := resolvePath(env, path)
		if !ok || v == nil {
			return def
		}
		return v
	}

	env["knows_outfit"] = func(owner, outfitID string) bool {
		return s.Character(owner).OwnedOutfits[outfitID]
	}

	env["can_wear_outfit"] = func(owner, outfitID string) bool {
		cs := s.Character(owner)
		if !cs.OwnedOutfits[outfitID] {
			return false
		}
		def, ok := g.Outfit(outfitID)
		if !ok {
			return false
		}
		for _, member := range def.Members {
			if cs.ClothingInventory[member.Item] <= 0 {
				return false
			}
		}
		return true
	}
}

// resolvePath walks a dotted or bracketed path against the already-built
// condition context, mirroring the same bindings the compiled expression
// itself would see. Missing segments resolve to (nil, false) — the null
// sentinel — rather than panicking.
func resolvePath(env map[string]any, path string) (any, bool) {
	segments := splitPath(path)
	var cur any = env
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func splitPath(path string) []string {
	path = strings.ReplaceAll(path, "[\"", ".")
	path = strings.ReplaceAll(path, "\"]", "")
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")
	parts := strings.Split(path, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatHHMM(minutesOfDay int) string {
	h := (minutesOfDay / 60) % 24
	m := minutesOfDay % 60
	digits := "0123456789"
	hh := string([]byte{digits[h/10], digits[h%10]})
	mm := string([]byte{digits[m/10], digits[m%10]})
	return hh + ":" + mm
}
