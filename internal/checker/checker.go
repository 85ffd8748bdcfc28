// Package checker decodes the Checker's strict JSON output and applies it
// as an effect batch on top of whatever phase 7 already did (§4.15 Apply
// rules, phase 13). Ownership/concealment/lock refusals are enforced by
// the clothing/inventory services the effect resolver already calls, so
// this package's own job is narrower: gate enforcement, node/location
// legality, and memory/summary bookkeeping, grounded on the teacher's
// parseConfig[T]-style strict decode helpers for the JSON itself.
package checker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/movement"
)

// Safety is the Checker's self-reported safety verdict.
type Safety struct {
	OK         bool     `json:"ok"`
	Violations []string `json:"violations"`
}

// ModifierDelta is one apply/remove instruction inside the modifiers map.
type ModifierDelta struct {
	Apply       string `json:"apply"`
	DurationMin *int   `json:"duration_min"`
	Remove      string `json:"remove"`
}

// LocationDelta is the Checker's proposed location change.
type LocationDelta struct {
	Zone string `json:"zone"`
	ID   string `json:"id"`
}

// Output is the strict JSON schema from §4.15. Unknown keys are discarded
// automatically by encoding/json's default unmarshal behavior.
type Output struct {
	Safety            *Safety                      `json:"safety"`
	Meters            map[string]map[string]string `json:"meters"`
	Flags             map[string]any                `json:"flags"`
	Inventory         map[string]map[string]string `json:"inventory"`
	Clothing          map[string]map[string]string `json:"clothing"`
	Modifiers         map[string][]ModifierDelta   `json:"modifiers"`
	Location          *LocationDelta               `json:"location"`
	EventsFired       []string                     `json:"events_fired"`
	NodeTransition    *string                      `json:"node_transition"`
	CharacterMemories map[string]string            `json:"character_memories"`
	NarrativeSummary  string                       `json:"narrative_summary"`
}

// Decode strictly parses raw Checker JSON. It tolerates a wrapping markdown
// code fence (a common LLM JSON-formatting slip) before unmarshalling,
// since the schema itself specifies unknown-keys-discarded, not
// fence-free-or-reject.
func Decode(raw string) (Output, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var out Output
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return Output{}, fmt.Errorf("checker: malformed JSON: %w", err)
	}
	return out, nil
}

// Service applies a decoded Checker Output against a GameState/TurnContext.
type Service struct {
	game     *domain.Game
	movement *movement.Service
}

// NewService creates a new checker Service.
func NewService(game *domain.Game, movementSvc *movement.Service) *Service {
	return &Service{game: game, movement: movementSvc}
}

// Apply builds the effect batch implied by out (for the caller's effect
// resolver to run), plus directly handles the deltas that are not
// expressible as an ordinary effect: node transition, location, character
// memories, and the narrative summary cadence. Returns the effect batch.
func (s *Service) Apply(state *domain.GameState, ctx *domain.TurnContext, env map[string]any, out Output) []domain.Effect {
	if out.Safety != nil && !out.Safety.OK {
		for _, v := range out.Safety.Violations {
			ctx.NarrativeParts = append(ctx.NarrativeParts, s.refusalFor(v))
		}
		return nil
	}

	var batch []domain.Effect
	batch = append(batch, s.meterEffects(state, out.Meters)...)
	batch = append(batch, s.flagEffects(out.Flags)...)
	batch = append(batch, s.inventoryEffects(out.Inventory)...)
	batch = append(batch, s.clothingEffects(out.Clothing)...)
	batch = append(batch, s.modifierEffects(out.Modifiers)...)
	batch = s.dropGatedDeltas(ctx, batch)

	s.applyNodeTransition(ctx, out.NodeTransition)
	s.applyLocation(state, ctx, env, out.Location)
	s.applyEventsFired(ctx, out.EventsFired)

	for char, text := range out.CharacterMemories {
		state.PushMemory(domain.CharacterMemory{Turn: ctx.Turn, Day: state.Time.Day, Char: char, Text: text, Visible: true})
	}
	if out.NarrativeSummary != "" {
		state.NarrativeSummary = out.NarrativeSummary
		state.AITurnsSinceSummary = 0
	}

	return batch
}

// refusalFor returns a gate's authored refusal text if v names a known
// gate id on any character, else v itself.
func (s *Service) refusalFor(v string) string {
	for _, charID := range s.game.CharacterOrder() {
		def, ok := s.game.Character(charID)
		if !ok {
			continue
		}
		for _, g := range def.Gates {
			if g.ID == v {
				return g.Refusal
			}
		}
	}
	return v
}

func parseDelta(op string) (float64, rune, bool) {
	op = strings.TrimSpace(op)
	if op == "" {
		return 0, 0, false
	}
	sign := op[0]
	if sign != '+' && sign != '-' && sign != '=' {
		return 0, 0, false
	}
	n, err := strconv.ParseFloat(op[1:], 64)
	if err != nil {
		return 0, 0, false
	}
	if sign == '-' {
		n = -n
	}
	return n, rune(sign), true
}

func (s *Service) meterEffects(state *domain.GameState, meters map[string]map[string]string) []domain.Effect {
	var out []domain.Effect
	for owner, row := range meters {
		cs := state.Character(owner)
		for meterID, op := range row {
			n, sign, ok := parseDelta(op)
			if !ok {
				continue
			}
			if _, known := s.game.Meter(meterID); !known {
				continue
			}
			delta := n
			if sign == '=' {
				delta = n - cs.Meters[meterID]
			}
			out = append(out, domain.NewEffect(domain.EffectMeterChange, "", map[string]any{
				"character": owner, "meter": meterID, "delta": delta,
			}))
		}
	}
	return out
}

func (s *Service) flagEffects(flags map[string]any) []domain.Effect {
	var out []domain.Effect
	for id, v := range flags {
		if _, known := s.game.Flag(id); !known {
			continue
		}
		out = append(out, domain.NewEffect(domain.EffectFlagSet, "", map[string]any{"flag": id, "value": v}))
	}
	return out
}

func (s *Service) inventoryEffects(inv map[string]map[string]string) []domain.Effect {
	var out []domain.Effect
	for owner, row := range inv {
		for itemID, op := range row {
			n, _, ok := parseDelta(op)
			if !ok || n == 0 {
				continue
			}
			if _, known := s.game.Item(itemID); !known {
				if _, known2 := s.game.ClothingItem(itemID); !known2 {
					continue
				}
			}
			kind := domain.EffectInventoryAdd
			count := n
			if n < 0 {
				kind = domain.EffectInventoryRemove
				count = -n
			}
			out = append(out, domain.NewEffect(kind, "", map[string]any{
				"character": owner, "item": itemID, "count": count,
			}))
		}
	}
	return out
}

func (s *Service) clothingEffects(clothing map[string]map[string]string) []domain.Effect {
	var out []domain.Effect
	for owner, row := range clothing {
		for slot, state := range row {
			switch state {
			case "intact", "opened", "displaced", "removed":
			default:
				continue
			}
			out = append(out, domain.NewEffect(domain.EffectClothingSlotState, "", map[string]any{
				"character": owner, "slot": slot, "state": state,
			}))
		}
	}
	return out
}

func (s *Service) modifierEffects(modifiers map[string][]ModifierDelta) []domain.Effect {
	var out []domain.Effect
	for owner, deltas := range modifiers {
		for _, d := range deltas {
			switch {
			case d.Apply != "":
				if _, known := s.game.Modifier(d.Apply); !known {
					continue
				}
				cfg := map[string]any{"character": owner, "modifier": d.Apply}
				if d.DurationMin != nil {
					cfg["duration_min"] = float64(*d.DurationMin)
				}
				out = append(out, domain.NewEffect(domain.EffectApplyModifier, "", cfg))
			case d.Remove != "":
				out = append(out, domain.NewEffect(domain.EffectRemoveModifier, "", map[string]any{
					"character": owner, "modifier": d.Remove,
				}))
			}
		}
	}
	return out
}

// dropGatedDeltas drops any apply_modifier effect whose modifier definition
// carries a `when` naming a currently-false gate and reports the refusal,
// per §4.15's "drop any delta whose corresponding gate... is false" rule.
// Meter/flag/inventory/clothing deltas have no gate of their own in the
// JSON schema, so only modifier application (the one delta kind tied to an
// authored `when`) is gate-checked here.
func (s *Service) dropGatedDeltas(ctx *domain.TurnContext, batch []domain.Effect) []domain.Effect {
	out := make([]domain.Effect, 0, len(batch))
	for _, e := range batch {
		if e.Kind() != domain.EffectApplyModifier {
			out = append(out, e)
			continue
		}
		modID := e.ConfigString("modifier")
		def, ok := s.game.Modifier(modID)
		if !ok || def.When == "" {
			out = append(out, e)
			continue
		}
		gateID := gateNameIn(def.When)
		if gateID == "" {
			out = append(out, e)
			continue
		}
		charID := e.ConfigString("character")
		if row, ok := ctx.ActiveGates[charID]; ok && !row[gateID] {
			ctx.NarrativeParts = append(ctx.NarrativeParts, s.refusalFor(gateID))
			continue
		}
		out = append(out, e)
	}
	return out
}

// gateNameIn extracts a `gates.<char>.<gate>` reference from an expression,
// if it names exactly one, for the narrow gate-clamp check above.
func gateNameIn(expr string) string {
	idx := strings.Index(expr, "gates.")
	if idx < 0 {
		return ""
	}
	rest := expr[idx+len("gates."):]
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return ""
	}
	gate := parts[1]
	for i, r := range gate {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			gate = gate[:i]
			break
		}
	}
	return gate
}

// applyNodeTransition honors a Checker-proposed node transition only if the
// current node's own authored transitions name it as a target (§4.15).
func (s *Service) applyNodeTransition(ctx *domain.TurnContext, nodeTransition *string) {
	if nodeTransition == nil || *nodeTransition == "" {
		return
	}
	node, ok := s.game.Node(ctx.CurrentNode)
	if !ok {
		return
	}
	for _, t := range node.Transitions {
		if t.Target == *nodeTransition {
			ctx.PendingGoto = *nodeTransition
			return
		}
	}
}

// applyLocation honors a Checker-proposed location change only if it is a
// legal move, with no time cost since the Writer's prose already narrated
// it (§4.15).
func (s *Service) applyLocation(state *domain.GameState, ctx *domain.TurnContext, env map[string]any, loc *LocationDelta) {
	if loc == nil || loc.ID == "" {
		return
	}
	target := domain.Location{Zone: loc.Zone, ID: loc.ID}
	if target.Zone == "" {
		if def, ok := s.game.Location(loc.ID); ok {
			target.Zone = def.Zone
		}
	}
	if !s.movement.CheckerRelocate(state, target, env) {
		return
	}
	ctx.PendingLocation = &target
	state.Location = target
}

// applyEventsFired records events the Checker's narrative confirmed as
// having fired this turn but that are not already tracked (phase 8 already
// ran the authoritative event pipeline; this is bookkeeping only).
func (s *Service) applyEventsFired(ctx *domain.TurnContext, ids []string) {
	already := map[string]bool{}
	for _, id := range ctx.EventsFired {
		already[id] = true
	}
	for _, id := range ids {
		if already[id] {
			continue
		}
		if _, ok := s.game.Event(id); !ok {
			continue
		}
		ctx.EventsFired = append(ctx.EventsFired, id)
		already[id] = true
	}
}
