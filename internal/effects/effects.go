// Package effects dispatches every effect kind against a character/game
// state, wiring clothing, inventory, movement, time and modifier services
// together behind one ordered-batch entry point (§4.3).
package effects

import (
	"github.com/letser/plotplay-sub001/internal/clothing"
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
	"github.com/letser/plotplay-sub001/internal/inventory"
	"github.com/letser/plotplay-sub001/internal/modifiers"
	"github.com/letser/plotplay-sub001/internal/movement"
	"github.com/letser/plotplay-sub001/internal/timeservice"
)

// EnvBuilder rebuilds the DSL binding set for a `when` guard evaluated
// mid-batch; effects can change meters/flags/inventory that later `when`
// clauses in the same batch must see (§4.3 Ordering and atomicity).
type EnvBuilder func(ctx *domain.TurnContext) map[string]any

// Resolver applies one effect or a whole ordered batch.
type Resolver struct {
	game      *domain.Game
	eval      *dsl.Evaluator
	clothing  *clothing.Service
	inventory *inventory.Service
	movement  *movement.Service
	time      *timeservice.Service
	modifiers *modifiers.Service
	buildEnv  EnvBuilder
}

// NewResolver creates a new effect Resolver.
func NewResolver(
	game *domain.Game,
	eval *dsl.Evaluator,
	clothingSvc *clothing.Service,
	inventorySvc *inventory.Service,
	movementSvc *movement.Service,
	timeSvc *timeservice.Service,
	modifiersSvc *modifiers.Service,
	buildEnv EnvBuilder,
) *Resolver {
	return &Resolver{
		game:      game,
		eval:      eval,
		clothing:  clothingSvc,
		inventory: inventorySvc,
		movement:  movementSvc,
		time:      timeSvc,
		modifiers: modifiersSvc,
		buildEnv:  buildEnv,
	}
}

// subject resolves who an effect acts on; "owner" defaults to the acting
// character, but any effect may target another id via config["character"].
func subject(e domain.Effect, state *domain.GameState, defaultOwner string) (string, *domain.CharacterState) {
	id := e.ConfigString("character")
	if id == "" {
		id = defaultOwner
	}
	return id, state.Character(id)
}

// Apply runs one ordered batch of effects against state for actor
// (typically "player"), threading ctx for goto/milestone/event bookkeeping.
// Re-evaluates each effect's `when` against the env current at that point
// in the batch, so an earlier effect's mutation can gate a later one.
func (r *Resolver) Apply(state *domain.GameState, ctx *domain.TurnContext, actor string, batch []domain.Effect) {
	for _, e := range batch {
		// conditional{} repurposes `when` as its branch test rather than a
		// skip-guard, so it is dispatched unconditionally here.
		if e.Kind() != domain.EffectConditional && e.When() != "" {
			env := r.buildEnv(ctx)
			if !r.eval.EvalBool(e.When(), env) {
				continue
			}
		}
		r.applyOne(state, ctx, actor, e)
	}
}

func (r *Resolver) applyOne(state *domain.GameState, ctx *domain.TurnContext, actor string, e domain.Effect) {
	switch e.Kind() {
	case domain.EffectMeterChange:
		r.applyMeterChange(state, e, actor)
	case domain.EffectFlagSet:
		v, _ := e.ConfigRaw("value")
		state.Flags[e.ConfigString("flag")] = v
	case domain.EffectInventoryAdd:
		id, cs := subject(e, state, actor)
		res, hooks := r.inventory.Add(cs, id, e.ConfigString("item"), int(e.ConfigNumber("count", 1)))
		r.recordRefusal(ctx, res.OK, res.Refusal)
		r.Apply(state, ctx, id, hooks.OnGet)
	case domain.EffectInventoryRemove:
		id, cs := subject(e, state, actor)
		res, hooks := r.inventory.Remove(cs, id, e.ConfigString("item"), int(e.ConfigNumber("count", 1)))
		r.recordRefusal(ctx, res.OK, res.Refusal)
		r.Apply(state, ctx, id, hooks.OnLost)
	case domain.EffectInventoryTake:
		loc := r.locationInventory(state)
		player := state.Character(domain.PlayerID)
		res, hooks := r.inventory.Take(loc, player, e.ConfigString("item"), int(e.ConfigNumber("count", 1)))
		r.recordRefusal(ctx, res.OK, res.Refusal)
		r.Apply(state, ctx, domain.PlayerID, hooks.OnGet)
	case domain.EffectInventoryDrop:
		loc := r.locationInventory(state)
		player := state.Character(domain.PlayerID)
		res, hooks := r.inventory.Drop(loc, player, e.ConfigString("item"), int(e.ConfigNumber("count", 1)))
		r.recordRefusal(ctx, res.OK, res.Refusal)
		r.Apply(state, ctx, domain.PlayerID, hooks.OnLost)
	case domain.EffectInventoryGive:
		giver := state.Character(e.ConfigString("from"))
		receiver := state.Character(e.ConfigString("to"))
		res, hooks := r.inventory.Give(giver, receiver, e.ConfigString("item"), int(e.ConfigNumber("count", 1)))
		r.recordRefusal(ctx, res.OK, res.Refusal)
		r.Apply(state, ctx, e.ConfigString("from"), hooks.OnLost)
		r.Apply(state, ctx, e.ConfigString("to"), hooks.OnGet)
		r.Apply(state, ctx, e.ConfigString("from"), hooks.OnGive)
	case domain.EffectInventoryPurchase:
		r.applyTrade(state, ctx, e, false)
	case domain.EffectInventorySell:
		r.applyTrade(state, ctx, e, true)
	case domain.EffectClothingPutOn:
		id, cs := subject(e, state, actor)
		env := r.buildEnv(ctx)
		res := r.clothing.PutOn(cs, id, e.ConfigString("item"), env)
		r.recordRefusal(ctx, res.OK, res.Refusal)
	case domain.EffectClothingTakeOff:
		id, cs := subject(e, state, actor)
		res := r.clothing.TakeOff(cs, id, e.ConfigString("item"))
		r.recordRefusal(ctx, res.OK, res.Refusal)
	case domain.EffectClothingState:
		id, cs := subject(e, state, actor)
		env := r.buildEnv(ctx)
		state2 := domain.ClothingState(e.ConfigString("state"))
		res := r.clothing.SetItemState(cs, id, e.ConfigString("item"), state2, env)
		r.recordRefusal(ctx, res.OK, res.Refusal)
	case domain.EffectClothingSlotState:
		id, cs := subject(e, state, actor)
		env := r.buildEnv(ctx)
		state2 := domain.ClothingState(e.ConfigString("state"))
		res := r.clothing.SetSlotState(cs, id, e.ConfigString("slot"), state2, env)
		r.recordRefusal(ctx, res.OK, res.Refusal)
	case domain.EffectOutfitPutOn:
		id, cs := subject(e, state, actor)
		res := r.clothing.PutOnOutfit(cs, id, e.ConfigString("outfit"))
		r.recordRefusal(ctx, res.OK, res.Refusal)
	case domain.EffectOutfitTakeOff:
		_, cs := subject(e, state, actor)
		res := r.clothing.TakeOffOutfit(cs)
		r.recordRefusal(ctx, res.OK, res.Refusal)
	case domain.EffectMove:
		r.applyMove(state, ctx, e)
	case domain.EffectMoveTo:
		r.applyGotoEffect(state, ctx, e)
	case domain.EffectTravelTo:
		r.applyTravel(state, ctx, e)
	case domain.EffectAdvanceTime:
		minutes := int(e.ConfigNumber("minutes", 0))
		r.applyAdvance(state, minutes)
	case domain.EffectAdvanceTimeSlot:
		r.applyAdvanceToNextSlot(state)
	case domain.EffectApplyModifier:
		id, cs := subject(e, state, actor)
		var override *int
		if v, ok := e.ConfigRaw("duration_min"); ok {
			if n, ok := v.(float64); ok {
				m := int(n)
				override = &m
			}
		}
		entryEffects, applied := r.modifiers.Apply(cs, e.ConfigString("modifier"), override, false)
		if applied {
			r.Apply(state, ctx, id, entryEffects)
		}
	case domain.EffectRemoveModifier:
		id, cs := subject(e, state, actor)
		exitEffects := r.modifiers.Remove(cs, e.ConfigString("modifier"))
		r.Apply(state, ctx, id, exitEffects)
	case domain.EffectUnlock:
		r.applyLockToggle(state, e, false)
	case domain.EffectLock:
		r.applyLockToggle(state, e, true)
	case domain.EffectGoto:
		ctx.PendingGoto = e.ConfigString("node")
	case domain.EffectConditional:
		r.applyConditional(state, ctx, actor, e)
	case domain.EffectRandom:
		r.applyRandom(state, ctx, actor, e)
	}
}

func (r *Resolver) recordRefusal(ctx *domain.TurnContext, ok bool, refusal string) {
	if !ok {
		ctx.NarrativeParts = append(ctx.NarrativeParts, refusal)
	}
}

func (r *Resolver) locationInventory(state *domain.GameState) *map[string]int {
	loc, ok := state.LocationInventory[state.Location.ID]
	if !ok {
		loc = map[string]int{}
		state.LocationInventory[state.Location.ID] = loc
	}
	return &loc
}

func (r *Resolver) applyMeterChange(state *domain.GameState, e domain.Effect, actor string) {
	_, cs := subject(e, state, actor)
	meterID := e.ConfigString("meter")
	def, ok := r.game.Meter(meterID)
	if !ok {
		return
	}
	delta := e.ConfigNumber("delta", 0)
	if def.DeltaCapPerTurn != nil {
		if delta > *def.DeltaCapPerTurn {
			delta = *def.DeltaCapPerTurn
		}
		if delta < -*def.DeltaCapPerTurn {
			delta = -*def.DeltaCapPerTurn
		}
	}
	min, max := r.modifiers.ClampMeter(cs, meterID, def.Min, def.Max)
	v := cs.Meters[meterID] + delta
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	cs.Meters[meterID] = v
}

func (r *Resolver) applyTrade(state *domain.GameState, ctx *domain.TurnContext, e domain.Effect, selling bool) {
	buyerID := e.ConfigString("buyer")
	sellerID := e.ConfigString("seller")
	if selling {
		buyerID, sellerID = sellerID, buyerID
	}
	buyer := state.Character(buyerID)
	var seller *domain.CharacterState
	if sellerID != "" {
		seller = state.Character(sellerID)
	}
	econ := r.game.Economy()
	price := e.ConfigNumber("price", 0)
	res, hooks := r.inventory.Purchase(buyer, seller, econ.MoneyMeter, e.ConfigString("item"), int(e.ConfigNumber("count", 1)), price, econ.MaxMoney)
	r.recordRefusal(ctx, res.OK, res.Refusal)
	r.Apply(state, ctx, buyerID, hooks.OnGet)
}

func presentSet(ctx *domain.TurnContext) map[string]bool {
	present := map[string]bool{}
	for _, id := range ctx.Present {
		present[id] = true
	}
	return present
}

func (r *Resolver) applyMove(state *domain.GameState, ctx *domain.TurnContext, e domain.Effect) {
	with := e.ConfigStringSlice("with")
	envFor := func(id string) map[string]any { return r.buildEnv(ctx) }
	res := r.movement.Direction(state, presentSet(ctx), e.ConfigString("direction"), with, envFor)
	if !res.OK {
		ctx.NarrativeParts = append(ctx.NarrativeParts, res.Refusal)
		return
	}
	state.Location = res.Location
	ctx.TimeAdvanceMinutes += res.Minutes
}

func (r *Resolver) applyGotoEffect(state *domain.GameState, ctx *domain.TurnContext, e domain.Effect) {
	with := e.ConfigStringSlice("with")
	envFor := func(id string) map[string]any { return r.buildEnv(ctx) }
	res := r.movement.Goto(state, presentSet(ctx), e.ConfigString("location"), with, envFor)
	if !res.OK {
		ctx.NarrativeParts = append(ctx.NarrativeParts, res.Refusal)
		return
	}
	state.Location = res.Location
	ctx.TimeAdvanceMinutes += res.Minutes
}

func (r *Resolver) applyTravel(state *domain.GameState, ctx *domain.TurnContext, e domain.Effect) {
	with := e.ConfigStringSlice("with")
	envFor := func(id string) map[string]any { return r.buildEnv(ctx) }
	distance := e.ConfigNumber("distance", 1)
	res := r.movement.Travel(state, presentSet(ctx), e.ConfigString("location"), e.ConfigString("method"), distance, with, envFor)
	if !res.OK {
		ctx.NarrativeParts = append(ctx.NarrativeParts, res.Refusal)
		return
	}
	state.Location = res.Location
	ctx.TimeAdvanceMinutes += res.Minutes
}

func (r *Resolver) applyAdvance(state *domain.GameState, minutes int) {
	r.time.Advance(state, minutes)
}

func (r *Resolver) applyAdvanceToNextSlot(state *domain.GameState) {
	windows := r.game.Time().SlotWindows
	if len(windows) == 0 {
		return
	}
	cur := state.Time.MinutesOfDay
	best := -1
	for _, w := range windows {
		start := w.Start
		if start <= cur {
			start += 1440
		}
		if best == -1 || start < best {
			best = start
		}
	}
	if best == -1 {
		return
	}
	r.time.Advance(state, best-cur)
}

func (r *Resolver) applyLockToggle(state *domain.GameState, e domain.Effect, locked bool) {
	target := e.ConfigString("target")
	id := e.ConfigString("id")
	var set map[string]bool
	switch target {
	case "item":
		set = state.LockedItems
	case "clothing":
		set = state.LockedClothing
	case "outfit":
		set = state.LockedOutfits
	case "zone":
		set = state.LockedZones
	case "location":
		set = state.LockedLocations
	case "action":
		set = state.LockedActions
	case "ending":
		set = state.LockedEndings
	default:
		return
	}
	if locked {
		set[id] = true
	} else {
		delete(set, id)
	}
}

func (r *Resolver) applyConditional(state *domain.GameState, ctx *domain.TurnContext, actor string, e domain.Effect) {
	env := r.buildEnv(ctx)
	if r.eval.EvalBool(e.When(), env) {
		r.Apply(state, ctx, actor, e.ConfigEffects("then"))
	} else {
		r.Apply(state, ctx, actor, e.ConfigEffects("else"))
	}
}

func (r *Resolver) applyRandom(state *domain.GameState, ctx *domain.TurnContext, actor string, e domain.Effect) {
	raw, ok := e.ConfigRaw("choices")
	if !ok {
		return
	}
	choices, ok := raw.([]domain.RandomChoice)
	if !ok || len(choices) == 0 {
		return
	}
	total := 0.0
	for _, c := range choices {
		total += c.Weight
	}
	if total <= 0 {
		return
	}
	roll := ctx.Rng.Float64() * total
	acc := 0.0
	for _, c := range choices {
		acc += c.Weight
		if roll <= acc {
			r.Apply(state, ctx, actor, c.Effects)
			return
		}
	}
	r.Apply(state, ctx, actor, choices[len(choices)-1].Effects)
}
