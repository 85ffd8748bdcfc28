package domain

// Game is the immutable, validated game package the runtime executes
// against. It is built once at load time and shared read-only across every
// session; no service ever mutates it.
type Game struct {
	meta          GameMeta
	narration     NarrationConfig
	start         StartConfig
	meters        map[string]MeterDef
	flags         map[string]FlagDef
	time          TimeConfig
	economy       EconomyConfig
	wardrobe      WardrobeConfig
	movement      MovementConfig
	characters    map[string]CharacterDef
	zones         map[string]ZoneDef
	locations     map[string]LocationDef
	items         map[string]ItemDef
	outfits       map[string]OutfitDef
	clothingItems map[string]ClothingItemDef
	modifiers     map[string]ModifierDef
	nodes         map[string]NodeDef
	events        map[string]EventDef
	arcs          map[string]ArcDef
	actions       map[string]ActionDef

	// Declaration-order id lists, kept alongside the maps above so
	// iteration (outfit composition, choice building, node.Choices)
	// is deterministic instead of Go's randomized map order.
	characterOrder []string
	itemOrder      []string
	eventOrder     []string
	arcOrder       []string
	actionOrder    []string
}

// NewGame builds a Game from validated definitions. Cross-reference
// integrity (e.g. a node.Transitions target naming an unknown node) is the
// external loader/validator's job; the runtime trusts ids but defensively
// no-ops and logs when it encounters one that does not resolve (§3).
func NewGame(
	meta GameMeta,
	narration NarrationConfig,
	start StartConfig,
	meters []MeterDef,
	flags []FlagDef,
	timeCfg TimeConfig,
	economy EconomyConfig,
	wardrobe WardrobeConfig,
	movement MovementConfig,
	characters []CharacterDef,
	zones []ZoneDef,
	locations []LocationDef,
	items []ItemDef,
	outfits []OutfitDef,
	clothingItems []ClothingItemDef,
	modifiers []ModifierDef,
	nodes []NodeDef,
	events []EventDef,
	arcs []ArcDef,
	actions []ActionDef,
) *Game {
	g := &Game{
		meta:          meta,
		narration:     narration,
		start:         start,
		meters:        make(map[string]MeterDef, len(meters)),
		flags:         make(map[string]FlagDef, len(flags)),
		time:          timeCfg,
		economy:       economy,
		wardrobe:      wardrobe,
		movement:      movement,
		characters:    make(map[string]CharacterDef, len(characters)),
		zones:         make(map[string]ZoneDef, len(zones)),
		locations:     make(map[string]LocationDef, len(locations)),
		items:         make(map[string]ItemDef, len(items)),
		outfits:       make(map[string]OutfitDef, len(outfits)),
		clothingItems: make(map[string]ClothingItemDef, len(clothingItems)),
		modifiers:     make(map[string]ModifierDef, len(modifiers)),
		nodes:         make(map[string]NodeDef, len(nodes)),
		events:        make(map[string]EventDef, len(events)),
		arcs:          make(map[string]ArcDef, len(arcs)),
		actions:       make(map[string]ActionDef, len(actions)),
	}
	for _, m := range meters {
		g.meters[m.ID] = m
	}
	for _, f := range flags {
		g.flags[f.ID] = f
	}
	for _, c := range characters {
		g.characters[c.ID] = c
		g.characterOrder = append(g.characterOrder, c.ID)
	}
	for _, z := range zones {
		g.zones[z.ID] = z
	}
	for _, l := range locations {
		g.locations[l.ID] = l
	}
	for _, i := range items {
		g.items[i.ID] = i
		g.itemOrder = append(g.itemOrder, i.ID)
	}
	for _, o := range outfits {
		g.outfits[o.ID] = o
	}
	for _, c := range clothingItems {
		g.clothingItems[c.ID] = c
	}
	for _, m := range modifiers {
		g.modifiers[m.ID] = m
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range events {
		g.events[e.ID] = e
		g.eventOrder = append(g.eventOrder, e.ID)
	}
	for _, a := range arcs {
		g.arcs[a.ID] = a
		g.arcOrder = append(g.arcOrder, a.ID)
	}
	for _, a := range actions {
		g.actions[a.ID] = a
		g.actionOrder = append(g.actionOrder, a.ID)
	}
	return g
}

func (g *Game) Meta() GameMeta           { return g.meta }
func (g *Game) Narration() NarrationConfig { return g.narration }
func (g *Game) Start() StartConfig       { return g.start }
func (g *Game) Time() TimeConfig         { return g.time }
func (g *Game) Economy() EconomyConfig   { return g.economy }
func (g *Game) Wardrobe() WardrobeConfig { return g.wardrobe }
func (g *Game) Movement() MovementConfig { return g.movement }

func (g *Game) Meter(id string) (MeterDef, bool)             { m, ok := g.meters[id]; return m, ok }
func (g *Game) Flag(id string) (FlagDef, bool)               { f, ok := g.flags[id]; return f, ok }
func (g *Game) Character(id string) (CharacterDef, bool)     { c, ok := g.characters[id]; return c, ok }
func (g *Game) Zone(id string) (ZoneDef, bool)                { z, ok := g.zones[id]; return z, ok }
func (g *Game) Location(id string) (LocationDef, bool)        { l, ok := g.locations[id]; return l, ok }
func (g *Game) Item(id string) (ItemDef, bool)                { i, ok := g.items[id]; return i, ok }
func (g *Game) Outfit(id string) (OutfitDef, bool)             { o, ok := g.outfits[id]; return o, ok }
func (g *Game) ClothingItem(id string) (ClothingItemDef, bool) { c, ok := g.clothingItems[id]; return c, ok }
func (g *Game) Modifier(id string) (ModifierDef, bool)         { m, ok := g.modifiers[id]; return m, ok }
func (g *Game) Node(id string) (NodeDef, bool)                 { n, ok := g.nodes[id]; return n, ok }
func (g *Game) Event(id string) (EventDef, bool)               { e, ok := g.events[id]; return e, ok }
func (g *Game) Arc(id string) (ArcDef, bool)                   { a, ok := g.arcs[id]; return a, ok }
func (g *Game) Action(id string) (ActionDef, bool)             { a, ok := g.actions[id]; return a, ok }

func (g *Game) Meters() map[string]MeterDef   { return g.meters }
func (g *Game) Characters() map[string]CharacterDef { return g.characters }
func (g *Game) Locations() map[string]LocationDef   { return g.locations }
func (g *Game) Zones() map[string]ZoneDef           { return g.zones }
func (g *Game) Modifiers() map[string]ModifierDef   { return g.modifiers }
func (g *Game) Events() map[string]EventDef         { return g.events }
func (g *Game) Arcs() map[string]ArcDef             { return g.arcs }
func (g *Game) Actions() map[string]ActionDef       { return g.actions }
func (g *Game) Items() map[string]ItemDef           { return g.items }

func (g *Game) CharacterOrder() []string { return g.characterOrder }
func (g *Game) ItemOrder() []string      { return g.itemOrder }
func (g *Game) EventOrder() []string     { return g.eventOrder }
func (g *Game) ArcOrder() []string       { return g.arcOrder }
func (g *Game) ActionOrder() []string    { return g.actionOrder }

// GameMeta is top-level identity/config for the package.
type GameMeta struct {
	ID      string
	Title   string
	Version string
}

// NarrationConfig controls the Writer's prose contract.
type NarrationConfig struct {
	POV               string
	Tense             string
	ParagraphBudgetMin int
	ParagraphBudgetMax int
	Style             string
}

// StartConfig seeds a fresh GameState (§3 "State is born via the start block").
type StartConfig struct {
	Node     string
	Zone     string
	Location string
	Day      int
	Minute   int
	Flags    map[string]any
}

// MeterDef bounds a numeric per-character variable.
type MeterDef struct {
	ID              string
	Label           string
	Min             float64
	Max             float64
	Default         float64
	DeltaCapPerTurn *float64
	DecayPerDay     float64
	DecayPerSlot    float64
	Visible         bool
}

// FlagDef declares an allowed global flag.
type FlagDef struct {
	ID            string
	Type          string // "bool" | "number" | "string"
	Default       any
	AllowedValues []any
	Visible       bool
}

// SlotWindow is one named window of the day, e.g. {Name: "morning", Start: 360, End: 720}.
type SlotWindow struct {
	Name  string
	Start int
	End   int
}

// TimeCategoryDef gives a named action category a fixed minute cost.
type TimeCategoryDef struct {
	Minutes int
}

// TimeDefaultDef is the fallback cost for an action kind when nothing more
// specific applies.
type TimeDefaultDef struct {
	Minutes     int
	CapPerVisit *int
}

// TimeConfig drives the time service (§4.7).
type TimeConfig struct {
	StartDay    int
	WeekDays    []string
	SlotWindows []SlotWindow
	Categories  map[string]TimeCategoryDef
	Defaults    map[string]TimeDefaultDef
}

// EconomyConfig names the in-game currency and its ceiling.
type EconomyConfig struct {
	Currency string
	MoneyMeter string
	MaxMoney *float64
}

// WardrobeConfig fixes the authoritative slot order used for concealment
// priority (§4.4): earlier entries conceal later ones.
type WardrobeConfig struct {
	SlotOrder []string
}

// MovementLocalConfig is the base-time/distance model for in-zone moves.
type MovementLocalConfig struct {
	BaseTime          int
	DistanceModifiers map[string]float64
}

// MovementConfig groups the movement service's tunables.
type MovementConfig struct {
	Local MovementLocalConfig
}

// GateDef is an authored boolean derived from state, gating behaviors.
type GateDef struct {
	ID         string
	When       string
	WhenAny    []string
	WhenAll    []string
	Acceptance string
	Refusal    string
}

// ScheduleRule places a character at a location under a time condition;
// rules are evaluated in declaration order, first match wins (§4.9).
type ScheduleRule struct {
	When     string
	Location string
}

// CharacterDef is an authored NPC (or the player, id "player").
type CharacterDef struct {
	ID            string
	Name          string
	Age           int
	Gender        string
	Pronouns      string
	Personality   string
	Appearance    string
	DialogueStyle string
	DefaultLocation string
	MeterOverrides map[string]float64
	Gates         []GateDef
	Schedule      []ScheduleRule
	IsPlayer      bool
}

// LocationConnection is one directed edge out of a location within a zone.
type LocationConnection struct {
	Direction string
	To        string
	Distance  string // "short" | "medium" | "long", keys movement.local.distance_modifiers
}

// LocationDef is an authored place within a zone.
type LocationDef struct {
	ID                  string
	Zone                string
	Name                string
	Privacy             string // none|low|medium|high
	Connections         []LocationConnection
	DiscoveryConditions string
	Locked              bool
	UnlockWhen          string
}

// TravelMethodDef is one way to cross between two zones.
type TravelMethodDef struct {
	Name         string
	TimeCost     *int
	Category     string
	Speed        *float64
	Active       bool
	UseEntryExit bool
	Entrances    []string
	Exits        []string
}

// ZoneConnectionDef links two zones via one or more travel methods.
type ZoneConnectionDef struct {
	ToZone  string
	Methods []TravelMethodDef
}

// ZoneDef groups locations and the zones reachable from it.
type ZoneDef struct {
	ID          string
	Name        string
	Connections []ZoneConnectionDef
}

// ItemDef is an ordinary (non-clothing) inventory item.
type ItemDef struct {
	ID         string
	Name       string
	Stackable  bool
	Consumable bool
	Droppable  bool
	CanGive    bool
	Value      float64
	OnGet      []Effect
	OnLost     []Effect
	OnGive     []Effect
	OnUse      []Effect
}

// OutfitMemberDef is one clothing item that belongs to an outfit.
type OutfitMemberDef struct {
	Item string
}

// OutfitDef is a named bundle of clothing items composed together.
type OutfitDef struct {
	ID         string
	Name       string
	Members    []OutfitMemberDef
	GrantItems bool
}

// ClothingItemDef is a wearable item occupying one or more slots.
type ClothingItemDef struct {
	ID                string
	Name              string
	Occupies          []string
	Conceals          []string
	CanOpen           bool
	Locked            bool
	UnlockWhen        string
	StateDescriptions map[string]string // state -> description
}

// SafetyConfig names gates a modifier forces false while active.
type SafetyConfig struct {
	DisallowGates []string
	AllowGates    []string
}

// MeterClamp narrows a meter's usual [min,max] while a modifier is active.
type MeterClamp struct {
	Min *float64
	Max *float64
}

// ModifierDef is a temporary overlay on a character (§4.8).
type ModifierDef struct {
	ID                 string
	Group              string
	When               string
	DurationDefaultMin int
	Appearance         string
	Behavior           map[string]any
	Safety             SafetyConfig
	ClampMeters        map[string]MeterClamp
	EntryEffects       []Effect
	ExitEffects        []Effect
	Stacking           string // "highest" (default) | "stack" | "replace"
	Exclusions         []string
}

// ChoiceDef is one authored, player-facing option on a node.
type ChoiceDef struct {
	ID           string
	Label        string
	Conditions   string
	OnSelect     []Effect
	TimeCost     *int
	TimeCategory string
}

// TransitionDef is one candidate next-node rule, evaluated top to bottom.
type TransitionDef struct {
	When   string
	Target string
}

// NodeDef is an authored story unit (§4.11).
type NodeDef struct {
	ID             string
	Type           string // scene|hub|encounter|ending
	Title          string
	Preconditions  string
	Once           bool
	EntryEffects   []Effect
	ExitEffects    []Effect
	Beats          []string
	Choices        []ChoiceDef
	DynamicChoices []ChoiceDef
	Transitions    []TransitionDef
	TimeBehavior   map[string]TimeDefaultDef // kind -> {category/cap_per_visit}
}

// EventTrigger classifies how an event becomes eligible (§4.13).
type EventTrigger struct {
	Kind     string // scheduled|conditional|location|random
	When     string
	Location string
	Weight   float64
}

// EventDef is an authored world event.
type EventDef struct {
	ID          string
	Trigger     EventTrigger
	Effects     []Effect
	Beats       []string
	CooldownMin int
	OncePerGame bool
}

// ArcStageDef is one step of a character/story arc.
type ArcStageDef struct {
	ID           string
	AdvanceWhen  string
	OnAdvance    []Effect
	OnEnter      []Effect
}

// ArcDef is an authored multi-stage progression.
type ArcDef struct {
	ID     string
	Stages []ArcStageDef
}

// ActionDef is a globally unlockable action (distinct from a node choice).
type ActionDef struct {
	ID           string
	Label        string
	Conditions   string
	Effects      []Effect
	TimeCost     *int
	TimeCategory string
}
