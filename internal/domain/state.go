package domain

// ClothingState is the wear state of a garment in a slot (§4.4).
type ClothingState string

const (
	ClothingIntact    ClothingState = "intact"
	ClothingOpened    ClothingState = "opened"
	ClothingDisplaced ClothingState = "displaced"
	ClothingRemoved   ClothingState = "removed"
)

// WornItem is what occupies one clothing slot.
type WornItem struct {
	ItemID string
	State  ClothingState
}

// ModifierState tracks a single active modifier instance on a character.
type ModifierState struct {
	RemainingMinutes int
	AutoApplied      bool // true if activated by its own `when`, not an explicit effect
}

// CharacterState is the mutable per-session state of one character
// (including the distinguished player, id "player").
type CharacterState struct {
	Meters             map[string]float64
	Modifiers          map[string]ModifierState
	Inventory          map[string]int
	ClothingInventory  map[string]int
	OwnedOutfits       map[string]bool
	ClothingWorn       map[string]WornItem // slot -> worn item
	ActiveOutfit       string
	GrantedOutfitItems map[string]map[string]bool // outfitId -> set<itemId>
	LocationPin        string
}

// NewCharacterState returns a zero-valued, fully initialized state so
// callers never need a nil-map check before writing to it.
func NewCharacterState() *CharacterState {
	return &CharacterState{
		Meters:             map[string]float64{},
		Modifiers:          map[string]ModifierState{},
		Inventory:          map[string]int{},
		ClothingInventory:  map[string]int{},
		OwnedOutfits:       map[string]bool{},
		ClothingWorn:       map[string]WornItem{},
		GrantedOutfitItems: map[string]map[string]bool{},
	}
}

// Clone deep-copies a CharacterState for snapshotting.
func (c *CharacterState) Clone() *CharacterState {
	out := NewCharacterState()
	for k, v := range c.Meters {
		out.Meters[k] = v
	}
	for k, v := range c.Modifiers {
		out.Modifiers[k] = v
	}
	for k, v := range c.Inventory {
		out.Inventory[k] = v
	}
	for k, v := range c.ClothingInventory {
		out.ClothingInventory[k] = v
	}
	for k, v := range c.OwnedOutfits {
		out.OwnedOutfits[k] = v
	}
	for k, v := range c.ClothingWorn {
		out.ClothingWorn[k] = v
	}
	for outfit, items := range c.GrantedOutfitItems {
		set := make(map[string]bool, len(items))
		for id, v := range items {
			set[id] = v
		}
		out.GrantedOutfitItems[outfit] = set
	}
	out.ActiveOutfit = c.ActiveOutfit
	out.LocationPin = c.LocationPin
	return out
}

// Time is the minute-accurate game clock.
type Time struct {
	Day          int
	MinutesOfDay int
	Slot         string // derived
	Weekday      string // derived
}

// Location pins the session to a zone/location pair.
type Location struct {
	Zone string
	ID   string
}

// CharacterMemory is one line the Checker recorded about a character.
type CharacterMemory struct {
	Turn    int
	Day     int
	Char    string
	Text    string
	Visible bool // false for memories the player should not see verbatim
}

const (
	defaultNarrativeHistoryCap = 50
	defaultMemoryLogCap        = 200
)

// GameState is the mutable per-session state (§3). A Runtime owns exactly
// one GameState and hands it to services by reference for the duration of
// a single turn; no service retains it across turns.
type GameState struct {
	Time     Time
	Location Location

	Characters map[string]*CharacterState // id -> state, including "player"

	Flags               map[string]any
	LocationInventory    map[string]map[string]int // locationId -> itemId -> count
	DiscoveredLocations  map[string]bool
	DiscoveredZones      map[string]bool
	UnlockedActions      map[string]bool
	UnlockedEndings      map[string]bool
	LockedItems          map[string]bool
	LockedClothing       map[string]bool
	LockedOutfits        map[string]bool
	LockedZones          map[string]bool
	LockedLocations      map[string]bool
	LockedActions        map[string]bool
	LockedEndings        map[string]bool

	ArcProgress map[string]int      // arcId -> stage index
	ArcHistory  map[string][]string // arcId -> stage ids reached, in order

	EventCooldowns  map[string]int // eventId -> minutes remaining
	EventsOncePerGame map[string]bool

	CurrentNode string
	NodesVisited map[string]bool // nodeId -> ever entered, for `once` nodes
	GameOver     bool            // set once an `ending` node is entered

	TurnCount int

	NarrativeHistory []string
	MemoryLog        []CharacterMemory
	NarrativeSummary string
	AITurnsSinceSummary int

	TimeInCurrentNode int

	BaseRngSeed int64
}

const PlayerID = "player"

// NewGameState builds the initial state from the game's start block.
func NewGameState(g *Game, baseRngSeed int64) *GameState {
	s := &GameState{
		Characters:          map[string]*CharacterState{},
		Flags:               map[string]any{},
		LocationInventory:   map[string]map[string]int{},
		DiscoveredLocations: map[string]bool{},
		DiscoveredZones:     map[string]bool{},
		UnlockedActions:     map[string]bool{},
		UnlockedEndings:     map[string]bool{},
		LockedItems:         map[string]bool{},
		LockedClothing:      map[string]bool{},
		LockedOutfits:       map[string]bool{},
		LockedZones:         map[string]bool{},
		LockedLocations:     map[string]bool{},
		LockedActions:       map[string]bool{},
		LockedEndings:       map[string]bool{},
		ArcProgress:         map[string]int{},
		ArcHistory:          map[string][]string{},
		EventCooldowns:      map[string]int{},
		EventsOncePerGame:   map[string]bool{},
		NodesVisited:        map[string]bool{},
		BaseRngSeed:         baseRngSeed,
	}

	start := g.Start()
	s.Time = Time{Day: start.Day, MinutesOfDay: start.Minute}
	s.Location = Location{Zone: start.Zone, ID: start.Location}
	s.CurrentNode = start.Node
	s.NodesVisited[start.Node] = true
	s.DiscoveredLocations[start.Location] = true
	s.DiscoveredZones[start.Zone] = true

	for k, v := range start.Flags {
		s.Flags[k] = v
	}
	for id, f := range g.flags {
		if _, ok := s.Flags[id]; !ok {
			s.Flags[id] = f.Default
		}
	}

	for id, c := range g.characters {
		cs := NewCharacterState()
		for meterID, def := range g.meters {
			if override, ok := c.MeterOverrides[meterID]; ok {
				cs.Meters[meterID] = override
			} else {
				cs.Meters[meterID] = def.Default
			}
		}
		if c.DefaultLocation != "" {
			cs.LocationPin = c.DefaultLocation
		}
		s.Characters[id] = cs
	}
	if _, ok := s.Characters[PlayerID]; !ok {
		cs := NewCharacterState()
		for meterID, def := range g.meters {
			cs.Meters[meterID] = def.Default
		}
		s.Characters[PlayerID] = cs
	}

	return s
}

// Character returns the character state for id, creating an empty one on
// first access so callers never dereference nil (mirrors the generous
// "unknown ids are logged and skipped, not fatal" contract in §3).
func (s *GameState) Character(id string) *CharacterState {
	cs, ok := s.Characters[id]
	if !ok {
		cs = NewCharacterState()
		s.Characters[id] = cs
	}
	return cs
}

// PushNarrative appends a narrative-history line, trimming to the bounded
// deque cap described in §3.
func (s *GameState) PushNarrative(line string) {
	s.NarrativeHistory = append(s.NarrativeHistory, line)
	if len(s.NarrativeHistory) > defaultNarrativeHistoryCap {
		s.NarrativeHistory = s.NarrativeHistory[len(s.NarrativeHistory)-defaultNarrativeHistoryCap:]
	}
}

// PushMemory appends a character memory line, trimming to its bounded cap.
func (s *GameState) PushMemory(m CharacterMemory) {
	s.MemoryLog = append(s.MemoryLog, m)
	if len(s.MemoryLog) > defaultMemoryLogCap {
		s.MemoryLog = s.MemoryLog[len(s.MemoryLog)-defaultMemoryLogCap:]
	}
}

// Clone performs the shallow-per-field, deep-per-map clone used by the
// orchestrator to take a pre-turn snapshot for rollback (§3 "Snapshot").
func (s *GameState) Clone() *GameState {
	out := &GameState{
		Time:                 s.Time,
		Location:             s.Location,
		Characters:           make(map[string]*CharacterState, len(s.Characters)),
		Flags:                make(map[string]any, len(s.Flags)),
		LocationInventory:    make(map[string]map[string]int, len(s.LocationInventory)),
		DiscoveredLocations:  cloneBoolSet(s.DiscoveredLocations),
		DiscoveredZones:      cloneBoolSet(s.DiscoveredZones),
		UnlockedActions:      cloneBoolSet(s.UnlockedActions),
		UnlockedEndings:      cloneBoolSet(s.UnlockedEndings),
		LockedItems:          cloneBoolSet(s.LockedItems),
		LockedClothing:       cloneBoolSet(s.LockedClothing),
		LockedOutfits:        cloneBoolSet(s.LockedOutfits),
		LockedZones:          cloneBoolSet(s.LockedZones),
		LockedLocations:      cloneBoolSet(s.LockedLocations),
		LockedActions:        cloneBoolSet(s.LockedActions),
		LockedEndings:        cloneBoolSet(s.LockedEndings),
		ArcProgress:          make(map[string]int, len(s.ArcProgress)),
		ArcHistory:           make(map[string][]string, len(s.ArcHistory)),
		EventCooldowns:       make(map[string]int, len(s.EventCooldowns)),
		EventsOncePerGame:    cloneBoolSet(s.EventsOncePerGame),
		CurrentNode:          s.CurrentNode,
		NodesVisited:         cloneBoolSet(s.NodesVisited),
		GameOver:             s.GameOver,
		TurnCount:            s.TurnCount,
		NarrativeHistory:     append([]string(nil), s.NarrativeHistory...),
		MemoryLog:            append([]CharacterMemory(nil), s.MemoryLog...),
		NarrativeSummary:     s.NarrativeSummary,
		AITurnsSinceSummary:  s.AITurnsSinceSummary,
		TimeInCurrentNode:    s.TimeInCurrentNode,
		BaseRngSeed:          s.BaseRngSeed,
	}
	for id, cs := range s.Characters {
		out.Characters[id] = cs.Clone()
	}
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	for loc, items := range s.LocationInventory {
		m := make(map[string]int, len(items))
		for k, v := range items {
			m[k] = v
		}
		out.LocationInventory[loc] = m
	}
	for k, v := range s.ArcProgress {
		out.ArcProgress[k] = v
	}
	for k, v := range s.ArcHistory {
		out.ArcHistory[k] = append([]string(nil), v...)
	}
	for k, v := range s.EventCooldowns {
		out.EventCooldowns[k] = v
	}
	return out
}

func cloneBoolSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
