// Package movement implements direction/goto/travel moves, companion
// willingness gates, and discovery/lock checks (§4.6).
package movement

import (
	"fmt"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/dsl"
)

// Result carries the outcome of a move: either it applied (with the
// resulting location and a time cost in minutes), or it was refused.
type Result struct {
	OK       bool
	Refusal  string
	Location domain.Location
	Minutes  int
}

func refuse(msg string) Result { return Result{OK: false, Refusal: msg} }

// Service resolves moves.
type Service struct {
	game *domain.Game
	eval *dsl.Evaluator
}

// NewService creates a new movement Service.
func NewService(game *domain.Game, eval *dsl.Evaluator) *Service {
	return &Service{game: game, eval: eval}
}

// checkCompanions verifies every named companion is present and willing
// (§4.6 Companions).
func (s *Service) checkCompanions(state *domain.GameState, present map[string]bool, with []string, kind string, envFor func(string) map[string]any) error {
	for _, npc := range with {
		if !present[npc] {
			return fmt.Errorf("%s is not here", npc)
		}
		env := envFor(npc)
		if !s.eval.EvalBool("gates."+npc+".follow_player", env) {
			return fmt.Errorf("%s is unwilling to follow", npc)
		}
		kindGate := "follow_player_" + kind
		if _, ok := s.gateDefined(npc, kindGate); ok {
			if !s.eval.EvalBool("gates."+npc+"."+kindGate, env) {
				return fmt.Errorf("%s is unwilling to %s with you", npc, kind)
			}
		}
	}
	return nil
}

func (s *Service) gateDefined(charID, gateID string) (domain.GateDef, bool) {
	def, ok := s.game.Character(charID)
	if !ok {
		return domain.GateDef{}, false
	}
	for _, g := range def.Gates {
		if g.ID == gateID {
			return g, true
		}
	}
	return domain.GateDef{}, false
}

// Direction resolves a local, in-zone move along a named direction.
func (s *Service) Direction(state *domain.GameState, present map[string]bool, direction string, with []string, envFor func(string) map[string]any) Result {
	loc, ok := s.game.Location(state.Location.ID)
	if !ok {
		return refuse("unknown current location")
	}
	var conn *domain.LocationConnection
	for i := range loc.Connections {
		if loc.Connections[i].Direction == direction {
			conn = &loc.Connections[i]
			break
		}
	}
	if conn == nil {
		return refuse(fmt.Sprintf("there is no way to go %q from here", direction))
	}
	if err := s.checkCompanions(state, present, with, "move", envFor); err != nil {
		return refuse(err.Error())
	}
	if err := s.checkAccess(state, conn.To, envFor(domain.PlayerID)); err != nil {
		return refuse(err.Error())
	}
	minutes := s.localTime(conn.Distance)
	return Result{OK: true, Location: domain.Location{Zone: state.Location.Zone, ID: conn.To}, Minutes: minutes}
}

func (s *Service) localTime(distance string) int {
	cfg := s.game.Movement().Local
	mod, ok := cfg.DistanceModifiers[distance]
	if !ok {
		mod = 1
	}
	return int(float64(cfg.BaseTime) * mod)
}

// reachable does a BFS over same-zone connections to confirm target is
// transitively reachable from current.
func (s *Service) reachable(zone, from, to string) (int, bool) {
	if from == to {
		return 0, true
	}
	type queued struct {
		id   string
		hops int
	}
	visited := map[string]bool{from: true}
	queue := []queued{{from, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		loc, ok := s.game.Location(cur.id)
		if !ok {
			continue
		}
		for _, conn := range loc.Connections {
			if visited[conn.To] {
				continue
			}
			if conn.To == to {
				return cur.hops + 1, true
			}
			visited[conn.To] = true
			queue = append(queue, queued{conn.To, cur.hops + 1})
		}
	}
	return 0, false
}

// Goto resolves an in-zone move to an arbitrary reachable location.
func (s *Service) Goto(state *domain.GameState, present map[string]bool, target string, with []string, envFor func(string) map[string]any) Result {
	hops, ok := s.reachable(state.Location.Zone, state.Location.ID, target)
	if !ok {
		return refuse(fmt.Sprintf("%s is not reachable from here", target))
	}
	if err := s.checkCompanions(state, present, with, "goto", envFor); err != nil {
		return refuse(err.Error())
	}
	if err := s.checkAccess(state, target, envFor(domain.PlayerID)); err != nil {
		return refuse(err.Error())
	}
	minutes := hops * s.localTime("short")
	if hops == 1 {
		// Prefer the direct edge's own distance cost when adjacent.
		if loc, ok := s.game.Location(state.Location.ID); ok {
			for _, conn := range loc.Connections {
				if conn.To == target {
					minutes = s.localTime(conn.Distance)
				}
			}
		}
	}
	return Result{OK: true, Location: domain.Location{Zone: state.Location.Zone, ID: target}, Minutes: minutes}
}

func (s *Service) findZoneConnection(fromZone, toZone, method string) (domain.ZoneConnectionDef, domain.TravelMethodDef, bool) {
	zone, ok := s.game.Zone(fromZone)
	if !ok {
		return domain.ZoneConnectionDef{}, domain.TravelMethodDef{}, false
	}
	for _, zc := range zone.Connections {
		if zc.ToZone != toZone {
			continue
		}
		for _, m := range zc.Methods {
			if method == "" || m.Name == method {
				return zc, m, true
			}
		}
	}
	return domain.ZoneConnectionDef{}, domain.TravelMethodDef{}, false
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Travel resolves a cross-zone move (§4.6 Travel).
func (s *Service) Travel(state *domain.GameState, present map[string]bool, targetLocation, method string, distance float64, with []string, envFor func(string) map[string]any) Result {
	targetLoc, ok := s.game.Location(targetLocation)
	if !ok {
		return refuse("unknown destination")
	}
	_, travelMethod, ok := s.findZoneConnection(state.Location.Zone, targetLoc.Zone, method)
	if !ok {
		return refuse(fmt.Sprintf("no travel connection from %s to %s", state.Location.Zone, targetLoc.Zone))
	}
	if travelMethod.UseEntryExit {
		if !containsStr(travelMethod.Exits, state.Location.ID) {
			return refuse(fmt.Sprintf("%s is not a valid exit for this route", state.Location.ID))
		}
		if !containsStr(travelMethod.Entrances, targetLocation) {
			return refuse(fmt.Sprintf("%s is not a valid entrance for this route", targetLocation))
		}
	}
	if err := s.checkCompanions(state, present, with, "travel", envFor); err != nil {
		return refuse(err.Error())
	}
	if err := s.checkAccess(state, targetLocation, envFor(domain.PlayerID)); err != nil {
		return refuse(err.Error())
	}

	minutes := s.travelTime(travelMethod, distance)
	return Result{OK: true, Location: domain.Location{Zone: targetLoc.Zone, ID: targetLocation}, Minutes: minutes}
}

func (s *Service) travelTime(method domain.TravelMethodDef, distance float64) int {
	if method.TimeCost != nil {
		return int(float64(*method.TimeCost) * maxF(distance, 1))
	}
	if method.Category != "" {
		if cat, ok := s.game.Time().Categories[method.Category]; ok {
			return int(float64(cat.Minutes) * maxF(distance, 1))
		}
	}
	if method.Speed != nil && *method.Speed > 0 {
		return int(distance / *method.Speed)
	}
	return 0
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// CheckerRelocate reports whether a Checker-proposed location delta
// (§4.15 Apply rules) is a legal move from state's current location, with
// no companion check and no time cost: the Writer's prose already
// narrated the move, so this only confirms it stays inside what Direction/
// Goto/Travel would have allowed.
func (s *Service) CheckerRelocate(state *domain.GameState, target domain.Location, env map[string]any) bool {
	if target.ID == state.Location.ID && target.Zone == state.Location.Zone {
		return true
	}
	if _, ok := s.game.Location(target.ID); !ok {
		return false
	}
	if err := s.checkAccess(state, target.ID, env); err != nil {
		return false
	}
	if target.Zone == state.Location.Zone {
		_, ok := s.reachable(state.Location.Zone, state.Location.ID, target.ID)
		return ok
	}
	_, _, ok := s.findZoneConnection(state.Location.Zone, target.Zone, "")
	return ok
}

// checkAccess verifies target is discovered-or-discoverable and not
// locked (§4.6 Access).
func (s *Service) checkAccess(state *domain.GameState, target string, env map[string]any) error {
	loc, ok := s.game.Location(target)
	if !ok {
		return fmt.Errorf("unknown location %s", target)
	}
	if !state.DiscoveredLocations[target] {
		if loc.DiscoveryConditions != "" && !s.eval.EvalBool(loc.DiscoveryConditions, env) {
			return fmt.Errorf("%s has not been discovered", target)
		}
		state.DiscoveredLocations[target] = true
	}
	if state.LockedLocations[target] || (loc.Locked && (loc.UnlockWhen == "" || !s.eval.EvalBool(loc.UnlockWhen, env))) {
		return fmt.Errorf("%s is locked", target)
	}
	return nil
}
