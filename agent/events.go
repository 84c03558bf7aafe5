package agent

import (
	"fmt"

	"github.com/nstehr/ego/model"
)

// EventKind identifies a game event worth recording next to the engine's
// own audit trail.
type EventKind string

const (
	EventCriticalStructureLost EventKind = "critical_structure_lost"
	EventArmyDevastated        EventKind = "army_devastated"
	EventEnemyBaseDiscovered   EventKind = "enemy_base_discovered"
	EventOpeningComplete       EventKind = "opening_complete"
	EventEconomyCrisis         EventKind = "economy_crisis"
	EventFirstContact          EventKind = "first_contact"
)

// Event is detected by diffing consecutive game states.
type Event struct {
	Kind      EventKind
	Iteration int
	Detail    string
}

// stateSnapshot captures the diffable fields from a game state tick.
type stateSnapshot struct {
	structures     map[uint64]model.UnitType // tag → type for own structures
	armyCount      int
	workerCount    int
	minerals       int
	openingDone    bool
	enemiesSeen    bool
	enemyTownhalls map[uint64]bool
}

// critical structures are the ones whose loss changes what the bot can do.
func isCriticalStructure(t model.UnitType) bool {
	if t.IsTownhall() {
		return true
	}
	for _, p := range model.ProductionTypes {
		if p == t {
			return true
		}
	}
	return false
}

// takeSnapshot captures the current diffable state for next tick's comparison.
func takeSnapshot(gs *model.GameState) stateSnapshot {
	snap := stateSnapshot{
		structures:     make(map[uint64]model.UnitType),
		minerals:       gs.Minerals,
		openingDone:    gs.OpeningDone,
		enemiesSeen:    len(gs.Enemies) > 0,
		enemyTownhalls: make(map[uint64]bool),
	}
	for _, u := range gs.Units {
		switch {
		case u.IsStructure():
			snap.structures[u.Tag] = u.Type
		case u.Type.IsWorker():
			snap.workerCount++
		case u.Type.IsArmy():
			snap.armyCount++
		}
	}
	for _, e := range gs.Enemies {
		if e.Type.IsTownhall() {
			snap.enemyTownhalls[e.Tag] = true
		}
	}
	return snap
}

// detectEvents compares the current snapshot against the previous one and
// returns any triggered events. Returns nil if prev is nil (first tick).
func detectEvents(iteration int, prev *stateSnapshot, cur stateSnapshot) []Event {
	if prev == nil {
		return nil
	}

	var events []Event

	// 1. critical_structure_lost: a townhall or production structure is gone
	for tag, typ := range prev.structures {
		if !isCriticalStructure(typ) {
			continue
		}
		if _, exists := cur.structures[tag]; !exists {
			events = append(events, Event{
				Kind:      EventCriticalStructureLost,
				Iteration: iteration,
				Detail:    fmt.Sprintf("lost %s (tag %d)", typ, tag),
			})
			break // one event per tick is enough
		}
	}

	// 2. army_devastated: more than half the army lost (floor of 6 to avoid early noise)
	if prev.armyCount >= 6 {
		lost := prev.armyCount - cur.armyCount
		if lost > 0 && float64(lost)/float64(prev.armyCount) > 0.5 {
			events = append(events, Event{
				Kind:      EventArmyDevastated,
				Iteration: iteration,
				Detail:    fmt.Sprintf("army %d→%d (lost %d%%)", prev.armyCount, cur.armyCount, 100*lost/prev.armyCount),
			})
		}
	}

	// 3. enemy_base_discovered: first enemy townhall sighting
	if len(prev.enemyTownhalls) == 0 && len(cur.enemyTownhalls) > 0 {
		events = append(events, Event{
			Kind:      EventEnemyBaseDiscovered,
			Iteration: iteration,
			Detail:    fmt.Sprintf("%d enemy townhall(s) visible", len(cur.enemyTownhalls)),
		})
	}

	// 4. opening_complete: the host's build order finished
	if !prev.openingDone && cur.openingDone {
		events = append(events, Event{
			Kind:      EventOpeningComplete,
			Iteration: iteration,
			Detail:    "opening build order complete",
		})
	}

	// 5. economy_crisis: all workers lost
	if prev.workerCount > 0 && cur.workerCount == 0 {
		events = append(events, Event{
			Kind:      EventEconomyCrisis,
			Iteration: iteration,
			Detail:    "all workers lost",
		})
	}

	// 6. first_contact: enemies visible for the first time
	if !prev.enemiesSeen && cur.enemiesSeen {
		events = append(events, Event{
			Kind:      EventFirstContact,
			Iteration: iteration,
			Detail:    "enemies now visible",
		})
	}

	return events
}
