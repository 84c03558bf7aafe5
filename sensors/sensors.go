// Package sensors turns the host's world view into immutable attention
// sub-snapshots. Sensors are pure: no state, no side effects, and they never
// panic on missing data.
package sensors

import (
	"fmt"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/model"
)

// Config holds the positional radii and urgency scaling.
type Config struct {
	BaseRadius      float64 `yaml:"base_radius" env:"BASE_RADIUS"`
	EnemyMainRadius float64 `yaml:"enemy_main_radius" env:"ENEMY_MAIN_RADIUS"`
	NaturalRadius   float64 `yaml:"natural_radius" env:"NATURAL_RADIUS"`
	UrgencyPerEnemy int     `yaml:"urgency_per_enemy" env:"URGENCY_PER_ENEMY"`
	// WorkerRushMin is how many enemy workers near a base count as a threat.
	WorkerRushMin int `yaml:"worker_rush_min" env:"WORKER_RUSH_MIN"`
}

func DefaultConfig() Config {
	return Config{
		BaseRadius:      25,
		EnemyMainRadius: 26,
		NaturalRadius:   10,
		UrgencyPerEnemy: 15,
		WorkerRushMin:   3,
	}
}

// SensorFailure reports a strict input the host did not provide. The
// sub-snapshot returned alongside it is still usable but partial.
type SensorFailure struct {
	Sensor string
	Field  string
}

func (e *SensorFailure) Error() string {
	return fmt.Sprintf("sensor %s: missing %s", e.Sensor, e.Field)
}

// Economy builds the ready-unit histogram and resource counters.
func Economy(gs *model.GameState) attention.Economy {
	eco := attention.Economy{Ready: make(map[model.UnitType]int)}
	if gs == nil {
		return eco
	}
	for _, u := range gs.Units {
		if u.IsReady() {
			eco.Ready[u.Type]++
		}
	}
	// Used and cap are reported as the host gives them. Losing depots can
	// leave used above cap; left is floored at 0 then.
	eco.SupplyUsed = max(gs.SupplyUsed, 0)
	eco.SupplyCap = max(gs.SupplyCap, 0)
	eco.SupplyLeft = max(eco.SupplyCap-eco.SupplyUsed, 0)
	eco.Minerals = max(gs.Minerals, 0)
	eco.Gas = max(gs.Vespene, 0)
	return eco
}

// Macro counts bases, workers and production, and tags townhalls whose
// harvester assignment is off their ideal.
func Macro(gs *model.GameState) attention.Macro {
	var m attention.Macro
	if gs == nil {
		return m
	}
	m.OpeningDone = gs.OpeningDone
	for _, u := range gs.Units {
		switch {
		case u.Type.IsTownhall():
			m.Bases++
			if !u.IsReady() {
				continue
			}
			m.BasesReady++
			if u.IdealHarvesters == 0 {
				continue
			}
			if u.AssignedHarvesters < u.IdealHarvesters {
				m.UnderSaturated = append(m.UnderSaturated, u.Tag)
			} else if u.AssignedHarvesters > u.IdealHarvesters {
				m.OverSaturated = append(m.OverSaturated, u.Tag)
			}
		case u.Type == model.SCV:
			m.Workers++
			if u.IsIdle() {
				m.WorkersIdle++
			}
		case isProduction(u.Type) && u.IsReady():
			m.Production++
			if u.IsIdle() {
				m.ProductionIdle++
			} else {
				m.ProductionActive++
			}
		}
	}
	m.SupplyBlocked = gs.SupplyCap > 0 && gs.SupplyCap < 200 && gs.SupplyLeft() == 0
	return m
}

// Combat measures enemy pressure near our bases.
func Combat(gs *model.GameState, cfg Config) attention.Combat {
	var c attention.Combat
	if gs == nil {
		return c
	}
	bases := basePoints(gs)

	var army, workers []model.Unit
	for _, e := range gs.Enemies {
		if e.IsStructure() || e.Type == model.Overlord {
			continue
		}
		if !nearAny(e.Pos, bases, cfg.BaseRadius) {
			continue
		}
		if e.Type.IsWorker() {
			workers = append(workers, e)
			continue
		}
		army = append(army, e)
	}
	near := army
	if cfg.WorkerRushMin > 0 && len(workers) >= cfg.WorkerRushMin {
		near = append(near, workers...)
	}

	c.EnemiesNearBases = len(near)
	c.Threatened = len(near) > 0
	c.DefenseUrgency = clampInt(len(near)*cfg.UrgencyPerEnemy, 0, 100)
	if p, ok := model.Centroid(near); ok {
		c.ThreatPos = &p
	}
	return c
}

// EnemyBuild builds histograms of visible enemy units and structures and
// infers the enemy main and natural. A missing enemy start location or
// expansion list yields a SensorFailure with the global histograms intact.
func EnemyBuild(gs *model.GameState, cfg Config) (attention.EnemyBuild, error) {
	eb := attention.EnemyBuild{
		Units:            make(map[model.UnitType]int),
		Structures:       make(map[model.UnitType]int),
		UnitsInMain:      make(map[model.UnitType]int),
		StructuresInMain: make(map[model.UnitType]int),
		Progress:         make(map[model.UnitType]attention.ProgressStat),
	}
	if gs == nil {
		return eb, &SensorFailure{Sensor: "enemy_build", Field: "state"}
	}

	for _, e := range gs.Enemies {
		if !e.IsStructure() {
			eb.Units[e.Type]++
			continue
		}
		eb.Structures[e.Type]++
		if e.Type.IsTownhall() {
			eb.Townhalls++
		}
		addProgress(eb.Progress, e.Type, clamp01(e.BuildProgress))
	}
	for t, st := range eb.Progress {
		st.Avg /= float64(st.Count)
		eb.Progress[t] = st
	}

	if len(gs.EnemyStartLocations) == 0 {
		return eb, &SensorFailure{Sensor: "enemy_build", Field: "enemy_start_locations"}
	}
	main := enemyMain(gs, cfg)
	eb.EnemyMain = &main
	for _, e := range model.Within(gs.Enemies, main, cfg.EnemyMainRadius) {
		if e.IsStructure() {
			eb.StructuresInMain[e.Type]++
		} else {
			eb.UnitsInMain[e.Type]++
		}
	}

	natural, ok := enemyNatural(gs.ExpansionLocations, main)
	if !ok {
		return eb, &SensorFailure{Sensor: "enemy_build", Field: "expansion_locations"}
	}
	eb.EnemyNatural = &natural
	for _, e := range model.Within(gs.Enemies, natural, cfg.NaturalRadius) {
		if e.Type.IsTownhall() {
			eb.NaturalOnGround = true
			break
		}
	}
	return eb, nil
}

// enemyMain prefers a start location with a visible enemy townhall; with
// no such sighting the first listed start location is used.
func enemyMain(gs *model.GameState, cfg Config) model.Point {
	for _, loc := range gs.EnemyStartLocations {
		for _, e := range gs.Enemies {
			if e.Type.IsTownhall() && e.Pos.Distance(loc) <= cfg.EnemyMainRadius {
				return loc
			}
		}
	}
	return gs.EnemyStartLocations[0]
}

// mainExclusion keeps the main's own expansion slot out of the natural search.
const mainExclusion = 8.0

// enemyNatural is the expansion closest to the enemy main, excluding the
// main itself.
func enemyNatural(expansions []model.Point, main model.Point) (model.Point, bool) {
	var best model.Point
	bestDist := -1.0
	for _, p := range expansions {
		d := p.Distance(main)
		if d <= mainExclusion {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist >= 0
}

func addProgress(stats map[model.UnitType]attention.ProgressStat, t model.UnitType, p float64) {
	st, ok := stats[t]
	if !ok {
		st = attention.ProgressStat{Min: p, Max: p}
	}
	st.Count++
	if p >= 1 {
		st.Ready++
	}
	st.Min = min(st.Min, p)
	st.Max = max(st.Max, p)
	st.Avg += p // divided by Count once all structures are seen
	stats[t] = st
}

// basePoints are our ready townhalls, or the start location before any
// townhall is reported.
func basePoints(gs *model.GameState) []model.Point {
	var pts []model.Point
	for _, th := range gs.Townhalls() {
		pts = append(pts, th.Pos)
	}
	if len(pts) == 0 {
		pts = append(pts, gs.StartLocation)
	}
	return pts
}

func nearAny(p model.Point, pts []model.Point, r float64) bool {
	for _, q := range pts {
		if p.Distance(q) <= r {
			return true
		}
	}
	return false
}

func isProduction(t model.UnitType) bool {
	for _, p := range model.ProductionTypes {
		if p == t {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
