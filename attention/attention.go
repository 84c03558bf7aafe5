// Package attention holds the per-tick situation record that planners and
// tasks read. An Attention is built once per tick and never mutated.
package attention

import (
	"maps"

	"github.com/nstehr/ego/model"
)

// Economy is the resource and ready-unit picture.
type Economy struct {
	Ready      map[model.UnitType]int
	SupplyUsed int
	SupplyCap  int
	SupplyLeft int
	Minerals   int
	Gas        int
}

// Macro tracks bases, workers and production.
type Macro struct {
	OpeningDone bool
	Bases       int
	BasesReady  int

	Workers     int
	WorkersIdle int

	Production       int
	ProductionIdle   int
	ProductionActive int

	SupplyBlocked bool

	// UnderSaturated and OverSaturated hold townhall tags.
	UnderSaturated []uint64
	OverSaturated  []uint64
}

// Combat summarizes pressure on our bases. Urgency is in [0,100].
type Combat struct {
	Threatened       bool
	DefenseUrgency   int
	ThreatPos        *model.Point
	EnemiesNearBases int
}

// ProgressStat aggregates build progress for one enemy structure type.
type ProgressStat struct {
	Count int
	Ready int
	Min   float64
	Max   float64
	Avg   float64
}

// EnemyBuild is what we can see of the opponent's build.
type EnemyBuild struct {
	Units            map[model.UnitType]int
	Structures       map[model.UnitType]int
	UnitsInMain      map[model.UnitType]int
	StructuresInMain map[model.UnitType]int
	Progress         map[model.UnitType]ProgressStat

	EnemyMain    *model.Point
	EnemyNatural *model.Point
	// NaturalOnGround is true when a townhall is visible at the enemy natural.
	NaturalOnGround bool
	// Townhalls counts visible enemy townhalls anywhere.
	Townhalls int
}

// Attention is the tick's immutable view. Accessors return copies of the
// histogram maps so callers cannot mutate shared state.
type Attention struct {
	iteration  int
	time       float64
	economy    Economy
	macro      Macro
	combat     Combat
	enemyBuild EnemyBuild
}

// New freezes the sub-snapshots into an Attention. Maps and slices are
// copied so later sensor reuse cannot leak into this tick.
func New(iteration int, time float64, eco Economy, mac Macro, cmb Combat, eb EnemyBuild) *Attention {
	eco.Ready = cloneHist(eco.Ready)
	mac.UnderSaturated = append([]uint64(nil), mac.UnderSaturated...)
	mac.OverSaturated = append([]uint64(nil), mac.OverSaturated...)
	cmb.ThreatPos = clonePoint(cmb.ThreatPos)
	eb.Units = cloneHist(eb.Units)
	eb.Structures = cloneHist(eb.Structures)
	eb.UnitsInMain = cloneHist(eb.UnitsInMain)
	eb.StructuresInMain = cloneHist(eb.StructuresInMain)
	eb.Progress = cloneMap(eb.Progress)
	eb.EnemyMain = clonePoint(eb.EnemyMain)
	eb.EnemyNatural = clonePoint(eb.EnemyNatural)
	return &Attention{
		iteration:  iteration,
		time:       time,
		economy:    eco,
		macro:      mac,
		combat:     cmb,
		enemyBuild: eb,
	}
}

func (a *Attention) Iteration() int { return a.iteration }

// Time is the simulated tick time in seconds.
func (a *Attention) Time() float64 { return a.time }

func (a *Attention) Economy() Economy {
	e := a.economy
	e.Ready = cloneHist(e.Ready)
	return e
}

func (a *Attention) Macro() Macro {
	m := a.macro
	m.UnderSaturated = append([]uint64(nil), m.UnderSaturated...)
	m.OverSaturated = append([]uint64(nil), m.OverSaturated...)
	return m
}

func (a *Attention) Combat() Combat {
	c := a.combat
	c.ThreatPos = clonePoint(c.ThreatPos)
	return c
}

func (a *Attention) EnemyBuild() EnemyBuild {
	e := a.enemyBuild
	e.Units = cloneHist(e.Units)
	e.Structures = cloneHist(e.Structures)
	e.UnitsInMain = cloneHist(e.UnitsInMain)
	e.StructuresInMain = cloneHist(e.StructuresInMain)
	e.Progress = cloneMap(e.Progress)
	e.EnemyMain = clonePoint(e.EnemyMain)
	e.EnemyNatural = clonePoint(e.EnemyNatural)
	return e
}

// Ready returns the ready count for one own unit type without copying.
func (a *Attention) Ready(t model.UnitType) int { return a.economy.Ready[t] }

// Urgency is a shorthand for Combat().DefenseUrgency.
func (a *Attention) Urgency() int { return a.combat.DefenseUrgency }

func (a *Attention) Threatened() bool { return a.combat.Threatened }

// ThreatPos returns the threat position, if any.
func (a *Attention) ThreatPos() (model.Point, bool) {
	if a.combat.ThreatPos == nil {
		return model.Point{}, false
	}
	return *a.combat.ThreatPos, true
}

// EnemyMain returns the inferred enemy main, if known.
func (a *Attention) EnemyMain() (model.Point, bool) {
	if a.enemyBuild.EnemyMain == nil {
		return model.Point{}, false
	}
	return *a.enemyBuild.EnemyMain, true
}

// EnemyNatural returns the inferred enemy natural, if known.
func (a *Attention) EnemyNatural() (model.Point, bool) {
	if a.enemyBuild.EnemyNatural == nil {
		return model.Point{}, false
	}
	return *a.enemyBuild.EnemyNatural, true
}

func cloneHist(m map[model.UnitType]int) map[model.UnitType]int {
	if m == nil {
		return map[model.UnitType]int{}
	}
	return maps.Clone(m)
}

func cloneMap[V any](m map[model.UnitType]V) map[model.UnitType]V {
	if m == nil {
		return map[model.UnitType]V{}
	}
	return maps.Clone(m)
}

func clonePoint(p *model.Point) *model.Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
