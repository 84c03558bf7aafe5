package sensors

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nstehr/ego/model"
)

func baseState() *model.GameState {
	return &model.GameState{
		Time:                60,
		Minerals:            350,
		Vespene:             100,
		SupplyUsed:          23,
		SupplyCap:           23,
		StartLocation:       model.Point{X: 30, Y: 30},
		EnemyStartLocations: []model.Point{{X: 150, Y: 150}},
		ExpansionLocations: []model.Point{
			{X: 30, Y: 30}, {X: 150, Y: 150}, // mains
			{X: 50, Y: 35}, {X: 130, Y: 145}, // naturals
			{X: 90, Y: 90},
		},
		Units: []model.Unit{
			{Tag: 1, Type: model.CommandCenter, Pos: model.Point{X: 30, Y: 30}, BuildProgress: 1, AssignedHarvesters: 12, IdealHarvesters: 16},
			{Tag: 2, Type: model.CommandCenter, Pos: model.Point{X: 50, Y: 35}, BuildProgress: 0.4},
			{Tag: 3, Type: model.SCV, BuildProgress: 1},
			{Tag: 4, Type: model.SCV, BuildProgress: 1, Orders: []model.Order{{Ability: model.AbilityHarvestGather}}},
			{Tag: 5, Type: model.Barracks, BuildProgress: 1},
			{Tag: 6, Type: model.Barracks, BuildProgress: 1, Orders: []model.Order{{Ability: 560}}},
			{Tag: 7, Type: model.Marine, BuildProgress: 1},
			{Tag: 8, Type: model.SupplyDepot, BuildProgress: 0.5},
		},
	}
}

func TestEconomy(t *testing.T) {
	eco := Economy(baseState())
	want := map[model.UnitType]int{
		model.CommandCenter: 1, model.SCV: 2, model.Barracks: 2, model.Marine: 1,
	}
	if diff := cmp.Diff(want, eco.Ready); diff != "" {
		t.Errorf("ready histogram mismatch (-want +got):\n%s", diff)
	}
	if eco.SupplyLeft != eco.SupplyCap-eco.SupplyUsed || eco.SupplyLeft != 0 {
		t.Errorf("supply = %d/%d left %d", eco.SupplyUsed, eco.SupplyCap, eco.SupplyLeft)
	}
	if eco.Minerals != 350 || eco.Gas != 100 {
		t.Errorf("resources = %d/%d", eco.Minerals, eco.Gas)
	}
}

func TestEconomySupplyOverCap(t *testing.T) {
	gs := baseState()
	gs.SupplyUsed = 30
	gs.SupplyCap = 22
	eco := Economy(gs)
	if eco.SupplyCap != 22 || eco.SupplyUsed != 30 {
		t.Errorf("supply = %d/%d, want the host's 30/22", eco.SupplyUsed, eco.SupplyCap)
	}
	if eco.SupplyLeft != 0 {
		t.Errorf("left = %d, want floored at 0", eco.SupplyLeft)
	}
}

func TestEconomyNilState(t *testing.T) {
	eco := Economy(nil)
	if eco.Ready == nil || eco.SupplyLeft != 0 {
		t.Errorf("nil state should give zeroed snapshot, got %+v", eco)
	}
}

func TestMacro(t *testing.T) {
	m := Macro(baseState())
	if m.Bases != 2 || m.BasesReady != 1 {
		t.Errorf("bases = %d ready %d, want 2/1", m.Bases, m.BasesReady)
	}
	if m.Workers != 2 || m.WorkersIdle != 1 {
		t.Errorf("workers = %d idle %d, want 2/1", m.Workers, m.WorkersIdle)
	}
	if m.Production != 2 || m.ProductionIdle != 1 || m.ProductionActive != 1 {
		t.Errorf("production = %d/%d/%d", m.Production, m.ProductionIdle, m.ProductionActive)
	}
	if !m.SupplyBlocked {
		t.Error("23/23 supply should be blocked")
	}
	if diff := cmp.Diff([]uint64{1}, m.UnderSaturated); diff != "" {
		t.Errorf("under-saturated mismatch:\n%s", diff)
	}
}

func TestMacroSkipsZeroIdeal(t *testing.T) {
	gs := baseState()
	gs.Units[0].IdealHarvesters = 0
	gs.Units[0].AssignedHarvesters = 5
	m := Macro(gs)
	if len(m.UnderSaturated) != 0 || len(m.OverSaturated) != 0 {
		t.Errorf("base with ideal 0 should be skipped: %+v", m)
	}
}

func TestCombat(t *testing.T) {
	gs := baseState()
	gs.Enemies = []model.Unit{
		{Tag: 100, Type: model.Zergling, Pos: model.Point{X: 32, Y: 30}},
		{Tag: 101, Type: model.Zergling, Pos: model.Point{X: 34, Y: 30}},
		{Tag: 102, Type: model.Drone, Pos: model.Point{X: 31, Y: 31}},      // lone worker: ignored
		{Tag: 103, Type: model.Overlord, Pos: model.Point{X: 30, Y: 31}},   // ignored
		{Tag: 104, Type: model.Zergling, Pos: model.Point{X: 100, Y: 100}}, // far away
		{Tag: 105, Type: model.Hatchery, Pos: model.Point{X: 30, Y: 40}},   // structure
	}
	c := Combat(gs, DefaultConfig())
	if !c.Threatened || c.EnemiesNearBases != 2 {
		t.Fatalf("combat = %+v, want 2 near and threatened", c)
	}
	if c.DefenseUrgency != 30 {
		t.Errorf("urgency = %d, want 30", c.DefenseUrgency)
	}
	if c.ThreatPos == nil || *c.ThreatPos != (model.Point{X: 33, Y: 30}) {
		t.Errorf("threat pos = %v, want centroid (33,30)", c.ThreatPos)
	}
}

func TestCombatUrgencyClamped(t *testing.T) {
	gs := baseState()
	for i := range 20 {
		gs.Enemies = append(gs.Enemies, model.Unit{Tag: uint64(200 + i), Type: model.Marine, Pos: model.Point{X: 31, Y: 31}})
	}
	c := Combat(gs, DefaultConfig())
	if c.DefenseUrgency != 100 {
		t.Errorf("urgency = %d, want clamp at 100", c.DefenseUrgency)
	}
}

func TestCombatWorkerRush(t *testing.T) {
	gs := baseState()
	for i := range 3 {
		gs.Enemies = append(gs.Enemies, model.Unit{Tag: uint64(300 + i), Type: model.Probe, Pos: model.Point{X: 29, Y: 29}})
	}
	if c := Combat(gs, DefaultConfig()); c.EnemiesNearBases != 3 {
		t.Errorf("worker rush should count, got %d", c.EnemiesNearBases)
	}
}

func TestEnemyBuild(t *testing.T) {
	gs := baseState()
	gs.Enemies = []model.Unit{
		{Tag: 1, Type: model.Hatchery, Pos: model.Point{X: 150, Y: 150}, BuildProgress: 1},
		{Tag: 2, Type: model.Hatchery, Pos: model.Point{X: 131, Y: 146}, BuildProgress: 0.3},
		{Tag: 3, Type: model.SpawningPool, Pos: model.Point{X: 145, Y: 155}, BuildProgress: 1.4},
		{Tag: 4, Type: model.Drone, Pos: model.Point{X: 148, Y: 148}},
		{Tag: 5, Type: model.Zergling, Pos: model.Point{X: 90, Y: 90}},
	}
	eb, err := EnemyBuild(gs, DefaultConfig())
	if err != nil {
		t.Fatalf("EnemyBuild: %v", err)
	}
	if eb.EnemyNatural == nil || *eb.EnemyNatural != (model.Point{X: 130, Y: 145}) {
		t.Errorf("natural = %v, want (130,145)", eb.EnemyNatural)
	}
	if !eb.NaturalOnGround {
		t.Error("hatchery at the natural should be on ground")
	}
	if eb.Townhalls != 2 {
		t.Errorf("townhalls = %d, want 2", eb.Townhalls)
	}
	if eb.UnitsInMain[model.Drone] != 1 || eb.UnitsInMain[model.Zergling] != 0 {
		t.Errorf("units in main = %v", eb.UnitsInMain)
	}
	if eb.StructuresInMain[model.SpawningPool] != 1 {
		t.Errorf("structures in main = %v", eb.StructuresInMain)
	}

	hatch := eb.Progress[model.Hatchery]
	if hatch.Count != 2 || hatch.Ready != 1 || hatch.Min != 0.3 || hatch.Max != 1 || hatch.Avg != 0.65 {
		t.Errorf("hatchery progress = %+v", hatch)
	}
	if pool := eb.Progress[model.SpawningPool]; pool.Max != 1 {
		t.Errorf("progress should clamp to 1, got %+v", pool)
	}
}

func TestEnemyBuildStrictInputs(t *testing.T) {
	gs := baseState()
	gs.Enemies = []model.Unit{{Tag: 1, Type: model.Zealot}}
	gs.EnemyStartLocations = nil

	eb, err := EnemyBuild(gs, DefaultConfig())
	var sf *SensorFailure
	if !errors.As(err, &sf) || sf.Field != "enemy_start_locations" {
		t.Fatalf("err = %v, want SensorFailure on enemy_start_locations", err)
	}
	if eb.Units[model.Zealot] != 1 || eb.EnemyMain != nil {
		t.Errorf("partial snapshot = %+v", eb)
	}

	gs = baseState()
	gs.ExpansionLocations = nil
	eb, err = EnemyBuild(gs, DefaultConfig())
	if !errors.As(err, &sf) || sf.Field != "expansion_locations" {
		t.Fatalf("err = %v, want SensorFailure on expansion_locations", err)
	}
	if eb.EnemyMain == nil || eb.EnemyNatural != nil || eb.NaturalOnGround {
		t.Errorf("natural fields should default when expansions are missing: %+v", eb)
	}
}
