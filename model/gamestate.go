package model

// GameState is the read-only world view the host exposes for one tick.
// Only visible enemies are reported; everything else is the bot's own view.
type GameState struct {
	Iteration int     `json:"iteration"`
	Time      float64 `json:"time"` // simulated seconds

	Units         []Unit `json:"units"`   // own units and structures
	Enemies       []Unit `json:"enemies"` // visible enemy units and structures
	MineralFields []Unit `json:"mineralFields"`

	Minerals   int `json:"minerals"`
	Vespene    int `json:"vespene"`
	SupplyUsed int `json:"supplyUsed"`
	SupplyCap  int `json:"supplyCap"`

	StartLocation       Point   `json:"startLocation"`
	EnemyStartLocations []Point `json:"enemyStartLocations"`
	ExpansionLocations  []Point `json:"expansionLocations"`
	MapCenter           Point   `json:"mapCenter"`
	Bounds              Rect    `json:"bounds"`

	// OpeningDone mirrors the host build-order runner's completion flag.
	OpeningDone bool `json:"openingDone"`
}

// Order is one entry in a unit's order queue.
type Order struct {
	Ability   AbilityID `json:"ability"`
	TargetTag uint64    `json:"targetTag,omitempty"`
	Target    *Point    `json:"target,omitempty"`
}

type Unit struct {
	Tag           uint64   `json:"tag"`
	Type          UnitType `json:"type"`
	Pos           Point    `json:"pos"`
	BuildProgress float64  `json:"buildProgress"`
	Health        float64  `json:"health"`
	HealthMax     float64  `json:"healthMax"`
	Energy        float64  `json:"energy"`
	CargoUsed     int      `json:"cargoUsed"`
	Orders        []Order  `json:"orders"`

	AssignedHarvesters int `json:"assignedHarvesters"`
	IdealHarvesters    int `json:"idealHarvesters"`
}

// IsReady reports whether the unit has finished construction.
func (u Unit) IsReady() bool { return u.BuildProgress >= 1 }

func (u Unit) IsIdle() bool { return len(u.Orders) == 0 }

// HealthFraction is health/health_max, 1 when the host reports no maximum.
func (u Unit) HealthFraction() float64 {
	if u.HealthMax <= 0 {
		return 1
	}
	return u.Health / u.HealthMax
}

func (u Unit) IsStructure() bool { return u.Type.IsStructure() }

// OrderTarget returns the target point of the first order, if any.
func (u Unit) OrderTarget() (Point, bool) {
	if len(u.Orders) == 0 || u.Orders[0].Target == nil {
		return Point{}, false
	}
	return *u.Orders[0].Target, true
}

// UnitByTag looks up an own unit by tag.
func (gs *GameState) UnitByTag(tag uint64) (Unit, bool) {
	for _, u := range gs.Units {
		if u.Tag == tag {
			return u, true
		}
	}
	return Unit{}, false
}

// Townhalls returns own ready townhalls (command centers and morphs).
func (gs *GameState) Townhalls() []Unit {
	var out []Unit
	for _, u := range gs.Units {
		if u.Type.IsTownhall() && u.IsReady() {
			out = append(out, u)
		}
	}
	return out
}

// OwnOfType returns own units of any of the given types.
func (gs *GameState) OwnOfType(types ...UnitType) []Unit {
	var out []Unit
	for _, u := range gs.Units {
		for _, t := range types {
			if u.Type == t {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// SupplyLeft is cap minus used, never negative.
func (gs *GameState) SupplyLeft() int {
	if gs.SupplyCap < gs.SupplyUsed {
		return 0
	}
	return gs.SupplyCap - gs.SupplyUsed
}
