package model

import (
	"fmt"
	"strings"
)

// UnitType is the host's numeric unit type id.
type UnitType uint32

// AbilityID is the host's numeric ability id.
type AbilityID uint32

// Terran unit and structure type ids.
const (
	CommandCenter        UnitType = 18
	SupplyDepot          UnitType = 19
	Refinery             UnitType = 20
	Barracks             UnitType = 21
	EngineeringBay       UnitType = 22
	MissileTurret        UnitType = 23
	Bunker               UnitType = 24
	Factory              UnitType = 27
	Starport             UnitType = 28
	SiegeTank            UnitType = 33
	VikingFighter        UnitType = 35
	CommandCenterFlying  UnitType = 36
	SCV                  UnitType = 45
	SupplyDepotLowered   UnitType = 47
	Marine               UnitType = 48
	Reaper               UnitType = 49
	Ghost                UnitType = 50
	Marauder             UnitType = 51
	Thor                 UnitType = 52
	Hellion              UnitType = 53
	Medivac              UnitType = 54
	Banshee              UnitType = 55
	Raven                UnitType = 56
	Battlecruiser        UnitType = 57
	PlanetaryFortress    UnitType = 130
	OrbitalCommand       UnitType = 132
	OrbitalCommandFlying UnitType = 134
	MULE                 UnitType = 268
	Hellbat              UnitType = 484
	WidowMine            UnitType = 498
	Liberator            UnitType = 689
	Cyclone              UnitType = 692
	RefineryRich         UnitType = 1943
	MineralField         UnitType = 341
	MineralField750      UnitType = 483
)

// Zerg and Protoss type ids the enemy-build sensor cares about.
const (
	Baneling        UnitType = 9
	Nexus           UnitType = 59
	Pylon           UnitType = 60
	Assimilator     UnitType = 61
	Gateway         UnitType = 62
	CyberneticsCore UnitType = 72
	Zealot          UnitType = 73
	Stalker         UnitType = 74
	Sentry          UnitType = 77
	Probe           UnitType = 84
	Hatchery        UnitType = 86
	Extractor       UnitType = 88
	SpawningPool    UnitType = 89
	RoachWarren     UnitType = 97
	Lair            UnitType = 100
	Hive            UnitType = 101
	Drone           UnitType = 104
	Zergling        UnitType = 105
	Overlord        UnitType = 106
	Roach           UnitType = 110
	Queen           UnitType = 126
	Adept           UnitType = 311
)

// Ability ids issued by tasks.
const (
	AbilitySmart         AbilityID = 1
	AbilityStop          AbilityID = 4
	AbilityMove          AbilityID = 16
	AbilityAttack        AbilityID = 23
	AbilityCalldownMULE  AbilityID = 171
	AbilityHarvestGather AbilityID = 295
	AbilityHarvestReturn AbilityID = 296
	AbilityScannerSweep  AbilityID = 399
	AbilityDepotLower    AbilityID = 556
	AbilityDepotRaise    AbilityID = 558
)

var structureTypes = map[UnitType]bool{
	CommandCenter: true, SupplyDepot: true, SupplyDepotLowered: true, Refinery: true,
	RefineryRich: true, Barracks: true, EngineeringBay: true, MissileTurret: true,
	Bunker: true, Factory: true, Starport: true, PlanetaryFortress: true,
	OrbitalCommand: true, CommandCenterFlying: true, OrbitalCommandFlying: true,
	Nexus: true, Pylon: true, Assimilator: true, Gateway: true, CyberneticsCore: true,
	Hatchery: true, Extractor: true, SpawningPool: true, RoachWarren: true,
	Lair: true, Hive: true,
}

var townhallTypes = map[UnitType]bool{
	CommandCenter: true, OrbitalCommand: true, PlanetaryFortress: true,
	CommandCenterFlying: true, OrbitalCommandFlying: true,
	Nexus: true, Hatchery: true, Lair: true, Hive: true,
}

var workerTypes = map[UnitType]bool{
	SCV: true, Probe: true, Drone: true, MULE: true,
}

// ArmyTypes are the own combat units defend and reaper tasks may lease.
var ArmyTypes = []UnitType{
	Marine, Marauder, Reaper, Ghost, Hellion, Hellbat, SiegeTank, Cyclone,
	WidowMine, Thor, VikingFighter, Medivac, Liberator, Banshee, Raven, Battlecruiser,
}

// ProductionTypes are the own structures counted as production.
var ProductionTypes = []UnitType{Barracks, Factory, Starport}

// RefineryTypes covers both refinery variants.
var RefineryTypes = []UnitType{Refinery, RefineryRich}

// BasicUnitTypes are the cheap early units whose aggregate count signals a rush.
var BasicUnitTypes = []UnitType{Zergling, Marine, Zealot, Reaper, Adept, Baneling}

func (t UnitType) IsStructure() bool { return structureTypes[t] }
func (t UnitType) IsTownhall() bool  { return townhallTypes[t] }
func (t UnitType) IsWorker() bool    { return workerTypes[t] }
func (t UnitType) IsDepot() bool     { return t == SupplyDepot || t == SupplyDepotLowered }
func (t UnitType) IsMineral() bool   { return t == MineralField || t == MineralField750 }

func (t UnitType) IsArmy() bool {
	for _, a := range ArmyTypes {
		if a == t {
			return true
		}
	}
	return false
}

var typeNames = map[UnitType]string{
	CommandCenter: "COMMANDCENTER", SupplyDepot: "SUPPLYDEPOT", Refinery: "REFINERY",
	Barracks: "BARRACKS", EngineeringBay: "ENGINEERINGBAY", MissileTurret: "MISSILETURRET",
	Bunker: "BUNKER", Factory: "FACTORY", Starport: "STARPORT", SiegeTank: "SIEGETANK",
	VikingFighter: "VIKINGFIGHTER", CommandCenterFlying: "COMMANDCENTERFLYING", SCV: "SCV",
	SupplyDepotLowered: "SUPPLYDEPOTLOWERED", Marine: "MARINE", Reaper: "REAPER",
	Ghost: "GHOST", Marauder: "MARAUDER", Thor: "THOR", Hellion: "HELLION",
	Medivac: "MEDIVAC", Banshee: "BANSHEE", Raven: "RAVEN", Battlecruiser: "BATTLECRUISER",
	PlanetaryFortress: "PLANETARYFORTRESS", OrbitalCommand: "ORBITALCOMMAND",
	OrbitalCommandFlying: "ORBITALCOMMANDFLYING", MULE: "MULE", Hellbat: "HELLIONTANK",
	WidowMine: "WIDOWMINE", Liberator: "LIBERATOR", Cyclone: "CYCLONE",
	RefineryRich: "REFINERYRICH", MineralField: "MINERALFIELD", MineralField750: "MINERALFIELD750",
	Baneling: "BANELING", Nexus: "NEXUS", Pylon: "PYLON", Assimilator: "ASSIMILATOR",
	Gateway: "GATEWAY", CyberneticsCore: "CYBERNETICSCORE", Zealot: "ZEALOT",
	Stalker: "STALKER", Sentry: "SENTRY", Probe: "PROBE", Hatchery: "HATCHERY",
	Extractor: "EXTRACTOR", SpawningPool: "SPAWNINGPOOL", RoachWarren: "ROACHWARREN",
	Lair: "LAIR", Hive: "HIVE", Drone: "DRONE", Zergling: "ZERGLING",
	Overlord: "OVERLORD", Roach: "ROACH", Queen: "QUEEN", Adept: "ADEPT",
}

var typesByName = func() map[string]UnitType {
	m := make(map[string]UnitType, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

func (t UnitType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("UNIT_%d", uint32(t))
}

// ParseUnitType resolves a type name case-insensitively ("marine", "MARINE").
func ParseUnitType(name string) (UnitType, bool) {
	t, ok := typesByName[strings.ToUpper(strings.TrimSpace(name))]
	return t, ok
}
