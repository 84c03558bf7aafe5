// Package intel maps sensor snapshots into beliefs. Intel modules may write
// to awareness and must never command the host.
package intel

import (
	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/awareness"
)

// Input is one tick of sensor output. EnemyBuildErr is set when the enemy
// build sensor could not read a strict input.
type Input struct {
	Time          float64
	Economy       attention.Economy
	Macro         attention.Macro
	Combat        attention.Combat
	EnemyBuild    attention.EnemyBuild
	EnemyBuildErr error
}

// Module is a single belief writer.
type Module interface {
	Name() string
	Update(in Input, store *awareness.Store)
}

// Config tunes the opening classifier.
type Config struct {
	OpeningTTL         float64 `yaml:"opening_ttl" env:"OPENING_TTL"`
	EarlyWindow        float64 `yaml:"early_window" env:"EARLY_WINDOW"`
	GreedyWindow       float64 `yaml:"greedy_window" env:"GREEDY_WINDOW"`
	RushUnitsNearBases int     `yaml:"rush_units_near_bases" env:"RUSH_UNITS_NEAR_BASES"`
}

func DefaultConfig() Config {
	return Config{
		OpeningTTL:         12,
		EarlyWindow:        210,
		GreedyWindow:       165,
		RushUnitsNearBases: 6,
	}
}

// Default returns the standard module chain.
func Default(cfg Config) []Module {
	return []Module{
		FirstSeen{},
		EnemyLayout{},
		&OpeningClassifier{Config: cfg},
	}
}

// FirstSeen records, once and permanently, when any enemy was first seen.
type FirstSeen struct{}

func (FirstSeen) Name() string { return "first_seen" }

func (FirstSeen) Update(in Input, store *awareness.Store) {
	if _, ok := store.Get(awareness.KeyFirstSeen, in.Time); ok {
		return
	}
	if len(in.EnemyBuild.Units) == 0 && len(in.EnemyBuild.Structures) == 0 {
		return
	}
	store.Set(awareness.KeyFirstSeen, in.Time, in.Time, 0)
}

// Keys written by EnemyLayout.
var (
	KeyEnemyMain           = awareness.K("enemy", "main", "pos")
	KeyEnemyNatural        = awareness.K("enemy", "natural", "pos")
	KeyEnemyNaturalTakenAt = awareness.K("enemy", "natural", "taken_at")
)

// EnemyLayout remembers the inferred enemy main and natural and when the
// natural was first seen taken.
type EnemyLayout struct{}

func (EnemyLayout) Name() string { return "enemy_layout" }

func (EnemyLayout) Update(in Input, store *awareness.Store) {
	eb := in.EnemyBuild
	if eb.EnemyMain != nil {
		store.Set(KeyEnemyMain, *eb.EnemyMain, in.Time, 0)
	}
	if eb.EnemyNatural != nil {
		store.Set(KeyEnemyNatural, *eb.EnemyNatural, in.Time, 0)
	}
	if eb.NaturalOnGround {
		if _, ok := store.Get(KeyEnemyNaturalTakenAt, in.Time); !ok {
			store.Set(KeyEnemyNaturalTakenAt, in.Time, in.Time, 0)
		}
	}
}
