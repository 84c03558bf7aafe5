// Package planners holds the built-in proposers. Planners read the tick's
// view and beliefs and return proposals; they never command the host.
package planners

import (
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/tasks"
)

// Config tunes every built-in planner.
type Config struct {
	Defense DefenseConfig `yaml:"defense" envPrefix:"DEFENSE_"`
	Intel   IntelConfig   `yaml:"intel" envPrefix:"INTEL_"`
	Scan    ScanConfig    `yaml:"scan" envPrefix:"SCAN_"`
	Depots  DepotsConfig  `yaml:"depots" envPrefix:"DEPOTS_"`
	Macro   MacroConfig   `yaml:"macro" envPrefix:"MACRO_"`
	Workers WorkersConfig `yaml:"workers" envPrefix:"WORKERS_"`
}

func DefaultConfig() Config {
	return Config{
		Defense: DefenseConfig{BaseScore: 50, Radius: tasks.DefendRadius, LeaseTTL: 4},
		Intel: IntelConfig{
			TriggerTime:        25,
			SeeRadius:          tasks.SeeRadius,
			ScoutScore:         30,
			ScoutCooldown:      30,
			ReaperScore:        20,
			ReaperObjective:    "CONFIRM_MAIN",
			RetreatHP:          tasks.RetreatHP,
			RetreatThreatCount: tasks.RetreatThreatCount,
			AllowPreempt:       true,
		},
		Scan:    ScanConfig{Cooldown: 20, MinTime: 180, Score: 15},
		Depots:  DepotsConfig{Interval: 2, Score: 10},
		Macro:   MacroConfig{Plans: []string{"supply", "production", "expand"}, Score: 10, AllowPreempt: true},
		Workers: WorkersConfig{Interval: 10, Score: 8, AllowPreempt: true},
	}
}

// Default builds the standard planner set.
func Default(cfg Config) ([]ego.Planner, error) {
	intel, err := NewIntel(cfg.Intel)
	if err != nil {
		return nil, err
	}
	return []ego.Planner{
		&Defense{Config: cfg.Defense},
		intel,
		&Scan{Config: cfg.Scan},
		&Depots{Config: cfg.Depots},
		&Macro{Config: cfg.Macro},
		&Workers{Config: cfg.Workers},
	}, nil
}
