package rules

import (
	"math"
	"strings"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/leases"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// RuleEnv is the expr environment. Fields are plain tick facts; methods
// take unit type names ("REAPER", case-insensitive) or belief keys written
// as slash paths ("intel/scan/last_scan_at").
type RuleEnv struct {
	Time        float64
	Iteration   int
	Urgency     int
	Threatened  bool
	Minerals    int
	Gas         int
	SupplyLeft  int
	OpeningDone bool

	att     *attention.Attention
	beliefs awareness.View
	state   *model.GameState
	leases  leases.View
}

// NewRuleEnv snapshots what rules may read this tick.
func NewRuleEnv(env *task.Env) RuleEnv {
	eco := env.Attention.Economy()
	return RuleEnv{
		Time:        env.Time,
		Iteration:   env.Iteration,
		Urgency:     env.Attention.Urgency(),
		Threatened:  env.Attention.Threatened(),
		Minerals:    eco.Minerals,
		Gas:         eco.Gas,
		SupplyLeft:  eco.SupplyLeft,
		OpeningDone: env.Attention.Macro().OpeningDone,
		att:         env.Attention,
		beliefs:     env.Awareness,
		state:       env.State(),
		leases:      env.Leases,
	}
}

// Ready counts own finished units of the named type.
func (e RuleEnv) Ready(name string) int {
	t, ok := model.ParseUnitType(name)
	if !ok {
		return 0
	}
	return e.att.Ready(t)
}

// Own counts own units of the named type, finished or not.
func (e RuleEnv) Own(name string) int {
	t, ok := model.ParseUnitType(name)
	if !ok {
		return 0
	}
	return len(e.state.OwnOfType(t))
}

// FreeUnits counts ready own units of the named type no task holds.
func (e RuleEnv) FreeUnits(name string) int {
	t, ok := model.ParseUnitType(name)
	if !ok {
		return 0
	}
	n := 0
	for _, u := range e.state.OwnOfType(t) {
		if u.IsReady() && (e.leases == nil || e.leases.CanClaim(u.Tag, e.Time)) {
			n++
		}
	}
	return n
}

// Enemies counts visible enemy units and structures of the named type.
func (e RuleEnv) Enemies(name string) int {
	t, ok := model.ParseUnitType(name)
	if !ok {
		return 0
	}
	eb := e.att.EnemyBuild()
	return eb.Units[t] + eb.Structures[t]
}

func (e RuleEnv) EnemiesNearBases() int { return e.att.Combat().EnemiesNearBases }

func (e RuleEnv) HasEnemyMain() bool {
	_, ok := e.att.EnemyMain()
	return ok
}

func (e RuleEnv) HasEnemyNatural() bool {
	_, ok := e.att.EnemyNatural()
	return ok
}

// Flag is true only for a live boolean belief.
func (e RuleEnv) Flag(key string) bool { return e.beliefs.Bool(parseKey(key), e.Time) }

// Number reads a numeric belief, 0 when absent.
func (e RuleEnv) Number(key string) float64 {
	v, _ := e.beliefs.Float(parseKey(key), e.Time)
	return v
}

// Text reads a string belief, "" when absent.
func (e RuleEnv) Text(key string) string {
	v, _ := e.beliefs.String(parseKey(key), e.Time)
	return v
}

// Since is the time elapsed since the timestamp stored at key, +Inf when
// nothing is stored.
func (e RuleEnv) Since(key string) float64 {
	if d, ok := e.beliefs.Since(parseKey(key), e.Time); ok {
		return d
	}
	return math.Inf(1)
}

// Opening is the current classification, "UNKNOWN" when stale.
func (e RuleEnv) Opening() string {
	kind, _, ok := e.beliefs.Opening(e.Time)
	if !ok {
		return "UNKNOWN"
	}
	return kind
}

func parseKey(s string) awareness.Key {
	return awareness.K(strings.Split(strings.Trim(s, "/"), "/")...)
}
