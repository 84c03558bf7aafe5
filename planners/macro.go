package planners

import (
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
	"github.com/nstehr/ego/tasks"
)

type DepotsConfig struct {
	Interval float64 `yaml:"interval" env:"INTERVAL"`
	Score    int     `yaml:"score" env:"SCORE"`
}

// Depots proposes the depot toggle every Interval seconds, or at once when
// a threat finds lowered depots. It is never preempted: raising the wall
// is part of defending.
type Depots struct {
	Config DepotsConfig
}

func (*Depots) ID() string { return "depots" }

func (p *Depots) Propose(env *task.Env) ([]ego.Proposal, error) {
	now := env.Time
	gs := env.State()
	lowered := len(gs.OwnOfType(model.SupplyDepotLowered))
	raised := len(gs.OwnOfType(model.SupplyDepot))
	if lowered+raised == 0 {
		return nil, nil
	}
	urgent := env.Attention.Threatened() && lowered > 0
	key := awareness.LastDoneKey(p.ID())
	if since, ok := env.Awareness.Since(key, now); ok && since < p.Config.Interval && !urgent {
		return nil, nil
	}
	prop := ego.Single(ego.ProposalID(p.ID(), "control"), task.DomainDepotControl, p.Config.Score, ego.TaskSpec{
		TaskID:  "control_depots",
		Factory: func(string) task.Task { return tasks.NewControlDepots("control_depots", key) },
	})
	prop.AllowPreempt = false
	return []ego.Proposal{prop}, nil
}

type MacroConfig struct {
	Plans        []string `yaml:"plans" env:"PLANS"`
	Score        int      `yaml:"score" env:"SCORE"`
	AllowPreempt bool     `yaml:"allow_preempt" env:"ALLOW_PREEMPT"`
}

// Macro hands the host's macro plans over once the opening build is done.
type Macro struct {
	Config MacroConfig
}

func (*Macro) ID() string { return "macro" }

func (p *Macro) Propose(env *task.Env) ([]ego.Proposal, error) {
	if !env.Attention.Macro().OpeningDone || len(p.Config.Plans) == 0 {
		return nil, nil
	}
	plans := append([]string(nil), p.Config.Plans...)
	prop := ego.Single(ego.ProposalID(p.ID(), "plans"), task.DomainMacro, p.Config.Score, ego.TaskSpec{
		TaskID:  "macro_plans",
		Factory: func(string) task.Task { return tasks.NewMacro("macro_plans", task.DomainMacro, plans...) },
	})
	prop.AllowPreempt = p.Config.AllowPreempt
	return []ego.Proposal{prop}, nil
}

type WorkersConfig struct {
	Interval     float64 `yaml:"interval" env:"INTERVAL"`
	Score        int     `yaml:"score" env:"SCORE"`
	AllowPreempt bool    `yaml:"allow_preempt" env:"ALLOW_PREEMPT"`
}

// Workers proposes a rebalance at most every Interval seconds while some
// base is off its ideal saturation or a refinery is short.
type Workers struct {
	Config WorkersConfig
}

func (*Workers) ID() string { return "workers" }

func (p *Workers) Propose(env *task.Env) ([]ego.Proposal, error) {
	now := env.Time
	key := awareness.LastDoneKey(p.ID())
	if since, ok := env.Awareness.Since(key, now); ok && since < p.Config.Interval {
		return nil, nil
	}
	mac := env.Attention.Macro()
	if len(mac.UnderSaturated)+len(mac.OverSaturated) == 0 && !gasShort(env.State()) {
		return nil, nil
	}
	req, ok := WorkerRequirement(env.State())
	if !ok {
		return nil, nil
	}
	prop := ego.Single(ego.ProposalID(p.ID(), "rebalance"), task.DomainWorkers, p.Config.Score, ego.TaskSpec{
		TaskID:       "rebalance",
		Factory:      func(string) task.Task { return tasks.NewWorkers("rebalance", key) },
		Requirements: []ego.UnitRequirement{req},
	})
	prop.AllowPreempt = p.Config.AllowPreempt
	return []ego.Proposal{prop}, nil
}

// WorkerRequirement leases every empty-handed SCV near the main base to a
// rebalance task. It fails when there is no ready townhall.
func WorkerRequirement(gs *model.GameState) (ego.UnitRequirement, bool) {
	main, ok := tasks.MainBase(gs)
	if !ok {
		return ego.UnitRequirement{}, false
	}
	near := main.Pos
	return ego.UnitRequirement{
		Types:  []model.UnitType{model.SCV},
		All:    true,
		Role:   "rebalance",
		Near:   &near,
		Within: tasks.MainWorkerRadius,
		Filter: tasks.EmptyHanded,
	}, true
}

func gasShort(gs *model.GameState) bool {
	for _, r := range gs.OwnOfType(model.RefineryTypes...) {
		if r.IsReady() && r.AssignedHarvesters < tasks.WorkersPerGas {
			return true
		}
	}
	return false
}
