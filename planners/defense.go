package planners

import (
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
	"github.com/nstehr/ego/tasks"
)

type DefenseConfig struct {
	BaseScore int     `yaml:"base_score" env:"BASE_SCORE"`
	Radius    float64 `yaml:"radius" env:"RADIUS"`
	LeaseTTL  float64 `yaml:"lease_ttl" env:"LEASE_TTL"`
}

// Defense proposes holding the line whenever a threat is reported. Its
// score rises with urgency.
type Defense struct {
	Config DefenseConfig
}

func (*Defense) ID() string { return "defense" }

func (d *Defense) Propose(env *task.Env) ([]ego.Proposal, error) {
	if !env.Attention.Threatened() {
		return nil, nil
	}
	threat, ok := env.Attention.ThreatPos()
	if !ok {
		return nil, nil
	}
	radius := d.Config.Radius
	p := ego.Single(ego.ProposalID(d.ID(), "hold"), task.DomainDefense, d.Config.BaseScore+env.Attention.Urgency(), ego.TaskSpec{
		TaskID: "defend",
		Factory: func(string) task.Task {
			t := tasks.NewDefend("defend")
			t.Radius = radius
			return t
		},
		Requirements: []ego.UnitRequirement{{
			Types:  model.ArmyTypes,
			All:    true,
			Role:   "defender",
			Near:   &threat,
			Within: radius,
		}},
	})
	p.LeaseTTL = d.Config.LeaseTTL
	p.Risk = 3
	p.AllowPreempt = false
	return []ego.Proposal{p}, nil
}
