package planners

import (
	"fmt"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
	"github.com/nstehr/ego/tasks"
)

// KeyReaperScoutDone records when the reaper scout finished.
var KeyReaperScoutDone = awareness.LastDoneKey("intel_reaper")

type IntelConfig struct {
	TriggerTime        float64 `yaml:"trigger_time" env:"TRIGGER_TIME"`
	SeeRadius          float64 `yaml:"see_radius" env:"SEE_RADIUS"`
	ScoutScore         int     `yaml:"scout_score" env:"SCOUT_SCORE"`
	ScoutCooldown      float64 `yaml:"scout_cooldown" env:"SCOUT_COOLDOWN"`
	ReaperScore        int     `yaml:"reaper_score" env:"REAPER_SCORE"`
	ReaperObjective    string  `yaml:"reaper_objective" env:"REAPER_OBJECTIVE"`
	RetreatHP          float64 `yaml:"retreat_hp" env:"RETREAT_HP"`
	RetreatThreatCount int     `yaml:"retreat_threat_count" env:"RETREAT_THREAT_COUNT"`
	AllowPreempt       bool    `yaml:"allow_preempt" env:"ALLOW_PREEMPT"`
}

// Intel proposes the worker scout once the trigger time passes and keeps
// proposing it until the worker sees the enemy main. Once a reaper is out
// it proposes a reaper scout, which loses to the worker scout on score.
type Intel struct {
	Config    IntelConfig
	objective tasks.Objective
}

// NewIntel parses the configured reaper objective strictly.
func NewIntel(cfg IntelConfig) (*Intel, error) {
	obj, err := tasks.ParseObjective(cfg.ReaperObjective)
	if err != nil {
		return nil, fmt.Errorf("intel planner: %w", err)
	}
	return &Intel{Config: cfg, objective: obj}, nil
}

func (*Intel) ID() string { return "intel" }

func (p *Intel) Propose(env *task.Env) ([]ego.Proposal, error) {
	now := env.Time
	gs := env.State()
	var out []ego.Proposal

	if now >= p.Config.TriggerTime && !env.Awareness.ScvArrivedMain(now) && len(gs.EnemyStartLocations) > 0 {
		target := gs.EnemyStartLocations[0]
		see := p.Config.SeeRadius
		scout := ego.Single(ego.ProposalID(p.ID(), "scout_scv"), task.DomainIntel, p.Config.ScoutScore, ego.TaskSpec{
			TaskID: "scout_scv",
			Factory: func(string) task.Task {
				t := tasks.NewScout("scout_scv")
				t.SeeRadius = see
				return t
			},
			Requirements: []ego.UnitRequirement{{
				Types: []model.UnitType{model.SCV},
				Count: 1,
				Role:  "scout",
				Near:  &target,
			}},
		})
		scout.CooldownS = p.Config.ScoutCooldown
		scout.AllowPreempt = p.Config.AllowPreempt
		out = append(out, scout)
	}

	if _, done := env.Awareness.Get(KeyReaperScoutDone, now); !done && env.Attention.Ready(model.Reaper) > 0 {
		obj, cfg := p.objective, p.Config
		reaper := ego.Single(ego.ProposalID(p.ID(), "reaper_scout"), task.DomainIntel, p.Config.ReaperScore, ego.TaskSpec{
			TaskID: "reaper_scout",
			Factory: func(string) task.Task {
				t := tasks.NewReaperScout("reaper_scout", task.DomainIntel, obj)
				t.RetreatHP = cfg.RetreatHP
				t.RetreatThreatCount = cfg.RetreatThreatCount
				t.Key = KeyReaperScoutDone
				return t
			},
			Requirements: []ego.UnitRequirement{{
				Types: []model.UnitType{model.Reaper},
				Count: 1,
				Role:  "scout",
			}},
		})
		reaper.Risk = 2
		reaper.AllowPreempt = p.Config.AllowPreempt
		out = append(out, reaper)
	}
	return out, nil
}
