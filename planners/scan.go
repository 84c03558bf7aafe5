package planners

import (
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
	"github.com/nstehr/ego/tasks"
)

type ScanConfig struct {
	Cooldown float64 `yaml:"cooldown" env:"COOLDOWN"`
	MinTime  float64 `yaml:"min_time" env:"MIN_TIME"`
	Score    int     `yaml:"score" env:"SCORE"`
}

// Scan proposes sweeping the enemy main when the opening is still unknown
// and an orbital has the energy for it.
type Scan struct {
	Config ScanConfig
}

func (*Scan) ID() string { return "scan" }

func (p *Scan) Propose(env *task.Env) ([]ego.Proposal, error) {
	now := env.Time
	if now < p.Config.MinTime {
		return nil, nil
	}
	if _, _, known := env.Awareness.Opening(now); known {
		return nil, nil
	}
	if since, ok := env.Awareness.Since(awareness.KeyLastScanAt, now); ok && since < p.Config.Cooldown {
		return nil, nil
	}
	if !hasCharged(env.State()) {
		return nil, nil
	}
	target, ok := env.Attention.EnemyMain()
	if !ok {
		gs := env.State()
		if len(gs.EnemyStartLocations) == 0 {
			return nil, nil
		}
		target = gs.EnemyStartLocations[0]
	}

	cooldown := p.Config.Cooldown
	prop := ego.Single(ego.ProposalID(p.ID(), "enemy_main"), task.DomainIntel, p.Config.Score, ego.TaskSpec{
		TaskID:  "scan",
		Factory: func(string) task.Task { return tasks.NewScan("scan", target, cooldown) },
	})
	prop.CooldownS = cooldown
	return []ego.Proposal{prop}, nil
}

func hasCharged(gs *model.GameState) bool {
	for _, u := range gs.OwnOfType(model.OrbitalCommand) {
		if u.IsReady() && u.Energy >= tasks.ScanEnergy {
			return true
		}
	}
	return false
}
