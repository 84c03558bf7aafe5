package tasks

import (
	"context"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// ScanEnergy is the orbital energy a scanner sweep costs.
const ScanEnergy = 50.0

// Scan fires one scanner sweep at Target from the best charged orbital.
type Scan struct {
	task.Base
	Target     model.Point
	Cooldown   float64
	RetryAfter float64
}

func NewScan(id string, target model.Point, cooldown float64) *Scan {
	return &Scan{
		Base:       task.NewBase(id, task.DomainIntel, 1),
		Target:     target,
		Cooldown:   cooldown,
		RetryAfter: 5,
	}
}

func (s *Scan) Evaluate(env *task.Env) int {
	if _, ok := chargedOrbital(env.State()); !ok {
		return 0
	}
	return 1
}

func (s *Scan) Step(ctx context.Context, env *task.Env) task.Result {
	now := env.Time
	if last, ok := env.Awareness.LastScanAt(now); ok && now-last < s.Cooldown {
		return task.Noop("scan_cooldown").WithTelemetry("ready_in", s.Cooldown-(now-last))
	}

	orbital, ok := chargedOrbital(env.State())
	if !ok {
		return task.Failed("no_orbital", s.RetryAfter)
	}

	target := s.Target
	cmd := host.Command{Tags: []uint64{orbital.Tag}, Ability: model.AbilityScannerSweep, Target: &target}
	if err := env.Host.Command(ctx, cmd); err != nil {
		return task.Failed("scan_command_failed", s.RetryAfter).WithTelemetry("error", err.Error())
	}
	return task.Done("scanned").With(awareness.ScanFact(now))
}

// chargedOrbital picks the ready orbital with the most energy, ties going
// to the lower tag.
func chargedOrbital(gs *model.GameState) (model.Unit, bool) {
	var best model.Unit
	found := false
	for _, u := range gs.OwnOfType(model.OrbitalCommand) {
		if !u.IsReady() || u.Energy < ScanEnergy {
			continue
		}
		if !found || u.Energy > best.Energy || (u.Energy == best.Energy && u.Tag < best.Tag) {
			best, found = u, true
		}
	}
	return best, found
}
