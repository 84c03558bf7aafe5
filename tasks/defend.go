// Package tasks holds the concrete mission executables. Each task embeds
// task.Base and issues at most a handful of commands per step.
package tasks

import (
	"context"

	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// DefendRadius is how far from the threat an idle army unit may be and
// still be pulled into the fight.
const DefendRadius = 45.0

// medivacBackoff is how far medivacs step back toward home.
const medivacBackoff = 4.0

// Defend sends idle assigned army units at the current threat and pulls
// medivacs back toward home. It never finishes on its own.
type Defend struct {
	task.Base
	Radius float64
}

func NewDefend(id string) *Defend {
	return &Defend{Base: task.NewBase(id, task.DomainDefense, 3), Radius: DefendRadius}
}

func (d *Defend) Evaluate(env *task.Env) int { return env.Attention.Urgency() }

func (d *Defend) Step(ctx context.Context, env *task.Env) task.Result {
	threat, ok := env.Attention.ThreatPos()
	if !ok {
		return task.Noop("no_threat")
	}
	gs := env.State()

	var attackers, medivacs []uint64
	for _, tag := range d.AssignedTags() {
		u, ok := gs.UnitByTag(tag)
		if !ok || !u.IsIdle() || u.Pos.Distance(threat) > d.Radius {
			continue
		}
		if u.Type == model.Medivac {
			medivacs = append(medivacs, tag)
		} else {
			attackers = append(attackers, tag)
		}
	}

	issued := 0
	if len(attackers) > 0 {
		if err := env.Host.Command(ctx, host.AttackMove(threat, attackers...)); err == nil {
			issued += len(attackers)
		}
	}
	for _, tag := range medivacs {
		u, _ := gs.UnitByTag(tag)
		back := gs.Bounds.Clamp(u.Pos.Towards(gs.StartLocation, medivacBackoff))
		if err := env.Host.Command(ctx, host.Move(back, tag)); err == nil {
			issued++
		}
	}

	if issued == 0 {
		return task.Noop("nothing_to_command")
	}
	return task.Running("engaging").
		WithTelemetry("attackers", len(attackers)).
		WithTelemetry("medivacs", len(medivacs))
}
