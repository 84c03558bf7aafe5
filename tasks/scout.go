package tasks

import (
	"context"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// SeeRadius is the distance at which a scouting worker counts as having
// seen the enemy main.
const SeeRadius = 14.0

// Scout walks one assigned worker to the first enemy start location.
type Scout struct {
	task.Base
	SeeRadius float64
}

func NewScout(id string) *Scout {
	return &Scout{Base: task.NewBase(id, task.DomainIntel, 1), SeeRadius: SeeRadius}
}

func (s *Scout) Evaluate(env *task.Env) int {
	if env.Awareness.ScoutDispatched(env.Time) {
		return 0
	}
	return 1
}

func (s *Scout) Step(ctx context.Context, env *task.Env) task.Result {
	tags := s.AssignedTags()
	if len(tags) == 0 {
		return task.Failed("no_assigned_worker", 0)
	}
	gs := env.State()
	if len(gs.EnemyStartLocations) == 0 {
		return task.Failed("no_enemy_start", 30)
	}
	target := gs.EnemyStartLocations[0]

	worker, ok := gs.UnitByTag(tags[0])
	if !ok {
		return task.Failed("scout_lost", 0)
	}

	dist := worker.Pos.Distance(target)
	if dist <= s.SeeRadius {
		return task.Done("arrived_main").With(awareness.ScvArrivedMainFact())
	}
	if movingTo(worker, target) {
		return task.Idle().WithTelemetry("distance", dist)
	}
	if err := env.Host.Command(ctx, host.Move(target, worker.Tag)); err != nil {
		return task.Failed("scout_move_failed", 5)
	}
	return task.Running("dispatched").
		WithTelemetry("distance", dist).
		With(awareness.ScoutDispatchedFact())
}

// movingTo reports whether u's current order is already a move to p.
func movingTo(u model.Unit, p model.Point) bool {
	if len(u.Orders) == 0 || u.Orders[0].Ability != model.AbilityMove {
		return false
	}
	at, ok := u.OrderTarget()
	return ok && at.Distance(p) < 1
}
