package tasks

import (
	"context"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// ControlDepots raises every lowered depot while threatened and lowers
// every raised one otherwise. It finishes each time it runs.
type ControlDepots struct {
	task.Base
	// Key, when set, receives the completion time.
	Key awareness.Key
}

func NewControlDepots(id string, key awareness.Key) *ControlDepots {
	return &ControlDepots{Base: task.NewBase(id, task.DomainDepotControl, 1), Key: key}
}

func (c *ControlDepots) DoneKey() awareness.Key { return c.Key }

func (c *ControlDepots) Evaluate(env *task.Env) int {
	return len(env.State().OwnOfType(model.SupplyDepot, model.SupplyDepotLowered))
}

func (c *ControlDepots) Step(ctx context.Context, env *task.Env) task.Result {
	from, ability, action := model.SupplyDepot, model.AbilityDepotLower, "lower"
	if env.Attention.Threatened() {
		from, ability, action = model.SupplyDepotLowered, model.AbilityDepotRaise, "raise"
	}

	var tags []uint64
	for _, u := range env.State().OwnOfType(from) {
		if u.IsReady() {
			tags = append(tags, u.Tag)
		}
	}
	if len(tags) > 0 {
		if err := env.Host.Command(ctx, host.Command{Tags: tags, Ability: ability}); err != nil {
			return task.Failed("depot_command_failed", 2)
		}
	}
	return task.Done(action).
		WithTelemetry("depots", len(tags)).
		With(awareness.DepotActionFact(action))
}
