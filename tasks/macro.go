package tasks

import (
	"context"

	"github.com/nstehr/ego/task"
)

// Macro hands named plans to the host every tick. The host decides what
// each plan does; the task only keeps them registered.
type Macro struct {
	task.Base
	Plans []string
}

func NewMacro(id string, domain task.Domain, plans ...string) *Macro {
	return &Macro{Base: task.NewBase(id, domain, 1), Plans: plans}
}

func (m *Macro) Evaluate(*task.Env) int { return len(m.Plans) }

func (m *Macro) Step(ctx context.Context, env *task.Env) task.Result {
	var rejected []string
	for _, p := range m.Plans {
		if err := env.Host.RegisterPlan(ctx, p); err != nil {
			rejected = append(rejected, p)
		}
	}
	if len(rejected) == len(m.Plans) {
		return task.Idle().WithTelemetry("rejected", rejected)
	}
	res := task.Running("plans_registered").WithTelemetry("plans", len(m.Plans)-len(rejected))
	if len(rejected) > 0 {
		res = res.WithTelemetry("rejected", rejected)
	}
	return res
}
