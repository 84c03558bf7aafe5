package tasks

import (
	"context"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// Worker housekeeping targets.
const (
	MainWorkers       = 16
	WorkersPerGas     = 3
	MainWorkerRadius  = 12.0
	naturalMineralMax = 10.0
)

// MainBase is the ready townhall nearest the start location.
func MainBase(gs *model.GameState) (model.Unit, bool) {
	return model.Closest(gs.Townhalls(), gs.StartLocation)
}

// EmptyHanded reports whether a worker carries no cargo.
func EmptyHanded(u model.Unit) bool { return u.CargoUsed == 0 }

// Workers tops up refineries and moves surplus main-base workers to the
// natural. It only commands the workers leased to it; proposers ask for
// every empty-handed SCV within MainWorkerRadius of MainBase.
type Workers struct {
	task.Base
	MainTarget  int
	PerRefinery int
	Key         awareness.Key
}

func NewWorkers(id string, key awareness.Key) *Workers {
	return &Workers{
		Base:        task.NewBase(id, task.DomainWorkers, 1),
		MainTarget:  MainWorkers,
		PerRefinery: WorkersPerGas,
		Key:         key,
	}
}

func (w *Workers) DoneKey() awareness.Key { return w.Key }

func (w *Workers) Evaluate(env *task.Env) int {
	return len(env.Attention.Macro().UnderSaturated) + len(env.Attention.Macro().OverSaturated)
}

func (w *Workers) Step(ctx context.Context, env *task.Env) task.Result {
	gs := env.State()
	main, ok := MainBase(gs)
	if !ok {
		return task.Noop("no_townhall")
	}
	halls := gs.Townhalls()

	pool := w.leasedWorkers(gs, main.Pos)
	take := func(n int) []uint64 {
		if n > len(pool) {
			n = len(pool)
		}
		out := pool[:n]
		pool = pool[n:]
		return out
	}

	gas, minerals := 0, 0
	for _, ref := range gs.OwnOfType(model.RefineryTypes...) {
		if !ref.IsReady() {
			continue
		}
		need := w.PerRefinery - ref.AssignedHarvesters
		if need <= 0 {
			continue
		}
		tags := take(need)
		if len(tags) == 0 {
			break
		}
		cmd := host.Command{Tags: tags, Ability: model.AbilityHarvestGather, TargetTag: ref.Tag}
		if err := env.Host.Command(ctx, cmd); err != nil {
			return task.Failed("gas_command_failed", 5)
		}
		gas += len(tags)
	}

	if natural, ok := naturalHall(halls, main); ok {
		surplus := main.AssignedHarvesters - gas - w.MainTarget
		room := natural.IdealHarvesters - natural.AssignedHarvesters
		if surplus > 0 && room > 0 {
			field, ok := model.Closest(model.Within(gs.MineralFields, natural.Pos, naturalMineralMax), natural.Pos)
			if tags := take(min(surplus, room)); ok && len(tags) > 0 {
				cmd := host.Command{Tags: tags, Ability: model.AbilityHarvestGather, TargetTag: field.Tag}
				if err := env.Host.Command(ctx, cmd); err != nil {
					return task.Failed("transfer_command_failed", 5)
				}
				minerals = len(tags)
			}
		}
	}

	reason := "balanced"
	if gas+minerals > 0 {
		reason = "rebalanced"
	}
	return task.Done(reason).
		WithTelemetry("to_gas", gas).
		WithTelemetry("to_natural", minerals)
}

// leasedWorkers lists the assigned workers still empty-handed near the
// main, nearest first.
func (w *Workers) leasedWorkers(gs *model.GameState, mainPos model.Point) []uint64 {
	var cands []model.Unit
	for _, tag := range w.AssignedTags() {
		u, ok := gs.UnitByTag(tag)
		if !ok || u.Type != model.SCV || !EmptyHanded(u) || u.Pos.Distance(mainPos) > MainWorkerRadius {
			continue
		}
		cands = append(cands, u)
	}
	model.SortByDistance(cands, mainPos)
	tags := make([]uint64, len(cands))
	for i, u := range cands {
		tags[i] = u.Tag
	}
	return tags
}

// naturalHall is the ready townhall nearest the main, other than the main.
func naturalHall(halls []model.Unit, main model.Unit) (model.Unit, bool) {
	others := make([]model.Unit, 0, len(halls))
	for _, h := range halls {
		if h.Tag != main.Tag {
			others = append(others, h)
		}
	}
	return model.Closest(others, main.Pos)
}
