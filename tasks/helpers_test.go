package tasks

import (
	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host/hosttest"
	"github.com/nstehr/ego/leases"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// tick bundles what a task sees for one step in tests.
type tick struct {
	host   *hosttest.Fake
	store  *awareness.Store
	ledger *leases.Ledger
}

func newTick(gs model.GameState) *tick {
	return &tick{host: hosttest.New(gs), store: awareness.NewStore(nil), ledger: leases.New()}
}

func (tk *tick) env(now float64, cmb attention.Combat, eb attention.EnemyBuild) *task.Env {
	tk.host.GS.Time = now
	return &task.Env{
		Time:      now,
		Host:      tk.host,
		Attention: attention.New(0, now, attention.Economy{}, attention.Macro{}, cmb, eb),
		Awareness: tk.store.View(),
		Leases:    tk.ledger,
	}
}

// apply mimics the engine writing a result's facts.
func (tk *tick) apply(res task.Result, now float64) {
	tk.store.Apply(res.Facts, now)
}

func pt(x, y float64) *model.Point { return &model.Point{X: x, Y: y} }

func ready(tag uint64, t model.UnitType, x, y float64) model.Unit {
	return model.Unit{Tag: tag, Type: t, Pos: model.Point{X: x, Y: y}, BuildProgress: 1, Health: 100, HealthMax: 100}
}
