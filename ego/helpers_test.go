package ego

import (
	"context"
	"testing"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/audit"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host/hosttest"
	"github.com/nstehr/ego/leases"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// scripted is a task whose step is a plain function.
type scripted struct {
	task.Base
	fn              func(env *task.Env) task.Result
	steps           int
	steppedAfterEnd bool
}

func (s *scripted) Evaluate(*task.Env) int { return 1 }

func (s *scripted) Step(_ context.Context, env *task.Env) task.Result {
	if s.Status().Terminal() {
		s.steppedAfterEnd = true
	}
	s.steps++
	return s.fn(env)
}

func acting(*task.Env) task.Result { return task.Running("acted") }
func idle(*task.Env) task.Result   { return task.Noop("nothing") }
func done(*task.Env) task.Result   { return task.Done("finished") }

// kit records every task its specs create.
type kit struct {
	made []*scripted
}

func (k *kit) spec(id string, d task.Domain, fn func(*task.Env) task.Result, reqs ...UnitRequirement) TaskSpec {
	return TaskSpec{
		TaskID:       id,
		Requirements: reqs,
		Factory: func(string) task.Task {
			s := &scripted{Base: task.NewBase(id, d, 1), fn: fn}
			k.made = append(k.made, s)
			return s
		},
	}
}

func (k *kit) last() *scripted { return k.made[len(k.made)-1] }

// static proposes the same list every tick.
func static(id string, ps ...Proposal) Planner {
	return PlannerFunc{Name: id, Fn: func(*task.Env) ([]Proposal, error) { return ps, nil }}
}

type harness struct {
	t       *testing.T
	host    *hosttest.Fake
	store   *awareness.Store
	sink    *audit.MemorySink
	ego     *Ego
	urgency int
	threat  *model.Point
}

func newHarness(t *testing.T, cfg Config, gs model.GameState) *harness {
	t.Helper()
	sink := &audit.MemorySink{}
	events := audit.NewEmitter(sink, "test", nil)
	store := awareness.NewStore(events)
	return &harness{
		t:     t,
		host:  hosttest.New(gs),
		store: store,
		sink:  sink,
		ego:   New(cfg, store, leases.New(), events, nil),
	}
}

func (h *harness) tick(now float64) Report {
	h.t.Helper()
	h.host.GS.Time = now
	cmb := attention.Combat{DefenseUrgency: h.urgency, Threatened: h.urgency > 0, ThreatPos: h.threat}
	env := &task.Env{
		Time:      now,
		Host:      h.host,
		Attention: attention.New(0, now, attention.Economy{}, attention.Macro{}, cmb, attention.EnemyBuild{}),
		Awareness: h.store.View(),
		Leases:    h.ego.Ledger(),
	}
	rep := h.ego.Tick(context.Background(), env)
	h.checkInvariants(now)
	return rep
}

// checkInvariants asserts the ownership properties that must hold after
// every tick.
func (h *harness) checkInvariants(now float64) {
	h.t.Helper()
	seen := make(map[uint64]string)
	for _, m := range h.ego.Missions() {
		if got, _ := h.ego.Mission(m.Domain); got != m {
			h.t.Errorf("mission %s not the occupant of %s", m.ID, m.Domain)
		}
		for _, tk := range m.Tasks {
			for _, tag := range tk.Meta().AssignedTags() {
				owner, ok := h.ego.Ledger().OwnerOf(tag, now)
				if !ok || owner != m.Owner(tk) {
					h.t.Errorf("tag %d assigned to %s but leased to %q (%v)", tag, m.Owner(tk), owner, ok)
				}
				if prev, dup := seen[tag]; dup {
					h.t.Errorf("tag %d assigned to both %s and %s", tag, prev, m.Owner(tk))
				}
				seen[tag] = m.Owner(tk)
			}
		}
	}
}

func unit(tag uint64, t model.UnitType, x, y float64) model.Unit {
	return model.Unit{Tag: tag, Type: t, Pos: model.Point{X: x, Y: y}, BuildProgress: 1, Health: 50, HealthMax: 50}
}
