package tasks

import (
	"context"
	"testing"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

func TestDepotToggle(t *testing.T) {
	raised := ready(11, model.SupplyDepot, 40, 40)
	lowered := ready(12, model.SupplyDepotLowered, 42, 40)
	tk := newTick(model.GameState{Units: []model.Unit{raised, lowered}})
	ctx := context.Background()
	c := NewControlDepots("depots", awareness.LastDoneKey("depots"))

	res := c.Step(ctx, tk.env(30, attention.Combat{}, attention.EnemyBuild{}))
	if res.Outcome != task.OutcomeDone || res.Reason != "lower" {
		t.Fatalf("calm step = %v, want DONE(lower)", res)
	}
	lowerCmds := tk.host.CommandsFor(model.AbilityDepotLower)
	if len(lowerCmds) != 1 || len(lowerCmds[0].Tags) != 1 || lowerCmds[0].Tags[0] != 11 {
		t.Fatalf("lower commands = %+v, want only depot 11", lowerCmds)
	}

	// The host has lowered both by the next tick.
	tk.host.GS.Units[0].Type = model.SupplyDepotLowered
	tk.host.Reset()

	threat := attention.Combat{Threatened: true, DefenseUrgency: 30, ThreatPos: pt(45, 45), EnemiesNearBases: 2}
	res = c.Step(ctx, tk.env(31, threat, attention.EnemyBuild{}))
	if res.Outcome != task.OutcomeDone || res.Reason != "raise" {
		t.Fatalf("threatened step = %v, want DONE(raise)", res)
	}
	tk.apply(res, 31)

	raiseCmds := tk.host.CommandsFor(model.AbilityDepotRaise)
	if len(raiseCmds) != 1 || len(raiseCmds[0].Tags) != 2 {
		t.Fatalf("raise commands = %+v, want both depots", raiseCmds)
	}
	if got := tk.store.View().DepotLastAction(31); got != "raise" {
		t.Errorf("last_action = %q, want raise", got)
	}
	if c.DoneKey() != awareness.LastDoneKey("depots") {
		t.Errorf("DoneKey = %q", c.DoneKey())
	}
}

func TestDepotsAlreadyLowered(t *testing.T) {
	tk := newTick(model.GameState{Units: []model.Unit{ready(12, model.SupplyDepotLowered, 0, 0)}})
	res := NewControlDepots("depots", "").Step(context.Background(), tk.env(5, attention.Combat{}, attention.EnemyBuild{}))
	if res.Outcome != task.OutcomeDone || len(tk.host.Commands) != 0 {
		t.Errorf("got %v with %d commands, want DONE and none", res, len(tk.host.Commands))
	}
}
