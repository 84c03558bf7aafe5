// Package hosttest provides an in-memory host.Adapter for tests.
package hosttest

import (
	"context"
	"errors"

	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
)

// ErrRejected is returned by Fake.Command when the ability is in Reject.
var ErrRejected = errors.New("hosttest: command rejected")

// Fake records every command and plan. Tests mutate GS between ticks.
type Fake struct {
	GS       model.GameState
	Commands []host.Command
	Plans    []string

	// Reject makes Command fail for the listed abilities.
	Reject map[model.AbilityID]bool
	// Placement answers QueryPlacement; nil means every placement is valid.
	Placement func(t model.UnitType, at model.Point) bool
	// OnCommand sees every accepted command as it is issued.
	OnCommand func(cmd host.Command)
}

func New(gs model.GameState) *Fake {
	return &Fake{GS: gs}
}

func (f *Fake) State() *model.GameState { return &f.GS }

func (f *Fake) Command(_ context.Context, cmd host.Command) error {
	if f.Reject[cmd.Ability] {
		return &host.CommandError{Ability: cmd.Ability, Tags: cmd.Tags, Err: ErrRejected}
	}
	f.Commands = append(f.Commands, cmd)
	if f.OnCommand != nil {
		f.OnCommand(cmd)
	}
	return nil
}

func (f *Fake) QueryPlacement(_ context.Context, t model.UnitType, at model.Point) (bool, error) {
	if f.Placement == nil {
		return true, nil
	}
	return f.Placement(t, at), nil
}

func (f *Fake) RegisterPlan(_ context.Context, name string) error {
	f.Plans = append(f.Plans, name)
	return nil
}

// Reset clears recorded commands and plans.
func (f *Fake) Reset() {
	f.Commands = nil
	f.Plans = nil
}

// CommandsFor returns recorded commands with the given ability.
func (f *Fake) CommandsFor(ability model.AbilityID) []host.Command {
	var out []host.Command
	for _, c := range f.Commands {
		if c.Ability == ability {
			out = append(out, c)
		}
	}
	return out
}

// Advance bumps the iteration and time of the fake state.
func (f *Fake) Advance(iteration int, now float64) {
	f.GS.Iteration = iteration
	f.GS.Time = now
}
