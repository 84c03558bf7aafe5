// Package host defines the capability surface the engine needs from the
// game host. Everything the engine reads or sends goes through Adapter.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/nstehr/ego/model"
)

// ErrUnsupported is returned by adapters that cannot serve a capability
// (for example placement queries over a one-way transport).
var ErrUnsupported = errors.New("host: capability not supported")

// Command is a single unit order. Tags lists every unit that receives it;
// Target and TargetTag are mutually exclusive and both optional.
type Command struct {
	Tags      []uint64        `json:"tags"`
	Ability   model.AbilityID `json:"ability"`
	Target    *model.Point    `json:"target,omitempty"`
	TargetTag uint64          `json:"targetTag,omitempty"`
	Queue     bool            `json:"queue,omitempty"`
}

// Adapter is the engine's view of the game host. State is the tick's world
// view and must not be retained across ticks.
type Adapter interface {
	State() *model.GameState
	Command(ctx context.Context, cmd Command) error
	QueryPlacement(ctx context.Context, t model.UnitType, at model.Point) (bool, error)
	// RegisterPlan hands a named macro behavior to the host ecosystem for
	// execution this tick.
	RegisterPlan(ctx context.Context, name string) error
}

// CommandError reports a command the host rejected.
type CommandError struct {
	Ability model.AbilityID
	Tags    []uint64
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %d on %d unit(s): %v", e.Ability, len(e.Tags), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Move is a convenience constructor for a move order.
func Move(target model.Point, tags ...uint64) Command {
	return Command{Tags: tags, Ability: model.AbilityMove, Target: &target}
}

// AttackMove is a convenience constructor for an attack-move order.
func AttackMove(target model.Point, tags ...uint64) Command {
	return Command{Tags: tags, Ability: model.AbilityAttack, Target: &target}
}
