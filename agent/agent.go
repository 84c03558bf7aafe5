// Package agent bridges one host connection to one engine. It implements
// host.Adapter over the ipc session: each game_state is the tick's world
// view, and the commands issued while the engine ticks go back in the
// tick_result reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nstehr/ego/engine"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/ipc"
	"github.com/nstehr/ego/model"
)

// ErrUnknownUnit rejects commands for tags that are not in the tick's state.
var ErrUnknownUnit = errors.New("agent: unknown unit tag")

// EngineFactory builds the engine for one game.
type EngineFactory func(h host.Adapter, gameID string) (*engine.Engine, error)

// Agent owns the decision-making for a single game session.
type Agent struct {
	Conn   *ipc.Connection
	Player string
	Race   string
	GameID string

	newEngine EngineFactory
	engine    *engine.Engine
	reloader  *Reloader

	state    *model.GameState
	commands []host.Command
	plans    []string
	prev     *stateSnapshot
}

// New wires an agent. reloader may be nil.
func New(conn *ipc.Connection, newEngine EngineFactory, reloader *Reloader) *Agent {
	return &Agent{Conn: conn, newEngine: newEngine, reloader: reloader}
}

// HandleHello completes the handshake and starts the game's engine.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}

	a.Player = hello.Player
	a.Race = hello.Race
	if a.Conn != nil {
		a.Conn.Player = hello.Player
	}
	if err := a.start(hello.GameID); err != nil {
		return nil, err
	}
	slog.Info("player identified", "player", a.Player, "race", a.Race, "map", hello.Map, "game_id", a.GameID)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", GameID: a.GameID})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

func (a *Agent) start(gameID string) error {
	if a.engine != nil {
		return nil
	}
	if gameID == "" {
		gameID = uuid.NewString()
	}
	e, err := a.newEngine(a, gameID)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	a.GameID = gameID
	a.engine = e
	if a.reloader != nil {
		a.reloader.Attach(e.Rules())
	}
	return nil
}

// Close detaches the engine from background rule reloads.
func (a *Agent) Close() {
	if a.reloader != nil && a.engine != nil {
		a.reloader.Detach(a.engine.Rules())
	}
}

// HandleGameState runs one engine tick and replies with what it decided.
// A state that arrives before hello starts the engine with a fresh game id.
func (a *Agent) HandleGameState(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.GameStateMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	if err := a.start(""); err != nil {
		return nil, err
	}

	gs := msg.GameState
	a.state = &gs
	a.commands = nil
	a.plans = nil

	a.engine.Events().SetTick(gs.Iteration, gs.Time)
	for _, ev := range a.observe(&gs) {
		slog.Info("game event", "kind", ev.Kind, "iteration", ev.Iteration, "detail", ev.Detail)
		a.engine.Events().Emit("game_event", map[string]any{"kind": string(ev.Kind), "detail": ev.Detail})
	}

	res := ipc.TickResultMessage{Iteration: gs.Iteration}
	rep, err := a.engine.Tick(context.Background(), gs.Iteration, gs.Time)
	if err != nil {
		slog.Error("engine tick failed", "iteration", gs.Iteration, "error", err)
		res.Error = err.Error()
	} else {
		res.Urgency = rep.Urgency
		res.Elected = make(map[string]string, len(rep.Elected))
		for d, id := range rep.Elected {
			res.Elected[string(d)] = id
		}
	}
	res.Commands = a.commands
	res.Plans = a.plans
	if res.Commands == nil {
		res.Commands = []host.Command{}
	}

	slog.Debug("tick complete",
		"iteration", gs.Iteration,
		"time", gs.Time,
		"units", len(gs.Units),
		"enemies", len(gs.Enemies),
		"commands", len(res.Commands),
		"plans", len(res.Plans),
	)

	reply, err := ipc.NewEnvelope(ipc.TypeTickResult, res)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// observe diffs against the previous tick. Sighting flags are sticky so
// first_contact and enemy_base_discovered fire once per game.
func (a *Agent) observe(gs *model.GameState) []Event {
	cur := takeSnapshot(gs)
	events := detectEvents(gs.Iteration, a.prev, cur)
	if a.prev != nil {
		cur.enemiesSeen = cur.enemiesSeen || a.prev.enemiesSeen
		if len(cur.enemyTownhalls) == 0 {
			cur.enemyTownhalls = a.prev.enemyTownhalls
		}
	}
	a.prev = &cur
	return events
}

// State implements host.Adapter.
func (a *Agent) State() *model.GameState { return a.state }

// Command buffers an order for the tick_result reply.
func (a *Agent) Command(_ context.Context, cmd host.Command) error {
	if len(cmd.Tags) == 0 {
		return &host.CommandError{Ability: cmd.Ability, Err: errors.New("no units")}
	}
	for _, tag := range cmd.Tags {
		if _, ok := a.state.UnitByTag(tag); !ok {
			return &host.CommandError{Ability: cmd.Ability, Tags: cmd.Tags, Err: ErrUnknownUnit}
		}
	}
	a.commands = append(a.commands, cmd)
	return nil
}

// QueryPlacement needs a round trip the tick protocol does not have.
func (a *Agent) QueryPlacement(context.Context, model.UnitType, model.Point) (bool, error) {
	return false, host.ErrUnsupported
}

func (a *Agent) RegisterPlan(_ context.Context, name string) error {
	a.plans = append(a.plans, name)
	return nil
}
