// Package engine runs one decision tick: sensors, intel, attention, then
// arbitration and task steps. An Engine serves exactly one game.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/audit"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/config"
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/intel"
	"github.com/nstehr/ego/leases"
	"github.com/nstehr/ego/planners"
	"github.com/nstehr/ego/rules"
	"github.com/nstehr/ego/sensors"
	"github.com/nstehr/ego/task"
)

// ErrNoState is returned when the host has no world view for the tick.
var ErrNoState = errors.New("engine: host returned no game state")

// ErrTickFault wraps a panic recovered from the tick pipeline.
var ErrTickFault = errors.New("engine: tick fault")

// RulesPlannerID is the planner id the configured rule set proposes under.
const RulesPlannerID = "rules"

type Engine struct {
	host    host.Adapter
	cfg     config.Config
	events  *audit.Emitter
	logger  *slog.Logger
	store   *awareness.Store
	ledger  *leases.Ledger
	ego     *ego.Ego
	modules []intel.Module
	rules   *rules.Planner

	lastTime float64
	ticks    int
}

// New wires a fresh engine for one game. The built-in planners come first,
// then the rule planner, then any extra planners.
func New(h host.Adapter, cfg config.Config, events *audit.Emitter, logger *slog.Logger, extra ...ego.Planner) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	builtin, err := planners.Default(cfg.Planners)
	if err != nil {
		return nil, fmt.Errorf("build planners: %w", err)
	}
	rp, err := rules.NewPlanner(RulesPlannerID, cfg.Rules, nil)
	if err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}

	store := awareness.NewStore(events)
	ledger := leases.New()
	arb := ego.New(cfg.Engine, store, ledger, events, logger)
	arb.Register(builtin...)
	arb.Register(rp)
	arb.Register(extra...)

	return &Engine{
		host:    h,
		cfg:     cfg,
		events:  events,
		logger:  logger,
		store:   store,
		ledger:  ledger,
		ego:     arb,
		modules: intel.Default(cfg.Intel),
		rules:   rp,
	}, nil
}

func (e *Engine) Awareness() *awareness.Store { return e.store }
func (e *Engine) Ledger() *leases.Ledger      { return e.ledger }
func (e *Engine) Ego() *ego.Ego               { return e.ego }
func (e *Engine) Events() *audit.Emitter      { return e.events }

// Rules exposes the rule planner so callers can swap rule sets mid-game.
func (e *Engine) Rules() *rules.Planner { return e.rules }

// Tick runs the pipeline once. A panic anywhere outside a task or planner
// aborts the tick, is reported as tick_fault and returned as ErrTickFault;
// the next tick starts clean.
func (e *Engine) Tick(ctx context.Context, iteration int, now float64) (rep ego.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tick fault", "iteration", iteration, "time", now, "panic", r, "stack", string(debug.Stack()))
			e.events.Emit("tick_fault", map[string]any{"error": fmt.Sprint(r)})
			rep = ego.Report{}
			err = fmt.Errorf("%w: %v", ErrTickFault, r)
		}
	}()

	e.events.SetTick(iteration, now)
	if e.ticks > 0 && now < e.lastTime {
		e.logger.Warn("game time went backwards", "last", e.lastTime, "now", now)
	}
	e.lastTime = now
	e.ticks++

	gs := e.host.State()
	if gs == nil {
		return ego.Report{}, ErrNoState
	}

	eco := sensors.Economy(gs)
	mac := sensors.Macro(gs)
	cmb := sensors.Combat(gs, e.cfg.Sensors)
	eb, ebErr := sensors.EnemyBuild(gs, e.cfg.Sensors)
	if ebErr != nil {
		e.sensorFailure(ebErr)
	}

	in := intel.Input{Time: now, Economy: eco, Macro: mac, Combat: cmb, EnemyBuild: eb, EnemyBuildErr: ebErr}
	for _, m := range e.modules {
		m.Update(in, e.store)
	}

	env := &task.Env{
		Iteration: iteration,
		Time:      now,
		Host:      e.host,
		Attention: attention.New(iteration, now, eco, mac, cmb, eb),
		Awareness: e.store.View(),
		Leases:    e.ledger,
	}
	rep = e.ego.Tick(ctx, env)

	if freed := e.ledger.Reap(now); len(freed) > 0 {
		e.logger.Debug("leases expired", "tags", freed)
	}
	if n := e.store.Prune(now); n > 0 {
		e.logger.Debug("beliefs pruned", "count", n)
	}
	return rep, nil
}

func (e *Engine) sensorFailure(err error) {
	payload := map[string]any{"error": err.Error()}
	var sf *sensors.SensorFailure
	if errors.As(err, &sf) {
		payload["sensor"] = sf.Sensor
		payload["field"] = sf.Field
	}
	e.logger.Warn("sensor failure", "error", err)
	e.events.Emit("sensor_failure", payload)
}
