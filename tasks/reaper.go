package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// Objective is what a reaper scout is sent to confirm.
type Objective int

const (
	ConfirmNatural Objective = iota
	ConfirmMainRamp
	ConfirmMain
	MapCenter
	ReturnHome
)

var objectiveNames = [...]string{
	ConfirmNatural:  "CONFIRM_NATURAL",
	ConfirmMainRamp: "CONFIRM_MAIN_RAMP",
	ConfirmMain:     "CONFIRM_MAIN",
	MapCenter:       "MAP_CENTER",
	ReturnHome:      "RETURN_HOME",
}

func (o Objective) String() string {
	if o >= 0 && int(o) < len(objectiveNames) {
		return objectiveNames[o]
	}
	return fmt.Sprintf("Objective(%d)", int(o))
}

// ParseObjective accepts exactly the names String produces. Anything else
// is an error; there is no coercion.
func ParseObjective(s string) (Objective, error) {
	for i, n := range objectiveNames {
		if n == s {
			return Objective(i), nil
		}
	}
	return 0, fmt.Errorf("unknown reaper objective %q", s)
}

// Reaper defaults.
const (
	RetreatHP          = 0.4
	RetreatThreatCount = 3
	ArriveRadius       = 6.0
	rampOffset         = 12.0
)

var (
	errNoNatural = errors.New("no_enemy_natural")
	errNoMain    = errors.New("no_enemy_main")
)

// ReaperScout drives one assigned reaper through the waypoints of its
// objective. It retreats home on low health or when our bases are under
// pressure, and finishes on arrival.
type ReaperScout struct {
	task.Base
	Objective          Objective
	RetreatHP          float64
	RetreatThreatCount int
	ArriveRadius       float64
	// Key, when set, receives the completion time.
	Key awareness.Key

	waypoint   int
	retreating bool
}

func NewReaperScout(id string, domain task.Domain, obj Objective) *ReaperScout {
	return &ReaperScout{
		Base:               task.NewBase(id, domain, 2),
		Objective:          obj,
		RetreatHP:          RetreatHP,
		RetreatThreatCount: RetreatThreatCount,
		ArriveRadius:       ArriveRadius,
	}
}

func (r *ReaperScout) DoneKey() awareness.Key { return r.Key }

func (r *ReaperScout) Evaluate(env *task.Env) int {
	return env.Attention.Ready(model.Reaper)
}

func (r *ReaperScout) Step(ctx context.Context, env *task.Env) task.Result {
	tags := r.AssignedTags()
	if len(tags) == 0 {
		return task.Failed("no_assigned_reaper", 0)
	}
	gs := env.State()
	reaper, ok := gs.UnitByTag(tags[0])
	if !ok {
		return task.Failed("reaper_lost", 0)
	}

	if !r.retreating && r.shouldRetreat(reaper, env) {
		r.retreating = true
	}
	if r.retreating {
		return r.moveTo(ctx, env, reaper, gs.StartLocation, "retreated", "retreat")
	}

	route, err := r.route(env)
	if err != nil {
		return task.Failed(err.Error(), 10)
	}
	// Skip waypoints the reaper has already reached.
	for r.waypoint < len(route)-1 && reaper.Pos.Distance(route[r.waypoint]) <= r.ArriveRadius {
		r.waypoint++
	}
	res := r.moveTo(ctx, env, reaper, route[r.waypoint], "arrived_"+strings.ToLower(r.Objective.String()), "approach")
	if res.Outcome == task.OutcomeRunning && res.Reason == "approach" {
		res = res.With(awareness.ReaperScoutDispatchedFact())
	}
	return res.WithTelemetry("waypoint", r.waypoint)
}

func (r *ReaperScout) shouldRetreat(u model.Unit, env *task.Env) bool {
	if u.HealthFraction() <= r.RetreatHP {
		return true
	}
	return env.Attention.Threatened() && env.Attention.Combat().EnemiesNearBases >= r.RetreatThreatCount
}

// moveTo finishes with doneReason once u is within ArriveRadius of p, and
// otherwise issues a move unless one is already underway.
func (r *ReaperScout) moveTo(ctx context.Context, env *task.Env, u model.Unit, p model.Point, doneReason, moveReason string) task.Result {
	if u.Pos.Distance(p) <= r.ArriveRadius {
		return task.Done(doneReason)
	}
	if movingTo(u, p) {
		return task.Idle()
	}
	if err := env.Host.Command(ctx, host.Move(p, u.Tag)); err != nil {
		return task.Failed("reaper_move_failed", 5)
	}
	return task.Running(moveReason)
}

// route lists the waypoints for the objective, last one being the goal.
func (r *ReaperScout) route(env *task.Env) ([]model.Point, error) {
	gs := env.State()
	main, hasMain := env.Attention.EnemyMain()
	natural, hasNatural := env.Attention.EnemyNatural()

	ramp := func() model.Point {
		toward := gs.MapCenter
		if hasNatural {
			toward = natural
		}
		return gs.Bounds.Clamp(main.Towards(toward, rampOffset))
	}

	switch r.Objective {
	case ConfirmNatural:
		if !hasNatural {
			return nil, errNoNatural
		}
		return []model.Point{natural}, nil
	case ConfirmMainRamp:
		if !hasMain {
			return nil, errNoMain
		}
		return []model.Point{ramp()}, nil
	case ConfirmMain:
		if !hasMain {
			return nil, errNoMain
		}
		return []model.Point{ramp(), main}, nil
	case MapCenter:
		return []model.Point{gs.MapCenter}, nil
	case ReturnHome:
		return []model.Point{gs.StartLocation}, nil
	}
	return nil, fmt.Errorf("bad_objective %d", int(r.Objective))
}
