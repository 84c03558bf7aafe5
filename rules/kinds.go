package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/planners"
	"github.com/nstehr/ego/task"
	"github.com/nstehr/ego/tasks"
)

// TaskKind is a task a rule may name. Validate checks params once at
// compile time; Spec builds the task spec when the rule fires and may
// decline (false) when the tick lacks what the task needs.
type TaskKind struct {
	Validate func(params map[string]string) error
	// Keyed kinds record completion under the rule's done key, which is
	// what interval gating reads.
	Keyed bool
	Spec  func(r *Rule, key awareness.Key, env *task.Env) (ego.TaskSpec, bool)
}

// Registry maps task names used in rules to kinds.
type Registry map[string]TaskKind

// DefaultRegistry knows every built-in task.
func DefaultRegistry() Registry {
	return Registry{
		"reaper_scout": {
			Validate: func(p map[string]string) error {
				_, err := tasks.ParseObjective(p["objective"])
				return err
			},
			Keyed: true,
			Spec: func(r *Rule, key awareness.Key, env *task.Env) (ego.TaskSpec, bool) {
				obj, _ := tasks.ParseObjective(r.Params["objective"])
				domain, name := r.domain, r.Name
				return ego.TaskSpec{
					TaskID: name,
					Factory: func(string) task.Task {
						t := tasks.NewReaperScout(name, domain, obj)
						t.Key = key
						return t
					},
					Requirements: []ego.UnitRequirement{{
						Types: []model.UnitType{model.Reaper},
						Count: 1,
						Role:  "scout",
					}},
				}, true
			},
		},
		"scan": {
			Validate: func(p map[string]string) error {
				if _, err := parseTarget(p["target"]); err != nil {
					return err
				}
				_, err := floatParam(p, "cooldown", 20)
				return err
			},
			Spec: func(r *Rule, _ awareness.Key, env *task.Env) (ego.TaskSpec, bool) {
				target, ok := resolveTarget(r.Params["target"], env)
				if !ok {
					return ego.TaskSpec{}, false
				}
				cooldown, _ := floatParam(r.Params, "cooldown", 20)
				name := r.Name
				return ego.TaskSpec{
					TaskID:  name,
					Factory: func(string) task.Task { return tasks.NewScan(name, target, cooldown) },
				}, true
			},
		},
		"macro": {
			Validate: func(p map[string]string) error {
				if len(splitList(p["plans"])) == 0 {
					return fmt.Errorf("macro task needs plans")
				}
				return nil
			},
			Spec: func(r *Rule, _ awareness.Key, env *task.Env) (ego.TaskSpec, bool) {
				plans, domain, name := splitList(r.Params["plans"]), r.domain, r.Name
				return ego.TaskSpec{
					TaskID:  name,
					Factory: func(string) task.Task { return tasks.NewMacro(name, domain, plans...) },
				}, true
			},
		},
		"control_depots": {
			Keyed: true,
			Spec: func(r *Rule, key awareness.Key, env *task.Env) (ego.TaskSpec, bool) {
				name := r.Name
				return ego.TaskSpec{
					TaskID:  name,
					Factory: func(string) task.Task { return tasks.NewControlDepots(name, key) },
				}, true
			},
		},
		"rebalance_workers": {
			Keyed: true,
			Spec: func(r *Rule, key awareness.Key, env *task.Env) (ego.TaskSpec, bool) {
				req, ok := planners.WorkerRequirement(env.State())
				if !ok {
					return ego.TaskSpec{}, false
				}
				name := r.Name
				return ego.TaskSpec{
					TaskID:       name,
					Factory:      func(string) task.Task { return tasks.NewWorkers(name, key) },
					Requirements: []ego.UnitRequirement{req},
				}, true
			},
		},
	}
}

type target int

const (
	targetEnemyMain target = iota
	targetEnemyNatural
	targetMapCenter
)

func parseTarget(s string) (target, error) {
	switch s {
	case "", "enemy_main":
		return targetEnemyMain, nil
	case "enemy_natural":
		return targetEnemyNatural, nil
	case "map_center":
		return targetMapCenter, nil
	}
	return 0, fmt.Errorf("unknown target %q", s)
}

func resolveTarget(s string, env *task.Env) (model.Point, bool) {
	t, _ := parseTarget(s)
	switch t {
	case targetEnemyNatural:
		return env.Attention.EnemyNatural()
	case targetMapCenter:
		return env.State().MapCenter, true
	}
	return env.Attention.EnemyMain()
}

func floatParam(p map[string]string, name string, def float64) (float64, error) {
	s, ok := p[name]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", name, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
