package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/task"
)

// Planner runs compiled rules against the tick's view and proposes for
// every rule that fires. It plugs into Ego like any other planner.
type Planner struct {
	id    string
	kinds Registry

	mu    sync.RWMutex
	rules []*Rule
}

// NewPlanner compiles all rule conditions into expr bytecode and sorts by
// score.
func NewPlanner(id string, rules []*Rule, kinds Registry) (*Planner, error) {
	if kinds == nil {
		kinds = DefaultRegistry()
	}
	compiled, err := compileRules(rules, kinds)
	if err != nil {
		return nil, err
	}
	return &Planner{id: id, kinds: kinds, rules: compiled}, nil
}

func (p *Planner) ID() string { return p.id }

// Rules returns the active rule set in evaluation order.
func (p *Planner) Rules() []*Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Rule(nil), p.rules...)
}

// DoneKey is where a keyed rule's task records completion.
func (p *Planner) DoneKey(ruleName string) awareness.Key {
	return awareness.LastDoneKey(p.id + "." + ruleName)
}

// Propose evaluates every rule. Condition errors are logged and the rule
// skipped; they never fail the planner.
func (p *Planner) Propose(env *task.Env) ([]ego.Proposal, error) {
	p.mu.RLock()
	rules := p.rules
	p.mu.RUnlock()

	renv := NewRuleEnv(env)
	blocked := make(map[task.Domain]bool) // domain → exclusive rule already fired

	var out []ego.Proposal
	for _, r := range rules {
		if blocked[r.domain] {
			continue
		}
		key := p.DoneKey(r.Name)
		if r.Interval > 0 {
			if since, ok := env.Awareness.Since(key, env.Time); ok && since < r.Interval {
				continue
			}
		}

		result, err := vm.Run(r.program, renv)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "error", err)
			continue
		}
		if match, ok := result.(bool); !ok || !match {
			continue
		}

		spec, ok := r.kind.Spec(r, key, env)
		if !ok {
			slog.Debug("rule fired without a usable target", "rule", r.Name)
			continue
		}
		slog.Debug("rule fired", "rule", r.Name, "score", r.Score, "domain", r.domain)

		out = append(out, ego.Proposal{
			ID:           ego.ProposalID(p.id, r.Name),
			Domain:       r.domain,
			Score:        r.Score,
			Tasks:        []ego.TaskSpec{spec},
			LeaseTTL:     r.LeaseTTL,
			CooldownS:    r.Cooldown,
			Risk:         r.Risk,
			AllowPreempt: r.Preemptible(),
		})
		if r.Exclusive {
			blocked[r.domain] = true
		}
	}
	return out, nil
}

// Swap atomically replaces the rule set. Compiles first; if compilation
// fails the old rules remain active.
func (p *Planner) Swap(newRules []*Rule) error {
	compiled, err := compileRules(newRules, p.kinds)
	if err != nil {
		return err
	}
	names := make([]string, len(compiled))
	for i, r := range compiled {
		names[i] = r.Name
	}
	p.mu.Lock()
	p.rules = compiled
	p.mu.Unlock()
	slog.Info("rule set swapped", "planner", p.id, "count", len(compiled), "rules", names)
	return nil
}

// compileRules compiles private copies of rules; the caller's slice and
// rules are never modified, so one parsed config can back many planners.
func compileRules(src []*Rule, kinds Registry) ([]*Rule, error) {
	seen := make(map[string]bool, len(src))
	rules := make([]*Rule, 0, len(src))
	for _, orig := range src {
		if orig == nil {
			return nil, fmt.Errorf("nil rule")
		}
		r := orig.clone()
		if r.Name == "" {
			return nil, fmt.Errorf("rule with empty name")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate rule %q", r.Name)
		}
		seen[r.Name] = true

		d, err := task.ParseDomain(r.Domain)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		kind, ok := kinds[r.Task]
		if !ok {
			return nil, fmt.Errorf("rule %q: unknown task %q", r.Name, r.Task)
		}
		if kind.Validate != nil {
			if err := kind.Validate(r.Params); err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
		}
		if r.Interval > 0 && !kind.Keyed {
			return nil, fmt.Errorf("rule %q: task %q does not record completion, interval unsupported", r.Name, r.Task)
		}
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
		r.domain = d
		r.kind = kind
		rules = append(rules, r)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Score > rules[j].Score
	})
	return rules, nil
}
