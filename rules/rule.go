package rules

import (
	"maps"

	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/ego/task"
)

// Rule is a declarative proposer: when the condition holds, propose Task
// in Domain at Score. Rules are evaluated in score order; an exclusive rule
// that fires blocks lower-scoring rules in the same domain for that tick.
type Rule struct {
	Name         string            `yaml:"name" json:"name"`
	Domain       string            `yaml:"domain" json:"domain"`
	Score        int               `yaml:"score" json:"score"`
	Exclusive    bool              `yaml:"exclusive" json:"exclusive,omitempty"`
	ConditionSrc string            `yaml:"when" json:"when"` // expr source
	Task         string            `yaml:"task" json:"task"`
	Params       map[string]string `yaml:"params" json:"params,omitempty"`
	Interval     float64           `yaml:"interval" json:"interval,omitempty"`
	Cooldown     float64           `yaml:"cooldown" json:"cooldown,omitempty"`
	LeaseTTL     float64           `yaml:"lease_ttl" json:"lease_ttl,omitempty"`
	Risk         int               `yaml:"risk" json:"risk,omitempty"`
	AllowPreempt *bool             `yaml:"allow_preempt" json:"allow_preempt,omitempty"`

	program *vm.Program
	domain  task.Domain
	kind    TaskKind
}

// Preemptible defaults to true when unset.
func (r *Rule) Preemptible() bool {
	return r.AllowPreempt == nil || *r.AllowPreempt
}

// clone copies the declarative fields only; compiled state is left empty.
func (r *Rule) clone() *Rule {
	c := &Rule{
		Name:         r.Name,
		Domain:       r.Domain,
		Score:        r.Score,
		Exclusive:    r.Exclusive,
		ConditionSrc: r.ConditionSrc,
		Task:         r.Task,
		Params:       maps.Clone(r.Params),
		Interval:     r.Interval,
		Cooldown:     r.Cooldown,
		LeaseTTL:     r.LeaseTTL,
		Risk:         r.Risk,
	}
	if r.AllowPreempt != nil {
		v := *r.AllowPreempt
		c.AllowPreempt = &v
	}
	return c
}
