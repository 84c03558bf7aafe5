package ego

import (
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// Proposal is a planner's candidate mission. ID must be stable across ticks
// for the same intent; it is the only thing that makes two proposals "the
// same mission".
type Proposal struct {
	ID           string
	Domain       task.Domain
	Score        int
	Tasks        []TaskSpec
	LeaseTTL     float64
	CooldownS    float64
	Risk         int
	AllowPreempt bool
}

// TaskSpec describes one task of a proposal and the units it needs.
type TaskSpec struct {
	TaskID       string
	Factory      func(missionID string) task.Task
	Requirements []UnitRequirement
	// LeaseTTL overrides the proposal's lease TTL when positive.
	LeaseTTL float64
}

// UnitRequirement asks for Count own units of the given types. With All set
// every free matching unit is taken instead. Candidates are ordered nearest
// first from Near (the start location when nil) unless Selector is set.
type UnitRequirement struct {
	Types  []model.UnitType
	Count  int
	All    bool
	Role   string
	Near   *model.Point
	Within float64
	Filter func(model.Unit) bool
	// Selector picks up to need units from candidates already filtered
	// for type, readiness, lease state and Filter.
	Selector func(candidates []model.Unit, need int) []model.Unit
}

// Planner turns the tick's view into proposals. Planners must not command
// the host or write beliefs.
type Planner interface {
	ID() string
	Propose(env *task.Env) ([]Proposal, error)
}

// PlannerFunc adapts a function into a Planner.
type PlannerFunc struct {
	Name string
	Fn   func(env *task.Env) ([]Proposal, error)
}

func (p PlannerFunc) ID() string                                { return p.Name }
func (p PlannerFunc) Propose(env *task.Env) ([]Proposal, error) { return p.Fn(env) }

// ProposalID derives a proposal id from the planner id and a stable suffix.
func ProposalID(plannerID, suffix string) string {
	return plannerID + ":" + suffix
}

// Single is a convenience for the common one-task proposal.
func Single(id string, domain task.Domain, score int, spec TaskSpec) Proposal {
	return Proposal{ID: id, Domain: domain, Score: score, Tasks: []TaskSpec{spec}, AllowPreempt: true}
}
