// Package task defines the contract every mission executable implements and
// the tagged result a step returns.
package task

import (
	"context"
	"fmt"
	"slices"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/leases"
	"github.com/nstehr/ego/model"
)

// Domain is a categorical slot holding at most one active mission.
type Domain string

const (
	DomainDefense      Domain = "DEFENSE"
	DomainMacro        Domain = "MACRO"
	DomainDepotControl Domain = "MACRO_DEPOT_CONTROL"
	DomainWorkers      Domain = "MACRO_WORKERS"
	DomainIntel        Domain = "INTEL"
	DomainHarass       Domain = "HARASS"
	DomainMap          Domain = "MAP"
)

// Domains is the closed default set, in no particular priority.
var Domains = []Domain{
	DomainDefense, DomainMacro, DomainDepotControl, DomainWorkers,
	DomainIntel, DomainHarass, DomainMap,
}

// ParseDomain accepts only members of Domains.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if slices.Contains(Domains, d) {
		return d, nil
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

type Status int

const (
	StatusIdle Status = iota
	StatusActive
	StatusPaused
	StatusDone
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusActive:
		return "ACTIVE"
	case StatusPaused:
		return "PAUSED"
	case StatusDone:
		return "DONE"
	case StatusAborted:
		return "ABORTED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal is true for statuses after which a task is never stepped.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusAborted }

// Env is everything a task or planner may read during one tick. Writes go
// back to the engine through Result.Facts.
type Env struct {
	Iteration int
	Time      float64
	Host      host.Adapter
	Attention *attention.Attention
	Awareness awareness.View
	Leases    leases.View
}

// State is the host's world view for this tick.
func (e *Env) State() *model.GameState { return e.Host.State() }

// Task is a bounded state machine stepped at most once per tick.
type Task interface {
	Meta() *Base
	Evaluate(env *Env) int
	Step(ctx context.Context, env *Env) Result
	Pause(reason string)
	Abort(reason string)
}

// DoneKeyer is implemented by tasks whose completion time gates their
// planner. The engine writes the tick time under DoneKey on DONE.
type DoneKeyer interface {
	DoneKey() awareness.Key
}

// Base carries the bookkeeping shared by every task. Concrete tasks embed
// it and implement Evaluate and Step.
type Base struct {
	id         string
	domain     Domain
	commitment int
	status     Status
	missionID  string
	assigned   []uint64
	reason     string
}

func NewBase(id string, domain Domain, commitment int) Base {
	return Base{id: id, domain: domain, commitment: commitment}
}

func (b *Base) Meta() *Base        { return b }
func (b *Base) ID() string         { return b.id }
func (b *Base) Domain() Domain     { return b.domain }
func (b *Base) Commitment() int    { return b.commitment }
func (b *Base) Status() Status     { return b.status }
func (b *Base) MissionID() string  { return b.missionID }
func (b *Base) LastReason() string { return b.reason }

// AssignedTags returns a copy of the units the engine leased to this task.
func (b *Base) AssignedTags() []uint64 { return slices.Clone(b.assigned) }

// HasAssigned reports whether tag is currently assigned.
func (b *Base) HasAssigned(tag uint64) bool { return slices.Contains(b.assigned, tag) }

// Bind is called by the engine when the task joins a mission.
func (b *Base) Bind(missionID string) {
	b.missionID = missionID
	b.assigned = nil
	b.status = StatusIdle
}

// Assign replaces the assigned tag set. Only the engine calls this.
func (b *Base) Assign(tags []uint64) {
	b.assigned = slices.Clone(tags)
}

// Activate moves an idle or paused task to ACTIVE.
func (b *Base) Activate() {
	if b.status == StatusIdle || b.status == StatusPaused {
		b.status = StatusActive
	}
}

// Finish records a terminal status after DONE or FAILED.
func (b *Base) Finish(s Status, reason string) {
	b.status = s
	b.reason = reason
}

func (b *Base) Pause(reason string) {
	if b.status.Terminal() {
		return
	}
	b.status = StatusPaused
	b.reason = reason
}

func (b *Base) Abort(reason string) {
	if b.status.Terminal() {
		return
	}
	b.status = StatusAborted
	b.reason = reason
}

// Func adapts a legacy boolean step into a Task. true means the step
// issued commands.
type Func struct {
	Base
	StepFn func(ctx context.Context, env *Env) bool
	Score  int
}

func NewFunc(id string, domain Domain, step func(ctx context.Context, env *Env) bool) *Func {
	return &Func{Base: NewBase(id, domain, 1), StepFn: step}
}

func (f *Func) Evaluate(*Env) int { return f.Score }

func (f *Func) Step(ctx context.Context, env *Env) Result {
	return FromBool(f.StepFn(ctx, env))
}
