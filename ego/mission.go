package ego

import (
	"slices"

	"github.com/nstehr/ego/task"
)

// Mission is an elected proposal bound to its domain. Only Ego mutates it.
type Mission struct {
	ID           string
	ProposalID   string
	Domain       task.Domain
	Score        int
	Tasks        []task.Task
	LeaseTTL     float64
	CooldownS    float64
	Risk         int
	AllowPreempt bool
	CreatedAt    float64

	specs        []TaskSpec
	assignMisses int
	paused       bool
}

// Owner is the lease owner id used for t's units.
func (m *Mission) Owner(t task.Task) string {
	return m.ID + "/" + t.Meta().ID()
}

// Paused reports whether the mission is held by a soft preempt.
func (m *Mission) Paused() bool { return m.paused }

// AssignedTags is the union of every task's assigned units.
func (m *Mission) AssignedTags() []uint64 {
	var out []uint64
	for _, t := range m.Tasks {
		out = append(out, t.Meta().AssignedTags()...)
	}
	slices.Sort(out)
	return out
}

// live lists tasks that may still be stepped.
func (m *Mission) live() []int {
	var idx []int
	for i, t := range m.Tasks {
		if !t.Meta().Status().Terminal() {
			idx = append(idx, i)
		}
	}
	return idx
}

func (m *Mission) leaseTTL(i int) float64 {
	if ttl := m.specs[i].LeaseTTL; ttl > 0 {
		return ttl
	}
	return m.LeaseTTL
}
