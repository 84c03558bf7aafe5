// Package ego arbitrates planner proposals into at most one mission per
// domain, leases units to mission tasks and steps them under a per-tick
// command budget.
package ego

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/nstehr/ego/audit"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/leases"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/task"
)

// Config holds the arbitration knobs.
type Config struct {
	CommandBudget     int     `yaml:"command_budget" env:"COMMAND_BUDGET"`
	SoftPreemptAt     int     `yaml:"soft_preempt_at" env:"SOFT_PREEMPT_AT"`
	HardPreemptAt     int     `yaml:"hard_preempt_at" env:"HARD_PREEMPT_AT"`
	DefaultLeaseTTL   float64 `yaml:"default_lease_ttl" env:"DEFAULT_LEASE_TTL"`
	AssignRetryBudget int     `yaml:"assign_retry_budget" env:"ASSIGN_RETRY_BUDGET"`
	// RetireUnelected lists domains whose mission ends on any tick the
	// domain elects nothing.
	RetireUnelected []task.Domain `yaml:"retire_unelected" env:"RETIRE_UNELECTED"`
	// Domains is the closed set of slots. Empty means task.Domains.
	Domains []task.Domain `yaml:"domains" env:"DOMAINS"`
}

func DefaultConfig() Config {
	return Config{
		CommandBudget:     2,
		SoftPreemptAt:     60,
		HardPreemptAt:     80,
		DefaultLeaseTTL:   leases.DefaultTTL,
		AssignRetryBudget: 44,
		RetireUnelected:   []task.Domain{task.DomainDefense},
		Domains:           slices.Clone(task.Domains),
	}
}

// assignMissPrefix marks FAILED reasons caused by an empty assignment.
const assignMissPrefix = "no_assigned"

// Ego owns the mission table and the cooldowns. It is driven from the tick
// goroutine only.
type Ego struct {
	cfg      Config
	planners []Planner
	store    *awareness.Store
	ledger   *leases.Ledger
	events   *audit.Emitter
	logger   *slog.Logger

	domains   []task.Domain
	missions  map[task.Domain]*Mission
	cooldowns map[string]float64
	proposed  map[string]string
	epoch     int
}

// New wires an Ego to the engine-owned belief store and lease ledger.
// events and logger may be nil.
func New(cfg Config, store *awareness.Store, ledger *leases.Ledger, events *audit.Emitter, logger *slog.Logger) *Ego {
	if logger == nil {
		logger = slog.Default()
	}
	domains := cfg.Domains
	if len(domains) == 0 {
		domains = task.Domains
	}
	return &Ego{
		cfg:       cfg,
		store:     store,
		ledger:    ledger,
		events:    events,
		logger:    logger,
		domains:   slices.Clone(domains),
		missions:  make(map[task.Domain]*Mission),
		cooldowns: make(map[string]float64),
		proposed:  make(map[string]string),
	}
}

// Register appends planners. Planners run in registration order.
func (e *Ego) Register(ps ...Planner) {
	e.planners = append(e.planners, ps...)
}

func (e *Ego) Planners() []Planner { return slices.Clone(e.planners) }

func (e *Ego) Ledger() *leases.Ledger { return e.ledger }

// Mission returns the mission occupying d.
func (e *Ego) Mission(d task.Domain) (*Mission, bool) {
	m, ok := e.missions[d]
	return m, ok
}

// Missions lists active missions in domain order.
func (e *Ego) Missions() []*Mission {
	out := make([]*Mission, 0, len(e.missions))
	for _, d := range e.domains {
		if m, ok := e.missions[d]; ok {
			out = append(out, m)
		}
	}
	return out
}

// CooldownUntil reports when a proposal id becomes electable again.
func (e *Ego) CooldownUntil(proposalID string, now float64) (float64, bool) {
	until, ok := e.cooldowns[proposalID]
	if !ok || now >= until {
		return 0, false
	}
	return until, true
}

// StepRecord is one task step taken during a tick.
type StepRecord struct {
	MissionID string
	TaskID    string
	Domain    task.Domain
	Result    task.Result
}

// Report summarizes one tick of arbitration.
type Report struct {
	Urgency    int
	Elected    map[task.Domain]string
	Steps      []StepRecord
	Deferred   []string // missions skipped for lack of budget
	BudgetLeft int
}

// Tick runs one arbitration pass: reap, collect, elect, preempt, swap,
// assign, execute.
func (e *Ego) Tick(ctx context.Context, env *task.Env) Report {
	now := env.Time
	if freed := e.ledger.Reap(now); len(freed) > 0 {
		e.logger.Debug("leases reaped", "tags", freed)
	}
	urgency := env.Attention.Urgency()
	rep := Report{Urgency: urgency, Elected: make(map[task.Domain]string)}

	elected := e.elect(e.collect(env), now)
	for d, p := range elected {
		rep.Elected[d] = p.ID
	}

	e.preempt(urgency)
	e.retire(elected)
	e.swap(elected, urgency, env)
	e.resume(urgency)

	order := e.executionOrder()
	for _, m := range order {
		if !m.paused {
			e.assign(m, env)
		}
	}
	rep.BudgetLeft = e.execute(ctx, order, env, &rep)
	return rep
}

func (e *Ego) collect(env *task.Env) []Proposal {
	var all []Proposal
	for _, p := range e.planners {
		ps, err := e.propose(p, env)
		if err != nil {
			e.plannerError(p.ID(), err)
			continue
		}
		var ids []string
		for _, pr := range ps {
			if pr.Score <= 0 {
				continue
			}
			if !slices.Contains(e.domains, pr.Domain) {
				e.plannerError(p.ID(), fmt.Errorf("proposal %q: unknown domain %q", pr.ID, pr.Domain))
				continue
			}
			if len(pr.Tasks) == 0 {
				e.plannerError(p.ID(), fmt.Errorf("proposal %q has no tasks", pr.ID))
				continue
			}
			ids = append(ids, pr.ID)
			all = append(all, pr)
		}
		e.noteProposed(p.ID(), ids)
	}
	return all
}

func (e *Ego) propose(p Planner, env *task.Env) (ps []Proposal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Propose(env)
}

func (e *Ego) plannerError(planner string, err error) {
	e.logger.Warn("planner error", "planner", planner, "error", err)
	e.events.Emit("planner_error", map[string]any{"planner": planner, "error": err.Error()})
}

// noteProposed emits planner_proposed when a planner's proposal set changes.
func (e *Ego) noteProposed(planner string, ids []string) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	key := strings.Join(ids, ",")
	if e.proposed[planner] == key {
		return
	}
	e.proposed[planner] = key
	e.events.Emit("planner_proposed", map[string]any{"planner": planner, "proposals": ids})
}

// elect picks the best proposal per domain, skipping ids on cooldown.
// Ties go to the lexically smaller id.
func (e *Ego) elect(ps []Proposal, now float64) map[task.Domain]Proposal {
	best := make(map[task.Domain]Proposal)
	for _, p := range ps {
		if until, ok := e.cooldowns[p.ID]; ok {
			if now < until {
				e.logger.Debug("proposal on cooldown", "proposal", p.ID, "until", until)
				continue
			}
			delete(e.cooldowns, p.ID)
		}
		cur, ok := best[p.Domain]
		if !ok || p.Score > cur.Score || (p.Score == cur.Score && p.ID < cur.ID) {
			best[p.Domain] = p
		}
	}
	return best
}

func (e *Ego) preemptible(m *Mission) bool {
	return m.Domain != task.DomainDefense && m.AllowPreempt
}

func (e *Ego) preempt(urgency int) {
	if urgency < e.cfg.SoftPreemptAt {
		return
	}
	hard := urgency >= e.cfg.HardPreemptAt
	for _, m := range e.Missions() {
		if !e.preemptible(m) {
			continue
		}
		if hard {
			e.drop(m, "hard_preempt")
			e.logger.Info("mission hard preempted", "mission", m.ID, "domain", m.Domain, "urgency", urgency)
			e.events.Emit("task_hard_preempt", e.missionPayload(m, map[string]any{"urgency": urgency}))
			continue
		}
		if m.paused {
			continue
		}
		for _, i := range m.live() {
			m.Tasks[i].Pause("soft_preempt")
		}
		m.paused = true
		e.logger.Info("mission soft preempted", "mission", m.ID, "domain", m.Domain, "urgency", urgency)
		e.events.Emit("task_soft_preempt", e.missionPayload(m, map[string]any{"urgency": urgency}))
	}
}

func (e *Ego) retire(elected map[task.Domain]Proposal) {
	for _, d := range e.cfg.RetireUnelected {
		m, ok := e.missions[d]
		if !ok {
			continue
		}
		if _, ok := elected[d]; ok {
			continue
		}
		e.drop(m, "unelected")
		e.logger.Info("mission retired", "mission", m.ID, "domain", d)
		e.events.Emit("task_retired", e.missionPayload(m, map[string]any{"reason": "unelected"}))
	}
}

func (e *Ego) swap(elected map[task.Domain]Proposal, urgency int, env *task.Env) {
	for _, d := range e.domains {
		p, ok := elected[d]
		if !ok {
			continue
		}
		cur := e.missions[d]
		if cur != nil && cur.ProposalID == p.ID {
			cur.Score = p.Score
			continue
		}
		if d != task.DomainDefense && p.AllowPreempt && urgency >= e.cfg.SoftPreemptAt {
			e.logger.Debug("mission creation held", "proposal", p.ID, "urgency", urgency)
			continue
		}
		m, err := e.instantiate(p, env.Time)
		if err != nil {
			e.plannerError(plannerOf(p.ID), err)
			continue
		}
		if cur != nil {
			e.drop(cur, "replaced")
			e.logger.Info("mission replaced", "domain", d, "old", cur.ID, "new", m.ID)
			e.events.Emit("task_replaced", e.missionPayload(cur, map[string]any{
				"replaced_by":          m.ID,
				"replaced_by_proposal": p.ID,
			}))
		}
		e.missions[d] = m

		taskIDs := make([]string, len(m.Tasks))
		evals := make([]int, len(m.Tasks))
		for i, t := range m.Tasks {
			taskIDs[i] = t.Meta().ID()
			evals[i] = e.evaluate(t, env)
		}
		e.logger.Info("mission selected", "mission", m.ID, "domain", d, "score", p.Score)
		e.events.Emit("task_selected", e.missionPayload(m, map[string]any{
			"score":     p.Score,
			"tasks":     taskIDs,
			"risk":      p.Risk,
			"lease_ttl": m.LeaseTTL,
			"evals":     evals,
		}))
	}
}

func (e *Ego) instantiate(p Proposal, now float64) (m *Mission, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("proposal %q: factory panic: %v", p.ID, r)
		}
	}()
	ttl := p.LeaseTTL
	if ttl <= 0 {
		ttl = e.cfg.DefaultLeaseTTL
	}
	e.epoch++
	m = &Mission{
		ID:           fmt.Sprintf("%s@%d", p.ID, e.epoch),
		ProposalID:   p.ID,
		Domain:       p.Domain,
		Score:        p.Score,
		LeaseTTL:     ttl,
		CooldownS:    p.CooldownS,
		Risk:         p.Risk,
		AllowPreempt: p.AllowPreempt,
		CreatedAt:    now,
		specs:        slices.Clone(p.Tasks),
	}
	for _, spec := range p.Tasks {
		if spec.Factory == nil {
			return nil, fmt.Errorf("proposal %q: task %q has no factory", p.ID, spec.TaskID)
		}
		t := spec.Factory(m.ID)
		if t == nil {
			return nil, fmt.Errorf("proposal %q: factory for %q returned nil", p.ID, spec.TaskID)
		}
		t.Meta().Bind(m.ID)
		m.Tasks = append(m.Tasks, t)
	}
	return m, nil
}

func (e *Ego) resume(urgency int) {
	if urgency >= e.cfg.SoftPreemptAt {
		return
	}
	for _, m := range e.Missions() {
		if !m.paused {
			continue
		}
		m.paused = false
		for _, i := range m.live() {
			m.Tasks[i].Meta().Activate()
		}
		e.logger.Info("mission resumed", "mission", m.ID, "domain", m.Domain)
		e.events.Emit("task_resumed", e.missionPayload(m, nil))
	}
}

// executionOrder puts DEFENSE first, then the rest by descending score.
func (e *Ego) executionOrder() []*Mission {
	ms := e.Missions()
	sort.SliceStable(ms, func(i, j int) bool {
		di, dj := ms[i].Domain == task.DomainDefense, ms[j].Domain == task.DomainDefense
		if di != dj {
			return di
		}
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		return ms[i].Domain < ms[j].Domain
	})
	return ms
}

// assign tops up each live task's units from the free pool and publishes
// the resulting tag set to the task.
func (e *Ego) assign(m *Mission, env *task.Env) {
	gs := env.State()
	now := env.Time
	for _, i := range m.live() {
		t := m.Tasks[i]
		owner := m.Owner(t)
		ttl := m.leaseTTL(i)

		var held []uint64
		for _, tag := range e.ledger.Owned(owner, now) {
			if _, ok := gs.UnitByTag(tag); ok {
				held = append(held, tag)
			} else {
				e.ledger.Release(owner, tag)
			}
		}

		counted := make(map[uint64]bool)
		for _, req := range m.specs[i].Requirements {
			have := 0
			for _, tag := range held {
				if counted[tag] || (!req.All && have >= req.Count) {
					continue
				}
				if u, _ := gs.UnitByTag(tag); slices.Contains(req.Types, u.Type) {
					counted[tag] = true
					have++
				}
			}
			need := req.Count - have
			if req.All {
				need = -1
			} else if need <= 0 {
				continue
			}
			for _, u := range e.pick(req, gs, now, need) {
				if e.ledger.Claim(owner, u.Tag, req.Role, now, ttl, false) {
					e.logger.Debug("lease claimed", "owner", owner, "tag", u.Tag, "role", req.Role)
					held = append(held, u.Tag)
					counted[u.Tag] = true
				}
			}
		}
		slices.Sort(held)
		t.Meta().Assign(held)
	}
}

// pick returns up to need free units for req; need < 0 means all of them.
func (e *Ego) pick(req UnitRequirement, gs *model.GameState, now float64, need int) []model.Unit {
	origin := gs.StartLocation
	if req.Near != nil {
		origin = *req.Near
	}
	var cands []model.Unit
	for _, u := range gs.Units {
		if !slices.Contains(req.Types, u.Type) || !u.IsReady() || !e.ledger.CanClaim(u.Tag, now) {
			continue
		}
		if req.Within > 0 && u.Pos.Distance(origin) > req.Within {
			continue
		}
		if req.Filter != nil && !req.Filter(u) {
			continue
		}
		cands = append(cands, u)
	}
	model.SortByDistance(cands, origin)
	if need < 0 {
		need = len(cands)
	}
	if req.Selector != nil {
		cands = req.Selector(cands, need)
	}
	if len(cands) > need {
		cands = cands[:need]
	}
	return cands
}

// execute steps missions in order and returns the unspent budget.
func (e *Ego) execute(ctx context.Context, order []*Mission, env *task.Env, rep *Report) int {
	now := env.Time
	budget := e.cfg.CommandBudget
	for _, m := range order {
		if m.paused {
			e.touch(m, now)
			continue
		}
		defense := m.Domain == task.DomainDefense
		if !defense && budget <= 0 {
			rep.Deferred = append(rep.Deferred, m.ID)
			e.touch(m, now)
			continue
		}

		acted := false
		var failure *task.Result
		for _, i := range m.live() {
			t := m.Tasks[i]
			t.Meta().Activate()
			res := e.step(ctx, t, env)
			rep.Steps = append(rep.Steps, StepRecord{MissionID: m.ID, TaskID: t.Meta().ID(), Domain: m.Domain, Result: res})
			e.store.Apply(res.Facts, now)

			switch res.Outcome {
			case task.OutcomeRunning:
				acted = acted || res.Acted()
				m.assignMisses = 0
			case task.OutcomeNoop:
				m.assignMisses = 0
			case task.OutcomeDone:
				t.Meta().Finish(task.StatusDone, res.Reason)
				if dk, ok := t.(task.DoneKeyer); ok && dk.DoneKey() != "" {
					e.store.Set(dk.DoneKey(), now, now, 0)
				}
				e.ledger.ReleaseOwner(m.Owner(t))
				t.Meta().Assign(nil)
				e.logger.Info("task done", "mission", m.ID, "task", t.Meta().ID(), "reason", res.Reason)
				e.events.Emit("task_done", e.missionPayload(m, map[string]any{
					"task_id":   t.Meta().ID(),
					"reason":    res.Reason,
					"telemetry": res.Telemetry,
				}))
			case task.OutcomeFailed:
				if strings.HasPrefix(res.Reason, assignMissPrefix) && m.assignMisses < e.cfg.AssignRetryBudget {
					m.assignMisses++
					e.logger.Debug("assignment miss", "mission", m.ID, "reason", res.Reason, "misses", m.assignMisses)
					continue
				}
				t.Meta().Finish(task.StatusAborted, res.Reason)
				e.logger.Info("task failed", "mission", m.ID, "task", t.Meta().ID(), "reason", res.Reason)
				e.events.Emit("task_failed", e.missionPayload(m, map[string]any{
					"task_id":     t.Meta().ID(),
					"reason":      res.Reason,
					"retry_after": res.RetryAfter,
					"telemetry":   res.Telemetry,
				}))
				failure = &res
			}
			if failure != nil {
				break
			}
		}

		switch {
		case failure != nil:
			e.drop(m, "mission_failed")
			cool := failure.RetryAfter
			if cool <= 0 {
				cool = m.CooldownS
			}
			if cool > 0 {
				e.cooldowns[m.ProposalID] = now + cool
			}
		case len(m.live()) == 0:
			e.drop(m, "")
			if m.CooldownS > 0 {
				e.cooldowns[m.ProposalID] = now + m.CooldownS
			}
		default:
			e.touch(m, now)
		}

		if acted && !defense {
			budget--
		}
	}
	if budget < 0 {
		budget = 0
	}
	return budget
}

// evaluate reports a task's own estimate of its worth, 0 if it panics.
func (e *Ego) evaluate(t task.Task, env *task.Env) (score int) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
		}
	}()
	return t.Evaluate(env)
}

func (e *Ego) step(ctx context.Context, t task.Task, env *task.Env) (res task.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panic", "task", t.Meta().ID(), "mission", t.Meta().MissionID(), "panic", r)
			res = task.Failed("panic", 0)
		}
	}()
	return t.Step(ctx, env)
}

// touch refreshes every lease the mission's live tasks hold.
func (e *Ego) touch(m *Mission, now float64) {
	for _, i := range m.live() {
		owner := m.Owner(m.Tasks[i])
		for _, tag := range e.ledger.Owned(owner, now) {
			e.ledger.Touch(owner, tag, now, m.leaseTTL(i))
		}
	}
}

// drop ends a mission: live tasks are aborted with reason, every lease is
// released and the domain slot is freed.
func (e *Ego) drop(m *Mission, reason string) {
	for _, i := range m.live() {
		m.Tasks[i].Abort(reason)
	}
	for _, t := range m.Tasks {
		e.ledger.ReleaseOwner(m.Owner(t))
		t.Meta().Assign(nil)
	}
	if e.missions[m.Domain] == m {
		delete(e.missions, m.Domain)
	}
}

func (e *Ego) missionPayload(m *Mission, extra map[string]any) map[string]any {
	p := map[string]any{
		"mission_id":  m.ID,
		"proposal_id": m.ProposalID,
		"domain":      string(m.Domain),
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

// plannerOf recovers the planner id from a proposal id.
func plannerOf(proposalID string) string {
	if i := strings.IndexByte(proposalID, ':'); i >= 0 {
		return proposalID[:i]
	}
	return proposalID
}
