package rules

import (
	"math"
	"strings"
	"testing"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/audit"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/host/hosttest"
	"github.com/nstehr/ego/leases"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/sensors"
	"github.com/nstehr/ego/task"
	"github.com/nstehr/ego/tasks"
)

type rig struct {
	host   *hosttest.Fake
	store  *awareness.Store
	ledger *leases.Ledger
}

func newRig(gs model.GameState) *rig {
	return &rig{
		host:   hosttest.New(gs),
		store:  awareness.NewStore(audit.NewEmitter(&audit.MemorySink{}, "rules", nil)),
		ledger: leases.New(),
	}
}

func (r *rig) env(now float64) *task.Env {
	r.host.GS.Time = now
	gs := &r.host.GS
	cfg := sensors.DefaultConfig()
	eb, _ := sensors.EnemyBuild(gs, cfg)
	att := attention.New(gs.Iteration, now, sensors.Economy(gs), sensors.Macro(gs), sensors.Combat(gs, cfg), eb)
	return &task.Env{Time: now, Host: r.host, Attention: att, Awareness: r.store.View(), Leases: r.ledger}
}

func ready(tag uint64, t model.UnitType, x, y float64) model.Unit {
	return model.Unit{Tag: tag, Type: t, Pos: model.Point{X: x, Y: y}, BuildProgress: 1, Health: 60, HealthMax: 60}
}

func reaperState() model.GameState {
	return model.GameState{
		StartLocation:       model.Point{X: 30, Y: 30},
		EnemyStartLocations: []model.Point{{X: 150, Y: 150}},
		ExpansionLocations:  []model.Point{{X: 30, Y: 30}, {X: 130, Y: 148}, {X: 55, Y: 35}},
		MapCenter:           model.Point{X: 90, Y: 90},
		Units: []model.Unit{
			ready(1, model.CommandCenter, 30, 30),
			ready(40, model.Reaper, 40, 40),
		},
	}
}

func TestDefaultRulesCompile(t *testing.T) {
	p, err := NewPlanner("rules", DefaultRules(), nil)
	if err != nil {
		t.Fatalf("NewPlanner(DefaultRules()) failed: %v", err)
	}
	rules := p.Rules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	for i := 1; i < len(rules); i++ {
		if rules[i].Score > rules[i-1].Score {
			t.Errorf("rules not sorted by score: %s (%d) > %s (%d)",
				rules[i].Name, rules[i].Score, rules[i-1].Name, rules[i-1].Score)
		}
	}
}

func TestNewPlannerLeavesInputUntouched(t *testing.T) {
	preempt := false
	in := []*Rule{
		{Name: "low", Domain: "MAP", Score: 1, ConditionSrc: "true", Task: "reaper_scout",
			Params: map[string]string{"objective": "MAP_CENTER"}},
		{Name: "high", Domain: "MAP", Score: 9, ConditionSrc: "true", Task: "reaper_scout",
			Params: map[string]string{"objective": "MAP_CENTER"}, AllowPreempt: &preempt},
	}
	a, err := NewPlanner("a", in, nil)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	b, err := NewPlanner("b", in, nil)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}

	if in[0].Name != "low" || in[1].Name != "high" {
		t.Errorf("caller slice reordered: %s, %s", in[0].Name, in[1].Name)
	}
	for _, r := range in {
		if r.program != nil || r.kind.Spec != nil {
			t.Errorf("caller rule %q was compiled in place", r.Name)
		}
	}

	ra, rb := a.Rules(), b.Rules()
	if ra[0].Name != "high" || rb[0].Name != "high" {
		t.Fatalf("planner order = %s / %s, want high first", ra[0].Name, rb[0].Name)
	}
	for i := range ra {
		if ra[i] == rb[i] || ra[i] == in[0] || ra[i] == in[1] {
			t.Errorf("rule %q shared between planners or with the caller", ra[i].Name)
		}
	}
	ra[0].Params["objective"] = "CONFIRM_NATURAL"
	*ra[0].AllowPreempt = true
	if in[1].Params["objective"] != "MAP_CENTER" || rb[0].Params["objective"] != "MAP_CENTER" {
		t.Error("params map shared")
	}
	if preempt || rb[0].Preemptible() {
		t.Error("allow_preempt pointer shared")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want string
	}{
		{"bad syntax", Rule{Name: "r", Domain: "MAP", ConditionSrc: "Time >=", Task: "control_depots"}, "compile rule"},
		{"not bool", Rule{Name: "r", Domain: "MAP", ConditionSrc: "Time", Task: "control_depots"}, "compile rule"},
		{"unknown field", Rule{Name: "r", Domain: "MAP", ConditionSrc: "Nope > 1", Task: "control_depots"}, "compile rule"},
		{"unknown domain", Rule{Name: "r", Domain: "AIR", ConditionSrc: "true", Task: "control_depots"}, "AIR"},
		{"unknown task", Rule{Name: "r", Domain: "MAP", ConditionSrc: "true", Task: "dance"}, "unknown task"},
		{"bad objective", Rule{Name: "r", Domain: "MAP", ConditionSrc: "true", Task: "reaper_scout",
			Params: map[string]string{"objective": "FLANK"}}, "FLANK"},
		{"bad target", Rule{Name: "r", Domain: "INTEL", ConditionSrc: "true", Task: "scan",
			Params: map[string]string{"target": "moon"}}, "unknown target"},
		{"bad cooldown", Rule{Name: "r", Domain: "INTEL", ConditionSrc: "true", Task: "scan",
			Params: map[string]string{"cooldown": "soon"}}, "cooldown"},
		{"empty plans", Rule{Name: "r", Domain: "MACRO", ConditionSrc: "true", Task: "macro"}, "needs plans"},
		{"interval unkeyed", Rule{Name: "r", Domain: "INTEL", ConditionSrc: "true", Task: "scan", Interval: 10}, "interval"},
		{"empty name", Rule{Domain: "MAP", ConditionSrc: "true", Task: "control_depots"}, "empty name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule
			_, err := NewPlanner("rules", []*Rule{&r}, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDuplicateRuleName(t *testing.T) {
	a := &Rule{Name: "dup", Domain: "MAP", ConditionSrc: "true", Task: "control_depots"}
	b := &Rule{Name: "dup", Domain: "MAP", ConditionSrc: "false", Task: "control_depots"}
	if _, err := NewPlanner("rules", []*Rule{a, b}, nil); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestProposeReaperPatrol(t *testing.T) {
	r := newRig(reaperState())
	p, err := NewPlanner("rules", DefaultRules(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if ps, _ := p.Propose(r.env(100)); len(ps) != 0 {
		t.Fatalf("proposals before any rule time: %+v", ps)
	}

	ps, err := p.Propose(r.env(250))
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 {
		t.Fatalf("got %d proposals, want harass and map", len(ps))
	}
	if ps[0].ID != "rules:harass-natural-probe" || ps[0].Domain != task.DomainHarass || ps[0].Score != 8 {
		t.Errorf("first proposal = %s/%s/%d", ps[0].ID, ps[0].Domain, ps[0].Score)
	}
	if ps[1].ID != "rules:map-reaper-patrol" || ps[1].Domain != task.DomainMap {
		t.Errorf("second proposal = %s/%s", ps[1].ID, ps[1].Domain)
	}
	if !ps[1].AllowPreempt {
		t.Error("rules default to preemptible")
	}

	spec := ps[1].Tasks[0]
	if len(spec.Requirements) != 1 || spec.Requirements[0].Count != 1 || spec.Requirements[0].Types[0] != model.Reaper {
		t.Errorf("requirements = %+v", spec.Requirements)
	}
	tk, ok := spec.Factory("m@1").(*tasks.ReaperScout)
	if !ok {
		t.Fatalf("factory built %T", spec.Factory("m@1"))
	}
	if tk.Objective != tasks.MapCenter {
		t.Errorf("objective = %s, want MAP_CENTER", tk.Objective)
	}
	if tk.DoneKey() != p.DoneKey("map-reaper-patrol") {
		t.Errorf("done key = %q", tk.DoneKey())
	}
}

func TestIntervalGate(t *testing.T) {
	r := newRig(reaperState())
	p, err := NewPlanner("rules", DefaultRules(), nil)
	if err != nil {
		t.Fatal(err)
	}
	r.store.Set(p.DoneKey("map-reaper-patrol"), 250.0, 250, 0)

	ps, _ := p.Propose(r.env(300))
	for _, pr := range ps {
		if pr.Domain == task.DomainMap {
			t.Fatalf("map patrol proposed 50s after completion, interval is 60")
		}
	}

	ps, _ = p.Propose(r.env(310))
	found := false
	for _, pr := range ps {
		found = found || pr.Domain == task.DomainMap
	}
	if !found {
		t.Fatal("map patrol not proposed once the interval elapsed")
	}
}

func TestLeasedReaperIsNotFree(t *testing.T) {
	r := newRig(reaperState())
	p, _ := NewPlanner("rules", DefaultRules(), nil)
	r.ledger.Claim("intel:reaper_scout@1/reaper", 40, "scout", 250, 8, false)

	if ps, _ := p.Propose(r.env(250)); len(ps) != 0 {
		t.Fatalf("proposed with the only reaper leased: %+v", ps)
	}
}

func TestExclusiveBlocksLowerInDomain(t *testing.T) {
	r := newRig(reaperState())
	rules := []*Rule{
		{Name: "high", Domain: "MAP", Score: 10, Exclusive: true, ConditionSrc: "true",
			Task: "reaper_scout", Params: map[string]string{"objective": "MAP_CENTER"}},
		{Name: "low", Domain: "MAP", Score: 5, ConditionSrc: "true",
			Task: "reaper_scout", Params: map[string]string{"objective": "RETURN_HOME"}},
		{Name: "other", Domain: "INTEL", Score: 3, ConditionSrc: "true",
			Task: "scan", Params: map[string]string{"target": "map_center"}},
	}
	p, err := NewPlanner("rules", rules, nil)
	if err != nil {
		t.Fatal(err)
	}
	ps, _ := p.Propose(r.env(10))
	var ids []string
	for _, pr := range ps {
		ids = append(ids, pr.ID)
	}
	if strings.Join(ids, ",") != "rules:high,rules:other" {
		t.Errorf("ids = %v", ids)
	}
}

func TestScanRuleNeedsTarget(t *testing.T) {
	gs := reaperState()
	gs.EnemyStartLocations = nil
	r := newRig(gs)
	p, err := NewPlanner("rules", []*Rule{{
		Name: "scan-main", Domain: "INTEL", Score: 4, ConditionSrc: "true", Task: "scan",
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ps, _ := p.Propose(r.env(10)); len(ps) != 0 {
		t.Fatalf("scan proposed without an enemy main: %+v", ps)
	}
}

func TestRebalanceRuleLeasesWorkers(t *testing.T) {
	r := newRig(reaperState())
	p, err := NewPlanner("rules", []*Rule{{
		Name: "rebalance", Domain: "MACRO_WORKERS", Score: 4, ConditionSrc: "true", Task: "rebalance_workers",
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ps, _ := p.Propose(r.env(10))
	if len(ps) != 1 {
		t.Fatalf("proposals = %d, want 1", len(ps))
	}
	reqs := ps[0].Tasks[0].Requirements
	if len(reqs) != 1 || !reqs[0].All || reqs[0].Types[0] != model.SCV || reqs[0].Near == nil {
		t.Errorf("requirements = %+v, want every SCV near the main", reqs)
	}

	r.host.GS.Units = r.host.GS.Units[1:]
	if ps, _ := p.Propose(r.env(11)); len(ps) != 0 {
		t.Errorf("rebalance proposed without a townhall: %+v", ps)
	}
}

func TestConditionRuntimeErrorSkipsRule(t *testing.T) {
	r := newRig(reaperState())
	p, err := NewPlanner("rules", []*Rule{
		{Name: "boom", Domain: "MAP", Score: 9, ConditionSrc: `[1][Iteration + 3] > 0`,
			Task: "control_depots"},
		{Name: "ok", Domain: "MACRO_DEPOT_CONTROL", Score: 1, ConditionSrc: "true", Task: "control_depots"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ps, err := p.Propose(r.env(10))
	if err != nil {
		t.Fatalf("runtime errors must not fail the planner: %v", err)
	}
	if len(ps) != 1 || ps[0].ID != "rules:ok" {
		t.Errorf("proposals = %+v", ps)
	}
}

func TestSwap(t *testing.T) {
	r := newRig(reaperState())
	p, _ := NewPlanner("rules", DefaultRules(), nil)

	bad := []*Rule{{Name: "bad", Domain: "MAP", ConditionSrc: "Time >=", Task: "control_depots"}}
	if err := p.Swap(bad); err == nil {
		t.Fatal("expected compile error")
	}
	if len(p.Rules()) != 2 {
		t.Fatal("failed swap replaced the active rules")
	}

	good := []*Rule{{Name: "depots", Domain: "MACRO_DEPOT_CONTROL", Score: 3, ConditionSrc: "Time > 5", Task: "control_depots"}}
	if err := p.Swap(good); err != nil {
		t.Fatal(err)
	}
	ps, _ := p.Propose(r.env(10))
	if len(ps) != 1 || ps[0].ID != "rules:depots" {
		t.Errorf("proposals after swap = %+v", ps)
	}
}

func TestRuleEnvAccessors(t *testing.T) {
	gs := reaperState()
	gs.Units = append(gs.Units, model.Unit{Tag: 41, Type: model.Reaper, BuildProgress: 0.5})
	gs.Enemies = []model.Unit{ready(900, model.Zergling, 150, 150), ready(901, model.Zergling, 151, 150)}
	r := newRig(gs)
	r.store.Set(awareness.KeyLastScanAt, 100.0, 100, 0)
	r.store.Set(awareness.KeyOpeningKind, "AGGRESSIVE", 100, 30)
	r.store.Set(awareness.K("custom", "flag"), true, 100, 0)

	e := NewRuleEnv(r.env(121))
	if got := e.Ready("reaper"); got != 1 {
		t.Errorf("Ready = %d, want 1", got)
	}
	if got := e.Own("REAPER"); got != 2 {
		t.Errorf("Own = %d, want 2", got)
	}
	if got := e.Ready("unicorn"); got != 0 {
		t.Errorf("Ready(unknown) = %d", got)
	}
	if got := e.Enemies("ZERGLING"); got != 2 {
		t.Errorf("Enemies = %d, want 2", got)
	}
	if got := e.Since(string(awareness.KeyLastScanAt)); got != 21 {
		t.Errorf("Since(last scan) = %v, want 21", got)
	}
	if got := e.Since("nothing/here"); !math.IsInf(got, 1) {
		t.Errorf("Since(absent) = %v, want +Inf", got)
	}
	if !e.Flag("custom/flag") {
		t.Error("Flag(custom/flag) = false")
	}
	if got := e.Opening(); got != "AGGRESSIVE" {
		t.Errorf("Opening = %q", got)
	}
	if got := NewRuleEnv(r.env(200)).Opening(); got != "UNKNOWN" {
		t.Errorf("Opening after expiry = %q, want UNKNOWN", got)
	}
}
