package intel

import (
	"testing"

	"github.com/nstehr/ego/attention"
	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/sensors"
)

func TestOpeningClassification(t *testing.T) {
	store := awareness.NewStore(nil)
	c := &OpeningClassifier{Config: DefaultConfig()}

	c.Update(Input{
		Time:       120,
		EnemyBuild: attention.EnemyBuild{NaturalOnGround: true},
	}, store)

	view := store.View()
	kind, conf, ok := view.Opening(120)
	if !ok || kind != string(OpeningGreedy) || conf != 0.75 {
		t.Fatalf("opening = %q %v %v, want GREEDY 0.75", kind, conf, ok)
	}

	c.Update(Input{
		Time:   60,
		Combat: attention.Combat{Threatened: true, EnemiesNearBases: 6},
	}, store)
	kind, conf, _ = view.Opening(60)
	if kind != string(OpeningAggressive) {
		t.Fatalf("kind = %q, want AGGRESSIVE", kind)
	}
	if conf < 0.85 {
		t.Errorf("confidence = %v, want >= 0.85", conf)
	}
	if _, ok := view.Get(awareness.KeyOpeningSignals, 60); !ok {
		t.Error("signals should be written alongside kind")
	}
}

func TestOpeningTTL(t *testing.T) {
	store := awareness.NewStore(nil)
	c := &OpeningClassifier{Config: DefaultConfig()}
	c.Update(Input{Time: 100}, store)

	if kind, _, _ := store.View().Opening(111.9); kind != string(OpeningNormal) {
		t.Errorf("kind before TTL = %q, want NORMAL", kind)
	}
	if _, _, ok := store.View().Opening(112); ok {
		t.Error("opening should expire after the configured TTL")
	}
}

func TestClassifyRules(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		in   Input
		want Opening
	}{
		{
			name: "rush past early window is normal",
			in:   Input{Time: 300, Combat: attention.Combat{Threatened: true, EnemiesNearBases: 8}},
			want: OpeningNormal,
		},
		{
			name: "two bases early is greedy",
			in:   Input{Time: 150, EnemyBuild: attention.EnemyBuild{Townhalls: 2}},
			want: OpeningGreedy,
		},
		{
			name: "greedy blocked by threat",
			in: Input{
				Time:       150,
				EnemyBuild: attention.EnemyBuild{Townhalls: 2},
				Combat:     attention.Combat{Threatened: true, EnemiesNearBases: 1},
			},
			want: OpeningNormal,
		},
		{
			name: "three threatening units early is aggressive",
			in:   Input{Time: 100, Combat: attention.Combat{Threatened: true, EnemiesNearBases: 3}},
			want: OpeningAggressive,
		},
		{
			name: "greedy window closes before early window",
			in:   Input{Time: 170, EnemyBuild: attention.EnemyBuild{NaturalOnGround: true}},
			want: OpeningNormal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, _ := Classify(tt.in, cfg)
			if got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAggressiveConfidenceBump(t *testing.T) {
	in := Input{
		Time:   90,
		Combat: attention.Combat{Threatened: true, EnemiesNearBases: 3},
	}
	_, base, _ := Classify(in, DefaultConfig())

	in.EnemyBuild.Units = map[model.UnitType]int{model.Zergling: 6}
	_, bumped, _ := Classify(in, DefaultConfig())
	if bumped <= base {
		t.Errorf("confidence with 6 basic units = %v, want > %v", bumped, base)
	}
}

func TestClassifierWithoutWorldView(t *testing.T) {
	store := awareness.NewStore(nil)
	c := &OpeningClassifier{Config: DefaultConfig()}
	c.Update(Input{Time: 10, EnemyBuildErr: &sensors.SensorFailure{Sensor: "enemy_build", Field: "state"}}, store)
	if store.Len() != 0 {
		t.Errorf("classifier wrote %d entries without a world view", store.Len())
	}
}

func TestClassifierSurvivesLayoutFailure(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		combat attention.Combat
		want   string
	}{
		{"rush without expansions", "expansion_locations",
			attention.Combat{Threatened: true, EnemiesNearBases: 6}, "AGGRESSIVE"},
		{"rush without enemy start", "enemy_start_locations",
			attention.Combat{Threatened: true, EnemiesNearBases: 6}, "AGGRESSIVE"},
		{"quiet without expansions", "expansion_locations",
			attention.Combat{}, "NORMAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := awareness.NewStore(nil)
			c := &OpeningClassifier{Config: DefaultConfig()}
			c.Update(Input{
				Time:          150,
				Combat:        tt.combat,
				EnemyBuild:    attention.EnemyBuild{Units: map[model.UnitType]int{model.Zergling: tt.combat.EnemiesNearBases}},
				EnemyBuildErr: &sensors.SensorFailure{Sensor: "enemy_build", Field: tt.field},
			}, store)
			kind, _, ok := store.View().Opening(150)
			if !ok || kind != tt.want {
				t.Fatalf("opening = %q, %v, want %s", kind, ok, tt.want)
			}
			sig, _ := store.Get(awareness.KeyOpeningSignals, 150)
			if m, _ := sig.(map[string]any); m["missing"] != tt.field {
				t.Errorf("signals = %v, want missing=%s", sig, tt.field)
			}
		})
	}
}

func TestFirstSeenIsPermanent(t *testing.T) {
	store := awareness.NewStore(nil)
	fs := FirstSeen{}

	fs.Update(Input{Time: 30}, store)
	if _, ok := store.View().FirstSeen(30); ok {
		t.Fatal("first_seen written with no enemies visible")
	}

	fs.Update(Input{Time: 45, EnemyBuild: attention.EnemyBuild{Units: map[model.UnitType]int{model.Probe: 1}}}, store)
	fs.Update(Input{Time: 80, EnemyBuild: attention.EnemyBuild{Units: map[model.UnitType]int{model.Zealot: 2}}}, store)

	got, ok := store.View().FirstSeen(10_000)
	if !ok || got != 45 {
		t.Errorf("first_seen = %v, %v; want 45", got, ok)
	}
}

func TestEnemyLayout(t *testing.T) {
	store := awareness.NewStore(nil)
	main := model.Point{X: 140, Y: 140}
	nat := model.Point{X: 120, Y: 130}
	EnemyLayout{}.Update(Input{
		Time:       50,
		EnemyBuild: attention.EnemyBuild{EnemyMain: &main, EnemyNatural: &nat, NaturalOnGround: true},
	}, store)

	if v, _ := store.Get(KeyEnemyNatural, 50); v != nat {
		t.Errorf("natural = %v, want %v", v, nat)
	}
	if v, _ := store.Get(KeyEnemyNaturalTakenAt, 50); v != 50.0 {
		t.Errorf("taken_at = %v, want 50", v)
	}
}
