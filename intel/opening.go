package intel

import (
	"errors"
	"math"

	"github.com/nstehr/ego/awareness"
	"github.com/nstehr/ego/model"
	"github.com/nstehr/ego/sensors"
)

// Opening is the classified enemy build posture.
type Opening string

const (
	OpeningGreedy     Opening = "GREEDY"
	OpeningNormal     Opening = "NORMAL"
	OpeningAggressive Opening = "AGGRESSIVE"
)

// OpeningClassifier writes kind, confidence and signals under
// enemy/opening/* with a short TTL so stale reads fall back to unknown.
type OpeningClassifier struct {
	Config Config
}

func (*OpeningClassifier) Name() string { return "opening_classifier" }

// Update classifies even when the enemy layout could not be inferred; the
// visible enemy counts still back the AGGRESSIVE and NORMAL verdicts. Only a
// missing world view skips the tick.
func (c *OpeningClassifier) Update(in Input, store *awareness.Store) {
	var sf *sensors.SensorFailure
	if in.EnemyBuildErr != nil && (!errors.As(in.EnemyBuildErr, &sf) || sf.Field == "state") {
		return
	}
	kind, confidence, signals := Classify(in, c.Config)
	if sf != nil {
		signals["missing"] = sf.Field
	}
	ttl := c.Config.OpeningTTL
	store.Set(awareness.KeyOpeningKind, string(kind), in.Time, ttl)
	store.Set(awareness.KeyOpeningConfidence, confidence, in.Time, ttl)
	store.Set(awareness.KeyOpeningSignals, signals, in.Time, ttl)
}

// Classify applies the opening rules in order: AGGRESSIVE, GREEDY, NORMAL.
func Classify(in Input, cfg Config) (Opening, float64, map[string]any) {
	near := in.Combat.EnemiesNearBases
	threatened := in.Combat.Threatened
	basic := 0
	for _, t := range model.BasicUnitTypes {
		basic += in.EnemyBuild.Units[t]
	}
	signals := map[string]any{
		"t":                 in.Time,
		"near_bases":        near,
		"threatened":        threatened,
		"natural_on_ground": in.EnemyBuild.NaturalOnGround,
		"enemy_bases":       in.EnemyBuild.Townhalls,
		"basic_units":       basic,
	}

	early := in.Time <= cfg.EarlyWindow
	rushing := near >= cfg.RushUnitsNearBases || (threatened && near >= 3)
	if early && rushing {
		confidence := 0.6 + 0.05*float64(near)
		if basic >= 6 {
			confidence += 0.1
		}
		return OpeningAggressive, round2(math.Min(confidence, 0.95)), signals
	}

	greedyWindow := in.Time <= cfg.GreedyWindow
	expanded := in.EnemyBuild.NaturalOnGround || in.EnemyBuild.Townhalls >= 2
	if greedyWindow && expanded && near <= 1 && !threatened {
		return OpeningGreedy, 0.75, signals
	}
	return OpeningNormal, 0.40, signals
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
