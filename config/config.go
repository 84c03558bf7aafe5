// Package config loads engine settings from YAML, validates them against
// an embedded JSON schema and applies EGO_ environment overrides.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/nstehr/ego/ego"
	"github.com/nstehr/ego/intel"
	"github.com/nstehr/ego/planners"
	"github.com/nstehr/ego/rules"
	"github.com/nstehr/ego/sensors"
	"github.com/nstehr/ego/task"
)

// EnvPrefix prefixes every environment override, e.g.
// EGO_ENGINE_COMMAND_BUDGET or EGO_PLANNERS_SCAN_COOLDOWN.
const EnvPrefix = "EGO_"

//go:embed schema.json
var schemaSrc string

var schema = jsonschema.MustCompileString("ego-config.schema.json", schemaSrc)

// AuditConfig selects the event sink.
type AuditConfig struct {
	Kind string `yaml:"kind" env:"KIND"` // jsonl, sqlite, log or none
	Path string `yaml:"path" env:"PATH"`
}

type Config struct {
	Engine   ego.Config      `yaml:"engine"`
	Sensors  sensors.Config  `yaml:"sensors"`
	Intel    intel.Config    `yaml:"intel"`
	Planners planners.Config `yaml:"planners"`
	Rules    []*rules.Rule   `yaml:"rules"`
	Audit    AuditConfig     `yaml:"audit"`
}

func Default() Config {
	return Config{
		Engine:   ego.DefaultConfig(),
		Sensors:  sensors.DefaultConfig(),
		Intel:    intel.DefaultConfig(),
		Planners: planners.DefaultConfig(),
		Rules:    rules.DefaultRules(),
		Audit:    AuditConfig{Kind: "jsonl", Path: "audit"},
	}
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, nil); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults after checking it
// against the schema. Sections left out keep their default values.
func Parse(data []byte) (Config, error) {
	if err := validateSchema(data); err != nil {
		return Config{}, err
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil
	}
	// The schema validator wants JSON-decoded values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables section by section. environ
// replaces the process environment when non-nil.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	sections := []struct {
		prefix string
		target any
	}{
		{"ENGINE_", &cfg.Engine},
		{"SENSORS_", &cfg.Sensors},
		{"INTEL_", &cfg.Intel},
		{"PLANNERS_", &cfg.Planners},
		{"AUDIT_", &cfg.Audit},
	}
	for _, s := range sections {
		opts := env.Options{Prefix: EnvPrefix + s.prefix, Environment: environ}
		if err := env.ParseWithOptions(s.target, opts); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

// Validate checks cross-field constraints the schema cannot express and
// compiles the rule set.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	e := c.Engine
	if e.CommandBudget < 1 {
		add("engine.command_budget must be at least 1, got %d", e.CommandBudget)
	}
	if e.SoftPreemptAt < 0 || e.HardPreemptAt > 100 || e.SoftPreemptAt > e.HardPreemptAt {
		add("engine preempt thresholds need 0 <= soft <= hard <= 100, got soft=%d hard=%d", e.SoftPreemptAt, e.HardPreemptAt)
	}
	if e.DefaultLeaseTTL <= 0 {
		add("engine.default_lease_ttl must be positive")
	}
	if e.AssignRetryBudget < 0 {
		add("engine.assign_retry_budget must not be negative")
	}
	for _, d := range append(append([]task.Domain{}, e.Domains...), e.RetireUnelected...) {
		if _, err := task.ParseDomain(string(d)); err != nil {
			add("engine: %v", err)
		}
	}

	positive := map[string]float64{
		"sensors.base_radius":        c.Sensors.BaseRadius,
		"sensors.enemy_main_radius":  c.Sensors.EnemyMainRadius,
		"sensors.natural_radius":     c.Sensors.NaturalRadius,
		"intel.opening_ttl":          c.Intel.OpeningTTL,
		"planners.defense.radius":    c.Planners.Defense.Radius,
		"planners.defense.lease_ttl": c.Planners.Defense.LeaseTTL,
		"planners.intel.see_radius":  c.Planners.Intel.SeeRadius,
	}
	for name, v := range positive {
		if v <= 0 {
			add("%s must be positive, got %g", name, v)
		}
	}
	if hp := c.Planners.Intel.RetreatHP; hp < 0 || hp > 1 {
		add("planners.intel.retreat_hp must be within [0, 1], got %g", hp)
	}

	switch c.Audit.Kind {
	case "jsonl", "sqlite":
		if c.Audit.Path == "" {
			add("audit.path is required for %s", c.Audit.Kind)
		}
	case "log", "none":
	default:
		add("audit.kind %q is not one of jsonl, sqlite, log, none", c.Audit.Kind)
	}

	if _, err := planners.Default(c.Planners); err != nil {
		add("planners: %v", err)
	}
	if _, err := rules.NewPlanner("rules", c.Rules, nil); err != nil {
		add("rules: %v", err)
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return &ValidationError{Problems: problems}
	}
	return nil
}
