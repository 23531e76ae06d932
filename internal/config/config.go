// Package config loads and validates the run configuration file (spec §6,
// "Configuration (relevant keys)") and resolves CLI/environment overlays
// the same way the teacher's config package resolves .env settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SeedingConfig configures synthesis and perturbation of the seeding table
// (spec §4.1, §6 "seeding.*").
type SeedingConfig struct {
	DateSD               float64 `yaml:"date_sd"`
	AmountSD             float64 `yaml:"amount_sd"`
	LambdaFile           string  `yaml:"lambda_file"`
	SeedingDelay         int     `yaml:"seeding_delay"`
	SeedingInflationRatio float64 `yaml:"seeding_inflation_ratio"`
}

// InitialConditionsConfig governs initial-condition synthesis policy.
type InitialConditionsConfig struct {
	Method        string  `yaml:"method"`
	Perturbation  float64 `yaml:"perturbation"`
	Proportional  bool    `yaml:"proportional"`
}

// ModifierConfig is one `seir_modifiers.modifiers.*` / `outcome_modifiers.modifiers.*` entry.
type ModifierConfig struct {
	Value        float64        `yaml:"value"`
	Perturbation PerturbConfig  `yaml:"perturbation"`
	Transform    string         `yaml:"transform"`
	Subpops      []string       `yaml:"subpops"`
}

// PerturbConfig names a perturbation kernel and its scale (spec §4.1).
type PerturbConfig struct {
	Kernel string  `yaml:"kernel"`
	SD     float64 `yaml:"sd"`
}

// OutcomeConfig is one `outcomes.outcomes.*` entry.
type OutcomeConfig struct {
	Outcome    string                    `yaml:"outcome"`
	Parameters map[string]ModifierConfig `yaml:"parameters"`
}

// StatisticConfig is one `inference.statistics.*` entry (spec §4.2-§4.3).
type StatisticConfig struct {
	Name         string  `yaml:"name"`
	Sim          string  `yaml:"sim_var"`
	Data         string  `yaml:"data_var"`
	Distribution string  `yaml:"likelihood"`
	Param        float64 `yaml:"param"`
	Param2       float64 `yaml:"param2"`
	AddOne       bool    `yaml:"add_one"`
	Period       string  `yaml:"period"`
	Aggregator   string  `yaml:"aggregator"`
}

// HierarchicalStatConfig is one `inference.hierarchical_stats_geo.*` entry (spec §4.4).
type HierarchicalStatConfig struct {
	Name      string `yaml:"name"`
	Parameter string `yaml:"parameter"`
	Group     string `yaml:"group_by"`
	Transform string `yaml:"transform"`
}

// PriorConfig is one `inference.priors.*` entry (spec §4.4).
type PriorConfig struct {
	Parameter string  `yaml:"parameter"`
	Kind      string  `yaml:"kind"`
	Mean      float64 `yaml:"mean"`
	SD        float64 `yaml:"sd"`
}

// InferenceConfig bundles the `inference.*` configuration keys.
type InferenceConfig struct {
	Statistics           []StatisticConfig       `yaml:"statistics"`
	HierarchicalStatsGeo  []HierarchicalStatConfig `yaml:"hierarchical_stats_geo"`
	Priors                []PriorConfig            `yaml:"priors"`
	GTDataPath            string                   `yaml:"gt_data_path"`
	GTSource              string                   `yaml:"gt_source"`
	IterationsPerSlot     int                      `yaml:"iterations_per_slot"`
}

// RunConfig is the decoded run configuration file, spanning every key in
// spec §6's "Configuration (relevant keys)" table.
type RunConfig struct {
	StartDate            time.Time                 `yaml:"start_date"`
	EndDate              time.Time                 `yaml:"end_date"`
	StartDateGroundTruth time.Time                 `yaml:"start_date_groundtruth"`
	EndDateGroundTruth   time.Time                 `yaml:"end_date_groundtruth"`
	Seeding              SeedingConfig             `yaml:"seeding"`
	InitialConditions    InitialConditionsConfig   `yaml:"initial_conditions"`
	SEIRModifiers        map[string]ModifierConfig `yaml:"seir_modifiers_modifiers"`
	OutcomeModifiers     map[string]ModifierConfig `yaml:"outcome_modifiers_modifiers"`
	Outcomes             map[string]OutcomeConfig  `yaml:"outcomes_outcomes"`
	Inference            InferenceConfig           `yaml:"inference"`
	NSlots               int                       `yaml:"nslots"`
}

// configSchema constrains the top-level shape of the run configuration
// file. It is intentionally permissive on nested maps (validated by the
// cross-field checks in validateSemantics), and exists to catch
// the class of error spec §7.1 calls out: missing required keys and
// obviously-wrong types, before any filesystem mutation happens.
var minSlots = 1.0

var configSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"start_date", "end_date", "nslots", "inference"},
	Properties: map[string]*jsonschema.Schema{
		"start_date": {Type: "string"},
		"end_date":   {Type: "string"},
		"nslots":     {Type: "integer", Minimum: &minSlots},
		"inference":  {Type: "object"},
	},
}

// Load reads and decodes the run configuration file at path, validating
// it against configSchema before returning. A missing or malformed file,
// or a schema violation, is a configuration error (spec §7.1): the caller
// should treat any returned error as fatal with exit code 1.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validateAgainstSchema(generic); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg := &RunConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if err := cfg.validateSemantics(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

func validateAgainstSchema(instance map[string]any) error {
	resolved, err := configSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolving schema: %w", err)
	}

	// jsonschema validates against JSON-typed values; round-trip through
	// encoding/json to normalize the YAML decoder's native types (e.g.
	// map[string]any keys, time.Time) into plain JSON values first.
	raw, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("marshaling config for validation: %w", err)
	}
	var jsonInstance any
	if err := json.Unmarshal(raw, &jsonInstance); err != nil {
		return fmt.Errorf("unmarshaling config for validation: %w", err)
	}

	if err := resolved.Validate(jsonInstance); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// validateSemantics checks cross-field invariants the JSON schema cannot
// express: end_date after start_date, nslots and iterations_per_slot at
// least 1, and statistic names present and unique. It does not check period
// multiplicity; the configuration has no multiplicity setting.
func (c *RunConfig) validateSemantics() error {
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	if c.NSlots < 1 {
		return fmt.Errorf("nslots must be at least 1")
	}
	if c.Inference.IterationsPerSlot < 1 {
		return fmt.Errorf("inference.iterations_per_slot must be at least 1")
	}
	seen := map[string]bool{}
	for _, s := range c.Inference.Statistics {
		if s.Name == "" {
			return fmt.Errorf("inference.statistics entries require a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("inference.statistics: duplicate statistic name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// LoadDotEnv loads a .env file (if present) the same way the teacher's
// logging/config packages do, before any environment variable lookups.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// GetEnv returns the environment variable named key, or fallback if unset.
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// GetEnvInt parses the environment variable named key as an int, or
// returns fallback if unset or unparsable.
func GetEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool parses the environment variable named key as a bool, or
// returns fallback if unset or unparsable.
func GetEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// ResolveString returns flagVal if the flag was explicitly set (non-empty),
// otherwise the environment variable envKey, otherwise fallback. CLI takes
// precedence over environment, per spec §6.
func ResolveString(flagVal, envKey, fallback string) string {
	if flagVal != "" {
		return flagVal
	}
	return GetEnv(envKey, fallback)
}
