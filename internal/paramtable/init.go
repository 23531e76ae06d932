package paramtable

import "time"

// GroundTruthPoint is the minimal shape InitializeSeeding needs from a
// subpop's observed series: enough to find "the first few positive days".
type GroundTruthPoint struct {
	Date  time.Time
	Value float64
}

// SeedingInitConfig carries spec §6's seeding.* initialization knobs.
type SeedingInitConfig struct {
	Delay           int     // seeding_delay, days subtracted from the first positive day
	InflationRatio  float64 // seeding_inflation_ratio
	NumSeedingDays  int     // how many of the earliest positive days to seed from
	NoPerturb       bool
}

// InitializeSeeding builds the block-1 seeding table from ground truth (spec
// §4.7 step 1): for each subpop, take the first NumSeedingDays days with a
// positive observation, shift each by -Delay days, and inflate the amount by
// InflationRatio.
func InitializeSeeding(groundTruth map[string][]GroundTruthPoint, cfg SeedingInitConfig) []SeedingRow {
	var rows []SeedingRow
	for _, subpop := range sortedKeys(groundTruth) {
		series := groundTruth[subpop]
		found := 0
		for _, pt := range series {
			if pt.Value <= 0 {
				continue
			}
			rows = append(rows, SeedingRow{
				Subpop:    subpop,
				Date:      pt.Date.AddDate(0, 0, -cfg.Delay),
				Amount:    pt.Value * cfg.InflationRatio,
				NoPerturb: cfg.NoPerturb,
			})
			found++
			if found >= cfg.NumSeedingDays {
				break
			}
		}
	}
	return rows
}

// ModifierSpec is one entry of a seir_modifiers.modifiers.* or
// outcome_modifiers.modifiers.* configuration block (spec §6).
type ModifierSpec struct {
	Name          string
	Subpops       []string // or nil/["all"] for a single "all"-scoped row
	PriorMean     float64
	ValueSupport  Support
	PerturbKernel Kernel
	PerturbSD     float64
	NoPerturb     bool
}

// InitializeTransmissionModifiers builds the block-1 transmission-modifier
// table: value = configured prior mean, perturb_sd attached from config
// (spec §4.7 step 1 "Modifier tables").
func InitializeTransmissionModifiers(specs []ModifierSpec) []TransmissionModifierRow {
	var rows []TransmissionModifierRow
	for _, spec := range specs {
		for _, subpop := range subpopsOrAll(spec.Subpops) {
			rows = append(rows, TransmissionModifierRow{Header: headerFromSpec(spec, subpop)})
		}
	}
	return rows
}

// InitializeOutcomeModifiers mirrors InitializeTransmissionModifiers for the
// outcome-modifier table kind.
func InitializeOutcomeModifiers(specs []ModifierSpec) []OutcomeModifierRow {
	var rows []OutcomeModifierRow
	for _, spec := range specs {
		for _, subpop := range subpopsOrAll(spec.Subpops) {
			rows = append(rows, OutcomeModifierRow{Header: headerFromSpec(spec, subpop)})
		}
	}
	return rows
}

// OutcomeParamSpec is one entry of an outcomes.outcomes.* configuration
// block.
type OutcomeParamSpec struct {
	ModifierSpec
	Outcome  string
	Quantity string
}

// InitializeOutcomeParams builds the block-1 outcome-parameter table.
func InitializeOutcomeParams(specs []OutcomeParamSpec) []OutcomeParamRow {
	var rows []OutcomeParamRow
	for _, spec := range specs {
		for _, subpop := range subpopsOrAll(spec.Subpops) {
			rows = append(rows, OutcomeParamRow{
				Header:   headerFromSpec(spec.ModifierSpec, subpop),
				Outcome:  spec.Outcome,
				Quantity: spec.Quantity,
			})
		}
	}
	return rows
}

func headerFromSpec(spec ModifierSpec, subpop string) Header {
	return Header{
		Subpop:        subpop,
		ModifierName:  spec.Name,
		Value:         spec.PriorMean,
		ValueSupport:  spec.ValueSupport,
		PerturbKernel: spec.PerturbKernel,
		PerturbSD:     spec.PerturbSD,
		NoPerturb:     spec.NoPerturb,
	}
}

func subpopsOrAll(subpops []string) []string {
	if len(subpops) == 0 {
		return []string{allSubpops}
	}
	return subpops
}

// InitialConditionDefaults synthesizes a proportional initial-conditions
// table when no file is supplied (spec §4.7 step 1 "Initial conditions").
// Every subpop starts fully susceptible in compartment susceptibleCompartment.
func InitialConditionDefaults(subpops []string, susceptibleCompartment string, otherCompartments []string, perturbable bool) []InitialConditionRow {
	var rows []InitialConditionRow
	for _, subpop := range subpops {
		rows = append(rows, InitialConditionRow{
			Subpop:       subpop,
			Compartment:  susceptibleCompartment,
			Value:        1.0,
			Proportional: true,
			NoPerturb:    !perturbable,
		})
		for _, c := range otherCompartments {
			rows = append(rows, InitialConditionRow{
				Subpop:       subpop,
				Compartment:  c,
				Value:        0.0,
				Proportional: true,
				NoPerturb:    !perturbable,
			})
		}
	}
	return rows
}

func sortedKeys(m map[string][]GroundTruthPoint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
