// Package checkpoint implements the on-disk filename schema and the
// atomic-write store the slot driver uses to persist and resume parameter
// tables, outcomes, and likelihoods (spec §4.6).
package checkpoint

import (
	"fmt"
	"path/filepath"
)

// Scope names whether a variable belongs to the global chain or one
// subpop's chimeric chain.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeChimeric Scope = "chimeric"
)

// Phase names whether a file is a per-iteration intermediate artifact or the
// stable, block-boundary "final" artifact.
type Phase string

const (
	PhaseIntermediate Phase = "intermediate"
	PhaseFinal        Phase = "final"
)

// Variable names one of the parameter-table/outcome kinds persisted per
// iteration (spec §4.6 "variable ∈ {...}").
type Variable string

const (
	VariableSeed     Variable = "seed"
	VariableInit     Variable = "init"
	VariableSEIR     Variable = "seir"
	VariableHosp     Variable = "hosp"
	VariableLlik     Variable = "llik"
	VariableSNPI     Variable = "snpi"
	VariableHNPI     Variable = "hnpi"
	VariableSpar     Variable = "spar"
	VariableHpar     Variable = "hpar"
	VariableMemprof  Variable = "memprof"
)

var validVariables = map[Variable]bool{
	VariableSeed: true, VariableInit: true, VariableSEIR: true, VariableHosp: true,
	VariableLlik: true, VariableSNPI: true, VariableHNPI: true, VariableSpar: true,
	VariableHpar: true, VariableMemprof: true,
}

// Layout is a pure function of the tuple spec §4.6 names: it computes
// filenames and directories without touching the filesystem.
type Layout struct {
	SetupName       string
	SEIRScenario    string
	OutcomeScenario string
	RunID           string
}

func (l Layout) runRoot() string {
	return fmt.Sprintf("%s_%s_%s", l.SetupName, l.SEIRScenario, l.OutcomeScenario)
}

// Dir returns the directory a variable's files under scope/phase live in.
func (l Layout) Dir(variable Variable, scope Scope, phase Phase) string {
	return filepath.Join(l.runRoot(), l.RunID, string(variable), string(scope), string(phase))
}

// Ext returns the file extension for a variable: plain CSV for seeding,
// format for every other (tabular) variable.
func Ext(variable Variable, columnarFormat string) string {
	if variable == VariableSeed {
		return "csv"
	}
	return columnarFormat
}

// IntermediateName returns the filename for an intermediate (per-iteration)
// artifact: {slot:09d}.{block:09d}.{iteration:09d}.{run_id}.{variable}.{ext}.
func (l Layout) IntermediateName(variable Variable, slot, block, iteration int, ext string) string {
	return fmt.Sprintf("%09d.%09d.%09d.%s.%s.%s", slot, block, iteration, l.RunID, variable, ext)
}

// FinalName returns the filename for a final artifact, which omits the
// block/iteration components: {slot:09d}.{run_id}.{variable}.{ext}.
func (l Layout) FinalName(variable Variable, slot int, ext string) string {
	return fmt.Sprintf("%09d.%s.%s.%s", slot, l.RunID, variable, ext)
}

// Path composes Dir and the appropriate filename for phase. iteration/block
// are ignored when phase is PhaseFinal.
func (l Layout) Path(variable Variable, scope Scope, phase Phase, slot, block, iteration int, ext string) (string, error) {
	if !validVariables[variable] {
		return "", fmt.Errorf("checkpoint: unknown variable %q", variable)
	}
	if scope != ScopeGlobal && scope != ScopeChimeric {
		return "", fmt.Errorf("checkpoint: unknown scope %q", scope)
	}
	if phase != PhaseIntermediate && phase != PhaseFinal {
		return "", fmt.Errorf("checkpoint: unknown phase %q", phase)
	}

	dir := l.Dir(variable, scope, phase)
	if phase == PhaseFinal {
		return filepath.Join(dir, l.FinalName(variable, slot, ext)), nil
	}
	return filepath.Join(dir, l.IntermediateName(variable, slot, block, iteration, ext)), nil
}
