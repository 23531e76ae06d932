package paramtable

import "time"

// Header is the set of columns every parameter-table row carries, regardless
// of kind (spec §3 "Parameter table").
type Header struct {
	Subpop        string // or the sentinel "all"
	ModifierName  string
	Value         float64
	ValueSupport  Support
	PerturbKernel Kernel
	PerturbSD     float64
	NoPerturb     bool
	// Transform is the scale perturbation is drawn on before the offset is
	// inverse-transformed back onto Value's natural scale. Only outcome
	// parameter rows use anything but TransformIdentity.
	Transform Transform
}

// SeedingRow is one seeding event: an introduction of Amount individuals into
// a compartment on Date.
type SeedingRow struct {
	Subpop    string
	Date      time.Time
	Amount    float64 // integral in stochastic mode, real in deterministic mode
	NoPerturb bool
}

// TransmissionModifierRow adjusts the simulator's transmission terms.
type TransmissionModifierRow struct {
	Header
}

// OutcomeModifierRow adjusts an outcome-to-outcome transition probability.
type OutcomeModifierRow struct {
	Header
}

// OutcomeParamRow is a point parameter of an outcome distribution (delay,
// probability, dispersion, ...).
type OutcomeParamRow struct {
	Header
	Outcome  string
	Quantity string
}

// InitialConditionRow is either a full state-table entry or a perturb-flagged
// proportion of a compartment at t0.
type InitialConditionRow struct {
	Subpop       string
	Compartment  string
	Value        float64 // absolute count, or a proportion in [0,1] if Proportional
	Proportional bool
	NoPerturb    bool
}

const allSubpops = "all"
