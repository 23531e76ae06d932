package paramtable

import "math/rand"

// InitialConditionPerturbConfig carries the per-run perturbation knob for
// initial-condition proportions (spec §6 initial_conditions.perturbation).
type InitialConditionPerturbConfig struct {
	SD float64
}

// PerturbInitialConditions implements §4.1's "Initial conditions
// perturbation": only Proportional, non-NoPerturb rows are perturbed, and
// the result is clipped to [0, 1] rather than rejected outright (proportions
// have no declared Support to reject against).
func PerturbInitialConditions(rows []InitialConditionRow, cfg InitialConditionPerturbConfig, rng *rand.Rand) []InitialConditionRow {
	out := make([]InitialConditionRow, len(rows))
	for i, row := range rows {
		if row.NoPerturb || !row.Proportional {
			out[i] = row
			continue
		}

		v := nonNegativeNormal(rng, row.Value, cfg.SD)
		if v > 1 {
			v = 1
		}

		out[i] = InitialConditionRow{
			Subpop:       row.Subpop,
			Compartment:  row.Compartment,
			Value:        v,
			Proportional: row.Proportional,
			NoPerturb:    row.NoPerturb,
		}
	}
	return out
}
