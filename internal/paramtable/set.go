package paramtable

import "math/rand"

// Set bundles the five parameter-table kinds that make up one slot's state
// (spec §3 "Parameter table" / §4.7 "State of a slot"). A Driver keeps one
// Set for the global chain and one Set per subpop for the chimeric chain.
type Set struct {
	Seeding               []SeedingRow
	TransmissionModifiers []TransmissionModifierRow
	OutcomeModifiers      []OutcomeModifierRow
	OutcomeParams         []OutcomeParamRow
	InitialConditions     []InitialConditionRow
}

// Clone returns a deep-enough copy: row slices are copied so mutating the
// clone's rows never aliases the original (rows themselves are value types).
func (s *Set) Clone() *Set {
	clone := &Set{
		Seeding:               append([]SeedingRow(nil), s.Seeding...),
		TransmissionModifiers: append([]TransmissionModifierRow(nil), s.TransmissionModifiers...),
		OutcomeModifiers:      append([]OutcomeModifierRow(nil), s.OutcomeModifiers...),
		OutcomeParams:         append([]OutcomeParamRow(nil), s.OutcomeParams...),
		InitialConditions:     append([]InitialConditionRow(nil), s.InitialConditions...),
	}
	return clone
}

// PerturbConfig bundles the kernel configuration Perturb needs for every
// table kind in one Set.
type PerturbConfig struct {
	Seeding           SeedingPerturbConfig
	InitialConditions InitialConditionPerturbConfig
}

// Perturb returns a proposed Set: every table kind is perturbed
// independently per spec §4.1, with row count, order, and column shape
// preserved throughout.
func (s *Set) Perturb(cfg PerturbConfig, rng *rand.Rand) *Set {
	return &Set{
		Seeding:               PerturbSeeding(s.Seeding, cfg.Seeding, rng),
		TransmissionModifiers: PerturbRows(s.TransmissionModifiers, rng),
		OutcomeModifiers:      PerturbRows(s.OutcomeModifiers, rng),
		OutcomeParams:         PerturbRows(s.OutcomeParams, rng),
		InitialConditions:     PerturbInitialConditions(s.InitialConditions, cfg.InitialConditions, rng),
	}
}

// SubpopRows restricts a Set to the rows relevant to one subpop, keeping
// "all"-scoped rows in every subpop's restriction.
func (s *Set) SubpopRows(subpop string) *Set {
	keep := func(rowSubpop string) bool {
		return rowSubpop == subpop || rowSubpop == allSubpops
	}

	out := &Set{}
	for _, r := range s.Seeding {
		if keep(r.Subpop) {
			out.Seeding = append(out.Seeding, r)
		}
	}
	for _, r := range s.TransmissionModifiers {
		if keep(r.Subpop) {
			out.TransmissionModifiers = append(out.TransmissionModifiers, r)
		}
	}
	for _, r := range s.OutcomeModifiers {
		if keep(r.Subpop) {
			out.OutcomeModifiers = append(out.OutcomeModifiers, r)
		}
	}
	for _, r := range s.OutcomeParams {
		if keep(r.Subpop) {
			out.OutcomeParams = append(out.OutcomeParams, r)
		}
	}
	for _, r := range s.InitialConditions {
		if keep(r.Subpop) {
			out.InitialConditions = append(out.InitialConditions, r)
		}
	}
	return out
}

// MergeSubpop overwrites the rows belonging to subpop in s with the
// row-for-row corresponding rows from proposed, leaving every other
// subpop's rows (and "all"-scoped rows) untouched. This is how a per-subpop
// chimeric acceptance (spec §4.7 step 5) is folded back into that subpop's
// Set. proposed must have been derived from s by Perturb (or be a like-for-
// like clone), so rows line up by index.
func (s *Set) MergeSubpop(subpop string, proposed *Set) {
	s.Seeding = mergeRows(s.Seeding, proposed.Seeding, subpop, func(r SeedingRow) string { return r.Subpop })
	s.TransmissionModifiers = mergeRows(s.TransmissionModifiers, proposed.TransmissionModifiers, subpop, func(r TransmissionModifierRow) string { return r.Subpop })
	s.OutcomeModifiers = mergeRows(s.OutcomeModifiers, proposed.OutcomeModifiers, subpop, func(r OutcomeModifierRow) string { return r.Subpop })
	s.OutcomeParams = mergeRows(s.OutcomeParams, proposed.OutcomeParams, subpop, func(r OutcomeParamRow) string { return r.Subpop })
	s.InitialConditions = mergeRows(s.InitialConditions, proposed.InitialConditions, subpop, func(r InitialConditionRow) string { return r.Subpop })
}

func mergeRows[R any](current, proposed []R, subpop string, subpopOf func(R) string) []R {
	out := make([]R, len(current))
	copy(out, current)
	for i := range out {
		if i < len(proposed) && subpopOf(out[i]) == subpop {
			out[i] = proposed[i]
		}
	}
	return out
}
