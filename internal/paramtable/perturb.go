package paramtable

import "math/rand"

// headerRow is satisfied by any row kind built on the shared Header: the two
// modifier kinds and the outcome-parameter kind. Seeding and initial
// conditions have their own bespoke perturbation rules (seeding.go,
// initcond.go) because their columns don't fit the Header shape.
type headerRow interface {
	TransmissionModifierRow | OutcomeModifierRow | OutcomeParamRow
}

func getHeader[R headerRow](row R) Header {
	switch v := any(row).(type) {
	case TransmissionModifierRow:
		return v.Header
	case OutcomeModifierRow:
		return v.Header
	case OutcomeParamRow:
		return v.Header
	default:
		panic("paramtable: unreachable row kind")
	}
}

func withHeader[R headerRow](row R, h Header) R {
	switch v := any(row).(type) {
	case TransmissionModifierRow:
		v.Header = h
		return any(v).(R)
	case OutcomeModifierRow:
		v.Header = h
		return any(v).(R)
	case OutcomeParamRow:
		v.Header = h
		return any(v).(R)
	default:
		panic("paramtable: unreachable row kind")
	}
}

// PerturbRows implements spec §4.1's per-row proposal rule for any
// Header-based row kind:
//
//  1. a NoPerturb row is returned unchanged;
//  2. an independent kernel draw is added to Value on the row's configured
//     Transform scale, then inverse-transformed;
//  3. the proposal is kept iff it lies within ValueSupport — otherwise the
//     row's original Value is kept (rejection within that row's proposal,
//     not a rejection of the whole table).
//
// Row order and column shape are preserved; PerturbRows never adds, removes,
// or reorders rows (spec §4.1 "Output shape preservation").
func PerturbRows[R headerRow](rows []R, rng *rand.Rand) []R {
	out := make([]R, len(rows))
	for i, row := range rows {
		h := getHeader(row)
		if h.NoPerturb {
			out[i] = row
			continue
		}

		working := h.Transform.Forward(h.Value)
		proposedWorking := h.PerturbKernel.Draw(rng, working, h.PerturbSD)
		proposed := h.Transform.Inverse(proposedWorking)

		if h.ValueSupport == nil || h.ValueSupport.Contains(proposed) {
			h.Value = proposed
		}
		// else: proposal out of bounds, keep h.Value as-is (§4.1, §7 item 3).

		out[i] = withHeader(row, h)
	}
	return out
}
