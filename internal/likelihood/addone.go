package likelihood

// AddOnePolicy governs how zero-valued observations and simulations are
// handled before density evaluation (spec §4.3 "Add-one policy"). Only the
// later, April-2023-era behavior is implemented; see the project's grounding
// ledger for the earlier-behavior open question.
type AddOnePolicy bool

const (
	AddOneDisabled AddOnePolicy = false
	AddOneEnabled  AddOnePolicy = true
)

// Adjust returns the (o, s) pair to evaluate under a distribution's
// LogDensity, along with skip=true when the pair should contribute 0 to the
// joint likelihood without being evaluated at all (o+s=0 under the enabled
// policy).
func (p AddOnePolicy) Adjust(o, s float64) (adjO, adjS float64, skip bool) {
	if !p {
		return o, s, false
	}
	if o+s == 0 {
		return o, s, true
	}
	if s == 0 && o > 0 {
		return o, 1, false
	}
	return o, s, false
}
