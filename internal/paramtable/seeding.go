package paramtable

import (
	"math"
	"math/rand"
	"time"
)

// SeedingPerturbConfig carries the knobs spec §4.1 "Seeding perturbation" and
// §6's seeding.* configuration keys need.
type SeedingPerturbConfig struct {
	DateSD        float64 // days
	AmountSD      float64
	WindowStart   time.Time
	WindowEnd     time.Time
	Stochastic    bool
}

// PerturbSeeding implements §4.1's seeding perturbation rule: the date is
// perturbed by a rounded normal and clamped into the simulation window; the
// amount is perturbed by a non-negative normal and coerced to an integer in
// stochastic mode. NoPerturb rows pass through unchanged. Row order and count
// are preserved.
func PerturbSeeding(rows []SeedingRow, cfg SeedingPerturbConfig, rng *rand.Rand) []SeedingRow {
	out := make([]SeedingRow, len(rows))
	for i, row := range rows {
		if row.NoPerturb {
			out[i] = row
			continue
		}

		offsetDays := roundedNormal(rng, 0, cfg.DateSD)
		date := row.Date.AddDate(0, 0, int(offsetDays))
		if date.Before(cfg.WindowStart) {
			date = cfg.WindowStart
		}
		if date.After(cfg.WindowEnd) {
			date = cfg.WindowEnd
		}

		amount := nonNegativeNormal(rng, row.Amount, cfg.AmountSD)
		if cfg.Stochastic {
			amount = math.Round(amount)
		}

		out[i] = SeedingRow{
			Subpop:    row.Subpop,
			Date:      date,
			Amount:    amount,
			NoPerturb: row.NoPerturb,
		}
	}
	return out
}
