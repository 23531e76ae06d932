package likelihood

import "math"

// Statistic bundles one statistic spec's scoring configuration: which
// distribution to score aligned (sim, observed) pairs under, its parameters,
// and its add-one policy (spec §3 "Statistic spec").
type Statistic struct {
	Name         string
	Distribution Distribution
	Param        float64
	Param2       float64
	AddOne       AddOnePolicy
}

// Series holds a statistic's aligned aggregated sim and observed values, one
// entry per bucket the two series have in common. A NaN observed value marks
// a bucket with no ground truth, which is skipped rather than scored (spec
// §4.3 "Missing observations are skipped").
type Series struct {
	Sim      []float64
	Observed []float64
}

// LogLikelihood sums s's distribution's log-density over every aligned,
// present pair in series, applying the add-one policy per element.
func (s Statistic) LogLikelihood(series Series) float64 {
	var total float64
	n := len(series.Sim)
	if len(series.Observed) < n {
		n = len(series.Observed)
	}
	for i := 0; i < n; i++ {
		o := series.Observed[i]
		if math.IsNaN(o) {
			continue
		}
		sim := series.Sim[i]
		adjO, adjS, skip := s.AddOne.Adjust(o, sim)
		if skip {
			continue
		}
		total += s.Distribution.LogDensity(adjO, adjS, s.Param, s.Param2)
	}
	return total
}

// JointLogLikelihood sums every statistic's LogLikelihood against its own
// aligned series for one subpop (spec §4.3 "Joint likelihood"): weighting
// across statistics comes entirely from each statistic's own density
// parameters, with no additional weight term.
func JointLogLikelihood(statistics []Statistic, seriesByStatistic map[string]Series) float64 {
	var total float64
	for _, stat := range statistics {
		series, ok := seriesByStatistic[stat.Name]
		if !ok {
			continue
		}
		total += stat.LogLikelihood(series)
	}
	return total
}
