// Package hierarchical implements the shrinkage and explicit-prior
// log-density adjustments that fold into a subpop's global log-likelihood
// (spec §4.4).
package hierarchical

import "math"

// minGroupSD is the floor applied to a group's standard deviation so a group
// with identical or near-identical values never collapses the shrinkage
// density to a spike (spec §4.4 "floored at 0.1").
const minGroupSD = 0.1

// ValueTransform names the optional rescaling applied before computing group
// statistics and evaluating the shrinkage density.
type ValueTransform int

const (
	TransformIdentity ValueTransform = iota
	TransformLogit
)

const clipEpsilon = 1e-12

func (t ValueTransform) forward(v float64) float64 {
	if t != TransformLogit {
		return v
	}
	if v < clipEpsilon {
		v = clipEpsilon
	} else if v > 1-clipEpsilon {
		v = 1 - clipEpsilon
	}
	return math.Log(v / (1 - v))
}

// Row is one parameter-table row's value together with the geographic
// grouping key the shrinkage prior groups on (spec §4.4 "a grouping column
// from the geographic metadata").
type Row struct {
	Subpop string
	Group  string
	Value  float64
}

// ShrinkageAdjuster computes, per row, log N(value; group_mean, group_sd) on
// the configured transform scale — a prior that rewards a subpop's parameter
// value for sitting close to its geographic siblings.
type ShrinkageAdjuster struct {
	Transform ValueTransform
}

// LogDensities returns one log-density per row, in the same order as rows.
func (a ShrinkageAdjuster) LogDensities(rows []Row) []float64 {
	groupValues := make(map[string][]float64, len(rows))
	for _, r := range rows {
		groupValues[r.Group] = append(groupValues[r.Group], a.Transform.forward(r.Value))
	}

	stats := make(map[string][2]float64, len(groupValues)) // [mean, sd]
	for group, values := range groupValues {
		mean := groupMean(values)
		sd := math.Max(groupSD(values, mean), minGroupSD)
		stats[group] = [2]float64{mean, sd}
	}

	out := make([]float64, len(rows))
	for i, r := range rows {
		working := a.Transform.forward(r.Value)
		s := stats[r.Group]
		out[i] = logNormal(working, s[0], s[1])
	}
	return out
}

func groupMean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func groupSD(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func logNormal(v, mean, sd float64) float64 {
	if sd <= 0 {
		if v == mean {
			return 0
		}
		return math.Inf(-1)
	}
	z := (v - mean) / sd
	return -0.5*z*z - math.Log(sd) - 0.5*math.Log(2*math.Pi)
}
