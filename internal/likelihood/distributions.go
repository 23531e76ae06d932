// Package likelihood implements the per-element log-density kernels and the
// add-one zero-handling policy used to score a simulator's aggregated output
// against observed ground truth (spec §4.3).
package likelihood

import "math"

// Distribution names one of the supported observation models. The zero value
// is intentionally invalid so a zeroed Statistic can't silently score under
// the wrong kernel.
type Distribution int

const (
	_ Distribution = iota
	Poisson
	Normal
	NormalCoV
	NegativeBinomial
	SqrtNormal
	SqrtNormalCoV
	SqrtNormalScaleSim
	LogNormal
)

const minScaleFloor = 5.0

// LogDensity returns the log-density of observation o under sim value s,
// parameterized by param (p1) and, for sqrtnorm_scale_sim, param2 (p2). See
// spec §4.3's table for the exact parameterization of each distribution.
func (d Distribution) LogDensity(o, s, param, param2 float64) float64 {
	switch d {
	case Poisson:
		return logPoisson(math.Round(o), s)
	case Normal:
		return logNormal(o, s, param)
	case NormalCoV:
		return logNormal(o, s, math.Max(s, minScaleFloor)*param)
	case NegativeBinomial:
		return logNegBinom(o, s, param)
	case SqrtNormal:
		return logNormal(math.Sqrt(o), math.Sqrt(s), param)
	case SqrtNormalCoV:
		return logNormal(math.Sqrt(o), math.Sqrt(s), math.Sqrt(math.Max(s, minScaleFloor))*param)
	case SqrtNormalScaleSim:
		mean := math.Sqrt(s * param2)
		sd := math.Sqrt(math.Max(s, minScaleFloor)*param2) * param
		return logNormal(math.Sqrt(o), mean, sd)
	case LogNormal:
		return logLogNormal(o, math.Log(s)+param*param, param)
	default:
		return math.NaN()
	}
}

func logNormal(o, mean, sd float64) float64 {
	if sd <= 0 {
		if o == mean {
			return 0
		}
		return math.Inf(-1)
	}
	z := (o - mean) / sd
	return -0.5*z*z - math.Log(sd) - 0.5*math.Log(2*math.Pi)
}

func logLogNormal(o, meanlog, sdlog float64) float64 {
	if o <= 0 {
		return math.Inf(-1)
	}
	return logNormal(math.Log(o), meanlog, sdlog) - math.Log(o)
}

func logPoisson(k, lambda float64) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	logFactK, _ := math.Lgamma(k + 1)
	return k*math.Log(lambda) - lambda - logFactK
}

// logNegBinom evaluates the mean/size parameterization: size is the
// dispersion parameter p1, var = mean + mean^2/size.
func logNegBinom(o, mean, size float64) float64 {
	if size <= 0 || mean < 0 {
		return math.NaN()
	}
	if mean == 0 {
		if o == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	lgSizeO, _ := math.Lgamma(size + o)
	lgSize, _ := math.Lgamma(size)
	lgO1, _ := math.Lgamma(o + 1)
	p := size / (size + mean)
	return lgSizeO - lgSize - lgO1 + size*math.Log(p) + o*math.Log(1-p)
}
