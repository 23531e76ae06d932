package likelihood

import (
	"math"
	"testing"
)

func TestLogDensityNormalPeaksAtMean(t *testing.T) {
	atMean := Normal.LogDensity(10, 10, 2, 0)
	offMean := Normal.LogDensity(15, 10, 2, 0)
	if !(atMean > offMean) {
		t.Errorf("density at the mean (%v) should exceed density off the mean (%v)", atMean, offMean)
	}
}

func TestLogDensityPoissonRoundsObservation(t *testing.T) {
	a := Poisson.LogDensity(4.4, 5, 0, 0)
	b := Poisson.LogDensity(4.0, 5, 0, 0)
	if a != b {
		t.Errorf("Poisson should round o before scoring: got %v vs %v", a, b)
	}
}

func TestLogDensityNormalCoVScalesWithFloor(t *testing.T) {
	// s below the floor of 5 should use the floor, not s itself.
	low := NormalCoV.LogDensity(1, 1, 0.5, 0)
	floored := Normal.LogDensity(1, 1, math.Max(1, minScaleFloor)*0.5, 0)
	if low != floored {
		t.Errorf("norm_cov did not apply the max(s,5) floor: got %v, want %v", low, floored)
	}
}

func TestLogDensitySqrtNormalUsesSquareRootScale(t *testing.T) {
	got := SqrtNormal.LogDensity(9, 9, 1, 0)
	want := logNormal(3, 3, 1)
	if got != want {
		t.Errorf("sqrtnorm = %v, want %v", got, want)
	}
}

func TestLogDensityLogNormalRejectsNonPositiveObservation(t *testing.T) {
	got := LogNormal.LogDensity(0, 5, 1, 0)
	if !math.IsInf(got, -1) {
		t.Errorf("lognorm at o=0 should be -Inf, got %v", got)
	}
}

func TestLogNegBinomMatchesPoissonAsSizeGrows(t *testing.T) {
	// As size -> infinity, NB(mean, size) approaches Poisson(mean).
	nb := logNegBinom(4, 6, 1e6)
	pois := logPoisson(4, 6)
	if math.Abs(nb-pois) > 1e-3 {
		t.Errorf("NegBinom with huge size should approximate Poisson: got %v vs %v", nb, pois)
	}
}
