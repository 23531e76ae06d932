package hierarchical

import (
	"math"
	"testing"
)

func TestShrinkageAdjusterRewardsCloseToGroupMean(t *testing.T) {
	rows := []Row{
		{Subpop: "a", Group: "state1", Value: 0.5},
		{Subpop: "b", Group: "state1", Value: 0.52},
		{Subpop: "c", Group: "state1", Value: 10.0}, // far outlier, same group
	}
	adj := ShrinkageAdjuster{}

	densities := adj.LogDensities(rows)

	if !(densities[0] > densities[2]) {
		t.Errorf("row close to group mean should score higher than the outlier: %v vs %v", densities[0], densities[2])
	}
}

func TestShrinkageAdjusterFloorsSingleRowGroupSD(t *testing.T) {
	rows := []Row{{Subpop: "a", Group: "lonely", Value: 3}}
	adj := ShrinkageAdjuster{}

	densities := adj.LogDensities(rows)

	want := logNormal(3, 3, minGroupSD)
	if densities[0] != want {
		t.Errorf("a singleton group should use the floored SD: got %v, want %v", densities[0], want)
	}
}

func TestShrinkageAdjusterLogitTransform(t *testing.T) {
	rows := []Row{
		{Subpop: "a", Group: "g", Value: 0.1},
		{Subpop: "b", Group: "g", Value: 0.9},
	}
	adj := ShrinkageAdjuster{Transform: TransformLogit}

	densities := adj.LogDensities(rows)
	for _, d := range densities {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			t.Errorf("logit-transformed density should stay finite, got %v", d)
		}
	}
}

func TestPriorLogDensityLogitNormal(t *testing.T) {
	p := Prior{Kind: PriorLogitNormal, Mu: 0, Sigma: 1}
	d := p.LogDensity(0.5) // logit(0.5) = 0, right at the mean
	want := logNormal(0, 0, 1)
	if math.Abs(d-want) > 1e-9 {
		t.Errorf("got %v, want %v", d, want)
	}
}

func TestPriorAdjusterSkipsUnconfiguredModifiers(t *testing.T) {
	adj := PriorAdjuster{Priors: map[string]Prior{
		"npi": {Kind: PriorNormal, Mu: 0, Sigma: 1},
	}}
	values := map[string]float64{"npi": 0, "unrelated": 99}

	got := adj.LogDensity(values)
	want := logNormal(0, 0, 1)
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
