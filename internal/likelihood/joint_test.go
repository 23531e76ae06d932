package likelihood

import (
	"math"
	"testing"
)

func TestStatisticLogLikelihoodSkipsMissingObservations(t *testing.T) {
	stat := Statistic{Name: "cases", Distribution: Normal, Param: 2}
	series := Series{
		Sim:      []float64{10, 10, 10},
		Observed: []float64{10, math.NaN(), 10},
	}

	got := stat.LogLikelihood(series)
	want := 2 * Normal.LogDensity(10, 10, 2, 0)
	if got != want {
		t.Errorf("expected the NaN bucket to be skipped: got %v, want %v", got, want)
	}
}

func TestStatisticLogLikelihoodAppliesAddOnePerElement(t *testing.T) {
	stat := Statistic{Name: "cases", Distribution: Poisson, AddOne: AddOneEnabled}
	series := Series{
		Sim:      []float64{0, 0},
		Observed: []float64{0, 3},
	}

	got := stat.LogLikelihood(series)
	want := 0 + Poisson.LogDensity(3, 1, 0, 0) // first pair skipped, second s=0->1
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestJointLogLikelihoodSumsAcrossStatistics(t *testing.T) {
	stats := []Statistic{
		{Name: "cases", Distribution: Normal, Param: 1},
		{Name: "deaths", Distribution: Normal, Param: 1},
	}
	seriesByStatistic := map[string]Series{
		"cases":  {Sim: []float64{5}, Observed: []float64{5}},
		"deaths": {Sim: []float64{2}, Observed: []float64{2}},
	}

	got := JointLogLikelihood(stats, seriesByStatistic)
	want := Normal.LogDensity(5, 5, 1, 0) + Normal.LogDensity(2, 2, 1, 0)
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestJointLogLikelihoodSkipsStatisticWithNoSeries(t *testing.T) {
	stats := []Statistic{
		{Name: "cases", Distribution: Normal, Param: 1},
		{Name: "unscored", Distribution: Normal, Param: 1},
	}
	seriesByStatistic := map[string]Series{
		"cases": {Sim: []float64{1}, Observed: []float64{1}},
	}

	got := JointLogLikelihood(stats, seriesByStatistic)
	want := Normal.LogDensity(1, 1, 1, 0)
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
