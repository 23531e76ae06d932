package timeseries

import (
	"testing"
	"time"
)

func dayPoints(start time.Time, values ...float64) []Point {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return points
}

func TestAggregateWeeklySumOverFullWeeks(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	series := dayPoints(sunday, 1, 2, 3, 4, 5, 6, 7, 10, 10, 10, 10, 10, 10, 10)
	w := NewWindow(sunday, sunday.AddDate(0, 0, 13), PeriodWeek)

	out := Aggregate(w, Spec{Unit: PeriodWeek, Aggregator: AggregatorSum}, series)

	if len(out) != 2 {
		t.Fatalf("expected 2 complete weekly buckets, got %d", len(out))
	}
	if out[0].Value != 28 {
		t.Errorf("first week sum = %v, want 28", out[0].Value)
	}
	if out[1].Value != 70 {
		t.Errorf("second week sum = %v, want 70", out[1].Value)
	}
}

func TestAggregateDropsIncompleteBucket(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	series := dayPoints(sunday, 1, 2, 3) // only 3 of 7 days in the week
	w := NewWindow(sunday, sunday.AddDate(0, 0, 6), PeriodWeek)

	out := Aggregate(w, Spec{Unit: PeriodWeek, Aggregator: AggregatorSum}, series)

	if len(out) != 0 {
		t.Fatalf("expected the partial week to be dropped, got %d buckets", len(out))
	}
}

func TestAggregateMean(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := dayPoints(monday, 2, 4, 6)
	w := NewWindow(monday, monday.AddDate(0, 0, 2), PeriodDay)

	out := Aggregate(w, Spec{Unit: PeriodDay, Aggregator: AggregatorMean}, series)

	if len(out) != 3 {
		t.Fatalf("expected 3 daily buckets, got %d", len(out))
	}
	for i, want := range []float64{2, 4, 6} {
		if out[i].Value != want {
			t.Errorf("bucket %d = %v, want %v", i, out[i].Value, want)
		}
	}
}

func TestAggregateIsPure(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	series := dayPoints(sunday, 1, 2, 3, 4, 5, 6, 7)
	w := NewWindow(sunday, sunday.AddDate(0, 0, 6), PeriodWeek)
	spec := Spec{Unit: PeriodWeek, Aggregator: AggregatorSum}

	first := Aggregate(w, spec, series)
	second := Aggregate(w, spec, series)

	if len(first) != len(second) || len(first) != 1 || first[0].Value != second[0].Value {
		t.Errorf("Aggregate is not pure: %v vs %v", first, second)
	}
	if series[0].Value != 1 {
		t.Errorf("Aggregate mutated its input series")
	}
}

func TestAggregateRejectsDuplicateDayInBucket(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := []Point{
		{Date: monday, Value: 1},
		{Date: monday, Value: 2}, // duplicate day, multiplicity 2
	}
	w := NewWindow(monday, monday, PeriodDay)

	out := Aggregate(w, Spec{Unit: PeriodDay, Aggregator: AggregatorSum}, series)

	if len(out) != 0 {
		t.Errorf("expected a duplicated day to invalidate its bucket, got %v", out)
	}
}
