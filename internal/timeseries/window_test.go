package timeseries

import (
	"testing"
	"time"
)

func TestSnapToStartWeekIsSunday(t *testing.T) {
	wed := time.Date(2024, 1, 17, 15, 30, 0, 0, time.UTC) // a Wednesday
	got := SnapToStart(wed, PeriodWeek)
	if got.Weekday() != time.Sunday {
		t.Fatalf("SnapToStart(week) = %v, want a Sunday", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("SnapToStart did not zero the time of day: %v", got)
	}
}

func TestSnapToEndMonthIsLastNanosecond(t *testing.T) {
	mid := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC) // February, leap year
	got := SnapToEnd(mid, PeriodMonth)
	want := time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC)
	if !got.Equal(want) {
		t.Errorf("SnapToEnd(month) = %v, want %v", got, want)
	}
}

func TestWindowSubdivideCoversWholeRange(t *testing.T) {
	w := NewWindow(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		PeriodDay,
	)
	buckets := w.Subdivide()
	if len(buckets) != 10 {
		t.Fatalf("expected 10 daily buckets, got %d", len(buckets))
	}
}

func TestWindowFindBucketIndexOutOfRange(t *testing.T) {
	w := NewWindow(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		PeriodDay,
	)
	idx := w.FindBucketIndex(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if idx != -1 {
		t.Errorf("expected -1 for an out-of-range date, got %d", idx)
	}
}

func TestWindowIntersect(t *testing.T) {
	a := NewWindow(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		PeriodDay,
	)
	b := NewWindow(
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		PeriodDay,
	)
	got := a.Intersect(b)
	if !got.Start.Equal(SnapToStart(b.Start, PeriodDay)) {
		t.Errorf("intersect start = %v, want %v", got.Start, b.Start)
	}
	if !got.End.Equal(SnapToEnd(a.End, PeriodDay)) {
		t.Errorf("intersect end = %v, want %v", got.End, a.End)
	}
}

func TestWindowEmpty(t *testing.T) {
	a := NewWindow(
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), // end before start
		PeriodDay,
	)
	if !a.Empty() {
		t.Errorf("expected an inverted window to be Empty")
	}
}
