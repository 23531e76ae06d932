// Package timeseries implements the time-aggregation step that reduces a
// simulator's daily outcome series, and the matching ground-truth series, to
// comparable statistics under a configured bucketing period (spec §4.2).
package timeseries

import "time"

// PeriodUnit is the bucketing granularity a statistic spec assigns a date to.
type PeriodUnit int

const (
	PeriodDay PeriodUnit = iota
	PeriodWeek
	PeriodMonth
)

// Window is a closed date range bucketed by unit, grounded on the teacher's
// AnalysisWindow: boundaries are snapped to whole buckets so Subdivide and
// FindBucketIndex agree on bucket edges.
type Window struct {
	Start time.Time
	End   time.Time
	Unit  PeriodUnit
}

// NewWindow snaps start/end to the enclosing bucket boundaries for unit.
func NewWindow(start, end time.Time, unit PeriodUnit) Window {
	return Window{
		Start: SnapToStart(start, unit),
		End:   SnapToEnd(end, unit),
		Unit:  unit,
	}
}

// Intersect returns the window common to w and other, with w's bucketing
// unit. Used to restrict a series to gt_window ∩ statistic_window (§4.2
// step 1).
func (w Window) Intersect(other Window) Window {
	start := w.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := w.End
	if other.End.Before(end) {
		end = other.End
	}
	return Window{Start: SnapToStart(start, w.Unit), End: SnapToEnd(end, w.Unit), Unit: w.Unit}
}

// Empty reports whether the window contains no dates.
func (w Window) Empty() bool {
	return w.End.Before(w.Start)
}

// SnapToStart normalizes t to the first instant of its bucket.
func SnapToStart(t time.Time, unit PeriodUnit) time.Time {
	if t.IsZero() {
		return t
	}
	switch unit {
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case PeriodWeek:
		// Epidemiological week: Sunday is the first day.
		weekday := int(t.Weekday()) // Sunday == 0
		return time.Date(t.Year(), t.Month(), t.Day()-weekday, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// SnapToEnd normalizes t to the last instant of its bucket.
func SnapToEnd(t time.Time, unit PeriodUnit) time.Time {
	if t.IsZero() {
		return t
	}
	switch unit {
	case PeriodMonth:
		next := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		return next.Add(-time.Nanosecond)
	case PeriodWeek:
		weekday := int(t.Weekday())
		daysToAdd := 6 - weekday
		return time.Date(t.Year(), t.Month(), t.Day()+daysToAdd, 23, 59, 59, 999999999, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
	}
}

// Subdivide returns every bucket's start instant within the window, in
// order.
func (w Window) Subdivide() []time.Time {
	var buckets []time.Time
	current := w.Start
	for !current.After(w.End) {
		buckets = append(buckets, current)
		switch w.Unit {
		case PeriodMonth:
			current = current.AddDate(0, 1, 0)
		case PeriodWeek:
			current = current.AddDate(0, 0, 7)
		default:
			current = current.AddDate(0, 0, 1)
		}
	}
	return buckets
}

// FindBucketIndex returns the ordinal of the bucket containing t within w,
// or -1 if t falls outside the window.
func (w Window) FindBucketIndex(t time.Time) int {
	tNorm := SnapToStart(t, w.Unit)
	if tNorm.Before(w.Start) || tNorm.After(w.End) {
		return -1
	}
	switch w.Unit {
	case PeriodMonth:
		return (tNorm.Year()-w.Start.Year())*12 + int(tNorm.Month()-w.Start.Month())
	case PeriodWeek:
		return int(tNorm.Sub(w.Start).Hours() / (24 * 7))
	default:
		return int(tNorm.Sub(w.Start).Hours() / 24)
	}
}
