package timeseries

import "time"

// Aggregator combines the values within one valid bucket into a single
// comparable statistic (spec §3 "Statistic spec").
type Aggregator int

const (
	AggregatorSum Aggregator = iota
	AggregatorMean
)

func (a Aggregator) apply(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	if a == AggregatorMean {
		return sum / float64(len(values))
	}
	return sum
}

// Point is one (date, value) observation of a daily series.
type Point struct {
	Date  time.Time
	Value float64
}

// Bucket is one emitted aggregate: the bucket's closing date and the
// aggregator's result over the days it covers.
type Bucket struct {
	EndDate time.Time
	Value   float64
}

// Spec names the statistic-level knobs Aggregate needs: the bucketing unit
// and the within-bucket aggregator. The caller is responsible for having
// already intersected the series' window with the statistic's configured
// start/end and the ground-truth window (spec §4.2 step 1).
type Spec struct {
	Unit       PeriodUnit
	Aggregator Aggregator
}

// Aggregate implements spec §4.2 steps 2-4: assign each point in series to a
// bucket, keep only buckets that are contiguous and fully covered (every
// calendar day of the bucket present, multiplicity 1), and apply the
// aggregator within each valid bucket. The function is pure: identical
// inputs yield identical outputs, and the input series is never mutated.
func Aggregate(window Window, spec Spec, series []Point) []Bucket {
	restricted := restrictToWindow(window, series)
	if len(restricted) == 0 {
		return nil
	}

	buckets := window.Subdivide()
	byBucket := make(map[int][]Point, len(buckets))
	for _, p := range restricted {
		idx := window.FindBucketIndex(p.Date)
		if idx < 0 {
			continue
		}
		byBucket[idx] = append(byBucket[idx], p)
	}

	var out []Bucket
	for idx, bucketStart := range buckets {
		points, ok := byBucket[idx]
		if !ok {
			continue
		}
		bucketEnd := SnapToEnd(bucketStart, window.Unit)
		if !isFullyCovered(bucketStart, bucketEnd, points) {
			continue
		}
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Value
		}
		out = append(out, Bucket{EndDate: bucketEnd, Value: spec.Aggregator.apply(values)})
	}
	return out
}

func restrictToWindow(window Window, series []Point) []Point {
	var out []Point
	for _, p := range series {
		if p.Date.Before(window.Start) || p.Date.After(window.End) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// isFullyCovered reports whether points contains exactly one observation for
// every calendar day between start and end, with no duplicates (spec §4.2
// step 3: "a bucket is valid iff it is contiguous and fully covered ...
// [m]ultiplicity 1").
func isFullyCovered(start, end time.Time, points []Point) bool {
	seen := make(map[string]bool, len(points))
	for _, p := range points {
		day := p.Date.Format("2006-01-02")
		if seen[day] {
			return false
		}
		seen[day] = true
	}

	expected := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		expected++
		if !seen[d.Format("2006-01-02")] {
			return false
		}
	}
	return len(seen) == expected
}
