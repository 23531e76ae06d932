// Package groundtruth loads observed-incidence and simulator-output CSVs
// from disk and exposes them as the aligned per-subpop, per-statistic
// series the slot driver needs at evaluation time, applying spec §4.2's
// restrict/bucket/aggregate pipeline (internal/timeseries) ahead of the
// driver's likelihood evaluation.
package groundtruth

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/hopkinsidd/flepimop-inference/internal/likelihood"
	"github.com/hopkinsidd/flepimop-inference/internal/timeseries"
)

// Series holds every subpop's daily (date, value) observations for one named
// column (a statistic's sim_var or data_var), keyed by subpop.
type Series map[string][]timeseries.Point // subpop -> points

// LoadCSV reads a CSV with header "date,subpop,<column>" into a Series.
// Dates are parsed as YYYY-MM-DD.
func LoadCSV(path, column string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("groundtruth: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("groundtruth: parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("groundtruth: %s is empty", path)
	}

	header := rows[0]
	dateCol, subpopCol, valueCol := -1, -1, -1
	for i, h := range header {
		switch h {
		case "date":
			dateCol = i
		case "subpop":
			subpopCol = i
		case column:
			valueCol = i
		}
	}
	if dateCol < 0 || subpopCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("groundtruth: %s missing one of date/subpop/%s columns", path, column)
	}

	out := Series{}
	for _, row := range rows[1:] {
		date, err := time.Parse("2006-01-02", row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("groundtruth: %s: bad date %q: %w", path, row[dateCol], err)
		}
		var value float64
		if _, err := fmt.Sscanf(row[valueCol], "%g", &value); err != nil {
			return nil, fmt.Errorf("groundtruth: %s: bad value %q: %w", path, row[valueCol], err)
		}
		subpop := row[subpopCol]
		out[subpop] = append(out[subpop], timeseries.Point{Date: date, Value: value})
	}
	return out, nil
}

// Source implements mcmcslot.StatisticSource over a ground-truth series
// loaded once at construction and a simulator-output series re-read from
// disk on every call, since the simulator overwrites its outcome files
// each iteration (spec §4.5 "no in-process state is shared").
type Source struct {
	Observed map[string]Series // statistic name -> subpop -> points
	Units    map[string]timeseries.PeriodUnit
	Agg      map[string]timeseries.Aggregator

	// SimPath returns the outcome CSV path to read for a given statistic,
	// reflecting the driver's current write prefix.
	SimPath func(statistic string) string
	// SimColumn returns the CSV column name holding a statistic's
	// simulated value.
	SimColumn func(statistic string) string
}

// AlignedSeries implements mcmcslot.StatisticSource.
func (s Source) AlignedSeries(subpop string, statistic likelihood.Statistic, window timeseries.Window) (likelihood.Series, error) {
	obsSeries, ok := s.Observed[statistic.Name]
	if !ok {
		return likelihood.Series{}, fmt.Errorf("groundtruth: no observed series registered for statistic %q", statistic.Name)
	}
	simSeries, err := LoadCSV(s.SimPath(statistic.Name), s.SimColumn(statistic.Name))
	if err != nil {
		return likelihood.Series{}, err
	}

	unit := s.Units[statistic.Name]
	agg := s.Agg[statistic.Name]
	spec := timeseries.Spec{Unit: unit, Aggregator: agg}

	obsBuckets := timeseries.Aggregate(window, spec, obsSeries[subpop])
	simBuckets := timeseries.Aggregate(window, spec, simSeries[subpop])

	simByEnd := make(map[time.Time]float64, len(simBuckets))
	for _, b := range simBuckets {
		simByEnd[b.EndDate] = b.Value
	}

	series := likelihood.Series{
		Observed: make([]float64, 0, len(obsBuckets)),
		Sim:      make([]float64, 0, len(obsBuckets)),
	}
	for _, b := range obsBuckets {
		sim, ok := simByEnd[b.EndDate]
		if !ok {
			continue
		}
		series.Observed = append(series.Observed, b.Value)
		series.Sim = append(series.Sim, sim)
	}
	return series, nil
}
