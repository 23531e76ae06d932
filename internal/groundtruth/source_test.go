package groundtruth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopkinsidd/flepimop-inference/internal/likelihood"
	"github.com/hopkinsidd/flepimop-inference/internal/timeseries"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "series.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCSVParsesRowsBySubpop(t *testing.T) {
	path := writeCSV(t, "date,subpop,cases\n2023-01-01,north,5\n2023-01-02,north,7\n2023-01-01,south,1\n")
	series, err := LoadCSV(path, "cases")
	require.NoError(t, err)
	assert.Len(t, series["north"], 2)
	assert.Len(t, series["south"], 1)
	assert.Equal(t, 7.0, series["north"][1].Value)
}

func TestLoadCSVRejectsMissingColumn(t *testing.T) {
	path := writeCSV(t, "date,subpop,cases\n2023-01-01,north,5\n")
	_, err := LoadCSV(path, "hosp")
	assert.Error(t, err)
}

func TestSourceAlignedSeriesAggregatesBothSides(t *testing.T) {
	simPath := writeCSV(t, "date,subpop,cases\n2023-01-01,north,10\n2023-01-02,north,20\n")
	observed, err := LoadCSV(writeCSV(t, "date,subpop,cases\n2023-01-01,north,1\n2023-01-02,north,2\n"), "cases")
	require.NoError(t, err)

	src := Source{
		Observed:  map[string]Series{"cases": observed},
		Units:     map[string]timeseries.PeriodUnit{"cases": timeseries.PeriodDay},
		Agg:       map[string]timeseries.Aggregator{"cases": timeseries.AggregatorSum},
		SimPath:   func(string) string { return simPath },
		SimColumn: func(string) string { return "cases" },
	}

	window := timeseries.NewWindow(
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		timeseries.PeriodDay,
	)

	series, err := src.AlignedSeries("north", likelihood.Statistic{Name: "cases"}, window)
	require.NoError(t, err)
	require.Len(t, series.Sim, 2)
	require.Len(t, series.Observed, 2)
	assert.Equal(t, 10.0, series.Sim[0])
	assert.Equal(t, 2.0, series.Observed[1])
}
