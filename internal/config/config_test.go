package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
start_date: 2023-01-01
end_date: 2023-06-01
nslots: 3
inference:
  iterations_per_slot: 10
  statistics:
    - name: cases
      likelihood: normal
      param: 1
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.NSlots)
	require.Len(t, cfg.Inference.Statistics, 1)
	assert.Equal(t, "cases", cfg.Inference.Statistics[0].Name)
}

func TestLoadRejectsMissingRequiredKey(t *testing.T) {
	path := writeConfig(t, `
start_date: 2023-01-01
end_date: 2023-06-01
`)
	_, err := Load(path)
	assert.Error(t, err, "expected a schema validation error for a missing nslots/inference key")
}

func TestLoadRejectsEndBeforeStart(t *testing.T) {
	path := writeConfig(t, `
start_date: 2023-06-01
end_date: 2023-01-01
nslots: 1
inference:
  iterations_per_slot: 1
`)
	_, err := Load(path)
	assert.Error(t, err, "expected an error when end_date precedes start_date")
}

func TestLoadRejectsDuplicateStatisticNames(t *testing.T) {
	path := writeConfig(t, `
start_date: 2023-01-01
end_date: 2023-06-01
nslots: 1
inference:
  iterations_per_slot: 1
  statistics:
    - name: cases
      likelihood: normal
    - name: cases
      likelihood: poisson
`)
	_, err := Load(path)
	assert.Error(t, err, "expected an error for duplicate statistic names")
}

func TestResolveStringPrefersFlagOverEnv(t *testing.T) {
	t.Setenv("TEST_RESOLVE_KEY", "from-env")
	assert.Equal(t, "from-flag", ResolveString("from-flag", "TEST_RESOLVE_KEY", "fallback"))
	assert.Equal(t, "from-env", ResolveString("", "TEST_RESOLVE_KEY", "fallback"))
}

func TestGetEnvIntFallsBackOnUnparsable(t *testing.T) {
	t.Setenv("TEST_RESOLVE_INT", "not-a-number")
	assert.Equal(t, 42, GetEnvInt("TEST_RESOLVE_INT", 42))
}
