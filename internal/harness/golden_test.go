package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and checks
// both the in-file expectations and the canonical golden snapshot.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.Empty(t, result.Failures)
		})
	}
}

func TestSnapshot_Shape(t *testing.T) {
	result := &Result{
		ScenarioName: "shape",
		Balances:     map[string]string{"a": "1.00"},
		Pool:         "-1.00",
		Positions:    map[string]string{"a": "0.00"},
	}

	snap := Snapshot(result)

	assert.Equal(t, "shape", snap["scenario"])
	assert.Equal(t, map[string]any{"a": "1.00"}, snap["balances"])
	assert.Equal(t, []any{}, snap["transfers"])
	assert.Equal(t, []any{}, snap["expenses"])
}
