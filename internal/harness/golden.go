package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/finsight/fairsplit/internal/canonical"
)

// Snapshot is the canonical-JSON view of a scenario run: balances,
// settlement plan, and fairness annotations, all amounts as decimal
// strings and scores as two-decimal strings so the bytes are exact.
func Snapshot(result *Result) map[string]any {
	balances := make(map[string]any, len(result.Balances))
	for id, v := range result.Balances {
		balances[id] = v
	}
	positions := make(map[string]any, len(result.Positions))
	for id, v := range result.Positions {
		positions[id] = v
	}

	transfers := make([]any, len(result.Transfers))
	for i, tr := range result.Transfers {
		transfers[i] = map[string]any{
			"from":      tr.From,
			"to":        tr.To,
			"amount":    tr.Amount,
			"score":     tr.Score,
			"rationale": tr.Rationale,
		}
	}

	expenses := make([]any, len(result.Expenses))
	for i, ex := range result.Expenses {
		expenses[i] = map[string]any{
			"seq":       ex.Seq,
			"payer":     ex.Payer,
			"score":     ex.Score,
			"rationale": ex.Rationale,
		}
	}

	return map[string]any{
		"scenario":  result.ScenarioName,
		"balances":  balances,
		"pool":      result.Pool,
		"positions": positions,
		"transfers": transfers,
		"expenses":  expenses,
	}
}

// RunWithGolden executes a scenario and compares its canonical snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario itself fails to run; snapshot mismatches
// fail the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := canonical.Marshal(Snapshot(result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
