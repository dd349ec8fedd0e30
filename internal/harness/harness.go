package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/money"
	"github.com/finsight/fairsplit/internal/room"
	"github.com/finsight/fairsplit/internal/store"
	"github.com/finsight/fairsplit/internal/testutil"
)

// Result captures everything a scenario run derived, plus any expectation
// failures. All amounts are decimal strings in the room currency so results
// feed straight into canonical snapshots.
type Result struct {
	ScenarioName string

	// Applied holds the seq of every accepted event, in submission order.
	Applied []int64

	// Rejected holds the validation code of every refused event, keyed by
	// its index in the scenario's event list.
	Rejected map[int]string

	Balances  map[string]string
	Pool      string
	Positions map[string]string
	Transfers []TransferResult
	Expenses  []ExpenseResult

	// Failures lists every unmet expectation. Empty means the scenario
	// passed.
	Failures []string
}

// TransferResult is one settlement transfer with its fairness annotation.
type TransferResult struct {
	From      string
	To        string
	Amount    string
	Score     string
	Rationale string
}

// ExpenseResult is one expense's fairness annotation.
type ExpenseResult struct {
	Seq       int64
	Payer     string
	Score     string
	Rationale string
}

// Passed reports whether every expectation was met.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario against a fresh in-memory database and evaluates
// its expectations. Run fails with an error only on infrastructure
// problems; unmet expectations land in Result.Failures.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	// Fixed room id and ticking timestamps keep the persisted log
	// byte-identical across runs.
	manager := room.NewManager(st,
		room.WithIDGenerator(room.NewFixedGenerator(scenario.Name)),
		room.WithNowFunc(testutil.NewTicker(testutil.Epoch(), time.Second).Now),
	)

	participants := make([]ledger.Participant, len(scenario.Room.Participants))
	for i, p := range scenario.Room.Participants {
		participants[i] = ledger.Participant{
			ID:     ledger.ParticipantID(p.ID),
			Name:   p.Name,
			Weight: p.Weight,
		}
	}

	coord, err := manager.CreateRoom(ctx, scenario.Room.Name, scenario.Room.Currency, participants)
	if err != nil {
		return nil, fmt.Errorf("create scenario room: %w", err)
	}

	result := &Result{
		ScenarioName: scenario.Name,
		Rejected:     map[int]string{},
	}
	currency := scenario.Room.Currency

	for i, step := range scenario.Events {
		seq, err := applyStep(ctx, coord, step, currency)
		if step.Reject != "" {
			code := invalidEventCode(err)
			if code == "" {
				result.Failures = append(result.Failures,
					fmt.Sprintf("events[%d]: expected rejection %s, but event was accepted", i, step.Reject))
				continue
			}
			if code != step.Reject {
				result.Failures = append(result.Failures,
					fmt.Sprintf("events[%d]: expected rejection %s, got %s", i, step.Reject, code))
			}
			result.Rejected[i] = code
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		result.Applied = append(result.Applied, seq)
	}

	if err := deriveViews(coord, currency, result); err != nil {
		return nil, err
	}
	checkExpectations(scenario, result)
	return result, nil
}

func applyStep(ctx context.Context, coord *room.Coordinator, step EventStep, currency string) (int64, error) {
	amount, err := money.Parse(step.Amount, currency)
	if err != nil {
		return 0, err
	}

	policy := ledger.SplitPolicy(step.Policy)
	if policy == "" {
		policy = ledger.SplitEqual
	}

	var exact map[ledger.ParticipantID]int64
	if len(step.Shares) > 0 {
		exact = make(map[ledger.ParticipantID]int64, len(step.Shares))
		for id, s := range step.Shares {
			v, err := money.Parse(s, currency)
			if err != nil {
				return 0, err
			}
			exact[ledger.ParticipantID(id)] = v
		}
	}

	switch step.Kind {
	case KindContribution:
		return coord.Contribute(ctx, ledger.ParticipantID(step.Actor), amount, step.Note)
	case KindExpense:
		return coord.AddExpense(ctx, ledger.ParticipantID(step.Actor), amount, policy, exact, step.Note)
	case KindDistribution:
		return coord.Distribute(ctx, ledger.ParticipantID(step.Actor), amount, policy, exact, step.Note)
	default:
		return 0, fmt.Errorf("unknown event kind %q", step.Kind)
	}
}

// invalidEventCode extracts the validation code from a rejection, or ""
// when the error is not a validation rejection.
func invalidEventCode(err error) string {
	var invalid *ledger.InvalidEventError
	if errors.As(err, &invalid) {
		return string(invalid.Code)
	}
	return ""
}

func deriveViews(coord *room.Coordinator, currency string, result *Result) error {
	balances, err := coord.Balances()
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	result.Balances = make(map[string]string, len(balances.Accounts))
	for id, v := range balances.Accounts {
		result.Balances[string(id)] = money.Format(v, currency)
	}
	result.Pool = money.Format(balances.Pool, currency)

	view, err := coord.Settlement()
	if err != nil {
		return fmt.Errorf("settlement failed: %w", err)
	}
	result.Positions = make(map[string]string, len(view.Positions))
	for id, v := range view.Positions {
		result.Positions[string(id)] = money.Format(v, currency)
	}
	result.Transfers = make([]TransferResult, len(view.Transfers))
	for i, t := range view.Transfers {
		result.Transfers[i] = TransferResult{
			From:      string(t.Transfer.From),
			To:        string(t.Transfer.To),
			Amount:    money.Format(t.Transfer.Amount, currency),
			Score:     t.Annotation.ScoreString(),
			Rationale: t.Annotation.Rationale,
		}
	}

	for _, ae := range coord.AnnotatedExpenses() {
		result.Expenses = append(result.Expenses, ExpenseResult{
			Seq:       ae.Event.Seq,
			Payer:     string(ae.Event.Actor),
			Score:     ae.Annotation.ScoreString(),
			Rationale: ae.Annotation.Rationale,
		})
	}
	return nil
}

func checkExpectations(scenario *Scenario, result *Result) {
	for id, want := range scenario.Expect.Balances {
		if got := result.Balances[id]; got != want {
			result.Failures = append(result.Failures,
				fmt.Sprintf("balance[%s]: expected %s, got %s", id, want, got))
		}
	}
	if scenario.Expect.Pool != "" && result.Pool != scenario.Expect.Pool {
		result.Failures = append(result.Failures,
			fmt.Sprintf("pool: expected %s, got %s", scenario.Expect.Pool, result.Pool))
	}
	for id, want := range scenario.Expect.Positions {
		if got := result.Positions[id]; got != want {
			result.Failures = append(result.Failures,
				fmt.Sprintf("position[%s]: expected %s, got %s", id, want, got))
		}
	}

	if len(scenario.Expect.Transfers) > 0 {
		if len(result.Transfers) != len(scenario.Expect.Transfers) {
			result.Failures = append(result.Failures,
				fmt.Sprintf("transfers: expected %d, got %d", len(scenario.Expect.Transfers), len(result.Transfers)))
			return
		}
		for i, want := range scenario.Expect.Transfers {
			got := result.Transfers[i]
			if got.From != want.From || got.To != want.To || got.Amount != want.Amount {
				result.Failures = append(result.Failures,
					fmt.Sprintf("transfers[%d]: expected %s->%s %s, got %s->%s %s",
						i, want.From, want.To, want.Amount, got.From, got.To, got.Amount))
			}
		}
	}
}
