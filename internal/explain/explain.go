// Package explain produces advisory fairness annotations for expense splits
// and settlement transfers.
//
// Everything here is derived from immutable snapshots (events, balances,
// plans) and returns value types. Nothing in this package ever alters
// balances or settlement plans; scores and rationales exist purely for
// display.
//
// Floats appear here and nowhere else in the core: scores are advisory
// display values in [0,1], never inputs to balance math.
package explain

import (
	"fmt"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/settle"
)

// Annotation is a fairness score in [0,1] with a human-readable rationale.
// Recomputable on demand, never independently mutated.
type Annotation struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// ScoreString renders the score with two decimals, for canonical snapshots
// (which forbid raw floats) and for display.
func (a Annotation) ScoreString() string {
	return fmt.Sprintf("%.2f", a.Score)
}

// Expense scores how closely an expense's shares track each sharer's
// historical standing in the pool.
//
// For every sharer, compare their slice of this expense (share/amount)
// against their contribution ratio (their contributions / all contributions)
// over the events before this expense. A participant carrying a larger slice
// of the expense than their standing in the pool lowers the score; the
// rationale names the widest gap. With no prior contributions there is no
// standing to compare against, so any split scores 1.0.
func Expense(ev ledger.Event, prior []ledger.Event, room *ledger.Room) Annotation {
	totals := ledger.ContributionTotals(prior)
	var contributed int64
	for _, v := range totals {
		contributed += v
	}

	if contributed == 0 {
		return Annotation{
			Score: 1.0,
			Rationale: fmt.Sprintf("%s split of %d: no contributions recorded yet, so no standing to compare against",
				ev.Policy, ev.Amount),
		}
	}

	worstGap := 0.0
	var worst ledger.ParticipantID
	for _, p := range room.Participants {
		share, ok := ev.Shares[p.ID]
		if !ok {
			continue
		}
		shareRatio := float64(share) / float64(ev.Amount)
		contribRatio := float64(totals[p.ID]) / float64(contributed)
		if gap := shareRatio - contribRatio; gap > worstGap {
			worstGap = gap
			worst = p.ID
		}
	}

	score := 1.0 - worstGap
	if score < 0 {
		score = 0
	}

	if worst == "" {
		return Annotation{
			Score: 1.0,
			Rationale: fmt.Sprintf("%s split of %d tracks every participant's contribution standing",
				ev.Policy, ev.Amount),
		}
	}

	name := string(worst)
	if p, ok := room.Member(worst); ok && p.Name != "" {
		name = p.Name
	}
	totalShare := ev.Shares[worst]
	return Annotation{
		Score: score,
		Rationale: fmt.Sprintf("%s carries %.0f%% of this %s split (%d of %d) against a %.0f%% contribution standing",
			name,
			100*float64(totalShare)/float64(ev.Amount),
			ev.Policy,
			totalShare, ev.Amount,
			100*float64(totals[worst])/float64(contributed)),
	}
}

// Transfer scores how directly a settlement transfer closes an existing
// debt.
//
// A transfer whose payer and payee each appear exactly once in the plan is a
// direct debtor-to-creditor pairing and scores 1.0. A transfer whose
// endpoints recur elsewhere in the plan is a byproduct of the greedy
// matching: it nets several pairwise relationships through one payment and
// scores lower, with the rationale saying so.
func Transfer(t settle.Transfer, plan settle.Plan) Annotation {
	var fromTransfers, toTransfers int
	for _, other := range plan.Transfers {
		if other.From == t.From || other.To == t.From {
			fromTransfers++
		}
		if other.From == t.To || other.To == t.To {
			toTransfers++
		}
	}

	if fromTransfers == 1 && toTransfers == 1 {
		return Annotation{
			Score: 1.0,
			Rationale: fmt.Sprintf("directly closes the debt between %s and %s in full",
				t.From, t.To),
		}
	}

	return Annotation{
		Score: 0.75,
		Rationale: fmt.Sprintf("nets multiple relationships: %s settles across %d transfers and %s across %d",
			t.From, fromTransfers, t.To, toTransfers),
	}
}
