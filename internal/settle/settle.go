// Package settle computes minimal settlement plans from derived balances.
//
// Solve implements greedy largest-first matching for the single-asset netting
// problem: repeatedly pair the largest-magnitude creditor with the
// largest-magnitude debtor. This produces at most N-1 transfers for N
// participants and is deterministic (ties broken by ascending participant
// id), so solving the same positions twice yields the same plan.
package settle

import (
	"github.com/finsight/fairsplit/internal/ledger"
)

// Transfer is one suggested peer-to-peer payment.
type Transfer struct {
	From   ledger.ParticipantID `json:"from"`
	To     ledger.ParticipantID `json:"to"`
	Amount int64                `json:"amount"`
}

// Plan is an ordered sequence of transfers that zeroes all positions.
// Plans are computed on demand and never persisted as authoritative.
type Plan struct {
	Transfers []Transfer `json:"transfers"`
}

// Positions folds the pool balance back into participant accounts, yielding
// the net position each participant settles against.
//
// The pool balance is allocated equally across the active participants (the
// same deterministic remainder rule as equal splits, in the given order), so
// the resulting positions sum to exactly zero. Inactive participants keep
// their raw account balance; they contributed or consumed historically, but
// the remaining pool is not theirs to reclaim.
func Positions(b ledger.Balances, active []ledger.Participant) map[ledger.ParticipantID]int64 {
	ids := make([]ledger.ParticipantID, len(active))
	for i, p := range active {
		ids[i] = p.ID
	}
	alloc := ledger.AllocateEqual(b.Pool, ids)

	positions := make(map[ledger.ParticipantID]int64, len(b.Accounts))
	for id, v := range b.Accounts {
		positions[id] = v
	}
	for id, a := range alloc {
		positions[id] += a
	}
	return positions
}

// side is one half of the netting problem: a participant and the magnitude
// still outstanding.
type side struct {
	id     ledger.ParticipantID
	amount int64
}

// Solve produces a plan whose transfers zero every position.
//
// Positions must sum to zero (the Positions contract); Solve is a pure
// function and never mutates its argument. All-zero positions return an
// empty plan, not an error.
func Solve(positions map[ledger.ParticipantID]int64) Plan {
	var creditors, debtors []side
	for id, v := range positions {
		switch {
		case v > 0:
			creditors = append(creditors, side{id: id, amount: v})
		case v < 0:
			debtors = append(debtors, side{id: id, amount: -v})
		}
	}

	plan := Plan{Transfers: []Transfer{}}
	for len(creditors) > 0 && len(debtors) > 0 {
		ci := largest(creditors)
		di := largest(debtors)

		amount := creditors[ci].amount
		if debtors[di].amount < amount {
			amount = debtors[di].amount
		}

		plan.Transfers = append(plan.Transfers, Transfer{
			From:   debtors[di].id,
			To:     creditors[ci].id,
			Amount: amount,
		})

		creditors[ci].amount -= amount
		debtors[di].amount -= amount
		if creditors[ci].amount == 0 {
			creditors = append(creditors[:ci], creditors[ci+1:]...)
		}
		if debtors[di].amount == 0 {
			debtors = append(debtors[:di], debtors[di+1:]...)
		}
	}

	return plan
}

// largest returns the index of the largest-magnitude side, ties broken by
// ascending participant id for determinism.
func largest(sides []side) int {
	best := 0
	for i := 1; i < len(sides); i++ {
		if sides[i].amount > sides[best].amount ||
			(sides[i].amount == sides[best].amount && sides[i].id < sides[best].id) {
			best = i
		}
	}
	return best
}

// Apply returns the positions that remain after executing every transfer in
// the plan. A correct plan leaves every position at zero.
func Apply(positions map[ledger.ParticipantID]int64, plan Plan) map[ledger.ParticipantID]int64 {
	out := make(map[ledger.ParticipantID]int64, len(positions))
	for id, v := range positions {
		out[id] = v
	}
	for _, t := range plan.Transfers {
		out[t.From] += t.Amount
		out[t.To] -= t.Amount
	}
	return out
}
