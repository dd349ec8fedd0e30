package ledger

// Balances is the derived net position of every participant plus the
// implicit pool account.
//
// Accounts holds participant -> signed minor units: positive means the room
// owes the participant, negative means the participant owes the room. Pool
// is the implicit account the contributions sit in; it goes negative as cash
// enters (the pool owes that cash back) and recovers as distributions pay it
// out.
//
// Balances are never stored authoritatively - they are always recomputable
// from the event log, and: sum(Accounts) + Pool == 0, exactly, always.
type Balances struct {
	Accounts map[ParticipantID]int64 `json:"accounts"`
	Pool     int64                   `json:"pool"`
}

// Total returns sum(Accounts) + Pool. Zero for any well-formed replay.
func (b Balances) Total() int64 {
	sum := b.Pool
	for _, v := range b.Accounts {
		sum += v
	}
	return sum
}

// Replay derives balances from a seq-ordered event sequence.
//
// Replay is a deterministic pure function of the sequence: the same events
// always yield the same balances, which underwrites concurrent recomputation
// and crash recovery (a crash between append and recompute is safe, since
// recompute is always a full replay).
//
// Per-event effect:
//   - Contribution: +amount to the contributor, -amount to the pool
//   - Expense: +amount to the payer, -share to every sharer
//   - Distribution: +amount to the pool, -share to every recipient
//
// The conservation postcondition sum(accounts)+pool == 0 is checked after
// every event; a violation returns a ConservationError naming the offending
// seq. That error indicates a defect, never valid input.
func Replay(room *Room, events []Event) (Balances, error) {
	b := Balances{Accounts: make(map[ParticipantID]int64, len(room.Participants))}
	for _, p := range room.Participants {
		b.Accounts[p.ID] = 0
	}

	for _, ev := range events {
		switch ev.Kind {
		case KindContribution:
			b.Accounts[ev.Actor] += ev.Amount
			b.Pool -= ev.Amount
		case KindExpense:
			b.Accounts[ev.Actor] += ev.Amount
			for id, s := range ev.Shares {
				b.Accounts[id] -= s
			}
		case KindDistribution:
			b.Pool += ev.Amount
			for id, s := range ev.Shares {
				b.Accounts[id] -= s
			}
		}

		if sum := b.Total(); sum != 0 {
			return Balances{}, &ConservationError{RoomID: room.ID, Sum: sum, Seq: ev.Seq}
		}
	}

	return b, nil
}
