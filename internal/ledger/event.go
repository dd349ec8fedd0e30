package ledger

import "time"

// NewContribution builds a contribution event for a room.
// Seq is left unset; the room coordinator assigns it at append time.
func NewContribution(room *Room, actor ParticipantID, amount int64, note string, at time.Time) (Event, error) {
	ev := Event{
		RoomID: room.ID,
		Kind:   KindContribution,
		Actor:  actor,
		Amount: amount,
		Note:   note,
		At:     at,
	}
	if err := Validate(ev, room); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// NewExpense builds an expense event, computing the share map for the equal
// and weighted policies over the room's active participants. For the exact
// policy the caller supplies the shares, which must sum exactly to amount.
func NewExpense(room *Room, payer ParticipantID, amount int64, policy SplitPolicy, exact map[ParticipantID]int64, note string, at time.Time) (Event, error) {
	shares, err := buildShares(room, amount, policy, exact, nil)
	if err != nil {
		return Event{}, err
	}
	ev := Event{
		RoomID: room.ID,
		Kind:   KindExpense,
		Actor:  payer,
		Amount: amount,
		Policy: policy,
		Shares: shares,
		Note:   note,
		At:     at,
	}
	if err := Validate(ev, room); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// NewDistribution builds a payout from the pool to participants. The prorata
// policy apportions by prior contribution totals, which the caller derives
// from the log as it stood before this event.
func NewDistribution(room *Room, actor ParticipantID, amount int64, policy SplitPolicy, exact map[ParticipantID]int64, contributed map[ParticipantID]int64, note string, at time.Time) (Event, error) {
	shares, err := buildShares(room, amount, policy, exact, contributed)
	if err != nil {
		return Event{}, err
	}
	ev := Event{
		RoomID: room.ID,
		Kind:   KindDistribution,
		Actor:  actor,
		Amount: amount,
		Policy: policy,
		Shares: shares,
		Note:   note,
		At:     at,
	}
	if err := Validate(ev, room); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func buildShares(room *Room, amount int64, policy SplitPolicy, exact map[ParticipantID]int64, contributed map[ParticipantID]int64) (map[ParticipantID]int64, error) {
	active := room.ActiveParticipants()
	switch policy {
	case SplitEqual:
		return EqualShares(amount, active)
	case SplitWeighted:
		return WeightedShares(amount, active)
	case SplitProRata:
		return ProRataShares(amount, active, contributed)
	case SplitExact:
		// Copy so later caller mutation cannot corrupt the event.
		shares := make(map[ParticipantID]int64, len(exact))
		for id, s := range exact {
			shares[id] = s
		}
		return shares, nil
	default:
		return nil, &InvalidEventError{
			Code:    ErrCodeUnknownPolicy,
			Message: "unrecognized split policy",
		}
	}
}

// ContributionTotals sums each participant's contributions over events.
// Used for pro-rata distributions and fairness scoring.
func ContributionTotals(events []Event) map[ParticipantID]int64 {
	totals := make(map[ParticipantID]int64)
	for _, ev := range events {
		if ev.Kind == KindContribution {
			totals[ev.Actor] += ev.Amount
		}
	}
	return totals
}
