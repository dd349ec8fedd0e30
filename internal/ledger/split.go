package ledger

import "sort"

// EqualShares divides amount across the given participants in slice order.
// The remainder (amount mod n) is assigned one extra minor unit at a time to
// the first participants in that order, so repeated computation is stable and
// no fractional currency unit is ever lost or invented.
func EqualShares(amount int64, participants []Participant) (map[ParticipantID]int64, error) {
	if amount <= 0 {
		return nil, errNonPositiveAmount(amount)
	}
	n := int64(len(participants))
	if n == 0 {
		return nil, &InvalidEventError{
			Code:    ErrCodeNoParticipants,
			Message: "equal split requires at least one participant",
		}
	}

	base := amount / n
	rem := amount % n

	shares := make(map[ParticipantID]int64, n)
	for i, p := range participants {
		s := base
		if int64(i) < rem {
			s++
		}
		shares[p.ID] = s
	}
	return shares, nil
}

// WeightedShares apportions amount across participants by weight using the
// largest-remainder method: each participant gets floor(amount*w/W), then the
// leftover units go one at a time to the largest truncated remainders, ties
// broken by ascending participant id. The result always sums exactly to
// amount.
func WeightedShares(amount int64, participants []Participant) (map[ParticipantID]int64, error) {
	weights := make(map[ParticipantID]int64, len(participants))
	for _, p := range participants {
		w := p.Weight
		if w <= 0 {
			w = 1
		}
		weights[p.ID] = w
	}
	return apportion(amount, participants, weights, "weighted split requires at least one participant")
}

// ProRataShares apportions amount by each participant's historical
// contribution total. Participants who have contributed nothing receive
// nothing. Fails when no participant has contributed, since there is no
// ratio to apportion against.
func ProRataShares(amount int64, participants []Participant, contributed map[ParticipantID]int64) (map[ParticipantID]int64, error) {
	var total int64
	weights := make(map[ParticipantID]int64, len(participants))
	for _, p := range participants {
		w := contributed[p.ID]
		if w < 0 {
			w = 0
		}
		weights[p.ID] = w
		total += w
	}
	if total == 0 {
		return nil, &InvalidEventError{
			Code:    ErrCodeNoParticipants,
			Message: "pro-rata split requires at least one prior contribution",
		}
	}
	return apportion(amount, participants, weights, "pro-rata split requires at least one participant")
}

// apportion implements largest-remainder apportionment over positive integer
// weights. Zero-weight participants are skipped entirely.
func apportion(amount int64, participants []Participant, weights map[ParticipantID]int64, emptyMsg string) (map[ParticipantID]int64, error) {
	if amount <= 0 {
		return nil, errNonPositiveAmount(amount)
	}

	type slot struct {
		id  ParticipantID
		rem int64 // truncated remainder, amount*w mod W
	}

	var totalWeight int64
	for _, p := range participants {
		totalWeight += weights[p.ID]
	}
	if totalWeight == 0 {
		return nil, &InvalidEventError{
			Code:    ErrCodeNoParticipants,
			Message: emptyMsg,
		}
	}

	shares := make(map[ParticipantID]int64, len(participants))
	slots := make([]slot, 0, len(participants))
	var assigned int64
	for _, p := range participants {
		w := weights[p.ID]
		if w == 0 {
			continue
		}
		s := amount * w / totalWeight
		shares[p.ID] = s
		assigned += s
		slots = append(slots, slot{id: p.ID, rem: amount * w % totalWeight})
	}

	// Leftover units to the largest remainders, ascending id on ties.
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].rem != slots[j].rem {
			return slots[i].rem > slots[j].rem
		}
		return slots[i].id < slots[j].id
	})
	for i := int64(0); i < amount-assigned; i++ {
		shares[slots[i].id]++
	}

	return shares, nil
}

// AllocateEqual distributes total (which may be negative or zero) equally
// across ids in slice order, assigning the remainder one unit at a time to
// the first ids. The results always sum exactly to total. Used to fold the
// pool balance back into participant positions before settlement.
func AllocateEqual(total int64, ids []ParticipantID) map[ParticipantID]int64 {
	out := make(map[ParticipantID]int64, len(ids))
	n := int64(len(ids))
	if n == 0 {
		return out
	}

	base := total / n
	rem := total % n // same sign as total
	unit := int64(1)
	if rem < 0 {
		unit = -1
		rem = -rem
	}

	for i, id := range ids {
		a := base
		if int64(i) < rem {
			a += unit
		}
		out[id] = a
	}
	return out
}
