package ledger

import "fmt"

// Validate checks a fully-materialized event against its room's membership.
//
// Returns an *InvalidEventError describing the first violation found, or nil.
// Validation never mutates anything; a rejected event leaves the log
// untouched.
func Validate(ev Event, room *Room) error {
	switch ev.Kind {
	case KindContribution:
		return validateContribution(ev, room)
	case KindExpense:
		return validateShared(ev, room, map[SplitPolicy]bool{
			SplitEqual:    true,
			SplitWeighted: true,
			SplitExact:    true,
		})
	case KindDistribution:
		return validateShared(ev, room, map[SplitPolicy]bool{
			SplitProRata: true,
			SplitEqual:   true,
			SplitExact:   true,
		})
	default:
		return &InvalidEventError{
			Code:    ErrCodeUnknownKind,
			Message: fmt.Sprintf("unrecognized event kind %q", ev.Kind),
		}
	}
}

func validateContribution(ev Event, room *Room) error {
	if ev.Amount <= 0 {
		return errNonPositiveAmount(ev.Amount)
	}
	if _, ok := room.Member(ev.Actor); !ok {
		return errUnknownParticipant(ev.Actor)
	}
	if len(ev.Shares) != 0 {
		return &InvalidEventError{
			Code:    ErrCodeUnexpectedShares,
			Message: "contributions carry no share map",
		}
	}
	return nil
}

func validateShared(ev Event, room *Room, allowed map[SplitPolicy]bool) error {
	if ev.Amount <= 0 {
		return errNonPositiveAmount(ev.Amount)
	}
	if _, ok := room.Member(ev.Actor); !ok {
		return errUnknownParticipant(ev.Actor)
	}
	if !allowed[ev.Policy] {
		return &InvalidEventError{
			Code:    ErrCodeUnknownPolicy,
			Message: fmt.Sprintf("policy %q is not valid for %s events", ev.Policy, ev.Kind),
		}
	}
	if len(ev.Shares) == 0 {
		return &InvalidEventError{
			Code:    ErrCodeUnbalancedShares,
			Message: "share map is empty",
		}
	}

	var sum int64
	for id, s := range ev.Shares {
		if _, ok := room.Member(id); !ok {
			return errUnknownParticipant(id)
		}
		if s < 0 {
			return &InvalidEventError{
				Code:        ErrCodeNonPositiveAmount,
				Message:     fmt.Sprintf("share must not be negative, got %d", s),
				Participant: id,
			}
		}
		sum += s
	}
	// Exact integer equality, no rounding tolerance.
	if sum != ev.Amount {
		return errUnbalancedShares(sum, ev.Amount)
	}
	return nil
}
