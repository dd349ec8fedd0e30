package ledger

import (
	"errors"
	"fmt"
)

// InvalidEventError rejects a malformed event before it reaches the log.
//
// Invalid events are a synchronous, non-retryable failure: the caller must
// correct the event and resubmit. No partial state change ever results from
// a rejected event.
type InvalidEventError struct {
	// Code identifies the rejection category.
	Code InvalidEventCode

	// Message is a human-readable description.
	Message string

	// Participant identifies the offending participant, when relevant.
	Participant ParticipantID
}

// InvalidEventCode categorizes event rejections.
type InvalidEventCode string

const (
	// ErrCodeNonPositiveAmount indicates an amount <= 0. Reversals are
	// compensating entries with swapped roles, never signed amounts.
	ErrCodeNonPositiveAmount InvalidEventCode = "NON_POSITIVE_AMOUNT"

	// ErrCodeUnbalancedShares indicates a share map that does not sum
	// exactly to the event amount.
	ErrCodeUnbalancedShares InvalidEventCode = "UNBALANCED_SHARES"

	// ErrCodeUnknownParticipant indicates a referenced participant id that
	// is not a member of the room.
	ErrCodeUnknownParticipant InvalidEventCode = "UNKNOWN_PARTICIPANT"

	// ErrCodeUnexpectedShares indicates a share map on a contribution.
	ErrCodeUnexpectedShares InvalidEventCode = "UNEXPECTED_SHARES"

	// ErrCodeUnknownKind indicates an unrecognized event kind.
	ErrCodeUnknownKind InvalidEventCode = "UNKNOWN_KIND"

	// ErrCodeUnknownPolicy indicates a split policy the event kind does
	// not support.
	ErrCodeUnknownPolicy InvalidEventCode = "UNKNOWN_POLICY"

	// ErrCodeNoParticipants indicates a split over zero eligible
	// participants.
	ErrCodeNoParticipants InvalidEventCode = "NO_PARTICIPANTS"
)

// Error implements the error interface.
func (e *InvalidEventError) Error() string {
	if e.Participant != "" {
		return fmt.Sprintf("%s: %s (participant=%s)", e.Code, e.Message, e.Participant)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidEvent returns true if the error is an event rejection.
// Uses errors.As to handle wrapped errors.
func IsInvalidEvent(err error) bool {
	var ie *InvalidEventError
	return errors.As(err, &ie)
}

// ConservationError reports a replay whose balances do not sum to zero.
//
// This is a defect, not an operational failure: the balance algorithm is
// sum-neutral by construction, so a non-zero total means corrupted events or
// a bug in share computation. Callers should surface it loudly.
type ConservationError struct {
	RoomID string
	Sum    int64 // sum of participant accounts plus pool, expected 0
	Seq    int64 // seq of the event after which the invariant broke
}

// Error implements the error interface.
func (e *ConservationError) Error() string {
	return fmt.Sprintf("CONSERVATION_VIOLATED: balances sum to %d after seq %d (room=%s)", e.Sum, e.Seq, e.RoomID)
}

// IsConservationError returns true if the error is a conservation violation.
func IsConservationError(err error) bool {
	var ce *ConservationError
	return errors.As(err, &ce)
}

func errNonPositiveAmount(amount int64) *InvalidEventError {
	return &InvalidEventError{
		Code:    ErrCodeNonPositiveAmount,
		Message: fmt.Sprintf("amount must be positive, got %d", amount),
	}
}

func errUnbalancedShares(sum, amount int64) *InvalidEventError {
	return &InvalidEventError{
		Code:    ErrCodeUnbalancedShares,
		Message: fmt.Sprintf("shares sum to %d, amount is %d", sum, amount),
	}
}

func errUnknownParticipant(id ParticipantID) *InvalidEventError {
	return &InvalidEventError{
		Code:        ErrCodeUnknownParticipant,
		Message:     "participant is not a member of the room",
		Participant: id,
	}
}
