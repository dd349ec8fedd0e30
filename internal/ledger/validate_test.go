package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ContributionOK(t *testing.T) {
	room := testRoom("A", "B")
	ev, err := NewContribution(room, "A", 100, "", time.Time{})
	require.NoError(t, err)
	assert.NoError(t, Validate(ev, room))
}

func TestValidate_NonPositiveAmounts(t *testing.T) {
	room := testRoom("A")

	_, err := NewContribution(room, "A", 0, "", time.Time{})
	require.Error(t, err)
	var ie *InvalidEventError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeNonPositiveAmount, ie.Code)

	_, err = NewContribution(room, "A", -100, "", time.Time{})
	assert.True(t, IsInvalidEvent(err))
}

func TestValidate_UnknownParticipant(t *testing.T) {
	room := testRoom("A", "B")

	_, err := NewContribution(room, "ghost", 100, "", time.Time{})
	require.Error(t, err)
	var ie *InvalidEventError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeUnknownParticipant, ie.Code)
	assert.Equal(t, ParticipantID("ghost"), ie.Participant)

	// Exact shares naming a non-member are equally rejected.
	_, err = NewExpense(room, "A", 100, SplitExact,
		map[ParticipantID]int64{"A": 50, "ghost": 50}, "", time.Time{})
	assert.True(t, IsInvalidEvent(err))
}

func TestValidate_UnbalancedShares(t *testing.T) {
	room := testRoom("A", "B", "C")

	_, err := NewExpense(room, "A", 150, SplitExact,
		map[ParticipantID]int64{"A": 50, "B": 50, "C": 49}, "", time.Time{})
	require.Error(t, err)
	var ie *InvalidEventError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeUnbalancedShares, ie.Code, "149 != 150, no rounding tolerance")

	// One unit over is just as invalid as one unit under.
	_, err = NewExpense(room, "A", 150, SplitExact,
		map[ParticipantID]int64{"A": 50, "B": 50, "C": 51}, "", time.Time{})
	assert.True(t, IsInvalidEvent(err))
}

func TestValidate_NegativeShare(t *testing.T) {
	room := testRoom("A", "B")

	// Signed shares are forbidden; reversals are compensating entries.
	_, err := NewExpense(room, "A", 100, SplitExact,
		map[ParticipantID]int64{"A": 150, "B": -50}, "", time.Time{})
	assert.True(t, IsInvalidEvent(err))
}

func TestValidate_ContributionWithShares(t *testing.T) {
	room := testRoom("A")
	ev := Event{
		RoomID: room.ID,
		Kind:   KindContribution,
		Actor:  "A",
		Amount: 100,
		Shares: map[ParticipantID]int64{"A": 100},
	}

	err := Validate(ev, room)
	require.Error(t, err)
	var ie *InvalidEventError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeUnexpectedShares, ie.Code)
}

func TestValidate_PolicyByKind(t *testing.T) {
	room := testRoom("A", "B")

	// prorata is a distribution policy, not an expense policy.
	ev := Event{
		RoomID: room.ID,
		Kind:   KindExpense,
		Actor:  "A",
		Amount: 100,
		Policy: SplitProRata,
		Shares: map[ParticipantID]int64{"A": 100},
	}
	err := Validate(ev, room)
	var ie *InvalidEventError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeUnknownPolicy, ie.Code)

	// weighted is an expense policy, not a distribution policy.
	ev.Kind = KindDistribution
	ev.Policy = SplitWeighted
	err = Validate(ev, room)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeUnknownPolicy, ie.Code)
}

func TestValidate_UnknownKind(t *testing.T) {
	room := testRoom("A")
	err := Validate(Event{Kind: "transfer", Actor: "A", Amount: 1}, room)
	var ie *InvalidEventError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeUnknownKind, ie.Code)
}

func TestNewExpense_EqualSkipsInactive(t *testing.T) {
	room := testRoom("A", "B", "C")
	room.Participants[2].Active = false

	ev, err := NewExpense(room, "A", 100, SplitEqual, nil, "", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, int64(50), ev.Shares["A"])
	assert.Equal(t, int64(50), ev.Shares["B"])
	_, hasC := ev.Shares["C"]
	assert.False(t, hasC, "deactivated participants take no new shares")
}
