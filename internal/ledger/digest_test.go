package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestTestEvent(seq int64) Event {
	return Event{
		RoomID: "room-1",
		Seq:    seq,
		Kind:   KindExpense,
		Actor:  "A",
		Amount: 150,
		Policy: SplitEqual,
		Shares: map[ParticipantID]int64{"A": 75, "B": 75},
		At:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventHash_Deterministic(t *testing.T) {
	h1, err := EventHash(digestTestEvent(1))
	require.NoError(t, err)
	h2, err := EventHash(digestTestEvent(1))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestEventHash_SensitiveToContent(t *testing.T) {
	base, err := EventHash(digestTestEvent(1))
	require.NoError(t, err)

	bumped := digestTestEvent(1)
	bumped.Amount = 151
	changed, err := EventHash(bumped)
	require.NoError(t, err)

	assert.NotEqual(t, base, changed)
}

func TestEventHash_TimezoneNormalized(t *testing.T) {
	utc := digestTestEvent(1)

	shifted := digestTestEvent(1)
	shifted.At = utc.At.In(time.FixedZone("IST", 5*3600+1800))

	h1, err := EventHash(utc)
	require.NoError(t, err)
	h2, err := EventHash(shifted)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestLogDigest_OrderSensitive(t *testing.T) {
	a := digestTestEvent(1)
	b := digestTestEvent(2)

	d1, err := LogDigest([]Event{a, b})
	require.NoError(t, err)
	d2, err := LogDigest([]Event{b, a})
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestLogDigest_EmptyLog(t *testing.T) {
	d, err := LogDigest(nil)
	require.NoError(t, err)
	assert.Len(t, d, 64)

	d2, err := LogDigest([]Event{})
	require.NoError(t, err)
	assert.Equal(t, d, d2)
}

func TestLogDigest_DistinctFromSingleEventHash(t *testing.T) {
	ev := digestTestEvent(1)

	logDigest, err := LogDigest([]Event{ev})
	require.NoError(t, err)
	eventHash, err := EventHash(ev)
	require.NoError(t, err)

	assert.NotEqual(t, logDigest, eventHash, "domain separation keeps log and event hashes apart")
}
