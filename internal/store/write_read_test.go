package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/query"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func storeTestRoom() ledger.Room {
	return ledger.Room{
		ID:        "room-1",
		Name:      "Travel Plan",
		Currency:  "INR",
		Status:    ledger.RoomOpen,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Participants: []ledger.Participant{
			{ID: "A", Name: "Asha", Weight: 1, Active: true},
			{ID: "B", Name: "Balan", Weight: 2, Active: true},
		},
	}
}

func TestCreateRoom_RoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	room := storeTestRoom()

	require.NoError(t, s.CreateRoom(ctx, room))

	got, err := s.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	assert.Equal(t, room.Name, got.Name)
	assert.Equal(t, room.Currency, got.Currency)
	assert.Equal(t, room.Status, got.Status)
	assert.True(t, room.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Participants, 2)
	assert.Equal(t, room.Participants[0], got.Participants[0], "join order preserved")
	assert.Equal(t, room.Participants[1], got.Participants[1])
}

func TestCreateRoom_DuplicateID(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))
	assert.Error(t, s.CreateRoom(ctx, storeTestRoom()))
}

func TestGetRoom_NotFound(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.GetRoom(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAddParticipant_ExtendsJoinOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	require.NoError(t, s.AddParticipant(ctx, "room-1", ledger.Participant{
		ID: "C", Name: "Chitra", Weight: 1, Active: true,
	}))

	got, err := s.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, got.Participants, 3)
	assert.Equal(t, ledger.ParticipantID("C"), got.Participants[2].ID, "new joiner comes last")
}

func TestSetParticipantActive(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	require.NoError(t, s.SetParticipantActive(ctx, "room-1", "B", false))

	got, err := s.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, got.Participants[1].Active)
	assert.Equal(t, "Balan", got.Participants[1].Name, "soft removal keeps attribution")

	assert.Error(t, s.SetParticipantActive(ctx, "room-1", "ghost", false))
}

func TestUpdateRoomStatus(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	require.NoError(t, s.UpdateRoomStatus(ctx, "room-1", ledger.RoomSettled))
	got, err := s.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.RoomSettled, got.Status)

	assert.Error(t, s.UpdateRoomStatus(ctx, "ghost", ledger.RoomArchived))
}

func storeTestEvent(seq int64) ledger.Event {
	return ledger.Event{
		RoomID: "room-1",
		Seq:    seq,
		Kind:   ledger.KindExpense,
		Actor:  "A",
		Amount: 150,
		Policy: ledger.SplitExact,
		Shares: map[ledger.ParticipantID]int64{"A": 50, "B": 100},
		Note:   "dinner",
		At:     time.Date(2025, 6, 2, 20, 30, 0, 0, time.UTC),
	}
}

func TestAppendEvent_RoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	inserted, err := s.AppendEvent(ctx, storeTestEvent(1))
	require.NoError(t, err)
	assert.True(t, inserted)

	events, err := s.ReadRoomEvents(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, storeTestEvent(1), events[0])
}

func TestAppendEvent_IdempotentOnRetry(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	inserted, err := s.AppendEvent(ctx, storeTestEvent(1))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Retrying the same (room, seq) is a no-op, not a duplicate.
	inserted, err = s.AppendEvent(ctx, storeTestEvent(1))
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := s.CountRoomEvents(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReadRoomEvents_SeqOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	// Insert out of order; reads must come back in seq order.
	for _, seq := range []int64{3, 1, 2} {
		ev := storeTestEvent(seq)
		_, err := s.AppendEvent(ctx, ev)
		require.NoError(t, err)
	}

	events, err := s.ReadRoomEvents(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestQueryRoomEvents(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	contribution := ledger.Event{
		RoomID: "room-1", Seq: 1, Kind: ledger.KindContribution,
		Actor: "B", Amount: 300,
		At: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
	}
	_, err := s.AppendEvent(ctx, contribution)
	require.NoError(t, err)
	_, err = s.AppendEvent(ctx, storeTestEvent(2))
	require.NoError(t, err)

	t.Run("empty filter returns whole log", func(t *testing.T) {
		events, err := s.QueryRoomEvents(ctx, "room-1", query.Filter{})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("by kind", func(t *testing.T) {
		events, err := s.QueryRoomEvents(ctx, "room-1", query.Filter{
			Where: query.KindIs{Kind: "contribution"},
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ledger.ParticipantID("B"), events[0].Actor)
	})

	t.Run("conjunction with seq bound", func(t *testing.T) {
		events, err := s.QueryRoomEvents(ctx, "room-1", query.Filter{
			Where: query.And{Predicates: []query.Predicate{
				query.ActorIs{Actor: "A"},
				query.SeqAtLeast{Seq: 2},
			}},
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, int64(2), events[0].Seq)
	})

	t.Run("time window", func(t *testing.T) {
		events, err := s.QueryRoomEvents(ctx, "room-1", query.Filter{
			Where: query.Since{At: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ledger.KindExpense, events[0].Kind)
	})

	t.Run("limit", func(t *testing.T) {
		events, err := s.QueryRoomEvents(ctx, "room-1", query.Filter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, int64(1), events[0].Seq)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := s.QueryRoomEvents(ctx, "room-1", query.Filter{
			Where: query.KindIs{Kind: "refund"},
		})
		assert.Error(t, err)
	})
}

func TestGetLastSeq(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, storeTestRoom()))

	last, err := s.GetLastSeq(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), last, "empty log resumes at 0")

	_, err = s.AppendEvent(ctx, storeTestEvent(5))
	require.NoError(t, err)

	last, err = s.GetLastSeq(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), last)
}

func TestReplayAcrossReopen_IdenticalBalances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	room := storeTestRoom()
	require.NoError(t, s.CreateRoom(ctx, room))

	contrib := ledger.Event{
		RoomID: "room-1", Seq: 1, Kind: ledger.KindContribution,
		Actor: "A", Amount: 300, At: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
	_, err = s.AppendEvent(ctx, contrib)
	require.NoError(t, err)
	_, err = s.AppendEvent(ctx, storeTestEvent(2))
	require.NoError(t, err)

	events, err := s.ReadRoomEvents(ctx, "room-1")
	require.NoError(t, err)
	before, err := ledger.Replay(&room, events)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopen and replay: balances must be identical.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	room2, err := s2.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	events2, err := s2.ReadRoomEvents(ctx, "room-1")
	require.NoError(t, err)
	after, err := ledger.Replay(&room2, events2)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}
