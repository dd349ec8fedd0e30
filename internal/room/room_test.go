package room

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/store"
)

func testNow() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func testManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rooms.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m := NewManager(s,
		WithIDGenerator(NewFixedGenerator("room-1", "room-2", "room-3")),
		WithNowFunc(testNow),
	)
	return m, s
}

func tripParticipants() []ledger.Participant {
	return []ledger.Participant{
		{ID: "asha", Name: "Asha", Weight: 1},
		{ID: "balan", Name: "Balan", Weight: 1},
		{ID: "chitra", Name: "Chitra", Weight: 1},
	}
}

func TestManager_CreateRoom(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	room := coord.Room()
	assert.Equal(t, "room-1", room.ID)
	assert.Equal(t, ledger.RoomOpen, room.Status)
	require.Len(t, room.Participants, 3)
	for _, p := range room.Participants {
		assert.True(t, p.Active)
		assert.Equal(t, int64(1), p.Weight)
	}
}

func TestManager_RoomNotFound(t *testing.T) {
	m, _ := testManager(t)

	_, err := m.Room(context.Background(), "no-such-room")
	require.Error(t, err)
	assert.True(t, IsRoomNotFound(err))
}

func TestCoordinator_ReferenceScenario(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	seq, err := coord.Contribute(ctx, "asha", 300, "kitty")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = coord.AddExpense(ctx, "balan", 150, ledger.SplitEqual, nil, "lunch")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	balances, err := coord.Balances()
	require.NoError(t, err)
	assert.Equal(t, int64(250), balances.Accounts["asha"])
	assert.Equal(t, int64(100), balances.Accounts["balan"])
	assert.Equal(t, int64(-50), balances.Accounts["chitra"])
	assert.Equal(t, int64(-300), balances.Pool)
	assert.Equal(t, int64(0), balances.Total())

	view, err := coord.Settlement()
	require.NoError(t, err)
	assert.Equal(t, int64(150), view.Positions["asha"])
	assert.Equal(t, int64(0), view.Positions["balan"])
	assert.Equal(t, int64(-150), view.Positions["chitra"])

	require.Len(t, view.Transfers, 1)
	tr := view.Transfers[0]
	assert.Equal(t, ledger.ParticipantID("chitra"), tr.Transfer.From)
	assert.Equal(t, ledger.ParticipantID("asha"), tr.Transfer.To)
	assert.Equal(t, int64(150), tr.Transfer.Amount)
	assert.Equal(t, 1.0, tr.Annotation.Score)
}

func TestCoordinator_RejectsInvalidEvents(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	_, err = coord.Contribute(ctx, "asha", 0, "")
	require.Error(t, err)
	assert.True(t, ledger.IsInvalidEvent(err))

	_, err = coord.Contribute(ctx, "stranger", 100, "")
	require.Error(t, err)
	assert.True(t, ledger.IsInvalidEvent(err))

	// Rejected submissions must not leak into the log.
	balances, err := coord.Balances()
	require.NoError(t, err)
	assert.Equal(t, int64(0), balances.Total())
	assert.Empty(t, coord.Events())
}

func TestCoordinator_ClosedRoomRejectsEvents(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)
	require.NoError(t, coord.MarkSettled(ctx))

	_, err = coord.Contribute(ctx, "asha", 100, "")
	require.Error(t, err)
	assert.True(t, IsRoomClosed(err))

	_, err = coord.AddExpense(ctx, "balan", 100, ledger.SplitEqual, nil, "")
	require.Error(t, err)
	assert.True(t, IsRoomClosed(err))
}

func TestCoordinator_Lifecycle(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	require.NoError(t, coord.MarkSettled(ctx))
	assert.Equal(t, ledger.RoomSettled, coord.Room().Status)

	// Settled is not re-enterable.
	err = coord.MarkSettled(ctx)
	require.Error(t, err)
	assert.True(t, IsRoomClosed(err))

	require.NoError(t, coord.Archive(ctx))
	assert.Equal(t, ledger.RoomArchived, coord.Room().Status)

	// Archived is terminal.
	err = coord.Archive(ctx)
	require.Error(t, err)
}

func TestCoordinator_AddParticipantMidRoom(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	_, err = coord.AddExpense(ctx, "asha", 300, ledger.SplitEqual, nil, "cab")
	require.NoError(t, err)

	require.NoError(t, coord.AddParticipant(ctx, ledger.Participant{ID: "dev", Name: "Dev"}))

	// Joined after the cab, so dev owes nothing for it but shares the
	// next expense four ways.
	_, err = coord.AddExpense(ctx, "balan", 400, ledger.SplitEqual, nil, "dinner")
	require.NoError(t, err)

	balances, err := coord.Balances()
	require.NoError(t, err)
	assert.Equal(t, int64(-100), balances.Accounts["dev"])
	assert.Equal(t, int64(300-100-100), balances.Accounts["asha"])
}

func TestCoordinator_DuplicateParticipant(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	err = coord.AddParticipant(ctx, ledger.Participant{ID: "asha", Name: "Asha again"})
	require.Error(t, err)

	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeDuplicateParticipant, se.Code)
}

func TestCoordinator_DeactivateParticipant(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	_, err = coord.AddExpense(ctx, "asha", 300, ledger.SplitEqual, nil, "cab")
	require.NoError(t, err)

	require.NoError(t, coord.DeactivateParticipant(ctx, "chitra"))

	// History stays; new equal splits exclude chitra.
	_, err = coord.AddExpense(ctx, "balan", 200, ledger.SplitEqual, nil, "dinner")
	require.NoError(t, err)

	balances, err := coord.Balances()
	require.NoError(t, err)
	assert.Equal(t, int64(-100), balances.Accounts["chitra"])

	// Departed participants still settle their history: chitra keeps the
	// cab share as a raw position even though new splits skip her.
	view, err := coord.Settlement()
	require.NoError(t, err)
	assert.Equal(t, int64(-100), view.Positions["chitra"])

	require.NoError(t, coord.ReactivateParticipant(ctx, "chitra"))
	_, err = coord.Contribute(ctx, "chitra", 100, "squaring up")
	require.NoError(t, err)
}

func TestCoordinator_AnnotatedExpenses(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	_, err = coord.Contribute(ctx, "asha", 300, "kitty")
	require.NoError(t, err)
	_, err = coord.AddExpense(ctx, "balan", 150, ledger.SplitEqual, nil, "lunch")
	require.NoError(t, err)

	annotated := coord.AnnotatedExpenses()
	require.Len(t, annotated, 1)
	assert.Equal(t, ledger.KindExpense, annotated[0].Event.Kind)
	assert.InDelta(t, 1.0-1.0/3.0, annotated[0].Annotation.Score, 1e-9)
	assert.NotEmpty(t, annotated[0].Annotation.Rationale)
}

func TestCoordinator_ProRataDistribution(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Syndicate", "INR", tripParticipants())
	require.NoError(t, err)

	_, err = coord.Contribute(ctx, "asha", 200, "")
	require.NoError(t, err)
	_, err = coord.Contribute(ctx, "balan", 100, "")
	require.NoError(t, err)

	// Payout in proportion to contributions: 2:1:0.
	_, err = coord.Distribute(ctx, "asha", 90, ledger.SplitProRata, nil, "refund")
	require.NoError(t, err)

	balances, err := coord.Balances()
	require.NoError(t, err)
	assert.Equal(t, int64(140), balances.Accounts["asha"])
	assert.Equal(t, int64(70), balances.Accounts["balan"])
	assert.Equal(t, int64(0), balances.Accounts["chitra"])
	assert.Equal(t, int64(-210), balances.Pool)
	assert.Equal(t, int64(0), balances.Total())
}

func TestManager_RecoveryReplaysLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.db")

	s, err := store.Open(path)
	require.NoError(t, err)
	m := NewManager(s,
		WithIDGenerator(NewFixedGenerator("room-1")),
		WithNowFunc(testNow),
	)

	ctx := context.Background()
	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)
	_, err = coord.Contribute(ctx, "asha", 300, "kitty")
	require.NoError(t, err)
	_, err = coord.AddExpense(ctx, "balan", 150, ledger.SplitEqual, nil, "lunch")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Fresh process: recover the room and keep going.
	s2, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
	m2 := NewManager(s2, WithNowFunc(testNow))

	coord2, err := m2.Room(ctx, "room-1")
	require.NoError(t, err)

	balances, err := coord2.Balances()
	require.NoError(t, err)
	assert.Equal(t, int64(250), balances.Accounts["asha"])
	assert.Equal(t, int64(100), balances.Accounts["balan"])
	assert.Equal(t, int64(-50), balances.Accounts["chitra"])

	// The clock resumes past the persisted log.
	seq, err := coord2.Contribute(ctx, "chitra", 50, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)
}

func TestManager_RoomIsCachedAfterRecovery(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	created, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	got, err := m.Room(ctx, "room-1")
	require.NoError(t, err)
	assert.Same(t, created, got)
}

func TestCoordinator_ConcurrentSubmissions(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)

	const writers = 8
	const perWriter = 10

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_, err := coord.Contribute(ctx, "asha", 10, "")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	events := coord.Events()
	require.Len(t, events, writers*perWriter)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
	}

	balances, err := coord.Balances()
	require.NoError(t, err)
	assert.Equal(t, int64(writers*perWriter*10), balances.Accounts["asha"])
	assert.Equal(t, int64(0), balances.Total())
}

func TestManager_ConcurrentRoomsIndependent(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	a, err := m.CreateRoom(ctx, "trip A", "INR", tripParticipants())
	require.NoError(t, err)
	b, err := m.CreateRoom(ctx, "trip B", "INR", tripParticipants())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, coord := range []*Coordinator{a, b} {
		wg.Add(1)
		go func(c *Coordinator) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := c.Contribute(ctx, "balan", 5, "")
				assert.NoError(t, err)
			}
		}(coord)
	}
	wg.Wait()

	for _, coord := range []*Coordinator{a, b} {
		balances, err := coord.Balances()
		require.NoError(t, err)
		assert.Equal(t, int64(100), balances.Accounts["balan"])
	}
}

func TestCoordinator_SnapshotIsolation(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	coord, err := m.CreateRoom(ctx, "Goa trip", "INR", tripParticipants())
	require.NoError(t, err)
	_, err = coord.Contribute(ctx, "asha", 100, "")
	require.NoError(t, err)

	events := coord.Events()
	require.Len(t, events, 1)

	// Later appends must not show up in an older snapshot.
	_, err = coord.Contribute(ctx, "balan", 200, "")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
