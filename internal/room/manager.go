package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/store"
)

// Manager hosts the coordinators of all rooms backed by one store.
//
// Rooms are independent: submissions to different rooms never contend.
// Coordinators are materialized lazily on first access and kept for the
// manager's lifetime; recovery replays the persisted log once, which also
// re-verifies conservation.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Coordinator
	store  *store.Store
	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIDGenerator overrides the room id generator, used by tests.
func WithIDGenerator(g IDGenerator) ManagerOption {
	return func(m *Manager) { m.ids = g }
}

// WithNowFunc overrides the event timestamp source, used by tests.
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a manager over an opened store.
func NewManager(s *store.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		rooms:  make(map[string]*Coordinator),
		store:  s,
		ids:    UUIDv7Generator{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRoom creates and persists a new open room with the given
// participants, returning its coordinator.
func (m *Manager) CreateRoom(ctx context.Context, name, currency string, participants []ledger.Participant) (*Coordinator, error) {
	for i := range participants {
		if participants[i].Weight <= 0 {
			participants[i].Weight = 1
		}
		participants[i].Active = true
	}

	room := ledger.Room{
		ID:           m.ids.Generate(),
		Name:         name,
		Currency:     currency,
		Status:       ledger.RoomOpen,
		CreatedAt:    m.now().UTC(),
		Participants: participants,
	}

	if err := m.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	coord, err := newCoordinator(m.store, room, nil, ledger.NewClock(), m.now, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.rooms[room.ID] = coord
	m.mu.Unlock()

	m.logger.Info("room created", "room", room.ID, "name", name, "participants", len(participants))
	return coord, nil
}

// Room returns the coordinator for an existing room, recovering it from
// the store on first access.
func (m *Manager) Room(ctx context.Context, roomID string) (*Coordinator, error) {
	m.mu.RLock()
	coord, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if ok {
		return coord, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check: another goroutine may have recovered it while we waited.
	if coord, ok := m.rooms[roomID]; ok {
		return coord, nil
	}

	coord, err := m.recover(ctx, roomID)
	if err != nil {
		return nil, err
	}
	m.rooms[roomID] = coord
	return coord, nil
}

func (m *Manager) recover(ctx context.Context, roomID string) (*Coordinator, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return nil, errRoomNotFound(roomID)
		}
		return nil, fmt.Errorf("recover room %s: %w", roomID, err)
	}

	events, err := m.store.ReadRoomEvents(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("recover room %s: %w", roomID, err)
	}

	lastSeq, err := m.store.GetLastSeq(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("recover room %s: %w", roomID, err)
	}

	coord, err := newCoordinator(m.store, room, events, ledger.NewClockAt(lastSeq), m.now, m.logger)
	if err != nil {
		return nil, err
	}

	m.logger.Info("room recovered", "room", roomID, "events", len(events), "last_seq", lastSeq)
	return coord, nil
}

// ListRoomIDs returns every persisted room id, recovered or not.
func (m *Manager) ListRoomIDs(ctx context.Context) ([]string, error) {
	return m.store.ListRoomIDs(ctx)
}
