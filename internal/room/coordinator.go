package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finsight/fairsplit/internal/explain"
	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/query"
	"github.com/finsight/fairsplit/internal/settle"
	"github.com/finsight/fairsplit/internal/store"
)

// Coordinator owns one room's event log.
//
// Thread-safety model:
//   - Submit/Contribute/AddExpense/Distribute and lifecycle changes are
//     serialized by the room mutex (one logical writer at a time)
//   - Balances/Settlement/AnnotatedExpenses may run concurrently; each
//     takes a snapshot under the mutex and computes outside it
//
// All command operations are synchronous and single-pass: they complete or
// fail atomically, bounded by the log length.
type Coordinator struct {
	mu     sync.Mutex
	store  *store.Store
	clock  *ledger.Clock
	room   ledger.Room
	events []ledger.Event
	now    func() time.Time
	logger *slog.Logger
}

// AnnotatedExpense pairs an expense event with its fairness annotation.
type AnnotatedExpense struct {
	Event      ledger.Event       `json:"event"`
	Annotation explain.Annotation `json:"annotation"`
}

// AnnotatedTransfer pairs a settlement transfer with its fairness
// annotation.
type AnnotatedTransfer struct {
	Transfer   settle.Transfer    `json:"transfer"`
	Annotation explain.Annotation `json:"annotation"`
}

// SettlementView is the on-demand settlement result handed to callers.
// Never persisted; balances may change, so it is recomputed per request.
type SettlementView struct {
	Positions map[ledger.ParticipantID]int64 `json:"positions"`
	Transfers []AnnotatedTransfer            `json:"transfers"`
}

// newCoordinator wires a coordinator around recovered state. The initial
// replay doubles as a conservation audit of the persisted log.
func newCoordinator(s *store.Store, room ledger.Room, events []ledger.Event, clock *ledger.Clock, now func() time.Time, logger *slog.Logger) (*Coordinator, error) {
	if _, err := ledger.Replay(&room, events); err != nil {
		return nil, fmt.Errorf("recover room %s: %w", room.ID, err)
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  s,
		clock:  clock,
		room:   room,
		events: events,
		now:    now,
		logger: logger,
	}, nil
}

// ID returns the room id.
func (c *Coordinator) ID() string {
	return c.room.ID
}

// Room returns a snapshot copy of the room metadata.
func (c *Coordinator) Room() ledger.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCopyLocked()
}

func (c *Coordinator) roomCopyLocked() ledger.Room {
	room := c.room
	room.Participants = append([]ledger.Participant(nil), c.room.Participants...)
	return room
}

// snapshot returns an immutable view of the room and its log.
// The event slice is capped so later appends cannot alias into it.
func (c *Coordinator) snapshot() (ledger.Room, []ledger.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCopyLocked(), c.events[:len(c.events):len(c.events)]
}

// Submit validates and appends a fully-built event, assigning its sequence
// number. Returns the assigned seq.
//
// The append is atomic: on a storage failure nothing is recorded and the
// in-memory log is unchanged (the skipped seq leaves a harmless gap).
func (c *Coordinator) Submit(ctx context.Context, ev ledger.Event) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(ctx, ev)
}

func (c *Coordinator) appendLocked(ctx context.Context, ev ledger.Event) (int64, error) {
	if !c.room.Open() {
		return 0, errRoomClosed(c.room.ID, c.room.Status)
	}
	ev.RoomID = c.room.ID
	if ev.At.IsZero() {
		ev.At = c.now().UTC()
	}
	if err := ledger.Validate(ev, &c.room); err != nil {
		return 0, err
	}

	ev.Seq = c.clock.Next()
	if _, err := c.store.AppendEvent(ctx, ev); err != nil {
		return 0, fmt.Errorf("submit event: %w", err)
	}
	c.events = append(c.events, ev)

	c.logger.Debug("event appended",
		"room", c.room.ID,
		"seq", ev.Seq,
		"kind", ev.Kind,
		"actor", ev.Actor,
		"amount", ev.Amount)
	return ev.Seq, nil
}

// Contribute appends a contribution from actor into the pool.
func (c *Coordinator) Contribute(ctx context.Context, actor ledger.ParticipantID, amount int64, note string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.room.Open() {
		return 0, errRoomClosed(c.room.ID, c.room.Status)
	}
	ev, err := ledger.NewContribution(&c.room, actor, amount, note, c.now().UTC())
	if err != nil {
		return 0, err
	}
	return c.appendLocked(ctx, ev)
}

// AddExpense appends an expense. For the equal and weighted policies the
// share map is computed here, under the room lock, against the current
// active participant set; exact shares come from the caller.
func (c *Coordinator) AddExpense(ctx context.Context, payer ledger.ParticipantID, amount int64, policy ledger.SplitPolicy, exact map[ledger.ParticipantID]int64, note string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.room.Open() {
		return 0, errRoomClosed(c.room.ID, c.room.Status)
	}
	ev, err := ledger.NewExpense(&c.room, payer, amount, policy, exact, note, c.now().UTC())
	if err != nil {
		return 0, err
	}
	return c.appendLocked(ctx, ev)
}

// Distribute appends a payout from the pool. Pro-rata shares are computed
// against the contribution totals of the log as it stands, under the lock,
// so concurrent submissions cannot skew the apportionment.
func (c *Coordinator) Distribute(ctx context.Context, actor ledger.ParticipantID, amount int64, policy ledger.SplitPolicy, exact map[ledger.ParticipantID]int64, note string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.room.Open() {
		return 0, errRoomClosed(c.room.ID, c.room.Status)
	}
	contributed := ledger.ContributionTotals(c.events)
	ev, err := ledger.NewDistribution(&c.room, actor, amount, policy, exact, contributed, note, c.now().UTC())
	if err != nil {
		return 0, err
	}
	return c.appendLocked(ctx, ev)
}

// Balances replays the current snapshot into net positions.
func (c *Coordinator) Balances() (ledger.Balances, error) {
	room, events := c.snapshot()
	return ledger.Replay(&room, events)
}

// Settlement computes the minimal transfer plan for the current snapshot,
// annotated with fairness rationales.
func (c *Coordinator) Settlement() (SettlementView, error) {
	room, events := c.snapshot()
	balances, err := ledger.Replay(&room, events)
	if err != nil {
		return SettlementView{}, err
	}

	positions := settle.Positions(balances, room.ActiveParticipants())
	plan := settle.Solve(positions)

	view := SettlementView{
		Positions: positions,
		Transfers: make([]AnnotatedTransfer, len(plan.Transfers)),
	}
	for i, t := range plan.Transfers {
		view.Transfers[i] = AnnotatedTransfer{
			Transfer:   t,
			Annotation: explain.Transfer(t, plan),
		}
	}
	return view, nil
}

// AnnotatedExpenses returns every expense in the log with its fairness
// annotation, each scored against the events before it.
func (c *Coordinator) AnnotatedExpenses() []AnnotatedExpense {
	room, events := c.snapshot()

	out := []AnnotatedExpense{}
	for i, ev := range events {
		if ev.Kind != ledger.KindExpense {
			continue
		}
		out = append(out, AnnotatedExpense{
			Event:      ev,
			Annotation: explain.Expense(ev, events[:i], &room),
		})
	}
	return out
}

// Events returns the log snapshot, for replay verification and display.
func (c *Coordinator) Events() []ledger.Event {
	_, events := c.snapshot()
	return events
}

// QueryEvents returns the slice of the persisted log matching the filter.
// Reads go to the store, not the in-memory snapshot, so the result is the
// same view a recovery replay would see.
func (c *Coordinator) QueryEvents(ctx context.Context, f query.Filter) ([]ledger.Event, error) {
	return c.store.QueryRoomEvents(ctx, c.ID(), f)
}

// AddParticipant joins a new participant to the room.
func (c *Coordinator) AddParticipant(ctx context.Context, p ledger.Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.room.Open() {
		return errRoomClosed(c.room.ID, c.room.Status)
	}
	if _, exists := c.room.Member(p.ID); exists {
		return &StateError{Code: ErrCodeDuplicateParticipant, RoomID: c.room.ID}
	}
	if p.Weight <= 0 {
		p.Weight = 1
	}
	p.Active = true

	if err := c.store.AddParticipant(ctx, c.room.ID, p); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	c.room.Participants = append(c.room.Participants, p)
	c.logger.Info("participant joined", "room", c.room.ID, "participant", p.ID)
	return nil
}

// DeactivateParticipant soft-removes a participant. Their history stays;
// they just stop accruing new equal/weighted shares and pool allocation.
func (c *Coordinator) DeactivateParticipant(ctx context.Context, id ledger.ParticipantID) error {
	return c.setParticipantActive(ctx, id, false)
}

// ReactivateParticipant restores a soft-removed participant.
func (c *Coordinator) ReactivateParticipant(ctx context.Context, id ledger.ParticipantID) error {
	return c.setParticipantActive(ctx, id, true)
}

func (c *Coordinator) setParticipantActive(ctx context.Context, id ledger.ParticipantID, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, p := range c.room.Participants {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &ledger.InvalidEventError{
			Code:        ledger.ErrCodeUnknownParticipant,
			Message:     "participant is not a member of the room",
			Participant: id,
		}
	}

	if err := c.store.SetParticipantActive(ctx, c.room.ID, id, active); err != nil {
		return fmt.Errorf("set participant active: %w", err)
	}
	c.room.Participants[idx].Active = active
	return nil
}

// MarkSettled records external confirmation that a settlement plan was
// executed by all parties. The ledger itself never enforces settlement,
// only computes it; this transition just stops further events.
func (c *Coordinator) MarkSettled(ctx context.Context) error {
	return c.transition(ctx, ledger.RoomSettled, func(s ledger.RoomStatus) bool {
		return s == ledger.RoomOpen
	})
}

// Archive moves the room to its terminal read-only state.
func (c *Coordinator) Archive(ctx context.Context) error {
	return c.transition(ctx, ledger.RoomArchived, func(s ledger.RoomStatus) bool {
		return s == ledger.RoomOpen || s == ledger.RoomSettled
	})
}

func (c *Coordinator) transition(ctx context.Context, to ledger.RoomStatus, allowed func(ledger.RoomStatus) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !allowed(c.room.Status) {
		return errRoomClosed(c.room.ID, c.room.Status)
	}
	if err := c.store.UpdateRoomStatus(ctx, c.room.ID, to); err != nil {
		return fmt.Errorf("transition room: %w", err)
	}
	c.room.Status = to
	c.logger.Info("room status changed", "room", c.room.ID, "status", to)
	return nil
}
