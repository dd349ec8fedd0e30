package ledger

import "time"

// ParticipantID uniquely identifies a participant within a room.
type ParticipantID string

// Participant is a member of a room.
//
// Participants are never deleted, only deactivated, so historical events keep
// valid attribution. Deactivated participants are excluded from new
// equal/weighted splits and from pool allocation, but their past events still
// replay exactly as recorded.
type Participant struct {
	ID     ParticipantID `json:"id"`
	Name   string        `json:"name"`
	Weight int64         `json:"weight"` // weighted-split weight, >= 1
	Active bool          `json:"active"`
}

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	// RoomOpen accepts new events.
	RoomOpen RoomStatus = "open"
	// RoomSettled means a settlement plan was confirmed executed by all
	// parties (external confirmation). No further events are accepted.
	RoomSettled RoomStatus = "settled"
	// RoomArchived is a terminal, read-only state.
	RoomArchived RoomStatus = "archived"
)

// ValidRoomStatuses defines the allowed room states.
var ValidRoomStatuses = map[RoomStatus]bool{
	RoomOpen:     true,
	RoomSettled:  true,
	RoomArchived: true,
}

// Room is an isolated group-expense context with a fixed participant set and
// its own event log. The participant slice is in join order; split remainder
// assignment depends on that order, so it never reorders.
type Room struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Status       RoomStatus    `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	Participants []Participant `json:"participants"`
}

// Member returns the participant with the given id, if present.
func (r *Room) Member(id ParticipantID) (Participant, bool) {
	for _, p := range r.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// ActiveParticipants returns the active participants in room order.
func (r *Room) ActiveParticipants() []Participant {
	active := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

// Open reports whether the room still accepts events.
func (r *Room) Open() bool {
	return r.Status == RoomOpen
}

// EventKind distinguishes the event variants.
type EventKind string

const (
	// KindContribution adds funds from a participant into the shared pool.
	KindContribution EventKind = "contribution"
	// KindExpense records an outlay paid by one participant and shared,
	// per a split policy, across room participants.
	KindExpense EventKind = "expense"
	// KindDistribution pays funds out of the pool to participants
	// (e.g. sharing an investment return).
	KindDistribution EventKind = "distribution"
)

// SplitPolicy selects how an expense or distribution is apportioned.
type SplitPolicy string

const (
	// SplitEqual divides the amount across active participants in room
	// order, remainder units to the first participants in that order.
	SplitEqual SplitPolicy = "equal"
	// SplitWeighted apportions by participant weight (largest-remainder
	// method, ties broken by ascending participant id).
	SplitWeighted SplitPolicy = "weighted"
	// SplitExact uses a caller-supplied share map.
	SplitExact SplitPolicy = "exact"
	// SplitProRata apportions by historical contribution totals at the
	// event's position in the log. Distributions only.
	SplitProRata SplitPolicy = "prorata"
)

// Event is a single append-only ledger entry.
//
// Seq is assigned by the room coordinator at append time and defines the
// total order for balance computation. At is informational display metadata
// and never participates in ordering.
type Event struct {
	RoomID string        `json:"room_id"`
	Seq    int64         `json:"seq"`
	Kind   EventKind     `json:"kind"`
	Actor  ParticipantID `json:"actor"` // contributor, payer, or initiator
	Amount int64         `json:"amount"`

	// Policy and Shares apply to expenses and distributions.
	// Shares maps participant id -> minor units and sums exactly to Amount.
	Policy SplitPolicy             `json:"policy,omitempty"`
	Shares map[ParticipantID]int64 `json:"shares,omitempty"`

	Note string    `json:"note,omitempty"`
	At   time.Time `json:"at"`
}
