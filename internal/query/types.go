// Package query is a small typed filter language over a room's event log,
// compiled to parameterized SQL.
//
// Predicates are a sealed interface: only types in this package implement
// it, so backend compilers can type-switch exhaustively. The fragment is
// deliberately narrow - conjunctions of field comparisons, no OR, no
// nesting beyond And - which keeps every compiled query indexable on
// (room_id, seq).
package query

import "time"

// Predicate is one filter condition over events.
//
// Sealed - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Filter selects a slice of a room's event log. A zero Filter selects the
// whole log.
type Filter struct {
	// Where restricts which events match. Nil matches everything.
	Where Predicate

	// Limit caps the number of returned events. Zero means no cap.
	Limit int
}

// KindIs matches events of one kind ("contribution", "expense",
// "distribution").
type KindIs struct {
	Kind string
}

func (KindIs) predicateNode() {}

// ActorIs matches events recorded by one participant.
type ActorIs struct {
	Actor string
}

func (ActorIs) predicateNode() {}

// SeqAtLeast matches events with seq >= Seq.
type SeqAtLeast struct {
	Seq int64
}

func (SeqAtLeast) predicateNode() {}

// SeqAtMost matches events with seq <= Seq.
type SeqAtMost struct {
	Seq int64
}

func (SeqAtMost) predicateNode() {}

// Since matches events recorded at or after At.
type Since struct {
	At time.Time
}

func (Since) predicateNode() {}

// Until matches events recorded at or before At.
type Until struct {
	At time.Time
}

func (Until) predicateNode() {}

// And matches events satisfying every predicate. And of nothing is
// invalid, not vacuously true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
