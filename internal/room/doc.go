// Package room implements the FairSplit room coordinator.
//
// A Coordinator owns exactly one room's event log and is that room's single
// point of mutation: submissions take the room mutex, so sequence-number
// assignment, the durable append, and the in-memory append are one atomic
// step. Reads take an immutable snapshot of the log and compute outside the
// lock, so a reader never observes a partially-applied event and readers
// never block each other.
//
// The Manager serves many rooms in parallel. Each room's coordinator is
// independent - no cross-room shared mutable state - so submissions to
// different rooms never contend.
package room
