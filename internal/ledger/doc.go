// Package ledger provides the core FairSplit data model and balance engine.
//
// This package contains the event model (contributions, expenses,
// distributions), split-policy share computation, event validation, and the
// pure replay function that derives balances from an event sequence.
//
// Key design constraints:
//   - NO float types in any balance math - amounts are int64 minor currency
//     units throughout, and share maps must sum to their event amount with
//     exact integer equality
//   - Events are append-only and immutable; corrections are compensating
//     entries, never edits or signed amounts
//   - Ordering comes from the logical seq number only, never wall-clock
//     timestamps (which may arrive out of order over the network)
//   - Replay is deterministic: the same event sequence always produces the
//     same balances, which is what makes concurrent recomputation and
//     crash recovery safe
//
// ledger imports nothing internal; every other internal package builds on it.
package ledger
