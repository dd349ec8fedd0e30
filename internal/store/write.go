package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/finsight/fairsplit/internal/ledger"
)

// CreateRoom inserts a room and its initial participants in one transaction.
// Fails if the room id already exists.
func (s *Store) CreateRoom(ctx context.Context, room ledger.Room) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("create room: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rooms (id, name, currency, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		room.ID,
		room.Name,
		room.Currency,
		string(room.Status),
		room.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create room: insert room: %w", err)
	}

	for i, p := range room.Participants {
		if err := insertParticipant(ctx, tx, room.ID, p, i); err != nil {
			return fmt.Errorf("create room: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create room: commit: %w", err)
	}
	return nil
}

// AddParticipant appends a participant to a room's join order.
// Duplicate participant ids are rejected by the primary key.
func (s *Store) AddParticipant(ctx context.Context, roomID string, p ledger.Participant) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("add participant: begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(join_order), -1) + 1 FROM participants WHERE room_id = ?
	`, roomID).Scan(&next)
	if err != nil {
		return fmt.Errorf("add participant: next join order: %w", err)
	}

	if err := insertParticipant(ctx, tx, roomID, p, next); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add participant: commit: %w", err)
	}
	return nil
}

func insertParticipant(ctx context.Context, tx *sql.Tx, roomID string, p ledger.Participant, joinOrder int) error {
	weight := p.Weight
	if weight <= 0 {
		weight = 1
	}
	active := 0
	if p.Active {
		active = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO participants (room_id, id, name, weight, active, join_order)
		VALUES (?, ?, ?, ?, ?, ?)
	`, roomID, string(p.ID), p.Name, weight, active, joinOrder)
	if err != nil {
		return fmt.Errorf("insert participant %s: %w", p.ID, err)
	}
	return nil
}

// SetParticipantActive soft-removes (or restores) a participant.
// Participants are never deleted; historical attribution must survive.
func (s *Store) SetParticipantActive(ctx context.Context, roomID string, id ledger.ParticipantID, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE participants SET active = ? WHERE room_id = ? AND id = ?
	`, flag, roomID, string(id))
	if err != nil {
		return fmt.Errorf("set participant active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set participant active: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set participant active: participant %s not found in room %s", id, roomID)
	}
	return nil
}

// UpdateRoomStatus transitions a room's lifecycle state.
func (s *Store) UpdateRoomStatus(ctx context.Context, roomID string, status ledger.RoomStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET status = ? WHERE id = ?
	`, string(status), roomID)
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room status: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update room status: room %s not found", roomID)
	}
	return nil
}

// AppendEvent durably records an event under (room_id, seq).
//
// Uses ON CONFLICT DO NOTHING for idempotency: retrying a failed append
// cannot double-record. Returns inserted=false when the (room_id, seq) slot
// was already taken, which a correct single-writer coordinator never causes
// except on retry of its own write.
//
// The append is atomic - either the row is durably recorded or no state
// changes.
func (s *Store) AppendEvent(ctx context.Context, ev ledger.Event) (inserted bool, err error) {
	sharesJSON, err := marshalShares(ev.Shares)
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (room_id, seq, kind, actor, amount, policy, shares, note, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id, seq) DO NOTHING
	`,
		ev.RoomID,
		ev.Seq,
		string(ev.Kind),
		string(ev.Actor),
		ev.Amount,
		string(ev.Policy),
		sharesJSON,
		ev.Note,
		ev.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append event: rows affected: %w", err)
	}
	return n > 0, nil
}
