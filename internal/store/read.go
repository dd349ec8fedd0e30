package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/query"
)

// ErrRoomNotFound is returned when a room id has no row.
var ErrRoomNotFound = errors.New("room not found")

// GetRoom reads a room with its participants in join order.
func (s *Store) GetRoom(ctx context.Context, roomID string) (ledger.Room, error) {
	var room ledger.Room
	var status, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, currency, status, created_at FROM rooms WHERE id = ?
	`, roomID).Scan(&room.ID, &room.Name, &room.Currency, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Room{}, fmt.Errorf("get room %s: %w", roomID, ErrRoomNotFound)
	}
	if err != nil {
		return ledger.Room{}, fmt.Errorf("get room: %w", err)
	}
	room.Status = ledger.RoomStatus(status)
	room.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ledger.Room{}, fmt.Errorf("get room: parse created_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, weight, active FROM participants
		WHERE room_id = ?
		ORDER BY join_order ASC
	`, roomID)
	if err != nil {
		return ledger.Room{}, fmt.Errorf("get room participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p ledger.Participant
		var id string
		var active int
		if err := rows.Scan(&id, &p.Name, &p.Weight, &active); err != nil {
			return ledger.Room{}, fmt.Errorf("scan participant: %w", err)
		}
		p.ID = ledger.ParticipantID(id)
		p.Active = active != 0
		room.Participants = append(room.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return ledger.Room{}, fmt.Errorf("iterate participants: %w", err)
	}

	return room, nil
}

// ListRoomIDs returns all room ids, ordered for deterministic iteration.
func (s *Store) ListRoomIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM rooms ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room ids: %w", err)
	}
	return ids, nil
}

// ReadRoomEvents returns a room's full event log in seq order.
// Replaying the result always yields the same balances (determinism).
func (s *Store) ReadRoomEvents(ctx context.Context, roomID string) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, seq, kind, actor, amount, policy, shares, note, at
		FROM events
		WHERE room_id = ?
		ORDER BY seq ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("read room events: %w", err)
	}
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// QueryRoomEvents returns the slice of a room's log matching the filter,
// in seq order.
func (s *Store) QueryRoomEvents(ctx context.Context, roomID string, f query.Filter) ([]ledger.Event, error) {
	stmt, params, err := query.Compile(roomID, f)
	if err != nil {
		return nil, fmt.Errorf("query room events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query room events: %w", err)
	}
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queried events: %w", err)
	}

	return events, nil
}

// GetLastSeq returns the highest seq recorded for a room, 0 when empty.
// Used on recovery to resume the room's logical clock.
func (s *Store) GetLastSeq(ctx context.Context, roomID string) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events WHERE room_id = ?
	`, roomID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return max, nil
}

// CountRoomEvents returns the log length for a room.
func (s *Store) CountRoomEvents(ctx context.Context, roomID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE room_id = ?
	`, roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count room events: %w", err)
	}
	return n, nil
}

func scanEvent(rows *sql.Rows) (ledger.Event, error) {
	var ev ledger.Event
	var kind, actor, policy, sharesJSON, at string
	if err := rows.Scan(&ev.RoomID, &ev.Seq, &kind, &actor, &ev.Amount, &policy, &sharesJSON, &ev.Note, &at); err != nil {
		return ledger.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = ledger.EventKind(kind)
	ev.Actor = ledger.ParticipantID(actor)
	ev.Policy = ledger.SplitPolicy(policy)

	shares, err := unmarshalShares(sharesJSON)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("scan event seq %d: %w", ev.Seq, err)
	}
	ev.Shares = shares

	ev.At, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("scan event seq %d: parse at: %w", ev.Seq, err)
	}
	return ev, nil
}
