package room

import (
	"errors"
	"fmt"

	"github.com/finsight/fairsplit/internal/ledger"
)

// StateError rejects an operation because of the room's lifecycle state.
type StateError struct {
	// Code identifies the rejection category.
	Code StateErrorCode

	// RoomID identifies the affected room.
	RoomID string

	// Status is the room's current status (for ROOM_CLOSED).
	Status ledger.RoomStatus
}

// StateErrorCode categorizes room state rejections.
type StateErrorCode string

const (
	// ErrCodeRoomNotFound indicates an unknown room id.
	ErrCodeRoomNotFound StateErrorCode = "ROOM_NOT_FOUND"

	// ErrCodeRoomClosed indicates a settled or archived room that accepts
	// no further events. Retrying is pointless without a new room.
	ErrCodeRoomClosed StateErrorCode = "ROOM_CLOSED"

	// ErrCodeDuplicateParticipant indicates a join with an id already in
	// the room.
	ErrCodeDuplicateParticipant StateErrorCode = "DUPLICATE_PARTICIPANT"
)

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Code == ErrCodeRoomClosed {
		return fmt.Sprintf("%s: room %s is %s", e.Code, e.RoomID, e.Status)
	}
	return fmt.Sprintf("%s: room %s", e.Code, e.RoomID)
}

// IsRoomNotFound returns true if the error is an unknown-room rejection.
// Uses errors.As to handle wrapped errors.
func IsRoomNotFound(err error) bool {
	var se *StateError
	if errors.As(err, &se) {
		return se.Code == ErrCodeRoomNotFound
	}
	return false
}

// IsRoomClosed returns true if the error is a closed-room rejection.
func IsRoomClosed(err error) bool {
	var se *StateError
	if errors.As(err, &se) {
		return se.Code == ErrCodeRoomClosed
	}
	return false
}

func errRoomNotFound(roomID string) *StateError {
	return &StateError{Code: ErrCodeRoomNotFound, RoomID: roomID}
}

func errRoomClosed(roomID string, status ledger.RoomStatus) *StateError {
	return &StateError{Code: ErrCodeRoomClosed, RoomID: roomID, Status: status}
}
