package cli

import (
	"context"

	"github.com/finsight/fairsplit/internal/room"
	"github.com/finsight/fairsplit/internal/store"
)

// openManager opens the database behind --db and wraps it in a room
// manager. The caller owns the store and must Close it.
func openManager(opts *RootOptions) (*store.Store, *room.Manager, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, room.NewManager(st), nil
}

// resolveRoom loads a room coordinator, mapping unknown ids to a command
// error.
func resolveRoom(ctx context.Context, rooms *room.Manager, roomID string) (*room.Coordinator, error) {
	coord, err := rooms.Room(ctx, roomID)
	if err != nil {
		if room.IsRoomNotFound(err) {
			return nil, WrapExitError(ExitCommandError, "room not found: "+roomID, err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to load room", err)
	}
	return coord, nil
}
