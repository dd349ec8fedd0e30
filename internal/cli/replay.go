package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	RoomID string // optional - specific room only
}

// ReplayRoomResult holds the replay result for a single room.
type ReplayRoomResult struct {
	RoomID        string `json:"room_id"`
	Events        int    `json:"events"`
	Deterministic bool   `json:"deterministic"`
	Conserved     bool   `json:"conserved"`

	// Digest is the content hash of the log, for comparing two copies of
	// a room without shipping the events themselves.
	Digest string `json:"digest,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Rooms      []ReplayRoomResult `json:"rooms"`
	TotalRooms int                `json:"total_rooms"`
	AllOK      bool               `json:"all_ok"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay event logs and verify determinism",
		Long: `Re-read every room's event log in seq order, replay each log twice, and
verify that both passes derive identical balances and that conservation
(sum of accounts plus pool equals zero) holds after every event.

Exit codes:
  0 - All rooms replay deterministically and conserve
  1 - Verification failed
  2 - Command error (database not found, etc.)

Examples:
  fairsplit replay --db ./fairsplit.db
  fairsplit replay --db ./fairsplit.db --room room-1
  fairsplit replay --db ./fairsplit.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RoomID, "room", "", "replay a specific room only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var roomIDs []string
	if opts.RoomID != "" {
		roomIDs = []string{opts.RoomID}
	} else {
		roomIDs, err = st.ListRoomIDs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list rooms", err)
		}
	}

	result := ReplayResult{
		Rooms:      make([]ReplayRoomResult, 0, len(roomIDs)),
		TotalRooms: len(roomIDs),
		AllOK:      true,
	}

	for _, id := range roomIDs {
		roomResult, err := replayAndVerifyRoom(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay room %s", id), err)
		}
		result.Rooms = append(result.Rooms, roomResult)
		if !roomResult.Deterministic || !roomResult.Conserved {
			result.AllOK = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyRoom replays one room's log twice and cross-checks the
// derived balances.
func replayAndVerifyRoom(ctx context.Context, st *store.Store, roomID string) (ReplayRoomResult, error) {
	rm, err := st.GetRoom(ctx, roomID)
	if err != nil {
		return ReplayRoomResult{}, err
	}
	events, err := st.ReadRoomEvents(ctx, roomID)
	if err != nil {
		return ReplayRoomResult{}, err
	}

	result := ReplayRoomResult{RoomID: roomID, Events: len(events), Conserved: true}

	result.Digest, err = ledger.LogDigest(events)
	if err != nil {
		return ReplayRoomResult{}, fmt.Errorf("digest log: %w", err)
	}

	first, err := ledger.Replay(&rm, events)
	if err != nil {
		if ledger.IsConservationError(err) {
			result.Conserved = false
			result.Deterministic = true
			return result, nil
		}
		return ReplayRoomResult{}, fmt.Errorf("first replay failed: %w", err)
	}

	second, err := ledger.Replay(&rm, events)
	if err != nil {
		return ReplayRoomResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	result.Deterministic = reflect.DeepEqual(first, second)
	return result, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}

	if result.AllOK {
		if err := f.Success(result); err != nil {
			return err
		}
		return nil
	}

	if err := f.Error(ErrCodeDeterminism, "replay verification failed", result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "replay verification failed")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalRooms == 0 {
		fmt.Fprintln(w, "No rooms found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d room(s)\n\n", result.TotalRooms)
	for _, rm := range result.Rooms {
		status := "ok"
		if !rm.Deterministic {
			status = "NON-DETERMINISTIC"
		} else if !rm.Conserved {
			status = "CONSERVATION BREACH"
		}
		fmt.Fprintf(w, "  %s  %d event(s)  %s\n", rm.RoomID, rm.Events, status)
		if verbose && rm.Digest != "" {
			fmt.Fprintf(w, "    digest %s\n", rm.Digest)
		}
	}
	fmt.Fprintln(w)

	if result.AllOK {
		fmt.Fprintln(w, "All rooms verified deterministic and conserved")
		return nil
	}
	fmt.Fprintln(w, "Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
