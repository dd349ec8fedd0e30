package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/room"
)

// RoomOptions holds flags for the room command family.
type RoomOptions struct {
	*RootOptions
	Definition   string
	Name         string
	Currency     string
	Participants []string
	Weight       int64
	MemberName   string
}

// RoomView is the JSON payload for room display.
type RoomView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Participants []ParticipantView `json:"participants"`
}

// ParticipantView is one participant in a RoomView.
type ParticipantView struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Weight int64  `json:"weight"`
	Active bool   `json:"active"`
}

// NewRoomCommand creates the room command and its subcommands.
func NewRoomCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Create and manage expense rooms",
	}

	cmd.AddCommand(newRoomCreateCommand(rootOpts))
	cmd.AddCommand(newRoomListCommand(rootOpts))
	cmd.AddCommand(newRoomShowCommand(rootOpts))
	cmd.AddCommand(newRoomJoinCommand(rootOpts))
	cmd.AddCommand(newRoomLeaveCommand(rootOpts))
	cmd.AddCommand(newRoomCloseCommand(rootOpts))
	cmd.AddCommand(newRoomArchiveCommand(rootOpts))

	return cmd
}

func newRoomCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RoomOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new room",
		Long: `Create a new room from flags or a CUE definition file.

Participants are given as id:name:weight triples; name and weight are
optional ("asha", "asha:Asha", "asha:Asha:2" all work).

Examples:
  fairsplit room create --name "Goa trip" --participant asha:Asha --participant balan:Balan
  fairsplit room create --from trip.cue`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoomCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Definition, "from", "", "CUE room definition file")
	cmd.Flags().StringVar(&opts.Name, "name", "", "room name")
	cmd.Flags().StringVar(&opts.Currency, "currency", "INR", "room currency (ISO 4217)")
	cmd.Flags().StringArrayVar(&opts.Participants, "participant", nil, "participant as id:name:weight (repeatable)")

	return cmd
}

func runRoomCreate(opts *RoomOptions, cmd *cobra.Command) error {
	var def *RoomDefinition
	if opts.Definition != "" {
		loaded, err := LoadRoomDefinition(opts.Definition)
		if err != nil {
			return err
		}
		def = loaded
		if def.Currency == "" {
			def.Currency = opts.Currency
		}
	} else {
		if opts.Name == "" || len(opts.Participants) == 0 {
			return NewExitError(ExitCommandError, "either --from or --name with --participant flags are required")
		}
		participants, err := parseParticipants(opts.Participants)
		if err != nil {
			return err
		}
		def = &RoomDefinition{Name: opts.Name, Currency: opts.Currency, Participants: participants}
	}

	st, rooms, err := openManager(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	coord, err := rooms.CreateRoom(context.Background(), def.Name, def.Currency, def.Participants)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create room", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return f.Success(roomView(coord.Room()))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created room %s (%s, %s) with %d participant(s)\n",
		coord.ID(), def.Name, def.Currency, len(def.Participants))
	return nil
}

// parseParticipants parses id:name:weight triples.
func parseParticipants(raw []string) ([]ledger.Participant, error) {
	out := make([]ledger.Participant, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 3)
		p := ledger.Participant{ID: ledger.ParticipantID(parts[0]), Weight: 1}
		if p.ID == "" {
			return nil, NewExitError(ExitCommandError, "participant id must not be empty")
		}
		if len(parts) > 1 {
			p.Name = parts[1]
		}
		if len(parts) > 2 {
			w, err := strconv.ParseInt(parts[2], 10, 64)
			if err != nil || w <= 0 {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid weight in %q: must be a positive integer", r))
			}
			p.Weight = w
		}
		out = append(out, p)
	}
	return out, nil
}

func newRoomListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all room ids",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, rooms, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			ids, err := rooms.ListRoomIDs(context.Background())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list rooms", err)
			}

			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(map[string][]string{"rooms": ids})
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rooms found.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newRoomShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <room-id>",
		Short:         "Show room details",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, rooms, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			coord, err := resolveRoom(context.Background(), rooms, args[0])
			if err != nil {
				return err
			}

			view := roomView(coord.Room())
			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(view)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Room: %s (%s)\n", view.Name, view.ID)
			fmt.Fprintf(w, "Currency: %s  Status: %s\n", view.Currency, view.Status)
			fmt.Fprintln(w, "Participants:")
			for _, p := range view.Participants {
				marker := ""
				if !p.Active {
					marker = " (left)"
				}
				fmt.Fprintf(w, "  %s  %s  weight=%d%s\n", p.ID, p.Name, p.Weight, marker)
			}
			return nil
		},
	}
}

func newRoomJoinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RoomOptions{RootOptions: rootOpts, Weight: 1}

	cmd := &cobra.Command{
		Use:           "join <room-id> <participant-id>",
		Short:         "Add a participant to a room",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, rooms, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			coord, err := resolveRoom(context.Background(), rooms, args[0])
			if err != nil {
				return err
			}

			p := ledger.Participant{
				ID:     ledger.ParticipantID(args[1]),
				Name:   opts.MemberName,
				Weight: opts.Weight,
			}
			if err := coord.AddParticipant(context.Background(), p); err != nil {
				return WrapExitError(ExitCommandError, "failed to join", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s joined room %s\n", args[1], args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.MemberName, "name", "", "display name")
	cmd.Flags().Int64Var(&opts.Weight, "weight", 1, "split weight")

	return cmd
}

func newRoomLeaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "leave <room-id> <participant-id>",
		Short:         "Soft-remove a participant (history is kept)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, rooms, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			coord, err := resolveRoom(context.Background(), rooms, args[0])
			if err != nil {
				return err
			}
			if err := coord.DeactivateParticipant(context.Background(), ledger.ParticipantID(args[1])); err != nil {
				return WrapExitError(ExitCommandError, "failed to leave", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s left room %s\n", args[1], args[0])
			return nil
		},
	}
}

func newRoomCloseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "close <room-id>",
		Short:         "Mark a room settled (stops new events)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionRoom(rootOpts, cmd, args[0], "settled", (*room.Coordinator).MarkSettled)
		},
	}
}

func newRoomArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "archive <room-id>",
		Short:         "Archive a room (terminal, read-only)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionRoom(rootOpts, cmd, args[0], "archived", (*room.Coordinator).Archive)
		},
	}
}

func transitionRoom(rootOpts *RootOptions, cmd *cobra.Command, roomID, label string, apply func(*room.Coordinator, context.Context) error) error {
	st, rooms, err := openManager(rootOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	coord, err := resolveRoom(context.Background(), rooms, roomID)
	if err != nil {
		return err
	}
	if err := apply(coord, context.Background()); err != nil {
		return WrapExitError(ExitCommandError, "transition failed", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Room %s is now %s\n", roomID, label)
	return nil
}

func roomView(rm ledger.Room) RoomView {
	view := RoomView{
		ID:       rm.ID,
		Name:     rm.Name,
		Currency: rm.Currency,
		Status:   string(rm.Status),
	}
	for _, p := range rm.Participants {
		view.Participants = append(view.Participants, ParticipantView{
			ID:     string(p.ID),
			Name:   p.Name,
			Weight: p.Weight,
			Active: p.Active,
		})
	}
	return view
}
