package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/money"
	"github.com/finsight/fairsplit/internal/room"
)

// EventOptions holds flags for the event-submitting commands.
type EventOptions struct {
	*RootOptions
	Actor  string
	Amount string
	Policy string
	Shares []string
	Note   string
}

// NewContributeCommand creates the contribute command.
func NewContributeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "contribute <room-id>",
		Short: "Record a contribution into the room's pool",
		Long: `Record a contribution: the actor pays cash into the shared pool and is
credited that amount.

Examples:
  fairsplit contribute room-1 --actor asha --amount 300.00 --note kitty`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(opts, cmd, args[0], func(ctx context.Context, coord *room.Coordinator, amount int64, _ ledger.SplitPolicy, _ map[ledger.ParticipantID]int64) (int64, error) {
				return coord.Contribute(ctx, ledger.ParticipantID(opts.Actor), amount, opts.Note)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "contributing participant id (required)")
	_ = cmd.MarkFlagRequired("actor")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount as a decimal string (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&opts.Note, "note", "", "free-form note")

	return cmd
}

// NewExpenseCommand creates the expense command.
func NewExpenseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expense <room-id>",
		Short: "Record an expense paid by one participant",
		Long: `Record an expense: the payer fronts the amount and the cost is split
across participants by the chosen policy.

Policies:
  equal    - evenly across active participants (default)
  weighted - proportional to participant weights
  exact    - per-participant shares via --share

Examples:
  fairsplit expense room-1 --payer balan --amount 150.00 --note lunch
  fairsplit expense room-1 --payer asha --amount 90.00 --policy exact \
      --share asha=30.00 --share balan=60.00`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(opts, cmd, args[0], func(ctx context.Context, coord *room.Coordinator, amount int64, policy ledger.SplitPolicy, exact map[ledger.ParticipantID]int64) (int64, error) {
				return coord.AddExpense(ctx, ledger.ParticipantID(opts.Actor), amount, policy, exact, opts.Note)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "payer", "", "paying participant id (required)")
	_ = cmd.MarkFlagRequired("payer")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount as a decimal string (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&opts.Policy, "policy", "equal", "split policy (equal|weighted|exact)")
	cmd.Flags().StringArrayVar(&opts.Shares, "share", nil, "exact share as id=amount (repeatable)")
	cmd.Flags().StringVar(&opts.Note, "note", "", "free-form note")

	return cmd
}

// NewDistributeCommand creates the distribute command.
func NewDistributeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "distribute <room-id>",
		Short: "Pay out from the pool to participants",
		Long: `Record a distribution: cash leaves the pool and lands with participants
split by the chosen policy. The prorata policy pays out in proportion to
what each participant has contributed so far.

Examples:
  fairsplit distribute room-1 --actor asha --amount 90.00 --policy prorata`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(opts, cmd, args[0], func(ctx context.Context, coord *room.Coordinator, amount int64, policy ledger.SplitPolicy, exact map[ledger.ParticipantID]int64) (int64, error) {
				return coord.Distribute(ctx, ledger.ParticipantID(opts.Actor), amount, policy, exact, opts.Note)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "recording participant id (required)")
	_ = cmd.MarkFlagRequired("actor")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount as a decimal string (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&opts.Policy, "policy", "equal", "split policy (equal|weighted|prorata|exact)")
	cmd.Flags().StringArrayVar(&opts.Shares, "share", nil, "exact share as id=amount (repeatable)")
	cmd.Flags().StringVar(&opts.Note, "note", "", "free-form note")

	return cmd
}

type submitFunc func(ctx context.Context, coord *room.Coordinator, amount int64, policy ledger.SplitPolicy, exact map[ledger.ParticipantID]int64) (int64, error)

func runEvent(opts *EventOptions, cmd *cobra.Command, roomID string, submit submitFunc) error {
	st, rooms, err := openManager(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	coord, err := resolveRoom(ctx, rooms, roomID)
	if err != nil {
		return err
	}
	currency := coord.Room().Currency

	amount, err := money.Parse(opts.Amount, currency)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid amount", err)
	}

	exact, err := parseShares(opts.Shares, currency)
	if err != nil {
		return err
	}

	seq, err := submit(ctx, coord, amount, ledger.SplitPolicy(opts.Policy), exact)
	if err != nil {
		return mapSubmitError(err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return f.Success(map[string]any{"room_id": roomID, "seq": seq})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded event %d in room %s\n", seq, roomID)
	return nil
}

// parseShares parses repeated id=amount flags into minor units.
func parseShares(raw []string, currency string) (map[ledger.ParticipantID]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	shares := make(map[ledger.ParticipantID]int64, len(raw))
	for _, r := range raw {
		id, amt, ok := strings.Cut(r, "=")
		if !ok || id == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid share %q: expected id=amount", r))
		}
		v, err := money.Parse(amt, currency)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid share %q", r), err)
		}
		shares[ledger.ParticipantID(id)] = v
	}
	return shares, nil
}

// mapSubmitError gives validation rejections their own message shape so
// scripts can tell a rejected event from an infrastructure failure.
func mapSubmitError(err error) error {
	switch {
	case ledger.IsInvalidEvent(err):
		return WrapExitError(ExitCommandError, "event rejected", err)
	case room.IsRoomClosed(err):
		return WrapExitError(ExitCommandError, "room is closed", err)
	default:
		return WrapExitError(ExitCommandError, "failed to record event", err)
	}
}
