package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/finsight/fairsplit/internal/money"
)

// BalancesResult is the JSON payload of the balances command.
type BalancesResult struct {
	RoomID   string            `json:"room_id"`
	Currency string            `json:"currency"`
	Accounts map[string]string `json:"accounts"`
	Pool     string            `json:"pool"`
}

// NewBalancesCommand creates the balances command.
func NewBalancesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balances <room-id>",
		Short: "Show derived net balances for a room",
		Long: `Replay the room's event log and print each participant's net position
plus the pool balance. Positive means the room owes the participant.`,
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

			balances, err := coord.Balances()
			if err != nil {
				return WrapExitError(ExitFailure, "replay failed", err)
			}

			currency := coord.Room().Currency
			result := BalancesResult{
				RoomID:   args[0],
				Currency: currency,
				Accounts: map[string]string{},
				Pool:     money.Format(balances.Pool, currency),
			}
			for id, v := range balances.Accounts {
				result.Accounts[string(id)] = money.Format(v, currency)
			}

			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(result)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Balances for %s (%s):\n", args[0], currency)
			for _, id := range sortedKeys(result.Accounts) {
				fmt.Fprintf(w, "  %-12s %s\n", id, result.Accounts[id])
			}
			fmt.Fprintf(w, "  %-12s %s\n", "pool", result.Pool)
			return nil
		},
	}
}

// SettlePlanResult is the JSON payload of the settle command.
type SettlePlanResult struct {
	RoomID    string            `json:"room_id"`
	Positions map[string]string `json:"positions"`
	Transfers []SettleTransfer  `json:"transfers"`
}

// SettleTransfer is one suggested payment with its fairness annotation.
type SettleTransfer struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    string  `json:"amount"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// NewSettleCommand creates the settle command.
func NewSettleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <room-id>",
		Short: "Compute the minimal settlement plan",
		Long: `Compute who should pay whom to zero every balance, with at most N-1
transfers for N participants. The plan is advisory: it is recomputed on
demand and never stored.`,
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

			view, err := coord.Settlement()
			if err != nil {
				return WrapExitError(ExitFailure, "settlement failed", err)
			}

			currency := coord.Room().Currency
			result := SettlePlanResult{
				RoomID:    args[0],
				Positions: map[string]string{},
				Transfers: make([]SettleTransfer, len(view.Transfers)),
			}
			for id, v := range view.Positions {
				result.Positions[string(id)] = money.Format(v, currency)
			}
			for i, t := range view.Transfers {
				result.Transfers[i] = SettleTransfer{
					From:      string(t.Transfer.From),
					To:        string(t.Transfer.To),
					Amount:    money.Format(t.Transfer.Amount, currency),
					Score:     t.Annotation.Score,
					Rationale: t.Annotation.Rationale,
				}
			}

			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(result)
			}

			w := cmd.OutOrStdout()
			if len(result.Transfers) == 0 {
				fmt.Fprintln(w, "All square - nothing to settle.")
				return nil
			}
			fmt.Fprintf(w, "Settlement plan for %s (%d transfer(s)):\n", args[0], len(result.Transfers))
			for _, t := range result.Transfers {
				fmt.Fprintf(w, "  %s -> %s  %s %s\n", t.From, t.To, t.Amount, currency)
				if rootOpts.Verbose {
					fmt.Fprintf(w, "    fairness %.2f: %s\n", t.Score, t.Rationale)
				}
			}
			return nil
		},
	}
}

// ExplainResult is the JSON payload of the explain command.
type ExplainResult struct {
	RoomID   string             `json:"room_id"`
	Expenses []ExplainedExpense `json:"expenses"`
}

// ExplainedExpense is one expense with its fairness annotation.
type ExplainedExpense struct {
	Seq       int64   `json:"seq"`
	Payer     string  `json:"payer"`
	Amount    string  `json:"amount"`
	Policy    string  `json:"policy"`
	Note      string  `json:"note,omitempty"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <room-id>",
		Short: "Explain the fairness of every expense",
		Long: `Score each expense in the room's log against the contributions that
preceded it: 1.00 means shares track contributions perfectly, lower
scores flag participants carrying more than they have put in.`,
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

			currency := coord.Room().Currency
			result := ExplainResult{RoomID: args[0], Expenses: []ExplainedExpense{}}
			for _, ae := range coord.AnnotatedExpenses() {
				result.Expenses = append(result.Expenses, ExplainedExpense{
					Seq:       ae.Event.Seq,
					Payer:     string(ae.Event.Actor),
					Amount:    money.Format(ae.Event.Amount, currency),
					Policy:    string(ae.Event.Policy),
					Note:      ae.Event.Note,
					Score:     ae.Annotation.Score,
					Rationale: ae.Annotation.Rationale,
				})
			}

			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(result)
			}

			w := cmd.OutOrStdout()
			if len(result.Expenses) == 0 {
				fmt.Fprintln(w, "No expenses recorded.")
				return nil
			}
			for _, e := range result.Expenses {
				note := ""
				if e.Note != "" {
					note = " (" + e.Note + ")"
				}
				fmt.Fprintf(w, "#%d %s paid %s %s, split %s%s\n", e.Seq, e.Payer, e.Amount, currency, e.Policy, note)
				fmt.Fprintf(w, "   fairness %.2f: %s\n", e.Score, e.Rationale)
			}
			return nil
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
