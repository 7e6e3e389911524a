// Package dues tracks money lent and borrowed from the command line.
package dues

import (
	"fmt"
	"io"
	"time"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/dateutils"
	"fjacquet/finance-ledger/internal/dues"
	"fjacquet/finance-ledger/internal/models"

	"github.com/spf13/cobra"
)

// Cmd represents the dues command
var Cmd = NewCmd()

// NewCmd builds the dues command tree.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dues",
		Short: "Track money lent and borrowed",
	}
	cmd.AddCommand(newOpenCmd(), newPayCmd(), newSettleCmd(), newExcuseCmd(), newRemindCmd(), newListCmd(),
		newPaymentsCmd(), newUnpayCmd())
	return cmd
}

func tracker() (*dues.Tracker, error) {
	c, err := root.Container()
	if err != nil {
		return nil, err
	}
	return c.GetDuesTracker(), nil
}

func printDue(w io.Writer, due models.DueTransaction) {
	fmt.Fprintf(w, "%s  %-13s  %-10s  %10s  remaining %s\n",
		due.ID, due.Status(), due.Description,
		due.Amount.StringFixed(2), due.RemainingBalance.StringFixed(2))
}

func newOpenCmd() *cobra.Command {
	var (
		req     dues.OpenRequest
		kind    string
		repayBy string
		date    string
	)
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Record money lent to or borrowed from someone",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			if req.RepaymentDate, err = dateutils.ParseDate(repayBy); err != nil {
				return err
			}
			if req.Date, err = dateutils.ParseDate(date); err != nil {
				return err
			}
			req.Kind = dues.Kind(kind)
			req.UserID = root.User(cmd)

			due, err := t.Open(root.Context(cmd), req)
			if err != nil {
				return root.Fail(cmd, err)
			}
			printDue(cmd.OutOrStdout(), due)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(dues.Lent), "lent or borrowed")
	cmd.Flags().StringVarP(&req.Amount, "amount", "a", "", "Amount")
	cmd.Flags().StringVarP(&req.SourceID, "source", "s", "", "Source the money left or entered")
	cmd.Flags().StringVarP(&req.Category, "category", "c", "Dues", "Category")
	cmd.Flags().StringVarP(&req.Counterparty, "with", "w", "", "Who the money was lent to or borrowed from")
	cmd.Flags().StringVar(&repayBy, "repay-by", "", "Expected repayment date")
	cmd.Flags().StringVar(&date, "date", "", "Date (default now)")
	return cmd
}

func newPayCmd() *cobra.Command {
	var (
		amount string
		into   string
	)
	cmd := &cobra.Command{
		Use:   "pay <due-id>",
		Short: "Apply a partial repayment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			value, err := models.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q", amount)
			}
			due, err := t.ApplyPartialPayment(root.Context(cmd), args[0], value, into)
			if err != nil {
				return root.Fail(cmd, err)
			}
			printDue(cmd.OutOrStdout(), due)
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount repaid")
	cmd.Flags().StringVar(&into, "into", "", "Source the repayment goes through (default the due's source)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newSettleCmd() *cobra.Command {
	var into string
	cmd := &cobra.Command{
		Use:   "settle <due-id>",
		Short: "Repay whatever remains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			due, err := t.SettleFully(root.Context(cmd), args[0], into)
			if err != nil {
				return root.Fail(cmd, err)
			}
			printDue(cmd.OutOrStdout(), due)
			return nil
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "Source the repayment goes through (default the due's source)")
	return cmd
}

func newExcuseCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "excuse <due-id>",
		Short: "Forgive the rest of a due",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			due, err := t.Excuse(root.Context(cmd), args[0], reason)
			if err != nil {
				return root.Fail(cmd, err)
			}
			printDue(cmd.OutOrStdout(), due)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the due is excused")
	return cmd
}

func newRemindCmd() *cobra.Command {
	var next string
	cmd := &cobra.Command{
		Use:   "remind <due-id>",
		Short: "Note that a reminder was sent, or schedule the next one with --next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			ctx := root.Context(cmd)
			var due models.DueTransaction
			if next != "" {
				at, perr := dateutils.ParseDate(next)
				if perr != nil {
					return perr
				}
				due, err = t.ScheduleReminder(ctx, args[0], at)
			} else {
				due, err = t.Remind(ctx, args[0])
			}
			if err != nil {
				return root.Fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Next reminder %s, %d sent\n",
				dateutils.FormatDate(due.NextReminderDate, ""), due.ReminderCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&next, "next", "", "Schedule the next reminder without marking one as sent")
	return cmd
}

func newListCmd() *cobra.Command {
	var openOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dues",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			list, err := t.List(root.Context(cmd), root.User(cmd), openOnly)
			if err != nil {
				return root.Fail(cmd, err)
			}
			out := cmd.OutOrStdout()
			now := time.Now()
			for _, due := range list {
				printDue(out, due)
				if !due.Status().Terminal() && dateutils.IsOverdue(due.RepaymentDate, now) {
					fmt.Fprintf(out, "  overdue since %s\n", dateutils.FormatDate(due.RepaymentDate, ""))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&openOnly, "open", false, "Only dues that are not settled or excused")
	return cmd
}

func newPaymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payments <due-id>",
		Short: "List the repayments recorded against a due",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			payments, err := t.Payments(root.Context(cmd), args[0])
			if err != nil {
				return root.Fail(cmd, err)
			}
			w := cmd.OutOrStdout()
			for _, p := range payments {
				fmt.Fprintf(w, "%s  %s  %10s  %s\n",
					p.ID, dateutils.FormatDate(p.Date, dateutils.DateLayoutISO), p.Amount.StringFixed(2), p.BaseSourceID)
			}
			return nil
		},
	}
}

func newUnpayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpay <due-id> <payment-id>",
		Short: "Take back a repayment recorded against a due",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker()
			if err != nil {
				return err
			}
			due, err := t.RemovePayment(root.Context(cmd), args[0], args[1])
			if err != nil {
				return root.Fail(cmd, err)
			}
			printDue(cmd.OutOrStdout(), due)
			return nil
		},
	}
}
