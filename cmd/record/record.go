// Package record records income and expenses against a payment source.
package record

import (
	"fmt"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/dateutils"
	"fjacquet/finance-ledger/internal/ledger"
	"fjacquet/finance-ledger/internal/models"

	"github.com/spf13/cobra"
)

// Cmd represents the record command
var Cmd = NewCmd()

// NewCmd builds the record command tree.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record income or an expense",
	}
	cmd.AddCommand(
		newEntryCmd(models.TypeIncome, "Record money coming into a source"),
		newEntryCmd(models.TypeExpense, "Record money leaving a source"),
		newRemoveCmd(),
		newListCmd(),
	)
	return cmd
}

func newEntryCmd(t models.TransactionType, short string) *cobra.Command {
	var (
		entry ledger.Entry
		date  string
	)
	cmd := &cobra.Command{
		Use:   string(t),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			when, err := dateutils.ParseDate(date)
			if err != nil {
				return err
			}
			entry.Type = t
			entry.Date = when
			entry.UserID = root.User(cmd)

			tx, err := c.GetLedger().Record(root.Context(cmd), entry)
			if err != nil {
				return root.Fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s of %s on %s (%s)\n",
				tx.Type, tx.Amount.StringFixed(2), tx.Source, tx.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&entry.Amount, "amount", "a", "", "Amount")
	cmd.Flags().StringVarP(&entry.Category, "category", "c", "", "Category")
	cmd.Flags().StringVarP(&entry.Source, "source", "s", "", "Source id, optionally with an @app routing suffix")
	cmd.Flags().StringVarP(&entry.Description, "description", "d", "", "Description")
	cmd.Flags().StringVar(&date, "date", "", "Date (default now)")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <transaction-id>",
		Short: "Delete a transaction and undo its balance effect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			if err := c.GetLedger().Remove(root.Context(cmd), args[0]); err != nil {
				return root.Fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var sourceID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions in recording order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			txs, err := c.GetLedger().Transactions(root.Context(cmd), ledger.Query{UserID: root.User(cmd), SourceID: sourceID})
			if err != nil {
				return root.Fail(cmd, err)
			}
			out := cmd.OutOrStdout()
			for _, tx := range txs {
				fmt.Fprintf(out, "%s  %-10s  %-8s  %12s  %-16s  %s\n",
					dateutils.FormatDate(tx.Date, ""), tx.BaseSourceID, tx.Type,
					tx.SignedAmount().StringFixed(2), tx.Category, tx.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sourceID, "source", "s", "", "Only this source")
	return cmd
}
