// Package source manages payment sources from the command line.
package source

import (
	"fmt"
	"strings"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Cmd represents the source command
var Cmd = NewCmd()

// NewCmd builds the source command tree.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage payment sources",
	}
	cmd.AddCommand(newAddCmd(), newListCmd(), newUPICmd())
	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		src        models.PaymentSource
		sourceType string
		opening    string
		upiApps    []string
		limit      string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a payment source with an opening balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			amount, err := models.ParseAmount(opening)
			if err != nil {
				return fmt.Errorf("invalid opening balance %q", opening)
			}
			src.Type = models.SourceType(strings.ToLower(sourceType))
			src.UserID = root.User(cmd)
			if limit != "" {
				creditLimit, err := decimal.NewFromString(limit)
				if err != nil {
					return fmt.Errorf("invalid credit limit %q", limit)
				}
				src.Credit.CreditLimit = creditLimit
			}
			for _, app := range upiApps {
				src.AddUPIApp(app)
			}

			created, err := c.GetLedger().AddSource(root.Context(cmd), src, amount)
			if err != nil {
				return root.Fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) with balance %s\n", created.Label(), created.ID, created.Amount.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVarP(&src.Name, "name", "n", "", "Source name")
	cmd.Flags().StringVar(&src.DisplayName, "display-name", "", "Name shown instead of the source name")
	cmd.Flags().StringVarP(&sourceType, "type", "t", string(models.SourceBank), "Source type: bank, credit, cash or wallet")
	cmd.Flags().StringVarP(&opening, "opening", "o", "0", "Opening balance")
	cmd.Flags().StringSliceVar(&upiApps, "upi", nil, "UPI apps linked to the source")
	cmd.Flags().StringVar(&limit, "credit-limit", "", "Credit limit (credit sources)")
	cmd.Flags().IntVar(&src.Credit.StatementDay, "statement-day", 0, "Statement day of month (credit sources)")
	cmd.Flags().IntVar(&src.Credit.DueDay, "due-day", 0, "Payment due day of month (credit sources)")
	cmd.Flags().StringVar(&src.Credit.LastFourDigits, "last-four", "", "Last four card digits (credit sources)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List payment sources and their balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			sources, err := c.GetLedger().Sources(root.Context(cmd), root.User(cmd))
			if err != nil {
				return root.Fail(cmd, err)
			}
			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintln(out, "No payment sources")
				return nil
			}
			for _, src := range sources {
				line := fmt.Sprintf("%-36s  %-20s  %-6s  %12s", src.ID, src.Label(), src.Type, src.Amount.StringFixed(2))
				if len(src.UPIApps) > 0 {
					line += "  upi: " + strings.Join(src.UPIApps, ", ")
				}
				fmt.Fprintln(out, strings.TrimRight(line, " "))
			}
			return nil
		},
	}
}

func newUPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upi <source-id> <app>",
		Short: "Link a UPI app to a source and print its routing id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			routing, err := c.GetLedger().AttachUPIApp(root.Context(cmd), args[0], args[1])
			if err != nil {
				return root.Fail(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), routing)
			return nil
		},
	}
}
