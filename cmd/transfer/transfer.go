// Package transfer moves money between two payment sources.
package transfer

import (
	"fmt"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/dateutils"
	"fjacquet/finance-ledger/internal/ledger"

	"github.com/spf13/cobra"
)

// Cmd represents the transfer command
var Cmd = NewCmd()

// NewCmd builds the transfer command.
func NewCmd() *cobra.Command {
	var (
		req  ledger.TransferRequest
		date string
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money from one payment source to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			when, err := dateutils.ParseDate(date)
			if err != nil {
				return err
			}
			req.Date = when
			req.UserID = root.User(cmd)

			res, err := c.GetTransferCoordinator().Transfer(root.Context(cmd), req)
			if err != nil {
				return root.Fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s (%s)\n", res.Out.Amount.StringFixed(2), res.TransferID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.FromID, "from", "f", "", "Source to take the money from")
	cmd.Flags().StringVarP(&req.ToID, "to", "t", "", "Source to put the money into")
	cmd.Flags().StringVarP(&req.Amount, "amount", "a", "", "Amount")
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Description")
	cmd.Flags().StringVar(&date, "date", "", "Date (default now)")
	return cmd
}
