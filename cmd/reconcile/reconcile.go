// Package reconcile checks stored balances against the transaction log.
package reconcile

import (
	"fmt"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/ledger"

	"github.com/spf13/cobra"
)

// Cmd represents the reconcile command
var Cmd = NewCmd()

// NewCmd builds the reconcile command.
func NewCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "reconcile [source-id]",
		Short: "Compare source balances with the sum of their transactions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			ctx := root.Context(cmd)
			var reports []ledger.Reconciliation
			if len(args) == 1 {
				r, rerr := c.GetLedger().Reconcile(ctx, args[0], fix)
				reports, err = []ledger.Reconciliation{r}, rerr
			} else {
				reports, err = c.GetLedger().ReconcileAll(ctx, root.User(cmd), fix)
			}
			if err != nil {
				return root.Fail(cmd, err)
			}

			out := cmd.OutOrStdout()
			drifted := 0
			for _, r := range reports {
				status := "ok"
				if !r.InSync() {
					drifted++
					status = "drift " + r.Drift().StringFixed(2)
					if r.Corrected {
						status += " (fixed)"
					}
				}
				fmt.Fprintf(out, "%s  stored %s  computed %s  %d entries  %s\n",
					r.SourceID, r.Stored.StringFixed(2), r.Computed.StringFixed(2), r.Entries, status)
			}
			if drifted > 0 && !fix {
				return fmt.Errorf("%d source(s) out of sync, rerun with --fix to correct", drifted)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Overwrite drifted balances with the computed value")
	return cmd
}
