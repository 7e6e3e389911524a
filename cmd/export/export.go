// Package export writes a CSV statement of the ledger.
package export

import (
	"fmt"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/ledger"

	"github.com/spf13/cobra"
)

// Cmd represents the export command
var Cmd = NewCmd()

// NewCmd builds the export command.
func NewCmd() *cobra.Command {
	var (
		output   string
		sourceID string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			q := ledger.Query{UserID: root.User(cmd), SourceID: sourceID}
			if output == "" || output == "-" {
				_, err = c.GetExporter().Export(root.Context(cmd), q, cmd.OutOrStdout())
				return err
			}
			n, err := c.GetExporter().ExportFile(root.Context(cmd), q, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d transactions to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&sourceID, "source", "s", "", "Only this source")
	return cmd
}
