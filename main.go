package main

import (
	"fmt"
	"os"

	"fjacquet/finance-ledger/cmd/dues"
	"fjacquet/finance-ledger/cmd/export"
	"fjacquet/finance-ledger/cmd/reconcile"
	"fjacquet/finance-ledger/cmd/record"
	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/cmd/source"
	"fjacquet/finance-ledger/cmd/transfer"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(source.Cmd)
	root.Cmd.AddCommand(record.Cmd)
	root.Cmd.AddCommand(transfer.Cmd)
	root.Cmd.AddCommand(dues.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
