// Package export writes ledger statements as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"fjacquet/finance-ledger/internal/fileutils"
	"fjacquet/finance-ledger/internal/ledger"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"

	"github.com/gocarina/gocsv"
)

// StatementRow is one CSV line of a statement.
type StatementRow struct {
	Date          string `csv:"Date"`
	Type          string `csv:"Type"`
	Direction     string `csv:"Direction"`
	Amount        string `csv:"Amount"`
	SignedAmount  string `csv:"SignedAmount"`
	Currency      string `csv:"Currency"`
	Category      string `csv:"Category"`
	Source        string `csv:"Source"`
	DisplaySource string `csv:"DisplaySource"`
	Description   string `csv:"Description"`
	TransferID    string `csv:"TransferID"`
	Due           bool   `csv:"Due"`
	ID            string `csv:"ID"`
}

// Options control the CSV layout.
type Options struct {
	Delimiter      rune
	DateFormat     string
	IncludeHeaders bool
	Currency       string
}

// DefaultOptions writes comma separated ISO dated rows with a header.
func DefaultOptions() Options {
	return Options{Delimiter: ',', DateFormat: "2006-01-02", IncludeHeaders: true}
}

// TransactionLister is the part of the ledger the exporter reads from.
type TransactionLister interface {
	Transactions(ctx context.Context, q ledger.Query) ([]models.Transaction, error)
}

// Exporter writes transactions from a ledger as statements.
type Exporter struct {
	source TransactionLister
	logger logging.Logger
	opts   Options
}

// NewExporter creates an exporter. Zero option fields fall back to the defaults.
func NewExporter(source TransactionLister, logger logging.Logger, opts Options) *Exporter {
	defaults := DefaultOptions()
	if opts.Delimiter == 0 {
		opts.Delimiter = defaults.Delimiter
	}
	if opts.DateFormat == "" {
		opts.DateFormat = defaults.DateFormat
	}
	return &Exporter{source: source, logger: logger, opts: opts}
}

// Rows converts transactions into statement rows. Text cells that a
// spreadsheet would evaluate as a formula are prefixed with a quote.
func (e *Exporter) Rows(txs []models.Transaction) []StatementRow {
	rows := make([]StatementRow, 0, len(txs))
	for _, tx := range txs {
		row := StatementRow{
			Type:          string(tx.Type),
			Direction:     string(tx.Direction),
			Amount:        tx.Amount.StringFixed(2),
			SignedAmount:  tx.SignedAmount().StringFixed(2),
			Currency:      e.opts.Currency,
			Category:      guardFormula(tx.Category),
			Source:        guardFormula(tx.Source),
			DisplaySource: guardFormula(tx.DisplaySource),
			Description:   guardFormula(tx.Description),
			TransferID:    tx.TransferID,
			Due:           tx.IsDue,
			ID:            tx.ID,
		}
		if !tx.Date.IsZero() {
			row.Date = tx.Date.Format(e.opts.DateFormat)
		}
		rows = append(rows, row)
	}
	return rows
}

// Write marshals txs to w.
func (e *Exporter) Write(w io.Writer, txs []models.Transaction) error {
	rows := e.Rows(txs)
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = e.opts.Delimiter
	writer := gocsv.NewSafeCSVWriter(csvWriter)

	var err error
	if e.opts.IncludeHeaders {
		err = gocsv.MarshalCSV(&rows, writer)
	} else {
		err = gocsv.MarshalCSVWithoutHeaders(&rows, writer)
	}
	if err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// Export writes the transactions matching q to w and returns how many were written.
func (e *Exporter) Export(ctx context.Context, q ledger.Query, w io.Writer) (int, error) {
	txs, err := e.source.Transactions(ctx, q)
	if err != nil {
		return 0, err
	}
	if err := e.Write(w, txs); err != nil {
		e.logger.WithError(err).Error("Failed to marshal statement to CSV")
		return 0, err
	}
	return len(txs), nil
}

// ExportFile is Export into a file, creating parent directories as needed.
func (e *Exporter) ExportFile(ctx context.Context, q ledger.Query, path string) (n int, err error) {
	file, err := fileutils.CreateFile(path)
	if err != nil {
		return 0, fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing CSV file: %w", closeErr)
		}
	}()

	n, err = e.Export(ctx, q, file)
	if err != nil {
		return 0, err
	}
	e.logger.Info("Statement exported",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, n))
	return n, nil
}

func guardFormula(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
