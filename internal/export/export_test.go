package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/finance-ledger/internal/ledger"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/notify"
	"fjacquet/finance-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	txs   []models.Transaction
	err   error
	query ledger.Query
}

func (s *stubLister) Transactions(_ context.Context, q ledger.Query) ([]models.Transaction, error) {
	s.query = q
	return s.txs, s.err
}

func sampleTransactions() []models.Transaction {
	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []models.Transaction{
		{
			ID: "t1", Type: models.TypeExpense, Direction: models.DirectionOut,
			Amount: decimal.RequireFromString("12.5"), Category: "Food",
			Source: "s1@GPay", BaseSourceID: "s1", Description: "Lunch", Date: date,
		},
		{
			ID: "t2", Type: models.TypeTransfer, Direction: models.DirectionIn,
			Amount: decimal.NewFromInt(100), Category: "Transfer", Source: "s2",
			DisplaySource: "From HDFC", TransferID: "x1", Date: date,
		},
	}
}

func TestWrite(t *testing.T) {
	e := NewExporter(&stubLister{}, logging.NewMockLogger(), Options{IncludeHeaders: true, Currency: "INR"})
	var buf bytes.Buffer

	require.NoError(t, e.Write(&buf, sampleTransactions()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Type,Direction,Amount,SignedAmount,Currency,Category,Source,DisplaySource,Description,TransferID,Due,ID", lines[0])
	assert.Equal(t, "2026-03-14,expense,out,12.50,-12.50,INR,Food,s1@GPay,,Lunch,,false,t1", lines[1])
	assert.Equal(t, "2026-03-14,transfer,in,100.00,100.00,INR,Transfer,s2,From HDFC,,x1,false,t2", lines[2])
}

func TestWrite_DelimiterAndNoHeaders(t *testing.T) {
	e := NewExporter(&stubLister{}, logging.NewMockLogger(), Options{Delimiter: ';', DateFormat: "02.01.2006"})
	var buf bytes.Buffer

	require.NoError(t, e.Write(&buf, sampleTransactions()[:1]))
	assert.Equal(t, "14.03.2026;expense;out;12.50;-12.50;;Food;s1@GPay;;Lunch;;false;t1\n", buf.String())
}

func TestRows_GuardsFormulas(t *testing.T) {
	e := NewExporter(&stubLister{}, logging.NewMockLogger(), DefaultOptions())
	rows := e.Rows([]models.Transaction{{
		Type: models.TypeExpense, Amount: decimal.NewFromInt(1),
		Category: "=SUM(A1:A9)", Source: "@cmd", Description: "-2+3",
	}})

	require.Len(t, rows, 1)
	assert.Equal(t, "'=SUM(A1:A9)", rows[0].Category)
	assert.Equal(t, "'@cmd", rows[0].Source)
	assert.Equal(t, "'-2+3", rows[0].Description)
	assert.Equal(t, "-1.00", rows[0].SignedAmount, "numeric cells are left alone")
	assert.Empty(t, rows[0].Date)
}

func TestGuardFormula(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"Groceries": "Groceries",
		"+1":        "'+1",
		"\tx":       "'\tx",
		"\rx":       "'\rx",
		"a=b":       "a=b",
	}
	for in, want := range tests {
		assert.Equal(t, want, guardFormula(in), in)
	}
}

func TestExport_PassesQueryAndErrors(t *testing.T) {
	lister := &stubLister{txs: sampleTransactions()}
	e := NewExporter(lister, logging.NewMockLogger(), DefaultOptions())
	var buf bytes.Buffer

	n, err := e.Export(context.Background(), ledger.Query{UserID: "u1", SourceID: "s1"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, ledger.Query{UserID: "u1", SourceID: "s1"}, lister.query)

	lister.err = errors.New("store down")
	_, err = e.Export(context.Background(), ledger.Query{}, &buf)
	assert.EqualError(t, err, "store down")
}

func TestExportFile_FromLedger(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(store.NewMemoryStore(), notify.NewMockNotifier(), logging.NewMockLogger(), ledger.DefaultSettings())
	src, err := l.AddSource(ctx, models.PaymentSource{Name: "HDFC", UserID: "u1"}, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = l.Record(ctx, ledger.Entry{Type: models.TypeExpense, Amount: "40", Category: "Fuel", Source: src.ID, UserID: "u1"})
	require.NoError(t, err)

	logger := logging.NewMockLogger()
	e := NewExporter(l, logger, Options{IncludeHeaders: true})
	path := filepath.Join(t.TempDir(), "out", "statement.csv")

	n, err := e.ExportFile(ctx, ledger.Query{SourceID: src.ID}, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, logger.HasEntry("INFO", "Statement exported"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Opening Balance")
	assert.Contains(t, lines[2], ",Fuel,")
}
