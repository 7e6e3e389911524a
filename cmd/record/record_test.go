package record

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/config"
	"fjacquet/finance-ledger/internal/container"
	"fjacquet/finance-ledger/internal/ledger"
	"fjacquet/finance-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) (*container.Container, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.Log.Level = "error"
	c, err := container.NewContainer(cfg)
	require.NoError(t, err)
	root.SetContainer(c)
	t.Cleanup(func() { root.SetContainer(nil) })

	src, err := c.GetLedger().AddSource(context.Background(), models.PaymentSource{Name: "HDFC"}, decimal.NewFromInt(100))
	require.NoError(t, err)
	return c, src.ID
}

func run(args ...string) (string, error) {
	cmd := NewCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func balance(t *testing.T, c *container.Container, id string) string {
	t.Helper()
	src, err := c.GetLedger().Source(context.Background(), id)
	require.NoError(t, err)
	return src.Amount.String()
}

func TestIncomeAndExpense(t *testing.T) {
	c, src := newApp(t)

	out, err := run("income", "--amount", "50", "--category", "Salary", "--source", src, "--date", "2026-04-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded income of 50.00")

	_, err = run("expense", "-a", "30.25", "-c", "Food", "-s", src, "-d", "Lunch")
	require.NoError(t, err)
	assert.Equal(t, "119.75", balance(t, c, src))

	txs, err := c.GetLedger().Transactions(context.Background(), ledger.Query{SourceID: src})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, 2026, txs[1].Date.Year())
	assert.Equal(t, "Lunch", txs[2].Description)
}

func TestExpense_Rejected(t *testing.T) {
	c, src := newApp(t)

	_, err := run("expense", "--amount", "500", "--category", "Rent", "--source", src)
	assert.EqualError(t, err, "Insufficient balance in the selected payment source")

	_, err = run("expense", "--amount", "5", "--source", src)
	assert.EqualError(t, err, "Please select a category")

	_, err = run("income", "--amount", "5", "--category", "x", "--source", src, "--date", "someday")
	assert.EqualError(t, err, "unable to parse date: someday")

	assert.Equal(t, "100", balance(t, c, src))
}

func TestRemove(t *testing.T) {
	c, src := newApp(t)
	tx, err := c.GetLedger().Record(context.Background(), ledger.Entry{
		Type: models.TypeExpense, Amount: "40", Category: "Fuel", Source: src,
	})
	require.NoError(t, err)

	out, err := run("remove", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Removed "+tx.ID+"\n", out)
	assert.Equal(t, "100", balance(t, c, src))

	_, err = run("remove", tx.ID)
	assert.EqualError(t, err, "The requested entry no longer exists")
}

func TestRemove_TransferLegRejected(t *testing.T) {
	c, src := newApp(t)
	dst, err := c.GetLedger().AddSource(context.Background(), models.PaymentSource{Name: "Cash"}, decimal.Zero)
	require.NoError(t, err)
	res, err := c.GetTransferCoordinator().Transfer(context.Background(), ledger.TransferRequest{
		FromID: src, ToID: dst.ID, Amount: "25",
	})
	require.NoError(t, err)

	_, err = run("remove", res.Out.ID)
	assert.EqualError(t, err, "This entry belongs to a due or transfer and cannot be deleted on its own")
	assert.Equal(t, "75", balance(t, c, src))
}

func TestList(t *testing.T) {
	_, src := newApp(t)
	_, err := run("expense", "--amount", "10", "--category", "Snacks", "--source", src)
	require.NoError(t, err)

	out, err := run("list", "--source", src)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "100.00")
	assert.Contains(t, lines[1], "-10.00")
	assert.Contains(t, lines[1], "Snacks")
}
