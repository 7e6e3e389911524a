package dues

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/config"
	"fjacquet/finance-ledger/internal/container"
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

	src, err := c.GetLedger().AddSource(context.Background(), models.PaymentSource{Name: "HDFC"}, decimal.NewFromInt(1000))
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

func openDue(t *testing.T, c *container.Container, src, amount string) string {
	t.Helper()
	_, err := run("open", "--kind", "lent", "--amount", amount, "--source", src, "--with", "Ravi", "--repay-by", "+30d")
	require.NoError(t, err)
	list, err := c.GetDuesTracker().List(context.Background(), "", false)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	return list[len(list)-1].ID
}

func TestOpenPaySettle(t *testing.T) {
	c, src := newApp(t)
	id := openDue(t, c, src, "500")

	out, err := run("pay", id, "--amount", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "PartiallyPaid")
	assert.Contains(t, out, "remaining 300.00")

	out, err = run("settle", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Settled")

	_, err = run("excuse", id, "--reason", "late")
	assert.EqualError(t, err, "This due is already closed")

	got, err := c.GetLedger().Source(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "1000", got.Amount.String())
}

func TestOpen_BadKind(t *testing.T) {
	_, src := newApp(t)
	_, err := run("open", "--kind", "gifted", "--amount", "5", "--source", src)
	assert.EqualError(t, err, "Please choose lent or borrowed")
}

func TestPay_Rejections(t *testing.T) {
	c, src := newApp(t)
	id := openDue(t, c, src, "100")

	_, err := run("pay", id, "--amount", "abc")
	assert.EqualError(t, err, `invalid amount "abc"`)

	_, err = run("pay", id, "--amount", "150")
	assert.EqualError(t, err, "Please enter a valid amount greater than zero")

	_, err = run("pay", "missing", "--amount", "1")
	assert.EqualError(t, err, "The requested entry no longer exists")
}

func TestExcuseAndList(t *testing.T) {
	c, src := newApp(t)
	first := openDue(t, c, src, "100")
	openDue(t, c, src, "50")

	_, err := run("excuse", first)
	assert.EqualError(t, err, "Please provide a reason for excusing this due")

	out, err := run("excuse", first, "--reason", "birthday")
	require.NoError(t, err)
	assert.Contains(t, out, "Excused")

	out, err = run("list")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	out, err = run("list", "--open")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
	assert.Contains(t, out, "remaining 50.00")
}

func TestRemind(t *testing.T) {
	c, src := newApp(t)
	id := openDue(t, c, src, "100")

	out, err := run("remind", id)
	require.NoError(t, err)
	assert.Contains(t, out, "1 sent")

	out, err = run("remind", id, "--next", "2030-01-01")
	require.NoError(t, err)
	assert.Equal(t, "Next reminder 2030-01-01, 1 sent\n", out)
}

func TestPaymentsAndUnpay(t *testing.T) {
	c, src := newApp(t)
	id := openDue(t, c, src, "500")
	_, err := run("pay", id, "--amount", "200")
	require.NoError(t, err)

	out, err := run("payments", id)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "200.00")
	paymentID := strings.Fields(lines[0])[0]

	out, err = run("unpay", id, paymentID)
	require.NoError(t, err)
	assert.Contains(t, out, "Open")
	assert.Contains(t, out, "remaining 500.00")

	got, err := c.GetLedger().Source(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "500", got.Amount.String())

	_, err = run("unpay", id, paymentID)
	assert.EqualError(t, err, "The requested entry no longer exists")
}
