package source

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"fjacquet/finance-ledger/cmd/root"
	"fjacquet/finance-ledger/internal/config"
	"fjacquet/finance-ledger/internal/container"
	"fjacquet/finance-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *container.Container {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.Log.Level = "error"
	c, err := container.NewContainer(cfg)
	require.NoError(t, err)
	root.SetContainer(c)
	t.Cleanup(func() { root.SetContainer(nil) })
	return c
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

func TestAddAndList(t *testing.T) {
	c := newApp(t)

	out, err := run("add", "--name", "HDFC", "--opening", "1'250.50", "--upi", "GPay,PhonePe")
	require.NoError(t, err)
	assert.Contains(t, out, "Added HDFC")
	assert.Contains(t, out, "with balance 1250.50")

	out, err = run("add", "--name", "Amex", "--type", "credit", "--opening", "-200", "--credit-limit", "5000", "--last-four", "4242")
	require.NoError(t, err)
	assert.Contains(t, out, "with balance -200.00")

	sources, err := c.GetLedger().Sources(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, []string{"GPay", "PhonePe"}, sources[0].UPIApps)
	assert.Equal(t, models.SourceCredit, sources[1].Type)
	assert.Equal(t, "4242", sources[1].Credit.LastFourDigits)
	assert.Equal(t, "5000", sources[1].Credit.CreditLimit.String())

	out, err = run("list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "1250.50")
	assert.Contains(t, lines[0], "upi: GPay, PhonePe")
	assert.Contains(t, lines[1], "-200.00")
}

func TestAdd_Rejections(t *testing.T) {
	newApp(t)

	_, err := run("add", "--name", "HDFC", "--opening", "lots")
	assert.EqualError(t, err, `invalid opening balance "lots"`)

	_, err = run("add", "--name", "HDFC", "--type", "crypto")
	assert.EqualError(t, err, "Please choose bank, credit, cash or wallet")

	_, err = run("add")
	assert.Error(t, err, "name is required")
}

func TestList_Empty(t *testing.T) {
	newApp(t)
	out, err := run("list")
	require.NoError(t, err)
	assert.Equal(t, "No payment sources\n", out)
}

func TestUPI(t *testing.T) {
	c := newApp(t)
	_, err := run("add", "--name", "HDFC")
	require.NoError(t, err)
	sources, err := c.GetLedger().Sources(context.Background(), "")
	require.NoError(t, err)

	out, err := run("upi", sources[0].ID, "Paytm")
	require.NoError(t, err)
	assert.Equal(t, sources[0].ID+"@Paytm\n", out)
}

func TestNotInitialised(t *testing.T) {
	root.SetContainer(nil)
	_, err := run("list")
	assert.EqualError(t, err, "ledger is not initialised")
}
