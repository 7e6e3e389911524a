package container

import (
	"context"
	"path/filepath"
	"testing"

	"fjacquet/finance-ledger/internal/config"
	"fjacquet/finance-ledger/internal/ledger"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer_NilConfig(t *testing.T) {
	c, err := NewContainer(nil)
	assert.Nil(t, c)
	assert.EqualError(t, err, "configuration cannot be nil")
}

func TestNewContainer_Drivers(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		path   func(dir string) string
	}{
		{name: "memory", driver: config.DriverMemory, path: func(string) string { return "" }},
		{name: "yaml", driver: config.DriverYAML, path: func(dir string) string { return filepath.Join(dir, "data") }},
		{name: "sqlite", driver: config.DriverSQLite, path: func(dir string) string { return filepath.Join(dir, "ledger.db") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Driver = tt.driver
			cfg.Store.Path = tt.path(t.TempDir())

			c, err := NewContainer(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, c.Close()) })

			assert.Same(t, cfg, c.GetConfig())
			assert.NotNil(t, c.GetLogger())
			assert.NotNil(t, c.GetNotifier())
			assert.NotNil(t, c.GetTransferCoordinator())
			assert.NotNil(t, c.GetDuesTracker())
			assert.NotNil(t, c.GetExporter())
			assert.Equal(t, cfg.Ledger.TransferCategory, c.GetLedger().Settings().TransferCategory)

			ctx := context.Background()
			src, err := c.GetLedger().AddSource(ctx, models.PaymentSource{Name: "HDFC", UserID: "u1"}, decimal.NewFromInt(50))
			require.NoError(t, err)
			got, err := c.GetLedger().Source(ctx, src.ID)
			require.NoError(t, err)
			assert.Equal(t, "50", got.Amount.String())

			notes, err := c.GetStore().List(ctx, store.CollectionNotifications, nil)
			require.NoError(t, err)
			assert.NotEmpty(t, notes, "user operations are persisted as notifications")
		})
	}
}

func TestNewContainer_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "postgres"

	_, err := NewContainer(cfg)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestBuild_WiresSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.Ledger.TransferCategory = "Moves"
	cfg.Ledger.SerializeWrites = false
	cfg.Export.Delimiter = ";"

	c, err := build(cfg, logging.NewMockLogger())
	require.NoError(t, err)

	settings := c.GetLedger().Settings()
	assert.Equal(t, "Moves", settings.TransferCategory)
	assert.False(t, settings.SerializeWrites)

	ctx := context.Background()
	a, err := c.GetLedger().AddSource(ctx, models.PaymentSource{Name: "A"}, decimal.NewFromInt(10))
	require.NoError(t, err)
	b, err := c.GetLedger().AddSource(ctx, models.PaymentSource{Name: "B"}, decimal.Zero)
	require.NoError(t, err)
	res, err := c.GetTransferCoordinator().Transfer(ctx, ledger.TransferRequest{FromID: a.ID, ToID: b.ID, Amount: "4"})
	require.NoError(t, err)
	assert.Equal(t, "Moves", res.Out.Category)
}
