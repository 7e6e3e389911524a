// Package container provides dependency injection for the ledger.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"fmt"

	"fjacquet/finance-ledger/internal/config"
	"fjacquet/finance-ledger/internal/dues"
	"fjacquet/finance-ledger/internal/export"
	"fjacquet/finance-ledger/internal/ledger"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/notify"
	"fjacquet/finance-ledger/internal/store"
	"fjacquet/finance-ledger/internal/store/sqlitestore"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	store     store.RecordStore
	notifier  notify.Notifier
	ledger    *ledger.Ledger
	transfers *ledger.TransferCoordinator
	dues      *dues.Tracker
	exporter  *export.Exporter
}

// NewContainer creates and wires all application dependencies.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	logger := logging.NewLogrusAdapterFromLogger(config.ConfigureLoggingFromConfig(cfg))
	return build(cfg, logger)
}

func build(cfg *config.Config, logger logging.Logger) (*Container, error) {
	recordStore, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewStoreNotifier(recordStore, logger)
	l := ledger.New(recordStore, notifier, logger, ledger.Settings{
		TransferCategory: cfg.Ledger.TransferCategory,
		OpeningCategory:  cfg.Ledger.OpeningCategory,
		SerializeWrites:  cfg.Ledger.SerializeWrites,
	})
	tracker := dues.NewTracker(l, recordStore, notifier, logger, dues.Settings{
		SettlementCategory: cfg.Dues.SettlementCategory,
		ReminderInterval:   cfg.Dues.ReminderInterval,
	})

	var delimiter rune
	if d := []rune(cfg.Export.Delimiter); len(d) > 0 {
		delimiter = d[0]
	}
	exporter := export.NewExporter(l, logger, export.Options{
		Delimiter:      delimiter,
		DateFormat:     cfg.Export.DateFormat,
		IncludeHeaders: cfg.Export.IncludeHeaders,
		Currency:       cfg.Ledger.Currency,
	})

	logger.Debug("Container initialized successfully",
		logging.F("store_driver", cfg.Store.Driver),
		logging.F("serialize_writes", cfg.Ledger.SerializeWrites))

	return &Container{
		logger:    logger,
		config:    cfg,
		store:     recordStore,
		notifier:  notifier,
		ledger:    l,
		transfers: ledger.NewTransferCoordinator(l),
		dues:      tracker,
		exporter:  exporter,
	}, nil
}

func openStore(cfg config.StoreConfig, logger logging.Logger) (store.RecordStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverYAML:
		s, err := store.NewYAMLStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open yaml store: %w", err)
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlitestore.Open(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the record store every component shares.
func (c *Container) GetStore() store.RecordStore {
	return c.store
}

// GetNotifier returns the notifier user operations report to.
func (c *Container) GetNotifier() notify.Notifier {
	return c.notifier
}

// GetLedger returns the transaction ledger.
func (c *Container) GetLedger() *ledger.Ledger {
	return c.ledger
}

// GetTransferCoordinator returns the coordinator for source-to-source transfers.
func (c *Container) GetTransferCoordinator() *ledger.TransferCoordinator {
	return c.transfers
}

// GetDuesTracker returns the dues tracker.
func (c *Container) GetDuesTracker() *dues.Tracker {
	return c.dues
}

// GetExporter returns the statement exporter.
func (c *Container) GetExporter() *export.Exporter {
	return c.exporter
}

// Close releases the record store.
func (c *Container) Close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	c.logger.Debug("Container closed")
	return nil
}
