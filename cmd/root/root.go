// Package root contains the root command for the application
package root

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fjacquet/finance-ledger/internal/config"
	"fjacquet/finance-ledger/internal/container"
	"fjacquet/finance-ledger/internal/ledgererror"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to every command
type CommonFlags struct {
	User        string
	LogLevel    string
	StoreDriver string
	StorePath   string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "ledger",
		Short: "A personal finance ledger for payment sources, transfers and dues.",
		Long: `ledger records income, expenses and transfers against payment sources
and keeps every balance equal to the sum of its transactions. It also tracks
money lent and borrowed until it is settled or excused.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// SharedFlags holds the persistent flag values
	SharedFlags = CommonFlags{}

	mu       sync.Mutex
	app      *container.Container
	ownsApp  bool
	initOnce sync.Once
)

// Init registers the persistent flags. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVarP(&SharedFlags.User, "user", "u", config.GetEnv("LEDGER_USER", ""), "User the records belong to")
		Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (overrides config)")
		Cmd.PersistentFlags().StringVar(&SharedFlags.StoreDriver, "store-driver", "", "Record store: memory, yaml or sqlite (overrides config)")
		Cmd.PersistentFlags().StringVar(&SharedFlags.StorePath, "store-path", "", "Store directory or database file (overrides config)")
	})
}

// SetContainer installs a prebuilt container. Commands then skip building
// their own and never close it.
func SetContainer(c *container.Container) {
	mu.Lock()
	defer mu.Unlock()
	app = c
	ownsApp = false
}

// Container returns the container the current command runs against.
func Container() (*container.Container, error) {
	mu.Lock()
	defer mu.Unlock()
	if app == nil {
		return nil, errors.New("ledger is not initialised")
	}
	return app, nil
}

// User returns the --user value visible to cmd.
func User(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("user"); f != nil {
		return f.Value.String()
	}
	return SharedFlags.User
}

// Context returns the command's context, or a background one.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Fail turns an engine error into the single message shown to the user and
// keeps the detailed error in the log.
func Fail(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if c, cerr := Container(); cerr == nil {
		c.GetLogger().WithError(err).Debug("Command failed")
	}
	return errors.New(ledgererror.UserMessage(err))
}

func setup(cmd *cobra.Command, _ []string) error {
	mu.Lock()
	defer mu.Unlock()
	if app != nil {
		return nil
	}

	if _, err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.InitializeConfig()
	if err != nil {
		return err
	}
	applyOverrides(cfg, SharedFlags)

	c, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}
	app = c
	ownsApp = true
	return nil
}

func teardown(cmd *cobra.Command, _ []string) {
	mu.Lock()
	defer mu.Unlock()
	if app == nil || !ownsApp {
		return
	}
	if err := app.Close(); err != nil {
		app.GetLogger().WithError(err).Warn("Failed to close ledger store")
	}
	app = nil
	ownsApp = false
}

func applyOverrides(cfg *config.Config, flags CommonFlags) {
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	if flags.StoreDriver != "" {
		cfg.Store.Driver = flags.StoreDriver
	}
	if flags.StorePath != "" {
		cfg.Store.Path = flags.StorePath
	}
}
