// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverYAML   = "yaml"
	DriverSQLite = "sqlite"
)

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig selects the record store. Path is a directory for the YAML
// driver and a database file for SQLite.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// LedgerConfig holds the ledger's categories and write policy.
type LedgerConfig struct {
	Currency         string `mapstructure:"currency" yaml:"currency"`
	TransferCategory string `mapstructure:"transfer_category" yaml:"transfer_category"`
	OpeningCategory  string `mapstructure:"opening_category" yaml:"opening_category"`
	SerializeWrites  bool   `mapstructure:"serialize_writes" yaml:"serialize_writes"`
}

// DuesConfig holds the dues tracker settings.
type DuesConfig struct {
	SettlementCategory string        `mapstructure:"settlement_category" yaml:"settlement_category"`
	ReminderInterval   time.Duration `mapstructure:"reminder_interval" yaml:"reminder_interval"`
}

// ExportConfig controls statement export.
type ExportConfig struct {
	Delimiter      string `mapstructure:"delimiter" yaml:"delimiter"`
	DateFormat     string `mapstructure:"date_format" yaml:"date_format"`
	IncludeHeaders bool   `mapstructure:"include_headers" yaml:"include_headers"`
}

// Config represents the complete application configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Ledger LedgerConfig `mapstructure:"ledger" yaml:"ledger"`
	Dues   DuesConfig   `mapstructure:"dues" yaml:"dues"`
	Export ExportConfig `mapstructure:"export" yaml:"export"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.ledger")
	v.AddConfigPath(".ledger")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when nothing overrides a key.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Driver: DriverYAML, Path: ".ledger/data"},
		Ledger: LedgerConfig{
			Currency:         "INR",
			TransferCategory: "Transfer",
			OpeningCategory:  "Opening Balance",
			SerializeWrites:  true,
		},
		Dues: DuesConfig{
			SettlementCategory: "Dues Settlement",
			ReminderInterval:   7 * 24 * time.Hour,
		},
		Export: ExportConfig{Delimiter: ",", DateFormat: "2006-01-02", IncludeHeaders: true},
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("ledger.currency", d.Ledger.Currency)
	v.SetDefault("ledger.transfer_category", d.Ledger.TransferCategory)
	v.SetDefault("ledger.opening_category", d.Ledger.OpeningCategory)
	v.SetDefault("ledger.serialize_writes", d.Ledger.SerializeWrites)

	v.SetDefault("dues.settlement_category", d.Dues.SettlementCategory)
	v.SetDefault("dues.reminder_interval", d.Dues.ReminderInterval.String())

	v.SetDefault("export.delimiter", d.Export.Delimiter)
	v.SetDefault("export.date_format", d.Export.DateFormat)
	v.SetDefault("export.include_headers", d.Export.IncludeHeaders)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	switch config.Store.Driver {
	case DriverMemory:
	case DriverYAML, DriverSQLite:
		if strings.TrimSpace(config.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the %s driver", config.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver: %s (must be 'memory', 'yaml' or 'sqlite')", config.Store.Driver)
	}

	if strings.TrimSpace(config.Ledger.TransferCategory) == "" {
		return fmt.Errorf("ledger.transfer_category must not be empty")
	}

	if strings.TrimSpace(config.Dues.SettlementCategory) == "" {
		return fmt.Errorf("dues.settlement_category must not be empty")
	}

	if config.Dues.ReminderInterval <= 0 {
		return fmt.Errorf("dues.reminder_interval must be positive, got: %s", config.Dues.ReminderInterval)
	}

	if len([]rune(config.Export.Delimiter)) != 1 {
		return fmt.Errorf("export delimiter must be a single character, got: %s", config.Export.Delimiter)
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
