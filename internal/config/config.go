// Package config loads the ledger configuration from defaults, config files,
// a .env file and LEDGER_ environment variables.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var once sync.Once

// LoadEnv loads variables from a .env file in the working directory or its
// parent, if one exists. Variables already set in the environment win. It
// returns the file it loaded, or "" when none was found.
func LoadEnv() (string, error) {
	var (
		loaded string
		err    error
	)
	once.Do(func() {
		loaded, err = loadEnvFrom(".", "..")
	})
	return loaded, err
}

func loadEnvFrom(dirs ...string) (string, error) {
	for _, dir := range dirs {
		envFile := filepath.Join(dir, ".env")
		if _, statErr := os.Stat(envFile); statErr != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return envFile, err
		}
		return envFile, nil
	}
	return "", nil
}

// GetEnv retrieves an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}
