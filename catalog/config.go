package catalog

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings of the catalog, loaded from the
// environment.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `env:"LIBRARY_DB_PATH" envDefault:"library.db"`
	// SweepInterval is how often the overdue sweep runs.
	SweepInterval time.Duration `env:"LIBRARY_SWEEP_INTERVAL" envDefault:"1h"`
	// DefaultLoanDays is the loan period when a borrow request omits one.
	DefaultLoanDays int `env:"LIBRARY_DEFAULT_LOAN_DAYS" envDefault:"14"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DefaultLoanDays < 1 {
		return Config{}, fmt.Errorf("LIBRARY_DEFAULT_LOAN_DAYS must be at least 1, got %d", cfg.DefaultLoanDays)
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("LIBRARY_SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	return cfg, nil
}
