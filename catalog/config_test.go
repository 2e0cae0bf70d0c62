package catalog

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"LIBRARY_DB_PATH", "LIBRARY_SWEEP_INTERVAL", "LIBRARY_DEFAULT_LOAN_DAYS"} {
		t.Setenv(key, "") // register restore, then unset for real
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "library.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 14, cfg.DefaultLoanDays)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LIBRARY_DB_PATH", "/tmp/cat.db")
	t.Setenv("LIBRARY_SWEEP_INTERVAL", "15m")
	t.Setenv("LIBRARY_DEFAULT_LOAN_DAYS", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cat.db", cfg.DBPath)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 7, cfg.DefaultLoanDays)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("LIBRARY_DEFAULT_LOAN_DAYS", "0")
	_, err := LoadConfig()
	assert.Error(t, err)
}
