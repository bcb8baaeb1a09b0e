package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithMemoryDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverMemory)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 30, cfg.Ledger.CreditValidityDays)
	assert.Equal(t, 24*time.Hour, cfg.RefundCutoff())
	assert.Equal(t, 72*time.Hour, cfg.Scheduler.ExpiringWindow)
	assert.Equal(t, "/metrics", cfg.Ops.MetricsPath)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
env = "production"
storage_driver = "postgres"

[database]
dsn = "postgres://file"
max_conns = 20
statement_timeout = "3s"

[scheduler]
sweep_interval = "15m"

[ledger]
refund_cutoff_hours = 48
`)
	t.Setenv("DB_DSN", "postgres://env")
	t.Setenv("TX_MAX_RETRIES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.Database.StatementTimeout)
	assert.Equal(t, uint64(7), cfg.Database.TxMaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 48*time.Hour, cfg.RefundCutoff())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{"postgres without dsn", map[string]string{"STORAGE_DRIVER": DriverPostgres}, ""},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}, ""},
		{"bad sweep interval", map[string]string{"STORAGE_DRIVER": DriverMemory, "SWEEP_INTERVAL": "soon"}, ""},
		{"negative sweep interval", map[string]string{"STORAGE_DRIVER": DriverMemory, "SWEEP_INTERVAL": "-1m"}, ""},
		{"bad retries", map[string]string{"STORAGE_DRIVER": DriverMemory, "TX_MAX_RETRIES": "many"}, ""},
		{"zero validity", map[string]string{"STORAGE_DRIVER": DriverMemory}, "[ledger]\ncredit_validity_days = 0\n"},
		{"broken toml", map[string]string{"STORAGE_DRIVER": DriverMemory}, "env = \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DSN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
