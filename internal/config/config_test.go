package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GSTBOOKS_CONFIG", "")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", c.Server.Port)
	require.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	require.Equal(t, DriverSQLite, c.Database.Driver)
	require.Equal(t, 2*time.Second, c.Sequencer.Timeout)
	require.Equal(t, "INV", c.Invoice.Prefix)
	require.Equal(t, "INR", c.Invoice.Currency)
	require.False(t, c.AuthEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GSTBOOKS_CONFIG", "")
	t.Setenv("GSTBOOKS_SERVER_PORT", "9090")
	t.Setenv("GSTBOOKS_DATABASE_DRIVER", "bolt")
	t.Setenv("GSTBOOKS_SEQUENCER_TIMEOUT", "750ms")
	t.Setenv("GSTBOOKS_AUTH_SECRET", "s3cret")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", c.Server.Port)
	require.Equal(t, DriverBolt, c.Database.Driver)
	require.Equal(t, 750*time.Millisecond, c.Sequencer.Timeout)
	require.True(t, c.AuthEnabled())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("GSTBOOKS_CONFIG", "")
	t.Setenv("GSTBOOKS_INVOICE_PREFIX", "")
	require.NoError(t, os.Unsetenv("GSTBOOKS_INVOICE_PREFIX"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GSTBOOKS_INVOICE_PREFIX=BILL\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GSTBOOKS_INVOICE_PREFIX") })

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "BILL", c.Invoice.Prefix)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "gstbooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: memory\nreport:\n  cache_ttl: 1m\n"), 0o600))
	t.Setenv("GSTBOOKS_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverMemory, c.Database.Driver)
	require.Equal(t, time.Minute, c.Report.CacheTTL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GSTBOOKS_CONFIG", "does-not-exist.yaml")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:  DatabaseConfig{Driver: DriverSQLite, DSN: "file::memory:"},
			Sequencer: SequencerConfig{Timeout: time.Second},
			Invoice:   InvoiceConfig{Prefix: "INV", Currency: "INR"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"sqlite without dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"bolt without path", func(c *Config) { c.Database.Driver = DriverBolt }, "database.path"},
		{"zero timeout", func(c *Config) { c.Sequencer.Timeout = 0 }, "sequencer.timeout"},
		{"empty prefix", func(c *Config) { c.Invoice.Prefix = " " }, "invoice.prefix"},
		{"bad currency", func(c *Config) { c.Invoice.Currency = "RUPEE" }, "invoice.currency"},
		{"auth without ttl", func(c *Config) { c.Auth.Secret = "x" }, "auth.token_ttl"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
