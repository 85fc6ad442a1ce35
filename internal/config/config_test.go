package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// TestLoad_Defaults verifies that with no file, env or flags the config
// reproduces the plain loopback sweep.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, model.DefaultPortRange(), cfg.PortRange())
	assert.Equal(t, 1, cfg.Scan.Workers)
	assert.Equal(t, 10*time.Millisecond, cfg.Probe.Timeout)
	assert.False(t, cfg.Probe.StrictMagic)
	assert.Empty(t, cfg.Probe.Profile)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
}

// TestLoad_Env verifies ADBFINDER_* variables override defaults.
func TestLoad_Env(t *testing.T) {
	t.Setenv("ADBFINDER_SCAN_WORKERS", "4")
	t.Setenv("ADBFINDER_PROBE_TIMEOUT", "50ms")
	t.Setenv("ADBFINDER_SCAN_MIN_PORT", "30000")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, 50*time.Millisecond, cfg.Probe.Timeout)
	assert.Equal(t, 30000, cfg.Scan.MinPort)
}

// TestLoad_File verifies a YAML config file is read.
func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adbfinder.yaml")
	content := `scan:
  min_port: 5555
  max_port: 5585
probe:
  timeout: 25ms
  strict_magic: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, model.PortRange{Low: 5555, High: 5585}, cfg.PortRange())
	assert.Equal(t, 25*time.Millisecond, cfg.Probe.Timeout)
	assert.True(t, cfg.Probe.StrictMagic)
	assert.Equal(t, "debug", cfg.Log.Level)
}

// TestLoad_MissingFile verifies an explicit config path must exist.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestBindFlags verifies changed flags take precedence over env and
// unknown flag sets are tolerated.
func TestBindFlags(t *testing.T) {
	t.Setenv("ADBFINDER_SCAN_WORKERS", "4")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 1, "")
	flags.Int("max-port", model.MaxPort, "")
	flags.Duration("timeout", 10*time.Millisecond, "")
	require.NoError(t, flags.Parse([]string{"--workers", "16", "--max-port", "2000"}))

	v := NewViper()
	require.NoError(t, BindFlags(v, flags))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Scan.Workers)
	assert.Equal(t, 2000, cfg.Scan.MaxPort)
	assert.Equal(t, 10*time.Millisecond, cfg.Probe.Timeout)
}

// TestConfig_Validate checks value range validation.
func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Scan:  ScanConfig{MinPort: 1024, MaxPort: 65535, Workers: 1},
			Probe: ProbeConfig{Timeout: 10 * time.Millisecond},
			Log:   LogConfig{Level: "warn", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"inverted range", func(c *Config) { c.Scan.MinPort = 9000; c.Scan.MaxPort = 8000 }, "greater than"},
		{"port too high", func(c *Config) { c.Scan.MaxPort = 70000 }, "high bound"},
		{"zero workers", func(c *Config) { c.Scan.Workers = 0 }, "scan.workers"},
		{"zero timeout", func(c *Config) { c.Probe.Timeout = 0 }, "probe.timeout"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
