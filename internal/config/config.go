// Package config loads adbfinder settings.
//
// Settings are layered by viper, lowest precedence first: built-in
// defaults, an optional YAML config file, ADBFINDER_* environment
// variables, then command-line flags. With no file, no environment and no
// flags, the result reproduces the plain loopback sweep: ports
// 1024-65535, one at a time, 10ms per socket step.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mmr-tortoise/adbfinder/internal/adb"
	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// EnvPrefix is prepended to every environment variable, e.g.
// ADBFINDER_SCAN_WORKERS for scan.workers.
const EnvPrefix = "ADBFINDER"

// Config is the fully resolved configuration.
type Config struct {
	Scan  ScanConfig  `mapstructure:"scan"`
	Probe ProbeConfig `mapstructure:"probe"`
	Log   LogConfig   `mapstructure:"log"`
}

// ScanConfig controls which ports are visited and how many at once.
type ScanConfig struct {
	MinPort int `mapstructure:"min_port"`
	MaxPort int `mapstructure:"max_port"`
	Workers int `mapstructure:"workers"`
}

// ProbeConfig controls the handshake fingerprint.
type ProbeConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	StrictMagic bool          `mapstructure:"strict_magic"`

	// Profile is an optional path to a fingerprint profile that replaces
	// the handshake and command set. See LoadProfile.
	Profile string `mapstructure:"profile"`
}

// LogConfig controls diagnostic logging. Logs never go to stdout, which
// carries only results.
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug/info/warn/error
	Format     string `mapstructure:"format"`      // text/json
	File       string `mapstructure:"file"`        // empty = stderr
	MaxSize    int    `mapstructure:"max_size"`    // MB before rotation
	MaxBackups int    `mapstructure:"max_backups"` // rotated files kept
	MaxAge     int    `mapstructure:"max_age"`     // days
	Compress   bool   `mapstructure:"compress"`
}

// flagKeys maps config keys to the CLI flag names bound to them.
var flagKeys = map[string]string{
	"scan.min_port":      "min-port",
	"scan.max_port":      "max-port",
	"scan.workers":       "workers",
	"probe.timeout":      "timeout",
	"probe.strict_magic": "strict-magic",
	"probe.profile":      "profile",
	"log.level":          "log-level",
	"log.format":         "log-format",
	"log.file":           "log-file",
}

// NewViper returns a viper instance with defaults and environment
// binding in place.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.min_port", model.MinScanPort)
	v.SetDefault("scan.max_port", model.MaxPort)
	v.SetDefault("scan.workers", 1)

	v.SetDefault("probe.timeout", adb.DefaultTimeout)
	v.SetDefault("probe.strict_magic", false)
	v.SetDefault("probe.profile", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", false)
}

// BindFlags binds every known flag present in flags to its config key.
// Flags absent from the set are skipped, so subcommands may define only
// the subset they use.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads configFile (if non-empty), resolves all layers and validates
// the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.PortRange().Validate(); err != nil {
		return err
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1, got %d", c.Scan.Workers)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", c.Probe.Timeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (valid: text, json)", c.Log.Format)
	}
	return nil
}

// PortRange returns the configured scan range.
func (c *Config) PortRange() model.PortRange {
	return model.PortRange{Low: c.Scan.MinPort, High: c.Scan.MaxPort}
}
