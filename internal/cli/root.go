// Package cli implements the cobra-based CLI commands for adbfinder.
//
// The root command is the scan itself, so running the binary with no
// arguments sweeps loopback and prints one matching port per line. The
// probe and free-port subcommands live in their own files.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/adbfinder/internal/adb"
	"github.com/mmr-tortoise/adbfinder/internal/config"
	"github.com/mmr-tortoise/adbfinder/internal/logging"
	"github.com/mmr-tortoise/adbfinder/internal/model"
	"github.com/mmr-tortoise/adbfinder/internal/port"
	"github.com/mmr-tortoise/adbfinder/internal/scan"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput switches results and errors to JSON.
	jsonOutput bool

	// verbose forces the log level to debug.
	verbose bool

	// configFile is an optional YAML config file path.
	configFile string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// Unlike a pure command group, the root command does work: it runs the scan.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adbfinder",
		Short: "Find ADB daemons listening on loopback",
		Long: `adbfinder sweeps loopback TCP ports and prints every port whose
listener answers an ADB CNXN handshake with an ADB header.

Free ports are skipped with a single bind; only bound ports are
fingerprinted. Output is one decimal port per line, in ascending order.

Examples:
  adbfinder
  adbfinder --min-port 30000 --max-port 50000 --workers 16
  adbfinder --json`,

		// The scan takes no positional arguments.
		Args: cobra.NoArgs,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors lets Execute format errors (text or JSON).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	pf.StringVar(&configFile, "config", "", "Path to a YAML config file")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text, json")
	pf.String("log-file", "", "Write logs to a rotating file instead of stderr")

	// Probe settings are shared with the probe subcommand.
	pf.Duration("timeout", adb.DefaultTimeout, "Per-step socket timeout for the handshake")
	pf.Bool("strict-magic", false, "Also require a valid magic word in the reply")
	pf.String("profile", "", "Fingerprint profile file (.json, .jsonc, .yaml)")

	f := rootCmd.Flags()
	f.Int("min-port", model.MinScanPort, "First port to scan")
	f.Int("max-port", model.MaxPort, "Last port to scan (inclusive)")
	f.Int("workers", 1, "Ports probed concurrently (1 = sequential)")

	rootCmd.AddCommand(NewProbeCommand())
	rootCmd.AddCommand(NewFreePortCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// SIGINT and SIGTERM cancel the command context, which stops a scan after
// the probe in flight; the ports found so far have already been printed.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			stop()
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		stop()
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for results, so errors go to stderr even in
		// JSON mode.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadSettings resolves configuration for cmd (defaults, --config file,
// environment, flags) and builds the logger.
func loadSettings(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to bind flags", err)
	}

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to load configuration", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to set up logging", err)
	}
	return cfg, logger, nil
}

// newFingerprinter builds the fingerprinter from cfg, applying the
// fingerprint profile when one is configured.
func newFingerprinter(cfg *config.Config, logger logrus.FieldLogger) (*adb.Fingerprinter, error) {
	fpCfg := adb.Config{
		Timeout:     cfg.Probe.Timeout,
		StrictMagic: cfg.Probe.StrictMagic,
		Logger:      logger,
	}

	if cfg.Probe.Profile != "" {
		profile, err := config.LoadProfile(cfg.Probe.Profile)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to load fingerprint profile", err)
		}
		fpCfg.Handshake = profile.Handshake
		fpCfg.Commands = profile.Commands
		fpCfg.StrictMagic = fpCfg.StrictMagic || profile.StrictMagic
		logger.WithField("profile", profile.Name).Debug("fingerprint profile loaded")
	}

	fp, err := adb.NewFingerprinter(fpCfg)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid fingerprint settings", err)
	}
	return fp, nil
}

// runScan is the main logic of the root command: resolve settings, sweep
// the range and print each match as soon as it is known.
func runScan(cmd *cobra.Command) error {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	fp, err := newFingerprinter(cfg, logger)
	if err != nil {
		return err
	}

	driver, err := scan.NewDriver(port.NewScanner(), fp, scan.Options{
		Range:   cfg.PortRange(),
		Workers: cfg.Scan.Workers,
		Logger:  logger,
	})
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid scan settings", err)
	}

	logger.WithFields(logrus.Fields{
		"range":   driver.Range().String(),
		"workers": cfg.Scan.Workers,
		"timeout": cfg.Probe.Timeout,
	}).Info("scan started")

	out := cmd.OutOrStdout()
	found := make([]int, 0)
	err = driver.Scan(cmd.Context(), func(p int) {
		if IsJSONOutput() {
			found = append(found, p)
			return
		}
		fmt.Fprintln(out, p)
	})
	// An interrupted scan is not an error: whatever was found is printed.
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if IsJSONOutput() {
		printScanResultJSON(out, driver.Range(), found)
	}
	return nil
}
