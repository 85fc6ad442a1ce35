// Package cli — probe.go implements the "adbfinder probe <port>" command.
//
// The probe command runs the same two-stage check as the scan against a
// single port and explains the outcome: whether anything is bound there,
// and if so, at which step the handshake succeeded or gave up. It exits
// with ExitNotMatched when the port is not an ADB daemon, so scripts can
// branch on it.
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/adbfinder/internal/adb"
	"github.com/mmr-tortoise/adbfinder/internal/model"
	"github.com/mmr-tortoise/adbfinder/internal/port"
)

// NewProbeCommand creates the "probe" cobra command.
func NewProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <port>",
		Short: "Fingerprint a single loopback port",
		Long: `Check one loopback port and report whether an ADB daemon answers on it.

The port is first checked for a bound socket. Only if one is found is the
CNXN handshake sent. The output names the step that decided the result.

Examples:
  adbfinder probe 5555
  adbfinder probe 37011 --timeout 100ms --json`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, args[0])
		},
	}
}

// parsePort converts a positional argument into a valid port number.
func parsePort(arg string) (int, error) {
	p, err := strconv.Atoi(arg)
	if err != nil {
		return 0, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("invalid port %q", arg), err)
	}
	if p < 1 || p > model.MaxPort {
		return 0, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("port %d out of range (1-%d)", p, model.MaxPort))
	}
	return p, nil
}

// runProbe is the main logic function for the probe command.
func runProbe(cmd *cobra.Command, arg string) error {
	p, err := parsePort(arg)
	if err != nil {
		return err
	}

	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// Liveness first, exactly as the scan does.
	if !port.NewScanner().IsPortInUse(p) {
		logger.WithField("port", p).Debug("port not in use, skipping handshake")
		printProbeResult(cmd.OutOrStdout(), p, nil)
		return model.NewCLIError(model.ExitNotMatched, fmt.Sprintf("port %d is not in use", p))
	}

	fp, err := newFingerprinter(cfg, logger)
	if err != nil {
		return err
	}

	res := fp.Probe(cmd.Context(), model.LoopbackHost, p)
	printProbeResult(cmd.OutOrStdout(), p, &res)
	if !res.Matched {
		return notMatched(p, res)
	}
	return nil
}

func notMatched(p int, res adb.Result) error {
	return model.WrapCLIError(model.ExitNotMatched,
		fmt.Sprintf("port %d is not an ADB daemon", p), res.Err)
}
