// Package cli — freeport.go implements the "adbfinder free-port" command.
//
// free-port prints the first loopback port in a range that nothing is
// bound to. It pairs with the scan when a launcher needs to start its own
// bridge next to an adbd: find adbd with the scan, find a port for the
// bridge with free-port.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/adbfinder/internal/model"
	"github.com/mmr-tortoise/adbfinder/internal/port"
)

// defaultFreePortStart is where the search begins when --start is not given.
const defaultFreePortStart = 25036

// freePortFlags holds the flag values for the free-port command.
type freePortFlags struct {
	start int
	end   int
}

// NewFreePortCommand creates the "free-port" cobra command.
func NewFreePortCommand() *cobra.Command {
	flags := &freePortFlags{}

	cmd := &cobra.Command{
		Use:   "free-port",
		Short: "Print the first unbound loopback port",
		Long: `Search a loopback port range upward and print the first port nothing is bound to.

Examples:
  adbfinder free-port
  adbfinder free-port --start 40000 --end 40100`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreePort(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.start, "start", defaultFreePortStart, "First port to try")
	cmd.Flags().IntVar(&flags.end, "end", model.MaxPort, "Last port to try (inclusive)")

	return cmd
}

// runFreePort is the main logic function for the free-port command.
func runFreePort(cmd *cobra.Command, flags *freePortFlags) error {
	rng := model.PortRange{Low: flags.start, High: flags.end}
	if err := rng.Validate(); err != nil {
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid free-port range", err)
	}

	_, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	p, err := port.NewScanner().FindAvailablePort(rng.Low, rng.High)
	if err != nil {
		return model.WrapCLIError(model.ExitNoFreePort, fmt.Sprintf("no free port in %s", rng), err)
	}
	logger.WithField("port", p).Debug("free port found")

	printFreePort(cmd.OutOrStdout(), p)
	return nil
}
