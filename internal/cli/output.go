// Package cli — output.go holds the result formatters shared by the
// scan, probe and free-port commands.
//
// Plain-text scan output is one port per line so it
// can be piped into other tools. The JSON forms carry the same data plus
// enough context to interpret it.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/mmr-tortoise/adbfinder/internal/adb"
	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// scanResultJSON is the JSON output of the root (scan) command.
type scanResultJSON struct {
	Range string `json:"range"`
	Ports []int  `json:"ports"`
}

// printScanResultJSON writes the collected matches as one JSON document.
// ports is never nil, so an empty scan prints [] rather than null.
func printScanResultJSON(w io.Writer, rng model.PortRange, ports []int) {
	data, _ := json.MarshalIndent(scanResultJSON{Range: rng.String(), Ports: ports}, "", "  ")
	fmt.Fprintln(w, string(data))
}

// probeResultJSON is the JSON output of the probe command.
type probeResultJSON struct {
	Port      int    `json:"port"`
	InUse     bool   `json:"inUse"`
	Matched   bool   `json:"matched"`
	Stage     string `json:"stage,omitempty"`
	Command   string `json:"command,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// newProbeResultJSON converts a probe outcome. res is nil when the port
// was not in use and no fingerprint was attempted.
func newProbeResultJSON(p int, res *adb.Result) probeResultJSON {
	out := probeResultJSON{Port: p}
	if res == nil {
		return out
	}

	out.InUse = true
	out.Matched = res.Matched
	out.Stage = res.Stage.String()
	out.ElapsedMs = res.Elapsed.Milliseconds()
	if res.Stage == model.StageClassify || res.Stage == model.StageMatched {
		out.Command = res.Command.String()
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// printProbeResult reports a single probe in text or JSON form.
func printProbeResult(w io.Writer, p int, res *adb.Result) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(newProbeResultJSON(p, res), "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	switch {
	case res == nil:
		pterm.Warning.WithWriter(w).Printfln("port %d: nothing is bound on %s", p, model.LoopbackHost)
	case res.Matched:
		pterm.Success.WithWriter(w).Printfln("port %d: ADB daemon (replied %s in %s)",
			p, res.Command, res.Elapsed.Round(time.Microsecond))
	default:
		pterm.Warning.WithWriter(w).Printfln("port %d: not an ADB daemon (stopped at %s: %v)",
			p, res.Stage, res.Err)
	}
}

// printFreePort reports the port found by free-port.
func printFreePort(w io.Writer, p int) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]int{"port": p}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintln(w, p)
}
