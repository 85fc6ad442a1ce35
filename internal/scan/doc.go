// Package scan drives an ADB discovery sweep over a loopback port range.
//
// For each port, in ascending order, the Driver asks a LivenessProbe
// whether anything is bound there. Only if it is does the Driver hand the
// port to a Fingerprint. Ports that pass both stages are yielded to the
// caller. Free ports cost a single bind and no wait.
//
// By default one port is probed at a time. With Options.Workers > 1 the
// probes run on a bounded ants worker pool, and the results are put back
// into ascending order before they reach the caller.
package scan
