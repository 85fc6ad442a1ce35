// Package port implements loopback port liveness checks.
//
// A port is "in use" when a fresh socket cannot be bound to it on the
// loopback interface. No connection is ever attempted here; that is the
// job of the adb package, which only runs after this check says yes.
package port

import (
	"fmt"

	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// loopback is 127.0.0.1 in network byte order.
var loopback = [4]byte{127, 0, 0, 1}

// Scanner checks whether specific loopback TCP ports are bound.
//
// On Linux the check binds a raw socket without listening on it (see
// bind_linux.go). Elsewhere it falls back to net.Listen.
//
// Any bind failure counts as "in use". Permission errors and genuine
// occupancy are not told apart, so the set of fingerprinted ports matches
// a plain bind test. A stale client socket lingering in
// TIME_WAIT can therefore produce a false positive, which the fingerprint
// stage then rejects.
type Scanner struct {
	addr [4]byte
}

// NewScanner creates a Scanner bound to 127.0.0.1.
func NewScanner() *Scanner {
	return &Scanner{addr: loopback}
}

// IsPortInUse reports whether port currently has a socket bound to it on
// loopback. The probe socket is closed before returning, so the check
// itself never holds the port.
//
// Ports outside 1-65535 are reported as not in use. If no socket can be
// created at all the port is also reported as not in use, which makes a
// scan on a host out of file descriptors come back empty rather than fail.
func (s *Scanner) IsPortInUse(port int) bool {
	if port < 1 || port > model.MaxPort {
		return false
	}
	return bindFails(s.addr, port)
}

// IsPortAvailable is the negation of IsPortInUse, kept for callers that
// look for a port to take rather than a port to probe.
func (s *Scanner) IsPortAvailable(port int) bool {
	if port < 1 || port > model.MaxPort {
		return false
	}
	return !bindFails(s.addr, port)
}

// FindAvailablePort scans [startPort, endPort] (inclusive) and returns the
// first port that is free on loopback.
//
// The search is sequential from startPort upward so the same free port is
// picked consistently across runs.
func (s *Scanner) FindAvailablePort(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available tcp port found in range %d-%d", startPort, endPort)
}

// GetUsedPorts returns the ports in [startPort, endPort] (inclusive) that
// are currently bound on loopback, in ascending order.
func (s *Scanner) GetUsedPorts(startPort, endPort int) []int {
	var used []int
	for port := startPort; port <= endPort; port++ {
		if s.IsPortInUse(port) {
			used = append(used, port)
		}
	}
	return used
}
