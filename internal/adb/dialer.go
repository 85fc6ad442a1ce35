package adb

import (
	"context"
	"net"
	"time"
)

// Dialer opens connections. *net.Dialer satisfies it; tests substitute
// their own to exercise the connect failure paths.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// connectWithTimeout dials address over TCP and gives up after timeout.
// It replaces a non-blocking connect followed by a writability wait: the
// runtime's netpoller does the waiting, and a deadline hit surfaces as a
// net.Error whose Timeout() is true.
func connectWithTimeout(ctx context.Context, d Dialer, address string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.DialContext(ctx, "tcp", address)
}
