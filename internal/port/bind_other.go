//go:build !linux

package port

import (
	"fmt"
	"net"
)

// bindFails falls back to net.Listen on platforms where we don't drive
// raw sockets. Listening is heavier than a bare bind but answers the same
// question: if another socket holds the port, Listen returns an error.
func bindFails(addr [4]byte, port int) bool {
	ip := net.IPv4(addr[0], addr[1], addr[2], addr[3])
	listener, err := net.Listen("tcp", net.JoinHostPort(ip.String(), fmt.Sprint(port)))
	if err != nil {
		return true
	}
	_ = listener.Close()
	return false
}
