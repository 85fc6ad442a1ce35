//go:build linux

package port

import (
	"golang.org/x/sys/unix"
)

// bindFails tries to bind a fresh TCP socket to addr:port without calling
// listen(2). SO_REUSEADDR is left unset so any existing binding on the
// port, listening or not, makes the bind fail.
//
// A socket that cannot be created at all reports false.
func bindFails(addr [4]byte, port int) bool {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		return true
	}
	return false
}
