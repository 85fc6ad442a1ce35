// Package port implements loopback TCP port liveness detection for the
// adbfinder CLI.
//
// The Scanner answers one question per port: is something already bound
// to 127.0.0.1:port? It answers by trying to bind a new socket there and
// releasing it immediately. A failed bind means "in use"; a successful one
// means the port is free and the scan can skip it without ever opening a
// connection.
//
// The same primitive backs FindAvailablePort, used by the free-port
// subcommand to hand out the first unbound loopback port in a range.
package port
