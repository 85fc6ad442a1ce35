// Package adb identifies Android Debug Bridge daemons by their response to
// a connection handshake.
//
// # Probe
//
// Fingerprinter.Probe opens a TCP connection, writes one 24-byte CNXN
// header and reads one 24-byte header back. A reply that starts with any
// of SYNC, CLSE, WRTE, AUTH, OPEN, CNXN, STLS or OKAY identifies the peer.
// A real adbd answers a bare CNXN with AUTH (or CNXN when auth is
// disabled). Version negotiation never completes, and it does not need to.
//
// # Error Model
//
// Every failure (connect refused or timed out, write error, no data,
// short read, unknown command) yields Matched=false. Result.Stage and
// Result.Err record which step failed so the CLI can explain a single
// probe, but the scan itself treats them all alike.
//
// # Implementation Notes
//
// Each blocking step is bounded by Config.Timeout (10ms by default) using
// a dial context and per-connection deadlines. There are no retries and
// no background goroutines, and a Fingerprinter is safe to use from
// several goroutines at once.
package adb
