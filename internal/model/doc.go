// Package model defines the domain types and value objects for the
// adbfinder CLI.
//
// This package contains plain data: the 24-byte ADB message header,
// the set of command tags that identify an ADB peer, the port range a
// scan walks, and the stages a fingerprint probe moves through. Nothing
// here touches the network.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
