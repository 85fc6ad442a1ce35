// Package model defines the domain types for the adbfinder CLI.
//
// All values in this package are immutable once constructed. The default
// handshake and command set are exposed through functions that return
// fresh copies, so no caller can mutate another caller's view of them.
package model

import (
	"fmt"
	"strings"
)

const (
	// HeaderSize is the length in bytes of an ADB message header. Both the
	// handshake we send and the response we classify are exactly this long.
	HeaderSize = 24

	// MinScanPort is the lowest port a default scan visits. Ports below
	// 1024 are privileged and never host an unprivileged adbd.
	MinScanPort = 1024

	// MaxPort is the highest valid TCP port number (2^16 - 1).
	MaxPort = 65535

	// LoopbackHost is the only host ever probed.
	LoopbackHost = "127.0.0.1"
)

// Message is the fixed six-word ADB message header.
//
// On the wire every word is a little-endian uint32, which is why the
// "CNXN" command reads as 0x4e584e43 here but appears as the bytes
// 43 4E 58 4E in a packet capture. The struc tags drive encoding in the
// adb package.
type Message struct {
	// Command is the 4-byte command tag (e.g. CNXN, OKAY).
	Command uint32 `struc:"uint32,little"`

	// Arg0 carries the protocol version for CNXN.
	Arg0 uint32 `struc:"uint32,little"`

	// Arg1 carries the maximum payload size for CNXN.
	Arg1 uint32 `struc:"uint32,little"`

	// DataLength is the length of the payload following the header.
	DataLength uint32 `struc:"uint32,little"`

	// DataCRC32 is the payload checksum. Modern adbd ignores it.
	DataCRC32 uint32 `struc:"uint32,little"`

	// Magic is Command XOR 0xffffffff.
	Magic uint32 `struc:"uint32,little"`
}

// HasValidMagic reports whether Magic is the bitwise complement of Command,
// which every well-formed ADB header satisfies.
func (m Message) HasValidMagic() bool {
	return m.Magic == ^m.Command
}

// Tag returns the command word as a CommandTag in wire byte order.
func (m Message) Tag() CommandTag {
	return CommandTag{
		byte(m.Command),
		byte(m.Command >> 8),
		byte(m.Command >> 16),
		byte(m.Command >> 24),
	}
}

// DefaultHandshake returns the CNXN connection-negotiation header used to
// provoke a response from an ADB daemon. It carries no payload, so a real
// daemon will usually answer with AUTH or CNXN even though negotiation
// cannot complete.
func DefaultHandshake() Message {
	return Message{
		Command:    0x4e584e43, // CNXN
		Arg0:       0x10000001, // version
		Arg1:       0,          // max data
		DataLength: 0,
		DataCRC32:  0,
		Magic:      0xb1a7b1bc,
	}
}

// CommandTag is a 4-byte ADB command identifier as it appears at the very
// start of a message on the wire.
type CommandTag [4]byte

// String returns the tag as its ASCII form, e.g. "OKAY".
func (t CommandTag) String() string {
	return string(t[:])
}

// ParseCommandTag converts a 4-character string into a CommandTag.
// Matching against tags is case-sensitive, so no normalization is applied.
func ParseCommandTag(s string) (CommandTag, error) {
	var t CommandTag
	if len(s) != len(t) {
		return t, fmt.Errorf("invalid command tag %q: must be exactly %d bytes", s, len(t))
	}
	copy(t[:], s)
	return t, nil
}

// Known ADB command tags.
var (
	CommandSYNC = CommandTag{0x53, 0x59, 0x4e, 0x43}
	CommandCLSE = CommandTag{0x43, 0x4c, 0x53, 0x45}
	CommandWRTE = CommandTag{0x57, 0x52, 0x54, 0x45}
	CommandAUTH = CommandTag{0x41, 0x55, 0x54, 0x48}
	CommandOPEN = CommandTag{0x4f, 0x50, 0x45, 0x4e}
	CommandCNXN = CommandTag{0x43, 0x4e, 0x58, 0x4e}
	CommandSTLS = CommandTag{0x53, 0x54, 0x4c, 0x53}
	CommandOKAY = CommandTag{0x4f, 0x4b, 0x41, 0x59}
)

// DefaultCommands returns the command tags whose presence at the start of
// a response identifies the peer as an ADB daemon. A fresh slice is
// returned on every call.
func DefaultCommands() []CommandTag {
	return []CommandTag{
		CommandSYNC,
		CommandCLSE,
		CommandWRTE,
		CommandAUTH,
		CommandOPEN,
		CommandCNXN,
		CommandSTLS,
		CommandOKAY,
	}
}

// PortRange is an inclusive range of TCP ports [Low, High].
type PortRange struct {
	// Low is the first port visited.
	Low int `json:"low" mapstructure:"low"`

	// High is the last port visited (inclusive).
	High int `json:"high" mapstructure:"high"`
}

// DefaultPortRange returns the unprivileged range 1024-65535.
func DefaultPortRange() PortRange {
	return PortRange{Low: MinScanPort, High: MaxPort}
}

// Validate checks that both bounds are valid port numbers and that the
// range is not inverted.
func (r PortRange) Validate() error {
	if r.Low < 1 || r.Low > MaxPort {
		return fmt.Errorf("port range: low bound %d out of range (1-%d)", r.Low, MaxPort)
	}
	if r.High < 1 || r.High > MaxPort {
		return fmt.Errorf("port range: high bound %d out of range (1-%d)", r.High, MaxPort)
	}
	if r.Low > r.High {
		return fmt.Errorf("port range: low bound %d is greater than high bound %d", r.Low, r.High)
	}
	return nil
}

// Contains reports whether port lies within the range.
func (r PortRange) Contains(port int) bool {
	return port >= r.Low && port <= r.High
}

// Size returns the number of ports in the range, or 0 for an inverted range.
func (r PortRange) Size() int {
	if r.Low > r.High {
		return 0
	}
	return r.High - r.Low + 1
}

// String returns the range in "low-high" form.
func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// ProbeStage identifies the point at which a fingerprint probe finished.
// Every stage except StageMatched means "not an ADB device".
type ProbeStage string

const (
	// StageConnect means the TCP connect failed or timed out.
	StageConnect ProbeStage = "connect"

	// StageSend means writing the handshake failed.
	StageSend ProbeStage = "send"

	// StageWait means no data arrived before the read deadline, or the
	// read itself failed.
	StageWait ProbeStage = "wait"

	// StageRead means fewer than HeaderSize bytes were received.
	StageRead ProbeStage = "read"

	// StageClassify means a full header arrived but did not carry a
	// recognized command (or, in strict mode, a valid magic).
	StageClassify ProbeStage = "classify"

	// StageMatched means the peer answered with a recognized ADB header.
	StageMatched ProbeStage = "matched"
)

// String returns the string representation of ProbeStage.
func (s ProbeStage) String() string {
	return string(s)
}

// IsValid checks whether the ProbeStage value is one of the predefined stages.
func (s ProbeStage) IsValid() bool {
	switch s {
	case StageConnect, StageSend, StageWait, StageRead, StageClassify, StageMatched:
		return true
	default:
		return false
	}
}

// ParseProbeStage converts a string to a ProbeStage.
func ParseProbeStage(s string) (ProbeStage, error) {
	stage := ProbeStage(strings.ToLower(s))
	if !stage.IsValid() {
		return "", fmt.Errorf("invalid probe stage: %q", s)
	}
	return stage, nil
}

// ExitCode defines the process exit codes of the CLI.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully. A scan
	// that finds nothing still exits with this code.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidConfig indicates flags, environment, config file or
	// fingerprint profile could not be loaded or failed validation.
	ExitInvalidConfig ExitCode = 2

	// ExitNoFreePort indicates free-port found nothing in its range.
	ExitNoFreePort ExitCode = 3

	// ExitNotMatched indicates the probe subcommand found no ADB daemon on
	// the requested port. The scan itself never uses it.
	ExitNotMatched ExitCode = 4
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
