// Package adb fingerprints TCP services as ADB daemons.
// This file provides the handshake probe: connect, send one CNXN header,
// read one header back and classify it.
package adb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// DefaultTimeout bounds each blocking step of a probe (connect, write and
// the wait for a reply). It is tuned for loopback round trips; anything
// slower than this on 127.0.0.1 is not a healthy adbd.
const DefaultTimeout = 10 * time.Millisecond

// Config controls how a Fingerprinter probes. The zero value of every
// field selects the default.
type Config struct {
	// Handshake is the header sent to provoke a reply.
	// If nil, model.DefaultHandshake() is used.
	Handshake *model.Message

	// Commands are the tags that identify a reply as ADB.
	// If empty, model.DefaultCommands() is used.
	Commands []model.CommandTag

	// Timeout bounds connect, write and read individually.
	// If zero, DefaultTimeout is used.
	Timeout time.Duration

	// StrictMagic additionally requires the reply's magic word to be the
	// complement of its command word.
	StrictMagic bool

	// Dialer opens the probe connection. If nil, a *net.Dialer is used.
	Dialer Dialer

	// Logger receives one debug entry per probe. If nil, output is discarded.
	Logger logrus.FieldLogger
}

// Result describes how a single probe ended.
type Result struct {
	// Port is the probed port.
	Port int

	// Matched is true only when Stage is model.StageMatched.
	Matched bool

	// Stage is where the probe stopped.
	Stage model.ProbeStage

	// Command is the tag found at the start of the reply. It is only set
	// once a full header was read (StageClassify or StageMatched).
	Command model.CommandTag

	// Err explains a non-matching result. Nil on a match.
	Err error

	// Elapsed is the wall time spent on the probe.
	Elapsed time.Duration
}

var (
	errUnknownCommand = errors.New("reply does not start with a known adb command")
	errBadMagic       = errors.New("reply magic is not the complement of its command")
)

// Fingerprinter decides whether a TCP endpoint speaks ADB. It holds only
// immutable configuration, so one instance may be shared by concurrent
// callers; every probe owns its own connection.
type Fingerprinter struct {
	frame    []byte
	commands []model.CommandTag
	timeout  time.Duration
	strict   bool
	dialer   Dialer
	log      logrus.FieldLogger
}

// NewFingerprinter validates cfg, applies defaults and pre-encodes the
// handshake frame.
func NewFingerprinter(cfg Config) (*Fingerprinter, error) {
	handshake := model.DefaultHandshake()
	if cfg.Handshake != nil {
		handshake = *cfg.Handshake
	}
	frame, err := EncodeMessage(handshake)
	if err != nil {
		return nil, err
	}

	commands := model.DefaultCommands()
	if len(cfg.Commands) > 0 {
		commands = append([]model.CommandTag(nil), cfg.Commands...)
	}

	timeout := cfg.Timeout
	if timeout < 0 {
		return nil, fmt.Errorf("invalid probe timeout %s", timeout)
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: timeout}
	}

	log := cfg.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	return &Fingerprinter{
		frame:    frame,
		commands: commands,
		timeout:  timeout,
		strict:   cfg.StrictMagic,
		dialer:   dialer,
		log:      log,
	}, nil
}

// Frame returns a copy of the encoded handshake this Fingerprinter sends.
func (f *Fingerprinter) Frame() []byte {
	return append([]byte(nil), f.frame...)
}

// IsADBDevice reports whether host:port answered the handshake with a
// recognized ADB header. Every failure, whatever its cause, is "false".
func (f *Fingerprinter) IsADBDevice(ctx context.Context, host string, port int) bool {
	return f.Probe(ctx, host, port).Matched
}

// Probe runs the handshake against host:port and reports where it stopped.
//
// The sequence is strictly linear:
//  1. connect, bounded by the timeout
//  2. write the whole handshake in one call
//  3. wait up to the timeout for data and read once into a 24-byte buffer
//  4. compare the first four bytes against the known commands
//
// There is no reassembly of a header split across reads and no retry. The
// connection is closed before Probe returns on every path.
func (f *Fingerprinter) Probe(ctx context.Context, host string, port int) (res Result) {
	start := time.Now()
	res.Port = port
	defer func() {
		res.Elapsed = time.Since(start)
		res.Matched = res.Stage == model.StageMatched
		f.log.WithFields(logrus.Fields{
			"port":    port,
			"stage":   res.Stage.String(),
			"elapsed": res.Elapsed,
		}).WithError(res.Err).Debug("fingerprint probe finished")
	}()

	address := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := connectWithTimeout(ctx, f.dialer, address, f.timeout)
	if err != nil {
		res.Stage, res.Err = model.StageConnect, err
		return res
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetWriteDeadline(time.Now().Add(f.timeout)); err != nil {
		res.Stage, res.Err = model.StageSend, err
		return res
	}
	if _, err := conn.Write(f.frame); err != nil {
		res.Stage, res.Err = model.StageSend, err
		return res
	}

	if err := conn.SetReadDeadline(time.Now().Add(f.timeout)); err != nil {
		res.Stage, res.Err = model.StageWait, err
		return res
	}
	buf := make([]byte, model.HeaderSize)
	n, err := conn.Read(buf)
	if n < model.HeaderSize {
		res.Stage = model.StageRead
		if isTimeout(err) {
			res.Stage = model.StageWait
		}
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		res.Err = fmt.Errorf("read %d of %d header bytes: %w", n, model.HeaderSize, err)
		return res
	}

	copy(res.Command[:], buf[:4])
	res.Stage, res.Err = f.classify(res.Command, buf)
	return res
}

// classify matches tag against the configured commands and, in strict
// mode, checks the header's magic word.
func (f *Fingerprinter) classify(tag model.CommandTag, header []byte) (model.ProbeStage, error) {
	known := false
	for _, c := range f.commands {
		if c == tag {
			known = true
			break
		}
	}
	if !known {
		return model.StageClassify, errUnknownCommand
	}

	if f.strict {
		msg, err := DecodeMessage(header)
		if err != nil {
			return model.StageClassify, err
		}
		if !msg.HasValidMagic() {
			return model.StageClassify, errBadMagic
		}
	}
	return model.StageMatched, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
