package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"wiretrap/internal/errors"
	"wiretrap/internal/retry"
	"wiretrap/internal/transport"
	"wiretrap/util"
)

// ConnectMode dials a wiretrap server over TLS and relays stdin and
// stdout across the encrypted stream.
type ConnectMode struct {
	Dialer  transport.Dialer
	Address string
	Backoff *retry.Backoff
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the server, retrying refused or timed-out dials, then
// relays until either side closes.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	backoff := m.Backoff
	if backoff == nil {
		backoff = retry.DefaultBackoff()
	}

	var conn net.Conn
	err := backoff.Do(ctx, func(attempt int) error {
		m.Logger.Verbose("connecting to %s (attempt %d)", m.Address, attempt)
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			// Handshake failures are not retried.
			var he *errors.HandshakeError
			if errors.As(err, &he) {
				return retry.Permanent(err)
			}
			m.Logger.Verbose("dial failed: %v", err)
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())
	return util.BidirectionalCopy(ctx, conn, m.stdin(), m.stdout())
}
