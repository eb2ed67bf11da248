package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"wiretrap/internal/errors"
)

// TLSAcceptor performs TLS server handshakes with a fixed, shared
// configuration.  The configuration is never mutated after
// construction, so one TLSAcceptor serves every connection.
type TLSAcceptor struct {
	config  *tls.Config
	timeout time.Duration
}

// NewTLSAcceptor returns an acceptor using cfg.  A positive timeout
// bounds each handshake.
func NewTLSAcceptor(cfg *tls.Config, timeout time.Duration) *TLSAcceptor {
	return &TLSAcceptor{config: cfg, timeout: timeout}
}

// Accept runs the server handshake.  Errors are *errors.HandshakeError.
func (a *TLSAcceptor) Accept(ctx context.Context, raw net.Conn) (net.Conn, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	conn := tls.Server(raw, a.config)
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, &errors.HandshakeError{Peer: raw.RemoteAddr().String(), Err: err}
	}
	return conn, nil
}

// TLSDialer opens TLS client connections on top of a TCPDialer.
type TLSDialer struct {
	TCP    *TCPDialer
	Config *tls.Config
}

// Dial connects over TCP and completes the client handshake.  When the
// config names no server, the host part of address is used.
func (d *TLSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	raw, err := d.TCP.Dial(ctx, network, address)
	if err != nil {
		return nil, errors.Wrap("dial", address, err)
	}

	cfg := d.Config.Clone()
	if cfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(address); err == nil {
			cfg.ServerName = host
		}
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, &errors.HandshakeError{Peer: address, Err: err}
	}
	return conn, nil
}

// Close is a no-op; TLS dialers hold no long-lived state.
func (d *TLSDialer) Close() error { return nil }
