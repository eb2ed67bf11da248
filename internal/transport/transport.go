// Package transport provides the connection-level building blocks:
// upgrading accepted sockets to TLS on the server side and opening TLS
// connections on the client side.  What happens over an established
// stream is the dispatch layer's job.
package transport

import (
	"context"
	"net"
)

// Acceptor upgrades a freshly accepted raw connection into an
// encrypted stream.  Implementations must be safe for concurrent use.
type Acceptor interface {
	// Accept performs the server-side handshake on raw.  On failure the
	// caller still owns raw and must close it.
	Accept(ctx context.Context, raw net.Conn) (net.Conn, error)
}

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}
