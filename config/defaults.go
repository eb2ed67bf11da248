package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultAddress is the listen address when no positional argument
	// is given.
	DefaultAddress = "127.0.0.1:2408"

	// DefaultMaxConns caps concurrently served connections.  Accepts
	// beyond the cap wait in the kernel backlog.
	DefaultMaxConns = 256

	// DefaultHandshakeTimeout bounds a single TLS server handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultIdleTimeout closes a session that sends nothing for this
	// long.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultActionTimeout bounds a single privileged action.
	DefaultActionTimeout = 10 * time.Second

	// DefaultListDir is the directory listed by the privileged action.
	DefaultListDir = "."

	// DefaultDialTimeout is the TCP connect timeout in connect mode.
	DefaultDialTimeout = 10 * time.Second

	// DefaultDialRetries is how many times connect mode tries to reach
	// the server before giving up.
	DefaultDialRetries = 3

	// DefaultGracePeriod is how long shutdown waits for live sessions
	// to finish.
	DefaultGracePeriod = 5 * time.Second

	// FarewellPayload is written before the server closes a session on
	// request.
	FarewellPayload = "Goodbye!\n"
)

// DefaultListCommand is the argv run by the privileged listing action.
func DefaultListCommand() []string { return []string{"ls", "-lah"} }

// DefaultAllowedPrograms is the allow-list used when none is configured.
func DefaultAllowedPrograms() []string { return []string{"ls"} }
