// Package errors provides domain-specific error types for wiretrap.
//
// The types split along the server's failure scopes: startup failures
// (CredentialError, BindError, ConfigError) abort the process, while
// connection failures (HandshakeError, DecodeError, NetworkError) end
// one session and command failures (ExecutionError) end one dispatch.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNoIdentity        = errors.New("no server identity configured")
	ErrNotAuthorized     = errors.New("session not authorized")
	ErrProgramNotAllowed = errors.New("program not on allow-list")
	ErrTimeout           = errors.New("operation timed out")
)

// ── Startup errors ───────────────────────────────────────────────────

// CredentialError reports an unusable server identity: a malformed
// bundle, a wrong passphrase, or key material that does not match the
// certificate.
type CredentialError struct {
	Source string // file path or "self-signed"
	Err    error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential %s: %v", e.Source, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// BindError reports that the listener address could not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Connection errors ────────────────────────────────────────────────

// HandshakeError reports a failed TLS server handshake.  It is scoped to
// the one raw connection it occurred on.
type HandshakeError struct {
	Peer string
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake with %s: %v", e.Peer, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError is a protocol violation: the peer sent bytes that are not
// valid UTF-8.
type DecodeError struct {
	Peer string
	Len  int // number of bytes in the offending read
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode from %s: %d bytes of invalid UTF-8", e.Peer, e.Len)
}

// ── Command errors ───────────────────────────────────────────────────

// ExecutionError reports that a dispatched action could not produce a
// payload.  The connection stays open.
type ExecutionError struct {
	Command string
	Err     error
	Stderr  string // captured diagnostic output, if any
}

func (e *ExecutionError) Error() string {
	s := fmt.Sprintf("execute %q: %v", e.Command, e.Err)
	if e.Stderr != "" {
		s += ": " + e.Stderr
	}
	return s
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsFatal reports whether err must abort process startup.
func IsFatal(err error) bool {
	var ce *CredentialError
	var be *BindError
	var cfg *ConfigError
	return errors.As(err, &ce) || errors.As(err, &be) || errors.As(err, &cfg)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Timeout() || opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful for accept
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use wiretrap/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
