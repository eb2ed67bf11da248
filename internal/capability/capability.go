// Package capability defines the actions a recognised command runs.
// Each Capability encapsulates one behaviour (list a directory,
// acknowledge, say goodbye) and operates on a Session rather than a
// raw net.Conn.  Capabilities never write to the stream themselves:
// they return a Result and the handler decides what reaches the peer.
package capability

import (
	"context"

	"wiretrap/internal/session"
)

// Result is the outcome of one dispatched command.
type Result struct {
	// Payload is written back to the peer.  Nil or empty means the
	// command is acknowledged silently.
	Payload []byte
	// Close ends the session after Payload has been written.
	Close bool
}

// Silent reports whether the result writes nothing to the peer.
func (r Result) Silent() bool { return len(r.Payload) == 0 }

// Capability runs the action behind one command token.
type Capability interface {
	// Invoke runs the action for sess.  It blocks until the action is
	// finished or ctx is cancelled.  Errors are scoped to the command:
	// the session stays open.
	Invoke(ctx context.Context, sess *session.Session) (Result, error)
}

// Func adapts an ordinary function to the Capability interface.
type Func func(ctx context.Context, sess *session.Session) (Result, error)

// Invoke calls f(ctx, sess).
func (f Func) Invoke(ctx context.Context, sess *session.Session) (Result, error) {
	return f(ctx, sess)
}
