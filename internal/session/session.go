// Package session holds the per-connection state of the command
// server: the encrypted stream, its fixed read buffer and the
// authorization flag.
//
// A Session is owned by exactly one connection handler.  Nothing else
// reads from or writes to its stream, so it carries no locking.
package session

import (
	"net"
	"time"

	"wiretrap/util"
)

// Session is the runtime context for one accepted connection.
type Session struct {
	ID     uint64
	Conn   net.Conn
	Logger *util.Logger

	buf        *[]byte
	authorized bool
	started    time.Time
}

// New creates a Session bound to conn.  The read buffer is taken from
// util.BufPool and returned by Close.
func New(id uint64, conn net.Conn, logger *util.Logger) *Session {
	return &Session{
		ID:      id,
		Conn:    conn,
		Logger:  logger,
		buf:     util.GetBuf(),
		started: time.Now(),
	}
}

// Peer returns the remote address as a string.
func (s *Session) Peer() string {
	return s.Conn.RemoteAddr().String()
}

// Read performs a single read into the session buffer and returns the
// filled prefix.  The slice is only valid until the next Read.
func (s *Session) Read() ([]byte, error) {
	n, err := s.Conn.Read(*s.buf)
	return (*s.buf)[:n], err
}

// SetIdleDeadline arms a read/write deadline d from now.  Zero clears it.
func (s *Session) SetIdleDeadline(d time.Duration) error {
	if d <= 0 {
		return s.Conn.SetDeadline(time.Time{})
	}
	return s.Conn.SetDeadline(time.Now().Add(d))
}

// Authorize marks the session as allowed to run privileged actions.
func (s *Session) Authorize() { s.authorized = true }

// Authorized reports whether Authorize has been called.
func (s *Session) Authorized() bool { return s.authorized }

// Age returns how long the session has been open.
func (s *Session) Age() time.Duration { return time.Since(s.started) }

// Close closes the stream and releases the read buffer.  It is safe to
// call more than once.
func (s *Session) Close() error {
	if s.buf == nil {
		return nil
	}
	util.PutBuf(s.buf)
	s.buf = nil
	return s.Conn.Close()
}
