package dispatch

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"wiretrap/internal/errors"
	"wiretrap/internal/metrics"
	"wiretrap/internal/session"
	"wiretrap/internal/transport"
	"wiretrap/util"
)

// authPrefix introduces the session authorization command.  It is only
// recognised when the handler has an Authenticator.
const authPrefix = "auth "

// State is a connection handler state.
type State int

const (
	StateHandshaking State = iota
	StateReading
	StateDispatching
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateReading:
		return "reading"
	case StateDispatching:
		return "dispatching"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Authenticator checks a session authorization token.
type Authenticator interface {
	Equal(candidate []byte) bool
}

// Handler serves accepted connections: TLS handshake, then a strictly
// sequential read → dispatch → write loop.  One Handler is shared by
// all connections; everything per-connection lives in the Session.
type Handler struct {
	Acceptor    transport.Acceptor
	Registry    *Registry
	Auth        Authenticator // nil disables the auth command
	IdleTimeout time.Duration // 0 disables the per-read deadline
	Metrics     *metrics.Collector
	Logger      *util.Logger

	nextID atomic.Uint64
}

// Serve owns raw until it returns.  All failures are contained to this
// connection and logged; none are returned.
func (h *Handler) Serve(ctx context.Context, raw net.Conn) {
	peer := raw.RemoteAddr().String()
	log := h.Logger.With("peer", peer)

	h.Metrics.ConnectionOpened()
	defer h.Metrics.ConnectionClosed()

	// Handshaking
	conn, err := h.Acceptor.Accept(ctx, raw)
	if err != nil {
		log.Warn("%v", err)
		h.Metrics.HandshakeFailed()
		raw.Close()
		return
	}

	id := h.nextID.Add(1)
	sess := session.New(id, conn, log.With("session", id))
	defer sess.Close()

	// Shutdown unblocks a pending read by closing the stream.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sess.Logger.Verbose("session open")
	state := StateReading
	var line string
	for state != StateClosed {
		switch state {
		case StateReading:
			line, state = h.read(sess)
		case StateDispatching:
			state = h.dispatch(ctx, sess, line)
		}
	}
	sess.Logger.Verbose("session closed after %v", sess.Age().Truncate(time.Millisecond))
}

// read performs one read and decodes it.
func (h *Handler) read(sess *session.Session) (string, State) {
	if err := sess.SetIdleDeadline(h.IdleTimeout); err != nil {
		sess.Logger.Warn("set deadline: %v", err)
		return "", StateClosed
	}

	data, err := sess.Read()
	if len(data) == 0 {
		if err == nil {
			return "", StateReading
		}
		h.readFailed(sess, err)
		return "", StateClosed
	}
	h.Metrics.BytesReceived(int64(len(data)))

	if !utf8.Valid(data) {
		h.fail(sess, &errors.DecodeError{Peer: sess.Peer(), Len: len(data)})
		return "", StateClosed
	}
	// Bytes that arrive with an error (typically io.EOF after a
	// close_notify) are still dispatched; the error is seen on the next read.
	if err != nil {
		sess.Logger.Debug("read returned %d bytes with %v", len(data), err)
	}
	return strings.TrimSpace(string(data)), StateDispatching
}

func (h *Handler) readFailed(sess *session.Session, err error) {
	switch {
	case errors.IsTimeout(err):
		sess.Logger.Info("idle for %v, closing", h.IdleTimeout)
	case util.IsHarmless(err):
		sess.Logger.Debug("peer closed the stream")
	default:
		h.fail(sess, errors.Wrap("read", sess.Peer(), err))
	}
}

// dispatch resolves and runs one command, writing any payload.
func (h *Handler) dispatch(ctx context.Context, sess *session.Session, line string) State {
	if h.Auth != nil {
		if token, ok := strings.CutPrefix(line, authPrefix); ok {
			h.authorize(sess, token)
			return StateReading
		}
	}

	action, ok := h.Registry.Resolve(line)
	if !ok {
		h.Metrics.UnknownCommand()
		sess.Logger.Verbose("unknown command %q", line)
		return StateReading
	}
	h.Metrics.CommandRun()

	res, err := h.Registry.Execute(ctx, sess, action)
	if err != nil {
		h.fail(sess, err)
		return StateReading
	}

	if !res.Silent() {
		n, err := sess.Conn.Write(res.Payload)
		h.Metrics.BytesSent(int64(n))
		if err != nil {
			h.fail(sess, errors.Wrap("write", sess.Peer(), err))
			return StateClosed
		}
	}
	if res.Close {
		return StateClosed
	}
	return StateReading
}

func (h *Handler) authorize(sess *session.Session, token string) {
	if h.Auth.Equal([]byte(strings.TrimSpace(token))) {
		sess.Authorize()
		sess.Logger.Info("session authorized")
		return
	}
	h.fail(sess, errors.ErrNotAuthorized)
}

func (h *Handler) fail(sess *session.Session, err error) {
	h.Metrics.RecordError(err.Error())
	sess.Logger.Warn("%v", err)
}
