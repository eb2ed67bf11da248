package capability

import (
	"context"
	"time"

	"wiretrap/internal/session"
)

// Ack acknowledges a command locally.  Nothing is written to the peer.
type Ack struct {
	Name string
}

// Invoke logs the call and returns a silent result.
func (a *Ack) Invoke(_ context.Context, sess *session.Session) (Result, error) {
	sess.Logger.Info("%s called", a.Name)
	return Result{}, nil
}

// Farewell writes a fixed message and ends the session.
type Farewell struct {
	Message string
}

// Invoke returns the farewell payload with Close set.
func (f *Farewell) Invoke(_ context.Context, sess *session.Session) (Result, error) {
	sess.Logger.Info("closing session on request after %v", sess.Age().Truncate(time.Millisecond))
	return Result{Payload: []byte(f.Message), Close: true}, nil
}
