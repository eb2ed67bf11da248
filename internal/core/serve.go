package core

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"wiretrap/config"
	"wiretrap/internal/errors"
	"wiretrap/internal/metrics"
	"wiretrap/internal/retry"
	"wiretrap/internal/sandbox"
	"wiretrap/util"
)

// ConnHandler serves one accepted connection.  Serve must return once
// ctx is cancelled.
type ConnHandler interface {
	Serve(ctx context.Context, raw net.Conn)
}

// ServeMode binds the listener and runs the accept loop.  At most
// MaxConns connections are served at once; further clients wait in the
// kernel backlog until a slot frees up.
type ServeMode struct {
	Address  string
	MaxConns int
	Handler  ConnHandler
	Backoff  *retry.Backoff  // pause schedule for temporary accept errors
	Sandbox  *sandbox.Policy // applied after bind when non-nil
	Grace    time.Duration   // how long shutdown waits for live sessions
	Version  string
	Logger   *util.Logger
	Metrics  *metrics.Collector
}

// Run binds Address and serves until ctx is cancelled.  A bind failure
// is an *errors.BindError.
func (m *ServeMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return &errors.BindError{Addr: m.Address, Err: err}
	}
	defer ln.Close()

	if m.Sandbox != nil {
		if err := m.Sandbox.Apply(); err != nil {
			return err
		}
	}

	m.Logger.Info("wiretrap %s on %s", m.Version, ln.Addr())
	return m.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled or ln fails.  It returns
// nil on cancellation and an *errors.NetworkError when the listener
// breaks underneath it.  Live sessions are closed before Serve returns.
func (m *ServeMode) Serve(ctx context.Context, ln net.Listener) error {
	sessCtx, closeSessions := context.WithCancel(ctx)
	defer closeSessions()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	err := m.acceptLoop(ctx, sessCtx, ln, &wg)

	closeSessions()
	m.drain(&wg)
	m.Logger.Info("shutdown: %s", m.Metrics.JSON())
	return err
}

func (m *ServeMode) acceptLoop(ctx, sessCtx context.Context, ln net.Listener, wg *sync.WaitGroup) error {
	maxConns := m.MaxConns
	if maxConns <= 0 {
		maxConns = config.DefaultMaxConns
	}
	sem := semaphore.NewWeighted(int64(maxConns))

	backoff := m.Backoff
	if backoff == nil {
		backoff = retry.AcceptBackoff()
	}
	addr := ln.Addr().String()

	failures := 0
	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		raw, err := ln.Accept()
		if err != nil {
			sem.Release(1)
			if ctx.Err() != nil {
				return nil
			}
			if errors.IsRetryable(err) {
				failures++
				delay := backoff.Delay(failures)
				m.Logger.Warn("accept: %v; retrying in %v", err, delay)
				m.Metrics.RecordError(err.Error())
				if werr := backoff.Wait(ctx, failures); werr != nil {
					return nil
				}
				continue
			}
			return errors.Wrap("accept", addr, err)
		}
		failures = 0

		m.Logger.Debug("connection from %s", raw.RemoteAddr())
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			m.Handler.Serve(sessCtx, raw)
		}()
	}
}

// drain waits for live sessions, at most Grace.
func (m *ServeMode) drain(wg *sync.WaitGroup) {
	grace := m.Grace
	if grace <= 0 {
		grace = config.DefaultGracePeriod
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		m.Logger.Warn("shutdown: %d sessions still open after %v", m.Metrics.ActiveConnections(), grace)
	}
}
