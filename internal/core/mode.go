// Package core is the orchestration layer.  It composes the identity,
// transport, dispatch and sandbox packages into complete operational
// modes and provides a builder that selects the right mode from a
// Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  capability  →  dispatch  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of wiretrap (serve or
// connect).  Each mode owns its full lifecycle from socket setup to
// teardown.
type Mode interface {
	Run(ctx context.Context) error
}
