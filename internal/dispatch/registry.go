// Package dispatch maps command lines read from a session onto
// capabilities and runs the per-connection read/dispatch/write loop.
package dispatch

import (
	"context"
	"fmt"
	"sort"

	"wiretrap/internal/capability"
	"wiretrap/internal/errors"
	"wiretrap/internal/session"
)

// Action is a registered command.
type Action struct {
	Token      string
	Capability capability.Capability
	// Privileged actions touch the host and may require an authorized
	// session.
	Privileged bool
}

// Registry is the fixed command table.  It is built before the
// listener starts and only read afterwards, so lookups need no lock.
type Registry struct {
	actions     map[string]*Action
	requireAuth bool
}

// NewRegistry returns an empty registry.  With requireAuth set,
// privileged actions only run on authorized sessions.
func NewRegistry(requireAuth bool) *Registry {
	return &Registry{actions: make(map[string]*Action), requireAuth: requireAuth}
}

// Register adds an unprivileged command.  Registering a token twice
// panics: the table is wired once at startup.
func (r *Registry) Register(token string, c capability.Capability) {
	r.add(&Action{Token: token, Capability: c})
}

// RegisterPrivileged adds a command that runs a host operation.
func (r *Registry) RegisterPrivileged(token string, c capability.Capability) {
	r.add(&Action{Token: token, Capability: c, Privileged: true})
}

func (r *Registry) add(a *Action) {
	if _, dup := r.actions[a.Token]; dup {
		panic(fmt.Sprintf("dispatch: command %q registered twice", a.Token))
	}
	r.actions[a.Token] = a
}

// Resolve looks token up exactly and case-sensitively.
func (r *Registry) Resolve(token string) (*Action, bool) {
	a, ok := r.actions[token]
	return a, ok
}

// Tokens returns the registered tokens in sorted order.
func (r *Registry) Tokens() []string {
	out := make([]string, 0, len(r.actions))
	for t := range r.actions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// RequiresAuth reports whether privileged actions are gated.
func (r *Registry) RequiresAuth() bool { return r.requireAuth }

// Execute runs a on sess.  An unauthorized privileged call fails with
// an *errors.ExecutionError wrapping errors.ErrNotAuthorized and never
// reaches the capability.
func (r *Registry) Execute(ctx context.Context, sess *session.Session, a *Action) (capability.Result, error) {
	if a.Privileged && r.requireAuth && !sess.Authorized() {
		return capability.Result{}, &errors.ExecutionError{Command: a.Token, Err: errors.ErrNotAuthorized}
	}
	return a.Capability.Invoke(ctx, sess)
}
