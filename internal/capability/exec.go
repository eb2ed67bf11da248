package capability

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"wiretrap/internal/errors"
	"wiretrap/internal/session"
)

// defaultPath is the PATH handed to child processes.  The server's own
// environment is never inherited.
const defaultPath = "/usr/local/bin:/usr/bin:/bin"

// AllowList names the programs Exec may start.  Entries match either
// the program exactly as configured or its base name.
type AllowList []string

// Permits reports whether program may be executed.
func (a AllowList) Permits(program string) bool {
	return slices.Contains(a, program) || slices.Contains(a, filepath.Base(program))
}

// Exec runs a fixed program directly (no shell) and returns its
// captured stdout as the payload.
type Exec struct {
	Name    string   // command token, for diagnostics
	Argv    []string // program followed by its arguments
	Dir     string   // working directory
	Timeout time.Duration
	Allow   AllowList
}

// Invoke starts the program and waits for it.  A start failure, a
// non-zero exit status or a timeout yields *errors.ExecutionError and
// no payload.
func (e *Exec) Invoke(ctx context.Context, sess *session.Session) (Result, error) {
	if len(e.Argv) == 0 {
		return Result{}, e.fail(fmt.Errorf("no program configured"), "")
	}
	program := e.Argv[0]
	if !e.Allow.Permits(program) {
		return Result{}, e.fail(fmt.Errorf("%w: %s", errors.ErrProgramNotAllowed, program), "")
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, program, e.Argv[1:]...)
	cmd.Dir = e.Dir
	cmd.Env = childEnv()
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	sess.Logger.Debug("exec: %s (dir %q)", cmd.String(), e.Dir)

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w after %v", errors.ErrTimeout, e.Timeout)
		}
		return Result{}, e.fail(err, strings.TrimSpace(stderr.String()))
	}

	sess.Logger.Verbose("%s: command executed successfully (%d bytes)", e.Name, stdout.Len())
	return Result{Payload: stdout.Bytes()}, nil
}

func (e *Exec) fail(err error, stderr string) error {
	return &errors.ExecutionError{Command: e.Name, Err: err, Stderr: stderr}
}

// childEnv builds the minimal environment for child processes.
func childEnv() []string {
	path := defaultPath
	if v := os.Getenv("WIRETRAP_CHILD_PATH"); v != "" {
		path = v
	}
	return []string{"PATH=" + path, "LANG=C", "LC_ALL=C"}
}
