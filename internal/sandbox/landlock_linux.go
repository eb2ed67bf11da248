//go:build linux

package sandbox

import (
	"fmt"

	"github.com/landlock-lsm/go-landlock/landlock"
)

// Apply restricts the calling process.  It cannot be undone.
func (p *Policy) Apply() error {
	dirs, files := p.paths()

	// Landlock rejects directory rights on regular files.
	rules := make([]landlock.Rule, 0, 2)
	if len(dirs) > 0 {
		rules = append(rules, landlock.RODirs(dirs...))
	}
	if len(files) > 0 {
		rules = append(rules, landlock.ROFiles(files...))
	}

	var err error
	if p.BestEffort {
		err = landlock.V6.BestEffort().RestrictPaths(rules...)
	} else {
		err = landlock.V6.RestrictPaths(rules...)
	}
	if err != nil {
		return fmt.Errorf("landlock: %w", err)
	}

	p.Logger.Verbose("sandbox: read-only access to %d directories and %d files", len(dirs), len(files))
	return nil
}
