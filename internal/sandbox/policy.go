// Package sandbox confines the server process with Landlock once the
// listener is bound.  Only read access to the listing directory and to
// the system paths the listing program needs survives.
package sandbox

import (
	"os"
	"path/filepath"

	"wiretrap/util"
)

// systemPaths are needed to start and run the listing program: the
// binaries, their libraries, user/group lookups and /dev/null for the
// child's stdin.
var systemPaths = []string{ //nolint:gochecknoglobals
	"/bin",
	"/usr",
	"/lib",
	"/lib64",
	"/etc",
	"/dev/null",
}

// Policy is a read-only filesystem allow-list applied to the whole
// process.
type Policy struct {
	ReadOnly []string
	// BestEffort degrades to the strongest Landlock ABI the kernel
	// offers instead of failing.
	BestEffort bool
	Logger     *util.Logger
}

// ForListing returns the policy for a server that lists dir.
func ForListing(dir string, logger *util.Logger) *Policy {
	ro := append([]string{dir}, systemPaths...)
	return &Policy{ReadOnly: ro, BestEffort: true, Logger: logger}
}

// paths returns the absolute, existing, de-duplicated entries of
// ReadOnly along with whether each is a directory.
func (p *Policy) paths() (dirs, files []string) {
	seen := make(map[string]bool, len(p.ReadOnly))
	for _, path := range p.ReadOnly {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true

		info, err := os.Stat(abs)
		if err != nil {
			p.Logger.Debug("sandbox: skipping %s: %v", abs, err)
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, abs)
		} else {
			files = append(files, abs)
		}
	}
	return dirs, files
}
