package identity

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
	"golang.org/x/term"
)

// PassphraseEnv names the environment variable consulted for the
// bundle passphrase when no passphrase file is given.
const PassphraseEnv = "WIRETRAP_PASSPHRASE"

// Secret holds a passphrase or token in guarded memory.  A nil or empty
// Secret behaves as the empty string.
type Secret struct {
	buf *memguard.LockedBuffer
}

// NewSecret moves b into guarded memory.  b is wiped.
func NewSecret(b []byte) *Secret {
	return &Secret{buf: memguard.NewBufferFromBytes(b)}
}

// Bytes returns a copy of the secret.  Callers should zero it when done.
func (s *Secret) Bytes() []byte {
	if s.Empty() {
		return nil
	}
	b := s.buf.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Empty reports whether the secret holds no bytes.
func (s *Secret) Empty() bool {
	return s == nil || s.buf == nil || !s.buf.IsAlive() || s.buf.Size() == 0
}

// Equal compares candidate against the secret in constant time.  An
// empty secret matches nothing.
func (s *Secret) Equal(candidate []byte) bool {
	if s.Empty() {
		return false
	}
	return subtle.ConstantTimeCompare(s.buf.Bytes(), candidate) == 1
}

// Destroy wipes the secret.
func (s *Secret) Destroy() {
	if s == nil || s.buf == nil {
		return
	}
	s.buf.Destroy()
}

// ReadSecretFile loads a secret from path, trimming one trailing
// newline.
func ReadSecretFile(path string) (*Secret, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", path, err)
	}
	data = bytes.TrimRight(data, "\r\n")
	return NewSecret(data), nil
}

// PassphraseOptions controls ReadPassphrase.
type PassphraseOptions struct {
	File   string    // takes precedence when set
	Prompt bool      // ask on the terminal as a last resort
	Stdin  *os.File  // defaults to os.Stdin
	Out    io.Writer // prompt destination, defaults to os.Stderr
}

// ReadPassphrase resolves the bundle passphrase: the file first, then
// $WIRETRAP_PASSPHRASE, then an interactive prompt when stdin is a
// terminal.  With none of those the passphrase is empty.
func ReadPassphrase(opts PassphraseOptions) (*Secret, error) {
	if opts.File != "" {
		return ReadSecretFile(opts.File)
	}
	if v, ok := os.LookupEnv(PassphraseEnv); ok {
		return NewSecret([]byte(v)), nil
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	if !opts.Prompt || !term.IsTerminal(int(stdin.Fd())) {
		return NewSecret(nil), nil
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprint(out, "Identity passphrase: ")
	pass, err := term.ReadPassword(int(stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return NewSecret(pass), nil
}
