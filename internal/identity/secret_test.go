package identity

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Equal(t *testing.T) {
	s := NewSecret([]byte("hunter2"))
	defer s.Destroy()

	assert.True(t, s.Equal([]byte("hunter2")))
	assert.False(t, s.Equal([]byte("hunter3")))
	assert.False(t, s.Equal(nil))
	assert.Equal(t, []byte("hunter2"), s.Bytes())
}

func TestSecret_Empty(t *testing.T) {
	var nilSecret *Secret
	assert.True(t, nilSecret.Empty())
	assert.Nil(t, nilSecret.Bytes())
	assert.False(t, nilSecret.Equal(nil))

	empty := NewSecret(nil)
	assert.True(t, empty.Empty())
	assert.False(t, empty.Equal([]byte("")))
}

func TestSecret_Destroy(t *testing.T) {
	s := NewSecret([]byte("gone"))
	s.Destroy()
	assert.True(t, s.Empty())
	assert.False(t, s.Equal([]byte("gone")))
}

func TestReadPassphrase_File(t *testing.T) {
	t.Setenv(PassphraseEnv, "from-env")

	s, err := ReadPassphrase(PassphraseOptions{File: filepath.Join("testdata", "passphrase.txt")})
	require.NoError(t, err)
	assert.True(t, s.Equal([]byte(fixturePassphrase)), "file wins over env and the newline is trimmed")
}

func TestReadPassphrase_Env(t *testing.T) {
	t.Setenv(PassphraseEnv, "from-env")

	s, err := ReadPassphrase(PassphraseOptions{})
	require.NoError(t, err)
	assert.True(t, s.Equal([]byte("from-env")))
}

func TestReadPassphrase_NoTerminal(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	os.Unsetenv(PassphraseEnv) //nolint:errcheck // t.Setenv restores it

	// A regular file is never a terminal, so no prompt happens.
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	s, err := ReadPassphrase(PassphraseOptions{Prompt: true, Stdin: f})
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestReadSecretFile_Missing(t *testing.T) {
	_, err := ReadSecretFile(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func pemKey(t *testing.T, id *Identity) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(id.cert.PrivateKey)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}
