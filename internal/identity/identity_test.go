package identity

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pkcs12"

	"wiretrap/internal/errors"
)

const fixturePassphrase = "dispatch"

func TestLoad_PKCS12(t *testing.T) {
	id, err := Load(Source{
		PKCS12Path: filepath.Join("testdata", "identity.pfx"),
		Passphrase: NewSecret([]byte(fixturePassphrase)),
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost", id.Leaf().Subject.CommonName)
	assert.NotNil(t, id.cert.PrivateKey)
}

func TestLoad_PKCS12WrongPassphrase(t *testing.T) {
	_, err := Load(Source{
		PKCS12Path: filepath.Join("testdata", "identity.pfx"),
		Passphrase: NewSecret([]byte("not-it")),
	})
	require.Error(t, err)

	var ce *errors.CredentialError
	require.True(t, errors.As(err, &ce), "want CredentialError, got %T", err)
	assert.ErrorIs(t, err, pkcs12.ErrIncorrectPassword)
}

func TestLoad_PKCS12Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pfx")
	require.NoError(t, os.WriteFile(path, []byte("not a bundle"), 0o600))

	_, err := Load(Source{PKCS12Path: path, Passphrase: NewSecret([]byte(fixturePassphrase))})
	var ce *errors.CredentialError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, path, ce.Source)
}

func TestLoad_PEM(t *testing.T) {
	id, err := Load(Source{
		CertPath: filepath.Join("testdata", "cert.pem"),
		KeyPath:  filepath.Join("testdata", "key.pem"),
	})
	require.NoError(t, err)
	assert.Contains(t, id.Leaf().DNSNames, "localhost")
}

func TestLoad_PEMMismatchedKey(t *testing.T) {
	other, err := SelfSigned()
	require.NoError(t, err)

	_, err = LoadPEM(mustRead(t, "testdata/cert.pem"), pemKey(t, other))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(Source{PKCS12Path: filepath.Join(t.TempDir(), "missing.pfx")})
	var ce *errors.CredentialError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_NoSource(t *testing.T) {
	_, err := Load(Source{})
	assert.ErrorIs(t, err, errors.ErrNoIdentity)
}

func TestSelfSigned(t *testing.T) {
	id, err := SelfSigned("wiretrap.test", "10.1.2.3")
	require.NoError(t, err)

	leaf := id.Leaf()
	assert.Equal(t, []string{"wiretrap.test"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
	assert.Equal(t, "10.1.2.3", leaf.IPAddresses[0].String())
	require.NoError(t, leaf.VerifyHostname("wiretrap.test"))
}

func TestServerConfig(t *testing.T) {
	id, err := SelfSigned()
	require.NoError(t, err)

	a, b := id.ServerConfig(), id.ServerConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), a.MinVersion)
	assert.Equal(t, tls.NoClientCert, a.ClientAuth)
	assert.NotSame(t, a, b, "each call yields its own config value")
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
