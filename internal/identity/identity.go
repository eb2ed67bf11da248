// Package identity loads the server's TLS identity once at startup.
//
// An Identity is immutable after Load returns.  The *tls.Config handed
// to the acceptor is derived from it and shared read-only by every
// concurrent handshake.
package identity

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"wiretrap/internal/errors"
)

// Identity is the server's certificate chain and private key.
type Identity struct {
	cert tls.Certificate
	leaf *x509.Certificate
}

// Source selects where Load reads credential material from.  Exactly
// one of PKCS12Path or CertPath/KeyPath is used.
type Source struct {
	PKCS12Path string
	CertPath   string
	KeyPath    string
	Passphrase *Secret // only used for PKCS12Path
}

// Load reads and decodes the identity named by src.  Every failure is a
// *errors.CredentialError.
func Load(src Source) (*Identity, error) {
	switch {
	case src.PKCS12Path != "":
		data, err := os.ReadFile(src.PKCS12Path)
		if err != nil {
			return nil, &errors.CredentialError{Source: src.PKCS12Path, Err: err}
		}
		pass := src.Passphrase.Bytes()
		defer wipe(pass)
		id, err := LoadPKCS12(data, pass)
		if err != nil {
			return nil, &errors.CredentialError{Source: src.PKCS12Path, Err: err}
		}
		return id, nil

	case src.CertPath != "" && src.KeyPath != "":
		certPEM, err := os.ReadFile(src.CertPath)
		if err != nil {
			return nil, &errors.CredentialError{Source: src.CertPath, Err: err}
		}
		keyPEM, err := os.ReadFile(src.KeyPath)
		if err != nil {
			return nil, &errors.CredentialError{Source: src.KeyPath, Err: err}
		}
		defer wipe(keyPEM)
		id, err := LoadPEM(certPEM, keyPEM)
		if err != nil {
			return nil, &errors.CredentialError{Source: src.CertPath, Err: err}
		}
		return id, nil
	}
	return nil, &errors.CredentialError{Source: "<none>", Err: errors.ErrNoIdentity}
}

// LoadPKCS12 decodes a PKCS#12 bundle.  The bundle may carry a chain;
// the certificate whose localKeyId matches the key becomes the leaf.
func LoadPKCS12(data, passphrase []byte) (*Identity, error) {
	blocks, err := pkcs12.ToPEM(data, string(passphrase))
	if err != nil {
		return nil, fmt.Errorf("decode pkcs12: %w", err)
	}

	var key *pem.Block
	var certs []*pem.Block
	for _, b := range blocks {
		switch {
		case b.Type == "CERTIFICATE":
			certs = append(certs, b)
		case strings.HasSuffix(b.Type, "PRIVATE KEY"):
			if key != nil {
				return nil, fmt.Errorf("pkcs12: bundle carries more than one private key")
			}
			key = b
		}
	}
	if key == nil {
		return nil, fmt.Errorf("pkcs12: no private key in bundle")
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("pkcs12: no certificate in bundle")
	}

	// Leaf first, then the rest in bundle order.
	ordered := make([]*pem.Block, 0, len(certs))
	keyID := key.Headers["localKeyId"]
	for _, c := range certs {
		if keyID != "" && c.Headers["localKeyId"] == keyID {
			ordered = append(ordered, c)
		}
	}
	for _, c := range certs {
		if keyID == "" || c.Headers["localKeyId"] != keyID {
			ordered = append(ordered, c)
		}
	}

	var certPEM bytes.Buffer
	for _, c := range ordered {
		if err := pem.Encode(&certPEM, &pem.Block{Type: c.Type, Bytes: c.Bytes}); err != nil {
			return nil, fmt.Errorf("pkcs12: re-encode certificate: %w", err)
		}
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: key.Type, Bytes: key.Bytes})
	defer wipe(keyPEM)

	return LoadPEM(certPEM.Bytes(), keyPEM)
}

// LoadPEM builds an identity from a PEM certificate chain (leaf first)
// and a PEM private key.
func LoadPEM(certPEM, keyPEM []byte) (*Identity, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("key pair: %w", err)
	}
	return fromCertificate(cert)
}

func fromCertificate(cert tls.Certificate) (*Identity, error) {
	leaf := cert.Leaf
	if leaf == nil {
		var err error
		leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("parse leaf: %w", err)
		}
		cert.Leaf = leaf
	}
	return &Identity{cert: cert, leaf: leaf}, nil
}

// Leaf returns the parsed leaf certificate.
func (id *Identity) Leaf() *x509.Certificate { return id.leaf }

// ServerConfig returns the acceptor configuration derived from id.
// Client certificates are not requested.
func (id *Identity) ServerConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{id.cert},
		MinVersion:   tls.VersionTLS12,
		ClientAuth:   tls.NoClientCert,
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
