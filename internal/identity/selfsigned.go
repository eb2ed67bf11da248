package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"

	"wiretrap/internal/errors"
)

// selfSignedLifetime is how long a generated certificate stays valid.
const selfSignedLifetime = 24 * time.Hour

// SelfSigned generates an ephemeral P-256 identity valid for hosts
// (DNS names or IP literals).  It defaults to localhost and 127.0.0.1.
func SelfSigned(hosts ...string) (*Identity, error) {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, &errors.CredentialError{Source: "self-signed", Err: fmt.Errorf("generate key: %w", err)}
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 127)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, &errors.CredentialError{Source: "self-signed", Err: fmt.Errorf("serial number: %w", err)}
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"wiretrap"},
			CommonName:   hosts[0],
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(selfSignedLifetime),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, &errors.CredentialError{Source: "self-signed", Err: fmt.Errorf("sign certificate: %w", err)}
	}

	return fromCertificate(tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	})
}
