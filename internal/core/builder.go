package core

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"wiretrap/config"
	"wiretrap/internal/capability"
	"wiretrap/internal/dispatch"
	"wiretrap/internal/errors"
	"wiretrap/internal/identity"
	"wiretrap/internal/metrics"
	"wiretrap/internal/retry"
	"wiretrap/internal/sandbox"
	"wiretrap/internal/transport"
	"wiretrap/util"
)

// Command tokens understood by the server.
const (
	CmdList = "foo"
	CmdAck  = "bar"
	CmdExit = "exit"
)

// Build constructs the appropriate Mode from the given configuration.
// Everything that can fail at startup (identity, passphrase, auth token)
// is loaded here, so a successful Build means Run only has to bind.
func Build(cfg *config.Config, logger *util.Logger, version string) (Mode, error) {
	if cfg.Connect {
		return buildConnect(cfg, logger)
	}
	return buildServe(cfg, logger, version)
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger, version string) (Mode, error) {
	id, err := loadIdentity(cfg)
	if err != nil {
		return nil, err
	}
	logger.Verbose("identity: %s (expires %s)", id.Leaf().Subject, id.Leaf().NotAfter.Format("2006-01-02"))

	auth, err := loadAuthToken(cfg)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()
	handler := &dispatch.Handler{
		Acceptor:    transport.NewTLSAcceptor(id.ServerConfig(), cfg.HandshakeTimeout),
		Registry:    BuildRegistry(cfg, logger, auth != nil),
		IdleTimeout: cfg.IdleTimeout,
		Metrics:     collector,
		Logger:      logger,
	}
	// A nil *Secret must not become a non-nil interface.
	if auth != nil {
		handler.Auth = auth
	}

	mode := &ServeMode{
		Address:  cfg.Address,
		MaxConns: cfg.MaxConns,
		Handler:  handler,
		Backoff:  retry.AcceptBackoff(),
		Grace:    config.DefaultGracePeriod,
		Version:  version,
		Logger:   logger,
		Metrics:  collector,
	}
	if cfg.Sandbox {
		mode.Sandbox = sandbox.ForListing(cfg.ListDir, logger)
	}
	return mode, nil
}

func buildConnect(cfg *config.Config, logger *util.Logger) (Mode, error) {
	tlsCfg, err := clientTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Insecure {
		logger.Warn("certificate verification disabled (--insecure)")
	}

	backoff := retry.DefaultBackoff()
	backoff.MaxAttempts = cfg.Retries

	return &ConnectMode{
		Dialer: &transport.TLSDialer{
			TCP:    &transport.TCPDialer{Timeout: cfg.DialTimeout},
			Config: tlsCfg,
		},
		Address: cfg.Address,
		Backoff: backoff,
		Logger:  logger,
	}, nil
}

// BuildRegistry wires the command table.
func BuildRegistry(cfg *config.Config, logger *util.Logger, requireAuth bool) *dispatch.Registry {
	reg := dispatch.NewRegistry(requireAuth)
	reg.RegisterPrivileged(CmdList, &capability.Exec{
		Name:    CmdList,
		Argv:    cfg.ListCommand,
		Dir:     cfg.ListDir,
		Timeout: cfg.ActionTimeout,
		Allow:   capability.AllowList(cfg.AllowedPrograms),
	})
	reg.Register(CmdAck, &capability.Ack{Name: CmdAck})
	reg.Register(CmdExit, &capability.Farewell{Message: config.FarewellPayload})

	gate := "off"
	if reg.RequiresAuth() {
		gate = "on"
	}
	logger.Verbose("commands: %s (auth gate %s)", strings.Join(reg.Tokens(), ", "), gate)
	return reg
}

// ── shared helpers ───────────────────────────────────────────────────

func loadIdentity(cfg *config.Config) (*identity.Identity, error) {
	if cfg.SelfSigned {
		return identity.SelfSigned()
	}

	var pass *identity.Secret
	if cfg.IdentityPath != "" {
		var err error
		pass, err = identity.ReadPassphrase(identity.PassphraseOptions{
			File:   cfg.PassphraseFile,
			Prompt: !cfg.DryRun,
		})
		if err != nil {
			return nil, &errors.CredentialError{Source: cfg.IdentityPath, Err: err}
		}
		defer pass.Destroy()
	}

	return identity.Load(identity.Source{
		PKCS12Path: cfg.IdentityPath,
		CertPath:   cfg.CertPath,
		KeyPath:    cfg.KeyPath,
		Passphrase: pass,
	})
}

// loadAuthToken returns nil when no token is configured.
func loadAuthToken(cfg *config.Config) (*identity.Secret, error) {
	switch {
	case cfg.AuthTokenFile != "":
		s, err := identity.ReadSecretFile(cfg.AuthTokenFile)
		if err != nil {
			return nil, &errors.CredentialError{Source: cfg.AuthTokenFile, Err: err}
		}
		if s.Empty() {
			return nil, &errors.CredentialError{Source: cfg.AuthTokenFile, Err: fmt.Errorf("auth token is empty")}
		}
		return s, nil
	case cfg.AuthToken != "":
		return identity.NewSecret([]byte(cfg.AuthToken)), nil
	}
	return nil, nil
}

func clientTLSConfig(cfg *config.Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.Insecure, //nolint:gosec // opt-in via --insecure
	}
	if cfg.CAPath != "" {
		pem, err := os.ReadFile(cfg.CAPath)
		if err != nil {
			return nil, &errors.CredentialError{Source: cfg.CAPath, Err: err}
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, &errors.CredentialError{Source: cfg.CAPath, Err: fmt.Errorf("no certificates found")}
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
