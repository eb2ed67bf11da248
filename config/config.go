// Package config defines the runtime configuration for wiretrap and
// validates it before any socket is opened.
package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"wiretrap/internal/errors"
	"wiretrap/util"
)

// Config holds every tuneable for a wiretrap process.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	Address          string // listen address, or server address with Connect
	MaxConns         int
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration // 0 disables the per-read deadline

	// ── Identity ─────────────────────────────────────────────────────
	IdentityPath   string // PKCS#12 bundle
	CertPath       string // PEM certificate chain (alternative to IdentityPath)
	KeyPath        string // PEM private key
	PassphraseFile string
	SelfSigned     bool // ephemeral identity, development only

	// ── Actions ──────────────────────────────────────────────────────
	ListCommand     []string // argv of the privileged listing action
	ListDir         string
	AllowedPrograms []string
	ActionTimeout   time.Duration
	AuthTokenFile   string
	AuthToken       string // from WIRETRAP_AUTH_TOKEN; never a flag
	Sandbox         bool

	// ── Connect mode ─────────────────────────────────────────────────
	Connect     bool
	CAPath      string
	ServerName  string
	Insecure    bool
	DialTimeout time.Duration
	Retries     int

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	LogJSON bool
	DryRun  bool
}

// Default returns a Config populated with the defaults from defaults.go.
func Default() *Config {
	return &Config{
		Address:          DefaultAddress,
		MaxConns:         DefaultMaxConns,
		HandshakeTimeout: DefaultHandshakeTimeout,
		IdleTimeout:      DefaultIdleTimeout,
		ListCommand:      DefaultListCommand(),
		ListDir:          DefaultListDir,
		AllowedPrograms:  DefaultAllowedPrograms(),
		ActionTimeout:    DefaultActionTimeout,
		DialTimeout:      DefaultDialTimeout,
		Retries:          DefaultDialRetries,
		Verbose:          1,
	}
}

// AuthRequired reports whether privileged actions need a prior
// `auth <token>` on the session.
func (c *Config) AuthRequired() bool {
	return c.AuthToken != "" || c.AuthTokenFile != ""
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if _, _, err := util.SplitAddr(c.Address); err != nil {
		return &errors.ConfigError{
			Field:   "address",
			Value:   c.Address,
			Message: err.Error(),
			Hint:    "use host:port, e.g. " + DefaultAddress,
		}
	}

	if c.Connect {
		return c.validateConnect()
	}
	return c.validateServe()
}

func (c *Config) validateServe() error {
	if c.MaxConns <= 0 {
		return &errors.ConfigError{
			Field:   "max-conns",
			Value:   c.MaxConns,
			Message: "must be positive",
			Hint:    fmt.Sprintf("the default is %d", DefaultMaxConns),
		}
	}
	if c.HandshakeTimeout < 0 || c.IdleTimeout < 0 || c.ActionTimeout < 0 {
		return &errors.ConfigError{
			Field:   "timeout",
			Message: "timeouts must not be negative",
		}
	}

	switch {
	case c.SelfSigned && (c.IdentityPath != "" || c.CertPath != ""):
		return &errors.ConfigError{
			Field:   "self-signed",
			Message: "mutually exclusive with --identity and --cert",
		}
	case c.IdentityPath != "" && (c.CertPath != "" || c.KeyPath != ""):
		return &errors.ConfigError{
			Field:   "identity",
			Value:   c.IdentityPath,
			Message: "mutually exclusive with --cert/--key",
		}
	case (c.CertPath == "") != (c.KeyPath == ""):
		return &errors.ConfigError{
			Field:   "cert",
			Message: "--cert and --key must be given together",
		}
	case !c.SelfSigned && c.IdentityPath == "" && c.CertPath == "":
		return &errors.ConfigError{
			Field:   "identity",
			Message: "no server identity configured",
			Hint:    "pass --identity bundle.pfx, --cert/--key, or --self-signed for development",
		}
	}

	if len(c.ListCommand) == 0 {
		return &errors.ConfigError{
			Field:   "list-cmd",
			Message: "must name a program",
		}
	}
	if !slices.Contains(c.AllowedPrograms, filepath.Base(c.ListCommand[0])) &&
		!slices.Contains(c.AllowedPrograms, c.ListCommand[0]) {
		return &errors.ConfigError{
			Field:   "list-cmd",
			Value:   c.ListCommand[0],
			Message: "program is not on the allow-list",
			Hint:    "add it with --allow " + c.ListCommand[0],
		}
	}
	return nil
}

func (c *Config) validateConnect() error {
	if c.Insecure && c.CAPath != "" {
		return &errors.ConfigError{
			Field:   "insecure",
			Message: "mutually exclusive with --ca",
		}
	}
	if c.Retries < 1 {
		return &errors.ConfigError{
			Field:   "retries",
			Value:   c.Retries,
			Message: "must be at least 1",
		}
	}
	return nil
}
