package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the WIRETRAP_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  The identity
// passphrase (WIRETRAP_PASSPHRASE) is read by the identity package
// directly so that it never sits in Config.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("WIRETRAP_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := envInt("WIRETRAP_MAX_CONNS"); v > 0 {
		cfg.MaxConns = v
	}
	if v := envInt("WIRETRAP_HANDSHAKE_TIMEOUT"); v > 0 {
		cfg.HandshakeTimeout = secondsDuration(v)
	}
	if v := envInt("WIRETRAP_IDLE_TIMEOUT"); v > 0 {
		cfg.IdleTimeout = secondsDuration(v)
	}

	// Identity
	if v := os.Getenv("WIRETRAP_IDENTITY"); v != "" {
		cfg.IdentityPath = v
	}
	if v := os.Getenv("WIRETRAP_CERT"); v != "" {
		cfg.CertPath = v
	}
	if v := os.Getenv("WIRETRAP_KEY"); v != "" {
		cfg.KeyPath = v
	}
	if v := os.Getenv("WIRETRAP_PASSPHRASE_FILE"); v != "" {
		cfg.PassphraseFile = v
	}

	// Actions
	if v := os.Getenv("WIRETRAP_LIST_CMD"); v != "" {
		cfg.ListCommand = strings.Fields(v)
	}
	if v := os.Getenv("WIRETRAP_LIST_DIR"); v != "" {
		cfg.ListDir = v
	}
	if v := os.Getenv("WIRETRAP_ALLOW"); v != "" {
		cfg.AllowedPrograms = splitList(v)
	}
	if v := envInt("WIRETRAP_ACTION_TIMEOUT"); v > 0 {
		cfg.ActionTimeout = secondsDuration(v)
	}
	if v := os.Getenv("WIRETRAP_AUTH_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("WIRETRAP_AUTH_TOKEN_FILE"); v != "" {
		cfg.AuthTokenFile = v
	}
	if envBool("WIRETRAP_SANDBOX") {
		cfg.Sandbox = true
	}

	// Connect mode
	if v := os.Getenv("WIRETRAP_CA"); v != "" {
		cfg.CAPath = v
	}
	if v := os.Getenv("WIRETRAP_SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}

	// Output
	if v := envInt("WIRETRAP_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if envBool("WIRETRAP_LOG_JSON") {
		cfg.LogJSON = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
