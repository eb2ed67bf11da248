// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"wiretrap/config"
	"wiretrap/internal/core"
	"wiretrap/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X wiretrap/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate wiretrap mode.
// Precedence is flags, then WIRETRAP_* environment, then defaults.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("wiretrap", flag.ContinueOnError)

	// CountVarP resets its target; -v adds to the env/default level.
	baseVerbosity := cfg.Verbose

	// ── listener ─────────────────────────────────────────────────
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Maximum concurrent sessions")
	fs.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "TLS handshake deadline")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Close sessions idle this long (0 disables)")

	// ── identity ─────────────────────────────────────────────────
	fs.StringVar(&cfg.IdentityPath, "identity", cfg.IdentityPath, "PKCS#12 bundle with certificate chain and key")
	fs.StringVar(&cfg.CertPath, "cert", cfg.CertPath, "PEM certificate chain (with --key)")
	fs.StringVar(&cfg.KeyPath, "key", cfg.KeyPath, "PEM private key (with --cert)")
	fs.StringVar(&cfg.PassphraseFile, "passphrase-file", cfg.PassphraseFile, "File holding the bundle passphrase")
	fs.BoolVar(&cfg.SelfSigned, "self-signed", cfg.SelfSigned, "Generate an ephemeral identity (development only)")

	// ── actions ──────────────────────────────────────────────────
	listCmd := strings.Join(cfg.ListCommand, " ")
	fs.StringVar(&listCmd, "list-cmd", listCmd, "Program and arguments run for the listing command")
	fs.StringVar(&cfg.ListDir, "list-dir", cfg.ListDir, "Directory the listing command runs in")
	fs.StringSliceVar(&cfg.AllowedPrograms, "allow", cfg.AllowedPrograms, "Programs the server may execute")
	fs.DurationVar(&cfg.ActionTimeout, "action-timeout", cfg.ActionTimeout, "Deadline for one executed command")
	fs.StringVar(&cfg.AuthTokenFile, "auth-token-file", cfg.AuthTokenFile, "Require 'auth <token>' before privileged commands")
	fs.BoolVar(&cfg.Sandbox, "sandbox", cfg.Sandbox, "Confine the process with Landlock after binding")

	// ── connect mode ─────────────────────────────────────────────
	fs.BoolVar(&cfg.Connect, "connect", cfg.Connect, "Connect to a server and relay stdin/stdout")
	fs.StringVar(&cfg.CAPath, "ca", cfg.CAPath, "PEM CA bundle trusted in connect mode")
	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "Expected server name in connect mode")
	fs.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "Skip certificate verification in connect mode")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Dial attempts in connect mode")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "Log JSON lines instead of text")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate configuration and identity, then exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Verbose += baseVerbosity

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("wiretrap %s\n", version)
		return nil
	}

	cfg.ListCommand = strings.Fields(listCmd)

	// ── positional arguments ─────────────────────────────────────
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.Address = rest[0]
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetJSON(cfg.LogJSON)

	mode, err := core.Build(cfg, logger, version)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		logger.Info("configuration OK")
		return nil
	}
	return mode.Run(ctx)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `wiretrap – TLS command-dispatch server v%s

Serves a small fixed command set over TLS: "foo" lists a directory,
"bar" is acknowledged silently and "exit" says goodbye and hangs up.

Usage:
  wiretrap [options] [address]                Serve (default %s)
  wiretrap --connect [options] host:port      Connect and relay stdin/stdout

Options:
`, version, config.DefaultAddress)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  WIRETRAP_PASSPHRASE    bundle passphrase when --passphrase-file is unset
  WIRETRAP_AUTH_TOKEN    enables the 'auth <token>' gate
  WIRETRAP_*             every option above, e.g. WIRETRAP_MAX_CONNS=64

Examples:
  wiretrap --identity server.pfx 0.0.0.0:2408    Serve with a PKCS#12 identity
  wiretrap --self-signed -vv                     Local development server
  echo foo | wiretrap --connect --ca ca.pem localhost:2408
`)
}
