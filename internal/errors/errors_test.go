package errors

import (
	"fmt"
	"io"
	"net"
	"os"
	"testing"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "accept", Addr: "127.0.0.1:2408", Err: io.EOF, Retryable: true},
			want: "accept 127.0.0.1:2408: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "write", Addr: "10.0.0.7:51234", Err: fmt.Errorf("broken pipe")},
			want: "write 10.0.0.7:51234: broken pipe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "read", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestScopedErrors_Format(t *testing.T) {
	inner := fmt.Errorf("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"credential", &CredentialError{Source: "identity.pfx", Err: inner}, "credential identity.pfx: boom"},
		{"bind", &BindError{Addr: "127.0.0.1:2408", Err: inner}, "bind 127.0.0.1:2408: boom"},
		{"handshake", &HandshakeError{Peer: "127.0.0.1:40000", Err: inner}, "handshake with 127.0.0.1:40000: boom"},
		{"decode", &DecodeError{Peer: "127.0.0.1:40000", Len: 3}, "decode from 127.0.0.1:40000: 3 bytes of invalid UTF-8"},
		{"execution", &ExecutionError{Command: "foo", Err: inner}, `execute "foo": boom`},
		{"execution stderr", &ExecutionError{Command: "foo", Err: inner, Stderr: "ls: denied"}, `execute "foo": boom: ls: denied`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if tt.name != "decode" && !Is(tt.err, inner) {
				t.Error("should unwrap to inner error")
			}
		})
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "max-conns",
				Value:   0,
				Message: "must be positive",
				Hint:    "use a value such as 256",
			},
			want: "config: --max-conns=0: must be positive\n  hint: use a value such as 256",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "identity",
				Message: "required unless --self-signed",
			},
			want: "config: --identity: required unless --self-signed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("dial", "10.0.0.1:2408", inner)

	if err.Op != "dial" || err.Addr != "10.0.0.1:2408" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
	if err.Retryable {
		t.Error("plain error should not be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "accept", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "accept", Addr: "x", Err: io.EOF, Retryable: false}, false},
		{"closed listener", &net.OpError{Op: "accept", Err: net.ErrClosed}, false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", fmt.Errorf("wrap: %w", ErrTimeout), true},
		{"deadline", &net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}, true},
		{"eof", io.EOF, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.want {
				t.Errorf("IsTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(fmt.Errorf("startup: %w", &BindError{Addr: ":1", Err: io.EOF})) {
		t.Error("BindError should be fatal")
	}
	if !IsFatal(&CredentialError{Source: "x", Err: io.EOF}) {
		t.Error("CredentialError should be fatal")
	}
	if IsFatal(&HandshakeError{Peer: "x", Err: io.EOF}) {
		t.Error("HandshakeError should not be fatal")
	}
	if IsFatal(&ExecutionError{Command: "foo", Err: io.EOF}) {
		t.Error("ExecutionError should not be fatal")
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "accept",
		Net: "tcp",
		Err: &net.DNSError{IsTemporary: true},
	}
	if !classifyRetryable(opErr) {
		t.Error("temporary OpError should be retryable")
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrNoIdentity, ErrNotAuthorized,
		ErrProgramNotAllowed, ErrTimeout,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
