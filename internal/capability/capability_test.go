package capability

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wiretrap/internal/errors"
	"wiretrap/internal/session"
	"wiretrap/util"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	client, server := net.Pipe()
	sess := session.New(1, server, util.NewLogger(0))
	t.Cleanup(func() {
		client.Close()
		sess.Close()
	})
	return sess
}

func TestExec_ListsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := &Exec{
		Name:    "foo",
		Argv:    []string{"ls", "-lah"},
		Dir:     dir,
		Timeout: 5 * time.Second,
		Allow:   AllowList{"ls"},
	}
	res, err := e.Invoke(context.Background(), newSession(t))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(string(res.Payload), "marker.txt") {
		t.Errorf("listing %q does not mention marker.txt", res.Payload)
	}
	if res.Close {
		t.Error("listing must not close the session")
	}
}

func TestExec_CapturesStdoutVerbatim(t *testing.T) {
	e := &Exec{Name: "foo", Argv: []string{"echo", "hello"}, Allow: AllowList{"echo"}}
	res, err := e.Invoke(context.Background(), newSession(t))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(res.Payload) != "hello\n" {
		t.Errorf("payload = %q, want %q", res.Payload, "hello\n")
	}
}

func TestExec_Failures(t *testing.T) {
	tests := []struct {
		name    string
		exec    *Exec
		wantErr error // matched with errors.Is when non-nil
	}{
		{"not allowed", &Exec{Name: "foo", Argv: []string{"ls"}, Allow: AllowList{"echo"}}, errors.ErrProgramNotAllowed},
		{"no program", &Exec{Name: "foo", Allow: AllowList{"ls"}}, nil},
		{"missing binary", &Exec{Name: "foo", Argv: []string{"wiretrap-no-such-tool"}, Allow: AllowList{"wiretrap-no-such-tool"}}, nil},
		{"non-zero exit", &Exec{Name: "foo", Argv: []string{"ls", "/wiretrap/does/not/exist"}, Allow: AllowList{"ls"}}, nil},
		{"timeout", &Exec{Name: "foo", Argv: []string{"sleep", "5"}, Allow: AllowList{"sleep"}, Timeout: 50 * time.Millisecond}, errors.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.exec.Invoke(context.Background(), newSession(t))
			var ee *errors.ExecutionError
			if !errors.As(err, &ee) {
				t.Fatalf("want ExecutionError, got %T %v", err, err)
			}
			if ee.Command != "foo" {
				t.Errorf("Command = %q", ee.Command)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error %v is not %v", err, tt.wantErr)
			}
			if !res.Silent() {
				t.Errorf("failed action produced payload %q", res.Payload)
			}
		})
	}
}

func TestAllowList_Permits(t *testing.T) {
	a := AllowList{"ls", "/usr/bin/stat"}
	tests := []struct {
		program string
		want    bool
	}{
		{"ls", true},
		{"/bin/ls", true},
		{"/usr/bin/stat", true},
		{"stat", false},
		{"sh", false},
	}
	for _, tt := range tests {
		if got := a.Permits(tt.program); got != tt.want {
			t.Errorf("Permits(%q) = %v, want %v", tt.program, got, tt.want)
		}
	}
}

func TestChildEnv(t *testing.T) {
	t.Setenv("WIRETRAP_SECRET_THING", "leak")
	for _, kv := range childEnv() {
		if strings.Contains(kv, "leak") {
			t.Fatalf("server environment leaked into child: %q", kv)
		}
	}
}

func TestAck(t *testing.T) {
	res, err := (&Ack{Name: "bar"}).Invoke(context.Background(), newSession(t))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Silent() || res.Close {
		t.Errorf("Ack result = %+v, want silent and open", res)
	}
}

func TestFarewell(t *testing.T) {
	res, err := (&Farewell{Message: "Goodbye!\n"}).Invoke(context.Background(), newSession(t))
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Payload) != "Goodbye!\n" || !res.Close {
		t.Errorf("Farewell result = %+v", res)
	}
}

func TestExec_RecoversAfterFailures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	e := &Exec{Name: "foo", Argv: []string{"ls", "-lah"}, Dir: dir, Allow: AllowList{"ls"}}
	sess := newSession(t)

	for i := 0; i < 10; i++ {
		if _, err := e.Invoke(context.Background(), sess); err == nil {
			t.Fatalf("call %d: listing a missing directory succeeded", i)
		}
	}

	if err := os.Mkdir(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := e.Invoke(context.Background(), sess)
	if err != nil {
		t.Fatalf("Invoke after recovery: %v", err)
	}
	if !strings.Contains(string(res.Payload), "marker.txt") {
		t.Errorf("listing %q does not mention marker.txt", res.Payload)
	}
}
