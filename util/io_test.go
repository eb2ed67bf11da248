package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"
)

func TestBidirectionalCopy(t *testing.T) {
	// Set up a TCP server that echoes data.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) // echo
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	input := bytes.NewBufferString("hello world\n")
	output := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// input → conn → echo → output.  Exhausting input half-closes the
	// write side; the echo server then closes, ending the copy.
	err = BidirectionalCopy(ctx, conn, input, output)
	if err != nil {
		t.Fatalf("BidirectionalCopy: %v", err)
	}

	if got := output.String(); got != "hello world\n" {
		t.Errorf("output = %q, want %q", got, "hello world\n")
	}
}

func TestIsHarmless(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, true},
		{io.EOF, true},
		{net.ErrClosed, true},
		{fmt.Errorf("read: %w", io.EOF), true},
		{&net.OpError{Op: "read", Err: net.ErrClosed}, true},
		{io.ErrUnexpectedEOF, false},
	}
	for _, tt := range tests {
		if got := IsHarmless(tt.err); got != tt.want {
			t.Errorf("IsHarmless(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestBufPool_RoundTrip(t *testing.T) {
	buf := GetBuf()
	if buf == nil {
		t.Fatal("GetBuf returned nil")
	}
	if len(*buf) != SessionBufSize {
		t.Errorf("buffer size = %d, want %d", len(*buf), SessionBufSize)
	}

	(*buf)[0] = 0xFF
	PutBuf(buf)

	// Whatever comes back next must be zeroed.
	buf2 := GetBuf()
	if (*buf2)[0] != 0 {
		t.Errorf("recycled buffer not cleared: %#x", (*buf2)[0])
	}
	PutBuf(buf2)
}

func TestPutBuf_Nil(t *testing.T) {
	// Should not panic.
	PutBuf(nil)
}
