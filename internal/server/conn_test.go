package server

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/redistill/redistill/internal/eviction"
	"github.com/redistill/redistill/internal/metrics"
	"github.com/redistill/redistill/internal/store"
)

func newPipeExecutor() *Executor {
	st := store.New(4, false)
	counters := metrics.New()
	ctrl := eviction.NewController(0, "allkeys-lru", 5, counters)
	return NewExecutor(st, ctrl, counters, "", 0)
}

// runConn starts HandleConnection against one end of a net.Pipe and hands
// the caller the other end, pre-populated with counters at
// ActiveConnections=1 the way Listener.admit would have left it.
func runConn(t *testing.T, exec *Executor) net.Conn {
	t.Helper()
	client, serverSide := net.Pipe()
	exec.counters.ActiveConnections.Add(1)
	go HandleConnection(plainStream{serverSide}, exec, 4096, 16, true)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConnectionPingRoundTrip(t *testing.T) {
	exec := newPipeExecutor()
	client := runConn(t, exec)

	if _, err := client.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "+PONG\r\n" {
		t.Fatalf("want +PONG, got %q", got)
	}
}

func TestConnectionSetThenGet(t *testing.T) {
	exec := newPipeExecutor()
	client := runConn(t, exec)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

	if _, err := client.Write([]byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "+OK\r\n" {
		t.Fatalf("want +OK, got %q", got)
	}

	if _, err := client.Write([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")); err != nil {
		t.Fatal(err)
	}
	n, err = client.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "$3\r\nbar\r\n" {
		t.Fatalf("want bulk bar, got %q", got)
	}
}

func TestConnectionClosesOnProtocolViolation(t *testing.T) {
	exec := newPipeExecutor()
	client := runConn(t, exec)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

	if _, err := client.Write([]byte("#garbage\r\n")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	_, err := client.Read(buf)
	if err != io.EOF && !bytes.Contains([]byte(errString(err)), []byte("closed")) {
		t.Fatalf("want connection closed after protocol violation, got err=%v", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
