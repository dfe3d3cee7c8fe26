// Package server implements the command executor, per-connection handler
// loop, admission-gated listener, and health endpoint: the pieces that turn
// internal/store and internal/proto into a running network service.
package server

import (
	"crypto/tls"
	"io"
	"net"
)

// Stream is the minimal capability the connection handler needs from a
// transport: read/write plus a TCP_NODELAY toggle. *net.TCPConn is adapted
// by tcpStream and *tls.Conn by tlsStream (which supplies the SetNoDelay
// method *tls.Conn lacks), following the small-capability-interface idiom
// rather than a concrete connection type.
type Stream interface {
	io.Reader
	io.Writer
	SetNoDelay(enabled bool) error
	Close() error
}

// tcpStream adapts *net.TCPConn to Stream.
type tcpStream struct{ *net.TCPConn }

func (t tcpStream) SetNoDelay(enabled bool) error { return t.TCPConn.SetNoDelay(enabled) }

// NewTCPStream wraps an accepted TCP connection as a Stream.
func NewTCPStream(c *net.TCPConn) Stream { return tcpStream{c} }

// tlsStream adapts *tls.Conn to Stream. listener.go's handshakeAndServe
// applies TCP_NODELAY to the raw *net.TCPConn before wrapping it in
// tls.Server and starting the handshake, so SetNoDelay here is a
// deliberate no-op rather than an error.
type tlsStream struct{ *tls.Conn }

func (tlsStream) SetNoDelay(bool) error { return nil }

// NewTLSStream wraps a handshake-completed TLS connection as a Stream.
func NewTLSStream(c *tls.Conn) Stream { return tlsStream{c} }

// LoadTLSConfig loads one PEM certificate chain and one PKCS8 private key
// from filesystem paths, matching the reference implementation's cert/key
// loading. crypto/tls is the ecosystem-standard choice for this job in Go,
// the same way rustls is in the original — no third-party TLS library is
// warranted here.
func LoadTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
