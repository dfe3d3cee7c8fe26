package server

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/redistill/redistill/internal/metrics"
)

// Listener accepts streams, enforces the max-connection and per-second
// connection-rate admission rules, optionally wraps accepted TCP
// connections in TLS, and spawns one HandleConnection goroutine per
// admitted stream.
type Listener struct {
	exec     *Executor
	counters *metrics.Counters
	log      zerolog.Logger

	maxConnections      int64
	connectionRateLimit int64
	bufferSizeHint      int
	batchSize           int
	noDelay             bool

	tlsConfig *tls.Config

	// admission is a non-blocking concurrency gate mirroring max_connections.
	// Nil when max_connections == 0 (unlimited).
	admission *semaphore.Weighted
}

// NewListener builds a Listener. tlsConfig may be nil to serve plain TCP.
func NewListener(exec *Executor, counters *metrics.Counters, log zerolog.Logger, maxConnections, connectionRateLimit, bufferSizeHint, batchSize int, noDelay bool, tlsConfig *tls.Config) *Listener {
	l := &Listener{
		exec:                exec,
		counters:            counters,
		log:                 log,
		maxConnections:      int64(maxConnections),
		connectionRateLimit: int64(connectionRateLimit),
		bufferSizeHint:      bufferSizeHint,
		batchSize:           batchSize,
		noDelay:             noDelay,
		tlsConfig:           tlsConfig,
	}
	if maxConnections > 0 {
		l.admission = semaphore.NewWeighted(int64(maxConnections))
	}
	return l
}

// Serve runs the accept loop against ln until ctx is cancelled (graceful
// shutdown, triggered by an OS interrupt in cmd/redistill) or a fatal
// accept error occurs.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	l.log.Info().Str("addr", ln.Addr().String()).Msg("accept loop started")
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				l.log.Info().Msg("accept loop stopped")
				return nil
			default:
				l.log.Error().Err(err).Msg("accept failed")
				return err
			}
		}
		l.admit(conn)
	}
}

// admit applies the connection-count gate and per-second rate limit before
// spawning a handler goroutine. Rejections close the stream silently and
// increment rejected_connections; no reply is written (admission denial is
// a transport-level decision, upstream of the wire protocol).
func (l *Listener) admit(conn net.Conn) {
	if !l.tryAcquire() {
		l.counters.RejectedConnections.Add(1)
		l.log.Debug().Str("reason", "max_connections").Msg("rejected connection")
		_ = conn.Close()
		return
	}

	if l.connectionRateLimit > 0 && !l.checkRateLimit() {
		l.counters.RejectedConnections.Add(1)
		l.log.Debug().Str("reason", "connection_rate_limit").Msg("rejected connection")
		l.releaseAdmission()
		_ = conn.Close()
		return
	}

	l.counters.TotalConnections.Add(1)
	l.counters.ActiveConnections.Add(1)

	go l.handshakeAndServe(conn)
}

func (l *Listener) tryAcquire() bool {
	if l.admission == nil {
		return true
	}
	return l.admission.TryAcquire(1)
}

func (l *Listener) releaseAdmission() {
	if l.admission != nil {
		l.admission.Release(1)
	}
}

// checkRateLimit implements the accept-time rate check exactly as
// documented, including its benign race: the store of last_connection_check
// and the reset/increment of connections_this_second are two separate
// atomic operations, not one combined compare-and-swap, so a connection
// landing exactly on a second boundary may occasionally be admitted even
// though it is the (limit+1)th for that second. This is intentional, not a
// bug to fix.
func (l *Listener) checkRateLimit() bool {
	now := time.Now().Unix()
	last := l.counters.LastConnectionCheck.Load()
	if now != last {
		l.counters.LastConnectionCheck.Store(now)
		l.counters.ConnectionsThisSecond.Store(1)
		return true
	}
	prior := l.counters.ConnectionsThisSecond.Add(1) - 1
	return prior < uint64(l.connectionRateLimit)
}

func (l *Listener) handshakeAndServe(conn net.Conn) {
	defer l.releaseAdmission()

	var stream Stream
	if l.tlsConfig != nil {
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(l.noDelay)
		}
		tlsConn := tls.Server(conn, l.tlsConfig)
		if err := tlsConn.HandshakeContext(context.Background()); err != nil {
			// Handshake failure closes the stream without counting it toward
			// active_connections, so undo the bump admit() already applied.
			l.counters.ActiveConnections.Add(-1)
			l.log.Warn().Err(err).Msg("TLS handshake failed")
			_ = conn.Close()
			return
		}
		stream = NewTLSStream(tlsConn)
	} else if tcpConn, ok := conn.(*net.TCPConn); ok {
		stream = NewTCPStream(tcpConn)
	} else {
		stream = plainStream{conn}
	}

	// HandleConnection decrements ActiveConnections itself on exit, so admit()
	// only needs to increment once up front and never again here.
	HandleConnection(stream, l.exec, l.bufferSizeHint, l.batchSize, l.noDelay)
}

// plainStream adapts an arbitrary net.Conn (used in tests with net.Pipe,
// which is neither *net.TCPConn nor *tls.Conn) to Stream.
type plainStream struct{ net.Conn }

func (plainStream) SetNoDelay(bool) error { return nil }
