// Package dialer opens and wraps transport streams: a uniform byte channel
// over a plain or TLS socket with independent connect/read/write deadlines.
package dialer

import (
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/tinyreq/tinyreq/internal/model"
)

// Config describes one connection attempt.
type Config struct {
	Scheme string
	// Host is the hostname or IP literal; for https it is also the
	// certificate name.
	Host string
	Port string

	Family model.IPFamily
	// Timeout is the connect budget, TLS handshake included. 0 blocks
	// forever.
	Timeout time.Duration

	TLS *tls.Config
}

// Stream is a bidirectional byte channel owned by exactly one of
// {pool, in-flight request, discarded} at any time. Read and Write apply
// the configured per-operation deadlines; once an operation fails, the
// stream is marked broken and must never go back to the pool.
type Stream struct {
	conn net.Conn

	readTimeout  time.Duration
	writeTimeout time.Duration

	broken bool
}

// NewStream wraps an established connection. Used by the pool tests and
// the engine's dial hook; production streams come from Connect.
func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn}
}

// SetTimeouts installs the per-operation deadlines; 0 means unbounded.
func (s *Stream) SetTimeouts(read, write time.Duration) {
	s.readTimeout, s.writeTimeout = read, write
}

// Conn exposes the underlying connection for the pool's liveness probe.
func (s *Stream) Conn() net.Conn { return s.conn }

// Broken reports whether an operation on the stream failed.
func (s *Stream) Broken() bool { return s.broken }

func (s *Stream) Read(p []byte) (int, error) {
	var zero time.Time
	if s.readTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	} else {
		s.conn.SetReadDeadline(zero)
	}
	n, err := s.conn.Read(p)
	if err != nil {
		// io.EOF included: the peer is gone either way.
		s.broken = true
	}
	return n, err
}

func (s *Stream) Write(p []byte) (int, error) {
	var zero time.Time
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	} else {
		s.conn.SetWriteDeadline(zero)
	}
	n, err := s.conn.Write(p)
	if err != nil {
		s.broken = true
	}
	return n, err
}

func (s *Stream) Close() error {
	s.broken = true
	return s.conn.Close()
}

var _ io.ReadWriteCloser = (*Stream)(nil)
