package dialer_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyreq/tinyreq/internal/dialer"
)

func TestStreamReadWrite(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	s := dialer.NewStream(client)
	go func() {
		buf := make([]byte, 4)
		io.ReadFull(server, buf)
		server.Write([]byte("pong"))
	}()

	_, err := s.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf))
	assert.False(t, s.Broken())
}

func TestStreamReadDeadline(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	s := dialer.NewStream(client)
	s.SetTimeouts(20*time.Millisecond, 0)

	_, err := s.Read(make([]byte, 1))
	require.Error(t, err)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
	assert.True(t, s.Broken())
}

func TestStreamBrokenOnPeerClose(t *testing.T) {
	client, server := net.Pipe()
	server.Close()

	s := dialer.NewStream(client)
	_, err := s.Read(make([]byte, 1))
	require.Error(t, err)
	assert.True(t, s.Broken())
}

func TestStreamCloseMarksBroken(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	s := dialer.NewStream(client)
	require.False(t, s.Broken())
	require.NoError(t, s.Close())
	assert.True(t, s.Broken())
}
