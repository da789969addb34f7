package chunked_test

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyreq/tinyreq/internal/transport/chunked"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte("hello, this payload crosses several chunks")

	var wire bytes.Buffer
	w := chunked.NewWriter(&wire)
	for i := 0; i < len(payload); i += 7 {
		end := i + 7
		if end > len(payload) {
			end = len(payload)
		}
		_, err := w.Write(payload[i:end])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := chunked.NewReader(&wire)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.True(t, r.SawTerminator())
}

func TestDecode(t *testing.T) {
	r := chunked.NewReader(strings.NewReader("5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
	assert.True(t, r.SawTerminator())
}

func TestChunkExtensionIgnored(t *testing.T) {
	r := chunked.NewReader(strings.NewReader("5;name=val\r\nhello\r\n0\r\n\r\n"))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestTrailersConsumed(t *testing.T) {
	wire := "5\r\nhello\r\n0\r\nExpires: never\r\nX-Checksum: 1\r\n\r\nleftover"
	br := bufio.NewReader(strings.NewReader(wire))
	r := chunked.NewReader(br)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.True(t, r.SawTerminator())

	// the reader stops exactly past the terminator
	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "leftover", string(rest))
}

func TestMalformedSizeIsHardError(t *testing.T) {
	r := chunked.NewReader(strings.NewReader("zz\r\nhello\r\n0\r\n\r\n"))
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, chunked.ErrBadChunkSize)
}

func TestOversizedLengthRejected(t *testing.T) {
	r := chunked.NewReader(strings.NewReader("123456789abcdef01\r\n"))
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, chunked.ErrChunkTooBig)
}

func TestTruncatedBody(t *testing.T) {
	r := chunked.NewReader(strings.NewReader("a\r\nhel"))
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.False(t, r.SawTerminator())
}

func TestMissingChunkCRLF(t *testing.T) {
	r := chunked.NewReader(strings.NewReader("5\r\nhelloXX0\r\n\r\n"))
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, chunked.ErrBadFraming)
}

func TestEmptyWriteIsNotTerminator(t *testing.T) {
	var wire bytes.Buffer
	w := chunked.NewWriter(&wire)
	n, err := w.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, wire.Len())
}
