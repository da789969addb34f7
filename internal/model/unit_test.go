package model_test

import (
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyreq/tinyreq/internal/header"
	"github.com/tinyreq/tinyreq/internal/model"
)

func resolve(t *testing.T, target string) *url.URL {
	t.Helper()
	u, err := model.ResolveTarget(target)
	require.NoError(t, err)
	return u
}

func compile(t *testing.T, req *model.Request) *model.Unit {
	t.Helper()
	u := resolve(t, req.Target)
	unit, err := model.Compile(req, req.Method, u, req.Body, true)
	require.NoError(t, err)
	return unit
}

func TestResolveTarget(t *testing.T) {
	u := resolve(t, "https://cool.server:8443/innit?foo=bar")
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "cool.server", u.Hostname())
	assert.Equal(t, "8443", u.Port())

	// path-only targets resolve against the fixed base
	u = resolve(t, "/some/path")
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "localhost", u.Hostname())
	assert.Equal(t, "/some/path", u.Path)

	_, err := model.ResolveTarget("ftp://ftp.example.com/")
	assert.Equal(t, model.BadURL, model.ErrorKind(err))

	_, err = model.ResolveTarget("http://exa mple.com/")
	assert.Equal(t, model.BadURL, model.ErrorKind(err))
}

func TestQueryMergeKeepsBothOrders(t *testing.T) {
	req := &model.Request{
		Method: "GET",
		Target: "http://example.com/p?a=1&b=2",
		Query:  []string{"format=json", "dest=%2Flogin"},
	}
	unit := compile(t, req)
	assert.Equal(t, "/p?a=1&b=2&format=json&dest=%2Flogin", unit.U.RequestURI())
}

func TestHostComputedFromURL(t *testing.T) {
	var hdr header.Headers
	hdr.Add("Host", "spoofed.example")
	req := &model.Request{Method: "GET", Target: "http://example.com/", Header: hdr}

	unit := compile(t, req)
	// the engine owns Host: caller values are overridden and stripped
	assert.Equal(t, "example.com", unit.Host)
	assert.False(t, unit.Header.Has("Host"))
}

func TestHostKeepsNonDefaultPort(t *testing.T) {
	unit := compile(t, &model.Request{Method: "GET", Target: "http://example.com:8080/"})
	assert.Equal(t, "example.com:8080", unit.Host)

	unit = compile(t, &model.Request{Method: "GET", Target: "https://example.com:443/"})
	assert.Equal(t, "example.com", unit.Host)
}

func TestKnownLengthBodyGetsContentLength(t *testing.T) {
	req := &model.Request{
		Method: "POST",
		Target: "http://example.com/",
		Body:   model.Payload{Kind: model.PayloadBytes, Data: []byte("hello")},
	}
	unit := compile(t, req)
	assert.EqualValues(t, 5, unit.ContentLength)
	assert.False(t, unit.Chunked)
	assert.True(t, unit.Replayable)

	body, err := unit.GetBody()
	require.NoError(t, err)
	b, _ := io.ReadAll(body)
	assert.Equal(t, "hello", string(b))

	// replayable: a second reader yields the same bytes
	body, err = unit.GetBody()
	require.NoError(t, err)
	b, _ = io.ReadAll(body)
	assert.Equal(t, "hello", string(b))
}

func TestExplicitChunkedOverridesKnownLength(t *testing.T) {
	var hdr header.Headers
	hdr.Add("Transfer-Encoding", "chunked")
	req := &model.Request{
		Method: "POST",
		Target: "http://example.com/",
		Header: hdr,
		Body:   model.Payload{Kind: model.PayloadBytes, Data: []byte("hello")},
	}
	unit := compile(t, req)
	assert.True(t, unit.Chunked)
	assert.EqualValues(t, -1, unit.ContentLength)
	assert.False(t, unit.Header.Has("Transfer-Encoding"))
}

func TestEmptyBodyHasNoFramingHeaders(t *testing.T) {
	unit := compile(t, &model.Request{Method: "GET", Target: "http://example.com/"})
	assert.EqualValues(t, -1, unit.ContentLength)
	assert.False(t, unit.Chunked)
	assert.False(t, unit.HasBody)
}

func TestStreamBodyWithoutFramingClosesConnection(t *testing.T) {
	req := &model.Request{
		Method: "POST",
		Target: "http://example.com/",
		Body:   model.Payload{Kind: model.PayloadReader, Reader: strings.NewReader("data")},
	}
	unit := compile(t, req)
	assert.True(t, unit.CloseAfter)
	assert.False(t, unit.Replayable)
	assert.EqualValues(t, -1, unit.ContentLength)

	// one-shot: the second GetBody refuses
	_, err := unit.GetBody()
	require.NoError(t, err)
	_, err = unit.GetBody()
	assert.Error(t, err)
}

func TestStreamBodyWithExplicitChunked(t *testing.T) {
	var hdr header.Headers
	hdr.Add("Transfer-Encoding", "chunked")
	req := &model.Request{
		Method: "POST",
		Target: "http://example.com/",
		Header: hdr,
		Body:   model.Payload{Kind: model.PayloadReader, Reader: strings.NewReader("data")},
	}
	unit := compile(t, req)
	assert.True(t, unit.Chunked)
	assert.False(t, unit.CloseAfter)
}

func TestTextBodyEncodesDeclaredCharset(t *testing.T) {
	req := &model.Request{
		Method: "POST",
		Target: "http://example.com/",
		Body: model.Payload{
			Kind:    model.PayloadText,
			Text:    "Hällo Wörld",
			Charset: "iso-8859-1",
		},
	}
	unit := compile(t, req)
	body, err := unit.GetBody()
	require.NoError(t, err)
	b, _ := io.ReadAll(body)
	assert.Equal(t, []byte("H\xe4llo W\xf6rld"), b)
	assert.EqualValues(t, len(b), unit.ContentLength)
}

func TestTextBodyUnknownCharsetFallsBackToUTF8(t *testing.T) {
	req := &model.Request{
		Method: "POST",
		Target: "http://example.com/",
		Body: model.Payload{
			Kind:    model.PayloadText,
			Text:    "Hällo",
			Charset: "no-such-charset",
		},
	}
	unit := compile(t, req)
	body, _ := unit.GetBody()
	b, _ := io.ReadAll(body)
	assert.Equal(t, []byte("Hällo"), b)
}

func TestJSONBody(t *testing.T) {
	req := &model.Request{
		Method: "POST",
		Target: "http://example.com/",
		Body: model.Payload{
			Kind:  model.PayloadJSON,
			Value: map[string]interface{}{"name": "martin"},
		},
	}
	unit := compile(t, req)
	body, _ := unit.GetBody()
	b, _ := io.ReadAll(body)
	assert.JSONEq(t, `{"name":"martin"}`, string(b))
	assert.EqualValues(t, len(b), unit.ContentLength)
}

func TestFragmentNotOnWire(t *testing.T) {
	unit := compile(t, &model.Request{Method: "GET", Target: "http://example.com/?test=1#frag"})
	assert.Equal(t, "/?test=1", unit.U.RequestURI())
}

func TestAddrDefaultsPortPerScheme(t *testing.T) {
	unit := compile(t, &model.Request{Method: "GET", Target: "https://example.com/"})
	scheme, host, port := unit.Addr()
	assert.Equal(t, "https", scheme)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "443", port)
}
