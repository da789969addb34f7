package model

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/net/http/httpguts"

	"github.com/tinyreq/tinyreq/internal/header"
)

// urlBase anchors path-only targets, so Get("/health") hits localhost.
var urlBase = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}

var defaultPorts = map[string]string{"http": "80", "https": "443"}

// ResolveTarget parses target and resolves it against the fixed base.
func ResolveTarget(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, &Error{Kind: BadURL, Op: "parse " + strconv.Quote(target), Err: err}
	}
	u = urlBase.ResolveReference(u)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{Kind: BadURL, Op: "unsupported scheme " + strconv.Quote(u.Scheme)}
	}
	if u.Hostname() == "" {
		return nil, &Error{Kind: BadURL, Op: "empty host"}
	}
	return u, nil
}

// CombineQuery merges the query already present in u with the stored
// chunks: original pairs first, added chunks appended in the order given.
func CombineQuery(u *url.URL, chunks []string) string {
	parts := make([]string, 0, len(chunks)+1)
	if u.RawQuery != "" {
		parts = append(parts, u.RawQuery)
	}
	for _, c := range chunks {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "&")
}

// Unit is the compiled, wire-ready form of one hop.
type Unit struct {
	Method string
	U      *url.URL

	// Host is the value of the Host header, always computed from the
	// resolved URL; any caller-set Host is overridden.
	Host string
	// Header is the caller's list minus Host, Content-Length and
	// Transfer-Encoding, which the engine owns.
	Header header.Headers

	// ContentLength is -1 when the body is absent or of unknown length.
	ContentLength int64
	Chunked       bool
	HasBody       bool
	// CloseAfter marks an unbounded request body: the receiver needs EOF
	// to find the end, so the connection cannot be reused.
	CloseAfter bool

	// GetBody returns a fresh body reader, or nil for no body.
	// Replayable is false for stream bodies, which it yields only once.
	GetBody    func() (io.Reader, error)
	Replayable bool
}

// Addr returns the connection endpoint, with the port defaulted per scheme.
func (u *Unit) Addr() (scheme, host, port string) {
	scheme, host, port = u.U.Scheme, u.U.Hostname(), u.U.Port()
	if port == "" {
		port = defaultPorts[scheme]
	}
	return
}

// Compile produces the protocol-correct form of one hop. method and payload
// may differ from req's own on redirected hops; mixQuery is true only on
// the first hop, so stored query parameters are not re-applied to Location
// targets.
func Compile(req *Request, method string, u *url.URL, payload Payload, mixQuery bool) (*Unit, error) {
	uu := *u
	uu.Fragment = ""
	uu.RawFragment = ""
	if mixQuery {
		uu.RawQuery = CombineQuery(u, req.Query)
	}

	host := uu.Hostname()
	if p := uu.Port(); p != "" && p != defaultPorts[uu.Scheme] {
		host = net.JoinHostPort(host, p)
	}
	if !httpguts.ValidHostHeader(host) {
		return nil, &Error{Kind: BadURL, Op: "invalid host " + strconv.Quote(host)}
	}

	unit := &Unit{
		Method:        method,
		U:             &uu,
		Host:          host,
		Header:        req.Header.Without("Host", "Content-Length", "Transfer-Encoding"),
		ContentLength: -1,
	}

	wantChunked := false
	for _, te := range req.Header.GetAll("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(te), "chunked") {
			wantChunked = true
		}
	}

	switch payload.Kind {
	case PayloadEmpty:
		unit.Replayable = true
		unit.GetBody = func() (io.Reader, error) { return nil, nil }
		// Framing headers appear on an empty body only when the caller
		// explicitly asked for them.
		if wantChunked {
			unit.Chunked = true
			unit.HasBody = true
		} else if v, ok := req.Header.Get("Content-Length"); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
				unit.ContentLength = n
			}
		}
		return unit, nil

	case PayloadReader:
		unit.HasBody = true
		rd := payload.Reader
		var spent atomic.Bool
		unit.GetBody = func() (io.Reader, error) {
			if spent.CompareAndSwap(false, true) {
				return rd, nil
			}
			return nil, &Error{Kind: IO, Op: "request body already consumed"}
		}
		switch {
		case wantChunked:
			unit.Chunked = true
		default:
			if v, ok := req.Header.Get("Content-Length"); ok {
				if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
					unit.ContentLength = n
					return unit, nil
				}
			}
			// No way for the receiver to find the end of the body
			// other than connection close.
			unit.CloseAfter = true
		}
		return unit, nil
	}

	// Statically known length: bytes, text or structured data.
	var data []byte
	switch payload.Kind {
	case PayloadBytes:
		data = payload.Data
	case PayloadText:
		data = encodeText(payload.Text, payload.Charset)
	case PayloadJSON:
		var err error
		if data, err = json.Marshal(payload.Value); err != nil {
			return nil, &Error{Kind: IO, Op: "encode json body", Err: err}
		}
	}
	unit.HasBody = true
	unit.Replayable = true
	unit.GetBody = func() (io.Reader, error) { return bytes.NewReader(data), nil }
	if wantChunked {
		unit.Chunked = true
	} else {
		unit.ContentLength = int64(len(data))
	}
	return unit, nil
}
