// Package model holds the request description, the compiled per-hop form
// (Unit), the response, and the error taxonomy of the engine.
package model

import (
	"io"
	"time"

	"github.com/tinyreq/tinyreq/internal/header"
)

// IPFamily selects which address family connect attempts prefer. The other
// family is still tried when the preferred one fails to resolve or connect.
type IPFamily int

const (
	// IPv6 is the default preference.
	IPv6 IPFamily = iota
	IPv4
)

// PayloadKind enumerates the request body variants. The set is closed:
// every variant must compile to exactly one of fixed-length, chunked or
// unbounded framing.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadBytes
	PayloadText
	PayloadReader
	PayloadJSON
)

// Payload is a request body.
type Payload struct {
	Kind    PayloadKind
	Data    []byte      // PayloadBytes
	Text    string      // PayloadText
	Charset string      // PayloadText; "" means utf-8
	Reader  io.Reader   // PayloadReader; length unknown
	Value   interface{} // PayloadJSON
}

// Request is a complete request description. It is immutable once handed
// to the engine: builders configure copies, so concurrent callers never
// share mutable request state.
type Request struct {
	Method string
	// Target is an absolute URL, or a path resolved against the fixed
	// base http://localhost/.
	Target string

	Header header.Headers
	// Query holds url-encoded chunks appended after any query already in
	// the target URL, in the order they were added.
	Query []string

	Body Payload

	// 0 means unbounded blocking.
	TimeoutConnect time.Duration
	TimeoutRead    time.Duration
	TimeoutWrite   time.Duration

	// Redirects is the hop budget. 0 returns 3xx responses untouched.
	Redirects int
	Family    IPFamily
}
