// Package tinyreq is a minimal blocking HTTP/1.1 client.
//
// Requests execute synchronously on the calling goroutine over the
// library's own transport: no net/http, no internal event loop. Blocking
// is bounded only by the per-request connect/read/write timeouts.
//
//	resp, err := tinyreq.Get("https://example.com/").
//		Set("X-My-Header", "secret").
//		Query("format", "json").
//		Call()
//
// The top-level functions use a fresh agent per call. To keep state
// between requests — connection reuse, persistent headers, cookies —
// create an agent:
//
//	agent := tinyreq.NewAgent()
//	agent.Set("Authorization", "token s3cr3t")
//	resp, err := agent.Get("https://api.example.com/a").Call()
//
// Content-Length is set automatically for bodies of known length
// (SendBytes, SendString, SendJSON). Setting a "Transfer-Encoding:
// chunked" header switches any body to chunked framing; a Send body
// without either header is written unbounded and the connection is closed
// after the exchange.
package tinyreq

import (
	"github.com/tinyreq/tinyreq/internal/header"
	"github.com/tinyreq/tinyreq/internal/model"
)

// Re-exported engine types.
type (
	Response = model.Response
	Error    = model.Error
	Kind     = model.Kind
	Header   = header.Header
	Headers  = header.Headers
	IPFamily = model.IPFamily
)

// Error kinds surfaced by requests. Server 4xx/5xx statuses are responses,
// not errors.
const (
	BadURL        = model.BadURL
	ConnectFailed = model.ConnectFailed
	Timeout       = model.Timeout
	IO            = model.IO
	ProtocolError = model.ProtocolError
)

const (
	IPv4 = model.IPv4
	IPv6 = model.IPv6
)

// StatusTooManyRedirects is the synthetic status returned when the redirect
// budget runs out; see Request.Redirects.
const StatusTooManyRedirects = model.StatusTooManyRedirects

// ErrorKind returns the taxonomy kind of err, or 0 for foreign errors.
func ErrorKind(err error) Kind { return model.ErrorKind(err) }

// IsTimeout reports whether err is a deadline-exceeded request error.
func IsTimeout(err error) bool { return model.IsTimeout(err) }

// NewRequest creates a request with the method given as a string, on a
// fresh agent.
func NewRequest(method, target string) Request {
	return NewAgent().Request(method, target)
}

// Get creates a GET request.
func Get(target string) Request { return NewRequest("GET", target) }

// Head creates a HEAD request.
func Head(target string) Request { return NewRequest("HEAD", target) }

// Post creates a POST request.
func Post(target string) Request { return NewRequest("POST", target) }

// Put creates a PUT request.
func Put(target string) Request { return NewRequest("PUT", target) }

// Delete creates a DELETE request.
func Delete(target string) Request { return NewRequest("DELETE", target) }

// Patch creates a PATCH request.
func Patch(target string) Request { return NewRequest("PATCH", target) }

// Options creates an OPTIONS request.
func Options(target string) Request { return NewRequest("OPTIONS", target) }

// Trace creates a TRACE request.
func Trace(target string) Request { return NewRequest("TRACE", target) }
