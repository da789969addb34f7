package tinyreq

import (
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/tinyreq/tinyreq/internal/model"
)

// Request is a request under construction. Configuration methods work on a
// copy and return it, so a Request value can be stored, forked and reused;
// two goroutines never share mutable request state.
//
//	base := agent.Get("/search").Set("Accept", "application/json")
//	resp, err := base.Query("q", "gophers").Call()
type Request struct {
	agent *Agent
	desc  model.Request
}

// Set adds a header. Adding the same name twice sends it twice, in order.
func (r Request) Set(name, value string) Request {
	r.desc.Header = r.desc.Header.Clone()
	r.desc.Header.Add(name, value)
	return r
}

// Query adds a url-encoded query parameter, appended after any query
// already present in the target URL.
func (r Request) Query(name, value string) Request {
	return r.addQuery(url.QueryEscape(name) + "=" + url.QueryEscape(value))
}

// QueryStr appends raw, already-encoded query parameters, e.g.
// "format=json&dest=/login". A leading "?" is ignored.
func (r Request) QueryStr(raw string) Request {
	return r.addQuery(strings.TrimPrefix(raw, "?"))
}

func (r Request) addQuery(chunk string) Request {
	q := make([]string, len(r.desc.Query), len(r.desc.Query)+1)
	copy(q, r.desc.Query)
	r.desc.Query = append(q, chunk)
	return r
}

// TimeoutConnect bounds connection establishment, TLS handshake included.
// Zero, the default, blocks forever.
func (r Request) TimeoutConnect(d time.Duration) Request {
	r.desc.TimeoutConnect = d
	return r
}

// TimeoutRead bounds each individual read from the connection.
func (r Request) TimeoutRead(d time.Duration) Request {
	r.desc.TimeoutRead = d
	return r
}

// TimeoutWrite bounds each individual write to the connection.
func (r Request) TimeoutWrite(d time.Duration) Request {
	r.desc.TimeoutWrite = d
	return r
}

// Redirects sets how many redirect hops may be followed. The default is 5.
// 0 disables following: 3xx responses are returned untouched. When a chain
// is still redirecting after the budget is spent, the response carries the
// synthetic StatusTooManyRedirects instead of an error.
func (r Request) Redirects(n int) Request {
	r.desc.Redirects = n
	return r
}

// PreferFamily sets which IP address family connect attempts try first.
// The default preference is IPv6; the other family is the fallback.
func (r Request) PreferFamily(f IPFamily) Request {
	r.desc.Family = f
	return r
}

// Auth sets basic auth.
func (r Request) Auth(user, pass string) Request {
	return r.AuthKind("Basic", basicAuth(user, pass))
}

// AuthKind sets authorization of other kinds, such as "Bearer" or "Token".
func (r Request) AuthKind(kind, token string) Request {
	return r.Set("Authorization", kind+" "+token)
}

// Method returns the method this request uses.
func (r Request) Method() string { return r.desc.Method }

// URL returns the target exactly as set, without added query parameters.
func (r Request) URL() string { return r.desc.Target }

// HeaderValue returns the first header set for name, case-insensitively.
func (r Request) HeaderValue(name string) (string, bool) { return r.desc.Header.Get(name) }

// HeaderAll returns every value set for name, in order.
func (r Request) HeaderAll(name string) []string { return r.desc.Header.GetAll(name) }

// Has reports whether a header was set for name.
func (r Request) Has(name string) bool { return r.desc.Header.Has(name) }

// Host returns the normalized host the request will be sent to.
func (r Request) Host() (string, error) {
	u, err := model.ResolveTarget(r.desc.Target)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}

// Scheme returns the resolved scheme.
func (r Request) Scheme() (string, error) {
	u, err := model.ResolveTarget(r.desc.Target)
	if err != nil {
		return "", err
	}
	return u.Scheme, nil
}

// Path returns the normalized path.
func (r Request) Path() (string, error) {
	u, err := model.ResolveTarget(r.desc.Target)
	if err != nil {
		return "", err
	}
	return u.Path, nil
}

// QueryString returns the complete merged query, with a leading "?" when
// non-empty.
func (r Request) QueryString() (string, error) {
	u, err := model.ResolveTarget(r.desc.Target)
	if err != nil {
		return "", err
	}
	q := model.CombineQuery(u, r.desc.Query)
	if q == "" {
		return "", nil
	}
	return "?" + q, nil
}

// Call executes the request without a body and blocks until the response
// header block is decoded. The body is read lazily from the Response.
func (r Request) Call() (*Response, error) {
	return r.send(model.Payload{})
}

// SendBytes executes the request with the given body. Content-Length is
// set to len(data) unless chunked framing was requested.
func (r Request) SendBytes(data []byte) (*Response, error) {
	owned := make([]byte, len(data))
	copy(owned, data)
	return r.send(model.Payload{Kind: model.PayloadBytes, Data: owned})
}

// SendString executes the request with a text body. If a Content-Type
// header declares a charset, the text is encoded with it, silently falling
// back to utf-8 when the charset is unknown or the encoding fails.
func (r Request) SendString(data string) (*Response, error) {
	ct, _ := r.desc.Header.Get("Content-Type")
	return r.send(model.Payload{
		Kind:    model.PayloadText,
		Text:    data,
		Charset: model.CharsetFromContentType(ct),
	})
}

// SendJSON executes the request with v serialized as the JSON body.
func (r Request) SendJSON(v interface{}) (*Response, error) {
	return r.send(model.Payload{Kind: model.PayloadJSON, Value: v})
}

// Send executes the request streaming the body from rd. The length being
// unknown, the body is either chunked (when a "Transfer-Encoding: chunked"
// header was set), bounded by an explicit Content-Length header, or sent
// unbounded with the connection closed after the exchange.
func (r Request) Send(rd io.Reader) (*Response, error) {
	return r.send(model.Payload{Kind: model.PayloadReader, Reader: rd})
}

func (r Request) send(p model.Payload) (*Response, error) {
	desc := r.desc
	desc.Body = p
	return r.agent.engine.Do(&desc)
}
