package model

import (
	"encoding/json"
	"io"
	"mime"
	"strings"
	"sync"

	"github.com/tinyreq/tinyreq/internal/header"
)

// StatusTooManyRedirects is synthesized by the engine when the redirect
// budget runs out while another redirect is indicated. It is deliberately
// outside the range servers send, so callers can branch on status without
// confusing it with an origin response.
const StatusTooManyRedirects = 597

// Response is one decoded HTTP response. The body is consumed lazily from
// the originating transport stream; the stream goes back to the pool only
// after the body was read (or closed) in a cleanly framed state.
type Response struct {
	Proto      string
	Status     string // reason phrase
	StatusCode int
	Header     header.Headers

	// ContentLength is -1 when the body length is not declared.
	ContentLength int64
	Body          io.ReadCloser

	// Synthetic marks engine-generated responses, which carry no body.
	Synthetic bool
}

// NewRedirectLimitResponse builds the synthetic answer for an exhausted
// redirect budget.
func NewRedirectLimitResponse() *Response {
	return &Response{
		Proto:      "HTTP/1.1",
		Status:     "Too Many Redirects",
		StatusCode: StatusTooManyRedirects,
		Body:       NewBody(nil, nil),
		Synthetic:  true,
	}
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// ContentType returns the media type of the body, without parameters.
func (r *Response) ContentType() string {
	ct, ok := r.Header.Get("Content-Type")
	if !ok {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	before, _, _ := strings.Cut(ct, ";")
	return strings.TrimSpace(before)
}

// Charset returns the charset declared on the Content-Type, or "utf-8".
func (r *Response) Charset() string {
	ct, _ := r.Header.Get("Content-Type")
	if cs := CharsetFromContentType(ct); cs != "" {
		return cs
	}
	return "utf-8"
}

// Bytes reads the whole body and closes it.
func (r *Response) Bytes() ([]byte, error) {
	defer r.Body.Close()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, Classify("read body", err)
	}
	return b, nil
}

// String reads the whole body as text, decoding the declared charset and
// falling back to utf-8 when it cannot be interpreted.
func (r *Response) String() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return decodeText(b, r.Charset()), nil
}

// JSON reads the whole body and unmarshals it into v.
func (r *Response) JSON(v interface{}) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Body framing states. A Body tracks whether its framing completed exactly
// so the engine knows if the underlying stream ended in a pool-safe state.
type Body struct {
	r io.Reader
	// clean reports whether the framed end was reached exactly: all
	// Content-Length bytes consumed, or the chunk terminator seen.
	clean func() bool
	// unframed bodies run to connection close; EOF is their normal end
	// but the stream is never reusable afterward.
	unframed bool

	release func(reusable bool)
	once    sync.Once
}

// NewBody wraps a bounded body reader. A nil reader is an empty body,
// immediately clean. clean must report whether framing completed.
func NewBody(r io.Reader, clean func() bool) *Body {
	return &Body{r: r, clean: clean}
}

// NewUnframedBody wraps a read-to-connection-close body.
func NewUnframedBody(r io.Reader) *Body {
	return &Body{r: r, unframed: true}
}

// OnRelease installs the hook that hands the underlying stream back to its
// owner. It runs exactly once, with reusable reporting pool-safety.
func (b *Body) OnRelease(f func(reusable bool)) { b.release = f }

// Bounded reports whether the body end is findable without a connection
// close.
func (b *Body) Bounded() bool { return !b.unframed }

func (b *Body) isClean() bool { return b.clean == nil || b.clean() }

func (b *Body) Read(p []byte) (int, error) {
	if b.r == nil {
		b.finish(true)
		return 0, io.EOF
	}
	n, err := b.r.Read(p)
	switch {
	case err == nil:
	case err == io.EOF:
		if b.unframed {
			b.finish(false)
		} else if b.isClean() {
			b.finish(true)
		} else {
			// The peer closed before the declared end: surface the
			// truncation instead of a silent short body.
			b.finish(false)
			return n, io.ErrUnexpectedEOF
		}
	default:
		b.finish(false)
	}
	return n, err
}

// Close releases the stream. Closing before the framed end abandons the
// remaining body and marks the stream non-reusable.
func (b *Body) Close() error {
	if b.r == nil || (!b.unframed && b.isClean()) {
		b.finish(true)
	} else {
		b.finish(false)
	}
	return nil
}

func (b *Body) finish(reusable bool) {
	b.once.Do(func() {
		if b.release != nil {
			b.release(reusable)
		}
	})
}
