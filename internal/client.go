// Package internal implements the request-execution engine: it turns a
// request description into wire bytes, manages the transport connection,
// decodes the response and resolves redirects.
package internal

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/tinyreq/tinyreq/internal/dialer"
	"github.com/tinyreq/tinyreq/internal/model"
	"github.com/tinyreq/tinyreq/internal/netpool"
	"github.com/tinyreq/tinyreq/internal/transport"
)

// CookieJar is the engine's view of the agent's cookie state.
type CookieJar interface {
	// CookieHeader returns the Cookie header value to attach, if any.
	CookieHeader() (string, bool)
	// StoreSetCookies records Set-Cookie values from a response.
	StoreSetCookies(values []string)
}

// DialFunc opens a fresh transport stream. Tests swap it out.
type DialFunc func(cfg dialer.Config) (*dialer.Stream, error)

// Client is the execution engine, one per agent. It is safe for concurrent
// use: requests run synchronously on the calling goroutine and the pool is
// the only shared state.
type Client struct {
	Pool    *netpool.Pool
	TLS     *tls.Config
	Jar     CookieJar
	Logger  *slog.Logger
	Limiter *rate.Limiter

	// Dial overrides how fresh streams are opened; nil uses the network
	// dialer.
	Dial DialFunc
}

// maxDrain caps how much of a bounded redirect body is read before the next
// hop so the stream can go back to the pool.
const maxDrain = 256 << 10

func (c *Client) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) dial(cfg dialer.Config) (*dialer.Stream, error) {
	if c.Dial != nil {
		return c.Dial(cfg)
	}
	return dialer.Connect(cfg)
}

// Do executes the request: Resolve -> Acquire -> Send -> Decode, looping
// through Redirect hops until the chain settles or the budget runs out.
func (c *Client) Do(req *model.Request) (*model.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(context.Background()); err != nil {
			return nil, &model.Error{Kind: model.IO, Op: "throttle", Err: err}
		}
	}

	u, err := model.ResolveTarget(req.Target)
	if err != nil {
		return nil, err
	}

	method := req.Method
	payload := req.Body
	remaining := req.Redirects
	firstHop := true

	for {
		unit, err := model.Compile(req, method, u, payload, firstHop)
		if err != nil {
			return nil, err
		}
		if c.Jar != nil && !unit.Header.Has("Cookie") {
			if v, ok := c.Jar.CookieHeader(); ok {
				unit.Header.Add("Cookie", v)
			}
		}

		resp, err := c.roundTrip(req, unit)
		if err != nil {
			return nil, err
		}
		if c.Jar != nil {
			if sc := resp.Header.GetAll("Set-Cookie"); len(sc) > 0 {
				c.Jar.StoreSetCookies(sc)
			}
		}

		loc, indicated := redirectTarget(resp)
		if !indicated || req.Redirects == 0 {
			return resp, nil
		}
		nextMethod, keepBody := redirectMethod(resp.StatusCode, method)
		if keepBody && !unit.Replayable {
			// a one-shot stream body cannot be resent
			return resp, nil
		}
		next, perr := u.Parse(loc)
		if perr != nil {
			resp.Body.Close()
			return nil, &model.Error{Kind: model.BadURL, Op: "redirect location " + loc, Err: perr}
		}
		if next.Scheme != "http" && next.Scheme != "https" {
			resp.Body.Close()
			return nil, &model.Error{Kind: model.BadURL,
				Op: "redirect location " + loc + ": unsupported scheme " + strconv.Quote(next.Scheme)}
		}

		drain(resp)
		remaining--
		if remaining <= 0 {
			// the budget is spent while another redirect is indicated:
			// Location is not dereferenced, and the caller gets a
			// status to branch on rather than a hard failure
			c.log().Debug("redirect budget exhausted", "url", next.Redacted())
			return model.NewRedirectLimitResponse(), nil
		}
		c.log().Debug("following redirect",
			"status", resp.StatusCode, "to", next.Redacted(), "remaining", remaining)

		u = next
		method = nextMethod
		if !keepBody {
			payload = model.Payload{}
		}
		firstHop = false
	}
}

// roundTrip performs one hop: acquire a stream (pool or fresh), send the
// unit, decode the response. A transport failure before any response byte
// on a reused stream is silently retried once on a fresh connection; the
// same failure on a fresh connection, or with a body that cannot be
// resent, is surfaced.
func (c *Client) roundTrip(req *model.Request, unit *model.Unit) (*model.Response, error) {
	scheme, host, port := unit.Addr()
	key := netpool.Key{Scheme: scheme, Host: host, Port: port}

	for attempt := 0; ; attempt++ {
		var st *dialer.Stream
		reused := false
		if attempt == 0 && c.Pool != nil {
			if s := c.Pool.Checkout(key); s != nil {
				st, reused = s, true
				c.log().Debug("reusing pooled connection", "host", host, "port", port)
			}
		}
		if st == nil {
			var err error
			st, err = c.dial(dialer.Config{
				Scheme:  scheme,
				Host:    host,
				Port:    port,
				Family:  req.Family,
				Timeout: req.TimeoutConnect,
				TLS:     c.TLS,
			})
			if err != nil {
				return nil, err
			}
		}
		st.SetTimeouts(req.TimeoutRead, req.TimeoutWrite)

		resp, retriable, err := c.exchange(unit, st, key)
		if err == nil {
			return resp, nil
		}
		st.Close()
		// A one-shot stream body may already be partially consumed, so
		// only replayable units get the retry.
		if reused && retriable && unit.Replayable {
			c.log().Debug("pooled connection failed, retrying on a fresh one", "err", err)
			continue
		}
		return nil, err
	}
}

// exchange writes the unit and decodes the response on st. retriable is
// true when the failure happened before any response byte arrived, i.e.
// the server cannot have acted on the request output yet.
func (c *Client) exchange(unit *model.Unit, st *dialer.Stream, key netpool.Key) (*model.Response, bool, error) {
	if err := transport.WriteRequest(st, unit); err != nil {
		return nil, true, model.Classify("write request", err)
	}

	cr := &countingReader{r: st}
	br := bufio.NewReader(cr)
	resp := &model.Response{}
	if err := transport.ReadResponse(br, unit.Method == "HEAD", resp); err != nil {
		return nil, cr.n == 0, err
	}

	wantsClose := unit.CloseAfter || connectionClose(resp)
	if v, ok := unit.Header.Get("Connection"); ok && strings.Contains(strings.ToLower(v), "close") {
		wantsClose = true
	}
	body := resp.Body.(*model.Body)
	body.OnRelease(func(reusable bool) {
		// a clean framed end with nothing buffered beyond it means the
		// stream sits exactly between responses
		if reusable && !wantsClose && !st.Broken() && br.Buffered() == 0 && c.Pool != nil {
			c.Pool.Checkin(key, st)
			return
		}
		c.log().Debug("discarding connection", "host", key.Host, "port", key.Port)
		st.Close()
	})
	return resp, false, nil
}

func connectionClose(resp *model.Response) bool {
	for _, v := range resp.Header.GetAll("Connection") {
		if strings.Contains(strings.ToLower(v), "close") {
			return true
		}
	}
	// pre-keep-alive protocol version
	return resp.Proto == "HTTP/1.0" && !resp.Header.Has("Connection")
}

// redirectTarget reports whether resp indicates a redirect the engine
// follows, and where to.
func redirectTarget(resp *model.Response) (string, bool) {
	switch resp.StatusCode {
	case 301, 302, 303, 307, 308:
		loc, ok := resp.Header.Get("Location")
		return loc, ok && loc != ""
	}
	return "", false
}

// redirectMethod implements the fixed redirect policy: 303 always turns the
// next hop into a bodiless GET (HEAD stays HEAD); 301 and 302 do the same
// for everything but GET and HEAD; 307 and 308 preserve method and body.
func redirectMethod(status int, method string) (next string, keepBody bool) {
	switch status {
	case 307, 308:
		return method, true
	default: // 301, 302, 303
		if method == "GET" || method == "HEAD" {
			return method, false
		}
		return "GET", false
	}
}

// drain consumes a bounded redirect body so its stream can be pooled for
// the next hop; unbounded or oversized bodies are abandoned along with the
// stream.
func drain(resp *model.Response) {
	if b, ok := resp.Body.(*model.Body); ok && b.Bounded() &&
		resp.ContentLength <= maxDrain {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	}
	resp.Body.Close()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
