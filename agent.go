package tinyreq

import (
	"crypto/tls"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tinyreq/tinyreq/internal"
	"github.com/tinyreq/tinyreq/internal/header"
	"github.com/tinyreq/tinyreq/internal/model"
	"github.com/tinyreq/tinyreq/internal/netpool"
)

// DefaultRedirects is the hop budget of new requests.
const DefaultRedirects = 5

// Agent keeps state between requests: one connection pool, persistent
// headers and cookies. Requests created from the same agent share that
// state by reference; an Agent is safe for concurrent use from multiple
// goroutines.
type Agent struct {
	mu          sync.Mutex
	headers     header.Headers
	cookieOrder []string
	cookies     map[string]string

	engine *internal.Client
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithLogger routes the engine's debug logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.engine.Logger = l }
}

// WithTLSConfig sets the TLS configuration for https connections. The
// ServerName is still derived per request unless set explicitly.
func WithTLSConfig(c *tls.Config) Option {
	return func(a *Agent) { a.engine.TLS = c }
}

// WithPoolCapacity bounds the number of idle connections kept for reuse.
func WithPoolCapacity(n int) Option {
	return func(a *Agent) { a.engine.Pool = netpool.New(n) }
}

// WithThrottle rate-limits the requests issued through the agent.
func WithThrottle(rps float64, burst int) Option {
	return func(a *Agent) { a.engine.Limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewAgent creates an agent with an empty header set and its own pool.
func NewAgent(opts ...Option) *Agent {
	a := &Agent{cookies: map[string]string{}}
	a.engine = &internal.Client{
		Pool:   netpool.New(0),
		Logger: slog.Default(),
	}
	a.engine.Jar = agentJar{a}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Set adds a header sent with every request created from this agent.
func (a *Agent) Set(name, value string) *Agent {
	a.mu.Lock()
	a.headers.Add(name, value)
	a.mu.Unlock()
	return a
}

// Auth sets persistent basic auth.
func (a *Agent) Auth(user, pass string) *Agent {
	return a.Set("Authorization", "Basic "+basicAuth(user, pass))
}

// Request creates a request for method and target, seeded with the agent's
// persistent headers.
func (a *Agent) Request(method, target string) Request {
	a.mu.Lock()
	hdr := a.headers.Clone()
	a.mu.Unlock()
	return Request{
		agent: a,
		desc: model.Request{
			Method:    method,
			Target:    target,
			Header:    hdr,
			Redirects: DefaultRedirects,
		},
	}
}

// Get creates a GET request on this agent.
func (a *Agent) Get(target string) Request { return a.Request("GET", target) }

// Head creates a HEAD request on this agent.
func (a *Agent) Head(target string) Request { return a.Request("HEAD", target) }

// Post creates a POST request on this agent.
func (a *Agent) Post(target string) Request { return a.Request("POST", target) }

// Put creates a PUT request on this agent.
func (a *Agent) Put(target string) Request { return a.Request("PUT", target) }

// Delete creates a DELETE request on this agent.
func (a *Agent) Delete(target string) Request { return a.Request("DELETE", target) }

// Patch creates a PATCH request on this agent.
func (a *Agent) Patch(target string) Request { return a.Request("PATCH", target) }

// Close drops the agent's idle connections.
func (a *Agent) Close() {
	a.engine.Pool.Close()
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

// agentJar adapts the agent's cookie state to the engine. Cookies are kept
// as a flat name/value jar replayed on every request from the agent.
type agentJar struct{ a *Agent }

func (j agentJar) CookieHeader() (string, bool) {
	j.a.mu.Lock()
	defer j.a.mu.Unlock()
	if len(j.a.cookieOrder) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(j.a.cookieOrder))
	for _, name := range j.a.cookieOrder {
		parts = append(parts, name+"="+j.a.cookies[name])
	}
	return strings.Join(parts, "; "), true
}

func (j agentJar) StoreSetCookies(values []string) {
	j.a.mu.Lock()
	defer j.a.mu.Unlock()
	for _, v := range values {
		pair, _, _ := strings.Cut(v, ";")
		name, val, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if _, seen := j.a.cookies[name]; !seen {
			j.a.cookieOrder = append(j.a.cookieOrder, name)
		}
		j.a.cookies[name] = strings.TrimSpace(val)
	}
}
