// Package netpool caches idle transport streams for keep-alive reuse,
// keyed by (scheme, host, port).
package netpool

import (
	"sync"

	"github.com/tinyreq/tinyreq/internal/dialer"
)

// Key identifies connection-reuse eligibility.
type Key struct {
	Scheme string
	Host   string
	Port   string
}

// DefaultCapacity bounds the total number of idle streams per pool.
const DefaultCapacity = 100

type entry struct {
	key    Key
	stream *dialer.Stream
}

// Pool is the per-agent idle stream cache. A single mutex guards the
// table and is never held across I/O. Entries are not time-limited: a
// connection the peer closed while idle is caught by the checkout probe
// or, failing that, by the engine's retry on first use.
type Pool struct {
	mu       sync.Mutex
	idle     []entry // FIFO, oldest first
	capacity int
}

func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{capacity: capacity}
}

// Checkout removes and returns one idle stream for key, or nil on a miss.
// At most one caller receives a given entry. Entries whose peer hung up
// while idle are discarded along the way.
func (p *Pool) Checkout(key Key) *dialer.Stream {
	for {
		p.mu.Lock()
		idx := -1
		for i := range p.idle {
			if p.idle[i].key == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			p.mu.Unlock()
			return nil
		}
		s := p.idle[idx].stream
		p.idle = append(p.idle[:idx], p.idle[idx+1:]...)
		p.mu.Unlock()

		if probeIdle(s.Conn()) {
			return s
		}
		s.Close()
	}
}

// Checkin stores an idle stream. Streams that went through an error or an
// incompletely framed exchange must be discarded by the caller instead;
// broken ones are refused here as a second line of defense. When capacity
// is exceeded the oldest idle entry is closed.
func (p *Pool) Checkin(key Key, s *dialer.Stream) {
	if s.Broken() {
		s.Close()
		return
	}
	var evicted *dialer.Stream
	p.mu.Lock()
	p.idle = append(p.idle, entry{key: key, stream: s})
	if len(p.idle) > p.capacity {
		evicted = p.idle[0].stream
		p.idle = p.idle[1:]
	}
	p.mu.Unlock()
	if evicted != nil {
		evicted.Close()
	}
}

// Len reports the number of idle entries.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close drops every idle entry.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, e := range idle {
		e.stream.Close()
	}
}
