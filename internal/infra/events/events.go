// Package events provides the engine's structured event fan-out.
//
// Mirrors observe the engine exclusively through this log: every
// state-mutating operation lands here after its transaction commits, and
// subscribers (the SSE feed, the sqlite journal, metrics) consume events
// asynchronously. Delivery is at-least-once from the mirror's point of view
// and ordered per campaign, because the engine emits under the campaign's
// lock.
package events

import (
	"sync"

	"github.com/fundra-network/fundra/internal/domain"
)

// Handler consumes events as they are published.
type Handler func(domain.Event)

// Log is a bounded in-memory event buffer with subscriber fan-out.
type Log struct {
	mu      sync.Mutex
	buf     []domain.Event
	max     int
	subs    map[int]Handler
	nextSub int
	total   int64
}

// NewLog creates a log retaining at most max recent events
// (default 10_000 when max is non-positive).
func NewLog(max int) *Log {
	if max <= 0 {
		max = 10_000
	}
	return &Log{
		buf:  make([]domain.Event, 0, max),
		max:  max,
		subs: make(map[int]Handler),
	}
}

// Publish records the event and delivers it to all subscribers.
// Handlers run synchronously in subscription order; they must not block.
func (l *Log) Publish(e domain.Event) {
	l.mu.Lock()
	if len(l.buf) >= l.max {
		l.buf = l.buf[1:]
	}
	l.buf = append(l.buf, e)
	l.total++
	handlers := make([]Handler, 0, len(l.subs))
	for _, h := range l.subs {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

// Subscribe registers a handler and returns its cancel function.
func (l *Log) Subscribe(h Handler) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	l.subs[id] = h
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Recent returns up to n most recent events, oldest first.
func (l *Log) Recent(n int) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.buf) {
		n = len(l.buf)
	}
	out := make([]domain.Event, n)
	copy(out, l.buf[len(l.buf)-n:])
	return out
}

// Total returns the number of events published over the log's lifetime.
func (l *Log) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.total
}
