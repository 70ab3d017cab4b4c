// Package coalesce deduplicates concurrent fetches for the same logical
// resource into one upstream call.
package coalesce

import (
	"context"
	"sync"
	"time"

	"github.com/scoregate/scoregate/internal/gateway/metrics"
)

const (
	// DefaultWindow is how long a pending fetch absorbs new callers.
	DefaultWindow = 30 * time.Second
	// settleLinger keeps a settled fetch registered briefly so
	// near-simultaneous late joiners still share the result.
	settleLinger = 100 * time.Millisecond
)

type pending[T any] struct {
	done      chan struct{}
	val       T
	err       error
	createdAt time.Time
	settled   bool
}

// Coalescer shares one in-flight fetch among all callers of the same key.
// Exactly one caller per key per window invokes the fetcher; every caller
// receives the identical result or error.
type Coalescer[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*pending[T]
	timers  map[string]*time.Timer
	closed  bool
}

// New creates a coalescer. A zero window uses DefaultWindow.
func New[T any](window time.Duration) *Coalescer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Coalescer[T]{
		window:  window,
		pending: make(map[string]*pending[T]),
		timers:  make(map[string]*time.Timer),
	}
}

// Dedupe returns the shared result for key. If a pending fetch younger than
// the window exists, the caller joins it; otherwise the caller becomes the
// winner and runs fn. Joiners may abandon the wait via ctx, which does not
// cancel the shared fetch.
func (c *Coalescer[T]) Dedupe(ctx context.Context, key string, fn func() (T, error)) (T, error) {
	c.mu.Lock()
	if p, ok := c.pending[key]; ok && time.Since(p.createdAt) < c.window {
		c.mu.Unlock()
		metrics.CoalescedWaitersTotal.Inc()
		select {
		case <-p.done:
			return p.val, p.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	p := &pending[T]{
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	c.pending[key] = p
	metrics.PendingFetches.Set(float64(c.unsettledLocked()))
	c.mu.Unlock()

	p.val, p.err = fn()

	c.mu.Lock()
	p.settled = true
	close(p.done)
	if !c.closed {
		c.scheduleRemoval(key, p)
	} else {
		delete(c.pending, key)
	}
	metrics.PendingFetches.Set(float64(c.unsettledLocked()))
	c.mu.Unlock()

	return p.val, p.err
}

// scheduleRemoval drops the entry shortly after settlement. Caller holds mu.
func (c *Coalescer[T]) scheduleRemoval(key string, p *pending[T]) {
	if t, ok := c.timers[key]; ok {
		t.Stop()
	}
	c.timers[key] = time.AfterFunc(settleLinger, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if cur, ok := c.pending[key]; ok && cur == p {
			delete(c.pending, key)
		}
		delete(c.timers, key)
	})
}

// IsPending reports whether an unsettled fetch for key is in flight.
func (c *Coalescer[T]) IsPending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[key]
	return ok && !p.settled
}

// PendingCount returns the number of unsettled in-flight fetches.
func (c *Coalescer[T]) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsettledLocked()
}

func (c *Coalescer[T]) unsettledLocked() int {
	n := 0
	for _, p := range c.pending {
		if !p.settled {
			n++
		}
	}
	return n
}

// Close stops all cleanup timers. In-flight fetches settle normally; their
// entries are dropped immediately instead of lingering.
func (c *Coalescer[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for key, t := range c.timers {
		t.Stop()
		delete(c.timers, key)
	}
	for key, p := range c.pending {
		if p.settled {
			delete(c.pending, key)
		}
	}
}
