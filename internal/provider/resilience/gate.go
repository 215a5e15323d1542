package resilience

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum interval between calls to a shared upstream.
// Each caller reserves the next free slot, at least interval after the
// previous one, and sleeps until it arrives. A Gate is safe for concurrent
// use and is meant to be shared by every client of the same upstream.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time // earliest start of the next free slot
}

// NewGate creates a gate that spaces calls interval apart.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// Wait blocks until the caller's slot arrives or ctx is done. A caller
// whose ctx ends while queued returns at once; it does not wait behind the
// callers ahead of it.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slot := g.reserve()
	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		g.release(slot)
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Gate) reserve() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot := time.Now()
	if g.next.After(slot) {
		slot = g.next
	}
	g.next = slot.Add(g.interval)
	return slot
}

// release hands an abandoned slot back when no later caller has reserved
// one behind it.
func (g *Gate) release(slot time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.next.Equal(slot.Add(g.interval)) {
		g.next = slot
	}
}
