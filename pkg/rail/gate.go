package rail

import (
	"context"
	"sync"
)

// gate linearizes one stage's frames by sequence number. next is the lowest
// sequence not yet retired; a caller waiting on seq is woken through its own
// channel once next reaches it, so unrelated frames never contend on a lock
// for longer than a map update.
type gate struct {
	mu      sync.Mutex
	next    uint64
	done    map[uint64]struct{}
	waiters map[uint64]chan struct{}
}

func newGate() *gate {
	return &gate{
		done:    make(map[uint64]struct{}),
		waiters: make(map[uint64]chan struct{}),
	}
}

// wait blocks until every sequence below seq has been retired.
func (g *gate) wait(ctx context.Context, seq uint64) error {
	g.mu.Lock()
	if seq < g.next {
		g.mu.Unlock()
		return ErrTokenRetired
	}
	if seq == g.next {
		g.mu.Unlock()
		return nil
	}
	ch, ok := g.waiters[seq]
	if !ok {
		ch = make(chan struct{})
		g.waiters[seq] = ch
	}
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retire marks seq as finished. Retiring twice is harmless.
func (g *gate) retire(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if seq < g.next {
		return
	}
	g.done[seq] = struct{}{}
	for {
		if _, ok := g.done[g.next]; !ok {
			break
		}
		delete(g.done, g.next)
		g.next++
	}
	if ch, ok := g.waiters[g.next]; ok {
		close(ch)
		delete(g.waiters, g.next)
	}
}

func (g *gate) position() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
