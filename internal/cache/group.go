package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ErrNotFound reports that a computation determined no value exists.
// Group settles it as a terminal negative entry and never recomputes the key.
var ErrNotFound = errors.New("not found")

// GroupStats is a snapshot of a Group's counters. Shared counts callers
// that waited on a computation started by another caller.
type GroupStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Shared    int64 `json:"shared"`
	Settled   int   `json:"settled"`
	Negatives int   `json:"negatives"`
}

type settledEntry[V any] struct {
	value V
	err   error // non-nil only for negative entries
}

// Group memoizes one computation per key for the lifetime of the process.
//
// Concurrent callers asking for the same key share a single in-flight
// computation. A successful result or an ErrNotFound result is settled and
// returned to every later caller without running the compute function again.
// Any other error is handed back to the callers that were waiting on that
// computation and leaves the key unsettled, so the next access retries.
//
// Settled entries are never evicted.
type Group[K comparable, V any] struct {
	name string
	sf   singleflight.Group

	mu      sync.RWMutex
	settled map[K]settledEntry[V]

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

// NewGroup creates an empty Group. The name is only used in log and error
// messages.
func NewGroup[K comparable, V any](name string) *Group[K, V] {
	return &Group[K, V]{
		name:    name,
		settled: make(map[K]settledEntry[V]),
	}
}

// Name returns the group name
func (g *Group[K, V]) Name() string {
	return g.name
}

// GetOrCompute returns the settled result for key, or runs compute exactly
// once across all concurrent callers and settles its result.
//
// compute receives a context that is detached from the caller's
// cancellation: a caller whose ctx is done stops waiting and gets ctx.Err(),
// but the shared computation keeps running for the other waiters and still
// settles.
func (g *Group[K, V]) GetOrCompute(ctx context.Context, key K, compute func(ctx context.Context) (V, error)) (V, error) {
	if entry, ok := g.lookup(key); ok {
		g.hits.Add(1)
		return entry.value, entry.err
	}
	g.misses.Add(1)

	detached := context.WithoutCancel(ctx)
	leader := false
	ch := g.sf.DoChan(flightKey(key), func() (any, error) {
		leader = true
		// Another flight may have settled the key after our lookup.
		if entry, ok := g.lookup(key); ok {
			return entry.value, entry.err
		}

		value, err := compute(detached)
		switch {
		case err == nil:
			g.settle(key, settledEntry[V]{value: value})
		case errors.Is(err, ErrNotFound):
			var zero V
			g.settle(key, settledEntry[V]{value: zero, err: err})
		}
		return value, err
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		// leader is written before the result is sent
		if res.Shared && !leader {
			g.shared.Add(1)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(V)
		return value, nil
	}
}

// Peek returns the settled value for key without computing anything.
// The second result is false when the key is unsettled or settled negative.
func (g *Group[K, V]) Peek(key K) (V, bool) {
	entry, ok := g.lookup(key)
	if !ok || entry.err != nil {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// IsNegative reports whether key is settled as absent
func (g *Group[K, V]) IsNegative(key K) bool {
	entry, ok := g.lookup(key)
	return ok && entry.err != nil
}

// Stats returns a snapshot of the group counters
func (g *Group[K, V]) Stats() GroupStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	negatives := 0
	for _, entry := range g.settled {
		if entry.err != nil {
			negatives++
		}
	}

	return GroupStats{
		Hits:      g.hits.Load(),
		Misses:    g.misses.Load(),
		Shared:    g.shared.Load(),
		Settled:   len(g.settled),
		Negatives: negatives,
	}
}

func (g *Group[K, V]) lookup(key K) (settledEntry[V], bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.settled[key]
	return entry, ok
}

// settle stores the first result for key; later results are ignored so a
// settled entry is never replaced.
func (g *Group[K, V]) settle(key K, entry settledEntry[V]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.settled[key]; exists {
		return
	}
	g.settled[key] = entry
}

// flightKey renders a comparable key as the string singleflight needs.
// %#v keeps distinct string and struct keys distinct.
func flightKey[K comparable](key K) string {
	return fmt.Sprintf("%#v", key)
}
