// Package memo combines a key/value store with single-flight execution so
// that at most one producer runs per key while its result is memoized for
// later lookups.
package memo

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store is the memoization backend, such as *rescache.Cache.
type Store[V any] interface {
	Get(key string) (V, bool)
	Put(key string, value V)
}

// Producer computes the value for a key.
type Producer[V any] func(ctx context.Context) (V, error)

// Group deduplicates concurrent producers per key and remembers results.
// The empty key is never looked up, shared, or remembered.
type Group[V any] struct {
	store  Store[V]
	flight singleflight.Group

	mu    sync.Mutex
	calls map[string]*call
}

// call tracks the callers waiting on one in-flight producer. The producer's
// context is canceled once no caller is left waiting.
type call struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New returns a group backed by store.
func New[V any](store Store[V]) *Group[V] {
	return &Group[V]{store: store, calls: make(map[string]*call)}
}

// Lookup returns the memoized value for key.
func (g *Group[V]) Lookup(key string) (V, bool) {
	if key == "" || g.store == nil {
		var zero V
		return zero, false
	}
	return g.store.Get(key)
}

// Remember stores value under key.
func (g *Group[V]) Remember(key string, value V) {
	if key == "" || g.store == nil {
		return
	}
	g.store.Put(key, value)
}

// Do runs fn unless a producer for key is already in flight, in which case
// it waits for that producer's result. shared reports whether the result
// was delivered to more than one caller. A canceled caller returns
// ctx.Err() immediately; the producer keeps running for the remaining
// callers and its context is canceled when the last one leaves. Do does
// not memoize.
func (g *Group[V]) Do(ctx context.Context, key string, fn Producer[V]) (value V, shared bool, err error) {
	if key == "" {
		value, err = fn(ctx)
		return value, false, err
	}

	c := g.join(ctx, key)
	ch := g.flight.DoChan(key, func() (any, error) {
		return fn(c.ctx)
	})
	select {
	case <-ctx.Done():
		g.leave(key, c)
		var zero V
		return zero, false, ctx.Err()
	case res := <-ch:
		g.leave(key, c)
		if res.Err != nil {
			var zero V
			return zero, res.Shared, res.Err
		}
		typed, ok := res.Val.(V)
		if !ok {
			var zero V
			return zero, res.Shared, fmt.Errorf("memo: unexpected value type %T", res.Val)
		}
		return typed, res.Shared, nil
	}
}

func (g *Group[V]) join(ctx context.Context, key string) *call {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.calls[key]
	if !ok {
		producerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call{ctx: producerCtx, cancel: cancel}
		g.calls[key] = c
	}
	c.waiters++
	return c
}

func (g *Group[V]) leave(key string, c *call) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.waiters--
	if c.waiters > 0 {
		return
	}
	c.cancel()
	if g.calls[key] == c {
		delete(g.calls, key)
	}
	// An abandoned producer may still be winding down; later callers must
	// not join it.
	g.flight.Forget(key)
}
