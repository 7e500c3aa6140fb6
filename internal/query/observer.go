package query

import (
	"context"
	"sync"
)

// Observer tracks one query through Idle → Loading → Success|Error, or
// Disabled while its precondition does not hold. It never retries on its own.
type Observer[T any] struct {
	client  *Client
	enabled func() bool

	mu          sync.Mutex
	key         func() Key
	fetch       Fetcher[T]
	result      Result[T]
	seq         uint64
	listeners   []func(Result[T])
	unsubscribe func()
}

// Observe creates an observer for key. A nil enabled means always enabled.
func Observe[T any](c *Client, key Key, enabled func() bool, fetch Fetcher[T]) *Observer[T] {
	return ObserveFunc(c, key.Scope, func() Key { return key }, enabled, fetch)
}

// ObserveFunc creates an observer whose key is resolved on every load, for
// queries whose key depends on state such as the session. Every key must
// belong to scope.
func ObserveFunc[T any](c *Client, scope string, key func() Key, enabled func() bool, fetch Fetcher[T]) *Observer[T] {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	o := &Observer[T]{
		client:  c,
		enabled: enabled,
		key:     key,
		fetch:   fetch,
	}
	if !enabled() {
		o.result = DisabledResult[T]()
	}
	o.unsubscribe = c.Subscribe(scope, o.markStale)
	return o
}

// Result returns the latest state of the query.
func (o *Observer[T]) Result() Result[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

func (o *Observer[T]) Key() Key {
	o.mu.Lock()
	key := o.key
	o.mu.Unlock()
	return key()
}

// OnChange registers fn to receive every state transition.
func (o *Observer[T]) OnChange(fn func(Result[T])) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

// Load runs the query, serving a fresh cached result when there is one.
func (o *Observer[T]) Load(ctx context.Context) Result[T] {
	return o.run(ctx, false)
}

// Refetch runs the query against the network, ignoring the cache.
func (o *Observer[T]) Refetch(ctx context.Context) Result[T] {
	return o.run(ctx, true)
}

// SetKey switches the observer to new parameters and loads them.
func (o *Observer[T]) SetKey(ctx context.Context, key Key, fetch Fetcher[T]) Result[T] {
	o.mu.Lock()
	if key.Scope != o.key().Scope {
		o.unsubscribe()
		o.unsubscribe = o.client.Subscribe(key.Scope, o.markStale)
	}
	o.key = func() Key { return key }
	o.fetch = fetch
	o.seq++
	o.mu.Unlock()
	return o.Load(ctx)
}

// Close stops listening for invalidations.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	unsubscribe := o.unsubscribe
	o.listeners = nil
	o.mu.Unlock()
	unsubscribe()
}

func (o *Observer[T]) run(ctx context.Context, bypassCache bool) Result[T] {
	if !o.enabled() {
		o.mu.Lock()
		o.result = Result[T]{State: Disabled, Data: o.result.Data}
		res := o.result
		o.mu.Unlock()
		o.emit(res)
		return res
	}

	o.mu.Lock()
	o.seq++
	seq := o.seq
	key, fetch := o.key(), o.fetch
	o.result = Result[T]{State: Loading, Data: o.result.Data, UpdatedAt: o.result.UpdatedAt}
	loading := o.result
	o.mu.Unlock()
	o.emit(loading)

	if bypassCache {
		_ = o.client.store.Delete(ctx, key.String())
	}
	data, err := Fetch(ctx, o.client, key, fetch)
	settled := Settled(data, err)
	if err != nil {
		settled.Data = loading.Data
	}

	o.mu.Lock()
	if seq != o.seq {
		// Superseded by a newer run or a key change.
		current := o.result
		o.mu.Unlock()
		return current
	}
	o.result = settled
	o.mu.Unlock()
	o.emit(settled)
	return settled
}

func (o *Observer[T]) markStale() {
	o.mu.Lock()
	if o.result.State != Success {
		o.mu.Unlock()
		return
	}
	o.result.Stale = true
	res := o.result
	o.mu.Unlock()
	o.emit(res)
}

func (o *Observer[T]) emit(res Result[T]) {
	o.mu.Lock()
	listeners := make([]func(Result[T]), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()
	for _, fn := range listeners {
		fn(res)
	}
}
