package stream

import (
	"sync"
	"sync/atomic"
)

// Subscription is the handle returned by Subscribe, OnStateChange and OnError.
type Subscription struct {
	active atomic.Bool
	remove func()
}

// Unsubscribe removes the callback. It is idempotent and safe to call from
// inside any callback; the subscriber is skipped for the rest of the current
// fan-out pass.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.active.CompareAndSwap(true, false) {
		return
	}
	s.remove()
}

// Active reports whether the subscription still receives notifications.
func (s *Subscription) Active() bool { return s != nil && s.active.Load() }

type entry[F any] struct {
	sub *Subscription
	fn  F
}

// registry keeps callbacks in registration order.
type registry[F any] struct {
	mu      sync.Mutex
	entries []*entry[F]
}

func (r *registry[F]) add(fn F) *Subscription {
	e := &entry[F]{sub: &Subscription{}, fn: fn}
	e.sub.active.Store(true)
	e.sub.remove = func() { r.drop(e) }

	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	return e.sub
}

func (r *registry[F]) drop(target *entry[F]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e == target {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

// snapshot returns the current entries. Callers must still check sub.active
// before each call.
func (r *registry[F]) snapshot() []*entry[F] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	return append([]*entry[F](nil), r.entries...)
}

func (r *registry[F]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
