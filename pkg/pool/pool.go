/*
Package pool implements the thread-safe, per-type LIFO free list that
backs every pooled allocation in the engine (actions, RVPs, rows).

It generalizes shore-kits' object_cache_t<Object> (util/cache.h) — a
template class that placement-news objects into a fixed-size atomic
stack and requires every Object to implement a setup/reset interface —
into a single generic Go type parameterized by the object type and two
plain functions, new and reset, rather than an interface every pooled
type must implement. Go's sync.Pool already gives us a lock-free LIFO
stack with per-P caching; Pool wraps it with the borrow/giveback naming
and pre-warming contract the spec calls for, since sync.Pool alone does
not pre-warm and can drop items under GC pressure at any time (which
this engine treats as any pool: allocation-on-miss, never an error).
*/
package pool

import "sync"

// Pool is a thread-safe free list of *T. Zero value is not usable;
// construct with New.
type Pool[T any] struct {
	new   func() *T
	reset func(*T)
	sp    sync.Pool
}

// New creates a Pool pre-warmed with warmCount objects, pairing
// newFn (construct) with resetFn (clear before reuse). warmCount
// mirrors object_cache_t's DEFAULT_INIT_OBJECT_COUNT: enough objects
// ready before the first borrow to avoid an early contention burst.
func New[T any](warmCount int, newFn func() *T, resetFn func(*T)) *Pool[T] {
	p := &Pool[T]{new: newFn, reset: resetFn}
	p.sp.New = func() any { return newFn() }

	warm := make([]*T, 0, warmCount)
	for i := 0; i < warmCount; i++ {
		warm = append(warm, newFn())
	}
	for _, obj := range warm {
		p.sp.Put(obj)
	}
	return p
}

// Borrow returns an object from the free list, constructing one via
// newFn if the list is currently empty. Every Borrow must be paired
// with exactly one Giveback.
func (p *Pool[T]) Borrow() *T {
	return p.sp.Get().(*T)
}

// Giveback resets obj and returns it to the free list.
func (p *Pool[T]) Giveback(obj *T) {
	p.reset(obj)
	p.sp.Put(obj)
}
