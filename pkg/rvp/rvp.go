/*
Package rvp implements the rendezvous point (RVP) — the join-barrier
that sequences a transaction's action graph (C6).

An RVP holds a decrementable predecessor counter and a single-writer
"fired" flag. Post atomically merges an action's outcome into the
aggregate (logical AND over success) and decrements the counter; the
one goroutine that brings the counter to zero transitions Armed->Fired
and runs the continuation. Continuations must never block a partition
worker — they enqueue further actions or request commit and return.

Two subtypes exist only in how their continuation is built: a midway
RVP's continuation enqueues the next wave of actions; a final RVP's
continuation requests commit or abort and replies to the client. Both
are the same Point type parameterized by a different Continuation.
*/
package rvp

import "sync/atomic"

// Outcome is the aggregate result an RVP accumulates from its
// predecessor actions.
type Outcome int

const (
	OK Outcome = iota
	Aborted
)

// State is the RVP's lifecycle stage.
type State int

const (
	Armed State = iota
	Fired
	Released
)

// Continuation is invoked exactly once, by the goroutine that fires
// the RVP. It must be non-blocking with respect to partition workers.
type Continuation func(outcome Outcome)

// Point is one rendezvous barrier.
type Point struct {
	remaining int64 // atomic
	failed    int32 // atomic sticky failure bit, 0 or 1
	state     int32 // atomic State

	continuation Continuation

	// TxID identifies the owning transaction, for logging and for
	// the coordinator's arena bookkeeping.
	TxID string
	// Kind distinguishes midway from final RVPs for logging only; the
	// behavioral difference lives entirely in Continuation.
	Kind Kind
}

// Kind labels an RVP as midway or final.
type Kind int

const (
	Midway Kind = iota
	Final
)

// New creates an RVP armed to fire after npred posts.
func New(txID string, kind Kind, npred int, cont Continuation) *Point {
	return &Point{
		remaining:    int64(npred),
		continuation: cont,
		TxID:         txID,
		Kind:         kind,
	}
}

// Reset reinitializes a pooled Point for reuse (pkg/pool contract).
func (p *Point) Reset(txID string, kind Kind, npred int, cont Continuation) {
	atomic.StoreInt64(&p.remaining, int64(npred))
	atomic.StoreInt32(&p.failed, 0)
	atomic.StoreInt32(&p.state, int32(Armed))
	p.continuation = cont
	p.TxID = txID
	p.Kind = kind
}

// State returns the current lifecycle stage.
func (p *Point) State() State {
	return State(atomic.LoadInt32(&p.state))
}

// Post merges outcome into the aggregate and decrements the
// predecessor counter. Exactly one caller — the one that observes the
// counter reach zero — fires the RVP and runs its continuation; every
// other caller returns immediately after recording the outcome. The
// firing caller marks the Point Released before invoking the
// continuation, since the continuation may return the Point to its
// pool (and have it Reset and reused by another transaction) on a
// different goroutine; nothing below that store may touch p again.
// Graph liveness (§8): an RVP with predecessor count k fires after
// exactly k Post calls.
func (p *Point) Post(outcome Outcome) {
	if outcome == Aborted {
		atomic.StoreInt32(&p.failed, 1)
	}

	if atomic.AddInt64(&p.remaining, -1) != 0 {
		return
	}

	if !atomic.CompareAndSwapInt32(&p.state, int32(Armed), int32(Fired)) {
		// Another Post already fired this RVP; never double-fire.
		return
	}

	agg := OK
	if atomic.LoadInt32(&p.failed) == 1 {
		agg = Aborted
	}

	// Release before invoking the continuation: a final RVP's
	// continuation may hand this Point back to the pool and Reset it
	// on another goroutine, so this goroutine must not touch p again
	// once the continuation starts running.
	atomic.StoreInt32(&p.state, int32(Released))

	if p.continuation != nil {
		p.continuation(agg)
	}
}

// Outcome returns the RVP's current aggregate outcome, valid only
// after it has fired. Useful for tests and for the coordinator's
// final collection step.
func (p *Point) Outcome() Outcome {
	if atomic.LoadInt32(&p.failed) == 1 {
		return Aborted
	}
	return OK
}
