/*
Package lock implements the per-partition logical lock manager (C3).

Locks here are logical — taken on key.Key values, not storage pages —
because every action on a partition runs on that partition's single
worker goroutine (pkg/partition): there is no physical concurrency to
control inside a partition. Logical locks exist purely to serialize
contending actions *at the partition's entry point*, across
transactions that would otherwise interleave on the same row.

Grant policy is FIFO with writer preference: once any Exclusive waiter
is queued for a key, no later Shared request may be granted ahead of
it, even if it would otherwise be compatible with the current holders.
shore-kits does not document its grant policy explicitly; this is the
documented implementation decision spec.md §9 calls for.
*/
package lock

import (
	"sync"

	"github.com/ipandis/dorakit/pkg/key"
)

// Mode is a lock mode.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func compatible(a, b Mode) bool {
	return a == Shared && b == Shared
}

// entry is one queued or granted request on a key.
type entry struct {
	txID    string
	mode    Mode
	granted bool
	grantCB func()
}

// Table is one partition's lock table: a map from key bytes to a FIFO
// queue of entries. A single mutex guards it; critical sections are
// O(lock-set size) per acquire/release call, never O(queue length)
// across unrelated keys.
type Table struct {
	mu     sync.Mutex
	queues map[string][]*entry
}

// NewTable creates an empty lock table for one partition.
func NewTable() *Table {
	return &Table{queues: make(map[string][]*entry)}
}

// Acquire requests mode on k for txID. If the request is compatible
// with the current head-of-queue state, it is granted immediately and
// grantCB is invoked synchronously before Acquire returns. Otherwise
// the request is appended as a waiter and grantCB fires later, inline
// on whichever goroutine calls Release and frees the key.
//
// Acquisition never fails; it waits (or is granted synchronously).
// Timeouts, if a caller wants them, are layered on top by not
// blocking the caller thread — grantCB runs on the releasing
// goroutine, so this method itself never blocks.
func (t *Table) Acquire(txID string, k key.Key, mode Mode, grantCB func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bk := string(k.Bytes())
	q := t.queues[bk]

	if e := upgradeIfSoleHolder(q, txID, mode); e != nil {
		e.mode = mode
		grantCB()
		return
	}

	if canGrantImmediately(q, mode) {
		e := &entry{txID: txID, mode: mode, granted: true, grantCB: grantCB}
		t.queues[bk] = append(q, e)
		grantCB()
		return
	}

	e := &entry{txID: txID, mode: mode, granted: false, grantCB: grantCB}
	t.queues[bk] = append(q, e)
}

// upgradeIfSoleHolder returns the existing granted entry for txID if
// it is the only holder of k, allowing a Shared->Exclusive upgrade in
// place per §3's Lock queue entry invariant.
func upgradeIfSoleHolder(q []*entry, txID string, mode Mode) *entry {
	if mode != Exclusive {
		return nil
	}
	var sole *entry
	count := 0
	for _, e := range q {
		if e.granted {
			count++
			if e.txID == txID {
				sole = e
			}
		}
	}
	if count == 1 && sole != nil {
		return sole
	}
	return nil
}

// canGrantImmediately reports whether a new request of mode can be
// granted given the current queue: it must be compatible with every
// currently granted holder, and under writer preference, no Exclusive
// waiter may already be queued ahead of a new Shared request.
func canGrantImmediately(q []*entry, mode Mode) bool {
	sawWaitingExclusive := false
	for _, e := range q {
		if !e.granted {
			if e.mode == Exclusive {
				sawWaitingExclusive = true
			}
			continue
		}
		if !compatible(e.mode, mode) {
			return false
		}
	}
	if mode == Shared && sawWaitingExclusive {
		return false
	}
	return true
}

// Release removes txID's holder entry for k and grants every
// contiguous compatible waiter starting at the front of the queue.
// Newly granted waiters' grantCB callbacks are invoked inline, on the
// releasing goroutine, per §4.3.
func (t *Table) Release(txID string, k key.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bk := string(k.Bytes())
	q := t.queues[bk]
	out := q[:0]
	for _, e := range q {
		if e.granted && e.txID == txID {
			continue
		}
		out = append(out, e)
	}
	t.queues[bk] = out

	t.grantContiguous(bk)
}

// grantContiguous walks the queue from the front, granting every
// waiter compatible with all holders granted so far, stopping at the
// first incompatible waiter (FIFO order is preserved: later waiters
// never jump the queue).
func (t *Table) grantContiguous(bk string) {
	q := t.queues[bk]
	for _, e := range q {
		if e.granted {
			continue
		}
		if !aggregateCompatible(q, e) {
			return
		}
		e.granted = true
		e.grantCB()
	}
}

func aggregateCompatible(q []*entry, candidate *entry) bool {
	for _, e := range q {
		if e == candidate || !e.granted {
			continue
		}
		if !compatible(e.mode, candidate.mode) {
			return false
		}
	}
	return true
}

// ReleaseAll releases every lock txID currently holds across every
// key in the table. Invoked at transaction end (§4.3).
func (t *Table) ReleaseAll(txID string) {
	t.mu.Lock()
	keys := make([]string, 0, len(t.queues))
	for bk, q := range t.queues {
		for _, e := range q {
			if e.granted && e.txID == txID {
				keys = append(keys, bk)
				break
			}
		}
	}
	t.mu.Unlock()

	for _, bk := range keys {
		t.releaseRaw(txID, bk)
	}
}

func (t *Table) releaseRaw(txID, bk string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.queues[bk]
	out := q[:0]
	for _, e := range q {
		if e.granted && e.txID == txID {
			continue
		}
		out = append(out, e)
	}
	t.queues[bk] = out
	t.grantContiguous(bk)
}
