/*
Package storage defines the thin contract the DORA core consumes from
the underlying storage manager (C10) and ships two concrete
implementations of it.

spec.md treats the real storage manager — buffer pool, WAL, B-tree,
record I/O — as an external collaborator, deliberately out of the
core's scope. This package is the seam: Adapter is the interface every
core component programs against, and MemAdapter / BoltAdapter are
reference implementations good enough to run the engine end to end in
tests and the CLI, standing in for a production storage manager the
way an in-memory fake stands in for a database in any integration
test.

BoltAdapter additionally demonstrates what a real adapter wiring looks
like: transactional get/put backed by go.etcd.io/bbolt, one bucket per
table.
*/
package storage

import (
	"context"
	"sync/atomic"

	"github.com/ipandis/dorakit/pkg/key"
)

// Row is an opaque record. The core never interprets row contents; it
// only carries them between an action's payload and the adapter.
type Row map[string]any

// Direction controls scan order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Handle is the opaque transaction handle spec.md §4.10 requires.
// Every action belonging to the same transaction shares the same
// Handle; Impl carries the adapter-specific transaction reference
// (e.g. a *bolt.Tx) and is only ever touched by the adapter itself.
type Handle struct {
	ID   string
	Impl any

	// Cancelled is checked by partition workers before executing an
	// action (§5 Cancellation/timeout): a sticky flag set when the
	// coordinator aborts the owning transaction out-of-band (client
	// cancellation, deadlock victim selection).
	cancelled boolFlag
}

// Cancel sets the handle's sticky cancellation flag.
func (h *Handle) Cancel() { h.cancelled.set() }

// Cancelled reports the handle's sticky cancellation flag.
func (h *Handle) Cancelled() bool { return h.cancelled.get() }

// boolFlag is a tiny atomic bool, kept local so Handle has no
// exported mutable surface beyond Cancel/Cancelled.
type boolFlag struct{ v int32 }

func (b *boolFlag) set()      { atomic.StoreInt32(&b.v, 1) }
func (b *boolFlag) get() bool { return atomic.LoadInt32(&b.v) == 1 }

// Cursor iterates the rows of a scan in key order.
type Cursor interface {
	Next() bool
	Key() key.Key
	Row() Row
	Close() error
}

// Adapter is the external storage interface (C10). All operations
// take the transaction's Handle; the adapter is assumed thread-safe
// across distinct handles (partition workers for the same transaction
// never run concurrently, but different transactions' handles are
// used from different partition-worker goroutines simultaneously).
type Adapter interface {
	Begin(ctx context.Context) (*Handle, error)
	Commit(ctx context.Context, h *Handle) error
	Abort(ctx context.Context, h *Handle) error

	Get(ctx context.Context, h *Handle, table string, k key.Key) (Row, error)
	Insert(ctx context.Context, h *Handle, table string, k key.Key, row Row) error
	Update(ctx context.Context, h *Handle, table string, k key.Key, row Row) error
	Delete(ctx context.Context, h *Handle, table string, k key.Key) error
	Scan(ctx context.Context, h *Handle, table string, low, high key.Key, dir Direction) (Cursor, error)

	// ForceLog forces the adapter's write-ahead log. The group commit
	// flusher (pkg/flusher) does not call it; it forces its own log.
	ForceLog(ctx context.Context) error
}
