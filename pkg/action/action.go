/*
Package action implements the action (C5): the immutable, one-partition
unit of transactional work that the coordinator (pkg/txn) builds and the
partition worker (pkg/partition) drains and executes.

An Action is immutable once built by the coordinator — its lock set,
payload, and successor RVP never change during execution — but the
Action value itself is pooled and reused across transactions (pkg/pool),
so "immutable" means "not mutated by anything but Reset between
borrows," matching the object_cache_t borrow/reset discipline the rest
of the engine follows.
*/
package action

import (
	"context"
	"sync/atomic"

	"github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/key"
	"github.com/ipandis/dorakit/pkg/lock"
	"github.com/ipandis/dorakit/pkg/rvp"
	"github.com/ipandis/dorakit/pkg/storage"
)

// Kind tags the storage operation an Action's payload performs. The
// worker does not dispatch on it: it always calls the action's Run
// function, and the tag is only carried alongside it.
type Kind int

const (
	KindGet Kind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindScan
	KindCustom
)

// State is an action's lifecycle stage (§3 Action).
type State int32

const (
	Pending State = iota
	Locked
	Executing
	Succeeded
	Failed
)

// LockDecl is one entry of an action's pre-declared lock set.
type LockDecl struct {
	Key  key.Key
	Mode lock.Mode
}

// RunFunc is the action's payload: it executes against the
// transaction's shared storage handle and returns the affected row (if
// any) and an error. Table-specific logic lives entirely in RunFunc;
// the action/worker/coordinator machinery around it is generic.
type RunFunc func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error)

// Action is one partition-bound unit of work. Allocate via a
// *pool.Pool[Action] (see NewPool) and return it with Giveback once
// its outcome has been posted.
type Action struct {
	// TxID is the owning transaction's id.
	TxID string
	// PartID is the target partition.
	PartID int
	// Table names the partition's table, for logging and metrics.
	Table string
	// LockSet is pre-declared before execution; the worker acquires
	// every entry before Run is called.
	LockSet []LockDecl
	// Op tags the payload kind.
	Op Kind
	// Run is invoked once all of LockSet is granted.
	Run RunFunc
	// Successor is the RVP this action posts its outcome to.
	Successor *rvp.Point
	// Retries is a slot for the owning transaction's re-execution
	// count. pkg/txn does not set it, so it stays zero on every action
	// the coordinator builds.
	Retries int
	// Handle is the transaction's shared storage handle (§4.8: "every
	// transaction obtains one storage-manager handle on first action
	// start; all actions on all partitions share this handle").
	Handle *storage.Handle
	// Ctx bounds RunPayload's call into the storage adapter. A nil Ctx
	// falls back to context.Background().
	Ctx context.Context

	state  int32 // atomic State
	result storage.Row
	err    error
}

// New constructs a zero Action; used only as pool.New's newFn.
func New() *Action { return &Action{} }

// Reset clears an Action's payload and state for reuse, the
// pool.Pool[T] contract's resetFn.
func Reset(a *Action) {
	a.TxID = ""
	a.PartID = 0
	a.Table = ""
	a.LockSet = a.LockSet[:0]
	a.Op = KindGet
	a.Run = nil
	a.Successor = nil
	a.Retries = 0
	a.Handle = nil
	a.Ctx = nil
	atomic.StoreInt32(&a.state, int32(Pending))
	a.result = nil
	a.err = nil
}

// Locks returns the pre-declared lock set.
func (a *Action) Locks() []LockDecl { return a.LockSet }

// PartitionID returns the target partition.
func (a *Action) PartitionID() int { return a.PartID }

// State returns the action's current lifecycle stage.
func (a *Action) State() State { return State(atomic.LoadInt32(&a.state)) }

func (a *Action) setState(s State) { atomic.StoreInt32(&a.state, int32(s)) }

// RunPayload executes the action's payload within the transaction's
// storage handle. Called by the worker once every declared lock is
// granted (§4.5: "run(txn_handle) -> result"). Skipped — reporting
// Failed with errors.Cancelled — if h is already cancelled, honoring
// the coordinator's sticky-abort flag check the worker must perform
// before executing any action (§5 Cancellation/timeout).
func (a *Action) RunPayload(ctx context.Context, h *storage.Handle, adapter storage.Adapter) {
	a.setState(Executing)

	if h.Cancelled() {
		a.err = errors.Cancelled
		a.setState(Failed)
		return
	}

	row, err := a.Run(ctx, h, adapter)
	a.result = row
	a.err = err
	if err != nil {
		a.setState(Failed)
		return
	}
	a.setState(Succeeded)
}

// Result returns the row produced by RunPayload, if any.
func (a *Action) Result() storage.Row { return a.result }

// Err returns the error RunPayload observed, nil on success.
func (a *Action) Err() error { return a.err }

// Post forwards this action's outcome to its successor RVP (§4.5:
// "post(rvp, outcome)"). A nil Successor is a programming error in a
// graph template — every action belongs to exactly one RVP — so Post
// panics rather than silently dropping a predecessor count, which
// would otherwise corrupt the RVP's graph-liveness invariant (§8).
func (a *Action) Post() {
	if a.Successor == nil {
		panic("action: Post called with nil Successor")
	}
	outcome := rvp.OK
	if a.State() == Failed {
		outcome = rvp.Aborted
	}
	a.Successor.Post(outcome)
}
