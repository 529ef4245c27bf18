package txn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ipandis/dorakit/pkg/action"
	"github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/key"
	"github.com/ipandis/dorakit/pkg/lock"
	"github.com/ipandis/dorakit/pkg/rvp"
	"github.com/ipandis/dorakit/pkg/storage"
)

// Builder is the per-invocation handle a graph template function uses
// to instantiate actions and RVPs from the object pools and wire them
// into a wave (§4.8: "on invocation, the coordinator instantiates the
// concrete nodes ... and submits the root wave"). A Builder is created
// fresh by Coordinator.Submit for every transaction and discarded once
// its final RVP fires; it owns nothing that survives the transaction.
type Builder struct {
	co      *Coordinator
	txID    string
	handle  *storage.Handle
	ctx     context.Context
	trxType string
	future  *Future

	startedAt time.Time

	failureOnce   sync.Once
	failureReason errors.Reason

	// actionsArena and rvpArena collect every node this transaction
	// borrowed from the shared pools, so the coordinator can give them
	// all back in one pass once the final RVP fires (§9 Design notes:
	// the coordinator owns the arena; actions reference their
	// successor RVP directly, but lifetime is governed by the arena,
	// not by the reference).
	actionsArena []*action.Action
	rvpArena     []*rvp.Point
}

// TxID returns the transaction id every action and RVP built from this
// Builder shares.
func (b *Builder) TxID() string { return b.txID }

// Handle returns the transaction's shared storage handle (§4.8: "every
// transaction obtains one storage-manager handle ... shared across all
// its actions").
func (b *Builder) Handle() *storage.Handle { return b.handle }

// Context returns the context the client submitted the transaction
// with.
func (b *Builder) Context() context.Context { return b.ctx }

// Midway creates an RVP that, once its npred predecessors post, runs
// cont — typically enqueuing the graph's next wave via further calls
// to b.Submit.
func (b *Builder) Midway(npred int, cont func(outcome rvp.Outcome)) *rvp.Point {
	p := b.co.rvps.Borrow()
	p.Reset(b.txID, rvp.Midway, npred, cont)
	b.rvpArena = append(b.rvpArena, p)
	return p
}

// Final creates the transaction's terminal RVP. Its continuation is
// fixed: it hands the aggregate outcome to the coordinator's commit/
// abort path. A graph template calls Final exactly once, sized to the
// number of actions in the last wave.
func (b *Builder) Final(npred int) *rvp.Point {
	p := b.co.rvps.Borrow()
	p.Reset(b.txID, rvp.Final, npred, func(outcome rvp.Outcome) {
		b.co.finish(b, outcome)
	})
	b.rvpArena = append(b.rvpArena, p)
	return p
}

// Submit instantiates an action from the pool, declares locks, and
// routes it to the partition owning locks[0].Key — an action touches
// exactly one partition, so every declared lock in one call must share
// that partition (§3 Action, §4.7 routing).
func (b *Builder) Submit(table string, locks []action.LockDecl, run action.RunFunc, successor *rvp.Point) error {
	if len(locks) == 0 {
		return fmt.Errorf("txn: action on table %s declares no locks", table)
	}

	partID, err := b.co.router.Route(table, locks[0].Key)
	if err != nil {
		return fmt.Errorf("txn: route: %w", err)
	}
	w := b.co.registry.Worker(table, partID)
	if w == nil {
		return fmt.Errorf("txn: no worker registered for %s partition %d", table, partID)
	}

	a := b.co.actions.Borrow()
	a.TxID = b.txID
	a.Table = table
	a.PartID = partID
	a.LockSet = append(a.LockSet, locks...)
	a.Run = b.wrap(run)
	a.Successor = successor
	a.Handle = b.handle
	a.Ctx = b.ctx

	b.actionsArena = append(b.actionsArena, a)
	w.Submit(a)
	return nil
}

// giveback returns every action and RVP this transaction borrowed to
// their shared pools. Called once, by the coordinator, after the final
// RVP's continuation has resolved commit or abort — by then every
// action has already posted, so nothing still references these nodes.
func (b *Builder) giveback() {
	for _, a := range b.actionsArena {
		b.co.actions.Giveback(a)
	}
	for _, p := range b.rvpArena {
		b.co.rvps.Giveback(p)
	}
}

// SubmitOne is Submit's common case: a single declared lock.
func (b *Builder) SubmitOne(table string, k key.Key, mode lock.Mode, run action.RunFunc, successor *rvp.Point) error {
	return b.Submit(table, []action.LockDecl{{Key: k, Mode: mode}}, run, successor)
}

// wrap records the first failing action's error as the transaction's
// abort reason before returning it to the worker unchanged. Several
// actions of the same wave can fail concurrently on different
// partitions; the first one observed wins, which is as good a tie
// break as any single-reason client API allows.
func (b *Builder) wrap(run action.RunFunc) action.RunFunc {
	return func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
		row, err := run(ctx, h, adapter)
		if err != nil {
			b.failureOnce.Do(func() {
				b.failureReason = errors.ReasonFor(err)
			})
		}
		return row, err
	}
}

func (b *Builder) loadFailureReason() errors.Reason {
	return b.failureReason
}
