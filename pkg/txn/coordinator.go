package txn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ipandis/dorakit/pkg/action"
	"github.com/ipandis/dorakit/pkg/config"
	"github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/flusher"
	"github.com/ipandis/dorakit/pkg/log"
	"github.com/ipandis/dorakit/pkg/metrics"
	"github.com/ipandis/dorakit/pkg/partition"
	"github.com/ipandis/dorakit/pkg/pool"
	"github.com/ipandis/dorakit/pkg/router"
	"github.com/ipandis/dorakit/pkg/rvp"
	"github.com/ipandis/dorakit/pkg/storage"
)

// TrxFunc is one transaction type's graph template (§4.8): given a
// fresh Builder and the caller's input, it instantiates the root wave
// of actions and wires every RVP that follows, down to a single call
// to Builder.Final. It returns once the root wave has been submitted;
// it never blocks waiting for any action to run.
type TrxFunc func(b *Builder, input any)

// Coordinator is the transaction coordinator (C8): it holds the
// registered graph templates, instantiates a fresh Builder per
// invocation, and owns the commit/abort decision once a transaction's
// final RVP fires.
type Coordinator struct {
	router   *router.Router
	registry *partition.Registry
	adapter  storage.Adapter
	flusher  *flusher.Flusher
	cfg      config.Config

	actions *pool.Pool[action.Action]
	rvps    *pool.Pool[rvp.Point]

	mu     sync.RWMutex
	graphs map[string]TrxFunc
}

// NewCoordinator wires a Coordinator to the router, partition
// registry, storage adapter, and group commit flusher it will dispatch
// through. warmActions/warmRVPs pre-size the shared object pools
// (pkg/pool's warmCount), not per-transaction state.
func NewCoordinator(r *router.Router, reg *partition.Registry, adapter storage.Adapter, fl *flusher.Flusher, cfg config.Config, warmActions, warmRVPs int) *Coordinator {
	return &Coordinator{
		router:   r,
		registry: reg,
		adapter:  adapter,
		flusher:  fl,
		cfg:      cfg,
		actions:  action.NewPool(warmActions),
		rvps:     rvp.NewPool(warmRVPs),
		graphs:   make(map[string]TrxFunc),
	}
}

// Register installs the graph template for trxType. Call during
// startup, before any Submit/Run for that type.
func (c *Coordinator) Register(trxType string, fn TrxFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graphs[trxType] = fn
}

// Submit is the non-blocking client entry point (§6 submit(trx_type,
// inputs) -> future<outcome>). It begins the transaction's shared
// storage handle, builds the root wave, and returns a Future the
// caller can Wait on independently.
func (c *Coordinator) Submit(ctx context.Context, trxType string, input any) (*Future, error) {
	c.mu.RLock()
	fn, ok := c.graphs[trxType]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("txn: unknown transaction type %q", trxType)
	}

	h, err := c.adapter.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("txn: begin: %w", err)
	}

	b := &Builder{
		co:        c,
		txID:      uuid.NewString(),
		handle:    h,
		ctx:       ctx,
		trxType:   trxType,
		future:    newFuture(),
		startedAt: time.Now(),
	}
	fn(b, input)
	return b.future, nil
}

// Run is the blocking client entry point (§6 run(trx_type, inputs) ->
// outcome). It retries a transaction that fails with a retryable
// reason (Deadlock, Timeout) up to config.RetryLimit times before
// surfacing the final outcome.
func (c *Coordinator) Run(ctx context.Context, trxType string, input any) (Outcome, error) {
	var last Outcome
	for attempt := 0; attempt <= c.cfg.RetryLimit; attempt++ {
		fut, err := c.Submit(ctx, trxType, input)
		if err != nil {
			return Outcome{}, err
		}
		out, err := fut.Wait(ctx)
		if err != nil {
			return Outcome{}, err
		}
		last = out
		if out.Status == Committed || !retryableReason(out.Reason) {
			return out, nil
		}
		metrics.TransactionRetriesTotal.WithLabelValues(trxType, string(out.Reason)).Inc()
	}
	return last, nil
}

// finish is the Final RVP's continuation. It must not block the
// partition worker that fires the RVP, so the actual commit/abort work
// runs on a fresh goroutine.
func (c *Coordinator) finish(b *Builder, outcome rvp.Outcome) {
	go c.finishAsync(b, outcome)
}

func (c *Coordinator) finishAsync(b *Builder, outcome rvp.Outcome) {
	result := c.resolve(b, outcome)

	metrics.TransactionsTotal.WithLabelValues(b.trxType, result.Status.String(), string(result.Reason)).Inc()
	metrics.TransactionLatency.WithLabelValues(b.trxType).Observe(time.Since(b.startedAt).Seconds())

	b.giveback()
	b.future.deliver(result)
}

// resolve decides the transaction's terminal outcome. Every action
// has already run and released its own locks (success) or had
// ReleaseAll called on its partition (failure) by the time the final
// RVP fires, so resolve's only remaining job is the storage-level
// commit/abort and, on the commit path, the group commit flusher's
// durability round trip.
func (c *Coordinator) resolve(b *Builder, outcome rvp.Outcome) Outcome {
	if outcome == rvp.Aborted {
		if err := c.adapter.Abort(b.ctx, b.handle); err != nil {
			log.WithComponent("txn").Warn().Str("txn_id", b.txID).Err(err).Msg("txn: abort failed")
		}
		reason := b.loadFailureReason()
		if reason == errors.ReasonNone {
			reason = errors.ReasonStorageError
		}
		return Outcome{Status: Aborted, Reason: reason}
	}

	if c.flusher != nil && c.cfg.FlusherEnabled {
		done := make(chan error, 1)
		c.flusher.Submit(b.ctx, &flusher.Commit{TxID: b.txID, Data: []byte(b.txID), Done: done})
		if err := <-done; err != nil {
			_ = c.adapter.Abort(b.ctx, b.handle)
			return Outcome{Status: Aborted, Reason: errors.ReasonStorageError}
		}
	}

	if err := c.adapter.Commit(b.ctx, b.handle); err != nil {
		return Outcome{Status: Aborted, Reason: errors.ReasonStorageError}
	}
	return Outcome{Status: Committed}
}
