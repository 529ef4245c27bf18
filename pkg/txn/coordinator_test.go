package txn

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipandis/dorakit/pkg/config"
	"github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/key"
	"github.com/ipandis/dorakit/pkg/lock"
	"github.com/ipandis/dorakit/pkg/partition"
	"github.com/ipandis/dorakit/pkg/router"
	"github.com/ipandis/dorakit/pkg/rvp"
	"github.com/ipandis/dorakit/pkg/storage"
)

// newTestCoordinator wires a Coordinator over a range-partitioned
// "acct" table split across two partition workers, a bare in-memory
// adapter, and no flusher — group commit durability is pkg/flusher's
// concern, exercised separately by its own tests.
func newTestCoordinator(t *testing.T) (*Coordinator, func()) {
	t.Helper()

	r, err := router.NewRouter([]router.TableSpec{
		{Table: "acct", Partitions: 2, Strategy: router.Range, KeysPerPartition: 10},
	})
	require.NoError(t, err)

	reg := partition.NewRegistry()
	adapter := storage.NewMemAdapter()
	for id := 0; id < 2; id++ {
		reg.Add(partition.NewWorker(id, "acct", adapter, partition.Config{}))
	}

	cfg := config.Default()
	cfg.FlusherEnabled = false
	cfg.RetryLimit = 2

	co := NewCoordinator(r, reg, adapter, nil, cfg, 4, 4)
	return co, reg.Stop
}

func acctKey(id int64) key.Key { return key.New("acct", key.Int(id)) }

func TestCoordinator_SinglePartitionCommits(t *testing.T) {
	co, stop := newTestCoordinator(t)
	defer stop()

	co.Register("credit", func(b *Builder, input any) {
		id := input.(int64)
		final := b.Final(1)
		err := b.SubmitOne("acct", acctKey(id), lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return nil, adapter.Insert(ctx, h, "acct", acctKey(id), storage.Row{"balance": 100})
		}, final)
		require.NoError(t, err)
	})

	out, err := co.Run(context.Background(), "credit", int64(1))
	require.NoError(t, err)
	assert.Equal(t, Committed, out.Status)
}

func TestCoordinator_TwoPartitionTransferCommits(t *testing.T) {
	co, stop := newTestCoordinator(t)
	defer stop()

	type transfer struct{ from, to int64 }

	co.Register("transfer", func(b *Builder, input any) {
		tr := input.(transfer)
		final := b.Final(2)

		debit := func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return nil, adapter.Insert(ctx, h, "acct", acctKey(tr.from), storage.Row{"balance": -10})
		}
		credit := func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return nil, adapter.Insert(ctx, h, "acct", acctKey(tr.to), storage.Row{"balance": 10})
		}

		require.NoError(t, b.SubmitOne("acct", acctKey(tr.from), lock.Exclusive, debit, final))
		require.NoError(t, b.SubmitOne("acct", acctKey(tr.to), lock.Exclusive, credit, final))
	})

	out, err := co.Run(context.Background(), "transfer", transfer{from: 1, to: 15})
	require.NoError(t, err)
	assert.Equal(t, Committed, out.Status)
}

func TestCoordinator_MidwayWaveChaining(t *testing.T) {
	co, stop := newTestCoordinator(t)
	defer stop()

	co.Register("two_phase", func(b *Builder, input any) {
		id := input.(int64)

		final := b.Final(1)
		midway := b.Midway(1, func(outcome rvp.Outcome) {
			if outcome == rvp.Aborted {
				final.Post(rvp.Aborted)
				return
			}
			err := b.SubmitOne("acct", acctKey(id), lock.Shared, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
				return adapter.Get(ctx, h, "acct", acctKey(id))
			}, final)
			if err != nil {
				final.Post(rvp.Aborted)
			}
		})

		err := b.SubmitOne("acct", acctKey(id), lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return nil, adapter.Insert(ctx, h, "acct", acctKey(id), storage.Row{"balance": 5})
		}, midway)
		require.NoError(t, err)
	})

	out, err := co.Run(context.Background(), "two_phase", int64(3))
	require.NoError(t, err)
	assert.Equal(t, Committed, out.Status)
}

func TestCoordinator_AbortPropagatesReason(t *testing.T) {
	co, stop := newTestCoordinator(t)
	defer stop()

	co.Register("reject", func(b *Builder, input any) {
		id := input.(int64)
		final := b.Final(1)
		err := b.SubmitOne("acct", acctKey(id), lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return nil, fmt.Errorf("balance check: %w", errors.ConstraintViolation)
		}, final)
		require.NoError(t, err)
	})

	out, err := co.Run(context.Background(), "reject", int64(2))
	require.NoError(t, err)
	assert.Equal(t, Aborted, out.Status)
	assert.Equal(t, errors.ReasonConstraintViolation, out.Reason)
}

func TestCoordinator_Run_RetriesOnDeadlockThenSucceeds(t *testing.T) {
	co, stop := newTestCoordinator(t)
	defer stop()

	var attempts int64

	co.Register("flaky", func(b *Builder, input any) {
		id := input.(int64)
		final := b.Final(1)
		err := b.SubmitOne("acct", acctKey(id), lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			if atomic.AddInt64(&attempts, 1) == 1 {
				return nil, fmt.Errorf("lost wait-die race: %w", errors.Deadlock)
			}
			return nil, adapter.Insert(ctx, h, "acct", acctKey(id), storage.Row{"balance": 1})
		}, final)
		require.NoError(t, err)
	})

	out, err := co.Run(context.Background(), "flaky", int64(4))
	require.NoError(t, err)
	assert.Equal(t, Committed, out.Status)
	assert.Equal(t, int64(2), atomic.LoadInt64(&attempts))
}

func TestCoordinator_Submit_UnknownTrxType(t *testing.T) {
	co, stop := newTestCoordinator(t)
	defer stop()

	_, err := co.Submit(context.Background(), "nonexistent", nil)
	assert.Error(t, err)
}

func TestCoordinator_Submit_NonBlocking(t *testing.T) {
	co, stop := newTestCoordinator(t)
	defer stop()

	co.Register("slow_credit", func(b *Builder, input any) {
		id := input.(int64)
		final := b.Final(1)
		err := b.SubmitOne("acct", acctKey(id), lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return nil, adapter.Insert(ctx, h, "acct", acctKey(id), storage.Row{"balance": 7})
		}, final)
		require.NoError(t, err)
	})

	fut, err := co.Submit(context.Background(), "slow_credit", int64(5))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := fut.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, Committed, out.Status)
}
