/*
Package integration exercises the DORA core end to end: a real router,
partition workers, coordinator, and storage adapter wired together the
way cmd/dorakit's buildSystem wires them, driven only through the
public Client API (Coordinator.Run/Submit) rather than any package's
internals.
*/
package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipandis/dorakit/pkg/config"
	"github.com/ipandis/dorakit/pkg/key"
	"github.com/ipandis/dorakit/pkg/lock"
	"github.com/ipandis/dorakit/pkg/partition"
	"github.com/ipandis/dorakit/pkg/router"
	"github.com/ipandis/dorakit/pkg/storage"
	"github.com/ipandis/dorakit/pkg/txn"
	"github.com/ipandis/dorakit/pkg/workload"
)

var allTables = []string{
	workload.TableSubscriber, workload.TableServiceFacility, workload.TableCallForwarding,
	workload.TableWarehouse, workload.TableCustomer, workload.TableAccount,
}

type harness struct {
	coord   *txn.Coordinator
	adapter *storage.MemAdapter
	stop    func()
}

func newHarness(t *testing.T, partitionsPerTable int, cfg config.Config) *harness {
	t.Helper()

	specs := make([]router.TableSpec, len(allTables))
	for i, tbl := range allTables {
		specs[i] = router.TableSpec{Table: tbl, Partitions: partitionsPerTable, Strategy: router.Range, KeysPerPartition: 1 << 16}
	}
	r, err := router.NewRouter(specs)
	require.NoError(t, err)

	adapter := storage.NewMemAdapter()
	reg := partition.NewRegistry()
	for _, tbl := range allTables {
		for p := 0; p < partitionsPerTable; p++ {
			reg.Add(partition.NewWorker(p, tbl, adapter, partition.Config{}))
		}
	}

	co := txn.NewCoordinator(r, reg, adapter, nil, cfg, 64, 64)
	workload.RegisterAll(co)

	return &harness{coord: co, adapter: adapter, stop: reg.Stop}
}

func intKey(table string, ids ...int64) key.Key {
	fields := make([]key.Field, len(ids))
	for i, id := range ids {
		fields[i] = key.Int(id)
	}
	return key.New(table, fields...)
}

func seed(t *testing.T, adapter *storage.MemAdapter, table string, k key.Key, row storage.Row) {
	t.Helper()
	h, err := adapter.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, adapter.Insert(context.Background(), h, table, k, row))
}

// TestSinglePartitionUpdateCommits covers spec.md §8's single-partition
// update scenario: one action, one partition, immediate commit.
func TestSinglePartitionUpdateCommits(t *testing.T) {
	h := newHarness(t, 2, config.Default())
	defer h.stop()

	out, err := h.coord.Run(context.Background(), "tpcc.balance_update", workload.BalanceUpdateInput{AccountID: 1, Delta: 100})
	require.NoError(t, err)
	assert.Equal(t, txn.Committed, out.Status)

	row, err := h.adapter.Get(context.Background(), &storage.Handle{}, workload.TableAccount, intKey(workload.TableAccount, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 100, row["balance"])
}

// TestTwoPartitionTransferCommits covers the two-partition transfer
// scenario: Payment's root wave submits to two independently routed
// partitions and joins on a single final RVP.
func TestTwoPartitionTransferCommits(t *testing.T) {
	h := newHarness(t, 4, config.Default())
	defer h.stop()

	out, err := h.coord.Run(context.Background(), "tpcc.payment", workload.PaymentInput{WarehouseID: 7, CustomerID: 19, Amount: 25})
	require.NoError(t, err)
	assert.Equal(t, txn.Committed, out.Status)

	whRow, err := h.adapter.Get(context.Background(), &storage.Handle{}, workload.TableWarehouse, intKey(workload.TableWarehouse, 7))
	require.NoError(t, err)
	assert.EqualValues(t, 25, whRow["ytd"])

	custRow, err := h.adapter.Get(context.Background(), &storage.Handle{}, workload.TableCustomer, intKey(workload.TableCustomer, 19))
	require.NoError(t, err)
	assert.EqualValues(t, -25, custRow["balance"])
}

// TestAbortOnMissingDependency covers the abort-on-failure scenario:
// InsCallFwd's second wave fails NotFound when the service-facility row
// it depends on was never created, and the whole transaction aborts.
// NotFound has no client-visible Reason of its own, so errors.ReasonFor
// reports it as StorageError.
func TestAbortOnMissingDependency(t *testing.T) {
	h := newHarness(t, 2, config.Default())
	defer h.stop()

	seed(t, h.adapter, workload.TableSubscriber, intKey(workload.TableSubscriber, 4), storage.Row{})

	out, err := h.coord.Run(context.Background(), "tm1.ins_call_fwd", workload.InsCallFwdInput{
		SubscriberID: 4, SFType: 9, StartTime: 1, EndTime: 2, Numberx: "555-0111",
	})
	require.NoError(t, err)
	assert.Equal(t, txn.Aborted, out.Status)
}

// TestConcurrentContentionEventuallyCommitsAll covers the retry
// scenario: many goroutines hammer the same account concurrently,
// forcing lock contention that the coordinator's own serialization (and
// retry budget, for any transient abort) must absorb so every caller
// eventually observes a committed outcome.
func TestConcurrentContentionEventuallyCommitsAll(t *testing.T) {
	cfg := config.Default()
	cfg.RetryLimit = 10
	h := newHarness(t, 1, cfg)
	defer h.stop()

	const n = 50
	var wg sync.WaitGroup
	var committed int64

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.coord.Run(context.Background(), "tpcc.balance_update", workload.BalanceUpdateInput{AccountID: 1, Delta: 1})
			if err == nil && out.Status == txn.Committed {
				atomic.AddInt64(&committed, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, n, committed)

	row, err := h.adapter.Get(context.Background(), &storage.Handle{}, workload.TableAccount, intKey(workload.TableAccount, 1))
	require.NoError(t, err)
	assert.EqualValues(t, n, row["balance"])
}

// TestPartitionIsolation covers the partition-isolation property: a
// transaction that blocks indefinitely on one partition must not delay
// a transaction confined to a different partition of the same table.
func TestPartitionIsolation(t *testing.T) {
	h := newHarness(t, 4, config.Default())
	defer h.stop()

	release := make(chan struct{})
	h.coord.Register("integration.block_then_release", func(b *txn.Builder, input any) {
		k := input.(key.Key)
		final := b.Final(1)
		err := b.SubmitOne(workload.TableAccount, k, lock.Exclusive, func(ctx context.Context, hd *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			<-release
			return nil, adapter.Insert(ctx, hd, workload.TableAccount, k, storage.Row{"balance": 1})
		}, final)
		require.NoError(t, err)
	})

	blockedKey := intKey(workload.TableAccount, 0)  // partition 0
	freeKey := intKey(workload.TableAccount, 1<<16) // partition 1, with KeysPerPartition=1<<16

	fut, err := h.coord.Submit(context.Background(), "integration.block_then_release", blockedKey)
	require.NoError(t, err)

	start := time.Now()
	out, err := h.coord.Run(context.Background(), "tpcc.balance_update", workload.BalanceUpdateInput{AccountID: 1 << 16, Delta: 5})
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, txn.Committed, out.Status)
	assert.Less(t, elapsed, 500*time.Millisecond, "a transaction on a free partition should not wait on a blocked one")

	row, err := h.adapter.Get(context.Background(), &storage.Handle{}, workload.TableAccount, freeKey)
	require.NoError(t, err)
	assert.EqualValues(t, 5, row["balance"])

	close(release)
	blockedOut, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, txn.Committed, blockedOut.Status)
}
