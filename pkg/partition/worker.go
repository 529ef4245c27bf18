/*
Package partition implements the partition worker (C4): a single
goroutine per partition that drains an MPSC action queue, acquires each
action's pre-declared locks, executes its payload against the shared
storage handle, and posts the outcome to the action's successor RVP.

Because a partition's lock.Table is only ever touched by that
partition's own worker goroutine, lock grants that can't be satisfied
immediately complete later from inside a Release call made by that same
goroutine — there is no cross-goroutine synchronization inside a
partition at all, which is the entire point of DORA's design (§4.3:
"no physical concurrency control is needed inside a partition").

Work-pooling (§4.4) falls out of this for free: when an action's locks
can't all be granted synchronously, the worker leaves it pending and
tries the next eligible action in queue order instead of blocking,
subject to one rule it enforces explicitly — at most one action per
transaction may be in flight on this partition at a time. Queue order
for two actions that conflict on the same key is already preserved by
the lock manager's own FIFO discipline, so the worker does not need to
duplicate that check.
*/
package partition

import (
	"context"
	stderrors "errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ipandis/dorakit/pkg/action"
	derr "github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/lock"
	"github.com/ipandis/dorakit/pkg/log"
	"github.com/ipandis/dorakit/pkg/metrics"
	"github.com/ipandis/dorakit/pkg/storage"
)

// Config configures one partition worker's affinity plan (§6 cpu_bind,
// starting_cpu, cpu_step).
type Config struct {
	CPUBind bool
	CPU     int
}

type pendingItem struct {
	act         *action.Action
	started     bool
	remaining   int
	ready       bool
	acquireFrom time.Time
}

// Worker is the single goroutine that owns one partition.
type Worker struct {
	ID      int
	Table   string
	Locks   *lock.Table
	Adapter storage.Adapter
	cfg     Config

	queue   *mpscQueue
	pending []*pendingItem
	// pendingCount mirrors len(pending) behind an atomic so QueueDepth
	// can be read by the metrics collector goroutine without racing
	// the worker goroutine's appends/removals on pending itself.
	pendingCount int64
	inFlight     map[string]bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker constructs a worker for one partition. Call Start to begin
// draining its queue in a dedicated goroutine.
func NewWorker(id int, table string, adapter storage.Adapter, cfg Config) *Worker {
	return &Worker{
		ID:       id,
		Table:    table,
		Locks:    lock.NewTable(),
		Adapter:  adapter,
		cfg:      cfg,
		queue:    newMPSCQueue(),
		inFlight: make(map[string]bool),
		stopCh:   make(chan struct{}),
	}
}

// Submit enqueues a for execution on this partition. Safe to call from
// any goroutine (the coordinator, or another partition's worker
// spawning a midway wave).
func (w *Worker) Submit(a *action.Action) {
	a.PartID = w.ID
	a.Table = w.Table
	w.queue.push(a)
}

// QueueDepth reports the number of actions currently queued or
// pending, for metrics.StatsSource. Safe to call from any goroutine.
func (w *Worker) QueueDepth() int {
	return w.queue.len() + int(atomic.LoadInt64(&w.pendingCount))
}

// Start spawns the worker's goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop closes the queue and waits for the worker goroutine to drain
// and exit.
func (w *Worker) Stop() {
	w.queue.close()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	if w.cfg.CPUBind {
		runtime.LockOSThread()
		if err := bindCPU(w.cfg.CPU); err != nil {
			log.WithPartition(w.Table, w.ID).Warn().Err(err).Msg("partition: cpu affinity hint failed")
		}
	}

	idle := 0
	for {
		if len(w.pending) == 0 {
			a, ok := w.queue.popBlocking()
			if !ok {
				return
			}
			w.pending = append(w.pending, &pendingItem{act: a})
			atomic.AddInt64(&w.pendingCount, 1)
			idle = 0
		}
		drained := wrap(w.queue.drainNonBlocking())
		w.pending = append(w.pending, drained...)
		atomic.AddInt64(&w.pendingCount, int64(len(drained)))

		if w.serviceOnce() || len(drained) > 0 {
			idle = 0
			continue
		}

		// Every pending item is lock-blocked and the queue is empty:
		// only reachable under a forbidden lock cycle. Back off
		// instead of spinning on serviceOnce until new work arrives.
		idle++
		backoff := time.Duration(idle) * time.Millisecond
		if backoff > 20*time.Millisecond {
			backoff = 20 * time.Millisecond
		}
		time.Sleep(backoff)
	}
}

func wrap(acts []*action.Action) []*pendingItem {
	out := make([]*pendingItem, len(acts))
	for i, a := range acts {
		out[i] = &pendingItem{act: a}
	}
	return out
}

// serviceOnce makes forward passes over the pending queue, starting
// every eligible action and executing any whose locks are already
// fully granted. It loops internally until a full pass makes no
// progress, so a single call drains everything immediately runnable.
// Reports whether it executed at least one action, so the caller can
// tell a fully lock-blocked pending queue from one that made progress.
func (w *Worker) serviceOnce() bool {
	any := false
	for {
		progressed := false
		i := 0
		for i < len(w.pending) {
			item := w.pending[i]

			if !item.started {
				if w.inFlight[item.act.TxID] {
					i++
					continue
				}
				w.start(item)
			}

			if item.ready {
				if i > 0 {
					metrics.WorkPooledSkipsTotal.WithLabelValues(w.Table, strconv.Itoa(w.ID)).Inc()
				}
				w.execute(item)
				w.pending = append(w.pending[:i], w.pending[i+1:]...)
				atomic.AddInt64(&w.pendingCount, -1)
				progressed = true
				any = true
				continue
			}
			i++
		}
		if !progressed {
			return any
		}
	}
}

// start attempts to acquire every declared lock for item's action.
// grantCB runs synchronously, either inline here (if granted
// immediately) or later inside a Release call made by this same
// goroutine — never concurrently, since this worker is the only
// caller into its own lock.Table.
func (w *Worker) start(item *pendingItem) {
	item.started = true
	item.acquireFrom = time.Now()
	w.inFlight[item.act.TxID] = true

	decls := item.act.Locks()
	item.remaining = len(decls)
	if item.remaining == 0 {
		item.ready = true
		return
	}
	for _, d := range decls {
		mode := modeLabel(d.Mode)
		w.Locks.Acquire(item.act.TxID, d.Key, d.Mode, func() {
			metrics.LockWaitSeconds.WithLabelValues(w.Table, mode).Observe(time.Since(item.acquireFrom).Seconds())
			item.remaining--
			if item.remaining == 0 {
				item.ready = true
			}
		})
	}
}

func modeLabel(m lock.Mode) string {
	if m == lock.Exclusive {
		return "exclusive"
	}
	return "shared"
}

func (w *Worker) execute(item *pendingItem) {
	a := item.act
	ctx := a.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	a.RunPayload(ctx, a.Handle, w.Adapter)

	partLabel := strconv.Itoa(w.ID)
	if a.State() == action.Failed {
		w.Locks.ReleaseAll(a.TxID)
		if stderrors.Is(a.Err(), derr.Cancelled) {
			metrics.ActionsSkippedTotal.WithLabelValues(w.Table, partLabel).Inc()
		} else {
			metrics.ActionsExecutedTotal.WithLabelValues(w.Table, partLabel, "failed").Inc()
		}
		log.WithPartition(w.Table, w.ID).Warn().Str("txn_id", a.TxID).Err(a.Err()).Msg("partition: action failed")
	} else {
		for _, d := range a.Locks() {
			w.Locks.Release(a.TxID, d.Key)
		}
		metrics.ActionsExecutedTotal.WithLabelValues(w.Table, partLabel, "succeeded").Inc()
	}

	delete(w.inFlight, a.TxID)
	a.Post()
}
