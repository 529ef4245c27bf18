/*
Package flusher implements the group commit flusher (C9): a dedicated
goroutine that accumulates completed-but-uncommitted transactions,
issues one log force per batch, and signals every transaction's
completion in the order it entered the batch.

It frames each batched commit as a raft.Log — reusing
github.com/hashicorp/raft's log envelope type as a ready-made,
versioned WAL record shape rather than inventing one — and forces the
batch durable with raft-boltdb's BoltStore.StoreLogs, which fsyncs once
per call. No raft.Raft instance, FSM, or consensus transport is
involved; this is the library's consensus-log storage repurposed as a
plain durable append log, matching the "no wire format at the core
boundary" and "inter-node distribution is a non-goal" constraints
elsewhere in this spec.
*/
package flusher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/ipandis/dorakit/pkg/log"
	"github.com/ipandis/dorakit/pkg/metrics"
)

// Config controls batch cadence (§6: flusher_enabled, flusher_batch_bytes,
// flusher_batch_ms).
type Config struct {
	Enabled    bool
	BatchBytes int
	BatchMS    int
	// QueueCapacity bounds the incoming channel. The spec's queue is
	// conceptually unbounded; a large buffered channel approximates
	// that without an unbounded-growth risk in a reference
	// implementation. Zero uses a sensible default.
	QueueCapacity int
}

// Commit is one transaction's request to be made durable. Data is an
// opaque, already-serialized record (the coordinator's concern, not
// the flusher's); Done receives exactly one error — nil on success —
// once this commit's batch has been forced.
type Commit struct {
	TxID string
	Data []byte
	Done chan error
}

// Flusher batches Commits and forces them durable together.
type Flusher struct {
	store     *raftboltdb.BoltStore
	cfg       Config
	incoming  chan *Commit
	nextIndex uint64 // atomic

	stopCh chan struct{}
	doneCh chan struct{}
}

// New opens (or creates) a raft-boltdb-backed log store at path and
// returns a Flusher ready to Start.
func New(path string, cfg Config) (*Flusher, error) {
	store, err := raftboltdb.NewBoltStore(path)
	if err != nil {
		return nil, err
	}
	if cfg.BatchMS <= 0 {
		cfg.BatchMS = 5
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 4096
	}
	return &Flusher{
		store:    store,
		cfg:      cfg,
		incoming: make(chan *Commit, cfg.QueueCapacity),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Submit enqueues c for the next batch. Blocks only if the internal
// queue is momentarily full, which backpressures producers exactly as
// §4.9 describes ("backpressure is provided by its batch cadence").
func (f *Flusher) Submit(ctx context.Context, c *Commit) {
	select {
	case f.incoming <- c:
	case <-ctx.Done():
		c.Done <- ctx.Err()
		close(c.Done)
	}
}

// Start spawns the batching goroutine.
func (f *Flusher) Start() {
	go f.run()
}

// Stop drains and flushes any partial batch, then closes the store.
func (f *Flusher) Stop() {
	close(f.stopCh)
	<-f.doneCh
	f.store.Close()
}

func (f *Flusher) run() {
	defer close(f.doneCh)

	period := time.Duration(f.cfg.BatchMS) * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var batch []*Commit
	var bytes int

	flush := func() {
		if len(batch) == 0 {
			return
		}
		f.forceBatch(batch)
		batch = nil
		bytes = 0
	}

	for {
		select {
		case c := <-f.incoming:
			batch = append(batch, c)
			bytes += len(c.Data)
			if f.cfg.BatchBytes > 0 && bytes >= f.cfg.BatchBytes {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-f.stopCh:
			for {
				select {
				case c := <-f.incoming:
					batch = append(batch, c)
				default:
					flush()
					return
				}
			}
		}
	}
}

// forceBatch builds one raft.Log per commit, issues a single
// StoreLogs call, and signals every commit in the batch with the same
// outcome — the all-or-nothing contract §9's Open Questions resolves
// explicitly ("this spec requires all-or-nothing batch reporting").
func (f *Flusher) forceBatch(batch []*Commit) {
	logs := make([]*raft.Log, len(batch))
	for i, c := range batch {
		idx := atomic.AddUint64(&f.nextIndex, 1)
		logs[i] = &raft.Log{
			Index: idx,
			Type:  raft.LogCommand,
			Data:  c.Data,
		}
	}

	timer := metrics.NewTimer()
	err := f.store.StoreLogs(logs)
	metrics.FlusherForceLogDuration.Observe(timer.Duration().Seconds())
	metrics.FlusherBatchSize.Observe(float64(len(batch)))

	if err != nil {
		metrics.FlusherBatchesFailedTotal.Inc()
		log.WithComponent("flusher").Error().Err(err).Int("batch_size", len(batch)).Msg("flusher: log force failed, failing entire batch")
	}

	for _, c := range batch {
		c.Done <- err
		close(c.Done)
	}
}
