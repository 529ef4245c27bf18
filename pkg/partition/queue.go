package partition

import (
	"sync"

	"github.com/ipandis/dorakit/pkg/action"
)

// mpscQueue is the partition's FIFO multi-producer/single-consumer
// queue of actions (§3 Partition queue). It is a plain mutex+slice
// queue rather than a buffered channel so it is genuinely unbounded —
// §4.9's flusher and §4.4's worker both assume producers are never
// rejected for being "too fast," only ever made to wait on RVPs or
// locks.
type mpscQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*action.Action
	closed bool
}

func newMPSCQueue() *mpscQueue {
	q := &mpscQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues a, called by any producer goroutine (the coordinator,
// or another partition's worker posting a midway action).
func (q *mpscQueue) push(a *action.Action) {
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()
	q.cond.Signal()
}

// popBlocking removes and returns the front item, blocking while the
// queue is empty. Returns ok=false once the queue is closed and
// drained.
func (q *mpscQueue) popBlocking() (*action.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	a := q.items[0]
	q.items = q.items[1:]
	return a, true
}

// drainNonBlocking removes and returns every item currently queued,
// without waiting for more. Used by the worker to pull in enough
// pending work to have something to work-pool across.
func (q *mpscQueue) drainNonBlocking() []*action.Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *mpscQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close wakes any blocked popBlocking call once the queue has been
// drained; used during shutdown.
func (q *mpscQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
