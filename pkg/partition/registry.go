package partition

import "github.com/ipandis/dorakit/pkg/metrics"

// Registry owns every partition worker for one or more tables and
// implements metrics.StatsSource so a metrics.Collector can sample
// queue depths on a ticker (§5: "statistics counters are per-thread
// and aggregated lazily").
type Registry struct {
	workers []*Worker
	byTable map[string][]*Worker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTable: make(map[string][]*Worker)}
}

// Add registers w with the registry and starts it.
func (r *Registry) Add(w *Worker) {
	r.workers = append(r.workers, w)
	r.byTable[w.Table] = append(r.byTable[w.Table], w)
	w.Start()
}

// Worker returns the worker for (table, partitionID), or nil if none
// is registered. Looks up by table first, matching the router's O(1)
// intent — each table's worker list is small enough that a linear
// scan over it is cheap, unlike scanning every worker in the registry.
func (r *Registry) Worker(table string, partitionID int) *Worker {
	for _, w := range r.byTable[table] {
		if w.ID == partitionID {
			return w
		}
	}
	return nil
}

// Stop stops every registered worker, waiting for each to drain.
func (r *Registry) Stop() {
	for _, w := range r.workers {
		w.Stop()
	}
}

// PartitionStats implements metrics.StatsSource.
func (r *Registry) PartitionStats() []metrics.PartitionStats {
	out := make([]metrics.PartitionStats, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, metrics.PartitionStats{
			Table:      w.Table,
			Partition:  w.ID,
			QueueDepth: w.QueueDepth(),
		})
	}
	return out
}
