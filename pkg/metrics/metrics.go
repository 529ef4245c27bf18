package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Partition metrics
	PartitionQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dorakit_partition_queue_depth",
			Help: "Current number of actions queued on a partition worker",
		},
		[]string{"table", "partition"},
	)

	ActionsExecutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorakit_actions_executed_total",
			Help: "Total number of actions executed by a partition worker",
		},
		[]string{"table", "partition", "outcome"},
	)

	ActionsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorakit_actions_skipped_total",
			Help: "Total number of actions skipped because their transaction's handle was already cancelled",
		},
		[]string{"table", "partition"},
	)

	WorkPooledSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorakit_work_pooled_skips_total",
			Help: "Total number of times a partition worker serviced a later action while an earlier one waited on a lock",
		},
		[]string{"table", "partition"},
	)

	// Lock manager metrics
	LockWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dorakit_lock_wait_seconds",
			Help:    "Time an action waited for a lock grant",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "mode"},
	)

	// Transaction / coordinator metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorakit_transactions_total",
			Help: "Total number of transactions by terminal outcome",
		},
		[]string{"trx_type", "outcome", "reason"},
	)

	TransactionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorakit_transaction_retries_total",
			Help: "Total number of transaction retries issued by the coordinator",
		},
		[]string{"trx_type", "reason"},
	)

	TransactionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dorakit_transaction_latency_seconds",
			Help:    "End-to-end transaction latency as observed by the client",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trx_type"},
	)

	// Group commit flusher metrics
	FlusherBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dorakit_flusher_batch_size",
			Help:    "Number of transactions in a group commit batch",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		},
	)

	FlusherForceLogDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dorakit_flusher_force_log_duration_seconds",
			Help:    "Time taken to force the WAL for one group commit batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	FlusherBatchesFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dorakit_flusher_batches_failed_total",
			Help: "Total number of group commit batches that failed the log force",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PartitionQueueDepth,
		ActionsExecutedTotal,
		ActionsSkippedTotal,
		WorkPooledSkipsTotal,
		LockWaitSeconds,
		TransactionsTotal,
		TransactionRetriesTotal,
		TransactionLatency,
		FlusherBatchSize,
		FlusherForceLogDuration,
		FlusherBatchesFailedTotal,
	)
}

// Handler returns the Prometheus HTTP handler, exposed by cmd/dorakit's
// "stats" subcommand.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
