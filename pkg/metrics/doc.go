/*
Package metrics defines and registers the Prometheus metrics exposed by
dorakit, and a small HealthChecker used for /health, /ready, and /live.

# Metrics Catalog

Partition worker:

	dorakit_partition_queue_depth{table,partition}        gauge
	dorakit_actions_executed_total{table,partition,outcome} counter
	dorakit_actions_skipped_total{table,partition}          counter
	dorakit_work_pooled_skips_total{table,partition}        counter

Lock manager:

	dorakit_lock_wait_seconds{table,mode}  histogram

Transaction coordinator:

	dorakit_transactions_total{trx_type,outcome,reason}   counter
	dorakit_transaction_retries_total{trx_type,reason}    counter
	dorakit_transaction_latency_seconds{trx_type}         histogram

Group commit flusher:

	dorakit_flusher_batch_size              histogram
	dorakit_flusher_force_log_duration_seconds histogram
	dorakit_flusher_batches_failed_total    counter

# Usage

	timer := metrics.NewTimer()
	err := store.StoreLogs(logs)
	metrics.FlusherForceLogDuration.Observe(timer.Duration().Seconds())

PartitionQueueDepth is not updated inline on the hot path; pkg/partition's
registry implements metrics.StatsSource and a Collector samples it on a
ticker, the same way everything else in dorakit that polls rather than
pushes is built.

# Health

RegisterComponent/UpdateComponent record whether a named component
(router, flusher, storage) is up. GetReadiness requires all three to be
registered and healthy; GetHealth reports on whatever has been
registered regardless of criticality.
*/
package metrics
