package metrics

import (
	"strconv"
	"time"
)

// PartitionStats is a point-in-time snapshot of one partition worker,
// as reported by pkg/partition's registry.
type PartitionStats struct {
	Table      string
	Partition  int
	QueueDepth int
}

// StatsSource is implemented by whatever owns the running partition
// workers (normally *partition.Registry). The collector only depends
// on this narrow interface so pkg/metrics never imports pkg/partition.
type StatsSource interface {
	PartitionStats() []PartitionStats
}

// Collector periodically polls a StatsSource and republishes its
// snapshot as gauges, the same ticker-driven shape the rest of the
// dorakit stack uses for background polling.
type Collector struct {
	source StatsSource
	period time.Duration
	stopCh chan struct{}
}

// NewCollector creates a collector that samples source every period.
func NewCollector(source StatsSource, period time.Duration) *Collector {
	if period <= 0 {
		period = 5 * time.Second
	}
	return &Collector{source: source, period: period, stopCh: make(chan struct{})}
}

// Start begins collecting in the background until Stop is called.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.period)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collector's background goroutine.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.source == nil {
		return
	}
	for _, s := range c.source.PartitionStats() {
		PartitionQueueDepth.WithLabelValues(s.Table, strconv.Itoa(s.Partition)).Set(float64(s.QueueDepth))
	}
}
