package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ipandis/dorakit/pkg/config"
	"github.com/ipandis/dorakit/pkg/flusher"
	"github.com/ipandis/dorakit/pkg/metrics"
	"github.com/ipandis/dorakit/pkg/partition"
	"github.com/ipandis/dorakit/pkg/router"
	"github.com/ipandis/dorakit/pkg/storage"
	"github.com/ipandis/dorakit/pkg/txn"
	"github.com/ipandis/dorakit/pkg/workload"
)

// tableTopology lists the tables every workload template touches, and
// the rowsPerUnit router.EstimateKeysPerPartition uses to size each
// table's key ranges from cfg.ScalingFactor.
var tableTopology = []struct {
	table       string
	rowsPerUnit int
}{
	{workload.TableSubscriber, 1000},
	{workload.TableServiceFacility, 4000},
	{workload.TableCallForwarding, 4000},
	{workload.TableWarehouse, 1},
	{workload.TableCustomer, 3000},
	{workload.TableAccount, 1000},
}

// system bundles every component buildSystem wires together so
// subcommands can reach the coordinator and tear everything back down
// when they're done.
type system struct {
	cfg       config.Config
	adapter   storage.Adapter
	registry  *partition.Registry
	flusher   *flusher.Flusher
	collector *metrics.Collector
	coord     *txn.Coordinator

	closers []func() error
}

// buildSystem wires the router, one partition worker per table per
// partition, the group commit flusher, and the transaction coordinator,
// then registers every sample transaction graph from pkg/workload. An
// empty dataDir uses an in-memory, non-durable storage adapter with
// the flusher disabled; a non-empty one opens a bbolt-backed adapter
// and a real flusher.
func buildSystem(cfg config.Config, dataDir string) (*system, error) {
	sys := &system{}

	specs := make([]router.TableSpec, len(tableTopology))
	for i, t := range tableTopology {
		parts := cfg.PartitionsFor(t.table)
		specs[i] = router.TableSpec{
			Table:            t.table,
			Partitions:       parts,
			Strategy:         router.Range,
			KeysPerPartition: router.EstimateKeysPerPartition(cfg.ScalingFactor, t.rowsPerUnit, parts),
		}
	}
	r, err := router.NewRouter(specs)
	if err != nil {
		return nil, fmt.Errorf("dorakit: build router: %w", err)
	}
	metrics.RegisterComponent("router", true, "ready")

	if dataDir != "" {
		bolt, err := storage.NewBoltAdapter(dataDir)
		if err != nil {
			return nil, fmt.Errorf("dorakit: open bolt adapter: %w", err)
		}
		sys.adapter = bolt
		sys.closers = append(sys.closers, bolt.Close)
	} else {
		sys.adapter = storage.NewMemAdapter()
		cfg.FlusherEnabled = false
	}
	metrics.RegisterComponent("storage", true, "ready")

	reg := partition.NewRegistry()
	for i, t := range tableTopology {
		for p := 0; p < specs[i].Partitions; p++ {
			wcfg := partition.Config{
				CPUBind: cfg.CPUBind,
				CPU:     cfg.StartingCPU + p*cfg.CPUStep,
			}
			reg.Add(partition.NewWorker(p, t.table, sys.adapter, wcfg))
		}
	}
	sys.registry = reg
	sys.closers = append(sys.closers, func() error { reg.Stop(); return nil })

	var fl *flusher.Flusher
	if cfg.FlusherEnabled && dataDir != "" {
		fl, err = flusher.New(filepath.Join(dataDir, "flusher.wal"), flusher.Config{
			Enabled:    cfg.FlusherEnabled,
			BatchBytes: cfg.FlusherBatchBytes,
			BatchMS:    cfg.FlusherBatchMS,
		})
		if err != nil {
			return nil, fmt.Errorf("dorakit: build flusher: %w", err)
		}
		fl.Start()
		sys.closers = append(sys.closers, func() error { fl.Stop(); return nil })
	}
	sys.flusher = fl
	metrics.RegisterComponent("flusher", true, "ready")

	sys.cfg = cfg
	sys.coord = txn.NewCoordinator(r, reg, sys.adapter, fl, cfg, 256, 256)
	workload.RegisterAll(sys.coord)

	sys.collector = metrics.NewCollector(reg, 2*time.Second)
	sys.collector.Start()
	sys.closers = append(sys.closers, func() error { sys.collector.Stop(); return nil })

	return sys, nil
}

// Close tears down every component buildSystem started, in reverse
// order.
func (s *system) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
