/*
Package router implements the table partition set (C7): an immutable
mapping from (table, key) to the partition id that owns it.

Two partitioning strategies are supported, mirroring dora_tpcc.cpp's
per-table partition generation: range partitioning with numeric
interpolation (`key / keys_per_partition`, the GENERATE_DORA_PARTS
convention for integer primary keys like WH_ID or S_I_ID) and hash
partitioning (a stable hash mod partition count, for tables keyed by
strings or by values with no useful numeric order).

A Router is built once at startup from configuration and is read-only
thereafter — routing never takes a lock (§4.7: "must be pure, no locks
on the hot path").
*/
package router

import (
	"fmt"
	"hash/fnv"

	"github.com/ipandis/dorakit/pkg/key"
)

// Strategy selects how a table's keys map to partitions.
type Strategy int

const (
	// Range partitions by numeric interpolation over the key's first
	// field: partition = field / KeysPerPartition.
	Range Strategy = iota
	// Hash partitions by a stable hash of the full key.
	Hash
)

// TableSpec describes one table's partitioning.
type TableSpec struct {
	Table string
	// Partitions is the partition count for this table.
	Partitions int
	// Strategy selects Range or Hash partitioning.
	Strategy Strategy
	// KeysPerPartition is required for Range tables; NewRouter rejects
	// a zero value, so callers fill it in beforehand (typically with
	// EstimateKeysPerPartition).
	KeysPerPartition int64
}

type tableEntry struct {
	spec             TableSpec
	keysPerPartition int64
}

// Router is the immutable {table,key} -> partition map.
type Router struct {
	tables map[string]tableEntry
}

// EstimateKeysPerPartition derives a per-partition key span from a
// scaling factor, mirroring dora_tpcc.cpp's *_KEY_EST constants (each
// table's cardinality scales linearly with TPC-C's SF). totalKeys is
// scalingFactor * rowsPerUnit for the table in question; the caller
// supplies rowsPerUnit since it is schema-specific.
func EstimateKeysPerPartition(scalingFactor, rowsPerUnit, partitions int) int64 {
	if partitions <= 0 {
		partitions = 1
	}
	total := int64(scalingFactor) * int64(rowsPerUnit)
	if total <= 0 {
		total = int64(partitions)
	}
	kpp := total / int64(partitions)
	if kpp < 1 {
		kpp = 1
	}
	return kpp
}

// NewRouter builds a Router from table specs. Range specs with
// KeysPerPartition == 0 must be pre-filled by the caller (typically
// via EstimateKeysPerPartition) before calling NewRouter — a zero
// value here is a configuration error, not a default, since silently
// choosing one would hide a misconfigured scaling factor.
func NewRouter(specs []TableSpec) (*Router, error) {
	tables := make(map[string]tableEntry, len(specs))
	for _, s := range specs {
		if s.Partitions <= 0 {
			return nil, fmt.Errorf("router: table %s: partitions must be positive", s.Table)
		}
		if s.Strategy == Range && s.KeysPerPartition <= 0 {
			return nil, fmt.Errorf("router: table %s: range partitioning requires KeysPerPartition > 0", s.Table)
		}
		tables[s.Table] = tableEntry{spec: s, keysPerPartition: s.KeysPerPartition}
	}
	return &Router{tables: tables}, nil
}

// Route returns the partition id owning k. Routing the same (table,
// key) twice always returns the same partition (§8 Router purity).
func (r *Router) Route(table string, k key.Key) (int, error) {
	e, ok := r.tables[table]
	if !ok {
		return 0, fmt.Errorf("router: unknown table %s", table)
	}
	if len(k.Fields) == 0 {
		return 0, fmt.Errorf("router: key for table %s has no fields", table)
	}

	switch e.spec.Strategy {
	case Range:
		return r.routeRange(e, k)
	default:
		return r.routeHash(e, k)
	}
}

func (r *Router) routeRange(e tableEntry, k key.Key) (int, error) {
	f := k.Fields[0]
	if f.IsStr {
		return 0, fmt.Errorf("router: table %s: range partitioning requires a numeric first field", e.spec.Table)
	}
	p := int(f.Int / e.keysPerPartition)
	if p < 0 {
		p = 0
	}
	if p >= e.spec.Partitions {
		p = e.spec.Partitions - 1
	}
	return p, nil
}

func (r *Router) routeHash(e tableEntry, k key.Key) (int, error) {
	h := fnv.New64a()
	h.Write(k.Bytes())
	return int(h.Sum64() % uint64(e.spec.Partitions)), nil
}

// PartitionCount returns the configured partition count for table.
func (r *Router) PartitionCount(table string) (int, error) {
	e, ok := r.tables[table]
	if !ok {
		return 0, fmt.Errorf("router: unknown table %s", table)
	}
	return e.spec.Partitions, nil
}

// PartitionRange returns the inclusive key range owned by partitionID
// for a Range-partitioned table. Hash-partitioned tables have no
// contiguous key range; PartitionRange returns an error for them.
func (r *Router) PartitionRange(table string, partitionID int) (key.Range, error) {
	e, ok := r.tables[table]
	if !ok {
		return key.Range{}, fmt.Errorf("router: unknown table %s", table)
	}
	if e.spec.Strategy != Range {
		return key.Range{}, fmt.Errorf("router: table %s is hash-partitioned, has no contiguous range", table)
	}
	low := partitionID * int(e.keysPerPartition)
	high := low + int(e.keysPerPartition) - 1
	return key.Range{
		Table: table,
		Low:   key.New(table, key.Int(int64(low))),
		High:  key.New(table, key.Int(int64(high))),
	}, nil
}
