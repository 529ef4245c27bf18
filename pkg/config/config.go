/*
Package config defines dorakit's recognized options (§6), a plain
struct-of-options populated from environment variables or defaults —
in the teacher's style (pkg/manager.Config, pkg/worker.Config): the
core never parses flags itself, only cmd/dorakit binds cobra flags to
this struct.
*/
package config

import (
	"os"
	"runtime"
	"strconv"
)

// Config holds every option spec.md §6 recognizes.
type Config struct {
	// PartitionsPerTable overrides the partition count for named
	// tables; a table absent from the map uses DefaultPartitions.
	PartitionsPerTable map[string]int
	// DefaultPartitions is used for any table not named in
	// PartitionsPerTable; defaults to the active CPU count.
	DefaultPartitions int

	// CPUBind pins worker goroutines to OS threads/cores.
	CPUBind bool
	// StartingCPU and CPUStep describe the affinity plan: partition i
	// binds to StartingCPU + i*CPUStep.
	StartingCPU int
	CPUStep     int

	FlusherEnabled    bool
	FlusherBatchBytes int
	FlusherBatchMS    int

	// SLIEnabled is a speculative-lock-inheritance hint passed through
	// to the storage adapter; the core does not interpret it itself.
	SLIEnabled bool

	// ScalingFactor sizes the router's key ranges (pkg/router's
	// EstimateKeysPerPartition).
	ScalingFactor int

	// RetryLimit bounds the coordinator's retry budget for transient
	// failures (deadlock, lock timeout).
	RetryLimit int
}

// Default returns a Config with the defaults spec.md §6 implies.
func Default() Config {
	return Config{
		PartitionsPerTable: map[string]int{},
		DefaultPartitions:  runtime.NumCPU(),
		CPUBind:            false,
		StartingCPU:        0,
		CPUStep:            1,
		FlusherEnabled:     true,
		FlusherBatchBytes:  0,
		FlusherBatchMS:     5,
		SLIEnabled:         false,
		ScalingFactor:      1,
		RetryLimit:         3,
	}
}

// PartitionsFor returns the configured partition count for table.
func (c Config) PartitionsFor(table string) int {
	if n, ok := c.PartitionsPerTable[table]; ok && n > 0 {
		return n
	}
	if c.DefaultPartitions > 0 {
		return c.DefaultPartitions
	}
	return 1
}

// FromEnv overlays environment variables onto Default(), using the
// DORAKIT_ prefix. Unset variables leave the default untouched.
func FromEnv() Config {
	c := Default()

	if v := os.Getenv("DORAKIT_DEFAULT_PARTITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DefaultPartitions = n
		}
	}
	if v := os.Getenv("DORAKIT_CPU_BIND"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CPUBind = b
		}
	}
	if v := os.Getenv("DORAKIT_STARTING_CPU"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.StartingCPU = n
		}
	}
	if v := os.Getenv("DORAKIT_CPU_STEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CPUStep = n
		}
	}
	if v := os.Getenv("DORAKIT_FLUSHER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.FlusherEnabled = b
		}
	}
	if v := os.Getenv("DORAKIT_FLUSHER_BATCH_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FlusherBatchBytes = n
		}
	}
	if v := os.Getenv("DORAKIT_FLUSHER_BATCH_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FlusherBatchMS = n
		}
	}
	if v := os.Getenv("DORAKIT_SLI_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SLIEnabled = b
		}
	}
	if v := os.Getenv("DORAKIT_SCALING_FACTOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ScalingFactor = n
		}
	}
	if v := os.Getenv("DORAKIT_RETRY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RetryLimit = n
		}
	}

	return c
}
