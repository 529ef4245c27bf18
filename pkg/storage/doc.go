/*
Package storage defines the external storage interface (C10) the DORA
core consumes and ships two implementations of it: an in-memory
MemAdapter for tests (including test/integration), and a BoltAdapter
backed by go.etcd.io/bbolt for the CLI's --data-dir mode.

The core never depends on either concrete adapter — only on Adapter —
so a production deployment would swap in a real storage manager
(buffer pool, WAL, B-tree) behind the same seam without touching
pkg/partition, pkg/action, or pkg/txn.
*/
package storage
