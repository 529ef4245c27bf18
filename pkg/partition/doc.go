/*
Package partition implements the partition worker (C4) and the
Registry that owns a table's full partition set.

Each Worker runs on its own goroutine and owns one lock.Table; nothing
outside that goroutine ever calls into it except via Submit, which only
pushes onto the worker's MPSC queue. That single-writer property is
what lets §4.3's logical lock manager skip physical concurrency
control entirely.
*/
package partition
