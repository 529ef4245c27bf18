/*
Package workload supplies named sample transaction graph templates for
pkg/txn's Coordinator: the TM1-flavored GetNewDest, UpdSubData, and
InsCallFwd shapes from dora/tm1/dora_tm1.h, plus a TPC-C-flavored
Payment (two-partition transfer) and BalanceUpdate (single-partition
update) used by spec.md's end-to-end scenarios.

These are graph shapes, not a benchmark driver: each Register*
function wires one coordinator.TrxFunc using the same Builder API any
caller would, just enough to exercise every RVP/action shape the
DORA core distinguishes — a 1-wave single-partition update, a
2-partition root wave joining on one final RVP, a 2-phase
midway-then-final chain (GetNewDest, UpdSubData), and a 3-action,
two-midway-RVP chain (InsCallFwd).

GetNewDest has a 1-phase and 2-phase variant in the original
(TM1GND/TM1GND2); this package implements the 2-phase variant as
canonical, matching UpdSubData's and InsCallFwd's own 2-phase shape.
*/
package workload
