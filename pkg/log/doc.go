/*
Package log provides structured logging for the engine using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-scoped loggers, configurable levels, and helper functions for
the logging patterns partition workers, the coordinator, and the
flusher all share. All logs include timestamps and support filtering by
severity for production debugging.

Component Loggers:
  - WithComponent("partition")
  - WithPartition("accounts", 2)
  - WithTxID("8f1e...")
  - WithTrxType("transfer")

Init must be called once at process startup before any component
requests a scoped logger; until then, Logger is the zero value
zerolog.Logger, which discards output.
*/
package log
