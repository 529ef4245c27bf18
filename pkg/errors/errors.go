// Package errors enumerates the error taxonomy the DORA core uses to
// decide retry, abort, and process-fatal behavior. It mirrors the
// error-code enumeration style of shore-kits' shore_error.h, adapted to
// Go's errors.Is/As conventions instead of a flat integer namespace.
package errors

import "errors"

// Sentinel reasons. A component wraps one of these with fmt.Errorf's
// %w verb to attach context; callers compare with errors.Is.
var (
	// NotFound is recoverable and surfaced to the action's own logic
	// (e.g. a read-modify-write that tolerates a missing row).
	NotFound = errors.New("not found")

	// LockTimeout marks a lock wait that exceeded a bound. The lock
	// manager (pkg/lock) has no wait bound and never raises it; an
	// action payload may return it, and the coordinator retries it up
	// to retry_limit before surfacing it.
	LockTimeout = errors.New("lock timeout")

	// Deadlock marks a transient wait-cycle abort. Nothing in the core
	// detects cycles or raises it, and the coordinator does not check
	// graph templates for cyclic partition references; an action
	// payload may return it, and the coordinator retries it up to
	// retry_limit before surfacing it.
	Deadlock = errors.New("deadlock")

	// ConstraintViolation is a storage-level rejection (e.g. a check
	// constraint) that aborts the transaction and is reported to the
	// client verbatim.
	ConstraintViolation = errors.New("constraint violation")

	// StorageError covers I/O failures from the storage adapter. Fatal
	// for the transaction; Retryable reports false for it, so the
	// coordinator never re-runs a transaction that failed this way.
	StorageError = errors.New("storage error")

	// Fatal indicates an invariant violation or allocation failure.
	// The core does not attempt recovery; callers should treat this as
	// unrecoverable for the process, not just the transaction.
	Fatal = errors.New("fatal")

	// Cancelled marks a transaction aborted by client cancellation
	// rather than by any failure inside the action graph.
	Cancelled = errors.New("cancelled")

	// UserAbort marks an abort requested explicitly by transaction
	// logic (not a storage or lock failure).
	UserAbort = errors.New("user abort")
)

// Reason is the client-visible abort reason, distinct from the
// sentinel errors above: several sentinels (Deadlock, LockTimeout) map
// to the same Reason once retries are exhausted.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonUserAbort           Reason = "UserAbort"
	ReasonDeadlock            Reason = "Deadlock"
	ReasonTimeout             Reason = "Timeout"
	ReasonStorageError        Reason = "StorageError"
	ReasonConstraintViolation Reason = "ConstraintViolation"
	ReasonCancelled           Reason = "Cancelled"
)

// ReasonFor classifies an error into its client-visible Reason. Errors
// that don't match any sentinel are reported as StorageError, since an
// action's payload can only fail via the storage adapter or a declared
// constraint in this core's error model.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, Deadlock):
		return ReasonDeadlock
	case errors.Is(err, LockTimeout):
		return ReasonTimeout
	case errors.Is(err, ConstraintViolation):
		return ReasonConstraintViolation
	case errors.Is(err, Cancelled):
		return ReasonCancelled
	case errors.Is(err, UserAbort):
		return ReasonUserAbort
	default:
		return ReasonStorageError
	}
}

// Retryable reports whether the coordinator should re-run the
// transaction rather than surface the error immediately.
func Retryable(err error) bool {
	return errors.Is(err, Deadlock) || errors.Is(err, LockTimeout)
}
