package txn

import "github.com/ipandis/dorakit/pkg/errors"

// Status is a transaction's terminal disposition (§6 Transaction outcome).
type Status int

const (
	Committed Status = iota
	Aborted
)

func (s Status) String() string {
	if s == Committed {
		return "Committed"
	}
	return "Aborted"
}

// Outcome is what the client API returns: {Committed, Aborted(reason)}.
type Outcome struct {
	Status Status
	Reason errors.Reason
}

func retryableReason(r errors.Reason) bool {
	return r == errors.ReasonDeadlock || r == errors.ReasonTimeout
}
