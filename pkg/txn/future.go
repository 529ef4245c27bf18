package txn

import "context"

// Future is the handle a non-blocking submit() returns (§4.8, §6
// client API). Wait blocks until the transaction's final RVP has
// fired and the coordinator has resolved commit or abort.
type Future struct {
	done chan Outcome
}

func newFuture() *Future {
	return &Future{done: make(chan Outcome, 1)}
}

func (f *Future) deliver(o Outcome) {
	f.done <- o
}

// Wait blocks for the outcome or ctx's cancellation, whichever comes
// first.
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case o := <-f.done:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
