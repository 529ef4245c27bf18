/*
Package txn implements the transaction coordinator (C8): the client
entry point that turns a registered graph template and a set of inputs
into a running transaction.

A graph template is a plain Go function (TrxFunc) rather than a
declarative structure the coordinator interprets — the RVP mechanism
(pkg/rvp) already is the continuation the graph advances through, so a
template author writes it the same way any DORA action graph is
described: submit a wave, build the RVP the wave reports to, and let
that RVP's continuation submit the next wave or, for the last one,
hand off to Builder.Final.

Submit begins the transaction's shared storage handle and instantiates
a fresh Builder, which borrows actions and RVPs from pools owned by the
Coordinator (§9 Design notes: actions/RVPs are pooled per-transaction
state, not permanent graph nodes) and tracks every borrow in an arena
so the coordinator can give every node back in one pass once the
transaction's final RVP fires. Run layers retry on top of Submit for
the blocking client API, re-running a transaction up to
config.RetryLimit times when it aborts with a retryable reason
(Deadlock, Timeout).
*/
package txn
