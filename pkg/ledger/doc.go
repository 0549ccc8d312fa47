/*
Package ledger implements the credit-backed billing discipline that gates
a tenant's workloads between active and suspended: the append-only credit
ledger, the per-BotInstance billing state machine it drives, the rolling
spend-window admission check, and auto-topup.

# Credit Ledger

Every balance mutation is a single atomic step: append a CreditTransaction
row and update the tenant's materialized CreditBalance together, delegated
to pkg/manager.Manager.AppendCreditTransaction so the two can never
diverge across Raft replicas. A caller-supplied referenceId makes the call
idempotent against webhook or metering replay: a colliding referenceId
short-circuits to the already-recorded transaction instead of appending a
duplicate.

A Credit that brings a tenant's balance above zero reactivates every
suspended BotInstance it owns. A Debit that brings it to zero or below
suspends every active one. Explicit admin suspend/reactivate bypass the
balance check entirely.

# Budget Checker

CheckAdmission compares a tenant's rolling hourly and monthly spend against
its configured caps (zero meaning unlimited) before letting a chargeable
operation proceed. The underlying sums are expensive enough, and read
often enough, to warrant a short-TTL cache (~1s default) in front of them;
a Debit explicitly invalidates the cache entry for its tenant so a cap
check immediately after a spend never reads stale numbers, while GET-heavy
paths that only read still benefit from the cache between writes.

# Auto-topup

A tenant may configure a threshold and a top-up amount. A Debit that drops
the balance under that threshold, when no charge is already in flight,
marks the tenant in-flight and calls out to the (out-of-scope) external
payment processor. Consecutive failures at or past a configured maximum
disable auto-topup for that tenant and enqueue a notification, the same
queued-notification mechanism pkg/recovery and pkg/migration use for their
own degraded-but-not-fatal conditions.
*/
package ledger
