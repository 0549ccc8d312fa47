/*
Package bulkops implements the admin bulk-operation surface (spec §4.8):
grant, suspend, reactivate, and export over up to 500 tenant ids in one
call. Each per-tenant operation is caught individually, so one tenant's
failure never aborts the batch — the same record-and-continue shape
pkg/recovery and pkg/ledger's billing sweeps use.

A Grant produces an OperationID and a 5-minute undo window. Undo applies a
compensating correction transaction, for the same amount, to every tenant
in the original grant. Undo itself is all-or-nothing only in intent: if
any per-tenant correction fails, the grant is left not-undone (only
PartialUndo is recorded) so a retry can pick up where it left off. Retried
corrections are safe to repeat because each one carries a deterministic
reference id, so the ledger's own idempotency check absorbs the ones that
already landed.
*/
package bulkops
