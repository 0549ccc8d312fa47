/*
Package reconciler runs the coordinator's time-based background sweeps:
the parts of the node status state machine and cleanup work that no
single event (a heartbeat, a command result) drives on its own.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│                  Reconciliation Loop                       │
	│                   (Every 10 seconds)                       │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	    ┌────────────┼──────────────┬───────────────┬────────────┐
	    ▼            ▼              ▼               ▼            ▼
	Heartbeat    Notification   Snapshot      Grace-period   (next cycle)
	sweep        delivery       retention     destroy sweep
	    │                                          │
	    ▼                                          ▼
	active -> unhealthy (soft threshold)      pkg/ledger.Billing.DestroyExpiredBots
	unhealthy -> recovering, triggers pkg/recovery.Manager.Run (hard threshold)

Like the teacher's original scheduler/reconciler pair, this reconciler is
stateless between ticks: every cycle re-reads node state from the store,
so a missed or doubled tick never compounds into a worse decision later.

# Heartbeat sweep

A node crossing the soft threshold without a heartbeat moves active ->
unhealthy. Crossing the hard threshold while already unhealthy dispatches
a recovery episode and moves the node toward recovering once that episode
actually starts (pkg/recovery.Manager.Run owns that specific transition,
so the reconciler only has to avoid dispatching the same node twice while
its recovery is in flight).

# Notification delivery

Queued notifications (capacity overflow, partial recovery, auto-topup
disabled) are drained each cycle and handed to a pluggable Notifier; the
real delivery channel (email, webhook, in-app) is an out-of-scope
collaborator, so the default Notifier only logs.

# Snapshot retention

Snapshots go through two phases, bounding storage growth from
nightly/on-demand backups the same way the teacher's original reconciler
garbage-collected completed tasks after a grace period:

  - Soft delete: a row past its ExpiresAt gets DeletedAt set. The blob is
    untouched, so an operator who notices can still recover it.
  - Hard delete: a row already soft-deleted for longer than
    SnapshotRetentionGrace has its blob removed from pkg/objectstore
    (RemoteKey) and the row itself dropped. A missing or nil object
    store skips the blob removal but leaves the row soft-deleted rather
    than silently losing track of an unreclaimed blob.

# Grace-period destroy sweep

A BotInstance suspended for billing reaches its DestroyAfter deadline the
same way a node crosses a heartbeat threshold: with nobody watching a
clock for it directly. Each cycle asks pkg/ledger.Billing to reclaim every
suspended instance whose grace period has passed; the sweep is idempotent,
so a missed or doubled cycle never double-destroys anything.
*/
package reconciler
