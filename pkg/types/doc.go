/*
Package types defines the fleet coordinator's domain model.

This package contains the core records shared by every subsystem of the
coordinator: nodes, tenant workloads (BotInstance), the credit ledger, and
the recovery/bulk-operation bookkeeping records. These types are persisted
via pkg/storage, mutated through pkg/manager's Raft-replicated command log,
and read directly by the placement, recovery, migration, and billing
components.

# Core Types

Fleet:
  - Node: a worker machine with memory capacity, usage, and status.
  - NodeStatus: active, unhealthy, recovering, returning, offline, draining, failed.
  - BotInstance: a tenant's workload, assigned to at most one node at a time.
  - BillingState: active, suspended, destroyed.
  - ResourceTier: enterprise, pro, starter, free — drives recovery priority.

Ledger:
  - CreditTransaction: an append-only, signed ledger row.
  - CreditBalance: the materialized balance per tenant.
  - TenantCustomer: cached budget caps and auto-topup configuration.

Recovery & migration bookkeeping:
  - RecoveryEvent / RecoveryItem: one recovery episode and its per-tenant items.
  - UndoableGrant: a bulk credit grant with a reversible window.

Other:
  - Snapshot: an opaque backup blob reference, soft- then hard-deleted.
  - Notification: a queued message for the out-of-scope delivery collaborator.
  - MeteringEvent: a usage event produced by the (out-of-scope) gateway.

# Design notes

All monetary fields are integer cents; nothing in this package or its
callers uses a floating-point representation of money. Optional
relationships (BotInstance.NodeID before placement, RecoveryItem.TargetNode
before a target is chosen) are empty strings rather than pointers, since
the zero value is itself meaningful ("not yet assigned"); truly optional
timestamps use pointers so their absence is unambiguous.

Types here do not know about Raft, BoltDB, or gRPC — they are plain data,
serialized as JSON at every storage and wire boundary.
*/
package types
