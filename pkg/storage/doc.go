/*
Package storage provides BoltDB-backed state persistence for the
coordinator's cluster data.

The storage package implements the Store interface using BoltDB as the
underlying database, providing ACID transactions for cluster state
including nodes, bot instances, the credit ledger, recovery bookkeeping,
bulk-operation undo grants, snapshots, the tenant customer cache, and the
notification queue. All data is serialized as JSON and stored in separate
buckets for efficient querying and isolation.

# Architecture

Coordinator uses BoltDB (bbolt) for embedded, transactional storage with
zero external dependencies:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/coordinator.db           │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────────────┐     │          │
	│  │  │ nodes               (Node ID)       │     │          │
	│  │  │ bot_instances       (BotInstance ID)│     │          │
	│  │  │ credit_transactions (Txn ID)        │     │          │
	│  │  │ credit_balances     (Tenant ID)     │     │          │
	│  │  │ recovery_events     (Event ID)      │     │          │
	│  │  │ recovery_items      (Item ID)       │     │          │
	│  │  │ undoable_grants     (Operation ID)  │     │          │
	│  │  │ snapshots           (Snapshot ID)   │     │          │
	│  │  │ tenant_customers    (Tenant ID)     │     │          │
	│  │  │ notifications       (Notification ID)│    │          │
	│  │  │ ca                  (fixed key)     │     │          │
	│  │  └────────────────────────────────────┘     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │        Transaction Management                │          │
	│  │  - Read: db.View() - Concurrent reads       │          │
	│  │  - Write: db.Update() - Serialized writes   │          │
	│  │  - Rollback: Automatic on error             │          │
	│  │  - Commit: Automatic on success + fsync     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          JSON Serialization                  │          │
	│  │  - Marshal: Go struct → JSON bytes          │          │
	│  │  - Unmarshal: JSON bytes → Go struct        │          │
	│  │  - Validation: Type safety via Go types     │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │           BoltDB File                        │          │
	│  │  - Copy-on-write B+tree                      │          │
	│  │  - Page size: 4KB                            │          │
	│  │  - mmap for reads                            │          │
	│  │  - Atomic writes with fsync                  │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

BoltStore:
  - Implements Store interface using BoltDB
  - Single database file per manager node
  - Automatic bucket creation on initialization
  - Thread-safe via BoltDB's transaction model

Buckets:
  - nodes: Worker node registrations and their status/capacity
  - bot_instances: Container instances and their placement/billing state
  - credit_transactions: Append-only ledger rows, one per credit/debit
  - credit_balances: Materialized per-tenant balance, kept in sync with
    credit_transactions inside the same FSM command
  - recovery_events / recovery_items: Node-failure recovery bookkeeping
  - undoable_grants: Bulk-operation undo-window bookkeeping
  - snapshots: On-demand and nightly backup metadata
  - tenant_customers: Read-through cache of tenant billing identity
  - notifications: Outbound notification queue (delivery state, not
    reconstructed from a Raft snapshot the way ledger state is)
  - ca: Certificate authority data (single entry)

Transaction Model:
  - Read transactions: db.View() - Concurrent, consistent snapshots
  - Write transactions: db.Update() - Serialized, atomic commits
  - Isolation: Snapshot isolation (MVCC)
  - Durability: fsync on commit ensures crash recovery

# CRUD Operations

Node Operations:

Create/Update Node:
  - Upsert node metadata with ID as key
  - JSON serialization of Node struct
  - Atomic commit via transaction

Get/List Nodes:
  - Key lookup by node ID, or cursor iteration over the whole bucket
  - Returns error if not found; empty slice if no nodes

Delete Node:
  - Remove key from bucket, no error if key doesn't exist (idempotent)

Bot Instance Operations:

Create/Update/Delete BotInstance:
  - Same upsert/idempotent-delete pattern as nodes

List BotInstances / ListBotInstancesByNode / ListBotInstancesByTenant:
  - Full bucket scan, filtered in memory by node or tenant id
  - Used by placement, migration, and recovery to enumerate affected
    instances

GetBotInstanceByTenantName:
  - Cursor scan to find the instance matching a tenant's chosen name
  - Names are unique per tenant, not globally

Credit Ledger Operations:

AppendCreditTransaction:
  - Inserts a new row keyed by transaction id; the ledger is append-only,
    rows are never updated or deleted
  - GetCreditTransactionByReference backs the idempotency check the FSM
    performs before appending, keyed by the caller-supplied reference id

PutCreditBalance / GetCreditBalance:
  - Upserts/reads the single materialized balance row per tenant

Recovery Operations:

CreateRecoveryEvent / UpdateRecoveryEvent:
  - One row per node-failure recovery run; status moves through its
    lifecycle via UpdateRecoveryEvent

GetInProgressRecoveryEventForNode:
  - Scans for an event targeting the given node that hasn't reached a
    terminal status, so a second failure detection doesn't start a
    duplicate recovery run

CreateRecoveryItem / UpdateRecoveryItem / ListRecoveryItemsByEvent:
  - One row per bot instance being recovered within a recovery event

Bulk Operation Support:

CreateUndoableGrant / UpdateUndoableGrant / GetUndoableGrant:
  - One row per bulk grant operation, tracking the undo window and
    per-tenant outcomes

Snapshot Operations:

Create/Update/Delete/Get/List Snapshot:
  - Metadata rows for nightly and on-demand backups; the backup bytes
    themselves live in object storage, not BoltDB

Tenant Customer Cache:

GetTenantCustomer / PutTenantCustomer:
  - Read-through cache keyed by tenant id, refreshed by the billing
    integration and consulted by the credit ledger

Notification Queue:

EnqueueNotification / UpdateNotification / ListUndeliveredNotifications:
  - A simple delivery queue; unlike ledger and recovery state, this
    bucket is deliberately excluded from Raft snapshots (see
    pkg/manager's CoordinatorFSM)

# Usage

Creating a Store:

	store, err := storage.NewBoltStore("/var/lib/coordinator/manager-1")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

Node Operations:

	// Create node
	node := &types.Node{
		ID:          "node-abc123",
		Status:      types.NodeStatusActive,
		CapacityMb:  16384,
		FreeMb:      16384,
	}
	err := store.CreateNode(node)

	// Get node
	node, err := store.GetNode("node-abc123")

	// List all nodes
	nodes, err := store.ListNodes()

	// Update node
	node.Status = types.NodeStatusDraining
	err = store.UpdateNode(node)

	// Delete node
	err = store.DeleteNode("node-abc123")

Bot Instance Operations:

	// Create bot instance
	bot := &types.BotInstance{
		ID:       "bot-xyz789",
		TenantID: "tenant-1",
		NodeID:   "node-abc123",
		Status:   types.BotStatusActive,
	}
	err := store.CreateBotInstance(bot)

	// List instances for a tenant
	bots, err := store.ListBotInstancesByTenant("tenant-1")

	// Update instance state
	bot.Status = types.BotStatusSuspended
	err = store.UpdateBotInstance(bot)

Credit Ledger Operations:

	// Idempotency check before appending (mirrors the FSM's own check)
	existing, err := store.GetCreditTransactionByReference("charge-2026-07-31-001")

	// Append a new transaction and its resulting balance
	txn := &types.CreditTransaction{
		ID:          "txn-def456",
		TenantID:    "tenant-1",
		ReferenceID: "charge-2026-07-31-001",
		AmountCents: -500,
	}
	err = store.AppendCreditTransaction(txn)
	err = store.PutCreditBalance(&types.CreditBalance{TenantID: "tenant-1", BalanceCents: 9500})

Certificate Authority:

	// Save CA certificate and key
	caData := []byte("PEM-encoded CA cert and key")
	err := store.SaveCA(caData)

	// Get CA data
	caData, err := store.GetCA()

# Integration Points

This package integrates with:

  - pkg/manager: Raft FSM reads/writes all cluster state through this
    interface; CoordinatorFSM.Snapshot/Restore round-trip everything
    except the notification queue
  - pkg/placement: Reads nodes and bot instances for placement decisions
  - pkg/recovery: Reads/writes recovery events and items
  - pkg/security: Stores encrypted CA data
  - pkg/types: All entity definitions

# Design Patterns

Upsert Pattern:
  - Create and Update use the same underlying put (db.Put)
  - No separate "exists" check needed
  - Simplifies API and caller code
  - Atomic replacement

Idempotent Deletes:
  - Delete returns no error if key doesn't exist
  - Safe to call multiple times
  - Simplifies cleanup code

Cursor Iteration:
  - ForEach pattern for full bucket scans
  - Memory efficient (streaming)
  - Consistent snapshot during iteration

Error Wrapping:
  - All errors wrapped with context: fmt.Errorf("op failed: %w", err)
  - Preserves original error for inspection
  - Provides operation context in logs

Filter Pattern:
  - List all, filter in memory (ListBotInstancesByTenant)
  - Simple implementation for small datasets
  - Future: Secondary indexes for performance

# Performance Characteristics

Read Operations:
  - Get by key: O(log n) via B+tree, typically < 1ms
  - List all: O(n) full scan, ~1ms per 1000 entries
  - Filter by field: O(n) scan with predicate, same as List
  - Concurrent reads: Supported via MVCC snapshots

Write Operations:
  - Insert/Update: O(log n) for key, ~1-5ms with fsync
  - Delete: O(log n) for key, ~1-5ms with fsync
  - Batch writes: Single transaction, amortized cost
  - Serialized: Only one writer at a time (BoltDB limitation)

Database File Size:
  - Empty: 32KB (header + initial pages)
  - Small fleet (10 nodes, 200 bot instances): ~2MB
  - Medium fleet (100 nodes, 5000 bot instances): ~30MB
  - Growth: Linear with entity count plus the append-only ledger's history

Memory Usage:
  - mmap: Database file mapped to memory
  - Read-only pages: Shared across processes
  - Write buffer: ~4MB per transaction
  - Page cache: OS manages (warm frequently accessed pages)

Transaction Latency:
  - Read transaction: < 100µs (memory access)
  - Write transaction: 1-5ms (fsync to disk)
  - Under load: May queue (single writer)

# Troubleshooting

Common Issues:

Database Locked:
  - Symptom: "database is locked" error
  - Cause: Another process has exclusive lock
  - Solution: Ensure only one manager accesses database
  - Check: No dangling processes holding file

Database Corruption:
  - Symptom: "invalid database" or checksum errors
  - Cause: Unclean shutdown, disk failure, bug
  - Solution: Restore from Raft snapshot via a peer
  - Prevention: Use fsync (enabled by default)

Slow Writes:
  - Symptom: High latency on Create/Update operations
  - Cause: Slow disk, large database, fragmentation
  - Check: fsync latency, disk I/O wait
  - Solution: Use SSD, compact database (future)

Large Database File:
  - Symptom: Database file grows large over time
  - Cause: No compaction, deleted keys leave space, append-only ledger
  - Check: Compare file size to expected data size
  - Solution: Manual compact (future) or backup/restore

# Monitoring

Key metrics to monitor:

Database Operations:
  - storage_read_duration: Time for read transactions
  - storage_write_duration: Time for write transactions
  - storage_operations_total: Count by operation type
  - storage_errors_total: Failed operations

Entity Counts:
  - storage_nodes_total: Number of nodes stored
  - storage_bot_instances_total: Number of bot instances
  - storage_credit_transactions_total: Ledger row count

# Data Integrity

Transaction Guarantees:
  - Atomicity: All-or-nothing commits
  - Consistency: JSON validation before commit
  - Isolation: Snapshot reads, serialized writes
  - Durability: fsync ensures crash recovery

Backup and Restore:
  - Database is single file (easy to copy)
  - Backup: Copy file while database is closed OR use db.View()
  - Restore: Replace file and restart manager
  - Raft handles replication across managers; a restored follower also
    gets ledger and tenant-customer state back via snapshot install

# Security

Encryption at Rest:
  - Database file not encrypted by default
  - Recommendation: Use disk encryption (LUKS, dm-crypt)
  - CA private key already encrypted before storage (AES-256-GCM, see
    pkg/security)

File Permissions:
  - Database file: 0600 (owner read/write only)
  - Directory: 0700 (owner full access only)
  - Prevents unprivileged access to cluster state
  - Root or coordinator user only

Access Control:
  - No authentication within database
  - Rely on OS file permissions
  - Manager API provides authorization layer
  - Direct database access only for recovery

# See Also

  - pkg/manager for Raft FSM integration
  - pkg/types for all entity definitions
  - pkg/placement for read-heavy placement workloads
  - BoltDB documentation: https://github.com/etcd-io/bbolt
  - ACID properties: https://en.wikipedia.org/wiki/ACID
*/
package storage
