/*
Package manager implements the coordinator's Raft-backed control plane.

The manager package is the authoritative store of fleet state: nodes, bot
instances, the credit ledger, and recovery/migration bookkeeping. Managers
form a highly-available quorum using the Raft consensus protocol, so the
fleet keeps a single consistent view of placement and billing state even
across network partitions or manager failures.

# Architecture

A coordinator cluster consists of 1-7 manager nodes that form a Raft quorum:

	┌─────────────────────── MANAGER NODE ───────────────────────┐
	│                                                              │
	│  ┌──────────────────────────────────────────────┐          │
	│  │         gRPC API Server (node + CLI RPCs)     │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │              Manager                          │          │
	│  │  - Handles API requests                       │          │
	│  │  - Proposes Raft commands                     │          │
	│  │  - Coordinates placement, recovery, ledger    │          │
	│  │  - Manages join tokens and the cluster CA     │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │          Raft Consensus Layer                 │          │
	│  │  - Leader election (target <10s failover)     │          │
	│  │  - Log replication across managers            │          │
	│  │  - FSM applies committed commands             │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │        CoordinatorFSM (state machine)         │          │
	│  │  - Apply(): process committed commands        │          │
	│  │  - Snapshot(): create state snapshots         │          │
	│  │  - Restore(): recover from snapshots          │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │              BoltDB Store                      │          │
	│  │  - Nodes, bot instances                       │          │
	│  │  - Credit ledger, recovery bookkeeping        │          │
	│  │  - Raft log and snapshots                     │          │
	│  └────────────────────────────────────────────────┘         │
	└──────────────────────────────────────────────────────────┘

# Core Components

Manager:
  - Main control-plane coordinator
  - Proposes Raft commands for every state change
  - Serves reads from the local store on any replica
  - Owns the cluster CA and join-token issuance

CoordinatorFSM:
  - Raft finite state machine implementation
  - Applies committed log entries to the local store
  - Implements snapshot/restore for log compaction

TokenManager:
  - Generates and validates join tokens
  - Time-limited tokens, one role each (manager or worker agent)

Command:
  - Encapsulates a state change as {op, data}
  - Serialized as JSON in the Raft log

# Raft Consensus

Cluster Sizes:
  - 1 manager: development only (no HA)
  - 3 managers: production (tolerates 1 failure)
  - 5 managers: high availability (tolerates 2 failures)

Quorum Requirements:
  - Write operations require majority quorum
  - Read operations served locally by any replica
  - Leader election typically completes in well under the 10s failover target

Data Replication:
  - All state changes replicated via Raft log
  - Log entries applied to the FSM in order
  - New managers sync via snapshot + log replay

# Usage

Creating a Manager:

	cfg := &manager.Config{
		NodeID:   "manager-1",
		BindAddr: "192.168.1.10:8080",
		DataDir:  "/var/lib/coordinator/manager-1",
	}

	mgr, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatal(err)
	}

Bootstrapping a new cluster:

	if err := mgr.Bootstrap(); err != nil {
		log.Fatal(err)
	}

Joining an existing cluster:

	token := "manager-join-token-abc123"
	if err := mgr.Join("192.168.1.10:8080", token); err != nil {
		log.Fatal(err)
	}

Proposing state changes: callers use the typed helpers (CreateNode,
AppendCreditTransaction, CreateRecoveryEvent, ...) rather than calling
Apply directly; each marshals its argument and submits the matching
Command.

# Leadership

Only the Raft leader can accept writes; followers serve reads from their
local store and forward any write attempt to the leader. When the leader
fails, a new one is elected and the placement, recovery, and ledger
callers simply retry against the new leader address.

# Credit ledger consistency

AppendCreditTransaction submits the transaction row and its resulting
balance in a single Raft command, so a partial apply can never leave the
ledger row and the materialized balance disagreeing. Idempotency is
enforced inside the FSM: a repeated referenceID returns the transaction
that was recorded the first time instead of appending a duplicate.

# Integration Points

This package integrates with:

  - pkg/api: gRPC server implementation
  - pkg/storage: persists cluster state to BoltDB
  - pkg/placement: chooses target nodes for new and migrated bot instances
  - pkg/recovery: drives node failure recovery through this package's
    recovery-event/recovery-item commands
  - pkg/security: manages the cluster CA and node certificates
  - pkg/events: publishes fleet events for subscribers

# See Also

  - pkg/api for the gRPC server implementation
  - pkg/storage for state persistence
  - pkg/placement for placement and migration logic
  - pkg/recovery for node-failure recovery orchestration
*/
package manager
