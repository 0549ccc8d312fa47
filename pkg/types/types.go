// Package types defines the fleet coordinator's domain model: nodes, tenant
// workloads, the credit ledger, and the recovery/bulk-operation records that
// tie them together.
package types

import "time"

// Node is a worker machine hosting BotInstance containers, fronted by a node
// agent. Status transitions are the central ordering concern of the fleet
// (see the NodeStatus state machine in pkg/nodeconn).
type Node struct {
	ID              string
	Host            string
	CapacityMb      int64
	UsedMb          int64
	Status          NodeStatus
	AgentVersion    string
	LastHeartbeatAt time.Time
	RegisteredAt    time.Time
	UpdatedAt       time.Time
}

// FreeMb returns the node's unused capacity. Never negative.
func (n *Node) FreeMb() int64 {
	free := n.CapacityMb - n.UsedMb
	if free < 0 {
		return 0
	}
	return free
}

// NodeStatus is the node lifecycle state.
type NodeStatus string

const (
	NodeStatusActive     NodeStatus = "active"
	NodeStatusUnhealthy  NodeStatus = "unhealthy"
	NodeStatusRecovering NodeStatus = "recovering"
	NodeStatusReturning  NodeStatus = "returning"
	NodeStatusOffline    NodeStatus = "offline"
	NodeStatusDraining   NodeStatus = "draining"
	NodeStatusFailed     NodeStatus = "failed"
)

// BillingState is the lifecycle state of a BotInstance's billing.
type BillingState string

const (
	BillingStateActive    BillingState = "active"
	BillingStateSuspended BillingState = "suspended"
	BillingStateDestroyed BillingState = "destroyed"
)

// ResourceTier is the payment tier used for recovery priority ordering.
type ResourceTier string

const (
	TierEnterprise ResourceTier = "enterprise"
	TierPro        ResourceTier = "pro"
	TierStarter    ResourceTier = "starter"
	TierFree       ResourceTier = "free"
)

// tierRank orders tiers for recovery priority: lower rank recovers first.
var tierRank = map[ResourceTier]int{
	TierEnterprise: 0,
	TierPro:        1,
	TierStarter:    2,
	TierFree:       3,
}

// Rank returns the recovery priority of the tier; unknown tiers sort last.
func (t ResourceTier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return len(tierRank)
}

// BotInstance is a single long-lived workload container for a tenant.
// Exclusively owned by its tenant; reassigned to a new NodeID on migration
// or recovery.
type BotInstance struct {
	ID           string
	TenantID     string
	Name         string
	NodeID       string // empty until placed
	BillingState BillingState
	SuspendedAt  *time.Time
	DestroyAfter *time.Time
	ResourceTier ResourceTier
	StorageTier  string
	EstimatedMb  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransactionType categorizes a CreditTransaction.
type TransactionType string

const (
	TxnPurchase   TransactionType = "purchase"
	TxnUsage      TransactionType = "usage"
	TxnGrant      TransactionType = "grant"
	TxnRefund     TransactionType = "refund"
	TxnCorrection TransactionType = "correction"
)

// CreditTransaction is an append-only ledger row. AmountCents is signed:
// positive for credits, negative for debits.
type CreditTransaction struct {
	ID                string
	TenantID          string
	AmountCents       int64
	BalanceAfterCents int64
	Type              TransactionType
	Description       string
	ReferenceID       string // unique; idempotency key, may be empty
	CreatedAt         time.Time
}

// CreditBalance is the materialized balance per tenant. Must always equal
// the sum of that tenant's CreditTransaction.AmountCents.
type CreditBalance struct {
	TenantID      string
	BalanceCents  int64
	UpdatedAt     time.Time
}

// RecoveryTrigger describes why a RecoveryEvent was started.
type RecoveryTrigger string

const (
	RecoveryTriggerHeartbeatTimeout RecoveryTrigger = "heartbeat_timeout"
	RecoveryTriggerManual           RecoveryTrigger = "manual"
)

// RecoveryStatus is the overall outcome of a RecoveryEvent.
type RecoveryStatus string

const (
	RecoveryStatusInProgress RecoveryStatus = "in_progress"
	RecoveryStatusCompleted  RecoveryStatus = "completed"
	RecoveryStatusPartial    RecoveryStatus = "partial"
)

// RecoveryEvent tracks one recovery episode for a dead node.
type RecoveryEvent struct {
	ID          string
	NodeID      string
	Trigger     RecoveryTrigger
	Status      RecoveryStatus
	Total       int
	Recovered   int
	Failed      int
	Waiting     int
	StartedAt   time.Time
	CompletedAt *time.Time
	Report      string // serialized summary, opaque to callers
}

// RecoveryItemStatus is the per-tenant outcome within a RecoveryEvent.
type RecoveryItemStatus string

const (
	RecoveryItemRecovered RecoveryItemStatus = "recovered"
	RecoveryItemFailed    RecoveryItemStatus = "failed"
	RecoveryItemWaiting   RecoveryItemStatus = "waiting"
	RecoveryItemRetried   RecoveryItemStatus = "retried"
)

// RecoveryItem is one tenant's relocation attempt within a RecoveryEvent.
type RecoveryItem struct {
	ID              string
	RecoveryEventID string
	TenantID        string
	SourceNode      string
	TargetNode      string // empty if not yet placed
	BackupKey       string
	Status          RecoveryItemStatus
	Reason          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UndoableGrant records a bulk admin credit grant with a reversible window.
type UndoableGrant struct {
	OperationID   string
	TenantIDs     []string
	AmountCents   int64
	Description   string
	CreatedAt     time.Time
	UndoDeadline  time.Time
	Undone        bool
	PartialUndo   bool
}

// SnapshotType categorizes a Snapshot's origin.
type SnapshotType string

const (
	SnapshotNightly     SnapshotType = "nightly"
	SnapshotOnDemand    SnapshotType = "on-demand"
	SnapshotPreRestore  SnapshotType = "pre-restore"
)

// Snapshot is an opaque backup blob keyed by (tenant, instance, timestamp).
// The core never interprets the blob's internal format.
type Snapshot struct {
	ID          string
	TenantID    string
	InstanceID  string
	Type        SnapshotType
	StoragePath string
	RemoteKey   string
	SizeBytes   int64
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	DeletedAt   *time.Time
}

// TenantCustomer is a read-through cache row backing the Budget Checker and
// Bot Billing, supplementing the credit ledger with auto-topup configuration
// that the external payment processor (out of scope) acts on.
type TenantCustomer struct {
	TenantID          string
	HourlySpendCapCts int64 // 0 = unlimited
	MonthlySpendCapCts int64 // 0 = unlimited
	AutoTopupEnabled  bool
	AutoTopupThreshCts int64
	AutoTopupAmountCts int64
	AutoTopupInFlight bool
	AutoTopupFailures int
	UpdatedAt         time.Time
}

// NotificationKind categorizes a queued notification for the out-of-scope
// delivery collaborator.
type NotificationKind string

const (
	NotifyAutoTopupDisabled NotificationKind = "auto_topup_disabled"
	NotifyRecoveryPartial   NotificationKind = "recovery_partial"
	NotifyCapacityOverflow  NotificationKind = "capacity_overflow"
)

// Notification is a queued outbound message awaiting delivery by the
// out-of-scope notification collaborator.
type Notification struct {
	ID         string
	TenantID   string
	Kind       NotificationKind
	Message    string
	CreatedAt  time.Time
	DeliveredAt *time.Time
	Attempts   int
}

// MeteringEvent is produced by the (out-of-scope) gateway and consumed by
// the Credit Ledger to drive usage debits.
type MeteringEvent struct {
	TenantID   string
	CostCents  int64 // wholesale
	ChargeCents int64 // retail, includes margin
	Capability string
	Provider   string
	Timestamp  time.Time
}

// HeartbeatContainer is one entry in a node's heartbeat container inventory.
type HeartbeatContainer struct {
	Name      string
	MemoryMb  int64
}
