package storage

import (
	"github.com/orbitfleet/coordinator/pkg/types"
)

// Store defines the durable persistence contract for fleet state. It is
// implemented by BoltStore; tests may compose a pure in-memory
// implementation that honors the same contract (see pkg/storage/memory.go).
type Store interface {
	// Nodes
	CreateNode(node *types.Node) error
	GetNode(id string) (*types.Node, error)
	ListNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(id string) error

	// BotInstances
	CreateBotInstance(bot *types.BotInstance) error
	GetBotInstance(id string) (*types.BotInstance, error)
	GetBotInstanceByTenantName(tenantID, name string) (*types.BotInstance, error)
	ListBotInstances() ([]*types.BotInstance, error)
	ListBotInstancesByNode(nodeID string) ([]*types.BotInstance, error)
	ListBotInstancesByTenant(tenantID string) ([]*types.BotInstance, error)
	UpdateBotInstance(bot *types.BotInstance) error
	DeleteBotInstance(id string) error

	// Credit ledger
	AppendCreditTransaction(txn *types.CreditTransaction) error
	GetCreditTransactionByReference(referenceID string) (*types.CreditTransaction, error)
	ListCreditTransactionsByTenant(tenantID string) ([]*types.CreditTransaction, error)
	GetCreditBalance(tenantID string) (*types.CreditBalance, error)
	PutCreditBalance(balance *types.CreditBalance) error

	// Recovery
	CreateRecoveryEvent(event *types.RecoveryEvent) error
	GetRecoveryEvent(id string) (*types.RecoveryEvent, error)
	GetInProgressRecoveryEventForNode(nodeID string) (*types.RecoveryEvent, error)
	ListRecoveryEvents() ([]*types.RecoveryEvent, error)
	UpdateRecoveryEvent(event *types.RecoveryEvent) error
	CreateRecoveryItem(item *types.RecoveryItem) error
	ListRecoveryItemsByEvent(eventID string) ([]*types.RecoveryItem, error)
	UpdateRecoveryItem(item *types.RecoveryItem) error

	// Bulk operations
	CreateUndoableGrant(grant *types.UndoableGrant) error
	GetUndoableGrant(operationID string) (*types.UndoableGrant, error)
	UpdateUndoableGrant(grant *types.UndoableGrant) error

	// Snapshots
	CreateSnapshot(snap *types.Snapshot) error
	GetSnapshot(id string) (*types.Snapshot, error)
	ListSnapshots() ([]*types.Snapshot, error)
	UpdateSnapshot(snap *types.Snapshot) error
	DeleteSnapshot(id string) error

	// Tenant customer cache
	GetTenantCustomer(tenantID string) (*types.TenantCustomer, error)
	PutTenantCustomer(tc *types.TenantCustomer) error

	// Notifications
	EnqueueNotification(n *types.Notification) error
	ListUndeliveredNotifications() ([]*types.Notification, error)
	UpdateNotification(n *types.Notification) error

	// Certificate Authority (node mTLS trust root)
	SaveCA(data []byte) error
	GetCA() ([]byte, error)

	// Utility
	Close() error
}
