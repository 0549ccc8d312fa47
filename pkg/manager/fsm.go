package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/orbitfleet/coordinator/pkg/storage"
	"github.com/orbitfleet/coordinator/pkg/types"
	"github.com/hashicorp/raft"
)

// CoordinatorFSM implements the Raft Finite State Machine for the fleet's
// replicated state. It applies log entries to the local store and handles
// snapshots; all mutation goes through Apply so that every replica arrives
// at the same state in the same order.
type CoordinatorFSM struct {
	mu    sync.RWMutex
	store storage.Store
}

// NewCoordinatorFSM creates a new FSM instance
func NewCoordinatorFSM(store storage.Store) *CoordinatorFSM {
	return &CoordinatorFSM{
		store: store,
	}
}

// Command represents a state change operation in the Raft log
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// Apply applies a Raft log entry to the FSM. Called by Raft when a log
// entry is committed on this node, whether leader or follower.
func (f *CoordinatorFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	// Node operations
	case "create_node":
		var node types.Node
		if err := json.Unmarshal(cmd.Data, &node); err != nil {
			return err
		}
		return f.store.CreateNode(&node)

	case "update_node":
		var node types.Node
		if err := json.Unmarshal(cmd.Data, &node); err != nil {
			return err
		}
		return f.store.UpdateNode(&node)

	case "delete_node":
		var nodeID string
		if err := json.Unmarshal(cmd.Data, &nodeID); err != nil {
			return err
		}
		return f.store.DeleteNode(nodeID)

	// Bot instance operations
	case "create_bot_instance":
		var bot types.BotInstance
		if err := json.Unmarshal(cmd.Data, &bot); err != nil {
			return err
		}
		return f.store.CreateBotInstance(&bot)

	case "update_bot_instance":
		var bot types.BotInstance
		if err := json.Unmarshal(cmd.Data, &bot); err != nil {
			return err
		}
		return f.store.UpdateBotInstance(&bot)

	case "delete_bot_instance":
		var botID string
		if err := json.Unmarshal(cmd.Data, &botID); err != nil {
			return err
		}
		return f.store.DeleteBotInstance(botID)

	// Credit ledger operations
	case "append_credit_transaction":
		var payload struct {
			Txn     *types.CreditTransaction `json:"txn"`
			Balance *types.CreditBalance     `json:"balance"`
		}
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return err
		}
		if existing, err := f.store.GetCreditTransactionByReference(payload.Txn.ReferenceID); err != nil {
			return err
		} else if existing != nil {
			// Idempotent replay: the reference id was already applied by a
			// prior commit. Return the already-recorded transaction instead
			// of appending a duplicate.
			return existing
		}
		if err := f.store.AppendCreditTransaction(payload.Txn); err != nil {
			return err
		}
		if err := f.store.PutCreditBalance(payload.Balance); err != nil {
			return err
		}
		return payload.Txn

	// Recovery operations
	case "create_recovery_event":
		var event types.RecoveryEvent
		if err := json.Unmarshal(cmd.Data, &event); err != nil {
			return err
		}
		return f.store.CreateRecoveryEvent(&event)

	case "update_recovery_event":
		var event types.RecoveryEvent
		if err := json.Unmarshal(cmd.Data, &event); err != nil {
			return err
		}
		return f.store.UpdateRecoveryEvent(&event)

	case "create_recovery_item":
		var item types.RecoveryItem
		if err := json.Unmarshal(cmd.Data, &item); err != nil {
			return err
		}
		return f.store.CreateRecoveryItem(&item)

	case "update_recovery_item":
		var item types.RecoveryItem
		if err := json.Unmarshal(cmd.Data, &item); err != nil {
			return err
		}
		return f.store.UpdateRecoveryItem(&item)

	// Bulk operations
	case "create_undoable_grant":
		var grant types.UndoableGrant
		if err := json.Unmarshal(cmd.Data, &grant); err != nil {
			return err
		}
		return f.store.CreateUndoableGrant(&grant)

	case "update_undoable_grant":
		var grant types.UndoableGrant
		if err := json.Unmarshal(cmd.Data, &grant); err != nil {
			return err
		}
		return f.store.UpdateUndoableGrant(&grant)

	// Snapshot operations
	case "create_snapshot":
		var snap types.Snapshot
		if err := json.Unmarshal(cmd.Data, &snap); err != nil {
			return err
		}
		return f.store.CreateSnapshot(&snap)

	case "update_snapshot":
		var snap types.Snapshot
		if err := json.Unmarshal(cmd.Data, &snap); err != nil {
			return err
		}
		return f.store.UpdateSnapshot(&snap)

	case "delete_snapshot":
		var snapID string
		if err := json.Unmarshal(cmd.Data, &snapID); err != nil {
			return err
		}
		return f.store.DeleteSnapshot(snapID)

	// Tenant customer cache
	case "put_tenant_customer":
		var tc types.TenantCustomer
		if err := json.Unmarshal(cmd.Data, &tc); err != nil {
			return err
		}
		return f.store.PutTenantCustomer(&tc)

	// Notifications
	case "enqueue_notification":
		var n types.Notification
		if err := json.Unmarshal(cmd.Data, &n); err != nil {
			return err
		}
		return f.store.EnqueueNotification(&n)

	case "update_notification":
		var n types.Notification
		if err := json.Unmarshal(cmd.Data, &n); err != nil {
			return err
		}
		return f.store.UpdateNotification(&n)

	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// Snapshot creates a point-in-time snapshot of the FSM for Raft log
// compaction.
func (f *CoordinatorFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	nodes, err := f.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %v", err)
	}

	bots, err := f.store.ListBotInstances()
	if err != nil {
		return nil, fmt.Errorf("failed to list bot instances: %v", err)
	}

	recoveryEvents, err := f.store.ListRecoveryEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to list recovery events: %v", err)
	}

	var recoveryItems []*types.RecoveryItem
	for _, event := range recoveryEvents {
		items, err := f.store.ListRecoveryItemsByEvent(event.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list recovery items: %v", err)
		}
		recoveryItems = append(recoveryItems, items...)
	}

	snapshots, err := f.store.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %v", err)
	}

	var balances []*types.CreditBalance
	var txns []*types.CreditTransaction
	var tenantCustomers []*types.TenantCustomer
	tenantIDs := make(map[string]struct{})
	for _, bot := range bots {
		tenantIDs[bot.TenantID] = struct{}{}
	}
	for tenantID := range tenantIDs {
		bal, err := f.store.GetCreditBalance(tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to get credit balance: %v", err)
		}
		balances = append(balances, bal)

		tenantTxns, err := f.store.ListCreditTransactionsByTenant(tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to list credit transactions: %v", err)
		}
		txns = append(txns, tenantTxns...)

		tc, err := f.store.GetTenantCustomer(tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to get tenant customer: %v", err)
		}
		if tc != nil {
			tenantCustomers = append(tenantCustomers, tc)
		}
	}

	snapshot := &CoordinatorSnapshot{
		Nodes:              nodes,
		BotInstances:       bots,
		RecoveryEvents:     recoveryEvents,
		RecoveryItems:      recoveryItems,
		Snapshots:          snapshots,
		CreditBalances:     balances,
		CreditTransactions: txns,
		TenantCustomers:    tenantCustomers,
	}

	return snapshot, nil
}

// Restore restores the FSM from a snapshot, called when a node restarts or
// joins the cluster via snapshot installation.
func (f *CoordinatorFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot CoordinatorSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, node := range snapshot.Nodes {
		if err := f.store.CreateNode(node); err != nil {
			return fmt.Errorf("failed to restore node: %v", err)
		}
	}

	for _, bot := range snapshot.BotInstances {
		if err := f.store.CreateBotInstance(bot); err != nil {
			return fmt.Errorf("failed to restore bot instance: %v", err)
		}
	}

	for _, event := range snapshot.RecoveryEvents {
		if err := f.store.CreateRecoveryEvent(event); err != nil {
			return fmt.Errorf("failed to restore recovery event: %v", err)
		}
	}

	for _, item := range snapshot.RecoveryItems {
		if err := f.store.CreateRecoveryItem(item); err != nil {
			return fmt.Errorf("failed to restore recovery item: %v", err)
		}
	}

	for _, snap := range snapshot.Snapshots {
		if err := f.store.CreateSnapshot(snap); err != nil {
			return fmt.Errorf("failed to restore snapshot: %v", err)
		}
	}

	for _, txn := range snapshot.CreditTransactions {
		if err := f.store.AppendCreditTransaction(txn); err != nil {
			return fmt.Errorf("failed to restore credit transaction: %v", err)
		}
	}

	for _, bal := range snapshot.CreditBalances {
		if err := f.store.PutCreditBalance(bal); err != nil {
			return fmt.Errorf("failed to restore credit balance: %v", err)
		}
	}

	for _, tc := range snapshot.TenantCustomers {
		if err := f.store.PutTenantCustomer(tc); err != nil {
			return fmt.Errorf("failed to restore tenant customer: %v", err)
		}
	}

	return nil
}

// CoordinatorSnapshot represents a point-in-time snapshot of cluster state,
// taken under the FSM lock so it is consistent with the last applied log
// entry. Notifications are excluded: they are a delivery queue, not
// replicated cluster state that a restored follower needs to reconstruct.
type CoordinatorSnapshot struct {
	Nodes              []*types.Node
	BotInstances       []*types.BotInstance
	RecoveryEvents     []*types.RecoveryEvent
	RecoveryItems      []*types.RecoveryItem
	Snapshots          []*types.Snapshot
	CreditBalances     []*types.CreditBalance
	CreditTransactions []*types.CreditTransaction
	TenantCustomers    []*types.TenantCustomer
}

// Persist writes the snapshot to the given SnapshotSink
func (s *CoordinatorSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
	}

	return err
}

// Release releases the snapshot resources
func (s *CoordinatorSnapshot) Release() {}
