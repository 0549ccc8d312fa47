package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/orbitfleet/coordinator/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketNodes              = []byte("nodes")
	bucketBotInstances       = []byte("bot_instances")
	bucketCreditTransactions = []byte("credit_transactions")
	bucketCreditRefIndex     = []byte("credit_transactions_by_ref")
	bucketCreditBalances     = []byte("credit_balances")
	bucketRecoveryEvents     = []byte("recovery_events")
	bucketRecoveryItems      = []byte("recovery_items")
	bucketUndoableGrants     = []byte("bulk_undo_grants")
	bucketSnapshots          = []byte("snapshots")
	bucketTenantCustomers    = []byte("tenant_customers")
	bucketNotifications      = []byte("notification_queue")
	bucketCA                 = []byte("ca")
)

// BoltStore implements Store using an embedded BoltDB file, one bucket per
// entity and one JSON-marshaled row per key, following the same convention
// throughout: Create/Update both Put (an upsert), Get decodes or returns a
// not-found error, List walks the bucket with ForEach.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) the coordinator's BoltDB file
// under dataDir and ensures every bucket exists.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "coordinator.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketNodes,
			bucketBotInstances,
			bucketCreditTransactions,
			bucketCreditRefIndex,
			bucketCreditBalances,
			bucketRecoveryEvents,
			bucketRecoveryItems,
			bucketUndoableGrants,
			bucketSnapshots,
			bucketTenantCustomers,
			bucketNotifications,
			bucketCA,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// --- Nodes ---

func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put([]byte(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id string) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("node not found: %s", id)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	return s.CreateNode(node) // upsert
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).Delete([]byte(id))
	})
}

// --- BotInstances ---

func (s *BoltStore) CreateBotInstance(bot *types.BotInstance) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBotInstances)
		data, err := json.Marshal(bot)
		if err != nil {
			return err
		}
		return b.Put([]byte(bot.ID), data)
	})
}

func (s *BoltStore) GetBotInstance(id string) (*types.BotInstance, error) {
	var bot types.BotInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBotInstances)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("bot instance not found: %s", id)
		}
		return json.Unmarshal(data, &bot)
	})
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (s *BoltStore) GetBotInstanceByTenantName(tenantID, name string) (*types.BotInstance, error) {
	var found *types.BotInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBotInstances)
		return b.ForEach(func(k, v []byte) error {
			var bot types.BotInstance
			if err := json.Unmarshal(v, &bot); err != nil {
				return err
			}
			if bot.TenantID == tenantID && bot.Name == name {
				found = &bot
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("bot instance not found: %s/%s", tenantID, name)
	}
	return found, nil
}

func (s *BoltStore) ListBotInstances() ([]*types.BotInstance, error) {
	var bots []*types.BotInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBotInstances)
		return b.ForEach(func(k, v []byte) error {
			var bot types.BotInstance
			if err := json.Unmarshal(v, &bot); err != nil {
				return err
			}
			bots = append(bots, &bot)
			return nil
		})
	})
	return bots, err
}

func (s *BoltStore) ListBotInstancesByNode(nodeID string) ([]*types.BotInstance, error) {
	all, err := s.ListBotInstances()
	if err != nil {
		return nil, err
	}
	var filtered []*types.BotInstance
	for _, bot := range all {
		if bot.NodeID == nodeID {
			filtered = append(filtered, bot)
		}
	}
	return filtered, nil
}

func (s *BoltStore) ListBotInstancesByTenant(tenantID string) ([]*types.BotInstance, error) {
	all, err := s.ListBotInstances()
	if err != nil {
		return nil, err
	}
	var filtered []*types.BotInstance
	for _, bot := range all {
		if bot.TenantID == tenantID {
			filtered = append(filtered, bot)
		}
	}
	return filtered, nil
}

func (s *BoltStore) UpdateBotInstance(bot *types.BotInstance) error {
	return s.CreateBotInstance(bot)
}

func (s *BoltStore) DeleteBotInstance(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBotInstances).Delete([]byte(id))
	})
}

// --- Credit ledger ---
//
// AppendCreditTransaction and PutCreditBalance are always called together by
// pkg/ledger inside a single logical operation; BoltDB's single-writer
// transaction model makes that update+append atomic here. The reference-id
// index is maintained in the same bucket.Put call as the row itself so a
// duplicate referenceID is visible to a concurrent reader only once fully
// written.

func (s *BoltStore) AppendCreditTransaction(txn *types.CreditTransaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCreditTransactions)
		data, err := json.Marshal(txn)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(txn.ID), data); err != nil {
			return err
		}
		if txn.ReferenceID != "" {
			idx := tx.Bucket(bucketCreditRefIndex)
			if err := idx.Put([]byte(txn.ReferenceID), []byte(txn.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetCreditTransactionByReference(referenceID string) (*types.CreditTransaction, error) {
	var txn types.CreditTransaction
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucketCreditRefIndex)
		txnID := idx.Get([]byte(referenceID))
		if txnID == nil {
			return nil
		}
		data := tx.Bucket(bucketCreditTransactions).Get(txnID)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &txn)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &txn, nil
}

func (s *BoltStore) ListCreditTransactionsByTenant(tenantID string) ([]*types.CreditTransaction, error) {
	var txns []*types.CreditTransaction
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCreditTransactions)
		return b.ForEach(func(k, v []byte) error {
			var txn types.CreditTransaction
			if err := json.Unmarshal(v, &txn); err != nil {
				return err
			}
			if txn.TenantID == tenantID {
				txns = append(txns, &txn)
			}
			return nil
		})
	})
	return txns, err
}

func (s *BoltStore) GetCreditBalance(tenantID string) (*types.CreditBalance, error) {
	var bal types.CreditBalance
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCreditBalances).Get([]byte(tenantID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &bal)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return &types.CreditBalance{TenantID: tenantID, BalanceCents: 0}, nil
	}
	return &bal, nil
}

func (s *BoltStore) PutCreditBalance(balance *types.CreditBalance) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(balance)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCreditBalances).Put([]byte(balance.TenantID), data)
	})
}

// --- Recovery ---

func (s *BoltStore) CreateRecoveryEvent(event *types.RecoveryEvent) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRecoveryEvents).Put([]byte(event.ID), data)
	})
}

func (s *BoltStore) GetRecoveryEvent(id string) (*types.RecoveryEvent, error) {
	var event types.RecoveryEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecoveryEvents).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("recovery event not found: %s", id)
		}
		return json.Unmarshal(data, &event)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *BoltStore) GetInProgressRecoveryEventForNode(nodeID string) (*types.RecoveryEvent, error) {
	var found *types.RecoveryEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecoveryEvents).ForEach(func(k, v []byte) error {
			var event types.RecoveryEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			if event.NodeID == nodeID && event.Status == types.RecoveryStatusInProgress {
				found = &event
			}
			return nil
		})
	})
	return found, err
}

func (s *BoltStore) ListRecoveryEvents() ([]*types.RecoveryEvent, error) {
	var events []*types.RecoveryEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecoveryEvents).ForEach(func(k, v []byte) error {
			var event types.RecoveryEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			events = append(events, &event)
			return nil
		})
	})
	return events, err
}

func (s *BoltStore) UpdateRecoveryEvent(event *types.RecoveryEvent) error {
	return s.CreateRecoveryEvent(event)
}

func (s *BoltStore) CreateRecoveryItem(item *types.RecoveryItem) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRecoveryItems).Put([]byte(item.ID), data)
	})
}

func (s *BoltStore) ListRecoveryItemsByEvent(eventID string) ([]*types.RecoveryItem, error) {
	var items []*types.RecoveryItem
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecoveryItems).ForEach(func(k, v []byte) error {
			var item types.RecoveryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			if item.RecoveryEventID == eventID {
				items = append(items, &item)
			}
			return nil
		})
	})
	return items, err
}

func (s *BoltStore) UpdateRecoveryItem(item *types.RecoveryItem) error {
	return s.CreateRecoveryItem(item)
}

// --- Bulk operations ---

func (s *BoltStore) CreateUndoableGrant(grant *types.UndoableGrant) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(grant)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketUndoableGrants).Put([]byte(grant.OperationID), data)
	})
}

func (s *BoltStore) GetUndoableGrant(operationID string) (*types.UndoableGrant, error) {
	var grant types.UndoableGrant
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUndoableGrants).Get([]byte(operationID))
		if data == nil {
			return fmt.Errorf("bulk grant not found: %s", operationID)
		}
		return json.Unmarshal(data, &grant)
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *BoltStore) UpdateUndoableGrant(grant *types.UndoableGrant) error {
	return s.CreateUndoableGrant(grant)
}

// --- Snapshots ---

func (s *BoltStore) CreateSnapshot(snap *types.Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSnapshots).Put([]byte(snap.ID), data)
	})
}

func (s *BoltStore) GetSnapshot(id string) (*types.Snapshot, error) {
	var snap types.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSnapshots).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("snapshot not found: %s", id)
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *BoltStore) ListSnapshots() ([]*types.Snapshot, error) {
	var snaps []*types.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			var snap types.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			snaps = append(snaps, &snap)
			return nil
		})
	})
	return snaps, err
}

func (s *BoltStore) UpdateSnapshot(snap *types.Snapshot) error {
	return s.CreateSnapshot(snap)
}

func (s *BoltStore) DeleteSnapshot(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(id))
	})
}

// --- Tenant customer cache ---

func (s *BoltStore) GetTenantCustomer(tenantID string) (*types.TenantCustomer, error) {
	var tc types.TenantCustomer
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTenantCustomers).Get([]byte(tenantID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &tc)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return &types.TenantCustomer{TenantID: tenantID}, nil
	}
	return &tc, nil
}

func (s *BoltStore) PutTenantCustomer(tc *types.TenantCustomer) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(tc)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketTenantCustomers).Put([]byte(tc.TenantID), data)
	})
}

// --- Notifications ---

func (s *BoltStore) EnqueueNotification(n *types.Notification) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketNotifications).Put([]byte(n.ID), data)
	})
}

func (s *BoltStore) ListUndeliveredNotifications() ([]*types.Notification, error) {
	var pending []*types.Notification
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNotifications).ForEach(func(k, v []byte) error {
			var n types.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if n.DeliveredAt == nil {
				pending = append(pending, &n)
			}
			return nil
		})
	})
	return pending, err
}

func (s *BoltStore) UpdateNotification(n *types.Notification) error {
	return s.EnqueueNotification(n)
}

// --- Certificate Authority ---

func (s *BoltStore) SaveCA(data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCA).Put([]byte("ca"), data)
	})
}

func (s *BoltStore) GetCA() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCA).Get([]byte("ca"))
		if raw == nil {
			return fmt.Errorf("CA not found")
		}
		data = make([]byte, len(raw))
		copy(data, raw)
		return nil
	})
	return data, err
}
