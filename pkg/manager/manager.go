package manager

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/client"
	"github.com/orbitfleet/coordinator/pkg/events"
	"github.com/orbitfleet/coordinator/pkg/metrics"
	"github.com/orbitfleet/coordinator/pkg/security"
	"github.com/orbitfleet/coordinator/pkg/storage"
	"github.com/orbitfleet/coordinator/pkg/types"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Manager represents a coordinator cluster node: the Raft-backed owner of
// fleet state (nodes, bot instances, the credit ledger, recovery and
// migration bookkeeping). Reads are served from the local store on any
// replica; writes go through Apply so that every replica agrees on
// ordering.
type Manager struct {
	nodeID   string
	bindAddr string
	dataDir  string

	raft         *raft.Raft
	fsm          *CoordinatorFSM
	store        storage.Store
	tokenManager *TokenManager
	ca           *security.CertAuthority
	eventBroker  *events.Broker
}

// Config holds configuration for creating a Manager
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
}

// NewManager creates a new Manager instance
func NewManager(cfg *Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	fsm := NewCoordinatorFSM(store)
	tokenManager := NewTokenManager()
	ca := security.NewCertAuthority(store)

	eventBroker := events.NewBroker()
	eventBroker.Start()

	m := &Manager{
		nodeID:       cfg.NodeID,
		bindAddr:     cfg.BindAddr,
		dataDir:      cfg.DataDir,
		fsm:          fsm,
		store:        store,
		ca:           ca,
		tokenManager: tokenManager,
		eventBroker:  eventBroker,
	}

	return m, nil
}

// raftConfig builds the shared Raft configuration used by both Bootstrap
// and Join. Timeouts are tuned below the Hashicorp defaults (tuned for WAN
// deployments) to target sub-10s failover on a LAN-local fleet: the leader
// heartbeats roughly every 250ms, and a follower that misses one calls an
// election within 500ms.
func (m *Manager) raftConfig() *raft.Config {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(m.nodeID)
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
	return config
}

func (m *Manager) newRaft(config *raft.Config) (*raft.Raft, error) {
	addr, err := net.ResolveTCPAddr("tcp", m.bindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(m.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(m.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logStorePath := filepath.Join(m.dataDir, "raft-log.db")
	logStore, err := raftboltdb.NewBoltStore(logStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log store: %w", err)
	}

	stableStorePath := filepath.Join(m.dataDir, "raft-stable.db")
	stableStore, err := raftboltdb.NewBoltStore(stableStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create stable store: %w", err)
	}

	return raft.NewRaft(config, m.fsm, logStore, stableStore, snapshotStore, transport)
}

// Bootstrap initializes a new single-node Raft cluster
func (m *Manager) Bootstrap() error {
	config := m.raftConfig()

	r, err := m.newRaft(config)
	if err != nil {
		return fmt.Errorf("failed to create raft: %w", err)
	}
	m.raft = r

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{
				ID:      config.LocalID,
				Address: raft.ServerAddress(m.bindAddr),
			},
		},
	}

	future := m.raft.BootstrapCluster(configuration)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	if err := m.initializeCA(); err != nil {
		return fmt.Errorf("failed to initialize CA: %w", err)
	}

	return nil
}

// Join adds this manager to an existing cluster
func (m *Manager) Join(leaderAddr string, token string) error {
	config := m.raftConfig()

	r, err := m.newRaft(config)
	if err != nil {
		return fmt.Errorf("failed to create raft: %w", err)
	}
	m.raft = r

	fmt.Printf("Contacting leader at %s to join cluster...\n", leaderAddr)

	c, err := client.NewClient(leaderAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to leader: %w", err)
	}
	defer c.Close()

	if err := c.JoinCluster(m.nodeID, m.bindAddr, token); err != nil {
		return fmt.Errorf("failed to join cluster via RPC: %w", err)
	}

	fmt.Println("successfully joined cluster")

	if err := m.ca.LoadFromStore(); err != nil {
		return fmt.Errorf("failed to load CA: %w", err)
	}
	fmt.Println("loaded certificate authority from cluster")

	return nil
}

// AddVoter adds a new manager node to the Raft cluster
func (m *Manager) AddVoter(nodeID, address string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader, current leader: %s", m.LeaderAddr())
	}

	future := m.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to add voter: %w", err)
	}

	return nil
}

// RemoveServer removes a server from the Raft cluster
func (m *Manager) RemoveServer(nodeID string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader")
	}

	future := m.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to remove server: %w", err)
	}

	return nil
}

// GetClusterServers returns information about all servers in the Raft cluster
func (m *Manager) GetClusterServers() ([]raft.Server, error) {
	if m.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}

	future := m.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	return future.Configuration().Servers, nil
}

// IsLeader returns true if this manager is the Raft leader
func (m *Manager) IsLeader() bool {
	if m.raft == nil {
		return false
	}
	return m.raft.State() == raft.Leader
}

// LeaderAddr returns the address of the current Raft leader
func (m *Manager) LeaderAddr() string {
	if m.raft == nil {
		return ""
	}
	return string(m.raft.Leader())
}

// GetRaftStats returns Raft statistics
func (m *Manager) GetRaftStats() map[string]interface{} {
	if m.raft == nil {
		return nil
	}

	stats := make(map[string]interface{})
	stats["state"] = m.raft.State().String()
	stats["last_log_index"] = m.raft.LastIndex()
	stats["applied_index"] = m.raft.AppliedIndex()
	stats["leader"] = string(m.raft.Leader())

	configFuture := m.raft.GetConfiguration()
	if err := configFuture.Error(); err == nil {
		config := configFuture.Configuration()
		stats["peers"] = uint64(len(config.Servers))
	} else {
		stats["peers"] = uint64(0)
	}

	return stats
}

// GetEventBroker returns the event broker
func (m *Manager) GetEventBroker() *events.Broker {
	return m.eventBroker
}

// PublishEvent publishes an event to all subscribers
func (m *Manager) PublishEvent(event *events.Event) {
	if m.eventBroker != nil {
		m.eventBroker.Publish(event)
	}
}

// Apply submits a command to the Raft cluster and returns the FSM's
// response, so callers that need the materialized result (e.g. an
// idempotent ledger append returning the existing transaction) can use it.
func (m *Manager) Apply(cmd Command) (interface{}, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftApplyDuration)

	if m.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	future := m.raft.Apply(data, 5*time.Second)
	if err := future.Error(); err != nil {
		return nil, cerr.Transient("raft apply failed", err)
	}

	resp := future.Response()
	if err, ok := resp.(error); ok && err != nil {
		return nil, err
	}

	return resp, nil
}

// --- Node operations ---

// CreateNode adds a node to the cluster
func (m *Manager) CreateNode(node *types.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "create_node", Data: data})
	return err
}

// UpdateNode updates a node in the cluster
func (m *Manager) UpdateNode(node *types.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "update_node", Data: data})
	return err
}

// DeleteNode removes a node from the cluster
func (m *Manager) DeleteNode(id string) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "delete_node", Data: data})
	return err
}

// GetNode retrieves a node by ID (read from local store)
func (m *Manager) GetNode(id string) (*types.Node, error) {
	return m.store.GetNode(id)
}

// ListNodes returns all nodes (read from local store)
func (m *Manager) ListNodes() ([]*types.Node, error) {
	return m.store.ListNodes()
}

// --- Bot instance operations ---

// CreateBotInstance places a new bot instance via Raft
func (m *Manager) CreateBotInstance(bot *types.BotInstance) error {
	data, err := json.Marshal(bot)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "create_bot_instance", Data: data})
	return err
}

// UpdateBotInstance updates a bot instance via Raft
func (m *Manager) UpdateBotInstance(bot *types.BotInstance) error {
	data, err := json.Marshal(bot)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "update_bot_instance", Data: data})
	return err
}

// DeleteBotInstance removes a bot instance via Raft
func (m *Manager) DeleteBotInstance(id string) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "delete_bot_instance", Data: data})
	return err
}

// GetBotInstance retrieves a bot instance by ID (read from local store)
func (m *Manager) GetBotInstance(id string) (*types.BotInstance, error) {
	return m.store.GetBotInstance(id)
}

// GetBotInstanceByTenantName retrieves a bot instance by tenant and name
func (m *Manager) GetBotInstanceByTenantName(tenantID, name string) (*types.BotInstance, error) {
	return m.store.GetBotInstanceByTenantName(tenantID, name)
}

// ListBotInstances returns all bot instances (read from local store)
func (m *Manager) ListBotInstances() ([]*types.BotInstance, error) {
	return m.store.ListBotInstances()
}

// ListBotInstancesByNode returns all bot instances on a node
func (m *Manager) ListBotInstancesByNode(nodeID string) ([]*types.BotInstance, error) {
	return m.store.ListBotInstancesByNode(nodeID)
}

// ListBotInstancesByTenant returns all bot instances for a tenant
func (m *Manager) ListBotInstancesByTenant(tenantID string) ([]*types.BotInstance, error) {
	return m.store.ListBotInstancesByTenant(tenantID)
}

// --- Credit ledger operations ---

// AppendCreditTransaction records a ledger entry and the balance it
// produces as a single Raft command, so the two never diverge across
// replicas. If referenceID has already been applied, the FSM returns the
// previously recorded transaction instead of appending a duplicate.
func (m *Manager) AppendCreditTransaction(txn *types.CreditTransaction, newBalance *types.CreditBalance) (*types.CreditTransaction, error) {
	payload := struct {
		Txn     *types.CreditTransaction `json:"txn"`
		Balance *types.CreditBalance     `json:"balance"`
	}{Txn: txn, Balance: newBalance}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := m.Apply(Command{Op: "append_credit_transaction", Data: data})
	if err != nil {
		return nil, err
	}

	if result, ok := resp.(*types.CreditTransaction); ok {
		return result, nil
	}

	// raft.Apply's response crosses an interface{} boundary; re-decode
	// defensively in case the concrete type was lost along the way.
	raw, err := json.Marshal(resp)
	if err != nil {
		return txn, nil
	}
	var decoded types.CreditTransaction
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return txn, nil
	}
	return &decoded, nil
}

// GetCreditBalance retrieves a tenant's materialized balance
func (m *Manager) GetCreditBalance(tenantID string) (*types.CreditBalance, error) {
	return m.store.GetCreditBalance(tenantID)
}

// GetCreditTransactionByReference looks up a transaction by idempotency key
func (m *Manager) GetCreditTransactionByReference(referenceID string) (*types.CreditTransaction, error) {
	return m.store.GetCreditTransactionByReference(referenceID)
}

// ListCreditTransactionsByTenant returns a tenant's transaction history
func (m *Manager) ListCreditTransactionsByTenant(tenantID string) ([]*types.CreditTransaction, error) {
	return m.store.ListCreditTransactionsByTenant(tenantID)
}

// --- Recovery operations ---

// CreateRecoveryEvent starts a new recovery event via Raft
func (m *Manager) CreateRecoveryEvent(event *types.RecoveryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "create_recovery_event", Data: data})
	return err
}

// UpdateRecoveryEvent updates a recovery event via Raft
func (m *Manager) UpdateRecoveryEvent(event *types.RecoveryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "update_recovery_event", Data: data})
	return err
}

// GetRecoveryEvent retrieves a recovery event by ID
func (m *Manager) GetRecoveryEvent(id string) (*types.RecoveryEvent, error) {
	return m.store.GetRecoveryEvent(id)
}

// GetInProgressRecoveryEventForNode returns the in-progress recovery event
// for a node, if any
func (m *Manager) GetInProgressRecoveryEventForNode(nodeID string) (*types.RecoveryEvent, error) {
	return m.store.GetInProgressRecoveryEventForNode(nodeID)
}

// ListRecoveryEvents returns all recovery events
func (m *Manager) ListRecoveryEvents() ([]*types.RecoveryEvent, error) {
	return m.store.ListRecoveryEvents()
}

// CreateRecoveryItem adds a per-bot-instance recovery item via Raft
func (m *Manager) CreateRecoveryItem(item *types.RecoveryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "create_recovery_item", Data: data})
	return err
}

// UpdateRecoveryItem updates a recovery item via Raft
func (m *Manager) UpdateRecoveryItem(item *types.RecoveryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "update_recovery_item", Data: data})
	return err
}

// ListRecoveryItemsByEvent returns all items belonging to a recovery event
func (m *Manager) ListRecoveryItemsByEvent(eventID string) ([]*types.RecoveryItem, error) {
	return m.store.ListRecoveryItemsByEvent(eventID)
}

// --- Bulk operations ---

// CreateUndoableGrant records a bulk grant's undo window via Raft
func (m *Manager) CreateUndoableGrant(grant *types.UndoableGrant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "create_undoable_grant", Data: data})
	return err
}

// UpdateUndoableGrant updates a bulk grant's undo state via Raft
func (m *Manager) UpdateUndoableGrant(grant *types.UndoableGrant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "update_undoable_grant", Data: data})
	return err
}

// GetUndoableGrant retrieves a bulk grant by operation ID
func (m *Manager) GetUndoableGrant(operationID string) (*types.UndoableGrant, error) {
	return m.store.GetUndoableGrant(operationID)
}

// --- Snapshot operations ---

// CreateSnapshot records a new backup snapshot via Raft
func (m *Manager) CreateSnapshot(snap *types.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "create_snapshot", Data: data})
	return err
}

// UpdateSnapshot updates a snapshot via Raft
func (m *Manager) UpdateSnapshot(snap *types.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "update_snapshot", Data: data})
	return err
}

// DeleteSnapshot removes a snapshot's record via Raft
func (m *Manager) DeleteSnapshot(id string) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "delete_snapshot", Data: data})
	return err
}

// GetSnapshot retrieves a snapshot by ID
func (m *Manager) GetSnapshot(id string) (*types.Snapshot, error) {
	return m.store.GetSnapshot(id)
}

// ListSnapshots returns all snapshots
func (m *Manager) ListSnapshots() ([]*types.Snapshot, error) {
	return m.store.ListSnapshots()
}

// --- Tenant customer cache ---

// PutTenantCustomer upserts a tenant's spend-cap and auto-topup settings
// via Raft
func (m *Manager) PutTenantCustomer(tc *types.TenantCustomer) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "put_tenant_customer", Data: data})
	return err
}

// GetTenantCustomer retrieves a tenant's cached customer record
func (m *Manager) GetTenantCustomer(tenantID string) (*types.TenantCustomer, error) {
	return m.store.GetTenantCustomer(tenantID)
}

// --- Notifications ---

// EnqueueNotification queues a notification for delivery via Raft
func (m *Manager) EnqueueNotification(n *types.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "enqueue_notification", Data: data})
	return err
}

// UpdateNotification marks a notification delivered (or failed) via Raft
func (m *Manager) UpdateNotification(n *types.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = m.Apply(Command{Op: "update_notification", Data: data})
	return err
}

// ListUndeliveredNotifications returns notifications awaiting delivery
func (m *Manager) ListUndeliveredNotifications() ([]*types.Notification, error) {
	return m.store.ListUndeliveredNotifications()
}

// --- Join tokens ---

// GenerateJoinToken generates a new join token for adding nodes
func (m *Manager) GenerateJoinToken(role string) (*JoinToken, error) {
	if !m.IsLeader() {
		return nil, fmt.Errorf("not the leader, tokens can only be generated by the leader")
	}
	return m.tokenManager.GenerateToken(role, 24*time.Hour)
}

// ValidateJoinToken validates a join token
func (m *Manager) ValidateJoinToken(token string) (string, error) {
	return m.tokenManager.ValidateToken(token)
}

// Shutdown gracefully shuts down the manager
func (m *Manager) Shutdown() error {
	if m.eventBroker != nil {
		m.eventBroker.Stop()
	}

	if m.raft != nil {
		future := m.raft.Shutdown()
		if err := future.Error(); err != nil {
			return fmt.Errorf("failed to shutdown raft: %w", err)
		}
	}

	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}

	return nil
}

// initializeCA initializes the Certificate Authority for a new cluster
func (m *Manager) initializeCA() error {
	if m.ca.IsInitialized() {
		return nil
	}

	if err := m.ca.LoadFromStore(); err == nil {
		return nil
	}

	if err := m.ca.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize CA: %w", err)
	}

	if err := m.ca.SaveToStore(); err != nil {
		return fmt.Errorf("failed to save CA: %w", err)
	}

	certDir, err := security.GetCertDir("manager", m.nodeID)
	if err != nil {
		return fmt.Errorf("failed to get cert directory: %w", err)
	}

	if !security.CertExists(certDir) {
		host, _, err := net.SplitHostPort(m.bindAddr)
		if err != nil {
			return fmt.Errorf("failed to parse bind address: %w", err)
		}
		var ipAddresses []net.IP
		if ip := net.ParseIP(host); ip != nil {
			ipAddresses = []net.IP{ip}
		}

		dnsNames := []string{
			fmt.Sprintf("manager-%s", m.nodeID),
			"localhost",
		}

		cert, err := m.ca.IssueNodeCertificate(m.nodeID, "manager", dnsNames, ipAddresses)
		if err != nil {
			return fmt.Errorf("failed to issue node certificate: %w", err)
		}

		if err := security.SaveCertToFile(cert, certDir); err != nil {
			return fmt.Errorf("failed to save certificate: %w", err)
		}

		caCert := m.ca.GetRootCACert()
		if err := security.SaveCACertToFile(caCert, certDir); err != nil {
			return fmt.Errorf("failed to save CA certificate: %w", err)
		}
	}

	return nil
}

// IssueCertificate issues a client certificate for a node agent
func (m *Manager) IssueCertificate(nodeID, role string) (*tls.Certificate, error) {
	if !m.ca.IsInitialized() {
		return nil, fmt.Errorf("CA not initialized")
	}
	return m.ca.IssueNodeCertificate(nodeID, role, nil, nil)
}

// CertToPEM converts a TLS certificate to PEM format
func (m *Manager) CertToPEM(cert *tls.Certificate) (certPEM, keyPEM []byte, err error) {
	if cert == nil {
		return nil, nil, fmt.Errorf("certificate is nil")
	}

	certPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Certificate[0],
	})

	privateKey, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("private key is not RSA")
	}

	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return certPEM, keyPEM, nil
}

// GetCACertPEM returns the CA certificate in PEM format
func (m *Manager) GetCACertPEM() []byte {
	if !m.ca.IsInitialized() {
		return nil
	}

	caCertDER := m.ca.GetRootCACert()
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: caCertDER,
	})
}

// ValidateToken validates a join token and returns the role
func (m *Manager) ValidateToken(token string) (string, error) {
	return m.tokenManager.ValidateToken(token)
}

// NodeID returns the manager's node ID
func (m *Manager) NodeID() string {
	return m.nodeID
}

// NewOperationID generates an identifier for a bulk operation or similar
// idempotency-sensitive request that has no natural caller-supplied key.
func NewOperationID() string {
	return uuid.NewString()
}
