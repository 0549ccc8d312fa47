package nodeconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/placement"
	"github.com/orbitfleet/coordinator/pkg/types"
)

// ClusterStore is the subset of the replicated store the Manager needs.
// *manager.Manager satisfies this; tests can supply a fake.
type ClusterStore interface {
	CreateNode(node *types.Node) error
	UpdateNode(node *types.Node) error
	GetNode(id string) (*types.Node, error)
	ListNodes() ([]*types.Node, error)

	GetBotInstance(id string) (*types.BotInstance, error)
	UpdateBotInstance(bot *types.BotInstance) error

	GetInProgressRecoveryEventForNode(nodeID string) (*types.RecoveryEvent, error)
	UpdateRecoveryEvent(event *types.RecoveryEvent) error
}

// connection tracks the live state for one connected node: its channel,
// its command bus, and the per-connection-instance orphan-cleaner guard
// spec §4.1 requires ("already triggered" resets on reconnect).
type connection struct {
	nodeID          string
	bus             *CommandBus
	orphanTriggered bool
}

// Manager owns the live fabric between the coordinator and every
// connected node: registration, the heartbeat/orphan-cleanup pipeline,
// and command dispatch. It is the only component permitted to mutate the
// registration/heartbeat/orphan-completion edges of the node status state
// machine (spec §4.6); migration, recovery, and drain own the rest.
type Manager struct {
	store   ClusterStore
	cleaner *OrphanCleaner

	mu    sync.RWMutex
	conns map[string]*connection
}

// NewManager constructs a Manager. The OrphanCleaner is constructed
// separately so it can be unit tested against a bare ClusterStore without
// a live channel.
func NewManager(store ClusterStore) *Manager {
	m := &Manager{
		store: store,
		conns: make(map[string]*connection),
	}
	m.cleaner = NewOrphanCleaner(store)
	return m
}

// RegisterNode creates or updates a node record per spec §4.1's atomic
// transition rules, then closes any in-flight RecoveryEvent for it.
func (m *Manager) RegisterNode(nodeID, host string, capacityMb int64, agentVersion string) error {
	existing, err := m.store.GetNode(nodeID)
	if err != nil {
		return fmt.Errorf("nodeconn: get node %s: %w", nodeID, err)
	}

	now := time.Now()

	if existing == nil {
		node := &types.Node{
			ID:              nodeID,
			Host:            host,
			CapacityMb:      capacityMb,
			AgentVersion:    agentVersion,
			Status:          types.NodeStatusActive,
			RegisteredAt:    now,
			LastHeartbeatAt: now,
			UpdatedAt:       now,
		}
		if err := m.store.CreateNode(node); err != nil {
			return fmt.Errorf("nodeconn: create node %s: %w", nodeID, err)
		}
		log.WithNodeID(nodeID).Info().Msg("node registered for the first time")
		return nil
	}

	existing.Host = host
	existing.CapacityMb = capacityMb
	existing.AgentVersion = agentVersion

	switch existing.Status {
	case types.NodeStatusOffline, types.NodeStatusRecovering, types.NodeStatusFailed:
		existing.Status = types.NodeStatusReturning
	case types.NodeStatusUnhealthy:
		existing.Status = types.NodeStatusActive
	case types.NodeStatusActive, types.NodeStatusReturning, types.NodeStatusDraining:
		// unchanged
	}
	existing.UpdatedAt = now

	if err := m.store.UpdateNode(existing); err != nil {
		return fmt.Errorf("nodeconn: update node %s: %w", nodeID, err)
	}

	if err := m.closeInFlightRecovery(nodeID, now); err != nil {
		return err
	}

	log.WithNodeID(nodeID).Info().Str("status", string(existing.Status)).Msg("node re-registered")
	return nil
}

func (m *Manager) closeInFlightRecovery(nodeID string, at time.Time) error {
	event, err := m.store.GetInProgressRecoveryEventForNode(nodeID)
	if err != nil {
		return fmt.Errorf("nodeconn: lookup in-progress recovery for %s: %w", nodeID, err)
	}
	if event == nil {
		return nil
	}
	event.Status = types.RecoveryStatusCompleted
	event.CompletedAt = &at
	if err := m.store.UpdateRecoveryEvent(event); err != nil {
		return fmt.Errorf("nodeconn: close in-flight recovery %s: %w", event.ID, err)
	}
	return nil
}

// HandleChannel binds a live channel to a node id and processes frames
// from it until the channel closes or ctx is canceled. It is meant to run
// for the lifetime of one gRPC stream, in its own goroutine.
func (m *Manager) HandleChannel(ctx context.Context, nodeID string, ch Channel) error {
	conn := &connection{nodeID: nodeID}
	conn.bus = NewCommandBus(func(frame *CommandFrame) error {
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		return ch.SendFrame(data)
	})

	m.mu.Lock()
	m.conns[nodeID] = conn
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.conns[nodeID] == conn {
			delete(m.conns, nodeID)
		}
		m.mu.Unlock()
		conn.bus.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := ch.RecvFrame()
		if err != nil {
			return err
		}

		frame, err := ParseFrame(raw)
		if err != nil {
			log.WithNodeID(nodeID).Warn().Err(err).Msg("discarding unparseable frame")
			continue
		}

		switch f := frame.(type) {
		case *HeartbeatFrame:
			if err := m.handleHeartbeat(ctx, conn, f); err != nil {
				log.WithNodeID(nodeID).Error().Err(err).Msg("heartbeat processing failed")
			}
		case *CommandResultFrame:
			conn.bus.Resolve(f)
		case *HealthEventFrame:
			log.WithNodeID(nodeID).Debug().Msg("health event received")
		}
	}
}

// handleHeartbeat sums container memory, updates the node record, and, on
// the first heartbeat of a returning episode, triggers the OrphanCleaner.
func (m *Manager) handleHeartbeat(ctx context.Context, conn *connection, hb *HeartbeatFrame) error {
	node, err := m.store.GetNode(conn.nodeID)
	if err != nil {
		return fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return fmt.Errorf("heartbeat from unregistered node %s", conn.nodeID)
	}

	usedMb := SumContainerMemory(hb.Containers)
	names := ContainerNames(hb.Containers)

	wasReturning := node.Status == types.NodeStatusReturning

	node.UsedMb = usedMb
	node.LastHeartbeatAt = time.Now()
	// Heartbeats MUST NOT flip returning/draining to active (spec §4.1, §4.6).
	if node.Status == types.NodeStatusUnhealthy {
		node.Status = types.NodeStatusActive
	}
	node.UpdatedAt = time.Now()

	if err := m.store.UpdateNode(node); err != nil {
		return fmt.Errorf("update node: %w", err)
	}

	m.mu.Lock()
	shouldClean := wasReturning && !conn.orphanTriggered
	if shouldClean {
		conn.orphanTriggered = true
	}
	m.mu.Unlock()

	if shouldClean {
		if err := m.cleaner.Clean(ctx, conn, conn.nodeID, names); err != nil {
			log.WithNodeID(conn.nodeID).Error().Err(err).Msg("orphan cleanup failed, node remains returning")
		}
	}

	return nil
}

// SendCommand issues a command to a connected node and awaits its result.
// It returns ErrChannelClosed if the node is not currently connected.
func (m *Manager) SendCommand(ctx context.Context, nodeID, cmdType string, payload interface{}) (*CommandResultFrame, error) {
	return m.sendCommandTimeout(ctx, nodeID, cmdType, payload, DefaultCommandTimeout)
}

func (m *Manager) sendCommandTimeout(ctx context.Context, nodeID, cmdType string, payload interface{}, timeout time.Duration) (*CommandResultFrame, error) {
	m.mu.RLock()
	conn, ok := m.conns[nodeID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrChannelClosed
	}
	return conn.bus.Send(ctx, cmdType, payload, timeout)
}

// ListBySession returns the node ids currently holding a live channel.
func (m *Manager) ListBySession() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	return ids
}

// ReassignTenant persists a BotInstance's new node assignment. Capacity
// accounting is a separate call (AddNodeCapacity) so migration/recovery
// can order the downtime-ending reassignment ahead of bookkeeping.
func (m *Manager) ReassignTenant(botID, newNodeID string) error {
	bot, err := m.store.GetBotInstance(botID)
	if err != nil {
		return fmt.Errorf("nodeconn: get bot instance %s: %w", botID, err)
	}
	if bot == nil {
		return cerr.Validation(fmt.Sprintf("bot instance %s not found", botID))
	}
	bot.NodeID = newNodeID
	bot.UpdatedAt = time.Now()
	if err := m.store.UpdateBotInstance(bot); err != nil {
		return fmt.Errorf("nodeconn: reassign bot instance %s: %w", botID, err)
	}
	return nil
}

// AddNodeCapacity adjusts a node's usedMb by deltaMb (positive when
// placing work, negative when freeing it). usedMb is clamped at zero.
func (m *Manager) AddNodeCapacity(nodeID string, deltaMb int64) error {
	node, err := m.store.GetNode(nodeID)
	if err != nil {
		return fmt.Errorf("nodeconn: get node %s: %w", nodeID, err)
	}
	if node == nil {
		return cerr.Validation(fmt.Sprintf("node %s not found", nodeID))
	}
	node.UsedMb += deltaMb
	if node.UsedMb < 0 {
		node.UsedMb = 0
	}
	node.UpdatedAt = time.Now()
	return m.store.UpdateNode(node)
}

// FindBestTarget delegates to the Placement Engine over the current node
// list, excluding excludeNodeID (typically the source or dead node).
func (m *Manager) FindBestTarget(excludeNodeID string, estimatedMb int64) (*types.Node, error) {
	nodes, err := m.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("nodeconn: list nodes: %w", err)
	}
	var excluded []string
	if excludeNodeID != "" {
		excluded = []string{excludeNodeID}
	}
	return placement.FindPlacementExcluding(nodes, excluded, estimatedMb), nil
}
