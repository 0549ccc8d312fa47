package migration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	"github.com/orbitfleet/coordinator/pkg/types"
)

// defaultEstimatedMb is used when the caller doesn't supply an estimate and
// the BotInstance record doesn't carry one either.
const defaultEstimatedMb = 256

// NodeConn is the subset of *nodeconn.Manager the Migration Manager drives
// commands and placement through.
type NodeConn interface {
	SendCommand(ctx context.Context, nodeID, cmdType string, payload interface{}) (*nodeconn.CommandResultFrame, error)
	FindBestTarget(excludeNodeID string, estimatedMb int64) (*types.Node, error)
	ReassignTenant(botID, newNodeID string) error
	AddNodeCapacity(nodeID string, deltaMb int64) error
}

// Store is the subset of the replicated store the Migration Manager reads
// and mutates directly (node draining/offline status, tenant enumeration).
type Store interface {
	GetBotInstance(id string) (*types.BotInstance, error)
	GetNode(id string) (*types.Node, error)
	UpdateNode(node *types.Node) error
	ListBotInstances() ([]*types.BotInstance, error)
	EnqueueNotification(n *types.Notification) error
}

// Result describes the outcome of one migrateTenant call, including the
// downtime window actually observed.
type Result struct {
	BotID             string
	SourceNodeID      string
	TargetNodeID      string
	DowntimeStartedAt time.Time
	DowntimeEndedAt   time.Time
}

// Downtime is the wall-clock time the tenant was unreachable: from
// stop(source) to the completion of reassignTenant.
func (r Result) Downtime() time.Duration {
	return r.DowntimeEndedAt.Sub(r.DowntimeStartedAt)
}

type exportPayload struct {
	Name string `json:"name"`
}

type backupPayload struct {
	Filename string `json:"filename"`
}

type importPayload struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

type namePayload struct {
	Name string `json:"name"`
}

// Manager orchestrates live tenant relocation and node draining. It owns
// the per-botId exclusion lock spec'd to prevent overlapping migrations of
// the same tenant.
type Manager struct {
	conn  NodeConn
	store Store

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewManager constructs a Migration Manager over a live NodeConn and Store.
func NewManager(conn NodeConn, store Store) *Manager {
	return &Manager{
		conn:     conn,
		store:    store,
		inFlight: make(map[string]struct{}),
	}
}

func (m *Manager) lockBot(botID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inFlight[botID]; ok {
		return cerr.Forbidden(fmt.Sprintf("migration already in progress for bot %s", botID))
	}
	m.inFlight[botID] = struct{}{}
	return nil
}

func (m *Manager) unlockBot(botID string) {
	m.mu.Lock()
	delete(m.inFlight, botID)
	m.mu.Unlock()
}

// MigrateTenant moves a BotInstance to targetNodeID, or to a Placement-chosen
// node (excluding the current one) when targetNodeID is empty.
func (m *Manager) MigrateTenant(ctx context.Context, botID, targetNodeID string, estimatedMb int64) (*Result, error) {
	if err := m.lockBot(botID); err != nil {
		return nil, err
	}
	defer m.unlockBot(botID)

	bot, err := m.store.GetBotInstance(botID)
	if err != nil {
		return nil, fmt.Errorf("migration: get bot instance %s: %w", botID, err)
	}
	if bot == nil {
		return nil, cerr.Validation(fmt.Sprintf("bot instance %s not found", botID))
	}
	sourceNodeID := bot.NodeID
	if sourceNodeID == "" {
		return nil, cerr.InvariantBreach(fmt.Sprintf("bot instance %s has no current node", botID))
	}

	if estimatedMb <= 0 {
		estimatedMb = bot.EstimatedMb
	}
	if estimatedMb <= 0 {
		estimatedMb = defaultEstimatedMb
	}

	if targetNodeID == "" {
		target, err := m.conn.FindBestTarget(sourceNodeID, estimatedMb)
		if err != nil {
			return nil, fmt.Errorf("migration: find target for %s: %w", botID, err)
		}
		if target == nil {
			return nil, cerr.CapacityExhausted(fmt.Sprintf("no placement target for bot %s", botID), map[string]any{
				"botId":       botID,
				"estimatedMb": estimatedMb,
			})
		}
		targetNodeID = target.ID
	}
	if targetNodeID == sourceNodeID {
		return nil, cerr.InvariantBreach(fmt.Sprintf("migration target equals source node %s", sourceNodeID))
	}

	containerName := bot.ID
	filename := fmt.Sprintf("%s.tar.gz", containerName)
	logger := log.WithBotInstance(botID)

	// Step 1: export on source. Source still up.
	if _, err := m.mustSucceed(ctx, sourceNodeID, nodeconn.CmdBotExport, exportPayload{Name: containerName}); err != nil {
		return nil, fmt.Errorf("migration: export on source %s: %w", sourceNodeID, err)
	}

	// Step 2: upload to shared object storage. Source still up.
	if _, err := m.mustSucceed(ctx, sourceNodeID, nodeconn.CmdBackupUpload, backupPayload{Filename: filename}); err != nil {
		return nil, fmt.Errorf("migration: upload backup: %w", err)
	}

	// Step 3: download on target. Source still up.
	if _, err := m.mustSucceed(ctx, targetNodeID, nodeconn.CmdBackupDownload, backupPayload{Filename: filename}); err != nil {
		return nil, fmt.Errorf("migration: download backup on target %s: %w", targetNodeID, err)
	}

	// Step 4: stop on source. Downtime begins.
	downtimeStart := time.Now()
	if _, err := m.mustSucceed(ctx, sourceNodeID, nodeconn.CmdBotStop, namePayload{Name: containerName}); err != nil {
		return nil, fmt.Errorf("migration: stop source container: %w", err)
	}

	result, err := m.finishOnTarget(ctx, botID, containerName, filename, sourceNodeID, targetNodeID, estimatedMb, downtimeStart)
	if err != nil {
		logger.Error().Err(err).Str("source", sourceNodeID).Str("target", targetNodeID).Msg("migration failed after stop, restoring source")
		if _, startErr := m.conn.SendCommand(ctx, sourceNodeID, nodeconn.CmdBotStart, namePayload{Name: containerName}); startErr != nil {
			logger.Error().Err(startErr).Msg("migration rollback: failed to restart source container")
		}
		return nil, err
	}

	logger.Info().Str("source", sourceNodeID).Str("target", targetNodeID).Dur("downtime", result.Downtime()).Msg("migration complete")
	return result, nil
}

// finishOnTarget runs steps 5-9 of migrateTenant: import, start, inspect,
// reassignTenant (downtime ends), and capacity accounting.
func (m *Manager) finishOnTarget(ctx context.Context, botID, containerName, filename, sourceNodeID, targetNodeID string, estimatedMb int64, downtimeStart time.Time) (*Result, error) {
	if _, err := m.mustSucceed(ctx, targetNodeID, nodeconn.CmdBotImport, importPayload{Name: containerName, Filename: filename}); err != nil {
		return nil, fmt.Errorf("import on target: %w", err)
	}
	if _, err := m.mustSucceed(ctx, targetNodeID, nodeconn.CmdBotStart, namePayload{Name: containerName}); err != nil {
		return nil, fmt.Errorf("start on target: %w", err)
	}
	if _, err := m.mustSucceed(ctx, targetNodeID, nodeconn.CmdBotInspect, namePayload{Name: containerName}); err != nil {
		return nil, fmt.Errorf("inspect on target: %w", err)
	}

	// Step 7: reassignTenant. Downtime ends.
	if err := m.conn.ReassignTenant(botID, targetNodeID); err != nil {
		return nil, fmt.Errorf("reassign tenant: %w", err)
	}
	downtimeEnd := time.Now()

	// Step 9: capacity accounting. Best-effort past this point - the
	// tenant is already live on target, so a bookkeeping error here
	// doesn't warrant the source rollback.
	if err := m.conn.AddNodeCapacity(targetNodeID, estimatedMb); err != nil {
		log.WithNodeID(targetNodeID).Error().Err(err).Msg("migration: failed to account target capacity")
	}
	if err := m.conn.AddNodeCapacity(sourceNodeID, -estimatedMb); err != nil {
		log.WithNodeID(sourceNodeID).Error().Err(err).Msg("migration: failed to account source capacity")
	}

	return &Result{
		BotID:             botID,
		SourceNodeID:      sourceNodeID,
		TargetNodeID:      targetNodeID,
		DowntimeStartedAt: downtimeStart,
		DowntimeEndedAt:   downtimeEnd,
	}, nil
}

func (m *Manager) mustSucceed(ctx context.Context, nodeID, cmdType string, payload interface{}) (*nodeconn.CommandResultFrame, error) {
	result, err := m.conn.SendCommand(ctx, nodeID, cmdType, payload)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("node %s command %s failed: %s", nodeID, cmdType, result.Error)
	}
	return result, nil
}

// DrainNode marks a node draining, migrates every resident tenant off it,
// and sets it offline if every migration succeeded. If any tenant could
// not be moved, the node is left draining and a capacity-overflow
// notification is enqueued rather than losing track of the stragglers.
func (m *Manager) DrainNode(ctx context.Context, nodeID string) error {
	node, err := m.store.GetNode(nodeID)
	if err != nil {
		return fmt.Errorf("drain: get node %s: %w", nodeID, err)
	}
	if node == nil {
		return cerr.Validation(fmt.Sprintf("node %s not found", nodeID))
	}
	node.Status = types.NodeStatusDraining
	node.UpdatedAt = time.Now()
	if err := m.store.UpdateNode(node); err != nil {
		return fmt.Errorf("drain: mark node %s draining: %w", nodeID, err)
	}

	all, err := m.store.ListBotInstances()
	if err != nil {
		return fmt.Errorf("drain: list bot instances: %w", err)
	}

	var failures int
	for _, bot := range all {
		if bot.NodeID != nodeID {
			continue
		}
		if _, err := m.MigrateTenant(ctx, bot.ID, "", bot.EstimatedMb); err != nil {
			log.WithNodeID(nodeID).Error().Err(err).Str("bot", bot.ID).Msg("drain: tenant migration failed")
			failures++
		}
	}

	if failures == 0 {
		node, err := m.store.GetNode(nodeID)
		if err != nil {
			return fmt.Errorf("drain: reload node %s: %w", nodeID, err)
		}
		node.Status = types.NodeStatusOffline
		node.UpdatedAt = time.Now()
		return m.store.UpdateNode(node)
	}

	return m.store.EnqueueNotification(&types.Notification{
		Kind:      types.NotifyCapacityOverflow,
		Message:   fmt.Sprintf("drain of node %s left %d tenant(s) unmigrated", nodeID, failures),
		CreatedAt: time.Now(),
	})
}
