package recovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	"github.com/orbitfleet/coordinator/pkg/types"
)

// defaultEstimatedMb is the conservative placement estimate used when a
// BotInstance doesn't carry one of its own.
const defaultEstimatedMb = 100

// hotBackupKeyFmt is the object-storage key for a tenant's most recent hot
// backup, keyed by container name (the BotInstance id, per the convention
// established in pkg/nodeconn's OrphanCleaner).
const hotBackupKeyFmt = "latest/%s/latest.tar.gz"

// NodeConn is the subset of *nodeconn.Manager Recovery drives commands and
// placement through.
type NodeConn interface {
	SendCommand(ctx context.Context, nodeID, cmdType string, payload interface{}) (*nodeconn.CommandResultFrame, error)
	FindBestTarget(excludeNodeID string, estimatedMb int64) (*types.Node, error)
	ReassignTenant(botID, newNodeID string) error
	AddNodeCapacity(nodeID string, deltaMb int64) error
}

// Store is the subset of the replicated store Recovery reads and mutates.
type Store interface {
	GetNode(id string) (*types.Node, error)
	UpdateNode(node *types.Node) error

	GetBotInstance(id string) (*types.BotInstance, error)
	ListBotInstancesByNode(nodeID string) ([]*types.BotInstance, error)

	CreateRecoveryEvent(event *types.RecoveryEvent) error
	UpdateRecoveryEvent(event *types.RecoveryEvent) error
	GetRecoveryEvent(id string) (*types.RecoveryEvent, error)

	CreateRecoveryItem(item *types.RecoveryItem) error
	UpdateRecoveryItem(item *types.RecoveryItem) error
	ListRecoveryItemsByEvent(eventID string) ([]*types.RecoveryItem, error)

	EnqueueNotification(n *types.Notification) error
}

type namePayload struct {
	Name string `json:"name"`
}

type backupPayload struct {
	Filename string `json:"filename"`
}

type importPayload struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

// Manager orchestrates relocation of every tenant resident on a
// presumed-dead node.
type Manager struct {
	conn  NodeConn
	store Store
}

// NewManager constructs a Recovery Manager over a live NodeConn and Store.
func NewManager(conn NodeConn, store Store) *Manager {
	return &Manager{conn: conn, store: store}
}

// Run starts a recovery episode for nodeID: marks it recovering, relocates
// every resident tenant in tier-priority order, and finalizes the node as
// offline once every tenant has either recovered or been recorded failed
// or waiting.
func (m *Manager) Run(ctx context.Context, nodeID string, trigger types.RecoveryTrigger) (*types.RecoveryEvent, error) {
	node, err := m.store.GetNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("recovery: get node %s: %w", nodeID, err)
	}
	if node == nil {
		return nil, cerr.Validation(fmt.Sprintf("node %s not found", nodeID))
	}

	now := time.Now()
	node.Status = types.NodeStatusRecovering
	node.UpdatedAt = now
	if err := m.store.UpdateNode(node); err != nil {
		return nil, fmt.Errorf("recovery: mark node %s recovering: %w", nodeID, err)
	}

	bots, err := m.store.ListBotInstancesByNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("recovery: list tenants on %s: %w", nodeID, err)
	}
	sort.Slice(bots, func(i, j int) bool {
		if bots[i].ResourceTier.Rank() != bots[j].ResourceTier.Rank() {
			return bots[i].ResourceTier.Rank() < bots[j].ResourceTier.Rank()
		}
		return bots[i].ID < bots[j].ID
	})

	event := &types.RecoveryEvent{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		Trigger:   trigger,
		Status:    types.RecoveryStatusInProgress,
		Total:     len(bots),
		StartedAt: now,
	}
	if err := m.store.CreateRecoveryEvent(event); err != nil {
		return nil, fmt.Errorf("recovery: create event for %s: %w", nodeID, err)
	}

	logger := log.WithNodeID(nodeID)
	for _, bot := range bots {
		item := &types.RecoveryItem{
			ID:              uuid.NewString(),
			RecoveryEventID: event.ID,
			TenantID:        bot.ID,
			SourceNode:      nodeID,
			CreatedAt:       time.Now(),
		}
		m.runItem(ctx, bot, item)
		item.UpdatedAt = time.Now()
		if err := m.store.CreateRecoveryItem(item); err != nil {
			logger.Error().Err(err).Str("bot", bot.ID).Msg("recovery: failed to persist item")
		}

		switch item.Status {
		case types.RecoveryItemRecovered:
			event.Recovered++
		case types.RecoveryItemFailed:
			event.Failed++
		case types.RecoveryItemWaiting:
			event.Waiting++
		}
		logger.Info().Str("bot", bot.ID).Str("status", string(item.Status)).Str("reason", item.Reason).Msg("recovery item processed")
	}

	m.finalize(event)
	if err := m.store.UpdateRecoveryEvent(event); err != nil {
		return nil, fmt.Errorf("recovery: finalize event %s: %w", event.ID, err)
	}

	node.Status = types.NodeStatusOffline
	node.UpdatedAt = time.Now()
	if err := m.store.UpdateNode(node); err != nil {
		return nil, fmt.Errorf("recovery: mark node %s offline: %w", nodeID, err)
	}

	if event.Status == types.RecoveryStatusPartial {
		if err := m.store.EnqueueNotification(&types.Notification{
			Kind:      types.NotifyRecoveryPartial,
			Message:   fmt.Sprintf("recovery of node %s left %d tenant(s) waiting", nodeID, event.Waiting),
			CreatedAt: time.Now(),
		}); err != nil {
			logger.Error().Err(err).Msg("recovery: failed to enqueue partial-recovery notification")
		}
	}

	return event, nil
}

func (m *Manager) finalize(event *types.RecoveryEvent) {
	completedAt := time.Now()
	event.CompletedAt = &completedAt
	if event.Waiting == 0 {
		event.Status = types.RecoveryStatusCompleted
	} else {
		event.Status = types.RecoveryStatusPartial
	}
	event.Report = fmt.Sprintf("total=%d recovered=%d failed=%d waiting=%d", event.Total, event.Recovered, event.Failed, event.Waiting)
}

// runItem runs the per-tenant recovery algorithm, populating item's
// outcome fields. It never returns an error: every failure mode is
// recorded on the item itself so the caller's loop can continue
// unconditionally.
func (m *Manager) runItem(ctx context.Context, bot *types.BotInstance, item *types.RecoveryItem) {
	estimatedMb := bot.EstimatedMb
	if estimatedMb <= 0 {
		estimatedMb = defaultEstimatedMb
	}

	target, err := m.conn.FindBestTarget(item.SourceNode, estimatedMb)
	if err != nil {
		item.Status = types.RecoveryItemFailed
		item.Reason = fmt.Sprintf("find target: %v", err)
		return
	}
	if target == nil {
		item.Status = types.RecoveryItemWaiting
		item.Reason = "no_capacity"
		if err := m.store.EnqueueNotification(&types.Notification{
			Kind:      types.NotifyCapacityOverflow,
			TenantID:  bot.TenantID,
			Message:   fmt.Sprintf("recovery: no placement capacity for bot %s", bot.ID),
			CreatedAt: time.Now(),
		}); err != nil {
			log.WithNodeID(item.SourceNode).Error().Err(err).Msg("recovery: failed to enqueue capacity-overflow notification")
		}
		return
	}
	item.TargetNode = target.ID
	item.BackupKey = fmt.Sprintf(hotBackupKeyFmt, bot.ID)

	if _, err := m.mustSucceed(ctx, target.ID, nodeconn.CmdBackupDownload, backupPayload{Filename: item.BackupKey}); err != nil {
		item.Status = types.RecoveryItemFailed
		item.Reason = fmt.Sprintf("download backup: %v", err)
		return
	}
	if _, err := m.mustSucceed(ctx, target.ID, nodeconn.CmdBotImport, importPayload{Name: bot.ID, Filename: item.BackupKey}); err != nil {
		item.Status = types.RecoveryItemFailed
		item.Reason = fmt.Sprintf("import: %v", err)
		return
	}
	if _, err := m.mustSucceed(ctx, target.ID, nodeconn.CmdBotStart, namePayload{Name: bot.ID}); err != nil {
		item.Status = types.RecoveryItemFailed
		item.Reason = fmt.Sprintf("start: %v", err)
		return
	}
	if _, err := m.mustSucceed(ctx, target.ID, nodeconn.CmdBotInspect, namePayload{Name: bot.ID}); err != nil {
		item.Status = types.RecoveryItemFailed
		item.Reason = fmt.Sprintf("inspect: %v", err)
		return
	}

	if err := m.conn.ReassignTenant(bot.ID, target.ID); err != nil {
		item.Status = types.RecoveryItemFailed
		item.Reason = fmt.Sprintf("reassign tenant: %v", err)
		return
	}
	if err := m.conn.AddNodeCapacity(target.ID, estimatedMb); err != nil {
		log.WithNodeID(target.ID).Error().Err(err).Msg("recovery: failed to account target capacity")
	}

	item.Status = types.RecoveryItemRecovered
	item.Reason = ""
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

// RetryWaiting re-runs every `waiting` item of a recovery event, typically
// called after capacity has been added to the cluster. Items that succeed
// are marked `retried` rather than `recovered`, distinguishing a first-pass
// success from one that needed a second attempt. The event's status is
// re-finalized from the updated counts.
func (m *Manager) RetryWaiting(ctx context.Context, eventID string) (*types.RecoveryEvent, error) {
	event, err := m.store.GetRecoveryEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("recovery: get event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, cerr.Validation(fmt.Sprintf("recovery event %s not found", eventID))
	}

	items, err := m.store.ListRecoveryItemsByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("recovery: list items for %s: %w", eventID, err)
	}

	for _, item := range items {
		if item.Status != types.RecoveryItemWaiting {
			continue
		}
		bot, err := m.store.GetBotInstance(item.TenantID)
		if err != nil {
			return nil, fmt.Errorf("recovery: get bot instance %s: %w", item.TenantID, err)
		}
		if bot == nil {
			item.Status = types.RecoveryItemFailed
			item.Reason = "bot instance no longer exists"
			item.UpdatedAt = time.Now()
			if err := m.store.UpdateRecoveryItem(item); err != nil {
				return nil, fmt.Errorf("recovery: update item %s: %w", item.ID, err)
			}
			event.Waiting--
			event.Failed++
			continue
		}

		m.runItem(ctx, bot, item)
		if item.Status == types.RecoveryItemRecovered {
			item.Status = types.RecoveryItemRetried
		}
		item.UpdatedAt = time.Now()
		if err := m.store.UpdateRecoveryItem(item); err != nil {
			return nil, fmt.Errorf("recovery: update item %s: %w", item.ID, err)
		}

		switch item.Status {
		case types.RecoveryItemRetried:
			event.Waiting--
			event.Recovered++
		case types.RecoveryItemFailed:
			event.Waiting--
			event.Failed++
		case types.RecoveryItemWaiting:
			// still waiting, counts unchanged
		}
	}

	m.finalize(event)
	if err := m.store.UpdateRecoveryEvent(event); err != nil {
		return nil, fmt.Errorf("recovery: update event %s: %w", eventID, err)
	}
	return event, nil
}
