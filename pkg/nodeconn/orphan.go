package nodeconn

import (
	"context"
	"fmt"

	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/types"
)

// OrphanCleaner implements spec §4.3: on the first heartbeat after a node
// transitions to returning, any container the node auto-restarted for a
// tenant the Recovery Manager already moved elsewhere is an orphan and
// must be stopped before the node is allowed back into rotation.
type OrphanCleaner struct {
	store ClusterStore
}

// NewOrphanCleaner constructs a cleaner bound to store. bot.stop commands
// are issued through whichever connection's CommandBus is passed to
// Clean, not through a field on OrphanCleaner itself.
func NewOrphanCleaner(store ClusterStore) *OrphanCleaner {
	return &OrphanCleaner{store: store}
}

// botStopPayload is the argument object for a bot.stop command.
type botStopPayload struct {
	Name string `json:"name"`
}

// Clean decodes each reported container name to a BotInstance id (the
// node agent names a container after its BotInstance id), keeps it if
// that BotInstance is still assigned to nodeID, and otherwise issues
// bot.stop and records the stop as an orphan. On full success it
// transitions the node from returning to active; on partial failure the
// node remains returning and the next heartbeat will not retrigger
// (guarded by the caller's per-connection orphanTriggered flag).
func (c *OrphanCleaner) Clean(ctx context.Context, conn *connection, nodeID string, containerNames []string) error {
	var failures int

	for _, name := range containerNames {
		bot, err := c.store.GetBotInstance(name)
		if err != nil {
			log.WithNodeID(nodeID).Error().Err(err).Str("container", name).Msg("orphan check: lookup failed")
			failures++
			continue
		}
		if bot != nil && bot.NodeID == nodeID {
			continue // still assigned here, not an orphan
		}

		log.WithNodeID(nodeID).Warn().Str("container", name).Msg("stopping orphaned container")
		result, err := conn.bus.Send(ctx, CmdBotStop, botStopPayload{Name: name}, DefaultCommandTimeout)
		if err != nil || !result.Success {
			log.WithNodeID(nodeID).Error().Str("container", name).Msg("failed to stop orphaned container")
			failures++
			continue
		}
	}

	if failures > 0 {
		return fmt.Errorf("orphan cleanup left %d container(s) unresolved on node %s", failures, nodeID)
	}

	node, err := c.store.GetNode(nodeID)
	if err != nil {
		return fmt.Errorf("orphan cleanup: get node %s: %w", nodeID, err)
	}
	if node == nil || node.Status != types.NodeStatusReturning {
		return nil
	}
	node.Status = types.NodeStatusActive
	return c.store.UpdateNode(node)
}
