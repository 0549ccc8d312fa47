// Package placement implements the fleet's bin-packing decision: given a
// candidate set of nodes and a memory requirement, choose the node a new or
// migrated BotInstance should land on. It is deliberately a pure function
// package with no background loop and no manager dependency - the Node
// Connection Manager and Migration/Recovery Managers call it synchronously
// against whatever node list they already hold, the way the teacher's own
// scheduler reads "candidate nodes, then pick one" but without the
// 5-second tick or any CPU/GPU/region affinity.
package placement

import "github.com/orbitfleet/coordinator/pkg/types"

// schedulableStatuses are the node states eligible to receive new work.
// returning, draining, and recovering nodes are excluded even with spare
// capacity: placing new work on a node mid-recovery or mid-drain would
// undermine the reason that node isn't serving traffic yet.
var schedulableStatuses = map[types.NodeStatus]bool{
	types.NodeStatusActive: true,
}

// FindPlacement chooses the best node for a workload requiring estimatedMb
// of memory. Returns nil if no node qualifies.
//
// Policy: filter to status=active nodes with FreeMb >= estimatedMb; among
// those, prefer the greatest free capacity, breaking ties by ascending id
// for determinism across replicas and across runs.
func FindPlacement(nodes []*types.Node, estimatedMb int64) *types.Node {
	return FindPlacementExcluding(nodes, nil, estimatedMb)
}

// FindPlacementExcluding is FindPlacement with a set of node ids removed
// from consideration up front - used by the Migration Manager to keep a
// tenant off its current (source) node.
func FindPlacementExcluding(nodes []*types.Node, excluded []string, estimatedMb int64) *types.Node {
	excludeSet := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		excludeSet[id] = true
	}

	var best *types.Node
	for _, node := range nodes {
		if excludeSet[node.ID] {
			continue
		}
		if !schedulableStatuses[node.Status] {
			continue
		}
		if node.FreeMb() < estimatedMb {
			continue
		}
		if best == nil {
			best = node
			continue
		}
		if node.FreeMb() > best.FreeMb() {
			best = node
			continue
		}
		if node.FreeMb() == best.FreeMb() && node.ID < best.ID {
			best = node
		}
	}
	return best
}
