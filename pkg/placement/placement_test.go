package placement

import (
	"testing"

	"github.com/orbitfleet/coordinator/pkg/types"
	"github.com/stretchr/testify/assert"
)

func node(id string, status types.NodeStatus, capacityMb, usedMb int64) *types.Node {
	return &types.Node{ID: id, Status: status, CapacityMb: capacityMb, UsedMb: usedMb}
}

func TestFindPlacement(t *testing.T) {
	tests := []struct {
		name        string
		nodes       []*types.Node
		estimatedMb int64
		wantID      string
	}{
		{
			name: "picks the node with most free capacity",
			nodes: []*types.Node{
				node("node-a", types.NodeStatusActive, 1000, 800), // 200 free
				node("node-b", types.NodeStatusActive, 1000, 200), // 800 free
			},
			estimatedMb: 100,
			wantID:      "node-b",
		},
		{
			name: "ties break on ascending id",
			nodes: []*types.Node{
				node("node-z", types.NodeStatusActive, 1000, 500),
				node("node-a", types.NodeStatusActive, 1000, 500),
			},
			estimatedMb: 100,
			wantID:      "node-a",
		},
		{
			name: "excludes nodes below the memory requirement",
			nodes: []*types.Node{
				node("node-a", types.NodeStatusActive, 1000, 950), // 50 free
				node("node-b", types.NodeStatusActive, 1000, 990), // 10 free
			},
			estimatedMb: 100,
			wantID:      "",
		},
		{
			name: "excludes returning, draining, recovering nodes even with capacity",
			nodes: []*types.Node{
				node("node-a", types.NodeStatusReturning, 1000, 0),
				node("node-b", types.NodeStatusDraining, 1000, 0),
				node("node-c", types.NodeStatusRecovering, 1000, 0),
			},
			estimatedMb: 100,
			wantID:      "",
		},
		{
			name: "excludes unhealthy, offline, failed nodes",
			nodes: []*types.Node{
				node("node-a", types.NodeStatusUnhealthy, 1000, 0),
				node("node-b", types.NodeStatusOffline, 1000, 0),
				node("node-c", types.NodeStatusFailed, 1000, 0),
			},
			estimatedMb: 100,
			wantID:      "",
		},
		{
			name:        "empty node list",
			nodes:       nil,
			estimatedMb: 100,
			wantID:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPlacement(tt.nodes, tt.estimatedMb)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestFindPlacementExcluding(t *testing.T) {
	nodes := []*types.Node{
		node("node-a", types.NodeStatusActive, 1000, 0), // 1000 free, best
		node("node-b", types.NodeStatusActive, 1000, 500),
	}

	got := FindPlacementExcluding(nodes, []string{"node-a"}, 100)
	if assert.NotNil(t, got) {
		assert.Equal(t, "node-b", got.ID)
	}

	got = FindPlacementExcluding(nodes, []string{"node-a", "node-b"}, 100)
	assert.Nil(t, got)
}

func TestFindPlacementExactFit(t *testing.T) {
	nodes := []*types.Node{
		node("node-a", types.NodeStatusActive, 1000, 900), // exactly 100 free
	}
	got := FindPlacement(nodes, 100)
	if assert.NotNil(t, got) {
		assert.Equal(t, "node-a", got.ID)
	}
}
