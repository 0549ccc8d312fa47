package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	"github.com/orbitfleet/coordinator/pkg/types"
)

func TestMigrateTenantHappyPathOrderingAndAccounting(t *testing.T) {
	store := newFakeMigStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", TenantID: "tenant-1", NodeID: "node-a", EstimatedMb: 100}
	conn := newFakeConn()
	mgr := NewManager(conn, store)

	result, err := mgr.MigrateTenant(context.Background(), "bot-1", "node-b", 100)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "bot-1", result.BotID)
	assert.Equal(t, "node-a", result.SourceNodeID)
	assert.Equal(t, "node-b", result.TargetNodeID)
	assert.True(t, result.Downtime() >= 0)

	wantOrder := []string{
		nodeconn.CmdBotExport,
		nodeconn.CmdBackupUpload,
		nodeconn.CmdBackupDownload,
		nodeconn.CmdBotStop,
		nodeconn.CmdBotImport,
		nodeconn.CmdBotStart,
		nodeconn.CmdBotInspect,
	}
	assert.Equal(t, wantOrder, conn.callTypes())

	assert.Equal(t, "node-b", conn.reassigned["bot-1"])
	assert.Equal(t, int64(100), conn.capacity["node-b"])
	assert.Equal(t, int64(-100), conn.capacity["node-a"])
}

func TestMigrateTenantChoosesTargetViaPlacementWhenOmitted(t *testing.T) {
	store := newFakeMigStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a", EstimatedMb: 50}
	conn := newFakeConn()
	conn.target = &types.Node{ID: "node-c"}
	mgr := NewManager(conn, store)

	result, err := mgr.MigrateTenant(context.Background(), "bot-1", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "node-c", result.TargetNodeID)
}

func TestMigrateTenantNoCapacityReturnsCapacityExhausted(t *testing.T) {
	store := newFakeMigStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a"}
	conn := newFakeConn()
	conn.target = nil
	mgr := NewManager(conn, store)

	_, err := mgr.MigrateTenant(context.Background(), "bot-1", "", 0)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeCapacityExhausted))
}

func TestMigrateTenantTargetEqualsSourceRejected(t *testing.T) {
	store := newFakeMigStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a"}
	conn := newFakeConn()
	mgr := NewManager(conn, store)

	_, err := mgr.MigrateTenant(context.Background(), "bot-1", "node-a", 50)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeInvariantBreach))
}

func TestMigrateTenantUnknownBotIsValidationError(t *testing.T) {
	store := newFakeMigStore()
	conn := newFakeConn()
	mgr := NewManager(conn, store)

	_, err := mgr.MigrateTenant(context.Background(), "ghost", "node-b", 50)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeValidation))
}

func TestMigrateTenantFailureAfterStopRestartsSource(t *testing.T) {
	store := newFakeMigStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a", EstimatedMb: 100}
	conn := newFakeConn()
	conn.fail[nodeconn.CmdBotImport] = true
	mgr := NewManager(conn, store)

	_, err := mgr.MigrateTenant(context.Background(), "bot-1", "node-b", 100)
	require.Error(t, err)

	// bot.start issued once for the initial target start attempt never
	// happens (import failed first); the rollback start is on the source.
	assert.Equal(t, 1, conn.countOf("node-a", nodeconn.CmdBotStart))
	assert.Empty(t, conn.reassigned["bot-1"])
	assert.Zero(t, conn.capacity["node-a"])
	assert.Zero(t, conn.capacity["node-b"])
}

func TestMigrateTenantFailureBeforeStopDoesNotTouchSource(t *testing.T) {
	store := newFakeMigStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a", EstimatedMb: 100}
	conn := newFakeConn()
	conn.fail[nodeconn.CmdBotExport] = true
	mgr := NewManager(conn, store)

	_, err := mgr.MigrateTenant(context.Background(), "bot-1", "node-b", 100)
	require.Error(t, err)

	assert.Equal(t, 0, conn.countOf("node-a", nodeconn.CmdBotStop))
	assert.Equal(t, 0, conn.countOf("node-a", nodeconn.CmdBotStart))
}

func TestMigrateTenantConcurrentOfSameBotIsRejected(t *testing.T) {
	store := newFakeMigStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a", EstimatedMb: 100}
	conn := newFakeConn()

	started := make(chan struct{})
	release := make(chan struct{})
	conn.onExport = func() {
		close(started)
		<-release
	}
	mgr := NewManager(conn, store)

	done := make(chan error, 1)
	go func() {
		_, err := mgr.MigrateTenant(context.Background(), "bot-1", "node-b", 100)
		done <- err
	}()

	<-started
	_, err := mgr.MigrateTenant(context.Background(), "bot-1", "node-c", 100)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeForbidden))

	close(release)
	require.NoError(t, <-done)
}

func TestDrainNodeAllSucceedSetsOffline(t *testing.T) {
	store := newFakeMigStore()
	store.nodes["node-a"] = &types.Node{ID: "node-a", Status: types.NodeStatusActive}
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a", EstimatedMb: 50}
	store.bots["bot-2"] = &types.BotInstance{ID: "bot-2", NodeID: "node-a", EstimatedMb: 50}
	conn := newFakeConn()
	conn.target = &types.Node{ID: "node-b"}
	mgr := NewManager(conn, store)

	require.NoError(t, mgr.DrainNode(context.Background(), "node-a"))

	node, _ := store.GetNode("node-a")
	assert.Equal(t, types.NodeStatusOffline, node.Status)
	assert.Empty(t, store.notifications)
}

func TestDrainNodeFailureLeavesDrainingAndNotifies(t *testing.T) {
	store := newFakeMigStore()
	store.nodes["node-a"] = &types.Node{ID: "node-a", Status: types.NodeStatusActive}
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", NodeID: "node-a", EstimatedMb: 50}
	conn := newFakeConn()
	conn.target = &types.Node{ID: "node-b"}
	conn.fail[nodeconn.CmdBotExport] = true
	mgr := NewManager(conn, store)

	require.NoError(t, mgr.DrainNode(context.Background(), "node-a"))

	node, _ := store.GetNode("node-a")
	assert.Equal(t, types.NodeStatusDraining, node.Status)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, types.NotifyCapacityOverflow, store.notifications[0].Kind)
}

func TestDrainNodeUnknownNodeIsValidationError(t *testing.T) {
	store := newFakeMigStore()
	conn := newFakeConn()
	mgr := NewManager(conn, store)

	err := mgr.DrainNode(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeValidation))
}
