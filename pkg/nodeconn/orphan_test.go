package nodeconn

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitfleet/coordinator/pkg/types"
)

// autoReplyBus wires a CommandBus's sender straight back into Resolve,
// simulating a node agent that always succeeds (or always fails) every
// command it receives, without a real channel.
func autoReplyBus(success bool) *CommandBus {
	var bus *CommandBus
	var mu sync.Mutex
	bus = NewCommandBus(func(frame *CommandFrame) error {
		go func() {
			mu.Lock()
			defer mu.Unlock()
			bus.Resolve(&CommandResultFrame{ID: frame.ID, Success: success, Command: frame.Type})
		}()
		return nil
	})
	return bus
}

func TestOrphanCleanerStopsUnassignedContainers(t *testing.T) {
	store := newFakeStore()
	store.CreateNode(&types.Node{ID: "node-1", Status: types.NodeStatusReturning})
	store.bots["bot-kept"] = &types.BotInstance{ID: "bot-kept", NodeID: "node-1"}
	store.bots["bot-moved"] = &types.BotInstance{ID: "bot-moved", NodeID: "node-2"}

	cleaner := NewOrphanCleaner(store)
	conn := &connection{nodeID: "node-1", bus: autoReplyBus(true)}

	err := cleaner.Clean(context.Background(), conn, "node-1", []string{"bot-kept", "bot-moved"})
	require.NoError(t, err)

	node, _ := store.GetNode("node-1")
	assert.Equal(t, types.NodeStatusActive, node.Status)
}

func TestOrphanCleanerPartialFailureStaysReturning(t *testing.T) {
	store := newFakeStore()
	store.CreateNode(&types.Node{ID: "node-1", Status: types.NodeStatusReturning})
	store.bots["bot-moved"] = &types.BotInstance{ID: "bot-moved", NodeID: "node-2"}

	cleaner := NewOrphanCleaner(store)
	conn := &connection{nodeID: "node-1", bus: autoReplyBus(false)}

	err := cleaner.Clean(context.Background(), conn, "node-1", []string{"bot-moved"})
	assert.Error(t, err)

	node, _ := store.GetNode("node-1")
	assert.Equal(t, types.NodeStatusReturning, node.Status)
}

func TestOrphanCleanerUnknownBotIsTreatedAsOrphan(t *testing.T) {
	store := newFakeStore()
	store.CreateNode(&types.Node{ID: "node-1", Status: types.NodeStatusReturning})
	// "ghost" has no BotInstance record at all - still an orphan, must be stopped.

	cleaner := NewOrphanCleaner(store)
	conn := &connection{nodeID: "node-1", bus: autoReplyBus(true)}

	require.NoError(t, cleaner.Clean(context.Background(), conn, "node-1", []string{"ghost"}))

	node, _ := store.GetNode("node-1")
	assert.Equal(t, types.NodeStatusActive, node.Status)
}

func TestManagerTriggersOrphanCleanerOnceForReturningEpisode(t *testing.T) {
	store := newFakeStore()
	store.CreateNode(&types.Node{ID: "node-1", Status: types.NodeStatusReturning, CapacityMb: 4096})
	store.bots["bot-moved"] = &types.BotInstance{ID: "bot-moved", NodeID: "node-2"}

	mgr := NewManager(store)

	ch := newPipeChannel()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.HandleChannel(ctx, "node-1", ch) }()

	// The node agent replies success to whatever bot.stop it receives.
	go func() {
		for {
			select {
			case data := <-ch.outbound:
				var cmd CommandFrame
				if json.Unmarshal(data, &cmd) != nil {
					continue
				}
				result := CommandResultFrame{ID: cmd.ID, Type: FrameCommandResult, Command: cmd.Type, Success: true}
				out, _ := json.Marshal(result)
				select {
				case ch.inbound <- out:
				case <-ch.closed:
					return
				}
			case <-ch.closed:
				return
			}
		}
	}()

	ch.pushInbound(HeartbeatFrame{
		Type:       FrameHeartbeat,
		Containers: []HeartbeatContainer{{Name: "bot-moved", MemoryMb: 50}},
	})

	require.Eventually(t, func() bool {
		node, _ := store.GetNode("node-1")
		return node.Status == types.NodeStatusActive
	}, time.Second, 5*time.Millisecond)

	cancel()
	ch.close()
	<-done
}
