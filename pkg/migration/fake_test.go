package migration

import (
	"context"
	"sync"

	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	"github.com/orbitfleet/coordinator/pkg/types"
)

type commandCall struct {
	NodeID  string
	CmdType string
}

// fakeConn is an in-memory NodeConn double. Commands succeed by default;
// individual command types can be made to fail via fail[cmdType].
type fakeConn struct {
	mu sync.Mutex

	calls []commandCall
	fail  map[string]bool

	target  *types.Node
	findErr error

	capacity   map[string]int64
	reassigned map[string]string

	onExport func()
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		fail:       make(map[string]bool),
		capacity:   make(map[string]int64),
		reassigned: make(map[string]string),
	}
}

func (c *fakeConn) SendCommand(ctx context.Context, nodeID, cmdType string, payload interface{}) (*nodeconn.CommandResultFrame, error) {
	c.mu.Lock()
	c.calls = append(c.calls, commandCall{NodeID: nodeID, CmdType: cmdType})
	fail := c.fail[cmdType]
	hook := c.onExport
	c.mu.Unlock()

	if cmdType == nodeconn.CmdBotExport && hook != nil {
		hook()
	}

	if fail {
		return &nodeconn.CommandResultFrame{Success: false, Error: "simulated failure"}, nil
	}
	return &nodeconn.CommandResultFrame{Success: true}, nil
}

func (c *fakeConn) FindBestTarget(excludeNodeID string, estimatedMb int64) (*types.Node, error) {
	return c.target, c.findErr
}

func (c *fakeConn) ReassignTenant(botID, newNodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reassigned[botID] = newNodeID
	return nil
}

func (c *fakeConn) AddNodeCapacity(nodeID string, deltaMb int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity[nodeID] += deltaMb
	return nil
}

func (c *fakeConn) callTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.CmdType
	}
	return out
}

func (c *fakeConn) countOf(nodeID, cmdType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.NodeID == nodeID && call.CmdType == cmdType {
			n++
		}
	}
	return n
}

// fakeMigStore is a minimal in-memory Store double for migration tests.
type fakeMigStore struct {
	mu            sync.Mutex
	nodes         map[string]*types.Node
	bots          map[string]*types.BotInstance
	notifications []*types.Notification
}

func newFakeMigStore() *fakeMigStore {
	return &fakeMigStore{
		nodes: make(map[string]*types.Node),
		bots:  make(map[string]*types.BotInstance),
	}
}

func (s *fakeMigStore) GetBotInstance(id string) (*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *fakeMigStore) GetNode(id string) (*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *fakeMigStore) UpdateNode(node *types.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *node
	s.nodes[node.ID] = &cp
	return nil
}

func (s *fakeMigStore) ListBotInstances() ([]*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.BotInstance, 0, len(s.bots))
	for _, b := range s.bots {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeMigStore) EnqueueNotification(n *types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}
