package recovery

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

	// targets is consumed in order by successive FindBestTarget calls;
	// when exhausted, the last entry (possibly nil) repeats.
	targets   []*types.Node
	targetIdx int
	findErr   error

	capacity   map[string]int64
	reassigned map[string]string
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
	defer c.mu.Unlock()
	c.calls = append(c.calls, commandCall{NodeID: nodeID, CmdType: cmdType})
	if c.fail[cmdType] {
		return &nodeconn.CommandResultFrame{Success: false, Error: "simulated failure"}, nil
	}
	return &nodeconn.CommandResultFrame{Success: true}, nil
}

func (c *fakeConn) FindBestTarget(excludeNodeID string, estimatedMb int64) (*types.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.findErr != nil {
		return nil, c.findErr
	}
	if len(c.targets) == 0 {
		return nil, nil
	}
	idx := c.targetIdx
	if idx >= len(c.targets) {
		idx = len(c.targets) - 1
	}
	c.targetIdx++
	return c.targets[idx], nil
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

// fakeRecStore is a minimal in-memory Store double for recovery tests.
type fakeRecStore struct {
	mu            sync.Mutex
	nodes         map[string]*types.Node
	bots          map[string]*types.BotInstance
	events        map[string]*types.RecoveryEvent
	items         map[string][]*types.RecoveryItem
	notifications []*types.Notification
}

func newFakeRecStore() *fakeRecStore {
	return &fakeRecStore{
		nodes:  make(map[string]*types.Node),
		bots:   make(map[string]*types.BotInstance),
		events: make(map[string]*types.RecoveryEvent),
		items:  make(map[string][]*types.RecoveryItem),
	}
}

func (s *fakeRecStore) GetNode(id string) (*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *fakeRecStore) UpdateNode(node *types.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *node
	s.nodes[node.ID] = &cp
	return nil
}

func (s *fakeRecStore) GetBotInstance(id string) (*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *fakeRecStore) ListBotInstancesByNode(nodeID string) ([]*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.BotInstance
	for _, b := range s.bots {
		if b.NodeID == nodeID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeRecStore) CreateRecoveryEvent(event *types.RecoveryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *fakeRecStore) UpdateRecoveryEvent(event *types.RecoveryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *fakeRecStore) GetRecoveryEvent(id string) (*types.RecoveryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *fakeRecStore) CreateRecoveryItem(item *types.RecoveryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.items[item.RecoveryEventID] = append(s.items[item.RecoveryEventID], &cp)
	return nil
}

func (s *fakeRecStore) UpdateRecoveryItem(item *types.RecoveryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items[item.RecoveryEventID] {
		if existing.ID == item.ID {
			*existing = *item
			return nil
		}
	}
	return nil
}

func (s *fakeRecStore) ListRecoveryItemsByEvent(eventID string) ([]*types.RecoveryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.RecoveryItem, 0, len(s.items[eventID]))
	for _, it := range s.items[eventID] {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeRecStore) EnqueueNotification(n *types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}
