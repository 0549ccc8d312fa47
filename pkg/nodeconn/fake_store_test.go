package nodeconn

import (
	"sync"

	"github.com/orbitfleet/coordinator/pkg/types"
)

// fakeStore is a minimal in-memory ClusterStore for unit tests.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]*types.Node
	bots  map[string]*types.BotInstance
	events map[string]*types.RecoveryEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:  make(map[string]*types.Node),
		bots:   make(map[string]*types.BotInstance),
		events: make(map[string]*types.RecoveryEvent),
	}
}

func (s *fakeStore) CreateNode(node *types.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *node
	s.nodes[node.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateNode(node *types.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *node
	s.nodes[node.ID] = &cp
	return nil
}

func (s *fakeStore) GetNode(id string) (*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *fakeStore) ListNodes() ([]*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) GetBotInstance(id string) (*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) UpdateBotInstance(bot *types.BotInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *bot
	s.bots[bot.ID] = &cp
	return nil
}

func (s *fakeStore) GetInProgressRecoveryEventForNode(nodeID string) (*types.RecoveryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.NodeID == nodeID && e.Status == types.RecoveryStatusInProgress {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateRecoveryEvent(event *types.RecoveryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events[event.ID] = &cp
	return nil
}
