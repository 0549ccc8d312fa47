package ledger

import (
	"context"
	"sync"

	"github.com/orbitfleet/coordinator/pkg/types"
)

// fakeStore is a minimal in-memory Store double mirroring the subset of
// pkg/manager.Manager's behavior this package depends on, including its
// referenceID idempotency shortcut.
type fakeStore struct {
	mu         sync.Mutex
	balances   map[string]*types.CreditBalance
	txns       map[string]*types.CreditTransaction // by ID
	byRef      map[string]*types.CreditTransaction
	txnsByTenant map[string][]*types.CreditTransaction
	customers  map[string]*types.TenantCustomer
	bots       map[string]*types.BotInstance
	notifications []*types.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances:     make(map[string]*types.CreditBalance),
		txns:         make(map[string]*types.CreditTransaction),
		byRef:        make(map[string]*types.CreditTransaction),
		txnsByTenant: make(map[string][]*types.CreditTransaction),
		customers:    make(map[string]*types.TenantCustomer),
		bots:         make(map[string]*types.BotInstance),
	}
}

func (s *fakeStore) GetCreditBalance(tenantID string) (*types.CreditBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[tenantID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) AppendCreditTransaction(txn *types.CreditTransaction, newBalance *types.CreditBalance) (*types.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn.ReferenceID != "" {
		if prior, ok := s.byRef[txn.ReferenceID]; ok {
			cp := *prior
			return &cp, nil
		}
	}
	cp := *txn
	s.txns[txn.ID] = &cp
	s.txnsByTenant[txn.TenantID] = append(s.txnsByTenant[txn.TenantID], &cp)
	if txn.ReferenceID != "" {
		s.byRef[txn.ReferenceID] = &cp
	}
	balCp := *newBalance
	s.balances[newBalance.TenantID] = &balCp
	return &cp, nil
}

func (s *fakeStore) GetCreditTransactionByReference(referenceID string) (*types.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byRef[referenceID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) ListCreditTransactionsByTenant(tenantID string) ([]*types.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.CreditTransaction, len(s.txnsByTenant[tenantID]))
	copy(out, s.txnsByTenant[tenantID])
	return out, nil
}

func (s *fakeStore) GetTenantCustomer(tenantID string) (*types.TenantCustomer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.customers[tenantID]
	if !ok {
		return nil, nil
	}
	cp := *tc
	return &cp, nil
}

func (s *fakeStore) PutTenantCustomer(tc *types.TenantCustomer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tc
	s.customers[tc.TenantID] = &cp
	return nil
}

func (s *fakeStore) ListBotInstancesByTenant(tenantID string) ([]*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.BotInstance
	for _, b := range s.bots {
		if b.TenantID == tenantID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListBotInstances() ([]*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.BotInstance, 0, len(s.bots))
	for _, b := range s.bots {
		cp := *b
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

func (s *fakeStore) EnqueueNotification(n *types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

// fakeProcessor is an in-memory PaymentProcessor double. Charges fail
// while failNext > 0, decrementing it on each attempt.
type fakeProcessor struct {
	mu       sync.Mutex
	calls    []int64
	failNext int
}

func (p *fakeProcessor) Charge(ctx context.Context, tenantID string, amountCents int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, amountCents)
	if p.failNext > 0 {
		p.failNext--
		return context.DeadlineExceeded
	}
	return nil
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
