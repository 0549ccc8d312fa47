package bulkops

import (
	"sync"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/types"
)

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	byRef    map[string]*types.CreditTransaction
	failFor  map[string]bool // tenantID -> fail every Credit/Debit call
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[string]int64),
		byRef:    make(map[string]*types.CreditTransaction),
		failFor:  make(map[string]bool),
	}
}

func (l *fakeLedger) Credit(tenantID string, amountCents int64, txnType types.TransactionType, description, referenceID string) (*types.CreditTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byRef[referenceID]; ok {
		return existing, nil
	}
	if l.failFor[tenantID] {
		return nil, cerr.Transient("simulated credit failure", nil)
	}
	l.balances[tenantID] += amountCents
	txn := &types.CreditTransaction{ID: referenceID, TenantID: tenantID, AmountCents: amountCents, Type: txnType, Description: description, ReferenceID: referenceID}
	l.byRef[referenceID] = txn
	return txn, nil
}

func (l *fakeLedger) Debit(tenantID string, amountCents int64, txnType types.TransactionType, description, referenceID string) (*types.CreditTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byRef[referenceID]; ok {
		return existing, nil
	}
	if l.failFor[tenantID] {
		return nil, cerr.Transient("simulated debit failure", nil)
	}
	l.balances[tenantID] -= amountCents
	txn := &types.CreditTransaction{ID: referenceID, TenantID: tenantID, AmountCents: -amountCents, Type: txnType, Description: description, ReferenceID: referenceID}
	l.byRef[referenceID] = txn
	return txn, nil
}

func (l *fakeLedger) balanceOf(tenantID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[tenantID]
}

type fakeBilling struct {
	mu          sync.Mutex
	suspended   map[string]string // tenantID -> reason
	reactivated map[string]bool
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{suspended: make(map[string]string), reactivated: make(map[string]bool)}
}

func (b *fakeBilling) SuspendAllForTenant(tenantID, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.suspended[tenantID] = reason
	return nil
}

func (b *fakeBilling) CheckReactivation(tenantID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reactivated[tenantID] = true
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	grants   map[string]*types.UndoableGrant
	balances map[string]*types.CreditBalance
	bots     map[string][]*types.BotInstance
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		grants:   make(map[string]*types.UndoableGrant),
		balances: make(map[string]*types.CreditBalance),
		bots:     make(map[string][]*types.BotInstance),
	}
}

func (s *fakeStore) CreateUndoableGrant(grant *types.UndoableGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *grant
	s.grants[grant.OperationID] = &cp
	return nil
}

func (s *fakeStore) UpdateUndoableGrant(grant *types.UndoableGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *grant
	s.grants[grant.OperationID] = &cp
	return nil
}

func (s *fakeStore) GetUndoableGrant(operationID string) (*types.UndoableGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[operationID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (s *fakeStore) GetCreditBalance(tenantID string) (*types.CreditBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[tenantID]
	if !ok {
		return &types.CreditBalance{TenantID: tenantID, BalanceCents: 0}, nil
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) ListBotInstancesByTenant(tenantID string) ([]*types.BotInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bots[tenantID], nil
}
