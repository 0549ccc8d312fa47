package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/types"
)

// Store is the subset of the replicated store the ledger reads and
// mutates. Satisfied structurally by *pkg/manager.Manager.
type Store interface {
	GetCreditBalance(tenantID string) (*types.CreditBalance, error)
	AppendCreditTransaction(txn *types.CreditTransaction, newBalance *types.CreditBalance) (*types.CreditTransaction, error)
	GetCreditTransactionByReference(referenceID string) (*types.CreditTransaction, error)
	ListCreditTransactionsByTenant(tenantID string) ([]*types.CreditTransaction, error)

	GetTenantCustomer(tenantID string) (*types.TenantCustomer, error)
	PutTenantCustomer(tc *types.TenantCustomer) error

	ListBotInstancesByTenant(tenantID string) ([]*types.BotInstance, error)
	ListBotInstances() ([]*types.BotInstance, error)
	GetBotInstance(id string) (*types.BotInstance, error)
	UpdateBotInstance(bot *types.BotInstance) error

	EnqueueNotification(n *types.Notification) error
}

// Ledger is the single writer for tenant credit balances. It wraps every
// mutation with the billing-state side effects the spec ties to it:
// a debit that zeroes a tenant's balance suspends its workloads, a credit
// that lifts it above zero reactivates them.
type Ledger struct {
	store   Store
	billing *Billing
	topup   *AutoTopup
	budget  *BudgetChecker
}

// NewLedger constructs a Ledger. processor may be nil, in which case
// auto-topup is a no-op (debits still suspend, just never auto-recharge).
// budget may be nil, in which case debits skip cache invalidation.
func NewLedger(store Store, processor PaymentProcessor, maxAutoTopupFailures int, budget *BudgetChecker) *Ledger {
	if maxAutoTopupFailures <= 0 {
		maxAutoTopupFailures = defaultMaxAutoTopupFailures
	}
	return &Ledger{
		store:   store,
		billing: &Billing{store: store},
		topup:   &AutoTopup{store: store, processor: processor, maxFailures: maxAutoTopupFailures},
		budget:  budget,
	}
}

// Credit appends a positive ledger entry. If referenceID is non-empty and
// already recorded, the pre-existing transaction is returned unchanged
// (idempotency against webhook/metering replay).
func (l *Ledger) Credit(tenantID string, amountCents int64, txnType types.TransactionType, description, referenceID string) (*types.CreditTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amountCents)
	}
	txn, existed, err := l.append(tenantID, amountCents, txnType, description, referenceID)
	if err != nil {
		return nil, err
	}
	if !existed && txn.BalanceAfterCents > 0 {
		if err := l.billing.CheckReactivation(tenantID); err != nil {
			log.WithTenant(tenantID).Error().Err(err).Msg("reactivation sweep failed after credit")
		}
	}
	return txn, nil
}

// Debit appends a negative ledger entry. amountCents is given as a
// positive magnitude; the stored transaction is negative.
func (l *Ledger) Debit(tenantID string, amountCents int64, txnType types.TransactionType, description, referenceID string) (*types.CreditTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amountCents)
	}
	txn, existed, err := l.append(tenantID, -amountCents, txnType, description, referenceID)
	if err != nil {
		return nil, err
	}
	if existed {
		return txn, nil
	}
	if l.budget != nil {
		l.budget.Invalidate(tenantID)
	}
	if txn.BalanceAfterCents <= 0 {
		if err := l.billing.SuspendAllForTenant(tenantID, "zero_balance"); err != nil {
			log.WithTenant(tenantID).Error().Err(err).Msg("suspend sweep failed after debit")
		}
	}
	l.topup.CheckThreshold(tenantID, txn.BalanceAfterCents)
	return txn, nil
}

// append is the shared idempotent-append path for Credit and Debit.
// existed is true when referenceID collided with an already-recorded
// transaction, meaning this call is a no-op.
func (l *Ledger) append(tenantID string, amountCents int64, txnType types.TransactionType, description, referenceID string) (txn *types.CreditTransaction, existed bool, err error) {
	if referenceID != "" {
		if prior, err := l.store.GetCreditTransactionByReference(referenceID); err == nil && prior != nil {
			return prior, true, nil
		}
	}

	balance, err := l.store.GetCreditBalance(tenantID)
	if err != nil {
		return nil, false, fmt.Errorf("get credit balance: %w", err)
	}
	if balance == nil {
		balance = &types.CreditBalance{TenantID: tenantID}
	}

	now := time.Now()
	newBalanceCents := balance.BalanceCents + amountCents

	candidate := &types.CreditTransaction{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		AmountCents:       amountCents,
		BalanceAfterCents: newBalanceCents,
		Type:              txnType,
		Description:       description,
		ReferenceID:       referenceID,
		CreatedAt:         now,
	}
	newBalance := &types.CreditBalance{TenantID: tenantID, BalanceCents: newBalanceCents, UpdatedAt: now}

	recorded, err := l.store.AppendCreditTransaction(candidate, newBalance)
	if err != nil {
		return nil, false, fmt.Errorf("append credit transaction: %w", err)
	}
	return recorded, false, nil
}

// Balance returns a tenant's current materialized balance, zero if the
// tenant has never transacted.
func (l *Ledger) Balance(tenantID string) (int64, error) {
	balance, err := l.store.GetCreditBalance(tenantID)
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return balance.BalanceCents, nil
}

// Billing exposes the Bot Billing state machine this ledger drives, for
// explicit admin suspend/reactivate and the grace-period destroy sweep.
func (l *Ledger) Billing() *Billing { return l.billing }
