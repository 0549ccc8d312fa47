package bulkops

import (
	"time"

	"github.com/google/uuid"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/types"
)

const (
	maxBulkSize = 500
	undoWindow  = 5 * time.Minute
)

// Ledger is the subset of *pkg/ledger.Ledger bulk grant/undo needs.
type Ledger interface {
	Credit(tenantID string, amountCents int64, txnType types.TransactionType, description, referenceID string) (*types.CreditTransaction, error)
	Debit(tenantID string, amountCents int64, txnType types.TransactionType, description, referenceID string) (*types.CreditTransaction, error)
}

// Billing is the subset of *pkg/ledger.Billing bulk suspend/reactivate
// needs.
type Billing interface {
	SuspendAllForTenant(tenantID, reason string) error
	CheckReactivation(tenantID string) error
}

// Store is the subset of the replicated store this package reads and
// mutates directly, satisfied structurally by *pkg/manager.Manager.
type Store interface {
	CreateUndoableGrant(grant *types.UndoableGrant) error
	UpdateUndoableGrant(grant *types.UndoableGrant) error
	GetUndoableGrant(operationID string) (*types.UndoableGrant, error)

	GetCreditBalance(tenantID string) (*types.CreditBalance, error)
	ListBotInstancesByTenant(tenantID string) ([]*types.BotInstance, error)
}

// ItemResult is one tenant's outcome within a bulk operation.
type ItemResult struct {
	TenantID string
	Err      error
}

// TenantExport is one tenant's exported snapshot.
type TenantExport struct {
	TenantID     string
	BalanceCents int64
	BotInstances []*types.BotInstance
}

// Manager executes bulk admin operations across a batch of tenant ids.
type Manager struct {
	ledger  Ledger
	billing Billing
	store   Store
}

// NewManager constructs a Manager.
func NewManager(ledger Ledger, billing Billing, store Store) *Manager {
	return &Manager{ledger: ledger, billing: billing, store: store}
}

func validateBatch(tenantIDs []string) error {
	if len(tenantIDs) == 0 {
		return cerr.Validation("bulk operation requires at least one tenant id")
	}
	if len(tenantIDs) > maxBulkSize {
		return cerr.Validation("bulk operation exceeds the maximum of 500 tenant ids")
	}
	return nil
}

// Grant credits amountCents to every tenant in tenantIDs, producing an
// UndoableGrant with a 5-minute undo window. Each tenant's credit is
// caught individually; a per-tenant failure is recorded in the returned
// results but does not stop the batch or prevent the grant record itself
// from being created for the tenants that did succeed.
func (m *Manager) Grant(tenantIDs []string, amountCents int64, description string) (*types.UndoableGrant, []ItemResult, error) {
	if err := validateBatch(tenantIDs); err != nil {
		return nil, nil, err
	}
	if amountCents <= 0 {
		return nil, nil, cerr.Validation("grant amount must be positive")
	}

	operationID := uuid.NewString()
	now := time.Now()

	results := make([]ItemResult, 0, len(tenantIDs))
	succeeded := make([]string, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		referenceID := operationID + ":" + tenantID
		_, err := m.ledger.Credit(tenantID, amountCents, types.TxnGrant, description, referenceID)
		if err != nil {
			log.WithTenant(tenantID).Error().Err(err).Str("operation_id", operationID).Msg("bulk grant failed for tenant")
		} else {
			succeeded = append(succeeded, tenantID)
		}
		results = append(results, ItemResult{TenantID: tenantID, Err: err})
	}

	grant := &types.UndoableGrant{
		OperationID:  operationID,
		TenantIDs:    succeeded,
		AmountCents:  amountCents,
		Description:  description,
		CreatedAt:    now,
		UndoDeadline: now.Add(undoWindow),
	}
	if err := m.store.CreateUndoableGrant(grant); err != nil {
		return nil, results, err
	}
	return grant, results, nil
}

// Undo applies a compensating correction transaction, for the grant's
// original amount, to every tenant that received it. If any per-tenant
// correction fails the grant is left not-undone (PartialUndo is set) so a
// retried Undo call can pick up the remaining tenants; already-applied
// corrections are idempotent via their deterministic reference id.
func (m *Manager) Undo(operationID string) (*types.UndoableGrant, error) {
	grant, err := m.store.GetUndoableGrant(operationID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, cerr.Validation("unknown bulk grant operation: " + operationID)
	}
	if grant.Undone {
		return nil, cerr.Forbidden("bulk grant already undone: " + operationID)
	}
	if time.Now().After(grant.UndoDeadline) {
		return nil, cerr.Forbidden("undo window has expired for operation: " + operationID)
	}

	anyFailure := false
	for _, tenantID := range grant.TenantIDs {
		referenceID := operationID + ":undo:" + tenantID
		if _, err := m.ledger.Debit(tenantID, grant.AmountCents, types.TxnCorrection, "bulk grant undo", referenceID); err != nil {
			anyFailure = true
			log.WithTenant(tenantID).Error().Err(err).Str("operation_id", operationID).Msg("bulk grant undo failed for tenant")
		}
	}

	if anyFailure {
		grant.PartialUndo = true
		if err := m.store.UpdateUndoableGrant(grant); err != nil {
			return nil, err
		}
		return grant, cerr.Transient("undo partially failed, retry to complete", nil)
	}

	grant.Undone = true
	grant.PartialUndo = false
	if err := m.store.UpdateUndoableGrant(grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// Suspend suspends every active BotInstance owned by each tenant in
// tenantIDs, catching per-tenant failures individually.
func (m *Manager) Suspend(tenantIDs []string) ([]ItemResult, error) {
	if err := validateBatch(tenantIDs); err != nil {
		return nil, err
	}
	results := make([]ItemResult, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		err := m.billing.SuspendAllForTenant(tenantID, "admin_bulk")
		results = append(results, ItemResult{TenantID: tenantID, Err: err})
	}
	return results, nil
}

// Reactivate reactivates every suspended BotInstance owned by each tenant
// in tenantIDs, regardless of current balance (the explicit-admin path;
// see pkg/ledger.Ledger.Credit for the balance-triggered path).
func (m *Manager) Reactivate(tenantIDs []string) ([]ItemResult, error) {
	if err := validateBatch(tenantIDs); err != nil {
		return nil, err
	}
	results := make([]ItemResult, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		err := m.billing.CheckReactivation(tenantID)
		results = append(results, ItemResult{TenantID: tenantID, Err: err})
	}
	return results, nil
}

// Export returns a point-in-time snapshot (balance plus owned instances)
// for each tenant in tenantIDs, catching per-tenant lookup failures
// individually.
func (m *Manager) Export(tenantIDs []string) ([]TenantExport, []ItemResult, error) {
	if err := validateBatch(tenantIDs); err != nil {
		return nil, nil, err
	}
	exports := make([]TenantExport, 0, len(tenantIDs))
	results := make([]ItemResult, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		balance, err := m.store.GetCreditBalance(tenantID)
		if err != nil {
			results = append(results, ItemResult{TenantID: tenantID, Err: err})
			continue
		}
		bots, err := m.store.ListBotInstancesByTenant(tenantID)
		if err != nil {
			results = append(results, ItemResult{TenantID: tenantID, Err: err})
			continue
		}
		var balanceCents int64
		if balance != nil {
			balanceCents = balance.BalanceCents
		}
		exports = append(exports, TenantExport{TenantID: tenantID, BalanceCents: balanceCents, BotInstances: bots})
		results = append(results, ItemResult{TenantID: tenantID})
	}
	return exports, results, nil
}
