package bulkops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/types"
)

func newTestManager() (*Manager, *fakeLedger, *fakeBilling, *fakeStore) {
	ledger := newFakeLedger()
	billing := newFakeBilling()
	store := newFakeStore()
	return NewManager(ledger, billing, store), ledger, billing, store
}

func TestGrantRejectsOversizedBatch(t *testing.T) {
	mgr, _, _, _ := newTestManager()
	tenantIDs := make([]string, maxBulkSize+1)
	for i := range tenantIDs {
		tenantIDs[i] = "tenant"
	}

	_, _, err := mgr.Grant(tenantIDs, 100, "too many")

	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeValidation))
}

func TestGrantCreditsEveryTenantAndRecordsGrant(t *testing.T) {
	mgr, ledger, _, store := newTestManager()

	grant, results, err := mgr.Grant([]string{"t1", "t2", "t3"}, 500, "promo")

	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, int64(500), ledger.balanceOf("t1"))
	assert.Equal(t, int64(500), ledger.balanceOf("t2"))
	assert.Equal(t, int64(500), ledger.balanceOf("t3"))

	stored, err := store.GetUndoableGrant(grant.OperationID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, stored.TenantIDs)
	assert.False(t, stored.Undone)
	assert.False(t, stored.PartialUndo)
}

func TestGrantIsolatesPerTenantFailure(t *testing.T) {
	mgr, ledger, _, store := newTestManager()
	ledger.failFor["bad"] = true

	grant, results, err := mgr.Grant([]string{"good", "bad"}, 200, "promo")

	require.NoError(t, err)
	require.Len(t, results, 2)
	var badErr, goodErr error
	for _, r := range results {
		if r.TenantID == "bad" {
			badErr = r.Err
		} else {
			goodErr = r.Err
		}
	}
	assert.Error(t, badErr)
	assert.NoError(t, goodErr)

	// Only the successful tenant is part of the persisted grant, so Undo
	// never touches the tenant whose credit never landed.
	stored, err := store.GetUndoableGrant(grant.OperationID)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, stored.TenantIDs)
}

func TestUndoReversesAGrant(t *testing.T) {
	mgr, ledger, _, _ := newTestManager()
	grant, _, err := mgr.Grant([]string{"t1", "t2"}, 300, "promo")
	require.NoError(t, err)

	undone, err := mgr.Undo(grant.OperationID)

	require.NoError(t, err)
	assert.True(t, undone.Undone)
	assert.False(t, undone.PartialUndo)
	assert.Equal(t, int64(0), ledger.balanceOf("t1"))
	assert.Equal(t, int64(0), ledger.balanceOf("t2"))
}

func TestUndoRejectsAfterDeadline(t *testing.T) {
	mgr, _, _, store := newTestManager()
	grant, _, err := mgr.Grant([]string{"t1"}, 100, "promo")
	require.NoError(t, err)

	stored, err := store.GetUndoableGrant(grant.OperationID)
	require.NoError(t, err)
	stored.UndoDeadline = time.Now().Add(-time.Minute)
	require.NoError(t, store.UpdateUndoableGrant(stored))

	_, err = mgr.Undo(grant.OperationID)

	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeForbidden))
}

func TestUndoRejectsAlreadyUndone(t *testing.T) {
	mgr, _, _, _ := newTestManager()
	grant, _, err := mgr.Grant([]string{"t1"}, 100, "promo")
	require.NoError(t, err)

	_, err = mgr.Undo(grant.OperationID)
	require.NoError(t, err)

	_, err = mgr.Undo(grant.OperationID)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeForbidden))
}

func TestUndoUnknownOperationIsValidationError(t *testing.T) {
	mgr, _, _, _ := newTestManager()

	_, err := mgr.Undo("does-not-exist")

	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeValidation))
}

func TestUndoPartialFailureLeavesRetryable(t *testing.T) {
	mgr, ledger, _, store := newTestManager()
	grant, _, err := mgr.Grant([]string{"t1", "t2"}, 400, "promo")
	require.NoError(t, err)

	ledger.failFor["t2"] = true
	_, err = mgr.Undo(grant.OperationID)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeTransient))

	stored, err := store.GetUndoableGrant(grant.OperationID)
	require.NoError(t, err)
	assert.False(t, stored.Undone)
	assert.True(t, stored.PartialUndo)
	// t1's correction already landed; only t2's is still outstanding.
	assert.Equal(t, int64(0), ledger.balanceOf("t1"))
	assert.Equal(t, int64(400), ledger.balanceOf("t2"))

	// Retry: t1's debit is idempotent (same reference id, already applied),
	// t2's now goes through because the simulated failure is cleared.
	ledger.failFor["t2"] = false
	undone, err := mgr.Undo(grant.OperationID)
	require.NoError(t, err)
	assert.True(t, undone.Undone)
	assert.Equal(t, int64(0), ledger.balanceOf("t1"))
	assert.Equal(t, int64(0), ledger.balanceOf("t2"))
}

func TestSuspendAndReactivateCoverAllTenants(t *testing.T) {
	mgr, _, billing, _ := newTestManager()

	results, err := mgr.Suspend([]string{"t1", "t2"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "admin_bulk", billing.suspended["t1"])
	assert.Equal(t, "admin_bulk", billing.suspended["t2"])

	results, err = mgr.Reactivate([]string{"t1", "t2"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.True(t, billing.reactivated["t1"])
	assert.True(t, billing.reactivated["t2"])
}

func TestExportReturnsBalanceAndInstances(t *testing.T) {
	mgr, _, _, store := newTestManager()
	store.balances["t1"] = &types.CreditBalance{TenantID: "t1", BalanceCents: 750}
	store.bots["t1"] = []*types.BotInstance{{ID: "bot-1", TenantID: "t1"}}

	exports, results, err := mgr.Export([]string{"t1", "t2"})

	require.NoError(t, err)
	assert.Len(t, results, 2)
	var t1Export *TenantExport
	for i := range exports {
		if exports[i].TenantID == "t1" {
			t1Export = &exports[i]
		}
	}
	require.NotNil(t, t1Export)
	assert.Equal(t, int64(750), t1Export.BalanceCents)
	assert.Len(t, t1Export.BotInstances, 1)
}

func TestSuspendRejectsEmptyBatch(t *testing.T) {
	mgr, _, _, _ := newTestManager()

	_, err := mgr.Suspend(nil)

	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CodeValidation))
}
