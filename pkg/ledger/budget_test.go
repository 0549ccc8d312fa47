package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitfleet/coordinator/pkg/types"
)

func TestCheckAdmissionUnlimitedWhenNoCustomerRecord(t *testing.T) {
	store := newFakeStore()
	bc := NewBudgetChecker(store, nil)
	assert.NoError(t, bc.CheckAdmission("tenant-1"))
}

func TestCheckAdmissionRejectsOverHourlyCap(t *testing.T) {
	store := newFakeStore()
	store.customers["tenant-1"] = &types.TenantCustomer{TenantID: "tenant-1", HourlySpendCapCts: 1000}
	store.txnsByTenant["tenant-1"] = []*types.CreditTransaction{
		{TenantID: "tenant-1", Type: types.TxnUsage, AmountCents: -1200, CreatedAt: time.Now()},
	}
	bc := NewBudgetChecker(store, nil)

	err := bc.CheckAdmission("tenant-1")
	assert.Error(t, err)
}

func TestCheckAdmissionIgnoresTransactionsOutsideWindow(t *testing.T) {
	store := newFakeStore()
	store.customers["tenant-1"] = &types.TenantCustomer{TenantID: "tenant-1", HourlySpendCapCts: 1000}
	store.txnsByTenant["tenant-1"] = []*types.CreditTransaction{
		{TenantID: "tenant-1", Type: types.TxnUsage, AmountCents: -5000, CreatedAt: time.Now().Add(-2 * time.Hour)},
	}
	bc := NewBudgetChecker(store, nil)

	assert.NoError(t, bc.CheckAdmission("tenant-1"))
}

func TestWindowIsCachedUntilInvalidated(t *testing.T) {
	store := newFakeStore()
	store.txnsByTenant["tenant-1"] = []*types.CreditTransaction{
		{TenantID: "tenant-1", Type: types.TxnUsage, AmountCents: -100, CreatedAt: time.Now()},
	}
	bc := NewBudgetChecker(store, nil)

	w1, err := bc.Window("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), w1.HourlySpendCents)

	// Mutate the underlying store directly; the cached value should still
	// be served until invalidated.
	store.txnsByTenant["tenant-1"] = append(store.txnsByTenant["tenant-1"], &types.CreditTransaction{
		TenantID: "tenant-1", Type: types.TxnUsage, AmountCents: -900, CreatedAt: time.Now(),
	})
	w2, err := bc.Window("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), w2.HourlySpendCents, "stale cache should still be served before invalidation")

	bc.Invalidate("tenant-1")
	w3, err := bc.Window("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), w3.HourlySpendCents)
}

func TestLedgerDebitInvalidatesBudgetCache(t *testing.T) {
	store := newFakeStore()
	bc := NewBudgetChecker(store, nil)
	l := NewLedger(store, nil, 0, bc)
	l.Credit("tenant-1", 10000, types.TxnPurchase, "seed", "")

	// Warm the cache with zero spend.
	w, _ := bc.Window("tenant-1")
	assert.Equal(t, int64(0), w.HourlySpendCents)

	l.Debit("tenant-1", 500, types.TxnUsage, "usage", "")

	w, err := bc.Window("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), w.HourlySpendCents, "debit must invalidate the cached window")
}

func TestMemCacheExpiresAfterTTL(t *testing.T) {
	c := NewMemCache()
	c.Set("tenant-1", SpendWindow{HourlySpendCents: 42}, 10*time.Millisecond)

	_, ok := c.Get("tenant-1")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("tenant-1")
	assert.False(t, ok)
}
