package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitfleet/coordinator/pkg/types"
)

func TestAutoTopupTriggersOnThresholdCrossAndClearsInFlight(t *testing.T) {
	store := newFakeStore()
	store.customers["tenant-1"] = &types.TenantCustomer{
		TenantID:           "tenant-1",
		AutoTopupEnabled:   true,
		AutoTopupThreshCts: 500,
		AutoTopupAmountCts: 2000,
	}
	proc := &fakeProcessor{}
	l := NewLedger(store, proc, 0, nil)
	l.Credit("tenant-1", 1000, types.TxnPurchase, "seed", "")

	_, err := l.Debit("tenant-1", 600, types.TxnUsage, "usage", "")
	require.NoError(t, err)

	assert.Equal(t, 1, proc.callCount())
	tc, _ := store.GetTenantCustomer("tenant-1")
	assert.False(t, tc.AutoTopupInFlight)
	assert.Equal(t, 0, tc.AutoTopupFailures)
}

func TestAutoTopupDoesNotTriggerAboveThreshold(t *testing.T) {
	store := newFakeStore()
	store.customers["tenant-1"] = &types.TenantCustomer{
		TenantID: "tenant-1", AutoTopupEnabled: true, AutoTopupThreshCts: 100, AutoTopupAmountCts: 500,
	}
	proc := &fakeProcessor{}
	l := NewLedger(store, proc, 0, nil)
	l.Credit("tenant-1", 1000, types.TxnPurchase, "seed", "")

	l.Debit("tenant-1", 50, types.TxnUsage, "usage", "")

	assert.Equal(t, 0, proc.callCount())
}

func TestAutoTopupDisablesAfterMaxConsecutiveFailures(t *testing.T) {
	store := newFakeStore()
	store.customers["tenant-1"] = &types.TenantCustomer{
		TenantID: "tenant-1", AutoTopupEnabled: true, AutoTopupThreshCts: 1000, AutoTopupAmountCts: 500,
	}
	proc := &fakeProcessor{failNext: 99}
	l := NewLedger(store, proc, 2, nil)
	l.Credit("tenant-1", 2000, types.TxnPurchase, "seed", "")

	l.Debit("tenant-1", 500, types.TxnUsage, "usage-1", "")
	tc, _ := store.GetTenantCustomer("tenant-1")
	assert.True(t, tc.AutoTopupEnabled, "one failure should not disable yet")

	l.Debit("tenant-1", 1, types.TxnUsage, "usage-2", "")
	tc, _ = store.GetTenantCustomer("tenant-1")
	assert.False(t, tc.AutoTopupEnabled, "two consecutive failures hits the configured max")

	var disabled bool
	for _, n := range store.notifications {
		if n.Kind == types.NotifyAutoTopupDisabled {
			disabled = true
		}
	}
	assert.True(t, disabled)
}

func TestAutoTopupSkipsWhileAlreadyInFlight(t *testing.T) {
	store := newFakeStore()
	store.customers["tenant-1"] = &types.TenantCustomer{
		TenantID: "tenant-1", AutoTopupEnabled: true, AutoTopupThreshCts: 1000,
		AutoTopupAmountCts: 500, AutoTopupInFlight: true,
	}
	proc := &fakeProcessor{}
	l := NewLedger(store, proc, 0, nil)
	store.balances["tenant-1"] = &types.CreditBalance{TenantID: "tenant-1", BalanceCents: 2000}

	l.Debit("tenant-1", 1500, types.TxnUsage, "usage", "")

	assert.Equal(t, 0, proc.callCount())
}

func TestAutoTopupNoProcessorIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.customers["tenant-1"] = &types.TenantCustomer{
		TenantID: "tenant-1", AutoTopupEnabled: true, AutoTopupThreshCts: 1000, AutoTopupAmountCts: 500,
	}
	l := NewLedger(store, nil, 0, nil)
	l.Credit("tenant-1", 2000, types.TxnPurchase, "seed", "")

	_, err := l.Debit("tenant-1", 1500, types.TxnUsage, "usage", "")
	assert.NoError(t, err)
}
