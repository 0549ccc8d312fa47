package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitfleet/coordinator/pkg/types"
)

func TestCreditAndDebitUpdateBalance(t *testing.T) {
	store := newFakeStore()
	l := NewLedger(store, nil, 0, nil)

	txn, err := l.Credit("tenant-1", 1000, types.TxnPurchase, "top up", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), txn.BalanceAfterCents)

	txn, err = l.Debit("tenant-1", 300, types.TxnUsage, "usage", "")
	require.NoError(t, err)
	assert.Equal(t, int64(700), txn.BalanceAfterCents)

	bal, err := l.Balance("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), bal)
}

func TestCreditWithDuplicateReferenceIsNoOp(t *testing.T) {
	store := newFakeStore()
	l := NewLedger(store, nil, 0, nil)

	first, err := l.Credit("tenant-1", 500, types.TxnPurchase, "stripe webhook", "evt-123")
	require.NoError(t, err)

	second, err := l.Credit("tenant-1", 500, types.TxnPurchase, "stripe webhook replay", "evt-123")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	bal, _ := l.Balance("tenant-1")
	assert.Equal(t, int64(500), bal, "replayed reference must not double-credit")
}

func TestDebitWithDuplicateReferenceIsNoOp(t *testing.T) {
	store := newFakeStore()
	l := NewLedger(store, nil, 0, nil)
	l.Credit("tenant-1", 1000, types.TxnPurchase, "seed", "")

	l.Debit("tenant-1", 200, types.TxnUsage, "meter replay", "meter-1")
	l.Debit("tenant-1", 200, types.TxnUsage, "meter replay", "meter-1")

	bal, _ := l.Balance("tenant-1")
	assert.Equal(t, int64(800), bal)
}

func TestDebitToZeroSuspendsActiveBots(t *testing.T) {
	store := newFakeStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", TenantID: "tenant-1", BillingState: types.BillingStateActive}
	l := NewLedger(store, nil, 0, nil)
	l.Credit("tenant-1", 100, types.TxnPurchase, "seed", "")

	_, err := l.Debit("tenant-1", 100, types.TxnUsage, "usage", "")
	require.NoError(t, err)

	bot, _ := store.GetBotInstance("bot-1")
	assert.Equal(t, types.BillingStateSuspended, bot.BillingState)
	require.NotNil(t, bot.SuspendedAt)
	require.NotNil(t, bot.DestroyAfter)
}

func TestCreditAboveZeroReactivatesSuspendedBots(t *testing.T) {
	store := newFakeStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", TenantID: "tenant-1", BillingState: types.BillingStateSuspended}
	l := NewLedger(store, nil, 0, nil)

	_, err := l.Credit("tenant-1", 500, types.TxnPurchase, "topup", "")
	require.NoError(t, err)

	bot, _ := store.GetBotInstance("bot-1")
	assert.Equal(t, types.BillingStateActive, bot.BillingState)
	assert.Nil(t, bot.SuspendedAt)
	assert.Nil(t, bot.DestroyAfter)
}

func TestDebitThatStaysPositiveDoesNotSuspend(t *testing.T) {
	store := newFakeStore()
	store.bots["bot-1"] = &types.BotInstance{ID: "bot-1", TenantID: "tenant-1", BillingState: types.BillingStateActive}
	l := NewLedger(store, nil, 0, nil)
	l.Credit("tenant-1", 1000, types.TxnPurchase, "seed", "")

	l.Debit("tenant-1", 100, types.TxnUsage, "usage", "")

	bot, _ := store.GetBotInstance("bot-1")
	assert.Equal(t, types.BillingStateActive, bot.BillingState)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	store := newFakeStore()
	l := NewLedger(store, nil, 0, nil)
	_, err := l.Credit("tenant-1", 0, types.TxnPurchase, "bad", "")
	assert.Error(t, err)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	store := newFakeStore()
	l := NewLedger(store, nil, 0, nil)
	_, err := l.Debit("tenant-1", -5, types.TxnUsage, "bad", "")
	assert.Error(t, err)
}
