package ledger

import (
	"time"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/types"
)

const defaultCacheTTL = time.Second

// BudgetChecker enforces per-tenant rolling spend caps ahead of chargeable
// operations. Sums are cached briefly since recomputing them from the full
// transaction history on every check would make admission control as slow
// as the ledger itself.
type BudgetChecker struct {
	store Store
	cache Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewBudgetChecker constructs a BudgetChecker. cache may be nil, in which
// case an in-process memCache is used.
func NewBudgetChecker(store Store, cache Cache) *BudgetChecker {
	if cache == nil {
		cache = NewMemCache()
	}
	return &BudgetChecker{store: store, cache: cache, ttl: defaultCacheTTL, now: time.Now}
}

// CheckAdmission compares tenantID's rolling hourly and monthly spend
// against its configured caps (a zero cap means unlimited) and returns a
// cerr.Forbidden if either is exceeded.
func (c *BudgetChecker) CheckAdmission(tenantID string) error {
	tc, err := c.store.GetTenantCustomer(tenantID)
	if err != nil {
		return err
	}
	if tc == nil || (tc.HourlySpendCapCts == 0 && tc.MonthlySpendCapCts == 0) {
		return nil
	}

	window, err := c.Window(tenantID)
	if err != nil {
		return err
	}
	if tc.HourlySpendCapCts > 0 && window.HourlySpendCents >= tc.HourlySpendCapCts {
		return cerr.Forbidden("tenant " + tenantID + " exceeded hourly spend cap")
	}
	if tc.MonthlySpendCapCts > 0 && window.MonthlySpendCents >= tc.MonthlySpendCapCts {
		return cerr.Forbidden("tenant " + tenantID + " exceeded monthly spend cap")
	}
	return nil
}

// Window returns tenantID's rolling hourly/monthly spend, from cache when
// fresh, recomputed from the transaction log otherwise.
func (c *BudgetChecker) Window(tenantID string) (SpendWindow, error) {
	if cached, ok := c.cache.Get(tenantID); ok {
		return cached, nil
	}

	txns, err := c.store.ListCreditTransactionsByTenant(tenantID)
	if err != nil {
		return SpendWindow{}, err
	}

	now := c.now()
	hourAgo := now.Add(-time.Hour)
	monthAgo := now.AddDate(0, -1, 0)

	var window SpendWindow
	window.ComputedAt = now
	for _, txn := range txns {
		if txn.Type != types.TxnUsage || txn.AmountCents >= 0 {
			continue
		}
		spend := -txn.AmountCents
		if txn.CreatedAt.After(monthAgo) {
			window.MonthlySpendCents += spend
		}
		if txn.CreatedAt.After(hourAgo) {
			window.HourlySpendCents += spend
		}
	}

	c.cache.Set(tenantID, window, c.ttl)
	return window, nil
}

// Invalidate drops tenantID's cached window, called by Ledger.Debit so a
// cap check immediately following a spend observes it.
func (c *BudgetChecker) Invalidate(tenantID string) {
	c.cache.Delete(tenantID)
}
