package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/types"
)

const defaultMaxAutoTopupFailures = 3

// PaymentProcessor is the external charge collaborator auto-topup calls
// out to. Out of scope: this tree never implements a concrete processor,
// only the interface and the state machine around it.
type PaymentProcessor interface {
	Charge(ctx context.Context, tenantID string, amountCents int64) error
}

// NoopProcessor is a PaymentProcessor that always fails, for deployments
// that have not wired a real processor yet. Auto-topup's failure-count
// circuit breaker (see maxAutoTopupFailures) still applies, so a tenant
// configured for auto-topup without a real processor suspends the same
// way a processor outage would.
type NoopProcessor struct{}

// Charge always fails; no external processor is configured.
func (NoopProcessor) Charge(ctx context.Context, tenantID string, amountCents int64) error {
	return fmt.Errorf("no payment processor configured")
}

// AutoTopup implements the per-tenant auto-recharge state machine: a debit
// that drops a tenant under its configured threshold triggers a charge
// attempt, guarded by an in-flight flag so a second debit arriving before
// the first charge resolves never double-charges.
type AutoTopup struct {
	store       Store
	processor   PaymentProcessor
	maxFailures int
}

// CheckThreshold is called after every debit with the tenant's resulting
// balance. It is a no-op unless auto-topup is enabled, no charge is
// already in flight, and the new balance is under the configured
// threshold.
func (a *AutoTopup) CheckThreshold(tenantID string, balanceAfterCents int64) {
	if a.processor == nil {
		return
	}
	tc, err := a.store.GetTenantCustomer(tenantID)
	if err != nil || tc == nil {
		return
	}
	if !tc.AutoTopupEnabled || tc.AutoTopupInFlight {
		return
	}
	if balanceAfterCents >= tc.AutoTopupThreshCts {
		return
	}

	tc.AutoTopupInFlight = true
	tc.UpdatedAt = time.Now()
	if err := a.store.PutTenantCustomer(tc); err != nil {
		log.WithTenant(tenantID).Error().Err(err).Msg("failed to mark auto-topup in-flight")
		return
	}

	a.charge(tenantID, tc)
}

func (a *AutoTopup) charge(tenantID string, tc *types.TenantCustomer) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := a.processor.Charge(ctx, tenantID, tc.AutoTopupAmountCts)

	tc.AutoTopupInFlight = false
	tc.UpdatedAt = time.Now()

	if err != nil {
		tc.AutoTopupFailures++
		log.WithTenant(tenantID).Warn().Err(err).Int("failures", tc.AutoTopupFailures).Msg("auto-topup charge failed")
		if tc.AutoTopupFailures >= a.maxFailures {
			tc.AutoTopupEnabled = false
			if notifyErr := a.store.EnqueueNotification(&types.Notification{
				TenantID:  tenantID,
				Kind:      types.NotifyAutoTopupDisabled,
				Message:   "auto-topup disabled after consecutive charge failures",
				CreatedAt: time.Now(),
			}); notifyErr != nil {
				log.WithTenant(tenantID).Error().Err(notifyErr).Msg("failed to enqueue auto-topup-disabled notification")
			}
		}
		if err := a.store.PutTenantCustomer(tc); err != nil {
			log.WithTenant(tenantID).Error().Err(err).Msg("failed to persist auto-topup failure state")
		}
		return
	}

	tc.AutoTopupFailures = 0
	if err := a.store.PutTenantCustomer(tc); err != nil {
		log.WithTenant(tenantID).Error().Err(err).Msg("failed to persist auto-topup success state")
	}
}
