package ledger

import (
	"time"

	"github.com/orbitfleet/coordinator/pkg/cerr"
	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/types"
)

// graceDays is how long a suspended BotInstance survives before
// destroyExpiredBots reclaims it.
const graceDays = 30 * 24 * time.Hour

// Billing implements the per-BotInstance billing state machine
// (active -> suspended -> destroyed) and the two sweeps that drive
// transitions in bulk: checkReactivation (tenant-wide, credit-triggered)
// and destroyExpiredBots (cluster-wide, grace-period sweep).
type Billing struct {
	store Store
}

// SuspendAllForTenant suspends every currently active BotInstance owned by
// tenantID, setting its grace-period deadline. Used both by the automatic
// zero-balance path and can be reused for a deliberate mass suspension;
// reason is recorded only in logs, not persisted.
func (b *Billing) SuspendAllForTenant(tenantID, reason string) error {
	bots, err := b.store.ListBotInstancesByTenant(tenantID)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, bot := range bots {
		if bot.BillingState != types.BillingStateActive {
			continue
		}
		bot.BillingState = types.BillingStateSuspended
		bot.SuspendedAt = &now
		destroyAfter := now.Add(graceDays)
		bot.DestroyAfter = &destroyAfter
		bot.UpdatedAt = now
		if err := b.store.UpdateBotInstance(bot); err != nil {
			log.WithBotInstance(bot.ID).Error().Err(err).Str("reason", reason).Msg("failed to suspend bot instance")
		}
	}
	return nil
}

// CheckReactivation reactivates every suspended BotInstance owned by
// tenantID. Called on every credit arrival for that tenant.
func (b *Billing) CheckReactivation(tenantID string) error {
	bots, err := b.store.ListBotInstancesByTenant(tenantID)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, bot := range bots {
		if bot.BillingState != types.BillingStateSuspended {
			continue
		}
		bot.BillingState = types.BillingStateActive
		bot.SuspendedAt = nil
		bot.DestroyAfter = nil
		bot.UpdatedAt = now
		if err := b.store.UpdateBotInstance(bot); err != nil {
			log.WithBotInstance(bot.ID).Error().Err(err).Msg("failed to reactivate bot instance")
		}
	}
	return nil
}

// AdminSuspend suspends a single BotInstance on explicit admin request,
// regardless of balance.
func (b *Billing) AdminSuspend(botID string) error {
	return b.transition(botID, types.BillingStateActive, func(bot *types.BotInstance, now time.Time) {
		bot.BillingState = types.BillingStateSuspended
		bot.SuspendedAt = &now
		destroyAfter := now.Add(graceDays)
		bot.DestroyAfter = &destroyAfter
	})
}

// AdminReactivate reactivates a single suspended BotInstance on explicit
// admin request, regardless of balance.
func (b *Billing) AdminReactivate(botID string) error {
	return b.transition(botID, types.BillingStateSuspended, func(bot *types.BotInstance, now time.Time) {
		bot.BillingState = types.BillingStateActive
		bot.SuspendedAt = nil
		bot.DestroyAfter = nil
	})
}

func (b *Billing) transition(botID string, requireState types.BillingState, mutate func(*types.BotInstance, time.Time)) error {
	bot, err := b.store.GetBotInstance(botID)
	if err != nil {
		return err
	}
	if bot == nil {
		return cerr.Validation("bot instance not found: " + botID)
	}
	if bot.BillingState != requireState {
		return cerr.Forbidden("bot instance " + botID + " is not in state " + string(requireState))
	}
	mutate(bot, time.Now())
	bot.UpdatedAt = time.Now()
	return b.store.UpdateBotInstance(bot)
}

// DestroyExpiredBots is an idempotent, cluster-wide sweep: every suspended
// BotInstance whose DestroyAfter has passed becomes destroyed (terminal).
// Returns the count destroyed.
func (b *Billing) DestroyExpiredBots() (int, error) {
	bots, err := b.store.ListBotInstances()
	if err != nil {
		return 0, err
	}
	now := time.Now()
	destroyed := 0
	for _, bot := range bots {
		if bot.BillingState != types.BillingStateSuspended {
			continue
		}
		if bot.DestroyAfter == nil || now.Before(*bot.DestroyAfter) {
			continue
		}
		bot.BillingState = types.BillingStateDestroyed
		bot.UpdatedAt = now
		if err := b.store.UpdateBotInstance(bot); err != nil {
			log.WithBotInstance(bot.ID).Error().Err(err).Msg("failed to destroy expired bot instance")
			continue
		}
		destroyed++
	}
	return destroyed, nil
}
