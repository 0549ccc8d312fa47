package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/metrics"
	"github.com/orbitfleet/coordinator/pkg/objectstore"
	"github.com/orbitfleet/coordinator/pkg/types"
)

// Soft and hard heartbeat-overdue thresholds for the node status state
// machine (spec §4.6). Soft moves active -> unhealthy; hard, reached
// while still unhealthy, dispatches a recovery episode.
const (
	SoftHeartbeatThreshold = 15 * time.Second
	HardHeartbeatThreshold = 45 * time.Second

	reconcileInterval = 10 * time.Second

	// SnapshotRetentionGrace is how long a soft-deleted snapshot row is
	// kept (DeletedAt set, blob untouched) before the row is removed and
	// its backing blob is reclaimed from object storage. The grace
	// window gives an operator a window to notice and undo an accidental
	// early expiry before the blob is gone for good.
	SnapshotRetentionGrace = 24 * time.Hour
)

// Store is the subset of the replicated store the reconciler reads and
// mutates directly.
type Store interface {
	ListNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error

	ListUndeliveredNotifications() ([]*types.Notification, error)
	UpdateNotification(n *types.Notification) error

	ListSnapshots() ([]*types.Snapshot, error)
	UpdateSnapshot(snap *types.Snapshot) error
	DeleteSnapshot(id string) error
}

// RecoveryRunner is the subset of *recovery.Manager the reconciler
// dispatches heartbeat-timeout recoveries through.
type RecoveryRunner interface {
	Run(ctx context.Context, nodeID string, trigger types.RecoveryTrigger) (*types.RecoveryEvent, error)
}

// BillingSweeper is the subset of *ledger.Billing the reconciler drives
// for the grace-period destroy sweep.
type BillingSweeper interface {
	DestroyExpiredBots() (int, error)
}

// Notifier delivers a queued Notification to its out-of-scope external
// channel (email, webhook, in-app feed). The default Notifier only logs.
type Notifier interface {
	Deliver(n *types.Notification) error
}

// LogNotifier is the zero-value-safe default Notifier: it logs and
// reports success, since there is no real delivery channel in this tree.
type LogNotifier struct{}

// Deliver logs the notification and always succeeds.
func (LogNotifier) Deliver(n *types.Notification) error {
	log.WithTenant(n.TenantID).Info().Str("kind", string(n.Kind)).Msg(n.Message)
	return nil
}

// Reconciler runs the background sweeps that keep node status current
// with heartbeat reality and keep queued side effects (notifications,
// snapshot expiry) from accumulating unbounded.
type Reconciler struct {
	store    Store
	objects  objectstore.Store
	recovery RecoveryRunner
	billing  BillingSweeper
	notifier Notifier
	logger   zerolog.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	inFlight map[string]struct{} // nodeIDs with a dispatched-but-not-yet-started recovery
}

// NewReconciler constructs a Reconciler. notifier may be nil, in which
// case LogNotifier is used. billing may be nil, in which case the
// grace-period destroy sweep is skipped. objects may be nil, in which
// case soft-deleted snapshots accumulate rows but are never hard-deleted
// (the blob has nowhere safe to be reclaimed from).
func NewReconciler(store Store, objects objectstore.Store, recovery RecoveryRunner, billing BillingSweeper, notifier Notifier) *Reconciler {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Reconciler{
		store:    store,
		objects:  objects,
		recovery: recovery,
		billing:  billing,
		notifier: notifier,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
		inFlight: make(map[string]struct{}),
	}
}

// Start begins the reconciliation loop in its own goroutine.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciliation loop.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	r.logger.Info().Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			r.Reconcile(context.Background())
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

// Reconcile performs one reconciliation cycle. Exported so tests and
// manual admin triggers can run a cycle without waiting on the ticker.
func (r *Reconciler) Reconcile(ctx context.Context) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	if err := r.reconcileNodes(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to reconcile nodes")
	}
	if err := r.deliverNotifications(); err != nil {
		r.logger.Error().Err(err).Msg("failed to deliver notifications")
	}
	if err := r.reapSnapshots(); err != nil {
		r.logger.Error().Err(err).Msg("failed to reap expired snapshots")
	}
	r.destroyExpiredBots()
}

func (r *Reconciler) destroyExpiredBots() {
	if r.billing == nil {
		return
	}
	n, err := r.billing.DestroyExpiredBots()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to run grace-period destroy sweep")
		return
	}
	if n > 0 {
		r.logger.Info().Int("count", n).Msg("destroyed expired bot instances")
	}
}

// reconcileNodes walks every node's heartbeat age and advances it through
// the soft/hard thresholds of the state machine.
func (r *Reconciler) reconcileNodes(ctx context.Context) error {
	nodes, err := r.store.ListNodes()
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}

	now := time.Now()
	for _, node := range nodes {
		age := now.Sub(node.LastHeartbeatAt)

		switch node.Status {
		case types.NodeStatusActive:
			if age > SoftHeartbeatThreshold {
				node.Status = types.NodeStatusUnhealthy
				node.UpdatedAt = now
				r.logger.Warn().Str("node_id", node.ID).Dur("age", age).Msg("node heartbeat overdue, marking unhealthy")
				if err := r.store.UpdateNode(node); err != nil {
					r.logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to mark node unhealthy")
				}
			}
		case types.NodeStatusUnhealthy:
			if age > HardHeartbeatThreshold {
				r.dispatchRecovery(ctx, node.ID)
			}
		}
	}
	return nil
}

// dispatchRecovery starts a recovery episode for nodeID in its own
// goroutine, guarded so a node is never dispatched twice while its
// first dispatch is still in flight (recovery.Manager.Run moves the
// node off `unhealthy` almost immediately, but not instantaneously).
func (r *Reconciler) dispatchRecovery(ctx context.Context, nodeID string) {
	r.mu.Lock()
	if _, ok := r.inFlight[nodeID]; ok {
		r.mu.Unlock()
		return
	}
	r.inFlight[nodeID] = struct{}{}
	r.mu.Unlock()

	r.logger.Warn().Str("node_id", nodeID).Msg("heartbeat hard threshold exceeded, starting recovery")
	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.inFlight, nodeID)
			r.mu.Unlock()
		}()
		if _, err := r.recovery.Run(ctx, nodeID, types.RecoveryTriggerHeartbeatTimeout); err != nil {
			r.logger.Error().Err(err).Str("node_id", nodeID).Msg("recovery dispatch failed")
		}
	}()
}

func (r *Reconciler) deliverNotifications() error {
	pending, err := r.store.ListUndeliveredNotifications()
	if err != nil {
		return fmt.Errorf("list undelivered notifications: %w", err)
	}
	for _, n := range pending {
		n.Attempts++
		if err := r.notifier.Deliver(n); err != nil {
			r.logger.Error().Err(err).Str("notification_id", n.ID).Int("attempts", n.Attempts).Msg("notification delivery failed")
		} else {
			now := time.Now()
			n.DeliveredAt = &now
		}
		if err := r.store.UpdateNotification(n); err != nil {
			r.logger.Error().Err(err).Str("notification_id", n.ID).Msg("failed to persist notification delivery state")
		}
	}
	return nil
}

// reapSnapshots runs the two-phase snapshot retention sweep: rows past
// ExpiresAt are soft-deleted first, and only rows already soft-deleted for
// longer than SnapshotRetentionGrace are hard-deleted, removing the backing
// blob from object storage before the row itself is dropped.
func (r *Reconciler) reapSnapshots() error {
	snaps, err := r.store.ListSnapshots()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	now := time.Now()
	for _, s := range snaps {
		switch {
		case s.DeletedAt == nil:
			if s.ExpiresAt == nil || s.ExpiresAt.After(now) {
				continue
			}
			s.DeletedAt = &now
			if err := r.store.UpdateSnapshot(s); err != nil {
				r.logger.Error().Err(err).Str("snapshot_id", s.ID).Msg("failed to soft-delete expired snapshot")
			}
		case now.Sub(*s.DeletedAt) >= SnapshotRetentionGrace:
			if s.RemoteKey != "" {
				if r.objects == nil {
					r.logger.Warn().Str("snapshot_id", s.ID).Msg("snapshot past retention grace has a blob but no object store is configured, leaving row in place")
					continue
				}
				if err := r.objects.Remove(s.RemoteKey); err != nil {
					r.logger.Error().Err(err).Str("snapshot_id", s.ID).Str("remote_key", s.RemoteKey).Msg("failed to remove snapshot blob from object storage")
					continue
				}
			}
			if err := r.store.DeleteSnapshot(s.ID); err != nil {
				r.logger.Error().Err(err).Str("snapshot_id", s.ID).Msg("failed to hard-delete snapshot row past retention grace")
			}
		}
	}
	return nil
}
