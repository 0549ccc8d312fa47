package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_nodes_total",
			Help: "Total number of nodes by status",
		},
		[]string{"status"},
	)

	NodeCapacityMb = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_node_capacity_mb",
			Help: "Node memory capacity in MB",
		},
		[]string{"node_id"},
	)

	NodeUsedMb = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_node_used_mb",
			Help: "Node memory used in MB, as reported by the most recent heartbeat",
		},
		[]string{"node_id"},
	)

	BotInstancesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_bot_instances_total",
			Help: "Total number of bot instances by billing state",
		},
		[]string{"billing_state"},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Node connection / command bus metrics
	CommandsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_commands_sent_total",
			Help: "Total number of commands sent to node agents by command type",
		},
		[]string{"command"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_command_duration_seconds",
			Help:    "Round-trip duration of a node command in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	CommandTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_command_timeouts_total",
			Help: "Total number of commands that timed out awaiting a result",
		},
		[]string{"command"},
	)

	HeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_heartbeats_total",
			Help: "Total number of heartbeat frames processed",
		},
	)

	// Placement metrics
	PlacementLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_placement_latency_seconds",
			Help:    "Time taken to select a placement target in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlacementFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_placement_failures_total",
			Help: "Total number of placement attempts with no eligible target",
		},
	)

	// Migration metrics
	MigrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_migration_duration_seconds",
			Help:    "Total wall-clock duration of a tenant migration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	MigrationDowntimeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_migration_downtime_seconds",
			Help:    "Downtime window (stop-on-source to reassign) of a tenant migration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	MigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_migrations_total",
			Help: "Total number of migrations by outcome",
		},
		[]string{"outcome"},
	)

	// Recovery metrics
	RecoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_recovery_duration_seconds",
			Help:    "Total wall-clock duration of a recovery event in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	RecoveryItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_recovery_items_total",
			Help: "Total number of recovery items by outcome",
		},
		[]string{"status"},
	)

	RecoveryEventsInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_recovery_events_in_progress",
			Help: "Number of recovery events currently in progress",
		},
	)

	// Ledger / billing metrics
	LedgerBalanceCents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_ledger_balance_cents",
			Help: "Materialized credit balance in cents by tenant",
		},
		[]string{"tenant_id"},
	)

	LedgerTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_ledger_transactions_total",
			Help: "Total number of ledger transactions by type",
		},
		[]string{"type"},
	)

	LedgerIdempotentHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_ledger_idempotent_hits_total",
			Help: "Total number of credit/debit calls short-circuited by a duplicate reference id",
		},
	)

	BotSuspensionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_bot_suspensions_total",
			Help: "Total number of bot instances transitioned to suspended",
		},
	)

	BotReactivationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_bot_reactivations_total",
			Help: "Total number of bot instances transitioned back to active",
		},
	)

	BotDestructionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_bot_destructions_total",
			Help: "Total number of bot instances destroyed by the grace-period sweeper",
		},
	)

	// Bulk operation metrics
	BulkOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_bulk_operations_total",
			Help: "Total number of bulk admin operations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	BulkOperationItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_bulk_operation_items_total",
			Help: "Total number of per-tenant items processed inside bulk operations",
		},
		[]string{"kind", "outcome"},
	)

	// Sweeper metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)
)

func init() {
	prometheus.MustRegister(
		NodesTotal,
		NodeCapacityMb,
		NodeUsedMb,
		BotInstancesTotal,
		RaftLeader,
		RaftPeers,
		RaftApplyDuration,
		CommandsSentTotal,
		CommandDuration,
		CommandTimeoutsTotal,
		HeartbeatsTotal,
		PlacementLatency,
		PlacementFailuresTotal,
		MigrationDuration,
		MigrationDowntimeSeconds,
		MigrationsTotal,
		RecoveryDuration,
		RecoveryItemsTotal,
		RecoveryEventsInProgress,
		LedgerBalanceCents,
		LedgerTransactionsTotal,
		LedgerIdempotentHitsTotal,
		BotSuspensionsTotal,
		BotReactivationsTotal,
		BotDestructionsTotal,
		BulkOperationsTotal,
		BulkOperationItemsTotal,
		ReconciliationDuration,
		ReconciliationCyclesTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
