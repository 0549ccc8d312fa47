package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitfleet/coordinator/pkg/types"
)

type fakeStore struct {
	mu            sync.Mutex
	nodes         map[string]*types.Node
	notifications map[string]*types.Notification
	snapshots     map[string]*types.Snapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:         make(map[string]*types.Node),
		notifications: make(map[string]*types.Notification),
		snapshots:     make(map[string]*types.Snapshot),
	}
}

func (s *fakeStore) ListNodes() ([]*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) GetNode(id string) (*types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *fakeStore) UpdateNode(node *types.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *node
	s.nodes[node.ID] = &cp
	return nil
}

func (s *fakeStore) ListUndeliveredNotifications() ([]*types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Notification
	for _, n := range s.notifications {
		if n.DeliveredAt == nil {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateNotification(n *types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *fakeStore) ListSnapshots() ([]*types.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Snapshot, 0, len(s.snapshots))
	for _, sn := range s.snapshots {
		cp := *sn
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) UpdateSnapshot(snap *types.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.snapshots[snap.ID] = &cp
	return nil
}

func (s *fakeStore) DeleteSnapshot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
	return nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (o *fakeObjectStore) Upload(localPath, remoteKey string) error { return nil }
func (o *fakeObjectStore) Download(remoteKey, localPath string) error { return nil }

func (o *fakeObjectStore) Remove(remoteKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.removed = append(o.removed, remoteKey)
	return nil
}

type fakeRecoveryRunner struct {
	mu    sync.Mutex
	calls []string
	block chan struct{} // if non-nil, Run blocks until this is closed
	err   error
}

func (f *fakeRecoveryRunner) Run(ctx context.Context, nodeID string, trigger types.RecoveryTrigger) (*types.RecoveryEvent, error) {
	f.mu.Lock()
	f.calls = append(f.calls, nodeID)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &types.RecoveryEvent{ID: "evt-1", NodeID: nodeID, Trigger: trigger}, nil
}

func (f *fakeRecoveryRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []*types.Notification
	fail      bool
}

func (n *fakeNotifier) Deliver(note *types.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return assert.AnError
	}
	n.delivered = append(n.delivered, note)
	return nil
}

type fakeBilling struct {
	destroyedCount int
	err            error
	calls          int
}

func (b *fakeBilling) DestroyExpiredBots() (int, error) {
	b.calls++
	if b.err != nil {
		return 0, b.err
	}
	return b.destroyedCount, nil
}

func TestReconcileNodesSoftThresholdMarksUnhealthy(t *testing.T) {
	store := newFakeStore()
	store.nodes["node-1"] = &types.Node{
		ID:              "node-1",
		Status:          types.NodeStatusActive,
		LastHeartbeatAt: time.Now().Add(-(SoftHeartbeatThreshold + time.Second)),
	}
	recovery := &fakeRecoveryRunner{}
	r := NewReconciler(store, nil, recovery, nil, nil)

	r.Reconcile(context.Background())

	node, _ := store.GetNode("node-1")
	assert.Equal(t, types.NodeStatusUnhealthy, node.Status)
	assert.Equal(t, 0, recovery.callCount())
}

func TestReconcileNodesBelowSoftThresholdStaysActive(t *testing.T) {
	store := newFakeStore()
	store.nodes["node-1"] = &types.Node{
		ID:              "node-1",
		Status:          types.NodeStatusActive,
		LastHeartbeatAt: time.Now(),
	}
	recovery := &fakeRecoveryRunner{}
	r := NewReconciler(store, nil, recovery, nil, nil)

	r.Reconcile(context.Background())

	node, _ := store.GetNode("node-1")
	assert.Equal(t, types.NodeStatusActive, node.Status)
}

func TestReconcileNodesHardThresholdDispatchesRecovery(t *testing.T) {
	store := newFakeStore()
	store.nodes["node-1"] = &types.Node{
		ID:              "node-1",
		Status:          types.NodeStatusUnhealthy,
		LastHeartbeatAt: time.Now().Add(-(HardHeartbeatThreshold + time.Second)),
	}
	recovery := &fakeRecoveryRunner{}
	r := NewReconciler(store, nil, recovery, nil, nil)

	r.Reconcile(context.Background())

	require.Eventually(t, func() bool { return recovery.callCount() == 1 }, time.Second, time.Millisecond)
}

func TestReconcileNodesDoesNotDoubleDispatchWhileRecoveryInFlight(t *testing.T) {
	store := newFakeStore()
	store.nodes["node-1"] = &types.Node{
		ID:              "node-1",
		Status:          types.NodeStatusUnhealthy,
		LastHeartbeatAt: time.Now().Add(-(HardHeartbeatThreshold + time.Second)),
	}
	block := make(chan struct{})
	recovery := &fakeRecoveryRunner{block: block}
	r := NewReconciler(store, nil, recovery, nil, nil)

	r.Reconcile(context.Background())
	require.Eventually(t, func() bool { return recovery.callCount() == 1 }, time.Second, time.Millisecond)

	// Second cycle while the first recovery is still in flight must not dispatch again.
	r.Reconcile(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, recovery.callCount())

	close(block)
}

func TestDeliverNotificationsMarksDelivered(t *testing.T) {
	store := newFakeStore()
	store.notifications["n1"] = &types.Notification{ID: "n1", Kind: types.NotifyCapacityOverflow, Message: "no room"}
	notifier := &fakeNotifier{}
	r := NewReconciler(store, nil, &fakeRecoveryRunner{}, nil, notifier)

	r.Reconcile(context.Background())

	stored := store.notifications["n1"]
	require.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, 1, stored.Attempts)
	assert.Len(t, notifier.delivered, 1)
}

func TestDeliverNotificationsLeavesUndeliveredOnFailure(t *testing.T) {
	store := newFakeStore()
	store.notifications["n1"] = &types.Notification{ID: "n1", Kind: types.NotifyRecoveryPartial, Message: "partial"}
	notifier := &fakeNotifier{fail: true}
	r := NewReconciler(store, nil, &fakeRecoveryRunner{}, nil, notifier)

	r.Reconcile(context.Background())

	stored := store.notifications["n1"]
	assert.Nil(t, stored.DeliveredAt)
	assert.Equal(t, 1, stored.Attempts)
}

func TestReapSnapshotsSoftDeletesOnlyExpired(t *testing.T) {
	store := newFakeStore()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	store.snapshots["expired"] = &types.Snapshot{ID: "expired", ExpiresAt: &past}
	store.snapshots["fresh"] = &types.Snapshot{ID: "fresh", ExpiresAt: &future}
	store.snapshots["no-expiry"] = &types.Snapshot{ID: "no-expiry"}

	r := NewReconciler(store, nil, &fakeRecoveryRunner{}, nil, nil)
	r.Reconcile(context.Background())

	snaps, _ := store.ListSnapshots()
	byID := make(map[string]*types.Snapshot)
	for _, s := range snaps {
		byID[s.ID] = s
	}
	require.Contains(t, byID, "expired")
	assert.NotNil(t, byID["expired"].DeletedAt)
	assert.Nil(t, byID["fresh"].DeletedAt)
	assert.Nil(t, byID["no-expiry"].DeletedAt)
}

func TestReapSnapshotsLeavesRecentlySoftDeletedAlone(t *testing.T) {
	store := newFakeStore()
	recentlyDeleted := time.Now().Add(-time.Minute)
	store.snapshots["recent"] = &types.Snapshot{ID: "recent", RemoteKey: "nightly/recent.tar.gz", DeletedAt: &recentlyDeleted}
	objects := &fakeObjectStore{}

	r := NewReconciler(store, objects, &fakeRecoveryRunner{}, nil, nil)
	r.Reconcile(context.Background())

	_, ok := store.snapshots["recent"]
	assert.True(t, ok)
	assert.Empty(t, objects.removed)
}

func TestReapSnapshotsHardDeletesPastRetentionGraceAndRemovesBlob(t *testing.T) {
	store := newFakeStore()
	longDeleted := time.Now().Add(-(SnapshotRetentionGrace + time.Minute))
	store.snapshots["old"] = &types.Snapshot{ID: "old", RemoteKey: "nightly/old.tar.gz", DeletedAt: &longDeleted}
	objects := &fakeObjectStore{}

	r := NewReconciler(store, objects, &fakeRecoveryRunner{}, nil, nil)
	r.Reconcile(context.Background())

	_, ok := store.snapshots["old"]
	assert.False(t, ok)
	assert.Equal(t, []string{"nightly/old.tar.gz"}, objects.removed)
}

func TestReapSnapshotsKeepsRowWhenBlobRemovalFails(t *testing.T) {
	store := newFakeStore()
	longDeleted := time.Now().Add(-(SnapshotRetentionGrace + time.Minute))
	store.snapshots["old"] = &types.Snapshot{ID: "old", RemoteKey: "nightly/old.tar.gz", DeletedAt: &longDeleted}
	objects := &fakeObjectStore{err: assert.AnError}

	r := NewReconciler(store, objects, &fakeRecoveryRunner{}, nil, nil)
	r.Reconcile(context.Background())

	_, ok := store.snapshots["old"]
	assert.True(t, ok, "row must survive a failed blob removal so the sweep retries next cycle")
}

func TestReapSnapshotsHardDeletesWithoutObjectStoreConfigured(t *testing.T) {
	store := newFakeStore()
	longDeleted := time.Now().Add(-(SnapshotRetentionGrace + time.Minute))
	store.snapshots["old"] = &types.Snapshot{ID: "old", DeletedAt: &longDeleted}

	r := NewReconciler(store, nil, &fakeRecoveryRunner{}, nil, nil)
	r.Reconcile(context.Background())

	_, ok := store.snapshots["old"]
	assert.False(t, ok)
}

func TestReconcileRunsBillingDestroySweepWhenConfigured(t *testing.T) {
	store := newFakeStore()
	billing := &fakeBilling{destroyedCount: 2}
	r := NewReconciler(store, nil, &fakeRecoveryRunner{}, billing, nil)

	r.Reconcile(context.Background())

	assert.Equal(t, 1, billing.calls)
}

func TestReconcileSkipsBillingSweepWhenNil(t *testing.T) {
	store := newFakeStore()
	r := NewReconciler(store, nil, &fakeRecoveryRunner{}, nil, nil)

	assert.NotPanics(t, func() { r.Reconcile(context.Background()) })
}
