package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/orbitfleet/coordinator/pkg/api/proto"
)

// fakeAdminClient lets pkg/client's request/response marshaling be tested
// without a live gRPC server or mTLS certificates.
type fakeAdminClient struct {
	proto.CoordinatorAdminClient
	handlers map[string]func(json.RawMessage) (interface{}, error)
	lastReq  map[string]json.RawMessage
}

func newFakeAdminClient() *fakeAdminClient {
	return &fakeAdminClient{
		handlers: make(map[string]func(json.RawMessage) (interface{}, error)),
		lastReq:  make(map[string]json.RawMessage),
	}
}

func (f *fakeAdminClient) invoke(name string, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	f.lastReq[name] = in.GetValue()
	h, ok := f.handlers[name]
	if !ok {
		return wrapperspb.Bytes([]byte("{}")), nil
	}
	resp, err := h(in.GetValue())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(body), nil
}

func (f *fakeAdminClient) ListNodes(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return f.invoke("ListNodes", in)
}

func (f *fakeAdminClient) DrainNode(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return f.invoke("DrainNode", in)
}

func (f *fakeAdminClient) GrantCredits(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return f.invoke("GrantCredits", in)
}

func (f *fakeAdminClient) SuspendTenants(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return f.invoke("SuspendTenants", in)
}

func (f *fakeAdminClient) ReactivateTenants(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return f.invoke("ReactivateTenants", in)
}

func newTestClient(fake *fakeAdminClient) *Client {
	return &Client{client: fake}
}

func TestListNodesDecodesResponse(t *testing.T) {
	fake := newFakeAdminClient()
	fake.handlers["ListNodes"] = func(json.RawMessage) (interface{}, error) {
		return struct {
			Nodes []Node `json:"nodes"`
		}{Nodes: []Node{{ID: "node-1", Status: "active", CapacityMb: 1024}}}, nil
	}
	c := newTestClient(fake)

	nodes, err := c.ListNodes()

	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "node-1", nodes[0].ID)
	assert.Equal(t, int64(1024), nodes[0].CapacityMb)
}

func TestDrainNodeSendsNodeID(t *testing.T) {
	fake := newFakeAdminClient()
	c := newTestClient(fake)

	require.NoError(t, c.DrainNode("node-7"))

	var req struct {
		NodeID string `json:"node_id"`
	}
	require.NoError(t, json.Unmarshal(fake.lastReq["DrainNode"], &req))
	assert.Equal(t, "node-7", req.NodeID)
}

func TestGrantCreditsRoundTrip(t *testing.T) {
	deadline := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	fake := newFakeAdminClient()
	fake.handlers["GrantCredits"] = func(raw json.RawMessage) (interface{}, error) {
		var req struct {
			TenantIDs   []string `json:"tenant_ids"`
			AmountCents int64    `json:"amount_cents"`
			Description string   `json:"description"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		assert.Equal(t, []string{"t1", "t2"}, req.TenantIDs)
		assert.Equal(t, int64(500), req.AmountCents)

		return struct {
			OperationID  string       `json:"operation_id"`
			UndoDeadline time.Time    `json:"undo_deadline"`
			Results      []ItemResult `json:"results"`
		}{
			OperationID:  "op-1",
			UndoDeadline: deadline,
			Results: []ItemResult{
				{TenantID: "t1"},
				{TenantID: "t2", Error: "insufficient funds"},
			},
		}, nil
	}
	c := newTestClient(fake)

	opID, undoDeadline, results, err := c.GrantCredits([]string{"t1", "t2"}, 500, "promo")

	require.NoError(t, err)
	assert.Equal(t, "op-1", opID)
	assert.True(t, deadline.Equal(undoDeadline))
	require.Len(t, results, 2)
	assert.Equal(t, "insufficient funds", results[1].Error)
}

func TestSuspendAndReactivateTenantsShareBatchEncoding(t *testing.T) {
	fake := newFakeAdminClient()
	fake.handlers["SuspendTenants"] = func(raw json.RawMessage) (interface{}, error) {
		var req struct {
			TenantIDs []string `json:"tenant_ids"`
		}
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, []string{"t1"}, req.TenantIDs)
		return struct {
			Results []ItemResult `json:"results"`
		}{Results: []ItemResult{{TenantID: "t1"}}}, nil
	}
	fake.handlers["ReactivateTenants"] = fake.handlers["SuspendTenants"]
	c := newTestClient(fake)

	suspended, err := c.SuspendTenants([]string{"t1"})
	require.NoError(t, err)
	assert.Len(t, suspended, 1)

	reactivated, err := c.ReactivateTenants([]string{"t1"})
	require.NoError(t, err)
	assert.Len(t, reactivated, 1)
}
