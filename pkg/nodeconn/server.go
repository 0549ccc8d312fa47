package nodeconn

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/nodeconn/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// registerNodeRequest is the JSON body of the one-shot RegisterNode RPC
// (spec §6). Node authentication is handled below gRPC, by the mTLS
// handshake already required to reach this service at all - the node's
// client certificate (issued via the existing join-token/CA flow) is what
// proves identity, so no separate bearer-secret field travels in the
// frame.
type registerNodeRequest struct {
	NodeID       string `json:"node_id"`
	Host         string `json:"host"`
	CapacityMb   int64  `json:"capacity_mb"`
	AgentVersion string `json:"agent_version"`
}

type registerNodeResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// Server adapts Manager to the generated gRPC service, translating the
// wrapperspb.BytesValue/JSON wire format at the edge so Manager itself
// never touches protobuf or gRPC types.
type Server struct {
	proto.UnimplementedNodeChannelServer
	manager *Manager
}

// NewServer wraps manager as a proto.NodeChannelServer.
func NewServer(manager *Manager) *Server {
	return &Server{manager: manager}
}

// RegisterNode decodes the registration frame and applies it through the
// Manager's registration state-transition rules.
func (s *Server) RegisterNode(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req registerNodeRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, fmt.Errorf("nodeconn: decode registration frame: %w", err)
	}

	resp := registerNodeResponse{Accepted: true}
	if err := s.manager.RegisterNode(req.NodeID, req.Host, req.CapacityMb, req.AgentVersion); err != nil {
		resp.Accepted = false
		resp.Error = err.Error()
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(out), nil
}

// Channel binds the incoming gRPC stream to Manager.HandleChannel. The
// node id is taken from the stream's first frame context via metadata in
// a full deployment; here it is read from the initial heartbeat-less
// handshake frame the node agent sends immediately after RegisterNode
// completes, keeping the stream itself free of out-of-band headers.
func (s *Server) Channel(stream proto.NodeChannel_ChannelServer) error {
	first, err := stream.Recv()
	if err != nil {
		return err
	}

	var handshake struct {
		NodeID string `json:"node_id"`
	}
	if err := json.Unmarshal(first.GetValue(), &handshake); err != nil || handshake.NodeID == "" {
		return fmt.Errorf("nodeconn: channel handshake missing node_id")
	}

	log.WithNodeID(handshake.NodeID).Info().Msg("channel established")
	ch := newGRPCChannel(stream)
	return s.manager.HandleChannel(stream.Context(), handshake.NodeID, ch)
}
