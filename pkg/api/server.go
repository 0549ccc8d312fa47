package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/orbitfleet/coordinator/pkg/api/proto"
	"github.com/orbitfleet/coordinator/pkg/bulkops"
	"github.com/orbitfleet/coordinator/pkg/manager"
	"github.com/orbitfleet/coordinator/pkg/migration"
	"github.com/orbitfleet/coordinator/pkg/recovery"
	"github.com/orbitfleet/coordinator/pkg/security"
	"github.com/orbitfleet/coordinator/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server implements CoordinatorAdmin: the cluster-admin surface the CLI
// speaks to for node lifecycle, credit ledger operations, and recovery
// visibility. Reads are served from whichever replica receives them;
// writes check ensureLeader and send the caller to the current leader
// otherwise.
type Server struct {
	proto.UnimplementedCoordinatorAdminServer

	manager   *manager.Manager
	migration *migration.Manager
	recovery  *recovery.Manager
	bulk      *bulkops.Manager

	grpc     *grpc.Server
	unixGRPC *grpc.Server
}

// NewServer creates the mTLS-secured admin server. The manager certificate
// must already exist on disk - cluster init and manager join both produce
// one via the CA before this is called.
func NewServer(mgr *manager.Manager, migrationMgr *migration.Manager, recoveryMgr *recovery.Manager, bulkMgr *bulkops.Manager) (*Server, error) {
	certDir, err := security.GetCertDir("manager", mgr.NodeID())
	if err != nil {
		return nil, fmt.Errorf("failed to get cert directory: %w", err)
	}

	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("manager certificate not found at %s - ensure cluster is initialized", certDir)
	}

	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load manager certificate: %w", err)
	}

	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate: %w", err)
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(caCert)

	// RequestClientCert, not RequireAndVerifyClientCert: RequestCertificate
	// itself is called before the caller has a certificate to present.
	tlsConfig := &tls.Config{
		ClientAuth:   tls.RequestClientCert,
		Certificates: []tls.Certificate{*cert},
		ClientCAs:    certPool,
		MinVersion:   tls.VersionTLS13,
	}

	grpcServer := grpc.NewServer(grpc.Creds(credentials.NewTLS(tlsConfig)))

	return &Server{
		manager:   mgr,
		migration: migrationMgr,
		recovery:  recoveryMgr,
		bulk:      bulkMgr,
		grpc:      grpcServer,
	}, nil
}

// ensureLeader returns an error naming the current leader's address for
// every write RPC served by a follower.
func (s *Server) ensureLeader() error {
	if !s.manager.IsLeader() {
		leaderAddr := s.manager.LeaderAddr()
		if leaderAddr == "" {
			return fmt.Errorf("no leader elected yet")
		}
		return fmt.Errorf("not the leader, current leader is at: %s", leaderAddr)
	}
	return nil
}

// GRPCServer exposes the underlying mTLS gRPC server so other services
// (the node-connection fabric's NodeChannel) can register alongside
// CoordinatorAdmin on the same listener, before Start is called.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpc
}

// Start serves the mTLS admin API on addr.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	proto.RegisterCoordinatorAdminServer(s.grpc, s)

	fmt.Printf("admin API listening on %s\n", addr)
	return s.grpc.Serve(lis)
}

// StartUnixSocket serves the same admin API, read-only, over a local Unix
// socket - for a trusted CLI running on the coordinator host that hasn't
// bootstrapped an mTLS client certificate (e.g. before its first
// RequestCertificate call).
func (s *Server) StartUnixSocket(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to clear existing socket: %w", err)
	}

	lis, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("failed to listen on unix socket: %w", err)
	}

	s.unixGRPC = grpc.NewServer(grpc.UnaryInterceptor(ReadOnlyInterceptor()))
	proto.RegisterCoordinatorAdminServer(s.unixGRPC, s)

	fmt.Printf("read-only admin API listening on %s\n", path)
	return s.unixGRPC.Serve(lis)
}

// Stop gracefully stops both listeners.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.unixGRPC != nil {
		s.unixGRPC.GracefulStop()
	}
}

func decode(in *wrapperspb.BytesValue, v interface{}) error {
	return json.Unmarshal(in.GetValue(), v)
}

func encode(v interface{}) (*wrapperspb.BytesValue, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(out), nil
}

func toNodeView(n *types.Node) nodeView {
	return nodeView{
		ID:              n.ID,
		Host:            n.Host,
		CapacityMb:      n.CapacityMb,
		UsedMb:          n.UsedMb,
		FreeMb:          n.FreeMb(),
		Status:          string(n.Status),
		AgentVersion:    n.AgentVersion,
		LastHeartbeatAt: n.LastHeartbeatAt,
		RegisteredAt:    n.RegisteredAt,
	}
}

func toItemResultViews(results []bulkops.ItemResult) []itemResultView {
	views := make([]itemResultView, len(results))
	for i, r := range results {
		v := itemResultView{TenantID: r.TenantID}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		views[i] = v
	}
	return views
}

func toRecoveryStatusResponse(event *types.RecoveryEvent, items []*types.RecoveryItem) recoveryStatusResponse {
	resp := recoveryStatusResponse{
		EventID:     event.ID,
		NodeID:      event.NodeID,
		Trigger:     string(event.Trigger),
		Status:      string(event.Status),
		Total:       event.Total,
		Recovered:   event.Recovered,
		Failed:      event.Failed,
		Waiting:     event.Waiting,
		StartedAt:   event.StartedAt,
		CompletedAt: event.CompletedAt,
		Items:       make([]recoveryItemView, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = recoveryItemView{
			TenantID:   item.TenantID,
			SourceNode: item.SourceNode,
			TargetNode: item.TargetNode,
			BackupKey:  item.BackupKey,
			Status:     string(item.Status),
			Reason:     item.Reason,
		}
	}
	return resp
}

// ListNodes returns every node's fleet-coordination record.
func (s *Server) ListNodes(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	nodes, err := s.manager.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	resp := listNodesResponse{Nodes: make([]nodeView, len(nodes))}
	for i, n := range nodes {
		resp.Nodes[i] = toNodeView(n)
	}
	return encode(resp)
}

// DrainNode migrates every tenant off a node and marks it offline.
func (s *Server) DrainNode(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req drainNodeRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode drain node request: %w", err)
	}
	if req.NodeID == "" {
		return nil, fmt.Errorf("node_id is required")
	}

	if err := s.migration.DrainNode(ctx, req.NodeID); err != nil {
		return nil, fmt.Errorf("failed to drain node: %w", err)
	}

	return encode(drainNodeResponse{Status: "drained"})
}

// GrantCredits performs a bulk, undoable credit grant across a batch of
// tenants.
func (s *Server) GrantCredits(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req grantCreditsRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode grant credits request: %w", err)
	}

	grant, results, err := s.bulk.Grant(req.TenantIDs, req.AmountCents, req.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to grant credits: %w", err)
	}

	return encode(grantCreditsResponse{
		OperationID:  grant.OperationID,
		UndoDeadline: grant.UndoDeadline,
		Results:      toItemResultViews(results),
	})
}

// RevokeGrant reverses a prior GrantCredits call by operation id, within
// its undo deadline.
func (s *Server) RevokeGrant(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req revokeGrantRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode revoke grant request: %w", err)
	}

	grant, err := s.bulk.Undo(req.OperationID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke grant: %w", err)
	}

	return encode(revokeGrantResponse{
		OperationID: grant.OperationID,
		PartialUndo: grant.PartialUndo,
	})
}

// SuspendTenants flips billing state to suspended across a batch of
// tenants, independent of the ledger's own zero-balance transitions.
func (s *Server) SuspendTenants(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req tenantBatchRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode suspend tenants request: %w", err)
	}

	results, err := s.bulk.Suspend(req.TenantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to suspend tenants: %w", err)
	}
	return encode(tenantBatchResponse{Results: toItemResultViews(results)})
}

// ReactivateTenants flips billing state back to active across a batch of
// tenants.
func (s *Server) ReactivateTenants(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req tenantBatchRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode reactivate tenants request: %w", err)
	}

	results, err := s.bulk.Reactivate(req.TenantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to reactivate tenants: %w", err)
	}
	return encode(tenantBatchResponse{Results: toItemResultViews(results)})
}

// RecoveryStatus reports a recovery event (by id, or the in-progress event
// for a node) along with its per-tenant items.
func (s *Server) RecoveryStatus(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req recoveryStatusRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode recovery status request: %w", err)
	}

	var event *types.RecoveryEvent
	var err error
	switch {
	case req.EventID != "":
		event, err = s.manager.GetRecoveryEvent(req.EventID)
	case req.NodeID != "":
		event, err = s.manager.GetInProgressRecoveryEventForNode(req.NodeID)
	default:
		return nil, fmt.Errorf("event_id or node_id is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up recovery event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("no recovery event found")
	}

	items, err := s.manager.ListRecoveryItemsByEvent(event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recovery items: %w", err)
	}

	return encode(toRecoveryStatusResponse(event, items))
}

// TriggerRecovery starts a manual recovery run for a node, for operators
// who don't want to wait out the heartbeat timeout.
func (s *Server) TriggerRecovery(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req triggerRecoveryRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode trigger recovery request: %w", err)
	}
	if req.NodeID == "" {
		return nil, fmt.Errorf("node_id is required")
	}

	event, err := s.recovery.Run(ctx, req.NodeID, types.RecoveryTriggerManual)
	if err != nil {
		return nil, fmt.Errorf("failed to trigger recovery: %w", err)
	}

	items, err := s.manager.ListRecoveryItemsByEvent(event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recovery items: %w", err)
	}

	return encode(toRecoveryStatusResponse(event, items))
}

// ClusterInfo reports Raft leadership and membership.
func (s *Server) ClusterInfo(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	servers, err := s.manager.GetClusterServers()
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster servers: %w", err)
	}

	leaderAddr := s.manager.LeaderAddr()
	leaderID := ""
	views := make([]clusterServerView, len(servers))
	for i, srv := range servers {
		views[i] = clusterServerView{
			ID:       string(srv.ID),
			Address:  string(srv.Address),
			Suffrage: srv.Suffrage.String(),
		}
		if string(srv.Address) == leaderAddr {
			leaderID = string(srv.ID)
		}
	}

	return encode(clusterInfoResponse{
		LeaderID:   leaderID,
		LeaderAddr: leaderAddr,
		Servers:    views,
	})
}

// GenerateJoinToken mints a one-time token for a node or coordinator
// replica to present during its first RegisterNode/JoinCluster call.
func (s *Server) GenerateJoinToken(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req generateJoinTokenRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode generate join token request: %w", err)
	}

	token, err := s.manager.GenerateJoinToken(req.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate join token: %w", err)
	}

	return encode(generateJoinTokenResponse{
		Token:     token.Token,
		Role:      token.Role,
		ExpiresAt: token.ExpiresAt,
	})
}

// JoinCluster is called by a new coordinator replica against the current
// leader: it validates the replica's join token and adds it as a Raft
// voter.
func (s *Server) JoinCluster(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	var req joinClusterRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode join cluster request: %w", err)
	}

	role, err := s.manager.ValidateJoinToken(req.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid join token: %w", err)
	}
	if role != "coordinator" {
		return nil, fmt.Errorf("invalid token role: expected coordinator, got %s", role)
	}

	if err := s.manager.AddVoter(req.NodeID, req.BindAddr); err != nil {
		return nil, fmt.Errorf("failed to add voter: %w", err)
	}

	return encode(joinClusterResponse{
		Status:     "success",
		LeaderAddr: s.manager.LeaderAddr(),
	})
}

// RequestCertificate trades a valid join token for an mTLS client
// certificate.
func (s *Server) RequestCertificate(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req requestCertificateRequest
	if err := decode(in, &req); err != nil {
		return nil, fmt.Errorf("api: decode request certificate request: %w", err)
	}

	role, err := s.manager.ValidateToken(req.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	cert, err := s.manager.IssueCertificate(req.NodeID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue certificate: %w", err)
	}

	certPEM, keyPEM, err := s.manager.CertToPEM(cert)
	if err != nil {
		return nil, fmt.Errorf("failed to convert certificate to PEM: %w", err)
	}

	return encode(requestCertificateResponse{
		Certificate: certPEM,
		PrivateKey:  keyPEM,
		CACert:      s.manager.GetCACertPEM(),
	})
}
