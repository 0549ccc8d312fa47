// Package client is the Go client for the coordinator's cluster-admin
// surface: the gRPC service the CLI (and pkg/manager's own Join call)
// speak to for node lifecycle, credit ledger operations, and recovery
// visibility.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/orbitfleet/coordinator/pkg/api/proto"
	"github.com/orbitfleet/coordinator/pkg/security"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const rpcTimeout = 10 * time.Second

// Node is the wire shape of a fleet node returned by ListNodes.
type Node struct {
	ID              string    `json:"id"`
	Host            string    `json:"host"`
	CapacityMb      int64     `json:"capacity_mb"`
	UsedMb          int64     `json:"used_mb"`
	FreeMb          int64     `json:"free_mb"`
	Status          string    `json:"status"`
	AgentVersion    string    `json:"agent_version"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// ItemResult is one tenant's outcome within a bulk operation.
type ItemResult struct {
	TenantID string `json:"tenant_id"`
	Error    string `json:"error,omitempty"`
}

// RecoveryItem is one tenant's outcome within a RecoveryStatus response.
type RecoveryItem struct {
	TenantID   string `json:"tenant_id"`
	SourceNode string `json:"source_node"`
	TargetNode string `json:"target_node,omitempty"`
	BackupKey  string `json:"backup_key,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// RecoveryStatus reports a node recovery run and its per-tenant items.
type RecoveryStatus struct {
	EventID     string         `json:"event_id"`
	NodeID      string         `json:"node_id"`
	Trigger     string         `json:"trigger"`
	Status      string         `json:"status"`
	Total       int            `json:"total"`
	Recovered   int            `json:"recovered"`
	Failed      int            `json:"failed"`
	Waiting     int            `json:"waiting"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Items       []RecoveryItem `json:"items"`
}

// ClusterServer is one Raft voter in ClusterInfo's response.
type ClusterServer struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Suffrage string `json:"suffrage"`
}

// ClusterInfo reports Raft leadership and membership.
type ClusterInfo struct {
	LeaderID   string          `json:"leader_id"`
	LeaderAddr string          `json:"leader_addr"`
	Servers    []ClusterServer `json:"servers"`
}

// Client wraps the CoordinatorAdmin gRPC client for CLI usage.
type Client struct {
	conn   *grpc.ClientConn
	client proto.CoordinatorAdminClient
}

// NewClient connects to addr using an existing CLI certificate.
func NewClient(addr string) (*Client, error) {
	certDir, err := security.GetCertDir("cli", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get cert directory: %w", err)
	}

	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("CLI certificate not found at %s - run 'coordinatord cluster join' to request one", certDir)
	}

	conn, err := connectWithMTLS(addr, certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to connect with mTLS: %w", err)
	}

	return &Client{conn: conn, client: proto.NewCoordinatorAdminClient(conn)}, nil
}

// NewClientWithToken requests a CLI certificate using token if one doesn't
// already exist on disk, then connects with mTLS.
func NewClientWithToken(addr, token string) (*Client, error) {
	certDir, err := security.GetCertDir("cli", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get cert directory: %w", err)
	}

	if !security.CertExists(certDir) {
		fmt.Println("CLI certificate not found, requesting from coordinator...")
		if err := requestCertificate(addr, "cli", token, certDir); err != nil {
			return nil, fmt.Errorf("failed to request certificate: %w", err)
		}
		fmt.Printf("certificate obtained and saved to %s\n", certDir)
	}

	conn, err := connectWithMTLS(addr, certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator: %w", err)
	}

	return &Client{conn: conn, client: proto.NewCoordinatorAdminClient(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

type adminRPC func(context.Context, *wrapperspb.BytesValue, ...grpc.CallOption) (*wrapperspb.BytesValue, error)

// call marshals req, invokes rpc, and unmarshals the response into resp.
// resp may be nil for calls whose response carries nothing the caller
// needs.
func (c *Client) call(rpc adminRPC, req, resp interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("client: encode request: %w", err)
	}

	out, err := rpc(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return json.Unmarshal(out.GetValue(), resp)
}

// ListNodes returns every node's fleet-coordination record.
func (c *Client) ListNodes() ([]Node, error) {
	var resp struct {
		Nodes []Node `json:"nodes"`
	}
	if err := c.call(c.client.ListNodes, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// DrainNode migrates every tenant off a node and marks it offline.
func (c *Client) DrainNode(nodeID string) error {
	req := struct {
		NodeID string `json:"node_id"`
	}{NodeID: nodeID}
	return c.call(c.client.DrainNode, req, nil)
}

// GrantCredits performs a bulk, undoable credit grant across tenantIDs.
// The returned operationID is what a later RevokeGrant reverses.
func (c *Client) GrantCredits(tenantIDs []string, amountCents int64, description string) (operationID string, undoDeadline time.Time, results []ItemResult, err error) {
	req := struct {
		TenantIDs   []string `json:"tenant_ids"`
		AmountCents int64    `json:"amount_cents"`
		Description string   `json:"description"`
	}{TenantIDs: tenantIDs, AmountCents: amountCents, Description: description}

	var resp struct {
		OperationID  string       `json:"operation_id"`
		UndoDeadline time.Time    `json:"undo_deadline"`
		Results      []ItemResult `json:"results"`
	}
	if err = c.call(c.client.GrantCredits, req, &resp); err != nil {
		return "", time.Time{}, nil, err
	}
	return resp.OperationID, resp.UndoDeadline, resp.Results, nil
}

// RevokeGrant reverses a prior GrantCredits call by operation id.
func (c *Client) RevokeGrant(operationID string) (partialUndo bool, err error) {
	req := struct {
		OperationID string `json:"operation_id"`
	}{OperationID: operationID}

	var resp struct {
		PartialUndo bool `json:"partial_undo"`
	}
	if err = c.call(c.client.RevokeGrant, req, &resp); err != nil {
		return false, err
	}
	return resp.PartialUndo, nil
}

// SuspendTenants flips billing state to suspended across tenantIDs.
func (c *Client) SuspendTenants(tenantIDs []string) ([]ItemResult, error) {
	return c.tenantBatch(c.client.SuspendTenants, tenantIDs)
}

// ReactivateTenants flips billing state back to active across tenantIDs.
func (c *Client) ReactivateTenants(tenantIDs []string) ([]ItemResult, error) {
	return c.tenantBatch(c.client.ReactivateTenants, tenantIDs)
}

func (c *Client) tenantBatch(rpc adminRPC, tenantIDs []string) ([]ItemResult, error) {
	req := struct {
		TenantIDs []string `json:"tenant_ids"`
	}{TenantIDs: tenantIDs}

	var resp struct {
		Results []ItemResult `json:"results"`
	}
	if err := c.call(rpc, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// RecoveryStatus reports a recovery event, looked up either by eventID or
// by the node currently being recovered. Pass whichever one is known.
func (c *Client) RecoveryStatus(nodeID, eventID string) (*RecoveryStatus, error) {
	req := struct {
		EventID string `json:"event_id,omitempty"`
		NodeID  string `json:"node_id,omitempty"`
	}{EventID: eventID, NodeID: nodeID}

	var resp RecoveryStatus
	if err := c.call(c.client.RecoveryStatus, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TriggerRecovery starts a manual recovery run for a node.
func (c *Client) TriggerRecovery(nodeID string) (*RecoveryStatus, error) {
	req := struct {
		NodeID string `json:"node_id"`
	}{NodeID: nodeID}

	var resp RecoveryStatus
	if err := c.call(c.client.TriggerRecovery, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClusterInfo reports Raft leadership and membership.
func (c *Client) ClusterInfo() (*ClusterInfo, error) {
	var resp ClusterInfo
	if err := c.call(c.client.ClusterInfo, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateJoinToken mints a one-time token for role ("coordinator" or
// "node") to present during its first join.
func (c *Client) GenerateJoinToken(role string) (token string, expiresAt time.Time, err error) {
	req := struct {
		Role string `json:"role"`
	}{Role: role}

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err = c.call(c.client.GenerateJoinToken, req, &resp); err != nil {
		return "", time.Time{}, err
	}
	return resp.Token, resp.ExpiresAt, nil
}

// JoinCluster asks the leader at this client's address to add a new
// coordinator replica as a Raft voter. Called by pkg/manager.Manager.Join.
func (c *Client) JoinCluster(nodeID, bindAddr, token string) error {
	req := struct {
		NodeID   string `json:"node_id"`
		BindAddr string `json:"bind_addr"`
		Token    string `json:"token"`
	}{NodeID: nodeID, BindAddr: bindAddr, Token: token}
	return c.call(c.client.JoinCluster, req, nil)
}

// BootstrapNodeCert trades token for an mTLS client certificate for a fleet
// node and writes it under security.GetCertDir("agent", nodeID), the same
// location pkg/agent's dial() looks for one. Called once by the agent
// binary before its first Connect; subsequent restarts find the cert
// already on disk and skip straight to mTLS.
func BootstrapNodeCert(addr, nodeID, token string) error {
	certDir, err := security.GetCertDir("agent", nodeID)
	if err != nil {
		return fmt.Errorf("failed to get cert directory: %w", err)
	}
	if security.CertExists(certDir) {
		return nil
	}
	return requestCertificate(addr, nodeID, token, certDir)
}

// requestCertificate trades token for an mTLS client certificate and
// writes it to certDir.
func requestCertificate(addr, nodeID, token, certDir string) error {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to coordinator: %w", err)
	}
	defer conn.Close()

	adminClient := proto.NewCoordinatorAdminClient(conn)

	req := struct {
		NodeID string `json:"node_id"`
		Token  string `json:"token"`
	}{NodeID: nodeID, Token: token}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("client: encode certificate request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	out, err := adminClient.RequestCertificate(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return fmt.Errorf("failed to request certificate: %w", err)
	}

	var resp struct {
		Certificate []byte `json:"certificate"`
		PrivateKey  []byte `json:"private_key"`
		CACert      []byte `json:"ca_cert"`
	}
	if err := json.Unmarshal(out.GetValue(), &resp); err != nil {
		return fmt.Errorf("client: decode certificate response: %w", err)
	}

	if err := os.MkdirAll(certDir, 0700); err != nil {
		return fmt.Errorf("failed to create cert directory: %w", err)
	}
	if err := os.WriteFile(certDir+"/node.crt", resp.Certificate, 0600); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(certDir+"/node.key", resp.PrivateKey, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(certDir+"/ca.crt", resp.CACert, 0644); err != nil {
		return fmt.Errorf("failed to write CA certificate: %w", err)
	}

	return nil
}

// connectWithMTLS establishes a gRPC connection authenticated with the
// certificate in certDir.
func connectWithMTLS(addr, certDir string) (*grpc.ClientConn, error) {
	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load CLI certificate: %w", err)
	}

	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate: %w", err)
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(caCert)

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		RootCAs:      certPool,
		MinVersion:   tls.VersionTLS13,
	}

	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	if err != nil {
		return nil, fmt.Errorf("failed to dial coordinator: %w", err)
	}

	return conn, nil
}
