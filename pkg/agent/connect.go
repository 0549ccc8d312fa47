package agent

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	"github.com/orbitfleet/coordinator/pkg/nodeconn/proto"
	"github.com/orbitfleet/coordinator/pkg/security"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const heartbeatInterval = 5 * time.Second

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

// conn holds the live transport once Connect succeeds.
type conn struct {
	grpcConn *grpc.ClientConn
	client   proto.NodeChannelClient
	stream   proto.NodeChannel_ChannelClient
}

// dial opens the gRPC connection to the coordinator. When a certificate is
// already provisioned under security.GetCertDir it dials with mTLS, the
// same way worker.connectWithMTLS does; otherwise it falls back to a
// plaintext dial for local development. A production fleet provisions
// certificates out of band (the join-token bootstrap RPC a real deployment
// needs lives in the cluster-admin surface, not in this channel) - this
// package only ever consumes a cert that already exists on disk.
func dial(coordinatorAddr, nodeID string) (*grpc.ClientConn, error) {
	certDir, err := security.GetCertDir("agent", nodeID)
	if err != nil {
		return nil, fmt.Errorf("agent: resolve cert dir: %w", err)
	}

	if !security.CertExists(certDir) {
		return grpc.NewClient(coordinatorAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("agent: load certificate: %w", err)
	}
	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("agent: load CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}
	return grpc.NewClient(coordinatorAddr, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
}

// Connect dials the coordinator, registers this node, and opens the
// channel stream, sending the handshake frame pkg/nodeconn/server.go's
// Channel handler expects as its very first message.
func (a *Agent) Connect(ctx context.Context) (*conn, error) {
	gc, err := dial(a.cfg.CoordinatorAddr, a.cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("agent: dial coordinator: %w", err)
	}

	client := proto.NewNodeChannelClient(gc)

	regReq := registerNodeRequest{
		NodeID:       a.cfg.NodeID,
		Host:         a.cfg.Host,
		CapacityMb:   a.cfg.CapacityMb,
		AgentVersion: a.cfg.AgentVersion,
	}
	regBytes, err := json.Marshal(regReq)
	if err != nil {
		return nil, fmt.Errorf("agent: marshal registration: %w", err)
	}
	regCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	respBytes, err := client.RegisterNode(regCtx, wrapperspb.Bytes(regBytes))
	if err != nil {
		gc.Close()
		return nil, fmt.Errorf("agent: register node: %w", err)
	}
	var resp registerNodeResponse
	if err := json.Unmarshal(respBytes.GetValue(), &resp); err != nil {
		gc.Close()
		return nil, fmt.Errorf("agent: decode registration response: %w", err)
	}
	if !resp.Accepted {
		gc.Close()
		return nil, fmt.Errorf("agent: registration rejected: %s", resp.Error)
	}

	stream, err := client.Channel(ctx)
	if err != nil {
		gc.Close()
		return nil, fmt.Errorf("agent: open channel: %w", err)
	}

	handshake, err := json.Marshal(struct {
		NodeID string `json:"node_id"`
	}{NodeID: a.cfg.NodeID})
	if err != nil {
		gc.Close()
		return nil, fmt.Errorf("agent: marshal handshake: %w", err)
	}
	if err := stream.Send(wrapperspb.Bytes(handshake)); err != nil {
		gc.Close()
		return nil, fmt.Errorf("agent: send handshake: %w", err)
	}

	a.logger.Info().Msg("connected to coordinator")
	return &conn{grpcConn: gc, client: client, stream: stream}, nil
}

// Run drives c until ctx is cancelled or the stream errs: a heartbeat
// ticker reporting live container inventory pulled straight from the
// runtime, and a receive loop dispatching inbound command frames and
// sending back their results. Both run on the caller's goroutine pair;
// Run blocks until one of them exits.
func (a *Agent) Run(ctx context.Context, c *conn) error {
	errCh := make(chan error, 2)

	go func() { errCh <- a.heartbeatLoop(ctx, c) }()
	go func() { errCh <- a.receiveLoop(ctx, c) }()

	err := <-errCh
	c.grpcConn.Close()
	return err
}

func (a *Agent) heartbeatLoop(ctx context.Context, c *conn) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.sendHeartbeat(ctx, c); err != nil {
				a.logger.Error().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

func (a *Agent) sendHeartbeat(ctx context.Context, c *conn) error {
	names, err := a.runtime.ListContainers(ctx)
	if err != nil {
		return fmt.Errorf("agent: list containers for heartbeat: %w", err)
	}

	// MemoryMb is left at zero: per-container memory accounting would need
	// a containerd metrics call this reference Runtime doesn't expose yet,
	// and the reconciler's node-level heartbeat consumers only sum it for
	// capacity display, not for any correctness-sensitive decision.
	containers := make([]nodeconn.HeartbeatContainer, 0, len(names))
	for _, name := range names {
		containers = append(containers, nodeconn.HeartbeatContainer{Name: name})
	}

	frame := nodeconn.HeartbeatFrame{Type: nodeconn.FrameHeartbeat, Containers: containers}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("agent: marshal heartbeat: %w", err)
	}
	return c.stream.Send(wrapperspb.Bytes(data))
}

// receiveLoop decodes each inbound frame directly as a CommandFrame since
// the coordinator never sends anything else down this stream - heartbeat,
// command_result, and health_event frames all flow upward only, which is
// why nodeconn.ParseFrame (used on the server side) has no "command" case
// at all.
func (a *Agent) receiveLoop(ctx context.Context, c *conn) error {
	for {
		msg, err := c.stream.Recv()
		if err != nil {
			return fmt.Errorf("agent: channel recv: %w", err)
		}

		var frame nodeconn.CommandFrame
		if err := json.Unmarshal(msg.GetValue(), &frame); err != nil {
			a.logger.Warn().Err(err).Msg("discarding unparseable command frame")
			continue
		}

		result := a.Dispatch(ctx, &frame)
		data, err := json.Marshal(result)
		if err != nil {
			a.logger.Error().Err(err).Msg("marshal command result")
			continue
		}
		if err := c.stream.Send(wrapperspb.Bytes(data)); err != nil {
			return fmt.Errorf("agent: send command result: %w", err)
		}
	}
}
