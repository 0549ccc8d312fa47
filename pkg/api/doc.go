/*
Package api implements the coordinator's cluster-admin gRPC server.

It is the gateway CLI operators and coordinator replicas themselves (for
cluster-join) use to talk to the control plane: node membership and
draining, credit-ledger operations, recovery visibility and manual
triggers, Raft cluster membership, and certificate bootstrap. Fleet
node traffic (registration, heartbeats, command dispatch) is a
separate gRPC service, pkg/nodeconn, registered on the same
grpc.Server but implemented independently.

# Architecture

	┌─────────────── CLIENT (CLI / coordinator replica) ───────────────┐
	│  pkg/client.Client (mTLS, falls back to a token-bootstrap RPC)   │
	└─────────────────────────────┬─────────────────────────────────┘
	                              │ gRPC (admin port, default :8080)
	┌─────────────────────────────▼────────────── COORDINATOR ────────┐
	│  pkg/api.Server (CoordinatorAdmin service)                      │
	│    - ensureLeader() gates every mutating RPC                    │
	│    - decode/encode wrap JSON inside wrapperspb.BytesValue       │
	│  ┌────────────┬────────────────┬────────────────┬────────────┐ │
	│  │ pkg/manager│ pkg/migration  │ pkg/recovery    │ pkg/bulkops│ │
	│  │ (Raft,     │ (DrainNode)    │ (TriggerRecovery│ (credit +  │ │
	│  │  nodes)    │                │  /Status)       │  tenant ops│ │
	│  └────────────┴────────────────┴────────────────┴────────────┘ │
	└───────────────────────────────────────────────────────────────┘

# RPC methods

CoordinatorAdmin, defined in pkg/api/proto/admin.proto:

  - ListNodes, DrainNode: fleet node visibility and manual drain.
  - GrantCredits, RevokeGrant: ledger top-ups, undoable within their window.
  - SuspendTenants, ReactivateTenants: bulk tenant billing-state changes.
  - RecoveryStatus, TriggerRecovery: inspect and manually kick off node
    failure recovery.
  - ClusterInfo, GenerateJoinToken, JoinCluster: Raft membership and
    onboarding.
  - RequestCertificate: token-for-certificate exchange used by both the
    CLI and fleet nodes before their first mTLS connection.

# Wire format

Every request and response is a JSON-encoded payload carried inside a
google.protobuf.BytesValue, the same envelope pkg/nodeconn uses for its
own frames. There is no generated coordinator.pb.go: admin_grpc.pb.go
hand-implements the client/server/registration code a protoc run would
otherwise produce, against the RPC method set above.

# Leader forwarding

Mutating RPCs call s.ensureLeader() first and return a
FailedPrecondition status carrying the current leader's address if this
replica isn't it. pkg/client callers surface that error as-is; it is up
to the operator (or a future retry wrapper) to redial the leader.

# mTLS and certificate bootstrap

RequestCertificate is the only RPC served without requiring mTLS on
the incoming connection - it's how a connection acquires a certificate
in the first place. Every other RPC expects a connection mTLS-verified
against the cluster CA (pkg/security). The server also exposes
StartUnixSocket for a read-only local admin path that skips mTLS
entirely, for operators with shell access to the coordinator host.

# Integration points

  - pkg/manager: node roster, Raft membership, join tokens.
  - pkg/migration, pkg/recovery, pkg/bulkops: the managers each RPC
    group forwards to.
  - pkg/security: CA and certificate issuance for RequestCertificate.
  - pkg/client: the Go client for this service.
*/
package api
