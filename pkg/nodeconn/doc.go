/*
Package nodeconn owns the live fabric between the coordinator and node
agents: one persistent bidirectional channel per node, carrying heartbeats
upward and commands-with-correlated-results in both directions.

# Transport

Each channel is a gRPC bidi-streaming RPC (pkg/nodeconn/proto) whose
messages are google.protobuf.BytesValue wrapping a JSON frame. gRPC
supplies framing, flow control, and TLS termination; the frame schema
itself (command names, payload fields) stays plain JSON so the node
agent's command vocabulary can grow without a new .proto field per
release. Node registration is a separate one-shot unary RPC on the same
service.

# Components

  - Frame: the JSON envelope exchanged over a channel (heartbeat,
    command, command_result, health_event).
  - CommandBus: the correlation-id-keyed pending-commands table that
    turns an async command_result frame back into a synchronous-looking
    SendCommand call, with per-channel ordering and timeout.
  - HeartbeatProcessor: folds a heartbeat frame's container list into a
    node's usedMb and liveness timestamp, without ever promoting a
    returning or draining node back to active.
  - OrphanCleaner: runs once per returning episode, on the first
    heartbeat after a node re-registers, to stop containers the node
    auto-restarted for tenants the Recovery Manager already moved
    elsewhere.
  - Manager: registerNode, handleChannel, sendCommand, listBySession,
    reassignTenant, addNodeCapacity, findBestTarget - the public
    contract every other component (migration, recovery, billing)
    drives the fleet through.

Node status transitions owned by this package are a strict subset of the
full state machine - registration and heartbeat/orphan-completion
transitions only. Migration, recovery, and draining transitions are
applied by their respective packages through the same ClusterStore.
*/
package nodeconn
