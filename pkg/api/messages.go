package api

import "time"

// nodeView is the wire shape of a types.Node returned to admin clients.
type nodeView struct {
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

type listNodesResponse struct {
	Nodes []nodeView `json:"nodes"`
}

type drainNodeRequest struct {
	NodeID string `json:"node_id"`
}

type drainNodeResponse struct {
	Status string `json:"status"`
}

// itemResultView is the wire shape of bulkops.ItemResult.
type itemResultView struct {
	TenantID string `json:"tenant_id"`
	Error    string `json:"error,omitempty"`
}

type grantCreditsRequest struct {
	TenantIDs   []string `json:"tenant_ids"`
	AmountCents int64    `json:"amount_cents"`
	Description string   `json:"description"`
}

type grantCreditsResponse struct {
	OperationID  string           `json:"operation_id"`
	UndoDeadline time.Time        `json:"undo_deadline"`
	Results      []itemResultView `json:"results"`
}

type revokeGrantRequest struct {
	OperationID string `json:"operation_id"`
}

type revokeGrantResponse struct {
	OperationID string `json:"operation_id"`
	PartialUndo bool   `json:"partial_undo"`
}

// tenantBatchRequest backs both SuspendTenants and ReactivateTenants.
type tenantBatchRequest struct {
	TenantIDs []string `json:"tenant_ids"`
}

type tenantBatchResponse struct {
	Results []itemResultView `json:"results"`
}

type recoveryStatusRequest struct {
	EventID string `json:"event_id,omitempty"`
	NodeID  string `json:"node_id,omitempty"`
}

// recoveryItemView is the wire shape of a types.RecoveryItem.
type recoveryItemView struct {
	TenantID   string `json:"tenant_id"`
	SourceNode string `json:"source_node"`
	TargetNode string `json:"target_node,omitempty"`
	BackupKey  string `json:"backup_key,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

type recoveryStatusResponse struct {
	EventID     string             `json:"event_id"`
	NodeID      string             `json:"node_id"`
	Trigger     string             `json:"trigger"`
	Status      string             `json:"status"`
	Total       int                `json:"total"`
	Recovered   int                `json:"recovered"`
	Failed      int                `json:"failed"`
	Waiting     int                `json:"waiting"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Items       []recoveryItemView `json:"items"`
}

type triggerRecoveryRequest struct {
	NodeID string `json:"node_id"`
}

type clusterServerView struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Suffrage string `json:"suffrage"`
}

type clusterInfoResponse struct {
	LeaderID   string              `json:"leader_id"`
	LeaderAddr string              `json:"leader_addr"`
	Servers    []clusterServerView `json:"servers"`
}

type generateJoinTokenRequest struct {
	Role string `json:"role"`
}

type generateJoinTokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// joinClusterRequest is sent by a new coordinator replica to the current
// leader, carrying the bind address Raft should reach it on.
type joinClusterRequest struct {
	NodeID   string `json:"node_id"`
	BindAddr string `json:"bind_addr"`
	Token    string `json:"token"`
}

type joinClusterResponse struct {
	Status     string `json:"status"`
	LeaderAddr string `json:"leader_addr"`
}

type requestCertificateRequest struct {
	NodeID string `json:"node_id"`
	Token  string `json:"token"`
}

type requestCertificateResponse struct {
	Certificate []byte `json:"certificate"`
	PrivateKey  []byte `json:"private_key"`
	CACert      []byte `json:"ca_cert"`
}
