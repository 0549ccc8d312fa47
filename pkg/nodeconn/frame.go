package nodeconn

import "encoding/json"

// Frame types, per the node agent <-> coordinator wire contract.
const (
	FrameHeartbeat     = "heartbeat"
	FrameCommandResult = "command_result"
	FrameHealthEvent   = "health_event"
	FrameCommand       = "command"
)

// Command names the node agent understands. Every command frame carries an
// id for correlation with its command_result.
const (
	CmdBotStart       = "bot.start"
	CmdBotStop        = "bot.stop"
	CmdBotRestart     = "bot.restart"
	CmdBotRemove      = "bot.remove"
	CmdBotUpdate      = "bot.update"
	CmdBotExport      = "bot.export"
	CmdBotImport      = "bot.import"
	CmdBotLogs        = "bot.logs"
	CmdBotInspect     = "bot.inspect"
	CmdBackupUpload   = "backup.upload"
	CmdBackupDownload = "backup.download"
	CmdBackupNightly  = "backup.run-nightly"
	CmdBackupHot      = "backup.run-hot"
)

// HeartbeatFrame is the periodic upward frame describing a node's current
// container inventory and memory usage.
type HeartbeatFrame struct {
	Type       string              `json:"type"`
	Containers []HeartbeatContainer `json:"containers"`
}

// HeartbeatContainer is one entry in a heartbeat's container inventory.
type HeartbeatContainer struct {
	Name     string `json:"name"`
	MemoryMb int64  `json:"memory_mb"`
}

// CommandFrame is sent downward to a node agent. Payload is the
// command-specific argument object, left as raw JSON since each command
// shapes it differently (see the Cmd* constants).
type CommandFrame struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandResultFrame is the node agent's response to a CommandFrame.
type CommandResultFrame struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Command string          `json:"command"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HealthEventFrame reports a container lifecycle event (started, exited,
// oom-killed, etc). The coordinator logs and publishes these; it does not
// act on them directly.
type HealthEventFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// envelope is used only to sniff a frame's "type" field before deciding
// which concrete struct to unmarshal into.
type envelope struct {
	Type string `json:"type"`
}

// ParseFrame inspects the frame's type discriminator and returns the typed
// value: *HeartbeatFrame, *CommandResultFrame, or *HealthEventFrame.
func ParseFrame(data []byte) (interface{}, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case FrameHeartbeat:
		var f HeartbeatFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	case FrameCommandResult:
		var f CommandResultFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	case FrameHealthEvent:
		var f HealthEventFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, errUnknownFrameType(env.Type)
	}
}

type errUnknownFrameType string

func (e errUnknownFrameType) Error() string {
	return "nodeconn: unknown frame type " + string(e)
}
