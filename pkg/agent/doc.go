/*
Package agent is the node-side counterpart to pkg/nodeconn: it dials the
coordinator's channel, registers, and answers the bot.*/backup.* command
vocabulary (spec §6) by driving pkg/runtime.ContainerdRuntime, the same
containerd wrapper the teacher's worker used for generic task execution.

This is a reference implementation, not the only possible node agent — the
wire contract (pkg/nodeconn/frame.go) is what coordinator and agent
actually have to agree on. A production fleet could run a different agent
binary entirely as long as it speaks the same frames.

# Command dispatch

Dispatch decodes a CommandFrame's JSON payload by its Type (one of the
nodeconn.Cmd* constants) and returns a CommandResultFrame carrying either
Data or Error — never both, and never a transport-level error, since a
failed command is a normal, expected outcome the coordinator's
migration/recovery managers already handle as mustSucceed failures.

# Heartbeat

Run sends a heartbeat frame on a fixed interval listing every container
this agent has started, by name, with the inventory read from the
runtime rather than kept as separate local bookkeeping — so a restarted
agent reports accurate state on its very first heartbeat instead of an
empty list.

# Backups

bot.export/import and backup.upload/download/run-nightly/run-hot move
tar archives through a local staging directory (dataDir/backups) and an
objectstore.Store. The archive's internal layout is intentionally not
interpreted by this package — it is opaque bytes in, opaque bytes out,
matching the encrypted-snapshot-format Non-goal.
*/
package agent
