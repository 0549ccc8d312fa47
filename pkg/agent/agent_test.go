package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	"github.com/orbitfleet/coordinator/pkg/objectstore"
	"github.com/orbitfleet/coordinator/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containerStub(name, image string) *runtime.Container {
	return &runtime.Container{ID: name, Image: image}
}

func newTestAgent(t *testing.T) (*Agent, *fakeRuntime) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := objectstore.NewLocalStore(filepath.Join(dataDir, "objectstore"))
	require.NoError(t, err)
	rt := newFakeRuntime()
	a := NewAgent(Config{NodeID: "node-1", DataDir: dataDir}, rt, store)
	return a, rt
}

func dispatch(t *testing.T, a *Agent, command string, payload interface{}) *nodeconn.CommandResultFrame {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	frame := &nodeconn.CommandFrame{ID: "cmd-1", Type: command, Payload: raw}
	return a.Dispatch(context.Background(), frame)
}

func TestBotStartCreatesAndRunsContainer(t *testing.T) {
	a, rt := newTestAgent(t)

	result := dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})

	require.True(t, result.Success, result.Error)
	assert.True(t, rt.IsRunning(context.Background(), "web-1"))
	assert.True(t, rt.pulled["nginx:latest"])
}

func TestBotStartWithoutImageStartsExistingContainer(t *testing.T) {
	a, rt := newTestAgent(t)
	_, err := rt.CreateContainer(context.Background(), containerStub("web-1", "nginx:latest"))
	require.NoError(t, err)

	result := dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1"})

	require.True(t, result.Success, result.Error)
	assert.True(t, rt.IsRunning(context.Background(), "web-1"))
}

func TestBotStopAndRestart(t *testing.T) {
	a, rt := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})

	result := dispatch(t, a, nodeconn.CmdBotStop, namePayload{Name: "web-1"})
	require.True(t, result.Success, result.Error)
	assert.False(t, rt.IsRunning(context.Background(), "web-1"))

	result = dispatch(t, a, nodeconn.CmdBotRestart, namePayload{Name: "web-1"})
	require.True(t, result.Success, result.Error)
	assert.True(t, rt.IsRunning(context.Background(), "web-1"))
}

func TestBotRemoveForgetsImage(t *testing.T) {
	a, _ := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})

	result := dispatch(t, a, nodeconn.CmdBotRemove, namePayload{Name: "web-1"})
	require.True(t, result.Success, result.Error)

	_, known := a.imageFor("web-1")
	assert.False(t, known)
}

func TestBotUpdateRecreatesWithNewEnv(t *testing.T) {
	a, rt := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest", Env: []string{"A=1"}})

	result := dispatch(t, a, nodeconn.CmdBotUpdate, updatePayload{Name: "web-1", Env: []string{"A=2"}})

	require.True(t, result.Success, result.Error)
	assert.True(t, rt.IsRunning(context.Background(), "web-1"))
	assert.Equal(t, []string{"A=2"}, rt.containers["web-1"].env)
}

func TestBotUpdateFailsWithoutKnownImage(t *testing.T) {
	a, rt := newTestAgent(t)
	_, err := rt.CreateContainer(context.Background(), containerStub("web-1", "nginx:latest"))
	require.NoError(t, err)
	require.NoError(t, rt.StartContainer(context.Background(), "web-1"))

	result := dispatch(t, a, nodeconn.CmdBotUpdate, updatePayload{Name: "web-1", Env: []string{"A=2"}})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no known image")
}

func TestBotInspectReportsRunningState(t *testing.T) {
	a, _ := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})

	result := dispatch(t, a, nodeconn.CmdBotInspect, namePayload{Name: "web-1"})
	require.True(t, result.Success, result.Error)

	var inspect inspectResult
	require.NoError(t, json.Unmarshal(result.Data, &inspect))
	assert.Equal(t, "web-1", inspect.Name)
	assert.True(t, inspect.Running)
	assert.Equal(t, "10.0.0.1", inspect.IP)
}

func TestBotLogsReturnsCapturedOutput(t *testing.T) {
	a, _ := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})

	result := dispatch(t, a, nodeconn.CmdBotLogs, logsPayload{Name: "web-1"})
	require.True(t, result.Success, result.Error)

	var logs map[string]string
	require.NoError(t, json.Unmarshal(result.Data, &logs))
	assert.Contains(t, logs["logs"], "started web-1")
}

func TestBotExportUploadDownloadImportRoundTrip(t *testing.T) {
	a, rt := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})

	exportRes := dispatch(t, a, nodeconn.CmdBotExport, exportPayload{Name: "web-1"})
	require.True(t, exportRes.Success, exportRes.Error)
	var exported exportResult
	require.NoError(t, json.Unmarshal(exportRes.Data, &exported))
	assert.Equal(t, "web-1.tar.gz", exported.Filename)

	uploadRes := dispatch(t, a, nodeconn.CmdBackupUpload, backupFilePayload{Filename: exported.Filename})
	require.True(t, uploadRes.Success, uploadRes.Error)

	// Remove the local staged copy to prove download actually pulls from
	// the object store rather than finding a file still sitting there.
	require.NoError(t, os.Remove(filepath.Join(a.backupDir(), exported.Filename)))

	downloadRes := dispatch(t, a, nodeconn.CmdBackupDownload, backupFilePayload{Filename: exported.Filename})
	require.True(t, downloadRes.Success, downloadRes.Error)

	importRes := dispatch(t, a, nodeconn.CmdBotImport, importPayload{Name: "web-1", Filename: exported.Filename})
	require.True(t, importRes.Success, importRes.Error)
	assert.True(t, rt.IsRunning(context.Background(), "web-1"))
}

func TestBotImportRejectsMismatchedArchive(t *testing.T) {
	a, rt := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})
	exportRes := dispatch(t, a, nodeconn.CmdBotExport, exportPayload{Name: "web-1"})
	require.True(t, exportRes.Success, exportRes.Error)
	var exported exportResult
	require.NoError(t, json.Unmarshal(exportRes.Data, &exported))

	_, err := rt.CreateContainer(context.Background(), containerStub("web-2", "nginx:latest"))
	require.NoError(t, err)

	result := dispatch(t, a, nodeconn.CmdBotImport, importPayload{Name: "web-2", Filename: exported.Filename})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "belongs to")
}

func TestBackupNightlySweepsAllContainers(t *testing.T) {
	a, _ := newTestAgent(t)
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-1", Image: "nginx:latest"})
	dispatch(t, a, nodeconn.CmdBotStart, startPayload{Name: "web-2", Image: "nginx:latest"})

	result := dispatch(t, a, nodeconn.CmdBackupNightly, map[string]string{})
	require.True(t, result.Success, result.Error)

	var sweep sweepResult
	require.NoError(t, json.Unmarshal(result.Data, &sweep))
	assert.ElementsMatch(t, []string{"web-1", "web-2"}, sweep.Uploaded)
	assert.Empty(t, sweep.Failed)
}

func TestUnknownCommandFails(t *testing.T) {
	a, _ := newTestAgent(t)
	result := dispatch(t, a, "bot.teleport", map[string]string{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown command")
}
