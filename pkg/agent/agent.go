package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	"github.com/orbitfleet/coordinator/pkg/objectstore"
	"github.com/orbitfleet/coordinator/pkg/runtime"
	"github.com/rs/zerolog"
)

// Runtime is the subset of *runtime.ContainerdRuntime the agent drives.
type Runtime interface {
	PullImage(ctx context.Context, imageRef string) error
	CreateContainer(ctx context.Context, c *runtime.Container) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout time.Duration) error
	DeleteContainer(ctx context.Context, containerID string) error
	GetContainerStatus(ctx context.Context, containerID string) (runtime.ContainerState, error)
	GetContainerLogs(ctx context.Context, containerID string) (io.ReadCloser, error)
	IsRunning(ctx context.Context, containerID string) bool
	ListContainers(ctx context.Context) ([]string, error)
	GetContainerIP(ctx context.Context, containerID string) (string, error)
}

const defaultStopTimeout = 10 * time.Second

// Config holds the parameters needed to construct an Agent.
type Config struct {
	NodeID          string
	CoordinatorAddr string
	Host            string
	CapacityMb      int64
	AgentVersion    string
	DataDir         string // local staging dir for backup archives
}

// Agent is the node-side process executing bot.*/backup.* commands
// dispatched over a nodeconn channel.
type Agent struct {
	cfg     Config
	runtime Runtime
	store   objectstore.Store
	logger  zerolog.Logger

	imagesMu sync.Mutex
	images   map[string]string // container name -> image, for bot.update's recreate
}

// NewAgent constructs an Agent backed by rt for container execution and
// store for backup archive transfer. Both are narrow interfaces so tests
// can supply fakes instead of a live containerd socket and object store.
func NewAgent(cfg Config, rt Runtime, store objectstore.Store) *Agent {
	return &Agent{
		cfg:     cfg,
		runtime: rt,
		store:   store,
		logger:  log.WithNodeID(cfg.NodeID),
		images:  make(map[string]string),
	}
}

func (a *Agent) rememberImage(name, image string) {
	if image == "" {
		return
	}
	a.imagesMu.Lock()
	a.images[name] = image
	a.imagesMu.Unlock()
}

func (a *Agent) imageFor(name string) (string, bool) {
	a.imagesMu.Lock()
	defer a.imagesMu.Unlock()
	image, ok := a.images[name]
	return image, ok
}

// NewAgentWithContainerd is the production constructor: it opens a real
// containerd client at containerdSocket and a filesystem object store
// rooted at cfg.DataDir/backups.
func NewAgentWithContainerd(cfg Config, containerdSocket string) (*Agent, error) {
	rt, err := runtime.NewContainerdRuntime(containerdSocket)
	if err != nil {
		return nil, fmt.Errorf("agent: init containerd runtime: %w", err)
	}
	store, err := objectstore.NewLocalStore(filepath.Join(cfg.DataDir, "backups"))
	if err != nil {
		return nil, fmt.Errorf("agent: init backup store: %w", err)
	}
	return NewAgent(cfg, rt, store), nil
}

// backupDir is where staged archives live before upload / after download.
func (a *Agent) backupDir() string {
	return filepath.Join(a.cfg.DataDir, "backups")
}

// Dispatch decodes frame's payload per its Type and executes the
// corresponding command, returning the CommandResultFrame to send back.
// A failed command (bad payload, runtime error) is reported via the
// result's Error field, never as a Go error from Dispatch itself - only a
// malformed frame the agent cannot even attribute to a command returns
// one, and even that is folded into the result so the coordinator always
// gets a command_result for every command it sent.
func (a *Agent) Dispatch(ctx context.Context, frame *nodeconn.CommandFrame) *nodeconn.CommandResultFrame {
	result := &nodeconn.CommandResultFrame{
		ID:      frame.ID,
		Type:    nodeconn.FrameCommandResult,
		Command: frame.Type,
	}

	data, err := a.execute(ctx, frame.Type, frame.Payload)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		a.logger.Error().Err(err).Str("command", frame.Type).Str("command_id", frame.ID).Msg("command failed")
		return result
	}
	result.Success = true
	result.Data = data
	return result
}

func (a *Agent) execute(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error) {
	switch command {
	case nodeconn.CmdBotStart:
		return nil, a.botStart(ctx, payload)
	case nodeconn.CmdBotStop:
		return nil, a.botStop(ctx, payload)
	case nodeconn.CmdBotRestart:
		return nil, a.botRestart(ctx, payload)
	case nodeconn.CmdBotRemove:
		return nil, a.botRemove(ctx, payload)
	case nodeconn.CmdBotUpdate:
		return nil, a.botUpdate(ctx, payload)
	case nodeconn.CmdBotExport:
		return a.botExport(ctx, payload)
	case nodeconn.CmdBotImport:
		return nil, a.botImport(ctx, payload)
	case nodeconn.CmdBotLogs:
		return a.botLogs(ctx, payload)
	case nodeconn.CmdBotInspect:
		return a.botInspect(ctx, payload)
	case nodeconn.CmdBackupUpload:
		return nil, a.backupUpload(payload)
	case nodeconn.CmdBackupDownload:
		return nil, a.backupDownload(payload)
	case nodeconn.CmdBackupNightly:
		return a.backupNightly(ctx)
	case nodeconn.CmdBackupHot:
		return a.backupHot(ctx)
	default:
		return nil, fmt.Errorf("agent: unknown command %q", command)
	}
}

func (a *Agent) botStart(ctx context.Context, raw json.RawMessage) error {
	var p startPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode bot.start payload: %w", err)
	}
	if p.Name == "" {
		return fmt.Errorf("agent: bot.start requires a name")
	}

	if p.Image != "" {
		if err := a.runtime.PullImage(ctx, p.Image); err != nil {
			return err
		}
		if _, err := a.runtime.CreateContainer(ctx, &runtime.Container{ID: p.Name, Image: p.Image, Env: p.Env}); err != nil {
			return err
		}
		a.rememberImage(p.Name, p.Image)
	}
	return a.runtime.StartContainer(ctx, p.Name)
}

func (a *Agent) botStop(ctx context.Context, raw json.RawMessage) error {
	var p namePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode bot.stop payload: %w", err)
	}
	return a.runtime.StopContainer(ctx, p.Name, defaultStopTimeout)
}

func (a *Agent) botRestart(ctx context.Context, raw json.RawMessage) error {
	var p namePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode bot.restart payload: %w", err)
	}
	if err := a.runtime.StopContainer(ctx, p.Name, defaultStopTimeout); err != nil {
		return err
	}
	return a.runtime.StartContainer(ctx, p.Name)
}

func (a *Agent) botRemove(ctx context.Context, raw json.RawMessage) error {
	var p namePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode bot.remove payload: %w", err)
	}
	if err := a.runtime.DeleteContainer(ctx, p.Name); err != nil {
		return err
	}
	a.imagesMu.Lock()
	delete(a.images, p.Name)
	a.imagesMu.Unlock()
	return nil
}

// botUpdate recreates the container with a new environment, per spec §6
// ("recreate with new env"): stop, delete, then create+start again against
// the image recorded at the container's last bot.start/bot.import. A
// container the agent never provisioned itself (e.g. inherited across an
// agent restart with no heartbeat-derived image cache) cannot be updated
// this way and the command fails cleanly instead of guessing an image.
func (a *Agent) botUpdate(ctx context.Context, raw json.RawMessage) error {
	var p updatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode bot.update payload: %w", err)
	}
	image, ok := a.imageFor(p.Name)
	if !ok {
		return fmt.Errorf("agent: bot.update %s: no known image to recreate from", p.Name)
	}
	if err := a.runtime.StopContainer(ctx, p.Name, defaultStopTimeout); err != nil {
		return err
	}
	if err := a.runtime.DeleteContainer(ctx, p.Name); err != nil {
		return err
	}
	if _, err := a.runtime.CreateContainer(ctx, &runtime.Container{ID: p.Name, Image: image, Env: p.Env}); err != nil {
		return err
	}
	return a.runtime.StartContainer(ctx, p.Name)
}

// botExport tars the container's staged state into dataDir/backups and
// returns the archive's filename, which later travels as-is through
// backup.upload's payload.
func (a *Agent) botExport(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var p exportPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("agent: decode bot.export payload: %w", err)
	}
	filename := p.Name + ".tar.gz"
	if err := a.archiveContainer(ctx, p.Name, filename); err != nil {
		return nil, err
	}
	return json.Marshal(exportResult{Filename: filename})
}

func (a *Agent) botImport(ctx context.Context, raw json.RawMessage) error {
	var p importPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode bot.import payload: %w", err)
	}
	path := filepath.Join(a.backupDir(), p.Filename)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("agent: staged archive %s not found: %w", p.Filename, err)
	}
	if p.Image != "" {
		if err := a.runtime.PullImage(ctx, p.Image); err != nil {
			return err
		}
		if _, err := a.runtime.CreateContainer(ctx, &runtime.Container{ID: p.Name, Image: p.Image, Env: p.Env}); err != nil {
			return err
		}
		a.rememberImage(p.Name, p.Image)
	}
	return a.restoreContainer(ctx, p.Name, path)
}

func (a *Agent) botLogs(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var p logsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("agent: decode bot.logs payload: %w", err)
	}
	rc, err := a.runtime.GetContainerLogs(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("agent: read logs for %s: %w", p.Name, err)
	}
	return json.Marshal(map[string]string{"logs": string(out)})
}

func (a *Agent) botInspect(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var p namePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("agent: decode bot.inspect payload: %w", err)
	}
	status, err := a.runtime.GetContainerStatus(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	ip, _ := a.runtime.GetContainerIP(ctx, p.Name) // best-effort; empty if not running
	result := inspectResult{
		Name:    p.Name,
		State:   string(status),
		Running: a.runtime.IsRunning(ctx, p.Name),
		IP:      ip,
	}
	return json.Marshal(result)
}

func (a *Agent) backupUpload(raw json.RawMessage) error {
	var p backupFilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode backup.upload payload: %w", err)
	}
	localPath := filepath.Join(a.backupDir(), p.Filename)
	return a.store.Upload(localPath, p.Filename)
}

func (a *Agent) backupDownload(raw json.RawMessage) error {
	var p backupFilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("agent: decode backup.download payload: %w", err)
	}
	localPath := filepath.Join(a.backupDir(), p.Filename)
	return a.store.Download(p.Filename, localPath)
}

// backupNightly tars and uploads every container this agent currently
// runs under the nightly/<nodeId>/<tenant>/<tenant>_<date>.tar.gz key
// convention (spec §6). The container name doubles as the tenant segment
// since this package has no tenant registry of its own - the coordinator
// already knows the tenant-to-container mapping via BotInstance and
// could pass it explicitly in a future payload if that proves
// insufficient.
func (a *Agent) backupNightly(ctx context.Context) (json.RawMessage, error) {
	return a.sweepBackup(ctx, func(name string) string {
		date := time.Now().UTC().Format("2006-01-02")
		return fmt.Sprintf("nightly/%s/%s/%s_%s.tar.gz", a.cfg.NodeID, name, name, date)
	})
}

// backupHot tars and uploads every container under the latest/<name>/
// latest.tar.gz convention recovery pulls from when a node is presumed
// dead.
func (a *Agent) backupHot(ctx context.Context) (json.RawMessage, error) {
	return a.sweepBackup(ctx, func(name string) string {
		return fmt.Sprintf("latest/%s/latest.tar.gz", name)
	})
}

func (a *Agent) sweepBackup(ctx context.Context, keyFor func(name string) string) (json.RawMessage, error) {
	names, err := a.runtime.ListContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent: list containers: %w", err)
	}

	result := sweepResult{}
	for _, name := range names {
		filename := name + ".tar.gz"
		if err := a.archiveContainer(ctx, name, filename); err != nil {
			result.Failed = append(result.Failed, name)
			a.logger.Error().Err(err).Str("container", name).Msg("backup sweep: archive failed")
			continue
		}
		localPath := filepath.Join(a.backupDir(), filename)
		if err := a.store.Upload(localPath, keyFor(name)); err != nil {
			result.Failed = append(result.Failed, name)
			a.logger.Error().Err(err).Str("container", name).Msg("backup sweep: upload failed")
			continue
		}
		result.Uploaded = append(result.Uploaded, name)
	}
	return json.Marshal(result)
}
