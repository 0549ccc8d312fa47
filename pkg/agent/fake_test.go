package agent

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/orbitfleet/coordinator/pkg/runtime"
)

// fakeRuntime is an in-memory stand-in for *runtime.ContainerdRuntime,
// tracking just enough state (existence, running/stopped, logs) for
// Dispatch's handlers to exercise every branch without a containerd
// socket.
type fakeRuntime struct {
	mu         sync.Mutex
	pulled     map[string]bool
	containers map[string]*fakeContainer
}

type fakeContainer struct {
	image   string
	env     []string
	running bool
	logs    string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		pulled:     make(map[string]bool),
		containers: make(map[string]*fakeContainer),
	}
}

func (f *fakeRuntime) PullImage(ctx context.Context, imageRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled[imageRef] = true
	return nil
}

func (f *fakeRuntime) CreateContainer(ctx context.Context, c *runtime.Container) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[c.ID] = &fakeContainer{image: c.Image, env: c.Env}
	return c.ID, nil
}

func (f *fakeRuntime) StartContainer(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerID]
	if !ok {
		return fmt.Errorf("fakeRuntime: no such container %s", containerID)
	}
	c.running = true
	c.logs += fmt.Sprintf("started %s\n", containerID)
	return nil
}

func (f *fakeRuntime) StopContainer(ctx context.Context, containerID string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerID]
	if !ok {
		return nil
	}
	c.running = false
	return nil
}

func (f *fakeRuntime) DeleteContainer(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, containerID)
	return nil
}

func (f *fakeRuntime) GetContainerStatus(ctx context.Context, containerID string) (runtime.ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerID]
	if !ok {
		return "", fmt.Errorf("fakeRuntime: no such container %s", containerID)
	}
	if c.running {
		return runtime.ContainerStateRunning, nil
	}
	return runtime.ContainerStateComplete, nil
}

func (f *fakeRuntime) GetContainerLogs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("fakeRuntime: no such container %s", containerID)
	}
	return io.NopCloser(strings.NewReader(c.logs)), nil
}

func (f *fakeRuntime) IsRunning(ctx context.Context, containerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerID]
	return ok && c.running
}

func (f *fakeRuntime) ListContainers(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.containers))
	for name := range f.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeRuntime) GetContainerIP(ctx context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerID]
	if !ok || !c.running {
		return "", fmt.Errorf("fakeRuntime: %s has no IP", containerID)
	}
	return "10.0.0.1", nil
}
