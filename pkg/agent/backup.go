package agent

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// manifest is the one structured record every archive this package
// produces carries. Real rootfs/volume export is containerd-snapshot
// plumbing the node agent's reference implementation deliberately
// doesn't attempt (spec's encrypted-snapshot-format Non-goal already
// treats archive contents as opaque); what the agent can capture cheaply
// and still round-trip meaningfully through export/import is the
// container's identity and its last known log output.
type manifest struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	manifestEntryName = "manifest.json"
	logsEntryName     = "logs.txt"
)

// archiveContainer writes a tar.gz at dataDir/backups/filename containing
// a manifest and the container's captured logs. No archive/tar or
// compress/gzip alternative appears anywhere in the example pack; both
// are the standard library's own archive formats with no third-party
// equivalent worth adding a dependency for.
func (a *Agent) archiveContainer(ctx context.Context, name, filename string) error {
	if err := os.MkdirAll(a.backupDir(), 0o755); err != nil {
		return fmt.Errorf("agent: create backup dir: %w", err)
	}
	path := filepath.Join(a.backupDir(), filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("agent: create archive %s: %w", filename, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	m := manifest{Name: name, CreatedAt: time.Now().UTC()}
	mb, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("agent: marshal manifest: %w", err)
	}
	if err := writeTarEntry(tw, manifestEntryName, mb); err != nil {
		return err
	}

	var logBytes []byte
	if rc, err := a.runtime.GetContainerLogs(ctx, name); err == nil {
		logBytes, _ = io.ReadAll(rc)
		rc.Close()
	}
	if err := writeTarEntry(tw, logsEntryName, logBytes); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("agent: close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("agent: close gzip writer: %w", err)
	}
	return nil
}

// restoreContainer reads back an archive produced by archiveContainer and
// starts name. The container must already exist (created by the caller
// when an image was supplied, or pre-existing from a prior export) -
// restoreContainer only validates the archive belongs to this container
// and starts it; it does not replay the captured logs anywhere since
// those exist purely for operator inspection after a restore.
func (a *Agent) restoreContainer(ctx context.Context, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("agent: open archive %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("agent: open gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var m manifest
	found := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("agent: read tar entry: %w", err)
		}
		if hdr.Name == manifestEntryName {
			if err := json.NewDecoder(tr).Decode(&m); err != nil {
				return fmt.Errorf("agent: decode manifest: %w", err)
			}
			found = true
		}
	}
	if !found {
		return fmt.Errorf("agent: archive %s has no manifest", path)
	}
	if m.Name != name {
		return fmt.Errorf("agent: archive %s belongs to %q, not %q", path, m.Name, name)
	}

	return a.runtime.StartContainer(ctx, name)
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("agent: write tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("agent: write tar data for %s: %w", name, err)
	}
	return nil
}
