package sync

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/studio-b12/gowebdav"
)

// davDir is the fixed snapshot directory on the WebDAV root.
const davDir = "/Solo"

// WebDAV is a Backend storing snapshots on a WebDAV share.
type WebDAV struct {
	client *gowebdav.Client
	dir    string
}

// NewWebDAV creates a WebDAV backend for the given endpoint.
func NewWebDAV(url, username, password string) *WebDAV {
	return &WebDAV{
		client: gowebdav.NewClient(url, username, password),
		dir:    davDir,
	}
}

// TestConnection checks that the root is reachable and that a scratch
// directory can be created and removed, so it is a round-trip
// write-permission probe rather than just a ping.
func (w *WebDAV) TestConnection(_ context.Context) error {
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("sync: webdav connect: %w", err)
	}
	scratch := path.Join(w.dir, ".solo-probe")
	if err := w.client.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("sync: webdav scratch mkdir: %w", err)
	}
	if err := w.client.RemoveAll(scratch); err != nil {
		return fmt.Errorf("sync: webdav scratch remove: %w", err)
	}
	return nil
}

// Push uploads a new snapshot file; existing snapshots are never
// overwritten, so the share keeps history.
func (w *WebDAV) Push(_ context.Context, name string, payload []byte) error {
	if err := w.client.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("sync: webdav mkdir: %w", err)
	}
	if err := w.client.Write(path.Join(w.dir, name), payload, 0o644); err != nil {
		return fmt.Errorf("sync: webdav write %s: %w", name, err)
	}
	return nil
}

// Pull lists the snapshot directory, sorts by last-modified descending,
// and downloads the single most recent .json file.
func (w *WebDAV) Pull(_ context.Context) ([]byte, error) {
	entries, err := w.client.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("sync: webdav list: %w", err)
	}
	var names []string
	mod := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
		mod[e.Name()] = e.ModTime().UnixNano()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("sync: webdav: no snapshots found in %s", w.dir)
	}
	sort.Slice(names, func(i, j int) bool {
		if mod[names[i]] != mod[names[j]] {
			return mod[names[i]] > mod[names[j]]
		}
		return names[i] > names[j]
	})
	data, err := w.client.Read(path.Join(w.dir, names[0]))
	if err != nil {
		return nil, fmt.Errorf("sync: webdav read %s: %w", names[0], err)
	}
	return data, nil
}
