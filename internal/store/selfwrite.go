package store

import (
	"strings"
	"sync"
	"time"

	"github.com/starford/solo/internal/models"
	"github.com/starford/solo/internal/storage"
)

// selfWriteTTL bounds how long a write is attributed to the store
// itself. Watcher bursts settle well inside this window.
const selfWriteTTL = 2 * time.Second

// writeLog remembers which vault paths the store touched recently so
// the external-edit watcher can tell the store's own saves apart from
// edits made by other programs.
type writeLog struct {
	mu    sync.Mutex
	paths map[string]time.Time
}

func newWriteLog() *writeLog {
	return &writeLog{paths: make(map[string]time.Time)}
}

func (l *writeLog) mark(paths ...string) {
	now := time.Now()
	l.mu.Lock()
	for _, p := range paths {
		if p != "" {
			l.paths[p] = now
		}
	}
	l.mu.Unlock()
}

// take reports whether path was marked within the TTL and consumes the
// record, so a later external edit of the same file is not suppressed.
func (l *writeLog) take(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.paths[path]
	if ok {
		delete(l.paths, path)
	}
	for p, t := range l.paths {
		if time.Since(t) > selfWriteTTL {
			delete(l.paths, p)
		}
	}
	return ok && time.Since(at) <= selfWriteTTL
}

// WroteRecently reports whether the store itself recently wrote the
// vault-relative path. Each write answers true at most once.
func (s *Store) WroteRecently(path string) bool {
	return s.writes.take(path)
}

// sidecarPath returns the JSON sidecar path beside an .html note path.
func sidecarPath(p string) string {
	return strings.TrimSuffix(p, ".html") + ".json"
}

// trackedFS wraps a storage.Provider and records every path a mutating
// call touches, including the sidecar files the provider manages
// implicitly.
type trackedFS struct {
	inner storage.Provider
	log   *writeLog
}

func (t *trackedFS) ReadStructure() (*models.TreeNode, error) { return t.inner.ReadStructure() }
func (t *trackedFS) OpenFile(path string) (string, error)     { return t.inner.OpenFile(path) }

func (t *trackedFS) UpdateFile(path, content string) error {
	t.log.mark(path)
	return t.inner.UpdateFile(path, content)
}

func (t *trackedFS) UpdateMetadata(path string, meta models.Sidecar) error {
	t.log.mark(sidecarPath(path))
	return t.inner.UpdateMetadata(path, meta)
}

func (t *trackedFS) CreateNotebook(parentPath, name string) (string, error) {
	path, err := t.inner.CreateNotebook(parentPath, name)
	if err == nil {
		t.log.mark(path)
	}
	return path, err
}

func (t *trackedFS) CreateNote(parentPath, title string) (string, string, error) {
	htmlPath, jsonPath, err := t.inner.CreateNote(parentPath, title)
	if err == nil {
		t.log.mark(htmlPath, jsonPath)
	}
	return htmlPath, jsonPath, err
}

func (t *trackedFS) RenameNote(path, newName string) (string, error) {
	newPath, err := t.inner.RenameNote(path, newName)
	if err == nil {
		t.log.mark(path, sidecarPath(path), newPath, sidecarPath(newPath))
	}
	return newPath, err
}

func (t *trackedFS) RenameNotebook(path, newName string) (string, error) {
	newPath, err := t.inner.RenameNotebook(path, newName)
	if err == nil {
		t.log.mark(path, newPath)
	}
	return newPath, err
}

func (t *trackedFS) DeleteNote(path string) error {
	err := t.inner.DeleteNote(path)
	if err == nil {
		t.log.mark(path, sidecarPath(path))
	}
	return err
}

func (t *trackedFS) DeleteNotebook(path string) error {
	err := t.inner.DeleteNotebook(path)
	if err == nil {
		t.log.mark(path)
	}
	return err
}
