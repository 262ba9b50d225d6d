package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/solo/internal/apperr"
	"github.com/starford/solo/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// rel converts an absolute path back to the vault-relative slash form.
func (f *FS) rel(abs string) string {
	r, err := filepath.Rel(f.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(r)
}

// ReadStructure walks the vault and builds the directory tree. Hidden
// entries (dotfiles) are skipped; .json sidecars are attached to their
// .html sibling instead of appearing as independent nodes.
func (f *FS) ReadStructure() (*models.TreeNode, error) {
	root := &models.TreeNode{Name: "", Path: "", IsDir: true}
	if err := f.readDir(f.root, root); err != nil {
		return nil, fmt.Errorf("storage: read structure: %w", err)
	}
	return root, nil
}

func (f *FS) readDir(abs string, node *models.TreeNode) error {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		childAbs := filepath.Join(abs, name)
		child := &models.TreeNode{
			Name:  name,
			Path:  f.rel(childAbs),
			IsDir: e.IsDir(),
		}
		if e.IsDir() {
			if err := f.readDir(childAbs, child); err != nil {
				return err
			}
			node.Children = append(node.Children, child)
			continue
		}
		if !strings.HasSuffix(name, ".html") {
			continue
		}
		// Sidecar bytes ride along; a missing sidecar is fine.
		sidecar := strings.TrimSuffix(childAbs, ".html") + ".json"
		if data, readErr := os.ReadFile(sidecar); readErr == nil {
			child.Sidecar = data
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

// OpenFile returns the content of a vault file.
func (f *FS) OpenFile(path string) (string, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("storage: open %s: %w", path, err)
	}
	return string(data), nil
}

// UpdateFile atomically writes content: tmp file → fsync → rename.
func (f *FS) UpdateFile(path, content string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	return writeAtomic(abs, []byte(content))
}

// UpdateMetadata writes the JSON sidecar next to the note at path.
func (f *FS) UpdateMetadata(path string, meta models.Sidecar) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal sidecar: %w", err)
	}
	return writeAtomic(sidecarPath(abs), data)
}

// CreateNotebook creates a directory under parentPath.
func (f *FS) CreateNotebook(parentPath, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	parentAbs, err := f.safePath(parentPath)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(parentAbs, name)
	if err := os.Mkdir(abs, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", apperr.ErrAlreadyExists
		}
		return "", fmt.Errorf("storage: create notebook: %w", err)
	}
	return f.rel(abs), nil
}

// CreateNote creates the <title>.html/<title>.json pair under parentPath.
// The body starts empty; the sidecar carries the note's identity.
func (f *FS) CreateNote(parentPath, title string) (string, string, error) {
	if err := validName(title); err != nil {
		return "", "", err
	}
	parentAbs, err := f.safePath(parentPath)
	if err != nil {
		return "", "", err
	}
	htmlAbs := filepath.Join(parentAbs, title+".html")
	if _, statErr := os.Stat(htmlAbs); statErr == nil {
		return "", "", apperr.ErrAlreadyExists
	}
	if err := writeAtomic(htmlAbs, nil); err != nil {
		return "", "", err
	}
	jsonAbs := sidecarPath(htmlAbs)
	meta := models.Sidecar{ID: f.rel(htmlAbs), Tags: []string{}}
	data, _ := json.MarshalIndent(meta, "", "  ")
	if err := writeAtomic(jsonAbs, data); err != nil {
		_ = os.Remove(htmlAbs)
		return "", "", err
	}
	return f.rel(htmlAbs), f.rel(jsonAbs), nil
}

// RenameNote renames both files of a note within its directory.
func (f *FS) RenameNote(path, newName string) (string, error) {
	if err := validName(newName); err != nil {
		return "", err
	}
	oldAbs, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	newAbs := filepath.Join(filepath.Dir(oldAbs), newName+".html")
	if _, statErr := os.Stat(newAbs); statErr == nil {
		return "", apperr.ErrAlreadyExists
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return "", fmt.Errorf("storage: rename note: %w", err)
	}
	oldJSON := sidecarPath(oldAbs)
	if _, statErr := os.Stat(oldJSON); statErr == nil {
		if err := os.Rename(oldJSON, sidecarPath(newAbs)); err != nil {
			// Roll the body back so the pair stays consistent.
			_ = os.Rename(newAbs, oldAbs)
			return "", fmt.Errorf("storage: rename sidecar: %w", err)
		}
	}
	return f.rel(newAbs), nil
}

// RenameNotebook renames the directory at path.
func (f *FS) RenameNotebook(path, newName string) (string, error) {
	if err := validName(newName); err != nil {
		return "", err
	}
	oldAbs, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	if oldAbs == f.root {
		return "", fmt.Errorf("storage: cannot rename vault root")
	}
	newAbs := filepath.Join(filepath.Dir(oldAbs), newName)
	if _, statErr := os.Stat(newAbs); statErr == nil {
		return "", apperr.ErrAlreadyExists
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return "", fmt.Errorf("storage: rename notebook: %w", err)
	}
	return f.rel(newAbs), nil
}

// DeleteNote removes both files of a note.
func (f *FS) DeleteNote(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	if err := os.Remove(sidecarPath(abs)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete sidecar for %s: %w", path, err)
	}
	return nil
}

// DeleteNotebook removes the directory at path recursively.
func (f *FS) DeleteNotebook(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: cannot delete vault root")
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: delete notebook %s: %w", path, err)
	}
	return nil
}

func sidecarPath(htmlAbs string) string {
	return strings.TrimSuffix(htmlAbs, ".html") + ".json"
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("storage: invalid name: %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("storage: name must not contain path separators: %q", name)
	}
	return nil
}

func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".solo-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
